// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
are exposed at /metrics when metrics.enabled is set:

	curl http://localhost:8096/metrics

# Available Metrics

API:
  - api_requests_total{method, endpoint, status_code}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}
  - api_not_implemented_total{method}

Stash backend:
  - stash_query_duration_seconds{operation}
  - stash_query_errors_total{operation, error_type}
  - stash_query_retries_total{operation}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name, result}

Security:
  - auth_attempts_total{result}
  - auth_active_bans
  - auth_sessions_issued_total

Media:
  - stream_active, stream_bytes_total, stream_errors_total{phase}
  - image_cache_hits_total, image_cache_misses_total, image_cache_bytes
  - image_cache_evictions_total, image_resize_failures_total

The endpoint label is the chi route pattern, never the raw path, so item ids
do not explode label cardinality.
*/
package metrics
