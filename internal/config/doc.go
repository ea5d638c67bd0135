// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package config loads and validates the gateway configuration.

# Configuration Sources

Values are layered with koanf, later sources winning:
  - Built-in defaults
  - An optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/stashbridge/config.yaml
  - Environment variables listed in envMappings

# Environment Variables

Stash backend:
  - STASH_URL: Stash base URL (default: http://localhost:9999)
  - STASH_API_KEY: API key sent as the ApiKey header
  - STASH_TIMEOUT: per-query timeout (default: 15s)
  - STASH_RETRY_DELAY: delay before the single retry (default: 500ms)
  - STASH_MAX_QPS: GraphQL request rate cap, 0 for none (default: 50)

Account and login protection:
  - SB_USERNAME, SB_PASSWORD: the single account (required)
  - SESSION_TTL: session lifetime (default: 720h)
  - BAN_THRESHOLD, BAN_WINDOW, BAN_DURATION: failed logins per window that
    ban an address, and for how long (default: 5, 15m, 15m)
  - REQUIRE_IMAGE_AUTH: require a session for image requests (default: false)

HTTP server:
  - HTTP_HOST, HTTP_PORT: listen address (default: 0.0.0.0:8096)
  - SERVER_NAME: name shown to clients (default: Stash)
  - TRUST_FORWARDED_HEADERS: take client addresses from X-Forwarded-For
  - CORS_ORIGINS: comma list of allowed origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: per-address request limit

Libraries:
  - TAG_GROUPS: comma list of tag names shown as libraries
  - SAVED_FILTERS: show Stash saved scene filters as libraries (default: true)

Observability:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - METRICS_ENABLED: serve /metrics (default: true)

# Validation

Field rules are validator struct tags; Validate adds the checks that span
fields. Load never returns an invalid Config.
*/
package config
