// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the gateway:
// - API endpoint latency and throughput
// - Stash GraphQL query performance
// - Circuit breaker state
// - Authentication failures and bans
// - Stream and image proxy traffic

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// APINotImplemented counts requests answered by the fallback handler.
	APINotImplemented = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_not_implemented_total",
			Help: "Requests for endpoints the gateway does not implement",
		},
		[]string{"method"},
	)

	// Backend Metrics
	BackendQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stash_query_duration_seconds",
			Help:    "Duration of Stash GraphQL operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BackendQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_query_errors_total",
			Help: "Total number of failed Stash GraphQL operations",
		},
		[]string{"operation", "error_type"},
	)

	BackendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_query_retries_total",
			Help: "Total number of retried Stash GraphQL operations",
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Security Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by result",
		},
		[]string{"result"}, // "success", "failure", "banned"
	)

	AuthActiveBans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_active_bans",
			Help: "Number of source addresses currently banned",
		},
	)

	AuthSessionsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_sessions_issued_total",
			Help: "Total number of sessions issued",
		},
	)

	// Stream Metrics
	StreamActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_active",
			Help: "Number of media streams currently being relayed",
		},
	)

	StreamBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_bytes_total",
			Help: "Total number of media bytes relayed to clients",
		},
	)

	StreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_errors_total",
			Help: "Media stream failures by phase",
		},
		[]string{"phase"}, // "open", "relay"
	)

	// Image Cache Metrics
	ImageCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cache_hits_total",
			Help: "Total number of image cache hits",
		},
	)

	ImageCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cache_misses_total",
			Help: "Total number of image cache misses",
		},
	)

	ImageCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_cache_bytes",
			Help: "Bytes currently held by the image cache",
		},
	)

	ImageCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_cache_evictions_total",
			Help: "Total number of image cache evictions",
		},
	)

	ImageResizeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resize_failures_total",
			Help: "Images served unresized because resizing failed",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBackendQuery records one Stash operation. errorType is empty on success.
func RecordBackendQuery(operation string, duration time.Duration, errorType string) {
	BackendQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errorType != "" {
		BackendQueryErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordAuthAttempt records the outcome of a login attempt.
func RecordAuthAttempt(result string) {
	AuthAttempts.WithLabelValues(result).Inc()
}

// RecordImageCache records a cache lookup.
func RecordImageCache(hit bool) {
	if hit {
		ImageCacheHits.Inc()
	} else {
		ImageCacheMisses.Inc()
	}
}
