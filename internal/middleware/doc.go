// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package middleware provides the HTTP middleware shared by every route.

Key Components:

  - LowercasePath: case-insensitive routing for Jellyfin clients
  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, duration and in-flight gauge labelled
    by chi route pattern
  - Compression: gzip for JSON responses

All middleware uses the func(http.Handler) http.Handler shape so it plugs
into chi's Use and With:

	r := chi.NewRouter()
	r.Use(middleware.LowercasePath)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.Compression).Get("/items", h.Items)
*/
package middleware
