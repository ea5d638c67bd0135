// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package middleware

import (
	"net/http"
	"strings"
)

// LowercasePath rewrites the request path to lower case before routing.
// Jellyfin clients disagree on the casing of the same endpoint
// (/Users/Me, /users/me), so routes are registered in lower case.
func LowercasePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lower := strings.ToLower(r.URL.Path); lower != r.URL.Path {
			r.URL.Path = lower
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}
