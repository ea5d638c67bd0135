// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"errors"
	"net/http"

	"github.com/tomtom215/stashbridge/internal/logging"
)

// Validator is the part of the Gate the middleware needs.
type Validator interface {
	Validate(token string) (*Session, error)
}

// RequireSession rejects requests without a live session token and stores
// the session in the request context for handlers.
func RequireSession(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := v.Validate(TokenFromRequest(r))
			if err != nil {
				if errors.Is(err, ErrSessionExpired) {
					logging.CtxDebug(r.Context()).Str("path", r.URL.Path).Msg("Expired session token")
				}
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `MediaBrowser realm="Stashbridge"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
