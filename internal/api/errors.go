// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/models"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stream"
)

// ErrInvalidRequest marks malformed query parameters and bodies.
var ErrInvalidRequest = errors.New("invalid request")

var errNoRoute = errors.New("no such route")

// errorStatus maps an error onto the HTTP status the client sees. Unknown
// errors are 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, stash.ErrNotFound),
		errors.Is(err, identity.ErrNotAnIdentifier),
		errors.Is(err, library.ErrNotFound),
		errors.Is(err, imageproxy.ErrNotFound),
		errors.Is(err, errNoRoute):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, library.ErrInvalidNavigation):
		return http.StatusBadRequest
	case errors.Is(err, stream.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	case errors.Is(err, stash.ErrBackendUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case stash.IsQueryError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers r with the status err maps to. A request the client
// already abandoned gets no answer at all.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logging.CtxDebug(ctx).Str("path", sanitizeLogValue(r.URL.Path)).Msg("Client went away")
		return
	}

	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logging.CtxError(ctx).Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Int("status", status).Msg("Request failed")
	} else {
		logging.CtxDebug(ctx).Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Int("status", status).Msg("Request rejected")
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `MediaBrowser realm="Stashbridge"`)
	}

	body := models.ErrorResponse{
		Title:     http.StatusText(status),
		Status:    status,
		RequestID: logging.RequestIDFromContext(ctx),
	}
	// Internal details stay in the log.
	if status < http.StatusInternalServerError {
		body.Detail = err.Error()
	}
	writeJSON(w, r, status, body)
}
