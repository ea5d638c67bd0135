// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
	"github.com/tomtom215/stashbridge/internal/models"
)

// NotImplemented answers every route the gateway does not know. Clients
// probe many optional endpoints and treat errors as fatal, so a GET gets an
// empty query result and any other verb a bare 204.
func (h *Handler) NotImplemented(w http.ResponseWriter, r *http.Request) {
	metrics.APINotImplemented.WithLabelValues(r.Method).Inc()
	logging.CtxDebug(r.Context()).
		Str("method", r.Method).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg("Endpoint not implemented")

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		respondJSON(w, r, models.NewQueryResult[models.BaseItemDto](nil, 0, 0))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebClient answers /web/*. The bundled web client is not served, and a
// redirect would loop clients that probe it.
func (h *Handler) WebClient(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, fmt.Errorf("%w: web client is not served", errNoRoute))
}
