// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

// Router wires the handler into an HTTP route tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for handler, configuring CORS and rate limits
// from the handler's configuration.
func NewRouter(handler *Handler) *Router {
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = handler.cfg.CORSOrigins
	if len(mwCfg.CORSAllowedOrigins) == 0 {
		// Jellyfin web clients are served from arbitrary origins and send
		// the token in a header, never a cookie.
		mwCfg.CORSAllowedOrigins = []string{"*"}
	}

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwCfg),
	}
}
