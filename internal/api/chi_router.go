// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/middleware"
)

// SetupChi configures all HTTP routes. Routes are registered in lower case;
// LowercasePath folds the request path before routing.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	cfg := h.cfg
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.LowercasePath)
	r.Use(middleware.RequestID)
	if cfg.TrustForwardedHeaders {
		r.Use(chimiddleware.RealIP) // Only behind a proxy that sets X-Forwarded-For
	}
	r.Use(chimiddleware.Recoverer)     // Re-panics http.ErrAbortHandler for aborted streams
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(router.chiMiddleware.RateLimitCustom("api", cfg.RateLimit))
	r.Use(APISecurityHeaders())
	r.Use(RequestLogging())
	if cfg.MetricsEnabled {
		r.Use(middleware.PrometheusMetrics)
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(h.NotImplemented)
	r.MethodNotAllowed(h.NotImplemented)

	imageRoutes := func(r chi.Router) {
		r.Get("/items/{itemId}/images/{imageType}", h.Image)
		r.Head("/items/{itemId}/images/{imageType}", h.Image)
		r.Get("/items/{itemId}/images/{imageType}/{imageIndex}", h.Image)
		r.Head("/items/{itemId}/images/{imageType}/{imageIndex}", h.Image)
	}

	// ========================
	// Public Endpoints
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compression)

		r.Get("/system/info/public", h.PublicSystemInfo)
		r.Get("/system/ping", h.Ping)
		r.Post("/system/ping", h.Ping)
		r.Get("/branding/configuration", h.BrandingConfiguration)
		r.Get("/branding/css", h.BrandingCSS)
		r.Get("/branding/css.css", h.BrandingCSS)
		r.Get("/quickconnect/enabled", h.QuickConnectEnabled)
		r.Get("/health", h.Health)
		r.Get("/users/public", h.PublicUsers)
		r.With(router.chiMiddleware.RateLimitCustom("login", cfg.LoginRateLimit)).
			Post("/users/authenticatebyname", h.AuthenticateByName)
		r.Get("/web", h.WebClient)
		r.Get("/web/*", h.WebClient)
	})

	if !cfg.RequireImageAuth {
		r.Group(imageRoutes)
	}

	// ========================
	// Authenticated Endpoints
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(h.gate))

		if cfg.RequireImageAuth {
			imageRoutes(r)
		}

		// Media bytes are relayed as-is, never compressed.
		r.Get("/videos/{itemId}/stream", h.Stream)
		r.Head("/videos/{itemId}/stream", h.Stream)
		r.Get("/videos/{itemId}/stream.{container}", h.Stream)
		r.Head("/videos/{itemId}/stream.{container}", h.Stream)
		r.Get("/items/{itemId}/download", h.Download)
		r.Head("/items/{itemId}/download", h.Download)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compression)
			router.jsonRoutes(r)
		})
	})

	return r
}

// jsonRoutes registers the authenticated JSON endpoints.
func (router *Router) jsonRoutes(r chi.Router) {
	h := router.handler

	// System
	r.Get("/system/info", h.SystemInfo)

	// Users and sessions
	r.Get("/users", h.Users)
	r.Get("/users/me", h.Me)
	r.Get("/sessions", h.Sessions)
	r.Post("/sessions/logout", h.Logout)
	r.Post("/sessions/capabilities", h.Capabilities)
	r.Post("/sessions/capabilities/full", h.Capabilities)
	r.Get("/displaypreferences/{displayPreferencesId}", h.GetDisplayPreferences)
	r.Post("/displaypreferences/{displayPreferencesId}", h.UpdateDisplayPreferences)

	// Libraries and browsing
	r.Get("/userviews", h.UserViews)
	r.Get("/library/virtualfolders", h.VirtualFolders)
	r.Get("/library/mediafolders", h.MediaFolders)
	r.Get("/items", h.Items)
	r.Get("/items/latest", h.Latest)
	r.Get("/items/filters", h.Filters)
	r.Get("/items/filters2", h.Filters2)
	r.Get("/items/counts", h.Counts)
	r.Get("/useritems/resume", h.Resume)
	r.Get("/search/hints", h.SearchHints)
	r.Get("/persons", h.entityListing(identity.KindPerformer))
	r.Get("/studios", h.entityListing(identity.KindStudio))
	r.Get("/genres", h.entityListing(identity.KindTag))
	r.Get("/shows/nextup", h.emptyResult)
	r.Get("/movies/recommendations", h.emptyList)
	r.Route("/items/{itemId}", func(r chi.Router) {
		itemRoutes(h, r)
		r.Get("/similar", h.Similar)
		r.Get("/ancestors", h.Ancestors)
		r.Get("/thememedia", h.ThemeMedia)
		r.Get("/playbackinfo", h.PlaybackInfo)
		r.Post("/playbackinfo", h.PlaybackInfo)
		r.Get("/images", h.ImageInfos)
	})

	// Playback
	r.Post("/sessions/playing", h.PlayingStart)
	r.Post("/sessions/playing/progress", h.PlayingProgress)
	r.Post("/sessions/playing/stopped", h.PlayingStopped)
	r.Post("/sessions/playing/ping", h.PlayingPing)
	r.Post("/userplayeditems/{itemId}", h.MarkPlayed)
	r.Delete("/userplayeditems/{itemId}", h.MarkUnplayed)
	r.Post("/userfavoriteitems/{itemId}", h.MarkFavorite)
	r.Delete("/userfavoriteitems/{itemId}", h.UnmarkFavorite)
	r.Get("/mediasegments/{itemId}", h.MediaSegments)

	// The legacy user-scoped forms of the routes above.
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Use(h.requireUser)

		r.Get("/", h.User)
		r.Get("/views", h.UserViews)
		r.Get("/groupingoptions", h.GroupingOptions)
		r.Get("/items", h.Items)
		r.Get("/items/root", h.RootFolder)
		r.Get("/items/latest", h.Latest)
		r.Get("/items/resume", h.Resume)
		r.Route("/items/{itemId}", func(r chi.Router) {
			itemRoutes(h, r)
		})
		r.Post("/playeditems/{itemId}", h.MarkPlayed)
		r.Delete("/playeditems/{itemId}", h.MarkUnplayed)
		r.Post("/favoriteitems/{itemId}", h.MarkFavorite)
		r.Delete("/favoriteitems/{itemId}", h.UnmarkFavorite)
	})

	// Localization and misc
	r.Get("/localization/cultures", h.Cultures)
	r.Get("/localization/countries", h.Countries)
	r.Get("/localization/parentalratings", h.ParentalRatings)
	r.Get("/localization/options", h.LocalizationOptions)
	r.Get("/plugins", h.emptyList)
}

// itemRoutes are served under both /items/{itemId} and
// /users/{userId}/items/{itemId}.
func itemRoutes(h *Handler, r chi.Router) {
	r.Get("/", h.Item)
	r.Get("/intros", h.Intros)
	r.Get("/localtrailers", h.emptyList)
	r.Get("/specialfeatures", h.emptyList)
}
