// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/models"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stream"
)

// JellyfinVersion is the server version reported to clients. Clients gate
// features on it, so it tracks a Jellyfin release whose API the gateway
// emulates.
const JellyfinVersion = "10.10.3"

// Paging defaults for list endpoints.
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Config configures the endpoint emulator.
type Config struct {
	// ServerName is shown on client login screens and seeds the server id.
	ServerName string
	// Username is the single configured user; it seeds the user id.
	Username string

	DefaultLimit int
	MaxLimit     int

	// RequireImageAuth puts image routes behind the session check. Most
	// clients load images without credentials.
	RequireImageAuth bool

	// TrustForwardedHeaders takes the client address from X-Forwarded-For
	// and X-Real-IP. Enable only behind a reverse proxy.
	TrustForwardedHeaders bool

	CORSOrigins []string

	// RateLimit applies to every request per client address.
	RateLimit RateLimitConfig
	// LoginRateLimit applies to AuthenticateByName per client address.
	LoginRateLimit RateLimitConfig

	MetricsEnabled bool
}

// Dependencies are the components the handlers dispatch to.
type Dependencies struct {
	Gate    *auth.Gate
	Backend stash.Backend
	Library *library.Builder
	Streams *stream.Proxy
	Images  *imageproxy.Proxy
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: JSON and query parameter helpers
//   - handlers_system.go: system, branding and health endpoints
//   - handlers_users.go: login, users, sessions and display preferences
//   - handlers_items.go: libraries, item listings and item details
//   - handlers_playback.go: playback info, streams and playback reports
//   - handlers_images.go: image endpoints
//   - handlers_misc.go: localization and the endpoints with empty answers
//   - handlers_fallback.go: answers for endpoints the gateway does not know
type Handler struct {
	cfg     Config
	gate    *auth.Gate
	backend stash.Backend
	library *library.Builder
	streams *stream.Proxy
	images  *imageproxy.Proxy

	serverID  string
	userID    string
	rootID    string
	startTime time.Time

	prefsMu sync.Mutex
	prefs   map[string]models.DisplayPreferencesDto
}

// NewHandler creates the API handler. Every dependency is required.
func NewHandler(cfg Config, deps Dependencies) (*Handler, error) {
	if deps.Gate == nil || deps.Backend == nil || deps.Library == nil || deps.Streams == nil || deps.Images == nil {
		return nil, errors.New("api: missing dependency")
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "Stash"
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	cfg.DefaultLimit = min(cfg.DefaultLimit, cfg.MaxLimit)

	return &Handler{
		cfg:       cfg,
		gate:      deps.Gate,
		backend:   deps.Backend,
		library:   deps.Library,
		streams:   deps.Streams,
		images:    deps.Images,
		serverID:  identity.ServerID(cfg.ServerName),
		userID:    identity.UserID(cfg.Username),
		rootID:    identity.EncodeCatalog(0),
		startTime: time.Now(),
		prefs:     make(map[string]models.DisplayPreferencesDto),
	}, nil
}

// ServerID returns the id clients know this server by.
func (h *Handler) ServerID() string {
	return h.serverID
}
