// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"context"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/models"
)

// healthCheckTimeout bounds the backend probe made by /health.
const healthCheckTimeout = 5 * time.Second

// breakerState is implemented by backends guarded by a circuit breaker.
type breakerState interface {
	State() string
}

func (h *Handler) publicSystemInfo(r *http.Request) models.PublicSystemInfo {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return models.PublicSystemInfo{
		LocalAddress:           scheme + "://" + r.Host,
		ServerName:             h.cfg.ServerName,
		Version:                JellyfinVersion,
		ProductName:            models.ProductName,
		OperatingSystem:        runtime.GOOS,
		ID:                     h.serverID,
		StartupWizardCompleted: true,
	}
}

// PublicSystemInfo answers GET /System/Info/Public. Clients call it to
// validate a server address before login.
func (h *Handler) PublicSystemInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, h.publicSystemInfo(r))
}

// SystemInfo answers GET /System/Info.
func (h *Handler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, models.SystemInfo{
		PublicSystemInfo:           h.publicSystemInfo(r),
		OperatingSystemDisplayName: runtime.GOOS,
		SystemArchitecture:         runtime.GOARCH,
		WebSocketPortNumber:        localPort(r),
	})
}

// localPort returns the port the request arrived on, or 0.
func localPort(r *http.Request) int {
	addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok {
		return 0
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Ping answers GET and POST /System/Ping.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, models.ProductName)
}

// BrandingConfiguration answers GET /Branding/Configuration.
func (h *Handler) BrandingConfiguration(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, models.BrandingOptions{})
}

// BrandingCSS answers GET /Branding/Css with an empty stylesheet.
func (h *Handler) BrandingCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

// QuickConnectEnabled answers GET /QuickConnect/Enabled. Quick connect needs
// a second authenticated device and is not offered.
func (h *Handler) QuickConnectEnabled(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, false)
}

// Health answers GET /health. The gateway is degraded while the Stash
// backend does not answer.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status: "ok",
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if b, ok := h.backend.(breakerState); ok {
		status.CircuitBreaker = b.State()
	}

	version, err := h.backend.Version(ctx)
	if err != nil {
		status.Status = "degraded"
		status.Error = err.Error()
		logging.CtxWarn(r.Context()).Err(err).Msg("Health check: Stash unreachable")
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	status.StashReachable = true
	status.StashVersion = version
	writeJSON(w, r, http.StatusOK, status)
}
