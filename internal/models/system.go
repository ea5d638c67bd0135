// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package models

// ============================================================================
// System Models
// ============================================================================

// ProductName is what clients check to recognize a Jellyfin server.
const ProductName = "Jellyfin Server"

// PublicSystemInfo is served without authentication.
type PublicSystemInfo struct {
	LocalAddress           string `json:"LocalAddress"`
	ServerName             string `json:"ServerName"`
	Version                string `json:"Version"`
	ProductName            string `json:"ProductName"`
	OperatingSystem        string `json:"OperatingSystem"`
	ID                     string `json:"Id"`
	StartupWizardCompleted bool   `json:"StartupWizardCompleted"`
}

// SystemInfo is PublicSystemInfo plus server capabilities.
type SystemInfo struct {
	PublicSystemInfo
	OperatingSystemDisplayName string `json:"OperatingSystemDisplayName"`
	HasPendingRestart          bool   `json:"HasPendingRestart"`
	IsShuttingDown             bool   `json:"IsShuttingDown"`
	SupportsLibraryMonitor     bool   `json:"SupportsLibraryMonitor"`
	WebSocketPortNumber        int    `json:"WebSocketPortNumber"`
	CanSelfRestart             bool   `json:"CanSelfRestart"`
	CanLaunchWebBrowser        bool   `json:"CanLaunchWebBrowser"`
	HasUpdateAvailable         bool   `json:"HasUpdateAvailable"`
	SystemArchitecture         string `json:"SystemArchitecture"`
}

// BrandingOptions is served to login screens.
type BrandingOptions struct {
	LoginDisclaimer     string `json:"LoginDisclaimer"`
	CustomCSS           string `json:"CustomCss"`
	SplashscreenEnabled bool   `json:"SplashscreenEnabled"`
}

// HealthStatus answers /health.
type HealthStatus struct {
	Status         string `json:"status"` // "ok", "degraded"
	StashReachable bool   `json:"stash_reachable"`
	StashVersion   string `json:"stash_version,omitempty"`
	CircuitBreaker string `json:"circuit_breaker,omitempty"`
	Uptime         string `json:"uptime"`
	Error          string `json:"error,omitempty"`
}

// ErrorResponse is the JSON body of error answers. Jellyfin itself returns
// ProblemDetails-like objects; clients only look at the status code.
type ErrorResponse struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"traceId,omitempty"`
}
