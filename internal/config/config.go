// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Stash    StashConfig    `koanf:"stash"`
	Security SecurityConfig `koanf:"security"`
	Library  LibraryConfig  `koanf:"library"`
	Images   ImagesConfig   `koanf:"images"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the HTTP listener Jellyfin clients connect to.
type ServerConfig struct {
	Host string `koanf:"host" validate:"omitempty,ip|hostname"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
	// Name is shown on client login screens and seeds the server id.
	Name string `koanf:"name" validate:"required,max=64"`

	ReadTimeout time.Duration `koanf:"read_timeout" validate:"gte=0"`
	// WriteTimeout is zero by default; a deadline would cut off long streams.
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"gte=0"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	TrustForwardedHeaders bool     `koanf:"trust_forwarded_headers"`
	CORSOrigins           []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`

	DefaultLimit int `koanf:"default_limit" validate:"gte=1"`
	MaxLimit     int `koanf:"max_limit" validate:"gtefield=DefaultLimit"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StashConfig configures the backend connection.
type StashConfig struct {
	URL                 string        `koanf:"url" validate:"required,http_url"`
	APIKey              string        `koanf:"api_key"`
	Timeout             time.Duration `koanf:"timeout" validate:"gt=0"`
	RetryDelay          time.Duration `koanf:"retry_delay" validate:"gte=0"`
	StreamHeaderTimeout time.Duration `koanf:"stream_header_timeout" validate:"gt=0"`
	MaxQPS              float64       `koanf:"max_qps" validate:"gte=0"`
	MaxAssetBytes       int64         `koanf:"max_asset_bytes" validate:"gt=0"`
}

// SecurityConfig configures the single account and login protection.
type SecurityConfig struct {
	Username string `koanf:"username" validate:"required,max=128"`
	Password string `koanf:"password" validate:"required,max=72"`

	SessionTTL      time.Duration `koanf:"session_ttl" validate:"gt=0"`
	BanThreshold    int           `koanf:"ban_threshold" validate:"gte=1"`
	BanWindow       time.Duration `koanf:"ban_window" validate:"gt=0"`
	BanDuration     time.Duration `koanf:"ban_duration" validate:"gt=0"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"gt=0"`

	RequireImageAuth bool `koanf:"require_image_auth"`

	LoginRateLimitRequests int           `koanf:"login_rate_limit_requests" validate:"gte=0"`
	LoginRateLimitWindow   time.Duration `koanf:"login_rate_limit_window" validate:"gte=0"`
}

// LibraryConfig selects the virtual libraries shown to clients.
type LibraryConfig struct {
	TagGroups    []string `koanf:"tag_groups" validate:"dive,required,max=256"`
	SavedFilters bool     `koanf:"saved_filters"`
	AllScenes    bool     `koanf:"all_scenes"`
	Performers   bool     `koanf:"performers"`
	Studios      bool     `koanf:"studios"`
	Groups       bool     `koanf:"groups"`
	Tags         bool     `koanf:"tags"`
}

// ImagesConfig configures the image cache and resizing.
type ImagesConfig struct {
	CacheEntries int           `koanf:"cache_entries" validate:"gte=1"`
	CacheBytes   int64         `koanf:"cache_bytes" validate:"gte=1"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"gt=0"`
	JPEGQuality  int           `koanf:"jpeg_quality" validate:"min=1,max=100"`
	MaxDimension int           `koanf:"max_dimension" validate:"min=16,max=16384"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}
