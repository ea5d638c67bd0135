// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stashbridge/config.yaml",
	"/etc/stashbridge/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8096, // Jellyfin's port; clients probe it first
			Name:              "Stash",
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 1200,
			RateLimitWindow:   time.Minute,
			DefaultLimit:      100,
			MaxLimit:          500,
		},
		Stash: StashConfig{
			URL:                 "http://localhost:9999",
			Timeout:             15 * time.Second,
			RetryDelay:          500 * time.Millisecond,
			StreamHeaderTimeout: 30 * time.Second,
			MaxQPS:              50,
			MaxAssetBytes:       32 << 20,
		},
		Security: SecurityConfig{
			SessionTTL:             720 * time.Hour,
			BanThreshold:           5,
			BanWindow:              15 * time.Minute,
			BanDuration:            15 * time.Minute,
			CleanupInterval:        5 * time.Minute,
			LoginRateLimitRequests: 10,
			LoginRateLimitWindow:   time.Minute,
		},
		Library: LibraryConfig{
			TagGroups:    []string{},
			SavedFilters: true,
			AllScenes:    true,
			Performers:   true,
			Studios:      true,
			Groups:       true,
			Tags:         true,
		},
		Images: ImagesConfig{
			CacheEntries: 2000,
			CacheBytes:   256 << 20,
			CacheTTL:     time.Hour,
			JPEGQuality:  85,
			MaxDimension: 4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// STASH_URL -> stash.url, SB_PASSWORD -> security.password
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
	"library.tag_groups",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			continue
		}
		trimmed := []string{}
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":               "server.host",
	"http_port":               "server.port",
	"server_name":             "server.name",
	"http_read_timeout":       "server.read_timeout",
	"http_write_timeout":      "server.write_timeout",
	"http_idle_timeout":       "server.idle_timeout",
	"trust_forwarded_headers": "server.trust_forwarded_headers",
	"cors_origins":            "server.cors_origins",
	"rate_limit_requests":     "server.rate_limit_requests",
	"rate_limit_window":       "server.rate_limit_window",

	// Stash
	"stash_url":         "stash.url",
	"stash_api_key":     "stash.api_key",
	"stash_timeout":     "stash.timeout",
	"stash_retry_delay": "stash.retry_delay",
	"stash_max_qps":     "stash.max_qps",

	// Security
	"sb_username":        "security.username",
	"sb_password":        "security.password",
	"session_ttl":        "security.session_ttl",
	"ban_threshold":      "security.ban_threshold",
	"ban_window":         "security.ban_window",
	"ban_duration":       "security.ban_duration",
	"require_image_auth": "security.require_image_auth",

	// Library
	"tag_groups":    "library.tag_groups",
	"saved_filters": "library.saved_filters",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Metrics
	"metrics_enabled": "metrics.enabled",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped keys return "" and are skipped, so unrelated environment
// variables never reach the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
