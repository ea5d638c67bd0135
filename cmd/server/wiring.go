// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package main

import (
	"github.com/tomtom215/stashbridge/internal/api"
	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/config"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/stash"
)

// The functions below translate the loaded configuration into each
// component's own config struct.

func stashConfig(c *config.Config) stash.Config {
	return stash.Config{
		URL:                 c.Stash.URL,
		APIKey:              c.Stash.APIKey,
		Timeout:             c.Stash.Timeout,
		RetryDelay:          c.Stash.RetryDelay,
		StreamHeaderTimeout: c.Stash.StreamHeaderTimeout,
		MaxQPS:              c.Stash.MaxQPS,
		MaxAssetBytes:       c.Stash.MaxAssetBytes,
	}
}

func gateConfig(c *config.Config) auth.GateConfig {
	return auth.GateConfig{
		Username:   c.Security.Username,
		Password:   c.Security.Password,
		SessionTTL: c.Security.SessionTTL,
		Ban: auth.BanConfig{
			Threshold: c.Security.BanThreshold,
			Window:    c.Security.BanWindow,
			Duration:  c.Security.BanDuration,
		},
	}
}

func libraryConfig(c *config.Config) library.Config {
	return library.Config{
		TagGroups:    c.Library.TagGroups,
		SavedFilters: c.Library.SavedFilters,
		AllScenes:    c.Library.AllScenes,
		Performers:   c.Library.Performers,
		Studios:      c.Library.Studios,
		Groups:       c.Library.Groups,
		Tags:         c.Library.Tags,
	}
}

func imageConfig(c *config.Config) imageproxy.Config {
	return imageproxy.Config{
		CacheEntries: c.Images.CacheEntries,
		CacheBytes:   c.Images.CacheBytes,
		CacheTTL:     c.Images.CacheTTL,
		JPEGQuality:  c.Images.JPEGQuality,
		MaxDimension: c.Images.MaxDimension,
	}
}

func apiConfig(c *config.Config) api.Config {
	return api.Config{
		ServerName:            c.Server.Name,
		Username:              c.Security.Username,
		DefaultLimit:          c.Server.DefaultLimit,
		MaxLimit:              c.Server.MaxLimit,
		RequireImageAuth:      c.Security.RequireImageAuth,
		TrustForwardedHeaders: c.Server.TrustForwardedHeaders,
		CORSOrigins:           c.Server.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			Requests: c.Server.RateLimitRequests,
			Window:   c.Server.RateLimitWindow,
		},
		LoginRateLimit: api.RateLimitConfig{
			Requests: c.Security.LoginRateLimitRequests,
			Window:   c.Security.LoginRateLimitWindow,
		},
		MetricsEnabled: c.Metrics.Enabled,
	}
}

func logConfig(c *config.Config) logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
