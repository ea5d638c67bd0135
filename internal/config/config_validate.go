// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/stashbridge/internal/validation"
)

// Validate checks that required configuration is present and valid.
// Struct tags cover single fields; the checks below cover combinations.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := validateHTTPURL(c.Stash.URL, "STASH_URL"); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateLibrary(); err != nil {
		return err
	}

	return c.validateRateLimits()
}

// validateSecurity rejects credentials that cannot work with bcrypt.
func (c *Config) validateSecurity() error {
	if strings.TrimSpace(c.Security.Username) == "" {
		return errors.New("SB_USERNAME is required")
	}
	if len(c.Security.Password) > 72 {
		return errors.New("SB_PASSWORD must be at most 72 bytes")
	}
	return nil
}

// validateLibrary requires at least one library so clients have something
// to show after login.
func (c *Config) validateLibrary() error {
	l := c.Library
	if len(l.TagGroups) == 0 && !l.SavedFilters && !l.AllScenes &&
		!l.Performers && !l.Studios && !l.Groups && !l.Tags {
		return errors.New("library: every library is disabled")
	}
	seen := make(map[string]bool, len(l.TagGroups))
	for _, name := range l.TagGroups {
		key := strings.ToLower(strings.TrimSpace(name))
		if seen[key] {
			return fmt.Errorf("TAG_GROUPS lists %q twice", name)
		}
		seen[key] = true
	}
	return nil
}

// validateRateLimits requires both halves of a limit or neither.
func (c *Config) validateRateLimits() error {
	if (c.Server.RateLimitRequests > 0) != (c.Server.RateLimitWindow > 0) {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be set together")
	}
	if (c.Security.LoginRateLimitRequests > 0) != (c.Security.LoginRateLimitWindow > 0) {
		return errors.New("security.login_rate_limit_requests and login_rate_limit_window must be set together")
	}
	return nil
}
