// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package logging is the zerolog-based structured logging layer.
//
// # Quick Start
//
//	logging.Init(cfg)
//
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Error().Err(err).Str("operation", "FindScenes").Msg("Stash query failed")
//
//	// Inside a request: adds request_id
//	logging.Ctx(ctx).Warn().Err(err).Msg("Retrying Stash request")
//
// # Bridges
//
//   - NewSlogLogger feeds sutureslog so supervisor events share the format.
//   - NewStdLogger plugs into http.Server.ErrorLog.
//
// # Security Events
//
// SecurityLogger records logins, failed logins, bans, session creation and
// logout. Tokens are truncated and URLs stripped of credentials before
// they are written; passwords are never passed in.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// event is never written.
package logging
