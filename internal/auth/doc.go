// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package auth is the security gate in front of every Jellyfin endpoint.

There is exactly one account, taken from configuration. Its password is
bcrypt-hashed at startup and the plaintext is dropped.

# Sessions

A successful login issues a random 32-hex-character token and replaces
any previous session, so at most one token is valid at a time. Tokens
expire after GateConfig.SessionTTL. Clients send the token in any of:

	X-Emby-Token: <token>
	X-MediaBrowser-Token: <token>
	Authorization: MediaBrowser Client="...", Token="<token>"
	X-Emby-Authorization: Emby ..., Token="<token>"
	?api_key=<token>

# Bans

Failed logins are counted per source address over a sliding BanConfig.Window:
only failures within the last Window count toward the threshold.
Reaching BanConfig.Threshold bans the address for BanConfig.Duration;
while banned even correct credentials are refused and further attempts
do not extend the ban. Counting and the ban decision happen under one
lock, so concurrent failures ban exactly once.

# Usage

	gate, err := auth.NewGate(gateCfg)
	session, err := gate.Authenticate(user, pass, auth.SourceAddress(r),
	    auth.WithClientInfo(auth.ClientInfoFromRequest(r)))

	r.Group(func(r chi.Router) {
	    r.Use(auth.RequireSession(gate))
	    ...
	})

Gate.PurgeExpired drops expired sessions and ban records; the cleanup
service calls it periodically.
*/
package auth
