// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// ClientInfo describes the application that opened a session, as reported in
// the MediaBrowser authorization header.
type ClientInfo struct {
	Client   string
	Device   string
	DeviceID string
	Version  string
}

// Session is the single authenticated session.
type Session struct {
	// Token is the opaque access token handed to the client.
	Token string

	// SourceAddress is the address that logged in.
	SourceAddress string

	// Client is the application that logged in.
	Client ClientInfo

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session has expired at now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// generateToken returns a random 128-bit token as 32 hex characters, the
// shape Jellyfin clients expect for access tokens.
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type sessionContextKey struct{}

// ContextWithSession stores the session for downstream handlers.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok && s != nil
}
