// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
)

// ErrUnauthorized is returned for every authentication or session failure.
// The wrapped variants below let callers log the cause while clients only
// ever see a 401.
var ErrUnauthorized = errors.New("unauthorized")

var (
	ErrBanned             = fmt.Errorf("%w: source address is banned", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrSessionNotFound    = fmt.Errorf("%w: session not found", ErrUnauthorized)
	ErrSessionExpired     = fmt.Errorf("%w: session expired", ErrUnauthorized)
)

// DefaultSessionTTL is the lifetime of a session token.
const DefaultSessionTTL = 30 * 24 * time.Hour

// GateConfig configures the Gate.
type GateConfig struct {
	Username   string
	Password   string
	SessionTTL time.Duration
	Ban        BanConfig

	// BcryptCost defaults to DefaultBcryptCost.
	BcryptCost int
}

// Gate guards the gateway with a single account, a single live session and
// per-address banning after repeated failures.
type Gate struct {
	mu      sync.RWMutex
	creds   *credentials
	ttl     time.Duration
	bans    *banTable
	session *Session

	now    func() time.Time
	secLog *logging.SecurityLogger
}

// Option customizes a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSecurityLogger overrides the security event logger.
func WithSecurityLogger(l *logging.SecurityLogger) Option {
	return func(g *Gate) { g.secLog = l }
}

// NewGate hashes the configured password and returns a ready Gate.
func NewGate(cfg GateConfig, opts ...Option) (*Gate, error) {
	defaults := DefaultBanConfig()
	if cfg.Ban.Threshold <= 0 {
		cfg.Ban.Threshold = defaults.Threshold
	}
	if cfg.Ban.Window <= 0 {
		cfg.Ban.Window = defaults.Window
	}
	if cfg.Ban.Duration <= 0 {
		cfg.Ban.Duration = defaults.Duration
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}

	creds, err := newCredentials(cfg.Username, cfg.Password, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		creds:  creds,
		ttl:    cfg.SessionTTL,
		bans:   newBanTable(cfg.Ban),
		now:    time.Now,
		secLog: logging.NewSecurityLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SessionOption attaches metadata to a session created by Authenticate.
type SessionOption func(*Session)

// WithClientInfo records the client application on the new session.
func WithClientInfo(ci ClientInfo) SessionOption {
	return func(s *Session) { s.Client = ci }
}

// Authenticate checks credentials from sourceAddress. A banned address is
// refused before the credentials are looked at, so a correct password does
// not help until the ban expires. On success the previous session, if any,
// stops being valid.
func (g *Gate) Authenticate(username, password, sourceAddress string, opts ...SessionOption) (*Session, error) {
	var meta Session
	for _, opt := range opts {
		opt(&meta)
	}
	client := meta.Client

	g.mu.RLock()
	banned, _ := g.bans.banned(sourceAddress, g.now())
	g.mu.RUnlock()
	if banned {
		metrics.RecordAuthAttempt("banned")
		g.secLog.LogLoginFailure(username, sourceAddress, client.Client, "address banned")
		return nil, ErrBanned
	}

	// bcrypt runs outside the lock so a slow comparison never blocks
	// Validate on the hot path.
	ok := g.creds.verify(username, password)

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()

	// Another attempt may have tripped the ban while we were hashing.
	if banned, _ := g.bans.banned(sourceAddress, now); banned {
		metrics.RecordAuthAttempt("banned")
		g.secLog.LogLoginFailure(username, sourceAddress, client.Client, "address banned")
		return nil, ErrBanned
	}

	if !ok {
		metrics.RecordAuthAttempt("failure")
		g.secLog.LogLoginFailure(username, sourceAddress, client.Client, "invalid credentials")
		if g.bans.recordFailure(sourceAddress, now) {
			rec, _ := g.bans.snapshot(sourceAddress)
			g.secLog.LogBan(sourceAddress, rec.FailureCount(), rec.BannedUntil)
			metrics.AuthActiveBans.Set(float64(g.bans.active(now)))
		}
		return nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	g.bans.clear(sourceAddress)

	replaced := g.session != nil && !g.session.IsExpired(now)
	g.session = &Session{
		Token:         token,
		SourceAddress: sourceAddress,
		Client:        client,
		IssuedAt:      now,
		ExpiresAt:     now.Add(g.ttl),
	}

	metrics.RecordAuthAttempt("success")
	metrics.AuthSessionsIssued.Inc()
	g.secLog.LogLoginSuccess(username, sourceAddress, client.Client)
	g.secLog.LogSessionCreated(token, sourceAddress, replaced)

	s := *g.session
	return &s, nil
}

// Validate returns the live session for token.
func (g *Gate) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.session == nil || !tokenEqual(g.session.Token, token) {
		return nil, ErrSessionNotFound
	}
	if g.session.IsExpired(g.now()) {
		return nil, ErrSessionExpired
	}
	s := *g.session
	return &s, nil
}

// Logout ends the session if token is the live one. Unknown tokens are
// ignored so a repeated logout is not an error.
func (g *Gate) Logout(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session == nil || token == "" || !tokenEqual(g.session.Token, token) {
		return false
	}
	g.secLog.LogLogout(token, g.session.SourceAddress)
	g.session = nil
	return true
}

// IsBanned reports whether sourceAddress is banned and for how much longer.
func (g *Gate) IsBanned(sourceAddress string) (bool, time.Duration) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bans.banned(sourceAddress, g.now())
}

// BanRecord returns a copy of the failure record for sourceAddress.
func (g *Gate) BanRecord(sourceAddress string) (BanRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.bans.snapshot(sourceAddress)
}

// CurrentSession returns the live session, if any.
func (g *Gate) CurrentSession() (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.session == nil || g.session.IsExpired(g.now()) {
		return nil, false
	}
	s := *g.session
	return &s, true
}

// PurgeExpired drops expired ban records and an expired session. It returns
// the number of entries removed.
func (g *Gate) PurgeExpired() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	removed := g.bans.purge(now)
	if g.session != nil && g.session.IsExpired(now) {
		g.session = nil
		removed++
	}
	metrics.AuthActiveBans.Set(float64(g.bans.active(now)))

	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Purged expired auth state")
	}
	return removed
}
