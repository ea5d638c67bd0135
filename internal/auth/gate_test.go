// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/stashbridge/internal/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate(t *testing.T, clock *fakeClock) *Gate {
	t.Helper()
	g, err := NewGate(GateConfig{
		Username:   "alice",
		Password:   "correct horse",
		SessionTTL: time.Hour,
		Ban:        BanConfig{Threshold: 3, Window: 10 * time.Minute, Duration: 5 * time.Minute},
		BcryptCost: bcrypt.MinCost,
	},
		WithClock(clock.Now),
		WithSecurityLogger(logging.NewSecurityLoggerWithLogger(zerolog.New(io.Discard))),
	)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}

func TestNewGate_RequiresCredentials(t *testing.T) {
	if _, err := NewGate(GateConfig{Password: "x"}); err == nil {
		t.Error("expected error for empty username")
	}
	if _, err := NewGate(GateConfig{Username: "x"}); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestAuthenticate_Success(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)

	s, err := g.Authenticate("alice", "correct horse", "10.0.0.1",
		WithClientInfo(ClientInfo{Client: "Infuse", DeviceID: "dev1"}))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if len(s.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(s.Token))
	}
	if !s.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v", s.ExpiresAt)
	}
	if s.Client.Client != "Infuse" || s.SourceAddress != "10.0.0.1" {
		t.Errorf("session metadata = %+v", s)
	}

	got, err := g.Validate(s.Token)
	if err != nil || got.Token != s.Token {
		t.Errorf("Validate = %+v, %v", got, err)
	}
}

func TestAuthenticate_WrongCredentials(t *testing.T) {
	g := newTestGate(t, newFakeClock())

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "battery staple"},
		{"wrong username", "bob", "correct horse"},
		{"empty", "", ""},
		{"case differs", "Alice", "correct horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Authenticate(tt.username, tt.password, "10.0.0."+tt.name)
			if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthenticate_BanBlocksCorrectCredentials(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)
	addr := "192.0.2.7"

	for i := 0; i < 3; i++ {
		if _, err := g.Authenticate("alice", "nope", addr); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: error = %v", i, err)
		}
	}
	if banned, _ := g.IsBanned(addr); !banned {
		t.Fatal("expected address to be banned after threshold failures")
	}

	// Correct credentials are refused while banned.
	if _, err := g.Authenticate("alice", "correct horse", addr); !errors.Is(err, ErrBanned) {
		t.Fatalf("error = %v, want ErrBanned", err)
	}
	if !errors.Is(ErrBanned, ErrUnauthorized) {
		t.Error("ErrBanned must be an ErrUnauthorized")
	}

	// Other addresses are unaffected.
	if _, err := g.Authenticate("alice", "correct horse", "192.0.2.8"); err != nil {
		t.Errorf("other address: %v", err)
	}

	clock.Advance(5*time.Minute + time.Second)
	if banned, _ := g.IsBanned(addr); banned {
		t.Fatal("ban should have expired")
	}
	if _, err := g.Authenticate("alice", "correct horse", addr); err != nil {
		t.Errorf("after ban expiry: %v", err)
	}
	if _, ok := g.BanRecord(addr); ok {
		t.Error("successful login should clear the failure record")
	}
}

func TestAuthenticate_BanRemaining(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)

	for i := 0; i < 3; i++ {
		_, _ = g.Authenticate("alice", "nope", "a")
	}
	clock.Advance(2 * time.Minute)
	banned, remaining := g.IsBanned("a")
	if !banned || remaining != 3*time.Minute {
		t.Errorf("IsBanned = %v, %v; want true, 3m", banned, remaining)
	}
}

func TestAuthenticate_FailuresOutsideWindowReset(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)
	addr := "198.51.100.1"

	_, _ = g.Authenticate("alice", "nope", addr)
	_, _ = g.Authenticate("alice", "nope", addr)
	clock.Advance(11 * time.Minute)
	_, _ = g.Authenticate("alice", "nope", addr)

	if banned, _ := g.IsBanned(addr); banned {
		t.Fatal("failures spread beyond the window must not ban")
	}
	rec, ok := g.BanRecord(addr)
	if !ok || rec.FailureCount() != 1 {
		t.Errorf("record = %+v, want only the latest failure counted", rec)
	}
	if !rec.Failures[0].Equal(clock.Now()) {
		t.Errorf("oldest counted failure = %v, want %v", rec.Failures[0], clock.Now())
	}
}

func TestAuthenticate_SlidingWindowBansAcrossFirstFailureExpiry(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)
	addr := "198.51.100.2"

	// Failures at 0m, 9m, 11m and 12m. By 12m the first has left the
	// 10m window but the last three are all inside it.
	steps := []time.Duration{0, 9 * time.Minute, 2 * time.Minute, time.Minute}
	for i, step := range steps {
		clock.Advance(step)
		_, _ = g.Authenticate("alice", "nope", addr)
		if banned, _ := g.IsBanned(addr); banned != (i == len(steps)-1) {
			t.Fatalf("after failure %d banned = %v", i+1, banned)
		}
	}

	rec, _ := g.BanRecord(addr)
	if rec.FailureCount() != 3 {
		t.Errorf("FailureCount() = %d, want 3", rec.FailureCount())
	}
	if _, err := g.Authenticate("alice", "correct horse", addr); !errors.Is(err, ErrBanned) {
		t.Errorf("correct credentials while banned: error = %v, want ErrBanned", err)
	}
}

func TestAuthenticate_FailedAttemptsWhileBannedDoNotExtend(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)

	for i := 0; i < 3; i++ {
		_, _ = g.Authenticate("alice", "nope", "a")
	}
	before, _ := g.BanRecord("a")
	clock.Advance(time.Minute)
	_, _ = g.Authenticate("alice", "nope", "a")
	after, _ := g.BanRecord("a")

	if !after.BannedUntil.Equal(before.BannedUntil) {
		t.Errorf("BannedUntil moved from %v to %v", before.BannedUntil, after.BannedUntil)
	}
}

func TestAuthenticate_NewLoginInvalidatesOldToken(t *testing.T) {
	g := newTestGate(t, newFakeClock())

	first, err := g.Authenticate("alice", "correct horse", "a")
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Authenticate("alice", "correct horse", "b")
	if err != nil {
		t.Fatal(err)
	}
	if first.Token == second.Token {
		t.Fatal("tokens must differ")
	}
	if _, err := g.Validate(first.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("old token: error = %v, want ErrSessionNotFound", err)
	}
	if _, err := g.Validate(second.Token); err != nil {
		t.Errorf("new token: %v", err)
	}
}

func TestValidate_Expiry(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)

	s, err := g.Authenticate("alice", "correct horse", "a")
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Hour)
	if _, err := g.Validate(s.Token); err != nil {
		t.Errorf("at exact expiry: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := g.Validate(s.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
	if _, ok := g.CurrentSession(); ok {
		t.Error("CurrentSession should be empty after expiry")
	}
}

func TestValidate_UnknownTokens(t *testing.T) {
	g := newTestGate(t, newFakeClock())

	for _, token := range []string{"", "deadbeef", "0123456789abcdef0123456789abcdef"} {
		if _, err := g.Validate(token); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Validate(%q) error = %v, want ErrUnauthorized", token, err)
		}
	}
}

func TestLogout(t *testing.T) {
	g := newTestGate(t, newFakeClock())

	s, err := g.Authenticate("alice", "correct horse", "a")
	if err != nil {
		t.Fatal(err)
	}
	if g.Logout("not-the-token") {
		t.Error("Logout with wrong token should report false")
	}
	if _, err := g.Validate(s.Token); err != nil {
		t.Fatalf("wrong-token logout ended the session: %v", err)
	}
	if !g.Logout(s.Token) {
		t.Error("Logout should report true")
	}
	if _, err := g.Validate(s.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("after logout: error = %v", err)
	}
	if g.Logout(s.Token) {
		t.Error("second Logout should report false")
	}
}

func TestPurgeExpired(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)

	if _, err := g.Authenticate("alice", "correct horse", "a"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_, _ = g.Authenticate("alice", "nope", "banned")
	}
	_, _ = g.Authenticate("alice", "nope", "stale")

	if n := g.PurgeExpired(); n != 0 {
		t.Errorf("nothing expired yet, purged %d", n)
	}

	clock.Advance(2 * time.Hour)
	if n := g.PurgeExpired(); n != 3 {
		t.Errorf("purged %d, want 3 (ban, stale failure, session)", n)
	}
	if _, ok := g.BanRecord("banned"); ok {
		t.Error("expired ban record should be purged")
	}
}

func TestAuthenticate_ConcurrentFailuresBanExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	g := newTestGate(t, clock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Authenticate("alice", "nope", "swarm")
		}()
	}
	wg.Wait()

	rec, ok := g.BanRecord("swarm")
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.FailureCount() != 3 {
		t.Errorf("FailureCount() = %d, want 3 (attempts after the ban are refused)", rec.FailureCount())
	}
	if !rec.IsBanned(clock.Now()) {
		t.Error("expected ban")
	}
}

func TestValidate_ConcurrentWithLogin(t *testing.T) {
	g := newTestGate(t, newFakeClock())
	s, err := g.Authenticate("alice", "correct horse", "a")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = g.Validate(s.Token)
			}
		}()
		go func() {
			defer wg.Done()
			_, _ = g.Authenticate("alice", "correct horse", "b")
		}()
	}
	wg.Wait()

	cur, ok := g.CurrentSession()
	if !ok {
		t.Fatal("expected a live session")
	}
	if _, err := g.Validate(cur.Token); err != nil {
		t.Errorf("current session invalid: %v", err)
	}
}
