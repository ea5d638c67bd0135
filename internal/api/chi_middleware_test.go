// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =====================================================
// ChiMiddleware Configuration Tests
// =====================================================

func TestNewChiMiddleware_DefaultConfig(t *testing.T) {
	m := NewChiMiddleware(nil)

	if m == nil {
		t.Fatal("NewChiMiddleware returned nil")
	}
	if len(m.config.CORSAllowedOrigins) != 0 {
		t.Errorf("CORSAllowedOrigins = %v, want []", m.config.CORSAllowedOrigins)
	}
	if m.config.CORSMaxAge != 86400 {
		t.Errorf("CORSMaxAge = %d, want 86400", m.config.CORSMaxAge)
	}
	for _, header := range []string{"X-Emby-Authorization", "X-Emby-Token", "Range"} {
		found := false
		for _, h := range m.config.CORSAllowedHeaders {
			if h == header {
				found = true
			}
		}
		if !found {
			t.Errorf("CORSAllowedHeaders missing %s", header)
		}
	}
}

func TestRateLimitConfig_Enabled(t *testing.T) {
	tests := []struct {
		config RateLimitConfig
		want   bool
	}{
		{RateLimitAPI, true},
		{RateLimitLogin, true},
		{RateLimitConfig{}, false},
		{RateLimitConfig{Requests: 10}, false},
		{RateLimitConfig{Window: time.Minute}, false},
	}
	for _, tt := range tests {
		if got := tt.config.Enabled(); got != tt.want {
			t.Errorf("%+v.Enabled() = %v, want %v", tt.config, got, tt.want)
		}
	}
}

// =====================================================
// CORS Tests
// =====================================================

func TestChiMiddleware_CORS_WildcardOrigin(t *testing.T) {
	config := DefaultChiMiddlewareConfig()
	config.CORSAllowedOrigins = []string{"*"}
	m := NewChiMiddleware(config)

	handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://jellyfin.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Content-Range") {
		t.Errorf("Access-Control-Expose-Headers = %q, want Content-Range", got)
	}
}

func TestChiMiddleware_CORS_PreflightRequest(t *testing.T) {
	config := DefaultChiMiddlewareConfig()
	config.CORSAllowedOrigins = []string{"*"}
	m := NewChiMiddleware(config)

	handlerCalled := false
	handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/Users/AuthenticateByName", nil)
	req.Header.Set("Origin", "https://jellyfin.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Emby-Authorization, Content-Type")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK && w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 200 or 204", w.Code)
	}
	if handlerCalled {
		t.Error("Handler should not be called for OPTIONS preflight")
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("Access-Control-Allow-Methods should be set")
	}
	if got := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")); !strings.Contains(got, "x-emby-authorization") {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}
}

func TestChiMiddleware_CORS_DisallowedOrigin(t *testing.T) {
	config := DefaultChiMiddlewareConfig()
	config.CORSAllowedOrigins = []string{"https://allowed.example.com"}
	m := NewChiMiddleware(config)

	handler := m.CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

// =====================================================
// Rate Limit Tests
// =====================================================

func TestChiMiddleware_RateLimit_Enabled(t *testing.T) {
	m := NewChiMiddleware(nil)

	handler := m.RateLimitCustom("test", RateLimitConfig{Requests: 3, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	successCount := 0
	limitedCount := 0
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		switch w.Code {
		case http.StatusOK:
			successCount++
		case http.StatusTooManyRequests:
			limitedCount++
		}
	}

	if successCount != 3 {
		t.Errorf("successCount = %d, want 3", successCount)
	}
	if limitedCount != 2 {
		t.Errorf("limitedCount = %d, want 2", limitedCount)
	}
}

func TestChiMiddleware_RateLimit_DifferentIPs(t *testing.T) {
	m := NewChiMiddleware(nil)

	handler := m.RateLimitCustom("test", RateLimitConfig{Requests: 2, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for _, ip := range []string{"192.168.1.1:12345", "192.168.1.2:12345", "192.168.1.3:12345"} {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = ip
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("IP %s request %d: status = %d, want %d", ip, i, w.Code, http.StatusOK)
			}
		}
	}
}

func TestChiMiddleware_RateLimit_Disabled(t *testing.T) {
	config := DefaultChiMiddlewareConfig()
	config.RateLimitDisabled = true
	m := NewChiMiddleware(config)

	handler := m.RateLimitCustom("test", RateLimitConfig{Requests: 1, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
}

func TestLoginRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.LoginRateLimit = RateLimitLogin })

	// newTestEnv already logged in once from this address.
	limited := false
	for i := 1; i <= RateLimitLogin.Requests; i++ {
		rec := env.doWith(http.MethodPost, "/Users/AuthenticateByName",
			map[string]string{"Username": testUser, "Pw": testPassword}, nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Errorf("no 429 after %d logins", RateLimitLogin.Requests+1)
	}

	// Other endpoints use their own budget.
	if rec := env.doWith(http.MethodGet, "/System/Info/Public", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("public info status = %d, want 200", rec.Code)
	}
}

// =====================================================
// Header Tests
// =====================================================

func TestAPISecurityHeaders(t *testing.T) {
	handler := APISecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS set over plain HTTP: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind TLS proxy")
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doWith(http.MethodOptions, "/Items", nil, func(r *http.Request) {
		r.Header.Set("Origin", "https://app.jellyfin.org")
		r.Header.Set("Access-Control-Request-Method", "GET")
		r.Header.Set("Access-Control-Request-Headers", "X-Emby-Token")
	})
	if rec.Code != http.StatusOK && rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("preflight missing Access-Control-Allow-Origin")
	}
}
