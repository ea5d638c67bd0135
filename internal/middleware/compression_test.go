// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const jsonBody = `{"Items":[],"TotalRecordCount":0,"StartIndex":0}`

func jsonHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "48")
		_, _ = io.WriteString(w, jsonBody)
	})
}

func TestCompression_Gzip(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rec := httptest.NewRecorder()

	Compression(jsonHandler()).ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "" {
		t.Errorf("Content-Length = %q, want removed", got)
	}

	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	body, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	if string(body) != jsonBody {
		t.Errorf("body = %q, want %q", body, jsonBody)
	}
}

func TestCompression_Passthrough(t *testing.T) {
	tests := []struct {
		name   string
		method string
		accept string
	}{
		{name: "no accept-encoding", method: http.MethodGet},
		{name: "other encoding", method: http.MethodGet, accept: "br"},
		{name: "head request", method: http.MethodHead, accept: "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/items", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			rec := httptest.NewRecorder()

			Compression(jsonHandler()).ServeHTTP(rec, req)

			if got := rec.Header().Get("Content-Encoding"); got != "" {
				t.Errorf("Content-Encoding = %q, want none", got)
			}
			if tt.method == http.MethodGet && !strings.Contains(rec.Body.String(), "TotalRecordCount") {
				t.Errorf("body = %q, want plain JSON", rec.Body.String())
			}
		})
	}
}

func TestLowercasePath(t *testing.T) {
	var seen string
	h := LowercasePath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))

	req := httptest.NewRequest(http.MethodGet, "/Users/Me?Fields=PrimaryImageAspectRatio", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "/users/me" {
		t.Errorf("path = %q, want /users/me", seen)
	}
	if got := req.URL.Query().Get("Fields"); got != "PrimaryImageAspectRatio" {
		t.Errorf("query = %q, want untouched", got)
	}
}
