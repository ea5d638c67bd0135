// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"bytes"
	"image"
	_ "image/png"
	"net/http"
	"testing"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/models"
)

func TestPublicSystemInfo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doWith(http.MethodGet, "/System/Info/Public", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info models.PublicSystemInfo
	decodeBody(t, rec, &info)
	if info.ServerName != "Test Stash" || info.Version != JellyfinVersion || info.ProductName != models.ProductName {
		t.Errorf("info = %+v", info)
	}
	if info.ID != env.handler.ServerID() || !info.StartupWizardCompleted {
		t.Errorf("info = %+v", info)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}

	again := env.doWith(http.MethodGet, "/System/Info/Public", nil, func(r *http.Request) {
		r.Header.Set("If-None-Match", rec.Header().Get("ETag"))
	})
	if again.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d, want 304", again.Code)
	}
}

func TestSystemInfo_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.doWith(http.MethodGet, "/System/Info", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d, want 401", rec.Code)
	}
	rec := env.do(http.MethodGet, "/System/Info", nil)
	var info models.SystemInfo
	decodeBody(t, rec, &info)
	if info.ServerName != "Test Stash" {
		t.Errorf("ServerName = %q", info.ServerName)
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := env.doWith(method, "/system/ping", nil, nil)
		if rec.Code != http.StatusOK || rec.Body.String() != `"Jellyfin Server"` {
			t.Errorf("%s = %d %s", method, rec.Code, rec.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doWith(http.MethodGet, "/health", nil, nil)
	var status models.HealthStatus
	decodeBody(t, rec, &status)
	if rec.Code != http.StatusOK || status.Status != "ok" || status.StashVersion != "v0.28.1" {
		t.Errorf("healthy: %d %+v", rec.Code, status)
	}

	env.fake.SetError(errBackendDown)
	rec = env.doWith(http.MethodGet, "/health", nil, nil)
	status = models.HealthStatus{}
	decodeBody(t, rec, &status)
	if rec.Code != http.StatusServiceUnavailable || status.Status != "degraded" || status.StashReachable {
		t.Errorf("degraded: %d %+v", rec.Code, status)
	}
}

func TestNotImplemented(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/LiveTv/Channels", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET unknown = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !containsAll(body, `"Items":[]`, `"TotalRecordCount":0`, `"StartIndex":0`) {
		t.Errorf("body = %s", body)
	}

	for _, method := range []string{http.MethodPost, http.MethodDelete, http.MethodPut} {
		if rec := env.do(method, "/Sessions/Viewing", nil); rec.Code != http.StatusNoContent {
			t.Errorf("%s unknown = %d, want 204", method, rec.Code)
		}
	}

	// Known path, unknown verb.
	if rec := env.do(http.MethodPut, "/Items/Counts", nil); rec.Code != http.StatusNoContent {
		t.Errorf("PUT /Items/Counts = %d, want 204", rec.Code)
	}
}

func TestWebClientNotServed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doWith(http.MethodGet, "/web/index.html", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Error("web client must not redirect")
	}
	var body models.ErrorResponse
	decodeBody(t, rec, &body)
	if body.Status != http.StatusNotFound {
		t.Errorf("body = %+v", body)
	}
}

func TestMiscEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/Localization/Cultures", "/Localization/Countries",
		"/Localization/ParentalRatings", "/Localization/Options",
		"/Plugins", "/Movies/Recommendations",
		"/Items/" + sceneID("11") + "/LocalTrailers",
		"/Items/" + sceneID("11") + "/SpecialFeatures",
	} {
		rec := env.do(http.MethodGet, target, nil)
		if rec.Code != http.StatusOK || rec.Body.Len() == 0 || rec.Body.Bytes()[0] != '[' {
			t.Errorf("GET %s = %d %s, want a JSON array", target, rec.Code, rec.Body.String())
		}
	}

	result := env.items("/Shows/NextUp")
	if len(result.Items) != 0 {
		t.Errorf("NextUp = %d items", len(result.Items))
	}
	if rec := env.doWith(http.MethodGet, "/QuickConnect/Enabled", nil, nil); rec.Body.String() != "false" {
		t.Errorf("QuickConnect = %s", rec.Body.String())
	}
}

func TestImage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doWith(http.MethodGet, "/Items/"+sceneID("11")+"/Images/Primary?maxWidth=32", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 32 {
		t.Errorf("width = %d, want 32", cfg.Width)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("missing ETag")
	}
}

func TestImage_Missing(t *testing.T) {
	env := newTestEnv(t)

	cases := []string{
		"/Items/" + sceneID("12") + "/Images/Primary",
		"/Items/" + sceneID("11") + "/Images/Backdrop/3",
		"/Items/" + sceneID("11") + "/Images/Banner",
		"/Items/garbage/Images/Primary",
	}
	for _, target := range cases {
		if rec := env.doWith(http.MethodGet, target, nil, nil); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rec.Code)
		}
	}
}

func TestImage_RequireAuth(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RequireImageAuth = true })

	target := "/Items/" + sceneID("11") + "/Images/Primary"
	if rec := env.doWith(http.MethodGet, target, nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous = %d, want 401", rec.Code)
	}
	if rec := env.do(http.MethodGet, target, nil); rec.Code != http.StatusOK {
		t.Errorf("with token = %d, want 200", rec.Code)
	}
}

func TestImageInfos(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/Items/"+sceneID("11")+"/Images", nil)
	var infos []models.ImageInfo
	decodeBody(t, rec, &infos)
	if len(infos) == 0 || infos[0].ImageType != models.ImageTypePrimary {
		t.Errorf("infos = %+v", infos)
	}

	rec = env.do(http.MethodGet, "/Items/"+identity.MustEncode(identity.KindStudio, "31")+"/Images", nil)
	decodeBody(t, rec, &infos)
	if len(infos) != 0 {
		t.Errorf("studio without image: %+v", infos)
	}
}
