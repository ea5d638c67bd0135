// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/models"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stash/stashtest"
	"github.com/tomtom215/stashbridge/internal/stream"
)

const (
	testUser     = "viewer"
	testPassword = "correct horse"
	testStream   = "http://stash.internal:9999/scene/11/stream"
	testShot     = "http://stash.internal:9999/scene/11/screenshot"
	mediaSize    = 1000
)

var errBackendDown = fmt.Errorf("%w: connection refused", stash.ErrBackendUnavailable)

func tagRef(id, name string) stash.EntityRef { return stash.EntityRef{ID: id, Name: name} }

func media() []byte {
	data := make([]byte, mediaSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func screenshot(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for x := 0; x < 64; x++ {
		for y := 0; y < 36; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 7), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// testEnv is a gateway wired to a fake Stash. The Favorites tag is a tag
// group library.
type testEnv struct {
	t       *testing.T
	fake    *stashtest.Fake
	gate    *auth.Gate
	handler *Handler
	router  http.Handler
	token   string
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	f := stashtest.New()
	f.AddTag(stash.Tag{ID: "1", Name: "Favorites", SceneCount: 3})
	f.AddTag(stash.Tag{ID: "2", Name: "Empty"})
	f.AddTag(stash.Tag{ID: "3", Name: "Outdoor"})

	fav := []stash.EntityRef{tagRef("1", "Favorites")}
	f.AddScene(stash.Scene{
		ID:    "11",
		Title: "Charlie",
		Date:  "2021-05-01",
		Tags:  fav,
		Performers: []stash.PerformerRef{
			{ID: "21", Name: "Zoe"},
		},
		Files: []stash.VideoFile{{
			Basename: "charlie.mp4", Format: "mp4", Size: mediaSize, Duration: 100,
			VideoCodec: "h264", AudioCodec: "aac", Width: 1920, Height: 1080,
		}},
		Paths: stash.ScenePaths{Stream: testStream, Screenshot: testShot},
	})
	f.AddScene(stash.Scene{ID: "12", Title: "alpha", Tags: fav, Performers: []stash.PerformerRef{{ID: "21", Name: "Zoe"}}})
	f.AddScene(stash.Scene{ID: "13", Title: "Bravo", Tags: fav})
	f.AddScene(stash.Scene{ID: "14", Title: "Delta", Date: "2019-02-03"})
	f.AddPerformer(stash.Performer{ID: "21", Name: "Zoe", SceneCount: 2})
	f.AddPerformer(stash.Performer{ID: "22", Name: "Ann"})
	f.AddStudio(stash.Studio{ID: "31", Name: "Acme"})
	f.AddGroup(stash.Group{ID: "41", Name: "Trilogy"})
	f.AddAsset(testStream, stashtest.Asset{Data: media(), ContentType: "video/mp4"})
	shot := stashtest.Asset{Data: screenshot(t), ContentType: "image/png"}
	f.AddAsset(testShot, shot)
	f.AddAsset("/scene/11/screenshot", shot)

	gate, err := auth.NewGate(auth.GateConfig{
		Username:   testUser,
		Password:   testPassword,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	libCfg := library.DefaultConfig()
	libCfg.TagGroups = []string{"Favorites"}

	cfg := Config{ServerName: "Test Stash", Username: testUser}
	for _, m := range mutate {
		m(&cfg)
	}
	h, err := NewHandler(cfg, Dependencies{
		Gate:    gate,
		Backend: f,
		Library: library.NewBuilder(f, libCfg),
		Streams: stream.New(f),
		Images:  imageproxy.New(f, imageproxy.DefaultConfig()),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	env := &testEnv{t: t, fake: f, gate: gate, handler: h, router: NewRouter(h).SetupChi()}
	env.token = env.login(testPassword).AccessToken
	return env
}

// do serves a request. The session token is sent unless the request
// already carries authorization.
func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.doWith(method, target, body, func(r *http.Request) {
		r.Header.Set(auth.HeaderEmbyToken, e.token)
	})
}

func (e *testEnv) doWith(method, target string, body any, setup func(*http.Request)) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if setup != nil {
		setup(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(password string) models.AuthenticationResult {
	e.t.Helper()
	rec := e.doWith(http.MethodPost, "/Users/AuthenticateByName",
		map[string]string{"Username": testUser, "Pw": password},
		func(r *http.Request) {
			r.Header.Set(auth.HeaderEmbyAuthorization,
				`MediaBrowser Client="Jellyfin Web", Device="Firefox", DeviceId="dev-1", Version="10.10.3"`)
		})
	if rec.Code != http.StatusOK {
		e.t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result models.AuthenticationResult
	decodeBody(e.t, rec, &result)
	return result
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) items(target string) models.QueryResult[models.BaseItemDto] {
	e.t.Helper()
	rec := e.do(http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		e.t.Fatalf("GET %s = %d, body %s", target, rec.Code, rec.Body.String())
	}
	var result models.QueryResult[models.BaseItemDto]
	decodeBody(e.t, rec, &result)
	return result
}

func itemNames(items []models.BaseItemDto) []string {
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names
}

func sceneID(id string) string { return identity.MustEncode(identity.KindScene, id) }

func favoritesID() string { return identity.MustEncode(identity.KindTagGroup, "1") }

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
