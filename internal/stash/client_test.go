// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// graphQLServer answers every POST with handler's result and counts calls.
type graphQLServer struct {
	*httptest.Server
	calls    atomic.Int32
	lastReq  atomic.Value // graphQLRequest
	lastAuth atomic.Value // string
}

func newGraphQLServer(t *testing.T, handler func(n int32, req graphQLRequest, w http.ResponseWriter)) *graphQLServer {
	t.Helper()
	gs := &graphQLServer{}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := gs.calls.Add(1)
		gs.lastAuth.Store(r.Header.Get(APIKeyHeader))
		if r.URL.Path != "/graphql" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req graphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gs.lastReq.Store(req)
		handler(n, req, w)
	}))
	t.Cleanup(gs.Close)
	return gs
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		URL:        url,
		APIKey:     "secret-key",
		Timeout:    200 * time.Millisecond,
		RetryDelay: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func writeData(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"data":`+data+`}`)
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://stash", "://bad"} {
		if _, err := NewClient(Config{URL: u}); err == nil {
			t.Errorf("NewClient(%q) expected error", u)
		}
	}
}

func TestDocumentsParse(t *testing.T) {
	tests := []struct {
		doc  document
		name string
	}{
		{docFindScenes, "FindScenes"},
		{docFindScene, "FindScene"},
		{docFindPerformers, "FindPerformers"},
		{docFindTags, "FindTags"},
		{docFindSavedFilters, "FindSavedFilters"},
		{docAddPlay, "SceneAddPlay"},
		{docVersion, "Version"},
	}
	for _, tt := range tests {
		if tt.doc.name != tt.name {
			t.Errorf("operation name = %q, want %q", tt.doc.name, tt.name)
		}
	}
	if docAddPlay.retry {
		t.Error("SceneAddPlay must not be retried")
	}
}

func TestMustDocument_PanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid document")
		}
	}()
	mustDocument(`query Broken { findScenes(`, true)
}

func TestClient_FindScenes(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		writeData(w, `{"findScenes":{"count":42,"scenes":[
			{"id":"1","title":"First","files":[{"basename":"a.mp4","size":1000,"duration":60.5,"format":"mp4"}],
			 "tags":[{"id":"3","name":"Favorites"}],"created_at":"2024-01-02T03:04:05Z","updated_at":"2024-01-02T03:04:05Z"}]}}`)
	})
	c := newTestClient(t, gs.URL)

	page, err := c.FindScenes(context.Background(), SceneQuery{
		Filter:      FindFilter{Page: 2, PerPage: 1, Sort: "title", Direction: SortAsc},
		SceneFilter: ObjectFilter{"tags": Criterion{"value": []string{"3"}, "modifier": "INCLUDES"}},
		IDs:         []string{"1", "2"},
	})
	if err != nil {
		t.Fatalf("FindScenes: %v", err)
	}
	if page.Count != 42 || len(page.Scenes) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if page.Scenes[0].Files[0].Size != 1000 || page.Scenes[0].Tags[0].Name != "Favorites" {
		t.Errorf("scene decoded incorrectly: %+v", page.Scenes[0])
	}

	req := gs.lastReq.Load().(graphQLRequest)
	if req.OperationName != "FindScenes" {
		t.Errorf("operationName = %q", req.OperationName)
	}
	filter := req.Variables["filter"].(map[string]any)
	if filter["per_page"].(float64) != 1 || filter["page"].(float64) != 2 || filter["sort"] != "title" {
		t.Errorf("filter vars = %v", filter)
	}
	if _, ok := req.Variables["scene_filter"]; !ok {
		t.Error("scene_filter not sent")
	}
	if ids := req.Variables["scene_ids"].([]any); len(ids) != 2 {
		t.Errorf("scene_ids = %v", ids)
	}
	if got := gs.lastAuth.Load().(string); got != "secret-key" {
		t.Errorf("ApiKey header = %q", got)
	}
}

func TestClient_FindScene_NotFound(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		writeData(w, `{"findScene":null}`)
	})
	c := newTestClient(t, gs.URL)

	_, err := c.FindScene(context.Background(), "99")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if gs.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", gs.calls.Load())
	}
}

func TestClient_GraphQLErrorsNotRetried(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		_, _ = io.WriteString(w, `{"data":null,"errors":[{"message":"unknown field","path":["findScenes"]}]}`)
	})
	c := newTestClient(t, gs.URL)

	_, err := c.FindScenes(context.Background(), SceneQuery{})
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("error = %v, want *QueryError", err)
	}
	if !strings.Contains(qe.Error(), "unknown field") {
		t.Errorf("message = %q", qe.Error())
	}
	if errors.Is(err, ErrBackendUnavailable) {
		t.Error("GraphQL errors must not map to ErrBackendUnavailable")
	}
	if gs.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", gs.calls.Load())
	}
}

func TestClient_RetriesTransientOnce(t *testing.T) {
	gs := newGraphQLServer(t, func(n int32, _ graphQLRequest, w http.ResponseWriter) {
		if n == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeData(w, `{"version":{"version":"v0.28.1"}}`)
	})
	c := newTestClient(t, gs.URL)

	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "v0.28.1" {
		t.Errorf("version = %q", v)
	}
	if gs.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", gs.calls.Load())
	}
}

func TestClient_UnavailableAfterRetry(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	c := newTestClient(t, gs.URL)

	_, err := c.FindTags(context.Background(), EntityQuery{})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if gs.calls.Load() != maxAttempts {
		t.Errorf("calls = %d, want %d", gs.calls.Load(), maxAttempts)
	}
}

func TestClient_NonIdempotentMutationNotRetried(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	c := newTestClient(t, gs.URL)

	if err := c.AddScenePlay(context.Background(), "1"); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if gs.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", gs.calls.Load())
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		writeData(w, `{"findTag":null}`)
	})
	defer close(release)
	c := newTestClient(t, gs.URL)

	start := time.Now()
	_, err := c.FindTag(context.Background(), "1")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v, timeout not applied", elapsed)
	}
}

func TestClient_CanceledContextNotRetried(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		writeData(w, `{"findTag":null}`)
	})
	c := newTestClient(t, gs.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FindTag(ctx, "1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if gs.calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", gs.calls.Load())
	}
}

func TestClient_SetFavorite(t *testing.T) {
	gs := newGraphQLServer(t, func(_ int32, _ graphQLRequest, w http.ResponseWriter) {
		writeData(w, `{"performerUpdate":{"id":"4"}}`)
	})
	c := newTestClient(t, gs.URL)

	if err := c.SetFavorite(context.Background(), FavoritePerformer, "4", true); err != nil {
		t.Fatalf("SetFavorite: %v", err)
	}
	req := gs.lastReq.Load().(graphQLRequest)
	if req.OperationName != "PerformerFavorite" || req.Variables["favorite"] != true {
		t.Errorf("request = %+v", req)
	}
	if err := c.SetFavorite(context.Background(), FavoriteKind("scene"), "4", true); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

func TestClient_OpenAsset(t *testing.T) {
	var gotRange, gotKey, gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange.Store(r.Header.Get("Range"))
		gotKey.Store(r.Header.Get(APIKeyHeader))
		gotPath.Store(r.URL.RequestURI())
		if strings.HasPrefix(r.URL.Path, "/scene/404") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Range", "bytes 0-3/10")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = io.WriteString(w, "abcd")
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	// Stash reports its own external host; the client rebases onto the configured URL.
	resp, err := c.OpenAsset(context.Background(), "http://stash.internal:9999/scene/7/stream?resolution=ORIGINAL", "bytes=0-3")
	if err != nil {
		t.Fatalf("OpenAsset: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if gotRange.Load().(string) != "bytes=0-3" || gotKey.Load().(string) != "secret-key" {
		t.Errorf("range=%v key=%v", gotRange.Load(), gotKey.Load())
	}
	if gotPath.Load().(string) != "/scene/7/stream?resolution=ORIGINAL" {
		t.Errorf("path = %v", gotPath.Load())
	}

	if _, err := c.OpenAsset(context.Background(), srv.URL+"/scene/404/stream", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestClient_OpenAsset_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := newTestClient(t, url)

	_, err := c.OpenAsset(context.Background(), url+"/scene/1/stream", "")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
}

func TestClient_FetchAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/big":
			_, _ = io.WriteString(w, strings.Repeat("x", 2048))
		case "/img":
			w.Header().Set("Content-Type", "image/png")
			_, _ = io.WriteString(w, "png-bytes")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c, err := NewClient(Config{URL: srv.URL, Timeout: time.Second, MaxAssetBytes: 1024})
	if err != nil {
		t.Fatal(err)
	}

	data, ct, err := c.FetchAsset(context.Background(), srv.URL+"/img")
	if err != nil || string(data) != "png-bytes" || ct != "image/png" {
		t.Errorf("FetchAsset = %q, %q, %v", data, ct, err)
	}
	if _, _, err := c.FetchAsset(context.Background(), srv.URL+"/big"); !errors.Is(err, errAssetTooLarge) {
		t.Errorf("error = %v, want errAssetTooLarge", err)
	}
	if _, _, err := c.FetchAsset(context.Background(), srv.URL+"/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if _, _, err := c.FetchAsset(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound for empty url", err)
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.Canceled, "canceled"},
		{ErrNotFound, "not_found"},
		{&QueryError{Operation: "X"}, "graphql"},
		{ErrBackendUnavailable, "unavailable"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
