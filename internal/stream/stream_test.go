// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stash/stashtest"
)

const mediaSize = 1000

func media() []byte {
	data := make([]byte, mediaSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func sceneRef(id string) identity.Ref { return identity.Ref{Kind: identity.KindScene, ID: id} }

func newFixture(noRanges bool) (*Proxy, *stashtest.Fake) {
	fake := stashtest.New()
	fake.AddScene(stash.Scene{
		ID:    "1",
		Title: "Clip",
		Files: []stash.VideoFile{{Basename: "clip.mp4", Format: "mp4", Size: mediaSize, Duration: 10}},
		Paths: stash.ScenePaths{Stream: "http://stash.internal:9999/scene/1/stream"},
	})
	fake.AddScene(stash.Scene{ID: "2", Title: "No file"})
	fake.AddAsset("http://stash.internal:9999/scene/1/stream", stashtest.Asset{
		Data:        media(),
		ContentType: "video/mp4",
		NoRanges:    noRanges,
	})
	return New(fake), fake
}

func serve(t *testing.T, p *Proxy, method, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/Videos/x/stream", http.NoBody)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	if err := p.Serve(rec, req, sceneRef("1")); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	return rec
}

func TestServe_Range100To199(t *testing.T) {
	for _, noRanges := range []bool{false, true} {
		name := "backend honors range"
		if noRanges {
			name = "backend ignores range"
		}
		t.Run(name, func(t *testing.T) {
			p, _ := newFixture(noRanges)
			rec := serve(t, p, http.MethodGet, "bytes=100-199")

			if rec.Code != http.StatusPartialContent {
				t.Fatalf("status = %d, want 206", rec.Code)
			}
			if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
				t.Errorf("Content-Range = %q", got)
			}
			if got := rec.Header().Get("Content-Length"); got != "100" {
				t.Errorf("Content-Length = %q", got)
			}
			if !bytes.Equal(rec.Body.Bytes(), media()[100:200]) {
				t.Errorf("body is %d bytes and does not match the window", rec.Body.Len())
			}
		})
	}
}

func TestServe_FullFile(t *testing.T) {
	p, _ := newFixture(false)
	rec := serve(t, p, http.MethodGet, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" || rec.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("headers = %v", rec.Header())
	}
	if !bytes.Equal(rec.Body.Bytes(), media()) {
		t.Error("body mismatch")
	}
}

func TestServe_SuffixAndOpenRanges(t *testing.T) {
	for _, noRanges := range []bool{false, true} {
		p, _ := newFixture(noRanges)

		rec := serve(t, p, http.MethodGet, "bytes=-10")
		if rec.Header().Get("Content-Range") != "bytes 990-999/1000" || !bytes.Equal(rec.Body.Bytes(), media()[990:]) {
			t.Errorf("noRanges=%v suffix: %q, %d bytes", noRanges, rec.Header().Get("Content-Range"), rec.Body.Len())
		}

		rec = serve(t, p, http.MethodGet, "bytes=995-")
		if rec.Header().Get("Content-Range") != "bytes 995-999/1000" || !bytes.Equal(rec.Body.Bytes(), media()[995:]) {
			t.Errorf("noRanges=%v open: %q, %d bytes", noRanges, rec.Header().Get("Content-Range"), rec.Body.Len())
		}
	}
}

func TestServe_Unsatisfiable(t *testing.T) {
	p, fake := newFixture(false)
	before := fake.Calls()
	rec := serve(t, p, http.MethodGet, "bytes=5000-")

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
		t.Errorf("Content-Range = %q", got)
	}
	// Only the scene lookup; the asset is never opened.
	if fake.Calls()-before != 1 {
		t.Errorf("backend calls = %d, want 1", fake.Calls()-before)
	}
}

func TestServe_Head(t *testing.T) {
	p, _ := newFixture(false)
	rec := serve(t, p, http.MethodHead, "bytes=0-9")
	if rec.Code != http.StatusPartialContent || rec.Body.Len() != 0 {
		t.Errorf("HEAD: status %d, %d body bytes", rec.Code, rec.Body.Len())
	}
	if rec.Header().Get("Content-Length") != "10" {
		t.Errorf("Content-Length = %q", rec.Header().Get("Content-Length"))
	}
}

func TestServe_ErrorsBeforeAnyByte(t *testing.T) {
	tests := []struct {
		name    string
		ref     identity.Ref
		setup   func(*stashtest.Fake)
		wantErr error
	}{
		{"unknown scene", sceneRef("404"), nil, stash.ErrNotFound},
		{"scene without file", sceneRef("2"), nil, stash.ErrNotFound},
		{"not a scene", identity.Ref{Kind: identity.KindPerformer, ID: "1"}, nil, stash.ErrNotFound},
		{"backend down", sceneRef("1"), func(f *stashtest.Fake) { f.SetError(stash.ErrBackendUnavailable) }, stash.ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, fake := newFixture(false)
			if tt.setup != nil {
				tt.setup(fake)
			}
			rec := httptest.NewRecorder()
			err := p.Serve(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), tt.ref)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if rec.Body.Len() != 0 || len(rec.Header()) != 0 {
				t.Errorf("response written before error: %v, %d bytes", rec.Header(), rec.Body.Len())
			}
		})
	}
}

// scriptedBackend serves one scene whose stream body is supplied by the test.
type scriptedBackend struct {
	body   func(ctx context.Context) io.ReadCloser
	gotCtx chan context.Context
}

func (b *scriptedBackend) FindScene(_ context.Context, id string) (*stash.Scene, error) {
	return &stash.Scene{ID: id, Files: []stash.VideoFile{{Basename: "a.mkv", Format: "matroska", Size: mediaSize}}}, nil
}

func (b *scriptedBackend) OpenAsset(ctx context.Context, _, _ string) (*http.Response, error) {
	if b.gotCtx != nil {
		b.gotCtx <- ctx
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{},
		ContentLength: mediaSize,
		Body:          b.body(ctx),
	}, nil
}

type failingReader struct{ remaining int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, errors.New("connection reset by peer")
	}
	n := min(len(p), r.remaining)
	r.remaining -= n
	return n, nil
}

func TestServe_MidStreamFailureAborts(t *testing.T) {
	p := New(&scriptedBackend{body: func(context.Context) io.ReadCloser {
		return io.NopCloser(&failingReader{remaining: 300})
	}})

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Fatalf("recovered %v, want http.ErrAbortHandler", r)
		}
	}()
	rec := httptest.NewRecorder()
	_ = p.Serve(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody), sceneRef("9"))
	t.Fatal("Serve returned after a mid-stream failure")
}

type blockingBody struct{ ctx context.Context }

func (b blockingBody) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b blockingBody) Close() error { return nil }

func TestServe_ClientDisconnectCancelsBackend(t *testing.T) {
	backend := &scriptedBackend{
		body:   func(ctx context.Context) io.ReadCloser { return blockingBody{ctx} },
		gotCtx: make(chan context.Context, 1),
	}
	p := New(backend)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	done := make(chan error, 1)
	go func() { done <- p.Serve(httptest.NewRecorder(), req, sceneRef("9")) }()

	backendCtx := <-backend.gotCtx
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve after disconnect = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the client disconnected")
	}
	if backendCtx.Err() == nil {
		t.Error("backend request context was not cancelled")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		file          stash.VideoFile
		wantContainer string
		wantMime      string
	}{
		{stash.VideoFile{Basename: "a.mp4", Format: "mp4"}, "mp4", "video/mp4"},
		{stash.VideoFile{Basename: "a.mkv", Format: "matroska"}, "mkv", "video/x-matroska"},
		{stash.VideoFile{Basename: "a.webm"}, "webm", "video/webm"},
		{stash.VideoFile{Basename: "a.xyz"}, "xyz", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.file.Basename, func(t *testing.T) {
			d, err := Describe(&stash.Scene{ID: "3", Files: []stash.VideoFile{tt.file}})
			if err != nil {
				t.Fatal(err)
			}
			if d.Container != tt.wantContainer || d.MimeType != tt.wantMime {
				t.Errorf("got %s %s", d.Container, d.MimeType)
			}
			if !strings.HasSuffix(d.StreamURL, "/scene/3/stream") {
				t.Errorf("StreamURL = %q", d.StreamURL)
			}
		})
	}
}
