// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package stream relays scene video from Stash to Jellyfin clients with
// byte-range support.
//
// The backend request carries the client request's context, so a client
// disconnect cancels the fetch. Failures before the response headers are
// written surface as errors; failures after that abort the connection.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
	"github.com/tomtom215/stashbridge/internal/stash"
)

// Backend is the part of stash.Backend the proxy needs.
type Backend interface {
	FindScene(ctx context.Context, id string) (*stash.Scene, error)
	OpenAsset(ctx context.Context, assetURL, rangeHeader string) (*http.Response, error)
}

// Descriptor describes the media behind a playable item.
type Descriptor struct {
	SceneID    string
	StreamURL  string
	Container  string
	MimeType   string
	Size       int64
	Duration   float64
	Bitrate    int64
	VideoCodec string
	AudioCodec string
	Width      int
	Height     int
	FrameRate  float64
	FileName   string
}

type containerInfo struct {
	container string
	mime      string
}

// containers maps Stash file formats and file extensions onto the
// container name Jellyfin clients expect.
var containers = map[string]containerInfo{
	"mp4":      {"mp4", "video/mp4"},
	"m4v":      {"mp4", "video/mp4"},
	"mov":      {"mov", "video/quicktime"},
	"matroska": {"mkv", "video/x-matroska"},
	"mkv":      {"mkv", "video/x-matroska"},
	"webm":     {"webm", "video/webm"},
	"avi":      {"avi", "video/x-msvideo"},
	"wmv":      {"wmv", "video/x-ms-wmv"},
	"asf":      {"wmv", "video/x-ms-wmv"},
	"flv":      {"flv", "video/x-flv"},
	"mpegts":   {"ts", "video/mp2t"},
	"ts":       {"ts", "video/mp2t"},
	"m2ts":     {"ts", "video/mp2t"},
	"mpeg":     {"mpeg", "video/mpeg"},
	"mpg":      {"mpeg", "video/mpeg"},
}

// Describe builds the descriptor for a scene. Scenes without files are not
// playable.
func Describe(scene *stash.Scene) (Descriptor, error) {
	f := scene.PrimaryFile()
	if f == nil {
		return Descriptor{}, fmt.Errorf("%w: scene %s has no file", stash.ErrNotFound, scene.ID)
	}

	streamURL := scene.Paths.Stream
	if streamURL == "" {
		streamURL = "/scene/" + scene.ID + "/stream"
	}

	info, ok := containers[strings.ToLower(f.Format)]
	if !ok {
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(f.Basename), "."))
		info, ok = containers[ext]
		if !ok {
			info = containerInfo{container: ext, mime: "application/octet-stream"}
		}
	}

	return Descriptor{
		SceneID:    scene.ID,
		StreamURL:  streamURL,
		Container:  info.container,
		MimeType:   info.mime,
		Size:       f.Size,
		Duration:   f.Duration,
		Bitrate:    f.BitRate,
		VideoCodec: f.VideoCodec,
		AudioCodec: f.AudioCodec,
		Width:      f.Width,
		Height:     f.Height,
		FrameRate:  f.FrameRate,
		FileName:   f.Basename,
	}, nil
}

// Handle is an opened stream. The caller must Close it.
type Handle struct {
	Status     int
	Header     http.Header
	Descriptor Descriptor

	body  io.ReadCloser
	skip  int64
	limit int64 // -1 copies to EOF
}

// Close releases the backend response.
func (h *Handle) Close() error {
	if h.body == nil {
		return nil
	}
	return h.body.Close()
}

// WriteTo copies the selected window of the backend body to w.
func (h *Handle) WriteTo(w io.Writer) (int64, error) {
	if h.body == nil {
		return 0, nil
	}
	if h.skip > 0 {
		if _, err := io.CopyN(io.Discard, h.body, h.skip); err != nil {
			return 0, fmt.Errorf("skip to range start: %w", err)
		}
	}
	var r io.Reader = h.body
	if h.limit >= 0 {
		r = io.LimitReader(h.body, h.limit)
	}
	n, err := io.Copy(w, r)
	if err == nil && h.limit >= 0 && n < h.limit {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// Proxy opens and relays scene streams.
type Proxy struct {
	backend Backend
}

// New returns a Proxy.
func New(backend Backend) *Proxy {
	return &Proxy{backend: backend}
}

// Describe resolves ref to its media descriptor.
func (p *Proxy) Describe(ctx context.Context, ref identity.Ref) (Descriptor, error) {
	if ref.Kind != identity.KindScene {
		return Descriptor{}, fmt.Errorf("%w: %s is not playable", stash.ErrNotFound, ref)
	}
	scene, err := p.backend.FindScene(ctx, ref.ID)
	if err != nil {
		return Descriptor{}, err
	}
	return Describe(scene)
}

// OpenStream starts the backend fetch for ref. An unsatisfiable range yields
// a 416 handle rather than an error.
func (p *Proxy) OpenStream(ctx context.Context, ref identity.Ref, rangeHeader string) (*Handle, error) {
	desc, err := p.Describe(ctx, ref)
	if err != nil {
		return nil, err
	}

	rng, hasRange, err := ParseRange(rangeHeader, desc.Size)
	if errors.Is(err, ErrRangeNotSatisfiable) {
		return unsatisfiable(desc, desc.Size), nil
	}
	forward := ""
	if hasRange {
		forward = rng.Header()
	}

	resp, err := p.backend.OpenAsset(ctx, desc.StreamURL, forward)
	if err != nil {
		if !errors.Is(err, stash.ErrNotFound) && ctx.Err() == nil {
			metrics.StreamErrors.WithLabelValues("open").Inc()
		}
		return nil, err
	}
	return newHandle(desc, resp, rangeHeader, rng, hasRange), nil
}

func newHandle(desc Descriptor, resp *http.Response, rangeHeader string, rng Range, hasRange bool) *Handle {
	h := &Handle{Header: make(http.Header), Descriptor: desc, limit: -1}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = desc.MimeType
	}
	h.Header.Set("Content-Type", contentType)
	h.Header.Set("Accept-Ranges", "bytes")

	switch resp.StatusCode {
	case http.StatusPartialContent:
		h.Status = http.StatusPartialContent
		h.body = resp.Body
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			h.Header.Set("Content-Range", cr)
		} else {
			h.Header.Set("Content-Range", rng.ContentRange(desc.Size))
		}
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			h.Header.Set("Content-Length", cl)
		}
		return h

	case http.StatusRequestedRangeNotSatisfiable:
		_ = resp.Body.Close()
		return unsatisfiable(desc, sizeFromContentRange(resp.Header.Get("Content-Range"), desc.Size))
	}

	total := resp.ContentLength
	if total < 0 {
		total = desc.Size
	}
	if !hasRange {
		h.Status = http.StatusOK
		h.body = resp.Body
		if total >= 0 {
			h.Header.Set("Content-Length", strconv.FormatInt(total, 10))
		}
		return h
	}

	// The backend ignored the range: read past the prefix ourselves.
	if total > 0 && total != desc.Size {
		var err error
		rng, _, err = ParseRange(rangeHeader, total)
		if err != nil {
			_ = resp.Body.Close()
			return unsatisfiable(desc, total)
		}
	}
	h.Status = http.StatusPartialContent
	h.body = resp.Body
	h.skip = rng.Start
	if rng.End >= 0 {
		h.limit = rng.Length()
		h.Header.Set("Content-Length", strconv.FormatInt(h.limit, 10))
	}
	if total > 0 {
		h.Header.Set("Content-Range", rng.ContentRange(total))
	}
	return h
}

func unsatisfiable(desc Descriptor, size int64) *Handle {
	h := &Handle{
		Status:     http.StatusRequestedRangeNotSatisfiable,
		Header:     make(http.Header),
		Descriptor: desc,
		limit:      -1,
	}
	total := "*"
	if size > 0 {
		total = strconv.FormatInt(size, 10)
	}
	h.Header.Set("Content-Range", "bytes */"+total)
	h.Header.Set("Content-Length", "0")
	return h
}

func sizeFromContentRange(header string, fallback int64) int64 {
	_, total, ok := strings.Cut(header, "/")
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// Serve relays ref to w. A returned error means nothing was written. A
// backend failure after the headers went out aborts the client connection;
// a client disconnect ends the relay quietly.
func (p *Proxy) Serve(w http.ResponseWriter, r *http.Request, ref identity.Ref) error {
	ctx := r.Context()
	h, err := p.OpenStream(ctx, ref, r.Header.Get("Range"))
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	for k, v := range h.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(h.Status)
	if r.Method == http.MethodHead {
		return nil
	}

	metrics.StreamActive.Inc()
	defer metrics.StreamActive.Dec()

	n, err := h.WriteTo(countingWriter{w})
	if err != nil {
		if ctx.Err() != nil {
			logging.CtxDebug(ctx).Str("scene_id", ref.ID).Int64("bytes", n).Msg("Client disconnected during stream")
			return nil
		}
		metrics.StreamErrors.WithLabelValues("relay").Inc()
		logging.CtxWarn(ctx).Err(err).Str("scene_id", ref.ID).Int64("bytes", n).Msg("Stream relay failed")
		panic(http.ErrAbortHandler)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	metrics.StreamBytes.Add(float64(n))
	return n, err
}
