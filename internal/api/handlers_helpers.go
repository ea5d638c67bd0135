// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/validation"
)

// maxBodyBytes caps JSON request bodies. Playback reports and display
// preferences are a few KiB at most.
const maxBodyBytes = 1 << 20

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// writeJSON sends v as JSON. GET answers carry an ETag and are answered
// with 304 when the client already has them.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.CtxError(r.Context()).Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	if status == http.StatusOK && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		etag := generateETag(data)
		h.Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(data)))

	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.CtxDebug(r.Context()).Err(err).Msg("Failed to write JSON response")
	}
}

// respondJSON answers 200 with v.
func respondJSON(w http.ResponseWriter, r *http.Request, v any) {
	writeJSON(w, r, http.StatusOK, v)
}

// generateETag creates a weak ETag from data using FNV-1a hash
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `W/"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// decodeJSON reads a JSON body into v and validates it. An empty body
// leaves v untouched; many clients post reports without one.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrInvalidRequest, err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("%w: body too large", ErrInvalidRequest)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, verr)
	}
	return nil
}

// params reads query parameters case-insensitively. Jellyfin clients
// disagree on casing ("ParentId", "parentId"), and the server accepts
// them all.
type params struct {
	values url.Values
}

func newParams(r *http.Request) params {
	q := r.URL.Query()
	values := make(url.Values, len(q))
	for k, v := range q {
		key := strings.ToLower(k)
		values[key] = append(values[key], v...)
	}
	return params{values: values}
}

// str returns the first non-empty value of the first name present.
func (p params) str(names ...string) string {
	for _, name := range names {
		for _, v := range p.values[strings.ToLower(name)] {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// integer parses an integer parameter, returning def when it is absent.
func (p params) integer(name string, def int) (int, error) {
	v := p.str(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidRequest, name)
	}
	return n, nil
}

// boolean parses a boolean parameter. Absent or unparseable values are nil.
func (p params) boolean(name string) *bool {
	v := p.str(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// list splits comma and pipe separated values, dropping empties. Repeated
// parameters are merged.
func (p params) list(name string) []string {
	var out []string
	for _, raw := range p.values[strings.ToLower(name)] {
		for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '|' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// urlParam returns a chi path parameter.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
