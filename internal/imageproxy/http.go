// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package imageproxy

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Write sends img, answering conditional requests with 304.
func Write(w http.ResponseWriter, r *http.Request, img *Image) {
	h := w.Header()
	h.Set("ETag", img.ETag)
	h.Set("Cache-Control", "public, max-age=86400")
	if !img.ModTime.IsZero() {
		h.Set("Last-Modified", img.ModTime.UTC().Format(http.TimeFormat))
	}

	if etagMatches(r.Header.Get("If-None-Match"), img.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(img.Data).String()
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(img.Data)
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
