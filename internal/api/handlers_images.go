// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
)

// Image answers GET and HEAD /Items/{itemId}/Images/{imageType} and the
// indexed form. Backdrops have a single index; other indexes are 404s.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	ref, err := identity.Decode(urlParam(r, "itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if idx := urlParam(r, "imageIndex"); idx != "" && idx != "0" {
		writeError(w, r, fmt.Errorf("%w: image index %s", imageproxy.ErrNotFound, idx))
		return
	}

	imageType := strings.ToLower(urlParam(r, "imageType"))
	p := newParams(r)
	size := imageproxy.ParseSize(func(name string) string { return p.str(name) })
	img, err := h.images.GetImage(r.Context(), ref, imageType, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	imageproxy.Write(w, r, img)
}

// ImageInfos answers GET /Items/{itemId}/Images.
func (h *Handler) ImageInfos(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "itemId")
	n, err := h.library.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item := h.nodeItem(n, false)
	respondJSON(w, r, imageInfos(n.Ref, &item))
}
