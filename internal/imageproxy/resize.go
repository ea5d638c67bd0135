// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package imageproxy

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

// resize decodes data and scales it down to fit size. Images already within
// the bounds are re-encoded at their original dimensions. PNG and GIF
// sources come back as PNG, everything else as JPEG.
func resize(data []byte, size Size, defaultQuality int) ([]byte, string, error) {
	format, err := imaging.FormatFromExtension(mimetype.Detect(data).Extension())
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format: %w", err)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	dst := scale(src, size)

	outFormat, contentType := imaging.JPEG, "image/jpeg"
	if format == imaging.PNG || format == imaging.GIF {
		outFormat, contentType = imaging.PNG, "image/png"
	}
	quality := defaultQuality
	if size.Quality > 0 {
		quality = size.Quality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, outFormat, imaging.JPEGQuality(quality)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), contentType, nil
}

// scale applies the Jellyfin sizing rules. Fill crops to cover the box.
// Width/Height and the Max bounds fit inside the box keeping the aspect
// ratio. Images are never enlarged.
func scale(src image.Image, size Size) image.Image {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	if size.FillWidth > 0 && size.FillHeight > 0 {
		w, h := min(size.FillWidth, srcW), min(size.FillHeight, srcH)
		return imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos)
	}

	w := firstPositive(size.Width, size.MaxWidth, size.FillWidth)
	h := firstPositive(size.Height, size.MaxHeight, size.FillHeight)
	switch {
	case w == 0 && h == 0:
		return src
	case w == 0:
		w = srcW
	case h == 0:
		h = srcH
	}
	if srcW <= w && srcH <= h {
		return src
	}
	return imaging.Fit(src, w, h, imaging.Lanczos)
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
