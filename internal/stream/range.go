// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrRangeNotSatisfiable means the requested range lies outside the file.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// Range is an inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the range.
func (r Range) Length() int64 { return r.End - r.Start + 1 }

// ContentRange formats the Content-Range header value for a file of size
// bytes.
func (r Range) ContentRange(size int64) string {
	total := "*"
	if size > 0 {
		total = strconv.FormatInt(size, 10)
	}
	return fmt.Sprintf("bytes %d-%d/%s", r.Start, r.End, total)
}

// Header formats the range as a request header value. An End below zero
// leaves the range open.
func (r Range) Header() string {
	if r.End < 0 {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseRange parses a Range header against a file of size bytes. It accepts
// bytes=start-end, bytes=start- and bytes=-suffix; only the first range of a
// multi-range request is honored. ok is false when the header is absent or
// not a byte range, in which case the whole file is served. An end past the
// file is clamped.
func ParseRange(header string, size int64) (r Range, ok bool, err error) {
	header = strings.TrimSpace(header)
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return Range{}, false, nil
	}
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	startStr, endStr, found := strings.Cut(strings.TrimSpace(spec), "-")
	if !found {
		return Range{}, false, nil
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	if startStr == "" {
		suffix, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || suffix < 0 {
			return Range{}, false, nil
		}
		if suffix == 0 || size <= 0 {
			return Range{}, true, ErrRangeNotSatisfiable
		}
		suffix = min(suffix, size)
		return Range{Start: size - suffix, End: size - 1}, true, nil
	}

	start, perr := strconv.ParseInt(startStr, 10, 64)
	if perr != nil || start < 0 {
		return Range{}, false, nil
	}
	end := size - 1
	if endStr != "" {
		e, perr := strconv.ParseInt(endStr, 10, 64)
		if perr != nil || e < start {
			return Range{}, false, nil
		}
		if size <= 0 || e < end {
			end = e
		}
	} else if size <= 0 {
		end = -1
	}
	if size > 0 && start >= size {
		return Range{}, true, ErrRangeNotSatisfiable
	}
	return Range{Start: start, End: end}, true, nil
}
