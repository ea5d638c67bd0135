// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package library

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/tomtom215/stashbridge/internal/stash"
)

// Window is an offset/limit range as Jellyfin clients send it. A Limit of
// zero or less means "everything from StartIndex".
type Window struct {
	StartIndex int
	Limit      int
}

// backendPage translates an offset/limit window into Stash's page/per_page.
// Stash pages are aligned to per_page, so an unaligned window is served from
// the smallest page size >= limit whose single page covers the whole window;
// skip is the window's offset into that page.
func (w Window) backendPage() (page, perPage, skip int) {
	start := max(w.StartIndex, 0)
	if w.Limit <= 0 {
		return 1, -1, start
	}
	last := start + w.Limit - 1
	perPage = w.Limit
	for start/perPage != last/perPage {
		perPage++
	}
	page = start / perPage
	return page + 1, perPage, start - page*perPage
}

// apply fills the paging fields of f and returns how many leading rows of
// the result must be discarded.
func (w Window) apply(f *stash.FindFilter) int {
	page, perPage, skip := w.backendPage()
	f.Page = page
	f.PerPage = perPage
	return skip
}

// trim drops skip leading items and caps the rest at the window's limit.
func trim[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// sortByName orders nodes the way Stash orders titles, with the numeric
// backend id as tie-break so equal names still come back in a fixed order.
func sortByName(nodes []Node, descending bool) {
	slices.SortStableFunc(nodes, func(a, b Node) int {
		c := stash.CompareNames(a.Name, b.Name)
		if c == 0 {
			c = compareIDs(a.Ref.ID, b.Ref.ID)
		}
		if descending {
			return -c
		}
		return c
	})
}

func compareIDs(a, b string) int {
	ai, errA := strconv.ParseUint(a, 10, 64)
	bi, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}
