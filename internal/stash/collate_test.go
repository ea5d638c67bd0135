// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"slices"
	"testing"
)

func TestCompareNames(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"Scene 2", "Scene 10", -1},
		{"scene 10", "Scene 2", 1},
		{"alpha", "Bravo", -1},
		{"ALPHA", "alpha", 0},
		{"Part 9b", "Part 10a", -1},
		{"", "a", -1},
	}
	for _, tt := range tests {
		if got := CompareNames(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareNames(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareNames_SortsNaturally(t *testing.T) {
	names := []string{"Scene 10", "scene 1", "Scene 100", "Scene 2"}
	slices.SortStableFunc(names, CompareNames)
	want := []string{"scene 1", "Scene 2", "Scene 10", "Scene 100"}
	if !slices.Equal(names, want) {
		t.Errorf("sorted = %v, want %v", names, want)
	}
}
