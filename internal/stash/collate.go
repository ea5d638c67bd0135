// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import "github.com/fvbommel/sortorder/casefolded"

// CompareNames orders two names the way Stash's NATURAL_CI collation does:
// case-folded, with digit runs compared by value ("Scene 2" < "scene 10").
func CompareNames(a, b string) int {
	switch {
	case casefolded.NaturalLess(a, b):
		return -1
	case casefolded.NaturalLess(b, a):
		return 1
	}
	return 0
}
