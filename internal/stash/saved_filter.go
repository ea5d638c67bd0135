// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"slices"
	"strings"
)

// Saved filters store criteria in the Stash UI format, for example
//
//	{"tags": {"modifier": "INCLUDES", "value": {"items": [{"id": "3", "label": "x"}], "excluded": [], "depth": 0}}}
//
// while findScenes expects SceneFilterType:
//
//	{"tags": {"modifier": "INCLUDES", "value": ["3"], "excludes": [], "depth": 0}}
//
// The converters below map one shape to the other.

// booleanCriteria are SceneFilterType fields typed as a bare Boolean.
var booleanCriteria = map[string]bool{
	"organized":          true,
	"interactive":        true,
	"performer_favorite": true,
}

// scalarCriteria are SceneFilterType fields typed as a bare String.
var scalarCriteria = map[string]bool{
	"is_missing":   true,
	"has_markers":  true,
	"has_chapters": true,
}

// resolutionEnum maps UI resolution labels to ResolutionEnum values.
var resolutionEnum = map[string]string{
	"144p":  "VERY_LOW",
	"240p":  "LOW",
	"360p":  "R360P",
	"480p":  "STANDARD",
	"540p":  "WEB_HD",
	"720p":  "STANDARD_HD",
	"1080p": "FULL_HD",
	"1440p": "QUAD_HD",
	"4k":    "FOUR_K",
	"5k":    "FIVE_K",
	"6k":    "SIX_K",
	"7k":    "SEVEN_K",
	"8k":    "EIGHT_K",
	"huge":  "HUGE",
}

// unsupportedCriteria are compound or UI-only keys that have no direct
// SceneFilterType equivalent.
var unsupportedCriteria = map[string]bool{
	"AND": true,
	"OR":  true,
	"NOT": true,
	"c":   true,
}

// SceneFilterFromSaved converts a saved filter's object filter into a
// SceneFilterType value. Criteria it cannot express are dropped; the second
// return lists their keys.
func SceneFilterFromSaved(objectFilter map[string]any) (ObjectFilter, []string) {
	out := ObjectFilter{}
	var dropped []string
	for key, raw := range objectFilter {
		if unsupportedCriteria[key] {
			dropped = append(dropped, key)
			continue
		}
		crit, ok := raw.(map[string]any)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		converted, ok := convertCriterion(key, crit)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		out[key] = converted
	}
	slices.Sort(dropped)
	return out, dropped
}

func convertCriterion(key string, crit map[string]any) (any, bool) {
	modifier, _ := crit["modifier"].(string)
	value, hasValue := crit["value"]

	if booleanCriteria[key] {
		b, ok := asBool(value)
		return b, ok
	}
	if scalarCriteria[key] {
		s, ok := value.(string)
		return s, ok
	}

	if !hasValue || value == nil {
		if modifier == "IS_NULL" || modifier == "NOT_NULL" {
			return Criterion{"value": "", "modifier": modifier}, true
		}
		return nil, false
	}

	switch v := value.(type) {
	case map[string]any:
		if items, ok := v["items"]; ok {
			out := Criterion{
				"value":    labeledIDs(items),
				"modifier": modifier,
			}
			if excluded, ok := v["excluded"]; ok {
				out["excludes"] = labeledIDs(excluded)
			}
			if depth, ok := v["depth"]; ok {
				out["depth"] = depth
			}
			return out, true
		}
		if inner, ok := v["value"]; ok {
			out := Criterion{"value": inner, "modifier": modifier}
			if v2, ok := v["value2"]; ok && v2 != nil {
				out["value2"] = v2
			}
			return out, true
		}
		return nil, false
	case string:
		if key == "resolution" || key == "average_resolution" {
			enum, ok := resolutionEnum[strings.ToLower(v)]
			if !ok {
				return nil, false
			}
			return Criterion{"value": enum, "modifier": modifier}, true
		}
		return Criterion{"value": v, "modifier": modifier}, true
	case []any:
		return Criterion{"value": labeledIDs(v), "modifier": modifier}, true
	default:
		return Criterion{"value": v, "modifier": modifier}, true
	}
}

// labeledIDs extracts ids from [{"id": "1", "label": "x"}] or ["1"].
func labeledIDs(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		switch it := item.(type) {
		case map[string]any:
			if id, ok := it["id"].(string); ok {
				ids = append(ids, id)
			}
		case string:
			ids = append(ids, it)
		}
	}
	return ids
}

func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}
