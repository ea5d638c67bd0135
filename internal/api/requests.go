// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/validation"
)

// itemsQuery is the parsed form of the query parameters shared by the item
// listing endpoints.
type itemsQuery struct {
	ParentID       string `validate:"max=64"`
	SearchTerm     string `validate:"max=256"`
	NameStartsWith string `validate:"max=256"`
	SortOrder      string `validate:"sort_orders"`
	StartIndex     int    `validate:"gte=0"`
	Limit          int    `validate:"gte=0"`
	Years          []int  `validate:"dive,gte=0,lte=9999"`

	SortBy    []string
	Recursive bool

	// IDs are the client ids of the Ids parameter.
	IDs []string

	// Kinds are the backend kinds IncludeItemTypes selects. unknownTypes
	// is set when the parameter named only types the gateway has none of.
	Kinds        []identity.Kind
	unknownTypes bool

	Favorite   *bool
	Played     *bool
	Resumable  bool
	entityIDs  map[string][]string
	hasFilters bool
}

// parseItemsQuery reads the listing parameters, applying the configured
// default and maximum page size.
func (h *Handler) parseItemsQuery(r *http.Request) (*itemsQuery, error) {
	p := newParams(r)
	q := &itemsQuery{
		ParentID:       p.str("ParentId"),
		SearchTerm:     p.str("SearchTerm"),
		NameStartsWith: p.str("NameStartsWith", "NameStartsWithOrGreater"),
		SortOrder:      p.str("SortOrder"),
		SortBy:         p.list("SortBy"),
		IDs:            p.list("Ids"),
		Favorite:       p.boolean("IsFavorite"),
		Played:         p.boolean("IsPlayed"),
		entityIDs:      make(map[string][]string),
	}
	if rec := p.boolean("Recursive"); rec != nil {
		q.Recursive = *rec
	}

	var err error
	if q.StartIndex, err = p.integer("StartIndex", 0); err != nil {
		return nil, err
	}
	if q.Limit, err = p.integer("Limit", h.cfg.DefaultLimit); err != nil {
		return nil, err
	}
	if q.Limit == 0 {
		q.Limit = h.cfg.DefaultLimit
	}
	for _, y := range p.list("Years") {
		year, err := strconv.Atoi(y)
		if err != nil {
			return nil, fmt.Errorf("%w: Years must be integers", ErrInvalidRequest)
		}
		q.Years = append(q.Years, year)
	}

	if verr := validation.ValidateStruct(q); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, verr)
	}
	q.Limit = min(q.Limit, h.cfg.MaxLimit)

	if types := p.list("IncludeItemTypes"); len(types) > 0 {
		for _, t := range types {
			if kind, ok := itemTypeKinds[strings.ToLower(t)]; ok && !slices.Contains(q.Kinds, kind) {
				q.Kinds = append(q.Kinds, kind)
			}
		}
		q.unknownTypes = len(q.Kinds) == 0
	}

	for _, f := range p.list("Filters") {
		switch strings.ToLower(f) {
		case "isfavorite", "isfavoriteorlikes":
			fav := true
			q.Favorite = &fav
		case "isplayed":
			played := true
			q.Played = &played
		case "isunplayed":
			played := false
			q.Played = &played
		case "isresumable":
			q.Resumable = true
		}
	}

	for _, ip := range idParams {
		for _, clientID := range p.list(ip.param) {
			backendID, err := identity.DecodeKind(clientID, ip.kind)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", ip.param, clientID, err)
			}
			q.entityIDs[ip.param] = append(q.entityIDs[ip.param], backendID)
		}
	}

	q.hasFilters = q.Favorite != nil || q.Played != nil || q.Resumable ||
		len(q.entityIDs) > 0 || len(q.Years) > 0 || q.NameStartsWith != ""
	return q, nil
}

// window returns the requested page.
func (q *itemsQuery) window() library.Window {
	return library.Window{StartIndex: q.StartIndex, Limit: q.Limit}
}

func (q *itemsQuery) descending() bool {
	orders := strings.Split(q.SortOrder, ",")
	return strings.EqualFold(strings.TrimSpace(orders[0]), "descending")
}

// sceneOptions builds the browse options for a scene listing.
func (q *itemsQuery) sceneOptions() library.BrowseOptions {
	return library.BrowseOptions{
		Window:      q.window(),
		Sort:        sortField(q.SortBy),
		Descending:  q.descending(),
		Query:       q.SearchTerm,
		SceneFilter: q.sceneFilter(),
	}
}

// entityOptions builds the browse options for a performer, studio, group or
// tag listing.
func (q *itemsQuery) entityOptions() library.BrowseOptions {
	opts := library.BrowseOptions{
		Window:     q.window(),
		Sort:       sortField(q.SortBy),
		Descending: q.descending(),
		Query:      q.SearchTerm,
	}
	filter := stash.ObjectFilter{}
	if q.Favorite != nil && *q.Favorite {
		filter["filter_favorites"] = true
	}
	if q.NameStartsWith != "" {
		filter["name"] = prefixCriterion(q.NameStartsWith)
	}
	if len(filter) > 0 {
		opts.EntityFilter = filter
	}
	return opts
}

// sceneFilter translates the filter parameters into scene criteria.
func (q *itemsQuery) sceneFilter() stash.ObjectFilter {
	var filter stash.ObjectFilter
	add := func(key string, crit any) {
		filter = library.MergeFilters(filter, stash.ObjectFilter{key: crit})
	}

	if q.Favorite != nil && *q.Favorite {
		add(sceneFilterKeys["isfavorite"], sceneFilters["isfavorite"]())
	}
	if q.Played != nil {
		name := "isunplayed"
		if *q.Played {
			name = "isplayed"
		}
		add(sceneFilterKeys[name], sceneFilters[name]())
	}
	if q.Resumable {
		add(sceneFilterKeys["isresumable"], sceneFilters["isresumable"]())
	}
	for _, ip := range idParams {
		ids := q.entityIDs[ip.param]
		if len(ids) == 0 {
			continue
		}
		crit := stash.Criterion{"value": ids, "modifier": "INCLUDES"}
		if ip.criterion != "performers" {
			crit["depth"] = 0
		}
		add(ip.criterion, crit)
	}
	if len(q.Years) > 0 {
		lo, hi := slices.Min(q.Years), slices.Max(q.Years)
		add("date", stash.Criterion{
			"value":    fmt.Sprintf("%04d-01-01", lo),
			"value2":   fmt.Sprintf("%04d-12-31", hi),
			"modifier": "BETWEEN",
		})
	}
	if q.NameStartsWith != "" {
		add("title", prefixCriterion(q.NameStartsWith))
	}
	return filter
}

// prefixCriterion matches names starting with prefix, case-insensitively.
func prefixCriterion(prefix string) stash.Criterion {
	return stash.Criterion{"value": "(?i)^" + regexp.QuoteMeta(prefix), "modifier": "MATCHES_REGEX"}
}

// decodeSceneIDs splits the Ids parameter into scene ids and the ids of
// everything else. Ids that do not decode are dropped.
func decodeSceneIDs(ids []string) (scenes []string, others []string) {
	for _, id := range ids {
		ref, err := identity.Decode(id)
		if err != nil {
			continue
		}
		if ref.Kind == identity.KindScene {
			scenes = append(scenes, ref.ID)
		} else {
			others = append(others, id)
		}
	}
	return scenes, others
}
