// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/models"
	"github.com/tomtom215/stashbridge/internal/stash"
)

// searchKinds are the kinds /Search/Hints looks through, in answer order.
var searchKinds = []identity.Kind{
	identity.KindScene,
	identity.KindPerformer,
	identity.KindStudio,
	identity.KindGroup,
}

// defaultHintLimit caps each kind's share of search hints.
const defaultHintLimit = 20

func (h *Handler) libraryItems(r *http.Request) ([]models.BaseItemDto, error) {
	libs, err := h.library.ListLibraries(r.Context())
	if err != nil {
		return nil, err
	}
	return h.nodeItems(libs), nil
}

// UserViews answers GET /UserViews and GET /Users/{userId}/Views.
func (h *Handler) UserViews(w http.ResponseWriter, r *http.Request) {
	items, err := h.libraryItems(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, models.NewQueryResult(items, len(items), 0))
}

// MediaFolders answers GET /Library/MediaFolders.
func (h *Handler) MediaFolders(w http.ResponseWriter, r *http.Request) {
	h.UserViews(w, r)
}

// VirtualFolders answers GET /Library/VirtualFolders.
func (h *Handler) VirtualFolders(w http.ResponseWriter, r *http.Request) {
	items, err := h.libraryItems(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	folders := make([]models.VirtualFolderInfo, 0, len(items))
	for _, item := range items {
		folders = append(folders, models.VirtualFolderInfo{
			Name:               item.Name,
			Locations:          []string{},
			CollectionType:     item.CollectionType,
			ItemID:             item.ID,
			PrimaryImageItemID: item.ID,
			RefreshStatus:      "Idle",
		})
	}
	respondJSON(w, r, folders)
}

// GroupingOptions answers GET /Users/{userId}/GroupingOptions.
func (h *Handler) GroupingOptions(w http.ResponseWriter, r *http.Request) {
	items, err := h.libraryItems(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts := make([]models.SpecialViewOption, 0, len(items))
	for _, item := range items {
		opts = append(opts, models.SpecialViewOption{Name: item.Name, ID: item.ID})
	}
	respondJSON(w, r, opts)
}

// RootFolder answers GET /Users/{userId}/Items/Root.
func (h *Handler) RootFolder(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, h.rootItem())
}

// Items answers GET /Items and GET /Users/{userId}/Items.
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseItemsQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.queryItems(r, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, result)
}

// queryItems dispatches a listing to the library builder.
func (h *Handler) queryItems(r *http.Request, q *itemsQuery) (models.QueryResult[models.BaseItemDto], error) {
	ctx := r.Context()
	empty := models.NewQueryResult[models.BaseItemDto](nil, 0, q.StartIndex)

	if len(q.IDs) > 0 {
		return h.itemsByID(r, q)
	}
	if q.unknownTypes {
		return empty, nil
	}

	if len(q.Kinds) > 1 {
		return h.mixedKinds(r, q)
	}

	wantScenes := len(q.Kinds) == 0 || slices.Contains(q.Kinds, identity.KindScene)
	if !wantScenes {
		page, err := h.library.Entities(ctx, q.Kinds[0], q.entityOptions())
		if err != nil {
			return empty, err
		}
		return h.pageResult(page), nil
	}

	parent := q.ParentID
	if parent != "" && identity.SameID(parent, h.rootID) {
		parent = ""
		if !q.Recursive {
			return h.librariesResult(r, q)
		}
	}

	if parent == "" {
		if q.Recursive || q.SearchTerm != "" || q.hasFilters || len(q.Kinds) > 0 {
			page, err := h.library.Scenes(ctx, "", q.sceneOptions())
			if err != nil {
				return empty, err
			}
			return h.pageResult(page), nil
		}
		return h.librariesResult(r, q)
	}

	if q.Recursive || len(q.Kinds) > 0 {
		page, err := h.library.Scenes(ctx, parent, q.sceneOptions())
		if err != nil {
			return empty, err
		}
		return h.pageResult(page), nil
	}

	opts := q.sceneOptions()
	opts.EntityFilter = q.entityOptions().EntityFilter
	page, err := h.library.Browse(ctx, parent, opts)
	if err != nil {
		return empty, err
	}
	return h.pageResult(page), nil
}

// mixedKinds answers a listing that names several kinds in
// IncludeItemTypes. The kinds are listed one after another in request order
// and the window runs across the concatenation; the total is the sum of
// every kind's count.
func (h *Handler) mixedKinds(r *http.Request, q *itemsQuery) (models.QueryResult[models.BaseItemDto], error) {
	ctx := r.Context()
	parent := q.ParentID
	if parent != "" && identity.SameID(parent, h.rootID) {
		parent = ""
	}

	var nodes []library.Node
	total := 0
	skip := q.StartIndex
	for _, kind := range q.Kinds {
		w := library.Window{StartIndex: skip, Limit: q.Limit - len(nodes)}
		if w.Limit <= 0 {
			// Window already full; only the count is needed.
			w = library.Window{Limit: 1}
		}

		var page *library.Page
		var err error
		if kind == identity.KindScene {
			opts := q.sceneOptions()
			opts.Window = w
			page, err = h.library.Scenes(ctx, parent, opts)
		} else {
			opts := q.entityOptions()
			opts.Window = w
			page, err = h.library.Entities(ctx, kind, opts)
		}
		if err != nil {
			return models.QueryResult[models.BaseItemDto]{}, err
		}

		total += page.Total
		if len(nodes) < q.Limit {
			nodes = append(nodes, page.Nodes...)
		}
		skip = max(skip-page.Total, 0)
	}
	return models.NewQueryResult(h.nodeItems(nodes), total, q.StartIndex), nil
}

func (h *Handler) librariesResult(r *http.Request, q *itemsQuery) (models.QueryResult[models.BaseItemDto], error) {
	items, err := h.libraryItems(r)
	if err != nil {
		return models.QueryResult[models.BaseItemDto]{}, err
	}
	total := len(items)
	start := min(q.StartIndex, total)
	items = items[start:]
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return models.NewQueryResult(items, total, start), nil
}

// itemsByID answers an Ids query. Scenes are fetched in one query; other
// ids are resolved one by one and skipped when they no longer exist.
func (h *Handler) itemsByID(r *http.Request, q *itemsQuery) (models.QueryResult[models.BaseItemDto], error) {
	ctx := r.Context()
	sceneIDs, others := decodeSceneIDs(q.IDs)

	var items []models.BaseItemDto
	if len(sceneIDs) > 0 {
		opts := q.sceneOptions()
		opts.SceneIDs = sceneIDs
		opts.Window = library.Window{}
		page, err := h.library.Scenes(ctx, "", opts)
		if err != nil {
			return models.QueryResult[models.BaseItemDto]{}, err
		}
		items = h.nodeItems(page.Nodes)
	}
	for _, id := range others {
		if identity.SameID(id, h.rootID) {
			items = append(items, h.rootItem())
			continue
		}
		n, err := h.library.Resolve(ctx, id)
		if errors.Is(err, library.ErrNotFound) {
			continue
		}
		if err != nil {
			return models.QueryResult[models.BaseItemDto]{}, err
		}
		items = append(items, h.nodeItem(n, false))
	}
	return models.NewQueryResult(items, len(items), 0), nil
}

func (h *Handler) pageResult(page *library.Page) models.QueryResult[models.BaseItemDto] {
	return models.NewQueryResult(h.nodeItems(page.Nodes), page.Total, page.StartIndex)
}

// Item answers GET /Items/{itemId} and GET /Users/{userId}/Items/{itemId}.
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "itemId")
	if identity.SameID(id, h.rootID) {
		respondJSON(w, r, h.rootItem())
		return
	}
	n, err := h.library.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, h.nodeItem(n, true))
}

// Latest answers GET /Items/Latest and GET /Users/{userId}/Items/Latest with
// the newest scenes, as a plain array.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	limit, err := p.integer("Limit", 16)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit = min(max(limit, 1), h.cfg.MaxLimit)

	parent := p.str("ParentId")
	if identity.SameID(parent, h.rootID) {
		parent = ""
	}
	if parent != "" {
		// Latest is only meaningful for scene libraries.
		if ref, err := identity.Decode(parent); err == nil && ref.Kind == identity.KindCatalog && ref.ID != strconv.FormatUint(identity.CatalogAllScenes, 10) {
			respondJSON(w, r, []models.BaseItemDto{})
			return
		}
	}

	opts := library.BrowseOptions{
		Window:     library.Window{Limit: limit},
		Sort:       "created_at",
		Descending: true,
	}
	if played := p.boolean("IsPlayed"); played != nil && !*played {
		opts.SceneFilter = stash.ObjectFilter{"play_count": sceneFilters["isunplayed"]()}
	}
	page, err := h.library.Scenes(r.Context(), parent, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, h.nodeItems(page.Nodes))
}

// Resume answers GET /UserItems/Resume and GET /Users/{userId}/Items/Resume
// with partly watched scenes, most recently played first.
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseItemsQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q.unknownTypes {
		respondJSON(w, r, models.NewQueryResult[models.BaseItemDto](nil, 0, q.StartIndex))
		return
	}
	parent := q.ParentID
	if identity.SameID(parent, h.rootID) {
		parent = ""
	}
	opts := library.BrowseOptions{
		Window:      q.window(),
		Sort:        "last_played_at",
		Descending:  true,
		Query:       q.SearchTerm,
		SceneFilter: stash.ObjectFilter{"resume_time": sceneFilters["isresumable"]()},
	}
	page, err := h.library.Scenes(r.Context(), parent, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, h.pageResult(page))
}

// Similar answers GET /Items/{itemId}/Similar: scenes sharing a performer
// with the item, or failing that a tag.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := newParams(r)
	limit, err := p.integer("Limit", 12)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit = min(max(limit, 1), h.cfg.MaxLimit)

	sceneID, err := identity.DecodeKind(urlParam(r, "itemId"), identity.KindScene)
	if err != nil {
		// Only scenes have similar items.
		if _, derr := identity.Decode(urlParam(r, "itemId")); derr != nil {
			writeError(w, r, derr)
			return
		}
		respondJSON(w, r, models.NewQueryResult[models.BaseItemDto](nil, 0, 0))
		return
	}
	scene, err := h.backend.FindScene(ctx, sceneID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var filter stash.ObjectFilter
	switch {
	case len(scene.Performers) > 0:
		ids := make([]string, 0, len(scene.Performers))
		for _, perf := range scene.Performers {
			ids = append(ids, perf.ID)
		}
		filter = stash.ObjectFilter{"performers": stash.Criterion{"value": ids, "modifier": "INCLUDES"}}
	case len(scene.Tags) > 0:
		ids := make([]string, 0, len(scene.Tags))
		for _, t := range scene.Tags {
			ids = append(ids, t.ID)
		}
		filter = stash.ObjectFilter{"tags": stash.Criterion{"value": ids, "modifier": "INCLUDES", "depth": 0}}
	default:
		respondJSON(w, r, models.NewQueryResult[models.BaseItemDto](nil, 0, 0))
		return
	}

	// One extra row makes up for the item itself.
	page, err := h.library.Scenes(ctx, "", library.BrowseOptions{
		Window:      library.Window{Limit: limit + 1},
		Sort:        "random",
		SceneFilter: filter,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	nodes := slices.DeleteFunc(page.Nodes, func(n library.Node) bool { return n.Ref.ID == sceneID })
	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	respondJSON(w, r, models.NewQueryResult(h.nodeItems(nodes), len(nodes), 0))
}

// Ancestors answers GET /Items/{itemId}/Ancestors.
func (h *Handler) Ancestors(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "itemId")
	root := h.rootItem()
	if identity.SameID(id, h.rootID) {
		respondJSON(w, r, []models.BaseItemDto{})
		return
	}
	n, err := h.library.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ancestors := []models.BaseItemDto{}
	if n.Kind != library.KindLibrary && n.Ref.Kind != identity.KindScene {
		if c, ok := entityCatalogs[n.Ref.Kind]; ok {
			if lib, err := h.library.Resolve(r.Context(), identity.EncodeCatalog(c)); err == nil {
				ancestors = append(ancestors, h.nodeItem(lib, false))
			}
		}
	}
	ancestors = append(ancestors, root)
	respondJSON(w, r, ancestors)
}

// Counts answers GET /Items/Counts.
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	one := library.BrowseOptions{Window: library.Window{Limit: 1}}

	var counts models.ItemCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := h.library.Scenes(gctx, "", one)
		if err != nil {
			return err
		}
		counts.MovieCount = page.Total
		return nil
	})
	g.Go(func() error {
		page, err := h.library.Entities(gctx, identity.KindGroup, one)
		if err != nil {
			return err
		}
		counts.BoxSetCount = page.Total
		return nil
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	counts.ItemCount = counts.MovieCount + counts.BoxSetCount
	respondJSON(w, r, counts)
}

// allTags lists every tag for the filter endpoints.
func (h *Handler) allTags(r *http.Request) ([]library.Node, error) {
	page, err := h.library.Entities(r.Context(), identity.KindTag, library.BrowseOptions{})
	if err != nil {
		return nil, err
	}
	return page.Nodes, nil
}

// Filters answers GET /Items/Filters.
func (h *Handler) Filters(w http.ResponseWriter, r *http.Request) {
	tags, err := h.allTags(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	respondJSON(w, r, models.QueryFiltersLegacy{
		Genres:          names,
		Tags:            names,
		OfficialRatings: []string{},
		Years:           []int{},
	})
}

// Filters2 answers GET /Items/Filters2.
func (h *Handler) Filters2(w http.ResponseWriter, r *http.Request) {
	tags, err := h.allTags(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	genres := make([]models.NameGuidPair, 0, len(tags))
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		genres = append(genres, models.NameGuidPair{Name: t.Name, ID: t.ID})
		names = append(names, t.Name)
	}
	respondJSON(w, r, models.QueryFilters{Genres: genres, Tags: names})
}

// entityListing answers /Persons, /Studios and /Genres: entities listed as
// themselves rather than as folders.
func (h *Handler) entityListing(kind identity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := h.parseItemsQuery(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		page, err := h.library.Entities(r.Context(), kind, q.entityOptions())
		if err != nil {
			writeError(w, r, err)
			return
		}
		itemType := mappingFor(kind).entityType
		items := make([]models.BaseItemDto, 0, len(page.Nodes))
		for i := range page.Nodes {
			items = append(items, h.nodeItemAs(&page.Nodes[i], itemType, false))
		}
		respondJSON(w, r, models.NewQueryResult(items, page.Total, page.StartIndex))
	}
}

// SearchHints answers GET /Search/Hints. Every searched kind is queried in
// parallel; one failing kind fails the search.
func (h *Handler) SearchHints(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	term := p.str("SearchTerm")
	if term == "" {
		respondJSON(w, r, models.SearchHintResult{SearchHints: []models.SearchHint{}})
		return
	}
	limit, err := p.integer("Limit", defaultHintLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit = min(max(limit, 1), h.cfg.MaxLimit)

	kinds := searchKinds
	if types := p.list("IncludeItemTypes"); len(types) > 0 {
		kinds = nil
		for _, t := range types {
			if k, ok := itemTypeKinds[strings.ToLower(t)]; ok && slices.Contains(searchKinds, k) && !slices.Contains(kinds, k) {
				kinds = append(kinds, k)
			}
		}
	}

	pages := make([]*library.Page, len(kinds))
	g, gctx := errgroup.WithContext(r.Context())
	for i, kind := range kinds {
		g.Go(func() error {
			opts := library.BrowseOptions{Window: library.Window{Limit: limit}, Query: term}
			var (
				page *library.Page
				err  error
			)
			if kind == identity.KindScene {
				page, err = h.library.Scenes(gctx, "", opts)
			} else {
				page, err = h.library.Entities(gctx, kind, opts)
			}
			pages[i] = page
			return err
		})
	}
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	result := models.SearchHintResult{SearchHints: []models.SearchHint{}}
	for i, page := range pages {
		itemType := mappingFor(kinds[i]).entityType
		for j := range page.Nodes {
			item := h.nodeItemAs(&page.Nodes[j], itemType, false)
			result.SearchHints = append(result.SearchHints, models.SearchHint{
				ItemID:          item.ID,
				ID:              item.ID,
				Name:            item.Name,
				Type:            item.Type,
				MediaType:       item.MediaType,
				IsFolder:        item.IsFolder,
				RunTimeTicks:    item.RunTimeTicks,
				ProductionYear:  item.ProductionYear,
				PrimaryImageTag: item.ImageTags[models.ImageTypePrimary],
				MatchedTerm:     term,
			})
		}
		result.TotalRecordCount += page.Total
	}
	logging.CtxDebug(r.Context()).Int("hints", len(result.SearchHints)).Msg("Search hints")
	respondJSON(w, r, result)
}
