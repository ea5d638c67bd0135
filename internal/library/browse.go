// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package library

import (
	"context"
	"fmt"
	"maps"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/stash"
)

// Stash sort keys the builder treats specially. Everything else is passed
// to the backend as-is.
const (
	SortName       = "title"
	SortGroupIndex = "group_scene_number"
)

// BrowseOptions narrows and orders a browse.
type BrowseOptions struct {
	Window

	// Sort is a Stash scene sort key. Empty means name order, or the saved
	// filter's own sort when browsing a saved filter.
	Sort       string
	Descending bool

	// Query is a free-text search applied to the children.
	Query string

	// SceneFilter holds extra criteria ANDed onto the node's own criterion.
	SceneFilter stash.ObjectFilter

	// SceneIDs restricts scene listings to the given backend ids.
	SceneIDs []string

	// EntityFilter narrows performer, studio, group and tag listings.
	EntityFilter stash.ObjectFilter

	// ScenesOnly flattens the node: sub-folders are skipped and every scene
	// below the node is listed.
	ScenesOnly bool
}

func (o *BrowseOptions) nameSorted() bool {
	return o.Sort == "" || o.Sort == SortName || o.Sort == "name"
}

func (o *BrowseOptions) direction() string {
	if o.Descending {
		return stash.SortDesc
	}
	return stash.SortAsc
}

func (o *BrowseOptions) filtered() bool {
	return o.Query != "" || len(o.SceneFilter) > 0 || len(o.SceneIDs) > 0
}

// Browse lists the children of the node id names. Any backend failure fails
// the whole browse; there are no partial listings.
func (b *Builder) Browse(ctx context.Context, id string, opts BrowseOptions) (*Page, error) {
	ref, err := identity.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var page *Page
	switch ref.Kind {
	case identity.KindScene:
		return nil, fmt.Errorf("%w: %s", ErrInvalidNavigation, ref)
	case identity.KindCatalog:
		page, err = b.browseCatalog(ctx, id, ref, opts)
	case identity.KindTagGroup:
		page, err = b.browseTagGroup(ctx, id, ref, opts)
	case identity.KindSavedFilter:
		page, err = b.browseSavedFilter(ctx, id, ref, opts)
	case identity.KindPerformer, identity.KindStudio, identity.KindGroup, identity.KindTag:
		page, err = b.browseEntity(ctx, id, ref, opts)
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrNotFound, ref.Kind)
	}
	if err != nil {
		return nil, err
	}
	page.StartIndex = max(opts.StartIndex, 0)
	return page, nil
}

// SceneCriterion returns the scene filter that selects every scene below
// the node id names. Latest, Resume and parent-scoped item queries use it.
func (b *Builder) SceneCriterion(ctx context.Context, id string) (stash.ObjectFilter, error) {
	ref, err := identity.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	switch ref.Kind {
	case identity.KindScene:
		return nil, fmt.Errorf("%w: %s", ErrInvalidNavigation, ref)
	case identity.KindCatalog:
		if _, ok := b.catalogFor(ref); !ok {
			return nil, fmt.Errorf("%w: catalog %s", ErrNotFound, ref.ID)
		}
		return stash.ObjectFilter{}, nil
	case identity.KindTagGroup:
		return tagCriterion(ref.ID, -1), nil
	case identity.KindSavedFilter:
		sf, err := b.backend.FindSavedFilter(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		filter, _ := stash.SceneFilterFromSaved(sf.ObjectFilter)
		return filter, nil
	case identity.KindPerformer, identity.KindStudio, identity.KindGroup, identity.KindTag:
		return entityCriterion(ref), nil
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrNotFound, ref.Kind)
	}
}

func tagCriterion(tagID string, depth int) stash.ObjectFilter {
	return stash.ObjectFilter{
		"tags": stash.Criterion{"value": []string{tagID}, "modifier": "INCLUDES", "depth": depth},
	}
}

func entityCriterion(ref identity.Ref) stash.ObjectFilter {
	switch ref.Kind {
	case identity.KindPerformer:
		return stash.ObjectFilter{
			"performers": stash.Criterion{"value": []string{ref.ID}, "modifier": "INCLUDES"},
		}
	case identity.KindStudio:
		return stash.ObjectFilter{
			"studios": stash.Criterion{"value": []string{ref.ID}, "modifier": "INCLUDES", "depth": 0},
		}
	case identity.KindGroup:
		return stash.ObjectFilter{
			"groups": stash.Criterion{"value": []string{ref.ID}, "modifier": "INCLUDES", "depth": 0},
		}
	default:
		return tagCriterion(ref.ID, 0)
	}
}

// MergeFilters combines two scene filters. Keys present in both are kept
// apart by nesting the second filter under AND, since a Stash filter object
// holds one criterion per field.
func MergeFilters(base, extra stash.ObjectFilter) stash.ObjectFilter {
	if len(extra) == 0 {
		return base
	}
	if len(base) == 0 {
		return extra
	}
	out := maps.Clone(base)
	nested := stash.ObjectFilter{}
	for k, v := range extra {
		if _, clash := out[k]; clash {
			nested[k] = v
			continue
		}
		out[k] = v
	}
	if len(nested) == 0 {
		return out
	}
	if inner, ok := out["AND"].(stash.ObjectFilter); ok {
		out["AND"] = MergeFilters(inner, nested)
	} else {
		out["AND"] = nested
	}
	return out
}

// scenes runs one scene query for a window and wraps the results as nodes.
func (b *Builder) scenes(ctx context.Context, parentID string, filter stash.ObjectFilter, w Window, opts BrowseOptions) ([]Node, int, error) {
	find := stash.FindFilter{
		Q:         opts.Query,
		Sort:      opts.Sort,
		Direction: opts.direction(),
	}
	if opts.nameSorted() {
		find.Sort = SortName
	}
	skip := w.apply(&find)

	page, err := b.backend.FindScenes(ctx, stash.SceneQuery{
		Filter:      find,
		SceneFilter: MergeFilters(filter, opts.SceneFilter),
		IDs:         opts.SceneIDs,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("browse scenes: %w", err)
	}

	scenes := trim(page.Scenes, skip, w.Limit)
	nodes := make([]Node, 0, len(scenes))
	for i := range scenes {
		nodes = append(nodes, sceneNode(&scenes[i], parentID))
	}
	if opts.nameSorted() {
		sortByName(nodes, opts.Descending)
	}
	return nodes, page.Count, nil
}

func (b *Builder) browseCatalog(ctx context.Context, id string, ref identity.Ref, opts BrowseOptions) (*Page, error) {
	c, ok := b.catalogFor(ref)
	if !ok {
		return nil, fmt.Errorf("%w: catalog %s", ErrNotFound, ref.ID)
	}
	if c.id == identity.CatalogAllScenes || opts.ScenesOnly {
		nodes, total, err := b.scenes(ctx, id, nil, opts.Window, opts)
		if err != nil {
			return nil, err
		}
		return &Page{Nodes: nodes, Total: total}, nil
	}
	return b.entityFolders(ctx, id, c.id, opts)
}

// entityFolders lists the entities of a catalog as folders.
func (b *Builder) entityFolders(ctx context.Context, parentID string, catalogID uint64, opts BrowseOptions) (*Page, error) {
	find := stash.FindFilter{
		Q:         opts.Query,
		Sort:      entitySort(opts.Sort),
		Direction: opts.direction(),
	}
	skip := opts.Window.apply(&find)
	q := stash.EntityQuery{Filter: find, EntityFilter: opts.EntityFilter}

	var (
		nodes []Node
		total int
	)
	switch catalogID {
	case identity.CatalogPerformers:
		page, err := b.backend.FindPerformers(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("browse performers: %w", err)
		}
		for _, p := range trim(page.Performers, skip, opts.Limit) {
			nodes = append(nodes, performerNode(&p, parentID))
		}
		total = page.Count
	case identity.CatalogStudios:
		page, err := b.backend.FindStudios(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("browse studios: %w", err)
		}
		for _, s := range trim(page.Studios, skip, opts.Limit) {
			nodes = append(nodes, studioNode(&s, parentID))
		}
		total = page.Count
	case identity.CatalogGroups:
		page, err := b.backend.FindGroups(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("browse groups: %w", err)
		}
		for _, g := range trim(page.Groups, skip, opts.Limit) {
			nodes = append(nodes, groupNode(&g, parentID))
		}
		total = page.Count
	case identity.CatalogTags:
		page, err := b.backend.FindTags(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("browse tags: %w", err)
		}
		for _, t := range trim(page.Tags, skip, opts.Limit) {
			nodes = append(nodes, tagNode(&t, parentID))
		}
		total = page.Count
	default:
		return nil, fmt.Errorf("%w: catalog %d", ErrNotFound, catalogID)
	}

	if find.Sort == "name" {
		sortByName(nodes, opts.Descending)
	}
	if nodes == nil {
		nodes = []Node{}
	}
	return &Page{Nodes: nodes, Total: total}, nil
}

// entitySort maps a scene sort key onto the performer/studio/group/tag
// equivalent.
func entitySort(sceneSort string) string {
	switch sceneSort {
	case "created_at", "updated_at", "random", "rating100":
		return sceneSort
	case "play_count", "last_played_at", "duration", "date":
		return "scenes_count"
	default:
		return "name"
	}
}

// browseTagGroup lists child-tag folders first, then the scenes carrying the
// tag itself. The window spans both segments.
func (b *Builder) browseTagGroup(ctx context.Context, id string, ref identity.Ref, opts BrowseOptions) (*Page, error) {
	tag, err := b.backend.FindTag(ctx, ref.ID)
	if err != nil {
		return nil, notFound(err)
	}

	if opts.ScenesOnly {
		nodes, total, err := b.scenes(ctx, id, tagCriterion(tag.ID, -1), opts.Window, opts)
		if err != nil {
			return nil, err
		}
		return &Page{Nodes: nodes, Total: total}, nil
	}

	var folders []Node
	if !opts.filtered() {
		for _, child := range tag.Children {
			folders = append(folders, tagNode(&stash.Tag{ID: child.ID, Name: child.Name}, id))
		}
		sortByName(folders, opts.nameSorted() && opts.Descending)
	}

	start := max(opts.StartIndex, 0)
	nodes := trim(folders, start, opts.Limit)

	sceneWindow := Window{StartIndex: max(start-len(folders), 0), Limit: opts.Limit}
	if opts.Limit > 0 {
		sceneWindow.Limit = opts.Limit - len(nodes)
	}

	// With the window full of folders one row is still fetched for the count.
	fetch := sceneWindow
	if opts.Limit > 0 && sceneWindow.Limit == 0 {
		fetch = Window{StartIndex: 0, Limit: 1}
	}
	scenes, sceneTotal, err := b.scenes(ctx, id, tagCriterion(tag.ID, 0), fetch, opts)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && sceneWindow.Limit == 0 {
		scenes = nil
	}

	nodes = append(nodes, scenes...)
	return &Page{Nodes: nodes, Total: len(folders) + sceneTotal}, nil
}

func (b *Builder) browseSavedFilter(ctx context.Context, id string, ref identity.Ref, opts BrowseOptions) (*Page, error) {
	sf, err := b.backend.FindSavedFilter(ctx, ref.ID)
	if err != nil {
		return nil, notFound(err)
	}

	filter, dropped := stash.SceneFilterFromSaved(sf.ObjectFilter)
	if len(dropped) > 0 {
		logging.CtxDebug(ctx).
			Str("filter", sf.Name).
			Strs("criteria", dropped).
			Msg("Saved filter criteria not translated")
	}

	if opts.Sort == "" && sf.FindFilter != nil && sf.FindFilter.Sort != "" {
		opts.Sort = sf.FindFilter.Sort
		opts.Descending = sf.FindFilter.Direction == stash.SortDesc
	}
	if opts.Query == "" && sf.FindFilter != nil {
		opts.Query = sf.FindFilter.Q
	}

	nodes, total, err := b.scenes(ctx, id, filter, opts.Window, opts)
	if err != nil {
		return nil, err
	}
	return &Page{Nodes: nodes, Total: total}, nil
}

// browseEntity lists the scenes of a performer, studio, group or tag. A
// group's scenes default to their order within the group.
func (b *Builder) browseEntity(ctx context.Context, id string, ref identity.Ref, opts BrowseOptions) (*Page, error) {
	if ref.Kind == identity.KindGroup && opts.Sort == "" {
		opts.Sort = SortGroupIndex
	}
	if ref.Kind == identity.KindTag && opts.ScenesOnly {
		nodes, total, err := b.scenes(ctx, id, tagCriterion(ref.ID, -1), opts.Window, opts)
		if err != nil {
			return nil, err
		}
		return &Page{Nodes: nodes, Total: total}, nil
	}

	nodes, total, err := b.scenes(ctx, id, entityCriterion(ref), opts.Window, opts)
	if err != nil {
		return nil, err
	}
	// An empty listing for an entity that no longer exists is a 404, not an
	// empty folder.
	if total == 0 {
		if _, err := b.Resolve(ctx, id); err != nil {
			return nil, err
		}
	}
	return &Page{Nodes: nodes, Total: total}, nil
}
