// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package library builds the virtual folder tree Jellyfin clients browse.
//
// Nothing here is stored. Every call derives nodes from live Stash state and
// the configured tag groups, so backend changes show up on the next browse.
// Top-level libraries are, in order:
//
//   - the All Scenes catalog
//   - one library per configured tag group (a Stash tag and its children)
//   - one library per saved scene filter
//   - the Performers, Studios, Groups and Tags catalogs
//
// Children come back sorted by name with the numeric backend id as
// tie-break unless the caller asks for a different sort.
package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/stash"
)

var (
	// ErrNotFound is returned when an id does not decode or names an
	// entity the backend no longer has.
	ErrNotFound = errors.New("library node not found")

	// ErrInvalidNavigation is returned when Browse is called on an item.
	ErrInvalidNavigation = errors.New("node is not browsable")
)

// NodeKind classifies a node in the virtual tree.
type NodeKind int

const (
	KindLibrary NodeKind = iota + 1
	KindFolder
	KindItem
)

func (k NodeKind) String() string {
	switch k {
	case KindLibrary:
		return "library"
	case KindFolder:
		return "folder"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

// Node is one entry of the virtual tree. Exactly one of the entity fields
// is set for folder and item nodes; libraries may carry the tag or saved
// filter that defines them.
type Node struct {
	ID   string
	Name string
	Kind NodeKind
	Ref  identity.Ref

	// ParentID is the client-facing id of the node this one was listed
	// under, empty for libraries.
	ParentID string

	// ChildCount is the number of scenes below the node when the backend
	// reports it, -1 otherwise.
	ChildCount int

	Scene       *stash.Scene
	Performer   *stash.Performer
	Studio      *stash.Studio
	Group       *stash.Group
	Tag         *stash.Tag
	SavedFilter *stash.SavedFilter
}

// IsFolder reports whether the node can be browsed.
func (n *Node) IsFolder() bool {
	return n.Kind != KindItem
}

// Page is one window of a browse result. Total is the number of children
// the backend reports for the whole node, not len(Nodes).
type Page struct {
	Nodes      []Node
	Total      int
	StartIndex int
}

// Config selects which libraries are exposed.
type Config struct {
	// TagGroups are Stash tag names shown as top-level libraries.
	TagGroups []string

	SavedFilters bool
	AllScenes    bool
	Performers   bool
	Studios      bool
	Groups       bool
	Tags         bool
}

// DefaultConfig exposes every catalog and saved filters, with no tag groups.
func DefaultConfig() Config {
	return Config{
		SavedFilters: true,
		AllScenes:    true,
		Performers:   true,
		Studios:      true,
		Groups:       true,
		Tags:         true,
	}
}

type catalog struct {
	id      uint64
	name    string
	enabled func(Config) bool
}

var catalogs = []catalog{
	{identity.CatalogAllScenes, "All Scenes", func(c Config) bool { return c.AllScenes }},
	{identity.CatalogPerformers, "Performers", func(c Config) bool { return c.Performers }},
	{identity.CatalogStudios, "Studios", func(c Config) bool { return c.Studios }},
	{identity.CatalogGroups, "Groups", func(c Config) bool { return c.Groups }},
	{identity.CatalogTags, "Tags", func(c Config) bool { return c.Tags }},
}

func findCatalog(id uint64) (catalog, bool) {
	for _, c := range catalogs {
		if c.id == id {
			return c, true
		}
	}
	return catalog{}, false
}

// Builder derives virtual nodes from a Stash backend. It holds no mutable
// state and is safe for concurrent use.
type Builder struct {
	backend stash.Backend
	config  Config
}

// NewBuilder returns a Builder for backend.
func NewBuilder(backend stash.Backend, config Config) *Builder {
	return &Builder{backend: backend, config: config}
}

// ListLibraries returns the top-level libraries. A backend failure fails
// the whole listing; a configured tag name with no matching tag is logged
// and skipped.
func (b *Builder) ListLibraries(ctx context.Context) ([]Node, error) {
	var (
		groupTags   = make([]*stash.Tag, len(b.config.TagGroups))
		savedFilter []stash.SavedFilter
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range b.config.TagGroups {
		g.Go(func() error {
			tag, err := b.tagByName(gctx, name)
			if err != nil {
				return err
			}
			groupTags[i] = tag
			return nil
		})
	}
	if b.config.SavedFilters {
		g.Go(func() error {
			filters, err := b.backend.FindSavedFilters(gctx)
			if err != nil {
				return fmt.Errorf("list saved filters: %w", err)
			}
			savedFilter = filters
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var libs []Node
	if b.config.AllScenes {
		libs = append(libs, catalogNode(catalogs[0]))
	}

	seen := make(map[string]bool)
	for i, tag := range groupTags {
		if tag == nil {
			logging.Warn().Str("tag", b.config.TagGroups[i]).Msg("Tag group not found in Stash, skipping")
			continue
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		libs = append(libs, tagGroupNode(tag))
	}

	filterNodes := make([]Node, 0, len(savedFilter))
	for i := range savedFilter {
		filterNodes = append(filterNodes, savedFilterNode(&savedFilter[i]))
	}
	sortByName(filterNodes, false)
	libs = append(libs, filterNodes...)

	for _, c := range catalogs[1:] {
		if c.enabled(b.config) {
			libs = append(libs, catalogNode(c))
		}
	}
	return libs, nil
}

// tagByName resolves a configured tag name. It returns nil, nil when Stash
// has no such tag.
func (b *Builder) tagByName(ctx context.Context, name string) (*stash.Tag, error) {
	page, err := b.backend.FindTags(ctx, stash.EntityQuery{
		Filter: stash.FindFilter{PerPage: -1, Sort: "name", Direction: stash.SortAsc},
		EntityFilter: stash.ObjectFilter{
			"name": stash.Criterion{"value": name, "modifier": "EQUALS"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("resolve tag group %q: %w", name, err)
	}
	if len(page.Tags) == 0 {
		return nil, nil
	}
	// EQUALS is case-insensitive in Stash; prefer an exact match.
	for i := range page.Tags {
		if page.Tags[i].Name == name {
			return &page.Tags[i], nil
		}
	}
	return &page.Tags[0], nil
}

// Resolve returns the node an id names, fetching its entity so deleted
// entities are reported as ErrNotFound.
func (b *Builder) Resolve(ctx context.Context, id string) (*Node, error) {
	ref, err := identity.Decode(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var n Node
	switch ref.Kind {
	case identity.KindCatalog:
		c, ok := b.catalogFor(ref)
		if !ok {
			return nil, fmt.Errorf("%w: catalog %s", ErrNotFound, ref.ID)
		}
		n = catalogNode(c)
	case identity.KindTagGroup:
		tag, err := b.backend.FindTag(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = tagGroupNode(tag)
	case identity.KindSavedFilter:
		sf, err := b.backend.FindSavedFilter(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = savedFilterNode(sf)
	case identity.KindScene:
		s, err := b.backend.FindScene(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = sceneNode(s, "")
	case identity.KindPerformer:
		p, err := b.backend.FindPerformer(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = performerNode(p, "")
	case identity.KindStudio:
		s, err := b.backend.FindStudio(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = studioNode(s, "")
	case identity.KindGroup:
		g, err := b.backend.FindGroup(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = groupNode(g, "")
	case identity.KindTag:
		t, err := b.backend.FindTag(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err)
		}
		n = tagNode(t, "")
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrNotFound, ref.Kind)
	}
	return &n, nil
}

func (b *Builder) catalogFor(ref identity.Ref) (catalog, bool) {
	id, err := strconv.ParseUint(ref.ID, 10, 64)
	if err != nil {
		return catalog{}, false
	}
	c, ok := findCatalog(id)
	return c, ok && c.enabled(b.config)
}

// notFound folds the backend's not-found into ErrNotFound and passes every
// other error through.
func notFound(err error) error {
	if errors.Is(err, stash.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func catalogNode(c catalog) Node {
	ref := identity.Ref{Kind: identity.KindCatalog, ID: strconv.FormatUint(c.id, 10)}
	return Node{
		ID:         identity.EncodeCatalog(c.id),
		Name:       c.name,
		Kind:       KindLibrary,
		Ref:        ref,
		ChildCount: -1,
	}
}

func tagGroupNode(t *stash.Tag) Node {
	return Node{
		ID:         identity.MustEncode(identity.KindTagGroup, t.ID),
		Name:       t.Name,
		Kind:       KindLibrary,
		Ref:        identity.Ref{Kind: identity.KindTagGroup, ID: t.ID},
		ChildCount: t.SceneCount,
		Tag:        t,
	}
}

func savedFilterNode(sf *stash.SavedFilter) Node {
	return Node{
		ID:          identity.MustEncode(identity.KindSavedFilter, sf.ID),
		Name:        sf.Name,
		Kind:        KindLibrary,
		Ref:         identity.Ref{Kind: identity.KindSavedFilter, ID: sf.ID},
		ChildCount:  -1,
		SavedFilter: sf,
	}
}

func sceneNode(s *stash.Scene, parentID string) Node {
	return Node{
		ID:         identity.MustEncode(identity.KindScene, s.ID),
		Name:       s.DisplayName(),
		Kind:       KindItem,
		Ref:        identity.Ref{Kind: identity.KindScene, ID: s.ID},
		ParentID:   parentID,
		ChildCount: -1,
		Scene:      s,
	}
}

func performerNode(p *stash.Performer, parentID string) Node {
	return Node{
		ID:         identity.MustEncode(identity.KindPerformer, p.ID),
		Name:       p.Name,
		Kind:       KindFolder,
		Ref:        identity.Ref{Kind: identity.KindPerformer, ID: p.ID},
		ParentID:   parentID,
		ChildCount: p.SceneCount,
		Performer:  p,
	}
}

func studioNode(s *stash.Studio, parentID string) Node {
	return Node{
		ID:         identity.MustEncode(identity.KindStudio, s.ID),
		Name:       s.Name,
		Kind:       KindFolder,
		Ref:        identity.Ref{Kind: identity.KindStudio, ID: s.ID},
		ParentID:   parentID,
		ChildCount: s.SceneCount,
		Studio:     s,
	}
}

func groupNode(g *stash.Group, parentID string) Node {
	return Node{
		ID:         identity.MustEncode(identity.KindGroup, g.ID),
		Name:       g.Name,
		Kind:       KindFolder,
		Ref:        identity.Ref{Kind: identity.KindGroup, ID: g.ID},
		ParentID:   parentID,
		ChildCount: g.SceneCount,
		Group:      g,
	}
}

func tagNode(t *stash.Tag, parentID string) Node {
	return Node{
		ID:         identity.MustEncode(identity.KindTag, t.ID),
		Name:       t.Name,
		Kind:       KindFolder,
		Ref:        identity.Ref{Kind: identity.KindTag, ID: t.ID},
		ParentID:   parentID,
		ChildCount: t.SceneCount,
		Tag:        t,
	}
}
