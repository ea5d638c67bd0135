// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package library

import (
	"context"
	"fmt"

	"github.com/tomtom215/stashbridge/internal/identity"
)

// entityCatalogs maps entity kinds to the catalog that lists them.
var entityCatalogs = map[identity.Kind]uint64{
	identity.KindPerformer: identity.CatalogPerformers,
	identity.KindStudio:    identity.CatalogStudios,
	identity.KindGroup:     identity.CatalogGroups,
	identity.KindTag:       identity.CatalogTags,
}

// Scenes lists scenes across the whole library, optionally narrowed to the
// scenes below parentID. Unlike Browse it never returns folders.
func (b *Builder) Scenes(ctx context.Context, parentID string, opts BrowseOptions) (*Page, error) {
	var filter map[string]any
	if parentID != "" {
		crit, err := b.SceneCriterion(ctx, parentID)
		if err != nil {
			return nil, err
		}
		filter = crit
	}

	nodes, total, err := b.scenes(ctx, parentID, filter, opts.Window, opts)
	if err != nil {
		return nil, err
	}
	return &Page{Nodes: nodes, Total: total, StartIndex: max(opts.StartIndex, 0)}, nil
}

// Entities lists performers, studios, groups or tags as folders regardless
// of whether their catalog library is enabled.
func (b *Builder) Entities(ctx context.Context, kind identity.Kind, opts BrowseOptions) (*Page, error) {
	catalogID, ok := entityCatalogs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %s has no listing", ErrInvalidNavigation, kind)
	}
	page, err := b.entityFolders(ctx, identity.EncodeCatalog(catalogID), catalogID, opts)
	if err != nil {
		return nil, err
	}
	page.StartIndex = max(opts.StartIndex, 0)
	return page, nil
}
