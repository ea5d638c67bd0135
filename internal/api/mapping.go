// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"strings"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/models"
	"github.com/tomtom215/stashbridge/internal/stash"
)

// kindMapping describes how one backend kind is presented to clients.
type kindMapping struct {
	// entityType is the Type used when the entity is listed as itself, as
	// in /Persons or the People of a movie.
	entityType string
	// folderType is the Type used when the entity is browsed as a folder.
	// Empty for kinds that are never folders.
	folderType string
	// collectionType is set for kinds shown as libraries.
	collectionType string
	// favorite is the Stash favorite flag the kind carries, if any.
	favorite stash.FavoriteKind
	// imageAspect is the PrimaryImageAspectRatio reported for the kind.
	imageAspect float64
}

var kindMappings = map[identity.Kind]kindMapping{
	identity.KindScene: {
		entityType:  models.ItemTypeMovie,
		imageAspect: models.SceneImageAspect,
	},
	identity.KindPerformer: {
		entityType:  models.ItemTypePerson,
		folderType:  models.ItemTypeFolder,
		favorite:    stash.FavoritePerformer,
		imageAspect: models.DefaultPrimaryImageAspect,
	},
	identity.KindStudio: {
		entityType:  models.ItemTypeStudio,
		folderType:  models.ItemTypeFolder,
		favorite:    stash.FavoriteStudio,
		imageAspect: models.SceneImageAspect,
	},
	identity.KindGroup: {
		entityType:  models.ItemTypeBoxSet,
		folderType:  models.ItemTypeBoxSet,
		imageAspect: models.DefaultPrimaryImageAspect,
	},
	identity.KindTag: {
		entityType:  models.ItemTypeGenre,
		folderType:  models.ItemTypeFolder,
		favorite:    stash.FavoriteTag,
		imageAspect: models.SceneImageAspect,
	},
	identity.KindTagGroup: {
		entityType:     models.ItemTypeCollectionFolder,
		folderType:     models.ItemTypeCollectionFolder,
		collectionType: models.CollectionTypeMovies,
		favorite:       stash.FavoriteTag,
		imageAspect:    models.SceneImageAspect,
	},
	identity.KindSavedFilter: {
		entityType:     models.ItemTypeCollectionFolder,
		folderType:     models.ItemTypeCollectionFolder,
		collectionType: models.CollectionTypeMovies,
	},
	identity.KindCatalog: {
		entityType: models.ItemTypeCollectionFolder,
		folderType: models.ItemTypeCollectionFolder,
	},
}

// catalogCollectionTypes tells clients how to lay out each catalog library.
var catalogCollectionTypes = map[string]string{
	"1": models.CollectionTypeMovies,  // All Scenes
	"2": models.CollectionTypeFolders, // Performers
	"3": models.CollectionTypeFolders, // Studios
	"4": models.CollectionTypeBoxSets, // Groups
	"5": models.CollectionTypeFolders, // Tags
}

// itemTypeKinds maps IncludeItemTypes values onto the backend kind they
// select. Lookups are lowercase.
var itemTypeKinds = map[string]identity.Kind{
	"movie":  identity.KindScene,
	"video":  identity.KindScene,
	"person": identity.KindPerformer,
	"studio": identity.KindStudio,
	"boxset": identity.KindGroup,
	"genre":  identity.KindTag,
	"tag":    identity.KindTag,
}

// sortFields maps Jellyfin SortBy values (lowercase) onto Stash scene sort
// keys. The library builder maps scene keys onto entity keys.
var sortFields = map[string]string{
	"sortname":             library.SortName,
	"name":                 library.SortName,
	"datecreated":          "created_at",
	"datelastcontentadded": "created_at",
	"premieredate":         "date",
	"productionyear":       "date",
	"dateplayed":           "last_played_at",
	"playcount":            "play_count",
	"runtime":              "duration",
	"communityrating":      "rating100",
	"criticrating":         "rating100",
	"random":               "random",
	"indexnumber":          library.SortGroupIndex,
}

// sceneFilters maps Jellyfin Filters values (lowercase) onto scene
// criteria.
var sceneFilters = map[string]func() stash.Criterion{
	"isplayed": func() stash.Criterion {
		return stash.Criterion{"value": 0, "modifier": "GREATER_THAN"}
	},
	"isunplayed": func() stash.Criterion {
		return stash.Criterion{"value": 0, "modifier": "EQUALS"}
	},
	"isresumable": func() stash.Criterion {
		return stash.Criterion{"value": 0, "modifier": "GREATER_THAN"}
	},
	// Stash scenes have no favorite flag and are always reported as not
	// favorite, so the favorite filter matches no scene. Stash ids start at 1.
	"isfavorite": func() stash.Criterion {
		return stash.Criterion{"value": 0, "modifier": "EQUALS"}
	},
}

// sceneFilterKeys names the scene criterion each filter sets.
var sceneFilterKeys = map[string]string{
	"isplayed":    "play_count",
	"isunplayed":  "play_count",
	"isresumable": "resume_time",
	"isfavorite":  "id",
}

// idParams maps id list parameters onto the scene criterion and backend
// kind they select.
var idParams = []struct {
	param     string
	criterion string
	kind      identity.Kind
}{
	{"PersonIds", "performers", identity.KindPerformer},
	{"StudioIds", "studios", identity.KindStudio},
	{"GenreIds", "tags", identity.KindTag},
	{"TagIds", "tags", identity.KindTag},
}

// mappingFor returns the presentation of kind.
func mappingFor(kind identity.Kind) kindMapping {
	return kindMappings[kind]
}

// sortField maps a Jellyfin SortBy list onto a Stash sort key. Only the
// first recognized entry is used; Stash sorts by one key.
func sortField(sortBy []string) string {
	for _, s := range sortBy {
		if f, ok := sortFields[strings.ToLower(s)]; ok {
			return f
		}
	}
	return ""
}

// nodeType returns the Type a node is listed with while browsing.
func nodeType(n *library.Node) string {
	m := mappingFor(n.Ref.Kind)
	if n.Kind == library.KindLibrary {
		return models.ItemTypeCollectionFolder
	}
	if n.IsFolder() && m.folderType != "" {
		return m.folderType
	}
	return m.entityType
}

// collectionType returns the CollectionType of a library node.
func collectionType(n *library.Node) string {
	if n.Ref.Kind == identity.KindCatalog {
		return catalogCollectionTypes[n.Ref.ID]
	}
	return mappingFor(n.Ref.Kind).collectionType
}
