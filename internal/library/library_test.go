// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package library

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stash/stashtest"
)

func intPtr(i int) *int { return &i }

func tagRef(id, name string) stash.EntityRef { return stash.EntityRef{ID: id, Name: name} }

// newFixture returns a fake with a Favorites tag (three scenes), an empty
// tag, a parent tag with two children and a handful of other entities.
func newFixture() *stashtest.Fake {
	f := stashtest.New()
	f.AddTag(stash.Tag{ID: "1", Name: "Favorites", SceneCount: 3})
	f.AddTag(stash.Tag{ID: "2", Name: "Empty"})
	f.AddTag(stash.Tag{ID: "3", Name: "Outdoor", Children: []stash.EntityRef{tagRef("5", "Forest"), tagRef("4", "Beach")}})
	f.AddTag(stash.Tag{ID: "4", Name: "Beach", Parents: []stash.EntityRef{tagRef("3", "Outdoor")}})
	f.AddTag(stash.Tag{ID: "5", Name: "Forest", Parents: []stash.EntityRef{tagRef("3", "Outdoor")}})

	fav := []stash.EntityRef{tagRef("1", "Favorites")}
	f.AddScene(stash.Scene{ID: "11", Title: "Charlie", Tags: fav})
	f.AddScene(stash.Scene{ID: "12", Title: "alpha", Tags: fav})
	f.AddScene(stash.Scene{ID: "13", Title: "Bravo", Tags: fav})
	f.AddScene(stash.Scene{ID: "14", Title: "Delta"})
	f.AddScene(stash.Scene{ID: "15", Title: "Sand", Tags: []stash.EntityRef{tagRef("4", "Beach")}})
	f.AddScene(stash.Scene{ID: "16", Title: "Canopy", Tags: []stash.EntityRef{tagRef("5", "Forest")}})
	f.AddScene(stash.Scene{ID: "17", Title: "Horizon", Tags: []stash.EntityRef{tagRef("3", "Outdoor")}})

	f.AddPerformer(stash.Performer{ID: "21", Name: "Zoe", SceneCount: 1})
	f.AddPerformer(stash.Performer{ID: "22", Name: "Ann", SceneCount: 0})
	f.AddStudio(stash.Studio{ID: "31", Name: "Acme"})
	f.AddGroup(stash.Group{ID: "41", Name: "Trilogy"})
	return f
}

func browseNames(t *testing.T, b *Builder, id string, opts BrowseOptions) ([]string, *Page) {
	t.Helper()
	page, err := b.Browse(context.Background(), id, opts)
	if err != nil {
		t.Fatalf("Browse(%s): %v", id, err)
	}
	names := make([]string, 0, len(page.Nodes))
	for _, n := range page.Nodes {
		names = append(names, n.Name)
	}
	return names, page
}

func TestListLibraries(t *testing.T) {
	f := newFixture()
	f.AddSavedFilter(stash.SavedFilter{ID: "7", Mode: "SCENES", Name: "Unwatched"})
	f.AddSavedFilter(stash.SavedFilter{ID: "6", Mode: "SCENES", Name: "Best of"})

	cfg := DefaultConfig()
	cfg.TagGroups = []string{"Favorites", "Missing", "Empty", "favorites"}
	b := NewBuilder(f, cfg)

	libs, err := b.ListLibraries(context.Background())
	if err != nil {
		t.Fatalf("ListLibraries: %v", err)
	}

	var names []string
	for _, l := range libs {
		names = append(names, l.Name)
		if l.Kind != KindLibrary {
			t.Errorf("%s kind = %s, want library", l.Name, l.Kind)
		}
	}
	want := []string{"All Scenes", "Favorites", "Empty", "Best of", "Unwatched", "Performers", "Studios", "Groups", "Tags"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("libraries = %v, want %v", names, want)
	}

	again, err := b.ListLibraries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(libs, again) {
		t.Error("ListLibraries is not deterministic")
	}
}

func TestListLibraries_DisabledCatalogs(t *testing.T) {
	b := NewBuilder(newFixture(), Config{Performers: true})
	libs, err := b.ListLibraries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 1 || libs[0].Name != "Performers" {
		t.Errorf("libraries = %+v", libs)
	}

	if _, err := b.Resolve(context.Background(), identity.EncodeCatalog(identity.CatalogStudios)); !errors.Is(err, ErrNotFound) {
		t.Errorf("disabled catalog resolve error = %v, want ErrNotFound", err)
	}
}

func TestListLibraries_BackendFailure(t *testing.T) {
	f := newFixture()
	f.SetError(fmt.Errorf("%w: refused", stash.ErrBackendUnavailable))
	b := NewBuilder(f, Config{TagGroups: []string{"Favorites"}, SavedFilters: true})

	libs, err := b.ListLibraries(context.Background())
	if !errors.Is(err, stash.ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
	if libs != nil {
		t.Errorf("partial libraries returned: %v", libs)
	}
}

func TestBrowse_FavoritesTagGroup(t *testing.T) {
	b := NewBuilder(newFixture(), Config{TagGroups: []string{"Favorites"}})
	id := identity.MustEncode(identity.KindTagGroup, "1")

	names, page := browseNames(t, b, id, BrowseOptions{})
	if want := []string{"alpha", "Bravo", "Charlie"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
	for _, n := range page.Nodes {
		if n.Kind != KindItem || n.Scene == nil || n.ParentID != id {
			t.Errorf("node %+v is not a scene item under the library", n)
		}
	}
}

func TestBrowse_Deterministic(t *testing.T) {
	b := NewBuilder(newFixture(), DefaultConfig())
	ids := []string{
		identity.EncodeCatalog(identity.CatalogAllScenes),
		identity.EncodeCatalog(identity.CatalogPerformers),
		identity.MustEncode(identity.KindTagGroup, "3"),
	}
	for _, id := range ids {
		first, err := b.Browse(context.Background(), id, BrowseOptions{})
		if err != nil {
			t.Fatal(err)
		}
		second, err := b.Browse(context.Background(), id, BrowseOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Browse(%s) differs between calls", id)
		}
	}
}

func TestBrowse_TieBreakByNumericID(t *testing.T) {
	f := stashtest.New()
	f.AddScene(stash.Scene{ID: "10", Title: "Same"})
	f.AddScene(stash.Scene{ID: "9", Title: "same"})
	f.AddScene(stash.Scene{ID: "100", Title: "Same"})
	b := NewBuilder(f, DefaultConfig())

	_, page := browseNames(t, b, identity.EncodeCatalog(identity.CatalogAllScenes), BrowseOptions{})
	var got []string
	for _, n := range page.Nodes {
		got = append(got, n.Ref.ID)
	}
	if want := []string{"9", "10", "100"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestBrowse_EmptyTagGroup(t *testing.T) {
	b := NewBuilder(newFixture(), Config{TagGroups: []string{"Empty"}})
	_, page := browseNames(t, b, identity.MustEncode(identity.KindTagGroup, "2"), BrowseOptions{})
	if page.Nodes == nil || len(page.Nodes) != 0 || page.Total != 0 {
		t.Errorf("page = %+v, want empty non-nil listing", page)
	}
}

func TestBrowse_TagGroupFoldersThenScenes(t *testing.T) {
	b := NewBuilder(newFixture(), DefaultConfig())
	id := identity.MustEncode(identity.KindTagGroup, "3")

	names, page := browseNames(t, b, id, BrowseOptions{})
	if want := []string{"Beach", "Forest", "Horizon"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}
	if page.Nodes[0].Kind != KindFolder || page.Nodes[2].Kind != KindItem {
		t.Errorf("kinds = %s, %s", page.Nodes[0].Kind, page.Nodes[2].Kind)
	}

	// Window across the folder/scene boundary.
	names, page = browseNames(t, b, id, BrowseOptions{Window: Window{StartIndex: 1, Limit: 2}})
	if want := []string{"Forest", "Horizon"}; !reflect.DeepEqual(names, want) {
		t.Errorf("window names = %v, want %v", names, want)
	}
	if page.Total != 3 || page.StartIndex != 1 {
		t.Errorf("Total/StartIndex = %d/%d", page.Total, page.StartIndex)
	}

	// Window filled by folders still reports the full total.
	names, page = browseNames(t, b, id, BrowseOptions{Window: Window{Limit: 2}})
	if want := []string{"Beach", "Forest"}; !reflect.DeepEqual(names, want) {
		t.Errorf("folder-only names = %v, want %v", names, want)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3", page.Total)
	}

	// Flattened: every scene under the tag tree.
	names, _ = browseNames(t, b, id, BrowseOptions{ScenesOnly: true})
	if want := []string{"Canopy", "Horizon", "Sand"}; !reflect.DeepEqual(names, want) {
		t.Errorf("flattened names = %v, want %v", names, want)
	}
}

func TestBrowse_TotalIndependentOfPageSize(t *testing.T) {
	b := NewBuilder(newFixture(), DefaultConfig())
	id := identity.EncodeCatalog(identity.CatalogAllScenes)

	for _, w := range []Window{{0, 1}, {0, 2}, {2, 2}, {3, 2}, {0, 100}, {5, 0}, {50, 10}} {
		_, page := browseNames(t, b, id, BrowseOptions{Window: w})
		if page.Total != 7 {
			t.Errorf("window %+v: Total = %d, want 7", w, page.Total)
		}
	}

	// Unaligned offsets return the right rows.
	names, _ := browseNames(t, b, id, BrowseOptions{Window: Window{StartIndex: 3, Limit: 2}})
	if want := []string{"Charlie", "Delta"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	names, _ = browseNames(t, b, id, BrowseOptions{Window: Window{StartIndex: 5}})
	if want := []string{"Horizon", "Sand"}; !reflect.DeepEqual(names, want) {
		t.Errorf("open-ended names = %v, want %v", names, want)
	}
}

func TestBrowse_DeepUnalignedPageStaysSmall(t *testing.T) {
	f := stashtest.New()
	for i := 1; i <= 20000; i++ {
		f.AddScene(stash.Scene{ID: strconv.Itoa(i), Title: fmt.Sprintf("Scene %05d", i)})
	}
	b := NewBuilder(f, DefaultConfig())

	names, page := browseNames(t, b, identity.EncodeCatalog(identity.CatalogAllScenes),
		BrowseOptions{Window: Window{StartIndex: 19950, Limit: 100}})
	if page.Total != 20000 || len(names) != 50 {
		t.Fatalf("Total = %d, rows = %d; want 20000, 50", page.Total, len(names))
	}
	if names[0] != "Scene 19951" || names[49] != "Scene 20000" {
		t.Errorf("rows = %s .. %s", names[0], names[49])
	}
	if per := f.LastSceneQuery().Filter.PerPage; per > 200 {
		t.Errorf("backend per_page = %d, want a page near the requested limit", per)
	}
}

func TestBrowse_NaturalNameOrder(t *testing.T) {
	f := stashtest.New()
	f.AddTag(stash.Tag{ID: "1", Name: "Box", Children: []stash.EntityRef{tagRef("2", "Disc 10"), tagRef("3", "disc 2")}})
	f.AddTag(stash.Tag{ID: "2", Name: "Disc 10", Parents: []stash.EntityRef{tagRef("1", "Box")}})
	f.AddTag(stash.Tag{ID: "3", Name: "disc 2", Parents: []stash.EntityRef{tagRef("1", "Box")}})
	box := []stash.EntityRef{tagRef("1", "Box")}
	f.AddScene(stash.Scene{ID: "11", Title: "Part 10", Tags: box})
	f.AddScene(stash.Scene{ID: "12", Title: "part 9", Tags: box})
	f.AddScene(stash.Scene{ID: "13", Title: "Part 100", Tags: box})
	b := NewBuilder(f, DefaultConfig())
	id := identity.MustEncode(identity.KindTagGroup, "1")

	names, _ := browseNames(t, b, id, BrowseOptions{})
	if want := []string{"disc 2", "Disc 10", "part 9", "Part 10", "Part 100"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}

	// Pages stitched together match the single listing.
	var paged []string
	for start := 0; start < 5; start += 2 {
		n, _ := browseNames(t, b, identity.EncodeCatalog(identity.CatalogAllScenes),
			BrowseOptions{Window: Window{StartIndex: start, Limit: 2}})
		paged = append(paged, n...)
	}
	if want := []string{"part 9", "Part 10", "Part 100"}; !reflect.DeepEqual(paged, want) {
		t.Errorf("paged scenes = %v, want %v", paged, want)
	}
}

func TestBrowse_Catalogs(t *testing.T) {
	b := NewBuilder(newFixture(), DefaultConfig())

	names, page := browseNames(t, b, identity.EncodeCatalog(identity.CatalogPerformers), BrowseOptions{})
	if want := []string{"Ann", "Zoe"}; !reflect.DeepEqual(names, want) {
		t.Errorf("performers = %v, want %v", names, want)
	}
	if page.Nodes[0].Kind != KindFolder || page.Nodes[0].Performer == nil {
		t.Errorf("performer node = %+v", page.Nodes[0])
	}

	names, _ = browseNames(t, b, identity.EncodeCatalog(identity.CatalogTags), BrowseOptions{Window: Window{Limit: 2}})
	if want := []string{"Beach", "Empty"}; !reflect.DeepEqual(names, want) {
		t.Errorf("tags = %v, want %v", names, want)
	}
}

func TestBrowse_EntityFolders(t *testing.T) {
	f := newFixture()
	f.AddScene(stash.Scene{ID: "51", Title: "Part Two", Groups: []stash.SceneGroup{{Group: tagRef("41", "Trilogy"), SceneIndex: intPtr(2)}}})
	f.AddScene(stash.Scene{ID: "52", Title: "Part One", Groups: []stash.SceneGroup{{Group: tagRef("41", "Trilogy"), SceneIndex: intPtr(1)}}})
	f.AddScene(stash.Scene{ID: "53", Title: "Acme Show", Studio: &stash.EntityRef{ID: "31", Name: "Acme"},
		Performers: []stash.PerformerRef{{ID: "21", Name: "Zoe"}}})
	b := NewBuilder(f, DefaultConfig())

	names, _ := browseNames(t, b, identity.MustEncode(identity.KindGroup, "41"), BrowseOptions{})
	if want := []string{"Part One", "Part Two"}; !reflect.DeepEqual(names, want) {
		t.Errorf("group scenes = %v, want %v", names, want)
	}
	if q := f.LastSceneQuery(); q.Filter.Sort != SortGroupIndex {
		t.Errorf("group sort = %q, want %q", q.Filter.Sort, SortGroupIndex)
	}

	names, _ = browseNames(t, b, identity.MustEncode(identity.KindStudio, "31"), BrowseOptions{})
	if want := []string{"Acme Show"}; !reflect.DeepEqual(names, want) {
		t.Errorf("studio scenes = %v", names)
	}
	names, _ = browseNames(t, b, identity.MustEncode(identity.KindPerformer, "21"), BrowseOptions{})
	if want := []string{"Acme Show"}; !reflect.DeepEqual(names, want) {
		t.Errorf("performer scenes = %v", names)
	}

	// A performer without scenes is an empty folder, a deleted one is gone.
	_, page := browseNames(t, b, identity.MustEncode(identity.KindPerformer, "22"), BrowseOptions{})
	if page.Total != 0 {
		t.Errorf("Total = %d", page.Total)
	}
	f.DeletePerformer("22")
	if _, err := b.Browse(context.Background(), identity.MustEncode(identity.KindPerformer, "22"), BrowseOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted performer error = %v, want ErrNotFound", err)
	}
}

func TestBrowse_SavedFilter(t *testing.T) {
	f := newFixture()
	f.AddSavedFilter(stash.SavedFilter{
		ID:   "8",
		Mode: "SCENES",
		Name: "Favorites newest",
		FindFilter: &stash.SavedFindFilter{
			Sort:      "title",
			Direction: stash.SortDesc,
		},
		ObjectFilter: map[string]any{
			"tags": map[string]any{
				"modifier": "INCLUDES",
				"value": map[string]any{
					"items": []any{map[string]any{"id": "1", "label": "Favorites"}},
				},
			},
		},
	})
	b := NewBuilder(f, DefaultConfig())

	names, page := browseNames(t, b, identity.MustEncode(identity.KindSavedFilter, "8"), BrowseOptions{})
	if want := []string{"Charlie", "Bravo", "alpha"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if page.Total != 3 {
		t.Errorf("Total = %d", page.Total)
	}

	// A client sort overrides the saved one.
	names, _ = browseNames(t, b, identity.MustEncode(identity.KindSavedFilter, "8"), BrowseOptions{Sort: SortName})
	if want := []string{"alpha", "Bravo", "Charlie"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestBrowse_ExtraFiltersAreANDed(t *testing.T) {
	f := newFixture()
	b := NewBuilder(f, DefaultConfig())

	opts := BrowseOptions{SceneFilter: stash.ObjectFilter{
		"title": stash.Criterion{"value": "^[ab]", "modifier": "MATCHES_REGEX"},
	}}
	names, page := browseNames(t, b, identity.MustEncode(identity.KindTagGroup, "1"), opts)
	if want := []string{"alpha"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	if page.Total != 1 {
		t.Errorf("Total = %d", page.Total)
	}

	opts = BrowseOptions{SceneFilter: stash.ObjectFilter{
		"tags": stash.Criterion{"value": []string{"4"}, "modifier": "INCLUDES"},
	}}
	_, page = browseNames(t, b, identity.MustEncode(identity.KindTagGroup, "1"), opts)
	if page.Total != 0 {
		t.Errorf("conflicting tag filters should intersect, Total = %d", page.Total)
	}
}

func TestBrowse_Errors(t *testing.T) {
	f := newFixture()
	b := NewBuilder(f, DefaultConfig())
	ctx := context.Background()

	if _, err := b.Browse(ctx, identity.MustEncode(identity.KindScene, "11"), BrowseOptions{}); !errors.Is(err, ErrInvalidNavigation) {
		t.Errorf("scene browse error = %v, want ErrInvalidNavigation", err)
	}

	_, err := b.Browse(ctx, "not-an-id", BrowseOptions{})
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, identity.ErrNotAnIdentifier) {
		t.Errorf("bad id error = %v", err)
	}

	if _, err := b.Browse(ctx, identity.MustEncode(identity.KindTagGroup, "999"), BrowseOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown tag group error = %v, want ErrNotFound", err)
	}

	f.SetError(fmt.Errorf("%w: timeout", stash.ErrBackendUnavailable))
	page, err := b.Browse(ctx, identity.EncodeCatalog(identity.CatalogAllScenes), BrowseOptions{})
	if !errors.Is(err, stash.ErrBackendUnavailable) || page != nil {
		t.Errorf("Browse = %+v, %v; want nil, ErrBackendUnavailable", page, err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("backend failure must not look like not-found")
	}
}

func TestResolve(t *testing.T) {
	f := newFixture()
	b := NewBuilder(f, DefaultConfig())
	ctx := context.Background()

	n, err := b.Resolve(ctx, identity.MustEncode(identity.KindScene, "12"))
	if err != nil || n.Name != "alpha" || n.Kind != KindItem || n.Scene == nil {
		t.Errorf("Resolve scene = %+v, %v", n, err)
	}
	n, err = b.Resolve(ctx, identity.EncodeCatalog(identity.CatalogGroups))
	if err != nil || n.Name != "Groups" || n.Kind != KindLibrary {
		t.Errorf("Resolve catalog = %+v, %v", n, err)
	}

	f.DeleteScene("12")
	if _, err := b.Resolve(ctx, identity.MustEncode(identity.KindScene, "12")); !errors.Is(err, ErrNotFound) || !errors.Is(err, stash.ErrNotFound) {
		t.Errorf("deleted scene error = %v", err)
	}
	if _, err := b.Resolve(ctx, identity.EncodeCatalog(99)); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown catalog error = %v", err)
	}
}

func TestSceneCriterion(t *testing.T) {
	b := NewBuilder(newFixture(), DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		want stash.ObjectFilter
	}{
		{"all scenes", identity.EncodeCatalog(identity.CatalogAllScenes), stash.ObjectFilter{}},
		{"tag group", identity.MustEncode(identity.KindTagGroup, "3"), tagCriterion("3", -1)},
		{"tag", identity.MustEncode(identity.KindTag, "4"), tagCriterion("4", 0)},
		{"performer", identity.MustEncode(identity.KindPerformer, "21"), stash.ObjectFilter{
			"performers": stash.Criterion{"value": []string{"21"}, "modifier": "INCLUDES"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.SceneCriterion(ctx, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SceneCriterion = %#v, want %#v", got, tt.want)
			}
		})
	}

	if _, err := b.SceneCriterion(ctx, identity.MustEncode(identity.KindScene, "11")); !errors.Is(err, ErrInvalidNavigation) {
		t.Errorf("scene criterion error = %v", err)
	}
}
