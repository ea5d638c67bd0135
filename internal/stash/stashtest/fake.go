// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package stashtest provides an in-memory stash.Backend for tests.
package stashtest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/tomtom215/stashbridge/internal/stash"
)

// Ensure Fake implements stash.Backend
var _ stash.Backend = (*Fake)(nil)

// Asset is a binary served by OpenAsset and FetchAsset.
type Asset struct {
	Data        []byte
	ContentType string
	// NoRanges makes OpenAsset ignore Range headers and answer 200.
	NoRanges bool
}

// Fake is an in-memory Stash. It evaluates the subset of filter criteria the
// gateway sends (tags, performers, studios, groups, play_count, resume_time,
// title, date, favorites, name, nested AND) and the find filter paging and
// sort.
type Fake struct {
	mu           sync.Mutex
	scenes       map[string]*stash.Scene
	performers   map[string]*stash.Performer
	studios      map[string]*stash.Studio
	groups       map[string]*stash.Group
	tags         map[string]*stash.Tag
	savedFilters map[string]*stash.SavedFilter
	assets       map[string]Asset
	err          error

	calls     atomic.Int64
	plays     map[string]int
	activity  map[string]float64
	lastQuery stash.SceneQuery
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		scenes:       make(map[string]*stash.Scene),
		performers:   make(map[string]*stash.Performer),
		studios:      make(map[string]*stash.Studio),
		groups:       make(map[string]*stash.Group),
		tags:         make(map[string]*stash.Tag),
		savedFilters: make(map[string]*stash.SavedFilter),
		assets:       make(map[string]Asset),
		plays:        make(map[string]int),
		activity:     make(map[string]float64),
	}
}

// AddScene stores s, replacing any scene with the same id.
func (f *Fake) AddScene(s stash.Scene) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes[s.ID] = &s
}

// AddPerformer stores p.
func (f *Fake) AddPerformer(p stash.Performer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.performers[p.ID] = &p
}

// AddStudio stores s.
func (f *Fake) AddStudio(s stash.Studio) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studios[s.ID] = &s
}

// AddGroup stores g.
func (f *Fake) AddGroup(g stash.Group) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[g.ID] = &g
}

// AddTag stores t.
func (f *Fake) AddTag(t stash.Tag) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags[t.ID] = &t
}

// AddSavedFilter stores sf.
func (f *Fake) AddSavedFilter(sf stash.SavedFilter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.savedFilters[sf.ID] = &sf
}

// AddAsset serves a under url.
func (f *Fake) AddAsset(url string, a Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[url] = a
}

// DeleteScene removes a scene, as if it was deleted in Stash.
func (f *Fake) DeleteScene(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scenes, id)
}

// DeletePerformer removes a performer.
func (f *Fake) DeletePerformer(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.performers, id)
}

// SetError makes every call fail with err until cleared with nil.
func (f *Fake) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the number of backend calls made.
func (f *Fake) Calls() int64 {
	return f.calls.Load()
}

// Plays returns how many plays were added to a scene.
func (f *Fake) Plays(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays[id]
}

// ResumeTime returns the last saved resume time of a scene.
func (f *Fake) ResumeTime(id string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity[id]
}

// LastSceneQuery returns the most recent FindScenes argument.
func (f *Fake) LastSceneQuery() stash.SceneQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

func (f *Fake) begin(ctx context.Context) error {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.err
}

// FindScenes implements stash.Backend.
func (f *Fake) FindScenes(ctx context.Context, q stash.SceneQuery) (*stash.ScenePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	f.lastQuery = q

	var matched []stash.Scene
	for _, s := range f.scenes {
		if len(q.IDs) > 0 && !slices.Contains(q.IDs, s.ID) {
			continue
		}
		if q.Filter.Q != "" && !containsFold(s.DisplayName(), q.Filter.Q) {
			continue
		}
		if !f.sceneMatches(s, q.SceneFilter) {
			continue
		}
		matched = append(matched, *s)
	}

	sortScenes(matched, q.Filter.Sort, q.Filter.Direction)
	page := paginate(matched, q.Filter)
	return &stash.ScenePage{Count: len(matched), Scenes: page}, nil
}

// FindScene implements stash.Backend.
func (f *Fake) FindScene(ctx context.Context, id string) (*stash.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	s, ok := f.scenes[id]
	if !ok {
		return nil, fmt.Errorf("%w: scene %s", stash.ErrNotFound, id)
	}
	out := *s
	return &out, nil
}

// FindPerformers implements stash.Backend.
func (f *Fake) FindPerformers(ctx context.Context, q stash.EntityQuery) (*stash.PerformerPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	var matched []stash.Performer
	for _, p := range f.performers {
		if entityMatches(p.Name, p.Favorite, q) {
			matched = append(matched, *p)
		}
	}
	sortByName(matched, func(p stash.Performer) (string, string) { return p.Name, p.ID }, q.Filter)
	return &stash.PerformerPage{Count: len(matched), Performers: paginate(matched, q.Filter)}, nil
}

// FindPerformer implements stash.Backend.
func (f *Fake) FindPerformer(ctx context.Context, id string) (*stash.Performer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	p, ok := f.performers[id]
	if !ok {
		return nil, fmt.Errorf("%w: performer %s", stash.ErrNotFound, id)
	}
	out := *p
	return &out, nil
}

// FindStudios implements stash.Backend.
func (f *Fake) FindStudios(ctx context.Context, q stash.EntityQuery) (*stash.StudioPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	var matched []stash.Studio
	for _, s := range f.studios {
		if entityMatches(s.Name, s.Favorite, q) {
			matched = append(matched, *s)
		}
	}
	sortByName(matched, func(s stash.Studio) (string, string) { return s.Name, s.ID }, q.Filter)
	return &stash.StudioPage{Count: len(matched), Studios: paginate(matched, q.Filter)}, nil
}

// FindStudio implements stash.Backend.
func (f *Fake) FindStudio(ctx context.Context, id string) (*stash.Studio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	s, ok := f.studios[id]
	if !ok {
		return nil, fmt.Errorf("%w: studio %s", stash.ErrNotFound, id)
	}
	out := *s
	return &out, nil
}

// FindGroups implements stash.Backend.
func (f *Fake) FindGroups(ctx context.Context, q stash.EntityQuery) (*stash.GroupPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	var matched []stash.Group
	for _, g := range f.groups {
		if entityMatches(g.Name, false, q) {
			matched = append(matched, *g)
		}
	}
	sortByName(matched, func(g stash.Group) (string, string) { return g.Name, g.ID }, q.Filter)
	return &stash.GroupPage{Count: len(matched), Groups: paginate(matched, q.Filter)}, nil
}

// FindGroup implements stash.Backend.
func (f *Fake) FindGroup(ctx context.Context, id string) (*stash.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	g, ok := f.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %s", stash.ErrNotFound, id)
	}
	out := *g
	return &out, nil
}

// FindTags implements stash.Backend.
func (f *Fake) FindTags(ctx context.Context, q stash.EntityQuery) (*stash.TagPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	var matched []stash.Tag
	for _, t := range f.tags {
		if entityMatches(t.Name, t.Favorite, q) {
			matched = append(matched, *t)
		}
	}
	sortByName(matched, func(t stash.Tag) (string, string) { return t.Name, t.ID }, q.Filter)
	return &stash.TagPage{Count: len(matched), Tags: paginate(matched, q.Filter)}, nil
}

// FindTag implements stash.Backend.
func (f *Fake) FindTag(ctx context.Context, id string) (*stash.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	t, ok := f.tags[id]
	if !ok {
		return nil, fmt.Errorf("%w: tag %s", stash.ErrNotFound, id)
	}
	out := *t
	return &out, nil
}

// FindSavedFilters implements stash.Backend.
func (f *Fake) FindSavedFilters(ctx context.Context) ([]stash.SavedFilter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	out := make([]stash.SavedFilter, 0, len(f.savedFilters))
	for _, sf := range f.savedFilters {
		out = append(out, *sf)
	}
	slices.SortFunc(out, func(a, b stash.SavedFilter) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

// FindSavedFilter implements stash.Backend.
func (f *Fake) FindSavedFilter(ctx context.Context, id string) (*stash.SavedFilter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, err
	}
	sf, ok := f.savedFilters[id]
	if !ok {
		return nil, fmt.Errorf("%w: saved filter %s", stash.ErrNotFound, id)
	}
	out := *sf
	return &out, nil
}

// SaveSceneActivity implements stash.Backend.
func (f *Fake) SaveSceneActivity(ctx context.Context, id string, resumeTime, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	s, ok := f.scenes[id]
	if !ok {
		return mutationError("SceneSaveActivity", id)
	}
	s.ResumeTime = resumeTime
	f.activity[id] = resumeTime
	return nil
}

// AddScenePlay implements stash.Backend.
func (f *Fake) AddScenePlay(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	s, ok := f.scenes[id]
	if !ok {
		return mutationError("SceneAddPlay", id)
	}
	now := time.Now().UTC()
	s.PlayCount++
	s.LastPlayedAt = &now
	f.plays[id]++
	return nil
}

// ResetScenePlayCount implements stash.Backend.
func (f *Fake) ResetScenePlayCount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	s, ok := f.scenes[id]
	if !ok {
		return mutationError("SceneResetPlayCount", id)
	}
	s.PlayCount = 0
	f.plays[id] = 0
	return nil
}

// SetFavorite implements stash.Backend.
func (f *Fake) SetFavorite(ctx context.Context, kind stash.FavoriteKind, id string, favorite bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return err
	}
	switch kind {
	case stash.FavoritePerformer:
		if p, ok := f.performers[id]; ok {
			p.Favorite = favorite
			return nil
		}
	case stash.FavoriteStudio:
		if s, ok := f.studios[id]; ok {
			s.Favorite = favorite
			return nil
		}
	case stash.FavoriteTag:
		if t, ok := f.tags[id]; ok {
			t.Favorite = favorite
			return nil
		}
	}
	return mutationError(string(kind)+"Favorite", id)
}

// mutationError is what Stash answers when a mutation names a missing
// entity: a GraphQL error, not an empty result.
func mutationError(operation, id string) error {
	return &stash.QueryError{
		Operation: operation,
		Errors:    gqlerror.List{gqlerror.Errorf("sql: no rows in result set (id %s)", id)},
	}
}

// Version implements stash.Backend.
func (f *Fake) Version(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return "", err
	}
	return "v0.28.1", nil
}

// OpenAsset implements stash.Backend. Range handling follows
// http.ServeContent unless the asset was registered with NoRanges.
func (f *Fake) OpenAsset(ctx context.Context, assetURL, rangeHeader string) (*http.Response, error) {
	f.mu.Lock()
	err := f.begin(ctx)
	a, ok := f.assets[assetURL]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", stash.ErrNotFound, assetURL)
	}

	req := httptest.NewRequest(http.MethodGet, "/asset", http.NoBody).WithContext(ctx)
	if rangeHeader != "" && !a.NoRanges {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	if a.ContentType != "" {
		rec.Header().Set("Content-Type", a.ContentType)
	}
	http.ServeContent(rec, req, "", time.Time{}, bytes.NewReader(a.Data))
	return rec.Result(), nil
}

// FetchAsset implements stash.Backend.
func (f *Fake) FetchAsset(ctx context.Context, assetURL string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx); err != nil {
		return nil, "", err
	}
	a, ok := f.assets[assetURL]
	if !ok {
		return nil, "", fmt.Errorf("%w: asset %s", stash.ErrNotFound, assetURL)
	}
	ct := a.ContentType
	if ct == "" {
		ct = http.DetectContentType(a.Data)
	}
	return bytes.Clone(a.Data), ct, nil
}

func (f *Fake) sceneMatches(s *stash.Scene, filter stash.ObjectFilter) bool {
	for key, raw := range filter {
		crit, _ := raw.(map[string]any)
		switch key {
		case "tags":
			ids := make([]string, 0, len(s.Tags))
			for _, t := range s.Tags {
				ids = append(ids, t.ID)
			}
			values := f.expandTags(toStrings(crit["value"]), crit["depth"])
			if !matchIDs(ids, values, crit) {
				return false
			}
		case "performers":
			ids := make([]string, 0, len(s.Performers))
			for _, p := range s.Performers {
				ids = append(ids, p.ID)
			}
			if !matchIDs(ids, toStrings(crit["value"]), crit) {
				return false
			}
		case "studios":
			var ids []string
			if s.Studio != nil {
				ids = append(ids, s.Studio.ID)
			}
			if !matchIDs(ids, toStrings(crit["value"]), crit) {
				return false
			}
		case "groups":
			ids := make([]string, 0, len(s.Groups))
			for _, g := range s.Groups {
				ids = append(ids, g.Group.ID)
			}
			if !matchIDs(ids, toStrings(crit["value"]), crit) {
				return false
			}
		case "id":
			id, _ := strconv.ParseFloat(s.ID, 64)
			if !matchNumber(id, crit) {
				return false
			}
		case "play_count":
			if !matchNumber(float64(s.PlayCount), crit) {
				return false
			}
		case "resume_time":
			if !matchNumber(s.ResumeTime, crit) {
				return false
			}
		case "o_counter":
			if !matchNumber(float64(s.OCounter), crit) {
				return false
			}
		case "rating100":
			rating := 0.0
			if s.Rating100 != nil {
				rating = float64(*s.Rating100)
			}
			if !matchNumber(rating, crit) {
				return false
			}
		case "title":
			if !matchString(s.DisplayName(), crit) {
				return false
			}
		case "date":
			if !matchDate(s.Date, crit) {
				return false
			}
		case "organized":
			if b, ok := raw.(bool); ok && s.Organized != b {
				return false
			}
		case "AND":
			if !f.sceneMatches(s, crit) {
				return false
			}
		}
	}
	return true
}

func (f *Fake) expandTags(ids []string, depth any) []string {
	d, _ := toFloat(depth)
	if d == 0 {
		return ids
	}
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if t, ok := f.tags[id]; ok {
			for _, c := range t.Children {
				walk(c.ID)
			}
		}
	}
	for _, id := range ids {
		walk(id)
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

func matchIDs(have, want []string, crit map[string]any) bool {
	modifier, _ := crit["modifier"].(string)
	for _, ex := range toStrings(crit["excludes"]) {
		if slices.Contains(have, ex) {
			return false
		}
	}
	switch modifier {
	case "INCLUDES_ALL":
		for _, w := range want {
			if !slices.Contains(have, w) {
				return false
			}
		}
		return true
	case "EXCLUDES":
		for _, w := range want {
			if slices.Contains(have, w) {
				return false
			}
		}
		return true
	case "IS_NULL":
		return len(have) == 0
	case "NOT_NULL":
		return len(have) > 0
	default:
		if len(want) == 0 {
			return true
		}
		for _, w := range want {
			if slices.Contains(have, w) {
				return true
			}
		}
		return false
	}
}

func matchNumber(v float64, crit map[string]any) bool {
	want, _ := toFloat(crit["value"])
	modifier, _ := crit["modifier"].(string)
	switch modifier {
	case "GREATER_THAN":
		return v > want
	case "LESS_THAN":
		return v < want
	case "NOT_EQUALS":
		return v != want
	case "BETWEEN":
		hi, _ := toFloat(crit["value2"])
		return v >= want && v <= hi
	default:
		return v == want
	}
}

func matchString(v string, crit map[string]any) bool {
	want, _ := crit["value"].(string)
	modifier, _ := crit["modifier"].(string)
	switch modifier {
	case "EQUALS":
		return strings.EqualFold(v, want)
	case "MATCHES_REGEX":
		re, err := regexp.Compile(want)
		return err == nil && re.MatchString(v)
	case "EXCLUDES":
		return !containsFold(v, want)
	default:
		return containsFold(v, want)
	}
}

func matchDate(v string, crit map[string]any) bool {
	want, _ := crit["value"].(string)
	modifier, _ := crit["modifier"].(string)
	switch modifier {
	case "BETWEEN":
		hi, _ := crit["value2"].(string)
		return v != "" && v >= want && v <= hi
	case "GREATER_THAN":
		return v > want
	case "LESS_THAN":
		return v != "" && v < want
	default:
		return v == want
	}
}

func entityMatches(name string, favorite bool, q stash.EntityQuery) bool {
	if q.Filter.Q != "" && !containsFold(name, q.Filter.Q) {
		return false
	}
	for key, raw := range q.EntityFilter {
		switch key {
		case "name":
			crit, _ := raw.(map[string]any)
			if !matchString(name, crit) {
				return false
			}
		case "favorite", "filter_favorites":
			if b, ok := raw.(bool); ok && favorite != b {
				return false
			}
		}
	}
	return true
}

func sortScenes(scenes []stash.Scene, sortField, direction string) {
	key := func(s stash.Scene) string {
		switch sortField {
		case "created_at":
			return s.CreatedAt.UTC().Format(time.RFC3339Nano)
		case "updated_at":
			return s.UpdatedAt.UTC().Format(time.RFC3339Nano)
		case "date":
			return s.Date
		case "last_played_at":
			if s.LastPlayedAt == nil {
				return ""
			}
			return s.LastPlayedAt.UTC().Format(time.RFC3339Nano)
		case "play_count":
			return fmt.Sprintf("%012d", s.PlayCount)
		case "duration":
			return fmt.Sprintf("%015.3f", s.Duration())
		case "rating100":
			if s.Rating100 == nil {
				return ""
			}
			return fmt.Sprintf("%03d", *s.Rating100)
		case "group_scene_number":
			if len(s.Groups) == 0 || s.Groups[0].SceneIndex == nil {
				return ""
			}
			return fmt.Sprintf("%06d", *s.Groups[0].SceneIndex)
		default:
			return s.DisplayName()
		}
	}
	compare := strings.Compare
	switch sortField {
	case "created_at", "updated_at", "date", "last_played_at", "play_count", "duration", "rating100", "group_scene_number":
	default:
		compare = stash.CompareNames
	}
	slices.SortStableFunc(scenes, func(a, b stash.Scene) int {
		c := compare(key(a), key(b))
		if c == 0 {
			c = compareIDs(a.ID, b.ID)
		}
		if direction == stash.SortDesc {
			return -c
		}
		return c
	})
}

func sortByName[T any](items []T, nameID func(T) (string, string), filter stash.FindFilter) {
	slices.SortStableFunc(items, func(a, b T) int {
		an, aid := nameID(a)
		bn, bid := nameID(b)
		c := stash.CompareNames(an, bn)
		if c == 0 {
			c = compareIDs(aid, bid)
		}
		if filter.Direction == stash.SortDesc {
			return -c
		}
		return c
	})
}

func paginate[T any](items []T, filter stash.FindFilter) []T {
	if filter.PerPage < 0 {
		return items
	}
	perPage := filter.PerPage
	if perPage == 0 {
		perPage = 25
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}

func compareIDs(a, b string) int {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai - bi
	}
	return strings.Compare(a, b)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func toStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
