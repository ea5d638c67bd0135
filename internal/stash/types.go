// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"path"
	"strings"
	"time"
)

// FindFilter is Stash's FindFilterType: free-text query, paging and sort.
// PerPage -1 returns every match.
type FindFilter struct {
	Q         string `json:"q,omitempty"`
	Page      int    `json:"page,omitempty"`
	PerPage   int    `json:"per_page"`
	Sort      string `json:"sort,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Sort directions accepted by Stash.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Criterion is one entry of a Stash object filter (SceneFilterType,
// PerformerFilterType, ...). Values are passed through as JSON.
type Criterion = map[string]any

// ObjectFilter is a Stash object filter keyed by criterion name.
type ObjectFilter = map[string]any

// SceneQuery selects scenes.
type SceneQuery struct {
	Filter      FindFilter
	SceneFilter ObjectFilter
	// IDs restricts the result to the given scene ids when non-empty.
	IDs []string
}

// EntityQuery selects performers, studios, groups or tags.
type EntityQuery struct {
	Filter       FindFilter
	EntityFilter ObjectFilter
}

// VideoFile is the primary media file of a scene.
type VideoFile struct {
	ID         string  `json:"id"`
	Path       string  `json:"path"`
	Basename   string  `json:"basename"`
	Size       int64   `json:"size"`
	Duration   float64 `json:"duration"`
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameRate  float64 `json:"frame_rate"`
	BitRate    int64   `json:"bit_rate"`
	Format     string  `json:"format"`
}

// ScenePaths holds the asset URLs Stash generates for a scene.
type ScenePaths struct {
	Screenshot string `json:"screenshot"`
	Stream     string `json:"stream"`
	Preview    string `json:"preview"`
}

// EntityRef is the id/name pair Stash embeds for related entities.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PerformerRef is a performer embedded in a scene.
type PerformerRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"image_path"`
}

// SceneGroup is a scene's membership in a group.
type SceneGroup struct {
	Group      EntityRef `json:"group"`
	SceneIndex *int      `json:"scene_index"`
}

// Scene is a Stash scene.
type Scene struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Code         string         `json:"code"`
	Details      string         `json:"details"`
	Director     string         `json:"director"`
	Date         string         `json:"date"`
	Rating100    *int           `json:"rating100"`
	OCounter     int            `json:"o_counter"`
	Organized    bool           `json:"organized"`
	PlayCount    int            `json:"play_count"`
	ResumeTime   float64        `json:"resume_time"`
	LastPlayedAt *time.Time     `json:"last_played_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Files        []VideoFile    `json:"files"`
	Paths        ScenePaths     `json:"paths"`
	Studio       *EntityRef     `json:"studio"`
	Tags         []EntityRef    `json:"tags"`
	Performers   []PerformerRef `json:"performers"`
	Groups       []SceneGroup   `json:"groups"`
}

// DisplayName is the title, falling back to the file name without extension.
func (s *Scene) DisplayName() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	if f := s.PrimaryFile(); f != nil && f.Basename != "" {
		return strings.TrimSuffix(f.Basename, path.Ext(f.Basename))
	}
	return "Scene " + s.ID
}

// PrimaryFile returns the first file, or nil for scenes without files.
func (s *Scene) PrimaryFile() *VideoFile {
	if len(s.Files) == 0 {
		return nil
	}
	return &s.Files[0]
}

// Duration returns the primary file duration in seconds.
func (s *Scene) Duration() float64 {
	if f := s.PrimaryFile(); f != nil {
		return f.Duration
	}
	return 0
}

// Performer is a Stash performer.
type Performer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Disambiguation string    `json:"disambiguation"`
	Gender         string    `json:"gender"`
	Birthdate      string    `json:"birthdate"`
	Country        string    `json:"country"`
	Details        string    `json:"details"`
	ImagePath      string    `json:"image_path"`
	Favorite       bool      `json:"favorite"`
	SceneCount     int       `json:"scene_count"`
	Rating100      *int      `json:"rating100"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Studio is a Stash studio.
type Studio struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Details      string     `json:"details"`
	ImagePath    string     `json:"image_path"`
	Favorite     bool       `json:"favorite"`
	SceneCount   int        `json:"scene_count"`
	Rating100    *int       `json:"rating100"`
	ParentStudio *EntityRef `json:"parent_studio"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Group is a Stash group (formerly movie).
type Group struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Synopsis       string      `json:"synopsis"`
	Date           string      `json:"date"`
	Duration       *int        `json:"duration"`
	Director       string      `json:"director"`
	Rating100      *int        `json:"rating100"`
	FrontImagePath string      `json:"front_image_path"`
	BackImagePath  string      `json:"back_image_path"`
	SceneCount     int         `json:"scene_count"`
	Studio         *EntityRef  `json:"studio"`
	Tags           []EntityRef `json:"tags"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Tag is a Stash tag.
type Tag struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ImagePath   string      `json:"image_path"`
	Favorite    bool        `json:"favorite"`
	SceneCount  int         `json:"scene_count"`
	Children    []EntityRef `json:"children"`
	Parents     []EntityRef `json:"parents"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SavedFindFilter is the find filter stored with a saved filter.
type SavedFindFilter struct {
	Q         string `json:"q"`
	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
}

// SavedFilter is a named query stored in Stash.
type SavedFilter struct {
	ID           string           `json:"id"`
	Mode         string           `json:"mode"`
	Name         string           `json:"name"`
	FindFilter   *SavedFindFilter `json:"find_filter"`
	ObjectFilter map[string]any   `json:"object_filter"`
}

// ScenePage is one page of scenes with the total match count.
type ScenePage struct {
	Count  int     `json:"count"`
	Scenes []Scene `json:"scenes"`
}

// PerformerPage is one page of performers.
type PerformerPage struct {
	Count      int         `json:"count"`
	Performers []Performer `json:"performers"`
}

// StudioPage is one page of studios.
type StudioPage struct {
	Count   int      `json:"count"`
	Studios []Studio `json:"studios"`
}

// GroupPage is one page of groups.
type GroupPage struct {
	Count  int     `json:"count"`
	Groups []Group `json:"groups"`
}

// TagPage is one page of tags.
type TagPage struct {
	Count int   `json:"count"`
	Tags  []Tag `json:"tags"`
}

// FavoriteKind names the entity types that carry a favorite flag in Stash.
type FavoriteKind string

const (
	FavoritePerformer FavoriteKind = "performer"
	FavoriteStudio    FavoriteKind = "studio"
	FavoriteTag       FavoriteKind = "tag"
)
