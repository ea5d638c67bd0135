// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package models

import "time"

// TicksPerSecond converts seconds to Jellyfin's 100ns ticks.
const TicksPerSecond = 10_000_000

// SecondsToTicks converts a duration in seconds to ticks.
func SecondsToTicks(seconds float64) int64 {
	return int64(seconds * TicksPerSecond)
}

// TicksToSeconds converts ticks to seconds.
func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / TicksPerSecond
}

// ============================================================================
// Item Models
// ============================================================================

// Jellyfin item types used by the gateway.
const (
	ItemTypeMovie                = "Movie"
	ItemTypePerson               = "Person"
	ItemTypeStudio               = "Studio"
	ItemTypeBoxSet               = "BoxSet"
	ItemTypeGenre                = "Genre"
	ItemTypeFolder               = "Folder"
	ItemTypeCollectionFolder     = "CollectionFolder"
	ItemTypeUserView             = "UserView"
	ItemTypeUserRootFolder       = "UserRootFolder"
	CollectionTypeMovies         = "movies"
	CollectionTypeBoxSets        = "boxsets"
	CollectionTypeFolders        = "folders"
	MediaTypeVideo               = "Video"
	LocationTypeFileSystem       = "FileSystem"
	LocationTypeVirtual          = "Virtual"
	PersonTypeActor              = "Actor"
	ImageTypePrimary             = "Primary"
	ImageTypeBackdrop            = "Backdrop"
	ImageTypeThumb               = "Thumb"
	ImageTypeLogo                = "Logo"
	DefaultPrimaryImageAspect    = 2.0 / 3.0
	SceneImageAspect             = 16.0 / 9.0
	PlayAccessFull               = "Full"
	VideoTypeVideoFile           = "VideoFile"
	MediaStreamTypeVideo         = "Video"
	MediaStreamTypeAudio         = "Audio"
	MediaProtocolFile            = "File"
	MediaSourceTypeDefault       = "Default"
	DefaultDisplayPreferencesKey = "usersettings"
)

// NameGuidPair is a named reference to another item.
type NameGuidPair struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

// BaseItemPerson is a person credited on an item.
type BaseItemPerson struct {
	Name            string `json:"Name"`
	ID              string `json:"Id"`
	Role            string `json:"Role"`
	Type            string `json:"Type"`                      // "Actor", "Director"
	PrimaryImageTag string `json:"PrimaryImageTag,omitempty"` // Empty when the person has no image
}

// UserItemDataDto is the per-user playback state of an item.
type UserItemDataDto struct {
	PlaybackPositionTicks int64      `json:"PlaybackPositionTicks"`
	PlayCount             int        `json:"PlayCount"`
	IsFavorite            bool       `json:"IsFavorite"`
	Played                bool       `json:"Played"`
	PlayedPercentage      *float64   `json:"PlayedPercentage,omitempty"`
	LastPlayedDate        *time.Time `json:"LastPlayedDate,omitempty"`
	UnplayedItemCount     *int       `json:"UnplayedItemCount,omitempty"`
	Key                   string     `json:"Key"`
	ItemID                string     `json:"ItemId"`
}

// BaseItemDto is the universal Jellyfin item: libraries, folders, movies,
// people, studios and genres all use it.
type BaseItemDto struct {
	// Identity
	Name     string `json:"Name"`
	SortName string `json:"SortName,omitempty"`
	ServerID string `json:"ServerId"`
	ID       string `json:"Id"`
	Etag     string `json:"Etag,omitempty"`
	Type     string `json:"Type"`
	ParentID string `json:"ParentId,omitempty"`

	// Classification
	IsFolder             bool   `json:"IsFolder"`
	CollectionType       string `json:"CollectionType,omitempty"`
	MediaType            string `json:"MediaType,omitempty"`
	LocationType         string `json:"LocationType,omitempty"`
	PlayAccess           string `json:"PlayAccess,omitempty"`
	VideoType            string `json:"VideoType,omitempty"`
	DisplayPreferencesID string `json:"DisplayPreferencesId,omitempty"`

	// Metadata
	Overview            string     `json:"Overview,omitempty"`
	Taglines            []string   `json:"Taglines,omitempty"`
	DateCreated         *time.Time `json:"DateCreated,omitempty"`
	PremiereDate        *time.Time `json:"PremiereDate,omitempty"`
	ProductionYear      int        `json:"ProductionYear,omitempty"`
	CommunityRating     *float64   `json:"CommunityRating,omitempty"` // 0-10
	CriticRating        *int       `json:"CriticRating,omitempty"`    // 0-100
	OfficialRating      string     `json:"OfficialRating,omitempty"`
	IndexNumber         *int       `json:"IndexNumber,omitempty"`
	ProductionLocations []string   `json:"ProductionLocations,omitempty"`

	// Relations
	Genres       []string          `json:"Genres"`
	GenreItems   []NameGuidPair    `json:"GenreItems"`
	Tags         []string          `json:"Tags"`
	Studios      []NameGuidPair    `json:"Studios"`
	People       []BaseItemPerson  `json:"People"`
	ProviderIDs  map[string]string `json:"ProviderIds"`
	ExternalURLs []ExternalURL     `json:"ExternalUrls"`

	// Counts
	ChildCount          *int `json:"ChildCount,omitempty"`
	RecursiveItemCount  *int `json:"RecursiveItemCount,omitempty"`
	MovieCount          *int `json:"MovieCount,omitempty"`
	LocalTrailerCount   int  `json:"LocalTrailerCount"`
	SpecialFeatureCount int  `json:"SpecialFeatureCount"`

	// Media
	RunTimeTicks int64             `json:"RunTimeTicks,omitempty"`
	Container    string            `json:"Container,omitempty"`
	Width        int               `json:"Width,omitempty"`
	Height       int               `json:"Height,omitempty"`
	MediaSources []MediaSourceInfo `json:"MediaSources,omitempty"`
	MediaStreams []MediaStream     `json:"MediaStreams,omitempty"`
	HasSubtitles bool              `json:"HasSubtitles"`
	CanDelete    bool              `json:"CanDelete"`
	CanDownload  bool              `json:"CanDownload"`
	Chapters     []ChapterInfo     `json:"Chapters,omitempty"`

	// Images
	ImageTags               map[string]string `json:"ImageTags"`
	BackdropImageTags       []string          `json:"BackdropImageTags"`
	PrimaryImageAspectRatio float64           `json:"PrimaryImageAspectRatio,omitempty"`
	ParentBackdropItemID    string            `json:"ParentBackdropItemId,omitempty"`
	ParentBackdropImageTags []string          `json:"ParentBackdropImageTags,omitempty"`

	UserData *UserItemDataDto `json:"UserData,omitempty"`
}

// NewBaseItem returns an item with every array field initialized.
func NewBaseItem(serverID, id, name, itemType string) BaseItemDto {
	return BaseItemDto{
		Name:              name,
		ServerID:          serverID,
		ID:                id,
		Type:              itemType,
		Genres:            []string{},
		GenreItems:        []NameGuidPair{},
		Tags:              []string{},
		Studios:           []NameGuidPair{},
		People:            []BaseItemPerson{},
		ProviderIDs:       map[string]string{},
		ExternalURLs:      []ExternalURL{},
		ImageTags:         map[string]string{},
		BackdropImageTags: []string{},
	}
}

// ExternalURL links an item to another site.
type ExternalURL struct {
	Name string `json:"Name"`
	URL  string `json:"Url"`
}

// ChapterInfo is a chapter marker.
type ChapterInfo struct {
	StartPositionTicks int64  `json:"StartPositionTicks"`
	Name               string `json:"Name"`
	ImageTag           string `json:"ImageTag,omitempty"`
}

// QueryResult is Jellyfin's paged list envelope. TotalRecordCount is the
// size of the whole result, not of Items.
type QueryResult[T any] struct {
	Items            []T `json:"Items"`
	TotalRecordCount int `json:"TotalRecordCount"`
	StartIndex       int `json:"StartIndex"`
}

// NewQueryResult wraps items, replacing nil with an empty slice.
func NewQueryResult[T any](items []T, total, startIndex int) QueryResult[T] {
	if items == nil {
		items = []T{}
	}
	return QueryResult[T]{Items: items, TotalRecordCount: total, StartIndex: startIndex}
}

// ImageInfo describes one image of an item.
type ImageInfo struct {
	ImageType  string `json:"ImageType"`
	ImageIndex *int   `json:"ImageIndex,omitempty"`
	ImageTag   string `json:"ImageTag"`
	Width      int    `json:"Width,omitempty"`
	Height     int    `json:"Height,omitempty"`
	Size       int64  `json:"Size,omitempty"`
}
