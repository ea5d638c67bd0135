// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package models

// DisplayPreferencesDto stores per-view client layout settings.
type DisplayPreferencesDto struct {
	ID                 string            `json:"Id"`
	ViewType           string            `json:"ViewType,omitempty"`
	SortBy             string            `json:"SortBy"`
	IndexBy            string            `json:"IndexBy,omitempty"`
	RememberIndexing   bool              `json:"RememberIndexing"`
	PrimaryImageHeight int               `json:"PrimaryImageHeight"`
	PrimaryImageWidth  int               `json:"PrimaryImageWidth"`
	CustomPrefs        map[string]string `json:"CustomPrefs"`
	ScrollDirection    string            `json:"ScrollDirection"`
	ShowBackdrop       bool              `json:"ShowBackdrop"`
	RememberSorting    bool              `json:"RememberSorting"`
	SortOrder          string            `json:"SortOrder"`
	ShowSidebar        bool              `json:"ShowSidebar"`
	Client             string            `json:"Client"`
}

// NewDisplayPreferences returns the defaults for a view.
func NewDisplayPreferences(id, client string) DisplayPreferencesDto {
	return DisplayPreferencesDto{
		ID:                 id,
		SortBy:             "SortName",
		PrimaryImageHeight: 250,
		PrimaryImageWidth:  250,
		CustomPrefs:        map[string]string{},
		ScrollDirection:    "Horizontal",
		ShowBackdrop:       true,
		SortOrder:          "Ascending",
		Client:             client,
	}
}

// SearchHint is one /Search/Hints match.
type SearchHint struct {
	ItemID          string `json:"ItemId"`
	ID              string `json:"Id"`
	Name            string `json:"Name"`
	Type            string `json:"Type"`
	MediaType       string `json:"MediaType,omitempty"`
	IsFolder        bool   `json:"IsFolder"`
	RunTimeTicks    int64  `json:"RunTimeTicks,omitempty"`
	ProductionYear  int    `json:"ProductionYear,omitempty"`
	PrimaryImageTag string `json:"PrimaryImageTag,omitempty"`
	MatchedTerm     string `json:"MatchedTerm,omitempty"`
}

// SearchHintResult answers /Search/Hints.
type SearchHintResult struct {
	SearchHints      []SearchHint `json:"SearchHints"`
	TotalRecordCount int          `json:"TotalRecordCount"`
}

// QueryFiltersLegacy answers /Items/Filters.
type QueryFiltersLegacy struct {
	Genres          []string `json:"Genres"`
	Tags            []string `json:"Tags"`
	OfficialRatings []string `json:"OfficialRatings"`
	Years           []int    `json:"Years"`
}

// QueryFilters answers /Items/Filters2.
type QueryFilters struct {
	Genres []NameGuidPair `json:"Genres"`
	Tags   []string       `json:"Tags"`
}

// ItemCounts answers /Items/Counts.
type ItemCounts struct {
	MovieCount      int `json:"MovieCount"`
	SeriesCount     int `json:"SeriesCount"`
	EpisodeCount    int `json:"EpisodeCount"`
	ArtistCount     int `json:"ArtistCount"`
	ProgramCount    int `json:"ProgramCount"`
	TrailerCount    int `json:"TrailerCount"`
	SongCount       int `json:"SongCount"`
	AlbumCount      int `json:"AlbumCount"`
	MusicVideoCount int `json:"MusicVideoCount"`
	BoxSetCount     int `json:"BoxSetCount"`
	BookCount       int `json:"BookCount"`
	ItemCount       int `json:"ItemCount"`
}

// VirtualFolderInfo describes a library to admin-style clients.
type VirtualFolderInfo struct {
	Name               string   `json:"Name"`
	Locations          []string `json:"Locations"`
	CollectionType     string   `json:"CollectionType"`
	ItemID             string   `json:"ItemId"`
	PrimaryImageItemID string   `json:"PrimaryImageItemId,omitempty"`
	RefreshStatus      string   `json:"RefreshStatus"`
}

// SpecialViewOption is an entry of /Users/{id}/GroupingOptions.
type SpecialViewOption struct {
	Name string `json:"Name"`
	ID   string `json:"Id"`
}

// ThemeMediaResult answers /Items/{id}/ThemeMedia.
type ThemeMediaResult struct {
	ThemeVideosResult     QueryResult[BaseItemDto] `json:"ThemeVideosResult"`
	ThemeSongsResult      QueryResult[BaseItemDto] `json:"ThemeSongsResult"`
	SoundtrackSongsResult QueryResult[BaseItemDto] `json:"SoundtrackSongsResult"`
}

// ============================================================================
// Localization Models
// ============================================================================

// CultureDto is a language entry.
type CultureDto struct {
	Name                        string   `json:"Name"`
	DisplayName                 string   `json:"DisplayName"`
	TwoLetterISOLanguageName    string   `json:"TwoLetterISOLanguageName"`
	ThreeLetterISOLanguageName  string   `json:"ThreeLetterISOLanguageName"`
	ThreeLetterISOLanguageNames []string `json:"ThreeLetterISOLanguageNames"`
}

// CountryInfo is a country entry.
type CountryInfo struct {
	Name                     string `json:"Name"`
	DisplayName              string `json:"DisplayName"`
	TwoLetterISORegionName   string `json:"TwoLetterISORegionName"`
	ThreeLetterISORegionName string `json:"ThreeLetterISORegionName"`
}

// ParentalRating is a rating entry.
type ParentalRating struct {
	Name  string `json:"Name"`
	Value int    `json:"Value"`
}

// LocalizationOption is a UI language entry.
type LocalizationOption struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}
