// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"net/http"

	"github.com/tomtom215/stashbridge/internal/models"
)

var cultures = []models.CultureDto{
	{Name: "English", DisplayName: "English", TwoLetterISOLanguageName: "en", ThreeLetterISOLanguageName: "eng", ThreeLetterISOLanguageNames: []string{"eng"}},
	{Name: "German", DisplayName: "German", TwoLetterISOLanguageName: "de", ThreeLetterISOLanguageName: "deu", ThreeLetterISOLanguageNames: []string{"deu", "ger"}},
	{Name: "French", DisplayName: "French", TwoLetterISOLanguageName: "fr", ThreeLetterISOLanguageName: "fra", ThreeLetterISOLanguageNames: []string{"fra", "fre"}},
	{Name: "Spanish", DisplayName: "Spanish", TwoLetterISOLanguageName: "es", ThreeLetterISOLanguageName: "spa", ThreeLetterISOLanguageNames: []string{"spa"}},
	{Name: "Japanese", DisplayName: "Japanese", TwoLetterISOLanguageName: "ja", ThreeLetterISOLanguageName: "jpn", ThreeLetterISOLanguageNames: []string{"jpn"}},
}

var countries = []models.CountryInfo{
	{Name: "US", DisplayName: "United States", TwoLetterISORegionName: "US", ThreeLetterISORegionName: "USA"},
	{Name: "GB", DisplayName: "United Kingdom", TwoLetterISORegionName: "GB", ThreeLetterISORegionName: "GBR"},
	{Name: "DE", DisplayName: "Germany", TwoLetterISORegionName: "DE", ThreeLetterISORegionName: "DEU"},
	{Name: "FR", DisplayName: "France", TwoLetterISORegionName: "FR", ThreeLetterISORegionName: "FRA"},
	{Name: "JP", DisplayName: "Japan", TwoLetterISORegionName: "JP", ThreeLetterISORegionName: "JPN"},
}

// Stash has no ratings; the list only fills client settings pages.
var parentalRatings = []models.ParentalRating{
	{Name: "Approved", Value: 0},
	{Name: "XXX", Value: 1000},
}

var localizationOptions = []models.LocalizationOption{
	{Name: "English", Value: "en-US"},
}

// Cultures answers GET /Localization/Cultures.
func (h *Handler) Cultures(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, cultures)
}

// Countries answers GET /Localization/Countries.
func (h *Handler) Countries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, countries)
}

// ParentalRatings answers GET /Localization/ParentalRatings.
func (h *Handler) ParentalRatings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, parentalRatings)
}

// LocalizationOptions answers GET /Localization/Options.
func (h *Handler) LocalizationOptions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, localizationOptions)
}

// emptyList answers endpoints whose Jellyfin form is a bare array the
// gateway has nothing to put in: plugins, recommendations, trailers and
// special features.
func (h *Handler) emptyList(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, []models.BaseItemDto{})
}

// emptyResult answers endpoints whose Jellyfin form is a query result, such
// as /Shows/NextUp. Stash has no series.
func (h *Handler) emptyResult(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, models.NewQueryResult[models.BaseItemDto](nil, 0, 0))
}

// ThemeMedia answers GET /Items/{itemId}/ThemeMedia.
func (h *Handler) ThemeMedia(w http.ResponseWriter, r *http.Request) {
	empty := models.NewQueryResult[models.BaseItemDto](nil, 0, 0)
	respondJSON(w, r, models.ThemeMediaResult{
		ThemeVideosResult:     empty,
		ThemeSongsResult:      empty,
		SoundtrackSongsResult: empty,
	})
}
