// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package models defines the Jellyfin wire schema the gateway speaks.

Field names follow the Jellyfin REST API (PascalCase JSON keys). Collections
that clients iterate are always encoded as arrays, never null, so the
constructors in this package initialize them.

Model Categories:

 1. Items: BaseItemDto, UserItemDataDto, NameGuidPair, BaseItemPerson,
    QueryResult, ImageInfo
 2. Users and sessions: UserDto, AuthenticationResult, SessionInfo,
    AuthenticateUserByName
 3. Playback: PlaybackInfoResponse, MediaSourceInfo, MediaStream,
    PlaybackProgressInfo
 4. System: PublicSystemInfo, SystemInfo, BrandingOptions
 5. Misc: DisplayPreferencesDto, SearchHintResult, QueryFilters,
    ItemCounts, VirtualFolderInfo, localization lists
*/
package models
