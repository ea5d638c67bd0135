// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package models

import "time"

// ============================================================================
// User and Session Models
// ============================================================================

// AuthenticateUserByName is the body of POST /Users/AuthenticateByName.
// Older clients send the password as "Password", newer ones as "Pw".
type AuthenticateUserByName struct {
	Username string `json:"Username" validate:"required,max=256"`
	Pw       string `json:"Pw" validate:"max=1024"`
	Password string `json:"Password" validate:"max=1024"`
}

// Secret returns whichever password field the client filled in.
func (a *AuthenticateUserByName) Secret() string {
	if a.Pw != "" {
		return a.Pw
	}
	return a.Password
}

// UserConfiguration holds client-visible user preferences.
type UserConfiguration struct {
	PlayDefaultAudioTrack      bool     `json:"PlayDefaultAudioTrack"`
	SubtitleLanguagePreference string   `json:"SubtitleLanguagePreference"`
	DisplayMissingEpisodes     bool     `json:"DisplayMissingEpisodes"`
	GroupedFolders             []string `json:"GroupedFolders"`
	SubtitleMode               string   `json:"SubtitleMode"`
	DisplayCollectionsView     bool     `json:"DisplayCollectionsView"`
	EnableLocalPassword        bool     `json:"EnableLocalPassword"`
	OrderedViews               []string `json:"OrderedViews"`
	LatestItemsExcludes        []string `json:"LatestItemsExcludes"`
	MyMediaExcludes            []string `json:"MyMediaExcludes"`
	HidePlayedInLatest         bool     `json:"HidePlayedInLatest"`
	RememberAudioSelections    bool     `json:"RememberAudioSelections"`
	RememberSubtitleSelections bool     `json:"RememberSubtitleSelections"`
	EnableNextEpisodeAutoPlay  bool     `json:"EnableNextEpisodeAutoPlay"`
}

// UserPolicy holds the user's permissions. The single gateway user can play
// and download everything but cannot administer a server that does not
// exist.
type UserPolicy struct {
	IsAdministrator                bool     `json:"IsAdministrator"`
	IsHidden                       bool     `json:"IsHidden"`
	IsDisabled                     bool     `json:"IsDisabled"`
	EnableUserPreferenceAccess     bool     `json:"EnableUserPreferenceAccess"`
	EnableRemoteAccess             bool     `json:"EnableRemoteAccess"`
	EnableMediaPlayback            bool     `json:"EnableMediaPlayback"`
	EnableAudioPlaybackTranscoding bool     `json:"EnableAudioPlaybackTranscoding"`
	EnableVideoPlaybackTranscoding bool     `json:"EnableVideoPlaybackTranscoding"`
	EnablePlaybackRemuxing         bool     `json:"EnablePlaybackRemuxing"`
	EnableContentDeletion          bool     `json:"EnableContentDeletion"`
	EnableContentDownloading       bool     `json:"EnableContentDownloading"`
	EnableAllDevices               bool     `json:"EnableAllDevices"`
	EnableAllChannels              bool     `json:"EnableAllChannels"`
	EnableAllFolders               bool     `json:"EnableAllFolders"`
	EnablePublicSharing            bool     `json:"EnablePublicSharing"`
	BlockedTags                    []string `json:"BlockedTags"`
	EnabledFolders                 []string `json:"EnabledFolders"`
	AuthenticationProviderID       string   `json:"AuthenticationProviderId"`
	PasswordResetProviderID        string   `json:"PasswordResetProviderId"`
	SyncPlayAccess                 string   `json:"SyncPlayAccess"`
}

// UserDto is a Jellyfin user.
type UserDto struct {
	Name                      string            `json:"Name"`
	ServerID                  string            `json:"ServerId"`
	ID                        string            `json:"Id"`
	HasPassword               bool              `json:"HasPassword"`
	HasConfiguredPassword     bool              `json:"HasConfiguredPassword"`
	HasConfiguredEasyPassword bool              `json:"HasConfiguredEasyPassword"`
	EnableAutoLogin           bool              `json:"EnableAutoLogin"`
	LastLoginDate             *time.Time        `json:"LastLoginDate,omitempty"`
	LastActivityDate          *time.Time        `json:"LastActivityDate,omitempty"`
	Configuration             UserConfiguration `json:"Configuration"`
	Policy                    UserPolicy        `json:"Policy"`
}

// NewUser returns the gateway's single user.
func NewUser(serverID, userID, name string) UserDto {
	return UserDto{
		Name:                  name,
		ServerID:              serverID,
		ID:                    userID,
		HasPassword:           true,
		HasConfiguredPassword: true,
		Configuration: UserConfiguration{
			PlayDefaultAudioTrack:      true,
			SubtitleMode:               "Default",
			GroupedFolders:             []string{},
			OrderedViews:               []string{},
			LatestItemsExcludes:        []string{},
			MyMediaExcludes:            []string{},
			HidePlayedInLatest:         true,
			RememberAudioSelections:    true,
			RememberSubtitleSelections: true,
			EnableNextEpisodeAutoPlay:  true,
		},
		Policy: UserPolicy{
			IsAdministrator:            true,
			EnableUserPreferenceAccess: true,
			EnableRemoteAccess:         true,
			EnableMediaPlayback:        true,
			EnableContentDownloading:   true,
			EnableAllDevices:           true,
			EnableAllChannels:          true,
			EnableAllFolders:           true,
			BlockedTags:                []string{},
			EnabledFolders:             []string{},
			AuthenticationProviderID:   "Jellyfin.Server.Implementations.Users.DefaultAuthenticationProvider",
			PasswordResetProviderID:    "Jellyfin.Server.Implementations.Users.DefaultPasswordResetProvider",
			SyncPlayAccess:             "None",
		},
	}
}

// SessionInfo describes a connected client session.
type SessionInfo struct {
	ID                    string       `json:"Id"`                 // Session identifier
	UserID                string       `json:"UserId"`             // Owning user
	UserName              string       `json:"UserName"`           // Owning user's name
	Client                string       `json:"Client"`             // Client application name
	DeviceID              string       `json:"DeviceId"`           // Unique device identifier
	DeviceName            string       `json:"DeviceName"`         // Device friendly name
	ApplicationVersion    string       `json:"ApplicationVersion"` // Client version
	RemoteEndPoint        string       `json:"RemoteEndPoint"`     // Client address
	LastActivityDate      time.Time    `json:"LastActivityDate"`
	IsActive              bool         `json:"IsActive"`
	SupportsMediaControl  bool         `json:"SupportsMediaControl"`
	SupportsRemoteControl bool         `json:"SupportsRemoteControl"`
	PlayableMediaTypes    []string     `json:"PlayableMediaTypes"`
	AdditionalUsers       []string     `json:"AdditionalUsers"`
	ServerID              string       `json:"ServerId"`
	NowPlayingItem        *BaseItemDto `json:"NowPlayingItem,omitempty"`
}

// AuthenticationResult answers a successful login.
type AuthenticationResult struct {
	User        UserDto     `json:"User"`
	SessionInfo SessionInfo `json:"SessionInfo"`
	AccessToken string      `json:"AccessToken"`
	ServerID    string      `json:"ServerId"`
}
