// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package models

// ============================================================================
// Playback Models
// ============================================================================

// MediaStream is one elementary stream of a media source.
type MediaStream struct {
	Codec                  string  `json:"Codec,omitempty"`
	Type                   string  `json:"Type"` // "Video", "Audio"
	Index                  int     `json:"Index"`
	IsDefault              bool    `json:"IsDefault"`
	IsForced               bool    `json:"IsForced"`
	IsExternal             bool    `json:"IsExternal"`
	IsInterlaced           bool    `json:"IsInterlaced"`
	IsTextSubtitleStream   bool    `json:"IsTextSubtitleStream"`
	SupportsExternalStream bool    `json:"SupportsExternalStream"`
	Height                 int     `json:"Height,omitempty"`
	Width                  int     `json:"Width,omitempty"`
	BitRate                int64   `json:"BitRate,omitempty"`
	AverageFrameRate       float64 `json:"AverageFrameRate,omitempty"`
	RealFrameRate          float64 `json:"RealFrameRate,omitempty"`
	AspectRatio            string  `json:"AspectRatio,omitempty"`
	DisplayTitle           string  `json:"DisplayTitle,omitempty"`
	VideoRange             string  `json:"VideoRange,omitempty"`
	VideoRangeType         string  `json:"VideoRangeType,omitempty"`
	Language               string  `json:"Language,omitempty"`
}

// MediaSourceInfo describes how a client can fetch an item. The gateway
// offers direct play and direct stream only; Stash does the transcoding, if
// any, behind its own stream URL.
type MediaSourceInfo struct {
	Protocol                string            `json:"Protocol"`
	ID                      string            `json:"Id"`
	Path                    string            `json:"Path,omitempty"`
	Type                    string            `json:"Type"`
	Container               string            `json:"Container,omitempty"`
	Size                    int64             `json:"Size,omitempty"`
	Name                    string            `json:"Name"`
	IsRemote                bool              `json:"IsRemote"`
	ETag                    string            `json:"ETag,omitempty"`
	RunTimeTicks            int64             `json:"RunTimeTicks,omitempty"`
	Bitrate                 int64             `json:"Bitrate,omitempty"`
	SupportsTranscoding     bool              `json:"SupportsTranscoding"`
	SupportsDirectStream    bool              `json:"SupportsDirectStream"`
	SupportsDirectPlay      bool              `json:"SupportsDirectPlay"`
	SupportsProbing         bool              `json:"SupportsProbing"`
	IsInfiniteStream        bool              `json:"IsInfiniteStream"`
	RequiresOpening         bool              `json:"RequiresOpening"`
	RequiresClosing         bool              `json:"RequiresClosing"`
	RequiresLooping         bool              `json:"RequiresLooping"`
	ReadAtNativeFramerate   bool              `json:"ReadAtNativeFramerate"`
	VideoType               string            `json:"VideoType,omitempty"`
	MediaStreams            []MediaStream     `json:"MediaStreams"`
	MediaAttachments        []string          `json:"MediaAttachments"`
	Formats                 []string          `json:"Formats"`
	RequiredHTTPHeaders     map[string]string `json:"RequiredHttpHeaders"`
	DirectStreamURL         string            `json:"DirectStreamUrl,omitempty"`
	DefaultAudioStreamIndex *int              `json:"DefaultAudioStreamIndex,omitempty"`
}

// PlaybackInfoResponse answers /Items/{id}/PlaybackInfo.
type PlaybackInfoResponse struct {
	MediaSources  []MediaSourceInfo `json:"MediaSources"`
	PlaySessionID string            `json:"PlaySessionId"`
}

// PlaybackProgressInfo is the body of the /Sessions/Playing reports. Start,
// progress and stop share it.
type PlaybackProgressInfo struct {
	ItemID        string `json:"ItemId"`
	MediaSourceID string `json:"MediaSourceId"`
	PlaySessionID string `json:"PlaySessionId"`
	PositionTicks *int64 `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	Failed        bool   `json:"Failed"`
	EventName     string `json:"EventName"`
}

// MediaSegmentDto is an intro/outro marker. Stash has none, so lists of
// these are always empty.
type MediaSegmentDto struct {
	ID         string `json:"Id"`
	ItemID     string `json:"ItemId"`
	Type       string `json:"Type"`
	StartTicks int64  `json:"StartTicks"`
	EndTicks   int64  `json:"EndTicks"`
}
