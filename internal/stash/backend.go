// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Backend is the set of Stash operations the gateway uses. Client and
// CircuitBreakerClient implement it; tests use stashtest.Fake.
type Backend interface {
	FindScenes(ctx context.Context, q SceneQuery) (*ScenePage, error)
	FindScene(ctx context.Context, id string) (*Scene, error)
	FindPerformers(ctx context.Context, q EntityQuery) (*PerformerPage, error)
	FindPerformer(ctx context.Context, id string) (*Performer, error)
	FindStudios(ctx context.Context, q EntityQuery) (*StudioPage, error)
	FindStudio(ctx context.Context, id string) (*Studio, error)
	FindGroups(ctx context.Context, q EntityQuery) (*GroupPage, error)
	FindGroup(ctx context.Context, id string) (*Group, error)
	FindTags(ctx context.Context, q EntityQuery) (*TagPage, error)
	FindTag(ctx context.Context, id string) (*Tag, error)
	FindSavedFilters(ctx context.Context) ([]SavedFilter, error)
	FindSavedFilter(ctx context.Context, id string) (*SavedFilter, error)

	SaveSceneActivity(ctx context.Context, id string, resumeTime, playDuration float64) error
	AddScenePlay(ctx context.Context, id string) error
	ResetScenePlayCount(ctx context.Context, id string) error
	SetFavorite(ctx context.Context, kind FavoriteKind, id string, favorite bool) error

	Version(ctx context.Context) (string, error)

	// OpenAsset starts a GET for a Stash asset URL, forwarding rangeHeader
	// when non-empty. The caller closes the response body.
	OpenAsset(ctx context.Context, assetURL, rangeHeader string) (*http.Response, error)
	// FetchAsset downloads a small asset such as an image.
	FetchAsset(ctx context.Context, assetURL string) ([]byte, string, error)
}

var (
	// ErrNotFound means Stash has no entity with the requested id.
	ErrNotFound = errors.New("stash entity not found")

	// ErrBackendUnavailable means Stash could not be reached or did not
	// answer in time, including after the retry.
	ErrBackendUnavailable = errors.New("stash backend unavailable")
)

// QueryError carries GraphQL errors returned by Stash for an operation.
type QueryError struct {
	Operation string
	Errors    gqlerror.List
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		if ge != nil {
			msgs = append(msgs, ge.Message)
		}
	}
	return fmt.Sprintf("stash %s: %s", e.Operation, strings.Join(msgs, "; "))
}

// IsQueryError reports whether err carries GraphQL errors.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
