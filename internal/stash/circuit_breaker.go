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
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
)

// Ensure CircuitBreakerClient implements Backend
var _ Backend = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps a Backend with the circuit breaker pattern so a
// dead Stash fails requests fast instead of tying up handlers until timeout.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker) for its
// interval and timeout. Tests exercise the wrapped client directly or drive
// the breaker with consecutive failures.
type CircuitBreakerClient struct {
	client Backend
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient wraps client.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewCircuitBreakerClient(client Backend) *CircuitBreakerClient {
	cbName := "stash-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening Stash circuit")
			}

			return shouldTrip
		},

		// Only an unreachable backend counts against the circuit. Missing
		// entities, GraphQL errors and client disconnects are answers.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrBackendUnavailable)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

// execute wraps a Stash call with circuit breaker protection. Rejections
// surface as ErrBackendUnavailable.
func (cbc *CircuitBreakerClient) execute(fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if errors.Is(err, ErrBackendUnavailable) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
			counts := cbc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)

	return result, nil
}

// castResult type-asserts the breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// call runs a typed Stash call through the breaker.
func call[T any](cbc *CircuitBreakerClient, fn func() (T, error)) (T, error) {
	return castResult[T](cbc.execute(func() (any, error) {
		return fn()
	}))
}

// exec runs a Stash call without a result through the breaker.
func (cbc *CircuitBreakerClient) exec(fn func() error) error {
	_, err := cbc.execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// FindScenes with circuit breaker protection
func (cbc *CircuitBreakerClient) FindScenes(ctx context.Context, q SceneQuery) (*ScenePage, error) {
	return call(cbc, func() (*ScenePage, error) { return cbc.client.FindScenes(ctx, q) })
}

// FindScene with circuit breaker protection
func (cbc *CircuitBreakerClient) FindScene(ctx context.Context, id string) (*Scene, error) {
	return call(cbc, func() (*Scene, error) { return cbc.client.FindScene(ctx, id) })
}

// FindPerformers with circuit breaker protection
func (cbc *CircuitBreakerClient) FindPerformers(ctx context.Context, q EntityQuery) (*PerformerPage, error) {
	return call(cbc, func() (*PerformerPage, error) { return cbc.client.FindPerformers(ctx, q) })
}

// FindPerformer with circuit breaker protection
func (cbc *CircuitBreakerClient) FindPerformer(ctx context.Context, id string) (*Performer, error) {
	return call(cbc, func() (*Performer, error) { return cbc.client.FindPerformer(ctx, id) })
}

// FindStudios with circuit breaker protection
func (cbc *CircuitBreakerClient) FindStudios(ctx context.Context, q EntityQuery) (*StudioPage, error) {
	return call(cbc, func() (*StudioPage, error) { return cbc.client.FindStudios(ctx, q) })
}

// FindStudio with circuit breaker protection
func (cbc *CircuitBreakerClient) FindStudio(ctx context.Context, id string) (*Studio, error) {
	return call(cbc, func() (*Studio, error) { return cbc.client.FindStudio(ctx, id) })
}

// FindGroups with circuit breaker protection
func (cbc *CircuitBreakerClient) FindGroups(ctx context.Context, q EntityQuery) (*GroupPage, error) {
	return call(cbc, func() (*GroupPage, error) { return cbc.client.FindGroups(ctx, q) })
}

// FindGroup with circuit breaker protection
func (cbc *CircuitBreakerClient) FindGroup(ctx context.Context, id string) (*Group, error) {
	return call(cbc, func() (*Group, error) { return cbc.client.FindGroup(ctx, id) })
}

// FindTags with circuit breaker protection
func (cbc *CircuitBreakerClient) FindTags(ctx context.Context, q EntityQuery) (*TagPage, error) {
	return call(cbc, func() (*TagPage, error) { return cbc.client.FindTags(ctx, q) })
}

// FindTag with circuit breaker protection
func (cbc *CircuitBreakerClient) FindTag(ctx context.Context, id string) (*Tag, error) {
	return call(cbc, func() (*Tag, error) { return cbc.client.FindTag(ctx, id) })
}

// FindSavedFilters with circuit breaker protection
func (cbc *CircuitBreakerClient) FindSavedFilters(ctx context.Context) ([]SavedFilter, error) {
	return call(cbc, func() ([]SavedFilter, error) { return cbc.client.FindSavedFilters(ctx) })
}

// FindSavedFilter with circuit breaker protection
func (cbc *CircuitBreakerClient) FindSavedFilter(ctx context.Context, id string) (*SavedFilter, error) {
	return call(cbc, func() (*SavedFilter, error) { return cbc.client.FindSavedFilter(ctx, id) })
}

// SaveSceneActivity with circuit breaker protection
func (cbc *CircuitBreakerClient) SaveSceneActivity(ctx context.Context, id string, resumeTime, playDuration float64) error {
	return cbc.exec(func() error { return cbc.client.SaveSceneActivity(ctx, id, resumeTime, playDuration) })
}

// AddScenePlay with circuit breaker protection
func (cbc *CircuitBreakerClient) AddScenePlay(ctx context.Context, id string) error {
	return cbc.exec(func() error { return cbc.client.AddScenePlay(ctx, id) })
}

// ResetScenePlayCount with circuit breaker protection
func (cbc *CircuitBreakerClient) ResetScenePlayCount(ctx context.Context, id string) error {
	return cbc.exec(func() error { return cbc.client.ResetScenePlayCount(ctx, id) })
}

// SetFavorite with circuit breaker protection
func (cbc *CircuitBreakerClient) SetFavorite(ctx context.Context, kind FavoriteKind, id string, favorite bool) error {
	return cbc.exec(func() error { return cbc.client.SetFavorite(ctx, kind, id, favorite) })
}

// Version with circuit breaker protection
func (cbc *CircuitBreakerClient) Version(ctx context.Context) (string, error) {
	return call(cbc, func() (string, error) { return cbc.client.Version(ctx) })
}

// OpenAsset with circuit breaker protection. Only opening the stream is
// guarded; the body is read outside the breaker.
func (cbc *CircuitBreakerClient) OpenAsset(ctx context.Context, assetURL, rangeHeader string) (*http.Response, error) {
	return call(cbc, func() (*http.Response, error) { return cbc.client.OpenAsset(ctx, assetURL, rangeHeader) })
}

// FetchAsset with circuit breaker protection
func (cbc *CircuitBreakerClient) FetchAsset(ctx context.Context, assetURL string) ([]byte, string, error) {
	type asset struct {
		data        []byte
		contentType string
	}
	a, err := call(cbc, func() (asset, error) {
		data, ct, err := cbc.client.FetchAsset(ctx, assetURL)
		return asset{data: data, contentType: ct}, err
	})
	if err != nil {
		return nil, "", err
	}
	return a.data, a.contentType, nil
}
