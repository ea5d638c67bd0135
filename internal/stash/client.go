// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
client.go - Stash GraphQL API Client

Every call is a POST to {url}/graphql authenticated with the ApiKey header.
Each attempt carries its own timeout; transient failures (network errors,
timeouts, 5xx, 429) are retried once after RetryDelay.
*/

package stash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/time/rate"

	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
)

// Ensure Client implements Backend
var _ Backend = (*Client)(nil)

// APIKeyHeader is the header Stash reads the API key from.
const APIKeyHeader = "ApiKey"

const (
	maxResponseBytes = 64 << 20
	maxErrorBody     = 64 << 10
	maxAttempts      = 2
)

// Config configures a Client.
type Config struct {
	URL    string
	APIKey string
	// Timeout bounds each GraphQL attempt and each FetchAsset call.
	Timeout    time.Duration
	RetryDelay time.Duration
	// StreamHeaderTimeout bounds the wait for response headers on OpenAsset.
	// The body of a stream has no deadline.
	StreamHeaderTimeout time.Duration
	// MaxQPS shapes the rate of GraphQL requests. Zero disables the limit.
	MaxQPS float64
	// MaxAssetBytes caps FetchAsset downloads.
	MaxAssetBytes int64
}

// Client talks to the Stash GraphQL API.
type Client struct {
	base          *url.URL
	endpoint      string
	apiKey        string
	timeout       time.Duration
	retryDelay    time.Duration
	maxAssetBytes int64
	limiter       *rate.Limiter
	httpClient    *http.Client
	streamClient  *http.Client
}

// NewClient creates a Stash client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid stash url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid stash url %q: scheme must be http or https", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.StreamHeaderTimeout <= 0 {
		cfg.StreamHeaderTimeout = 30 * time.Second
	}
	if cfg.MaxAssetBytes <= 0 {
		cfg.MaxAssetBytes = 32 << 20
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxQPS), int(cfg.MaxQPS)+1)
	}

	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = cfg.StreamHeaderTimeout
	streamTransport.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	// Stash serves media as-is; transparent gzip would break byte ranges.
	streamTransport.DisableCompression = true

	return &Client{
		base:          base,
		endpoint:      base.JoinPath("graphql").String(),
		apiKey:        cfg.APIKey,
		timeout:       cfg.Timeout,
		retryDelay:    cfg.RetryDelay,
		maxAssetBytes: cfg.MaxAssetBytes,
		limiter:       limiter,
		httpClient:    &http.Client{},
		streamClient:  &http.Client{Transport: streamTransport},
	}, nil
}

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors gqlerror.List   `json:"errors"`
}

// transientError marks failures worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// do runs a GraphQL operation and decodes data into out.
func (c *Client) do(ctx context.Context, doc document, vars map[string]any, out any) error {
	start := time.Now()
	err := c.withRetry(ctx, doc, func(ctx context.Context) error {
		return c.doOnce(ctx, doc, vars, out)
	})
	metrics.RecordBackendQuery(doc.name, time.Since(start), errorType(err))
	return err
}

// withRetry runs fn once, and once more after a backoff when the first
// failure was transient and the operation is safe to repeat.
func (c *Client) withRetry(ctx context.Context, doc document, fn func(context.Context) error) error {
	var err error
	delay := c.retryDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		// The caller went away; nothing to retry for.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(err) || !doc.retry {
			break
		}

		if attempt < maxAttempts-1 {
			metrics.BackendRetries.WithLabelValues(doc.name).Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("operation", doc.name).Dur("delay", delay).Msg("Retrying Stash request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	if isTransient(err) {
		return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, doc.name, err)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, doc document, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &transientError{err: fmt.Errorf("rate limiter: %w", err)}
	}

	body, err := json.Marshal(graphQLRequest{
		OperationName: doc.name,
		Query:         doc.query,
		Variables:     vars,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", doc.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: fmt.Errorf("%s request failed: %w", doc.name, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(doc.name, resp)
	}

	var gr graphQLResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&gr); err != nil {
		if ctx.Err() != nil {
			return &transientError{err: fmt.Errorf("%s response: %w", doc.name, ctx.Err())}
		}
		return fmt.Errorf("failed to decode %s response: %w", doc.name, err)
	}
	if len(gr.Errors) > 0 {
		return &QueryError{Operation: doc.name, Errors: gr.Errors}
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", doc.name, err)
	}
	return nil
}

// statusError converts a non-200 response. Authentication failures and
// other 4xx answers are not retried but still mean Stash is unusable.
func statusError(operation string, resp *http.Response) error {
	body := readBodyForError(resp.Body)
	err := fmt.Errorf("%s returned status %d: %s", operation, resp.StatusCode, body)
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &transientError{err: err}
	}
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

func readBodyForError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return "(failed to read body)"
	}
	return strings.TrimSpace(string(data))
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
}

// errorType classifies err for metrics labels.
func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case IsQueryError(err):
		return "graphql"
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

func findFilterVars(f FindFilter) map[string]any {
	v := map[string]any{"per_page": f.PerPage}
	if f.Q != "" {
		v["q"] = f.Q
	}
	if f.Page > 0 {
		v["page"] = f.Page
	}
	if f.Sort != "" {
		v["sort"] = f.Sort
	}
	if f.Direction != "" {
		v["direction"] = f.Direction
	}
	return v
}

// FindScenes returns one page of scenes and the total match count.
func (c *Client) FindScenes(ctx context.Context, q SceneQuery) (*ScenePage, error) {
	vars := map[string]any{"filter": findFilterVars(q.Filter)}
	if len(q.SceneFilter) > 0 {
		vars["scene_filter"] = q.SceneFilter
	}
	if len(q.IDs) > 0 {
		ids := make([]int, 0, len(q.IDs))
		for _, id := range q.IDs {
			n, err := strconv.Atoi(id)
			if err != nil {
				return nil, fmt.Errorf("invalid scene id %q: %w", id, err)
			}
			ids = append(ids, n)
		}
		vars["scene_ids"] = ids
	}

	var data struct {
		FindScenes ScenePage `json:"findScenes"`
	}
	if err := c.do(ctx, docFindScenes, vars, &data); err != nil {
		return nil, err
	}
	return &data.FindScenes, nil
}

// FindScene returns a scene or ErrNotFound.
func (c *Client) FindScene(ctx context.Context, id string) (*Scene, error) {
	var data struct {
		FindScene *Scene `json:"findScene"`
	}
	if err := c.do(ctx, docFindScene, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.FindScene == nil {
		return nil, fmt.Errorf("%w: scene %s", ErrNotFound, id)
	}
	return data.FindScene, nil
}

func entityVars(q EntityQuery, filterName string) map[string]any {
	vars := map[string]any{"filter": findFilterVars(q.Filter)}
	if len(q.EntityFilter) > 0 {
		vars[filterName] = q.EntityFilter
	}
	return vars
}

// FindPerformers returns one page of performers.
func (c *Client) FindPerformers(ctx context.Context, q EntityQuery) (*PerformerPage, error) {
	var data struct {
		FindPerformers PerformerPage `json:"findPerformers"`
	}
	if err := c.do(ctx, docFindPerformers, entityVars(q, "performer_filter"), &data); err != nil {
		return nil, err
	}
	return &data.FindPerformers, nil
}

// FindPerformer returns a performer or ErrNotFound.
func (c *Client) FindPerformer(ctx context.Context, id string) (*Performer, error) {
	var data struct {
		FindPerformer *Performer `json:"findPerformer"`
	}
	if err := c.do(ctx, docFindPerformer, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.FindPerformer == nil {
		return nil, fmt.Errorf("%w: performer %s", ErrNotFound, id)
	}
	return data.FindPerformer, nil
}

// FindStudios returns one page of studios.
func (c *Client) FindStudios(ctx context.Context, q EntityQuery) (*StudioPage, error) {
	var data struct {
		FindStudios StudioPage `json:"findStudios"`
	}
	if err := c.do(ctx, docFindStudios, entityVars(q, "studio_filter"), &data); err != nil {
		return nil, err
	}
	return &data.FindStudios, nil
}

// FindStudio returns a studio or ErrNotFound.
func (c *Client) FindStudio(ctx context.Context, id string) (*Studio, error) {
	var data struct {
		FindStudio *Studio `json:"findStudio"`
	}
	if err := c.do(ctx, docFindStudio, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.FindStudio == nil {
		return nil, fmt.Errorf("%w: studio %s", ErrNotFound, id)
	}
	return data.FindStudio, nil
}

// FindGroups returns one page of groups.
func (c *Client) FindGroups(ctx context.Context, q EntityQuery) (*GroupPage, error) {
	var data struct {
		FindGroups GroupPage `json:"findGroups"`
	}
	if err := c.do(ctx, docFindGroups, entityVars(q, "group_filter"), &data); err != nil {
		return nil, err
	}
	return &data.FindGroups, nil
}

// FindGroup returns a group or ErrNotFound.
func (c *Client) FindGroup(ctx context.Context, id string) (*Group, error) {
	var data struct {
		FindGroup *Group `json:"findGroup"`
	}
	if err := c.do(ctx, docFindGroup, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.FindGroup == nil {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, id)
	}
	return data.FindGroup, nil
}

// FindTags returns one page of tags.
func (c *Client) FindTags(ctx context.Context, q EntityQuery) (*TagPage, error) {
	var data struct {
		FindTags TagPage `json:"findTags"`
	}
	if err := c.do(ctx, docFindTags, entityVars(q, "tag_filter"), &data); err != nil {
		return nil, err
	}
	return &data.FindTags, nil
}

// FindTag returns a tag or ErrNotFound.
func (c *Client) FindTag(ctx context.Context, id string) (*Tag, error) {
	var data struct {
		FindTag *Tag `json:"findTag"`
	}
	if err := c.do(ctx, docFindTag, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.FindTag == nil {
		return nil, fmt.Errorf("%w: tag %s", ErrNotFound, id)
	}
	return data.FindTag, nil
}

// FindSavedFilters returns the saved scene filters.
func (c *Client) FindSavedFilters(ctx context.Context) ([]SavedFilter, error) {
	var data struct {
		FindSavedFilters []SavedFilter `json:"findSavedFilters"`
	}
	if err := c.do(ctx, docFindSavedFilters, map[string]any{"mode": "SCENES"}, &data); err != nil {
		return nil, err
	}
	return data.FindSavedFilters, nil
}

// FindSavedFilter returns a saved filter or ErrNotFound.
func (c *Client) FindSavedFilter(ctx context.Context, id string) (*SavedFilter, error) {
	var data struct {
		FindSavedFilter *SavedFilter `json:"findSavedFilter"`
	}
	if err := c.do(ctx, docFindSavedFilter, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.FindSavedFilter == nil {
		return nil, fmt.Errorf("%w: saved filter %s", ErrNotFound, id)
	}
	return data.FindSavedFilter, nil
}

// SaveSceneActivity stores the resume point and adds to the play duration.
func (c *Client) SaveSceneActivity(ctx context.Context, id string, resumeTime, playDuration float64) error {
	vars := map[string]any{"id": id, "resume_time": resumeTime}
	if playDuration > 0 {
		vars["playDuration"] = playDuration
	}
	return c.do(ctx, docSaveActivity, vars, nil)
}

// AddScenePlay records one play of a scene.
func (c *Client) AddScenePlay(ctx context.Context, id string) error {
	return c.do(ctx, docAddPlay, map[string]any{"id": id}, nil)
}

// ResetScenePlayCount clears the play history count of a scene.
func (c *Client) ResetScenePlayCount(ctx context.Context, id string) error {
	return c.do(ctx, docResetPlayCount, map[string]any{"id": id}, nil)
}

// SetFavorite sets the favorite flag of a performer, studio or tag.
func (c *Client) SetFavorite(ctx context.Context, kind FavoriteKind, id string, favorite bool) error {
	var doc document
	switch kind {
	case FavoritePerformer:
		doc = docPerformerFavorite
	case FavoriteStudio:
		doc = docStudioFavorite
	case FavoriteTag:
		doc = docTagFavorite
	default:
		return fmt.Errorf("unsupported favorite kind %q", kind)
	}
	return c.do(ctx, doc, map[string]any{"id": id, "favorite": favorite}, nil)
}

// Version returns the Stash server version.
func (c *Client) Version(ctx context.Context) (string, error) {
	var data struct {
		Version struct {
			Version string `json:"version"`
		} `json:"version"`
	}
	if err := c.do(ctx, docVersion, nil, &data); err != nil {
		return "", err
	}
	return data.Version.Version, nil
}
