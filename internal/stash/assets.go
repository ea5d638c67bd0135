// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package stash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/stashbridge/internal/metrics"
)

// resolveAsset rebases an asset URL reported by Stash onto the configured
// base URL. Stash builds asset URLs from its own notion of its host, which
// is often unreachable from the gateway (container names, reverse proxies).
func (c *Client) resolveAsset(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty asset url", ErrNotFound)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid asset url %q: %w", raw, err)
	}
	resolved := *c.base
	resolved.Path = u.Path
	resolved.RawPath = u.RawPath
	resolved.RawQuery = u.RawQuery
	resolved.Fragment = ""
	return resolved.String(), nil
}

// OpenAsset starts a streaming GET. It returns once response headers arrive;
// the body is read by the caller under ctx. A 404 maps to ErrNotFound and any
// failure to get headers maps to ErrBackendUnavailable.
func (c *Client) OpenAsset(ctx context.Context, assetURL, rangeHeader string) (*http.Response, error) {
	target, err := c.resolveAsset(assetURL)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	c.authorize(req)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordBackendQuery("OpenAsset", time.Since(start), "unavailable")
		return nil, fmt.Errorf("%w: open asset: %v", ErrBackendUnavailable, err)
	}
	metrics.RecordBackendQuery("OpenAsset", time.Since(start), "")

	switch {
	case resp.StatusCode == http.StatusOK,
		resp.StatusCode == http.StatusPartialContent,
		resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: asset %s", ErrNotFound, target)
	default:
		body := readBodyForError(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: asset returned status %d: %s", ErrBackendUnavailable, resp.StatusCode, body)
	}
}

// errAssetTooLarge is returned when an asset exceeds MaxAssetBytes.
var errAssetTooLarge = errors.New("asset exceeds size limit")

// FetchAsset downloads an asset into memory and returns it with its content
// type. Used for images.
func (c *Client) FetchAsset(ctx context.Context, assetURL string) ([]byte, string, error) {
	target, err := c.resolveAsset(assetURL)
	if err != nil {
		return nil, "", err
	}

	var (
		data        []byte
		contentType string
	)
	doc := document{name: "FetchAsset", retry: true}
	start := time.Now()
	err = c.withRetry(ctx, doc, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request failed: %w", err)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &transientError{err: fmt.Errorf("fetch asset: %w", err)}
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: asset %s", ErrNotFound, target)
		case resp.StatusCode != http.StatusOK:
			return statusError(doc.name, resp)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxAssetBytes+1))
		if err != nil {
			return &transientError{err: fmt.Errorf("read asset: %w", err)}
		}
		if int64(len(body)) > c.maxAssetBytes {
			return errAssetTooLarge
		}
		data = body
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	metrics.RecordBackendQuery(doc.name, time.Since(start), errorType(err))
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}
