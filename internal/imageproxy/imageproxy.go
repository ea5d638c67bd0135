// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package imageproxy serves Stash artwork to Jellyfin clients, resized to
// the requested bounds and cached in memory.
package imageproxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/stashbridge/internal/cache"
	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
	"github.com/tomtom215/stashbridge/internal/stash"
)

// ErrNotFound is returned when an item has no image of the requested type.
var ErrNotFound = errors.New("image not found")

// Fetcher downloads an asset from Stash.
type Fetcher interface {
	FetchAsset(ctx context.Context, assetURL string) ([]byte, string, error)
}

// Image is an encoded image ready to send.
type Image struct {
	Data        []byte
	ContentType string
	ETag        string
	ModTime     time.Time
}

func newImage(data []byte, contentType string, now time.Time) *Image {
	sum := sha256.Sum256(data)
	return &Image{
		Data:        data,
		ContentType: contentType,
		ETag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		ModTime:     now,
	}
}

// Size holds the Jellyfin sizing parameters. Zero fields are unset.
type Size struct {
	Width      int
	Height     int
	MaxWidth   int
	MaxHeight  int
	FillWidth  int
	FillHeight int
	Quality    int
}

// IsZero reports whether no sizing was requested.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0 && s.MaxWidth == 0 &&
		s.MaxHeight == 0 && s.FillWidth == 0 && s.FillHeight == 0
}

func (s Size) key() string {
	return fmt.Sprintf("%dx%d|%dx%d|%dx%d|q%d",
		s.Width, s.Height, s.MaxWidth, s.MaxHeight, s.FillWidth, s.FillHeight, s.Quality)
}

// Image types as Jellyfin names them.
const (
	TypePrimary  = "primary"
	TypeThumb    = "thumb"
	TypeBackdrop = "backdrop"
	TypeLogo     = "logo"
	TypeBanner   = "banner"
)

// assetPaths maps an entity kind and image type onto the Stash asset route.
var assetPaths = map[identity.Kind]map[string]string{
	identity.KindScene: {
		TypePrimary:  "/scene/%s/screenshot",
		TypeThumb:    "/scene/%s/screenshot",
		TypeBackdrop: "/scene/%s/screenshot",
	},
	identity.KindPerformer: {
		TypePrimary: "/performer/%s/image",
	},
	identity.KindStudio: {
		TypePrimary: "/studio/%s/image",
		TypeThumb:   "/studio/%s/image",
		TypeLogo:    "/studio/%s/image",
	},
	identity.KindGroup: {
		TypePrimary:  "/group/%s/frontimage",
		TypeBackdrop: "/group/%s/backimage",
	},
	identity.KindTag: {
		TypePrimary: "/tag/%s/image",
	},
	identity.KindTagGroup: {
		TypePrimary: "/tag/%s/image",
	},
}

// HasImage reports whether items of kind carry an image of imageType.
func HasImage(kind identity.Kind, imageType string) bool {
	_, ok := assetPaths[kind][strings.ToLower(imageType)]
	return ok
}

// AssetPath returns the Stash asset route for an item's image.
func AssetPath(ref identity.Ref, imageType string) (string, bool) {
	pattern, ok := assetPaths[ref.Kind][strings.ToLower(imageType)]
	if !ok {
		return "", false
	}
	return fmt.Sprintf(pattern, ref.ID), true
}

// Config configures the proxy.
type Config struct {
	CacheEntries int
	CacheBytes   int64
	CacheTTL     time.Duration

	// JPEGQuality is used when the client does not ask for one.
	JPEGQuality int

	// MaxDimension caps requested widths and heights.
	MaxDimension int
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		CacheEntries: 2000,
		CacheBytes:   256 << 20,
		CacheTTL:     time.Hour,
		JPEGQuality:  85,
		MaxDimension: 4096,
	}
}

// Proxy fetches, resizes and caches images. Concurrent misses for the same
// image share one backend fetch.
type Proxy struct {
	fetcher Fetcher
	cfg     Config
	cache   *cache.LRUCache[*Image]
	flight  singleflight.Group
	now     func() time.Time
}

// New returns a Proxy.
func New(fetcher Fetcher, cfg Config) *Proxy {
	def := DefaultConfig()
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = def.MaxDimension
	}
	p := &Proxy{fetcher: fetcher, cfg: cfg, now: time.Now}
	p.cache = cache.NewLRUCache(cache.Options[*Image]{
		MaxEntries: cfg.CacheEntries,
		MaxBytes:   cfg.CacheBytes,
		TTL:        cfg.CacheTTL,
		Size:       func(img *Image) int64 { return int64(len(img.Data)) },
		OnEvict:    func(string, *Image) { metrics.ImageCacheEvictions.Inc() },
	})
	return p
}

// GetImage returns the image of imageType for ref, resized to size. A
// resize failure serves the original bytes.
func (p *Proxy) GetImage(ctx context.Context, ref identity.Ref, imageType string, size Size) (*Image, error) {
	path, ok := AssetPath(ref, imageType)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s image", ErrNotFound, ref, imageType)
	}
	size = p.clamp(size)

	original, err := p.cached(ctx, path+"|orig", func(ctx context.Context) (*Image, error) {
		data, contentType, err := p.fetcher.FetchAsset(ctx, path)
		if err != nil {
			if errors.Is(err, stash.ErrNotFound) {
				return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
			}
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty image for %s", ErrNotFound, ref)
		}
		return newImage(data, contentType, p.now()), nil
	})
	if err != nil || size.IsZero() {
		return original, err
	}

	return p.cached(ctx, path+"|"+size.key(), func(context.Context) (*Image, error) {
		data, contentType, err := resize(original.Data, size, p.cfg.JPEGQuality)
		if err != nil {
			metrics.ImageResizeFailures.Inc()
			logging.CtxDebug(ctx).Err(err).Str("asset", path).Msg("Image resize failed, serving original")
			return original, nil
		}
		return newImage(data, contentType, original.ModTime), nil
	})
}

// cached returns the cache entry for key or builds it once, however many
// callers miss at the same time. The build runs detached from any single
// caller's cancellation; each caller still stops waiting when its own
// context ends.
func (p *Proxy) cached(ctx context.Context, key string, build func(context.Context) (*Image, error)) (*Image, error) {
	if img, ok := p.cache.Get(key); ok {
		metrics.RecordImageCache(true)
		return img, nil
	}
	metrics.RecordImageCache(false)

	ch := p.flight.DoChan(key, func() (any, error) {
		if img, ok := p.cache.Get(key); ok {
			return img, nil
		}
		img, err := build(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		p.cache.Add(key, img)
		metrics.ImageCacheBytes.Set(float64(p.cache.Bytes()))
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Image), nil
	}
}

func (p *Proxy) clamp(s Size) Size {
	limit := func(v int) int {
		if v < 0 {
			return 0
		}
		return min(v, p.cfg.MaxDimension)
	}
	s.Width = limit(s.Width)
	s.Height = limit(s.Height)
	s.MaxWidth = limit(s.MaxWidth)
	s.MaxHeight = limit(s.MaxHeight)
	s.FillWidth = limit(s.FillWidth)
	s.FillHeight = limit(s.FillHeight)
	if s.Quality < 0 || s.Quality > 100 {
		s.Quality = 0
	}
	return s
}

// Purge drops expired cache entries. It returns the number removed.
func (p *Proxy) Purge() int {
	n := p.cache.CleanupExpired()
	metrics.ImageCacheBytes.Set(float64(p.cache.Bytes()))
	return n
}

// ParseSize reads Jellyfin sizing query parameters. Unparseable values are
// ignored.
func ParseSize(get func(string) string) Size {
	atoi := func(name string) int {
		v := get(name)
		if v == "" {
			return 0
		}
		// Some clients send fractional sizes.
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return 0
		}
		return int(f)
	}
	return Size{
		Width:      atoi("width"),
		Height:     atoi("height"),
		MaxWidth:   atoi("maxWidth"),
		MaxHeight:  atoi("maxHeight"),
		FillWidth:  atoi("fillWidth"),
		FillHeight: atoi("fillHeight"),
		Quality:    atoi("quality"),
	}
}
