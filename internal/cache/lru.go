// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

// Package cache provides the bounded in-memory cache behind the image proxy.
package cache

import (
	"sync"
	"time"
)

// lruEntry is a node in the recency list.
type lruEntry[V any] struct {
	key       string
	value     V
	size      int64
	prev      *lruEntry[V]
	next      *lruEntry[V]
	expiresAt time.Time
}

// Options configures an LRUCache.
type Options[V any] struct {
	// MaxEntries bounds the number of entries. Defaults to 1000.
	MaxEntries int

	// MaxBytes bounds the summed Size of all entries. Zero means no byte
	// bound.
	MaxBytes int64

	// TTL is how long an entry stays fresh. Defaults to one hour.
	TTL time.Duration

	// Size reports the cost of a value in bytes. Required when MaxBytes is
	// set.
	Size func(V) int64

	// OnEvict is called, with the lock held, for entries dropped to make
	// room. Expired and explicitly removed entries do not trigger it.
	OnEvict func(key string, value V)

	// Now overrides the clock.
	Now func() time.Time
}

// LRUCache is a thread-safe least-recently-used cache bounded by entry count
// and total byte size, with lazy TTL expiry.
//
// It uses a doubly-linked list for ordering and a map for lookups so Get,
// Add and eviction are O(1).
type LRUCache[V any] struct {
	mu sync.Mutex

	maxEntries int
	maxBytes   int64
	ttl        time.Duration
	sizeOf     func(V) int64
	onEvict    func(string, V)
	now        func() time.Time

	items map[string]*lruEntry[V]
	bytes int64

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry[V]
	tail *lruEntry[V]

	hits   int64
	misses int64
}

// NewLRUCache creates an LRU cache.
func NewLRUCache[V any](opts Options[V]) *LRUCache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Size == nil {
		opts.Size = func(V) int64 { return 0 }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &LRUCache[V]{
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		ttl:        opts.TTL,
		sizeOf:     opts.Size,
		onEvict:    opts.OnEvict,
		now:        opts.Now,
		items:      make(map[string]*lruEntry[V]),
		head:       &lruEntry[V]{},
		tail:       &lruEntry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the value for key if present and fresh, marking it most
// recently used.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		c.removeEntry(entry)
		c.misses++
		return zero, false
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Add inserts or replaces key. A value larger than MaxBytes on its own is
// not stored. It returns false in that case.
func (c *LRUCache[V]) Add(key string, value V) bool {
	size := c.sizeOf(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxBytes > 0 && size > c.maxBytes {
		return false
	}

	expiresAt := c.now().Add(c.ttl)
	if entry, ok := c.items[key]; ok {
		c.bytes += size - entry.size
		entry.value = value
		entry.size = size
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
	} else {
		entry := &lruEntry[V]{key: key, value: value, size: size, expiresAt: expiresAt}
		c.addToFront(entry)
		c.items[key] = entry
		c.bytes += size
	}

	for len(c.items) > c.maxEntries || (c.maxBytes > 0 && c.bytes > c.maxBytes) {
		c.evictOldest()
	}
	return true
}

// Remove deletes key. It reports whether the key was present.
func (c *LRUCache[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Len returns the number of entries, fresh or not.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Bytes returns the summed size of all entries.
func (c *LRUCache[V]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Clear removes all entries.
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry[V])
	c.bytes = 0
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes expired entries and returns how many were removed.
func (c *LRUCache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if now.After(entry.expiresAt) {
			c.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	return removed
}

// Stats returns hit and miss counts and the current entry count.
func (c *LRUCache[V]) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRUCache[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache[V]) moveToFront(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRUCache[V]) removeEntry(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
	c.bytes -= entry.size
}

func (c *LRUCache[V]) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	if c.onEvict != nil {
		c.onEvict(oldest.key, oldest.value)
	}
}
