package cache

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is applied when no per-entry TTL is given.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxSize bounds the number of live entries.
	DefaultMaxSize = 100
)

// TTLCache is a bounded key-value store with per-entry expiration. Expired
// entries are evicted lazily when accessed; capacity pressure on insert first
// sweeps expired entries and then drops the oldest fifth by insertion time.
// Absence is always safe: a miss falls through to the source of truth.
type TTLCache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]*ttlEntry[T]
}

type ttlEntry[T any] struct {
	data     T
	storedAt time.Time
	ttl      time.Duration
}

func (e *ttlEntry[T]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// NewTTLCache creates a cache with the given default TTL and capacity.
// Non-positive arguments fall back to the package defaults.
func NewTTLCache[T any](ttl time.Duration, maxSize int) *TTLCache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &TTLCache[T]{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]*ttlEntry[T]),
	}
}

// Get retrieves a live value. Finding an expired entry evicts it before
// reporting a miss.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	entry, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if entry.expired(time.Now()) {
		delete(c.items, key)
		return zero, false
	}
	return entry.data, true
}

// Set stores a value with the default TTL.
func (c *TTLCache[T]) Set(key string, data T) {
	c.SetTTL(key, data, c.ttl)
}

// SetTTL stores a value with a per-entry TTL. When the cache is at capacity
// it first sweeps expired entries, then evicts the oldest-inserted fifth if
// the sweep was not enough.
func (c *TTLCache[T]) SetTTL(key string, data T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if len(c.items) >= c.maxSize {
		for k, entry := range c.items {
			if entry.expired(now) {
				delete(c.items, k)
			}
		}

		if len(c.items) >= c.maxSize {
			c.evictOldest((c.maxSize + 4) / 5)
		}
	}

	c.items[key] = &ttlEntry[T]{
		data:     data,
		storedAt: now,
		ttl:      ttl,
	}
}

// evictOldest drops the n entries with the earliest storedAt. Caller holds
// the lock. This is eviction by insertion age, not true LRU: access times
// are not tracked.
func (c *TTLCache[T]) evictOldest(n int) {
	type aged struct {
		key      string
		storedAt time.Time
	}

	entries := make([]aged, 0, len(c.items))
	for k, entry := range c.items {
		entries = append(entries, aged{key: k, storedAt: entry.storedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].storedAt.Before(entries[j].storedAt)
	})

	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(c.items, e.key)
	}
}

// Has reports whether a live entry exists, with the same lazy-eviction side
// effect as Get.
func (c *TTLCache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		return false
	}
	if entry.expired(time.Now()) {
		delete(c.items, key)
		return false
	}
	return true
}

// Remove deletes a key. No-op if absent.
func (c *TTLCache[T]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear empties the cache.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*ttlEntry[T])
}

// Size returns the current number of items in the cache.
func (c *TTLCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *TTLCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for k, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}
