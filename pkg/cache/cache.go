// Package cache provides the in-process response cache warmed by the
// startup preloader and consulted by the Telegram handler. It exposes a
// statistics snapshot for the probe server's metrics aggregation and a
// cron-scheduled janitor for periodic eviction.
package cache

import (
	"sync"
	"time"

	"tradeai-hq/companion/pkg/config"
)

// Recorder receives cache events. The metrics collector implements it; a
// nil Recorder disables recording.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	UpdateCacheSize(size int)
}

// Stats is a point-in-time snapshot of cache state.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

type entry struct {
	value   any
	expires time.Time
}

// Cache is a TTL-bound, size-capped key/value cache. When the cap is
// reached the entry closest to expiry is evicted.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	recorder   Recorder

	mu        sync.Mutex
	entries   map[string]entry
	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache from configuration. recorder may be nil.
func New(cfg config.CacheConfig, recorder Recorder) *Cache {
	return &Cache{
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		recorder:   recorder,
		entries:    make(map[string]entry),
	}
}

// Get returns the cached value for key, if present and fresh.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && time.Now().After(e.expires) {
		delete(c.entries, key)
		c.evictions++
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	size := len(c.entries)
	c.mu.Unlock()

	if c.recorder != nil {
		if ok {
			c.recorder.RecordCacheHit()
		} else {
			c.recorder.RecordCacheMiss()
		}
		c.recorder.UpdateCacheSize(size)
	}

	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key with the configured TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictSoonestLocked()
		}
	}
	c.entries[key] = entry{value: value, expires: time.Now().Add(c.ttl)}
	size := len(c.entries)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.UpdateCacheSize(size)
	}
}

// evictSoonestLocked drops the entry closest to expiry.
func (c *Cache) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for key, e := range c.entries {
		if victim == "" || e.expires.Before(soonest) {
			victim = key
			soonest = e.expires
		}
	}
	if victim != "" {
		delete(c.entries, victim)
		c.evictions++
	}
}

// Cleanup removes all expired entries and returns how many were dropped.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	now := time.Now()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.UpdateCacheSize(size)
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.UpdateCacheSize(0)
	}
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot returns current cache statistics.
func (c *Cache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
