package workflow

import (
	"sync"
	"time"
)

// Cache defaults.
const (
	DefaultTTL      = 60 * time.Second
	DefaultCapacity = 100
)

type cacheEntry struct {
	doc      *Document // nil for a confirmed-absent lookup
	cachedAt time.Time
}

// Cache is a bounded, TTL-based cache of embedded-graph lookups keyed by
// asset identity. A nil document is a valid cached "definitely absent"
// result that short-circuits repeat network calls until TTL expiry.
//
// Sweeping happens opportunistically after each Set; there is no background
// timer.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	cap     int
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates a Cache. Non-positive ttl or capacity fall back to the
// defaults.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:     ttl,
		cap:     capacity,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached document for key. ok is false on a miss or an
// expired entry; ok=true with a nil document means "looked up, confirmed
// absent".
func (c *Cache) Get(key string) (doc *Document, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.entries[key]
	if !found {
		return nil, false
	}
	if c.now().Sub(e.cachedAt) > c.ttl {
		// Expired entries are treated as misses; physical removal waits
		// for the next sweep.
		return nil, false
	}
	return e.doc, true
}

// Set stores doc (which may be nil for a negative result) and sweeps.
func (c *Cache) Set(key string, doc *Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{doc: doc, cachedAt: c.now()}
	c.sweepLocked()
}

// Len returns the number of physically present entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepLocked removes expired entries first, then evicts the globally
// oldest entries until the cache is at or under capacity.
func (c *Cache) sweepLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.cachedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	for len(c.entries) > c.cap {
		oldestKey := ""
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.cachedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.cachedAt
			}
		}
		delete(c.entries, oldestKey)
	}
}
