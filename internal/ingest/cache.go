package ingest

import (
	"sync"
	"time"
)

type cacheEntry struct {
	body    []byte
	expires time.Time
}

// Cache is an in-memory TTL cache of response bodies.
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]cacheEntry
	now   func() time.Time
}

// NewCache creates a cache. A ttl of zero or less disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		items: make(map[string]cacheEntry),
		now:   time.Now,
	}
}

// Get returns the body stored under key if it has not expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.items, key)
		return nil, false
	}
	return e.body, true
}

// Set stores body under key for the cache TTL.
func (c *Cache) Set(key string, body []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = cacheEntry{body: body, expires: now.Add(c.ttl)}

	// Sweep lazily so long-running watch loops do not grow without bound.
	if len(c.items)%256 == 0 {
		for k, e := range c.items {
			if !now.Before(e.expires) {
				delete(c.items, k)
			}
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]cacheEntry)
}
