package ai

import (
	"sync"

	"github.com/poiesic/documind/core"
)

// Cache is a content-addressed embedding cache. Embeddings are pure
// functions of (normalized text, provider, model), so entries carry no TTL
// and are safe to keep indefinitely; Clear and Remove exist for callers
// that need invalidation. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

// NewCache creates an empty embedding cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Result)}
}

// CacheKey derives the content-addressed key for a normalized text and the
// provider/model pair that would embed it.
func CacheKey(text string, kind core.ProviderKind, model string) string {
	return core.ContentHash(string(kind) + "\x00" + model + "\x00" + text)
}

// Get returns the cached result for key, if present. The returned vector
// is shared; callers must not mutate it.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[key]
	return res, ok
}

// Put stores a result under key. Last writer wins.
func (c *Cache) Put(key string, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = res
}

// Remove evicts a single entry.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear evicts every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Result)
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
