package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
)

// DefaultCacheTTL is how long a cached search response stays valid.
const DefaultCacheTTL = 30 * time.Minute

// SemanticCache memoizes full search responses keyed by the normalized
// query and the exact search parameters. Entries expire via storage TTL;
// a corrupt entry is treated as a miss and evicted by the storage layer.
//
// Deleting a document does not invalidate cached responses that mention
// it; they age out with the TTL instead. Callers that need immediate
// consistency can Purge.
type SemanticCache struct {
	repo   storage.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewSemanticCache creates a cache over the given repository.
// A non-positive ttl falls back to DefaultCacheTTL.
func NewSemanticCache(repo storage.CacheRepository, ttl time.Duration) (*SemanticCache, error) {
	if repo == nil {
		return nil, ErrCacheRepositoryRequired
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SemanticCache{
		repo:   repo,
		ttl:    ttl,
		logger: slog.Default().With("component", "semantic-cache"),
	}, nil
}

// NormalizeQuery canonicalizes a query for cache keying: lowercased,
// whitespace runs collapsed, surrounding space trimmed. "What is Raft?"
// and "  what is raft? " hit the same entry.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Key derives the cache key for a query and its search parameters. Two
// requests collide only when the normalized query, limit, threshold, and
// canonical filter serialization all agree.
func Key(query string, limit int, threshold float32, filters core.Filters) string {
	payload := fmt.Sprintf("%s\x00%d\x00%g\x00%s",
		NormalizeQuery(query), limit, threshold, filters.Canonical())
	return core.ContentHash(payload)
}

// Get returns the cached response for key, or (nil, false) on a miss.
// Storage failures other than not-found are surfaced.
func (c *SemanticCache) Get(ctx context.Context, key string) (*core.CachedSearch, bool, error) {
	cached, err := c.repo.GetCached(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return cached, true, nil
}

// Put stores a response under key with the cache's TTL.
func (c *SemanticCache) Put(ctx context.Context, key string, cached *core.CachedSearch) error {
	return c.repo.SetCached(ctx, key, cached, c.ttl)
}

// Purge drops every cached response and returns how many were removed.
func (c *SemanticCache) Purge(ctx context.Context) (int, error) {
	return c.repo.PurgeCache(ctx)
}

// Size returns the number of live cached responses.
func (c *SemanticCache) Size(ctx context.Context) (int, error) {
	return c.repo.CacheSize(ctx)
}

// TTL returns the configured entry lifetime.
func (c *SemanticCache) TTL() time.Duration {
	return c.ttl
}
