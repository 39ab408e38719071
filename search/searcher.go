package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
	"github.com/poiesic/documind/vectorstore"
)

// Request describes one search.
type Request struct {
	// Query is the natural language query text.
	Query string

	// Limit caps how many results come back. Must be positive.
	Limit int

	// Threshold is the minimum cosine similarity a chunk must score.
	Threshold float32

	// Filters restrict which chunks are considered.
	Filters core.Filters

	// UseCache enables the semantic cache for this request, both lookup
	// and store.
	UseCache bool
}

// Response is the outcome of one search.
type Response struct {
	// Results are the ranked hits, best first.
	Results []core.SearchResult

	// Total is the number of results returned.
	Total int

	// Elapsed is the wall time the search took.
	Elapsed time.Duration

	// CacheHit reports whether the response came from the semantic cache.
	CacheHit bool

	// Provider tags which embedding backend produced the query vector.
	// On a cache hit, this is the provider recorded with the cached entry.
	Provider core.ProviderKind
}

// Searcher orchestrates a search: cache check, query embedding, vector
// search, then cache fill. Failures in the cache path degrade to a plain
// search; failures in embedding or the vector store surface to the caller.
type Searcher struct {
	store    *vectorstore.Store
	selector *ai.Selector
	cache    *SemanticCache
	stats    storage.StatsRepository
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithStats wires a stats repository; the searcher then counts searches
// and cache hits. Counter failures are logged, never surfaced.
func WithStats(stats storage.StatsRepository) Option {
	return func(s *Searcher) error {
		s.stats = stats
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	store *vectorstore.Store,
	selector *ai.Selector,
	cache *SemanticCache,
	opts ...Option,
) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if selector == nil {
		return nil, ErrSelectorRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}

	s := &Searcher{
		store:    store,
		selector: selector,
		cache:    cache,
		logger:   slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs a search for the request.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs a search with monitoring. The monitor receives
// callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) (*Response, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if err := core.ValidateSearchParams(req.Query, req.Limit, req.Threshold); err != nil {
		return nil, err
	}

	monitor.Start(req.Query)
	started := time.Now()
	s.count(ctx, "searches")

	key := Key(req.Query, req.Limit, req.Threshold, req.Filters)

	if req.UseCache {
		cached, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache lookup failed, searching without it", "err", err)
		} else if hit {
			s.count(ctx, "cache_hits")
			monitor.CacheHit(key, len(cached.Results))

			resp := &Response{
				Results:  cached.Results,
				Total:    cached.Total,
				Elapsed:  time.Since(started),
				CacheHit: true,
				Provider: cached.Provider,
			}
			monitor.Finish(resp)
			return resp, nil
		}
	}

	embedded, err := s.selector.EmbedQuery(ctx, req.Query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", req.Query, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(embedded.Provider, len(embedded.Vector))

	results, err := s.store.Search(ctx, embedded.Vector, req.Limit, req.Threshold, req.Filters)
	if err != nil {
		s.logger.Error("vector search failed", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(len(results))

	resp := &Response{
		Results:  results,
		Total:    len(results),
		Elapsed:  time.Since(started),
		Provider: embedded.Provider,
	}

	// Only non-empty responses are worth memoizing; an empty result often
	// means the corpus hasn't been ingested yet.
	if req.UseCache && len(results) > 0 {
		cached := &core.CachedSearch{
			Results:   results,
			Total:     len(results),
			Provider:  embedded.Provider,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.cache.Put(ctx, key, cached); err != nil {
			s.logger.Warn("failed to store search response in cache", "err", err)
		}
	}

	monitor.Finish(resp)
	return resp, nil
}

func (s *Searcher) count(ctx context.Context, name string) {
	if s.stats == nil {
		return
	}
	if _, err := s.stats.IncrementCounter(ctx, name, 1); err != nil {
		s.logger.Warn("failed to increment counter", "counter", name, "err", err)
	}
}
