package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Selector routes embedding work to the remote provider when one is
// configured, falling back to the local in-process model. Selection happens
// per call, so a transient remote outage degrades results without sticking.
// Results are memoized in a content-addressed Cache.
type Selector struct {
	remote   Embedder // nil when no remote provider is configured
	local    Embedder
	cache    *Cache
	maxChars int
	remoteUp atomic.Bool
	logger   *slog.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithCache sets the embedding cache. Default is a fresh cache.
func WithCache(cache *Cache) SelectorOption {
	return func(s *Selector) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithMaxTextChars sets the per-text character budget applied during
// normalization. Default: 8192.
func WithMaxTextChars(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) SelectorOption {
	return func(s *Selector) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSelector creates a Selector. The local embedder is required; remote
// may be nil to run fully offline.
func NewSelector(remote, local Embedder, opts ...SelectorOption) (*Selector, error) {
	if local == nil {
		return nil, ErrNoEmbedder
	}

	s := &Selector{
		remote:   remote,
		local:    local,
		cache:    NewCache(),
		maxChars: 8192,
		logger:   slog.Default().With("component", "embedding-selector"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.remoteUp.Store(remote != nil)
	return s, nil
}

// RemoteConfigured reports whether a remote provider is wired in.
func (s *Selector) RemoteConfigured() bool {
	return s.remote != nil
}

// RemoteAvailable reports whether the last remote call succeeded. It is
// advisory (for stats); calls still try the remote provider regardless.
func (s *Selector) RemoteAvailable() bool {
	return s.remote != nil && s.remoteUp.Load()
}

// ClearCache invalidates the embedding cache.
func (s *Selector) ClearCache() {
	s.cache.Clear()
}

// CacheLen returns the number of memoized embeddings.
func (s *Selector) CacheLen() int {
	return s.cache.Len()
}

// EvictText removes the cached embeddings for a text under both providers.
// Call it after the owning document's vectors have been deleted from the
// index, never before.
func (s *Selector) EvictText(text string) {
	norm := NormalizeText(text, s.maxChars)
	if s.remote != nil {
		s.cache.Remove(CacheKey(norm, s.remote.Kind(), s.remote.Model()))
	}
	s.cache.Remove(CacheKey(norm, s.local.Kind(), s.local.Model()))
}

// EmbedQuery embeds a single query text. The remote provider is preferred;
// if its call fails the error is surfaced (wrapped in
// ErrProviderUnavailable by the provider) rather than silently degraded.
// An interactive search must fail fast, not return results from a weaker
// model without saying so.
func (s *Selector) EmbedQuery(ctx context.Context, text string) (Result, error) {
	norm := NormalizeText(text, s.maxChars)

	chosen := s.local
	if s.remote != nil {
		chosen = s.remote
	}

	key := CacheKey(norm, chosen.Kind(), chosen.Model())
	if res, ok := s.cache.Get(key); ok {
		return res, nil
	}

	res, err := chosen.EmbedText(ctx, norm)
	if chosen == s.remote {
		s.remoteUp.Store(err == nil)
	}
	if err != nil {
		return Result{}, err
	}

	s.cache.Put(key, res)
	return res, nil
}

// EmbedBatch embeds texts for ingestion. The remote provider is preferred;
// when its batch call fails, every not-yet-embedded text falls back to the
// local provider so that no chunk is dropped. The returned slice always has
// one result per input text, in order.
func (s *Selector) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	norms := make([]string, len(texts))
	for i, t := range texts {
		norms[i] = NormalizeText(t, s.maxChars)
	}

	results := make([]Result, len(texts))
	filled := make([]bool, len(texts))

	// Serve what the cache already has for the preferred provider.
	chosen := s.local
	if s.remote != nil {
		chosen = s.remote
	}
	var pending []int
	for i, norm := range norms {
		if res, ok := s.cache.Get(CacheKey(norm, chosen.Kind(), chosen.Model())); ok {
			results[i] = res
			filled[i] = true
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return results, nil
	}

	pendingTexts := make([]string, len(pending))
	for i, idx := range pending {
		pendingTexts[i] = norms[idx]
	}

	embedded, err := chosen.EmbedTexts(ctx, pendingTexts)
	if chosen == s.remote {
		s.remoteUp.Store(err == nil)
	}
	if err != nil {
		if chosen != s.remote {
			return nil, err
		}
		// Degrade to the local model rather than dropping chunks.
		s.logger.Warn("remote embedding batch failed, falling back to local provider",
			"texts", len(pendingTexts), "err", err)
		embedded, err = s.local.EmbedTexts(ctx, pendingTexts)
		if err != nil {
			return nil, err
		}
	}

	if len(embedded) != len(pending) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d",
			len(pending), len(embedded))
	}

	for i, idx := range pending {
		res := embedded[i]
		results[idx] = res
		filled[idx] = true
		s.cache.Put(CacheKey(norms[idx], res.Provider, res.Model), res)
	}

	for i := range filled {
		if !filled[i] {
			return nil, fmt.Errorf("no embedding produced for text %d", i)
		}
	}
	return results, nil
}
