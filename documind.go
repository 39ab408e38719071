// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package documind is a local-first document retrieval engine. It chunks
// documents, embeds the chunks through a remote or local provider, indexes
// the vectors in badger, and answers similarity queries with a semantic
// response cache in front.
package documind

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/ai/local"
	"github.com/poiesic/documind/ai/openai"
	"github.com/poiesic/documind/chunker"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/ingestion"
	"github.com/poiesic/documind/search"
	"github.com/poiesic/documind/storage"
	"github.com/poiesic/documind/storage/badger"
	"github.com/poiesic/documind/vectorstore"
)

// Database bundles the storage backend, the vector index, the embedding
// selector and the search and ingestion pipelines behind one handle.
type Database struct {
	backend    *badger.Backend
	vectorRepo storage.VectorRepository
	cacheRepo  storage.CacheRepository
	statsRepo  storage.StatsRepository
	store      *vectorstore.Store
	provider   ai.Provider
	selector   *ai.Selector
	cache      *search.SemanticCache
	searcher   *search.Searcher
	pipeline   *ingestion.Pipeline
	timeout    time.Duration
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig       *ai.Config
	localOnly      bool
	inMemory       bool
	cacheTTL       time.Duration
	requestTimeout time.Duration
	chunkOpts      []chunker.Option
}

// WithAIConfig sets the remote embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithLocalOnly disables the remote provider entirely; every embedding
// comes from the in-process model.
func WithLocalOnly() DatabaseOption {
	return func(o *databaseOptions) {
		o.localOnly = true
	}
}

// WithInMemory keeps all data in memory instead of on disk. The path
// passed to Open is ignored. Intended for tests and ephemeral indexes.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithCacheTTL sets the semantic cache TTL.
// Default is search.DefaultCacheTTL.
func WithCacheTTL(ttl time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.cacheTTL = ttl
	}
}

// WithRequestTimeout bounds each Search call, covering both the query
// embedding and the vector scan. Zero disables the bound.
// Default: 30 seconds.
func WithRequestTimeout(timeout time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.requestTimeout = timeout
	}
}

// WithChunkOptions forwards options to the chunker.
func WithChunkOptions(opts ...chunker.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.chunkOpts = append(o.chunkOpts, opts...)
	}
}

// Open opens or creates a database at filePath and wires up the full
// retrieval stack. The vector index is rebuilt into memory on open.
func Open(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:       ai.DefaultConfig(),
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	vectorRepo, err := badger.NewVectorRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	cacheRepo, err := badger.NewCacheRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	statsRepo, err := badger.NewStatsRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	store, err := vectorstore.New(vectorRepo)
	if err != nil {
		backend.Close()
		return nil, err
	}
	if err := store.Rebuild(context.Background()); err != nil {
		backend.Close()
		return nil, err
	}

	// The local fallback is pinned to the remote model's dimensionality so
	// a remote outage degrades to local vectors the store still accepts.
	var provider ai.Provider
	var remote ai.Embedder
	fallback := local.NewEmbedder()
	if !options.localOnly && options.aiConfig.RemoteHost != "" {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
		remote = provider.Embedder()
		fallback = local.NewEmbedderWithDim(options.aiConfig.Dimensions)
	}

	selector, err := ai.NewSelector(remote, fallback,
		ai.WithMaxTextChars(options.aiConfig.MaxTextChars))
	if err != nil {
		backend.Close()
		return nil, err
	}

	cache, err := search.NewSemanticCache(cacheRepo, options.cacheTTL)
	if err != nil {
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(store, selector, cache,
		search.WithStats(statsRepo))
	if err != nil {
		backend.Close()
		return nil, err
	}

	chk, err := chunker.New(options.chunkOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(store, vectorRepo, selector, chk,
		ingestion.WithStats(statsRepo))
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:    backend,
		vectorRepo: vectorRepo,
		cacheRepo:  cacheRepo,
		statsRepo:  statsRepo,
		store:      store,
		provider:   provider,
		selector:   selector,
		cache:      cache,
		searcher:   searcher,
		pipeline:   pipeline,
		timeout:    options.requestTimeout,
		logger:     slog.Default(),
	}, nil
}

// Ingest chunks, embeds and indexes a document, replacing any previous
// version under the same ID. Returns the number of chunks indexed.
func (db *Database) Ingest(ctx context.Context, documentID, text string, meta *ingestion.Metadata) (int, error) {
	return db.pipeline.Ingest(ctx, documentID, text, meta)
}

// DeleteDocument removes a document and its vectors from the index.
// Returns whether anything was removed.
func (db *Database) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	return db.pipeline.Delete(ctx, documentID)
}

// Search answers a similarity query over the indexed chunks. The call is
// bounded by the configured request timeout.
func (db *Database) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if db.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}
	return db.searcher.Search(ctx, req)
}

// Reembed regenerates every stored vector with the currently preferred
// provider. Returns the number of vectors refreshed.
func (db *Database) Reembed(ctx context.Context) (int, error) {
	return db.pipeline.Reembed(ctx)
}

// PurgeCache drops every cached search response.
func (db *Database) PurgeCache(ctx context.Context) (int, error) {
	return db.cache.Purge(ctx)
}

// Stats is a point-in-time snapshot of index and operation state.
type Stats struct {
	TotalVectors     int
	TotalDocuments   int
	CacheSize        int
	Counters         map[string]uint64
	RemoteConfigured bool
	RemoteAvailable  bool
}

// Stats reports index size, cache occupancy and operation counters.
func (db *Database) Stats(ctx context.Context) (*Stats, error) {
	vectors, err := db.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := db.vectorRepo.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	cacheSize, err := db.cache.Size(ctx)
	if err != nil {
		return nil, err
	}
	counters, err := db.statsRepo.GetCounters(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalVectors:     vectors,
		TotalDocuments:   len(docs),
		CacheSize:        cacheSize,
		Counters:         counters,
		RemoteConfigured: db.selector.RemoteConfigured(),
		RemoteAvailable:  db.selector.RemoteAvailable(),
	}, nil
}

// Documents lists metadata for every ingested document.
func (db *Database) Documents(ctx context.Context) ([]*core.Document, error) {
	return db.vectorRepo.ListDocuments(ctx)
}

// VectorRepository exposes the underlying vector repository.
func (db *Database) VectorRepository() storage.VectorRepository {
	return db.vectorRepo
}

// Searcher exposes the search pipeline for callers that need monitors.
func (db *Database) Searcher() *search.Searcher {
	return db.searcher
}

// Close releases the worker pool and closes the storage backend.
func (db *Database) Close() error {
	db.pipeline.Release()

	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
