package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/chunker"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
	"github.com/poiesic/documind/vectorstore"
)

// Pipeline turns raw document text into indexed vectors: chunk, embed in
// pooled batches, upsert. A keyed mutex serializes ingest and delete for
// the same document while different documents proceed in parallel.
type Pipeline struct {
	store     *vectorstore.Store
	repo      storage.VectorRepository
	selector  *ai.Selector
	chunker   *chunker.Chunker
	stats     storage.StatsRepository
	pool      *ants.Pool
	docLocks  *keyedMutex
	batchSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunks go into one embedding batch.
// Default: 10.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batchSize = size
		}
		return nil
	}
}

// WithStats wires a stats repository; the pipeline then counts documents
// and vectors. Counter failures are logged, never surfaced.
func WithStats(stats storage.StatsRepository) Option {
	return func(p *Pipeline) error {
		p.stats = stats
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	store *vectorstore.Store,
	repo storage.VectorRepository,
	selector *ai.Selector,
	chk *chunker.Chunker,
	opts ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if selector == nil {
		return nil, ErrSelectorRequired
	}
	if chk == nil {
		return nil, ErrChunkerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:     store,
		repo:      repo,
		selector:  selector,
		chunker:   chk,
		pool:      pool,
		docLocks:  newKeyedMutex(),
		batchSize: 10,
		logger:    slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Metadata carries optional document attributes stamped onto every entry.
type Metadata struct {
	Title    string
	Filename string
	MimeType string
	Tags     []string
}

// Ingest chunks and embeds a document, then indexes the result. Ingesting
// an existing document ID replaces its previous entries entirely. Returns
// the number of chunks indexed; a document whose every chunk falls under
// the minimum size indexes zero chunks, which is not an error.
func (p *Pipeline) Ingest(ctx context.Context, documentID, text string, meta *Metadata) (int, error) {
	if err := core.ValidateDocumentID(documentID); err != nil {
		return 0, err
	}
	if err := core.ValidateText(text); err != nil {
		return 0, err
	}
	if meta == nil {
		meta = &Metadata{}
	}

	p.docLocks.lock(documentID)
	defer p.docLocks.unlock(documentID)

	started := time.Now()

	chunks, err := p.chunker.Chunk(documentID, text)
	if err != nil {
		return 0, err
	}

	// Replace, don't merge: a re-ingested document may have fewer chunks
	// than before, and stale ordinals must not survive.
	if _, err := p.store.DeleteDocument(ctx, documentID); err != nil {
		return 0, err
	}

	if len(chunks) == 0 {
		p.logger.Warn("document produced no indexable chunks", "documentID", documentID)
		return 0, nil
	}

	results, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	entries := make([]*core.IndexEntry, len(chunks))
	for i, chunk := range chunks {
		res := results[i]
		entries[i] = &core.IndexEntry{
			ChunkID:    chunk.Id,
			DocumentID: documentID,
			Content:    chunk.Text,
			Title:      meta.Title,
			Filename:   meta.Filename,
			Tags:       meta.Tags,
			WordCount:  chunk.WordCount,
			Ordinal:    chunk.Ordinal,
			Vector:     res.Vector,
			Provider:   res.Provider,
			Model:      res.Model,
			CreatedAt:  now,
		}
	}

	if err := p.store.Upsert(ctx, entries...); err != nil {
		return 0, err
	}

	doc := &core.Document{
		ID:         documentID,
		Title:      meta.Title,
		Filename:   meta.Filename,
		MimeType:   meta.MimeType,
		Tags:       meta.Tags,
		WordCount:  len(strings.Fields(text)),
		ChunkCount: len(entries),
		IngestedAt: now,
	}
	if err := p.repo.PutDocument(ctx, doc); err != nil {
		return 0, err
	}

	p.count(ctx, "documents_ingested", 1)
	p.count(ctx, "vectors_created", uint64(len(entries)))
	p.logger.Info("ingested document",
		"documentID", documentID, "chunks", len(entries),
		"provider", entries[0].Provider, "elapsed", time.Since(started))
	return len(entries), nil
}

// Delete removes a document's entries from the index and then evicts the
// matching embedding cache entries. Eviction runs after removal so a
// concurrent re-ingest cannot resurrect a vector from the cache for a
// chunk that no longer exists. Returns whether anything was removed.
func (p *Pipeline) Delete(ctx context.Context, documentID string) (bool, error) {
	if err := core.ValidateDocumentID(documentID); err != nil {
		return false, err
	}

	p.docLocks.lock(documentID)
	defer p.docLocks.unlock(documentID)

	entries, err := p.repo.ListDocumentEntries(ctx, documentID)
	if err != nil {
		return false, err
	}

	removed, err := p.store.DeleteDocument(ctx, documentID)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		p.selector.EvictText(entry.Content)
	}

	if removed > 0 {
		p.count(ctx, "documents_deleted", 1)
		p.count(ctx, "vectors_deleted", uint64(removed))
	}
	p.logger.Info("deleted document", "documentID", documentID, "vectors", removed)
	return removed > 0, nil
}

// embedChunks embeds chunk texts in pooled batches, preserving order.
// Batch failures inside the selector already degrade to the local model,
// so an error here means even the fallback failed.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []core.Chunk) ([]ai.Result, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	numBatches := (len(texts) + p.batchSize - 1) / p.batchSize
	results := make([]ai.Result, len(texts))
	errs := make([]error, numBatches)

	var wg sync.WaitGroup
	for b := 0; b < numBatches; b++ {
		b := b
		start := b * p.batchSize
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			batch, err := p.selector.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				errs[b] = err
				return
			}
			copy(results[start:end], batch)
		})
		if submitErr != nil {
			wg.Done()
			errs[b] = submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (p *Pipeline) count(ctx context.Context, name string, delta uint64) {
	if p.stats == nil {
		return
	}
	if _, err := p.stats.IncrementCounter(ctx, name, delta); err != nil {
		p.logger.Warn("failed to increment counter", "counter", name, "err", err)
	}
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
