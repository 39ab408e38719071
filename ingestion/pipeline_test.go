package ingestion

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/ai/local"
	"github.com/poiesic/documind/ai/mock"
	"github.com/poiesic/documind/chunker"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
	badgerstore "github.com/poiesic/documind/storage/badger"
	"github.com/poiesic/documind/vectorstore"
)

type pipelineFixture struct {
	pipe     *Pipeline
	store    *vectorstore.Store
	repo     storage.VectorRepository
	stats    storage.StatsRepository
	selector *ai.Selector
}

func newPipelineFixture(t *testing.T, remote ai.Embedder) *pipelineFixture {
	t.Helper()

	repo, _, stats, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	store, err := vectorstore.New(repo)
	require.NoError(t, err)
	require.NoError(t, store.Rebuild(context.Background()))

	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	chk, err := chunker.New()
	require.NoError(t, err)

	pipe, err := NewPipeline(store, repo, selector, chk,
		WithStats(stats), WithBatchSize(4))
	require.NoError(t, err)
	t.Cleanup(pipe.Release)

	return &pipelineFixture{pipe: pipe, store: store, repo: repo, stats: stats, selector: selector}
}

// sampleText builds a document of roughly the requested word count out of
// repeated sentences split across paragraphs.
func sampleText(words int) string {
	sentence := "The quick brown fox jumps over the lazy dog near the quiet river bank. "
	var b strings.Builder
	written := 0
	for written < words {
		for i := 0; i < 10 && written < words; i++ {
			b.WriteString(sentence)
			written += 14
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func TestIngestIndexesDocument(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	n, err := f.pipe.Ingest(ctx, "doc-1", sampleText(1200), &Metadata{
		Title:    "Fox Chronicles",
		Filename: "fox.txt",
		MimeType: "text/plain",
		Tags:     []string{"animals"},
	})
	require.NoError(t, err)
	require.Greater(t, n, 1, "a 1200 word document should split into multiple chunks")

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	doc, err := f.repo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Fox Chronicles", doc.Title)
	assert.Equal(t, n, doc.ChunkCount)
	assert.Greater(t, doc.WordCount, 1000)
	assert.False(t, doc.IngestedAt.IsZero())

	entries, err := f.repo.ListDocumentEntries(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, entry := range entries {
		assert.Equal(t, i, entry.Ordinal)
		assert.Equal(t, "Fox Chronicles", entry.Title)
		assert.Equal(t, []string{"animals"}, entry.Tags)
		assert.Equal(t, core.ProviderLocal, entry.Provider)
		assert.Len(t, entry.Vector, local.Dim)
	}
}

func TestIngestNilMetadata(t *testing.T) {
	f := newPipelineFixture(t, nil)

	n, err := f.pipe.Ingest(context.Background(), "doc-1", sampleText(300), nil)
	require.NoError(t, err)
	assert.Greater(t, n, 0)
}

func TestReingestReplacesPreviousEntries(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	first, err := f.pipe.Ingest(ctx, "doc-1", sampleText(2000), nil)
	require.NoError(t, err)

	second, err := f.pipe.Ingest(ctx, "doc-1", sampleText(300), nil)
	require.NoError(t, err)
	require.Less(t, second, first, "shrunk document must produce fewer chunks")

	count, err := f.repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, count, "stale entries from the first ingest must not survive")
}

func TestIngestTinyDocumentIndexesNothing(t *testing.T) {
	f := newPipelineFixture(t, nil)

	// Below the minimum chunk size; dropped, not an error.
	n, err := f.pipe.Ingest(context.Background(), "doc-1", "just a few words", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestValidation(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	_, err := f.pipe.Ingest(ctx, "", sampleText(300), nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.pipe.Ingest(ctx, "doc-1", "", nil)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.pipe.Delete(ctx, "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestDeleteRemovesDocument(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	_, err := f.pipe.Ingest(ctx, "doc-1", sampleText(600), nil)
	require.NoError(t, err)

	removed, err := f.pipe.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, removed)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.repo.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	removed, err = f.pipe.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, removed, "deleting an unknown document is not an error")
}

func TestDeleteEvictsEmbeddingCache(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	_, err := f.pipe.Ingest(ctx, "doc-1", sampleText(300), nil)
	require.NoError(t, err)
	require.Greater(t, f.selector.CacheLen(), 0)

	_, err = f.pipe.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, f.selector.CacheLen())
}

func TestStatsCounters(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	n, err := f.pipe.Ingest(ctx, "doc-1", sampleText(600), nil)
	require.NoError(t, err)

	_, err = f.pipe.Delete(ctx, "doc-1")
	require.NoError(t, err)

	counters, err := f.stats.GetCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counters["documents_ingested"])
	assert.Equal(t, uint64(n), counters["vectors_created"])
	assert.Equal(t, uint64(1), counters["documents_deleted"])
	assert.Equal(t, uint64(n), counters["vectors_deleted"])
}

func TestIngestFallsBackToLocalWhenRemoteFails(t *testing.T) {
	remote := mock.NewMockEmbedder()
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([]ai.Result, error) {
		return nil, fmt.Errorf("%w: connection refused", ai.ErrProviderUnavailable)
	}
	f := newPipelineFixture(t, remote)
	ctx := context.Background()

	n, err := f.pipe.Ingest(ctx, "doc-1", sampleText(600), nil)
	require.NoError(t, err, "ingestion must degrade to the local model, not fail")

	entries, err := f.repo.ListDocumentEntries(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for _, entry := range entries {
		assert.Equal(t, core.ProviderLocal, entry.Provider)
		assert.Equal(t, local.ModelName, entry.Model)
	}
}

func TestIngestFallbackMatchesRemoteDimension(t *testing.T) {
	const remoteDim = 1536

	healthy := func(ctx context.Context, texts []string) ([]ai.Result, error) {
		results := make([]ai.Result, len(texts))
		for i, text := range texts {
			results[i] = ai.Result{
				Vector:   mock.GenerateDeterministicVector(text, remoteDim),
				Provider: core.ProviderRemote,
				Model:    mock.ModelName,
			}
		}
		return results, nil
	}
	down := func(ctx context.Context, texts []string) ([]ai.Result, error) {
		return nil, fmt.Errorf("%w: connection refused", ai.ErrProviderUnavailable)
	}

	remote := mock.NewMockEmbedder()
	remote.EmbedTextsFunc = healthy

	repo, _, stats, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	store, err := vectorstore.New(repo)
	require.NoError(t, err)
	require.NoError(t, store.Rebuild(context.Background()))

	selector, err := ai.NewSelector(remote, local.NewEmbedderWithDim(remoteDim))
	require.NoError(t, err)

	chk, err := chunker.New()
	require.NoError(t, err)

	pipe, err := NewPipeline(store, repo, selector, chk, WithStats(stats))
	require.NoError(t, err)
	t.Cleanup(pipe.Release)

	ctx := context.Background()
	_, err = pipe.Ingest(ctx, "doc-a", sampleText(600), nil)
	require.NoError(t, err)
	require.Equal(t, remoteDim, store.Dim())

	// Remote outage. The fallback must produce vectors the store still
	// accepts instead of dropping the whole document.
	remote.EmbedTextsFunc = down

	n, err := pipe.Ingest(ctx, "doc-b", sampleText(600), nil)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	entries, err := repo.ListDocumentEntries(ctx, "doc-b")
	require.NoError(t, err)
	require.Len(t, entries, n)
	for _, entry := range entries {
		assert.Equal(t, core.ProviderLocal, entry.Provider)
		assert.Len(t, entry.Vector, remoteDim)
	}

	// The remote recovers; outage-era vectors upgrade in place because the
	// widths match.
	remote.EmbedTextsFunc = healthy

	_, err = pipe.Reembed(ctx)
	require.NoError(t, err)

	entries, err = repo.ListDocumentEntries(ctx, "doc-b")
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, core.ProviderRemote, entry.Provider)
		assert.Len(t, entry.Vector, remoteDim)
	}
}

func TestReembedUpgradesProvider(t *testing.T) {
	remote := mock.NewMockEmbedder()
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([]ai.Result, error) {
		return nil, fmt.Errorf("%w: connection refused", ai.ErrProviderUnavailable)
	}
	f := newPipelineFixture(t, remote)
	ctx := context.Background()

	n, err := f.pipe.Ingest(ctx, "doc-1", sampleText(600), nil)
	require.NoError(t, err)

	// Remote recovers; the default mock behavior now succeeds.
	remote.EmbedTextsFunc = nil

	refreshed, err := f.pipe.Reembed(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, refreshed)

	entries, err := f.repo.ListDocumentEntries(ctx, "doc-1")
	require.NoError(t, err)
	for _, entry := range entries {
		assert.Equal(t, core.ProviderRemote, entry.Provider)
		assert.Equal(t, mock.ModelName, entry.Model)
	}

	counters, err := f.stats.GetCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), counters["vectors_reembedded"])
}

func TestReembedEmptyIndex(t *testing.T) {
	f := newPipelineFixture(t, nil)

	refreshed, err := f.pipe.Reembed(context.Background())
	require.NoError(t, err)
	assert.Zero(t, refreshed)
}

func TestConcurrentIngestSameDocument(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()
	text := sampleText(600)

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := f.pipe.Ingest(ctx, "doc-1", text, nil)
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}

	// All four ingests wrote the same content; the index must hold exactly
	// one copy of each chunk.
	entries, err := f.repo.ListDocumentEntries(ctx, "doc-1")
	require.NoError(t, err)
	count, err := f.repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(entries), count)
}

func TestNewPipelineValidation(t *testing.T) {
	f := newPipelineFixture(t, nil)
	chk, err := chunker.New()
	require.NoError(t, err)

	_, err = NewPipeline(nil, f.repo, f.selector, chk)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(f.store, nil, f.selector, chk)
	assert.ErrorIs(t, err, ErrRepositoryRequired)

	_, err = NewPipeline(f.store, f.repo, nil, chk)
	assert.ErrorIs(t, err, ErrSelectorRequired)

	_, err = NewPipeline(f.store, f.repo, f.selector, nil)
	assert.ErrorIs(t, err, ErrChunkerRequired)
}
