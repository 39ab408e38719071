package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
	"github.com/poiesic/documind/storage/badger"
)

func setupStore(t *testing.T, opts ...Option) (*Store, storage.VectorRepository) {
	t.Helper()

	repo, _, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	store, err := New(repo, opts...)
	require.NoError(t, err)
	return store, repo
}

func entry(docID string, ordinal int, vector []float32, tags ...string) *core.IndexEntry {
	return &core.IndexEntry{
		ChunkID:    core.ChunkID(docID, ordinal),
		DocumentID: docID,
		Content:    "content of " + core.ChunkID(docID, ordinal),
		Tags:       tags,
		WordCount:  100,
		Ordinal:    ordinal,
		Vector:     vector,
		Provider:   core.ProviderLocal,
		Model:      "hash-feature-v1",
	}
}

func TestUpsertFixesDimension(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, entry("doc-1", 0, []float32{1, 0, 0})))
	assert.Equal(t, 3, store.Dim())

	err := store.Upsert(ctx, entry("doc-1", 1, []float32{1, 0}))
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestUpsertMixedDimensionsInBatch(t *testing.T) {
	store, repo := setupStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-1", 1, []float32{1, 0}),
	)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	// Nothing persisted; the batch is validated before the write.
	count, err := repo.CountEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchFallbackWithoutIndex(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-1", 1, []float32{0, 1, 0}),
		entry("doc-2", 0, []float32{0.9, 0.1, 0}),
	))
	require.False(t, store.IndexBuilt())

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10, 0.5, core.Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "doc-1#0", results[0].ChunkID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestSearchNativeMatchesFallback(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-1", 1, []float32{0, 1, 0}),
		entry("doc-2", 0, []float32{0.7, 0.7, 0}),
		entry("doc-3", 0, []float32{0, 0, 1}),
	))

	query := []float32{0.8, 0.6, 0}

	fallback, err := store.Search(ctx, query, 10, 0.1, core.Filters{})
	require.NoError(t, err)

	require.NoError(t, store.Rebuild(ctx))
	require.True(t, store.IndexBuilt())

	native, err := store.Search(ctx, query, 10, 0.1, core.Filters{})
	require.NoError(t, err)

	assert.Equal(t, fallback, native)
}

func TestSearchThreshold(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx,
		entry("doc-1", 0, []float32{1, 0}),
		entry("doc-2", 0, []float32{0, 1}),
	))

	// Lowering the threshold never removes results.
	strict, err := store.Search(ctx, []float32{1, 0}, 10, 0.9, core.Filters{})
	require.NoError(t, err)
	loose, err := store.Search(ctx, []float32{1, 0}, 10, 0.0, core.Filters{})
	require.NoError(t, err)

	assert.Len(t, strict, 1)
	assert.Len(t, loose, 2)
	for _, r := range strict {
		assert.GreaterOrEqual(t, r.Score, float32(0.9))
	}
}

func TestSearchFilters(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx,
		entry("doc-1", 0, []float32{1, 0}, "ops"),
		entry("doc-2", 0, []float32{1, 0}, "dev"),
	))

	results, err := store.Search(ctx, []float32{1, 0}, 10, 0.5, core.Filters{Tags: []string{"ops"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].DocumentID)

	results, err = store.Search(ctx, []float32{1, 0}, 10, 0.5, core.Filters{DocumentID: "doc-2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-2", results[0].DocumentID)
}

func TestSearchLimit(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Upsert(ctx, entry("doc", i, []float32{1, float32(i) * 0.01})))
	}

	results, err := store.Search(ctx, []float32{1, 0}, 3, 0, core.Filters{})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchRejectsBadParams(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	_, err := store.Search(ctx, nil, 10, 0.5, core.Filters{})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = store.Search(ctx, []float32{1, 0}, 0, 0.5, core.Filters{})
	assert.ErrorIs(t, err, core.ErrInvalidLimit)
}

func TestSearchDimensionMismatchQuery(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, entry("doc-1", 0, []float32{1, 0, 0})))

	_, err := store.Search(ctx, []float32{1, 0}, 10, 0.5, core.Filters{})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestDeleteDocumentUpdatesIndex(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx,
		entry("doc-1", 0, []float32{1, 0}),
		entry("doc-1", 1, []float32{0, 1}),
		entry("doc-2", 0, []float32{1, 1}),
	))
	require.NoError(t, store.Rebuild(ctx))

	removed, err := store.DeleteDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	results, err := store.Search(ctx, []float32{1, 0}, 10, 0, core.Filters{})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "doc-1", r.DocumentID)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertAfterRebuildVisible(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Rebuild(ctx))
	require.NoError(t, store.Upsert(ctx, entry("doc-1", 0, []float32{1, 0})))

	results, err := store.Search(ctx, []float32{1, 0}, 10, 0.5, core.Filters{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchEmptyStore(t *testing.T) {
	store, _ := setupStore(t)

	results, err := store.Search(context.Background(), []float32{1, 0}, 10, 0.5, core.Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
