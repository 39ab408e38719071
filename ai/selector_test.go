package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/ai/local"
	"github.com/poiesic/documind/ai/mock"
	"github.com/poiesic/documind/core"
)

func TestNewSelectorRequiresLocal(t *testing.T) {
	_, err := ai.NewSelector(nil, nil)
	assert.ErrorIs(t, err, ai.ErrNoEmbedder)
}

func TestEmbedQueryPrefersRemote(t *testing.T) {
	remote := mock.NewMockEmbedder()
	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	res, err := selector.EmbedQuery(context.Background(), "what is a raft log?")
	require.NoError(t, err)

	assert.Equal(t, core.ProviderRemote, res.Provider)
	assert.Equal(t, 1, remote.CallCount())
}

func TestEmbedQueryFailsFastOnRemoteError(t *testing.T) {
	remote := mock.NewMockEmbedder()
	remote.EmbedTextFunc = func(ctx context.Context, text string) (ai.Result, error) {
		return ai.Result{}, ai.ErrProviderUnavailable
	}
	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	_, err = selector.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)
	assert.False(t, selector.RemoteAvailable())
}

func TestEmbedQueryLocalWhenNoRemote(t *testing.T) {
	selector, err := ai.NewSelector(nil, local.NewEmbedder())
	require.NoError(t, err)

	res, err := selector.EmbedQuery(context.Background(), "offline query")
	require.NoError(t, err)

	assert.Equal(t, core.ProviderLocal, res.Provider)
	assert.False(t, selector.RemoteConfigured())
}

func TestEmbedQueryUsesCache(t *testing.T) {
	remote := mock.NewMockEmbedder()
	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	first, err := selector.EmbedQuery(context.Background(), "repeated  query")
	require.NoError(t, err)

	// Normalization makes whitespace variants hit the same entry.
	second, err := selector.EmbedQuery(context.Background(), "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, 1, remote.CallCount())
	assert.Equal(t, 1, selector.CacheLen())
}

func TestEmbedBatchFallsBackToLocal(t *testing.T) {
	remote := mock.NewMockEmbedder()
	remote.EmbedTextsFunc = func(ctx context.Context, texts []string) ([]ai.Result, error) {
		return nil, errors.New("connection refused")
	}
	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	texts := []string{"first chunk", "second chunk", "third chunk"}
	results, err := selector.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, results, len(texts))

	for _, res := range results {
		assert.Equal(t, core.ProviderLocal, res.Provider)
		assert.NotEmpty(t, res.Vector)
	}
	assert.False(t, selector.RemoteAvailable())
}

func TestEmbedBatchRemoteSuccess(t *testing.T) {
	remote := mock.NewMockEmbedder()
	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	results, err := selector.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, core.ProviderRemote, results[0].Provider)
	assert.True(t, selector.RemoteAvailable())
}

func TestEmbedBatchServesCachedEntries(t *testing.T) {
	remote := mock.NewMockEmbedder()
	selector, err := ai.NewSelector(remote, local.NewEmbedder())
	require.NoError(t, err)

	_, err = selector.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 1, remote.CallCount())

	// "a" and "b" are cached; only "c" needs the provider.
	results, err := selector.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, remote.CallCount())
}

func TestEmbedBatchEmpty(t *testing.T) {
	selector, err := ai.NewSelector(nil, local.NewEmbedder())
	require.NoError(t, err)

	_, err = selector.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrEmptyBatch)
}

func TestEvictText(t *testing.T) {
	selector, err := ai.NewSelector(nil, local.NewEmbedder())
	require.NoError(t, err)

	_, err = selector.EmbedQuery(context.Background(), "doomed text")
	require.NoError(t, err)
	require.Equal(t, 1, selector.CacheLen())

	selector.EvictText("doomed text")
	assert.Equal(t, 0, selector.CacheLen())
}

func TestClearCache(t *testing.T) {
	selector, err := ai.NewSelector(nil, local.NewEmbedder())
	require.NoError(t, err)

	_, err = selector.EmbedQuery(context.Background(), "some text")
	require.NoError(t, err)

	selector.ClearCache()
	assert.Equal(t, 0, selector.CacheLen())
}
