package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/core"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbedTextDeterministic(t *testing.T) {
	e := NewEmbedder()

	first, err := e.EmbedText(context.Background(), "distributed consensus protocols")
	require.NoError(t, err)
	second, err := e.EmbedText(context.Background(), "distributed consensus protocols")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, core.ProviderLocal, first.Provider)
	assert.Equal(t, ModelName, first.Model)
	assert.Zero(t, first.TokenUsage)
}

func TestEmbedTextDimensionAndNorm(t *testing.T) {
	e := NewEmbedder()

	res, err := e.EmbedText(context.Background(), "some text to embed")
	require.NoError(t, err)
	require.Len(t, res.Vector, Dim)

	var sumSquares float64
	for _, v := range res.Vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-4)
}

func TestEmbedTextEmptyYieldsZeroVector(t *testing.T) {
	e := NewEmbedder()

	res, err := e.EmbedText(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Vector, Dim)
	for _, v := range res.Vector {
		assert.Zero(t, v)
	}
}

func TestSharedVocabularyScoresHigher(t *testing.T) {
	e := NewEmbedder()
	ctx := context.Background()

	query, err := e.EmbedText(ctx, "database index performance tuning")
	require.NoError(t, err)
	related, err := e.EmbedText(ctx, "tuning database index performance for large tables")
	require.NoError(t, err)
	unrelated, err := e.EmbedText(ctx, "grilled cheese sandwich recipe ideas")
	require.NoError(t, err)

	assert.Greater(t,
		cosine(query.Vector, related.Vector),
		cosine(query.Vector, unrelated.Vector))
}

func TestEmbedTexts(t *testing.T) {
	e := NewEmbedder()

	results, err := e.EmbedTexts(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEqual(t, results[0].Vector, results[1].Vector)

	_, err = e.EmbedTexts(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrEmptyBatch)
}

func TestImplementsEmbedder(t *testing.T) {
	var _ ai.Embedder = NewEmbedder()
}
