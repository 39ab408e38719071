package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/documind/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genWords produces n distinct words with no sentence punctuation, so
// overlap tails are not snapped and stay exactly overlap words long.
func genWords(n int, prefix string) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(words, " ")
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := New()
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("invalid overlap", func(t *testing.T) {
		_, err := New(WithMaxSize(100), WithOverlap(100))
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})

	t.Run("invalid min size", func(t *testing.T) {
		_, err := New(WithMaxSize(100), WithMinSize(200))
		assert.ErrorIs(t, err, core.ErrInvalidChunkParams)
	})
}

func TestChunk_InvalidInput(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	t.Run("empty text", func(t *testing.T) {
		_, err := c.Chunk("doc-1", "   \n\n  ")
		assert.ErrorIs(t, err, core.ErrEmptyText)
	})

	t.Run("empty doc id", func(t *testing.T) {
		_, err := c.Chunk("", "some text here")
		assert.ErrorIs(t, err, core.ErrEmptyDocumentID)
	})
}

func TestChunk_SingleSmallDocument(t *testing.T) {
	c, err := New(WithMinSize(1))
	require.NoError(t, err)

	chunks, err := c.Chunk("doc-1", "Just a short paragraph of text.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "doc-1#0", ch.Id)
	assert.Equal(t, "doc-1", ch.DocumentID)
	assert.Equal(t, 0, ch.Ordinal)
	assert.Equal(t, 6, ch.WordCount)
	assert.Equal(t, core.ChunkMethodParagraph, ch.Method)
	assert.False(t, ch.ApproxOffsets)
	assert.Equal(t, 0, ch.StartChar)
	assert.Equal(t, 31, ch.EndChar)
}

// The 40/600/40-word document from a 512-word budget: the 40-word opener is
// folded into the big middle chunk via the overlap tail, and the remainder
// forms a second chunk whose leading 50 words repeat the first chunk's tail.
func TestChunk_OverlapScenario(t *testing.T) {
	c, err := New(WithMaxSize(512), WithOverlap(50), WithMinSize(50))
	require.NoError(t, err)

	text := genWords(40, "a") + "\n\n" + genWords(600, "b") + "\n\n" + genWords(40, "c")
	chunks, err := c.Chunk("doc-1", text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)

	assert.Equal(t, 640, chunks[0].WordCount) // 40-word tail + 600-word paragraph
	assert.Equal(t, 90, chunks[1].WordCount)  // 50-word tail + 40-word paragraph

	// The second chunk opens with the first chunk's trailing 50 words.
	assert.Equal(t, first[len(first)-50:], second[:50])

	// Ordinals renumbered densely after the min-size filter.
	assert.Equal(t, "doc-1#0", chunks[0].Id)
	assert.Equal(t, "doc-1#1", chunks[1].Id)
	assert.True(t, chunks[0].ApproxOffsets)
}

func TestChunk_GiantParagraphFallsBackToWindow(t *testing.T) {
	c, err := New(WithMaxSize(512), WithOverlap(50), WithMinSize(1))
	require.NoError(t, err)

	text := genWords(2000, "w")
	chunks, err := c.Chunk("doc-1", text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.Equal(t, core.ChunkMethodWindow, ch.Method)
		assert.LessOrEqual(t, float64(ch.WordCount), 512*1.5)
		assert.False(t, ch.ApproxOffsets)
		// Window offsets are exact spans into the source.
		assert.Equal(t, ch.Text, text[ch.StartChar:ch.EndChar])
	}

	// Consecutive windows share exactly the overlap.
	require.Greater(t, len(chunks), 1)
	prev := strings.Fields(chunks[0].Text)
	next := strings.Fields(chunks[1].Text)
	assert.Equal(t, prev[len(prev)-50:], next[:50])
}

func TestChunk_NeverDropsText(t *testing.T) {
	c, err := New(WithMaxSize(100), WithOverlap(10), WithMinSize(1))
	require.NoError(t, err)

	var paras []string
	for i := 0; i < 7; i++ {
		paras = append(paras, genWords(60, fmt.Sprintf("p%d_", i)))
	}
	text := strings.Join(paras, "\n\n")

	chunks, err := c.Chunk("doc-1", text)
	require.NoError(t, err)

	total := 0
	for _, ch := range chunks {
		total += ch.WordCount
	}
	assert.GreaterOrEqual(t, total, wordCount(text))
}

func TestChunk_MinSizeFilter(t *testing.T) {
	c, err := New(WithMaxSize(512), WithOverlap(0), WithMinSize(20))
	require.NoError(t, err)

	text := genWords(5, "tiny") + "\n\n" + genWords(400, "big")
	chunks, err := c.Chunk("doc-1", text)
	require.NoError(t, err)

	// Both paragraphs pack into one chunk of 405 words; nothing is dropped.
	require.Len(t, chunks, 1)
	assert.Equal(t, 405, chunks[0].WordCount)
}

func TestChunk_Deterministic(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	text := genWords(300, "x") + "\n\n" + genWords(700, "y") + "\n\n" + genWords(200, "z")
	a, err := c.Chunk("doc-1", text)
	require.NoError(t, err)
	b, err := c.Chunk("doc-1", text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestOverlapTail_SentenceSnap(t *testing.T) {
	t.Run("snaps to sentence boundary", func(t *testing.T) {
		text := "alpha beta gamma. delta epsilon"
		tail := overlapTail(text, 4)
		assert.Equal(t, "delta epsilon", tail)
	})

	t.Run("no boundary keeps full window", func(t *testing.T) {
		text := "alpha beta gamma delta epsilon"
		tail := overlapTail(text, 3)
		assert.Equal(t, "gamma delta epsilon", tail)
	})

	t.Run("zero overlap", func(t *testing.T) {
		assert.Equal(t, "", overlapTail("alpha beta", 0))
	})
}

func TestSplitParagraphs_Offsets(t *testing.T) {
	text := "first para\n\nsecond para\n\n\n\nthird"
	paras := splitParagraphs(text)
	require.Len(t, paras, 3)

	for _, p := range paras {
		assert.Equal(t, p.text, text[p.start:p.end])
	}
}
