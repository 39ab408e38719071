package core

import (
	"testing"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalVectorOversizedLength(t *testing.T) {
	// A length prefix claiming far more components than the buffer holds
	// must error out before any allocation happens.
	bs := make([]byte, 16)
	n := varint.Int.Marshal(1<<40, bs)

	require.NotPanics(t, func() {
		_, _, err := unmarshalVector(bs[:n+4])
		assert.ErrorIs(t, err, ErrLengthOutOfRange)
	})
}

func TestUnmarshalStringsOversizedLength(t *testing.T) {
	bs := make([]byte, 16)
	n := varint.Int.Marshal(1<<40, bs)

	require.NotPanics(t, func() {
		_, _, err := unmarshalStrings(bs[:n+4])
		assert.ErrorIs(t, err, ErrLengthOutOfRange)
	})
}

func TestIndexEntryCorruptVectorLength(t *testing.T) {
	entry := IndexEntry{
		ChunkID:    "doc-1#0",
		DocumentID: "doc-1",
		Content:    "some retrievable text",
		WordCount:  3,
		Vector:     []float32{0.1, 0.2, 0.3, 0.4},
		Provider:   ProviderLocal,
		Model:      "hash-feature-v1",
		CreatedAt:  time.Now().UTC(),
	}

	bs := make([]byte, IndexEntryMUS.Size(entry))
	IndexEntryMUS.Marshal(entry, bs)

	// Overwrite the vector length prefix in place. The fields before it are
	// fixed by the wire format, so their combined size locates the prefix.
	off := ord.String.Size(entry.ChunkID) +
		ord.String.Size(entry.DocumentID) +
		ord.String.Size(entry.Content) +
		ord.String.Size(entry.Title) +
		ord.String.Size(entry.Filename) +
		sizeStrings(entry.Tags) +
		varint.Int.Size(entry.WordCount) +
		varint.Int.Size(entry.Ordinal)
	varint.Int.Marshal(1<<62, bs[off:])

	require.NotPanics(t, func() {
		_, _, err := IndexEntryMUS.Unmarshal(bs)
		assert.ErrorIs(t, err, ErrLengthOutOfRange)
	})
}

func TestCachedSearchCorruptResultsLength(t *testing.T) {
	bs := make([]byte, 16)
	n := varint.Int.Marshal(1<<40, bs)

	require.NotPanics(t, func() {
		_, _, err := CachedSearchMUS.Unmarshal(bs[:n+2])
		assert.ErrorIs(t, err, ErrLengthOutOfRange)
	})
}
