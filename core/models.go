package core

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ProviderKind identifies which embedding provider produced a vector.
type ProviderKind string

const (
	// ProviderRemote marks vectors produced by the remote embedding API.
	ProviderRemote ProviderKind = "remote"
	// ProviderLocal marks vectors produced by the in-process model.
	ProviderLocal ProviderKind = "local"
)

// ChunkMethod records which chunking strategy produced a chunk.
type ChunkMethod string

const (
	// ChunkMethodParagraph marks chunks built by paragraph packing.
	ChunkMethodParagraph ChunkMethod = "paragraph"
	// ChunkMethodWindow marks chunks built by the sliding-window fallback.
	ChunkMethodWindow ChunkMethod = "window"
)

// ContentHash returns a hex-encoded BLAKE2b digest of the given text.
// Identical content always produces the same hash; it is used for
// content-addressed cache keys.
func ContentHash(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID derives a chunk identifier from its document ID and ordinal.
func ChunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", docID, ordinal)
}

// Document describes an ingested document. It is immutable once processed;
// deletion cascades to its chunks and vectors.
type Document struct {
	ID         string
	Title      string
	Filename   string
	MimeType   string
	Tags       []string
	WordCount  int
	ChunkCount int
	IngestedAt time.Time
}

// Chunk is a bounded, possibly overlapping span of a document's text,
// the unit of retrieval. Chunks are owned exclusively by their document.
type Chunk struct {
	Id         string
	DocumentID string
	Ordinal    int
	Text       string
	StartChar  int
	EndChar    int
	WordCount  int
	Method     ChunkMethod
	Position   float64 // relative position in the document, 0..1
	Tags       []string

	// ApproxOffsets is set when the overlap tail makes StartChar an
	// approximation rather than an exact offset into the source.
	ApproxOffsets bool
}

// IndexEntry is the unit stored and scanned by the vector store: a chunk's
// embedding plus the denormalized metadata the search filters need.
type IndexEntry struct {
	ChunkID    string
	DocumentID string
	Content    string
	Title      string
	Filename   string
	Tags       []string
	WordCount  int
	Ordinal    int
	Vector     []float32
	Provider   ProviderKind
	Model      string
	CreatedAt  time.Time
}

// Dim returns the entry's vector dimensionality.
func (e *IndexEntry) Dim() int {
	return len(e.Vector)
}

// SearchResult is a single ranked hit. It exists only as a response payload
// or cached value and is never independently persisted.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Title      string
	Content    string
	Score      float32
	Rank       int
}

// CachedSearch is a memoized search response stored by the semantic query
// cache. Provider records which embedding backend produced the query vector
// so a hit can report the same provenance as the original search.
type CachedSearch struct {
	Results   []SearchResult
	Total     int
	Provider  ProviderKind
	CreatedAt time.Time
}
