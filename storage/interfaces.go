package storage

import (
	"context"
	"time"

	"github.com/poiesic/documind/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorRepository persists index entries, one per chunk.
type VectorRepository interface {
	Repository

	// UpsertEntries writes entries atomically, replacing any existing
	// entries with the same chunk IDs. A document index key is maintained
	// per entry so deletion by document stays cheap.
	UpsertEntries(ctx context.Context, entries ...*core.IndexEntry) error

	// DeleteDocument removes every entry belonging to a document and its
	// metadata record. Returns the number of entries removed; deleting an
	// unknown document is not an error.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// GetEntry retrieves a single entry by chunk ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, chunkID string) (*core.IndexEntry, error)

	// ListDocumentEntries retrieves every entry for a document, ordered
	// by chunk ordinal.
	ListDocumentEntries(ctx context.Context, documentID string) ([]*core.IndexEntry, error)

	// ScanEntries streams every index entry to fn. Entries that fail to
	// deserialize are skipped, not surfaced; a search must degrade, not
	// abort, when one record is corrupt. Returning false from fn stops
	// the scan.
	ScanEntries(ctx context.Context, fn func(entry *core.IndexEntry) bool) error

	// CountEntries returns the total number of stored index entries.
	CountEntries(ctx context.Context) (int, error)

	// PutDocument writes a document metadata record.
	PutDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document metadata record.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, documentID string) (*core.Document, error)

	// ListDocuments retrieves all document metadata records.
	ListDocuments(ctx context.Context) ([]*core.Document, error)
}

// CacheRepository persists cached search responses with per-entry TTL.
type CacheRepository interface {
	Repository

	// GetCached returns the cached response for key. Expired and corrupt
	// entries are reported as ErrNotFound; corrupt entries are also
	// evicted so they are not decoded again.
	GetCached(ctx context.Context, key string) (*core.CachedSearch, error)

	// SetCached stores a response under key with the given TTL.
	SetCached(ctx context.Context, key string, cached *core.CachedSearch, ttl time.Duration) error

	// DeleteCached removes a single cached response.
	// Deleting an unknown key is not an error.
	DeleteCached(ctx context.Context, key string) error

	// PurgeCache removes every cached response and returns how many were
	// dropped.
	PurgeCache(ctx context.Context) (int, error)

	// CacheSize returns the number of live (unexpired) cached responses.
	CacheSize(ctx context.Context) (int, error)
}

// StatsRepository persists monotonic operation counters.
type StatsRepository interface {
	Repository

	// IncrementCounter adds delta to a named counter and returns the new
	// value.
	IncrementCounter(ctx context.Context, name string, delta uint64) (uint64, error)

	// GetCounter returns a counter's value. Unknown counters read as 0.
	GetCounter(ctx context.Context, name string) (uint64, error)

	// GetCounters returns all counters as a name to value map.
	GetCounters(ctx context.Context) (map[string]uint64, error)
}
