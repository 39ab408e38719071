package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
//
// Entries are stored under their chunk ID. A secondary document index maps
// (documentID, ordinal) to the chunk ID so per-document operations never
// scan the whole keyspace.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) (*VectorRepository, error) {
	return &VectorRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *VectorRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *VectorRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertEntries writes entries atomically, replacing any existing entries
// with the same chunk IDs.
func (r *VectorRepository) UpsertEntries(ctx context.Context, entries ...*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			key := makeEntryKey(entry.ChunkID)
			if err := tx.Set(key, storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}

			docKey := makeDocEntryKey(entry.DocumentID, entry.Ordinal)
			if err := tx.Set(docKey, []byte(entry.ChunkID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteDocument removes every entry belonging to a document, its index
// keys, and its metadata record. Returns the number of entries removed.
func (r *VectorRepository) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	var removed int

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		removed = 0

		// Collect first; deleting while iterating invalidates the iterator.
		var docKeys [][]byte
		var chunkIDs []string

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocIndexPrefix(documentID)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			docKeys = append(docKeys, item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				chunkIDs = append(chunkIDs, string(val))
				return nil
			})
			if err != nil {
				iter.Close()
				return err
			}
		}
		iter.Close()

		for i, chunkID := range chunkIDs {
			if err := tx.Delete(makeEntryKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(docKeys[i]); err != nil {
				return err
			}
			removed++
		}

		if err := tx.Delete(makeDocumentKey(documentID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GetEntry retrieves a single entry by chunk ID.
func (r *VectorRepository) GetEntry(ctx context.Context, chunkID string) (*core.IndexEntry, error) {
	var entry *core.IndexEntry

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEntryKey(chunkID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = storage.UnmarshalIndexEntry(val)
			return err
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListDocumentEntries retrieves every entry for a document, ordered by
// chunk ordinal.
func (r *VectorRepository) ListDocumentEntries(ctx context.Context, documentID string) ([]*core.IndexEntry, error) {
	var entries []*core.IndexEntry

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocIndexPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID string
			err := iter.Item().Value(func(val []byte) error {
				chunkID = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			item, err := tx.Get(makeEntryKey(chunkID))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Stale index key; the entry itself is gone.
					continue
				}
				return err
			}
			err = item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalIndexEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ScanEntries streams every index entry to fn. Corrupt entries are logged
// and skipped so a single bad record cannot take down a search.
func (r *VectorRepository) ScanEntries(ctx context.Context, fn func(entry *core.IndexEntry) bool) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorEntryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := iter.Item()
			var entry *core.IndexEntry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalIndexEntry(val)
				return err
			})
			if err != nil {
				r.backend.logger.Warn("skipping corrupt index entry",
					"key", string(item.Key()), "err", err)
				continue
			}

			if !fn(entry) {
				return nil
			}
		}
		return nil
	}, false)
}

// CountEntries returns the total number of stored index entries.
func (r *VectorRepository) CountEntries(ctx context.Context) (int, error) {
	var count int

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorEntryPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)

	if err != nil {
		return 0, err
	}
	return count, nil
}

// PutDocument writes a document metadata record.
func (r *VectorRepository) PutDocument(ctx context.Context, doc *core.Document) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocumentKey(doc.ID), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document metadata record.
func (r *VectorRepository) GetDocument(ctx context.Context, documentID string) (*core.Document, error) {
	var doc *core.Document

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(documentID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments retrieves all document metadata records.
func (r *VectorRepository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				doc, err := storage.UnmarshalDocument(val)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return docs, nil
}
