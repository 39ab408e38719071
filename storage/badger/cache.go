package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
)

// CacheRepository implements storage.CacheRepository for BadgerDB.
// Expiry rides on badger's native per-entry TTL, so expired responses
// disappear without a sweeper goroutine.
type CacheRepository struct {
	backend *Backend
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) (*CacheRepository, error) {
	return &CacheRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *CacheRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *CacheRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// GetCached returns the cached response for key. Expired entries read as
// ErrNotFound. A corrupt entry is evicted and also reported as ErrNotFound,
// so the caller re-runs the search and overwrites it.
func (r *CacheRepository) GetCached(ctx context.Context, key string) (*core.CachedSearch, error) {
	var cached *core.CachedSearch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			cached, err = storage.UnmarshalCachedSearch(val)
			return err
		})
	}, false)

	if err != nil {
		if errors.Is(err, storage.ErrSerializationFailed) {
			r.backend.logger.Warn("evicting corrupt cached search", "key", key, "err", err)
			if delErr := r.DeleteCached(ctx, key); delErr != nil {
				r.backend.logger.Error("failed to evict corrupt cached search",
					"key", key, "err", delErr)
			}
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return cached, nil
}

// SetCached stores a response under key with the given TTL.
func (r *CacheRepository) SetCached(ctx context.Context, key string, cached *core.CachedSearch, ttl time.Duration) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), storage.MarshalCachedSearch(cached))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteCached removes a single cached response.
func (r *CacheRepository) DeleteCached(ctx context.Context, key string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCacheKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// PurgeCache removes every cached response and returns how many were dropped.
func (r *CacheRepository) PurgeCache(ctx context.Context) (int, error) {
	var purged int

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		purged = 0

		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queryCachePrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
			purged++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return purged, nil
}

// CacheSize returns the number of live cached responses. Badger iterators
// skip expired entries, so this reflects TTL state.
func (r *CacheRepository) CacheSize(ctx context.Context) (int, error) {
	var count int

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(queryCachePrefix + ":")
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
