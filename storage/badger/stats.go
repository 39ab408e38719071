package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/documind/storage"
)

// StatsRepository implements storage.StatsRepository for BadgerDB.
// Counters are stored as fixed-width BigEndian uint64 values.
type StatsRepository struct {
	backend *Backend
}

var _ storage.StatsRepository = (*StatsRepository)(nil)

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(backend *Backend) (*StatsRepository, error) {
	return &StatsRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (r *StatsRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *StatsRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// IncrementCounter adds delta to a named counter and returns the new value.
// Concurrent increments conflict under badger's optimistic transactions, so
// the read-modify-write retries until it commits; callers never see a lost
// count because of contention.
func (r *StatsRepository) IncrementCounter(ctx context.Context, name string, delta uint64) (uint64, error) {
	key := makeCounterKey(name)

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		var value uint64
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			current, err := readCounter(tx, key)
			if err != nil {
				return err
			}
			value = current + delta

			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, value)
			if err := tx.Set(key, buf); err != nil {
				return err
			}
			return tx.Commit()
		}, true)

		if err == nil {
			return value, nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return 0, err
		}
	}
}

// GetCounter returns a counter's value. Unknown counters read as 0.
func (r *StatsRepository) GetCounter(ctx context.Context, name string) (uint64, error) {
	var value uint64

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		value, err = readCounter(tx, makeCounterKey(name))
		return err
	}, false)

	if err != nil {
		return 0, err
	}
	return value, nil
}

// GetCounters returns all counters as a name to value map.
func (r *StatsRepository) GetCounters(ctx context.Context) (map[string]uint64, error) {
	counters := make(map[string]uint64)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(statsCounterPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			name := strings.TrimPrefix(string(item.Key()), statsCounterPrefix+":")
			err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return storage.ErrTruncatedData
				}
				counters[name] = binary.BigEndian.Uint64(val)
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
	return counters, nil
}

func readCounter(tx *badger.Txn, key []byte) (uint64, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var value uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return storage.ErrTruncatedData
		}
		value = binary.BigEndian.Uint64(val)
		return nil
	})
	return value, err
}
