// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vectorstore provides similarity search over stored index entries.
//
// The Store keeps an optional in-memory flat index in front of the
// persistent repository. When the index is built, searches iterate it under
// a read lock; until then they fall back to a full repository scan, which
// returns the same results, just slower. Writers update storage first and
// the in-memory index second, under the write lock.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/poiesic/documind/core"
	"github.com/poiesic/documind/storage"
)

// Store performs vector similarity search with metadata filtering.
// Dimensionality is fixed by the first upsert (or WithDimension) and every
// later vector must match it.
type Store struct {
	repo   storage.VectorRepository
	logger *slog.Logger

	mu    sync.RWMutex
	dim   int
	index map[string]*core.IndexEntry // chunkID -> entry; nil until Rebuild
}

// Option configures a Store.
type Option func(*Store)

// WithDimension pins the expected vector dimensionality up front instead of
// inferring it from the first upsert.
func WithDimension(dim int) Option {
	return func(s *Store) {
		if dim > 0 {
			s.dim = dim
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New creates a Store backed by the given repository. The in-memory index
// starts unbuilt; call Rebuild to load it.
func New(repo storage.VectorRepository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("vectorstore: repository is required")
	}

	s := &Store{
		repo:   repo,
		logger: slog.Default().With("component", "vectorstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dim returns the store's fixed dimensionality, or 0 if not yet fixed.
func (s *Store) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// IndexBuilt reports whether searches run against the in-memory index.
func (s *Store) IndexBuilt() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Upsert validates and persists entries, then updates the in-memory index.
// The first successful upsert fixes the store's dimensionality.
func (s *Store) Upsert(ctx context.Context, entries ...*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	if dim == 0 {
		dim = len(entries[0].Vector)
	}
	for _, entry := range entries {
		if err := core.ValidateIndexEntry(entry, dim); err != nil {
			return err
		}
	}

	if err := s.repo.UpsertEntries(ctx, entries...); err != nil {
		return err
	}

	s.dim = dim
	if s.index != nil {
		for _, entry := range entries {
			s.index[entry.ChunkID] = entry
		}
	}
	return nil
}

// DeleteDocument removes every entry of a document from storage and the
// in-memory index. Returns the number of entries removed.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if err := core.ValidateDocumentID(documentID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.repo.DeleteDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}

	if s.index != nil {
		for chunkID, entry := range s.index {
			if entry.DocumentID == documentID {
				delete(s.index, chunkID)
			}
		}
	}
	return removed, nil
}

// Rebuild loads the in-memory index from storage, replacing any previous
// index. After Rebuild, searches stop scanning the repository.
func (s *Store) Rebuild(ctx context.Context) error {
	fresh := make(map[string]*core.IndexEntry)
	dim := 0

	err := s.repo.ScanEntries(ctx, func(entry *core.IndexEntry) bool {
		if dim == 0 {
			dim = entry.Dim()
		}
		fresh[entry.ChunkID] = entry
		return true
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = fresh
	if s.dim == 0 {
		s.dim = dim
	}
	s.logger.Info("rebuilt in-memory vector index", "entries", len(fresh), "dim", s.dim)
	return nil
}

// Count returns the number of indexed entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	if s.index != nil {
		n := len(s.index)
		s.mu.RUnlock()
		return n, nil
	}
	s.mu.RUnlock()

	return s.repo.CountEntries(ctx)
}

// Search returns up to limit entries scoring at least threshold against the
// query vector, best first. Ties break on chunk ID so results are
// deterministic. Filters are applied before scoring; entries with a
// different dimensionality are skipped.
func (s *Store) Search(ctx context.Context, query []float32, limit int, threshold float32, filters core.Filters) ([]core.SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query vector is empty", core.ErrValidation)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", core.ErrValidation, core.ErrInvalidLimit, limit)
	}

	s.mu.RLock()
	if s.dim != 0 && len(query) != s.dim {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: %w: query has %d components, store uses %d",
			core.ErrValidation, core.ErrDimensionMismatch, len(query), s.dim)
	}

	var results []core.SearchResult
	score := func(entry *core.IndexEntry) {
		if !filters.Match(entry) {
			return
		}
		if entry.Dim() != len(query) {
			return
		}
		sim := CosineSimilarity(query, entry.Vector)
		if sim >= threshold {
			results = append(results, core.SearchResult{
				ChunkID:    entry.ChunkID,
				DocumentID: entry.DocumentID,
				Title:      entry.Title,
				Content:    entry.Content,
				Score:      sim,
			})
		}
	}

	if s.index != nil {
		for _, entry := range s.index {
			score(entry)
		}
		s.mu.RUnlock()
	} else {
		s.mu.RUnlock()
		// Brute-force fallback over storage.
		err := s.repo.ScanEntries(ctx, func(entry *core.IndexEntry) bool {
			score(entry)
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}
