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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunkParams validates chunker configuration.
//
// Rules:
//   - maxSize must be positive
//   - minSize must be non-negative and not exceed maxSize
//   - overlap must be non-negative and strictly less than maxSize
func ValidateChunkParams(maxSize, overlap, minSize int) error {
	if maxSize <= 0 {
		return fmt.Errorf("%w: %w: maxSize %d", ErrValidation, ErrInvalidChunkParams, maxSize)
	}
	if minSize < 0 || minSize > maxSize {
		return fmt.Errorf("%w: %w: minSize %d with maxSize %d", ErrValidation, ErrInvalidChunkParams, minSize, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return fmt.Errorf("%w: %w: overlap %d with maxSize %d", ErrValidation, ErrInvalidChunkParams, overlap, maxSize)
	}
	return nil
}

// ValidateText validates that text has retrievable content.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyText)
	}
	return nil
}

// ValidateDocumentID validates a document identifier.
func ValidateDocumentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyDocumentID)
	}
	return nil
}

// ValidateIndexEntry validates an entry against the store's dimensionality.
// A dim of 0 means the store has not fixed its dimensionality yet and any
// non-empty vector is accepted.
func ValidateIndexEntry(e *IndexEntry, dim int) error {
	if e == nil {
		return fmt.Errorf("%w: entry is nil", ErrValidation)
	}
	if e.ChunkID == "" {
		return fmt.Errorf("%w: entry has no chunk id", ErrValidation)
	}
	if err := ValidateDocumentID(e.DocumentID); err != nil {
		return err
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("%w: entry %s has no vector", ErrValidation, e.ChunkID)
	}
	if dim > 0 && len(e.Vector) != dim {
		return fmt.Errorf("%w: %w: entry %s has %d components, store uses %d",
			ErrValidation, ErrDimensionMismatch, e.ChunkID, len(e.Vector), dim)
	}
	return nil
}

// ValidateSearchParams validates interactive search parameters.
func ValidateSearchParams(query string, limit int, threshold float32) error {
	if err := ValidateText(query); err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("%w: %w: %d", ErrValidation, ErrInvalidLimit, limit)
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: %w: %g", ErrValidation, ErrInvalidThreshold, threshold)
	}
	return nil
}
