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

package ingestion

import (
	"context"
	"time"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		// Exponential backoff: baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

const (
	reembedMaxAttempts = 3
	reembedBaseDelay   = 500 * time.Millisecond
)

// Reembed regenerates the vector for every stored entry with whichever
// provider is currently preferred. Useful after a remote model upgrade or
// when entries were indexed under the local fallback during an outage.
// Each document is re-embedded under its own lock, in embedding batches,
// with bounded retries per batch. Returns the number of entries refreshed.
func (p *Pipeline) Reembed(ctx context.Context) (int, error) {
	docs, err := p.repo.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, doc := range docs {
		refreshed, err := p.reembedDocument(ctx, doc.ID)
		if err != nil {
			return total, err
		}
		total += refreshed
	}

	if total > 0 {
		p.count(ctx, "vectors_reembedded", uint64(total))
	}
	p.logger.Info("re-embedding complete", "documents", len(docs), "vectors", total)
	return total, nil
}

func (p *Pipeline) reembedDocument(ctx context.Context, documentID string) (int, error) {
	p.docLocks.lock(documentID)
	defer p.docLocks.unlock(documentID)

	entries, err := p.repo.ListDocumentEntries(ctx, documentID)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for start := 0; start < len(entries); start += p.batchSize {
		end := start + p.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i, entry := range batch {
			// Evict first so the selector embeds fresh instead of
			// replaying the vector this entry already carries.
			p.selector.EvictText(entry.Content)
			texts[i] = entry.Content
		}

		err := RetryWithBackoff(ctx, func() error {
			results, embedErr := p.selector.EmbedBatch(ctx, texts)
			if embedErr != nil {
				return embedErr
			}
			for i, entry := range batch {
				entry.Vector = results[i].Vector
				entry.Provider = results[i].Provider
				entry.Model = results[i].Model
			}
			return nil
		}, reembedMaxAttempts, reembedBaseDelay)
		if err != nil {
			return refreshed, err
		}

		if err := p.store.Upsert(ctx, batch...); err != nil {
			return refreshed, err
		}
		refreshed += len(batch)
	}

	return refreshed, nil
}
