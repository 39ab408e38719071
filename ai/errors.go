package ai

import "errors"

var (
	// ErrProviderUnavailable indicates that the remote embedding provider
	// could not be reached or rejected the call. Ingestion reacts by
	// falling back to the local provider per item; interactive queries
	// surface it to the caller.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrNoEmbedder indicates that no embedding backend is configured.
	ErrNoEmbedder = errors.New("no embedder configured")

	// ErrEmptyBatch indicates a batch call with no texts.
	ErrEmptyBatch = errors.New("empty embedding batch")
)
