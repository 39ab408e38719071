package ai

import (
	"context"

	"github.com/poiesic/documind/core"
)

// Result is an embedding outcome tagged with the provider that produced it.
// Callers switch on Provider; TokenUsage is only meaningful for
// core.ProviderRemote and is zero for local results.
type Result struct {
	// Vector is the fixed-length embedding.
	Vector []float32

	// Provider tags which backend produced the vector.
	Provider core.ProviderKind

	// Model is the concrete model identifier.
	Model string

	// TokenUsage is the estimated token count billed for a remote call.
	// The embeddings transport does not surface exact usage, so this is
	// derived from the input length. Always 0 for local results.
	TokenUsage int
}

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) (Result, error)

	// EmbedTexts generates vector embeddings for multiple text strings.
	// The returned slice contains results in the same order as the input.
	// Implementations split the input into provider-appropriate
	// sub-batches internally.
	EmbedTexts(ctx context.Context, texts []string) ([]Result, error)

	// Kind reports which provider this embedder is.
	Kind() core.ProviderKind

	// Model returns the concrete model identifier, used for cache keying.
	Model() string
}

// Provider aggregates embedding services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
