package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Embedder implements ai.Embedder against OpenAI-compatible embedding APIs.
// Batches larger than the configured batch size are split into sequential
// sub-batches, each gated by a shared rate limiter.
type Embedder struct {
	embedder  embeddings.Embedder
	model     string
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// "none" works as a token for local OpenAI-compatible services that
	// don't require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.RemoteHost),
		openai.WithToken(config.APIToken),
		openai.WithEmbeddingModel(config.RemoteModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:  embedder,
		model:     config.RemoteModel,
		batchSize: config.RemoteBatchSize,
		limiter:   rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:    slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) (ai.Result, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	if err := e.limiter.Wait(ctx); err != nil {
		return ai.Result{}, err
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return ai.Result{}, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return ai.Result{}, fmt.Errorf("%w: empty response", ai.ErrProviderUnavailable)
	}

	return e.result(vectors[0], text), nil
}

// EmbedTexts generates vector embeddings for multiple text strings,
// splitting the input into sub-batches of the configured size.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([]ai.Result, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyBatch
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	results := make([]ai.Result, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := e.embedder.EmbedDocuments(ctx, batch)
		if err != nil {
			e.logger.Error("failed to generate embeddings",
				"offset", start, "count", len(batch), "err", err)
			return nil, fmt.Errorf("%w: %w", ai.ErrProviderUnavailable, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d embeddings, received %d",
				ai.ErrProviderUnavailable, len(batch), len(vectors))
		}

		for i, v := range vectors {
			results = append(results, e.result(v, batch[i]))
		}
	}
	return results, nil
}

// Kind reports the provider kind.
func (e *Embedder) Kind() core.ProviderKind {
	return core.ProviderRemote
}

// Model returns the configured embedding model identifier.
func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) result(vector []float32, text string) ai.Result {
	return ai.Result{
		Vector:   vector,
		Provider: core.ProviderRemote,
		Model:    e.model,
		// The embeddings transport does not report usage; approximate
		// tokens at four characters apiece.
		TokenUsage: (len(text) + 3) / 4,
	}
}
