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

// Package local provides an in-process embedding model that needs no
// network access. It is a feature-hashing bag-of-words model: every token
// is hashed into a fixed number of buckets with a hash-derived sign, and
// the accumulated vector is unit-normalized. Texts sharing vocabulary land
// near each other under cosine similarity, which is enough for offline
// operation and degraded-mode ingestion.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/poiesic/documind/ai"
	"github.com/poiesic/documind/core"
)

// Dim is the embedding dimension of the local model.
const Dim = 384

// ModelName identifies the local model in cache keys and index entries.
const ModelName = "hash-feature-v1"

// Embedder is a deterministic local embedding model. It is stateless and
// safe for concurrent use.
type Embedder struct {
	dim int
}

// NewEmbedder creates a local embedder with the default dimension.
func NewEmbedder() *Embedder {
	return &Embedder{dim: Dim}
}

// NewEmbedderWithDim creates a local embedder emitting dim-wide vectors.
// Pinning the local model to the remote model's dimensionality keeps
// degraded-mode vectors compatible with a store fixed by remote ones.
// Non-positive dims fall back to the default.
func NewEmbedderWithDim(dim int) *Embedder {
	if dim <= 0 {
		dim = Dim
	}
	return &Embedder{dim: dim}
}

// Dim reports the embedder's output dimensionality.
func (e *Embedder) Dim() int {
	return e.dim
}

// EmbedText generates a deterministic embedding for a single text.
// It never fails; an empty text yields the zero vector.
func (e *Embedder) EmbedText(_ context.Context, text string) (ai.Result, error) {
	return ai.Result{
		Vector:   e.embed(text),
		Provider: core.ProviderLocal,
		Model:    ModelName,
	}, nil
}

// EmbedTexts generates deterministic embeddings for multiple texts, in
// input order.
func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([]ai.Result, error) {
	if len(texts) == 0 {
		return nil, ai.ErrEmptyBatch
	}

	results := make([]ai.Result, len(texts))
	for i, text := range texts {
		results[i] = ai.Result{
			Vector:   e.embed(text),
			Provider: core.ProviderLocal,
			Model:    ModelName,
		}
	}
	return results, nil
}

// Kind reports the provider kind.
func (e *Embedder) Kind() core.ProviderKind {
	return core.ProviderLocal
}

// Model returns the local model identifier.
func (e *Embedder) Model() string {
	return ModelName
}

// embed hashes unigram and bigram token features into buckets and
// unit-normalizes the accumulated vector.
func (e *Embedder) embed(text string) []float32 {
	vector := make([]float32, e.dim)

	tokens := tokenize(text)
	for i, tok := range tokens {
		accumulate(vector, tok)
		if i+1 < len(tokens) {
			accumulate(vector, tok+" "+tokens[i+1])
		}
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		inv := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= inv
		}
	}
	return vector
}

// accumulate adds a single hashed feature to the vector. The low bits pick
// the bucket and one high bit picks the sign, which keeps colliding
// features from always reinforcing each other.
func accumulate(vector []float32, feature string) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := sum % uint64(len(vector))
	if sum&(1<<63) != 0 {
		vector[bucket] -= 1
	} else {
		vector[bucket] += 1
	}
}

// tokenize lowercases the text and splits it on anything that is not a
// letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
