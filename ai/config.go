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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for embedding providers.
type Config struct {
	// RemoteHost is the base URL for the remote embedding API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible
	// server, or "https://api.openai.com/v1".
	// Leave empty to run without a remote provider.
	RemoteHost string

	// RemoteModel is the model identifier for remote embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	RemoteModel string

	// APIToken authenticates remote calls. "none" works for local
	// OpenAI-compatible services that don't require authentication.
	APIToken string

	// Dimensions is the output dimensionality of the remote model. The
	// local fallback embedder is pinned to the same width so degraded
	// ingestion and later re-embedding stay compatible with a store whose
	// dimension was fixed by remote vectors.
	// Default: 1536 (text-embedding-3-small)
	Dimensions int

	// RemoteBatchSize caps how many texts go into one remote request.
	// Default: 10
	RemoteBatchSize int

	// RequestsPerSecond paces remote sub-batches. Default: 2
	RequestsPerSecond float64

	// MaxTextChars is the character budget per text; longer text is
	// deterministically truncated before embedding, never rejected.
	// Default: 8192
	MaxTextChars int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithRemoteHost sets the remote embedding service host URL.
func WithRemoteHost(host string) ConfigOption {
	return func(c *Config) {
		c.RemoteHost = host
	}
}

// WithRemoteModel sets the remote embedding model identifier.
func WithRemoteModel(model string) ConfigOption {
	return func(c *Config) {
		c.RemoteModel = model
	}
}

// WithAPIToken sets the API token for remote calls.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithDimensions sets the remote model's output dimensionality.
func WithDimensions(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dim
	}
}

// WithRemoteBatchSize sets the remote sub-batch cap.
func WithRemoteBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.RemoteBatchSize = size
	}
}

// WithRequestsPerSecond sets the remote rate limit.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithMaxChars sets the per-text character budget.
func WithMaxChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTextChars = n
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible embedding service.
func DefaultConfig() *Config {
	return &Config{
		RemoteHost:        "http://localhost:11434/v1",
		RemoteModel:       "text-embedding-3-small",
		APIToken:          "none",
		Dimensions:        1536,
		RemoteBatchSize:   10,
		RequestsPerSecond: 2,
		MaxTextChars:      8192,
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form. It adds the
// /v1 suffix to the remote host if missing, which is required by most
// OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.RemoteHost != "" && !strings.HasSuffix(c.RemoteHost, "/v1") {
		c.RemoteHost = strings.TrimSuffix(c.RemoteHost, "/")
		c.RemoteHost = c.RemoteHost + "/v1"
	}
	if c.Dimensions <= 0 {
		c.Dimensions = 1536
	}
	if c.RemoteBatchSize <= 0 {
		c.RemoteBatchSize = 10
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.MaxTextChars <= 0 {
		c.MaxTextChars = 8192
	}
}

// Validate checks that the configuration is valid and complete for a
// remote provider. It automatically normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.RemoteHost == "" {
		return errors.New("ai config: RemoteHost is required")
	}
	if c.RemoteModel == "" {
		return errors.New("ai config: RemoteModel is required")
	}
	if c.APIToken == "" {
		return errors.New("ai config: APIToken is required")
	}
	return nil
}
