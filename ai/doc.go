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

// Package ai provides abstractions for embedding acquisition in DocuMind.
//
// This package defines the Embedder and Provider interfaces plus the
// Selector that routes work between a remote, OpenAI-compatible provider
// and the in-process local model. It follows the dependency inversion
// principle, allowing the core domain and business logic to depend on
// abstractions rather than concrete implementations.
//
// # Implementation Packages
//
// The ai package includes three implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/local: Deterministic in-process model for offline operation
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Provider Selection
//
// The Selector prefers the remote provider when one is configured. A query
// embedding that fails remotely surfaces the failure to the caller; a
// failed ingestion batch falls back to the local model so no chunk is
// dropped. Every result is tagged with the provider and model that
// produced it, and memoized in a content-addressed cache.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	selector, err := ai.NewSelector(provider.Embedder(), local.NewEmbedder())
//	result, err := selector.EmbedQuery(ctx, "how do I rotate keys?")
package ai
