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

// Package search orchestrates semantic retrieval.
//
// The Searcher type runs a fixed pipeline for each request:
//
//  1. Semantic cache check (optional per request)
//  2. Query embedding through the provider selector
//  3. Vector similarity search with metadata filtering
//  4. Cache fill for non-empty responses
//
// Cached responses are keyed by the normalized query text together with the
// limit, threshold, and canonical filter serialization, so parameter
// variants never collide. Cache failures degrade to an uncached search
// rather than failing the request.
package search
