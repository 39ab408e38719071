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

import "errors"

// Domain validation errors
var (
	// ErrValidation is the root of the validation error family. Every
	// rejected operation wraps it so callers can errors.Is against one value.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyText indicates text input that is empty or whitespace only.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyDocumentID indicates a missing document identifier.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrInvalidChunkParams indicates chunking parameters out of range.
	ErrInvalidChunkParams = errors.New("invalid chunk parameters")

	// ErrDimensionMismatch indicates a vector whose dimensionality differs
	// from the store's fixed dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidThreshold indicates a similarity threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("similarity threshold must be in [0, 1]")
)
