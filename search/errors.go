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

package search

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidTopK is returned when top_k is less than 1.
	ErrInvalidTopK = errors.New("top_k must be at least 1")

	// ErrInvalidWeight is returned when a re-ranking weight is negative or not finite.
	ErrInvalidWeight = errors.New("re-ranking weights must be finite and non-negative")

	// ErrInvalidPoolSize is returned when the candidate pool size is less than 1.
	ErrInvalidPoolSize = errors.New("candidate pool size must be at least 1")
)
