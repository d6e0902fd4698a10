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

// Package embedding turns texts into unit-length vectors using an ai.Embedder
// backend.
//
// Texts are split into batches of at most MaxBatchSize, embedded in parallel
// on a worker pool, and reassembled in input order. Failed backend calls are
// retried with exponential backoff. Every returned vector is L2-normalized so
// that inner product equals cosine similarity. A backend vector with zero
// magnitude cannot be normalized; it is kept as-is and its position is
// reported in Result.Degenerate. A vector with a NaN or infinite component
// fails the call with ErrEmbeddingFailed.
//
// All vectors produced by one Embedder share a single dimension. It is either
// configured with WithDimension or learned from the first backend response.
package embedding
