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

// Package ingestion builds and publishes recipe indexes.
//
// The Pipeline runs the indexing steps strictly in order:
//   - assign recipe ids and impute missing ratings
//   - chunk every recipe in id order, assigning global chunk ids
//   - embed all chunk texts, preserving order
//   - build the vector index from the embeddings
//   - persist recipes, chunks, vectors and index as one version
//
// Embedding runs in parallel batches; every other step is sequential. A run
// that fails at any step publishes nothing, and the previously published
// version stays current.
//
// LoadRecipes decodes the cleaned-recipe JSON format consumed by the pipeline.
package ingestion
