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


// Package search provides recipe retrieval over an indexed snapshot.
//
// The Searcher runs the query pipeline in a fixed order:
//   - Embed the query and search the vector index for a candidate pool
//   - Keep the best chunk per recipe and join the recipe metadata
//   - Re-rank with rating, vegetarian and eco/health signals normalized
//     against the candidate pool
//
// Results are deterministic for a given snapshot: equal final scores are
// ordered by ascending recipe id.
package search
