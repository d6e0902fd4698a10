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

// Package metadata holds the recipe and chunk tables of an index.
//
// Recipe ids are dense row positions assigned in input order. Chunk global
// ids are dense as well and equal the row of the chunk's vector in the
// vector index, so a search hit maps to its chunk and recipe by position.
// Missing ratings are imputed with the median of the ratings present in the
// same load.
package metadata
