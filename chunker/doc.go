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

// Package chunker turns recipes into the short text units that get embedded.
//
// A recipe yields one title chunk ("Title: <title>") when it has a title,
// followed by one ingredient chunk ("Ingredients: a, b, c") per group of at
// most ChunkSize ingredient names, in recipe order. Chunking is deterministic:
// the same recipe and size always produce the same strings.
package chunker
