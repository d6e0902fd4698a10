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

// Package vectorindex provides an exact inner-product index over
// fixed-dimension vectors.
//
// Vectors are appended through a Builder and addressed by their row
// position, which callers use as a global chunk id. A built Flat index is
// read-only and safe for concurrent searches. Search scores every row
// (no approximation) and keeps the k best in a bounded heap.
package vectorindex
