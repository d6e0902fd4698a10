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

// Package storage provides the persistence abstraction for indexing artifacts.
//
// An indexing run produces four artifacts that are only meaningful together:
// the recipe table, the chunk table, the raw vector array and the serialized
// vector index. The SnapshotRepository interface stores them as one versioned
// set and publishes a version in a single step, so that a reader either sees
// the previous complete set or the new complete set, never a mixture.
//
// # Architecture
//
//   - Artifacts: the co-versioned set handed to and returned by a repository
//   - SnapshotRepository: save/publish, load and verify artifact sets
//   - Digest: BLAKE2b digests recorded in the manifest and checked on load
//   - Marshal*/Unmarshal*: mus-go encodings of the persisted records
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo, err := badger.NewSnapshotRepository(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemorySnapshotRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
