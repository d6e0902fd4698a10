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

package storage

import (
	"context"

	"github.com/poiesic/larder/core"
)

// Artifacts is the co-versioned set persisted by one indexing run: the recipe
// table, the chunk table, the raw vector array and the serialized vector
// index. The members are only valid together.
type Artifacts struct {
	// Manifest carries run properties (run id, chunk size, median rating,
	// dimension). Version, counts and digests are filled in by the repository.
	Manifest core.Manifest

	Recipes    []*core.Recipe
	Chunks     []core.Chunk
	Vectors    [][]float32 // row i belongs to chunk with GlobalID i
	IndexPages []core.IndexPage
}

// SnapshotRepository persists and loads artifact sets.
// Implementations must be thread-safe and support concurrent access.
type SnapshotRepository interface {
	// SaveSnapshot writes the artifacts under a new version and then
	// publishes that version as current in a single step. If any write fails
	// the partial version is discarded and the previously published version
	// stays current. Returns the manifest of the published version.
	SaveSnapshot(ctx context.Context, artifacts *Artifacts) (*core.Manifest, error)

	// LoadCurrent reads the published artifact set and verifies counts and
	// digests. Vectors is left nil; use LoadVectors for the raw array.
	// Returns ErrNoSnapshot if nothing has been published yet and an error
	// wrapping core.ErrIntegrity if the stored set is inconsistent.
	LoadCurrent(ctx context.Context) (*Artifacts, error)

	// LoadVectors returns the raw vector array of the published version.
	LoadVectors(ctx context.Context) ([][]float32, error)

	// CurrentManifest returns the manifest of the published version.
	// Returns ErrNoSnapshot if nothing has been published yet.
	CurrentManifest(ctx context.Context) (*core.Manifest, error)

	// Close releases repository resources. It does not close the backend.
	Close() error
}
