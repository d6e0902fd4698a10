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

package snapshot

import (
	"fmt"

	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/metadata"
	"github.com/poiesic/larder/storage"
	"github.com/poiesic/larder/vectorindex"
)

// DefaultRowsPerPage is the number of index rows stored per index page.
const DefaultRowsPerPage = 256

// Snapshot is a consistent, read-only set of index artifacts.
type Snapshot struct {
	manifest core.Manifest
	store    *metadata.Store
	index    *vectorindex.Flat
}

// New bundles the artifacts and validates that they belong together.
// Manifest counts and dimension are filled in from store and index.
func New(manifest core.Manifest, store *metadata.Store, index *vectorindex.Flat) (*Snapshot, error) {
	if store == nil || index == nil {
		return nil, fmt.Errorf("%w: snapshot requires a metadata store and an index", core.ErrIntegrity)
	}

	manifest.RecipeCount = store.RecipeCount()
	manifest.ChunkCount = store.ChunkCount()
	manifest.MedianRating = store.MedianRating()
	if index.Dimension() > 0 {
		manifest.Dimension = index.Dimension()
	}

	s := &Snapshot{manifest: manifest, store: store, index: index}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Empty returns a snapshot with no recipes.
func Empty() *Snapshot {
	return &Snapshot{
		store: metadata.NewStore(nil),
		index: vectorindex.Empty(0),
	}
}

// Validate checks cross-artifact consistency: the metadata tables are valid
// and there is exactly one index row per chunk.
func (s *Snapshot) Validate() error {
	if err := s.store.Validate(); err != nil {
		return err
	}
	if s.index.Len() != s.store.ChunkCount() {
		return fmt.Errorf("%w: %d chunks but %d index rows", core.ErrIntegrity, s.store.ChunkCount(), s.index.Len())
	}
	if s.index.Len() > 0 && s.manifest.Dimension != s.index.Dimension() {
		return fmt.Errorf("%w: manifest dimension %d, index dimension %d",
			core.ErrDimensionMismatch, s.manifest.Dimension, s.index.Dimension())
	}
	return nil
}

// Manifest returns the snapshot's manifest.
func (s *Snapshot) Manifest() core.Manifest {
	return s.manifest
}

// Store returns the metadata tables.
func (s *Snapshot) Store() *metadata.Store {
	return s.store
}

// Index returns the vector index.
func (s *Snapshot) Index() *vectorindex.Flat {
	return s.index
}

// IsEmpty reports whether the snapshot has nothing to search.
func (s *Snapshot) IsEmpty() bool {
	return s.index.Len() == 0
}

// Artifacts converts the snapshot to its storage representation. The raw
// vector array holds the same rows as the index.
func (s *Snapshot) Artifacts(rowsPerPage int) *storage.Artifacts {
	if rowsPerPage < 1 {
		rowsPerPage = DefaultRowsPerPage
	}

	vectors := make([][]float32, s.index.Len())
	for i := range vectors {
		vectors[i] = s.index.Vector(i)
	}

	return &storage.Artifacts{
		Manifest:   s.manifest,
		Recipes:    s.store.Recipes(),
		Chunks:     s.store.Chunks(),
		Vectors:    vectors,
		IndexPages: s.index.Pages(rowsPerPage),
	}
}

// FromArtifacts rebuilds a snapshot from stored artifacts.
func FromArtifacts(a *storage.Artifacts) (*Snapshot, error) {
	if a == nil {
		return nil, storage.ErrArtifactsRequired
	}

	store, err := metadata.Restore(a.Recipes, a.Chunks, a.Manifest.MedianRating)
	if err != nil {
		return nil, err
	}

	index, err := vectorindex.FromPages(a.Manifest.Dimension, a.IndexPages)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIntegrity, err)
	}

	return New(a.Manifest, store, index)
}

// WithManifest returns a copy of the snapshot carrying manifest, e.g. the
// manifest returned by the repository after the snapshot was persisted.
func (s *Snapshot) WithManifest(manifest core.Manifest) (*Snapshot, error) {
	return New(manifest, s.store, s.index)
}
