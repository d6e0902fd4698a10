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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/storage"
)

// SnapshotRepository implements storage.SnapshotRepository for BadgerDB.
//
// Every artifact set is written under its own version prefix. The version
// only becomes visible when snapshotCurrentKey is switched to it, which
// happens in one transaction after all rows have been flushed.
type SnapshotRepository struct {
	backend    *Backend
	versionSeq *badger.Sequence
	logger     *slog.Logger
}

var _ storage.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(backend *Backend) (*SnapshotRepository, error) {
	versionSeq, err := backend.GetSequence(snapshotVersionSeq)
	if err != nil {
		return nil, err
	}

	return &SnapshotRepository{
		backend:    backend,
		versionSeq: versionSeq,
		logger:     slog.Default().With("component", "snapshot-repository"),
	}, nil
}

// Close releases the version sequence.
func (r *SnapshotRepository) Close() error {
	return r.versionSeq.Release()
}

// SaveSnapshot persists the artifacts under a new version and publishes it.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, artifacts *storage.Artifacts) (*core.Manifest, error) {
	if artifacts == nil {
		return nil, storage.ErrArtifactsRequired
	}
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	version, err := r.nextVersion()
	if err != nil {
		return nil, err
	}
	logger := r.logger.With("version", version)

	manifest, err := r.writeArtifacts(ctx, version, artifacts)
	if err != nil {
		logger.Error("error writing artifacts, discarding version", "err", err)
		r.discard(version)
		return nil, err
	}

	previous, err := r.publish(version)
	if err != nil {
		logger.Error("error publishing version, discarding", "err", err)
		r.discard(version)
		return nil, err
	}

	logger.Info("published snapshot",
		"recipes", manifest.RecipeCount,
		"chunks", manifest.ChunkCount,
		"dimension", manifest.Dimension)

	// Superseded versions are no longer reachable through snapshotCurrentKey.
	if previous != 0 {
		r.discard(previous)
	}

	return manifest, nil
}

// nextVersion returns the next non-zero version number.
func (r *SnapshotRepository) nextVersion() (uint64, error) {
	version, err := r.versionSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if version == 0 {
		version, err = r.versionSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return version, nil
}

// writeArtifacts streams every row of the set into the version's key range
// and writes the manifest last.
func (r *SnapshotRepository) writeArtifacts(ctx context.Context, version uint64, a *storage.Artifacts) (*core.Manifest, error) {
	wb := r.backend.NewWriteBatch()
	flushed := false
	defer func() {
		if !flushed {
			wb.Cancel()
		}
	}()

	manifest := a.Manifest
	manifest.Version = version
	manifest.RecipeCount = len(a.Recipes)
	manifest.ChunkCount = len(a.Chunks)
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now()
	}
	// Stored with microsecond precision.
	manifest.CreatedAt = manifest.CreatedAt.UTC().Truncate(time.Microsecond)

	if len(a.Vectors) != len(a.Chunks) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", core.ErrIntegrity, len(a.Chunks), len(a.Vectors))
	}

	write := func(kind string, count int, value func(i int) []byte) (string, error) {
		digest := storage.NewDigest()
		for i := 0; i < count; i++ {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return "", err
				}
			}
			val := value(i)
			digest.Add(val)
			if err := wb.Set(makeArtifactKey(version, kind, i), val); err != nil {
				return "", err
			}
		}
		return digest.Sum(), nil
	}

	var err error
	manifest.RecipesDigest, err = write(recipeKind, len(a.Recipes), func(i int) []byte {
		return storage.MarshalRecipe(a.Recipes[i])
	})
	if err != nil {
		return nil, err
	}
	manifest.ChunksDigest, err = write(chunkKind, len(a.Chunks), func(i int) []byte {
		return storage.MarshalChunk(a.Chunks[i])
	})
	if err != nil {
		return nil, err
	}
	manifest.VectorsDigest, err = write(vectorKind, len(a.Vectors), func(i int) []byte {
		return storage.MarshalVector(a.Vectors[i])
	})
	if err != nil {
		return nil, err
	}
	manifest.IndexDigest, err = write(indexKind, len(a.IndexPages), func(i int) []byte {
		return storage.MarshalIndexPage(a.IndexPages[i])
	})
	if err != nil {
		return nil, err
	}

	if err := wb.Set(makeManifestKey(version), storage.MarshalManifest(&manifest)); err != nil {
		return nil, err
	}

	flushed = true
	if err := wb.Flush(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// publish switches snapshotCurrentKey to version and returns the version it
// replaced (0 if none).
func (r *SnapshotRepository) publish(version uint64) (uint64, error) {
	var previous uint64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		previous, err = readCurrentVersion(tx)
		if err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
			return err
		}
		if err := tx.Set([]byte(snapshotCurrentKey), storage.MarshalVersion(version)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return previous, err
}

// discard deletes every key of a version. Failures are logged only; an
// unreferenced version is invisible to readers.
func (r *SnapshotRepository) discard(version uint64) {
	if err := r.backend.DeletePrefix(context.Background(), makeSnapshotPrefix(version)); err != nil {
		r.logger.Warn("error discarding snapshot version", "version", version, "err", err)
	}
}

// CurrentManifest returns the manifest of the published version.
func (r *SnapshotRepository) CurrentManifest(ctx context.Context) (*core.Manifest, error) {
	var manifest *core.Manifest
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		version, err := readCurrentVersion(tx)
		if err != nil {
			return err
		}
		manifest, err = readManifest(tx, version)
		return err
	}, false)
	return manifest, err
}

// LoadCurrent reads and verifies the published artifact set. All reads
// happen in one transaction, so a concurrent publish cannot mix versions.
func (r *SnapshotRepository) LoadCurrent(ctx context.Context) (*storage.Artifacts, error) {
	var artifacts *storage.Artifacts
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		version, err := readCurrentVersion(tx)
		if err != nil {
			return err
		}
		manifest, err := readManifest(tx, version)
		if err != nil {
			return err
		}

		a := &storage.Artifacts{
			Manifest: *manifest,
			Recipes:  make([]*core.Recipe, 0, manifest.RecipeCount),
			Chunks:   make([]core.Chunk, 0, manifest.ChunkCount),
		}

		recipesDigest := storage.NewDigest()
		err = scanPrefix(tx, makeArtifactPrefix(version, recipeKind), func(_, val []byte) error {
			recipesDigest.Add(val)
			recipe, err := storage.UnmarshalRecipe(val)
			if err != nil {
				return err
			}
			a.Recipes = append(a.Recipes, recipe)
			return nil
		})
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		chunksDigest := storage.NewDigest()
		err = scanPrefix(tx, makeArtifactPrefix(version, chunkKind), func(_, val []byte) error {
			chunksDigest.Add(val)
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			a.Chunks = append(a.Chunks, chunk)
			return nil
		})
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		// The raw vector array is only verified here, not kept.
		vectorsDigest := storage.NewDigest()
		vectorCount := 0
		err = scanPrefix(tx, makeArtifactPrefix(version, vectorKind), func(_, val []byte) error {
			vectorsDigest.Add(val)
			vectorCount++
			return nil
		})
		if err != nil {
			return err
		}

		indexDigest := storage.NewDigest()
		err = scanPrefix(tx, makeArtifactPrefix(version, indexKind), func(_, val []byte) error {
			indexDigest.Add(val)
			page, err := storage.UnmarshalIndexPage(val)
			if err != nil {
				return err
			}
			a.IndexPages = append(a.IndexPages, page)
			return nil
		})
		if err != nil {
			return err
		}

		checks := []struct {
			name      string
			want, got string
		}{
			{"recipes", manifest.RecipesDigest, recipesDigest.Sum()},
			{"chunks", manifest.ChunksDigest, chunksDigest.Sum()},
			{"vectors", manifest.VectorsDigest, vectorsDigest.Sum()},
			{"index", manifest.IndexDigest, indexDigest.Sum()},
		}
		for _, c := range checks {
			if c.want != c.got {
				return fmt.Errorf("%w: %s digest mismatch in version %d", core.ErrIntegrity, c.name, version)
			}
		}
		if len(a.Recipes) != manifest.RecipeCount {
			return fmt.Errorf("%w: manifest lists %d recipes, found %d", core.ErrIntegrity, manifest.RecipeCount, len(a.Recipes))
		}
		if len(a.Chunks) != manifest.ChunkCount {
			return fmt.Errorf("%w: manifest lists %d chunks, found %d", core.ErrIntegrity, manifest.ChunkCount, len(a.Chunks))
		}
		if vectorCount != manifest.ChunkCount {
			return fmt.Errorf("%w: manifest lists %d chunks, found %d vectors", core.ErrIntegrity, manifest.ChunkCount, vectorCount)
		}

		artifacts = a
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

// LoadVectors returns the raw vector array of the published version.
func (r *SnapshotRepository) LoadVectors(ctx context.Context) ([][]float32, error) {
	var vectors [][]float32
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		version, err := readCurrentVersion(tx)
		if err != nil {
			return err
		}
		return scanPrefix(tx, makeArtifactPrefix(version, vectorKind), func(_, val []byte) error {
			vector, err := storage.UnmarshalVector(val)
			if err != nil {
				return err
			}
			vectors = append(vectors, vector)
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// readCurrentVersion returns the published version or storage.ErrNoSnapshot.
func readCurrentVersion(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get([]byte(snapshotCurrentKey))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, storage.ErrNoSnapshot
		}
		return 0, err
	}
	var version uint64
	err = item.Value(func(val []byte) error {
		var err error
		version, err = storage.UnmarshalVersion(val)
		return err
	})
	return version, err
}

// readManifest reads the manifest of a version. A published version without
// a manifest is an integrity violation.
func readManifest(tx *badger.Txn, version uint64) (*core.Manifest, error) {
	item, err := tx.Get(makeManifestKey(version))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: manifest missing for version %d", core.ErrIntegrity, version)
		}
		return nil, err
	}
	var manifest *core.Manifest
	err = item.Value(func(val []byte) error {
		var err error
		manifest, err = storage.UnmarshalManifest(val)
		return err
	})
	return manifest, err
}
