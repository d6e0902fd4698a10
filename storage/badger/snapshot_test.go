package badger

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifacts() *storage.Artifacts {
	recipes := []*core.Recipe{
		{
			ID:           0,
			Title:        "Tomato Soup",
			Rating:       4.5,
			IsVegetarian: true,
			Ingredients: []core.Ingredient{
				{Name: "tomato", Quantity: 4},
				{Name: "salt", Quantity: 1, Unit: "tsp"},
			},
			AvgKcal: core.Float(120),
		},
		{
			ID:            1,
			Title:         "Beef Stew",
			Rating:        4.5,
			RatingImputed: true,
			Ingredients:   []core.Ingredient{{Name: "beef", Quantity: 500, Unit: "g"}},
			AvgFat:        core.Float(22.5),
		},
	}
	chunks := []core.Chunk{
		{GlobalID: 0, RecipeID: 0, Position: 0, Text: "Title: Tomato Soup"},
		{GlobalID: 1, RecipeID: 0, Position: 1, Text: "Ingredients: tomato, salt"},
		{GlobalID: 2, RecipeID: 1, Position: 0, Text: "Title: Beef Stew"},
	}
	vectors := [][]float32{
		{1, 0},
		{0.6, 0.8},
		{0, 1},
	}
	pages := []core.IndexPage{
		{FirstRow: 0, Dimension: 2, Data: []float32{1, 0, 0.6, 0.8}},
		{FirstRow: 2, Dimension: 2, Data: []float32{0, 1}},
	}
	return &storage.Artifacts{
		Manifest: core.Manifest{
			RunID:        "run-1",
			Dimension:    2,
			ChunkSize:    5,
			MedianRating: 4.5,
		},
		Recipes:    recipes,
		Chunks:     chunks,
		Vectors:    vectors,
		IndexPages: pages,
	}
}

func TestSnapshotRepository_NoSnapshot(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	_, err = repo.LoadCurrent(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)

	_, err = repo.CurrentManifest(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)

	_, err = repo.LoadVectors(ctx)
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()
	artifacts := testArtifacts()

	manifest, err := repo.SaveSnapshot(ctx, artifacts)
	require.NoError(t, err)
	require.NotNil(t, manifest)

	assert.NotZero(t, manifest.Version)
	assert.Equal(t, 2, manifest.RecipeCount)
	assert.Equal(t, 3, manifest.ChunkCount)
	assert.False(t, manifest.CreatedAt.IsZero())
	assert.NotEmpty(t, manifest.RecipesDigest)
	assert.NotEmpty(t, manifest.ChunksDigest)
	assert.NotEmpty(t, manifest.VectorsDigest)
	assert.NotEmpty(t, manifest.IndexDigest)

	loaded, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)

	assert.Equal(t, *manifest, loaded.Manifest)
	assert.Equal(t, artifacts.Recipes, loaded.Recipes)
	assert.Equal(t, artifacts.Chunks, loaded.Chunks)
	assert.Equal(t, artifacts.IndexPages, loaded.IndexPages)
	assert.Nil(t, loaded.Vectors)

	vectors, err := repo.LoadVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, artifacts.Vectors, vectors)

	current, err := repo.CurrentManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, manifest, current)
}

func TestSnapshotRepository_ReplacesPreviousVersion(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	first, err := repo.SaveSnapshot(ctx, testArtifacts())
	require.NoError(t, err)

	second := testArtifacts()
	second.Manifest.RunID = "run-2"
	second.Recipes = second.Recipes[:1]
	second.Chunks = second.Chunks[:2]
	second.Vectors = second.Vectors[:2]
	second.IndexPages = second.IndexPages[:1]

	saved, err := repo.SaveSnapshot(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, saved.Version, first.Version)

	loaded, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", loaded.Manifest.RunID)
	assert.Len(t, loaded.Recipes, 1)
	assert.Len(t, loaded.Chunks, 2)

	// The superseded version is removed once the new one is published.
	assert.Equal(t, 0, countPrefix(t, backend, makeSnapshotPrefix(first.Version)))
}

func TestSnapshotRepository_EmptySnapshot(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	manifest, err := repo.SaveSnapshot(ctx, &storage.Artifacts{Manifest: core.Manifest{Dimension: 8}})
	require.NoError(t, err)
	assert.Equal(t, 0, manifest.RecipeCount)

	loaded, err := repo.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Recipes)
	assert.Empty(t, loaded.Chunks)
	assert.Empty(t, loaded.IndexPages)
}

func TestSnapshotRepository_Errors(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	t.Run("nil artifacts", func(t *testing.T) {
		_, err := repo.SaveSnapshot(ctx, nil)
		assert.ErrorIs(t, err, storage.ErrArtifactsRequired)
	})

	t.Run("vector count mismatch", func(t *testing.T) {
		artifacts := testArtifacts()
		artifacts.Vectors = artifacts.Vectors[:1]
		_, err := repo.SaveSnapshot(ctx, artifacts)
		assert.ErrorIs(t, err, core.ErrIntegrity)

		// Nothing was published.
		_, err = repo.CurrentManifest(ctx)
		assert.ErrorIs(t, err, storage.ErrNoSnapshot)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := repo.SaveSnapshot(cancelled, testArtifacts())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSnapshotRepository_DetectsTampering(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	defer func() {
		repo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	manifest, err := repo.SaveSnapshot(ctx, testArtifacts())
	require.NoError(t, err)

	tampered := &core.Recipe{ID: 1, Title: "Beef Stew", Rating: 1}
	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeArtifactKey(manifest.Version, recipeKind, 1), storage.MarshalRecipe(tampered)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	_, err = repo.LoadCurrent(ctx)
	assert.ErrorIs(t, err, core.ErrIntegrity)
}

func TestSnapshotRepository_ClosedBackend(t *testing.T) {
	repo, backend, err := NewMemorySnapshotRepository()
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, backend.Close())

	_, err = repo.SaveSnapshot(context.Background(), testArtifacts())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
