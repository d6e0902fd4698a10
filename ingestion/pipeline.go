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

package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/larder/chunker"
	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/embedding"
	"github.com/poiesic/larder/metadata"
	"github.com/poiesic/larder/snapshot"
	"github.com/poiesic/larder/storage"
	"github.com/poiesic/larder/vectorindex"
)

// Pipeline builds a snapshot from recipe records and publishes it.
type Pipeline struct {
	repository     storage.SnapshotRepository
	embedder       *embedding.Embedder
	chunker        *chunker.Chunker
	rowsPerPage    int
	progressWriter io.Writer
	progressEvery  int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunkSize sets the number of ingredient names per ingredient chunk.
// Default is chunker.DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		p.chunker = chunker.New(size)
		return nil
	}
}

// WithRowsPerPage sets how many index rows are stored per index page.
// Default is snapshot.DefaultRowsPerPage.
func WithRowsPerPage(rows int) Option {
	return func(p *Pipeline) error {
		if rows < 1 {
			rows = snapshot.DefaultRowsPerPage
		}
		p.rowsPerPage = rows
		return nil
	}
}

// WithProgress reports embedding progress to w every reportInterval chunks.
// Progress is not reported by default.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(p *Pipeline) error {
		p.progressWriter = w
		p.progressEvery = reportInterval
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "indexer")
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(repository storage.SnapshotRepository, embedder *embedding.Embedder, opts ...Option) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		repository:  repository,
		embedder:    embedder,
		chunker:     chunker.New(chunker.DefaultChunkSize),
		rowsPerPage: snapshot.DefaultRowsPerPage,
		logger:      slog.Default().With("component", "indexer"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Build runs the in-memory indexing steps and returns the resulting
// snapshot without persisting it.
func (p *Pipeline) Build(ctx context.Context, records []core.RawRecipe) (*snapshot.Snapshot, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run", runID)
	start := time.Now()

	for i := range records {
		if err := core.ValidateRawRecipe(&records[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidRecord, i, err)
		}
	}

	// Step 1: recipe table with ids and imputed ratings
	store := metadata.NewStore(records)
	logger.Info("loaded recipes",
		"recipes", store.RecipeCount(),
		"median_rating", store.MedianRating())

	// Step 2: chunk table in recipe order
	empty := 0
	for _, recipe := range store.Recipes() {
		texts := p.chunker.Chunk(recipe)
		if len(texts) == 0 {
			empty++
			continue
		}
		for _, text := range texts {
			store.AddChunk(recipe.ID, text)
		}
	}
	if empty > 0 {
		logger.Warn("recipes without title or ingredients produce no chunks", "recipes", empty)
	}
	logger.Info("created chunks", "chunks", store.ChunkCount(), "chunk_size", p.chunker.Size())

	// Step 3: embeddings in chunk order
	texts := store.ChunkTexts()
	var tracker *ProgressTracker
	var progress embedding.ProgressFunc
	if p.progressWriter != nil && len(texts) > 0 {
		tracker = NewProgressTracker(p.progressWriter, len(texts), p.progressEvery)
		tracker.Start()
		progress = func(done, _ int) { tracker.Update(done) }
	}
	result, err := p.embedder.EmbedWithProgress(ctx, texts, progress)
	if err != nil {
		logger.Error("error embedding chunks", "err", err)
		return nil, err
	}
	if tracker != nil {
		tracker.Finish()
	}
	if len(result.Degenerate) > 0 {
		logger.Warn("chunks with degenerate embeddings", "chunks", len(result.Degenerate))
	}

	// Step 4: vector index, row i = chunk i
	index, err := buildIndex(result.Vectors, p.embedder.Dimension())
	if err != nil {
		return nil, err
	}

	manifest := core.Manifest{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Dimension: index.Dimension(),
		ChunkSize: p.chunker.Size(),
	}
	snap, err := snapshot.New(manifest, store, index)
	if err != nil {
		return nil, err
	}

	logger.Info("built index",
		"vectors", index.Len(),
		"dimension", index.Dimension(),
		"elapsed", time.Since(start))
	return snap, nil
}

// Run builds a snapshot and publishes it. On any error nothing is published.
// The returned snapshot carries the manifest of the published version.
func (p *Pipeline) Run(ctx context.Context, records []core.RawRecipe) (*snapshot.Snapshot, error) {
	snap, err := p.Build(ctx, records)
	if err != nil {
		return nil, err
	}

	// Step 5: persist the co-versioned artifacts
	manifest, err := p.repository.SaveSnapshot(ctx, snap.Artifacts(p.rowsPerPage))
	if err != nil {
		p.logger.Error("error publishing snapshot", "run", snap.Manifest().RunID, "err", err)
		return nil, err
	}

	p.logger.Info("published snapshot", "run", manifest.RunID, "version", manifest.Version)
	return snap.WithManifest(*manifest)
}

func buildIndex(vectors [][]float32, dimension int) (*vectorindex.Flat, error) {
	if len(vectors) == 0 {
		return vectorindex.Empty(dimension), nil
	}

	builder, err := vectorindex.NewBuilder(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := builder.Add(vectors...); err != nil {
		return nil, err
	}
	return builder.Build(), nil
}
