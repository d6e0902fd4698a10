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

// Package larder retrieves recipes for free-text queries by combining
// semantic similarity with rating, vegetarian and eco/health signals.
//
// A Larder owns one artifact store. Reindex builds and publishes a new
// snapshot and swaps it in; Retrieve serves queries from whichever snapshot
// is current when the query starts.
package larder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/larder/ai"
	"github.com/poiesic/larder/ai/mock"
	"github.com/poiesic/larder/ai/openai"
	"github.com/poiesic/larder/ai/openaiapi"
	"github.com/poiesic/larder/config"
	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/embedding"
	"github.com/poiesic/larder/ingestion"
	"github.com/poiesic/larder/search"
	"github.com/poiesic/larder/snapshot"
	"github.com/poiesic/larder/storage"
	"github.com/poiesic/larder/storage/badger"
)

// Larder owns the artifact store, the embedding provider and the searcher
// serving the current snapshot.
type Larder struct {
	backend  *badger.Backend
	repo     storage.SnapshotRepository
	provider ai.AIProvider
	embedder *embedding.Embedder
	searcher *search.Searcher
	config   *config.AppConfig
	progress io.Writer
	logger   *slog.Logger // scoped to this component
	base     *slog.Logger // handed to the components we create

	// serializes re-indexing; queries never take it
	reindexMu sync.Mutex
}

// Option configures a Larder.
type Option func(*options)

type options struct {
	config   *config.AppConfig
	provider ai.AIProvider
	progress io.Writer
	logger   *slog.Logger
}

// WithConfig sets the application configuration.
// Default is config.Default().
func WithConfig(cfg *config.AppConfig) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithProvider uses provider instead of creating one from the embedder
// configuration. The Larder takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithProgress reports embedding progress of re-indexing runs to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewProvider creates the embedding provider selected by cfg.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openaiapi.NewProvider(cfg)
	case ai.ProviderMock:
		return mock.NewMockProvider(), nil
	default:
		return openai.NewProvider(cfg)
	}
}

// Open opens the artifact store at path and loads the published snapshot,
// if any. An empty path opens an in-memory store.
func Open(path string, opts ...Option) (*Larder, error) {
	// Apply options
	o := &options{
		config: config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = config.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	// Open backend
	backend, err := badger.OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewSnapshotRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	l := &Larder{
		backend:  backend,
		repo:     repo,
		config:   o.config,
		progress: o.progress,
		logger:   o.logger.With("component", "larder"),
		base:     o.logger,
	}

	if err := l.init(o); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Larder) init(o *options) error {
	// Create AI provider with configured settings
	l.provider = o.provider
	if l.provider == nil {
		provider, err := NewProvider(l.config.AI())
		if err != nil {
			return err
		}
		l.provider = provider
	}

	embedOpts := append(l.config.EmbeddingOptions(), embedding.WithLogger(o.logger))
	embedder, err := embedding.New(l.provider.Embedder(), embedOpts...)
	if err != nil {
		return err
	}
	l.embedder = embedder

	snap, err := l.loadSnapshot(context.Background())
	if err != nil {
		return err
	}

	searcher, err := search.NewSearcher(embedder, snap,
		search.WithCandidatePoolSize(l.config.Retrieval.CandidatePoolSize),
		search.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}
	l.searcher = searcher
	return nil
}

// loadSnapshot reads the published artifact set, or returns an empty
// snapshot if nothing has been published yet.
func (l *Larder) loadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	artifacts, err := l.repo.LoadCurrent(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		l.logger.Info("no published index, starting empty")
		return snapshot.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	snap, err := snapshot.FromArtifacts(artifacts)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	m := snap.Manifest()
	l.logger.Info("loaded index",
		"version", m.Version,
		"recipes", m.RecipeCount,
		"chunks", m.ChunkCount,
		"dimension", m.Dimension)
	return snap, nil
}

// Close releases the provider, the worker pool and the store.
func (l *Larder) Close() error {
	// Close AI provider first
	if l.provider != nil {
		if err := l.provider.Close(); err != nil {
			l.logger.Error("error closing AI provider", "err", err)
		}
	}
	if l.embedder != nil {
		l.embedder.Release()
	}

	if err := l.repo.Close(); err != nil {
		l.logger.Error("error closing snapshot repository", "err", err)
		return err
	}

	// Close backend
	if err := l.backend.Close(); err != nil {
		l.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Reindex builds a complete new snapshot from records, publishes it and
// swaps it in. Queries running during the swap finish against the previous
// snapshot. On error the served snapshot is unchanged.
func (l *Larder) Reindex(ctx context.Context, records []core.RawRecipe) (core.Manifest, error) {
	l.reindexMu.Lock()
	defer l.reindexMu.Unlock()

	pipeline, err := l.NewIndexingPipeline()
	if err != nil {
		return core.Manifest{}, err
	}

	snap, err := pipeline.Run(ctx, records)
	if err != nil {
		return core.Manifest{}, err
	}

	l.searcher.Swap(snap)
	return snap.Manifest(), nil
}

// ReindexFile loads recipes from a JSON file and re-indexes them.
func (l *Larder) ReindexFile(ctx context.Context, path string) (core.Manifest, error) {
	records, err := ingestion.LoadRecipesFile(path)
	if err != nil {
		return core.Manifest{}, err
	}
	return l.Reindex(ctx, records)
}

// Reembed rebuilds the index from the recipes of the served snapshot with
// the current embedder, e.g. after switching embedding models. Ratings that
// were imputed are imputed again rather than treated as source ratings.
func (l *Larder) Reembed(ctx context.Context) (core.Manifest, error) {
	records := l.searcher.Snapshot().Store().RawRecipes()
	l.logger.Info("re-embedding served recipes", "recipes", len(records))
	return l.Reindex(ctx, records)
}

// Retrieve returns presentation records for query.
func (l *Larder) Retrieve(ctx context.Context, query string, params search.Params) ([]search.Presentation, error) {
	return l.searcher.Retrieve(ctx, query, params)
}

// Rank returns re-ranked recipes with their score breakdown.
func (l *Larder) Rank(ctx context.Context, query string, params search.Params) ([]*search.Ranked, error) {
	return l.searcher.Rank(ctx, query, params)
}

// Manifest returns the manifest of the snapshot being served. It is the
// zero manifest when nothing has been indexed.
func (l *Larder) Manifest() core.Manifest {
	return l.searcher.Snapshot().Manifest()
}

// Config returns the configuration the Larder was opened with.
func (l *Larder) Config() *config.AppConfig {
	return l.config
}

// Params returns the configured default retrieval parameters.
func (l *Larder) Params() search.Params {
	return l.config.Params()
}

// Searcher returns the searcher serving the current snapshot.
func (l *Larder) Searcher() *search.Searcher {
	return l.searcher
}

// SnapshotRepository returns the artifact repository.
func (l *Larder) SnapshotRepository() storage.SnapshotRepository {
	return l.repo
}

// NewIndexingPipeline creates a pipeline that publishes to this Larder's
// store. Running it does not swap the served snapshot; use Reindex for that.
func (l *Larder) NewIndexingPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	defaults := []ingestion.Option{
		ingestion.WithChunkSize(l.config.Chunker.Size),
		ingestion.WithRowsPerPage(l.config.Storage.RowsPerPage),
		ingestion.WithLogger(l.base),
	}
	if l.progress != nil {
		defaults = append(defaults, ingestion.WithProgress(l.progress, 100))
	}
	return ingestion.NewPipeline(l.repo, l.embedder, append(defaults, opts...)...)
}
