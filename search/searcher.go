package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/embedding"
	"github.com/poiesic/larder/snapshot"
)

// Searcher retrieves and re-ranks recipes from an indexed snapshot.
// It is safe for concurrent use; each query pins the snapshot that was
// current when it started.
type Searcher struct {
	embedder *embedding.Embedder
	snapshot atomic.Pointer[snapshot.Snapshot]
	poolSize int
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithCandidatePoolSize sets how many chunks are fetched from the index
// before deduplication and re-ranking. It does not depend on top_k.
// Default is DefaultCandidatePoolSize.
func WithCandidatePoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidPoolSize, size)
		}
		s.poolSize = size
		return nil
	}
}

// NewSearcher creates a new searcher over snap. A nil snapshot is treated
// as an empty index.
func NewSearcher(embedder *embedding.Embedder, snap *snapshot.Snapshot, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		embedder: embedder,
		poolSize: DefaultCandidatePoolSize,
		logger:   slog.Default().With("component", "searcher"),
	}
	s.Swap(snap)

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Swap atomically replaces the snapshot used by new queries. Queries that
// are already running finish against the snapshot they started with.
// It returns the previous snapshot.
func (s *Searcher) Swap(snap *snapshot.Snapshot) *snapshot.Snapshot {
	if snap == nil {
		snap = snapshot.Empty()
	}
	return s.snapshot.Swap(snap)
}

// Snapshot returns the snapshot currently served.
func (s *Searcher) Snapshot() *snapshot.Snapshot {
	return s.snapshot.Load()
}

// Retrieve returns up to params.TopK presentation records for query, best
// first.
func (s *Searcher) Retrieve(ctx context.Context, query string, params Params) ([]Presentation, error) {
	return s.RetrieveWithMonitor(ctx, query, params, nil)
}

// RetrieveWithMonitor is Retrieve with monitoring.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, query string, params Params, monitor SearchMonitor) ([]Presentation, error) {
	ranked, err := s.RankWithMonitor(ctx, query, params, monitor)
	if err != nil {
		return nil, err
	}
	return PresentAll(ranked), nil
}

// Rank returns up to params.TopK re-ranked recipes with their score
// breakdown, best first.
func (s *Searcher) Rank(ctx context.Context, query string, params Params) ([]*Ranked, error) {
	return s.RankWithMonitor(ctx, query, params, nil)
}

// RankWithMonitor is Rank with monitoring.
// The monitor receives callbacks at each stage of the query pipeline.
func (s *Searcher) RankWithMonitor(ctx context.Context, query string, params Params, monitor SearchMonitor) ([]*Ranked, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	snap := s.snapshot.Load()
	monitor.Start(query, params)

	if snap.IsEmpty() {
		s.logger.Debug("empty index, nothing to retrieve", "query", query)
		results := []*Ranked{}
		monitor.Finish(results)
		return results, nil
	}

	// 1. Embed query
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)

	// 2. Search a fixed candidate pool
	hits, err := snap.Index().Search(vector, s.poolSize)
	if err != nil {
		s.logger.Error("error searching index", "dimension", len(vector), "indexDimension", snap.Index().Dimension(), "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(hits)

	// 3-4. Best chunk per recipe, joined with recipe metadata
	store := snap.Store()
	seen := make(map[core.RecipeID]bool, len(hits))
	candidates := make([]*Ranked, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := store.Chunk(core.ChunkID(hit.Position))
		if !ok {
			return nil, fmt.Errorf("%w: index row %d has no chunk", core.ErrIntegrity, hit.Position)
		}
		if seen[chunk.RecipeID] {
			continue
		}
		recipe, ok := store.Recipe(chunk.RecipeID)
		if !ok {
			return nil, fmt.Errorf("%w: chunk %d references missing recipe %d", core.ErrIntegrity, chunk.GlobalID, chunk.RecipeID)
		}
		seen[chunk.RecipeID] = true
		candidates = append(candidates, &Ranked{
			Recipe:     recipe,
			Chunk:      chunk,
			Similarity: float64(hit.Score),
		})
	}
	monitor.AfterDeduplication(candidates)

	// 5-8. Normalize, score and order
	rerank(candidates, params.Weights)
	monitor.AfterRerank(candidates)

	if len(candidates) > params.TopK {
		candidates = candidates[:params.TopK]
	}
	monitor.Finish(candidates)

	s.logger.Debug("retrieved recipes", "query", query, "hits", len(hits), "candidates", len(candidates), "version", snap.Manifest().Version)
	return candidates, nil
}
