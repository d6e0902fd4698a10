package search

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/larder/ai/mock"
	"github.com/poiesic/larder/chunker"
	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/embedding"
	"github.com/poiesic/larder/metadata"
	"github.com/poiesic/larder/snapshot"
	"github.com/poiesic/larder/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbedder(t *testing.T, model *mock.MockEmbedder) *embedding.Embedder {
	t.Helper()
	e, err := embedding.New(model, embedding.WithRetry(1, time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

// indexRecipes chunks and embeds records the way the indexing pipeline does
// and returns the resulting snapshot.
func indexRecipes(t *testing.T, e *embedding.Embedder, records []core.RawRecipe) *snapshot.Snapshot {
	t.Helper()

	store := metadata.NewStore(records)
	c := chunker.New(chunker.DefaultChunkSize)
	for _, recipe := range store.Recipes() {
		for _, text := range c.Chunk(recipe) {
			store.AddChunk(recipe.ID, text)
		}
	}

	result, err := e.Embed(context.Background(), store.ChunkTexts())
	require.NoError(t, err)

	index := vectorindex.Empty(e.Dimension())
	if len(result.Vectors) > 0 {
		builder, err := vectorindex.NewBuilder(e.Dimension())
		require.NoError(t, err)
		require.NoError(t, builder.Add(result.Vectors...))
		index = builder.Build()
	}

	snap, err := snapshot.New(core.Manifest{ChunkSize: c.Size()}, store, index)
	require.NoError(t, err)
	return snap
}

type fixedChunk struct {
	recipe core.RecipeID
	vector []float32
}

// fixedSnapshot builds a snapshot with hand-picked chunk vectors.
func fixedSnapshot(t *testing.T, records []core.RawRecipe, chunks []fixedChunk) *snapshot.Snapshot {
	t.Helper()

	store := metadata.NewStore(records)
	builder, err := vectorindex.NewBuilder(len(chunks[0].vector))
	require.NoError(t, err)
	for _, c := range chunks {
		store.AddChunk(c.recipe, "chunk")
		require.NoError(t, builder.Add(c.vector))
	}

	snap, err := snapshot.New(core.Manifest{}, store, builder.Build())
	require.NoError(t, err)
	return snap
}

// fixedQuery returns a mock model that embeds every text as vector.
func fixedQuery(vector ...float32) *mock.MockEmbedder {
	model := mock.NewMockEmbedder()
	model.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = append([]float32(nil), vector...)
		}
		return out, nil
	}
	return model
}

// unit returns a 2-d unit vector whose first component is x.
func unit(x float32) []float32 {
	return []float32{x, float32(math.Sqrt(float64(1 - x*x)))}
}

func tomatoRecords() []core.RawRecipe {
	return []core.RawRecipe{
		{Title: "Tomato Soup", Rating: core.Float(4.5), IsVegetarian: true, AvgKcal: core.Float(80)},
		{Title: "Beef Stew", Rating: core.Float(4.0), IsVegetarian: false, AvgKcal: core.Float(250)},
		{Title: "Tomato Salad", Rating: core.Float(3.0), IsVegetarian: true, AvgKcal: core.Float(60)},
	}
}

func TestNewSearcher(t *testing.T) {
	e := newEmbedder(t, mock.NewMockEmbedderWithDimension(8))

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(e, snapshot.Empty())
		require.NoError(t, err)
		assert.NotNil(t, searcher)
		assert.Equal(t, DefaultCandidatePoolSize, searcher.poolSize)
	})

	t.Run("with options", func(t *testing.T) {
		searcher, err := NewSearcher(e, nil,
			WithLogger(slog.Default()),
			WithCandidatePoolSize(7),
		)
		require.NoError(t, err)
		assert.Equal(t, 7, searcher.poolSize)
		assert.True(t, searcher.Snapshot().IsEmpty())
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(nil, snapshot.Empty())
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("invalid pool size", func(t *testing.T) {
		_, err := NewSearcher(e, nil, WithCandidatePoolSize(0))
		assert.ErrorIs(t, err, ErrInvalidPoolSize)
	})
}

func TestSearcher_TomatoScenario(t *testing.T) {
	model := mock.NewKeywordEmbedder("tomato", "beef", "soup", "salad", "stew")
	e := newEmbedder(t, model)
	snap := indexRecipes(t, e, tomatoRecords())

	searcher, err := NewSearcher(e, snap)
	require.NoError(t, err)

	ranked, err := searcher.Rank(context.Background(), "tomato", DefaultParams())
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, core.RecipeID(0), ranked[0].Recipe.ID)
	assert.Equal(t, core.RecipeID(2), ranked[1].Recipe.ID)
	assert.Equal(t, core.RecipeID(1), ranked[2].Recipe.ID)

	sim := 1 / math.Sqrt(3)
	assert.InDelta(t, sim, ranked[0].Similarity, 1e-4)
	assert.InDelta(t, sim, ranked[1].Similarity, 1e-4)
	assert.InDelta(t, 0, ranked[2].Similarity, 1e-6)

	// Tomato Soup: rating 4.5/4.5, veg, kcal 1-80/250
	assert.InDelta(t, sim+0.15+0.2+0.5*0.3*0.68, ranked[0].Final, 1e-4)
	// Tomato Salad: rating 3/4.5, veg, kcal 1-60/250
	assert.InDelta(t, sim+0.15*3/4.5+0.2+0.5*0.3*0.76, ranked[1].Final, 1e-4)
	// Beef Stew: rating 4/4.5, not veg, highest kcal
	assert.InDelta(t, 0.15*4/4.5, ranked[2].Final, 1e-4)

	presented, err := searcher.Retrieve(context.Background(), "tomato", Params{TopK: 2, Weights: DefaultParams().Weights})
	require.NoError(t, err)
	require.Len(t, presented, 2)
	assert.Equal(t, "Tomato Soup", presented[0].Title)
	assert.Equal(t, "Tomato Salad", presented[1].Title)
}

func TestSearcher_DeduplicatesToBestChunk(t *testing.T) {
	records := []core.RawRecipe{
		{Title: "A", Rating: core.Float(4)},
		{Title: "B", Rating: core.Float(4)},
	}
	snap := fixedSnapshot(t, records, []fixedChunk{
		{recipe: 0, vector: unit(0.9)},
		{recipe: 0, vector: unit(0.95)},
		{recipe: 1, vector: unit(0.5)},
	})
	searcher, err := NewSearcher(newEmbedder(t, fixedQuery(1, 0)), snap)
	require.NoError(t, err)

	ranked, err := searcher.Rank(context.Background(), "anything", Params{TopK: 10})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, core.RecipeID(0), ranked[0].Recipe.ID)
	assert.InDelta(t, 0.95, ranked[0].Similarity, 1e-5)
	assert.Equal(t, core.ChunkID(1), ranked[0].Chunk.GlobalID)
	assert.Equal(t, 1, ranked[0].Chunk.Position)
	assert.Equal(t, core.RecipeID(1), ranked[1].Recipe.ID)
}

func TestSearcher_EqualChunksKeepLowestChunkID(t *testing.T) {
	records := []core.RawRecipe{{Title: "A"}}
	snap := fixedSnapshot(t, records, []fixedChunk{
		{recipe: 0, vector: unit(0.8)},
		{recipe: 0, vector: unit(0.8)},
	})
	searcher, err := NewSearcher(newEmbedder(t, fixedQuery(1, 0)), snap)
	require.NoError(t, err)

	ranked, err := searcher.Rank(context.Background(), "q", Params{TopK: 1})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, core.ChunkID(0), ranked[0].Chunk.GlobalID)
}

func TestSearcher_RatingWeightMonotonic(t *testing.T) {
	records := []core.RawRecipe{
		{Title: "Low", Rating: core.Float(2)},
		{Title: "High", Rating: core.Float(5)},
	}
	// Low is slightly more similar than High.
	snap := fixedSnapshot(t, records, []fixedChunk{
		{recipe: 0, vector: unit(0.9)},
		{recipe: 1, vector: unit(0.85)},
	})
	searcher, err := NewSearcher(newEmbedder(t, fixedQuery(1, 0)), snap)
	require.NoError(t, err)

	gap := math.Inf(-1)
	for _, w := range []float64{0, 0.05, 0.1, 0.5, 1} {
		ranked, err := searcher.Rank(context.Background(), "q", Params{TopK: 2, Weights: Weights{Rating: w}})
		require.NoError(t, err)
		require.Len(t, ranked, 2)

		finals := map[string]float64{}
		for _, r := range ranked {
			finals[r.Recipe.Title] = r.Final
		}
		g := finals["High"] - finals["Low"]
		assert.GreaterOrEqual(t, g, gap, "weight %v", w)
		gap = g
	}

	ranked, err := searcher.Rank(context.Background(), "q", Params{TopK: 2, Weights: Weights{Rating: 1}})
	require.NoError(t, err)
	assert.Equal(t, "High", ranked[0].Recipe.Title)

	ranked, err = searcher.Rank(context.Background(), "q", Params{TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, "Low", ranked[0].Recipe.Title)
}

func TestSearcher_CandidatePoolIndependentOfTopK(t *testing.T) {
	records := []core.RawRecipe{
		{Title: "Close", Rating: core.Float(1)},
		{Title: "Far", Rating: core.Float(5), IsVegetarian: true},
	}
	snap := fixedSnapshot(t, records, []fixedChunk{
		{recipe: 0, vector: unit(0.9)},
		{recipe: 1, vector: unit(0.7)},
	})
	e := newEmbedder(t, fixedQuery(1, 0))

	searcher, err := NewSearcher(e, snap)
	require.NoError(t, err)
	ranked, err := searcher.Rank(context.Background(), "q", Params{TopK: 1, Weights: Weights{Rating: 0.5, VegBoost: 0.5}})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Far", ranked[0].Recipe.Title)

	narrow, err := NewSearcher(e, snap, WithCandidatePoolSize(1))
	require.NoError(t, err)
	ranked, err = narrow.Rank(context.Background(), "q", Params{TopK: 1, Weights: Weights{Rating: 0.5, VegBoost: 0.5}})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Close", ranked[0].Recipe.Title)
}

func TestSearcher_EmptyIndex(t *testing.T) {
	model := mock.NewMockEmbedderWithDimension(8)
	e := newEmbedder(t, model)

	t.Run("nil snapshot", func(t *testing.T) {
		searcher, err := NewSearcher(e, nil)
		require.NoError(t, err)

		results, err := searcher.Retrieve(context.Background(), "tomato", DefaultParams())
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("recipes without chunks", func(t *testing.T) {
		snap := indexRecipes(t, e, []core.RawRecipe{{Rating: core.Float(3)}, {}})
		searcher, err := NewSearcher(e, snap)
		require.NoError(t, err)

		results, err := searcher.Rank(context.Background(), "tomato", DefaultParams())
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	assert.Equal(t, 0, model.CallCount(), "empty index should not embed the query")
}

func TestSearcher_Validation(t *testing.T) {
	e := newEmbedder(t, mock.NewMockEmbedderWithDimension(8))
	searcher, err := NewSearcher(e, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		params  Params
		wantErr error
	}{
		{"zero top_k", Params{TopK: 0}, ErrInvalidTopK},
		{"negative top_k", Params{TopK: -3}, ErrInvalidTopK},
		{"negative rating weight", Params{TopK: 1, Weights: Weights{Rating: -0.1}}, ErrInvalidWeight},
		{"negative veg weight", Params{TopK: 1, Weights: Weights{VegBoost: -1}}, ErrInvalidWeight},
		{"NaN eco weight", Params{TopK: 1, Weights: Weights{EcoHealthy: math.NaN()}}, ErrInvalidWeight},
		{"infinite rating weight", Params{TopK: 1, Weights: Weights{Rating: math.Inf(1)}}, ErrInvalidWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := searcher.Retrieve(context.Background(), "q", tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.NoError(t, DefaultParams().Validate())
	assert.NoError(t, Params{TopK: 1}.Validate())
}

func TestSearcher_DimensionMismatch(t *testing.T) {
	snap := fixedSnapshot(t, []core.RawRecipe{{Title: "A"}}, []fixedChunk{{recipe: 0, vector: unit(1)}})
	searcher, err := NewSearcher(newEmbedder(t, fixedQuery(1, 0, 0)), snap)
	require.NoError(t, err)

	_, err = searcher.Retrieve(context.Background(), "q", DefaultParams())
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestSearcher_EmbeddingFailure(t *testing.T) {
	snap := fixedSnapshot(t, []core.RawRecipe{{Title: "A"}}, []fixedChunk{{recipe: 0, vector: unit(1)}})
	model := mock.NewMockEmbedder()
	model.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("backend down")
	}
	searcher, err := NewSearcher(newEmbedder(t, model), snap)
	require.NoError(t, err)

	_, err = searcher.Retrieve(context.Background(), "q", DefaultParams())
	assert.ErrorIs(t, err, embedding.ErrEmbeddingFailed)
}

func TestSearcher_Swap(t *testing.T) {
	model := mock.NewKeywordEmbedder("tomato", "beef", "soup", "salad", "stew")
	e := newEmbedder(t, model)

	first := indexRecipes(t, e, tomatoRecords()[:1])
	second := indexRecipes(t, e, tomatoRecords())

	searcher, err := NewSearcher(e, first)
	require.NoError(t, err)

	results, err := searcher.Retrieve(context.Background(), "tomato", DefaultParams())
	require.NoError(t, err)
	assert.Len(t, results, 1)

	previous := searcher.Swap(second)
	assert.Same(t, first, previous)
	assert.Same(t, second, searcher.Snapshot())

	results, err = searcher.Retrieve(context.Background(), "tomato", DefaultParams())
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearcher_ConcurrentQueriesDuringSwap(t *testing.T) {
	model := mock.NewKeywordEmbedder("tomato", "beef", "soup", "salad", "stew")
	e := newEmbedder(t, model)

	small := indexRecipes(t, e, tomatoRecords()[:1])
	full := indexRecipes(t, e, tomatoRecords())

	searcher, err := NewSearcher(e, small)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				results, err := searcher.Retrieve(context.Background(), "tomato soup", DefaultParams())
				if !assert.NoError(t, err) {
					return
				}
				// Either snapshot, never a mix of both.
				assert.Contains(t, []int{1, 3}, len(results))
				assert.Equal(t, "Tomato Soup", results[0].Title)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			searcher.Swap(full)
		} else {
			searcher.Swap(small)
		}
	}
	wg.Wait()
}

type recordingMonitor struct {
	stages []string
	hits   int
	final  []*Ranked
}

func (m *recordingMonitor) Start(string, Params) { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterQueryEmbedding([]float32) {
	m.stages = append(m.stages, "embed")
}
func (m *recordingMonitor) AfterVectorSearch(hits []vectorindex.Hit) {
	m.stages = append(m.stages, "search")
	m.hits = len(hits)
}
func (m *recordingMonitor) AfterDeduplication([]*Ranked) { m.stages = append(m.stages, "dedup") }
func (m *recordingMonitor) AfterRerank([]*Ranked)        { m.stages = append(m.stages, "rerank") }
func (m *recordingMonitor) Finish(results []*Ranked) {
	m.stages = append(m.stages, "finish")
	m.final = results
}

func TestSearcher_Monitor(t *testing.T) {
	model := mock.NewKeywordEmbedder("tomato", "beef", "soup", "salad", "stew")
	e := newEmbedder(t, model)
	searcher, err := NewSearcher(e, indexRecipes(t, e, tomatoRecords()))
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.RetrieveWithMonitor(context.Background(), "tomato", Params{TopK: 1}, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{"start", "embed", "search", "dedup", "rerank", "finish"}, monitor.stages)
	assert.Equal(t, 3, monitor.hits)
	assert.Len(t, monitor.final, 1)

	empty, err := NewSearcher(e, nil)
	require.NoError(t, err)
	monitor = &recordingMonitor{}
	_, err = empty.RankWithMonitor(context.Background(), "tomato", DefaultParams(), monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "finish"}, monitor.stages)
}
