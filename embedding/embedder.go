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

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/larder/ai"
	"github.com/poiesic/larder/core"
)

// DefaultMaxBatchSize is the largest number of texts sent to the backend in
// one call.
const DefaultMaxBatchSize = 32

// Result holds the vectors of one Embed call.
type Result struct {
	// Vectors are in input order; all share one dimension.
	Vectors [][]float32
	// Degenerate lists input positions whose vector had zero magnitude and
	// could not be normalized.
	Degenerate []int
}

// ProgressFunc receives the number of embedded texts after each batch.
type ProgressFunc func(done, total int)

// Embedder produces L2-normalized embeddings through an ai.Embedder backend.
// It is safe for concurrent use.
type Embedder struct {
	backend      ai.Embedder
	pool         *ants.Pool
	maxBatchSize int
	maxAttempts  int
	baseDelay    time.Duration
	dimension    atomic.Int64
	logger       *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder) error

// WithMaxBatchSize sets the largest batch sent to the backend.
// Default is DefaultMaxBatchSize.
func WithMaxBatchSize(size int) Option {
	return func(e *Embedder) error {
		if size < 1 {
			size = 1
		}
		e.maxBatchSize = size
		return nil
	}
}

// WithPoolSize sets the number of batches embedded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(e *Embedder) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		// Release old pool
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithRetry sets how often a failed batch is attempted and the initial
// backoff delay, which doubles after every failure.
// Default is 3 attempts starting at 500ms.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(e *Embedder) error {
		if maxAttempts < 1 {
			return ErrInvalidMaxAttempts
		}
		e.maxAttempts = maxAttempts
		e.baseDelay = baseDelay
		return nil
	}
}

// WithDimension fixes the expected vector dimension. Without it the
// dimension is learned from the first backend response.
func WithDimension(dim int) Option {
	return func(e *Embedder) error {
		if dim < 0 {
			dim = 0
		}
		e.dimension.Store(int64(dim))
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "embedder")
		return nil
	}
}

// New creates an Embedder around backend.
func New(backend ai.Embedder, opts ...Option) (*Embedder, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		backend:      backend,
		pool:         pool,
		maxBatchSize: DefaultMaxBatchSize,
		maxAttempts:  3,
		baseDelay:    500 * time.Millisecond,
		logger:       slog.Default().With("component", "embedder"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}

	return e, nil
}

// Dimension returns the vector dimension, or 0 if none has been configured
// or observed yet.
func (e *Embedder) Dimension() int {
	return int(e.dimension.Load())
}

// Release releases the worker pool.
// The embedder should not be used after calling Release.
func (e *Embedder) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Embed embeds texts and returns their normalized vectors in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) (*Result, error) {
	return e.EmbedWithProgress(ctx, texts, nil)
}

// EmbedWithProgress is Embed with a progress callback. fn is called from
// worker goroutines, one call at a time, with a non-decreasing done count.
func (e *Embedder) EmbedWithProgress(ctx context.Context, texts []string, fn ProgressFunc) (*Result, error) {
	total := len(texts)
	result := &Result{Vectors: make([][]float32, total)}
	if total == 0 {
		return result, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		done     int
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	batches := 0
	for start := 0; start < total; start += e.maxBatchSize {
		end := min(start+e.maxBatchSize, total)
		batch := batches
		batches++

		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()

			vectors, err := e.embedBatch(ctx, texts[start:end])
			if err != nil {
				fail(fmt.Errorf("batch %d (texts %d-%d): %w", batch, start, end-1, err))
				return
			}
			copy(result.Vectors[start:end], vectors)

			mu.Lock()
			defer mu.Unlock()
			done += end - start
			if fn != nil {
				fn(done, total)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		e.logger.Error("error embedding texts", "texts", total, "err", firstErr)
		return nil, firstErr
	}

	for i, v := range result.Vectors {
		if !Normalize(v) {
			result.Degenerate = append(result.Degenerate, i)
		}
	}
	if len(result.Degenerate) > 0 {
		e.logger.Warn("zero-magnitude embeddings left unnormalized",
			"count", len(result.Degenerate),
			"positions", result.Degenerate)
	}

	e.logger.Debug("embedded texts", "texts", total, "batches", batches, "dimension", e.Dimension())
	return result, nil
}

// EmbedQuery embeds a single query text as a one-item batch and returns its
// normalized vector. A zero-magnitude query vector is returned unchanged.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	vector := vectors[0]
	if !Normalize(vector) {
		e.logger.Warn("zero-magnitude query embedding", "length", len(text))
	}
	return vector, nil
}

// embedBatch calls the backend with retries and checks count and dimension
// of the response.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = e.backend.EmbedTexts(ctx, texts)
		return err
	}, e.maxAttempts, e.baseDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCountMismatch, len(texts), len(vectors))
	}

	for i, v := range vectors {
		if err := e.checkDimension(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		if err := core.ValidateFinite(v); err != nil {
			return nil, fmt.Errorf("%w: vector %d: %w", ErrEmbeddingFailed, i, err)
		}
	}

	// Callers normalize in place; never alias memory the backend may reuse.
	owned := make([][]float32, len(vectors))
	for i, v := range vectors {
		owned[i] = slices.Clone(v)
	}
	return owned, nil
}

// checkDimension verifies v against the expected dimension, adopting len(v)
// if none is known yet.
func (e *Embedder) checkDimension(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", core.ErrDimensionMismatch)
	}
	if e.dimension.CompareAndSwap(0, int64(len(v))) {
		e.logger.Debug("learned embedding dimension", "dimension", len(v))
		return nil
	}
	return core.ValidateDimension(v, e.Dimension())
}
