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

package vectorindex

import (
	"container/heap"
	"fmt"

	"github.com/poiesic/larder/core"
)

// Hit is a single search result.
type Hit struct {
	Position int     // row position of the matched vector
	Score    float32 // inner product with the query
}

// Builder accumulates vectors for a Flat index.
type Builder struct {
	dim    int
	data   []float32
	sealed bool
}

// NewBuilder creates a Builder for vectors of dimension dim.
func NewBuilder(dim int) (*Builder, error) {
	if dim < 1 {
		return nil, ErrInvalidDimension
	}
	return &Builder{dim: dim}, nil
}

// Add appends vectors in order. Row positions continue from the number of
// vectors already added.
func (b *Builder) Add(vectors ...[]float32) error {
	if b.sealed {
		return ErrIndexSealed
	}
	for i, v := range vectors {
		if err := core.ValidateDimension(v, b.dim); err != nil {
			return fmt.Errorf("vector %d: %w", b.Len()+i, err)
		}
		if err := core.ValidateFinite(v); err != nil {
			return fmt.Errorf("vector %d: %w", b.Len()+i, err)
		}
	}
	for _, v := range vectors {
		b.data = append(b.data, v...)
	}
	return nil
}

// Len returns the number of vectors added so far.
func (b *Builder) Len() int {
	return len(b.data) / b.dim
}

// Build seals the builder and returns the read-only index.
func (b *Builder) Build() *Flat {
	b.sealed = true
	return &Flat{dim: b.dim, data: b.data}
}

// Flat is an immutable exact inner-product index.
type Flat struct {
	dim  int
	data []float32 // row-major
}

// Empty returns an index without vectors. dim may be 0 when no vector was
// ever produced and the dimension is unknown.
func Empty(dim int) *Flat {
	return &Flat{dim: max(dim, 0)}
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int {
	return f.dim
}

// Vector returns row i. The returned slice aliases index memory and must
// not be modified.
func (f *Flat) Vector(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim : (i+1)*f.dim]
}

// Search returns the k rows with the highest inner product with query,
// best first. Equal scores are ordered by ascending row position. A k
// larger than the index returns every row; k <= 0 or an empty index
// returns no hits.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	n := f.Len()
	if n == 0 {
		return []Hit{}, nil
	}
	if err := core.ValidateDimension(query, f.dim); err != nil {
		return nil, err
	}
	if err := core.ValidateFinite(query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	k = min(k, n)

	h := make(hitHeap, 0, k)
	for row := 0; row < n; row++ {
		hit := Hit{Position: row, Score: dot(query, f.Vector(row))}
		if len(h) < k {
			heap.Push(&h, hit)
			continue
		}
		if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}

	hits := make([]Hit, len(h))
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(&h).(Hit)
	}
	return hits, nil
}

// Pages splits the index into pages of at most rowsPerPage rows for storage.
func (f *Flat) Pages(rowsPerPage int) []core.IndexPage {
	if rowsPerPage < 1 {
		rowsPerPage = 1
	}
	n := f.Len()
	pages := make([]core.IndexPage, 0, (n+rowsPerPage-1)/rowsPerPage)
	for first := 0; first < n; first += rowsPerPage {
		last := min(first+rowsPerPage, n)
		pages = append(pages, core.IndexPage{
			FirstRow:  first,
			Dimension: f.dim,
			Data:      f.data[first*f.dim : last*f.dim],
		})
	}
	return pages
}

// FromPages rebuilds an index from pages produced by Pages.
func FromPages(dim int, pages []core.IndexPage) (*Flat, error) {
	if len(pages) == 0 {
		return Empty(dim), nil
	}
	b, err := NewBuilder(dim)
	if err != nil {
		return nil, err
	}
	for i, page := range pages {
		if page.Dimension != dim {
			return nil, fmt.Errorf("page %d: %w: expected %d, got %d", i, core.ErrDimensionMismatch, dim, page.Dimension)
		}
		if page.FirstRow != b.Len() {
			return nil, fmt.Errorf("%w: page %d starts at row %d, expected %d", ErrPageOutOfOrder, i, page.FirstRow, b.Len())
		}
		if len(page.Data)%dim != 0 {
			return nil, fmt.Errorf("page %d: %w: %d values is not a multiple of %d", i, core.ErrDimensionMismatch, len(page.Data), dim)
		}
		if err := core.ValidateFinite(page.Data); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		b.data = append(b.data, page.Data...)
	}
	return b.Build(), nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// better reports whether a ranks before b.
func better(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}

// hitHeap is a min-heap with the worst retained hit at the root.
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *hitHeap) Push(x any) {
	*h = append(*h, x.(Hit))
}

func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
