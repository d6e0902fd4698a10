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

package metadata

import (
	"fmt"
	"slices"

	"github.com/poiesic/larder/core"
)

// Store is the metadata table of one index build. It is filled during
// indexing and read-only afterwards.
type Store struct {
	recipes []*core.Recipe
	chunks  []core.Chunk
	median  float64

	// nextPosition tracks the next chunk position per recipe while building.
	nextPosition []int
}

// NewStore creates a store from raw records. Recipes receive ids 0..N-1 in
// input order and absent ratings are replaced by the median rating.
func NewStore(records []core.RawRecipe) *Store {
	median := MedianRating(records)

	recipes := make([]*core.Recipe, len(records))
	for i, raw := range records {
		recipe := &core.Recipe{
			ID:           core.RecipeID(i),
			Title:        raw.Title,
			IsVegetarian: raw.IsVegetarian,
			Ingredients:  raw.Ingredients,
			AvgKcal:      raw.AvgKcal,
			AvgFat:       raw.AvgFat,
			AvgECV:       raw.AvgECV,
			TotalECV:     raw.TotalECV,
		}
		if raw.Rating != nil {
			recipe.Rating = *raw.Rating
		} else {
			recipe.Rating = median
			recipe.RatingImputed = true
		}
		recipes[i] = recipe
	}

	return &Store{
		recipes:      recipes,
		median:       median,
		nextPosition: make([]int, len(recipes)),
	}
}

// MedianRating returns the median of the ratings present in records: the
// middle value, or the mean of the two middle values for an even count.
// It returns 0 when no record has a rating.
func MedianRating(records []core.RawRecipe) float64 {
	ratings := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Rating != nil {
			ratings = append(ratings, *r.Rating)
		}
	}
	if len(ratings) == 0 {
		return 0
	}

	slices.Sort(ratings)
	mid := len(ratings) / 2
	if len(ratings)%2 == 1 {
		return ratings[mid]
	}
	return (ratings[mid-1] + ratings[mid]) / 2
}

// Restore rebuilds a store from persisted tables and validates it.
func Restore(recipes []*core.Recipe, chunks []core.Chunk, median float64) (*Store, error) {
	s := &Store{
		recipes: recipes,
		chunks:  chunks,
		median:  median,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddChunk appends a chunk for recipeID and returns it with its global id
// and per-recipe position assigned. It panics if recipeID is out of range.
func (s *Store) AddChunk(recipeID core.RecipeID, text string) core.Chunk {
	if s.nextPosition == nil {
		s.nextPosition = s.positionsFromChunks()
	}

	chunk := core.Chunk{
		GlobalID: core.ChunkID(len(s.chunks)),
		RecipeID: recipeID,
		Position: s.nextPosition[recipeID],
		Text:     text,
	}
	s.nextPosition[recipeID]++
	s.chunks = append(s.chunks, chunk)
	return chunk
}

func (s *Store) positionsFromChunks() []int {
	positions := make([]int, len(s.recipes))
	for _, c := range s.chunks {
		positions[c.RecipeID] = c.Position + 1
	}
	return positions
}

// Recipe returns the recipe with the given id.
func (s *Store) Recipe(id core.RecipeID) (*core.Recipe, bool) {
	if id < 0 || int(id) >= len(s.recipes) {
		return nil, false
	}
	return s.recipes[id], true
}

// Chunk returns the chunk with the given global id.
func (s *Store) Chunk(id core.ChunkID) (core.Chunk, bool) {
	if id < 0 || int(id) >= len(s.chunks) {
		return core.Chunk{}, false
	}
	return s.chunks[id], true
}

// Recipes returns the recipe table in id order. The slice must not be modified.
func (s *Store) Recipes() []*core.Recipe {
	return s.recipes
}

// Chunks returns the chunk table in global id order. The slice must not be modified.
func (s *Store) Chunks() []core.Chunk {
	return s.chunks
}

// ChunkTexts returns the chunk texts in global id order.
func (s *Store) ChunkTexts() []string {
	texts := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		texts[i] = c.Text
	}
	return texts
}

// RecipeCount returns the number of recipes.
func (s *Store) RecipeCount() int {
	return len(s.recipes)
}

// ChunkCount returns the number of chunks.
func (s *Store) ChunkCount() int {
	return len(s.chunks)
}

// RawRecipes converts the recipe table back to raw records in id order.
// Imputed ratings become absent again, so re-indexing the result imputes
// from the same source ratings.
func (s *Store) RawRecipes() []core.RawRecipe {
	records := make([]core.RawRecipe, len(s.recipes))
	for i, r := range s.recipes {
		records[i] = core.RawRecipe{
			Title:        r.Title,
			IsVegetarian: r.IsVegetarian,
			Ingredients:  slices.Clone(r.Ingredients),
			AvgKcal:      r.AvgKcal,
			AvgFat:       r.AvgFat,
			AvgECV:       r.AvgECV,
			TotalECV:     r.TotalECV,
		}
		if !r.RatingImputed {
			records[i].Rating = core.Float(r.Rating)
		}
	}
	return records
}

// MedianRating returns the median used for imputation.
func (s *Store) MedianRating() float64 {
	return s.median
}

// Validate checks the table invariants: recipe ids are dense, chunk global
// ids equal their row, every chunk references an existing recipe, and chunk
// positions within a recipe run 0, 1, 2, ... in table order.
func (s *Store) Validate() error {
	for i, r := range s.recipes {
		if r == nil {
			return fmt.Errorf("%w: recipe row %d is empty", core.ErrIntegrity, i)
		}
		if int(r.ID) != i {
			return fmt.Errorf("%w: recipe row %d has id %d", core.ErrIntegrity, i, r.ID)
		}
	}

	next := make([]int, len(s.recipes))
	for i, c := range s.chunks {
		if int(c.GlobalID) != i {
			return fmt.Errorf("%w: chunk row %d has global id %d", core.ErrIntegrity, i, c.GlobalID)
		}
		if c.RecipeID < 0 || int(c.RecipeID) >= len(s.recipes) {
			return fmt.Errorf("%w: chunk %d references missing recipe %d", core.ErrIntegrity, i, c.RecipeID)
		}
		if c.Position != next[c.RecipeID] {
			return fmt.Errorf("%w: chunk %d has position %d in recipe %d, expected %d",
				core.ErrIntegrity, i, c.Position, c.RecipeID, next[c.RecipeID])
		}
		next[c.RecipeID]++
	}
	return nil
}
