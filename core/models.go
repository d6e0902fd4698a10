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

package core

import "time"

// RecipeID is the dense row position of a recipe in the metadata table.
// IDs are assigned once at load time in input order and never reused.
type RecipeID int

// ChunkID is the global, dense identifier of a chunk. It doubles as the
// row address of the chunk's vector in the vector index.
type ChunkID int

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Name     string
	Quantity float64 // 0 when the source did not provide one
	Unit     string  // empty when the source did not provide one
}

// RawRecipe is a recipe record as it arrives from the cleaning stage,
// before ids are assigned and missing ratings are imputed.
type RawRecipe struct {
	Title        string
	Rating       *float64 // nil when absent
	IsVegetarian bool
	Ingredients  []Ingredient
	AvgKcal      *float64
	AvgFat       *float64
	AvgECV       *float64
	TotalECV     *float64
}

// Recipe is a recipe-level row of the metadata store.
type Recipe struct {
	ID            RecipeID
	Title         string
	Rating        float64 // always set; imputed from the corpus median when absent
	RatingImputed bool
	IsVegetarian  bool
	Ingredients   []Ingredient
	AvgKcal       *float64
	AvgFat        *float64
	AvgECV        *float64
	TotalECV      *float64
}

// IngredientNames returns the ingredient names in their original order.
func (r *Recipe) IngredientNames() []string {
	names := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		names[i] = ing.Name
	}
	return names
}

// Chunk is a chunk-level provenance row of the metadata store.
type Chunk struct {
	GlobalID ChunkID
	RecipeID RecipeID
	Position int    // 0-based position within the parent recipe
	Text     string // exact string that was embedded
}

// Manifest describes one persisted, co-versioned artifact set.
// All four artifacts of a version are only valid together.
type Manifest struct {
	Version      uint64
	RunID        string
	CreatedAt    time.Time
	RecipeCount  int
	ChunkCount   int
	Dimension    int
	ChunkSize    int
	MedianRating float64

	// Hex encoded BLAKE2b digests of the stored artifacts.
	RecipesDigest string
	ChunksDigest  string
	VectorsDigest string
	IndexDigest   string
}

// Float returns a pointer to v. It is a convenience for building records
// with optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

