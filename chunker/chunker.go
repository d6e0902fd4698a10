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

package chunker

import (
	"strings"

	"github.com/poiesic/larder/core"
)

// DefaultChunkSize is the number of ingredient names per ingredient chunk.
const DefaultChunkSize = 5

const (
	titlePrefix       = "Title: "
	ingredientsPrefix = "Ingredients: "
	ingredientSep     = ", "
)

// Chunker splits recipes into embeddable text chunks.
type Chunker struct {
	size int
}

// New creates a Chunker that groups up to size ingredient names per chunk.
// A non-positive size selects DefaultChunkSize.
func New(size int) *Chunker {
	if size < 1 {
		size = DefaultChunkSize
	}
	return &Chunker{size: size}
}

// Size returns the ingredient group size.
func (c *Chunker) Size() int {
	return c.size
}

// Chunk returns the chunk texts of a recipe in order. A recipe with neither
// a title nor ingredients yields no chunks.
func (c *Chunker) Chunk(recipe *core.Recipe) []string {
	if recipe == nil {
		return nil
	}

	chunks := make([]string, 0, c.Expected(recipe))

	if title := strings.TrimSpace(recipe.Title); title != "" {
		chunks = append(chunks, titlePrefix+title)
	}

	for _, group := range c.groups(recipe) {
		chunks = append(chunks, ingredientsPrefix+group)
	}

	return chunks
}

// Expected returns the number of chunks Chunk produces for recipe:
// ceil(len(ingredients) / size), plus one when the recipe has a title.
// Groups whose names join to an empty string are not counted.
func (c *Chunker) Expected(recipe *core.Recipe) int {
	if recipe == nil {
		return 0
	}
	n := len(c.groups(recipe))
	if strings.TrimSpace(recipe.Title) != "" {
		n++
	}
	return n
}

// groups joins ingredient names in runs of size, dropping empty joins.
func (c *Chunker) groups(recipe *core.Recipe) []string {
	names := recipe.IngredientNames()
	groups := make([]string, 0, (len(names)+c.size-1)/c.size)
	for start := 0; start < len(names); start += c.size {
		end := min(start+c.size, len(names))
		if joined := strings.Join(names[start:end], ingredientSep); joined != "" {
			groups = append(groups, joined)
		}
	}
	return groups
}
