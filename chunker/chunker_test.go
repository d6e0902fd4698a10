package chunker

import (
	"fmt"
	"testing"

	"github.com/poiesic/larder/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingredients(names ...string) []core.Ingredient {
	result := make([]core.Ingredient, len(names))
	for i, name := range names {
		result[i] = core.Ingredient{Name: name}
	}
	return result
}

func TestNew_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultChunkSize, New(0).Size())
	assert.Equal(t, DefaultChunkSize, New(-3).Size())
	assert.Equal(t, 2, New(2).Size())
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		recipe *core.Recipe
		want   []string
	}{
		{
			name: "title and one group",
			size: 5,
			recipe: &core.Recipe{
				Title:       "Tomato Soup",
				Ingredients: ingredients("tomato", "onion", "salt"),
			},
			want: []string{
				"Title: Tomato Soup",
				"Ingredients: tomato, onion, salt",
			},
		},
		{
			name: "groups split at size",
			size: 2,
			recipe: &core.Recipe{
				Title:       "Pancakes",
				Ingredients: ingredients("flour", "egg", "milk", "butter", "sugar"),
			},
			want: []string{
				"Title: Pancakes",
				"Ingredients: flour, egg",
				"Ingredients: milk, butter",
				"Ingredients: sugar",
			},
		},
		{
			name:   "title only",
			size:   5,
			recipe: &core.Recipe{Title: "Water"},
			want:   []string{"Title: Water"},
		},
		{
			name:   "ingredients only",
			size:   5,
			recipe: &core.Recipe{Ingredients: ingredients("rice")},
			want:   []string{"Ingredients: rice"},
		},
		{
			name:   "blank title is skipped",
			size:   5,
			recipe: &core.Recipe{Title: "   ", Ingredients: ingredients("rice")},
			want:   []string{"Ingredients: rice"},
		},
		{
			name:   "title is trimmed",
			size:   5,
			recipe: &core.Recipe{Title: "  Stew \n"},
			want:   []string{"Title: Stew"},
		},
		{
			name:   "nothing to chunk",
			size:   5,
			recipe: &core.Recipe{},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.size)
			got := c.Chunk(tt.recipe)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, c.Expected(tt.recipe))
		})
	}
}

func TestChunk_Nil(t *testing.T) {
	c := New(5)
	assert.Empty(t, c.Chunk(nil))
	assert.Equal(t, 0, c.Expected(nil))
}

func TestChunk_SkipsBlankIngredientGroups(t *testing.T) {
	c := New(2)

	recipe := &core.Recipe{Ingredients: ingredients("")}
	assert.Empty(t, c.Chunk(recipe))
	assert.Equal(t, 0, c.Expected(recipe))

	recipe = &core.Recipe{Title: "Soup", Ingredients: ingredients("leek", "potato", "")}
	got := c.Chunk(recipe)
	assert.Equal(t, []string{"Title: Soup", "Ingredients: leek, potato"}, got)
	assert.Len(t, got, c.Expected(recipe))

	// A group with several blank names still joins to a separator.
	recipe = &core.Recipe{Ingredients: ingredients("", "")}
	assert.Equal(t, []string{"Ingredients: , "}, c.Chunk(recipe))
}

func TestChunk_CountFormula(t *testing.T) {
	for _, size := range []int{1, 3, 5, 7} {
		for n := 0; n <= 23; n++ {
			names := make([]string, n)
			for i := range names {
				names[i] = fmt.Sprintf("ingredient-%d", i)
			}
			recipe := &core.Recipe{Title: "Recipe", Ingredients: ingredients(names...)}

			chunks := New(size).Chunk(recipe)
			want := (n+size-1)/size + 1
			require.Len(t, chunks, want, "size=%d n=%d", size, n)
		}
	}
}

func TestChunk_Idempotent(t *testing.T) {
	c := New(3)
	recipe := &core.Recipe{
		Title:       "Curry",
		Ingredients: ingredients("chickpea", "coconut milk", "tomato", "garlic"),
	}
	first := c.Chunk(recipe)
	second := c.Chunk(recipe)
	assert.Equal(t, first, second)
}

func TestChunk_PreservesIngredientOrder(t *testing.T) {
	recipe := &core.Recipe{Ingredients: ingredients("c", "a", "b", "e", "d", "f")}
	got := New(5).Chunk(recipe)
	assert.Equal(t, []string{"Ingredients: c, a, b, e, d", "Ingredients: f"}, got)
}
