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

package search

import (
	"strconv"
	"strings"

	"github.com/poiesic/larder/core"
)

// Presentation is the user-facing view of a retrieved recipe.
type Presentation struct {
	Title        string
	Rating       float64
	IsVegetarian bool
	Ingredients  string // comma-joined rendered ingredients
}

// Present builds the presentation record for a recipe.
func Present(r *core.Recipe) Presentation {
	parts := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		parts = append(parts, formatIngredient(ing))
	}
	return Presentation{
		Title:        r.Title,
		Rating:       r.Rating,
		IsVegetarian: r.IsVegetarian,
		Ingredients:  strings.Join(parts, ", "),
	}
}

// String renders the presentation as a plain-text block.
func (p Presentation) String() string {
	var b strings.Builder
	b.WriteString("Recipe: ")
	b.WriteString(p.Title)
	b.WriteString("\nRating: ")
	b.WriteString(formatNumber(p.Rating))
	b.WriteString("\nVegetarian: ")
	if p.IsVegetarian {
		b.WriteString("Yes")
	} else {
		b.WriteString("No")
	}
	b.WriteString("\nIngredients: ")
	b.WriteString(p.Ingredients)
	b.WriteString("\n")
	return b.String()
}

// formatIngredient renders "quantity unit name", dropping the parts the
// source did not provide. A zero quantity counts as absent.
func formatIngredient(ing core.Ingredient) string {
	if ing.Quantity == 0 {
		return ing.Name
	}
	q := formatNumber(ing.Quantity)
	if ing.Unit != "" {
		return q + " " + ing.Unit + " " + ing.Name
	}
	return q + " " + ing.Name
}

// formatNumber prints the shortest representation, so 2 renders as "2"
// and 0.5 as "0.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// PresentAll maps ranked results to presentation records, preserving order.
func PresentAll(ranked []*Ranked) []Presentation {
	out := make([]Presentation, len(ranked))
	for i, r := range ranked {
		out[i] = Present(r.Recipe)
	}
	return out
}
