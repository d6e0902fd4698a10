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

package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/larder/core"
)

// recipeRecord is the on-disk shape of a cleaned recipe.
type recipeRecord struct {
	Title       string             `json:"title"`
	Rating      flexFloat          `json:"rating"`
	IsVege      flexBool           `json:"is_vege"`
	Ingredients []ingredientRecord `json:"ingredients"`
	TotalECV    flexFloat          `json:"total_ecv"`
	AvgKcal     flexFloat          `json:"avg_kcal"`
	AvgFat      flexFloat          `json:"avg_fat"`
	AvgECV      flexFloat          `json:"avg_ecv"`
}

type ingredientRecord struct {
	Name     string    `json:"ingredient_name"`
	Quantity flexFloat `json:"quantity"`
	Unit     *string   `json:"unit"`
}

// flexFloat accepts a JSON number, a numeric string (decimal comma allowed),
// an empty string or null. Anything that is not a number decodes as absent.
type flexFloat struct {
	value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		f.value = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = decimalComma(strings.TrimSpace(s))
		if s == "" {
			f.value = nil
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f.value = nil
			return nil
		}
		f.value = &v
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.value = &v
	return nil
}

// decimalComma normalizes comma notation for ParseFloat. A lone comma with
// no dot is a decimal comma ("1,5"); otherwise commas are thousands
// separators ("1,234.5", "1,234,567").
func decimalComma(s string) string {
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

// flexBool accepts a JSON boolean, 0/1 or null (false).
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", "1.0":
		*b = true
	case "false", "0", "0.0", "null":
		*b = false
	default:
		return fmt.Errorf("cannot decode %s as a boolean", data)
	}
	return nil
}

func (r *recipeRecord) toRaw() core.RawRecipe {
	raw := core.RawRecipe{
		Title:        strings.TrimSpace(r.Title),
		Rating:       r.Rating.value,
		IsVegetarian: bool(r.IsVege),
		AvgKcal:      r.AvgKcal.value,
		AvgFat:       r.AvgFat.value,
		AvgECV:       r.AvgECV.value,
		TotalECV:     r.TotalECV.value,
	}
	if len(r.Ingredients) > 0 {
		raw.Ingredients = make([]core.Ingredient, len(r.Ingredients))
		for i, ing := range r.Ingredients {
			item := core.Ingredient{Name: strings.TrimSpace(ing.Name)}
			if ing.Quantity.value != nil {
				item.Quantity = *ing.Quantity.value
			}
			if ing.Unit != nil {
				item.Unit = strings.TrimSpace(*ing.Unit)
			}
			raw.Ingredients[i] = item
		}
	}
	return raw
}

// LoadRecipes decodes a JSON array of cleaned recipes and validates every
// record. Records keep their input order, which becomes their recipe id.
func LoadRecipes(r io.Reader) ([]core.RawRecipe, error) {
	var records []recipeRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	recipes := make([]core.RawRecipe, len(records))
	for i := range records {
		recipes[i] = records[i].toRaw()
		if err := core.ValidateRawRecipe(&recipes[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d (%q): %w", ErrInvalidRecord, i, recipes[i].Title, err)
		}
	}
	return recipes, nil
}

// LoadRecipesFile reads recipes from a JSON file.
func LoadRecipesFile(path string) ([]core.RawRecipe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadRecipes(f)
}
