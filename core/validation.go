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

import (
	"fmt"
	"math"
)

// ValidateRawRecipe validates a RawRecipe according to domain rules.
//
// Validation rules:
//   - Rating, when present, must be finite and not negative
//   - Nutrition aggregates, when present, must be finite
//
// NOT validated:
//   - Title and Ingredients (a recipe with neither is kept but yields no chunks)
//   - Ingredient quantities and units (rendering falls back when absent)
func ValidateRawRecipe(record *RawRecipe) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecipe)
	}

	if record.Rating != nil {
		if !isFinite(*record.Rating) {
			return fmt.Errorf("%w: rating: %w", ErrInvalidRecipe, ErrInvalidNutrition)
		}
		if *record.Rating < 0 {
			return fmt.Errorf("%w: %w", ErrInvalidRecipe, ErrNegativeRating)
		}
	}

	fields := []struct {
		name  string
		value *float64
	}{
		{"avg_kcal", record.AvgKcal},
		{"avg_fat", record.AvgFat},
		{"avg_ecv", record.AvgECV},
		{"total_ecv", record.TotalECV},
	}
	for _, f := range fields {
		if f.value != nil && !isFinite(*f.value) {
			return fmt.Errorf("%w: %s: %w", ErrInvalidRecipe, f.name, ErrInvalidNutrition)
		}
	}

	return nil
}

// ValidateDimension checks that a vector has the expected dimension.
func ValidateDimension(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, dimension, len(vector))
	}
	return nil
}

// ValidateFinite checks that every component of a vector is finite.
func ValidateFinite(vector []float32) error {
	for i, x := range vector {
		if !isFinite(float64(x)) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFiniteVector, i, x)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
