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

import "errors"

// Domain errors
var (
	// ErrDimensionMismatch indicates that two vectors that must share a
	// dimension do not. It is a fatal configuration error.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIntegrity indicates that an artifact set is internally inconsistent,
	// e.g. a chunk references a recipe that does not exist.
	ErrIntegrity = errors.New("artifact set integrity violation")

	// ErrInvalidRecipe indicates a RawRecipe failed validation.
	ErrInvalidRecipe = errors.New("invalid recipe")

	// ErrNegativeRating indicates a rating below zero.
	ErrNegativeRating = errors.New("rating cannot be negative")

	// ErrInvalidNutrition indicates a NaN or infinite nutrition aggregate.
	ErrInvalidNutrition = errors.New("nutrition value must be finite")

	// ErrNonFiniteVector indicates a vector with a NaN or infinite component.
	ErrNonFiniteVector = errors.New("vector component must be finite")
)
