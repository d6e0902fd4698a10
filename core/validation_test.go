package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateRawRecipe(t *testing.T) {
	tests := []struct {
		name    string
		record  *RawRecipe
		wantErr error
	}{
		{
			name: "valid record",
			record: &RawRecipe{
				Title:        "Tomato Soup",
				Rating:       Float(4.5),
				IsVegetarian: true,
				Ingredients:  []Ingredient{{Name: "tomato", Quantity: 4}},
				AvgKcal:      Float(80),
			},
			wantErr: nil,
		},
		{
			name:    "valid record with nothing set",
			record:  &RawRecipe{},
			wantErr: nil,
		},
		{
			name:    "zero rating is allowed",
			record:  &RawRecipe{Title: "Plain", Rating: Float(0)},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidRecipe,
		},
		{
			name:    "negative rating",
			record:  &RawRecipe{Title: "Bad", Rating: Float(-1)},
			wantErr: ErrNegativeRating,
		},
		{
			name:    "NaN rating",
			record:  &RawRecipe{Title: "Bad", Rating: Float(math.NaN())},
			wantErr: ErrInvalidNutrition,
		},
		{
			name:    "infinite kcal",
			record:  &RawRecipe{Title: "Bad", AvgKcal: Float(math.Inf(1))},
			wantErr: ErrInvalidNutrition,
		},
		{
			name:    "NaN ecv",
			record:  &RawRecipe{Title: "Bad", AvgECV: Float(math.NaN())},
			wantErr: ErrInvalidNutrition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRawRecipe(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRawRecipe() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRawRecipe() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecipe) {
				t.Errorf("ValidateRawRecipe() error = %v, should wrap ErrInvalidRecipe", err)
			}
		})
	}
}

func TestValidateDimension(t *testing.T) {
	if err := ValidateDimension([]float32{1, 2, 3}, 3); err != nil {
		t.Errorf("ValidateDimension() unexpected error = %v", err)
	}

	err := ValidateDimension([]float32{1, 2}, 3)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("ValidateDimension() error = %v, want %v", err, ErrDimensionMismatch)
	}
}

func TestValidateFinite(t *testing.T) {
	if err := ValidateFinite([]float32{0, -1.5, 3}); err != nil {
		t.Errorf("ValidateFinite() unexpected error = %v", err)
	}

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := ValidateFinite([]float32{1, float32(bad)})
		if !errors.Is(err, ErrNonFiniteVector) {
			t.Errorf("ValidateFinite(%v) error = %v, want %v", bad, err, ErrNonFiniteVector)
		}
	}
}

func TestRecipe_IngredientNames(t *testing.T) {
	r := &Recipe{Ingredients: []Ingredient{{Name: "flour"}, {Name: "egg"}, {Name: "milk"}}}
	got := r.IngredientNames()
	want := []string{"flour", "egg", "milk"}
	if len(got) != len(want) {
		t.Fatalf("IngredientNames() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IngredientNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
