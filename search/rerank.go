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
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/poiesic/larder/core"
)

// Default re-ranking parameters.
const (
	DefaultTopK              = 10
	DefaultRatingWeight      = 0.15
	DefaultVegBoostWeight    = 0.2
	DefaultEcoHealthyWeight  = 0.5
	DefaultCandidatePoolSize = 50
)

// Weights of the non-semantic ranking signals.
type Weights struct {
	Rating     float64
	VegBoost   float64
	EcoHealthy float64
}

// Params controls a single retrieval.
type Params struct {
	TopK    int
	Weights Weights
}

// DefaultParams returns the default retrieval parameters.
func DefaultParams() Params {
	return Params{
		TopK: DefaultTopK,
		Weights: Weights{
			Rating:     DefaultRatingWeight,
			VegBoost:   DefaultVegBoostWeight,
			EcoHealthy: DefaultEcoHealthyWeight,
		},
	}
}

// Validate checks that top_k is positive and every weight is finite and
// non-negative.
func (p Params) Validate() error {
	if p.TopK < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, p.TopK)
	}
	weights := []struct {
		name  string
		value float64
	}{
		{"rating_weight", p.Weights.Rating},
		{"veg_boost_weight", p.Weights.VegBoost},
		{"eco_healthy_weight", p.Weights.EcoHealthy},
	}
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidWeight, w.name, w.value)
		}
	}
	return nil
}

// Ranked is one recipe of a retrieval result with its score breakdown.
type Ranked struct {
	Recipe *core.Recipe
	Chunk  core.Chunk // best matching chunk of the recipe

	Similarity float64

	// Pool-normalized features, each in [0, 1] for non-negative inputs.
	RatingNorm float64
	VegBoost   float64
	EcoNorm    float64
	KcalNorm   float64
	FatNorm    float64
	EcoHealthy float64

	Final float64
}

// Eco/health composite weights.
const (
	ecoShare  = 0.4
	kcalShare = 0.3
	fatShare  = 0.3
)

// poolMax returns the largest present value of a feature across the pool.
// ok is false when the feature is absent everywhere or its maximum is not
// positive; the feature then contributes nothing.
func poolMax(candidates []*Ranked, feature func(*core.Recipe) *float64) (maxValue float64, ok bool) {
	found := false
	for _, c := range candidates {
		v := feature(c.Recipe)
		if v == nil {
			continue
		}
		if !found || *v > maxValue {
			maxValue = *v
			found = true
		}
	}
	return maxValue, found && maxValue > 0
}

// inverseNorm maps a present value to 1 - v/max. Missing values score 0.
func inverseNorm(v *float64, maxValue float64, ok bool) float64 {
	if !ok || v == nil {
		return 0
	}
	return 1 - *v/maxValue
}

func avgKcal(r *core.Recipe) *float64 { return r.AvgKcal }
func avgFat(r *core.Recipe) *float64  { return r.AvgFat }
func avgECV(r *core.Recipe) *float64  { return r.AvgECV }
func rating(r *core.Recipe) *float64  { return &r.Rating }

// rerank scores candidates in place with features normalized against the
// candidate pool, then orders them by descending final score with ties
// broken by ascending recipe id.
func rerank(candidates []*Ranked, w Weights) {
	maxRating, ratingOK := poolMax(candidates, rating)
	maxKcal, kcalOK := poolMax(candidates, avgKcal)
	maxFat, fatOK := poolMax(candidates, avgFat)
	maxECV, ecvOK := poolMax(candidates, avgECV)

	for _, c := range candidates {
		if ratingOK {
			c.RatingNorm = c.Recipe.Rating / maxRating
		}
		if c.Recipe.IsVegetarian {
			c.VegBoost = 1
		}
		c.KcalNorm = inverseNorm(c.Recipe.AvgKcal, maxKcal, kcalOK)
		c.FatNorm = inverseNorm(c.Recipe.AvgFat, maxFat, fatOK)
		c.EcoNorm = inverseNorm(c.Recipe.AvgECV, maxECV, ecvOK)
		c.EcoHealthy = ecoShare*c.EcoNorm + kcalShare*c.KcalNorm + fatShare*c.FatNorm

		c.Final = c.Similarity +
			w.Rating*c.RatingNorm +
			w.VegBoost*c.VegBoost +
			w.EcoHealthy*c.EcoHealthy
	}

	slices.SortFunc(candidates, func(a, b *Ranked) int {
		if c := cmp.Compare(b.Final, a.Final); c != 0 {
			return c
		}
		return cmp.Compare(a.Recipe.ID, b.Recipe.ID)
	})
}
