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
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// IndexPage is a contiguous run of vector index rows, stored as one value.
type IndexPage struct {
	FirstRow  int
	Dimension int
	Data      []float32 // row-major, len = rows * Dimension
}

// Rows returns the number of vectors in the page.
func (p *IndexPage) Rows() int {
	if p.Dimension == 0 {
		return 0
	}
	return len(p.Data) / p.Dimension
}

// ErrNegativeLength is returned when a decoded length prefix is negative.
var ErrNegativeLength = errors.New("negative length prefix")

// MUS serializers for persisted records. Field order is part of the on-disk
// format; append new fields at the end only.
var (
	RecipeMUS    = recipeMUS{}
	ChunkMUS     = chunkMUS{}
	VectorMUS    = vectorMUS{}
	IndexPageMUS = indexPageMUS{}
	ManifestMUS  = manifestMUS{}
)

// encoder accumulates the written byte count across mus-go primitives.
type encoder struct {
	bs []byte
	n  int
}

func (e *encoder) int(v int)         { e.n += varint.Int.Marshal(v, e.bs[e.n:]) }
func (e *encoder) int64(v int64)     { e.n += varint.Int64.Marshal(v, e.bs[e.n:]) }
func (e *encoder) uint64(v uint64)   { e.n += varint.Uint64.Marshal(v, e.bs[e.n:]) }
func (e *encoder) string(v string)   { e.n += ord.String.Marshal(v, e.bs[e.n:]) }
func (e *encoder) bool(v bool)       { e.n += ord.Bool.Marshal(v, e.bs[e.n:]) }
func (e *encoder) float64(v float64) { e.n += raw.Float64.Marshal(v, e.bs[e.n:]) }
func (e *encoder) float32(v float32) { e.n += raw.Float32.Marshal(v, e.bs[e.n:]) }

func (e *encoder) optFloat(v *float64) {
	e.bool(v != nil)
	if v != nil {
		e.float64(*v)
	}
}

func (e *encoder) floats(v []float32) {
	e.int(len(v))
	for _, f := range v {
		e.float32(f)
	}
}

// decoder reads mus-go primitives and keeps the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) int() (v int) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) int64() (v int64) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) uint64() (v uint64) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Uint64.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) string() (v string) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) bool() (v bool) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) float64() (v float64) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = raw.Float64.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) float32() (v float32) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = raw.Float32.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) length() int {
	l := d.int()
	if d.err == nil && l < 0 {
		d.err = ErrNegativeLength
		return 0
	}
	return l
}

func (d *decoder) optFloat() *float64 {
	if !d.bool() || d.err != nil {
		return nil
	}
	v := d.float64()
	if d.err != nil {
		return nil
	}
	return &v
}

func (d *decoder) floats() []float32 {
	l := d.length()
	if d.err != nil {
		return nil
	}
	v := make([]float32, l)
	for i := range v {
		v[i] = d.float32()
	}
	if d.err != nil {
		return nil
	}
	return v
}

func optFloatSize(v *float64) int {
	if v == nil {
		return ord.Bool.Size(false)
	}
	return ord.Bool.Size(true) + raw.Float64.Size(*v)
}

func floatsSize(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// recipeMUS serializes Recipe.
type recipeMUS struct{}

func (recipeMUS) Marshal(r Recipe, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.int(int(r.ID))
	e.string(r.Title)
	e.float64(r.Rating)
	e.bool(r.RatingImputed)
	e.bool(r.IsVegetarian)
	e.int(len(r.Ingredients))
	for _, ing := range r.Ingredients {
		e.string(ing.Name)
		e.float64(ing.Quantity)
		e.string(ing.Unit)
	}
	e.optFloat(r.AvgKcal)
	e.optFloat(r.AvgFat)
	e.optFloat(r.AvgECV)
	e.optFloat(r.TotalECV)
	return e.n
}

func (recipeMUS) Unmarshal(bs []byte) (r Recipe, n int, err error) {
	d := &decoder{bs: bs}
	r.ID = RecipeID(d.int())
	r.Title = d.string()
	r.Rating = d.float64()
	r.RatingImputed = d.bool()
	r.IsVegetarian = d.bool()
	if l := d.length(); d.err == nil && l > 0 {
		r.Ingredients = make([]Ingredient, l)
		for i := range r.Ingredients {
			r.Ingredients[i] = Ingredient{
				Name:     d.string(),
				Quantity: d.float64(),
				Unit:     d.string(),
			}
		}
	}
	r.AvgKcal = d.optFloat()
	r.AvgFat = d.optFloat()
	r.AvgECV = d.optFloat()
	r.TotalECV = d.optFloat()
	return r, d.n, d.err
}

func (recipeMUS) Size(r Recipe) (size int) {
	size += varint.Int.Size(int(r.ID))
	size += ord.String.Size(r.Title)
	size += raw.Float64.Size(r.Rating)
	size += ord.Bool.Size(r.RatingImputed)
	size += ord.Bool.Size(r.IsVegetarian)
	size += varint.Int.Size(len(r.Ingredients))
	for _, ing := range r.Ingredients {
		size += ord.String.Size(ing.Name)
		size += raw.Float64.Size(ing.Quantity)
		size += ord.String.Size(ing.Unit)
	}
	size += optFloatSize(r.AvgKcal)
	size += optFloatSize(r.AvgFat)
	size += optFloatSize(r.AvgECV)
	size += optFloatSize(r.TotalECV)
	return size
}

// chunkMUS serializes Chunk.
type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.int(int(c.GlobalID))
	e.int(int(c.RecipeID))
	e.int(c.Position)
	e.string(c.Text)
	return e.n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	d := &decoder{bs: bs}
	c.GlobalID = ChunkID(d.int())
	c.RecipeID = RecipeID(d.int())
	c.Position = d.int()
	c.Text = d.string()
	return c, d.n, d.err
}

func (chunkMUS) Size(c Chunk) int {
	return varint.Int.Size(int(c.GlobalID)) +
		varint.Int.Size(int(c.RecipeID)) +
		varint.Int.Size(c.Position) +
		ord.String.Size(c.Text)
}

// vectorMUS serializes a single embedding vector.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.floats(v)
	return e.n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	d := &decoder{bs: bs}
	v = d.floats()
	return v, d.n, d.err
}

func (vectorMUS) Size(v []float32) int {
	return floatsSize(v)
}

// indexPageMUS serializes IndexPage.
type indexPageMUS struct{}

func (indexPageMUS) Marshal(p IndexPage, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.int(p.FirstRow)
	e.int(p.Dimension)
	e.floats(p.Data)
	return e.n
}

func (indexPageMUS) Unmarshal(bs []byte) (p IndexPage, n int, err error) {
	d := &decoder{bs: bs}
	p.FirstRow = d.int()
	p.Dimension = d.int()
	p.Data = d.floats()
	return p, d.n, d.err
}

func (indexPageMUS) Size(p IndexPage) int {
	return varint.Int.Size(p.FirstRow) + varint.Int.Size(p.Dimension) + floatsSize(p.Data)
}

// manifestMUS serializes Manifest. Timestamps are stored as Unix micros.
type manifestMUS struct{}

func (manifestMUS) Marshal(m Manifest, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.uint64(m.Version)
	e.string(m.RunID)
	e.int64(m.CreatedAt.UnixMicro())
	e.int(m.RecipeCount)
	e.int(m.ChunkCount)
	e.int(m.Dimension)
	e.int(m.ChunkSize)
	e.float64(m.MedianRating)
	e.string(m.RecipesDigest)
	e.string(m.ChunksDigest)
	e.string(m.VectorsDigest)
	e.string(m.IndexDigest)
	return e.n
}

func (manifestMUS) Unmarshal(bs []byte) (m Manifest, n int, err error) {
	d := &decoder{bs: bs}
	m.Version = d.uint64()
	m.RunID = d.string()
	m.CreatedAt = time.UnixMicro(d.int64()).UTC()
	m.RecipeCount = d.int()
	m.ChunkCount = d.int()
	m.Dimension = d.int()
	m.ChunkSize = d.int()
	m.MedianRating = d.float64()
	m.RecipesDigest = d.string()
	m.ChunksDigest = d.string()
	m.VectorsDigest = d.string()
	m.IndexDigest = d.string()
	return m, d.n, d.err
}

func (manifestMUS) Size(m Manifest) int {
	return varint.Uint64.Size(m.Version) +
		ord.String.Size(m.RunID) +
		varint.Int64.Size(m.CreatedAt.UnixMicro()) +
		varint.Int.Size(m.RecipeCount) +
		varint.Int.Size(m.ChunkCount) +
		varint.Int.Size(m.Dimension) +
		varint.Int.Size(m.ChunkSize) +
		raw.Float64.Size(m.MedianRating) +
		ord.String.Size(m.RecipesDigest) +
		ord.String.Size(m.ChunksDigest) +
		ord.String.Size(m.VectorsDigest) +
		ord.String.Size(m.IndexDigest)
}
