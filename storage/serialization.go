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

package storage

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/larder/core"
)

// MarshalVersion serializes a snapshot version number.
func MarshalVersion(version uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, version)
	return buf
}

// UnmarshalVersion deserializes a snapshot version number.
func UnmarshalVersion(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: version has %d bytes", ErrSerializationFailed, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// MarshalRecipe serializes a Recipe to bytes.
func MarshalRecipe(recipe *core.Recipe) []byte {
	buf := make([]byte, core.RecipeMUS.Size(*recipe))
	core.RecipeMUS.Marshal(*recipe, buf)
	return buf
}

// UnmarshalRecipe deserializes a Recipe from bytes.
func UnmarshalRecipe(data []byte) (*core.Recipe, error) {
	recipe, _, err := core.RecipeMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: recipe: %w", ErrSerializationFailed, err)
	}
	return &recipe, nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(chunk))
	core.ChunkMUS.Marshal(chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return core.Chunk{}, fmt.Errorf("%w: chunk: %w", ErrSerializationFailed, err)
	}
	return chunk, nil
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, core.VectorMUS.Size(vector))
	core.VectorMUS.Marshal(vector, buf)
	return buf
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	vector, _, err := core.VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	return vector, nil
}

// MarshalIndexPage serializes an IndexPage to bytes.
func MarshalIndexPage(page core.IndexPage) []byte {
	buf := make([]byte, core.IndexPageMUS.Size(page))
	core.IndexPageMUS.Marshal(page, buf)
	return buf
}

// UnmarshalIndexPage deserializes an IndexPage from bytes.
func UnmarshalIndexPage(data []byte) (core.IndexPage, error) {
	page, _, err := core.IndexPageMUS.Unmarshal(data)
	if err != nil {
		return core.IndexPage{}, fmt.Errorf("%w: index page: %w", ErrSerializationFailed, err)
	}
	return page, nil
}

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(manifest *core.Manifest) []byte {
	buf := make([]byte, core.ManifestMUS.Size(*manifest))
	core.ManifestMUS.Marshal(*manifest, buf)
	return buf
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (*core.Manifest, error) {
	manifest, _, err := core.ManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %w", ErrSerializationFailed, err)
	}
	return &manifest, nil
}

// Digest accumulates a BLAKE2b-256 digest over a sequence of stored values.
// Each value is length-prefixed so that value boundaries are part of the sum.
type Digest struct {
	h hash.Hash
}

// NewDigest returns an empty Digest.
func NewDigest() *Digest {
	h, _ := blake2b.New(32, nil) // 32 bytes = 256 bits
	return &Digest{h: h}
}

// Add feeds one stored value into the digest.
func (d *Digest) Add(value []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(value)))
	d.h.Write(size[:])
	d.h.Write(value)
}

// Sum returns the hex encoded digest.
func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
