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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/larder/ai"
	"github.com/poiesic/larder/chunker"
	"github.com/poiesic/larder/embedding"
	"github.com/poiesic/larder/search"
	"github.com/poiesic/larder/snapshot"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "larder.yaml"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// EmbedderConfig selects and configures the embedding backend.
type EmbedderConfig struct {
	Provider    string        `yaml:"provider"`
	Host        string        `yaml:"host"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	BatchSize   int           `yaml:"batch_size"`
	PoolSize    int           `yaml:"pool_size"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// ChunkerConfig configures how recipes are split into chunks.
type ChunkerConfig struct {
	Size int `yaml:"size"`
}

// StorageConfig configures the artifact store.
type StorageConfig struct {
	Path        string `yaml:"path"`
	RowsPerPage int    `yaml:"rows_per_page"`
}

// RetrievalConfig holds the query-time defaults.
type RetrievalConfig struct {
	TopK              int     `yaml:"top_k"`
	CandidatePoolSize int     `yaml:"candidate_pool_size"`
	RatingWeight      float64 `yaml:"rating_weight"`
	VegBoostWeight    float64 `yaml:"veg_boost_weight"`
	EcoHealthyWeight  float64 `yaml:"eco_healthy_weight"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Storage   StorageConfig   `yaml:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Default returns the default configuration.
func Default() *AppConfig {
	embedder := ai.DefaultConfig()
	params := search.DefaultParams()
	return &AppConfig{
		Embedder: EmbedderConfig{
			Provider:    embedder.Provider,
			Host:        embedder.Host,
			Model:       embedder.Model,
			APIKeyEnv:   embedder.APIKeyEnv,
			BatchSize:   embedder.BatchSize,
			PoolSize:    4,
			MaxAttempts: 3,
			RetryDelay:  500 * time.Millisecond,
		},
		Chunker: ChunkerConfig{Size: chunker.DefaultChunkSize},
		Storage: StorageConfig{
			Path:        "larder.db",
			RowsPerPage: snapshot.DefaultRowsPerPage,
		},
		Retrieval: RetrievalConfig{
			TopK:              params.TopK,
			CandidatePoolSize: search.DefaultCandidatePoolSize,
			RatingWeight:      params.Weights.Rating,
			VegBoostWeight:    params.Weights.VegBoost,
			EcoHealthyWeight:  params.Weights.EcoHealthy,
		},
	}
}

// Load reads a config from path on top of the defaults. If the file does
// not exist, the defaults are returned.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./larder.yaml first, then ~/.config/larder/config.yaml.
// If neither exists, it returns the defaults and an empty path.
func LoadDefault() (*AppConfig, string, error) {
	if _, err := os.Stat(DefaultFileName); err == nil {
		cfg, err := Load(DefaultFileName)
		return cfg, DefaultFileName, err
	}
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".config", "larder", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			cfg, err := Load(userPath)
			return cfg, userPath, err
		}
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.AI().Validate(); err != nil {
		return fmt.Errorf("%w: embedder: %w", ErrInvalidConfig, err)
	}
	if c.Embedder.PoolSize < 1 {
		return fmt.Errorf("%w: embedder.pool_size must be at least 1", ErrInvalidConfig)
	}
	if c.Embedder.MaxAttempts < 1 {
		return fmt.Errorf("%w: embedder.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Embedder.RetryDelay < 0 {
		return fmt.Errorf("%w: embedder.retry_delay cannot be negative", ErrInvalidConfig)
	}
	if c.Chunker.Size < 1 {
		return fmt.Errorf("%w: chunker.size must be at least 1", ErrInvalidConfig)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required", ErrInvalidConfig)
	}
	if c.Storage.RowsPerPage < 1 {
		return fmt.Errorf("%w: storage.rows_per_page must be at least 1", ErrInvalidConfig)
	}
	if c.Retrieval.CandidatePoolSize < 1 {
		return fmt.Errorf("%w: retrieval.candidate_pool_size must be at least 1", ErrInvalidConfig)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: retrieval: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AI returns the embedding provider configuration.
func (c *AppConfig) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.Embedder.Provider),
		ai.WithHost(c.Embedder.Host),
		ai.WithEmbeddingModel(c.Embedder.Model),
		ai.WithAPIKeyEnv(c.Embedder.APIKeyEnv),
		ai.WithBatchSize(c.Embedder.BatchSize),
	)
}

// EmbeddingOptions returns the embedder options for this configuration.
func (c *AppConfig) EmbeddingOptions() []embedding.Option {
	return []embedding.Option{
		embedding.WithMaxBatchSize(c.Embedder.BatchSize),
		embedding.WithPoolSize(c.Embedder.PoolSize),
		embedding.WithRetry(c.Embedder.MaxAttempts, c.Embedder.RetryDelay),
	}
}

// Params returns the default retrieval parameters.
func (c *AppConfig) Params() search.Params {
	return search.Params{
		TopK: c.Retrieval.TopK,
		Weights: search.Weights{
			Rating:     c.Retrieval.RatingWeight,
			VegBoost:   c.Retrieval.VegBoostWeight,
			EcoHealthy: c.Retrieval.EcoHealthyWeight,
		},
	}
}
