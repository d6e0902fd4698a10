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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/larder"
	"github.com/poiesic/larder/config"
	"github.com/poiesic/larder/core"
	"github.com/poiesic/larder/search"
	"github.com/poiesic/larder/storage"
	"github.com/poiesic/larder/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	// API keys may live in a local .env file
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (overrides storage.path)",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "larder",
		Usage: "Recipe retrieval with semantic search and quality re-ranking",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (default ./larder.yaml, then ~/.config/larder/config.yaml)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Build and publish a new index from a cleaned recipe JSON file",
				Action: indexCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the cleaned recipe JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Embedding provider (compatible, openai, mock)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Ingredient names per ingredient chunk",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Report embedding progress on stderr",
						Value: true,
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Retrieve recipes for a free-text query",
				ArgsUsage: "<query text>",
				Action:    queryCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Embedding provider (compatible, openai, mock)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of recipes to return",
					},
					&cli.Float64Flag{
						Name:  "rating-weight",
						Usage: "Weight of the normalized rating",
					},
					&cli.Float64Flag{
						Name:  "veg-weight",
						Usage: "Weight of the vegetarian boost",
					},
					&cli.Float64Flag{
						Name:  "eco-weight",
						Usage: "Weight of the eco/health composite",
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Print the score breakdown of every result",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Rebuild the published index from its stored recipes with the configured embedder",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Embedding provider (compatible, openai, mock)",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Ingredient names per ingredient chunk",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Report embedding progress on stderr",
						Value: true,
					},
				},
			},
			{
				Name:   "info",
				Usage:  "Print the manifest of the published index",
				Action: infoCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
		},
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	var (
		cfg  *config.AppConfig
		path string
		err  error
	)
	if path = c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, path, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if path != "" {
		slog.Debug("loaded config", "path", path)
	}

	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("provider") {
		cfg.Embedder.Provider = c.String("provider")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedder.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedder.Model = c.String("embedding-model")
	}
	if c.IsSet("chunk-size") {
		cfg.Chunker.Size = c.Int("chunk-size")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := []larder.Option{larder.WithConfig(cfg)}
	if c.Bool("progress") {
		opts = append(opts, larder.WithProgress(c.App.ErrWriter))
	}

	l, err := larder.Open(cfg.Storage.Path, opts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer l.Close()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n", cfg.Embedder.Provider)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedder.Model)
	fmt.Fprintln(c.App.ErrWriter)

	manifest, err := l.ReindexFile(ctx, c.String("input"))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	printManifest(c, manifest)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := []larder.Option{larder.WithConfig(cfg)}
	if c.Bool("progress") {
		opts = append(opts, larder.WithProgress(c.App.ErrWriter))
	}

	l, err := larder.Open(cfg.Storage.Path, opts...)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer l.Close()

	if l.Manifest().Version == 0 {
		return fmt.Errorf("no index has been published in %s", cfg.Storage.Path)
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n", cfg.Embedder.Provider)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedder.Model)
	fmt.Fprintln(c.App.ErrWriter)

	manifest, err := l.Reembed(ctx)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	printManifest(c, manifest)
	return nil
}

func queryCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query text is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	params := cfg.Params()
	if c.IsSet("top-k") {
		params.TopK = c.Int("top-k")
	}
	if c.IsSet("rating-weight") {
		params.Weights.Rating = c.Float64("rating-weight")
	}
	if c.IsSet("veg-weight") {
		params.Weights.VegBoost = c.Float64("veg-weight")
	}
	if c.IsSet("eco-weight") {
		params.Weights.EcoHealthy = c.Float64("eco-weight")
	}
	if err := params.Validate(); err != nil {
		return err
	}

	l, err := larder.Open(cfg.Storage.Path, larder.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer l.Close()

	ranked, err := l.Rank(ctx, query, params)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := c.App.Writer
	if len(ranked) == 0 {
		fmt.Fprintln(out, "No recipes found.")
		return nil
	}
	for i, r := range ranked {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, search.Present(r.Recipe).String())
		if c.Bool("explain") {
			printBreakdown(c, r)
		}
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	backend, err := badger.OpenBackend(cfg.Storage.Path, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewSnapshotRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	manifest, err := repo.CurrentManifest(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		fmt.Fprintln(c.App.Writer, "No index has been published.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	printManifest(c, *manifest)
	return nil
}

func printManifest(c *cli.Context, m core.Manifest) {
	out := c.App.Writer
	fmt.Fprintf(out, "Version: %d\n", m.Version)
	fmt.Fprintf(out, "Run: %s\n", m.RunID)
	fmt.Fprintf(out, "Created: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Recipes: %d\n", m.RecipeCount)
	fmt.Fprintf(out, "Chunks: %d\n", m.ChunkCount)
	fmt.Fprintf(out, "Dimension: %d\n", m.Dimension)
	fmt.Fprintf(out, "Chunk size: %d\n", m.ChunkSize)
	fmt.Fprintf(out, "Median rating: %.2f\n", m.MedianRating)
}

func printBreakdown(c *cli.Context, r *search.Ranked) {
	fmt.Fprintf(c.App.Writer,
		"Score: %.4f (similarity %.4f, rating %.3f, veg %.0f, eco/health %.3f) via chunk %d %q\n",
		r.Final, r.Similarity, r.RatingNorm, r.VegBoost, r.EcoHealthy, r.Chunk.GlobalID, r.Chunk.Text)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
