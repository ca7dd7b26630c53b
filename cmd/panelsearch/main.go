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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/panelsearch"
	"github.com/poiesic/panelsearch/ai"
	"github.com/poiesic/panelsearch/ai/openai"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/ingestion"
	"github.com/poiesic/panelsearch/reembed"
	"github.com/poiesic/panelsearch/search"
	"github.com/poiesic/panelsearch/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "panelsearch",
		Usage: "Hybrid search over conference panel transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Ask a question against the transcript corpus",
				ArgsUsage: "QUESTION...",
				Action:    searchCommand,
				Flags: append(corpusFlags(),
					&cli.StringFlag{
						Name:  "theme",
						Usage: "Restrict results to one panel theme",
					},
					&cli.StringFlag{
						Name:  "panel",
						Usage: "Restrict results to one panel code",
					},
					&cli.Float64Flag{
						Name:  "alpha",
						Usage: "Vector weight in hybrid scoring (0=lexical, 1=vector)",
						Value: 0.5,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of results to return",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Rerank candidates with the cross-encoder service",
					},
					&cli.BoolFlag{
						Name:  "show-context",
						Usage: "Print the prompt context passages after the results",
					},
				),
			},
			{
				Name:   "ingest",
				Usage:  "Load transcript chunks and panel metadata into the corpus",
				Action: ingestCommand,
				Flags: append(corpusFlags(),
					&cli.StringFlag{
						Name:  "chunks",
						Usage: "Path to a JSONL file of transcript chunks",
					},
					&cli.StringFlag{
						Name:  "panels",
						Usage: "Path to a JSON file of panel metadata records",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunk texts to embed per request",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent embedding workers",
						Value: 4,
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for every chunk in the corpus",
				Action: reembedCommand,
				Flags: append(corpusFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed per request",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
			{
				Name:   "themes",
				Usage:  "List the distinct panel themes in the corpus",
				Action: themesCommand,
				Flags:  corpusFlags(),
			},
			{
				Name:   "panels",
				Usage:  "List the panels in the corpus",
				Action: panelsCommand,
				Flags: append(corpusFlags(),
					&cli.StringFlag{
						Name:  "theme",
						Usage: "Only list panels under one theme",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// corpusFlags are shared by every command that opens the corpus.
func corpusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the corpus database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.StringFlag{
			Name:  "rerank-host",
			Usage: "Cross-encoder rerank service host URL (empty disables reranking)",
		},
		&cli.StringFlag{
			Name:  "rerank-model",
			Usage: "Cross-encoder model name",
			Value: "cross-encoder/ms-marco-MiniLM-L-6-v2",
		},
		&cli.StringFlag{
			Name:  "audio-base-url",
			Usage: "Object storage base URL for panel audio (empty disables audio links)",
		},
		&cli.BoolFlag{
			Name:  "probe-audio",
			Usage: "Verify audio URLs with a reachability probe",
		},
	}
}

func openCorpus(c *cli.Context) (*panelsearch.Corpus, error) {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithRerankHost(c.String("rerank-host")),
		ai.WithRerankModel(c.String("rerank-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []panelsearch.CorpusOption{
		panelsearch.WithAIConfig(aiConfig),
	}
	if baseURL := c.String("audio-base-url"); baseURL != "" {
		opts = append(opts, panelsearch.WithAudioBaseURL(baseURL, c.Bool("probe-audio")))
	}

	corpus, err := panelsearch.OpenCorpus(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	return corpus, nil
}

func searchCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	searcher, err := corpus.NewSearcher()
	if err != nil {
		return err
	}
	defer searcher.Release()

	ctx := context.Background()
	response, err := searcher.Search(ctx, core.SearchRequest{
		Question:    question,
		ThemeFilter: c.String("theme"),
		PanelFilter: c.String("panel"),
		Alpha:       c.Float64("alpha"),
		TopK:        c.Int("top-k"),
		UseReranker: c.Bool("rerank"),
	})
	if err != nil {
		return err
	}

	printResponse(response)

	if c.Bool("show-context") {
		fmt.Println("\nContext passages:")
		for _, passage := range search.ContextPassages(response, 0) {
			fmt.Println(passage)
			fmt.Println()
		}
	}
	return nil
}

func printResponse(response *core.SearchResponse) {
	for _, warning := range response.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	if response.Total == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Found %d results in %d panels", response.Total, len(response.Groups))
	if response.Reranked {
		fmt.Print(" (reranked)")
	}
	fmt.Println()

	for _, group := range response.Groups {
		title := group.Metadata.Title
		if title == "" {
			title = "(no metadata)"
		}
		fmt.Printf("\nPanel %s - %s\n", group.PanelCode, title)
		if group.Metadata.Theme != "" {
			fmt.Printf("  Theme: %s\n", group.Metadata.Theme)
		}
		if len(group.Metadata.Speakers) > 0 {
			fmt.Printf("  Speakers: %s\n", strings.Join(group.Metadata.Speakers, ", "))
		}
		for _, result := range group.Results {
			fmt.Printf("  [%d] (%.3f) %s\n", result.Rank, result.Chunk.RelevanceScore, snippet(result.Chunk.Text, 160))
			if result.RerankScore != nil {
				fmt.Printf("      rerank score: %.3f\n", *result.RerankScore)
			}
			if result.HasAudio() {
				fmt.Printf("      audio: %s (start %ds)\n", result.AudioURL, result.AudioStartSeconds)
			}
		}
	}
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func ingestCommand(c *cli.Context) error {
	chunksPath := c.String("chunks")
	panelsPath := c.String("panels")
	if chunksPath == "" && panelsPath == "" {
		return fmt.Errorf("at least one of --chunks or --panels is required")
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	pipeline, err := corpus.NewIngestionPipeline(
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithPoolSize(c.Int("pool-size")),
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	ctx := context.Background()

	if chunksPath != "" {
		chunks, err := loadChunks(chunksPath)
		if err != nil {
			return fmt.Errorf("failed to load chunks: %w", err)
		}
		count, err := pipeline.IngestChunks(ctx, chunks)
		if err != nil {
			return fmt.Errorf("chunk ingestion failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Ingested %d chunks\n", count)
	}

	if panelsPath != "" {
		records, err := loadPanels(panelsPath)
		if err != nil {
			return fmt.Errorf("failed to load panels: %w", err)
		}
		count, err := pipeline.IngestPanels(ctx, records)
		if err != nil {
			return fmt.Errorf("panel ingestion failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Ingested %d panels\n", count)
	}

	return nil
}

func reembedCommand(c *cli.Context) error {
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	// The hybrid index is not needed here, so open the backend directly
	// instead of going through the corpus facade.
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open corpus: %w", err)
	}
	defer backend.Close()

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n\n", c.String("embedding-model"))

	reembedder := reembed.NewReembedder(backend, embedder, config, os.Stderr)
	if err := reembedder.Run(context.Background()); err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}
	return nil
}

func themesCommand(c *cli.Context) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	themes := corpus.Joiner().Themes(context.Background())
	if len(themes) == 0 {
		fmt.Println("No themes.")
		return nil
	}
	for _, theme := range themes {
		fmt.Println(theme)
	}
	return nil
}

func panelsCommand(c *cli.Context) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	ctx := context.Background()
	joiner := corpus.Joiner()

	var allowed map[string]bool
	if theme := c.String("theme"); theme != "" {
		allowed = joiner.PanelsForTheme(ctx, theme)
	}

	options := joiner.Panels(ctx)
	printed := 0
	for _, option := range options {
		if allowed != nil && !allowed[option.Code] {
			continue
		}
		fmt.Println(option.Label)
		printed++
	}
	if printed == 0 {
		fmt.Println("No panels.")
	}
	return nil
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
