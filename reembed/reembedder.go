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


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/panelsearch/ai"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
)

// Config holds configuration for the re-embedding operation.
type Config struct {
	// BatchSize is the number of chunks to embed per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates the embedding vectors for every chunk in a corpus.
type Reembedder struct {
	store    storage.ChunkWriter
	embedder ai.Embedder
	config   *Config
	progress io.Writer
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(store storage.ChunkWriter, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Reembedder{
		store:    store,
		embedder: embedder,
		config:   config,
		progress: progress,
	}
}

// Run re-embeds every chunk in the corpus with the configured embedder and
// writes the new vectors back. Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	var chunks []*core.Chunk
	err := r.store.IterateChunks(ctx, func(chunk *core.Chunk, _ []float32) bool {
		chunks = append(chunks, chunk)
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to enumerate chunks: %w", err)
	}

	total := len(chunks)
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in corpus (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	for start := 0; start < total; start += r.config.BatchSize {
		end := start + r.config.BatchSize
		if end > total {
			end = total
		}

		if err := r.processBatch(ctx, chunks[start:end]); err != nil {
			return fmt.Errorf("failed to process batch at chunk %d: %w", start, err)
		}
		processed += end - start
		tracker.Update(processed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())
	return nil
}

// processBatch embeds one batch with retry and writes the vectors back.
func (r *Reembedder) processBatch(ctx context.Context, chunks []*core.Chunk) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	vectors := make([][]float32, len(embeddings))
	for i, embedding := range embeddings {
		vectors[i] = NormalizeVector(embedding)
	}
	return r.store.SaveChunks(ctx, chunks, vectors)
}
