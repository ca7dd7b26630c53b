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


package panelsearch

import (
	"context"
	"log/slog"

	"github.com/poiesic/panelsearch/ai"
	"github.com/poiesic/panelsearch/ai/openai"
	"github.com/poiesic/panelsearch/ai/rerank"
	"github.com/poiesic/panelsearch/audio"
	"github.com/poiesic/panelsearch/index"
	"github.com/poiesic/panelsearch/ingestion"
	"github.com/poiesic/panelsearch/panelmeta"
	"github.com/poiesic/panelsearch/search"
	"github.com/poiesic/panelsearch/storage/badger"
)

// Corpus bundles the persisted stores, the live hybrid index, and the AI
// services into one handle. It is the main entry point for embedding the
// search pipeline in an application.
type Corpus struct {
	backend  *badger.Backend
	index    *index.HybridIndex
	joiner   *panelmeta.Joiner
	embedder ai.Embedder
	reranker ai.Reranker
	audio    *audio.Locator
	logger   *slog.Logger
}

// CorpusOption configures a Corpus.
type CorpusOption func(*corpusOptions)

type corpusOptions struct {
	aiConfig     *ai.Config
	embedder     ai.Embedder
	reranker     ai.Reranker
	audioBaseURL string
	probeAudio   bool
	inMemory     bool
}

// WithAIConfig sets the AI service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) CorpusOption {
	return func(o *corpusOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithEmbedder overrides the embedder built from the AI configuration.
// Mainly useful for tests and offline tooling.
func WithEmbedder(embedder ai.Embedder) CorpusOption {
	return func(o *corpusOptions) {
		o.embedder = embedder
	}
}

// WithReranker overrides the reranker built from the AI configuration.
func WithReranker(reranker ai.Reranker) CorpusOption {
	return func(o *corpusOptions) {
		o.reranker = reranker
	}
}

// WithAudioBaseURL enables audio reference resolution against the given
// object storage base URL. Probe controls the per-result reachability check.
func WithAudioBaseURL(baseURL string, probe bool) CorpusOption {
	return func(o *corpusOptions) {
		o.audioBaseURL = baseURL
		o.probeAudio = probe
	}
}

// WithInMemory opens the backend without touching disk.
func WithInMemory() CorpusOption {
	return func(o *corpusOptions) {
		o.inMemory = true
	}
}

// OpenCorpus opens the corpus at filePath and loads the persisted chunks
// into the in-process hybrid index.
func OpenCorpus(filePath string, opts ...CorpusOption) (*Corpus, error) {
	options := &corpusOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	idx, err := index.NewHybridIndex()
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger := slog.Default()
	loaded, err := idx.Load(context.Background(), backend)
	if err != nil {
		idx.Close()
		backend.Close()
		return nil, err
	}
	logger.Info("corpus opened", "chunks", loaded, "inMemory", options.inMemory)

	joiner, err := panelmeta.NewJoiner(backend)
	if err != nil {
		idx.Close()
		backend.Close()
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			idx.Close()
			backend.Close()
			return nil, err
		}
	}

	reranker := options.reranker
	if reranker == nil && options.aiConfig.RerankEnabled() {
		reranker, err = rerank.NewClient(options.aiConfig)
		if err != nil {
			idx.Close()
			backend.Close()
			return nil, err
		}
	}

	var locator *audio.Locator
	if options.audioBaseURL != "" {
		locator = audio.NewLocator(options.audioBaseURL, audio.WithProbe(options.probeAudio))
	}

	return &Corpus{
		backend:  backend,
		index:    idx,
		joiner:   joiner,
		embedder: embedder,
		reranker: reranker,
		audio:    locator,
		logger:   logger,
	}, nil
}

// Close releases the index and the backend.
func (c *Corpus) Close() error {
	if err := c.index.Close(); err != nil {
		c.logger.Error("error closing hybrid index", "err", err)
	}
	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Index returns the live hybrid index over the loaded chunks.
func (c *Corpus) Index() *index.HybridIndex {
	return c.index
}

// Joiner returns the panel metadata joiner.
func (c *Corpus) Joiner() *panelmeta.Joiner {
	return c.joiner
}

// NewSearcher creates a searcher wired to the corpus stores and services.
func (c *Corpus) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{}
	if c.reranker != nil {
		base = append(base, search.WithReranker(c.reranker))
	}
	if c.audio != nil {
		base = append(base, search.WithAudioLocator(c.audio))
	}
	return search.NewSearcher(c.index, c.joiner, c.embedder, append(base, opts...)...)
}

// NewIngestionPipeline creates a pipeline that persists to the backend and
// feeds the live index.
func (c *Corpus) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithIndexer(c.index),
		ingestion.WithPanelWriter(c.backend),
	}
	return ingestion.NewPipeline(c.backend, c.embedder, append(base, opts...)...)
}
