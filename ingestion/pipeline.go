package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/panelsearch/ai"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
)

// defaultBatchSize is how many chunk texts go to the embedder per request.
const defaultBatchSize = 32

// Indexer receives ingested chunks for live retrieval.
type Indexer interface {
	Add(ctx context.Context, chunks []*core.Chunk, vectors [][]float32) error
}

// Pipeline orchestrates loading transcript chunks and panel metadata.
// It manages concurrent embedding of chunk batches over a worker pool.
type Pipeline struct {
	chunks    storage.ChunkWriter
	panels    storage.PanelWriter
	indexer   Indexer
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many chunk texts are embedded per request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batchSize = size
		}
		return nil
	}
}

// WithIndexer adds a live index that receives every ingested chunk.
func WithIndexer(indexer Indexer) Option {
	return func(p *Pipeline) error {
		p.indexer = indexer
		return nil
	}
}

// WithPanelWriter sets the destination for panel metadata records.
// Required for IngestPanels.
func WithPanelWriter(panels storage.PanelWriter) Option {
	return func(p *Pipeline) error {
		p.panels = panels
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(chunks storage.ChunkWriter, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if chunks == nil {
		return nil, ErrChunkWriterRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunks:    chunks,
		embedder:  embedder,
		pool:      pool,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	return p, nil
}

// IngestChunks embeds and persists a set of transcript chunks, and indexes
// them when a live index is attached. Embedding batches run concurrently;
// any batch failure fails the call and nothing is persisted.
// Returns the number of chunks ingested.
func (p *Pipeline) IngestChunks(ctx context.Context, chunks []*core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return 0, err
		}
	}

	p.logger.Info("ingesting transcript chunks", "chunks", len(chunks), "batchSize", p.batchSize)

	vectors, err := p.embedAll(ctx, chunks)
	if err != nil {
		p.logger.Error("error embedding chunk batch", "err", err)
		return 0, err
	}

	if err := p.chunks.SaveChunks(ctx, chunks, vectors); err != nil {
		p.logger.Error("error persisting chunks", "err", err)
		return 0, err
	}

	if p.indexer != nil {
		if err := p.indexer.Add(ctx, chunks, vectors); err != nil {
			p.logger.Error("error indexing chunks", "err", err)
			return 0, err
		}
	}

	return len(chunks), nil
}

// embedAll fans batch embedding out over the worker pool. Each batch writes
// into its own region of the shared vector slice, so no locking is needed on
// the results; only the first error is kept.
func (p *Pipeline) embedAll(ctx context.Context, chunks []*core.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		batchErr error
	)
	for start := 0; start < len(chunks); start += p.batchSize {
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		wg.Add(1)
		task := func(start, end int) func() {
			return func() {
				defer wg.Done()
				texts := make([]string, end-start)
				for i, chunk := range chunks[start:end] {
					texts[i] = chunk.Text
				}
				embedded, err := p.embedder.EmbedTexts(ctx, texts)
				if err == nil && len(embedded) != len(texts) {
					err = storage.ErrVectorCountMismatch
				}
				if err != nil {
					errOnce.Do(func() { batchErr = err })
					return
				}
				copy(vectors[start:end], embedded)
			}
		}(start, end)

		if err := p.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	if batchErr != nil {
		return nil, batchErr
	}
	return vectors, nil
}

// IngestPanels upserts panel metadata records.
// Returns the number of records written.
func (p *Pipeline) IngestPanels(ctx context.Context, records []storage.PanelRecord) (int, error) {
	if p.panels == nil {
		return 0, ErrPanelWriterRequired
	}

	for i, record := range records {
		if err := p.panels.SavePanel(ctx, record); err != nil {
			p.logger.Error("error saving panel record", "code", record.CodeString(), "err", err)
			return i, err
		}
	}
	p.logger.Info("ingested panel records", "panels", len(records))
	return len(records), nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
