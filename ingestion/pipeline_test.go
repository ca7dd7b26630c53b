package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/panelsearch/ai/mock"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/index"
	"github.com/poiesic/panelsearch/storage"
	badgerstore "github.com/poiesic/panelsearch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) *badgerstore.Backend {
	t.Helper()
	backend, err := badgerstore.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func chunkFixtures(n int) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		chunks[i] = &core.Chunk{
			DocID:   "doc",
			ChunkID: string(rune('a' + i)),
			Text:    "passage " + string(rune('a'+i)),
		}
	}
	return chunks
}

func TestNewPipeline(t *testing.T) {
	backend := newBackend(t)
	embedder := mock.NewMockEmbedder()

	t.Run("nil chunk writer", func(t *testing.T) {
		_, err := NewPipeline(nil, embedder)
		assert.Equal(t, ErrChunkWriterRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewPipeline(backend, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("valid", func(t *testing.T) {
		p, err := NewPipeline(backend, embedder)
		require.NoError(t, err)
		p.Release()
	})
}

func TestIngestChunks(t *testing.T) {
	backend := newBackend(t)
	idx, err := index.NewHybridIndex()
	require.NoError(t, err)
	defer idx.Close()

	p, err := NewPipeline(backend, mock.NewMockEmbedder(),
		WithIndexer(idx),
		WithBatchSize(2),
		WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	chunks := chunkFixtures(5)
	count, err := p.IngestChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	t.Run("persisted with vectors", func(t *testing.T) {
		persisted := 0
		err := backend.IterateChunks(ctx, func(chunk *core.Chunk, vector []float32) bool {
			persisted++
			assert.NotEmpty(t, vector)
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, 5, persisted)
	})

	t.Run("indexed for retrieval", func(t *testing.T) {
		assert.Equal(t, 5, idx.Len())
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		count, err := p.IngestChunks(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestIngestChunksValidation(t *testing.T) {
	p, err := NewPipeline(newBackend(t), mock.NewMockEmbedder())
	require.NoError(t, err)
	defer p.Release()

	_, err = p.IngestChunks(context.Background(), []*core.Chunk{
		{DocID: "doc", ChunkID: "0", Text: ""},
	})
	assert.ErrorIs(t, err, core.ErrEmptyChunkText)
}

func TestIngestChunksEmbeddingFailure(t *testing.T) {
	backend := newBackend(t)
	embedder := mock.NewMockEmbedder()
	embedFailed := errors.New("embedding host unreachable")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, embedFailed
	}

	p, err := NewPipeline(backend, embedder, WithBatchSize(2))
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	_, err = p.IngestChunks(ctx, chunkFixtures(5))
	assert.ErrorIs(t, err, embedFailed)

	persisted := 0
	require.NoError(t, backend.IterateChunks(ctx, func(*core.Chunk, []float32) bool {
		persisted++
		return true
	}))
	assert.Zero(t, persisted, "a failed batch persists nothing")
}

func TestIngestChunksVectorCountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 2, 3}}, nil
	}

	p, err := NewPipeline(newBackend(t), embedder, WithBatchSize(4))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.IngestChunks(context.Background(), chunkFixtures(4))
	assert.ErrorIs(t, err, storage.ErrVectorCountMismatch)
}

func TestIngestPanels(t *testing.T) {
	backend := newBackend(t)
	ctx := context.Background()

	t.Run("without writer configured", func(t *testing.T) {
		p, err := NewPipeline(backend, mock.NewMockEmbedder())
		require.NoError(t, err)
		defer p.Release()

		_, err = p.IngestPanels(ctx, []storage.PanelRecord{{Code: "11"}})
		assert.Equal(t, ErrPanelWriterRequired, err)
	})

	t.Run("upserts records", func(t *testing.T) {
		p, err := NewPipeline(backend, mock.NewMockEmbedder(), WithPanelWriter(backend))
		require.NoError(t, err)
		defer p.Release()

		count, err := p.IngestPanels(ctx, []storage.PanelRecord{
			{Code: "11", Title: "Quantum Futures"},
			{Code: 22, Title: "Open Data"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		record, err := backend.FetchByCode(ctx, "11")
		require.NoError(t, err)
		assert.Equal(t, "Quantum Futures", record.Title)

		record, err = backend.FetchByCodeInt(ctx, 22)
		require.NoError(t, err)
		assert.Equal(t, "Open Data", record.Title)
	})
}
