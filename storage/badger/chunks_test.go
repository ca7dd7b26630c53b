package badger

import (
	"context"
	"testing"

	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndIterateChunks(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	chunks := []*core.Chunk{
		{DocID: "day1", ChunkID: "0", Text: "opening remarks", FileName: "panel11_transcript.txt", StartTime: "00:01:00", PanelCode: "11"},
		{DocID: "day1", ChunkID: "1", Text: "questions about AI policy", FileName: "panel11_transcript.txt", StartTime: "00:14:30", PanelCode: "11"},
		{DocID: "day2", ChunkID: "0", Text: "science funding debate", FileName: "panel333_transcript.txt", StartTime: "01:02:03", PanelCode: "333"},
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}

	require.NoError(t, backend.SaveChunks(ctx, chunks, vectors))

	t.Run("iterates all chunks with vectors", func(t *testing.T) {
		seen := make(map[string][]float32)
		err := backend.IterateChunks(ctx, func(chunk *core.Chunk, vector []float32) bool {
			seen[chunk.DocID+"/"+chunk.ChunkID] = vector
			return true
		})
		require.NoError(t, err)
		assert.Len(t, seen, 3)
		assert.Equal(t, []float32{0, 1}, seen["day1/1"])
	})

	t.Run("iteration stops when fn returns false", func(t *testing.T) {
		count := 0
		err := backend.IterateChunks(ctx, func(chunk *core.Chunk, vector []float32) bool {
			count++
			return false
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("save overwrites by chunk identity", func(t *testing.T) {
		updated := []*core.Chunk{{DocID: "day1", ChunkID: "0", Text: "revised opening", PanelCode: "11"}}
		require.NoError(t, backend.SaveChunks(ctx, updated, [][]float32{{1, 1}}))

		count := 0
		err := backend.IterateChunks(ctx, func(chunk *core.Chunk, vector []float32) bool {
			count++
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestSaveChunksVectorMismatch(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	chunks := []*core.Chunk{{DocID: "d", ChunkID: "0", Text: "x"}}
	err = backend.SaveChunks(context.Background(), chunks, nil)
	assert.ErrorIs(t, err, storage.ErrVectorCountMismatch)
}
