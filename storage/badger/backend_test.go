package badger

import (
	"context"
	"testing"

	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendUseAfterClose(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, backend.SavePanel(ctx, storage.PanelRecord{Code: "11", Title: "Open Science"}))
	require.NoError(t, backend.Close())

	t.Run("panel reads", func(t *testing.T) {
		_, err := backend.FetchByCode(ctx, "11")
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		_, err = backend.FetchByCodeInt(ctx, 11)
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		_, err = backend.Scan(ctx, 10)
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		_, err = backend.ScanByTheme(ctx, "Science and Society", 10)
		assert.ErrorIs(t, err, storage.ErrStoreClosed)
	})

	t.Run("panel writes", func(t *testing.T) {
		err := backend.SavePanel(ctx, storage.PanelRecord{Code: "12"})
		assert.ErrorIs(t, err, storage.ErrStoreClosed)
	})

	t.Run("chunk surface", func(t *testing.T) {
		chunk := &core.Chunk{DocID: "d1", ChunkID: "0", Text: "transcript text"}
		err := backend.SaveChunks(ctx, []*core.Chunk{chunk}, [][]float32{{1}})
		assert.ErrorIs(t, err, storage.ErrStoreClosed)

		err = backend.IterateChunks(ctx, func(*core.Chunk, []float32) bool { return true })
		assert.ErrorIs(t, err, storage.ErrStoreClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		assert.NoError(t, backend.Close())
	})
}
