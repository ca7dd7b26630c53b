package badger

import (
	"context"
	"errors"

	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
)

var _ storage.ChunkWriter = (*Backend)(nil)

// chunkRecord is the stored representation of a transcript chunk together
// with its embedding vector.
type chunkRecord struct {
	DocID      string
	ChunkID    string
	Text       string
	FileName   string
	StartTime  string
	Speakers   []string
	PanelCode  string
	PanelTheme string
	Vector     []float32
}

func (r *chunkRecord) toChunk() *core.Chunk {
	return &core.Chunk{
		DocID:      r.DocID,
		ChunkID:    r.ChunkID,
		Text:       r.Text,
		FileName:   r.FileName,
		StartTime:  r.StartTime,
		Speakers:   r.Speakers,
		PanelCode:  r.PanelCode,
		PanelTheme: r.PanelTheme,
	}
}

// SaveChunks persists chunks with their vectors, overwriting records with
// the same chunk identity.
func (b *Backend) SaveChunks(ctx context.Context, chunks []*core.Chunk, vectors [][]float32) error {
	if err := b.guard(ctx); err != nil {
		return err
	}
	if len(chunks) != len(vectors) {
		return storage.ErrVectorCountMismatch
	}

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		record := &chunkRecord{
			DocID:      chunk.DocID,
			ChunkID:    chunk.ChunkID,
			Text:       chunk.Text,
			FileName:   chunk.FileName,
			StartTime:  chunk.StartTime,
			Speakers:   chunk.Speakers,
			PanelCode:  chunk.PanelCode,
			PanelTheme: chunk.PanelTheme,
			Vector:     vectors[i],
		}
		if err := b.store.Upsert(uint64(chunk.ID()), record); err != nil {
			return err
		}
	}
	return nil
}

// errStopIteration signals an early, non-error exit from ForEach.
var errStopIteration = errors.New("stop iteration")

// IterateChunks calls fn for every persisted chunk until fn returns false.
func (b *Backend) IterateChunks(ctx context.Context, fn func(chunk *core.Chunk, vector []float32) bool) error {
	if err := b.guard(ctx); err != nil {
		return err
	}
	err := b.store.ForEach(nil, func(record *chunkRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(record.toChunk(), record.Vector) {
			return errStopIteration
		}
		return nil
	})
	if errors.Is(err, errStopIteration) {
		return nil
	}
	return err
}
