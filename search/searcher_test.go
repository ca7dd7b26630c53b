package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/panelsearch/ai/mock"
	"github.com/poiesic/panelsearch/audio"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/index"
	"github.com/poiesic/panelsearch/panelmeta"
	"github.com/poiesic/panelsearch/storage"
	badgerstore "github.com/poiesic/panelsearch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChunkStore returns a fixed candidate order, recording the query it saw.
type stubChunkStore struct {
	chunks    []*core.Chunk
	err       error
	lastQuery storage.HybridQuery
}

func (s *stubChunkStore) HybridSearch(ctx context.Context, query storage.HybridQuery) ([]*core.Chunk, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	limit := query.Limit
	if limit > len(s.chunks) {
		limit = len(s.chunks)
	}
	return s.chunks[:limit], nil
}

func chunkFixture(docID, text, panelCode, fileName, startTime string) *core.Chunk {
	return &core.Chunk{
		DocID:     docID,
		ChunkID:   "0",
		Text:      text,
		FileName:  fileName,
		StartTime: startTime,
		PanelCode: panelCode,
	}
}

func newTestJoiner(t *testing.T) *panelmeta.Joiner {
	t.Helper()
	backend, err := badgerstore.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ctx := context.Background()
	require.NoError(t, backend.SavePanel(ctx, storage.PanelRecord{
		Code: "11", Title: "Quantum Futures", Theme: "Science",
	}))
	require.NoError(t, backend.SavePanel(ctx, storage.PanelRecord{
		Code: 22, Title: "Open Data", Theme: "Policy",
	}))

	joiner, err := panelmeta.NewJoiner(backend)
	require.NoError(t, err)
	return joiner
}

func newTestSearcher(t *testing.T, chunks storage.ChunkStore, opts ...Option) *Searcher {
	t.Helper()
	s, err := NewSearcher(chunks, newTestJoiner(t), mock.NewMockEmbedder(), opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func baseRequest() core.SearchRequest {
	return core.SearchRequest{
		Question: "what about quantum computing",
		Alpha:    0.5,
		TopK:     10,
	}
}

func TestNewSearcher(t *testing.T) {
	joiner := newTestJoiner(t)
	embedder := mock.NewMockEmbedder()

	t.Run("nil chunk store", func(t *testing.T) {
		_, err := NewSearcher(nil, joiner, embedder)
		assert.Equal(t, ErrChunkStoreRequired, err)
	})

	t.Run("nil joiner", func(t *testing.T) {
		_, err := NewSearcher(&stubChunkStore{}, nil, embedder)
		assert.Equal(t, ErrJoinerRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(&stubChunkStore{}, joiner, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("valid", func(t *testing.T) {
		s, err := NewSearcher(&stubChunkStore{}, joiner, embedder)
		require.NoError(t, err)
		s.Release()
	})
}

func TestSearchValidation(t *testing.T) {
	s := newTestSearcher(t, &stubChunkStore{})
	ctx := context.Background()

	t.Run("empty question", func(t *testing.T) {
		req := baseRequest()
		req.Question = "  "
		_, err := s.Search(ctx, req)
		assert.ErrorIs(t, err, core.ErrEmptyQuestion)
	})

	t.Run("alpha out of range", func(t *testing.T) {
		req := baseRequest()
		req.Alpha = 1.5
		_, err := s.Search(ctx, req)
		assert.ErrorIs(t, err, core.ErrAlphaOutOfRange)
	})

	t.Run("topk out of range", func(t *testing.T) {
		req := baseRequest()
		req.TopK = 0
		_, err := s.Search(ctx, req)
		assert.ErrorIs(t, err, core.ErrTopKOutOfRange)
	})
}

func TestSearchEmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("model host unreachable")
	}
	s, err := NewSearcher(&stubChunkStore{}, newTestJoiner(t), embedder)
	require.NoError(t, err)
	defer s.Release()

	_, err = s.Search(context.Background(), baseRequest())
	assert.ErrorIs(t, err, core.ErrConnection)
}

func TestSearchEmbeddingTimeout(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("%w: embedding request exceeded deadline", core.ErrTimeout)
	}
	s, err := NewSearcher(&stubChunkStore{}, newTestJoiner(t), embedder)
	require.NoError(t, err)
	defer s.Release()

	// A slow service surfaces as the timeout kind, not a dead connection.
	_, err = s.Search(context.Background(), baseRequest())
	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.NotErrorIs(t, err, core.ErrConnection)
}

func TestSearchRetrievalFailure(t *testing.T) {
	storeErr := errors.New("index closed")
	s := newTestSearcher(t, &stubChunkStore{err: storeErr})

	_, err := s.Search(context.Background(), baseRequest())
	assert.ErrorIs(t, err, storeErr)
}

func TestSearchZeroResults(t *testing.T) {
	s := newTestSearcher(t, &stubChunkStore{})

	resp, err := s.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.NotNil(t, resp.Groups)
	assert.Empty(t, resp.Groups)
	assert.Zero(t, resp.Total)
	assert.False(t, resp.Reranked)
}

func TestSearchGroupingByPanel(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "quantum computing hardware", "11", "", ""),
		chunkFixture("d2", "open data policy", "99", "", ""),
		chunkFixture("d3", "quantum error correction", "11", "", ""),
	}}
	s := newTestSearcher(t, store)

	resp, err := s.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, 3, resp.Total)

	first, second := resp.Groups[0], resp.Groups[1]
	assert.Equal(t, "11", first.PanelCode)
	assert.Equal(t, 1, first.BestRank)
	require.Len(t, first.Results, 2)
	assert.Equal(t, 1, first.Results[0].Rank)
	assert.Equal(t, 3, first.Results[1].Rank)

	assert.Equal(t, "99", second.PanelCode)
	assert.Equal(t, 2, second.BestRank)
	require.Len(t, second.Results, 1)

	t.Run("metadata joined where present", func(t *testing.T) {
		assert.True(t, first.MetadataFound)
		assert.Equal(t, "Quantum Futures", first.Metadata.Title)
	})

	t.Run("miss renders with empty record", func(t *testing.T) {
		assert.False(t, second.MetadataFound)
		assert.True(t, second.Metadata.IsZero())
	})
}

func TestSearchUnknownPanelFallback(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "untagged transcript", "", "session_42_transcript.txt", ""),
		chunkFixture("d2", "no filename either", "", "", ""),
	}}
	s := newTestSearcher(t, store)

	resp, err := s.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, resp.Groups, 2)
	assert.Equal(t, "42", resp.Groups[0].PanelCode, "code recovered from filename digits")
	assert.Equal(t, core.UnknownPanelCode, resp.Groups[1].PanelCode)
}

func TestSearchFilterPassthrough(t *testing.T) {
	store := &stubChunkStore{}
	s := newTestSearcher(t, store)

	req := baseRequest()
	req.ThemeFilter = "Science"
	req.PanelFilter = "11"
	req.Alpha = 0.7
	_, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Science", store.lastQuery.Theme)
	assert.Equal(t, "11", store.lastQuery.PanelCode)
	assert.Equal(t, 0.7, store.lastQuery.Alpha)
	assert.Equal(t, req.TopK, store.lastQuery.Limit)
	assert.NotEmpty(t, store.lastQuery.Vector)
}

func TestSearchRerankOversamplesCandidates(t *testing.T) {
	store := &stubChunkStore{}
	s := newTestSearcher(t, store, WithReranker(mock.NewMockReranker()))

	req := baseRequest()
	req.UseReranker = true
	_, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, rerankCandidatePool, store.lastQuery.Limit)
}

func TestSearchRerankReorders(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "first by hybrid", "11", "", ""),
		chunkFixture("d2", "second by hybrid", "22", "", ""),
		chunkFixture("d3", "third by hybrid", "33", "", ""),
	}}
	reranker := mock.NewMockReranker()
	reranker.ScorePairsFunc = func(ctx context.Context, question string, passages []string) ([]float64, error) {
		require.Len(t, passages, 3)
		return []float64{0.1, 0.9, 0.5}, nil
	}
	s := newTestSearcher(t, store, WithReranker(reranker))

	req := baseRequest()
	req.UseReranker = true
	resp, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp.Reranked)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, 3, resp.Total)

	require.Len(t, resp.Groups, 3)
	assert.Equal(t, "22", resp.Groups[0].PanelCode)
	assert.Equal(t, "33", resp.Groups[1].PanelCode)
	assert.Equal(t, "11", resp.Groups[2].PanelCode)

	top := resp.Groups[0].Results[0]
	require.NotNil(t, top.RerankScore)
	assert.Equal(t, 0.9, *top.RerankScore)
	assert.Equal(t, 1, top.Rank)
}

func TestSearchRerankTruncatesToTopK(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "a", "11", "", ""),
		chunkFixture("d2", "b", "22", "", ""),
		chunkFixture("d3", "c", "33", "", ""),
	}}
	reranker := mock.NewMockReranker()
	reranker.ScorePairsFunc = func(ctx context.Context, question string, passages []string) ([]float64, error) {
		return []float64{0.2, 0.8, 0.5}, nil
	}
	s := newTestSearcher(t, store, WithReranker(reranker))

	req := baseRequest()
	req.UseReranker = true
	req.TopK = 2
	resp, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Total, "page trims after the reorder, not before")
	assert.Equal(t, "22", resp.Groups[0].PanelCode)
	assert.Equal(t, "33", resp.Groups[1].PanelCode)
}

func TestSearchRerankDegrades(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "first by hybrid", "11", "", ""),
		chunkFixture("d2", "second by hybrid", "22", "", ""),
	}}

	t.Run("scoring failure keeps hybrid order", func(t *testing.T) {
		reranker := mock.NewMockReranker()
		reranker.ScorePairsFunc = func(ctx context.Context, question string, passages []string) ([]float64, error) {
			return nil, errors.New("rerank host down")
		}
		s := newTestSearcher(t, store, WithReranker(reranker))

		req := baseRequest()
		req.UseReranker = true
		resp, err := s.Search(context.Background(), req)
		require.NoError(t, err)

		assert.False(t, resp.Reranked)
		require.Len(t, resp.Warnings, 1)
		assert.Contains(t, resp.Warnings[0], "hybrid order")
		assert.Equal(t, "11", resp.Groups[0].PanelCode)
		assert.Nil(t, resp.Groups[0].Results[0].RerankScore)
	})

	t.Run("misaligned score count degrades", func(t *testing.T) {
		reranker := mock.NewMockReranker()
		reranker.ScorePairsFunc = func(ctx context.Context, question string, passages []string) ([]float64, error) {
			return []float64{0.5}, nil
		}
		s := newTestSearcher(t, store, WithReranker(reranker))

		req := baseRequest()
		req.UseReranker = true
		resp, err := s.Search(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.Reranked)
		assert.NotEmpty(t, resp.Warnings)
	})

	t.Run("requested without reranker configured", func(t *testing.T) {
		s := newTestSearcher(t, store)

		req := baseRequest()
		req.UseReranker = true
		resp, err := s.Search(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, resp.Reranked)
		require.Len(t, resp.Warnings, 1)
		assert.Contains(t, resp.Warnings[0], "no reranker")
	})
}

func TestSearchAudioResolution(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "with audio", "11", "panel11_transcript.txt", "01:00"),
		chunkFixture("d2", "no timestamp", "22", "panel22.txt", "N/A"),
		chunkFixture("d3", "no filename", "33", "", "00:30"),
	}}
	locator := audio.NewLocator("https://audio.example/clips")
	s := newTestSearcher(t, store, WithAudioLocator(locator))

	resp, err := s.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, resp.Groups, 3)

	withAudio := resp.Groups[0].Results[0]
	assert.True(t, withAudio.HasAudio())
	assert.Equal(t, "panel11.mp3", withAudio.AudioKey)
	assert.Equal(t, "https://audio.example/clips/panel11.mp3", withAudio.AudioURL)
	assert.Equal(t, 60, withAudio.AudioStartSeconds)
	assert.False(t, withAudio.AudioVerified, "probe disabled, URL stays unverified")

	noTimestamp := resp.Groups[1].Results[0]
	assert.True(t, noTimestamp.HasAudio())
	assert.Zero(t, noTimestamp.AudioStartSeconds)

	noFile := resp.Groups[2].Results[0]
	assert.False(t, noFile.HasAudio())
}

func TestSearchWithoutLocatorSkipsAudio(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "with audio", "11", "panel11_transcript.txt", "01:00"),
	}}
	s := newTestSearcher(t, store)

	resp, err := s.Search(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.False(t, resp.Groups[0].Results[0].HasAudio())
}

func TestSearchEndToEndOverHybridIndex(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	idx, err := index.NewHybridIndex()
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	chunks := []*core.Chunk{
		chunkFixture("d1", "quantum computing and error correction", "11", "panel11_transcript.txt", "00:10"),
		chunkFixture("d2", "vaccine development pipelines", "22", "", ""),
		chunkFixture("d3", "quantum sensing for agriculture", "22", "", ""),
	}
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vectors[i], err = embedder.EmbedText(ctx, chunk.Text)
		require.NoError(t, err)
	}
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	s, err := NewSearcher(idx, newTestJoiner(t), embedder,
		WithAudioLocator(audio.NewLocator("https://audio.example")))
	require.NoError(t, err)
	defer s.Release()

	req := core.SearchRequest{
		Question: "quantum computing",
		Alpha:    0, // lexical only, deterministic against mock vectors
		TopK:     3,
	}
	resp, err := s.Search(ctx, req)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Groups)
	assert.Equal(t, "11", resp.Groups[0].PanelCode, "both-term match ranks first")
	assert.True(t, resp.Groups[0].MetadataFound)
	assert.True(t, resp.Groups[0].Results[0].HasAudio())
	assert.LessOrEqual(t, resp.Total, req.TopK)
}

func TestContextPassages(t *testing.T) {
	store := &stubChunkStore{chunks: []*core.Chunk{
		chunkFixture("d1", "alpha passage", "11", "", "01:02:03"),
		chunkFixture("d2", "beta passage", "22", "", ""),
		chunkFixture("d3", "gamma passage", "11", "", "05:00"),
	}}
	s := newTestSearcher(t, store)

	resp, err := s.Search(context.Background(), baseRequest())
	require.NoError(t, err)

	t.Run("rank order across groups", func(t *testing.T) {
		passages := ContextPassages(resp, 0)
		require.Len(t, passages, 3)
		assert.Equal(t, "[1] Panel 11 | 01:02:03\nalpha passage", passages[0])
		assert.Equal(t, "[2] Panel 22 | N/A\nbeta passage", passages[1])
		assert.Equal(t, "[3] Panel 11 | 05:00\ngamma passage", passages[2])
	})

	t.Run("limit applies", func(t *testing.T) {
		assert.Len(t, ContextPassages(resp, 2), 2)
	})

	t.Run("nil response", func(t *testing.T) {
		assert.Nil(t, ContextPassages(nil, 5))
	})
}
