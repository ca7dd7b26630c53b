package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/panelsearch/ai"
	"github.com/poiesic/panelsearch/audio"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/panelmeta"
	"github.com/poiesic/panelsearch/storage"
)

// rerankCandidatePool is how many hybrid candidates are pulled when the
// cross-encoder runs, so it reorders a pool wider than the requested page.
const rerankCandidatePool = 50

// Searcher runs the retrieval, rerank, join, and assembly stages over the
// transcript corpus. Enrichment stages share a worker pool.
type Searcher struct {
	chunks   storage.ChunkStore
	panels   *panelmeta.Joiner
	embedder ai.Embedder
	reranker ai.Reranker
	audio    *audio.Locator
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithReranker sets the cross-encoder used when a request asks for
// reranking. Without one, UseReranker degrades to hybrid order.
func WithReranker(reranker ai.Reranker) Option {
	return func(s *Searcher) error {
		s.reranker = reranker
		return nil
	}
}

// WithAudioLocator sets the locator used to resolve audio references.
// Without one, results render without audio.
func WithAudioLocator(locator *audio.Locator) Option {
	return func(s *Searcher) error {
		s.audio = locator
		return nil
	}
}

// WithPoolSize sets the worker pool size for the join and audio fan-out.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// NewSearcher creates a new searcher over the chunk store and panel joiner.
func NewSearcher(
	chunks storage.ChunkStore,
	panels *panelmeta.Joiner,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if panels == nil {
		return nil, ErrJoinerRequired
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

	s := &Searcher{
		chunks:   chunks,
		panels:   panels,
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}

// Release releases the worker pool.
// The searcher should not be used after calling Release.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Search runs the full pipeline for one request.
// Only a primary retrieval failure returns an error; rerank, join, and audio
// problems degrade to a partial response with warnings.
func (s *Searcher) Search(ctx context.Context, req core.SearchRequest) (*core.SearchResponse, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs the full pipeline with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req core.SearchRequest, monitor SearchMonitor) (*core.SearchResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	monitor.Start(req.Question)

	// Per-query correlation ID ties the stage logs of one search together.
	logger := s.logger.With("queryID", uuid.NewString())
	logger.Debug("search started", "topK", req.TopK, "alpha", req.Alpha, "rerank", req.UseReranker)

	rerankWanted := req.UseReranker && s.reranker != nil
	var warnings []string
	if req.UseReranker && s.reranker == nil {
		warnings = append(warnings, "reranking requested but no reranker is configured; results use hybrid order")
	}

	// 1. Embed the question for the dense half of the query.
	vector, err := s.embedder.EmbedText(ctx, req.Question)
	if err != nil {
		logger.Error("error embedding question", "err", err)
		kind := core.ErrConnection
		if errors.Is(err, core.ErrTimeout) {
			kind = core.ErrTimeout
		}
		return nil, fmt.Errorf("%w: embedding question: %v", kind, err)
	}
	monitor.AfterEmbedding(len(vector))

	// 2. Hybrid retrieval, oversampled when the cross-encoder will run.
	limit := req.TopK
	if rerankWanted && limit < rerankCandidatePool {
		limit = rerankCandidatePool
	}
	candidates, err := s.chunks.HybridSearch(ctx, storage.HybridQuery{
		Question:  req.Question,
		Vector:    vector,
		Alpha:     req.Alpha,
		Limit:     limit,
		Theme:     req.ThemeFilter,
		PanelCode: req.PanelFilter,
	})
	if err != nil {
		logger.Error("error querying chunk store", "err", err)
		return nil, err
	}
	monitor.AfterRetrieval(candidates)

	if len(candidates) == 0 {
		response := &core.SearchResponse{
			Question: req.Question,
			Groups:   []*core.PanelGroup{},
			Warnings: warnings,
		}
		monitor.Finish(response)
		return response, nil
	}

	// 3. Cross-encoder rerank of the candidate pool. Failure keeps the
	// hybrid order and surfaces a warning instead of aborting.
	var scores []float64
	reranked := false
	if rerankWanted {
		scores, err = s.rerank(ctx, req.Question, candidates)
		if err != nil {
			logger.Warn("reranking degraded", "model", s.reranker.ModelName(), "err", err)
			monitor.RerankDegraded(err)
			warnings = append(warnings, fmt.Sprintf("reranking unavailable (%s); results use hybrid order", s.reranker.ModelName()))
			scores = nil
		} else {
			reranked = true
			monitor.AfterRerank(scores)
		}
	}
	candidates, scores = orderCandidates(candidates, scores, req.TopK)

	// 4. Join, audio resolution, and grouping.
	response := s.assemble(ctx, req.Question, candidates, scores, reranked, warnings)
	monitor.AfterAssembly(response.Groups)
	monitor.Finish(response)

	return response, nil
}

// rerank scores the candidate texts against the question.
// The returned scores align with the candidate order.
func (s *Searcher) rerank(ctx context.Context, question string, candidates []*core.Chunk) ([]float64, error) {
	passages := make([]string, len(candidates))
	for i, chunk := range candidates {
		passages[i] = chunk.Text
	}

	scores, err := s.reranker.ScorePairs(ctx, question, passages)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("reranker returned %d scores for %d passages", len(scores), len(candidates))
	}
	return scores, nil
}

// orderCandidates sorts candidates by rerank score when scores are present,
// keeps hybrid order otherwise, and truncates to the requested page size.
// Every input candidate keeps its score through the reorder.
func orderCandidates(candidates []*core.Chunk, scores []float64, topK int) ([]*core.Chunk, []float64) {
	if scores != nil {
		indices := make([]int, len(candidates))
		for i := range indices {
			indices[i] = i
		}
		sort.SliceStable(indices, func(i, k int) bool {
			return scores[indices[i]] > scores[indices[k]]
		})

		ordered := make([]*core.Chunk, len(candidates))
		orderedScores := make([]float64, len(scores))
		for pos, idx := range indices {
			ordered[pos] = candidates[idx]
			orderedScores[pos] = scores[idx]
		}
		candidates, scores = ordered, orderedScores
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
		if scores != nil {
			scores = scores[:topK]
		}
	}
	return candidates, scores
}
