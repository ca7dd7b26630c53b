package index

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
)

// lexicalOversample widens the bleve request beyond the caller's limit so
// that fusion still has lexical candidates after filtering.
const lexicalOversample = 3

// indexedDoc is the shape handed to bleve for lexical indexing.
type indexedDoc struct {
	Text string `json:"text"`
}

// HybridIndex is an in-process chunk store combining a bleve index for the
// lexical channel with an in-memory vector table for the dense channel.
// Scores from the two channels are max-normalized and interpolated with the
// query's alpha. Safe for concurrent use.
type HybridIndex struct {
	mu      sync.RWMutex
	lexical bleve.Index
	chunks  map[uint64]*core.Chunk
	vectors map[uint64][]float32
	logger  *slog.Logger
}

// Option configures a HybridIndex.
type Option func(*HybridIndex)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *HybridIndex) {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
	}
}

// NewHybridIndex creates an empty in-memory hybrid index.
func NewHybridIndex(opts ...Option) (*HybridIndex, error) {
	lexical, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	h := &HybridIndex{
		lexical: lexical,
		chunks:  make(map[uint64]*core.Chunk),
		vectors: make(map[uint64][]float32),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

var _ storage.ChunkStore = (*HybridIndex)(nil)

// Add indexes chunks with their embedding vectors. Chunks failing validation
// are rejected; re-adding a chunk with the same identity replaces it.
func (h *HybridIndex) Add(ctx context.Context, chunks []*core.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return storage.ErrVectorCountMismatch
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := chunk.Validate(); err != nil {
			return err
		}
		id := uint64(chunk.ID())
		if err := h.lexical.Index(strconv.FormatUint(id, 10), indexedDoc{Text: chunk.Text}); err != nil {
			return err
		}
		h.chunks[id] = chunk
		h.vectors[id] = vectors[i]
	}
	return nil
}

// Load populates the index from a persisted corpus.
// Returns the number of chunks loaded.
func (h *HybridIndex) Load(ctx context.Context, src storage.ChunkWriter) (int, error) {
	loaded := 0
	var addErr error
	err := src.IterateChunks(ctx, func(chunk *core.Chunk, vector []float32) bool {
		if addErr = h.Add(ctx, []*core.Chunk{chunk}, [][]float32{vector}); addErr != nil {
			return false
		}
		loaded++
		return true
	})
	if addErr != nil {
		return loaded, addErr
	}
	if err != nil {
		return loaded, err
	}
	h.logger.Debug("corpus loaded into hybrid index", "chunks", loaded)
	return loaded, nil
}

// Len returns the number of indexed chunks.
func (h *HybridIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chunks)
}

// Close releases the lexical index.
func (h *HybridIndex) Close() error {
	return h.lexical.Close()
}

// matches reports whether a chunk passes the query's conjunctive filters.
func matches(chunk *core.Chunk, query storage.HybridQuery) bool {
	if query.Theme != "" && chunk.PanelTheme != query.Theme {
		return false
	}
	if query.PanelCode != "" && chunk.PanelCode != query.PanelCode {
		return false
	}
	return true
}

// HybridSearch runs the combined query. Candidates are the union of the two
// channels' hits; each channel's scores are normalized by the channel
// maximum before interpolation, so alpha=1 is pure vector and alpha=0 pure
// lexical.
func (h *HybridIndex) HybridSearch(ctx context.Context, query storage.HybridQuery) ([]*core.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	lexScores, err := h.lexicalScores(query, limit)
	if err != nil {
		return nil, err
	}
	vecScores := h.vectorScores(query, limit)

	candidates := make(map[uint64]bool, len(lexScores)+len(vecScores))
	for id := range lexScores {
		candidates[id] = true
	}
	for id := range vecScores {
		candidates[id] = true
	}

	type scored struct {
		id    uint64
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for id := range candidates {
		combined := query.Alpha*vecScores[id] + (1-query.Alpha)*lexScores[id]
		ranked = append(ranked, scored{id: id, score: combined})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	// Chunks are owned by the invocation, so hand out copies with the
	// relevance score set rather than mutating indexed state.
	out := make([]*core.Chunk, 0, len(ranked))
	for _, sc := range ranked {
		chunk := *h.chunks[sc.id]
		chunk.RelevanceScore = sc.score
		out = append(out, &chunk)
	}
	return out, nil
}

// lexicalScores runs the bleve match query and returns max-normalized
// scores for chunks passing the filters.
func (h *HybridIndex) lexicalScores(query storage.HybridQuery, limit int) (map[uint64]float64, error) {
	size := limit * lexicalOversample
	if query.Theme != "" || query.PanelCode != "" {
		// Filters apply to the hits after scoring, so a selective filter
		// can starve the channel below the limit at the fixed oversample.
		// Score the whole corpus instead; it is already resident.
		size = len(h.chunks)
	}
	if size == 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(query.Question)
	req := bleve.NewSearchRequestOptions(match, size, 0, false)
	res, err := h.lexical.Search(req)
	if err != nil {
		return nil, err
	}

	scores := make(map[uint64]float64)
	maxScore := 0.0
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		chunk, ok := h.chunks[id]
		if !ok || !matches(chunk, query) {
			continue
		}
		scores[id] = hit.Score
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	if maxScore > 0 {
		for id := range scores {
			scores[id] /= maxScore
		}
	}
	return scores, nil
}

// vectorScores computes cosine similarity against every eligible chunk and
// keeps the top window, max-normalized.
func (h *HybridIndex) vectorScores(query storage.HybridQuery, limit int) map[uint64]float64 {
	if len(query.Vector) == 0 {
		return nil
	}

	type scored struct {
		id    uint64
		score float64
	}
	var all []scored
	for id, vec := range h.vectors {
		chunk, ok := h.chunks[id]
		if !ok || !matches(chunk, query) {
			continue
		}
		all = append(all, scored{id: id, score: cosine(query.Vector, vec)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})
	if len(all) > limit*lexicalOversample {
		all = all[:limit*lexicalOversample]
	}

	scores := make(map[uint64]float64, len(all))
	maxScore := 0.0
	for _, sc := range all {
		scores[sc.id] = sc.score
		if sc.score > maxScore {
			maxScore = sc.score
		}
	}
	if maxScore > 0 {
		for id := range scores {
			scores[id] /= maxScore
		}
	}
	return scores
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
