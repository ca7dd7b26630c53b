package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/poiesic/panelsearch/core"
)

// HybridQuery describes one combined vector+lexical retrieval against the
// chunk store. Theme and PanelCode filters are conjunctive: when both are
// set the effective predicate is theme AND panel.
type HybridQuery struct {
	// Question is the lexical half of the query.
	Question string

	// Vector is the embedded question for the dense half.
	Vector []float32

	// Alpha interpolates the two score channels: 1 is pure vector,
	// 0 is pure lexical.
	Alpha float64

	// Limit caps the candidate pool.
	Limit int

	Theme     string // optional exact-match panel theme
	PanelCode string // optional exact-match panel code
}

// ChunkStore is the primary retrieval surface over transcript chunks.
// Implementations must be safe for concurrent use.
type ChunkStore interface {
	// HybridSearch runs the combined vector+lexical query and returns
	// candidates ordered by descending relevance, with RelevanceScore set.
	// A query matching nothing returns an empty slice, not an error.
	HybridSearch(ctx context.Context, query HybridQuery) ([]*core.Chunk, error)
}

// PanelRecord is the raw shape of one record in the panel metadata
// collection. The stored Code type is inconsistent across records (string in
// some, integer in others) and several fields arrive list-typed; collapsing
// those into core.PanelMetadata is the joiner's job, not the store's.
type PanelRecord struct {
	Code             any
	Title            string
	Theme            string
	PhotoURL         []string
	SpeakerPhotoURL  []string
	OrganizedBy      string
	PanelOrganizedBy string
	Speakers         []string
	PanelDate        string
	Abstract         string
	PanelURL         string
	ExternalURL      string
}

// CodeString renders the stored code in its canonical string form,
// regardless of the stored type. Returns "" for an absent code.
func (r PanelRecord) CodeString() string {
	switch v := r.Code.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}

// PanelStore is the secondary metadata collection keyed by panel code.
// The dual-typed fetch surface mirrors the inconsistent stored code type.
type PanelStore interface {
	// FetchByCode fetches the first panel whose stored code equals the
	// string form. Returns ErrNotFound when no record matches.
	FetchByCode(ctx context.Context, code string) (PanelRecord, error)

	// FetchByCodeInt fetches the first panel whose stored code equals the
	// integer form. Returns ErrNotFound when no record matches.
	FetchByCodeInt(ctx context.Context, code int) (PanelRecord, error)

	// Scan enumerates up to limit panel records in stored order.
	Scan(ctx context.Context, limit int) ([]PanelRecord, error)

	// ScanByTheme enumerates up to limit panel records with an exact
	// theme match.
	ScanByTheme(ctx context.Context, theme string, limit int) ([]PanelRecord, error)

	// Close releases the underlying store.
	Close() error
}

// PanelWriter is the ingestion surface for the panel metadata collection.
type PanelWriter interface {
	// SavePanel persists one panel record, overwriting any record with the
	// same canonical code.
	SavePanel(ctx context.Context, record PanelRecord) error
}

// ChunkWriter is the ingestion surface for persisting transcript chunks
// alongside their embedding vectors.
type ChunkWriter interface {
	// SaveChunks persists chunks with their vectors, overwriting records
	// with the same chunk identity.
	SaveChunks(ctx context.Context, chunks []*core.Chunk, vectors [][]float32) error

	// IterateChunks calls fn for every persisted chunk until fn returns
	// false or the corpus is exhausted.
	IterateChunks(ctx context.Context, fn func(chunk *core.Chunk, vector []float32) bool) error
}
