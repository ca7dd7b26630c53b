package core

import (
	"encoding/binary"
	"regexp"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks and panel records.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// UnknownPanelCode is assigned to chunks whose panel cannot be determined
// from either the stored panel code or the transcript filename.
const UnknownPanelCode = "Unknown"

var digitRun = regexp.MustCompile(`\d+`)

// PanelCodeFromFileName recovers a panel code from a transcript filename by
// extracting the first run of digits. Returns "" when the name has none.
func PanelCodeFromFileName(name string) string {
	return digitRun.FindString(name)
}

// Chunk is a timestamped slice of transcript text, the atomic retrievable unit.
// Chunks are constructed fresh per query from retrieval results and are
// immutable after creation; rerank scores are carried alongside, not mutated in.
type Chunk struct {
	DocID     string
	ChunkID   string
	Text      string
	FileName  string   // source transcript filename, may be empty
	StartTime string   // raw display string, e.g. "01:02:03", "12:34", or "N/A"
	Speakers  []string // ordered speaker names, may be empty

	PanelCode  string // may be empty; see EffectivePanelCode
	PanelTheme string

	// RelevanceScore is the hybrid retrieval score for the query that
	// produced this chunk.
	RelevanceScore float64
}

// ID returns the deterministic storage identity for the chunk.
func (c *Chunk) ID() ID {
	return IDFromContent(c.DocID + "/" + c.ChunkID)
}

// EffectivePanelCode returns the chunk's panel code, falling back to the
// first digit run in the filename, then to UnknownPanelCode.
func (c *Chunk) EffectivePanelCode() string {
	if c.PanelCode != "" {
		return c.PanelCode
	}
	if code := PanelCodeFromFileName(c.FileName); code != "" {
		return code
	}
	return UnknownPanelCode
}

// PanelMetadata is the descriptive record for one panel, joined from the
// panel metadata store. Absent fields are empty strings, never nils that
// break later formatting.
type PanelMetadata struct {
	PanelCode          string
	Title              string
	Theme              string
	PhotoURL           string
	SpeakerPhotoURL    string
	OrganizedBy        string
	Speakers           []string
	PanelDate          string
	Abstract           string
	PanelURL           string
	ExternalDetailsURL string
}

// IsZero reports whether the metadata record is empty (lookup miss).
func (m PanelMetadata) IsZero() bool {
	return m.PanelCode == "" && m.Title == "" && m.Theme == ""
}

// SearchRequest is the input contract for one pipeline invocation.
// It is owned by the caller and read-only to the pipeline.
type SearchRequest struct {
	Question    string
	ThemeFilter string // optional exact-match theme
	PanelFilter string // optional exact-match panel code
	Alpha       float64
	TopK        int
	UseReranker bool
}

// RankedResult is one chunk in the final output, with its dense 1-based rank
// and the audio reference resolved from the transcript filename.
type RankedResult struct {
	Rank  int
	Chunk *Chunk

	// RerankScore is set only when the cross-encoder ran for this request.
	RerankScore *float64

	AudioURL          string
	AudioKey          string
	AudioStartSeconds int
	// AudioVerified is true when the reachability probe confirmed the URL.
	// An unprobed or probe-failed URL is still returned, just unverified.
	AudioVerified bool
}

// HasAudio reports whether the result carries a playable audio reference.
func (r *RankedResult) HasAudio() bool {
	return r.AudioURL != ""
}

// PanelGroup holds the ranked results owned by one panel, together with the
// joined panel metadata. Groups are ordered by BestRank in a response.
type PanelGroup struct {
	PanelCode string
	BestRank  int
	Metadata  PanelMetadata
	// MetadataFound is false on a per-panel lookup miss; the group still
	// renders with an empty record.
	MetadataFound bool
	Results       []*RankedResult
}

// SearchResponse is the ordered, enriched result structure returned to the
// caller. Zero matches yields an empty (non-nil) Groups slice, not an error.
type SearchResponse struct {
	Question string
	Groups   []*PanelGroup
	Total    int
	// Reranked is true when the cross-encoder actually reordered this
	// result set. False with a warning when reranking was requested but
	// degraded.
	Reranked bool
	Warnings []string
}
