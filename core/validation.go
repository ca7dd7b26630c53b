package core

import "strings"

// MaxTopK bounds the number of final results a caller may request.
const MaxTopK = 30

// Validate checks the request against the input contract: non-blank
// question, alpha in [0,1], TopK in 1..MaxTopK.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrEmptyQuestion
	}
	if r.Alpha < 0 || r.Alpha > 1 {
		return ErrAlphaOutOfRange
	}
	if r.TopK < 1 || r.TopK > MaxTopK {
		return ErrTopKOutOfRange
	}
	return nil
}

// Validate checks a chunk before it is indexed. Retrieval results are
// trusted as-is; this guards the ingestion path.
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return ErrEmptyChunkText
	}
	return nil
}
