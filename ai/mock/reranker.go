package mock

import (
	"context"
	"strings"
)

// MockReranker is a test double for ai.Reranker.
// It allows custom behavior injection via function fields.
type MockReranker struct {
	// ScorePairsFunc is called by ScorePairs if set.
	// If nil, uses default term-overlap scoring.
	ScorePairsFunc func(ctx context.Context, question string, passages []string) ([]float64, error)

	callCount int
}

// NewMockReranker creates a mock reranker with default deterministic behavior.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// ScorePairs scores each passage by the fraction of question terms it
// contains. Deterministic and order-preserving, which is all the pipeline
// tests need.
func (m *MockReranker) ScorePairs(ctx context.Context, question string, passages []string) ([]float64, error) {
	m.callCount++

	if m.ScorePairsFunc != nil {
		return m.ScorePairsFunc(ctx, question, passages)
	}

	terms := strings.Fields(strings.ToLower(question))
	scores := make([]float64, len(passages))
	for i, passage := range passages {
		if len(terms) == 0 {
			continue
		}
		lower := strings.ToLower(passage)
		hits := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(terms))
	}
	return scores, nil
}

// ModelName identifies the mock in logs.
func (m *MockReranker) ModelName() string {
	return "mock-cross-encoder"
}

// CallCount returns the number of times ScorePairs was called.
func (m *MockReranker) CallCount() int {
	return m.callCount
}
