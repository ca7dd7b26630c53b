package search

import (
	"fmt"
	"sort"

	"github.com/poiesic/panelsearch/core"
)

// defaultContextPassages bounds how much transcript text is handed to a
// downstream answer model.
const defaultContextPassages = 8

// ContextPassages flattens a response back into rank order and formats the
// top passages for prompt context, each tagged with its rank, owning panel,
// and start timestamp. A non-positive limit uses the default.
func ContextPassages(response *core.SearchResponse, limit int) []string {
	if response == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultContextPassages
	}

	results := make([]*core.RankedResult, 0, response.Total)
	for _, group := range response.Groups {
		results = append(results, group.Results...)
	}
	sort.Slice(results, func(i, k int) bool {
		return results[i].Rank < results[k].Rank
	})
	if len(results) > limit {
		results = results[:limit]
	}

	passages := make([]string, len(results))
	for i, result := range results {
		start := result.Chunk.StartTime
		if start == "" {
			start = "N/A"
		}
		passages[i] = fmt.Sprintf("[%d] Panel %s | %s\n%s",
			result.Rank, result.Chunk.EffectivePanelCode(), start, result.Chunk.Text)
	}
	return passages
}
