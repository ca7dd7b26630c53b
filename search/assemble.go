package search

import (
	"context"
	"sync"

	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/timecode"
)

// assemble turns the ordered candidate list into the grouped response shape:
// dense 1-based ranks, one group per owning panel ordered by best rank, panel
// metadata joined and audio references resolved in parallel.
func (s *Searcher) assemble(ctx context.Context, question string, candidates []*core.Chunk, scores []float64, reranked bool, warnings []string) *core.SearchResponse {
	results := make([]*core.RankedResult, len(candidates))
	for i, chunk := range candidates {
		result := &core.RankedResult{
			Rank:  i + 1,
			Chunk: chunk,
		}
		if scores != nil {
			score := scores[i]
			result.RerankScore = &score
		}
		results[i] = result
	}

	s.resolveAudio(ctx, results)

	// Candidates arrive in rank order, so a panel's first result carries
	// its best rank and group order falls out of first appearance.
	byCode := make(map[string]*core.PanelGroup)
	groups := make([]*core.PanelGroup, 0)
	for _, result := range results {
		code := result.Chunk.EffectivePanelCode()
		group, ok := byCode[code]
		if !ok {
			group = &core.PanelGroup{
				PanelCode: code,
				BestRank:  result.Rank,
			}
			byCode[code] = group
			groups = append(groups, group)
		}
		group.Results = append(group.Results, result)
	}

	s.joinPanels(ctx, groups)

	return &core.SearchResponse{
		Question: question,
		Groups:   groups,
		Total:    len(results),
		Reranked: reranked,
		Warnings: warnings,
	}
}

// resolveAudio fans the audio resolution out over the worker pool. Without a
// locator, or for chunks with no source filename, results render without audio.
func (s *Searcher) resolveAudio(ctx context.Context, results []*core.RankedResult) {
	if s.audio == nil {
		return
	}

	var wg sync.WaitGroup
	for _, result := range results {
		if result.Chunk.FileName == "" {
			continue
		}

		wg.Add(1)
		task := func(result *core.RankedResult) func() {
			return func() {
				defer wg.Done()
				res := s.audio.Resolve(ctx, result.Chunk.FileName)
				if !res.Available {
					return
				}
				result.AudioKey = res.Key
				result.AudioURL = res.URL
				result.AudioVerified = res.Verified
				result.AudioStartSeconds = timecode.Parse(result.Chunk.StartTime)
			}
		}(result)

		if err := s.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
}

// joinPanels fans the metadata lookups out over the worker pool, one per
// group. A lookup miss leaves the group with an empty record.
func (s *Searcher) joinPanels(ctx context.Context, groups []*core.PanelGroup) {
	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		task := func(group *core.PanelGroup) func() {
			return func() {
				defer wg.Done()
				group.Metadata = s.panels.Lookup(ctx, group.PanelCode)
				group.MetadataFound = !group.Metadata.IsZero()
			}
		}(group)

		if err := s.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
}
