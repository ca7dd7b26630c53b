package search

import "github.com/poiesic/panelsearch/core"

// SearchMonitor provides hooks to observe the search pipeline.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(question string)
	AfterEmbedding(dimensions int)
	AfterRetrieval(chunks []*core.Chunk)
	AfterRerank(scores []float64)
	RerankDegraded(err error)
	AfterAssembly(groups []*core.PanelGroup)
	Finish(response *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                     {}
func (n *noopMonitor) AfterEmbedding(_ int)               {}
func (n *noopMonitor) AfterRetrieval(_ []*core.Chunk)     {}
func (n *noopMonitor) AfterRerank(_ []float64)            {}
func (n *noopMonitor) RerankDegraded(_ error)             {}
func (n *noopMonitor) AfterAssembly(_ []*core.PanelGroup) {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)      {}
