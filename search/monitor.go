package search

import (
	"github.com/poiesic/larder/vectorindex"
)

// SearchMonitor provides hooks to observe the query pipeline.
// Implement this interface to trace intermediate results during retrieval.
type SearchMonitor interface {
	Start(query string, params Params)
	AfterQueryEmbedding(vector []float32)
	AfterVectorSearch(hits []vectorindex.Hit)
	AfterDeduplication(candidates []*Ranked)
	AfterRerank(ranked []*Ranked)
	Finish(results []*Ranked)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Params)              {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)       {}
func (n *noopMonitor) AfterVectorSearch(_ []vectorindex.Hit) {}
func (n *noopMonitor) AfterDeduplication(_ []*Ranked)        {}
func (n *noopMonitor) AfterRerank(_ []*Ranked)               {}
func (n *noopMonitor) Finish(_ []*Ranked)                    {}
