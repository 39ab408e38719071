package search

import "github.com/poiesic/documind/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	CacheHit(key string, results int)
	AfterEmbedding(provider core.ProviderKind, dim int)
	AfterVectorSearch(candidates int)
	Finish(response *Response)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) CacheHit(_ string, _ int)                    {}
func (n *noopMonitor) AfterEmbedding(_ core.ProviderKind, _ int)   {}
func (n *noopMonitor) AfterVectorSearch(_ int)                     {}
func (n *noopMonitor) Finish(_ *Response)                          {}
