package match

import (
	"github.com/poiesic/pinmatch/core"
	"github.com/poiesic/pinmatch/index"
	"github.com/poiesic/pinmatch/ranking"
)

// MatchMonitor provides hooks to observe the matching process.
// Implement this interface to track intermediate steps and results of a query.
//
// Implementations must be safe for concurrent use: EnrichmentFailed is called
// from the enrichment goroutines of a single query at the same time. The other
// hooks run on the calling goroutine, in order, before and after enrichment.
type MatchMonitor interface {
	Start(query, cleaned, pincode string)
	AfterRetrieval(hits []index.Hit)
	AfterRanking(candidates []ranking.Candidate)
	EnrichmentFailed(record *core.Record, err error)
	Finish(response *core.MatchResponse)
}

// noopMonitor is a no-op implementation of MatchMonitor
type noopMonitor struct{}

var _ MatchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _, _ string)                     {}
func (n *noopMonitor) AfterRetrieval(_ []index.Hit)             {}
func (n *noopMonitor) AfterRanking(_ []ranking.Candidate)       {}
func (n *noopMonitor) EnrichmentFailed(_ *core.Record, _ error) {}
func (n *noopMonitor) Finish(_ *core.MatchResponse)             {}
