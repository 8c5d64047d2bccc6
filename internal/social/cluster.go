// Package social provides clusters: closed social units whose members can
// all infect each other.
package social

import (
	"github.com/talgya/cluster-trip/internal/agents"
)

// ClusterID is a unique identifier for a cluster.
type ClusterID = int

// Cluster is an unordered bag of persons. Member order is creation order and
// carries no meaning for transmission.
type Cluster struct {
	ID            ClusterID        `json:"id"`
	Subpopulation int              `json:"subpopulation"` // Index of the generation entry that produced it
	Members       []*agents.Person `json:"members"`
}

// Size returns the number of members.
func (c *Cluster) Size() int {
	return len(c.Members)
}

// Count returns the number of members currently in state.
func (c *Cluster) Count(state agents.State) int {
	n := 0
	for _, p := range c.Members {
		if p.State == state {
			n++
		}
	}
	return n
}

// HasKnownCase reports whether any member is in ICU or CONFIRMED.
// A member who had the disease and then went to NOCORONA_ICU does not count.
func (c *Cluster) HasKnownCase() bool {
	for _, p := range c.Members {
		if p.State.IsKnownCase() {
			return true
		}
	}
	return false
}

// Tally adds the cluster's per-state counts into counts.
func (c *Cluster) Tally(counts *[agents.NumStates]int) {
	for _, p := range c.Members {
		counts[p.State]++
	}
}
