// Trips: a daily cross-cluster gathering that spreads infection between
// clusters.
package engine

import (
	"math"

	"github.com/talgya/cluster-trip/internal/agents"
)

// TripProbability is the per-susceptible transmission probability on a trip
// whose members include contagious out of size persons.
func TripProbability(probTransmission, kTrip float64, contagious, size int) float64 {
	if size == 0 {
		return 0
	}
	ratio := float64(contagious) / float64(size)
	return math.Min(probTransmission*kTrip*ratio, 1)
}

// selectTrip samples the day's trip group across all clusters in cluster
// order and fills the selection counters of stats.
func (s *Simulation) selectTrip(stats *TripStats) []*agents.Person {
	var onTrip []*agents.Person
	isolate := s.cfg.Simulation.IsolateClusterOnKnownCase

	for _, c := range s.Clusters {
		knownCase := c.HasKnownCase()

		for _, p := range c.Members {
			params := &s.Params[p.Category]

			switch p.State {
			case agents.StateSusceptible, agents.StateInfectious, agents.StateImmune:
				if knownCase {
					stats.AbleWithClusterCorona++
				}
				// With isolation on, a known case at home keeps most members in.
				if knownCase && isolate && !s.rng.Bool(params.ProbCNeighbourTripCandidate) {
					continue
				}
				if s.rng.Bool(params.ProbGoesOnTrip) {
					onTrip = append(onTrip, p)
					if knownCase {
						stats.OnTripWithClusterCorona++
					}
				}

			case agents.StateConfirmed:
				// Disobeying isolation and going are drawn as one trial.
				if s.rng.Bool(params.ProbCTripCandidate * params.ProbGoesOnTrip) {
					onTrip = append(onTrip, p)
					stats.OnTripWithClusterCorona++
				}
			}
		}
	}

	stats.OnTrip = len(onTrip)
	return onTrip
}

// runTrip selects the trip group and applies one transmission trial to each
// susceptible member.
func (s *Simulation) runTrip() TripStats {
	var stats TripStats
	onTrip := s.selectTrip(&stats)

	for _, p := range onTrip {
		if p.State.IsContagious() {
			stats.Contagious++
		}
	}

	pTrip := TripProbability(s.Scalars.ProbTransmission, s.Scalars.KTrip, stats.Contagious, len(onTrip))
	for _, p := range onTrip {
		if p.State == agents.StateSusceptible && s.rng.Bool(pTrip) {
			p.Enter(agents.StateInfectious, s.Params[p.Category].DaysIToC)
			stats.Infected++
		}
	}

	return stats
}
