// Disease progression: the within-cluster state transitions run once per
// person per day.
package engine

import (
	"math"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/social"
)

// DyingProbability raises the baseline death probability p with system
// load: 1 - (1-p)·e^(-mu·load). It equals p at zero load, never falls below
// p, and grows with load.
func DyingProbability(p, mu, load float64) float64 {
	return 1 - (1-p)*math.Exp(-mu*load)
}

// InClusterProbability is the chance that at least one of infectious
// independent contacts, each transmitting with probability p, infects a
// susceptible member.
func InClusterProbability(p float64, infectious int) float64 {
	return 1 - math.Pow(1-p, float64(infectious))
}

// progressCluster advances every member of c by one day and reports whether
// anyone died for lack of an ICU slot.
//
// The infectious count is taken once, before any member moves, so the
// result does not depend on member order.
func (s *Simulation) progressCluster(c *social.Cluster, load float64) (bool, error) {
	pInCluster := InClusterProbability(s.Scalars.ProbTransmission, c.Count(agents.StateInfectious))

	overflow := false
	for _, p := range c.Members {
		params := &s.Params[p.Category]

		switch p.State {
		case agents.StateSusceptible:
			// Imported case first; the in-cluster trial is only drawn when it fails.
			if s.rng.Bool(params.ProbSToI) || s.rng.Bool(pInCluster) {
				p.Enter(agents.StateInfectious, params.DaysIToC)
			}

		case agents.StateInfectious:
			if p.Tick() {
				if s.rng.Bool(params.ProbIToIC) {
					if s.ICU.TryAcquire() {
						p.Enter(agents.StateICU, params.DaysICToImOrC)
					} else {
						p.Enter(agents.StateDead, 0)
						overflow = true
					}
				} else {
					p.Enter(agents.StateConfirmed, params.DaysCToIm)
				}
			}

		case agents.StateConfirmed:
			if p.Tick() {
				p.Enter(agents.StateImmune, 0)
				p.IsImmune = true
			}

		case agents.StateICU:
			if p.Tick() {
				if s.rng.Bool(DyingProbability(params.ProbICToD, s.Scalars.Mu, load)) {
					p.Enter(agents.StateDead, 0)
				} else {
					// Survivors leave ICU as mild cases.
					p.Enter(agents.StateConfirmed, params.DaysCToIm)
				}
				if err := s.ICU.Release(); err != nil {
					return overflow, err
				}
			}

		case agents.StateNoCoronaICU:
			if p.Tick() {
				switch {
				case s.rng.Bool(DyingProbability(params.ProbNICToD, s.Scalars.Mu, load)):
					p.Enter(agents.StateNoCoronaDead, 0)
				case p.IsImmune:
					p.Enter(agents.StateImmune, 0)
				default:
					p.Enter(agents.StateSusceptible, 0)
				}
				if err := s.ICU.Release(); err != nil {
					return overflow, err
				}
			}
		}

		// Unrelated illness can send anyone not already in ICU or dead there,
		// including a person who changed state above.
		if p.State.CanNeedUnrelatedICU() && s.rng.Bool(params.ProbToNIC) {
			if s.ICU.TryAcquire() {
				if p.State == agents.StateConfirmed || p.State == agents.StateInfectious {
					// The modeled disease is assumed to run its course during the stay.
					p.IsImmune = true
				}
				p.Enter(agents.StateNoCoronaICU, params.DaysNIC)
			} else {
				p.Enter(agents.StateNoCoronaDead, 0)
				overflow = true
			}
		}
	}

	return overflow, nil
}
