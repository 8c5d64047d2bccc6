// Population generation: clusters per sub-population, persons by ratio
// weights, and initial timers for persons that start mid-disease.
package engine

import (
	"fmt"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/social"
)

// buildPopulation creates every cluster in generation order. Person IDs are
// dense and follow creation order across sub-populations.
func (s *Simulation) buildPopulation(gen []config.Subpopulation) {
	spawner := agents.NewSpawner(s.rng)
	for sub, sp := range gen {
		for i := 0; i < sp.NumClusters; i++ {
			s.Clusters = append(s.Clusters, &social.Cluster{
				ID:            len(s.Clusters),
				Subpopulation: sub,
				Members:       spawner.SpawnCluster(sp.NumPeoplePerCluster, sp.CategoryRatios, sp.PeoplePerStateRatios),
			})
		}
	}
	s.populationSize = int(spawner.NextID())
}

// initialTimer returns the countdown for a person generated directly into
// state, or zero for untimed states.
func initialTimer(state agents.State, params *agents.CategoryParams) int {
	switch state {
	case agents.StateInfectious:
		return params.DaysIToC
	case agents.StateConfirmed:
		return params.DaysCToIm
	case agents.StateICU:
		return params.DaysICToImOrC
	case agents.StateNoCoronaICU:
		return params.DaysNIC
	default:
		return 0
	}
}

// seedInitialStates starts the countdown of every person generated into a
// timed state and books ICU slots for those generated into an ICU state.
func (s *Simulation) seedInitialStates() error {
	for _, c := range s.Clusters {
		for _, p := range c.Members {
			p.DaysUntilNextState = initialTimer(p.State, &s.Params[p.Category])
			if !p.State.OccupiesICU() {
				continue
			}
			if !s.ICU.TryAcquire() {
				return fmt.Errorf("%w: initial population needs more than num_icus=%d ICU slots",
					config.ErrInvalidConfig, s.ICU.Capacity())
			}
		}
	}
	return nil
}
