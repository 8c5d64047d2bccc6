package config

import (
	"errors"
	"fmt"

	"github.com/talgya/cluster-trip/internal/agents"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks cfg for inconsistencies. Nothing is coerced: the first
// problem found is returned.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	sim := &cfg.Simulation
	numCategories := len(sim.InitialParams)
	if numCategories == 0 {
		return invalid("initial_params must define at least one category")
	}
	for i := range sim.InitialParams {
		if err := sim.InitialParams[i].Validate(); err != nil {
			return fmt.Errorf("%w: initial_params[%d]: %w", ErrInvalidConfig, i, err)
		}
	}

	if len(cfg.GraphGeneration) == 0 {
		return invalid("graph_generation must have at least one entry")
	}
	for i, sp := range cfg.GraphGeneration {
		if err := validateSubpopulation(sp, numCategories); err != nil {
			return fmt.Errorf("graph_generation[%d]: %w", i, err)
		}
	}
	if cfg.NumPersons() == 0 {
		return invalid("graph_generation produces an empty population")
	}

	if sim.StoppingConditions.NumDays < 0 {
		return invalid("stopping_conditions.num_days must not be negative")
	}
	if sim.NumICUs < 0 {
		return invalid("num_icus must not be negative")
	}
	if err := sim.RunParams().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for i, ev := range sim.Events {
		if err := validateEvent(ev, sim); err != nil {
			return fmt.Errorf("%w: events[%d] (day %d): %w", ErrInvalidConfig, i, ev.Day, err)
		}
	}

	return nil
}

func validateSubpopulation(sp Subpopulation, numCategories int) error {
	if sp.NumClusters < 0 || sp.NumPeoplePerCluster < 0 {
		return invalid("num_clusters and num_people_per_cluster must not be negative")
	}
	if len(sp.CategoryRatios) != numCategories {
		return invalid("category_ratios has %d entries, want %d (one per category)", len(sp.CategoryRatios), numCategories)
	}
	if err := checkRatios(sp.CategoryRatios); err != nil {
		return invalid("category_ratios: %v", err)
	}
	if len(sp.PeoplePerStateRatios) == 0 {
		return nil
	}
	if len(sp.PeoplePerStateRatios) != agents.NumStates {
		return invalid("people_per_state_ratios has %d entries, want %d", len(sp.PeoplePerStateRatios), agents.NumStates)
	}
	if err := checkRatios(sp.PeoplePerStateRatios); err != nil {
		return invalid("people_per_state_ratios: %v", err)
	}
	return nil
}

func checkRatios(ratios []int) error {
	total := 0
	for _, r := range ratios {
		if r < 0 {
			return errors.New("weights must not be negative")
		}
		total += r
	}
	if total == 0 {
		return errors.New("weights must not all be zero")
	}
	return nil
}

func validateEvent(ev Event, sim *Simulation) error {
	if ev.Day < 0 {
		return errors.New("day must not be negative")
	}
	if len(ev.UpdateParams) == 0 && len(ev.UpdateSimulation) == 0 {
		return errors.New("event updates nothing")
	}
	if _, err := agents.ApplyUpdate(sim.InitialParams, ev.UpdateParams); err != nil {
		return err
	}
	rp := sim.RunParams()
	return rp.Apply(ev.UpdateSimulation)
}
