package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/cluster-trip/internal/agents"
)

func validConfig() *Config {
	return &Config{
		GraphGeneration: []Subpopulation{{NumClusters: 2, NumPeoplePerCluster: 3, CategoryRatios: []int{1, 1}}},
		Simulation: Simulation{
			StoppingConditions: StoppingConditions{NumDays: 10},
			NumICUs:            1,
			Mu:                 1,
			ProbTransmission:   0.3,
			KTrip:              1,
			InitialParams: []agents.CategoryParams{
				{DaysIToC: 1, DaysCToIm: 1, DaysICToImOrC: 1, DaysNIC: 1},
				{DaysIToC: 2, DaysCToIm: 2, DaysICToImOrC: 2, DaysNIC: 2},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(validConfig()))
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	tests := map[string]func(*Config){
		"no categories":          func(c *Config) { c.Simulation.InitialParams = nil },
		"bad category record":    func(c *Config) { c.Simulation.InitialParams[1].ProbSToI = 2 },
		"no generation":          func(c *Config) { c.GraphGeneration = nil },
		"ratio count":            func(c *Config) { c.GraphGeneration[0].CategoryRatios = []int{1} },
		"negative ratio":         func(c *Config) { c.GraphGeneration[0].CategoryRatios = []int{-1, 2} },
		"zero ratios":            func(c *Config) { c.GraphGeneration[0].CategoryRatios = []int{0, 0} },
		"state ratio count":      func(c *Config) { c.GraphGeneration[0].PeoplePerStateRatios = []int{1, 0} },
		"empty population":       func(c *Config) { c.GraphGeneration[0].NumClusters = 0 },
		"negative clusters":      func(c *Config) { c.GraphGeneration[0].NumClusters = -1 },
		"negative days":          func(c *Config) { c.Simulation.StoppingConditions.NumDays = -1 },
		"negative icus":          func(c *Config) { c.Simulation.NumICUs = -2 },
		"negative mu":            func(c *Config) { c.Simulation.Mu = -0.1 },
		"transmission above one": func(c *Config) { c.Simulation.ProbTransmission = 1.1 },
		"negative k_trip":        func(c *Config) { c.Simulation.KTrip = -1 },
		"negative event day": func(c *Config) {
			c.Simulation.Events = []Event{{Day: -1, UpdateSimulation: map[string]float64{KeyMu: 1}}}
		},
		"empty event": func(c *Config) {
			c.Simulation.Events = []Event{{Day: 1}}
		},
		"unknown event key": func(c *Config) {
			c.Simulation.Events = []Event{{Day: 1, UpdateParams: map[string][]float64{"prob_teleport": {1, 1}}}}
		},
		"unknown scalar key": func(c *Config) {
			c.Simulation.Events = []Event{{Day: 1, UpdateSimulation: map[string]float64{"gravity": 1}}}
		},
		"event vector length": func(c *Config) {
			c.Simulation.Events = []Event{{Day: 1, UpdateParams: map[string][]float64{"prob_s_to_i": {0.1}}}}
		},
		"event value out of range": func(c *Config) {
			c.Simulation.Events = []Event{{Day: 1, UpdateParams: map[string][]float64{"days_nic": {1, 0}}}}
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			mutate(cfg)
			require.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}

func TestValidateAllowsEventsPastHorizon(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Simulation.Events = []Event{{Day: 500, UpdateSimulation: map[string]float64{KeyMu: 2}}}
	require.NoError(t, Validate(cfg))
}
