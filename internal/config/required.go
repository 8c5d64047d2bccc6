package config

import (
	"fmt"

	"github.com/talgya/cluster-trip/internal/agents"
)

// Keys without a default. on_pandemic_end, people_per_state_ratios, events
// and event labels may be left out.
var (
	requiredTopKeys           = []string{"graph_generation", "simulation"}
	requiredSubpopulationKeys = []string{"num_clusters", "num_people_per_cluster", "category_ratios"}
	requiredSimulationKeys    = []string{
		"stopping_conditions", "num_icus", KeyMu, KeyProbTransmission, KeyKTrip,
		"isolate_cluster_on_known_case", "initial_params",
	}
	requiredStoppingKeys = []string{"num_days", "on_icu_overflow"}
)

// missingKeys walks the generic form of a decoded document and returns the
// path of every required key it lacks. Shapes the typed decode already
// rejected are not re-checked.
func missingKeys(raw map[string]any) []string {
	var missing []string
	need := func(m map[string]any, prefix string, keys []string) {
		for _, k := range keys {
			if _, ok := m[k]; !ok {
				missing = append(missing, prefix+k)
			}
		}
	}

	need(raw, "", requiredTopKeys)

	if subs, ok := raw["graph_generation"].([]any); ok {
		for i, sub := range subs {
			if m, ok := sub.(map[string]any); ok {
				need(m, fmt.Sprintf("graph_generation[%d].", i), requiredSubpopulationKeys)
			}
		}
	}

	sim, ok := raw["simulation"].(map[string]any)
	if !ok {
		return missing
	}
	need(sim, "simulation.", requiredSimulationKeys)

	if stopping, ok := sim["stopping_conditions"].(map[string]any); ok {
		need(stopping, "simulation.stopping_conditions.", requiredStoppingKeys)
	}

	if params, ok := sim["initial_params"].([]any); ok {
		for i, p := range params {
			if m, ok := p.(map[string]any); ok {
				need(m, fmt.Sprintf("simulation.initial_params[%d].", i), agents.ParamKeys())
			}
		}
	}
	return missing
}
