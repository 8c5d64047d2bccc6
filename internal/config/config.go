package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/talgya/cluster-trip/internal/agents"
)

// Config is the full simulation document.
type Config struct {
	GraphGeneration []Subpopulation `json:"graph_generation" yaml:"graph_generation" toml:"graph_generation"`
	Simulation      Simulation      `json:"simulation" yaml:"simulation" toml:"simulation"`
}

// Subpopulation describes one block of identically sized clusters.
type Subpopulation struct {
	NumClusters         int   `json:"num_clusters" yaml:"num_clusters" toml:"num_clusters"`
	NumPeoplePerCluster int   `json:"num_people_per_cluster" yaml:"num_people_per_cluster" toml:"num_people_per_cluster"`
	CategoryRatios      []int `json:"category_ratios" yaml:"category_ratios" toml:"category_ratios"`
	// PeoplePerStateRatios weights the initial state; empty means everyone
	// starts SUSCEPTIBLE.
	PeoplePerStateRatios []int `json:"people_per_state_ratios,omitempty" yaml:"people_per_state_ratios,omitempty" toml:"people_per_state_ratios,omitempty"`
}

// StoppingConditions controls when the day loop ends.
type StoppingConditions struct {
	NumDays       int  `json:"num_days" yaml:"num_days" toml:"num_days"`
	OnICUOverflow bool `json:"on_icu_overflow" yaml:"on_icu_overflow" toml:"on_icu_overflow"`
	OnPandemicEnd bool `json:"on_pandemic_end" yaml:"on_pandemic_end" toml:"on_pandemic_end"`
}

// Simulation holds the run parameters.
type Simulation struct {
	StoppingConditions        StoppingConditions      `json:"stopping_conditions" yaml:"stopping_conditions" toml:"stopping_conditions"`
	NumICUs                   int                     `json:"num_icus" yaml:"num_icus" toml:"num_icus"`
	Mu                        float64                 `json:"mu" yaml:"mu" toml:"mu"`
	ProbTransmission          float64                 `json:"prob_transmission" yaml:"prob_transmission" toml:"prob_transmission"`
	KTrip                     float64                 `json:"k_trip" yaml:"k_trip" toml:"k_trip"`
	IsolateClusterOnKnownCase bool                    `json:"isolate_cluster_on_known_case" yaml:"isolate_cluster_on_known_case" toml:"isolate_cluster_on_known_case"`
	InitialParams             []agents.CategoryParams `json:"initial_params" yaml:"initial_params" toml:"initial_params"`
	Events                    []Event                 `json:"events" yaml:"events" toml:"events"`
}

// Event replaces parameters at the start of Day.
type Event struct {
	Day int `json:"day" yaml:"day" toml:"day"`
	// Label names the event on plots.
	Label string `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty"`
	// UpdateParams maps a category parameter key to one value per category.
	UpdateParams map[string][]float64 `json:"update_params,omitempty" yaml:"update_params,omitempty" toml:"update_params,omitempty"`
	// UpdateSimulation maps a scalar run parameter key to its new value.
	UpdateSimulation map[string]float64 `json:"update_simulation,omitempty" yaml:"update_simulation,omitempty" toml:"update_simulation,omitempty"`
}

const (
	// DefaultConfigFilename is used when no path is given.
	DefaultConfigFilename = "cluster-trip.yaml"

	// DefaultFilePermissions is the permission for written documents.
	DefaultFilePermissions = 0o600
)

var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
)

// Load reads a document from path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(contents, formatFor(path))
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml" // Also accepts JSON
	FormatTOML Format = "toml"
)

func formatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes contents strictly: unknown keys and missing required keys
// are errors wrapping ErrInvalidConfig. Values are not validated.
func Parse(contents []byte, format Format) (*Config, error) {
	var (
		cfg Config
		raw map[string]any
	)
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(contents)).DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: unmarshal toml config: %w", ErrInvalidConfig, err)
		}
		if err := toml.Unmarshal(contents, &raw); err != nil {
			return nil, fmt.Errorf("%w: unmarshal toml config: %w", ErrInvalidConfig, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(contents))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, invalid("empty document")
			}
			return nil, fmt.Errorf("%w: unmarshal config: %w", ErrInvalidConfig, err)
		}
		if err := yaml.Unmarshal(contents, &raw); err != nil {
			return nil, fmt.Errorf("%w: unmarshal config: %w", ErrInvalidConfig, err)
		}
	}

	if missing := missingKeys(raw); len(missing) > 0 {
		return nil, invalid("missing required keys: %s", strings.Join(missing, ", "))
	}
	return &cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if formatFor(path) == FormatTOML {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// NumCategories returns the number of category parameter records.
func (c *Config) NumCategories() int {
	return len(c.Simulation.InitialParams)
}

// NumPersons returns the population size the generation entries produce.
func (c *Config) NumPersons() int {
	total := 0
	for _, sp := range c.GraphGeneration {
		total += sp.NumClusters * sp.NumPeoplePerCluster
	}
	return total
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := &Config{
		GraphGeneration: make([]Subpopulation, len(c.GraphGeneration)),
		Simulation:      c.Simulation,
	}
	for i, sp := range c.GraphGeneration {
		sp.CategoryRatios = append([]int(nil), sp.CategoryRatios...)
		if sp.PeoplePerStateRatios != nil {
			sp.PeoplePerStateRatios = append([]int(nil), sp.PeoplePerStateRatios...)
		}
		out.GraphGeneration[i] = sp
	}
	out.Simulation.InitialParams = append([]agents.CategoryParams(nil), c.Simulation.InitialParams...)
	out.Simulation.Events = make([]Event, len(c.Simulation.Events))
	for i, ev := range c.Simulation.Events {
		cp := Event{Day: ev.Day, Label: ev.Label}
		if ev.UpdateParams != nil {
			cp.UpdateParams = make(map[string][]float64, len(ev.UpdateParams))
			for k, v := range ev.UpdateParams {
				cp.UpdateParams[k] = append([]float64(nil), v...)
			}
		}
		if ev.UpdateSimulation != nil {
			cp.UpdateSimulation = make(map[string]float64, len(ev.UpdateSimulation))
			for k, v := range ev.UpdateSimulation {
				cp.UpdateSimulation[k] = v
			}
		}
		out.Simulation.Events[i] = cp
	}
	return out
}
