// Package sweep runs a base configuration over a grid of parameter values
// and seeds, and summarizes every run.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/config"
)

// ErrInvalidPlan wraps every plan validation failure.
var ErrInvalidPlan = errors.New("invalid sweep plan")

// DefaultWorkers is used when a plan does not set a worker count.
const DefaultWorkers = 1

// Range is an inclusive arithmetic progression.
type Range struct {
	From float64 `json:"from" yaml:"from"`
	To   float64 `json:"to" yaml:"to"`
	Step float64 `json:"step" yaml:"step"`
}

// Axis is one swept parameter: a category key written into every category,
// or a scalar run key (mu, k_trip, prob_transmission).
type Axis struct {
	Key    string    `json:"key" yaml:"key"`
	Values []float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Range  *Range    `json:"range,omitempty" yaml:"range,omitempty"`
}

// Plan describes a sweep.
type Plan struct {
	Name    string  `json:"name" yaml:"name"`
	Config  string  `json:"config" yaml:"config"` // Base config path, relative to the plan file
	Seeds   []int64 `json:"seeds" yaml:"seeds"`
	Workers int     `json:"workers" yaml:"workers"`
	Axes    []Axis  `json:"axes" yaml:"axes"`
}

// Assignment sets Key to Value.
type Assignment struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Point is one grid cell: one value per axis, in axis order.
type Point []Assignment

// String renders the point as key=value pairs.
func (p Point) String() string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = a.Key + "=" + strconv.FormatFloat(a.Value, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Apply writes the point into cfg.
func (p Point) Apply(cfg *config.Config) error {
	for _, a := range p {
		if err := cfg.SetParam(a.Key, a.Value); err != nil {
			return fmt.Errorf("apply %s: %w", a.Key, err)
		}
	}
	return nil
}

// LoadPlan reads a YAML or JSON plan. A relative Config path is resolved
// against the plan's directory.
func LoadPlan(path string) (*Plan, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(contents, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}

	if plan.Config != "" && !filepath.IsAbs(plan.Config) {
		plan.Config = filepath.Join(filepath.Dir(path), plan.Config)
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate checks the plan and fills defaults.
func (p *Plan) Validate() error {
	if len(p.Seeds) == 0 {
		p.Seeds = []int64{0}
	}
	if p.Workers <= 0 {
		p.Workers = DefaultWorkers
	}
	seeds := make(map[int64]bool, len(p.Seeds))
	for _, seed := range p.Seeds {
		if seeds[seed] {
			return fmt.Errorf("%w: seed %d appears twice", ErrInvalidPlan, seed)
		}
		seeds[seed] = true
	}
	seen := make(map[string]bool, len(p.Axes))
	for i := range p.Axes {
		ax := &p.Axes[i]
		if !agents.IsParamKey(ax.Key) && !config.IsRunParamKey(ax.Key) {
			return fmt.Errorf("%w: axis %d: %w: %q", ErrInvalidPlan, i, agents.ErrUnknownParam, ax.Key)
		}
		if seen[ax.Key] {
			return fmt.Errorf("%w: axis %q appears twice", ErrInvalidPlan, ax.Key)
		}
		seen[ax.Key] = true
		values, err := ax.Expand()
		if err != nil {
			return fmt.Errorf("%w: axis %q: %w", ErrInvalidPlan, ax.Key, err)
		}
		for k := 1; k < len(values); k++ {
			if slices.Contains(values[:k], values[k]) {
				return fmt.Errorf("%w: axis %q repeats value %g", ErrInvalidPlan, ax.Key, values[k])
			}
		}
	}
	return nil
}

// Expand returns the axis values: the explicit list, or the range.
func (a Axis) Expand() ([]float64, error) {
	switch {
	case len(a.Values) > 0 && a.Range != nil:
		return nil, errors.New("set either values or range, not both")
	case len(a.Values) > 0:
		return a.Values, nil
	case a.Range == nil:
		return nil, errors.New("no values")
	}

	r := a.Range
	if r.Step <= 0 || r.To < r.From {
		return nil, fmt.Errorf("range needs from <= to and step > 0, got %+v", *r)
	}
	// Tolerance keeps the end point when (to-from)/step lands a hair below an integer.
	n := int(math.Floor((r.To-r.From)/r.Step+1e-9)) + 1
	values := make([]float64, n)
	for i := range values {
		values[i] = r.From + float64(i)*r.Step
	}
	return values, nil
}

// Points returns the Cartesian product of all axes. The first axis varies
// slowest. A plan without axes has a single empty point.
func (p *Plan) Points() ([]Point, error) {
	points := []Point{{}}
	for _, ax := range p.Axes {
		values, err := ax.Expand()
		if err != nil {
			return nil, fmt.Errorf("%w: axis %q: %w", ErrInvalidPlan, ax.Key, err)
		}
		next := make([]Point, 0, len(points)*len(values))
		for _, pt := range points {
			for _, v := range values {
				cell := make(Point, len(pt), len(pt)+1)
				copy(cell, pt)
				next = append(next, append(cell, Assignment{Key: ax.Key, Value: v}))
			}
		}
		points = next
	}
	return points, nil
}
