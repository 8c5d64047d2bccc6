package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/cluster-trip/internal/agents"
)

// Scalar run parameter keys accepted by events and sweeps.
const (
	KeyMu               = "mu"
	KeyKTrip            = "k_trip"
	KeyProbTransmission = "prob_transmission"
)

// RunParams are the scalar parameters an event may replace mid-run.
type RunParams struct {
	Mu               float64 `json:"mu"`
	KTrip            float64 `json:"k_trip"`
	ProbTransmission float64 `json:"prob_transmission"`
}

// RunParams extracts the scalar run parameters.
func (s *Simulation) RunParams() RunParams {
	return RunParams{
		Mu:               s.Mu,
		KTrip:            s.KTrip,
		ProbTransmission: s.ProbTransmission,
	}
}

// IsRunParamKey reports whether key names a scalar run parameter.
func IsRunParamKey(key string) bool {
	switch key {
	case KeyMu, KeyKTrip, KeyProbTransmission:
		return true
	default:
		return false
	}
}

// Set stores v under key.
func (r *RunParams) Set(key string, v float64) error {
	switch key {
	case KeyMu:
		r.Mu = v
	case KeyKTrip:
		r.KTrip = v
	case KeyProbTransmission:
		r.ProbTransmission = v
	default:
		return fmt.Errorf("%w: %q", agents.ErrUnknownParam, key)
	}
	return r.Validate()
}

// Apply writes every entry of update, in key order. On error r may be
// partially updated; callers apply to a copy.
func (r *RunParams) Apply(update map[string]float64) error {
	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := r.Set(k, update[k]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the scalar domains.
func (r RunParams) Validate() error {
	switch {
	case math.IsNaN(r.Mu) || r.Mu < 0:
		return fmt.Errorf("%w: mu must not be negative, got %v", agents.ErrInvalidParam, r.Mu)
	case math.IsNaN(r.KTrip) || r.KTrip < 0:
		return fmt.Errorf("%w: k_trip must not be negative, got %v", agents.ErrInvalidParam, r.KTrip)
	case math.IsNaN(r.ProbTransmission) || r.ProbTransmission < 0 || r.ProbTransmission > 1:
		return fmt.Errorf("%w: prob_transmission must be in [0, 1], got %v", agents.ErrInvalidParam, r.ProbTransmission)
	}
	return nil
}

// SetParam sets key on the document itself: a scalar run parameter, or a
// category parameter written into every category's initial record.
func (c *Config) SetParam(key string, v float64) error {
	if IsRunParamKey(key) {
		rp := c.Simulation.RunParams()
		if err := rp.Set(key, v); err != nil {
			return err
		}
		c.Simulation.Mu = rp.Mu
		c.Simulation.KTrip = rp.KTrip
		c.Simulation.ProbTransmission = rp.ProbTransmission
		return nil
	}
	if !agents.IsParamKey(key) {
		return fmt.Errorf("%w: %q", agents.ErrUnknownParam, key)
	}
	for i := range c.Simulation.InitialParams {
		if err := c.Simulation.InitialParams[i].Set(key, v); err != nil {
			return err
		}
	}
	return nil
}
