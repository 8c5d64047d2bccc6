package agents

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrUnknownParam is returned when a parameter key is not part of the schema.
	ErrUnknownParam = errors.New("unknown parameter key")
	// ErrCategoryCount is returned when a per-category vector has the wrong length.
	ErrCategoryCount = errors.New("invalid number of categories")
	// ErrInvalidParam is returned for out-of-range parameter values.
	ErrInvalidParam = errors.New("invalid parameter value")
)

// CategoryParams holds the rate and duration constants for one category.
// Values are immutable during a day; events replace them wholesale.
type CategoryParams struct {
	ProbGoesOnTrip              float64 `json:"prob_goes_on_trip" yaml:"prob_goes_on_trip" toml:"prob_goes_on_trip"`
	ProbCTripCandidate          float64 `json:"prob_c_trip_candidate" yaml:"prob_c_trip_candidate" toml:"prob_c_trip_candidate"`
	ProbCNeighbourTripCandidate float64 `json:"prob_c_neighbour_trip_candidate" yaml:"prob_c_neighbour_trip_candidate" toml:"prob_c_neighbour_trip_candidate"`
	ProbSToI                    float64 `json:"prob_s_to_i" yaml:"prob_s_to_i" toml:"prob_s_to_i"`
	DaysIToC                    int     `json:"days_i_to_c" yaml:"days_i_to_c" toml:"days_i_to_c"`
	ProbIToIC                   float64 `json:"prob_i_to_ic" yaml:"prob_i_to_ic" toml:"prob_i_to_ic"`
	DaysCToIm                   int     `json:"days_c_to_im" yaml:"days_c_to_im" toml:"days_c_to_im"`
	DaysICToImOrC               int     `json:"days_ic_to_im_or_c" yaml:"days_ic_to_im_or_c" toml:"days_ic_to_im_or_c"`
	ProbICToD                   float64 `json:"prob_ic_to_d" yaml:"prob_ic_to_d" toml:"prob_ic_to_d"`
	ProbToNIC                   float64 `json:"prob_to_nic" yaml:"prob_to_nic" toml:"prob_to_nic"`
	ProbNICToD                  float64 `json:"prob_nic_to_d" yaml:"prob_nic_to_d" toml:"prob_nic_to_d"`
	DaysNIC                     int     `json:"days_nic" yaml:"days_nic" toml:"days_nic"`
}

type paramField struct {
	days bool
	get  func(*CategoryParams) float64
	set  func(*CategoryParams, float64)
}

func probField(ptr func(*CategoryParams) *float64) paramField {
	return paramField{
		get: func(p *CategoryParams) float64 { return *ptr(p) },
		set: func(p *CategoryParams, v float64) { *ptr(p) = v },
	}
}

func daysField(ptr func(*CategoryParams) *int) paramField {
	return paramField{
		days: true,
		get:  func(p *CategoryParams) float64 { return float64(*ptr(p)) },
		set:  func(p *CategoryParams, v float64) { *ptr(p) = int(v) },
	}
}

// paramFields is the fixed schema events are validated against.
var paramFields = map[string]paramField{
	"prob_goes_on_trip":               probField(func(p *CategoryParams) *float64 { return &p.ProbGoesOnTrip }),
	"prob_c_trip_candidate":           probField(func(p *CategoryParams) *float64 { return &p.ProbCTripCandidate }),
	"prob_c_neighbour_trip_candidate": probField(func(p *CategoryParams) *float64 { return &p.ProbCNeighbourTripCandidate }),
	"prob_s_to_i":                     probField(func(p *CategoryParams) *float64 { return &p.ProbSToI }),
	"days_i_to_c":                     daysField(func(p *CategoryParams) *int { return &p.DaysIToC }),
	"prob_i_to_ic":                    probField(func(p *CategoryParams) *float64 { return &p.ProbIToIC }),
	"days_c_to_im":                    daysField(func(p *CategoryParams) *int { return &p.DaysCToIm }),
	"days_ic_to_im_or_c":              daysField(func(p *CategoryParams) *int { return &p.DaysICToImOrC }),
	"prob_ic_to_d":                    probField(func(p *CategoryParams) *float64 { return &p.ProbICToD }),
	"prob_to_nic":                     probField(func(p *CategoryParams) *float64 { return &p.ProbToNIC }),
	"prob_nic_to_d":                   probField(func(p *CategoryParams) *float64 { return &p.ProbNICToD }),
	"days_nic":                        daysField(func(p *CategoryParams) *int { return &p.DaysNIC }),
}

// ParamKeys returns every known category parameter key, sorted.
func ParamKeys() []string {
	keys := make([]string, 0, len(paramFields))
	for k := range paramFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsParamKey reports whether key names a category parameter.
func IsParamKey(key string) bool {
	_, ok := paramFields[key]
	return ok
}

// Get returns the value stored under key.
func (p *CategoryParams) Get(key string) (float64, error) {
	f, ok := paramFields[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, key)
	}
	return f.get(p), nil
}

// Set stores v under key after checking it against the field's domain.
func (p *CategoryParams) Set(key string, v float64) error {
	f, ok := paramFields[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, key)
	}
	if err := checkValue(key, f, v); err != nil {
		return err
	}
	f.set(p, v)
	return nil
}

// Validate checks every field of the record.
func (p *CategoryParams) Validate() error {
	for _, key := range ParamKeys() {
		f := paramFields[key]
		if err := checkValue(key, f, f.get(p)); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(key string, f paramField, v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: %s is NaN", ErrInvalidParam, key)
	}
	if f.days {
		// A zero countdown would never reach zero again after the first decrement.
		if v < 1 || v != math.Trunc(v) {
			return fmt.Errorf("%w: %s must be a positive whole number of days, got %v", ErrInvalidParam, key, v)
		}
		return nil
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: %s must be a probability in [0, 1], got %v", ErrInvalidParam, key, v)
	}
	return nil
}

// ApplyUpdate returns a copy of params with every per-category vector in
// update written into it. The input slice is left untouched when any key or
// vector is rejected, so an update is applied atomically or not at all.
func ApplyUpdate(params []CategoryParams, update map[string][]float64) ([]CategoryParams, error) {
	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	next := make([]CategoryParams, len(params))
	copy(next, params)

	for _, key := range keys {
		values := update[key]
		if !IsParamKey(key) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParam, key)
		}
		if len(values) != len(params) {
			return nil, fmt.Errorf("%w for key %q: got %d, want %d", ErrCategoryCount, key, len(values), len(params))
		}
		for i, v := range values {
			if err := next[i].Set(key, v); err != nil {
				return nil, fmt.Errorf("category %d: %w", i, err)
			}
		}
	}
	return next, nil
}
