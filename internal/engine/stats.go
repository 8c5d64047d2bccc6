package engine

import (
	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/config"
)

// StoppingCondition names why the day loop ended.
type StoppingCondition string

const (
	StopNumDays     StoppingCondition = "num_days"
	StopICUOverflow StoppingCondition = "icu_overflow"
	StopPandemicEnd StoppingCondition = "pandemic_end"
)

// Names of the non-state series in the stats map.
const (
	SeriesOnTrip                  = "num_people_on_trip"
	SeriesOnTripWithClusterCorona = "num_people_on_trip_with_cluster_corona"
	SeriesAbleWithClusterCorona   = "num_able_people_with_cluster_corona"
	SeriesICUOverflow             = "icu_overflow"
	SeriesICUsLeft                = "icus_left"
)

// TripStats are the counters of one day's trip.
type TripStats struct {
	OnTrip                  int `json:"num_people_on_trip"`
	OnTripWithClusterCorona int `json:"num_people_on_trip_with_cluster_corona"`
	AbleWithClusterCorona   int `json:"num_able_people_with_cluster_corona"`
	Contagious              int `json:"contagious_on_trip"`
	Infected                int `json:"infected_on_trip"`
}

// DayStats is the history record of one simulated day.
type DayStats struct {
	Day         int                   `json:"day"`
	Counts      [agents.NumStates]int `json:"counts"`
	Trip        TripStats             `json:"trip"`
	ICUOverflow bool                  `json:"icu_overflow"`
	ICUsLeft    int                   `json:"icus_left"`
	SystemLoad  float64               `json:"system_load"`
}

// Count returns the day's count for state.
func (d DayStats) Count(state agents.State) int {
	return d.Counts[state]
}

// Result is the outcome of a finished run.
type Result struct {
	RunID               string            `json:"run_id"`
	Seed                int64             `json:"seed"`
	StoppingCondition   StoppingCondition `json:"stopping_condition"`
	NumDaysICUOverflow  int               `json:"num_days_icu_overflow"`
	FirstDayICUOverflow int               `json:"first_day_icu_overflow"`
	LastDayICUOverflow  int               `json:"last_day_icu_overflow"`
	History             []DayStats        `json:"-"`
	Config              *config.Config    `json:"-"`
}

// DaysSimulated returns the number of recorded days.
func (r *Result) DaysSimulated() int {
	return len(r.History)
}

// Final returns the last recorded day, or a zero record for an empty run.
func (r *Result) Final() DayStats {
	if len(r.History) == 0 {
		return DayStats{}
	}
	return r.History[len(r.History)-1]
}

// Series returns one per-day series by name: a state name or one of the
// Series* constants.
func (r *Result) Series(name string) ([]int, bool) {
	var pick func(DayStats) int
	if state, ok := agents.StateFromName(name); ok {
		pick = func(d DayStats) int { return d.Counts[state] }
	} else {
		switch name {
		case SeriesOnTrip:
			pick = func(d DayStats) int { return d.Trip.OnTrip }
		case SeriesOnTripWithClusterCorona:
			pick = func(d DayStats) int { return d.Trip.OnTripWithClusterCorona }
		case SeriesAbleWithClusterCorona:
			pick = func(d DayStats) int { return d.Trip.AbleWithClusterCorona }
		case SeriesICUOverflow:
			pick = func(d DayStats) int {
				if d.ICUOverflow {
					return 1
				}
				return 0
			}
		case SeriesICUsLeft:
			pick = func(d DayStats) int { return d.ICUsLeft }
		default:
			return nil, false
		}
	}
	out := make([]int, len(r.History))
	for i, d := range r.History {
		out[i] = pick(d)
	}
	return out, true
}

// SeriesNames lists every series Stats produces, states first.
func SeriesNames() []string {
	names := make([]string, 0, agents.NumStates+5)
	for _, st := range agents.AllStates() {
		names = append(names, st.String())
	}
	return append(names,
		SeriesOnTrip,
		SeriesOnTripWithClusterCorona,
		SeriesAbleWithClusterCorona,
		SeriesICUOverflow,
		SeriesICUsLeft,
	)
}

// Stats returns every series keyed by name. Every state has a series even
// when its count stayed zero.
func (r *Result) Stats() map[string][]int {
	stats := make(map[string][]int)
	for _, name := range SeriesNames() {
		stats[name], _ = r.Series(name)
	}
	return stats
}

// Document is the serialized form of a Result.
type Document struct {
	RunID               string            `json:"run_id" yaml:"run_id"`
	Seed                int64             `json:"seed" yaml:"seed"`
	StoppingCondition   StoppingCondition `json:"stopping_condition" yaml:"stopping_condition"`
	NumDaysICUOverflow  int               `json:"num_days_icu_overflow" yaml:"num_days_icu_overflow"`
	FirstDayICUOverflow int               `json:"first_day_icu_overflow" yaml:"first_day_icu_overflow"`
	LastDayICUOverflow  int               `json:"last_day_icu_overflow" yaml:"last_day_icu_overflow"`
	Stats               map[string][]int  `json:"stats" yaml:"stats"`
	Config              *config.Config    `json:"config,omitempty" yaml:"config,omitempty"`
}

// Document converts r to its serialized form.
func (r *Result) Document() Document {
	return Document{
		RunID:               r.RunID,
		Seed:                r.Seed,
		StoppingCondition:   r.StoppingCondition,
		NumDaysICUOverflow:  r.NumDaysICUOverflow,
		FirstDayICUOverflow: r.FirstDayICUOverflow,
		LastDayICUOverflow:  r.LastDayICUOverflow,
		Stats:               r.Stats(),
		Config:              r.Config,
	}
}
