package sweep

import (
	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/engine"
)

// Summary condenses one run into the figures compared across a sweep.
type Summary struct {
	StoppingCondition engine.StoppingCondition `json:"stopping_condition"`
	DaysSimulated     int                      `json:"days_simulated"`
	// BeginningPandemic is the first day with an infectious person, or -1.
	BeginningPandemic int `json:"beginning_pandemic"`
	// LengthPandemic runs from BeginningPandemic to the last day with a
	// confirmed case; 0 if no case was ever confirmed, -1 without a beginning.
	LengthPandemic      int `json:"length_pandemic"`
	PeakCoronaTotal     int `json:"peak_corona_total"` // max infectious+confirmed+icu
	PeakSystemLoad      int `json:"peak_system_load"`  // max confirmed+icu
	CoronaDeaths        int `json:"corona_deaths"`
	NoCoronaDeaths      int `json:"nocorona_deaths"`
	NumDaysICUOverflow  int `json:"num_days_icu_overflow"`
	FirstDayICUOverflow int `json:"first_day_icu_overflow"`
	TotalImmune         int `json:"total_immune"`
}

// Summarize computes the summary of r.
func Summarize(r *engine.Result) Summary {
	s := Summary{
		StoppingCondition:   r.StoppingCondition,
		DaysSimulated:       r.DaysSimulated(),
		BeginningPandemic:   -1,
		LengthPandemic:      -1,
		NumDaysICUOverflow:  r.NumDaysICUOverflow,
		FirstDayICUOverflow: r.FirstDayICUOverflow,
	}

	lastConfirmed := -1
	for i, d := range r.History {
		infectious := d.Count(agents.StateInfectious)
		confirmed := d.Count(agents.StateConfirmed)
		icu := d.Count(agents.StateICU)

		if s.BeginningPandemic == -1 && infectious > 0 {
			s.BeginningPandemic = i
		}
		if confirmed > 0 {
			lastConfirmed = i
		}
		s.PeakCoronaTotal = max(s.PeakCoronaTotal, infectious+confirmed+icu)
		s.PeakSystemLoad = max(s.PeakSystemLoad, confirmed+icu)
	}

	if s.BeginningPandemic >= 0 {
		s.LengthPandemic = max(lastConfirmed-s.BeginningPandemic+1, 0)
	}

	final := r.Final()
	s.CoronaDeaths = final.Count(agents.StateDead)
	s.NoCoronaDeaths = final.Count(agents.StateNoCoronaDead)
	s.TotalImmune = final.Count(agents.StateImmune)
	return s
}

// SuccessRatio is the fraction of summaries with no ICU overflow day.
func SuccessRatio(summaries []Summary) float64 {
	if len(summaries) == 0 {
		return 0
	}
	ok := 0
	for _, s := range summaries {
		if s.NumDaysICUOverflow == 0 {
			ok++
		}
	}
	return float64(ok) / float64(len(summaries))
}
