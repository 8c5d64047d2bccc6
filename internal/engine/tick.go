// Package engine provides the day-by-day simulation loop: scheduled events,
// system load, disease progression per cluster, the cross-cluster trip, and
// stopping conditions.
package engine

import (
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/talgya/cluster-trip/internal/agents"
)

var errFinished = errors.New("simulation already finished")

// TickDay simulates the next day and appends its record to History.
func (s *Simulation) TickDay() (DayStats, error) {
	day := s.Day

	if err := s.applyEvents(day); err != nil {
		return DayStats{}, err
	}

	// Load is fixed for the whole day, before anyone moves.
	load := s.SystemLoad()

	overflow := false
	for _, c := range s.Clusters {
		clusterOverflow, err := s.progressCluster(c, load)
		if err != nil {
			return DayStats{}, err
		}
		overflow = overflow || clusterOverflow
	}

	trip := s.runTrip()

	counts := s.Counts()
	if err := s.checkInvariants(counts); err != nil {
		return DayStats{}, err
	}

	if overflow {
		s.numDaysICUOverflow++
		s.lastDayICUOverflow = day
		if s.firstDayICUOverflow == -1 {
			s.firstDayICUOverflow = day
		}
	}

	stats := DayStats{
		Day:         day,
		Counts:      counts,
		Trip:        trip,
		ICUOverflow: overflow,
		ICUsLeft:    s.ICU.Available(),
		SystemLoad:  load,
	}
	s.History = append(s.History, stats)
	s.Day++

	slog.Debug("simulated day",
		"run_id", s.RunID,
		"day", day,
		"infectious", counts[agents.StateInfectious],
		"confirmed", counts[agents.StateConfirmed],
		"icu", counts[agents.StateICU],
		"on_trip", trip.OnTrip,
		"icu_overflow", overflow,
	)
	return stats, nil
}

// stopCondition reports whether the loop must end after the day just
// recorded, and why.
func (s *Simulation) stopCondition(day DayStats) (StoppingCondition, bool) {
	stopping := s.cfg.Simulation.StoppingConditions
	if day.ICUOverflow && stopping.OnICUOverflow {
		return StopICUOverflow, true
	}
	if stopping.OnPandemicEnd && !s.EventsPending() &&
		day.Counts[agents.StateInfectious] == 0 &&
		day.Counts[agents.StateConfirmed] == 0 &&
		day.Counts[agents.StateICU] == 0 {
		return StopPandemicEnd, true
	}
	return "", false
}

// Run simulates days until a stopping condition holds. onDay, if set, sees
// every day's record as soon as it is made.
func (s *Simulation) Run(onDay func(DayStats)) (*Result, error) {
	if s.Day > 0 {
		return nil, errFinished
	}

	numDays := s.cfg.Simulation.StoppingConditions.NumDays
	slog.Info("simulation started",
		"run_id", s.RunID,
		"seed", s.Seed,
		"persons", humanize.Comma(int64(s.populationSize)),
		"clusters", humanize.Comma(int64(len(s.Clusters))),
		"num_days", numDays,
	)

	condition := StopNumDays
	for s.Day < numDays {
		day, err := s.TickDay()
		if err != nil {
			return nil, err
		}
		if onDay != nil {
			onDay(day)
		}
		if c, stop := s.stopCondition(day); stop {
			condition = c
			break
		}
	}

	result := &Result{
		RunID:               s.RunID,
		Seed:                s.Seed,
		StoppingCondition:   condition,
		NumDaysICUOverflow:  s.numDaysICUOverflow,
		FirstDayICUOverflow: s.firstDayICUOverflow,
		LastDayICUOverflow:  s.lastDayICUOverflow,
		History:             s.History,
		Config:              s.cfg,
	}

	final := result.Final()
	slog.Info("simulation finished",
		"run_id", s.RunID,
		"seed", s.rng.Seed(),
		"stopping_condition", condition,
		"days", result.DaysSimulated(),
		"dead", humanize.Comma(int64(final.Counts[agents.StateDead])),
		"nocorona_dead", humanize.Comma(int64(final.Counts[agents.StateNoCoronaDead])),
		"immune", humanize.Comma(int64(final.Counts[agents.StateImmune])),
		"icu_overflow_days", s.numDaysICUOverflow,
		"draws", humanize.Comma(int64(s.rng.Draws())),
	)
	return result, nil
}
