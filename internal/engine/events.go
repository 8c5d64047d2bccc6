package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/config"
)

// applyEvents applies every scheduled event for day, in schedule order.
// Each event replaces category and scalar parameters together or not at all.
func (s *Simulation) applyEvents(day int) error {
	for s.nextEvent < len(s.events) && s.events[s.nextEvent].Day == day {
		ev := s.events[s.nextEvent]

		params, err := agents.ApplyUpdate(s.Params, ev.UpdateParams)
		if err != nil {
			return fmt.Errorf("%w: event on day %d: %w", config.ErrInvalidConfig, day, err)
		}
		scalars := s.Scalars
		if err := scalars.Apply(ev.UpdateSimulation); err != nil {
			return fmt.Errorf("%w: event on day %d: %w", config.ErrInvalidConfig, day, err)
		}

		s.Params = params
		s.Scalars = scalars
		s.nextEvent++

		slog.Debug("event applied",
			"run_id", s.RunID,
			"day", day,
			"category_keys", len(ev.UpdateParams),
			"scalar_keys", len(ev.UpdateSimulation),
		)
	}
	return nil
}
