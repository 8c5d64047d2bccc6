package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/engine"
)

// Outcome is one finished run of a sweep.
type Outcome struct {
	PointIndex int     `json:"point_index"`
	Point      Point   `json:"point"`
	Seed       int64   `json:"seed"`
	RunID      string  `json:"run_id"`
	Summary    Summary `json:"summary"`

	// Result is only populated while the sink runs.
	Result *engine.Result `json:"-"`
}

// PointReport groups the runs of one grid cell.
type PointReport struct {
	Index        int       `json:"index"`
	Point        Point     `json:"point"`
	Runs         []Outcome `json:"runs"`
	SuccessRatio float64   `json:"success_ratio"`
}

// Report is the whole sweep, ordered by point and then seed.
type Report struct {
	SweepID  string        `json:"sweep_id"`
	Name     string        `json:"name"`
	Seeds    []int64       `json:"seeds"`
	Axes     []Axis        `json:"axes"`
	Points   []PointReport `json:"points"`
	Duration string        `json:"duration"`
}

// Sink receives each outcome as soon as its run finishes. Calls are
// serialized; a returned error cancels the sweep.
type Sink func(sweepID string, o Outcome) error

type job struct {
	index      int
	pointIndex int
	seed       int64
}

// Run executes every (point, seed) pair of plan on copies of base, with at
// most plan.Workers runs in flight. Each run owns its own simulation and
// random stream, so outcomes do not depend on scheduling.
func Run(ctx context.Context, base *config.Config, plan *Plan, sink Sink) (*Report, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	points, err := plan.Points()
	if err != nil {
		return nil, err
	}

	sweepID := uuid.New()
	report := &Report{
		SweepID: sweepID.String(),
		Name:    plan.Name,
		Seeds:   plan.Seeds,
		Axes:    plan.Axes,
	}
	start := time.Now()

	jobs := make([]job, 0, len(points)*len(plan.Seeds))
	for pi := range points {
		for _, seed := range plan.Seeds {
			jobs = append(jobs, job{index: len(jobs), pointIndex: pi, seed: seed})
		}
	}

	slog.Info("sweep started",
		"sweep_id", report.SweepID,
		"name", plan.Name,
		"points", len(points),
		"seeds", len(plan.Seeds),
		"runs", len(jobs),
		"workers", plan.Workers,
	)

	outcomes := make([]Outcome, len(jobs))
	var sinkMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(plan.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o, err := runOne(base, points[j.pointIndex], j, sweepID)
			if err != nil {
				return err
			}

			if sink != nil {
				sinkMu.Lock()
				err = sink(report.SweepID, o)
				sinkMu.Unlock()
				if err != nil {
					return fmt.Errorf("sink run %s: %w", o.RunID, err)
				}
			}

			o.Result = nil
			outcomes[j.index] = o

			slog.Debug("sweep run finished",
				"sweep_id", report.SweepID,
				"point", o.Point.String(),
				"seed", o.Seed,
				"overflow_days", o.Summary.NumDaysICUOverflow,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// Cancelled before any job failed: the group saw no error.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Points = make([]PointReport, len(points))
	for pi, pt := range points {
		report.Points[pi] = PointReport{Index: pi, Point: pt}
	}
	for _, o := range outcomes {
		pr := &report.Points[o.PointIndex]
		pr.Runs = append(pr.Runs, o)
	}
	for pi := range report.Points {
		pr := &report.Points[pi]
		summaries := make([]Summary, len(pr.Runs))
		for i, o := range pr.Runs {
			summaries[i] = o.Summary
		}
		pr.SuccessRatio = SuccessRatio(summaries)
	}

	report.Duration = time.Since(start).Round(time.Millisecond).String()
	slog.Info("sweep finished", "sweep_id", report.SweepID, "runs", len(jobs), "duration", report.Duration)
	return report, nil
}

// runOne runs one job. Its run id is scoped to the sweep, so repeating a
// plan against the same database does not collide with earlier sweeps.
func runOne(base *config.Config, pt Point, j job, sweepID uuid.UUID) (Outcome, error) {
	cfg := base.Clone()
	if err := pt.Apply(cfg); err != nil {
		return Outcome{}, fmt.Errorf("point %s: %w", pt, err)
	}

	sim, err := engine.New(cfg, j.seed)
	if err != nil {
		return Outcome{}, fmt.Errorf("point %s seed %d: %w", pt, j.seed, err)
	}
	sim.RunID = uuid.NewSHA1(sweepID, []byte(sim.RunID)).String()
	result, err := sim.Run(nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("point %s seed %d: %w", pt, j.seed, err)
	}

	return Outcome{
		PointIndex: j.pointIndex,
		Point:      pt,
		Seed:       j.seed,
		RunID:      result.RunID,
		Summary:    Summarize(result),
		Result:     result,
	}, nil
}
