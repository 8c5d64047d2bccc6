// Simulation ties together the population, the ICU pool, and the random
// stream, and runs the disease and trip passes each day.
package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/entropy"
	"github.com/talgya/cluster-trip/internal/social"
)

// Simulation is the context of one run. It owns all mutable run state, so
// independent simulations can coexist in one process.
type Simulation struct {
	RunID    string
	Seed     int64
	Clusters []*social.Cluster
	ICU      *ICUPool

	// Parameters in force today. Events replace them between days.
	Params  []agents.CategoryParams
	Scalars config.RunParams

	cfg            *config.Config
	rng            *entropy.Stream
	events         []config.Event // Sorted by day
	nextEvent      int
	populationSize int

	// Day is the next day to simulate.
	Day     int
	History []DayStats

	// Overflow bookkeeping.
	numDaysICUOverflow  int
	firstDayICUOverflow int
	lastDayICUOverflow  int
}

// New validates cfg, generates the population, and prepares a run seeded
// with seed. Population generation draws from the same stream the run uses
// afterwards.
func New(cfg *config.Config, seed int64) (*Simulation, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	cfg = cfg.Clone()
	events := append([]config.Event(nil), cfg.Simulation.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Day < events[j].Day })

	s := &Simulation{
		RunID:               RunID(cfg, seed),
		Seed:                seed,
		ICU:                 NewICUPool(cfg.Simulation.NumICUs),
		Params:              append([]agents.CategoryParams(nil), cfg.Simulation.InitialParams...),
		Scalars:             cfg.Simulation.RunParams(),
		cfg:                 cfg,
		rng:                 entropy.NewStream(seed),
		events:              events,
		firstDayICUOverflow: -1,
		lastDayICUOverflow:  -1,
	}

	s.buildPopulation(cfg.GraphGeneration)
	if err := s.seedInitialStates(); err != nil {
		return nil, err
	}

	slog.Debug("population generated",
		"run_id", s.RunID,
		"clusters", humanize.Comma(int64(len(s.Clusters))),
		"persons", humanize.Comma(int64(s.populationSize)),
		"icus", s.ICU.Capacity(),
	)
	return s, nil
}

// runNamespace scopes run ids; it never changes.
var runNamespace = uuid.MustParse("6f1d2c8e-4b7a-5e39-9c04-2a8b1f3d7e60")

// RunID derives the id of a run from its configuration and seed, so the
// same inputs always yield the same result document.
func RunID(cfg *config.Config, seed int64) string {
	h := sha256.New()
	// Config holds only plain values and maps with string keys; encoding
	// cannot fail and map keys are written sorted.
	doc, _ := json.Marshal(cfg)
	h.Write(doc)
	_ = binary.Write(h, binary.BigEndian, seed)
	return uuid.NewSHA1(runNamespace, h.Sum(nil)).String()
}

// Config returns the document the simulation was built from.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// PopulationSize returns the number of persons; it never changes.
func (s *Simulation) PopulationSize() int {
	return s.populationSize
}

// EventsPending reports whether any scheduled event has not been applied.
func (s *Simulation) EventsPending() bool {
	return s.nextEvent < len(s.events)
}

// Counts returns the current number of persons per state.
func (s *Simulation) Counts() [agents.NumStates]int {
	var counts [agents.NumStates]int
	for _, c := range s.Clusters {
		c.Tally(&counts)
	}
	return counts
}

// SystemLoad is the fraction of live persons in ICU or CONFIRMED.
func (s *Simulation) SystemLoad() float64 {
	alive, burden := 0, 0
	for _, c := range s.Clusters {
		for _, p := range c.Members {
			if p.State.IsAlive() {
				alive++
			}
			if p.State.IsKnownCase() {
				burden++
			}
		}
	}
	if alive == 0 {
		return 0
	}
	return float64(burden) / float64(alive)
}

// checkInvariants verifies conservation and ICU accounting after a day.
func (s *Simulation) checkInvariants(counts [agents.NumStates]int) error {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total != s.populationSize {
		return fmt.Errorf("%w: day %d counts %d persons, population is %d", ErrInvariant, s.Day, total, s.populationSize)
	}
	if s.ICU.Available() < 0 {
		return fmt.Errorf("%w: ICU pool at %d", ErrInvariant, s.ICU.Available())
	}
	occupied := counts[agents.StateICU] + counts[agents.StateNoCoronaICU]
	if occupied != s.ICU.Occupied() {
		return fmt.Errorf("%w: %d persons in ICU states but %d slots taken", ErrInvariant, occupied, s.ICU.Occupied())
	}
	return nil
}
