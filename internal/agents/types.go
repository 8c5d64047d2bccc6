// Package agents provides the person data model, disease states, and
// per-category transition parameters.
package agents

import "fmt"

// PersonID is a unique identifier for a person, stable for the whole run.
type PersonID int

// State is a person's position in the disease/health state machine.
type State uint8

// The integer order of states is part of the output contract.
const (
	StateSusceptible  State = iota // s
	StateInfectious                // i
	StateConfirmed                 // c
	StateICU                       // ic
	StateDead                      // d
	StateImmune                    // im
	StateNoCoronaICU               // nic
	StateNoCoronaDead              // nd
)

// NumStates is the number of enumerated states.
const NumStates = int(StateNoCoronaDead) + 1

var stateNames = [NumStates]string{
	"susceptible",
	"infectious",
	"confirmed",
	"icu",
	"dead",
	"immune",
	"nocorona_icu",
	"nocorona_dead",
}

// String returns the state's output name.
func (s State) String() string {
	if int(s) < NumStates {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// StateFromName resolves an output name back to a State.
func StateFromName(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// AllStates returns every state in output order.
func AllStates() []State {
	states := make([]State, NumStates)
	for i := range states {
		states[i] = State(i)
	}
	return states
}

// IsTerminal reports whether no transition ever leaves s.
func (s State) IsTerminal() bool {
	return s == StateDead || s == StateNoCoronaDead
}

// IsAlive reports whether s is a live state.
func (s State) IsAlive() bool {
	return !s.IsTerminal()
}

// OccupiesICU reports whether a person in s holds an ICU slot.
func (s State) OccupiesICU() bool {
	return s == StateICU || s == StateNoCoronaICU
}

// IsKnownCase reports whether s makes the modeled disease known to the
// person's cluster (and counts toward system load).
func (s State) IsKnownCase() bool {
	return s == StateICU || s == StateConfirmed
}

// IsContagious reports whether a person in s spreads infection on a trip.
func (s State) IsContagious() bool {
	return s == StateInfectious || s == StateConfirmed
}

// IsActiveDisease reports whether s counts toward an ongoing pandemic.
func (s State) IsActiveDisease() bool {
	return s == StateInfectious || s == StateConfirmed || s == StateICU
}

// CanNeedUnrelatedICU reports whether a person in s can be admitted to ICU
// for an illness unrelated to the modeled disease.
func (s State) CanNeedUnrelatedICU() bool {
	switch s {
	case StateSusceptible, StateImmune, StateConfirmed, StateInfectious:
		return true
	default:
		return false
	}
}

// Person is one simulated individual.
type Person struct {
	ID       PersonID `json:"id"`
	Category int      `json:"category"` // Index into the category parameter table
	State    State    `json:"state"`

	// DaysUntilNextState counts down once per day in timed states
	// (INFECTIOUS, CONFIRMED, ICU, NOCORONA_ICU).
	DaysUntilNextState int `json:"days_until_next_state"`

	// IsImmune records that the person has had the modeled disease. A person
	// leaving NOCORONA_ICU alive returns to IMMUNE when set, else SUSCEPTIBLE.
	IsImmune bool `json:"is_immune"`
}

// NewPerson creates a person in the given initial state.
func NewPerson(id PersonID, category int, state State) *Person {
	return &Person{
		ID:       id,
		Category: category,
		State:    state,
		IsImmune: state == StateImmune,
	}
}

// Tick decrements the countdown and reports whether it reached zero.
func (p *Person) Tick() bool {
	p.DaysUntilNextState--
	return p.DaysUntilNextState == 0
}

// Enter moves the person into state with a fresh countdown.
func (p *Person) Enter(state State, days int) {
	p.State = state
	p.DaysUntilNextState = days
}
