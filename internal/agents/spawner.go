// Person spawning: assigns categories and initial states by ratio weights.
package agents

import (
	"github.com/talgya/cluster-trip/internal/entropy"
)

// DefaultStateRatios puts every generated person in SUSCEPTIBLE.
var DefaultStateRatios = []int{1, 0, 0, 0, 0, 0, 0, 0}

// Spawner creates persons with sequential IDs.
type Spawner struct {
	rng    *entropy.Stream
	nextID PersonID
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng *entropy.Stream) *Spawner {
	return &Spawner{rng: rng}
}

// NextID returns the ID the next spawned person will get.
func (s *Spawner) NextID() PersonID {
	return s.nextID
}

// SpawnCluster creates count persons. Each person draws its category from
// categoryRatios and then its state from stateRatios, in that order.
func (s *Spawner) SpawnCluster(count int, categoryRatios, stateRatios []int) []*Person {
	if len(stateRatios) == 0 {
		stateRatios = DefaultStateRatios
	}

	persons := make([]*Person, 0, count)
	for i := 0; i < count; i++ {
		category := s.rng.Weighted(categoryRatios)
		state := State(s.rng.Weighted(stateRatios))
		persons = append(persons, NewPerson(s.nextID, category, state))
		s.nextID++
	}
	return persons
}
