package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cluster-trip/internal/entropy"
)

func TestStateNames(t *testing.T) {
	t.Parallel()

	want := []string{
		"susceptible", "infectious", "confirmed", "icu",
		"dead", "immune", "nocorona_icu", "nocorona_dead",
	}
	states := AllStates()
	require.Len(t, states, NumStates)
	for i, st := range states {
		assert.Equal(t, want[i], st.String())
		back, ok := StateFromName(want[i])
		require.True(t, ok)
		assert.Equal(t, st, back)
	}

	_, ok := StateFromName("zombie")
	assert.False(t, ok)
	assert.Equal(t, "state(42)", State(42).String())
}

func TestStatePredicates(t *testing.T) {
	t.Parallel()

	for _, st := range AllStates() {
		assert.Equal(t, st == StateDead || st == StateNoCoronaDead, st.IsTerminal(), st.String())
		assert.Equal(t, !st.IsTerminal(), st.IsAlive(), st.String())
		assert.Equal(t, st == StateICU || st == StateNoCoronaICU, st.OccupiesICU(), st.String())
	}

	assert.True(t, StateConfirmed.IsKnownCase())
	assert.True(t, StateICU.IsKnownCase())
	assert.False(t, StateInfectious.IsKnownCase())
	assert.False(t, StateNoCoronaICU.IsKnownCase())

	assert.True(t, StateInfectious.IsContagious())
	assert.True(t, StateConfirmed.IsContagious())
	assert.False(t, StateICU.IsContagious())

	assert.False(t, StateICU.CanNeedUnrelatedICU())
	assert.False(t, StateNoCoronaICU.CanNeedUnrelatedICU())
	assert.True(t, StateImmune.CanNeedUnrelatedICU())
}

func TestPersonCountdown(t *testing.T) {
	t.Parallel()

	p := NewPerson(3, 0, StateSusceptible)
	assert.False(t, p.IsImmune)
	assert.True(t, NewPerson(4, 0, StateImmune).IsImmune)

	p.Enter(StateInfectious, 2)
	assert.False(t, p.Tick())
	assert.True(t, p.Tick())
	assert.Equal(t, StateInfectious, p.State)
}

func TestSpawnCluster(t *testing.T) {
	t.Parallel()

	rng := entropy.NewStream(1)
	spawner := NewSpawner(rng)
	first := spawner.SpawnCluster(5, []int{0, 1}, nil)
	second := spawner.SpawnCluster(3, []int{1, 0}, stateRatiosFor(StateImmune))

	require.Len(t, first, 5)
	require.Len(t, second, 3)
	for i, p := range first {
		assert.Equal(t, PersonID(i), p.ID)
		assert.Equal(t, 1, p.Category)
		assert.Equal(t, StateSusceptible, p.State)
	}
	for i, p := range second {
		assert.Equal(t, PersonID(5+i), p.ID)
		assert.Equal(t, 0, p.Category)
		assert.Equal(t, StateImmune, p.State)
		assert.True(t, p.IsImmune)
	}
	assert.Equal(t, PersonID(8), spawner.NextID())
	// One category draw and one state draw per person.
	assert.Equal(t, uint64(16), rng.Draws())
}

func TestSpawnMatchesWeightedDraws(t *testing.T) {
	t.Parallel()

	categories, states := []int{2, 3, 5}, []int{5, 1, 0, 0, 0, 1, 0, 0}
	persons := NewSpawner(entropy.NewStream(4)).SpawnCluster(20, categories, states)

	rng := entropy.NewStream(4)
	for _, p := range persons {
		assert.Equal(t, rng.Weighted(categories), p.Category)
		assert.Equal(t, State(rng.Weighted(states)), p.State)
	}
}

func TestSpawnDeterministic(t *testing.T) {
	t.Parallel()

	spawn := func() []*Person {
		return NewSpawner(entropy.NewStream(99)).SpawnCluster(50, []int{2, 3, 5}, []int{5, 1, 0, 0, 0, 1, 0, 0})
	}
	assert.Equal(t, spawn(), spawn())
}

func stateRatiosFor(state State) []int {
	ratios := make([]int, NumStates)
	ratios[state] = 1
	return ratios
}
