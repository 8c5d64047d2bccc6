package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cluster-trip/internal/agents"
)

func TestICUPool(t *testing.T) {
	t.Parallel()

	pool := NewICUPool(2)
	assert.Equal(t, 2, pool.Available())
	assert.True(t, pool.TryAcquire())
	assert.True(t, pool.TryAcquire())
	assert.False(t, pool.TryAcquire())
	assert.Equal(t, 0, pool.Available())
	assert.Equal(t, 2, pool.Occupied())

	require.NoError(t, pool.Release())
	require.NoError(t, pool.Release())
	require.ErrorIs(t, pool.Release(), ErrInvariant)
	assert.Equal(t, 2, pool.Available())

	empty := NewICUPool(0)
	assert.False(t, empty.TryAcquire())
}

func TestResultStats(t *testing.T) {
	t.Parallel()

	params := quietParams()
	params.DaysIToC = 1
	params.ProbIToIC = 1
	cfg := testConfig(1, 2, params)
	cfg.GraphGeneration[0].PeoplePerStateRatios = stateRatios(agents.StateInfectious)
	cfg.Simulation.NumICUs = 1
	cfg.Simulation.StoppingConditions.NumDays = 3

	result, err := newSim(t, cfg, 8).Run(nil)
	require.NoError(t, err)

	stats := result.Stats()
	require.Len(t, stats, len(SeriesNames()))
	for _, name := range SeriesNames() {
		require.Len(t, stats[name], 3, name)
	}
	for _, st := range agents.AllStates() {
		require.Contains(t, stats, st.String())
	}

	// Both reach ICU on day 0: one gets the slot, one dies.
	assert.Equal(t, []int{1, 0, 0}, stats[SeriesICUOverflow])
	assert.Equal(t, []int{0, 0, 0}, stats[SeriesICUsLeft])
	assert.Equal(t, 1, stats["dead"][0])
	assert.Equal(t, 1, stats["icu"][0])

	_, ok := result.Series("no_such_series")
	assert.False(t, ok)

	doc := result.Document()
	assert.Equal(t, result.RunID, doc.RunID)
	assert.Same(t, result.Config, doc.Config)
	assert.Equal(t, stats, doc.Stats)
}
