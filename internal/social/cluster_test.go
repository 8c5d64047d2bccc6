package social

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/cluster-trip/internal/agents"
)

func TestClusterCounts(t *testing.T) {
	t.Parallel()

	c := &Cluster{Members: []*agents.Person{
		agents.NewPerson(0, 0, agents.StateSusceptible),
		agents.NewPerson(1, 0, agents.StateInfectious),
		agents.NewPerson(2, 0, agents.StateInfectious),
		agents.NewPerson(3, 0, agents.StateNoCoronaICU),
	}}

	assert.Equal(t, 4, c.Size())
	assert.Equal(t, 2, c.Count(agents.StateInfectious))
	assert.False(t, c.HasKnownCase())

	var counts [agents.NumStates]int
	c.Tally(&counts)
	c.Tally(&counts)
	assert.Equal(t, 4, counts[agents.StateInfectious])
	assert.Equal(t, 2, counts[agents.StateNoCoronaICU])

	c.Members[1].Enter(agents.StateConfirmed, 3)
	assert.True(t, c.HasKnownCase())
	c.Members[1].Enter(agents.StateICU, 3)
	assert.True(t, c.HasKnownCase())
}
