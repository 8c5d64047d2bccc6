package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeterministic(t *testing.T) {
	t.Parallel()

	a, b := NewStream(7), NewStream(7)
	for range 100 {
		require.Equal(t, a.Float(), b.Float())
	}
	assert.Equal(t, int64(7), a.Seed())
	assert.Equal(t, uint64(100), a.Draws())
}

func TestBoolAlwaysDraws(t *testing.T) {
	t.Parallel()

	s := NewStream(1)
	for range 50 {
		assert.False(t, s.Bool(0))
		assert.True(t, s.Bool(1))
	}
	assert.Equal(t, uint64(100), s.Draws())
}

func TestCumulativeBounds(t *testing.T) {
	t.Parallel()

	bounds := CumulativeBounds([]int{2, 0, 3})
	assert.Equal(t, []int{2, 2, 5}, bounds)

	picks := make([]int, 5)
	for x := range picks {
		picks[x] = PickBound(bounds, x)
	}
	// Zero weights are never picked.
	assert.Equal(t, []int{0, 0, 2, 2, 2}, picks)
}

func TestWeighted(t *testing.T) {
	t.Parallel()

	s := NewStream(3)
	counts := make([]int, 3)
	for range 3000 {
		counts[s.Weighted([]int{1, 0, 2})]++
	}
	assert.Zero(t, counts[1])
	assert.InDelta(t, 1000, counts[0], 150)
	assert.InDelta(t, 2000, counts[2], 150)
}
