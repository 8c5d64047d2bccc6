// Package entropy provides the seeded random stream that drives a run.
// Every stochastic decision in a run draws from one sequential stream, so the
// order of draws is part of the reproducibility contract.
package entropy

import (
	"math/rand"
	"sort"
)

// Stream is a deterministic pseudo-random stream. It is not safe for
// concurrent use; each run owns its own Stream.
type Stream struct {
	seed  int64
	rng   *rand.Rand
	draws uint64
}

// NewStream creates a stream seeded with seed.
func NewStream(seed int64) *Stream {
	return &Stream{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Draws returns how many values have been drawn so far.
func (s *Stream) Draws() uint64 {
	return s.draws
}

// Float returns a uniform float64 in [0, 1).
func (s *Stream) Float() float64 {
	s.draws++
	return s.rng.Float64()
}

// Bool returns true with probability p. Exactly one value is drawn,
// whatever p is.
func (s *Stream) Bool(p float64) bool {
	return s.Float() < p
}

// Intn returns a uniform int in [0, n). It panics if n <= 0.
func (s *Stream) Intn(n int) int {
	s.draws++
	return s.rng.Intn(n)
}

// Weighted picks an index with probability proportional to weights[i].
// Zero weights are never picked. The total weight must be positive.
func (s *Stream) Weighted(weights []int) int {
	bounds := CumulativeBounds(weights)
	x := s.Intn(bounds[len(bounds)-1])
	return PickBound(bounds, x)
}

// CumulativeBounds returns the running sums of weights.
func CumulativeBounds(weights []int) []int {
	bounds := make([]int, len(weights))
	total := 0
	for i, w := range weights {
		total += w
		bounds[i] = total
	}
	return bounds
}

// PickBound returns the first index whose bound is strictly greater than x.
func PickBound(bounds []int, x int) int {
	return sort.Search(len(bounds), func(i int) bool { return bounds[i] > x })
}
