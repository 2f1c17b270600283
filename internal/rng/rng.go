// Package rng provides the injectable random sources used by drift, pricing and narratives.
package rng

import (
	"math/rand/v2"
)

// Source yields uniformly distributed values in [0, 1).
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// New returns a deterministic PCG-backed source for the given seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sequence replays a fixed list of values, cycling when exhausted.
// Used to pin exact draws in tests and replays.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence creates a Sequence over values. An empty Sequence always yields 0.5.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value in the sequence.
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws returns how many values have been consumed.
func (s *Sequence) Draws() int {
	return s.next
}

var _ Source = (*Sequence)(nil)
