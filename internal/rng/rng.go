// Package rng provides the uniform random sources consumed by the simulation
// core. The core never reaches for a global generator; callers pass a Source
// explicitly so runs can be reproduced exactly.
package rng

import (
	"math/rand/v2"
	"time"
)

// Source yields uniform values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies Source.
type Source interface {
	Float64() float64
}

// Func adapts a plain function to a Source.
type Func func() float64

// Float64 calls f.
func (f Func) Float64() float64 { return f() }

// NewSeeded returns a PCG-backed source. The stream argument lets callers
// derive independent sequences from one seed (e.g. one per run).
func NewSeeded(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// WallClockSeed returns a seed derived from the current time. It is the
// default used by the command line when no seed is configured.
func WallClockSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

// Constant always returns v.
func Constant(v float64) Source {
	return Func(func() float64 { return v })
}

// Sequence replays values in order and wraps around when exhausted.
// It is not safe for concurrent use.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence creates a Sequence over values. values must not be empty.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next value in the sequence.
func (s *Sequence) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Reset rewinds the sequence to its first value.
func (s *Sequence) Reset() {
	s.next = 0
}

// Draws reports how many values have been consumed since the last Reset.
func (s *Sequence) Draws() int {
	return s.next
}
