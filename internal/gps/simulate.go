package gps

import (
	"math"
	"math/rand/v2"
	"slices"
)

// Simulator generates a 1 PPS pulse train with uniform timing jitter, one block
// at a time. Pulse k is placed at floor((k + u)·Fs) with u drawn uniformly from
// [-jitter, +jitter) seconds; pulses that would land before sample zero are
// dropped.
type Simulator struct {
	fs     float64
	jitter float64 // seconds
	rng    *rand.Rand

	second   int64
	position int64
	pending  []int64
}

// NewSimulator returns a Simulator for sample rate fs and a jitter range of
// ±jitterMs milliseconds. A nil rng uses a randomly seeded source.
func NewSimulator(fs, jitterMs float64, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{
		fs:     fs,
		jitter: math.Abs(jitterMs) / 1000,
		rng:    rng,
	}
}

// Next returns the next n samples of the train: 1 at pulse positions, 0
// elsewhere.
func (s *Simulator) Next(n int) []float64 {
	out := make([]float64, n)
	end := s.position + int64(n)

	for float64(s.second)-s.jitter < float64(end)/s.fs {
		u := 0.0
		if s.jitter > 0 {
			u = (2*s.rng.Float64() - 1) * s.jitter
		}
		if at := math.Floor((float64(s.second) + u) * s.fs); at >= 0 {
			s.pending = append(s.pending, int64(at))
		}
		s.second++
	}

	s.pending = slices.DeleteFunc(s.pending, func(at int64) bool {
		if at >= end {
			return false
		}
		if at >= s.position {
			out[at-s.position] = 1
		}
		return true
	})

	s.position = end
	return out
}

// SimulatePulses returns n samples of a jittered 1 PPS train.
func SimulatePulses(fs, jitterMs float64, n int, rng *rand.Rand) []float64 {
	return NewSimulator(fs, jitterMs, rng).Next(n)
}
