package gps

import (
	"math"
	"math/cmplx"

	"github.com/roman-kulish/vlf-monitor/internal/dsp"
)

// Default loop gains.
const (
	DefaultKp = 0.005
	DefaultKi = 0.00001
)

// LoopState is the mutable state of the 1 PPS phase-locked loop. It is passed
// by reference to every call that advances the loop, so one LoopState can be
// threaded through consecutive blocks of a recording.
type LoopState struct {
	PhaseError float64 // wrapped error measured at the last edge
	Integral   float64 // sum of all phase errors
	LastPhase  float64 // phase held by the local oscillator, radians
	Kp, Ki     float64

	position int64 // absolute index of the next input sample
	high     bool  // previous sample was part of a pulse
	edges    int
}

// NewLoop returns a loop at rest with the given proportional and integral
// gains.
func NewLoop(kp, ki float64) *LoopState {
	return &LoopState{Kp: kp, Ki: ki}
}

// Edges returns the number of pulse edges the loop has locked to.
func (s *LoopState) Edges() int {
	return s.edges
}

// Position returns the absolute index of the next sample PLLSine expects.
func (s *LoopState) Position() int64 {
	return s.position
}

// Lock applies one PI correction for a pulse edge at absolute sample index
// edge. A pulse marks the start of a second, so the oscillator phase at the
// edge is driven towards zero.
func (s *LoopState) Lock(edge int64, fs float64) {
	s.PhaseError = -dsp.WrapPhase(rampPhase(edge, fs) + s.LastPhase)
	s.Integral += s.PhaseError
	s.LastPhase = dsp.WrapPhase(s.LastPhase + s.Kp*s.PhaseError + s.Ki*s.Integral)
	s.edges++
}

// PLLSine turns a pulse train into a phase-continuous 1 Hz complex reference.
// Every rising edge (a positive sample following a non-positive one) corrects
// the held phase; between edges the oscillator free-runs at 1 Hz. Samples
// before the first edge run with zero phase offset.
//
// The train is a continuation of whatever the state has already seen, so
// consecutive calls on consecutive blocks produce the same output as one call
// on the concatenation.
func PLLSine(train []float64, fs float64, state *LoopState) []complex128 {
	out := make([]complex128, len(train))
	for i, v := range train {
		n := state.position + int64(i)
		pulse := v > 0
		if pulse && !state.high {
			state.Lock(n, fs)
		}
		state.high = pulse
		out[i] = cmplx.Rect(1, rampPhase(n, fs)+state.LastPhase)
	}
	state.position += int64(len(train))
	return out
}

// LocalReference returns the ideal exp(j2πt) for n samples starting at absolute
// sample index offset.
func LocalReference(fs float64, offset int64, n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = cmplx.Rect(1, rampPhase(offset+int64(i), fs))
	}
	return out
}

// rampPhase is the phase of a 1 Hz ramp at sample n, folded to one second so
// that long recordings keep full precision.
func rampPhase(n int64, fs float64) float64 {
	return 2 * math.Pi * math.Mod(float64(n), fs) / fs
}
