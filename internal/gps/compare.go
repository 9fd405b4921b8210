package gps

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/roman-kulish/vlf-monitor/internal/dsp"
)

// DefaultSmoothing is the comparator's single-pole smoothing factor. Small
// values give a slow, stable correction track.
const DefaultSmoothing = 0.05

// Comparator measures the phase of a GPS-derived reference against the local
// reference. Its unwrap and smoothing state carries across calls.
type Comparator struct {
	unwrap dsp.Unwrapper
	smooth dsp.Smoother
}

func NewComparator(alpha float64) *Comparator {
	return &Comparator{smooth: dsp.Smoother{Alpha: alpha}}
}

// Compare returns the smoothed phase difference arg(gps·conj(local)) in
// radians for each sample pair. Extra samples of the longer input are ignored.
func (c *Comparator) Compare(gpsRef, local []complex128) []float64 {
	n := min(len(gpsRef), len(local))
	out := make([]float64, n)
	for i := range n {
		diff := cmplx.Phase(gpsRef[i] * cmplx.Conj(local[i]))
		out[i] = c.smooth.Next(c.unwrap.Next(diff))
	}
	return out
}

// ComparePhase compares two whole sequences with a fresh comparator and
// returns the correction track in degrees and radians.
func ComparePhase(gpsRef, local []complex128, alpha float64) (deg, rad []float64) {
	rad = NewComparator(alpha).Compare(gpsRef, local)
	deg = make([]float64, len(rad))
	for i, v := range rad {
		deg[i] = v * 180 / math.Pi
	}
	return deg, rad
}

// Tracker derives a per-sample phase correction track from a pulse train
// delivered block by block.
type Tracker struct {
	fs         float64
	loop       *LoopState
	comparator *Comparator
}

// NewTracker returns a Tracker for a train sampled at fs.
func NewTracker(fs, kp, ki, alpha float64) (*Tracker, error) {
	if fs <= 0 {
		return nil, fmt.Errorf("gps: sample rate must be positive, %f given", fs)
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("gps: smoothing factor must be in (0, 1], %f given", alpha)
	}
	return &Tracker{
		fs:         fs,
		loop:       NewLoop(kp, ki),
		comparator: NewComparator(alpha),
	}, nil
}

// Loop exposes the loop state.
func (t *Tracker) Loop() *LoopState {
	return t.loop
}

// Track returns the correction track, in radians, for the next block of the
// pulse train.
func (t *Tracker) Track(train []float64) []float64 {
	offset := t.loop.Position()
	gpsRef := PLLSine(train, t.fs, t.loop)
	return t.comparator.Compare(gpsRef, LocalReference(t.fs, offset, len(train)))
}
