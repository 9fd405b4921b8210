package msk

import (
	"fmt"
	"math"
)

// TestMode selects diagnostic full-wave rectification of the reference oscillators.
type TestMode int

const (
	Production        TestMode = iota // no rectification
	RectifySubcarrier                 // |cos|, |sin| of the sub-carrier
	RectifyCarrier                    // |cos|, |sin| of the carrier
	RectifyBoth                       // both pairs rectified
)

func (m TestMode) String() string {
	switch m {
	case Production:
		return "production"
	case RectifySubcarrier:
		return "rectify-subcarrier"
	case RectifyCarrier:
		return "rectify-carrier"
	case RectifyBoth:
		return "rectify-both"
	default:
		return fmt.Sprintf("TestMode(%d)", int(m))
	}
}

func (m TestMode) rectifySubcarrier() bool {
	return m == RectifySubcarrier || m == RectifyBoth
}

func (m TestMode) rectifyCarrier() bool {
	return m == RectifyCarrier || m == RectifyBoth
}

// Carriers holds the in-phase and quadrature reference waveforms for one block.
type Carriers struct {
	I []float64
	Q []float64
}

// Synthesize generates n samples of the I/Q references
//
//	I = cos(2πFck·t+φ)·cos(2πFc·t+φ)/A
//	Q = -sin(2πFck·t+φ)·sin(2πFc·t+φ)/A
//
// with t = k/Fs counted from the start of the block. A nil phase means φ = 0;
// otherwise phase must hold one value per sample.
func Synthesize(p Params, n int, phase []float64, mode TestMode) (Carriers, error) {
	if phase != nil && len(phase) != n {
		return Carriers{}, fmt.Errorf("%w: %d phase samples for %d signal samples", ErrPhaseLengthMismatch, len(phase), n)
	}
	if n < 0 {
		n = 0
	}

	fck := p.Subcarrier()
	amp := p.Amplitude()

	c := Carriers{
		I: make([]float64, n),
		Q: make([]float64, n),
	}
	for k := range n {
		t := float64(k) / p.SampleRate

		var phi float64
		if phase != nil {
			phi = phase[k]
		}

		subCos, subSin := math.Cos(2*math.Pi*fck*t+phi), math.Sin(2*math.Pi*fck*t+phi)
		carCos, carSin := math.Cos(2*math.Pi*p.Carrier*t+phi), math.Sin(2*math.Pi*p.Carrier*t+phi)

		if mode.rectifySubcarrier() {
			subCos, subSin = math.Abs(subCos), math.Abs(subSin)
		}
		if mode.rectifyCarrier() {
			carCos, carSin = math.Abs(carCos), math.Abs(carSin)
		}

		c.I[k] = subCos * carCos / amp
		c.Q[k] = -subSin * carSin / amp
	}
	return c, nil
}
