package msk

import "github.com/roman-kulish/vlf-monitor/internal/dsp"

// PhaseDegrees converts a concatenated expected-phase sequence into the
// cumulative phase drift reported for the transmitter: -unwrap(φ)·360/Fc.
func PhaseDegrees(expected []float64, carrier float64) []float64 {
	return NewPhaseDrift(carrier).Add(expected)
}

// PhaseDrift is the streaming form of PhaseDegrees. Blocks of expected phase
// are added in order and the unwrap state carries between them.
type PhaseDrift struct {
	carrier float64
	unwrap  dsp.Unwrapper
}

func NewPhaseDrift(carrier float64) *PhaseDrift {
	return &PhaseDrift{carrier: carrier}
}

// Add returns the drift in degrees for the next piece of expected phase.
func (d *PhaseDrift) Add(expected []float64) []float64 {
	out := make([]float64, len(expected))
	for i, v := range expected {
		out[i] = -d.unwrap.Next(v) * 360 / d.carrier
	}
	return out
}
