package dsp

import (
	"errors"
	"fmt"
)

const (
	// DefaultOrder is the Butterworth order used by every filter of the receive chain.
	DefaultOrder = 5

	// EsfericsCutoff is the high-pass corner that rejects lightning impulses (sferics)
	// below the VLF transmitter band.
	EsfericsCutoff = 12_000.0
)

// ErrInvalidSpec is returned when a filter cannot be designed from the given parameters.
var ErrInvalidSpec = errors.New("invalid filter spec")

// Kind selects the filter response.
type Kind int

const (
	LowPass Kind = iota
	HighPass
	BandPass
)

func (k Kind) String() string {
	switch k {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case BandPass:
		return "bandpass"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Spec describes a digital Butterworth filter. High is the cutoff of low-pass and
// high-pass filters; Low is only used by band-pass filters.
type Spec struct {
	Kind       Kind
	Low        float64 // Hz
	High       float64 // Hz
	SampleRate float64 // Hz
	Order      int
}

// Section is one biquad of a cascade, in transposed direct form II.
// A[0] is always 1. First-order sections have B[2] == A[2] == 0.
type Section struct {
	B [3]float64
	A [3]float64
}

// Coeffs is a designed filter expressed as a cascade of second-order sections.
type Coeffs struct {
	Spec     Spec
	Sections []Section
	order    int
}

// TransferFunction expands the cascade into single feed-forward (b) and
// feedback (a) polynomials in z^-1.
func (c Coeffs) TransferFunction() (b, a []float64) {
	b = []float64{1}
	a = []float64{1}
	for _, s := range c.Sections {
		b = polyMul(b, s.B[:])
		a = polyMul(a, s.A[:])
	}
	if n := c.order + 1; n > 0 && n < len(b) {
		b, a = b[:n], a[:n]
	}
	return b, a
}

// Design builds a Butterworth filter for the given spec.
func Design(spec Spec) (Coeffs, error) {
	if err := spec.validate(); err != nil {
		return Coeffs{}, err
	}

	nyquist := spec.SampleRate / 2
	z, p, k := buttap(spec.Order)

	switch spec.Kind {
	case LowPass:
		z, p, k = lp2lp(z, p, k, prewarp(spec.High/nyquist))
	case HighPass:
		z, p, k = lp2hp(z, p, k, prewarp(spec.High/nyquist))
	case BandPass:
		lo, hi := prewarp(spec.Low/nyquist), prewarp(spec.High/nyquist)
		z, p, k = lp2bp(z, p, k, lo, hi)
	}

	z, p, k = bilinear(z, p, k)

	return Coeffs{
		Spec:     spec,
		Sections: zpk2sos(z, p, k),
		order:    len(p),
	}, nil
}

func (s Spec) validate() error {
	if s.Order < 1 {
		return fmt.Errorf("%w: order must be at least 1, %d given", ErrInvalidSpec, s.Order)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, %f given", ErrInvalidSpec, s.SampleRate)
	}

	nyquist := s.SampleRate / 2
	inRange := func(name string, f float64) error {
		if wn := f / nyquist; !(wn > 0 && wn < 1) {
			return fmt.Errorf("%w: %s cutoff %0.2fHz is outside (0, %0.2fHz)", ErrInvalidSpec, name, f, nyquist)
		}
		return nil
	}

	switch s.Kind {
	case LowPass, HighPass:
		return inRange("high", s.High)

	case BandPass:
		if err := inRange("low", s.Low); err != nil {
			return err
		}
		if err := inRange("high", s.High); err != nil {
			return err
		}
		if s.Low >= s.High {
			return fmt.Errorf("%w: low cutoff %0.2fHz must be below high cutoff %0.2fHz", ErrInvalidSpec, s.Low, s.High)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown filter kind %s", ErrInvalidSpec, s.Kind)
	}
}

// BandPassSpec returns the band-pass filter isolating an MSK carrier: Fc ± Rs/2.
func BandPassSpec(carrier, symbolRate, sampleRate float64) Spec {
	return Spec{
		Kind:       BandPass,
		Low:        carrier - symbolRate/2,
		High:       carrier + symbolRate/2,
		SampleRate: sampleRate,
		Order:      DefaultOrder,
	}
}

// EsfericsHighPassSpec returns the fixed 12 kHz high-pass filter.
func EsfericsHighPassSpec(sampleRate float64) Spec {
	return Spec{
		Kind:       HighPass,
		High:       EsfericsCutoff,
		SampleRate: sampleRate,
		Order:      DefaultOrder,
	}
}

// BasebandLowPassSpec returns the low-pass filter recovering the baseband after
// mixing, with cutoff equal to the symbol rate.
func BasebandLowPassSpec(symbolRate, sampleRate float64) Spec {
	return Spec{
		Kind:       LowPass,
		High:       symbolRate,
		SampleRate: sampleRate,
		Order:      DefaultOrder,
	}
}

func polyMul(x, y []float64) []float64 {
	out := make([]float64, len(x)+len(y)-1)
	for i, xv := range x {
		for j, yv := range y {
			out[i+j] += xv * yv
		}
	}
	return out
}
