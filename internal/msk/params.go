package msk

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrPhaseLengthMismatch is returned when a phase correction track does not
	// cover exactly one block.
	ErrPhaseLengthMismatch = errors.New("phase track length does not match block length")

	// ErrInvalidParams is returned for non-positive rates or a symbol period
	// shorter than one sample.
	ErrInvalidParams = errors.New("invalid MSK parameters")
)

// Params describes the received MSK signal.
type Params struct {
	SampleRate float64 // Fs, Hz
	Carrier    float64 // Fc, Hz
	SymbolRate float64 // Rs, baud
}

// BitRate is Rb = 2·Rs.
func (p Params) BitRate() float64 {
	return 2 * p.SymbolRate
}

// BitPeriod is Tb = 1/Rb.
func (p Params) BitPeriod() float64 {
	return 1 / p.BitRate()
}

// SamplesPerBit is N_bit = floor(Fs·Tb).
func (p Params) SamplesPerBit() int {
	return int(p.SampleRate * p.BitPeriod())
}

// Subcarrier is Fck = 1/(4·Tb), the MSK half-sinusoid shaping frequency.
func (p Params) Subcarrier() float64 {
	return 1 / (4 * p.BitPeriod())
}

// Amplitude is the carrier normalisation A = sqrt(1/(2·Ts/2))/4 = sqrt(Rs)/4.
func (p Params) Amplitude() float64 {
	return math.Sqrt(1/(2*(1/(2*p.SymbolRate)))) / 4
}

func (p Params) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, %f given", ErrInvalidParams, p.SampleRate)
	case p.Carrier <= 0:
		return fmt.Errorf("%w: carrier must be positive, %f given", ErrInvalidParams, p.Carrier)
	case p.SymbolRate <= 0:
		return fmt.Errorf("%w: symbol rate must be positive, %f given", ErrInvalidParams, p.SymbolRate)
	case p.SamplesPerBit() < 1:
		return fmt.Errorf("%w: bit period shorter than one sample (Fs=%f, Rb=%f)", ErrInvalidParams, p.SampleRate, p.BitRate())
	}
	return nil
}
