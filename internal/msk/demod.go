package msk

import (
	"fmt"
	"math"

	"github.com/roman-kulish/vlf-monitor/internal/dsp"
)

// Options tune a single demodulation call.
type Options struct {
	TestMode     TestMode
	ExtractASCII bool
	KeepBaseband bool // retain the filtered I/Q rails in the result
}

// Result is the outcome of demodulating one block.
type Result struct {
	Bits            []uint8
	ASCII           []byte
	ExpectedPhase   []float64 // one per recovered bit
	IntegratedPhase []float64 // atan2(Q, I) per symbol pair
	Amplitude       []float64 // sqrt(I² + Q²) per symbol pair
	SymbolsI        []float64
	SymbolsQ        []float64

	BasebandI []float64
	BasebandQ []float64
}

// Demodulate recovers bits, phase and amplitude from one block of samples.
// phase is an optional per-sample correction track (radians) applied to both
// reference oscillators; nil disables correction.
//
// The block is sanitised, high-passed at 12 kHz, mixed with the I/Q references,
// low-passed at Rs and scaled by 2, then integrated over N_bit samples per
// symbol. The Q rail is integrated one bit slot late to model the MSK offset.
func Demodulate(block, phase []float64, p Params, opts Options) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := len(block)
	if phase != nil {
		phase = dsp.Sanitize(phase)
	}
	carriers, err := Synthesize(p, n, phase, opts.TestMode)
	if err != nil {
		return nil, fmt.Errorf("synthesizing carriers: %w", err)
	}

	highPass, err := dsp.Design(dsp.EsfericsHighPassSpec(p.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("designing high-pass filter: %w", err)
	}
	lowPass, err := dsp.Design(dsp.BasebandLowPassSpec(p.SymbolRate, p.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("designing low-pass filter: %w", err)
	}

	filtered := dsp.FiltFilt(highPass, dsp.Sanitize(block))

	mixedI := make([]float64, n)
	mixedQ := make([]float64, n)
	for k, v := range filtered {
		mixedI[k] = v * carriers.I[k]
		mixedQ[k] = v * carriers.Q[k]
	}

	basebandI := scale(dsp.FiltFilt(lowPass, mixedI), 2)
	basebandQ := scale(dsp.FiltFilt(lowPass, mixedQ), 2)

	nbit := p.SamplesPerBit()
	res := &Result{
		SymbolsI: Integrate(basebandI, nbit, 0),
		SymbolsQ: Integrate(basebandQ, nbit, 1),
	}

	pairs := min(len(res.SymbolsI), len(res.SymbolsQ))
	res.IntegratedPhase = make([]float64, pairs)
	res.Amplitude = make([]float64, pairs)
	for k := range pairs {
		i, q := res.SymbolsI[k], res.SymbolsQ[k]
		res.IntegratedPhase[k] = math.Atan2(q, i)
		res.Amplitude[k] = math.Hypot(i, q)
	}

	decisions := Decide(res.SymbolsI, res.SymbolsQ)
	res.Bits = make([]uint8, len(decisions))
	res.ExpectedPhase = make([]float64, len(decisions))
	for k, d := range decisions {
		res.Bits[k] = d.Bit
		res.ExpectedPhase[k] = d.Expected
	}

	if opts.ExtractASCII {
		res.ASCII = GroupASCII(res.Bits)
	}
	if opts.KeepBaseband {
		res.BasebandI, res.BasebandQ = basebandI, basebandQ
	}

	return res, nil
}

// Integrate averages x over consecutive windows of nbit samples, starting at
// window index start. Trailing samples that do not fill a window are ignored.
func Integrate(x []float64, nbit, start int) []float64 {
	if nbit <= 0 {
		return nil
	}

	windows := len(x) / nbit
	if start >= windows {
		return []float64{}
	}

	out := make([]float64, 0, windows-start)
	for k := start; k < windows; k++ {
		out = append(out, dsp.Mean(x[k*nbit:(k+1)*nbit]))
	}
	return out
}

func scale(x []float64, f float64) []float64 {
	for i := range x {
		x[i] *= f
	}
	return x
}
