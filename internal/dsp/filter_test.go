package dsp

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// response evaluates the cascade at a normalised frequency (1 = Nyquist).
func response(c Coeffs, wn float64) complex128 {
	w := math.Pi * wn
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1

	h := complex(1, 0)
	for _, s := range c.Sections {
		num := complex(s.B[0], 0) + complex(s.B[1], 0)*z1 + complex(s.B[2], 0)*z2
		den := complex(s.A[0], 0) + complex(s.A[1], 0)*z1 + complex(s.A[2], 0)*z2
		h *= num / den
	}
	return h
}

func TestDesign_InvalidSpec(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"zero cutoff", Spec{Kind: LowPass, High: 0, SampleRate: 1000, Order: 5}},
		{"cutoff at nyquist", Spec{Kind: HighPass, High: 500, SampleRate: 1000, Order: 5}},
		{"cutoff above nyquist", Spec{Kind: LowPass, High: 700, SampleRate: 1000, Order: 5}},
		{"negative cutoff", Spec{Kind: HighPass, High: -10, SampleRate: 1000, Order: 5}},
		{"band low above high", Spec{Kind: BandPass, Low: 300, High: 200, SampleRate: 1000, Order: 5}},
		{"band low equals high", Spec{Kind: BandPass, Low: 200, High: 200, SampleRate: 1000, Order: 5}},
		{"band low zero", Spec{Kind: BandPass, Low: 0, High: 200, SampleRate: 1000, Order: 5}},
		{"order zero", Spec{Kind: LowPass, High: 100, SampleRate: 1000, Order: 0}},
		{"sample rate zero", Spec{Kind: LowPass, High: 100, SampleRate: 0, Order: 5}},
		{"unknown kind", Spec{Kind: Kind(42), High: 100, SampleRate: 1000, Order: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Design(tt.spec)
			require.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestDesign_SecondOrderLowPass(t *testing.T) {
	c, err := Design(Spec{Kind: LowPass, High: 250, SampleRate: 1000, Order: 2})
	require.NoError(t, err)

	b, a := c.TransferFunction()
	require.Len(t, b, 3)
	require.Len(t, a, 3)

	// Butterworth order 2 at half Nyquist.
	wantB := []float64{0.29289321881345254, 0.5857864376269051, 0.29289321881345254}
	wantA := []float64{1, 0, 0.17157287525380988}
	for i := range wantB {
		assert.InDelta(t, wantB[i], b[i], 1e-12, "b[%d]", i)
		assert.InDelta(t, wantA[i], a[i], 1e-12, "a[%d]", i)
	}
}

func TestDesign_Responses(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		pass    float64 // normalised frequency with unity gain
		stop    float64 // normalised frequency with no gain
		corners []float64
		taps    int
	}{
		{
			name:    "lowpass",
			spec:    Spec{Kind: LowPass, High: 100, SampleRate: 1000, Order: 5},
			pass:    0,
			stop:    1,
			corners: []float64{0.2},
			taps:    6,
		},
		{
			name:    "highpass",
			spec:    EsfericsHighPassSpec(96_000),
			pass:    1,
			stop:    0,
			corners: []float64{0.25},
			taps:    6,
		},
		{
			name:    "baseband lowpass",
			spec:    BasebandLowPassSpec(200, 96_000),
			pass:    0,
			stop:    1,
			corners: []float64{200.0 / 48_000},
			taps:    6,
		},
		{
			name:    "bandpass",
			spec:    BandPassSpec(1000, 400, 8000),
			pass:    centreFrequency(800.0/4000, 1200.0/4000),
			stop:    0,
			corners: []float64{800.0 / 4000, 1200.0 / 4000},
			taps:    11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Design(tt.spec)
			require.NoError(t, err)

			assert.InDelta(t, 1, cmplx.Abs(response(c, tt.pass)), 1e-6, "pass band gain")
			assert.InDelta(t, 0, cmplx.Abs(response(c, tt.stop)), 1e-6, "stop band gain")
			for _, wn := range tt.corners {
				assert.InDelta(t, 1/math.Sqrt2, cmplx.Abs(response(c, wn)), 1e-6, "corner gain at %f", wn)
			}

			b, a := c.TransferFunction()
			assert.Len(t, b, tt.taps)
			assert.Len(t, a, tt.taps)
			assert.InDelta(t, 1, a[0], 1e-15)
		})
	}
}

// centreFrequency is the digital frequency of a band-pass peak, the image of
// the geometric mean of the prewarped band edges.
func centreFrequency(lo, hi float64) float64 {
	wo := math.Sqrt(prewarp(lo) * prewarp(hi))
	return 2 / math.Pi * math.Atan(wo/(2*bilinearRate))
}

func TestDesign_StableSections(t *testing.T) {
	specs := []Spec{
		BandPassSpec(21_400, 200, 96_000),
		BasebandLowPassSpec(200, 96_000),
		EsfericsHighPassSpec(96_000),
		{Kind: LowPass, High: 30, SampleRate: 1000, Order: 8},
		{Kind: HighPass, High: 300, SampleRate: 1000, Order: 1},
	}
	for _, spec := range specs {
		c, err := Design(spec)
		require.NoError(t, err)
		require.NotEmpty(t, c.Sections)

		for i, s := range c.Sections {
			assert.Equal(t, 1.0, s.A[0])
			assert.Less(t, math.Abs(s.A[2]), 1.0, "%s section %d", spec.Kind, i)
			assert.Less(t, math.Abs(s.A[1]), 1+s.A[2], "%s section %d", spec.Kind, i)
		}
	}
}

func TestDesign_OddOrderHasFirstOrderSection(t *testing.T) {
	c, err := Design(Spec{Kind: LowPass, High: 100, SampleRate: 1000, Order: 5})
	require.NoError(t, err)
	require.Len(t, c.Sections, 3)

	var firstOrder int
	for _, s := range c.Sections {
		if s.A[2] == 0 && s.B[2] == 0 {
			firstOrder++
		}
	}
	assert.Equal(t, 1, firstOrder)
	assert.Equal(t, 3*(7-1), padLength(c.Sections))
}
