package msk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeBits are skipped at both ends of a block where the zero-phase filters
// have not settled.
const edgeBits = 16

// repeatCodes expands 7-bit character codes into a bit stream of length n.
func repeatCodes(n int, codes ...byte) []uint8 {
	bits := make([]uint8, 0, n)
	for len(bits) < n {
		for _, c := range codes {
			for i := asciiWidth - 1; i >= 0 && len(bits) < n; i-- {
				bits = append(bits, (c>>i)&1)
			}
		}
	}
	return bits
}

// modulate builds one block of an MSK signal carrying bits. The I rail is held
// positive and the Q rail level of every bit slot is chosen so that the decoder
// reading I[k], Q[k] = slot k+1 recovers bits[k].
func modulate(p Params, bits []uint8, n int, phase float64) []float64 {
	nbit := p.SamplesPerBit()
	fck := p.Subcarrier()

	levelQ := func(slot int) float64 {
		if slot == 0 || slot-1 >= len(bits) {
			return 1
		}
		one := bits[slot-1] == 1
		if slot%2 == 1 {
			if one {
				return -1
			}
			return 1
		}
		if one {
			return 1
		}
		return -1
	}

	x := make([]float64, n)
	for k := range x {
		t := float64(k) / p.SampleRate
		sub := 2*math.Pi*fck*t + phase
		car := 2*math.Pi*p.Carrier*t + phase
		x[k] = math.Cos(sub)*math.Cos(car) - levelQ(k/nbit)*math.Sin(sub)*math.Sin(car)
	}
	return x
}

func TestDemodulate_RecoversBits(t *testing.T) {
	p := omegaParams
	n := int(p.SampleRate)
	slots := n / p.SamplesPerBit()
	bits := repeatCodes(slots, 'U')

	res, err := Demodulate(modulate(p, bits, n, 0), nil, p, Options{ExtractASCII: true})
	require.NoError(t, err)

	require.Len(t, res.SymbolsI, slots)
	require.Len(t, res.SymbolsQ, slots-1)
	require.Len(t, res.IntegratedPhase, slots-1)
	require.Len(t, res.Amplitude, slots-1)
	require.Len(t, res.Bits, slots-1)
	require.Len(t, res.ExpectedPhase, slots-1)
	assert.Nil(t, res.BasebandI)

	for k := edgeBits; k < len(res.Bits)-edgeBits; k++ {
		require.Equal(t, bits[k], res.Bits[k], "bit %d", k)
	}

	for k := edgeBits; k < len(res.ExpectedPhase)-edgeBits; k++ {
		if k%2 == 0 {
			assert.Equal(t, 0.0, res.ExpectedPhase[k], "expected phase %d", k)
		} else {
			assert.Equal(t, QuadratureThreshold(res.SymbolsQ[k]), res.ExpectedPhase[k], "expected phase %d", k)
		}
	}

	for k := edgeBits; k < len(res.IntegratedPhase)-edgeBits; k++ {
		assert.Greater(t, res.SymbolsI[k], 0.0)
		assert.Greater(t, res.Amplitude[k], 0.0)
		assert.Equal(t, math.Signbit(res.SymbolsQ[k]), math.Signbit(res.IntegratedPhase[k]), "phase %d", k)
	}

	// Middle characters are recovered intact.
	first, last := 3*asciiWidth, (len(res.Bits)/asciiWidth-3)*asciiWidth
	middle := GroupASCII(res.Bits[first:last])
	require.NotEmpty(t, middle)
	for i, c := range middle {
		assert.Equal(t, byte('U'), c, "character %d", i)
	}

	var count int
	for _, c := range res.ASCII {
		if c == 'U' {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, len(middle))
}

func TestDemodulate_SanitizesInput(t *testing.T) {
	p := omegaParams
	n := int(p.SampleRate)
	slots := n / p.SamplesPerBit()
	bits := repeatCodes(slots, 'U')

	x := modulate(p, bits, n, 0)
	x[n/2] = math.NaN()
	x[n/3] = math.Inf(1)
	x[n/4] = math.Inf(-1)

	res, err := Demodulate(x, nil, p, Options{})
	require.NoError(t, err)
	for k := edgeBits; k < len(res.Bits)-edgeBits; k++ {
		require.Equal(t, bits[k], res.Bits[k], "bit %d", k)
	}
	for _, v := range res.Amplitude {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestDemodulate_PhaseCorrection(t *testing.T) {
	p := omegaParams
	n := int(p.SampleRate)
	slots := n / p.SamplesPerBit()
	bits := repeatCodes(slots, 'U', '*')

	const offset = 0.4
	x := modulate(p, bits, n, offset)

	track := make([]float64, n)
	for i := range track {
		track[i] = offset
	}

	res, err := Demodulate(x, track, p, Options{KeepBaseband: true})
	require.NoError(t, err)
	require.Len(t, res.BasebandI, n)
	require.Len(t, res.BasebandQ, n)

	for k := edgeBits; k < len(res.Bits)-edgeBits; k++ {
		require.Equal(t, bits[k], res.Bits[k], "bit %d", k)
	}
}

func TestDemodulate_Errors(t *testing.T) {
	p := omegaParams

	_, err := Demodulate(make([]float64, 1000), make([]float64, 999), p, Options{})
	assert.ErrorIs(t, err, ErrPhaseLengthMismatch)

	_, err = Demodulate(make([]float64, 1000), nil, Params{SampleRate: 0, Carrier: 1, SymbolRate: 1}, Options{})
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestDemodulate_SilentBlock(t *testing.T) {
	p := omegaParams
	res, err := Demodulate(make([]float64, 4800), nil, p, Options{ExtractASCII: true})
	require.NoError(t, err)

	assert.Len(t, res.SymbolsI, 20)
	assert.Len(t, res.SymbolsQ, 19)
	assert.Len(t, res.Bits, 19)
	for _, a := range res.Amplitude {
		assert.Zero(t, a)
	}
}

func TestIntegrate(t *testing.T) {
	x := []float64{1, 1, 2, 2, 3, 3, 4}

	assert.Equal(t, []float64{1, 2, 3}, Integrate(x, 2, 0))
	assert.Equal(t, []float64{2, 3}, Integrate(x, 2, 1))
	assert.Empty(t, Integrate(x, 2, 3))
	assert.Empty(t, Integrate(x, 8, 0))
	assert.Nil(t, Integrate(x, 0, 0))
}
