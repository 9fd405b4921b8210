package amplitude

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/vlf-monitor/internal/msk"
	"github.com/roman-kulish/vlf-monitor/internal/source"
)

var testParams = msk.Params{SampleRate: 8_000, Carrier: 1_000, SymbolRate: 400}

// passbandCentre is the frequency of unity gain of the Fc ± Rs/2 band-pass
// after the bilinear transform.
func passbandCentre(p msk.Params) float64 {
	lo := math.Tan(math.Pi * (p.Carrier - p.SymbolRate/2) / p.SampleRate)
	hi := math.Tan(math.Pi * (p.Carrier + p.SymbolRate/2) / p.SampleRate)
	return p.SampleRate / math.Pi * math.Atan(math.Sqrt(lo*hi))
}

func sine(amp, freq, fs float64, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return x
}

func TestEstimator_Block(t *testing.T) {
	e, err := NewEstimator(testParams)
	require.NoError(t, err)

	f0 := passbandCentre(testParams)
	for _, amp := range []float64{1e-3, 0.25} {
		db, err := e.Block(sine(amp, f0, testParams.SampleRate, 4*int(testParams.SampleRate)))
		require.NoError(t, err)

		want := -20 * math.Log10(amp/math.Sqrt2/DefaultReference)
		assert.InDelta(t, want, db, 1e-3, "amplitude %g", amp)
	}
}

func TestEstimator_EpsilonFloor(t *testing.T) {
	e, err := NewEstimator(testParams)
	require.NoError(t, err)

	floor := -20 * math.Log10(DefaultEpsilon/DefaultReference)

	db, err := e.Block(make([]float64, 1000))
	require.NoError(t, err)
	assert.InDelta(t, floor, db, 1e-9)

	db, err = e.Block(sine(1e-15, 1000, testParams.SampleRate, 8000))
	require.NoError(t, err)
	assert.InDelta(t, floor, db, 1e-9)

	e, err = NewEstimator(testParams, WithEpsilon(1e-3), WithReference(1))
	require.NoError(t, err)
	db, err = e.Block(sine(1e-5, 1000, testParams.SampleRate, 8000))
	require.NoError(t, err)
	assert.InDelta(t, 60, db, 1e-9)
}

func TestEstimator_BlockErrors(t *testing.T) {
	e, err := NewEstimator(testParams)
	require.NoError(t, err)

	_, err = e.Block(nil)
	assert.ErrorIs(t, err, ErrEmptyBlock)

	_, err = NewEstimator(msk.Params{SampleRate: 8_000, Carrier: 3_900, SymbolRate: 400})
	assert.Error(t, err)

	_, err = NewEstimator(testParams, WithEpsilon(0))
	assert.Error(t, err)
}

func TestEstimator_Estimate(t *testing.T) {
	src, err := source.NewSliceSource(make([]float64, 3*8000+10), 8000)
	require.NoError(t, err)

	e, err := NewEstimator(testParams, WithSmoothing(false))
	require.NoError(t, err)

	levels, err := e.Estimate(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	for _, db := range levels {
		assert.InDelta(t, -20*math.Log10(DefaultEpsilon/DefaultReference), db, 1e-9)
	}

	// Three blocks do not survive the smoothing trim.
	require.NoError(t, src.Reset())
	e, err = NewEstimator(testParams)
	require.NoError(t, err)
	levels, err = e.Estimate(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestEstimator_EstimateCancelled(t *testing.T) {
	src, err := source.NewSliceSource(make([]float64, 8000), 8000)
	require.NoError(t, err)

	e, err := NewEstimator(testParams)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Estimate(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSmooth(t *testing.T) {
	db := make([]float64, 300)
	for i := range db {
		db[i] = 42
	}

	got := Smooth(db, 200)
	require.Len(t, got, 150)
	for i, v := range got {
		assert.InDelta(t, 42, v, 1e-9, "sample %d", i)
	}

	// Odd symbol rates trim ceil(Rs/4) from the end.
	assert.Len(t, Smooth(make([]float64, 300), 202), 300-101-51)

	assert.Empty(t, Smooth(make([]float64, 100), 200))
	assert.Empty(t, Smooth(db, 1))
}
