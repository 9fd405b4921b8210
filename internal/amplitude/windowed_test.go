package amplitude

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowed(t *testing.T) {
	amp := []float64{2, 2, 2, 2, 3, 3, 3, 3, 9, 9}

	got := Windowed(amp, 4, WindowEpsilon, DefaultReference)
	require.Len(t, got, 2)
	assert.InDelta(t, -20*math.Log10(2/DefaultReference), got[0], 1e-9)
	assert.InDelta(t, -20*math.Log10(3/DefaultReference), got[1], 1e-9)

	assert.Empty(t, Windowed(amp[:3], 4, WindowEpsilon, DefaultReference))
}

func TestWindowed_EpsilonFloor(t *testing.T) {
	got := Windowed(make([]float64, 8), 8, WindowEpsilon, DefaultReference)
	require.Len(t, got, 1)
	assert.InDelta(t, -20*math.Log10(WindowEpsilon/DefaultReference), got[0], 1e-9)
	assert.False(t, math.IsInf(got[0], 0))
}

func TestWindower_Pieces(t *testing.T) {
	amp := make([]float64, 103)
	for i := range amp {
		amp[i] = 1 + math.Sin(float64(i))
	}
	want := Windowed(amp, 10, WindowEpsilon, DefaultReference)

	w := NewWindower(10, WindowEpsilon, DefaultReference)
	var got []float64
	for _, piece := range [][]float64{amp[:7], amp[7:7], amp[7:31], amp[31:99], amp[99:]} {
		got = append(got, w.Add(piece)...)
	}

	assert.InDeltaSlice(t, want, got, 1e-12)
	assert.Equal(t, 3, w.Pending())
}
