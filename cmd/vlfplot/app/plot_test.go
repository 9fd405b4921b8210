package app

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileBounds(t *testing.T) {
	ramp := make([]float64, 100)
	for i := range ramp {
		ramp[i] = float64(99 - i)
	}

	tests := []struct {
		name    string
		values  []float64
		minSpan float64
		want    Bounds
	}{
		{"empty", nil, 10, Bounds{Min: -5, Max: 5}},
		{"percentiles", ramp, 1, Bounds{Min: -5.1, Max: 104.1, Mean: 49.5}},
		{"minimum span", []float64{3, 3, 3}, 10, Bounds{Min: -3, Max: 9, Mean: 3}},
		{"non-finite ignored", []float64{math.NaN(), 1, math.Inf(1), 3}, 1, Bounds{Min: 0.8, Max: 3.2, Mean: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentileBounds(tt.values, tt.minSpan)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.want.Max, got.Max, 1e-9)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-9)
		})
	}
}

func TestTrace_Update(t *testing.T) {
	tr := NewTrace("phase_deg", "deg", 10, 5)
	tr.Update([]float64{0, 1, 2, 3})
	tr.Update([]float64{4, math.NaN(), 6, 7, 8, 9})

	require.Len(t, tr.Columns, 5)
	assert.Equal(t, Column{Min: 0, Max: 1, Mean: 0.5, Count: 2}, tr.Columns[0])
	assert.Equal(t, Column{Min: 4, Max: 4, Mean: 4, Count: 1}, tr.Columns[2])
	assert.Equal(t, Column{Min: 8, Max: 9, Mean: 8.5, Count: 2}, tr.Columns[4])
	assert.Equal(t, []float64{0.5, 2.5, 4, 6.5, 8.5}, tr.Values())
}

func TestTrace_Sparse(t *testing.T) {
	tr := NewTrace("amplitude_db", "dB", 3, 6)
	tr.Update([]float64{-40, -41, -42})

	assert.Equal(t, 1, tr.Columns[0].Count)
	assert.Zero(t, tr.Columns[1].Count)
	assert.Equal(t, 1, tr.Columns[4].Count)
	assert.Equal(t, []float64{-40, -41, -42}, tr.Values())
}

func TestNiceSteps(t *testing.T) {
	assert.InDelta(t, 20, niceStep(45, 3), 1e-12)
	assert.InDelta(t, 0.5, niceStep(0.9, 3), 1e-12)
	assert.InDelta(t, 1, niceStep(0, 3), 1e-12)

	assert.Equal(t, 3.0, calculateNiceHourStep(1440))
	assert.Equal(t, 6.0, calculateNiceHourStep(600))
	assert.Equal(t, 12.0, calculateNiceHourStep(100))
}

func TestTraceColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, A: 255}, traceColor(0, 1, 1))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, traceColor(120, 1, 1))
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, traceColor(100, 0, 0.5))
	assert.NotEqual(t, amplitudeColor, phaseColor)
}
