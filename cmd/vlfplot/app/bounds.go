package app

import (
	"math"
	"slices"
)

const (
	lowerPercentile = 0.05
	upperPercentile = 0.95

	// For 20 samples:
	// - 5% percentile  = 1 sample
	// - 95% percentile = 19th sample
	minimumSampleCount = 20
)

// Bounds is the value range of a plot panel.
type Bounds struct {
	Min  float64
	Max  float64
	Mean float64
}

// Span returns Max - Min.
func (b Bounds) Span() float64 {
	return b.Max - b.Min
}

// PercentileBounds returns the 5th to 95th percentile range of values widened
// to at least minSpan and padded by a 10% margin. Fewer than
// minimumSampleCount values use the full range instead. Non-finite values are
// ignored.
func PercentileBounds(values []float64, minSpan float64) Bounds {
	sorted := make([]float64, 0, len(values))
	var sum float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sorted = append(sorted, v)
		sum += v
	}
	if len(sorted) == 0 {
		return Bounds{Min: -minSpan / 2, Max: minSpan / 2}
	}
	slices.Sort(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if len(sorted) >= minimumSampleCount {
		lo = sorted[int(lowerPercentile*float64(len(sorted)-1))]
		hi = sorted[int(math.Ceil(upperPercentile*float64(len(sorted)-1)))]
	}

	// Ensure minimum range
	if hi-lo < minSpan {
		center := (hi + lo) / 2
		lo, hi = center-minSpan/2, center+minSpan/2
	}

	margin := (hi - lo) / 10
	return Bounds{
		Min:  lo - margin,
		Max:  hi + margin,
		Mean: sum / float64(len(sorted)),
	}
}
