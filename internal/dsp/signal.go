package dsp

import "math"

// Sanitize returns a copy of x with NaN and ±Inf replaced by zero.
func Sanitize(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = v
	}
	return out
}

// Unwrap removes 2π jumps between consecutive phase samples, keeping the first
// sample unchanged.
func Unwrap(phase []float64) []float64 {
	out := make([]float64, len(phase))
	var u Unwrapper
	for i, v := range phase {
		out[i] = u.Next(v)
	}
	return out
}

// Unwrapper is the streaming form of Unwrap. The zero value is ready to use.
type Unwrapper struct {
	prev       float64
	correction float64
	started    bool
}

// Next returns x shifted by the accumulated multiple of 2π.
func (u *Unwrapper) Next(x float64) float64 {
	if u.started {
		u.correction += unwrapStep(x - u.prev)
	}
	u.prev, u.started = x, true
	return x + u.correction
}

// unwrapStep returns the multiple of 2π to add to a jump d.
func unwrapStep(d float64) float64 {
	if math.Abs(d) < math.Pi {
		return 0
	}
	m := math.Mod(d+math.Pi, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	m -= math.Pi
	if m == -math.Pi && d > 0 {
		m = math.Pi
	}
	return m - d
}

// WrapPhase folds an angle into (-π, π].
func WrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x <= 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

// Smooth applies single-pole exponential smoothing seeded with the first sample:
// y[0] = x[0], y[n] = alpha*x[n] + (1-alpha)*y[n-1].
func Smooth(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	s := Smoother{Alpha: alpha}
	for i, v := range x {
		out[i] = s.Next(v)
	}
	return out
}

// Smoother is the streaming form of Smooth.
type Smoother struct {
	Alpha float64

	y       float64
	started bool
}

func (s *Smoother) Next(x float64) float64 {
	if !s.started {
		s.y, s.started = x, true
		return x
	}
	s.y = s.Alpha*x + (1-s.Alpha)*s.y
	return s.y
}

// MovingAverage convolves x with a box of the given length and keeps the
// centre part of the full convolution, max(len(x), length) samples long.
func MovingAverage(x []float64, length int) []float64 {
	n := len(x)
	if n == 0 || length <= 0 {
		return []float64{}
	}

	full := make([]float64, n+length-1)
	w := 1 / float64(length)
	for i, v := range x {
		for j := range length {
			full[i+j] += v * w
		}
	}

	size := max(n, length)
	start := (min(n, length) - 1) / 2
	out := make([]float64, size)
	copy(out, full[start:start+size])
	return out
}

// RMS returns the root mean square of x, or 0 for an empty slice.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Mean returns the arithmetic mean of x, or 0 for an empty slice.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}
