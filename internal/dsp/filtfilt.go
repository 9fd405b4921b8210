package dsp

// sectionState is the two-element delay line of a transposed direct form II biquad.
type sectionState [2]float64

// process runs x through the cascade in place, updating zi.
func process(sections []Section, zi []sectionState, x []float64) {
	for i, s := range sections {
		z := zi[i]
		b0, b1, b2 := s.B[0], s.B[1], s.B[2]
		a1, a2 := s.A[1], s.A[2]

		for n, in := range x {
			out := b0*in + z[0]
			z[0] = b1*in - a1*out + z[1]
			z[1] = b2*in - a2*out
			x[n] = out
		}
		zi[i] = z
	}
}

// steadyState returns per-section delay lines matching a unit step that has
// been applied forever, each scaled by the DC gain of the sections before it.
func steadyState(sections []Section) []sectionState {
	zi := make([]sectionState, len(sections))
	scale := 1.0

	for i, s := range sections {
		sumB := s.B[0] + s.B[1] + s.B[2]
		sumA := s.A[0] + s.A[1] + s.A[2]
		g := sumB / sumA

		zi[i] = sectionState{
			scale * (g - s.B[0]),
			scale * (s.B[2] - s.A[2]*g),
		}
		scale *= g
	}
	return zi
}

func scaledState(zi []sectionState, f float64) []sectionState {
	out := make([]sectionState, len(zi))
	for i, z := range zi {
		out[i] = sectionState{z[0] * f, z[1] * f}
	}
	return out
}

// padLength is the odd-extension length used at each edge of the signal.
func padLength(sections []Section) int {
	taps := 2*len(sections) + 1

	var b2Zero, a2Zero int
	for _, s := range sections {
		if s.B[2] == 0 {
			b2Zero++
		}
		if s.A[2] == 0 {
			a2Zero++
		}
	}
	return 3 * (taps - min(b2Zero, a2Zero))
}

// Filter applies the cascade once, causally, starting from rest.
func (c Coeffs) Filter(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	process(c.Sections, make([]sectionState, len(c.Sections)), out)
	return out
}

// FiltFilt applies the cascade forward and then backward so the result has
// zero phase distortion. Both edges are extended by odd reflection and each
// pass starts from steady-state conditions. The output has the same length as x.
// Signals shorter than the default padding are padded with len(x)-1 samples.
func FiltFilt(c Coeffs, x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}
	if len(c.Sections) == 0 {
		out := make([]float64, n)
		copy(out, x)
		return out
	}

	edge := min(padLength(c.Sections), n-1)
	ext := oddExtend(x, edge)
	zi := steadyState(c.Sections)

	process(c.Sections, scaledState(zi, ext[0]), ext)

	reverse(ext)
	process(c.Sections, scaledState(zi, ext[0]), ext)
	reverse(ext)

	out := make([]float64, n)
	copy(out, ext[edge:edge+n])
	return out
}

func oddExtend(x []float64, edge int) []float64 {
	n := len(x)
	ext := make([]float64, 0, n+2*edge)

	first, last := x[0], x[n-1]
	for i := edge; i > 0; i-- {
		ext = append(ext, 2*first-x[i])
	}
	ext = append(ext, x...)
	for i := n - 2; i >= n-1-edge; i-- {
		ext = append(ext, 2*last-x[i])
	}
	return ext
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
