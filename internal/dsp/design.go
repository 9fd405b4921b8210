package dsp

import (
	"cmp"
	"math"
	"math/cmplx"
	"slices"
)

// Designs are carried out in zeros/poles/gain form on a normalised frequency
// axis where Nyquist is 1 and the bilinear sample rate is 2.
const bilinearRate = 2.0

const realTolerance = 1e-10

// buttap returns the analog Butterworth low-pass prototype of order n.
func buttap(n int) (z, p []complex128, k float64) {
	p = make([]complex128, 0, n)
	for m := -n + 1; m < n; m += 2 {
		p = append(p, -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*n))))
	}
	return nil, p, 1
}

// prewarp maps a normalised digital cutoff to the analog frequency the
// bilinear transform will land on it.
func prewarp(wn float64) float64 {
	return 2 * bilinearRate * math.Tan(math.Pi*wn/bilinearRate)
}

func lp2lp(z, p []complex128, k, wo float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	zl := scaleRoots(z, complex(wo, 0))
	pl := scaleRoots(p, complex(wo, 0))
	return zl, pl, k * math.Pow(wo, float64(degree))
}

func lp2hp(z, p []complex128, k, wo float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	w := complex(wo, 0)

	zh := make([]complex128, 0, len(z)+degree)
	for _, r := range z {
		zh = append(zh, w/r)
	}
	for range degree {
		zh = append(zh, 0)
	}

	ph := make([]complex128, 0, len(p))
	for _, r := range p {
		ph = append(ph, w/r)
	}

	return zh, ph, k * real(prodNeg(z)/prodNeg(p))
}

func lp2bp(z, p []complex128, k, lo, hi float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	bw := hi - lo
	wo2 := complex(lo*hi, 0)

	transform := func(roots []complex128) []complex128 {
		upper := make([]complex128, 0, len(roots))
		lower := make([]complex128, 0, len(roots))
		for _, r := range roots {
			r *= complex(bw/2, 0)
			d := cmplx.Sqrt(r*r - wo2)
			upper = append(upper, r+d)
			lower = append(lower, r-d)
		}
		return append(upper, lower...)
	}

	zb := transform(z)
	for range degree {
		zb = append(zb, 0)
	}

	return zb, transform(p), k * math.Pow(bw, float64(degree))
}

func bilinear(z, p []complex128, k float64) ([]complex128, []complex128, float64) {
	degree := len(p) - len(z)
	fs2 := complex(2*bilinearRate, 0)

	zd := make([]complex128, 0, len(z)+degree)
	num := complex(1, 0)
	for _, r := range z {
		zd = append(zd, (fs2+r)/(fs2-r))
		num *= fs2 - r
	}
	for range degree {
		zd = append(zd, -1)
	}

	pd := make([]complex128, 0, len(p))
	den := complex(1, 0)
	for _, r := range p {
		pd = append(pd, (fs2+r)/(fs2-r))
		den *= fs2 - r
	}

	return zd, pd, k * real(num/den)
}

// zpk2sos groups digital zeros and poles into real second-order sections.
// Conjugate pole pairs share a section, leftover real poles are paired, and an
// odd pole ends up alone in a first-order section. Sections are ordered with
// poles closest to the unit circle last.
func zpk2sos(z, p []complex128, k float64) []Section {
	poleGroups := groupRoots(p)
	slices.SortFunc(poleGroups, func(a, b []complex128) int {
		return cmp.Compare(maxAbs(a), maxAbs(b))
	})

	zeros := newZeroPool(z)

	sections := make([]Section, 0, len(poleGroups))
	for _, pg := range poleGroups {
		zg := zeros.take(len(pg))

		var s Section
		s.B = rootsToSection(zg)
		s.A = rootsToSection(pg)
		sections = append(sections, s)
	}

	// Zeros without poles can only come from malformed input; fold them in as FIR sections.
	for rest := zeros.take(2); len(rest) > 0; rest = zeros.take(2) {
		sections = append(sections, Section{B: rootsToSection(rest), A: [3]float64{1, 0, 0}})
	}

	if len(sections) == 0 {
		return []Section{{B: [3]float64{k, 0, 0}, A: [3]float64{1, 0, 0}}}
	}

	for i := range sections[0].B {
		sections[0].B[i] *= k
	}
	return sections
}

// groupRoots returns conjugate pairs as two-element groups and pairs up the
// real roots, leaving at most one single-element group.
func groupRoots(roots []complex128) [][]complex128 {
	var groups [][]complex128
	var reals []float64

	for _, r := range roots {
		switch {
		case math.Abs(imag(r)) <= realTolerance*(1+cmplx.Abs(r)):
			reals = append(reals, real(r))
		case imag(r) > 0:
			groups = append(groups, []complex128{r, cmplx.Conj(r)})
		}
	}

	slices.Sort(reals)
	for i := 0; i < len(reals); i += 2 {
		if i+1 < len(reals) {
			groups = append(groups, []complex128{complex(reals[i], 0), complex(reals[i+1], 0)})
			continue
		}
		groups = append(groups, []complex128{complex(reals[i], 0)})
	}
	return groups
}

// zeroPool hands out zeros for each pole section: conjugate pairs first, then
// real zeros alternately from the low and high end of the sorted list so that
// band-pass sections receive one zero at +1 and one at -1.
type zeroPool struct {
	pairs [][]complex128
	reals []float64
}

func newZeroPool(z []complex128) *zeroPool {
	zp := &zeroPool{}
	for _, r := range z {
		switch {
		case math.Abs(imag(r)) <= realTolerance*(1+cmplx.Abs(r)):
			zp.reals = append(zp.reals, real(r))
		case imag(r) > 0:
			zp.pairs = append(zp.pairs, []complex128{r, cmplx.Conj(r)})
		}
	}
	slices.Sort(zp.reals)
	return zp
}

func (zp *zeroPool) take(n int) []complex128 {
	if n == 2 && len(zp.pairs) > 0 {
		pair := zp.pairs[0]
		zp.pairs = zp.pairs[1:]
		return pair
	}

	out := make([]complex128, 0, n)
	for front := true; len(out) < n && len(zp.reals) > 0; front = !front {
		if front {
			out = append(out, complex(zp.reals[0], 0))
			zp.reals = zp.reals[1:]
		} else {
			last := len(zp.reals) - 1
			out = append(out, complex(zp.reals[last], 0))
			zp.reals = zp.reals[:last]
		}
	}
	return out
}

// rootsToSection expands (1 - r1 z^-1)(1 - r2 z^-1) into coefficients.
func rootsToSection(roots []complex128) [3]float64 {
	switch len(roots) {
	case 0:
		return [3]float64{1, 0, 0}
	case 1:
		return [3]float64{1, -real(roots[0]), 0}
	default:
		r1, r2 := roots[0], roots[1]
		return [3]float64{1, -real(r1 + r2), real(r1 * r2)}
	}
}

func scaleRoots(roots []complex128, f complex128) []complex128 {
	out := make([]complex128, len(roots))
	for i, r := range roots {
		out[i] = r * f
	}
	return out
}

func prodNeg(roots []complex128) complex128 {
	prod := complex(1, 0)
	for _, r := range roots {
		prod *= -r
	}
	return prod
}

func maxAbs(roots []complex128) float64 {
	var m float64
	for _, r := range roots {
		m = max(m, cmplx.Abs(r))
	}
	return m
}
