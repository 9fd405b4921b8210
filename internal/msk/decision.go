package msk

import "math"

// Decision is one recovered bit with the phase the decoder expected for it.
type Decision struct {
	Bit      uint8
	Expected float64 // Th0 on even symbols, ThPI on odd symbols
}

type octantPair [2]float64

// octantBits maps the ordered threshold pair of a symbol to its bit. Pairs
// missing from the table are not valid MSK transitions.
var octantBits = map[octantPair]uint8{
	{0, math.Pi / 2}:        1,
	{math.Pi / 2, 0}:        0,
	{math.Pi / 2, math.Pi}:  1,
	{math.Pi, math.Pi / 2}:  0,
	{0, -math.Pi / 2}:       0,
	{-math.Pi / 2, 0}:       1,
	{-math.Pi / 2, math.Pi}: 0,
	{math.Pi, -math.Pi / 2}: 1,
}

// Lookup returns the bit for an ordered pair of threshold angles, and false
// when the pair is not one of the eight valid octant combinations.
func Lookup(first, second float64) (uint8, bool) {
	bit, ok := octantBits[octantPair{first, second}]
	return bit, ok
}

// InPhaseThreshold is Th0: 0 when the integrated I symbol is positive, π otherwise.
func InPhaseThreshold(i float64) float64 {
	if i > 0 {
		return 0
	}
	return math.Pi
}

// QuadratureThreshold is ThPI: -π/2 when the integrated Q symbol is positive, π/2 otherwise.
func QuadratureThreshold(q float64) float64 {
	if q > 0 {
		return -math.Pi / 2
	}
	return math.Pi / 2
}

// EvenDecision decides an even symbol from I[k] and Q[k] using the pair (Th0, ThPI).
func EvenDecision(i, q float64) (Decision, bool) {
	th0, thPI := InPhaseThreshold(i), QuadratureThreshold(q)
	bit, ok := Lookup(th0, thPI)
	return Decision{Bit: bit, Expected: th0}, ok
}

// OddDecision decides an odd symbol from I[k+1] and Q[k] using the pair (ThPI, Th0).
func OddDecision(nextI, q float64) (Decision, bool) {
	th0, thPI := InPhaseThreshold(nextI), QuadratureThreshold(q)
	bit, ok := Lookup(thPI, th0)
	return Decision{Bit: bit, Expected: thPI}, ok
}

// Decide walks the integrated symbol sequences and returns every valid
// decision in order. Symbols whose threshold pair has no mapping are skipped,
// so the result can be shorter than the symbol count.
func Decide(symbolsI, symbolsQ []float64) []Decision {
	n := min(len(symbolsI)-1, len(symbolsQ))
	if n <= 0 {
		return nil
	}

	decisions := make([]Decision, 0, n)
	for k := range n {
		var d Decision
		var ok bool
		if k%2 == 0 {
			d, ok = EvenDecision(symbolsI[k], symbolsQ[k])
		} else {
			d, ok = OddDecision(symbolsI[k+1], symbolsQ[k])
		}
		if ok {
			decisions = append(decisions, d)
		}
	}
	return decisions
}
