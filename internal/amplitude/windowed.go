package amplitude

import "github.com/roman-kulish/vlf-monitor/internal/dsp"

// Demodulator amplitude post-processing defaults.
const (
	WindowEpsilon = 1e-6
	WindowSeconds = 60
)

// Windower reduces the per-symbol demodulator amplitude to one dB value per
// window of consecutive symbols. Values may be added in pieces of any size.
type Windower struct {
	size      int
	epsilon   float64
	reference float64

	pending []float64
}

// NewWindower returns a Windower over windows of size symbols. A window of one
// minute at bit rate Rb is Rb·60 symbols.
func NewWindower(size int, eps, ref float64) *Windower {
	return &Windower{
		size:      max(size, 1),
		epsilon:   eps,
		reference: ref,
		pending:   make([]float64, 0, max(size, 1)),
	}
}

// Add appends amplitudes and returns the dB value of every window completed by
// them.
func (w *Windower) Add(amp []float64) []float64 {
	var out []float64
	for len(amp) > 0 {
		n := min(w.size-len(w.pending), len(amp))
		w.pending = append(w.pending, amp[:n]...)
		amp = amp[n:]

		if len(w.pending) == w.size {
			out = append(out, toDB(dsp.RMS(w.pending), w.epsilon, w.reference))
			w.pending = w.pending[:0]
		}
	}
	return out
}

// Pending returns the number of amplitudes waiting for their window to fill.
func (w *Windower) Pending() int {
	return len(w.pending)
}

// Windowed converts a whole amplitude sequence, one value per complete window.
// Trailing amplitudes that do not fill a window are dropped.
func Windowed(amp []float64, size int, eps, ref float64) []float64 {
	out := NewWindower(size, eps, ref).Add(amp)
	if out == nil {
		return []float64{}
	}
	return out
}
