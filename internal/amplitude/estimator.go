package amplitude

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/roman-kulish/vlf-monitor/internal/dsp"
	"github.com/roman-kulish/vlf-monitor/internal/msk"
	"github.com/roman-kulish/vlf-monitor/internal/source"
)

const (
	// DefaultEpsilon is the RMS floor of the direct estimator.
	DefaultEpsilon = 1e-12

	// DefaultReference is the reference level P_ref of the dB scale.
	DefaultReference = 5e-6

	// progressEvery is the number of blocks between progress log records.
	progressEvery = 600
)

// ErrEmptyBlock is returned by Estimator.Block for a block without samples.
var ErrEmptyBlock = errors.New("empty block")

// WithEpsilon sets the RMS floor applied before taking the logarithm.
func WithEpsilon(eps float64) func(*Estimator) {
	return func(e *Estimator) {
		e.epsilon = eps
	}
}

// WithReference sets the dB reference level.
func WithReference(ref float64) func(*Estimator) {
	return func(e *Estimator) {
		e.reference = ref
	}
}

// WithSmoothing enables the moving-average smoothing of Estimate output.
func WithSmoothing(enabled bool) func(*Estimator) {
	return func(e *Estimator) {
		e.smoothing = enabled
	}
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(logger *slog.Logger) func(*Estimator) {
	return func(e *Estimator) {
		e.logger = logger.With(slog.String("component", "amplitude"))
	}
}

// Estimator measures the received signal level directly from the samples:
// each block is band-pass filtered around the carrier, reduced to its RMS and
// converted to dB as -20·log10(rms/P_ref).
type Estimator struct {
	params msk.Params
	filter dsp.Coeffs
	logger *slog.Logger

	epsilon   float64
	reference float64
	smoothing bool
}

// NewEstimator designs the Fc ± Rs/2 band-pass filter for p.
func NewEstimator(p msk.Params, options ...func(*Estimator)) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	filter, err := dsp.Design(dsp.BandPassSpec(p.Carrier, p.SymbolRate, p.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("designing band-pass filter: %w", err)
	}

	e := Estimator{
		params:    p,
		filter:    filter,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		epsilon:   DefaultEpsilon,
		reference: DefaultReference,
		smoothing: true,
	}
	for _, option := range options {
		option(&e)
	}

	if e.epsilon <= 0 || e.reference <= 0 {
		return nil, fmt.Errorf("epsilon and reference must be positive, %g and %g given", e.epsilon, e.reference)
	}
	return &e, nil
}

// Block returns the level of one block in dB.
func (e *Estimator) Block(block []float64) (float64, error) {
	if len(block) == 0 {
		return 0, ErrEmptyBlock
	}
	filtered := dsp.FiltFilt(e.filter, dsp.Sanitize(block))
	return toDB(dsp.RMS(filtered), e.epsilon, e.reference), nil
}

// Estimate measures every block of src in order. With smoothing enabled the
// per-block series is passed through Smooth before it is returned.
func (e *Estimator) Estimate(ctx context.Context, src source.Source) ([]float64, error) {
	levels := make([]float64, 0, src.BlockCount())

	for src.Next(ctx) {
		db, err := e.Block(src.Current())
		if err != nil {
			return nil, fmt.Errorf("measuring block %d: %w", src.Index(), err)
		}
		levels = append(levels, db)

		if n := len(levels); n%progressEvery == 0 {
			e.logger.Debug("measuring amplitude", slog.Int("block", n), slog.Int("total", src.BlockCount()))
		}
	}
	if err := src.Error(); err != nil {
		return nil, fmt.Errorf("reading blocks: %w", err)
	}

	if !e.smoothing {
		return levels, nil
	}
	return Smooth(levels, int(e.params.SymbolRate)), nil
}

// Smooth applies a centred moving average of length rs/2 to a per-block dB
// series and trims the edge-affected samples: rs/2 from the start and
// ceil(rs/4) from the end. It returns an empty slice when nothing survives the
// trim.
func Smooth(db []float64, rs int) []float64 {
	length := rs / 2
	if length <= 0 {
		return []float64{}
	}

	avg := dsp.MovingAverage(db, length)
	start, end := length, len(avg)-(rs+3)/4
	if start >= end {
		return []float64{}
	}
	return avg[start:end]
}

func toDB(rms, eps, ref float64) float64 {
	return -20 * math.Log10(max(rms, eps)/ref)
}
