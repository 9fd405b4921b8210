package app

import (
	"context"
	"fmt"

	"github.com/roman-kulish/vlf-monitor/internal/amplitude"
	"github.com/roman-kulish/vlf-monitor/internal/msk"
	"github.com/roman-kulish/vlf-monitor/internal/recording"
	"github.com/roman-kulish/vlf-monitor/internal/storage"
)

// seriesWriter buffers values of one stored series and appends them in
// batches.
type seriesWriter struct {
	store   storage.Store
	series  *recording.Series
	pending []float64
	limit   int
}

func (w *seriesWriter) write(ctx context.Context, values []float64) error {
	w.pending = append(w.pending, values...)
	if len(w.pending) < w.limit {
		return nil
	}
	return w.flush(ctx)
}

func (w *seriesWriter) flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	if err := w.store.AppendSeries(ctx, w.series, w.pending); err != nil {
		return fmt.Errorf("storing series %s: %w", w.series.Name, err)
	}
	w.pending = w.pending[:0]
	return nil
}

// collector consumes block results in order and builds the output series.
type collector struct {
	report       *Report
	drift        *msk.PhaseDrift
	windower     *amplitude.Windower // Demodulator method
	direct       []float64           // Direct method, smoothed once complete
	smooth       bool
	symbolRate   int
	intermediate bool

	amplitude, phase, expected, integrated *seriesWriter
}

func (o *Orchestrator) newCollector(ctx context.Context, meta recording.Metadata, report *Report) (*collector, error) {
	c := collector{
		report:       report,
		drift:        msk.NewPhaseDrift(o.params.Carrier),
		smooth:       o.config.Amplitude.Smoothing,
		symbolRate:   int(o.params.SymbolRate),
		intermediate: o.config.Output.Intermediate,
	}

	amplitudeName, amplitudeUnit := recording.SeriesAmplitude, "dB"
	if o.config.Amplitude.Method == AmplitudeDirect {
		amplitudeName = recording.SeriesDirectAmplitude
	} else {
		size := int(o.params.BitRate()) * o.config.Amplitude.WindowSeconds
		c.windower = amplitude.NewWindower(size, o.config.Amplitude.Epsilon, o.config.Amplitude.Reference)
	}

	if o.store == nil {
		return &c, nil
	}

	session, err := o.store.CreateSession(ctx, meta, o.config)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	report.Session = session

	newWriter := func(name, unit string) (*seriesWriter, error) {
		series, err := o.store.CreateSeries(ctx, session.ID, name, unit)
		if err != nil {
			return nil, fmt.Errorf("creating series %s: %w", name, err)
		}
		return &seriesWriter{store: o.store, series: series, limit: o.maxBatchSize}, nil
	}

	if c.amplitude, err = newWriter(amplitudeName, amplitudeUnit); err != nil {
		return nil, err
	}
	if c.phase, err = newWriter(recording.SeriesPhase, "deg"); err != nil {
		return nil, err
	}
	if c.intermediate {
		if c.expected, err = newWriter(recording.SeriesExpectedPhase, "rad"); err != nil {
			return nil, err
		}
		if c.integrated, err = newWriter(recording.SeriesIntegratedPhase, "rad"); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

func (c *collector) addAll(ctx context.Context, results []*BlockResult) error {
	for _, r := range results {
		if err := c.add(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) add(ctx context.Context, r *BlockResult) error {
	res := r.Demod
	c.report.Bits += len(res.Bits)
	c.report.ASCII = append(c.report.ASCII, res.ASCII...)

	phase := c.drift.Add(res.ExpectedPhase)
	c.report.Phase = append(c.report.Phase, phase...)
	if err := c.store(ctx, c.phase, phase); err != nil {
		return err
	}

	if c.windower != nil {
		db := c.windower.Add(res.Amplitude)
		c.report.Amplitude = append(c.report.Amplitude, db...)
		if err := c.store(ctx, c.amplitude, db); err != nil {
			return err
		}
	}
	if r.HasDirect {
		c.direct = append(c.direct, r.DirectDB)
	}

	if !c.intermediate {
		return nil
	}
	c.report.Expected = append(c.report.Expected, res.ExpectedPhase...)
	c.report.Integrated = append(c.report.Integrated, res.IntegratedPhase...)
	if err := c.store(ctx, c.expected, res.ExpectedPhase); err != nil {
		return err
	}
	return c.store(ctx, c.integrated, res.IntegratedPhase)
}

func (c *collector) store(ctx context.Context, w *seriesWriter, values []float64) error {
	if w == nil || len(values) == 0 {
		return nil
	}
	return w.write(ctx, values)
}

// finish completes the direct amplitude series and flushes stored series.
func (c *collector) finish(ctx context.Context) error {
	if c.windower == nil {
		if c.smooth {
			c.report.Amplitude = amplitude.Smooth(c.direct, c.symbolRate)
		} else {
			c.report.Amplitude = c.direct
		}
		if c.report.Amplitude == nil {
			c.report.Amplitude = []float64{}
		}
		if err := c.store(ctx, c.amplitude, c.report.Amplitude); err != nil {
			return err
		}
	}

	for _, w := range []*seriesWriter{c.amplitude, c.phase, c.expected, c.integrated} {
		if w == nil {
			continue
		}
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
