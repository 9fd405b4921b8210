package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/vlf-monitor/internal/amplitude"
	"github.com/roman-kulish/vlf-monitor/internal/export"
	"github.com/roman-kulish/vlf-monitor/internal/gps"
	"github.com/roman-kulish/vlf-monitor/internal/msk"
	"github.com/roman-kulish/vlf-monitor/internal/recording"
	"github.com/roman-kulish/vlf-monitor/internal/source"
	"github.com/roman-kulish/vlf-monitor/internal/storage"
)

const (
	maxBatchSize  = 8192
	progressEvery = 600
)

// ErrGPSShort is returned when the GPS recording ends before the VLF one.
var ErrGPSShort = errors.New("gps recording is shorter than the vlf recording")

// WithMaxBatchSize sets the number of values of a series buffered before they
// are appended to the store within a single database transaction.
func WithMaxBatchSize(size int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.maxBatchSize = size
	}
}

// WithStore persists the session and its series.
func WithStore(store storage.Store) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithExporter adds a destination for the final amplitude and phase series.
func WithExporter(e export.Exporter) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.exporters = append(o.exporters, e)
	}
}

// WithRawExporter adds a destination for the per-bit intermediate series.
func WithRawExporter(e export.Exporter) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.rawExporters = append(o.rawExporters, e)
	}
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(logger *slog.Logger) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRand sets the random source of the pulse simulator.
func WithRand(rng *rand.Rand) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.rng = rng
	}
}

// drainBuffer hands released results to consume until the buffer has room
// for another block.
func drainBuffer(ctx context.Context, buffer *BlockBuffer, consume func(context.Context, []*BlockResult) error) error {
	for {
		if err := consume(ctx, buffer.Flush()); err != nil {
			return err
		}
		if !buffer.IsFull() {
			return nil
		}
		if err := buffer.Wait(ctx); err != nil {
			return err
		}
	}
}

// Report summarises a processing run.
type Report struct {
	Session   *recording.Session // Nil without a store
	Blocks    int
	Truncated bool // The recording ended on a partial block
	Bits      int
	ASCII     []byte
	StartUT   float64 // UT hour of the first sample

	Amplitude  []float64 // dB, windowed or direct depending on the method
	Phase      []float64 // Cumulative phase drift, degrees
	Expected   []float64 // Decided phase per bit, only with intermediate output
	Integrated []float64 // atan2(Q, I) per symbol pair, only with intermediate output

	Files []string
}

// Orchestrator runs the processing pipeline over one recording: blocks are
// read in order, the GPS correction track is derived sequentially, blocks are
// demodulated in parallel and their results are released in block order to
// post-processing, storage and export.
type Orchestrator struct {
	config *Config
	params msk.Params
	logger *slog.Logger

	store        storage.Store
	exporters    []export.Exporter
	rawExporters []export.Exporter
	rng          *rand.Rand

	maxBatchSize int
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(config *Config, options ...func(*Orchestrator)) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := Orchestrator{
		config:       config,
		params:       config.Params(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&o)
	}

	if o.maxBatchSize < 1 {
		return nil, fmt.Errorf("invalid batch size: %d", o.maxBatchSize)
	}
	return &o, nil
}

// Run processes every complete block of vlf. gpsTrain is read in lockstep
// when the GPS mode is "file" and ignored otherwise.
func (o *Orchestrator) Run(ctx context.Context, vlf, gpsTrain source.Source) (*Report, error) {
	if vlf.BlockSize() != o.config.BlockSize() {
		return nil, fmt.Errorf("vlf source block size %d does not match configured %d", vlf.BlockSize(), o.config.BlockSize())
	}

	startUT, utcOffset, err := export.StartUT(o.config.Capture.Date, o.config.Capture.StartTime, o.config.Station.TimeZone)
	if err != nil {
		return nil, err
	}

	timing, err := o.newTiming(gpsTrain)
	if err != nil {
		return nil, err
	}

	var estimator *amplitude.Estimator
	if o.config.Amplitude.Method == AmplitudeDirect {
		if estimator, err = amplitude.NewEstimator(o.params,
			amplitude.WithReference(o.config.Amplitude.Reference),
			amplitude.WithLogger(o.logger),
		); err != nil {
			return nil, fmt.Errorf("creating amplitude estimator: %w", err)
		}
	}

	report := &Report{StartUT: startUT}

	col, err := o.newCollector(ctx, o.metadata(utcOffset), report)
	if err != nil {
		return nil, err
	}

	buffer, err := NewBlockBuffer(2 * o.config.Settings.Workers)
	if err != nil {
		return nil, err
	}

	o.logger.Info("processing recording",
		slog.String("blocks", humanize.Comma(int64(vlf.BlockCount()))),
		slog.String("carrier", o.config.Signal.Carrier.String()),
		slog.String("band", o.config.Signal.Carrier.Band()),
		slog.String("sampleRate", o.config.Signal.SampleRate.String()),
		slog.String("gps", string(o.config.GPS.Mode)),
		slog.Int("workers", o.config.Settings.Workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Settings.Workers)

	opts := msk.Options{TestMode: o.config.Signal.TestMode, ExtractASCII: true}

	var readErr error
	for vlf.Next(gctx) {
		index, block := vlf.Index(), vlf.Current()

		// Results wait here for slower earlier blocks; no new block starts
		// while the buffer is full.
		if readErr = drainBuffer(gctx, buffer, col.addAll); readErr != nil {
			break
		}

		var track []float64
		if track, readErr = timing.next(gctx, len(block)); readErr != nil {
			break
		}

		g.Go(func() error {
			res, err := msk.Demodulate(block, track, o.params, opts)
			if err != nil {
				return fmt.Errorf("demodulating block %d: %w", index, err)
			}

			result := &BlockResult{Index: index, Demod: res}
			if estimator != nil {
				if result.DirectDB, err = estimator.Block(block); err != nil {
					return fmt.Errorf("measuring block %d: %w", index, err)
				}
				result.HasDirect = true
			}
			return buffer.Insert(result)
		})

		if n := index + 1; n%progressEvery == 0 {
			o.logger.Debug("demodulating", slog.String("block", humanize.Comma(int64(n))), slog.Int("total", vlf.BlockCount()))
		}
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	if err = vlf.Error(); err != nil {
		return nil, fmt.Errorf("reading vlf blocks: %w", err)
	}
	if err = col.addAll(ctx, buffer.Flush()); err != nil {
		return nil, err
	}
	if missing := buffer.Released(); buffer.Size() != 0 {
		left := buffer.DrainAll()
		return nil, fmt.Errorf("block %d was never demodulated, %d later results dropped", missing, len(left))
	}

	if t, ok := vlf.(interface{ Truncated() bool }); ok {
		report.Truncated = t.Truncated()
	}
	report.Blocks = buffer.Released()

	if col.windower != nil && col.windower.Pending() > 0 {
		o.logger.Debug("incomplete amplitude window dropped", slog.Int("symbols", col.windower.Pending()))
	}
	if err = col.finish(ctx); err != nil {
		return nil, err
	}

	if err = o.export(ctx, report); err != nil {
		return nil, err
	}

	o.logger.Info("processing finished",
		slog.String("blocks", humanize.Comma(int64(report.Blocks))),
		slog.String("bits", humanize.Comma(int64(report.Bits))),
		slog.Int("characters", len(report.ASCII)),
		slog.Int("amplitude", len(report.Amplitude)),
		slog.Int("phase", len(report.Phase)),
		slog.Bool("truncated", report.Truncated))

	return report, nil
}

func (o *Orchestrator) metadata(utcOffset float64) recording.Metadata {
	meta := recording.Metadata{
		Station:     o.config.Station.ID,
		Location:    o.config.Station.Location,
		Date:        o.config.Capture.Date,
		StartTime:   o.config.Capture.StartTime,
		TimeZone:    o.config.Station.TimeZone,
		UTCOffset:   utcOffset,
		Carrier:     o.params.Carrier,
		SampleRate:  o.params.SampleRate,
		SymbolRate:  o.params.SymbolRate,
		BitRate:     o.params.BitRate(),
		PhaseMethod: "demodulation with |Fc|",
		GPS:         o.config.GPS.Mode,
		Notes:       o.config.Station.Notes,
	}

	switch o.config.Amplitude.Method {
	case AmplitudeDirect:
		meta.AmplitudeMethod = "direct"
	default:
		meta.AmplitudeMethod = "RMS + smoothing"
	}
	return meta
}

func (o *Orchestrator) export(ctx context.Context, report *Report) error {
	date := o.config.CaptureDate()
	namer, err := export.NewNamer(o.config.Output.Pattern)
	if err != nil {
		return err
	}

	amplitudeName := recording.SeriesAmplitude
	if o.config.Amplitude.Method == AmplitudeDirect {
		amplitudeName = recording.SeriesDirectAmplitude
	}

	tables := []export.Table{
		{
			Name:    namer.Name(amplitudeName, date),
			Columns: [2]string{"time_ut", "amplitude_db"},
			Time:    export.TimeAxis(len(report.Amplitude), report.StartUT),
			Values:  report.Amplitude,
		},
		{
			Name:    namer.Name(recording.SeriesPhase, date),
			Columns: [2]string{"time_ut", "phase_deg"},
			Time:    export.TimeAxis(len(report.Phase), report.StartUT),
			Values:  report.Phase,
		},
	}
	for _, table := range tables {
		for _, e := range o.exporters {
			path, err := e.Export(ctx, table)
			if err != nil {
				return fmt.Errorf("exporting %s: %w", table.Name, err)
			}
			report.Files = append(report.Files, path)
			o.logger.Info("series exported", slog.String("path", path), slog.Int("values", len(table.Values)))
		}
	}

	if !o.config.Output.Intermediate {
		return nil
	}

	raw := []export.Table{
		{Name: namer.Name(recording.SeriesExpectedPhase, date), Values: report.Expected},
		{Name: namer.Name(recording.SeriesIntegratedPhase, date), Values: report.Integrated},
	}
	for _, table := range raw {
		for _, e := range o.rawExporters {
			path, err := e.Export(ctx, table)
			if err != nil {
				return fmt.Errorf("exporting %s: %w", table.Name, err)
			}
			report.Files = append(report.Files, path)
		}
	}
	return nil
}

// timing yields the phase correction track of each block.
type timing struct {
	mode      recording.GPSSource
	train     source.Source
	simulator *gps.Simulator
	tracker   *gps.Tracker
}

func (o *Orchestrator) newTiming(train source.Source) (*timing, error) {
	t := timing{mode: o.config.GPS.Mode}
	if t.mode == recording.GPSNone {
		return &t, nil
	}

	tracker, err := gps.NewTracker(o.params.SampleRate, o.config.GPS.Kp, o.config.GPS.Ki, o.config.GPS.Smoothing)
	if err != nil {
		return nil, fmt.Errorf("creating gps tracker: %w", err)
	}
	t.tracker = tracker

	switch t.mode {
	case recording.GPSFile:
		if train == nil {
			return nil, fmt.Errorf("gps mode %q needs a gps source", t.mode)
		}
		if train.BlockSize() != o.config.BlockSize() {
			return nil, fmt.Errorf("gps source block size %d does not match configured %d", train.BlockSize(), o.config.BlockSize())
		}
		t.train = train

	case recording.GPSSimulated:
		rng := o.rng
		if rng == nil && o.config.GPS.Seed != 0 {
			rng = rand.New(rand.NewPCG(o.config.GPS.Seed, o.config.GPS.Seed))
		}
		t.simulator = gps.NewSimulator(o.params.SampleRate, o.config.GPS.JitterMs, rng)
	}

	return &t, nil
}

// next returns the correction track for a block of n samples, nil when no
// timing reference is used.
func (t *timing) next(ctx context.Context, n int) ([]float64, error) {
	switch t.mode {
	case recording.GPSFile:
		if !t.train.Next(ctx) {
			if err := t.train.Error(); err != nil {
				return nil, fmt.Errorf("reading gps blocks: %w", err)
			}
			return nil, ErrGPSShort
		}
		return t.tracker.Track(t.train.Current()), nil

	case recording.GPSSimulated:
		return t.tracker.Track(t.simulator.Next(n)), nil
	}
	return nil, nil
}
