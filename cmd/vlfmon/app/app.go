package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/vlf-monitor/internal/export"
	"github.com/roman-kulish/vlf-monitor/internal/recording"
	"github.com/roman-kulish/vlf-monitor/internal/source"
	"github.com/roman-kulish/vlf-monitor/internal/storage"
)

const intermediateDir = "intermediate"

// Run processes the recording described by config and writes the selected
// outputs.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	vlf, err := source.NewFileSource(config.Capture.VLFFile, config.BlockSize())
	if err != nil {
		return fmt.Errorf("opening vlf recording: %w", err)
	}
	defer func() { err = errors.Join(err, vlf.Close()) }()

	logger.Info("vlf recording opened",
		slog.String("path", config.Capture.VLFFile),
		slog.String("samples", humanize.Comma(vlf.Samples())),
		slog.String("size", humanize.Bytes(uint64(vlf.Samples())*4)))

	var gpsTrain source.Source
	if config.GPS.Mode == recording.GPSFile {
		var train *source.FileSource
		if train, err = source.NewFileSource(config.Capture.GPSFile, config.BlockSize()); err != nil {
			return fmt.Errorf("opening gps recording: %w", err)
		}
		defer func() { err = errors.Join(err, train.Close()) }()

		if train.BlockCount() < vlf.BlockCount() {
			return fmt.Errorf("%w: %d blocks against %d", ErrGPSShort, train.BlockCount(), vlf.BlockCount())
		}
		gpsTrain = train
	}

	options, closeStore, err := createOutputs(config, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeStore()) }()

	orchestrator, err := NewOrchestrator(config, options...)
	if err != nil {
		return err
	}

	report, err := orchestrator.Run(ctx, vlf, gpsTrain)
	if err != nil {
		return err
	}

	if report.Session != nil {
		logger.Info("session stored", slog.Int64("id", report.Session.ID), slog.String("uuid", report.Session.UUID.String()))
	}
	if report.Truncated {
		logger.Warn("recording ends on a partial block, trailing samples ignored")
	}
	if len(report.ASCII) > 0 {
		logger.Debug("decoded characters", slog.String("text", string(report.ASCII)))
	}
	return nil
}

func createOutputs(config *Config, logger *slog.Logger) (options []func(*Orchestrator), closeStore func() error, err error) {
	closeStore = func() error { return nil }

	dir := config.Output.Directory
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, closeStore, fmt.Errorf("creating output directory: %w", err)
	}

	options = append(options, WithLogger(logger))

	if config.Output.Binary {
		options = append(options,
			WithExporter(export.NewBinaryExporter(dir)),
			WithRawExporter(export.NewBinaryExporter(filepath.Join(dir, intermediateDir))))
	}
	if config.Output.Text {
		options = append(options, WithExporter(export.NewTextExporter(dir)))
	}

	if config.Output.SQLite {
		dbPath := filepath.Join(dir, config.Output.Database)
		store := storage.NewSqliteStore(dbPath)
		options = append(options, WithStore(store))
		closeStore = store.Close

		logger.Debug("storing sessions", slog.String("path", dbPath))
	}

	return options, closeStore, nil
}
