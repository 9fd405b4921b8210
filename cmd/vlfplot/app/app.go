package app

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/vlf-monitor/internal/export"
	"github.com/roman-kulish/vlf-monitor/internal/recording"
	"github.com/roman-kulish/vlf-monitor/internal/storage"
)

func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) (err error) {
	if _, err = os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	if config.List {
		return listSessions(ctx, store, out)
	}
	return plot(ctx, store, config, logger)
}

func listSessions(ctx context.Context, store *storage.SqliteStore, out io.Writer) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		series, err := store.Series(ctx, s.ID)
		if err != nil {
			return err
		}

		m := s.Metadata
		if _, err = fmt.Fprintf(out, "%d\t%s\t%s\t%s %s\t%s\t%s\t%d series\n",
			s.ID,
			s.CreatedAt.Local().Format(time.DateTime),
			m.Station,
			m.Date,
			m.StartTime,
			humanize.SIWithDigits(m.Carrier, 1, "Hz"),
			m.GPS,
			len(series),
		); err != nil {
			return err
		}
	}
	return nil
}

// selectSession returns the requested session, or the latest one when id is 0.
func selectSession(ctx context.Context, store *storage.SqliteStore, id int64) (*recording.Session, error) {
	if id != 0 {
		return store.Session(ctx, id)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions stored: %w", storage.ErrNoData)
	}
	return sessions[len(sessions)-1], nil
}

func plot(ctx context.Context, store *storage.SqliteStore, config *Config, logger *slog.Logger) error {
	session, err := selectSession(ctx, store, config.SessionID)
	if err != nil {
		return fmt.Errorf("selecting session: %w", err)
	}

	logger.Info("plotting session",
		slog.Int64("id", session.ID),
		slog.String("station", session.Metadata.Station),
		slog.String("date", session.Metadata.Date))

	amplitude, err := readTrace(ctx, store, session.ID, config.Width, recording.SeriesAmplitude)
	if errors.Is(err, storage.ErrNoData) {
		logger.Debug("falling back to direct amplitude", slog.String("series", recording.SeriesDirectAmplitude))
		amplitude, err = readTrace(ctx, store, session.ID, config.Width, recording.SeriesDirectAmplitude)
	}
	if err != nil {
		return fmt.Errorf("reading amplitude: %w", err)
	}

	phase, err := readTrace(ctx, store, session.ID, config.Width, recording.SeriesPhase)
	if err != nil {
		return fmt.Errorf("reading phase: %w", err)
	}

	amplitude.Bounds = PercentileBounds(amplitude.Values(), minAmplitudeSpan)
	if config.MinAmplitude != nil {
		amplitude.Bounds.Min = *config.MinAmplitude
	}
	if config.MaxAmplitude != nil {
		amplitude.Bounds.Max = *config.MaxAmplitude
	}
	if amplitude.Bounds.Span() <= 0 {
		return fmt.Errorf("invalid amplitude range: %g >= %g", amplitude.Bounds.Min, amplitude.Bounds.Max)
	}
	phase.Bounds = PercentileBounds(phase.Values(), minPhaseSpan)

	m := session.Metadata
	start, _, err := export.StartUT(m.Date, m.StartTime, m.TimeZone)
	if err != nil {
		start = -m.UTCOffset
		logger.Warn("using stored UTC offset for the time axis", slog.String("error", err.Error()))
	}

	logger.Info("finished reading series",
		slog.Group("stats",
			slog.String("amplitude", humanize.Comma(int64(amplitude.Total))),
			slog.String("phase", humanize.Comma(int64(phase.Total))),
			slog.String("minAmplitude", fmt.Sprintf("%0.2fdB", amplitude.Bounds.Min)),
			slog.String("maxAmplitude", fmt.Sprintf("%0.2fdB", amplitude.Bounds.Max)),
			slog.String("minPhase", fmt.Sprintf("%0.3fdeg", phase.Bounds.Min)),
			slog.String("maxPhase", fmt.Sprintf("%0.3fdeg", phase.Bounds.Max)),
		))

	renderer := NewRenderer(RenderConfig{NoAnnotations: config.NoAnnotations})
	img, err := renderer.Render(&Plot{
		Session:   session,
		StartUT:   start,
		Amplitude: amplitude,
		Phase:     phase,
	}, config.Width, config.Height)
	if err != nil {
		return fmt.Errorf("rendering plot: %w", err)
	}

	logger.Info("writing image",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}

	switch config.Format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 98})
	default:
		err = png.Encode(out, img)
	}
	return errors.Join(err, out.Close())
}

func readTrace(ctx context.Context, store *storage.SqliteStore, sessionID int64, width int, name string) (*Trace, error) {
	iter, err := store.ReadSeries(ctx, sessionID, name)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	series := iter.Series()
	trace := NewTrace(series.Name, series.Unit, series.Length, width)
	for iter.Next(ctx) {
		trace.Update(iter.Current().Values)
	}
	if err = iter.Error(); err != nil {
		return nil, err
	}
	return trace, nil
}
