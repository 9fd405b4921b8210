package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

// ErrNoData indicates either that no data exists for the given parameters,
// or that all available data has been read from the series reader.
var ErrNoData = errors.New("no data available")

// SeriesReader provides an iterator-based interface for reading a stored
// series chunk by chunk.
type SeriesReader interface {
	// Session returns metadata about the session this reader is accessing.
	Session() *recording.Session

	// Series returns the series being read.
	Series() *recording.Series

	// Next advances the iterator and returns true if there is another chunk
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current chunk in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *recording.Chunk

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a SeriesReader.
type ReaderOption func(*SqliteSeriesReader)

// WithStart skips values before index start.
func WithStart(start int) ReaderOption {
	return func(r *SqliteSeriesReader) {
		r.start = &start
	}
}

// WithEnd stops reading at index end, exclusive.
func WithEnd(end int) ReaderOption {
	return func(r *SqliteSeriesReader) {
		r.end = &end
	}
}

// WithRange limits the reader to values [start, end).
// This is a convenience function equivalent to applying both WithStart
// and WithEnd.
func WithRange(start, end int) ReaderOption {
	return func(r *SqliteSeriesReader) {
		r.start = &start
		r.end = &end
	}
}

func newSqliteSeriesReader(ctx context.Context, db *sql.DB, sessionID int64, name string, opts ...ReaderOption) (*SqliteSeriesReader, error) {
	sr := &SqliteSeriesReader{
		db:        db,
		sessionID: sessionID,
		name:      name,
	}
	for _, opt := range opts {
		opt(sr)
	}
	if err := sr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return sr, nil
}

// SqliteSeriesReader implements SeriesReader for SQLite database backend.
type SqliteSeriesReader struct {
	db *sql.DB

	sessionID int64
	name      string
	session   *recording.Session
	series    *recording.Series

	start *int // Optional first index
	end   *int // Optional end index, exclusive

	current *recording.Chunk
	rows    *sql.Rows
	err     error
}

func (sr *SqliteSeriesReader) init(ctx context.Context) error {
	if sr.db == nil {
		return errors.New("database connection required")
	}
	if sr.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: sr.loadSession},
		{msg: "loading series", fn: sr.loadSeries},
		{msg: "initializing range", fn: sr.initRange},
		{msg: "initializing query", fn: sr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (sr *SqliteSeriesReader) loadSession(ctx context.Context) (err error) {
	sr.session, err = loadSession(ctx, sr.db, sr.sessionID)
	return err
}

func (sr *SqliteSeriesReader) loadSeries(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectSeriesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var data seriesData
	err = stmt.QueryRowContext(ctx, sr.sessionID, sr.name).Scan(&data.ID, &data.SessionID, &data.Name, &data.Unit, &data.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("series %q: %w", sr.name, ErrNoData)
	}
	if err != nil {
		return fmt.Errorf("querying series: %w", err)
	}

	sr.series = data.toSeries()
	return nil
}

func (sr *SqliteSeriesReader) initRange(context.Context) error {
	if sr.start == nil {
		start := 0
		sr.start = &start
	}
	if sr.end == nil {
		end := sr.series.Length
		sr.end = &end
	}

	if *sr.start < 0 {
		return fmt.Errorf("start index %d is negative", *sr.start)
	}
	if *sr.start > *sr.end {
		return fmt.Errorf("start index %d is after end index %d", *sr.start, *sr.end)
	}
	return nil
}

func (sr *SqliteSeriesReader) initQuery(ctx context.Context) (err error) {
	stmt, err := sr.db.PrepareContext(ctx, selectChunksSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if sr.rows, err = stmt.QueryContext(ctx, sr.series.ID, *sr.start, *sr.end); err != nil {
		return err
	}
	return nil
}

func (sr *SqliteSeriesReader) Session() *recording.Session {
	return sr.session
}

func (sr *SqliteSeriesReader) Series() *recording.Series {
	return sr.series
}

func (sr *SqliteSeriesReader) Next(ctx context.Context) bool {
	if sr.err != nil || sr.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		sr.err = ctx.Err()
		return false
	default:
	}

	if !sr.rows.Next() {
		sr.current = nil
		sr.err = ErrNoData
		return false
	}

	var data chunkData
	if sr.err = sr.rows.Scan(&data.StartIndex, &data.Count, &data.Data); sr.err != nil {
		sr.err = fmt.Errorf("scanning chunk: %w", sr.err)
		return false
	}

	values, err := decodeValues(data.Data, data.Count)
	if err != nil {
		sr.err = fmt.Errorf("decoding chunk at %d: %w", data.StartIndex, err)
		return false
	}

	// Trim the chunk to the requested range.
	lo := max(*sr.start-data.StartIndex, 0)
	hi := min(*sr.end-data.StartIndex, len(values))
	sr.current = &recording.Chunk{
		Start:  data.StartIndex + lo,
		Values: values[lo:hi],
	}
	return true
}

func (sr *SqliteSeriesReader) Current() *recording.Chunk {
	return sr.current
}

func (sr *SqliteSeriesReader) Error() error {
	if sr.err != nil && !errors.Is(sr.err, ErrNoData) {
		return sr.err
	}
	if sr.rows != nil {
		return sr.rows.Err()
	}
	return nil
}

func (sr *SqliteSeriesReader) Close() error {
	if sr.rows != nil {
		err := sr.rows.Close()
		sr.current = nil
		sr.rows = nil
		return err
	}
	return nil
}

var _ SeriesReader = (*SqliteSeriesReader)(nil)
