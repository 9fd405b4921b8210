package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

// DefaultChunkSize is the number of values stored per series chunk.
const DefaultChunkSize = 4096

// maxChunksPerStatement bounds the rows of one multi-row insert so the bound
// parameters stay under SQLite's variable limit.
const maxChunksPerStatement = 200

// WithChunkSize sets the number of values per stored chunk.
func WithChunkSize(size int) func(*SqliteStore) {
	return func(s *SqliteStore) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath    string
	chunkSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore returns a store backed by the SQLite database at dbPath.
// Connections are opened lazily; the schema is created with the first write.
func NewSqliteStore(dbPath string, options ...func(*SqliteStore)) *SqliteStore {
	s := SqliteStore{dbPath: dbPath, chunkSize: DefaultChunkSize}
	for _, option := range options {
		option(&s)
	}
	return &s
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, meta recording.Metadata, config any) (session *recording.Session, err error) {
	configData, err := toConfigData(config)
	if err != nil {
		return nil, err
	}

	db, err := s.getWriteDB()
	if err != nil {
		return nil, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if meta.Modulation == "" {
		meta.Modulation = "MSK"
	}
	if meta.GPS == "" {
		meta.GPS = recording.GPSNone
	}

	id := uuid.New()
	data := toSessionData(id, &meta)
	data.CreatedAt = time.Now().UTC()
	data.Config = configData

	result, err := stmt.ExecContext(
		ctx,
		data.UUID,
		data.CreatedAt,
		data.Station,
		data.Location,
		data.CaptureDate,
		data.CaptureTime,
		data.TimeZone,
		data.UTCOffset,
		data.Carrier,
		data.SampleRate,
		data.SymbolRate,
		data.BitRate,
		data.Modulation,
		data.AmplitudeMethod,
		data.PhaseMethod,
		data.GPSSource,
		data.Notes,
		data.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	if data.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("getting session ID: %w", err)
	}
	return data.toSession()
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *recording.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return loadSession(ctx, db, id)
}

func loadSession(ctx context.Context, db *sql.DB, id int64) (session *recording.Session, err error) {
	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var data sessionData
	if err = stmt.QueryRowContext(ctx, id).Scan(data.sessionFields()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %d: %w", id, ErrNoData)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return data.toSession()
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*recording.Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data sessionData
		if err = rows.Scan(data.sessionFields()...); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		sess, err := data.toSession()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func (s *SqliteStore) CreateSeries(ctx context.Context, sessionID int64, name, unit string) (series *recording.Series, err error) {
	if name == "" {
		return nil, errors.New("series name required")
	}

	db, err := s.getWriteDB()
	if err != nil {
		return nil, fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertSeriesSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, sessionID, name, toNullString(unit))
	if err != nil {
		return nil, fmt.Errorf("inserting series %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting series ID: %w", err)
	}

	return &recording.Series{
		ID:        id,
		SessionID: sessionID,
		Name:      name,
		Unit:      unit,
	}, nil
}

func (s *SqliteStore) AppendSeries(ctx context.Context, series *recording.Series, values []float64) (err error) {
	if len(values) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	chunks := slices.Collect(slices.Chunk(values, s.chunkSize))

	start := series.Length
	for batch := range slices.Chunk(chunks, maxChunksPerStatement) {
		// Build batch insert query
		args := make([]any, 0, len(batch)*4)

		var sb strings.Builder
		sb.WriteString(insertChunkSQL)

		for i, chunk := range batch {
			args = append(args, series.ID, start, len(chunk), encodeValues(chunk))
			start += len(chunk)

			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?)")
		}

		if _, err = tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("batch inserting chunks: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, updateSeriesLengthSQL, len(values), series.ID); err != nil {
		return fmt.Errorf("updating series length: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	series.Length += len(values)
	return nil
}

func (s *SqliteStore) Series(ctx context.Context, sessionID int64) (series []*recording.Series, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectSeriesListSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data seriesData
		if err = rows.Scan(&data.ID, &data.SessionID, &data.Name, &data.Unit, &data.Length); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		series = append(series, data.toSeries())
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating series: %w", err)
	}
	return series, nil
}

// ReadSeries creates a SeriesReader over the named series of a session. The
// reader yields the stored chunks in index order, trimmed to the optional
// range set with WithRange.
//
// The returned reader must be closed after use to release database resources.
// Each reader instance should only be used from a single goroutine.
//
// Returns ErrNoData if the session or series does not exist.
func (s *SqliteStore) ReadSeries(ctx context.Context, sessionID int64, name string, opts ...ReaderOption) (*SqliteSeriesReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteSeriesReader(ctx, db, sessionID, name, opts...)
}

// LoadSeries reads a whole series into memory.
func (s *SqliteStore) LoadSeries(ctx context.Context, sessionID int64, name string, opts ...ReaderOption) (values []float64, err error) {
	r, err := s.ReadSeries(ctx, sessionID, name, opts...)
	if err != nil {
		return nil, err
	}
	defer closeWithError(r, &err)

	values = make([]float64, 0, r.Series().Length)
	for r.Next(ctx) {
		values = append(values, r.Current().Values...)
	}
	if err = r.Error(); err != nil {
		return nil, fmt.Errorf("reading series %q: %w", name, err)
	}
	return values, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
