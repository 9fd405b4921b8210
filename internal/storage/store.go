package storage

import (
	"context"

	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

// Store provides an interface for persisting processed VLF sessions.
// It handles session metadata and the float series a run produces.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateSession registers a new processing run and returns it with its
	// assigned ID and UUID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - meta: Capture and processing description
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - session: The stored session
	//   - error: If session creation fails or context is cancelled
	CreateSession(ctx context.Context, meta recording.Metadata, config any) (session *recording.Session, err error)

	// Session retrieves a specific session by its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - id: Unique session identifier
	//
	// Returns:
	//   - session: Pointer to session data
	//   - error: If retrieval fails or context is cancelled
	Session(ctx context.Context, id int64) (session *recording.Session, err error)

	// Sessions returns all sessions stored in the database, oldest first.
	Sessions(ctx context.Context) (sessions []*recording.Session, err error)

	// CreateSeries adds an empty named series to a session. Names are unique
	// within a session.
	CreateSeries(ctx context.Context, sessionID int64, name, unit string) (series *recording.Series, err error)

	// AppendSeries adds values to the end of a series. The values are split into
	// chunks and stored in a single transaction; series.Length is advanced on
	// success.
	AppendSeries(ctx context.Context, series *recording.Series, values []float64) error

	// Series lists the series of a session in creation order.
	Series(ctx context.Context, sessionID int64) (series []*recording.Series, err error)

	// Close releases all database connections and resources.
	// After Close is called, the store instance cannot be reused.
	// It is safe to call Close multiple times.
	Close() error
}

var _ Store = (*SqliteStore)(nil)
