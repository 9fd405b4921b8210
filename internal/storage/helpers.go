package storage

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError rolls back an unfinished transaction. A transaction that
// was already committed is not an error.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// toConfigData serialises an optional run configuration. Strings and byte
// slices are stored as is, anything else as JSON.
func toConfigData(config any) (sql.NullString, error) {
	switch v := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: v, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(v), Valid: true}, nil
	default:
		p, err := json.Marshal(v)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

func toSessionData(id uuid.UUID, meta *recording.Metadata) sessionData {
	return sessionData{
		UUID:            id.String(),
		Station:         meta.Station,
		Location:        toNullString(meta.Location),
		CaptureDate:     toNullString(meta.Date),
		CaptureTime:     toNullString(meta.StartTime),
		TimeZone:        toNullString(meta.TimeZone),
		UTCOffset:       meta.UTCOffset,
		Carrier:         meta.Carrier,
		SampleRate:      meta.SampleRate,
		SymbolRate:      meta.SymbolRate,
		BitRate:         meta.BitRate,
		Modulation:      meta.Modulation,
		AmplitudeMethod: toNullString(meta.AmplitudeMethod),
		PhaseMethod:     toNullString(meta.PhaseMethod),
		GPSSource:       string(meta.GPS),
		Notes:           toNullString(meta.Notes),
	}
}

func (d *sessionData) toSession() (*recording.Session, error) {
	id, err := uuid.Parse(d.UUID)
	if err != nil {
		return nil, fmt.Errorf("parsing session UUID: %w", err)
	}

	sess := recording.Session{
		ID:        d.ID,
		UUID:      id,
		CreatedAt: d.CreatedAt,
		Metadata: recording.Metadata{
			Station:         d.Station,
			Location:        d.Location.String,
			Date:            d.CaptureDate.String,
			StartTime:       d.CaptureTime.String,
			TimeZone:        d.TimeZone.String,
			UTCOffset:       d.UTCOffset,
			Carrier:         d.Carrier,
			SampleRate:      d.SampleRate,
			SymbolRate:      d.SymbolRate,
			BitRate:         d.BitRate,
			Modulation:      d.Modulation,
			AmplitudeMethod: d.AmplitudeMethod.String,
			PhaseMethod:     d.PhaseMethod.String,
			GPS:             recording.GPSSource(d.GPSSource),
			Notes:           d.Notes.String,
		},
	}
	if d.Config.Valid {
		sess.Config = &d.Config.String
	}
	return &sess, nil
}

// sessionFields lists scan destinations in selectSessionColumns order.
func (d *sessionData) sessionFields() []any {
	return []any{
		&d.ID,
		&d.UUID,
		&d.CreatedAt,
		&d.Station,
		&d.Location,
		&d.CaptureDate,
		&d.CaptureTime,
		&d.TimeZone,
		&d.UTCOffset,
		&d.Carrier,
		&d.SampleRate,
		&d.SymbolRate,
		&d.BitRate,
		&d.Modulation,
		&d.AmplitudeMethod,
		&d.PhaseMethod,
		&d.GPSSource,
		&d.Notes,
		&d.Config,
	}
}

func (d *seriesData) toSeries() *recording.Series {
	return &recording.Series{
		ID:        d.ID,
		SessionID: d.SessionID,
		Name:      d.Name,
		Unit:      d.Unit.String,
		Length:    d.Length,
	}
}

// encodeValues packs values as little-endian float64.
func encodeValues(values []float64) []byte {
	p := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(p[8*i:], math.Float64bits(v))
	}
	return p
}

func decodeValues(p []byte, count int) ([]float64, error) {
	if len(p) != 8*count {
		return nil, fmt.Errorf("chunk holds %d bytes, %d values expected", len(p), count)
	}
	values := make([]float64, count)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(p[8*i:]))
	}
	return values, nil
}
