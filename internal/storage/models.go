package storage

import (
	"database/sql"
	"time"
)

type sessionData struct {
	ID              int64
	UUID            string
	CreatedAt       time.Time
	Station         string
	Location        sql.NullString
	CaptureDate     sql.NullString
	CaptureTime     sql.NullString
	TimeZone        sql.NullString
	UTCOffset       float64
	Carrier         float64
	SampleRate      float64
	SymbolRate      float64
	BitRate         float64
	Modulation      string
	AmplitudeMethod sql.NullString
	PhaseMethod     sql.NullString
	GPSSource       string
	Notes           sql.NullString
	Config          sql.NullString
}

type seriesData struct {
	ID        int64
	SessionID int64
	Name      string
	Unit      sql.NullString
	Length    int
}

type chunkData struct {
	StartIndex int
	Count      int
	Data       []byte
}
