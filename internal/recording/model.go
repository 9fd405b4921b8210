package recording

import (
	"time"

	"github.com/google/uuid"
)

// GPSSource tells where the timing reference of a session came from.
type GPSSource string

const (
	GPSNone      GPSSource = "none"
	GPSFile      GPSSource = "file"
	GPSSimulated GPSSource = "simulated"
)

// Names of the series a processing run stores.
const (
	SeriesAmplitude       = "amplitude_db"        // windowed demodulator amplitude, dB
	SeriesDirectAmplitude = "amplitude_direct_db" // band-pass RMS per block, dB
	SeriesPhase           = "phase_deg"           // cumulative phase drift, degrees
	SeriesExpectedPhase   = "expected_phase"      // decided phase per bit, radians
	SeriesIntegratedPhase = "integrated_phase"    // atan2(Q, I) per symbol pair, radians
)

// Session represents one processed capture. Each session records how and
// where the signal was received and how it was processed.
type Session struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	UUID      uuid.UUID `json:"uuid"`                    // Run identifier, stable across databases
	CreatedAt time.Time `json:"createdAt"`               // When processing started
	Metadata  Metadata  `json:"metadata"`                // Capture and processing description
	Config    *string   `json:"config,string,omitempty"` // Optional run configuration in JSON format
}

// Metadata describes the capture and the methods used to process it.
type Metadata struct {
	Station         string    `json:"station"`         // Receiving station code (e.g., "ROPK")
	Location        string    `json:"location"`        // Station coordinates, "lat, lon"
	Date            string    `json:"date"`            // Capture date, local time
	StartTime       string    `json:"startTime"`       // Capture start, local time "HH:MM"
	TimeZone        string    `json:"timeZone"`        // IANA zone of the local time
	UTCOffset       float64   `json:"utcOffset"`       // Local time minus UT, hours
	Carrier         float64   `json:"carrier"`         // Transmitter carrier in Hz
	SampleRate      float64   `json:"sampleRate"`      // Capture sample rate in Hz
	SymbolRate      float64   `json:"symbolRate"`      // MSK symbol rate in baud
	BitRate         float64   `json:"bitRate"`         // 2 × symbol rate
	Modulation      string    `json:"modulation"`      // Always "MSK"
	AmplitudeMethod string    `json:"amplitudeMethod"` // How the amplitude series was measured
	PhaseMethod     string    `json:"phaseMethod"`     // How the phase series was measured
	GPS             GPSSource `json:"gps"`             // Timing reference source
	Notes           string    `json:"notes,omitempty"` // Free text
}

// Series is a named sequence of float values belonging to a session.
type Series struct {
	ID        int64  `json:"ID"`
	SessionID int64  `json:"sessionID"`
	Name      string `json:"name"`
	Unit      string `json:"unit,omitempty"`
	Length    int    `json:"length"` // Number of values stored so far
}

// Chunk is a contiguous run of values of one series starting at Start.
type Chunk struct {
	Start  int       `json:"start"`
	Values []float64 `json:"values"`
}

// End returns the index one past the last value of the chunk.
func (c Chunk) End() int {
	return c.Start + len(c.Values)
}
