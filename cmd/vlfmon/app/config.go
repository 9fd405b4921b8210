package app

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
	"hz.tools/rf"

	"github.com/roman-kulish/vlf-monitor/internal/amplitude"
	"github.com/roman-kulish/vlf-monitor/internal/gps"
	"github.com/roman-kulish/vlf-monitor/internal/msk"
	"github.com/roman-kulish/vlf-monitor/internal/recording"
)

const (
	AmplitudeDemodulator AmplitudeMethod = "demodulator"
	AmplitudeDirect      AmplitudeMethod = "direct"

	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var validGPSModes = map[recording.GPSSource]struct{}{
	recording.GPSNone:      {},
	recording.GPSFile:      {},
	recording.GPSSimulated: {},
}

// AmplitudeMethod selects how the amplitude series is measured.
type AmplitudeMethod string

func (m AmplitudeMethod) String() string {
	return string(m)
}

// Config represents the main application configuration
type Config struct {
	Settings  Settings        `yaml:"settings" json:"settings"`
	Station   StationConfig   `yaml:"station" json:"station"`
	Capture   CaptureConfig   `yaml:"capture" json:"capture"`
	Signal    SignalConfig    `yaml:"signal" json:"signal"`
	GPS       GPSConfig       `yaml:"gps" json:"gps"`
	Amplitude AmplitudeConfig `yaml:"amplitude" json:"amplitude"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel" json:"logLevel"`
	Workers  int    `yaml:"workers" json:"workers"` // Blocks demodulated in parallel
}

// StationConfig identifies the receiving station
type StationConfig struct {
	ID       string `yaml:"id" json:"id"`
	Location string `yaml:"location" json:"location"` // "lat, lon"
	TimeZone string `yaml:"timeZone" json:"timeZone"` // IANA zone of the capture clock
	Notes    string `yaml:"notes" json:"notes,omitempty"`
}

// CaptureConfig points at the recorded files
type CaptureConfig struct {
	Date      string `yaml:"date" json:"date"`           // Local date, YYYY-MM-DD
	StartTime string `yaml:"startTime" json:"startTime"` // Local time, HH:MM
	VLFFile   string `yaml:"vlfFile" json:"vlfFile"`     // Raw little-endian float32 samples
	GPSFile   string `yaml:"gpsFile" json:"gpsFile"`     // 1 PPS train in the same format, gps.mode "file"
	BlockSize int    `yaml:"blockSize" json:"blockSize"` // Samples per block (default: one second)
}

// SignalConfig describes the received MSK signal
type SignalConfig struct {
	SampleRate Frequency    `yaml:"sampleRate" json:"sampleRate"`
	Carrier    Frequency    `yaml:"carrier" json:"carrier"`
	SymbolRate Frequency    `yaml:"symbolRate" json:"symbolRate"` // Baud
	TestMode   msk.TestMode `yaml:"testMode" json:"testMode"`
}

// GPSConfig configures the timing reference
type GPSConfig struct {
	Mode      recording.GPSSource `yaml:"mode" json:"mode"`
	JitterMs  float64             `yaml:"jitterMs" json:"jitterMs"` // Simulated pulse jitter, ± milliseconds
	Seed      uint64              `yaml:"seed" json:"seed"`         // Simulator seed, 0 picks a random one
	Kp        float64             `yaml:"kp" json:"kp"`
	Ki        float64             `yaml:"ki" json:"ki"`
	Smoothing float64             `yaml:"smoothing" json:"smoothing"` // Comparator smoothing factor
}

// AmplitudeConfig configures amplitude measurement
type AmplitudeConfig struct {
	Method        AmplitudeMethod `yaml:"method" json:"method"`
	Smoothing     bool            `yaml:"smoothing" json:"smoothing"`         // Moving average of the direct method
	WindowSeconds int             `yaml:"windowSeconds" json:"windowSeconds"` // RMS window of the demodulator method
	Epsilon       float64         `yaml:"epsilon" json:"epsilon"`
	Reference     float64         `yaml:"reference" json:"reference"`
}

// OutputConfig selects where results go
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	Pattern      string `yaml:"pattern" json:"pattern"`   // strftime pattern applied to the capture date
	Database     string `yaml:"database" json:"database"` // SQLite file, relative to Directory
	SQLite       bool   `yaml:"sqlite" json:"sqlite"`
	Binary       bool   `yaml:"binary" json:"binary"`
	Text         bool   `yaml:"text" json:"text"`
	Intermediate bool   `yaml:"intermediate" json:"intermediate"` // Also keep expected and integrated phase
}

// NewConfig returns a configuration with defaults for an Omega-style
// recording: 96 kHz sampling, 21.4 kHz carrier at 200 baud.
func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: "info",
			Workers:  runtime.NumCPU(),
		},
		Station: StationConfig{
			TimeZone: "UTC",
		},
		Capture: CaptureConfig{
			StartTime: "00:00",
		},
		Signal: SignalConfig{
			SampleRate: 96_000,
			Carrier:    21_400,
			SymbolRate: 200,
			TestMode:   msk.Production,
		},
		GPS: GPSConfig{
			Mode:      recording.GPSNone,
			JitterMs:  1000,
			Kp:        gps.DefaultKp,
			Ki:        gps.DefaultKi,
			Smoothing: gps.DefaultSmoothing,
		},
		Amplitude: AmplitudeConfig{
			Method:        AmplitudeDemodulator,
			Smoothing:     true,
			WindowSeconds: amplitude.WindowSeconds,
			Epsilon:       amplitude.WindowEpsilon,
			Reference:     amplitude.DefaultReference,
		},
		Output: OutputConfig{
			Directory: "results",
			Pattern:   "%Y%m%d",
			Database:  "vlf.sqlite",
			SQLite:    true,
			Binary:    true,
			Text:      true,
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	config := NewConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Params returns the MSK parameters of the configured signal.
func (c *Config) Params() msk.Params {
	return msk.Params{
		SampleRate: c.Signal.SampleRate.Hz(),
		Carrier:    c.Signal.Carrier.Hz(),
		SymbolRate: c.Signal.SymbolRate.Hz(),
	}
}

// BlockSize returns the configured block size, one second of samples when
// unset.
func (c *Config) BlockSize() int {
	if c.Capture.BlockSize > 0 {
		return c.Capture.BlockSize
	}
	return int(c.Signal.SampleRate.Hz())
}

// CaptureDate returns the capture date at midnight UTC, used for file naming.
func (c *Config) CaptureDate() time.Time {
	t, _ := time.Parse(dateLayout, c.Capture.Date)
	return t
}

func (c *Config) Validate() error {
	if c.Settings.Workers < 1 {
		return fmt.Errorf("app.Config: workers must be at least 1: %d given", c.Settings.Workers)
	}

	if c.Capture.VLFFile == "" {
		return fmt.Errorf("app.Config: VLF file is required")
	}
	if _, err := time.Parse(dateLayout, c.Capture.Date); err != nil {
		return fmt.Errorf("app.Config: invalid capture date %q, want YYYY-MM-DD", c.Capture.Date)
	}
	if _, err := time.Parse(clockLayout, c.Capture.StartTime); err != nil {
		return fmt.Errorf("app.Config: invalid start time %q, want HH:MM", c.Capture.StartTime)
	}
	if c.Capture.BlockSize < 0 {
		return fmt.Errorf("app.Config: block size must not be negative: %d", c.Capture.BlockSize)
	}
	if _, err := time.LoadLocation(c.Station.TimeZone); err != nil {
		return fmt.Errorf("app.Config: invalid time zone %q: %s", c.Station.TimeZone, err)
	}

	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("app.Config: %w", err)
	}
	nyquist := rf.Range{0, rf.Hz(c.Signal.SampleRate / 2)}
	if band := c.Signal.Carrier.passband(c.Signal.SymbolRate); !nyquist.ContainsRange(band) {
		return fmt.Errorf("app.Config: carrier band %s is outside the sampled range %s", band, nyquist)
	}
	if c.Signal.TestMode < msk.Production || c.Signal.TestMode > msk.RectifyBoth {
		return fmt.Errorf("app.Config: invalid test mode: %d", c.Signal.TestMode)
	}
	if bs := c.BlockSize(); bs < c.Params().SamplesPerBit()*2 {
		return fmt.Errorf("app.Config: block size %d is shorter than two bits", bs)
	}

	if _, ok := validGPSModes[c.GPS.Mode]; !ok {
		return fmt.Errorf("app.Config: invalid GPS mode: %s", c.GPS.Mode)
	}
	if c.GPS.Mode == recording.GPSFile && c.Capture.GPSFile == "" {
		return fmt.Errorf("app.Config: GPS mode %q requires a GPS file", c.GPS.Mode)
	}
	if c.GPS.Mode != recording.GPSNone {
		if c.GPS.Smoothing <= 0 || c.GPS.Smoothing > 1 {
			return fmt.Errorf("app.Config: GPS smoothing must be in (0, 1]: %g given", c.GPS.Smoothing)
		}
		if c.GPS.JitterMs < 0 {
			return fmt.Errorf("app.Config: GPS jitter must not be negative: %g given", c.GPS.JitterMs)
		}
	}

	switch c.Amplitude.Method {
	case AmplitudeDemodulator:
		if c.Amplitude.WindowSeconds < 1 {
			return fmt.Errorf("app.Config: amplitude window must be at least 1 second: %d given", c.Amplitude.WindowSeconds)
		}
	case AmplitudeDirect:
	default:
		return fmt.Errorf("app.Config: invalid amplitude method: %s", c.Amplitude.Method)
	}
	if c.Amplitude.Epsilon <= 0 {
		return fmt.Errorf("app.Config: amplitude epsilon must be positive: %g given", c.Amplitude.Epsilon)
	}
	if c.Amplitude.Reference <= 0 {
		return fmt.Errorf("app.Config: amplitude reference must be positive: %g given", c.Amplitude.Reference)
	}

	if !c.Output.SQLite && !c.Output.Binary && !c.Output.Text {
		return fmt.Errorf("app.Config: no output selected")
	}
	if c.Output.SQLite && c.Output.Database == "" {
		return fmt.Errorf("app.Config: database file name is required for SQLite output")
	}

	return nil
}
