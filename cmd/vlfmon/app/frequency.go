package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
	"hz.tools/rf"
)

// Frequency is a frequency in Hz that reads SI notation from configuration
// files: "96kHz", "21.4k", "200" and "200Hz" are all accepted.
type Frequency rf.Hz

// ParseFrequency reads values with a Hz unit through rf.ParseHz and bare SI
// numbers ("21.4k") through humanize.
func ParseFrequency(s string) (Frequency, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.HasSuffix(strings.ToLower(compact), "hz") {
		hz, err := rf.ParseHz(compact)
		if err != nil {
			return 0, fmt.Errorf("app.Frequency: failed to parse %q: %s", s, err)
		}
		return Frequency(hz), nil
	}

	value, unit, err := humanize.ParseSI(compact)
	if err != nil {
		return 0, fmt.Errorf("app.Frequency: failed to parse %q: %s", s, err)
	}
	if unit != "" {
		return 0, fmt.Errorf("app.Frequency: unexpected unit %q in %q", unit, s)
	}
	return Frequency(value), nil
}

// Hz returns the frequency as a plain float.
func (f Frequency) Hz() float64 {
	return float64(f)
}

func (f Frequency) String() string {
	return rf.Hz(f).String()
}

// Band returns the ITU band name ("VLF", "LF", ...) the frequency falls in.
func (f Frequency) Band() string {
	return rf.Hz(f).ITUBandName()
}

// passband returns the range f ± width/2.
func (f Frequency) passband(width Frequency) rf.Range {
	return rf.Range{rf.Hz(f - width/2), rf.Hz(f + width/2)}
}

func (f *Frequency) UnmarshalYAML(value *yaml.Node) error {
	freq, err := ParseFrequency(value.Value)
	if err != nil {
		return err
	}

	*f = freq
	return nil
}

func (f Frequency) MarshalYAML() (interface{}, error) {
	return strconv.FormatFloat(float64(f), 'f', -1, 64), nil
}

func (f *Frequency) UnmarshalJSON(bytes []byte) error {
	var v float64
	if err := json.Unmarshal(bytes, &v); err == nil {
		*f = Frequency(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}

	freq, err := ParseFrequency(s)
	if err != nil {
		return err
	}

	*f = freq
	return nil
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(f))
}
