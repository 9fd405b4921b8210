package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// DefaultPattern names output files after the capture date.
const DefaultPattern = "%Y%m%d"

// ErrLengthMismatch is returned when a table's time axis and values differ in
// length.
var ErrLengthMismatch = errors.New("time axis and values differ in length")

// Table is a single named series prepared for export.
type Table struct {
	Name    string    // File name without extension
	Columns [2]string // Header of the text form: time column, value column
	Time    []float64 // UT hours, optional for binary output
	Values  []float64
}

// Exporter writes a table to some destination and returns where it went.
type Exporter interface {
	Export(ctx context.Context, table Table) (path string, err error)
}

// Namer builds file names from a series prefix and a strftime pattern
// applied to the capture date.
type Namer struct {
	format *strftime.Strftime
}

// NewNamer compiles pattern. An empty pattern selects DefaultPattern.
func NewNamer(pattern string) (*Namer, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling file name pattern %q: %w", pattern, err)
	}
	return &Namer{format: f}, nil
}

// Name returns prefix_<date formatted by the pattern>.
func (n *Namer) Name(prefix string, date time.Time) string {
	return prefix + "_" + n.format.FormatString(date)
}
