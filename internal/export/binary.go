package export

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// BinaryExporter writes the values of a table as raw little-endian float64
// into <dir>/<name>.bin. The time axis is not written.
type BinaryExporter struct {
	dir string
}

func NewBinaryExporter(dir string) *BinaryExporter {
	return &BinaryExporter{dir: dir}
}

func (e *BinaryExporter) Export(ctx context.Context, table Table) (path string, err error) {
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if err = os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path = filepath.Join(e.dir, table.Name+".bin")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	w := bufio.NewWriter(f)
	if err = WriteFloat64(w, table.Values); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err = w.Flush(); err != nil {
		return "", fmt.Errorf("flushing %s: %w", path, err)
	}
	return path, nil
}

// WriteFloat64 encodes values as consecutive little-endian IEEE-754 doubles.
func WriteFloat64(w *bufio.Writer, values []float64) error {
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadFloat64 loads a file written by BinaryExporter.
func ReadFloat64(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%s: size %d is not a multiple of 8", path, len(data))
	}

	values := make([]float64, len(data)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return values, nil
}

var _ Exporter = (*BinaryExporter)(nil)
