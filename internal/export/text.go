package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// textPrecision is the number of decimals written for both columns.
const textPrecision = 10

// TextExporter writes a table as tab-separated text into <dir>/<name>.txt:
// one header row followed by one "time<TAB>value" row per sample.
type TextExporter struct {
	dir string
}

func NewTextExporter(dir string) *TextExporter {
	return &TextExporter{dir: dir}
}

func (e *TextExporter) Export(ctx context.Context, table Table) (path string, err error) {
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if len(table.Time) != len(table.Values) {
		return "", fmt.Errorf("%s: %w (%d != %d)", table.Name, ErrLengthMismatch, len(table.Time), len(table.Values))
	}
	if err = os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path = filepath.Join(e.dir, table.Name+".txt")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	if table.Columns != [2]string{} {
		if err = w.Write(table.Columns[:]); err != nil {
			return "", fmt.Errorf("writing header: %w", err)
		}
	}

	row := make([]string, 2)
	for i, v := range table.Values {
		row[0] = strconv.FormatFloat(table.Time[i], 'f', textPrecision, 64)
		row[1] = strconv.FormatFloat(v, 'f', textPrecision, 64)
		if err = w.Write(row); err != nil {
			return "", fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return "", fmt.Errorf("flushing %s: %w", path, err)
	}
	return path, nil
}

var _ Exporter = (*TextExporter)(nil)
