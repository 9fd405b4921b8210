package export

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryExporter_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	values := []float64{0, -1.5, math.Pi, 1e-300, math.MaxFloat64}

	path, err := NewBinaryExporter(dir).Export(context.Background(), Table{Name: "phase_20250110", Values: values})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "phase_20250110.bin"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 8*len(values), info.Size())

	got, err := ReadFloat64(path)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestReadFloat64_BadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 12), 0o644))

	_, err := ReadFloat64(path)
	assert.Error(t, err)
}

func TestTextExporter(t *testing.T) {
	dir := t.TempDir()
	table := Table{
		Name:    "amplitude_db_20250110",
		Columns: [2]string{"time_ut", "amplitude_db"},
		Time:    []float64{3, 15},
		Values:  []float64{-42.25, 7},
	}

	path, err := NewTextExporter(dir).Export(context.Background(), table)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := strings.Join([]string{
		"time_ut\tamplitude_db",
		"3.0000000000\t-42.2500000000",
		"15.0000000000\t7.0000000000",
		"",
	}, "\n")
	assert.Equal(t, want, string(data))
}

func TestTextExporter_NoHeader(t *testing.T) {
	path, err := NewTextExporter(t.TempDir()).Export(context.Background(), Table{
		Name:   "bare",
		Time:   []float64{0},
		Values: []float64{1},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0000000000\t1.0000000000\n", string(data))
}

func TestTextExporter_Errors(t *testing.T) {
	e := NewTextExporter(t.TempDir())

	_, err := e.Export(context.Background(), Table{Name: "x", Time: []float64{1}, Values: []float64{1, 2}})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, Table{Name: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNamer(t *testing.T) {
	date := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	n, err := NewNamer("")
	require.NoError(t, err)
	assert.Equal(t, "phase_deg_20250110", n.Name("phase_deg", date))

	n, err = NewNamer("%d-%m-%Y")
	require.NoError(t, err)
	assert.Equal(t, "amplitude_db_10-01-2025", n.Name("amplitude_db", date))
}

func TestTimeAxis(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		start float64
		want  []float64
	}{
		{"empty", 0, 3, []float64{}},
		{"single", 1, 3, []float64{3}},
		{"endpoints", 2, 3, []float64{3, 27}},
		{"quarters", 5, -2, []float64{-2, 4, 10, 16, 22}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDeltaSlice(t, tt.want, TimeAxis(tt.n, tt.start), 1e-12)
		})
	}
}

func TestStartUT(t *testing.T) {
	// Brazil has not observed daylight saving since 2019.
	start, offset, err := StartUT("2025-01-10", "00:00", "America/Sao_Paulo")
	require.NoError(t, err)
	assert.Equal(t, -3.0, offset)
	assert.Equal(t, 3.0, start)

	start, offset, err = StartUT("2025-07-01", "01:30", "Europe/London")
	require.NoError(t, err)
	assert.Equal(t, 1.0, offset)
	assert.Equal(t, 0.5, start)

	_, _, err = StartUT("10-01-2025", "00:00", "UTC")
	assert.Error(t, err)

	_, _, err = StartUT("2025-01-10", "00:00", "Nowhere/Special")
	assert.Error(t, err)
}
