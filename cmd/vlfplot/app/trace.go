package app

import "math"

// Column summarises the values of a trace that fall into one pixel column.
type Column struct {
	Min, Max, Mean float64
	Count          int
}

// Trace is a series reduced to a fixed number of pixel columns.
type Trace struct {
	Name    string
	Unit    string
	Total   int // Values in the whole series
	Columns []Column
	Bounds  Bounds

	index int
	sums  []float64
}

// NewTrace prepares a trace of width columns for a series of total values.
func NewTrace(name, unit string, total, width int) *Trace {
	t := Trace{
		Name:    name,
		Unit:    unit,
		Total:   total,
		Columns: make([]Column, width),
		sums:    make([]float64, width),
	}
	for i := range t.Columns {
		t.Columns[i].Min = math.Inf(1)
		t.Columns[i].Max = math.Inf(-1)
	}
	return &t
}

// Update adds the next values of the series. Non-finite values are skipped.
func (t *Trace) Update(values []float64) {
	width := len(t.Columns)
	for _, v := range values {
		idx := t.index
		t.index++

		if width == 0 || t.Total == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		col := min(idx*width/t.Total, width-1)
		c := &t.Columns[col]
		c.Min = min(c.Min, v)
		c.Max = max(c.Max, v)
		c.Count++
		t.sums[col] += v
		c.Mean = t.sums[col] / float64(c.Count)
	}
}

// Values returns the column means of populated columns.
func (t *Trace) Values() []float64 {
	out := make([]float64, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Count > 0 {
			out = append(out, c.Mean)
		}
	}
	return out
}
