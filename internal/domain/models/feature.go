package models

import "time"

// FeatureMatrix is a dense feature table with one row per eligible
// trading day. Rows, Dates, and Target are index-aligned. Target holds
// the next day's close for every row except the last inference row,
// which carries no target.
type FeatureMatrix struct {
	Names  []string
	Rows   [][]float64
	Dates  []time.Time
	Target []float64
}

// NumRows returns the row count.
func (m *FeatureMatrix) NumRows() int { return len(m.Rows) }

// ColumnIndex returns the position of a named feature, or -1.
func (m *FeatureMatrix) ColumnIndex(name string) int {
	for i, n := range m.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// LastRow returns a copy of the final row. Callers mutate the copy
// freely during recursive forecasting without aliasing the matrix.
func (m *FeatureMatrix) LastRow() []float64 {
	if len(m.Rows) == 0 {
		return nil
	}
	src := m.Rows[len(m.Rows)-1]
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// Slice returns a view of rows [from, to) sharing backing arrays.
func (m *FeatureMatrix) Slice(from, to int) *FeatureMatrix {
	return &FeatureMatrix{
		Names:  m.Names,
		Rows:   m.Rows[from:to],
		Dates:  m.Dates[from:to],
		Target: m.Target[from:to],
	}
}
