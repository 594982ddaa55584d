// Package similarity stores the precomputed movie-to-movie similarity matrix
// and makes it available once per process.
package similarity

import (
	"fmt"
	"math"
)

// Matrix is a square, row-major similarity matrix. It is read-only once built.
type Matrix struct {
	n    int
	data []float32
}

// NewMatrix wraps row-major scores for an n×n matrix.
func NewMatrix(n int, data []float32) (*Matrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("matrix size %d is negative", n)
	}
	if len(data) != n*n {
		return nil, fmt.Errorf("matrix data has %d scores, want %d for size %d", len(data), n*n, n)
	}
	return &Matrix{n: n, data: data}, nil
}

// FromRows builds a matrix from nested rows. Every row must have len(rows) entries.
func FromRows(rows [][]float32) (*Matrix, error) {
	n := len(rows)
	data := make([]float32, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d scores, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return NewMatrix(n, data)
}

// Size is the number of rows (and columns).
func (m *Matrix) Size() int {
	if m == nil {
		return 0
	}
	return m.n
}

// At returns the score between movies i and j.
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.n+j]
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float32 {
	return append([]float32(nil), m.rowView(i)...)
}

// RowView returns row i without copying. Callers must not modify it.
func (m *Matrix) RowView(i int) []float32 {
	return m.rowView(i)
}

func (m *Matrix) rowView(i int) []float32 {
	return m.data[i*m.n : (i+1)*m.n : (i+1)*m.n]
}

// AsymmetryError reports the first pair whose scores differ by more than the
// tolerance.
type AsymmetryError struct {
	I, J      int
	IJ, JI    float32
	Tolerance float64
}

func (e *AsymmetryError) Error() string {
	return fmt.Sprintf("similarity matrix not symmetric at (%d,%d): %g vs %g (tolerance %g)", e.I, e.J, e.IJ, e.JI, e.Tolerance)
}

// CheckSymmetry verifies m[i][j] == m[j][i] within tolerance for every pair.
// NaN on either side of a pair counts as asymmetric.
func (m *Matrix) CheckSymmetry(tolerance float64) error {
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			diff := math.Abs(float64(a) - float64(b))
			if math.IsNaN(diff) || diff > tolerance {
				return &AsymmetryError{I: i, J: j, IJ: a, JI: b, Tolerance: tolerance}
			}
		}
	}
	return nil
}
