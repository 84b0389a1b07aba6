// Package dense implements row-major float64 matrices
// whose storage is drawn from a per-worker byte budget.
package dense

import (
	"fmt"
	"strings"
)

// maxPrintDim is the largest dimension for which String()
// prints every element.
const maxPrintDim = 10

// A Matrix is a row-major matrix of float64 values.
//
// Matrices are created by an Allocator, which owns their
// storage until they are released.
type Matrix struct {
	rows int
	cols int
	data []float64

	owner    *Allocator
	released bool
}

// New creates a zeroed rows x cols matrix that is not
// charged to any Allocator.
func New(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic("invalid shape")
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return m.rows
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	return m.cols
}

// Bytes returns the size of the backing storage.
func (m *Matrix) Bytes() int64 {
	return elementBytes * int64(len(m.data))
}

// At gets an entry in the matrix.
func (m *Matrix) At(row, col int) float64 {
	return m.data[m.index(row, col)]
}

// Set an entry in the matrix.
func (m *Matrix) Set(row, col int, value float64) {
	m.data[m.index(row, col)] = value
}

// Row returns a slice aliasing one row of the matrix.
func (m *Matrix) Row(row int) []float64 {
	if row < 0 || row >= m.rows {
		panic("index out of bounds")
	}
	return m.data[row*m.cols : (row+1)*m.cols]
}

// Data returns the row-major backing slice.
//
// Kernels use it to avoid per-element bounds checks; the
// slice must not outlive the matrix.
func (m *Matrix) Data() []float64 {
	return m.data
}

// Fill overwrites every element with value.
func (m *Matrix) Fill(value float64) {
	for i := range m.data {
		m.data[i] = value
	}
}

// SameShape checks if two matrices have equal dimensions.
func (m *Matrix) SameShape(other *Matrix) bool {
	return m.rows == other.rows && m.cols == other.cols
}

// String prints small matrices in full and summarizes
// larger ones.
func (m *Matrix) String() string {
	if m.rows > maxPrintDim || m.cols > maxPrintDim {
		return fmt.Sprintf("[%d x %d matrix - too large to display]", m.rows, m.cols)
	}
	var b strings.Builder
	for i := 0; i < m.rows; i++ {
		for j, x := range m.Row(i) {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%8.4f", x)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Matrix) index(row, col int) int {
	if row < 0 || col < 0 || row >= m.rows || col >= m.cols {
		panic("index out of bounds")
	}
	return row*m.cols + col
}
