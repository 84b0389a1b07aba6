// Package kernels implements the local dense-matrix
// operations a worker runs on the buffers it owns.
//
// Every kernel writes into a caller-provided output and
// keeps no state between calls.
package kernels

import (
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/distmat/dense"
)

var (
	// ErrDimensionMismatch is returned when operand shapes
	// are incompatible.
	ErrDimensionMismatch = errors.New("kernels: dimension mismatch")

	// ErrNonSquare is returned when a square matrix is
	// required.
	ErrNonSquare = errors.New("kernels: matrix is not square")
)

// Multiply computes c = a*b, where a is rows x n, b is
// n x n, and c is rows x n.
//
// Each output element is accumulated in a scalar with k as
// the inner index, so rounding error grows as O(n*eps).
func Multiply(a, b, c *dense.Matrix) error {
	rows, n := a.Rows(), a.Cols()
	if b.Rows() != n || b.Cols() != n || c.Rows() != rows || c.Cols() != n {
		return errors.Wrapf(ErrDimensionMismatch, "multiply %dx%d by %dx%d into %dx%d",
			rows, n, b.Rows(), b.Cols(), c.Rows(), c.Cols())
	}
	aData, bData, cData := a.Data(), b.Data(), c.Data()
	for i := 0; i < rows; i++ {
		aRow := aData[i*n : (i+1)*n]
		cRow := cData[i*n : (i+1)*n]
		for j := range cRow {
			var sum float64
			for k, x := range aRow {
				sum += x * bData[k*n+j]
			}
			cRow[j] = sum
		}
	}
	return nil
}

// Add computes c = a + b elementwise.
func Add(a, b, c *dense.Matrix) error {
	if !a.SameShape(b) || !a.SameShape(c) {
		return errors.Wrapf(ErrDimensionMismatch, "add %dx%d and %dx%d into %dx%d",
			a.Rows(), a.Cols(), b.Rows(), b.Cols(), c.Rows(), c.Cols())
	}
	bData, cData := b.Data(), c.Data()
	for i, x := range a.Data() {
		cData[i] = x + bData[i]
	}
	return nil
}

// Transpose writes the transpose of the square matrix a
// into at.
//
// It is only used by the single-process pipeline.
func Transpose(a, at *dense.Matrix) error {
	n := a.Rows()
	if a.Cols() != n {
		return errors.Wrapf(ErrNonSquare, "transpose %dx%d", a.Rows(), a.Cols())
	}
	if !a.SameShape(at) {
		return errors.Wrapf(ErrDimensionMismatch, "transpose %dx%d into %dx%d",
			n, n, at.Rows(), at.Cols())
	}
	aData, atData := a.Data(), at.Data()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			atData[i*n+j] = aData[j*n+i]
		}
	}
	return nil
}

// NormContribution computes the sum of squares of every
// element, in row-major order.
func NormContribution(a *dense.Matrix) float64 {
	var sum float64
	for _, x := range a.Data() {
		sum += x * x
	}
	return sum
}

// Frobenius computes the Frobenius norm of a.
func Frobenius(a *dense.Matrix) float64 {
	return math.Sqrt(NormContribution(a))
}

// MultiplyFlops counts the floating-point operations in a
// rows x n by n x n multiply.
func MultiplyFlops(rows, n int) float64 {
	return 2 * float64(rows) * float64(n) * float64(n)
}

// AddFlops counts the operations in an elementwise add.
func AddFlops(rows, cols int) float64 {
	return float64(rows) * float64(cols)
}

// NormFlops counts the operations in NormContribution.
func NormFlops(rows, cols int) float64 {
	return 2 * float64(rows) * float64(cols)
}
