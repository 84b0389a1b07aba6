package simulator

import (
	"testing"
)

func TestConnMatSums(t *testing.T) {
	mat := NewConnMat(4)
	mat.Set(1, 2, 3.0)
	mat.Set(0, 2, 2.0)
	mat.Set(2, 3, 4.0)
	for dst, expected := range []float64{0, 0, 5, 4} {
		if res := mat.SumDest(dst); res != expected {
			t.Errorf("dest %d: expected sum of %f but got %f", dst, expected, res)
		}
	}
	for src, expected := range []float64{2, 3, 4, 0} {
		if res := mat.SumSource(src); res != expected {
			t.Errorf("source %d: expected sum of %f but got %f", src, expected, res)
		}
	}
}

func TestConnMatScales(t *testing.T) {
	mat := NewConnMat(4)
	mat.Set(1, 2, 3.0)
	mat.Set(1, 3, 5.0)
	mat.Set(0, 2, 2.0)
	mat.Set(2, 3, 4.0)

	mat.ScaleSource(1, 2.0)
	for i, expected := range []float64{0, 0, 3.0 * 2.0, 5.0 * 2.0} {
		if res := mat.Get(1, i); res != expected {
			t.Errorf("column %d: expected %f but got %f", i, expected, res)
		}
	}

	mat.ScaleDest(3, 3.0)
	for i, expected := range []float64{0, 5.0 * 2.0 * 3.0, 4.0 * 3.0, 0} {
		if res := mat.Get(i, 3); res != expected {
			t.Errorf("row %d: expected %f but got %f", i, expected, res)
		}
	}
}

func TestConnMatBounds(t *testing.T) {
	mat := NewConnMat(2)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	mat.Get(2, 0)
}
