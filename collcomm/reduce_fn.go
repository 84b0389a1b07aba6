package collcomm

import (
	"math"

	"github.com/unixpickle/distmat/simulator"
)

// FlopTime is the amount of virtual time it takes to
// perform a single floating-point operation.
const FlopTime = 1e-9

// A ReduceFn is an operation that reduces many vectors
// into a single vector.
//
// It must be associative and commutative. Implementations
// combine the vectors in the order given, so a fixed order
// of inputs gives a reproducible result.
type ReduceFn func(h *simulator.Handle, vecs ...[]float64) []float64

// Sum is a ReduceFn that computes a vector sum.
func Sum(h *simulator.Handle, vecs ...[]float64) []float64 {
	return combine(h, vecs, 0, func(acc, x float64) float64 {
		return acc + x
	})
}

// Max is a ReduceFn that computes an elementwise maximum.
func Max(h *simulator.Handle, vecs ...[]float64) []float64 {
	return combine(h, vecs, math.Inf(-1), math.Max)
}

func combine(h *simulator.Handle, vecs [][]float64, identity float64,
	op func(acc, x float64) float64) []float64 {
	for _, v := range vecs[1:] {
		if len(v) != len(vecs[0]) {
			panic("mismatching lengths")
		}
	}
	res := make([]float64, len(vecs[0]))
	for i := range res {
		res[i] = identity
	}
	for _, v := range vecs {
		for i, x := range v {
			res[i] = op(res[i], x)
		}
	}

	// Simulate computation time.
	h.Sleep(FlopTime * float64(len(vecs)*len(vecs[0])))

	return res
}
