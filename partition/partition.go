// Package partition splits the rows of a global matrix
// into contiguous, load-balanced ranges, one per worker.
//
// Every worker derives its own range from its index, so no
// assignment has to be sent over the network.
package partition

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
)

// ErrCoverage is returned by Check when a set of ranges
// does not cover [0, n) exactly once.
var ErrCoverage = errors.New("partition: ranges do not cover all rows exactly once")

// A RowRange is the half-open interval [Start, End) of
// global row indices owned by one worker.
type RowRange struct {
	Start int
	End   int
}

// Len returns the number of rows in the range.
func (r RowRange) Len() int {
	return r.End - r.Start
}

// Empty checks if the range owns no rows.
func (r RowRange) Empty() bool {
	return r.End == r.Start
}

// Contains checks if a global row is in the range.
func (r RowRange) Contains(row int) bool {
	return row >= r.Start && row < r.End
}

func (r RowRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Partition computes the rows owned by worker i out of w
// workers for an n-row matrix.
//
// The first n%w workers get one extra row each, so row
// counts differ by at most one and lower indices absorb
// the remainder.
func Partition(i, w, n int) RowRange {
	if w < 1 {
		panic("worker count must be positive")
	} else if i < 0 || i >= w {
		panic("worker index out of bounds")
	} else if n < 0 {
		panic("row count must be non-negative")
	}
	base := n / w
	remainder := n % w
	start := i*base + essentials.MinInt(i, remainder)
	end := start + base
	if i < remainder {
		end++
	}
	return RowRange{Start: start, End: end}
}

// All computes the ranges for every worker, in worker
// order.
func All(w, n int) []RowRange {
	res := make([]RowRange, w)
	for i := range res {
		res[i] = Partition(i, w, n)
	}
	return res
}

// Check verifies that ranges are ordered, non-negative in
// length, pairwise disjoint, and together cover [0, n).
func Check(ranges []RowRange, n int) error {
	next := 0
	total := 0
	for i, r := range ranges {
		if r.Start != next {
			return errors.Wrapf(ErrCoverage, "range %d starts at %d, expected %d", i, r.Start, next)
		} else if r.End < r.Start {
			return errors.Wrapf(ErrCoverage, "range %d %s has negative length", i, r)
		}
		next = r.End
		total += r.Len()
	}
	if total != n || next != n {
		return errors.Wrapf(ErrCoverage, "ranges cover %d rows, expected %d", total, n)
	}
	return nil
}
