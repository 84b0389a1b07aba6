package dense

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
)

const elementBytes = 8

var (
	// ErrOutOfMemory is returned when a matrix does not fit
	// in the remaining budget of an Allocator.
	ErrOutOfMemory = errors.New("dense: out of memory")

	// ErrBadShape is returned for negative dimensions.
	ErrBadShape = errors.New("dense: invalid shape")

	// ErrReleased is returned when a matrix is released
	// twice, or by an Allocator that does not own it.
	ErrReleased = errors.New("dense: matrix already released")
)

// An Allocator hands out matrices from a byte budget.
//
// Every worker owns one Allocator; it is not safe to use
// from more than one Goroutine.
type Allocator struct {
	// Limit is the maximum number of bytes that may be
	// live at once. If Limit is 0, there is no limit.
	Limit int64

	inUse int64
	peak  int64
	live  []*Matrix
}

// NewAllocator creates an Allocator with a byte limit.
func NewAllocator(limit int64) *Allocator {
	return &Allocator{Limit: limit}
}

// Allocate creates a zeroed rows x cols matrix.
//
// A matrix with zero rows or columns is valid and takes
// no storage.
func (a *Allocator) Allocate(rows, cols int) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.Wrapf(ErrBadShape, "allocate %dx%d", rows, cols)
	}
	size, ok := matrixBytes(rows, cols)
	if !ok {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocate %dx%d: size overflows", rows, cols)
	}
	if a.Limit > 0 && a.inUse+size > a.Limit {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocate %dx%d (%s): %s of %s in use",
			rows, cols, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(a.inUse)),
			humanize.IBytes(uint64(a.Limit)))
	}
	m := &Matrix{
		rows:  rows,
		cols:  cols,
		data:  make([]float64, rows*cols),
		owner: a,
	}
	a.live = append(a.live, m)
	a.inUse += size
	if a.inUse > a.peak {
		a.peak = a.inUse
	}
	return m, nil
}

// Release returns a matrix's storage to the budget.
//
// After Release, the matrix must not be used.
func (a *Allocator) Release(m *Matrix) error {
	if m == nil || m.owner != a || m.released {
		return ErrReleased
	}
	for i, x := range a.live {
		if x == m {
			essentials.UnorderedDelete(&a.live, i)
			break
		}
	}
	a.inUse -= m.Bytes()
	m.released = true
	m.data = nil
	return nil
}

// ReleaseAll releases every live matrix.
//
// It is meant to be deferred right after the Allocator is
// created so that every exit path frees its buffers.
func (a *Allocator) ReleaseAll() {
	for len(a.live) > 0 {
		essentials.Must(a.Release(a.live[len(a.live)-1]))
	}
}

// InUse returns the number of bytes currently allocated.
func (a *Allocator) InUse() int64 {
	return a.inUse
}

// Peak returns the maximum of InUse() over the lifetime
// of the Allocator.
func (a *Allocator) Peak() int64 {
	return a.peak
}

// NumLive returns the number of unreleased matrices.
func (a *Allocator) NumLive() int {
	return len(a.live)
}

func matrixBytes(rows, cols int) (int64, bool) {
	if rows == 0 || cols == 0 {
		return 0, true
	}
	if int64(rows) > math.MaxInt64/elementBytes/int64(cols) {
		return 0, false
	}
	n := int64(rows) * int64(cols)
	if n > int64(math.MaxInt) {
		return 0, false
	}
	return n * elementBytes, true
}
