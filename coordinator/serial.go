package coordinator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/unixpickle/distmat/dense"
	"github.com/unixpickle/distmat/kernels"
	"github.com/unixpickle/distmat/report"
)

// SerialSummary is the outcome of a single-process run.
type SerialSummary struct {
	NormC float64
	NormD float64

	// Symmetric reports whether A equals its transpose.
	Symmetric bool

	MultiplyWall time.Duration
	PeakBytes    int64
}

// RunSerial runs the whole N x N problem in one process,
// including the transpose, which is not distributed.
//
// Only N, MemLimit, FillA and FillB are used from cfg.
func RunSerial(cfg Config, sink *report.Sink) (*SerialSummary, error) {
	if err := cfg.validateProblem(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = report.NewSink(nil)
	}
	n := cfg.N
	sink.Printf("Matrix size: %d x %d", n, n)

	alloc := dense.NewAllocator(cfg.MemLimit)
	defer alloc.ReleaseAll()

	var a, b, c, d, at *dense.Matrix
	for _, dst := range []**dense.Matrix{&a, &b, &c, &d, &at} {
		m, err := alloc.Allocate(n, n)
		if err != nil {
			return nil, errors.Wrap(err, "serial")
		}
		*dst = m
	}

	sink.Printf("Initializing matrices...")
	a.Fill(cfg.FillA)
	b.Fill(cfg.FillB)

	sink.Printf("Computing C = A * B...")
	start := time.Now()
	if err := kernels.Multiply(a, b, c); err != nil {
		return nil, err
	}
	res := &SerialSummary{MultiplyWall: time.Since(start)}

	sink.Printf("Computing D = C + A...")
	if err := kernels.Add(c, a, d); err != nil {
		return nil, err
	}

	sink.Printf("Computing transpose of A...")
	if err := kernels.Transpose(a, at); err != nil {
		return nil, err
	}
	res.Symmetric = equal(a, at)

	sink.Printf("Computing Frobenius norms...")
	res.NormC = kernels.Frobenius(c)
	res.NormD = kernels.Frobenius(d)
	sink.Printf("||C||_F = %.4f", res.NormC)
	sink.Printf("||D||_F = %.4f", res.NormD)

	if n <= 10 {
		sink.Printf("A:\n%s", a)
		sink.Printf("C = A * B:\n%s", c)
	}
	res.PeakBytes = alloc.Peak()
	return res, nil
}

func equal(a, b *dense.Matrix) bool {
	bData := b.Data()
	for i, x := range a.Data() {
		if x != bData[i] {
			return false
		}
	}
	return true
}
