package coordinator

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/unixpickle/distmat/collcomm"
	"github.com/unixpickle/distmat/collcomm/reduce"
	"github.com/unixpickle/distmat/dense"
	"github.com/unixpickle/distmat/kernels"
	"github.com/unixpickle/distmat/partition"
	"github.com/unixpickle/distmat/report"
	"k8s.io/klog/v2"
)

// Result is what one worker knows at the end of a run.
type Result struct {
	Index int
	Rows  partition.RowRange
	State State

	// Partial is the worker's sum of squares of C.
	Partial float64

	// HasGlobal is only true at the root, which is the
	// only worker where NormSquared and Norm are set.
	HasGlobal   bool
	NormSquared float64
	Norm        float64

	// MultiplyWall is the real time spent in the multiply.
	// MultiplyVirtual is the simulated time charged for it.
	MultiplyWall    time.Duration
	MultiplyVirtual float64

	PeakBytes int64
}

// worker holds the buffers and progress of one worker.
type worker struct {
	cfg   Config
	comms *collcomm.Comms
	sink  *report.Sink
	res   *Result

	reducer reduce.Reducer
	voter   reduce.Allreducer

	a, b, c, d *dense.Matrix
}

// RunWorker runs the pipeline as one worker of a cluster.
//
// All workers of the cluster must call RunWorker with the
// same Config. The Result is non-nil even when an error is
// returned.
func RunWorker(c *collcomm.Comms, cfg Config, sink *report.Sink) (*Result, error) {
	w := &worker{
		cfg:   cfg,
		comms: c,
		sink:  sink,
		res:   &Result{Index: c.Index(), State: Initialized},
	}
	err := w.run()
	if err != nil {
		w.transition(Failed)
		klog.Errorf("worker %d: %v", w.res.Index, err)
	}
	return w.res, err
}

func (w *worker) run() error {
	if err := w.cfg.Validate(); err != nil {
		return err
	} else if w.cfg.Workers != w.comms.Size() {
		return errors.Wrapf(ErrInvalidConfiguration, "configured for %d workers but cluster has %d",
			w.cfg.Workers, w.comms.Size())
	}
	w.reducer, _ = reduce.ByName(w.cfg.Reducer)
	w.voter = reduce.AllreducerFor(w.reducer)
	klog.V(1).Infof("worker %d: %s", w.res.Index, w.res.State)

	w.res.Rows = partition.Partition(w.res.Index, w.cfg.Workers, w.cfg.N)
	w.transition(Partitioned)

	alloc := dense.NewAllocator(w.cfg.memLimit(w.res.Index))
	defer func() {
		w.res.PeakBytes = alloc.Peak()
		alloc.ReleaseAll()
	}()
	if err := w.allocate(alloc); err != nil {
		return err
	}
	w.transition(Allocated)

	w.rootPrintf("Initializing matrices...")
	w.initialize()

	w.rootPrintf("Computing C = A * B (%s flops)...",
		report.Count(int64(kernels.MultiplyFlops(w.cfg.N, w.cfg.N))))
	if err := w.multiply(); err != nil {
		return err
	}
	w.rootPrintf("Matrix multiplication time: %.4f seconds (%.4f virtual)",
		w.res.MultiplyWall.Seconds(), w.res.MultiplyVirtual)
	w.transition(Multiplied)

	w.rootPrintf("Computing D = C + A...")
	if err := kernels.Add(w.c, w.a, w.d); err != nil {
		return errors.Wrap(err, "add")
	}
	w.comms.Compute(kernels.AddFlops(w.d.Rows(), w.d.Cols()))
	w.transition(Added)

	w.rootPrintf("Computing global Frobenius norm...")
	w.reduceNorm()
	w.transition(Reduced)

	if w.res.HasGlobal {
		w.rootPrintf("||C||_F = %.4f", w.res.Norm)
	}
	w.transition(Finalized)
	return nil
}

// allocate creates the worker's buffers and then votes
// with every other worker, so that one worker running out
// of memory aborts all of them instead of leaving them
// blocked in a later collective.
func (w *worker) allocate(alloc *dense.Allocator) error {
	rows, n := w.res.Rows.Len(), w.cfg.N
	shapes := []struct {
		dst        **dense.Matrix
		name       string
		rows, cols int
	}{
		{&w.a, "A", rows, n},
		{&w.b, "B", n, n},
		{&w.c, "C", rows, n},
		{&w.d, "D", rows, n},
	}
	var allocErr error
	for _, s := range shapes {
		m, err := alloc.Allocate(s.rows, s.cols)
		if err != nil {
			allocErr = errors.Wrapf(err, "worker %d: allocate %s", w.res.Index, s.name)
			break
		}
		*s.dst = m
	}

	var flag float64
	if allocErr != nil {
		flag = 1
	}
	if reduce.AllreduceScalar(w.voter, w.comms, flag, collcomm.Max) != 0 {
		if allocErr != nil {
			return allocErr
		}
		return errors.Wrapf(ErrPeerFailed, "worker %d", w.res.Index)
	}
	klog.V(1).Infof("worker %d: rows %s, %s allocated", w.res.Index, w.res.Rows,
		report.Bytes(alloc.InUse()))
	return nil
}

func (w *worker) initialize() {
	w.a.Fill(w.cfg.FillA)
	w.c.Fill(0)
	w.d.Fill(0)
	if !w.cfg.Broadcast {
		w.b.Fill(w.cfg.FillB)
		return
	}
	if w.res.Index == w.cfg.Root {
		w.b.Fill(w.cfg.FillB)
	}
	data := w.comms.BcastFrom(w.cfg.Root, w.b.Data())
	if w.res.Index != w.cfg.Root {
		copy(w.b.Data(), data)
	}
}

// multiply computes C = A*B after a barrier, so that the
// timed section does not include start-up skew.
func (w *worker) multiply() error {
	w.comms.Barrier()
	wallStart := time.Now()
	virtualStart := w.comms.Handle.Time()
	if err := kernels.Multiply(w.a, w.b, w.c); err != nil {
		return errors.Wrap(err, "multiply")
	}
	w.comms.Compute(kernels.MultiplyFlops(w.c.Rows(), w.cfg.N))
	w.res.MultiplyWall = time.Since(wallStart)
	w.res.MultiplyVirtual = w.comms.Handle.Time() - virtualStart
	return nil
}

func (w *worker) reduceNorm() {
	w.res.Partial = kernels.NormContribution(w.c)
	w.comms.Compute(kernels.NormFlops(w.c.Rows(), w.c.Cols()))
	global, ok := reduce.ReduceScalar(w.reducer, w.comms, w.res.Partial, collcomm.Sum, w.cfg.Root)
	if ok {
		w.res.HasGlobal = true
		w.res.NormSquared = global
		w.res.Norm = math.Sqrt(global)
	}
}

func (w *worker) transition(s State) {
	klog.V(1).Infof("worker %d: %s -> %s", w.res.Index, w.res.State, s)
	w.res.State = s
}

func (w *worker) rootPrintf(format string, args ...interface{}) {
	if w.res.Index == w.cfg.Root && w.sink != nil {
		w.sink.Printf(format, args...)
	}
}
