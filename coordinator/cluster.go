package coordinator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/unixpickle/distmat/collcomm"
	"github.com/unixpickle/distmat/partition"
	"github.com/unixpickle/distmat/report"
	"github.com/unixpickle/distmat/simulator"
	"k8s.io/klog/v2"
)

// Summary is the outcome of a cluster run.
type Summary struct {
	Config  Config
	Results []*Result

	// NormSquared and Norm are the root's global results.
	NormSquared float64
	Norm        float64

	// VirtualTime is the simulated duration of the run.
	VirtualTime float64
	Wall        time.Duration
}

// Root returns the root worker's result.
func (s *Summary) Root() *Result {
	return s.Results[s.Config.Root]
}

// Run launches one worker per simulated node, runs the
// pipeline to completion, and returns every worker's
// result.
//
// If any worker fails, the error of a worker that failed
// on its own is returned in preference to the errors of
// the workers it aborted. A run in which workers block
// forever is reported as an error wrapping
// simulator.ErrDeadlock.
func Run(ctx context.Context, cfg Config, sink *report.Sink) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = report.NewSink(nil)
	}
	sink.Printf("Global matrix size: %d x %d", cfg.N, cfg.N)
	sink.Printf("Workers: %d (root %d, %s reducer, %s network)", cfg.Workers, cfg.Root,
		cfg.Reducer, cfg.Network)

	loop := cfg.newLoop()
	nodes := simulator.NewNodes(cfg.Workers)
	results := make([]*Result, cfg.Workers)
	errs := make([]error, cfg.Workers)
	collcomm.SpawnComms(loop, cfg.newNetwork(nodes), nodes, func(c *collcomm.Comms) {
		results[c.Index()], errs[c.Index()] = RunWorker(c, cfg, sink)
	})

	start := time.Now()
	if err := loop.Run(); err != nil {
		return nil, errors.Wrap(err, "run cluster")
	}
	summary := &Summary{
		Config:      cfg,
		Results:     results,
		VirtualTime: loop.Time(),
		Wall:        time.Since(start),
	}
	if err := firstFailure(errs); err != nil {
		return summary, err
	}

	ranges := make([]partition.RowRange, len(results))
	for i, r := range results {
		ranges[i] = r.Rows
	}
	if err := partition.Check(ranges, cfg.N); err != nil {
		return summary, err
	}

	root := summary.Root()
	summary.NormSquared = root.NormSquared
	summary.Norm = root.Norm
	sink.Printf("Peak memory per worker: %s (root), virtual time %.6f s",
		report.Bytes(root.PeakBytes), summary.VirtualTime)
	klog.V(1).Infof("run finished in %v", summary.Wall)
	return summary, nil
}

func firstFailure(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPeerFailed) {
			return err
		} else if first == nil {
			first = err
		}
	}
	return first
}
