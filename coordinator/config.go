// Package coordinator runs the distributed matrix
// pipeline: every worker partitions the rows, allocates
// and fills its buffers, multiplies, adds, and contributes
// to a reduction whose result only the root sees.
package coordinator

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/distmat/collcomm/reduce"
	"github.com/unixpickle/distmat/simulator"
)

var (
	// ErrInvalidConfiguration is returned by every worker
	// when the run is misconfigured, before any buffer is
	// allocated.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrPeerFailed is returned by a worker that aborted
	// because another worker failed.
	ErrPeerFailed = errors.New("aborted: another worker failed")
)

// Names accepted for Config.Network.
const (
	NetworkSwitched = "switched"
	NetworkRandom   = "random"
	NetworkOrdered  = "ordered"
)

// Config describes one run of the pipeline.
//
// Every worker receives the same Config.
type Config struct {
	// N is the dimension of the global N x N problem.
	N int

	// Workers is the number of workers.
	Workers int

	// Root is the index of the worker that receives the
	// reduced result and reports it.
	Root int

	// MemLimit is the number of bytes each worker may
	// allocate. Zero means unlimited.
	MemLimit int64

	// WorkerMemLimits overrides MemLimit for individual
	// workers.
	WorkerMemLimits map[int]int64

	// FillA and FillB are the values A and B are filled
	// with.
	FillA float64
	FillB float64

	// Broadcast makes the root initialize B and send it to
	// every worker, instead of every worker initializing
	// its own copy.
	Broadcast bool

	// Reducer is "tree" or "naive".
	Reducer string

	// Network is one of the Network* names.
	Network string

	// Latency is the per-message latency of the switched
	// network, or the maximum random delay of the others,
	// in virtual seconds.
	Latency float64

	// Rate is the NIC rate in bytes per virtual second.
	Rate float64

	// Seed seeds the simulator. Zero picks a random seed.
	Seed int64
}

// DefaultConfig returns the configuration used when no
// flags are given.
func DefaultConfig() Config {
	return Config{
		N:       500,
		Workers: 4,
		Root:    0,
		FillA:   1.0,
		FillB:   2.0,
		Reducer: "tree",
		Network: NetworkSwitched,
		Latency: 1e-4,
		Rate:    1e9,
	}
}

// Validate checks the configuration, returning an error
// that wraps ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := c.validateProblem(); err != nil {
		return err
	}
	switch {
	case c.Workers < 1:
		return errors.Wrapf(ErrInvalidConfiguration, "worker count must be positive (got %d)", c.Workers)
	case c.Root < 0 || c.Root >= c.Workers:
		return errors.Wrapf(ErrInvalidConfiguration, "root %d out of range for %d workers", c.Root, c.Workers)
	case c.Latency < 0:
		return errors.Wrapf(ErrInvalidConfiguration, "latency must be non-negative (got %g)", c.Latency)
	case c.Rate <= 0:
		return errors.Wrapf(ErrInvalidConfiguration, "rate must be positive (got %g)", c.Rate)
	}
	if _, ok := reduce.ByName(c.Reducer); !ok {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown reducer %q", c.Reducer)
	}
	switch c.Network {
	case NetworkSwitched, NetworkRandom, NetworkOrdered:
	default:
		return errors.Wrapf(ErrInvalidConfiguration, "unknown network %q", c.Network)
	}
	for worker, limit := range c.WorkerMemLimits {
		if worker < 0 || worker >= c.Workers {
			return errors.Wrapf(ErrInvalidConfiguration, "memory limit for unknown worker %d", worker)
		} else if limit < 0 {
			return errors.Wrapf(ErrInvalidConfiguration, "negative memory limit for worker %d", worker)
		}
	}
	return nil
}

// validateProblem checks the settings shared by the
// distributed and single-process pipelines.
func (c *Config) validateProblem() error {
	if c.N <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "matrix size must be positive (got %d)", c.N)
	} else if c.MemLimit < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "negative memory limit %d", c.MemLimit)
	}
	return nil
}

func (c *Config) memLimit(worker int) int64 {
	if limit, ok := c.WorkerMemLimits[worker]; ok {
		return limit
	}
	return c.MemLimit
}

func (c *Config) newLoop() *simulator.EventLoop {
	if c.Seed == 0 {
		return simulator.NewEventLoop()
	}
	return simulator.NewEventLoopSeed(c.Seed)
}

func (c *Config) newNetwork(nodes []*simulator.Node) simulator.Network {
	switch c.Network {
	case NetworkRandom:
		return simulator.RandomNetwork{MaxDelay: c.Latency}
	case NetworkOrdered:
		return simulator.NewOrderedNetwork(c.Rate, c.Latency)
	default:
		switcher := simulator.NewGreedyDropSwitcher(len(nodes), c.Rate)
		return simulator.NewSwitcherNetwork(switcher, nodes, c.Latency)
	}
}
