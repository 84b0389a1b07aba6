package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/distmat/collcomm"
	"github.com/unixpickle/distmat/dense"
	"github.com/unixpickle/distmat/report"
	"github.com/unixpickle/distmat/simulator"
)

func testConfig(n, workers int) Config {
	cfg := DefaultConfig()
	cfg.N = n
	cfg.Workers = workers
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	for _, reducer := range []string{"tree", "naive"} {
		for _, network := range []string{NetworkSwitched, NetworkRandom, NetworkOrdered} {
			t.Run(reducer+"/"+network, func(t *testing.T) {
				cfg := testConfig(100, 5)
				cfg.Reducer = reducer
				cfg.Network = network
				summary, err := Run(context.Background(), cfg, nil)
				require.NoError(t, err)

				for i, res := range summary.Results {
					require.Equal(t, 20, res.Rows.Len())
					require.Equal(t, i*20, res.Rows.Start)
					require.Equal(t, 8e7, res.Partial)
					require.Equal(t, Finalized, res.State)
					require.Equal(t, i == 0, res.HasGlobal)
					require.Greater(t, res.MultiplyVirtual, 0.0)
				}
				require.Equal(t, 4e8, summary.NormSquared)
				require.Equal(t, 20000.0, summary.Norm)
				require.Greater(t, summary.VirtualTime, 0.0)
			})
		}
	}
}

func TestRunReport(t *testing.T) {
	var buf bytes.Buffer
	sink := report.NewSink(&buf)
	_, err := Run(context.Background(), testConfig(100, 5), sink)
	require.NoError(t, err)
	require.NoError(t, sink.Err())
	out := buf.String()
	assert.Contains(t, out, "Global matrix size: 100 x 100")
	assert.Contains(t, out, "||C||_F = 20000.0000")
	assert.Contains(t, out, "Computing C = A * B (2,000,000 flops)...")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "["+sink.RunID()+"] "), line)
	}
}

func TestRunNonZeroRoot(t *testing.T) {
	cfg := testConfig(10, 4)
	cfg.Root = 3
	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	for i, res := range summary.Results {
		require.Equal(t, i == 3, res.HasGlobal)
		if i != 3 {
			require.Zero(t, res.NormSquared)
		}
	}
	require.Same(t, summary.Results[3], summary.Root())
	// Every element of C is 2*N.
	require.Equal(t, 100.0*400, summary.NormSquared)
}

func TestRunFewerRowsThanWorkers(t *testing.T) {
	summary, err := Run(context.Background(), testConfig(3, 5), nil)
	require.NoError(t, err)
	lens := make([]int, 5)
	for i, res := range summary.Results {
		lens[i] = res.Rows.Len()
	}
	require.Equal(t, []int{1, 1, 1, 0, 0}, lens)
	require.Zero(t, summary.Results[4].Partial)
	// Every element of C is 2*3 = 6.
	require.Equal(t, 9*36.0, summary.NormSquared)
}

func TestRunBroadcast(t *testing.T) {
	for _, workers := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("Workers=%d", workers), func(t *testing.T) {
			cfg := testConfig(23, workers)
			cfg.FillB = 0.5
			replicated, err := Run(context.Background(), cfg, nil)
			require.NoError(t, err)

			cfg.Broadcast = true
			cfg.Root = workers - 1
			broadcast, err := Run(context.Background(), cfg, nil)
			require.NoError(t, err)
			require.InDelta(t, replicated.Norm, broadcast.Norm, 1e-9*replicated.Norm)
		})
	}
}

func TestRunMatchesSerial(t *testing.T) {
	cfg := testConfig(37, 4)
	cfg.FillA = 0.3
	cfg.FillB = 1.7
	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	serial, err := RunSerial(cfg, nil)
	require.NoError(t, err)
	require.InDelta(t, serial.NormC, summary.Norm, 1e-9*serial.NormC)
}

func TestRunReproducible(t *testing.T) {
	cfg := testConfig(31, 6)
	cfg.FillA = 0.1
	cfg.FillB = 0.7
	cfg.Network = NetworkRandom
	first, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		summary, err := Run(context.Background(), cfg, nil)
		require.NoError(t, err)
		require.Equal(t, first.NormSquared, summary.NormSquared)
	}
}

func TestRunInvalidConfiguration(t *testing.T) {
	for _, mutate := range []func(c *Config){
		func(c *Config) { c.N = 0 },
		func(c *Config) { c.N = -5 },
		func(c *Config) { c.Workers = 0 },
		func(c *Config) { c.Root = 4 },
		func(c *Config) { c.Reducer = "ring" },
		func(c *Config) { c.Network = "carrier-pigeon" },
		func(c *Config) { c.Rate = 0 },
		func(c *Config) { c.Latency = -1 },
		func(c *Config) { c.MemLimit = -1 },
		func(c *Config) { c.WorkerMemLimits = map[int]int64{9: 10} },
	} {
		cfg := testConfig(10, 4)
		mutate(&cfg)
		_, err := Run(context.Background(), cfg, nil)
		require.ErrorIs(t, err, ErrInvalidConfiguration)
	}
}

// TestWorkersAllRejectInvalidConfiguration makes sure that
// every worker terminates on a bad configuration, so none
// of them is left waiting for the others.
func TestWorkersAllRejectInvalidConfiguration(t *testing.T) {
	for _, n := range []int{0, -3} {
		cfg := testConfig(n, 4)
		loop := simulator.NewEventLoop()
		errs := make([]error, 4)
		results := make([]*Result, 4)
		collcomm.SpawnComms(loop, simulator.RandomNetwork{}, simulator.NewNodes(4), func(c *collcomm.Comms) {
			results[c.Index()], errs[c.Index()] = RunWorker(c, cfg, nil)
		})
		require.NoError(t, loop.Run())
		for i, err := range errs {
			require.ErrorIs(t, err, ErrInvalidConfiguration)
			require.Equal(t, Failed, results[i].State)
		}
	}

	// A cluster whose size disagrees with the configuration.
	cfg := testConfig(10, 3)
	loop := simulator.NewEventLoop()
	errs := make([]error, 2)
	collcomm.SpawnComms(loop, simulator.RandomNetwork{}, simulator.NewNodes(2), func(c *collcomm.Comms) {
		_, errs[c.Index()] = RunWorker(c, cfg, nil)
	})
	require.NoError(t, loop.Run())
	for _, err := range errs {
		require.ErrorIs(t, err, ErrInvalidConfiguration)
	}
}

func TestRunOutOfMemoryPropagates(t *testing.T) {
	cfg := testConfig(50, 4)
	cfg.WorkerMemLimits = map[int]int64{2: 1024}
	summary, err := Run(context.Background(), cfg, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, dense.ErrOutOfMemory), "%v", err)
	require.NotNil(t, summary)
	for i, res := range summary.Results {
		require.Equal(t, Failed, res.State, "worker %d", i)
		require.False(t, res.HasGlobal)
	}
}

func TestRunOutOfMemoryEverywhere(t *testing.T) {
	cfg := testConfig(200, 3)
	cfg.MemLimit = 200 * 200 * 8
	cfg.Reducer = "naive"
	_, err := Run(context.Background(), cfg, nil)
	require.ErrorIs(t, err, dense.ErrOutOfMemory)
}

func TestRunMemoryAccounting(t *testing.T) {
	cfg := testConfig(40, 4)
	// A, C, D are 10x40 and B is 40x40.
	cfg.MemLimit = (3*10*40 + 40*40) * 8
	summary, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	for _, res := range summary.Results {
		require.Equal(t, cfg.MemLimit, res.PeakBytes)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, testConfig(10, 2), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunSerial(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig(4, 1)
	res, err := RunSerial(cfg, report.NewSink(&buf))
	require.NoError(t, err)
	require.Equal(t, 32.0, res.NormC)
	require.Equal(t, 36.0, res.NormD)
	require.True(t, res.Symmetric)
	require.EqualValues(t, 5*4*4*8, res.PeakBytes)
	assert.Contains(t, buf.String(), "C = A * B:")
	assert.Contains(t, buf.String(), "  8.0000")

	buf.Reset()
	_, err = RunSerial(testConfig(11, 1), report.NewSink(&buf))
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "C = A * B:")
}

func TestRunSerialErrors(t *testing.T) {
	_, err := RunSerial(testConfig(0, 1), nil)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	cfg := testConfig(10, 1)
	cfg.MemLimit = 3 * 10 * 10 * 8
	_, err = RunSerial(cfg, nil)
	require.ErrorIs(t, err, dense.ErrOutOfMemory)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "Initialized", Initialized.String())
	require.Equal(t, "Reduced", Reduced.String())
	require.Equal(t, "Failed", Failed.String())
	require.Equal(t, "State(?)", State(42).String())
}
