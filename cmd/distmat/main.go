// Command distmat multiplies a row-partitioned N x N matrix
// on a simulated cluster and reports the Frobenius norm of
// the product.
//
// Usage:
//
//	distmat [flags] [N]
//
// N defaults to 500.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/unixpickle/distmat/coordinator"
	"github.com/unixpickle/distmat/report"
	"k8s.io/klog/v2"
)

var commandLine = flag.NewFlagSet("distmat", flag.ContinueOnError)

var (
	flagWorkers  = commandLine.Int("workers", 4, "Number of simulated workers.")
	flagRoot     = commandLine.Int("root", 0, "Index of the worker that receives and reports the result.")
	flagReducer  = commandLine.String("reducer", "tree", "Reduction algorithm: \"tree\" or \"naive\".")
	flagNetwork  = commandLine.String("network", coordinator.NetworkSwitched, "Simulated network: \"switched\", \"random\" or \"ordered\".")
	flagLatency  = commandLine.Float64("latency", 1e-4, "Message latency (or maximum random delay) in virtual seconds.")
	flagRate     = commandLine.Float64("rate", 1e9, "NIC rate in bytes per virtual second.")
	flagMemLimit = commandLine.String("mem_limit", "", "Memory each worker may allocate, e.g. \"64MiB\". Empty means unlimited.")
	flagBcast    = commandLine.Bool("bcast", false, "Initialize B on the root and broadcast it, instead of on every worker.")
	flagSerial   = commandLine.Bool("serial", false, "Run the whole problem in a single process, including the transpose.")
	flagSeed     = commandLine.Int64("seed", 0, "Simulator seed. 0 picks a random seed.")
)

func main() {
	klog.InitFlags(commandLine)
	commandLine.Usage = func() {
		fmt.Fprintf(commandLine.Output(), "Usage: %s [flags] [N]\n", os.Args[0])
		commandLine.PrintDefaults()
	}
	cfg, err := parseCommandLine(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err == nil {
		err = run(cfg)
	}
	klog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg coordinator.Config) error {
	sink := report.NewSink(os.Stdout)
	if *flagSerial {
		_, err := coordinator.RunSerial(cfg, sink)
		return err
	}
	_, err := coordinator.Run(context.Background(), cfg, sink)
	return err
}

// parseCommandLine parses flags followed by the optional
// matrix size.
func parseCommandLine(args []string) (coordinator.Config, error) {
	args, size := splitSize(args)
	if err := commandLine.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return coordinator.Config{}, err
		}
		return coordinator.Config{}, errors.Wrap(coordinator.ErrInvalidConfiguration, err.Error())
	}
	positional := commandLine.Args()
	if size != "" {
		positional = append(positional, size)
	}
	return parseConfig(positional)
}

// splitSize removes a trailing negative matrix size, which
// the flag package would otherwise reject as an unknown flag.
func splitSize(args []string) ([]string, string) {
	if len(args) == 0 {
		return args, ""
	}
	last := args[len(args)-1]
	if !strings.HasPrefix(last, "-") {
		return args, ""
	} else if _, err := strconv.Atoi(last); err != nil {
		return args, ""
	} else if len(args) > 1 && takesValue(args[len(args)-2]) {
		return args, ""
	}
	return args[:len(args)-1], last
}

// takesValue reports whether arg is a flag whose value is
// the next argument.
func takesValue(arg string) bool {
	if !strings.HasPrefix(arg, "-") || strings.Contains(arg, "=") {
		return false
	}
	f := commandLine.Lookup(strings.TrimLeft(arg, "-"))
	if f == nil {
		return false
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return false
	}
	return true
}

func parseConfig(args []string) (coordinator.Config, error) {
	cfg := coordinator.DefaultConfig()
	cfg.Workers = *flagWorkers
	cfg.Root = *flagRoot
	cfg.Reducer = *flagReducer
	cfg.Network = *flagNetwork
	cfg.Latency = *flagLatency
	cfg.Rate = *flagRate
	cfg.Broadcast = *flagBcast
	cfg.Seed = *flagSeed

	if *flagMemLimit != "" {
		limit, err := humanize.ParseBytes(*flagMemLimit)
		if err != nil {
			return cfg, errors.Wrapf(coordinator.ErrInvalidConfiguration, "-mem_limit=%q: %v", *flagMemLimit, err)
		} else if limit > math.MaxInt64 {
			return cfg, errors.Wrapf(coordinator.ErrInvalidConfiguration, "-mem_limit=%q is too large", *flagMemLimit)
		}
		cfg.MemLimit = int64(limit)
	}

	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return cfg, errors.Wrapf(coordinator.ErrInvalidConfiguration, "matrix size %q is not an integer", args[0])
		}
		cfg.N = n
	default:
		return cfg, errors.Wrapf(coordinator.ErrInvalidConfiguration, "too many arguments: %v", args)
	}
	return cfg, cfg.Validate()
}
