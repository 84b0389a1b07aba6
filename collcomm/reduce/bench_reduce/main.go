// Command bench_reduce prints a markdown table of the
// virtual time taken by each reduction algorithm on a range
// of simulated networks.
package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/unixpickle/distmat/collcomm"
	"github.com/unixpickle/distmat/collcomm/reduce"
	"github.com/unixpickle/distmat/simulator"
	"k8s.io/klog/v2"
)

// RunInfo describes a specific network configuration.
type RunInfo struct {
	NumNodes int
	Latency  float64
	Rate     float64
}

// Run creates a network and drops each host into its own
// Goroutine.
func (r *RunInfo) Run(loop *simulator.EventLoop, commFn func(c *collcomm.Comms)) {
	nodes := simulator.NewNodes(r.NumNodes)
	switcher := simulator.NewGreedyDropSwitcher(r.NumNodes, r.Rate)
	network := simulator.NewSwitcherNetwork(switcher, nodes, r.Latency)
	collcomm.SpawnComms(loop, network, nodes, commFn)
	if err := loop.Run(); err != nil {
		klog.Fatalf("run with %d nodes: %+v", r.NumNodes, err)
	}
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	reducerNames := []string{"naive", "tree"}
	runs := []RunInfo{
		{NumNodes: 2, Latency: 0.1, Rate: 1e6},
		{NumNodes: 16, Latency: 1e-3, Rate: 1e6},
		{NumNodes: 32, Latency: 0.1, Rate: 1e6},
		{NumNodes: 32, Latency: 1e-4, Rate: 1e9},
		{NumNodes: 128, Latency: 1e-4, Rate: 1e9},
	}
	vecSizes := []int{1, 10000, 1000000}

	fmt.Print("| Nodes | Latency | NIC rate | Size ")
	for _, name := range reducerNames {
		fmt.Printf("| %s ", name)
	}
	fmt.Println("|")
	for i := 0; i < 4+len(reducerNames); i++ {
		fmt.Print("|:--")
	}
	fmt.Println("|")

	for _, runInfo := range runs {
		for _, size := range vecSizes {
			fmt.Printf(
				"| %d | %s | %s | %d ",
				runInfo.NumNodes,
				strconv.FormatFloat(runInfo.Latency, 'f', -1, 64),
				strconv.FormatFloat(runInfo.Rate, 'E', -1, 64),
				size,
			)
			for _, name := range reducerNames {
				reducer, _ := reduce.ByName(name)
				loop := simulator.NewEventLoopSeed(1)
				runInfo.Run(loop, func(c *collcomm.Comms) {
					reducer.Reduce(c, make([]float64, size), FakeReduce, 0)
				})
				fmt.Printf("| %f ", loop.Time())
			}
			fmt.Println("|")
		}
	}
}

// FakeReduce is a ReduceFn that only charges virtual time.
func FakeReduce(h *simulator.Handle, vecs ...[]float64) []float64 {
	h.Sleep(collcomm.FlopTime * float64(len(vecs)*len(vecs[0])))
	return make([]float64, len(vecs[0]))
}
