package reduce

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/distmat/collcomm"
	"github.com/unixpickle/distmat/simulator"
)

// testCase is one cluster configuration for the test
// batteries.
type testCase struct {
	numNodes   int
	size       int
	randomized bool
}

func testCases() []testCase {
	var res []testCase
	for _, numNodes := range []int{1, 2, 5, 15, 16, 17} {
		for _, size := range []int{0, 1, 1337} {
			for _, randomized := range []bool{false, true} {
				res = append(res, testCase{numNodes: numNodes, size: size, randomized: randomized})
			}
		}
	}
	return res
}

func (tc testCase) String() string {
	return fmt.Sprintf("Nodes=%d,Size=%d,Random=%v", tc.numNodes, tc.size, tc.randomized)
}

// run creates random vectors and a network, runs f on
// every node, and returns the vectors and their sum.
func (tc testCase) run(t *testing.T, f func(c *collcomm.Comms, vec []float64)) ([][]float64, []float64) {
	loop := simulator.NewEventLoop()
	vectors := make([][]float64, tc.numNodes)
	sum := make([]float64, tc.size)
	for i := range vectors {
		vectors[i] = make([]float64, tc.size)
		for j := range vectors[i] {
			vectors[i][j] = rand.NormFloat64()
			sum[j] += vectors[i][j]
		}
	}
	nodes := simulator.NewNodes(tc.numNodes)

	var network simulator.Network
	if tc.randomized {
		network = simulator.RandomNetwork{}
	} else {
		switcher := simulator.NewGreedyDropSwitcher(tc.numNodes, 1.0)
		network = simulator.NewSwitcherNetwork(switcher, nodes, 0.1)
	}

	collcomm.SpawnComms(loop, network, nodes, func(c *collcomm.Comms) {
		f(c, vectors[c.Index()])
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	return vectors, sum
}

// RunReducerTests runs a battery of tests on a Reducer,
// with the root at the first, middle and last node.
func RunReducerTests(t *testing.T, reducer Reducer) {
	for _, tc := range testCases() {
		for _, root := range []int{0, tc.numNodes / 2, tc.numNodes - 1} {
			t.Run(fmt.Sprintf("%s,Root=%d", tc, root), func(t *testing.T) {
				results := make([][]float64, tc.numNodes)
				oks := make([]bool, tc.numNodes)
				_, sum := tc.run(t, func(c *collcomm.Comms, vec []float64) {
					results[c.Index()], oks[c.Index()] = reducer.Reduce(c, vec, collcomm.Sum, root)
				})
				for i, ok := range oks {
					if ok != (i == root) {
						t.Errorf("node %d: expected ok=%v but got %v", i, i == root, ok)
					}
					if i != root && results[i] != nil {
						t.Errorf("node %d: expected no result", i)
					}
				}
				verifySum(t, results[root], sum)
			})
		}
	}
}

// RunAllreducerTests runs a battery of tests on an
// Allreducer.
func RunAllreducerTests(t *testing.T, reducer Allreducer) {
	for _, tc := range testCases() {
		t.Run(tc.String(), func(t *testing.T) {
			results := make([][]float64, tc.numNodes)
			_, sum := tc.run(t, func(c *collcomm.Comms, vec []float64) {
				results[c.Index()] = reducer.Allreduce(c, vec, collcomm.Sum)
			})
			for i, res := range results[1:] {
				if len(res) != len(results[0]) {
					t.Errorf("result %d has length %d but expected %d", i+1, len(res), len(results[0]))
					continue
				}
				for j, actual := range res {
					if actual != results[0][j] {
						t.Errorf("result %d is not identical to result 0", i+1)
						break
					}
				}
			}
			verifySum(t, results[0], sum)
		})
	}
}

// RunReproducibilityTests checks that a Reducer gives a
// bit-identical result across runs with the same inputs,
// regardless of message timing.
func RunReproducibilityTests(t *testing.T, reducer Reducer) {
	const numNodes = 9
	inputs := make([]float64, numNodes)
	for i := range inputs {
		inputs[i] = rand.NormFloat64() * math.Pow(10, float64(i%5))
	}
	var first float64
	for trial := 0; trial < 20; trial++ {
		loop := simulator.NewEventLoop()
		var result float64
		collcomm.SpawnComms(loop, simulator.RandomNetwork{}, simulator.NewNodes(numNodes),
			func(c *collcomm.Comms) {
				if x, ok := ReduceScalar(reducer, c, inputs[c.Index()], collcomm.Sum, 2); ok {
					result = x
				}
			})
		if err := loop.Run(); err != nil {
			t.Fatal(err)
		}
		if trial == 0 {
			first = result
		} else if result != first {
			t.Fatalf("trial %d: got %v but first trial got %v", trial, result, first)
		}
	}
}

func verifySum(t *testing.T, actual, expected []float64) {
	if len(actual) != len(expected) {
		t.Errorf("expected length %d but got %d", len(expected), len(actual))
		return
	}
	for i, x := range expected {
		if math.Abs(x-actual[i]) > 1e-5 {
			t.Errorf("sum is incorrect (expected %f but got %f at component %d)",
				x, actual[i], i)
			break
		}
	}
}
