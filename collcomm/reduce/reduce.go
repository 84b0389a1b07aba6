// Package reduce implements algorithms for combining
// vectors that are distributed across connected nodes,
// either at a single root node or at every node.
package reduce

import "github.com/unixpickle/distmat/collcomm"

// A Reducer applies a ReduceFn to vectors distributed
// across nodes and delivers the result to a root node.
//
// Every node must call Reduce with the same root and a
// vector of the same length. Only the root gets ok ==
// true; other nodes get a nil result and must not use it.
type Reducer interface {
	Reduce(c *collcomm.Comms, data []float64, fn collcomm.ReduceFn,
		root int) (result []float64, ok bool)
}

// An Allreducer applies a ReduceFn to vectors distributed
// across nodes and delivers the result to every node.
type Allreducer interface {
	Allreduce(c *collcomm.Comms, data []float64, fn collcomm.ReduceFn) []float64
}

// ReduceScalar reduces one number per node at the root.
func ReduceScalar(r Reducer, c *collcomm.Comms, x float64, fn collcomm.ReduceFn,
	root int) (float64, bool) {
	res, ok := r.Reduce(c, []float64{x}, fn, root)
	if !ok {
		return 0, false
	}
	return res[0], true
}

// AllreduceScalar reduces one number per node at every
// node.
func AllreduceScalar(a Allreducer, c *collcomm.Comms, x float64, fn collcomm.ReduceFn) float64 {
	return a.Allreduce(c, []float64{x}, fn)[0]
}

// ByName looks up a reduction algorithm by the name used
// on the command line.
//
// The second result is false for unknown names.
func ByName(name string) (Reducer, bool) {
	switch name {
	case "tree":
		return TreeReducer{}, true
	case "naive":
		return NaiveReducer{}, true
	}
	return nil, false
}

// AllreducerFor returns the Allreducer that uses the same
// communication pattern as a Reducer.
func AllreducerFor(r Reducer) Allreducer {
	if _, ok := r.(NaiveReducer); ok {
		return NaiveAllreducer{}
	}
	return TreeAllreducer{}
}
