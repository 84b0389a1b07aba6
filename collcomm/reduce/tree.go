package reduce

import (
	"github.com/unixpickle/distmat/collcomm"
	"github.com/unixpickle/distmat/simulator"
)

// A TreeReducer arranges the nodes in a binary tree rooted
// at the root node and combines vectors on the way up.
//
// Each node combines its own vector with its children's
// results in a fixed order, so the result does not depend
// on message arrival order.
type TreeReducer struct{}

// Reduce combines the vectors at the root.
func (t TreeReducer) Reduce(c *collcomm.Comms, data []float64, fn collcomm.ReduceFn,
	root int) ([]float64, bool) {
	c.Begin()
	parent, res := reduceUp(c, data, fn, root)
	if parent != nil {
		return nil, false
	}
	return res, true
}

// A TreeAllreducer performs a reduction by going up a
// binary tree to node 0, and then sends the result back
// down the tree.
type TreeAllreducer struct{}

// Allreduce combines the vectors and returns the result
// on every node.
func (t TreeAllreducer) Allreduce(c *collcomm.Comms, data []float64,
	fn collcomm.ReduceFn) []float64 {
	c.Begin()
	parent, res := reduceUp(c, data, fn, 0)
	if parent != nil {
		res = c.RecvFrom(parent)
	}
	_, children := collcomm.TreePosition(c.Index(), c.Size(), 0)
	for _, child := range children {
		c.Send(c.Ports[child], res)
	}
	return res
}

// reduceUp runs the upward pass of a tree reduction and
// returns the node's parent (nil at the root) along with
// the vector it sent to the parent.
func reduceUp(c *collcomm.Comms, data []float64, fn collcomm.ReduceFn,
	root int) (*simulator.Port, []float64) {
	parentIdx, children := collcomm.TreePosition(c.Index(), c.Size(), root)

	vecs := [][]float64{data}
	for _, child := range children {
		vecs = append(vecs, c.RecvFrom(c.Ports[child]))
	}
	res := fn(c.Handle, vecs...)

	if parentIdx < 0 {
		return nil, res
	}
	parent := c.Ports[parentIdx]
	c.Send(parent, res)
	return parent, res
}
