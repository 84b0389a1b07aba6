package reduce

import "github.com/unixpickle/distmat/collcomm"

// A NaiveReducer sends every vector straight to the root.
type NaiveReducer struct{}

// Reduce gathers every node's vector at the root and
// combines them in node order.
func (n NaiveReducer) Reduce(c *collcomm.Comms, data []float64, fn collcomm.ReduceFn,
	root int) ([]float64, bool) {
	c.Begin()
	if c.Index() != root {
		c.Send(c.Ports[root], data)
		return nil, false
	}
	return fn(c.Handle, gather(c, data)...), true
}

// A NaiveAllreducer sends every vector from every node to
// every other node.
type NaiveAllreducer struct{}

// Allreduce runs fn() on all of the nodes' vectors on
// every node.
func (n NaiveAllreducer) Allreduce(c *collcomm.Comms, data []float64,
	fn collcomm.ReduceFn) []float64 {
	c.Begin()
	c.Bcast(data)
	return fn(c.Handle, gather(c, data)...)
}

// gather collects one vector from every other node, in
// node order.
func gather(c *collcomm.Comms, data []float64) [][]float64 {
	vecs := make([][]float64, c.Size())
	for i, port := range c.Ports {
		if i == c.Index() {
			vecs[i] = data
		} else {
			vecs[i] = c.RecvFrom(port)
		}
	}
	return vecs
}
