package collcomm

import "github.com/unixpickle/distmat/simulator"

// TreePosition returns the parent and children of a node
// in a binary tree over size nodes rooted at root.
//
// Nodes are laid out breadth-first starting at the root,
// wrapping around the node indices. The root has no parent
// (-1) and leaves have no children.
func TreePosition(idx, size, root int) (parent int, children []int) {
	if size < 1 || idx < 0 || idx >= size || root < 0 || root >= size {
		panic("index out of bounds")
	}
	rel := (idx - root + size) % size
	parent = -1
	if rel > 0 {
		parent = ((rel-1)/2 + root) % size
	}
	for _, child := range []int{2*rel + 1, 2*rel + 2} {
		if child < size {
			children = append(children, (child+root)%size)
		}
	}
	return
}

// treePorts is like TreePosition for the current node of
// a Comms, but returns ports.
func (c *Comms) treePorts(root int) (parent *simulator.Port, children []*simulator.Port) {
	parentIdx, childIdxs := TreePosition(c.Index(), c.Size(), root)
	if parentIdx >= 0 {
		parent = c.Ports[parentIdx]
	}
	for _, idx := range childIdxs {
		children = append(children, c.Ports[idx])
	}
	return
}

// Barrier blocks until every node has called Barrier.
//
// Arrivals are gathered up a tree rooted at node 0 and the
// release is sent back down the same tree.
func (c *Comms) Barrier() {
	c.Begin()
	parent, children := c.treePorts(0)
	for _, child := range children {
		c.RecvFrom(child)
	}
	if parent != nil {
		c.Send(parent, nil)
		c.RecvFrom(parent)
	}
	for _, child := range children {
		c.Send(child, nil)
	}
}

// BcastFrom sends the root's vector to every node and
// returns it.
//
// Only the root's vec argument is used.
func (c *Comms) BcastFrom(root int, vec []float64) []float64 {
	c.Begin()
	if c.Index() == root {
		c.Bcast(vec)
		return vec
	}
	return c.RecvFrom(c.Ports[root])
}
