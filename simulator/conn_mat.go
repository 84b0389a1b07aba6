package simulator

import "github.com/unixpickle/distmat/dense"

// A ConnMat is a connectivity matrix.
//
// Entries in the matrix indicate a transfer rate from a
// source node (row) to a destination node (column).
type ConnMat struct {
	mat *dense.Matrix
}

// NewConnMat creates an all-zero connection matrix.
func NewConnMat(numNodes int) *ConnMat {
	return &ConnMat{mat: dense.New(numNodes, numNodes)}
}

// NumNodes returns the number of nodes.
func (c *ConnMat) NumNodes() int {
	return c.mat.Rows()
}

// Get an entry in the matrix.
func (c *ConnMat) Get(src, dst int) float64 {
	return c.mat.At(src, dst)
}

// Set an entry in the matrix.
func (c *ConnMat) Set(src, dst int, value float64) {
	c.mat.Set(src, dst, value)
}

// SumDest sums the incoming rates of a node.
func (c *ConnMat) SumDest(dst int) float64 {
	var sum float64
	for src := 0; src < c.NumNodes(); src++ {
		sum += c.Get(src, dst)
	}
	return sum
}

// SumSource sums the outgoing rates of a node.
func (c *ConnMat) SumSource(src int) float64 {
	var sum float64
	for _, x := range c.mat.Row(src) {
		sum += x
	}
	return sum
}

// ScaleDest scales the incoming rates of a node.
func (c *ConnMat) ScaleDest(dst int, scale float64) {
	for src := 0; src < c.NumNodes(); src++ {
		c.Set(src, dst, c.Get(src, dst)*scale)
	}
}

// ScaleSource scales the outgoing rates of a node.
func (c *ConnMat) ScaleSource(src int, scale float64) {
	row := c.mat.Row(src)
	for i := range row {
		row[i] *= scale
	}
}
