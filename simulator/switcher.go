package simulator

// A Switcher is a switching algorithm that determines how
// rapidly data flows between nodes, including how to deal
// with oversubscription.
type Switcher interface {
	// SwitchedRates is passed a matrix with 1's wherever
	// a node wants to send data to another node, and 0's
	// everywhere else.
	//
	// When it returns, mat holds the rate of data between
	// every pair of nodes.
	SwitchedRates(mat *ConnMat)
}

// A GreedyDropSwitcher emulates a switch where outgoing
// data is spread evenly across a node's outputs, and
// inputs to a node are dropped uniformly at random when a
// node is oversubscribed.
//
// This is equivalent to first normalizing the rows of a
// connection matrix, and then normalizing the columns.
type GreedyDropSwitcher struct {
	SendRates []float64
	RecvRates []float64
}

// NewGreedyDropSwitcher creates a GreedyDropSwitcher with
// the same upload and download rate on every node.
func NewGreedyDropSwitcher(numNodes int, rate float64) *GreedyDropSwitcher {
	rates := make([]float64, numNodes)
	for i := range rates {
		rates[i] = rate
	}
	return &GreedyDropSwitcher{
		SendRates: rates,
		RecvRates: rates,
	}
}

// NumNodes gets the number of nodes the switch expects.
func (g *GreedyDropSwitcher) NumNodes() int {
	return len(g.SendRates)
}

// SwitchedRates performs the switching algorithm.
func (g *GreedyDropSwitcher) SwitchedRates(mat *ConnMat) {
	if mat.NumNodes() != g.NumNodes() {
		panic("unexpected number of nodes")
	}
	for src, rate := range g.SendRates {
		if numDests := mat.SumSource(src); numDests > 0 {
			mat.ScaleSource(src, rate/numDests)
		}
	}
	for dst, rate := range g.RecvRates {
		if incoming := mat.SumDest(dst); incoming > rate {
			mat.ScaleDest(dst, rate/incoming)
		}
	}
}
