// Package collcomm provides a worker's view of a simulated
// cluster and the point-to-point and barrier primitives that
// collective operations are built from.
package collcomm

import (
	"github.com/unixpickle/distmat/simulator"
	"github.com/unixpickle/essentials"
)

// Comms manages a set of connections between a bunch of
// nodes.
// Each node has a local Comms object that represents its
// view of the world.
//
// Every collective operation starts with Begin(), which
// tags the messages it sends, so one Comms can run many
// collectives in a row. All nodes must call the same
// collectives in the same order.
type Comms struct {
	// Handle is the node's main Goroutine's handle on the
	// event loop.
	Handle *simulator.Handle

	// Port is the current node's port.
	Port *simulator.Port

	// Ports contains ports to all the nodes in the
	// network, including the current node.
	Ports []*simulator.Port

	// Network is the network connecting the nodes.
	Network simulator.Network

	seq     int
	mailbox []*packet
}

// packet is the payload of every simulator.Message sent
// through a Comms.
type packet struct {
	seq    int
	source *simulator.Port
	vec    []float64
}

// SpawnComms creates Comms objects for every node in a
// network and calls f for each node in its own Goroutine.
//
// This is where a worker learns its index and the size of
// the cluster.
func SpawnComms(loop *simulator.EventLoop, network simulator.Network, nodes []*simulator.Node,
	f func(c *Comms)) {
	ports := make([]*simulator.Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	for i := range nodes {
		port := ports[i]
		loop.Go(func(h *simulator.Handle) {
			f(&Comms{
				Handle:  h,
				Port:    port,
				Ports:   ports,
				Network: network,
			})
		})
	}
}

// Size gets the number of nodes.
func (c *Comms) Size() int {
	return len(c.Ports)
}

// Index returns the current node's index in the list of
// nodes.
func (c *Comms) Index() int {
	return c.IndexOf(c.Port)
}

// IndexOf returns any node's index.
func (c *Comms) IndexOf(p *simulator.Port) int {
	for i, port := range c.Ports {
		if port == p {
			return i
		}
	}
	panic("unknown port")
}

// Begin starts a new collective operation.
//
// Messages from later operations that arrive early are
// held until the operation they belong to begins.
func (c *Comms) Begin() {
	c.seq++
}

// Send schedules a message to be sent to the destination.
func (c *Comms) Send(dst *simulator.Port, vec []float64) {
	c.Network.Send(c.Handle, c.message(dst, vec))
}

// Bcast sends a vector to every other node.
func (c *Comms) Bcast(vec []float64) {
	messages := make([]*simulator.Message, 0, len(c.Ports)-1)
	for _, port := range c.Ports {
		if port != c.Port {
			messages = append(messages, c.message(port, vec))
		}
	}
	c.Network.Send(c.Handle, messages...)
}

// Recv receives the next vector sent as part of the
// current operation.
func (c *Comms) Recv() ([]float64, *simulator.Port) {
	p := c.recv(nil)
	return p.vec, p.source
}

// RecvFrom receives the next vector a specific node sent
// as part of the current operation.
func (c *Comms) RecvFrom(src *simulator.Port) []float64 {
	return c.recv(src).vec
}

// Compute charges the virtual time of a number of
// floating-point operations.
func (c *Comms) Compute(flops float64) {
	c.Handle.Sleep(FlopTime * flops)
}

func (c *Comms) message(dst *simulator.Port, vec []float64) *simulator.Message {
	return &simulator.Message{
		Source:  c.Port,
		Dest:    dst,
		Message: &packet{seq: c.seq, source: c.Port, vec: vec},
		Size:    float64(len(vec)*8) + 8,
	}
}

func (c *Comms) recv(src *simulator.Port) *packet {
	for i, p := range c.mailbox {
		if p.seq == c.seq && (src == nil || p.source == src) {
			essentials.OrderedDelete(&c.mailbox, i)
			return p
		}
	}
	for {
		p := c.Port.Recv(c.Handle).Message.(*packet)
		if p.seq < c.seq {
			panic("message from a finished operation")
		}
		if p.seq == c.seq && (src == nil || p.source == src) {
			return p
		}
		c.mailbox = append(c.mailbox, p)
	}
}
