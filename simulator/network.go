package simulator

import (
	"math"
	"sync"
)

// A Node represents a machine on a virtual network.
type Node struct {
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// NewNodes creates n unique Nodes.
func NewNodes(n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = NewNode()
	}
	return nodes
}

// Port creates a new Port connected to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port identifies a point of communication on a Node.
// Data is sent from Ports and received on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv receives the next message.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a
// network.
type Message struct {
	Source  *Port
	Dest    *Port
	Message interface{}

	// Size is the number of bytes on the wire.
	Size float64
}

// A Network represents an abstract way of communicating
// between nodes.
type Network interface {
	// Send message objects from one node to another.
	// The message will arrive on the receiving port's
	// incoming EventStream.
	//
	// This is a non-blocking operation.
	//
	// Passing multiple messages at once lets a Network
	// plan their delivery together.
	Send(h *Handle, msgs ...*Message)
}

// A RandomNetwork assigns every message an independent
// delay drawn uniformly from [0, MaxDelay).
//
// Messages between the same pair of nodes may be
// reordered.
type RandomNetwork struct {
	// MaxDelay is the largest delay.
	// If it is 0, it is treated as 1.
	MaxDelay float64
}

// Send sends the messages with random delays.
func (r RandomNetwork) Send(h *Handle, msgs ...*Message) {
	maxDelay := r.MaxDelay
	if maxDelay == 0 {
		maxDelay = 1
	}
	for _, msg := range msgs {
		h.Schedule(msg.Dest.Incoming, msg, h.Float64()*maxDelay)
	}
}

// An OrderedNetwork delivers messages to each node in the
// order they were sent, at a fixed rate per destination
// plus a random latency.
type OrderedNetwork struct {
	Rate             float64
	MaxRandomLatency float64

	lock      sync.Mutex
	nextTimes map[*Node]float64
}

// NewOrderedNetwork creates an OrderedNetwork.
func NewOrderedNetwork(rate, maxRandomLatency float64) *OrderedNetwork {
	return &OrderedNetwork{
		Rate:             rate,
		MaxRandomLatency: maxRandomLatency,
		nextTimes:        map[*Node]float64{},
	}
}

// Send queues the messages behind any message that is
// still in flight to the same destination.
func (o *OrderedNetwork) Send(h *Handle, msgs ...*Message) {
	o.lock.Lock()
	defer o.lock.Unlock()

	curTime := h.Time()
	for _, msg := range msgs {
		dest := msg.Dest.Node
		delay := h.Float64()*o.MaxRandomLatency + msg.Size/o.Rate
		if t, ok := o.nextTimes[dest]; ok && t > curTime {
			delay += t - curTime
		}
		h.Schedule(msg.Dest.Incoming, msg, delay)
		o.nextTimes[dest] = curTime + delay
	}
}

// A SwitcherNetwork is a network where data is passed
// through a Switcher. Concurrent messages share bandwidth,
// so each one may take longer to arrive.
type SwitcherNetwork struct {
	lock sync.Mutex

	switcher  Switcher
	nodes     []*Node
	nodeIndex map[*Node]int
	latency   float64

	plan []*planSegment
}

// NewSwitcherNetwork creates a new SwitcherNetwork.
//
// The latency argument adds an extra constant-length
// timeout to every message delivery.
// A message occupies its edge during its latency period,
// so latency contributes to oversubscription.
func NewSwitcherNetwork(switcher Switcher, nodes []*Node, latency float64) *SwitcherNetwork {
	nodeIndex := make(map[*Node]int, len(nodes))
	for i, node := range nodes {
		nodeIndex[node] = i
	}
	return &SwitcherNetwork{
		switcher:  switcher,
		nodes:     nodes,
		nodeIndex: nodeIndex,
		latency:   latency,
	}
}

// Send sends the messages over the network.
//
// This may delay messages that are already being
// transmitted.
func (s *SwitcherNetwork) Send(h *Handle, msgs ...*Message) {
	s.lock.Lock()
	defer s.lock.Unlock()

	inFlight := s.cancelPlan(h)
	for _, msg := range msgs {
		inFlight = append(inFlight, &transfer{
			msg:              msg,
			remainingLatency: s.latency,
			remainingSize:    msg.Size,
		})
	}
	s.replan(h, inFlight)
}

// cancelPlan stops every pending delivery and returns the
// state of the messages still in flight.
func (s *SwitcherNetwork) cancelPlan(h *Handle) []*transfer {
	var inFlight []*transfer
	now := h.Time()
	for _, seg := range s.plan {
		if now >= seg.endTime {
			continue
		}
		if now >= seg.startTime {
			for _, t := range seg.transfers {
				inFlight = append(inFlight, t.advance(now-seg.startTime))
			}
		}
		for _, timer := range seg.timers {
			h.Cancel(timer)
		}
	}
	return inFlight
}

func (s *SwitcherNetwork) assignRates(transfers []*transfer) {
	mat := NewConnMat(len(s.nodes))
	counts := NewConnMat(len(s.nodes))
	for _, t := range transfers {
		src, dst := s.endpoints(t)
		mat.Set(src, dst, 1)
		counts.Set(src, dst, counts.Get(src, dst)+1)
	}
	s.switcher.SwitchedRates(mat)
	for _, t := range transfers {
		src, dst := s.endpoints(t)
		t.rate = mat.Get(src, dst) / counts.Get(src, dst)
	}
}

func (s *SwitcherNetwork) endpoints(t *transfer) (src, dst int) {
	return s.nodeIndex[t.msg.Source.Node], s.nodeIndex[t.msg.Dest.Node]
}

func (s *SwitcherNetwork) replan(h *Handle, transfers []*transfer) {
	s.plan = make([]*planSegment, 0, len(transfers))
	now := h.Time()
	startTime := now
	for len(transfers) > 0 {
		s.assignRates(transfers)

		done, rest, eta := splitFirstArrivals(transfers)
		timers := make([]*Timer, len(done))
		for i, t := range done {
			timers[i] = h.Schedule(t.msg.Dest.Incoming, t.msg, startTime-now+eta)
		}

		endTime := timers[0].Time()
		s.plan = append(s.plan, &planSegment{
			startTime: startTime,
			endTime:   endTime,
			timers:    timers,
			transfers: transfers,
		})

		for i, t := range rest {
			rest[i] = t.advance(endTime - startTime)
		}
		transfers = rest
		startTime = endTime
	}
}

// transfer is the state of a message that is being sent
// through a SwitcherNetwork.
type transfer struct {
	msg *Message

	remainingLatency float64
	remainingSize    float64
	rate             float64
}

// eta gets the time until the message arrives.
func (t *transfer) eta() float64 {
	return math.Max(0, t.remainingLatency+t.remainingSize/t.rate)
}

// advance returns the state after some time has elapsed.
func (t *transfer) advance(elapsed float64) *transfer {
	res := *t
	if elapsed < res.remainingLatency {
		res.remainingLatency -= elapsed
		return &res
	}
	elapsed -= res.remainingLatency
	res.remainingLatency = 0
	res.remainingSize -= res.rate * elapsed
	return &res
}

// planSegment is a period of time during which the set of
// transfers and their rates do not change.
//
// Each segment ends with at least one delivery.
type planSegment struct {
	startTime float64
	endTime   float64
	timers    []*Timer
	transfers []*transfer
}

func splitFirstArrivals(transfers []*transfer) (first, rest []*transfer, eta float64) {
	etas := make([]float64, len(transfers))
	eta = math.Inf(1)
	for i, t := range transfers {
		etas[i] = t.eta()
		eta = math.Min(eta, etas[i])
	}
	for i, t := range transfers {
		if etas[i] == eta {
			first = append(first, t)
		} else {
			rest = append(rest, t)
		}
	}
	return first, rest, eta
}
