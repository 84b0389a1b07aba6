package simulator

import "testing"

func TestSwitchedNetworkSingleMessage(t *testing.T) {
	loop := NewEventLoop()

	switcher := NewGreedyDropSwitcher(2, 2.0)
	nodes := NewNodes(2)
	node1, node2 := nodes[0].Port(loop), nodes[1].Port(loop)
	network := NewSwitcherNetwork(switcher, nodes, 3.0)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  node1,
			Dest:    node2,
			Message: "hi node 2",
			Size:    124.0,
		})
		if val := node1.Recv(h).Message; val != "hi node 1" {
			t.Errorf("unexpected message: %s", val)
		}
	})
	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  node2,
			Dest:    node1,
			Message: "hi node 1",
			Size:    124.0,
		})
		if val := node2.Recv(h).Message; val != "hi node 2" {
			t.Errorf("unexpected message: %s", val)
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	expectedTime := 124.0/2.0 + 3.0
	if loop.Time() != expectedTime {
		t.Errorf("time should be %f but got %f", expectedTime, loop.Time())
	}
}

func TestSwitchedNetworkOversubscribed(t *testing.T) {
	loop := NewEventLoop()

	dataRate := 4.0
	switcher := NewGreedyDropSwitcher(2, dataRate)
	nodes := NewNodes(2)
	node1, node2 := nodes[0].Port(loop), nodes[1].Port(loop)
	network := NewSwitcherNetwork(switcher, nodes, 2.0)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  node1,
			Dest:    node2,
			Message: "hi node 2 (message 1)",
			Size:    123.0,
		})
		network.Send(h, &Message{
			Source:  node1,
			Dest:    node2,
			Message: "hi node 2 (message 2)",
			Size:    124.0,
		})
		if val := node1.Recv(h).Message; val != "hi node 1" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime := 1.0 + 2.0 + 124.0/dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
	})

	loop.Go(func(h *Handle) {
		// Make sure the other messages are in-flight.
		// This helps us test for the fact that we can
		// reschedule a message before the other messages.
		h.Sleep(1)

		network.Send(h, &Message{
			Source:  node2,
			Dest:    node1,
			Message: "hi node 1",
			Size:    124.0,
		})
		if val := node2.Recv(h).Message; val != "hi node 2 (message 1)" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime := 2.0 + 2.0*123.0/dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
		if val := node2.Recv(h).Message; val != "hi node 2 (message 2)" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime += 1.0 / dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	expectedTime := 2.0 + 2.0*123.0/dataRate + 1.0/dataRate
	if loop.Time() != expectedTime {
		t.Errorf("time should be %f but got %f", expectedTime, loop.Time())
	}

	// Make sure that there are no stray messages.
	for _, node := range []*Port{node1, node2} {
		loop.Go(func(h *Handle) {
			h.Poll(node.Incoming)
		})
		if loop.Run() == nil {
			t.Error("expected deadlock error")
		}
	}
}

func TestOrderedNetworkFIFO(t *testing.T) {
	loop := NewEventLoopSeed(42)
	nodes := NewNodes(2)
	src, dst := nodes[0].Port(loop), nodes[1].Port(loop)
	network := NewOrderedNetwork(10.0, 0.5)

	loop.Go(func(h *Handle) {
		for i := 0; i < 10; i++ {
			network.Send(h, &Message{Source: src, Dest: dst, Message: i, Size: 5})
		}
	})
	loop.Go(func(h *Handle) {
		for i := 0; i < 10; i++ {
			if val := dst.Recv(h).Message; val != i {
				t.Errorf("expected message %d but got %v", i, val)
			}
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if loop.Time() < 10*5/10.0 {
		t.Errorf("messages arrived too quickly: %f", loop.Time())
	}
}

func TestRandomNetworkDelays(t *testing.T) {
	loop := NewEventLoop()
	nodes := NewNodes(2)
	src, dst := nodes[0].Port(loop), nodes[1].Port(loop)
	network := RandomNetwork{MaxDelay: 0.25}

	loop.Go(func(h *Handle) {
		msgs := make([]*Message, 5)
		for i := range msgs {
			msgs[i] = &Message{Source: src, Dest: dst, Message: i}
		}
		network.Send(h, msgs...)
	})
	loop.Go(func(h *Handle) {
		seen := map[int]bool{}
		for i := 0; i < 5; i++ {
			seen[dst.Recv(h).Message.(int)] = true
		}
		if len(seen) != 5 {
			t.Errorf("expected 5 distinct messages but got %d", len(seen))
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if loop.Time() >= 0.25 {
		t.Errorf("time %f exceeds max delay", loop.Time())
	}
}
