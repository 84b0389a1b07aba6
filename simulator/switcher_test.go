package simulator

import (
	"math"
	"testing"
)

func TestGreedyDropSwitcher(t *testing.T) {
	testCases := []struct {
		name      string
		switcher  *GreedyDropSwitcher
		edges     [][2]int
		wantRates map[[2]int]float64
	}{
		{
			name:      "Ring",
			switcher:  NewGreedyDropSwitcher(3, 2.0),
			edges:     [][2]int{{0, 1}, {1, 2}, {2, 0}},
			wantRates: map[[2]int]float64{{0, 1}: 2, {1, 2}: 2, {2, 0}: 2},
		},
		{
			name:      "Incast",
			switcher:  NewGreedyDropSwitcher(4, 3.0),
			edges:     [][2]int{{0, 3}, {1, 3}, {2, 3}},
			wantRates: map[[2]int]float64{{0, 3}: 1, {1, 3}: 1, {2, 3}: 1},
		},
		{
			name:      "Broadcast",
			switcher:  NewGreedyDropSwitcher(4, 3.0),
			edges:     [][2]int{{0, 1}, {0, 2}, {0, 3}},
			wantRates: map[[2]int]float64{{0, 1}: 1, {0, 2}: 1, {0, 3}: 1},
		},
		{
			name: "UnevenLinks",
			switcher: &GreedyDropSwitcher{
				SendRates: []float64{4, 1},
				RecvRates: []float64{1, 3},
			},
			edges:     [][2]int{{0, 1}, {1, 0}},
			wantRates: map[[2]int]float64{{0, 1}: 3, {1, 0}: 1},
		},
		{
			name:      "Idle",
			switcher:  NewGreedyDropSwitcher(2, 5.0),
			wantRates: map[[2]int]float64{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.switcher.NumNodes()
			mat := NewConnMat(n)
			for _, e := range tc.edges {
				mat.Set(e[0], e[1], 1)
			}
			tc.switcher.SwitchedRates(mat)
			for src := 0; src < n; src++ {
				for dst := 0; dst < n; dst++ {
					expected := tc.wantRates[[2]int{src, dst}]
					if actual := mat.Get(src, dst); math.Abs(actual-expected) > 1e-9 {
						t.Errorf("%d -> %d: expected rate %f but got %f", src, dst, expected, actual)
					}
				}
			}
		})
	}
}

// TestGreedyDropSwitcherCapacity makes sure no node sends
// or receives faster than its rate, whatever the traffic.
func TestGreedyDropSwitcherCapacity(t *testing.T) {
	switcher := &GreedyDropSwitcher{
		SendRates: []float64{1, 2, 3, 4, 5},
		RecvRates: []float64{5, 4, 3, 2, 1},
	}
	loop := NewEventLoopSeed(7)
	loop.Go(func(h *Handle) {
		for trial := 0; trial < 100; trial++ {
			mat := NewConnMat(5)
			for src := 0; src < 5; src++ {
				for dst := 0; dst < 5; dst++ {
					if src != dst && h.Float64() < 0.5 {
						mat.Set(src, dst, 1)
					}
				}
			}
			switcher.SwitchedRates(mat)
			for i := 0; i < 5; i++ {
				if sum := mat.SumSource(i); sum > switcher.SendRates[i]+1e-9 {
					t.Errorf("trial %d: node %d sends at %f", trial, i, sum)
				}
				if sum := mat.SumDest(i); sum > switcher.RecvRates[i]+1e-9 {
					t.Errorf("trial %d: node %d receives at %f", trial, i, sum)
				}
			}
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestGreedyDropSwitcherWrongSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewGreedyDropSwitcher(2, 1.0).SwitchedRates(NewConnMat(3))
}
