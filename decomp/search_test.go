package decomp

import (
	"errors"
	"math"
	"testing"

	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

func chainGraph(t *testing.T) *hypergraph.Hypergraph {
	t.Helper()
	h, err := hypergraph.New([]*relation.Relation{
		binary("R", "A", "B"),
		binary("S", "B", "C"),
		binary("T", "C", "D"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}

func triangleDiamondGraph(t *testing.T) *hypergraph.Hypergraph {
	t.Helper()
	h, err := hypergraph.New([]*relation.Relation{
		binary("R1", "A1", "A2"),
		binary("R2", "A2", "A3"),
		binary("R3", "A1", "A3"),
		binary("R4", "A3", "A4"),
		binary("R5", "A4", "A5"),
		binary("R6", "A5", "A6"),
		binary("R7", "A4", "A6"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}

// checkTree validates the structural decomposition invariants: every
// hyperedge is inside some bag, parents are valid arena indices, and
// each bag's cover actually covers its attributes.
func checkTree(t *testing.T, h *hypergraph.Hypergraph, d *TreeDecomposition) {
	t.Helper()
	if d.Root() < 0 {
		t.Fatal("decomposition has no root")
	}
	for e := 0; e < h.NumEdges(); e++ {
		housed := false
		for _, bag := range d.Bags {
			housed = true
			for _, a := range h.Edge(e).ToSlice() {
				found := false
				for _, ba := range bag.Attrs {
					if ba == a {
						found = true
						break
					}
				}
				if !found {
					housed = false
					break
				}
			}
			if housed {
				break
			}
		}
		if !housed {
			t.Errorf("edge %d is not contained in any bag", e)
		}
	}
	for i, bag := range d.Bags {
		if i != d.Root() && (bag.Parent < 0 || bag.Parent >= len(d.Bags)) {
			t.Errorf("bag %d has invalid parent %d", i, bag.Parent)
		}
		covered := make(map[relation.Attribute]bool)
		for _, e := range bag.Cover {
			for _, a := range h.Edge(e).ToSlice() {
				covered[a] = true
			}
		}
		for _, a := range bag.Attrs {
			if !covered[a] {
				t.Errorf("bag %d attribute %s not covered by %v", i, a, bag.Cover)
			}
		}
		if bag.Width > d.Width+1e-6 {
			t.Errorf("bag %d width %v exceeds decomposition width %v", i, bag.Width, d.Width)
		}
	}
}

func TestGHWChain(t *testing.T) {
	h := chainGraph(t)
	d, err := GHW(h, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Width != 1 {
		t.Errorf("acyclic chain must have width 1, got %v", d.Width)
	}
	checkTree(t, h, d)
}

func TestGHWTriangle(t *testing.T) {
	h := triangleGraph(t)
	d, err := GHW(h, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Width != 2 {
		t.Errorf("triangle must have width 2, got %v", d.Width)
	}
	checkTree(t, h, d)
}

func TestGHWTriangleDiamond(t *testing.T) {
	h := triangleDiamondGraph(t)
	d, err := GHW(h, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Width != 2 {
		t.Errorf("triangle+diamond must have width 2, got %v", d.Width)
	}
	checkTree(t, h, d)
}

func TestGHWCeiling(t *testing.T) {
	h := triangleGraph(t)
	_, err := GHW(h, Options{MaxWidth: 1})
	if !errors.Is(err, ErrWidthExceeded) {
		t.Errorf("expected ErrWidthExceeded under a width-1 ceiling, got %v", err)
	}
}

func TestGHWBudget(t *testing.T) {
	h := triangleDiamondGraph(t)
	_, err := GHW(h, Options{MaxExpansions: 2})
	if !errors.Is(err, ErrWidthExceeded) {
		t.Errorf("expected ErrWidthExceeded under a 2-expansion budget, got %v", err)
	}
}

func TestFHWChain(t *testing.T) {
	h := chainGraph(t)
	d, err := FHW(h, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d.Width-1) > 1e-6 {
		t.Errorf("acyclic chain must have fractional width 1, got %v", d.Width)
	}
	checkTree(t, h, d)
}

func TestFHWTriangle(t *testing.T) {
	h := triangleGraph(t)
	d, err := FHW(h, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d.Width-1.5) > 1e-6 {
		t.Errorf("triangle must have fractional width 1.5, got %v", d.Width)
	}
	checkTree(t, h, d)
}

func TestFHWTriangleDiamond(t *testing.T) {
	h := triangleDiamondGraph(t)
	d, err := FHW(h, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d.Width-1.5) > 1e-6 {
		t.Errorf("triangle+diamond must have fractional width 1.5, got %v", d.Width)
	}
	checkTree(t, h, d)
}

func TestFHWNeverExceedsGHW(t *testing.T) {
	graphs := []*hypergraph.Hypergraph{
		chainGraph(t), triangleGraph(t), triangleDiamondGraph(t),
	}
	for _, h := range graphs {
		integral, err := GHW(h, Options{})
		if err != nil {
			t.Fatalf("GHW failed: %v", err)
		}
		fractional, err := FHW(h, Options{})
		if err != nil {
			t.Fatalf("FHW failed: %v", err)
		}
		if fractional.Width > integral.Width+1e-6 {
			t.Errorf("fractional width %v exceeds integral %v", fractional.Width, integral.Width)
		}
	}
}

func TestWidthOneMatchesAcyclicity(t *testing.T) {
	cases := []struct {
		h       *hypergraph.Hypergraph
		acyclic bool
	}{
		{chainGraph(t), true},
		{triangleGraph(t), false},
		{triangleDiamondGraph(t), false},
	}
	for _, c := range cases {
		_, err := GHW(c.h, Options{MaxWidth: 1})
		widthOne := err == nil
		if widthOne != c.acyclic {
			t.Errorf("width-1 search (%v) disagrees with acyclicity (%v)", widthOne, c.acyclic)
		}
		if c.h.Acyclic() != c.acyclic {
			t.Errorf("unexpected acyclicity verdict")
		}
	}
}
