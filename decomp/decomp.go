// Package decomp searches for tree decompositions of a query
// hypergraph and computes the two structural width measures used to
// bound join cost: generalized hypertree width (GHW, integral edge
// covers) and fractional hypertree width (FHW, linear-relaxation edge
// covers).
//
// Decomposition search is NP-hard in general. The search here is
// bounded: candidate bags are intersections of unions of at most
// MaxWidth hyperedges with the component under decomposition, and a
// node-expansion budget caps worst-case latency. Within those bounds
// the search is exhaustive and deterministic; outside them it fails
// with ErrWidthExceeded rather than hanging. This incompleteness is
// intentional and documented, not a defect.
package decomp

import (
	"errors"

	"github.com/wbrown/hyperjoin/relation"
)

var (
	// ErrWidthExceeded indicates no decomposition was found within the
	// configured width ceiling or expansion budget. Recoverable: raise
	// the ceiling or accept the width as unknown/at-least-ceiling.
	ErrWidthExceeded = errors.New("width ceiling exceeded")

	// ErrInfeasibleCover indicates a bag whose attributes cannot be
	// covered by any combination of hyperedges. Edge-generated bags are
	// coverable by construction, so this is an internal invariant
	// violation, not a query property.
	ErrInfeasibleCover = errors.New("infeasible edge cover")
)

// Options bounds the decomposition search.
type Options struct {
	// MaxWidth caps the per-bag edge-cover size considered. Zero means
	// the number of hyperedges (no effective ceiling).
	MaxWidth int

	// MaxExpansions caps the number of search-node expansions. Zero
	// means unlimited.
	MaxExpansions int
}

// Bag is one node of a tree decomposition: a set of attributes, the
// hyperedge cover guarding it, and its tree link. Bags form an arena
// addressed by index; Parent is -1 at the root.
type Bag struct {
	Attrs  []relation.Attribute // sorted
	Cover  []int                // hyperedge indices covering Attrs
	Weight []float64            // fractional weights parallel to Cover; nil for GHW
	Width  float64              // cover size (GHW) or cover weight sum (FHW)
	Parent int
}

// TreeDecomposition is the result of a width search: the bag tree and
// the achieved width (the maximum bag width).
type TreeDecomposition struct {
	Bags  []Bag
	Width float64
}

// NumBags returns the number of bags.
func (d *TreeDecomposition) NumBags() int {
	return len(d.Bags)
}

// Root returns the index of the root bag.
func (d *TreeDecomposition) Root() int {
	for i, b := range d.Bags {
		if b.Parent == -1 {
			return i
		}
	}
	return -1
}
