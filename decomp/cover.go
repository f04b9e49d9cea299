package decomp

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

// weightEpsilon filters numerically-zero LP weights out of reported covers.
const weightEpsilon = 1e-9

// ExactCover computes a minimum set cover of attrs by hyperedges,
// solved exactly by exhaustive enumeration over edge subsets in
// increasing size. Feasible because edge counts are small in the
// workloads this system evaluates.
func ExactCover(h *hypergraph.Hypergraph, attrs mapset.Set[relation.Attribute]) ([]int, error) {
	relevant, err := coveringEdges(h, attrs)
	if err != nil {
		return nil, err
	}

	for size := 1; size <= len(relevant); size++ {
		if cover, ok := firstCoveringSubset(h, attrs, relevant, size); ok {
			return cover, nil
		}
	}
	return nil, fmt.Errorf("%w: no edge subset covers %v", ErrInfeasibleCover, sortedAttrs(attrs))
}

// FractionalCover computes a minimum-weight fractional edge cover of
// attrs: assign each hyperedge a weight >= 0 so that every attribute's
// containing edges sum to >= 1, minimizing the total weight. Solved as
// a linear program with one variable per relevant hyperedge. Returns
// the supporting edges, their weights, and the total weight.
func FractionalCover(h *hypergraph.Hypergraph, attrs mapset.Set[relation.Attribute]) ([]int, []float64, float64, error) {
	relevant, err := coveringEdges(h, attrs)
	if err != nil {
		return nil, nil, 0, err
	}

	attrList := sortedAttrs(attrs)
	n := len(relevant)

	// minimize sum(w) subject to, per attribute a,
	// sum over edges containing a of w_e >= 1, and w >= 0.
	// Encoded for lp.Convert as G w <= h with coverage rows negated and
	// explicit non-negativity rows.
	rows := len(attrList) + n
	g := mat.NewDense(rows, n, nil)
	hVec := make([]float64, rows)
	for i, a := range attrList {
		for j, e := range relevant {
			if h.Edge(e).Contains(a) {
				g.Set(i, j, -1)
			}
		}
		hVec[i] = -1
	}
	for j := 0; j < n; j++ {
		g.Set(len(attrList)+j, j, -1)
	}

	c := make([]float64, n)
	for j := range c {
		c[j] = 1
	}

	cNew, aNew, bNew := lp.Convert(c, g, hVec, nil, nil)
	total, x, err := lp.Simplex(cNew, aNew, bNew, 0, nil)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: fractional cover of %v: %v", ErrInfeasibleCover, attrList, err)
	}

	// Convert splits each free variable into a positive and a negative
	// part; recover w_j = x[j] - x[n+j].
	var cover []int
	var weights []float64
	for j, e := range relevant {
		w := x[j] - x[n+j]
		if w > weightEpsilon {
			cover = append(cover, e)
			weights = append(weights, w)
		}
	}
	return cover, weights, total, nil
}

// coveringEdges returns the edges intersecting attrs, in index order,
// failing fast when some attribute is in no edge at all.
func coveringEdges(h *hypergraph.Hypergraph, attrs mapset.Set[relation.Attribute]) ([]int, error) {
	if attrs.Cardinality() == 0 {
		return nil, fmt.Errorf("%w: empty bag", ErrInfeasibleCover)
	}

	covered := mapset.NewThreadUnsafeSet[relation.Attribute]()
	var relevant []int
	for i := 0; i < h.NumEdges(); i++ {
		inter := h.Edge(i).Intersect(attrs)
		if inter.Cardinality() > 0 {
			relevant = append(relevant, i)
			covered = covered.Union(inter)
		}
	}
	if !attrs.IsSubset(covered) {
		return nil, fmt.Errorf("%w: attributes %v not in any hyperedge",
			ErrInfeasibleCover, sortedAttrs(attrs.Difference(covered)))
	}
	return relevant, nil
}

// firstCoveringSubset scans size-sized subsets of relevant in
// lexicographic order and returns the first whose union covers attrs.
func firstCoveringSubset(h *hypergraph.Hypergraph, attrs mapset.Set[relation.Attribute], relevant []int, size int) ([]int, bool) {
	indices := make([]int, size)
	for i := range indices {
		indices[i] = i
	}

	for {
		union := mapset.NewThreadUnsafeSet[relation.Attribute]()
		for _, i := range indices {
			union = union.Union(h.Edge(relevant[i]))
		}
		if attrs.IsSubset(union) {
			cover := make([]int, size)
			for i, idx := range indices {
				cover[i] = relevant[idx]
			}
			return cover, true
		}

		// Advance to the next combination
		i := size - 1
		for i >= 0 && indices[i] == len(relevant)-size+i {
			i--
		}
		if i < 0 {
			return nil, false
		}
		indices[i]++
		for j := i + 1; j < size; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

func sortedAttrs(attrs mapset.Set[relation.Attribute]) []relation.Attribute {
	list := attrs.ToSlice()
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
