package decomp

import (
	"fmt"
	"math"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang-collections/collections/stack"

	"github.com/wbrown/hyperjoin/annotations"
	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

const widthEpsilon = 1e-9

// boundSlack keeps the fractional search from pruning bags whose LP
// width equals the integral bound up to solver noise.
const boundSlack = 1e-6

// GHW finds a tree decomposition minimizing the generalized hypertree
// width: the maximum, over bags, of the minimum number of hyperedges
// covering the bag. The search iterates the cover-size ceiling upward
// and, per ceiling, decomposes components over candidate bags built
// from hyperedge unions, so the first ceiling admitting a
// decomposition is the width.
func GHW(h *hypergraph.Hypergraph, opts Options) (*TreeDecomposition, error) {
	return GHWWithCollector(h, opts, nil)
}

// GHWWithCollector is GHW with execution annotations.
func GHWWithCollector(h *hypergraph.Hypergraph, opts Options, collector *annotations.Collector) (*TreeDecomposition, error) {
	start := time.Now()
	ceiling := widthCeiling(h, opts)

	s := newSearcher(h, opts, false, collector)
	for k := 1; k <= ceiling; k++ {
		s.k = k
		st, width, ok := s.solve(allEdges(h), mapset.NewThreadUnsafeSet[relation.Attribute](), math.Inf(1))
		if s.coverErr != nil {
			return nil, s.coverErr
		}
		if s.exhausted {
			return nil, fmt.Errorf("%w: expansion budget of %d spent at width %d",
				ErrWidthExceeded, opts.MaxExpansions, k)
		}
		if ok {
			d := assemble(st, width)
			if collector.Enabled() {
				collector.AddTiming(annotations.DecompSolution, start, map[string]interface{}{
					"width": d.Width, "bags.count": d.NumBags(), "measure": "ghw",
				})
			}
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: no decomposition within width %d", ErrWidthExceeded, ceiling)
}

// FHW finds a tree decomposition minimizing the fractional hypertree
// width: the maximum, over bags, of the minimum total weight of a
// fractional edge cover of the bag. Candidate bags are drawn from the
// same space the integral search uses, bounded by the integral
// optimum; since every integral cover is a fractional one, the result
// never exceeds the GHW.
func FHW(h *hypergraph.Hypergraph, opts Options) (*TreeDecomposition, error) {
	return FHWWithCollector(h, opts, nil)
}

// FHWWithCollector is FHW with execution annotations.
func FHWWithCollector(h *hypergraph.Hypergraph, opts Options, collector *annotations.Collector) (*TreeDecomposition, error) {
	start := time.Now()
	integral, err := GHW(h, opts)
	if err != nil {
		return nil, err
	}

	s := newSearcher(h, opts, true, collector)
	s.k = int(math.Round(integral.Width))
	st, width, ok := s.solve(allEdges(h), mapset.NewThreadUnsafeSet[relation.Attribute](), integral.Width+boundSlack)
	if s.coverErr != nil {
		return nil, s.coverErr
	}
	if s.exhausted {
		return nil, fmt.Errorf("%w: expansion budget of %d spent during fractional search",
			ErrWidthExceeded, opts.MaxExpansions)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no fractional decomposition within width %v",
			ErrWidthExceeded, integral.Width)
	}

	d := assemble(st, width)
	if collector.Enabled() {
		collector.AddTiming(annotations.DecompSolution, start, map[string]interface{}{
			"width": d.Width, "bags.count": d.NumBags(), "measure": "fhw",
		})
	}
	return d, nil
}

func widthCeiling(h *hypergraph.Hypergraph, opts Options) int {
	if opts.MaxWidth > 0 && opts.MaxWidth < h.NumEdges() {
		return opts.MaxWidth
	}
	return h.NumEdges()
}

func allEdges(h *hypergraph.Hypergraph) []int {
	edges := make([]int, h.NumEdges())
	for i := range edges {
		edges[i] = i
	}
	return edges
}

// subtree is a locally-indexed bag arena: bags[0] is the subtree root
// with Parent -1, every other Parent is a local index.
type subtree struct {
	bags []Bag
}

// searcher carries the branch-and-bound state: the cover-size ceiling,
// the expansion budget, and a per-bag cover cache shared across
// branches.
type searcher struct {
	h          *hypergraph.Hypergraph
	k          int
	fractional bool
	budget     int // remaining expansions; <0 means unlimited
	exhausted  bool
	coverErr   error
	collector  *annotations.Collector
	coverCache map[string]cachedCover
}

type cachedCover struct {
	cover   []int
	weights []float64
	width   float64
}

func newSearcher(h *hypergraph.Hypergraph, opts Options, fractional bool, collector *annotations.Collector) *searcher {
	budget := -1
	if opts.MaxExpansions > 0 {
		budget = opts.MaxExpansions
	}
	return &searcher{
		h:          h,
		fractional: fractional,
		budget:     budget,
		collector:  collector,
		coverCache: make(map[string]cachedCover),
	}
}

// spend consumes one unit of the expansion budget.
func (s *searcher) spend() bool {
	if s.budget < 0 {
		return true
	}
	if s.budget == 0 {
		s.exhausted = true
		return false
	}
	s.budget--
	return true
}

// solve decomposes one connected component. comp holds the hyperedge
// indices still to be covered; conn holds the attributes shared with
// the parent bag, which the chosen bag must contain so that every
// attribute's bags stay connected. bound prunes fractional branches
// that cannot improve on the best width found so far.
//
// Candidate bags are unions of up to k hyperedges, restricted to the
// attributes visible in this component. For every candidate the
// component splits into subcomponents connected through attributes
// outside the bag; all must decompose for the candidate to stand.
func (s *searcher) solve(comp []int, conn mapset.Set[relation.Attribute], bound float64) (subtree, float64, bool) {
	base := conn.Clone()
	for _, e := range comp {
		base = base.Union(s.h.Edge(e))
	}

	// Edges eligible for covers: any edge seeing this component
	var relevant []int
	for i := 0; i < s.h.NumEdges(); i++ {
		if s.h.Edge(i).Intersect(base).Cardinality() > 0 {
			relevant = append(relevant, i)
		}
	}

	if s.collector.Enabled() {
		s.collector.Add(annotations.Event{
			Name: annotations.DecompExpand,
			Data: map[string]interface{}{"component.size": len(comp), "width": s.k},
		})
	}

	var best subtree
	bestWidth := math.Inf(1)
	found := false

	maxSize := s.k
	if maxSize > len(relevant) {
		maxSize = len(relevant)
	}
	for size := 1; size <= maxSize; size++ {
		combos := combinations(len(relevant), size)
		for _, combo := range combos {
			if !s.spend() {
				return subtree{}, 0, false
			}

			lambda := make([]int, size)
			union := mapset.NewThreadUnsafeSet[relation.Attribute]()
			for i, idx := range combo {
				lambda[i] = relevant[idx]
				union = union.Union(s.h.Edge(lambda[i]))
			}
			chi := union.Intersect(base)

			if !conn.IsSubset(chi) {
				continue
			}
			if !coversSomeEdge(s.h, comp, chi) {
				continue
			}

			bag, ok := s.bagFor(chi)
			if !ok {
				return subtree{}, 0, false
			}
			if s.fractional && bag.Width >= bound {
				continue
			}

			childBound := bound
			width := bag.Width
			node := subtree{bags: []Bag{bag}}
			allChildrenOK := true
			for _, sub := range s.split(comp, chi) {
				childConn := attrsOf(s.h, sub).Intersect(chi)
				child, childWidth, ok := s.solve(sub, childConn, childBound)
				if !ok {
					allChildrenOK = false
					break
				}
				node = attach(node, child)
				if childWidth > width {
					width = childWidth
				}
			}
			if !allChildrenOK {
				if s.exhausted || s.coverErr != nil {
					return subtree{}, 0, false
				}
				continue
			}

			if !s.fractional {
				return node, width, true
			}
			if width < bestWidth-widthEpsilon {
				best, bestWidth, found = node, width, true
				bound = width
			}
		}
	}

	return best, bestWidth, found
}

// bagFor builds the Bag for an attribute set, computing its exact or
// fractional cover. Covers are cached by attribute signature since the
// same bag recurs across branches.
func (s *searcher) bagFor(chi mapset.Set[relation.Attribute]) (Bag, bool) {
	attrs := sortedAttrs(chi)
	key := attrKey(attrs)
	cached, ok := s.coverCache[key]
	if !ok {
		if s.fractional {
			cover, weights, width, err := FractionalCover(s.h, chi)
			if err != nil {
				s.coverErr = err
				return Bag{}, false
			}
			cached = cachedCover{cover: cover, weights: weights, width: width}
		} else {
			cover, err := ExactCover(s.h, chi)
			if err != nil {
				s.coverErr = err
				return Bag{}, false
			}
			cached = cachedCover{cover: cover, width: float64(len(cover))}
		}
		s.coverCache[key] = cached
	}

	return Bag{
		Attrs:  attrs,
		Cover:  cached.cover,
		Weight: cached.weights,
		Width:  cached.width,
		Parent: -1,
	}, true
}

// split partitions the component's uncovered edges into connected
// subcomponents: edges are adjacent when they share an attribute
// outside chi. Uses an explicit stack so component discovery never
// recurses.
func (s *searcher) split(comp []int, chi mapset.Set[relation.Attribute]) [][]int {
	var remaining []int
	for _, e := range comp {
		if !s.h.Edge(e).IsSubset(chi) {
			remaining = append(remaining, e)
		}
	}
	sort.Ints(remaining)

	visited := make(map[int]bool, len(remaining))
	var result [][]int
	for _, seed := range remaining {
		if visited[seed] {
			continue
		}
		var component []int
		work := stack.New()
		work.Push(seed)
		visited[seed] = true
		for work.Len() > 0 {
			e := work.Pop().(int)
			component = append(component, e)
			outside := s.h.Edge(e).Difference(chi)
			for _, f := range remaining {
				if !visited[f] && s.h.Edge(f).Intersect(outside).Cardinality() > 0 {
					visited[f] = true
					work.Push(f)
				}
			}
		}
		sort.Ints(component)
		result = append(result, component)
	}
	return result
}

// coversSomeEdge reports whether at least one component edge is fully
// inside chi. Without this progress guarantee a candidate bag could
// recreate the same component forever.
func coversSomeEdge(h *hypergraph.Hypergraph, comp []int, chi mapset.Set[relation.Attribute]) bool {
	for _, e := range comp {
		if h.Edge(e).IsSubset(chi) {
			return true
		}
	}
	return false
}

func attrsOf(h *hypergraph.Hypergraph, edges []int) mapset.Set[relation.Attribute] {
	attrs := mapset.NewThreadUnsafeSet[relation.Attribute]()
	for _, e := range edges {
		attrs = attrs.Union(h.Edge(e))
	}
	return attrs
}

// attach appends a child subtree to node, re-basing the child's local
// indices and pointing its root at the node root.
func attach(node subtree, child subtree) subtree {
	offset := len(node.bags)
	for _, b := range child.bags {
		if b.Parent == -1 {
			b.Parent = 0
		} else {
			b.Parent += offset
		}
		node.bags = append(node.bags, b)
	}
	return node
}

func assemble(st subtree, width float64) *TreeDecomposition {
	return &TreeDecomposition{Bags: st.bags, Width: width}
}

// combinations enumerates size-sized index subsets of [0,n) in
// lexicographic order.
func combinations(n, size int) [][]int {
	if size > n {
		return nil
	}
	indices := make([]int, size)
	for i := range indices {
		indices[i] = i
	}

	var result [][]int
	for {
		result = append(result, append([]int{}, indices...))

		i := size - 1
		for i >= 0 && indices[i] == n-size+i {
			i--
		}
		if i < 0 {
			return result
		}
		indices[i]++
		for j := i + 1; j < size; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

func attrKey(attrs []relation.Attribute) string {
	key := ""
	for _, a := range attrs {
		key += string(a) + "\x00"
	}
	return key
}
