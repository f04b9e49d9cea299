package hypergraph

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/wbrown/hyperjoin/relation"
)

// JoinTree is a width-1 decomposition of an acyclic query: one node
// per relation, adjacent nodes joinable on their shared attributes.
// Nodes form an arena addressed by index; Parent is -1 at the root.
type JoinTree struct {
	Nodes []JoinTreeNode
	Root  int
}

// JoinTreeNode holds one relation and its tree links.
type JoinTreeNode struct {
	Relation *relation.Relation
	Parent   int
	Children []int
}

// elimination records one GYO edge removal: the removed edge and the
// surviving edge it folded into.
type elimination struct {
	edge, parent int
}

// Acyclic reports whether the hypergraph is alpha-acyclic. Cyclicity
// is a query property, not an error.
func (h *Hypergraph) Acyclic() bool {
	_, ok := h.reduce()
	return ok
}

// JoinTree runs GYO reduction and, when the hypergraph is acyclic,
// replays the elimination order in reverse to assemble a join tree.
// Returns (nil, false) for cyclic hypergraphs.
func (h *Hypergraph) JoinTree() (*JoinTree, bool) {
	elims, ok := h.reduce()
	if !ok {
		return nil, false
	}

	tree := &JoinTree{Nodes: make([]JoinTreeNode, len(h.relations))}
	for i, r := range h.relations {
		tree.Nodes[i] = JoinTreeNode{Relation: r, Parent: -1}
	}

	// The last surviving edge is the root; every eliminated edge hangs
	// off the edge it folded into, which is guaranteed to be placed
	// already when replaying in reverse.
	root := -1
	for i := len(elims) - 1; i >= 0; i-- {
		e := elims[i]
		if root == -1 {
			root = e.parent
		}
		tree.Nodes[e.edge].Parent = e.parent
		tree.Nodes[e.parent].Children = append(tree.Nodes[e.parent].Children, e.edge)
	}
	if root == -1 {
		// Single-relation query: no eliminations
		root = 0
	}
	tree.Root = root

	return tree, true
}

// reduce performs GYO reduction on working copies of the edge sets:
// repeatedly strip ear attributes (attributes in exactly one remaining
// edge) and fold edges whose remaining attributes are contained in
// another edge. Acyclic iff the hypergraph reduces to a single edge.
//
// Tie-break when several edges are foldable: smallest current
// attribute count, then lexicographically smallest relation name.
func (h *Hypergraph) reduce() ([]elimination, bool) {
	work := make([]mapset.Set[relation.Attribute], len(h.edges))
	alive := make([]int, 0, len(h.edges))
	for i, e := range h.edges {
		work[i] = e.Clone()
		alive = append(alive, i)
	}

	var elims []elimination
	for len(alive) > 1 {
		h.stripEars(work, alive)

		edge, parent, ok := h.findFoldable(work, alive)
		if !ok {
			return nil, false
		}
		elims = append(elims, elimination{edge: edge, parent: parent})
		alive = removeIndex(alive, edge)
	}

	return elims, true
}

// stripEars removes every attribute occurring in exactly one alive
// edge, iterating until stable since each removal can expose new ears.
func (h *Hypergraph) stripEars(work []mapset.Set[relation.Attribute], alive []int) {
	for {
		changed := false
		counts := make(map[relation.Attribute]int)
		last := make(map[relation.Attribute]int)
		for _, i := range alive {
			for _, a := range work[i].ToSlice() {
				counts[a]++
				last[a] = i
			}
		}
		for a, n := range counts {
			if n == 1 {
				work[last[a]].Remove(a)
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// findFoldable locates an alive edge whose working attribute set is a
// subset of another alive edge's, applying the deterministic
// tie-break, and returns (edge, parent).
func (h *Hypergraph) findFoldable(work []mapset.Set[relation.Attribute], alive []int) (int, int, bool) {
	ordered := append([]int{}, alive...)
	sort.Slice(ordered, func(x, y int) bool {
		cx, cy := work[ordered[x]].Cardinality(), work[ordered[y]].Cardinality()
		if cx != cy {
			return cx < cy
		}
		return h.relations[ordered[x]].Name() < h.relations[ordered[y]].Name()
	})

	for _, i := range ordered {
		var parents []int
		for _, j := range alive {
			if j != i && work[i].IsSubset(work[j]) {
				parents = append(parents, j)
			}
		}
		if len(parents) == 0 {
			continue
		}
		sort.Slice(parents, func(x, y int) bool {
			return h.relations[parents[x]].Name() < h.relations[parents[y]].Name()
		})
		return i, parents[0], true
	}
	return 0, 0, false
}

func removeIndex(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// PostOrder returns the tree's node indices children-first.
func (t *JoinTree) PostOrder() []int {
	order := make([]int, 0, len(t.Nodes))
	var visit func(int)
	visit = func(n int) {
		for _, c := range t.Nodes[n].Children {
			visit(c)
		}
		order = append(order, n)
	}
	visit(t.Root)
	return order
}

// PreOrder returns the tree's node indices parent-first.
func (t *JoinTree) PreOrder() []int {
	order := make([]int, 0, len(t.Nodes))
	var visit func(int)
	visit = func(n int) {
		order = append(order, n)
		for _, c := range t.Nodes[n].Children {
			visit(c)
		}
	}
	visit(t.Root)
	return order
}
