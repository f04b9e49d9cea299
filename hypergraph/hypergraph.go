// Package hypergraph models a natural-join query as a hypergraph:
// attributes are nodes and each relation's schema is a hyperedge. It
// provides the adjacency queries used by decomposition search and
// variable-order selection, plus GYO reduction for acyclicity testing
// and join-tree construction.
package hypergraph

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/wbrown/hyperjoin/relation"
)

// Hypergraph is an immutable view of a query's join structure. Edge
// indices are positions in the relation list given to New.
type Hypergraph struct {
	relations  []*relation.Relation
	edges      []mapset.Set[relation.Attribute]
	nodes      mapset.Set[relation.Attribute]
	occurrence map[relation.Attribute][]int
}

// New builds the hypergraph of a query. Relation names must be unique
// (the GYO tie-break and join-tree reporting depend on them) and every
// schema non-empty.
func New(rels []*relation.Relation) (*Hypergraph, error) {
	if len(rels) == 0 {
		return nil, fmt.Errorf("%w: query has no relations", relation.ErrMalformedQuery)
	}

	h := &Hypergraph{
		relations:  rels,
		edges:      make([]mapset.Set[relation.Attribute], len(rels)),
		nodes:      mapset.NewThreadUnsafeSet[relation.Attribute](),
		occurrence: make(map[relation.Attribute][]int),
	}

	names := make(map[string]bool, len(rels))
	for i, r := range rels {
		if len(r.Attributes()) == 0 {
			return nil, fmt.Errorf("%w: relation %q has an empty schema", relation.ErrMalformedQuery, r.Name())
		}
		if names[r.Name()] {
			return nil, fmt.Errorf("%w: duplicate relation name %q", relation.ErrMalformedQuery, r.Name())
		}
		names[r.Name()] = true

		edge := mapset.NewThreadUnsafeSet[relation.Attribute]()
		for _, a := range r.Attributes() {
			edge.Add(a)
			h.nodes.Add(a)
			h.occurrence[a] = append(h.occurrence[a], i)
		}
		h.edges[i] = edge
	}

	return h, nil
}

// NumEdges returns the number of hyperedges (relations).
func (h *Hypergraph) NumEdges() int {
	return len(h.relations)
}

// NumNodes returns the number of distinct attributes.
func (h *Hypergraph) NumNodes() int {
	return h.nodes.Cardinality()
}

// Relation returns the relation backing edge i.
func (h *Hypergraph) Relation(i int) *relation.Relation {
	return h.relations[i]
}

// Relations returns the backing relation list.
func (h *Hypergraph) Relations() []*relation.Relation {
	return h.relations
}

// Edge returns the attribute set of edge i. Callers must not mutate it.
func (h *Hypergraph) Edge(i int) mapset.Set[relation.Attribute] {
	return h.edges[i]
}

// EdgesWith returns the indices of edges containing a, in edge order.
func (h *Hypergraph) EdgesWith(a relation.Attribute) []int {
	return h.occurrence[a]
}

// Degree returns the number of edges containing a.
func (h *Hypergraph) Degree(a relation.Attribute) int {
	return len(h.occurrence[a])
}

// Attributes returns all attributes sorted by name, for deterministic
// iteration.
func (h *Hypergraph) Attributes() []relation.Attribute {
	attrs := h.nodes.ToSlice()
	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })
	return attrs
}

// DegreeOrder returns all attributes in ascending edge-count order,
// name as tie-break. Attributes in few relations constrain the search
// space early, so this is the default GenericJoin variable order and
// the decomposition search's candidate ordering.
func (h *Hypergraph) DegreeOrder() []relation.Attribute {
	attrs := h.Attributes()
	sort.SliceStable(attrs, func(i, j int) bool {
		di, dj := h.Degree(attrs[i]), h.Degree(attrs[j])
		if di != dj {
			return di < dj
		}
		return attrs[i] < attrs[j]
	})
	return attrs
}
