package engine

import (
	"errors"
	"testing"

	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

func chainRelations() []*relation.Relation {
	return []*relation.Relation{
		relation.MustNew("R", []relation.Attribute{"A", "B"},
			[]relation.Tuple{{int64(1), int64(2)}, {int64(1), int64(3)}}),
		relation.MustNew("S", []relation.Attribute{"B", "C"},
			[]relation.Tuple{{int64(2), int64(4)}, {int64(3), int64(5)}}),
		relation.MustNew("T", []relation.Attribute{"C", "D"},
			[]relation.Tuple{{int64(4), int64(6)}}),
	}
}

func triangleRelations() []*relation.Relation {
	return []*relation.Relation{
		relation.MustNew("R", []relation.Attribute{"A", "B"},
			[]relation.Tuple{{int64(1), int64(2)}, {int64(7), int64(8)}}),
		relation.MustNew("S", []relation.Attribute{"B", "C"},
			[]relation.Tuple{{int64(2), int64(3)}}),
		relation.MustNew("T", []relation.Attribute{"A", "C"},
			[]relation.Tuple{{int64(1), int64(3)}}),
	}
}

// projected reorders a result to the given schema so engines with
// different output orders can be compared.
func projected(t *testing.T, r *relation.Relation, attrs []relation.Attribute) *relation.Relation {
	t.Helper()
	p, err := r.Project(attrs)
	if err != nil {
		t.Fatalf("projection failed: %v", err)
	}
	return p
}

func TestYannakakisChain(t *testing.T) {
	result, err := Yannakakis(chainRelations(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := relation.MustNew("expected", []relation.Attribute{"A", "B", "C", "D"},
		[]relation.Tuple{{int64(1), int64(2), int64(4), int64(6)}})
	if !projected(t, result, expected.Attributes()).Equal(expected) {
		t.Errorf("unexpected result:\n%s", result.Table())
	}
}

func TestYannakakisCyclic(t *testing.T) {
	_, err := Yannakakis(triangleRelations(), Options{})
	if !errors.Is(err, ErrCyclicQuery) {
		t.Errorf("expected ErrCyclicQuery, got %v", err)
	}
}

func TestYannakakisEmptyQuery(t *testing.T) {
	_, err := Yannakakis(nil, Options{})
	if !errors.Is(err, relation.ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestYannakakisEmptyRelation(t *testing.T) {
	rels := chainRelations()
	rels[1] = relation.MustNew("S", []relation.Attribute{"B", "C"}, nil)
	result, err := Yannakakis(rels, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsEmpty() {
		t.Errorf("joining through an empty relation must be empty, got %d tuples", result.Size())
	}
}

func TestYannakakisFullReduction(t *testing.T) {
	// The second chain tuple of R and S dangles: S(3,5) has no C=5
	// partner in T. The downward sweep must strip the dangling tuples
	// from every relation, not just ancestors.
	h, err := hypergraph.New(chainRelations())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tree, ok := h.JoinTree()
	if !ok {
		t.Fatal("chain query should be acyclic")
	}

	reduced := ReduceJoinTree(tree, Options{FullReduction: true})
	for i, n := range tree.Nodes {
		if reduced[i].Size() != 1 {
			t.Errorf("relation %s should reduce to 1 tuple, got %d",
				n.Relation.Name(), reduced[i].Size())
		}
	}
}

func TestYannakakisUpwardReductionOnly(t *testing.T) {
	h, err := hypergraph.New(chainRelations())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tree, ok := h.JoinTree()
	if !ok {
		t.Fatal("chain query should be acyclic")
	}

	reduced := ReduceJoinTree(tree, Options{})
	for i, n := range tree.Nodes {
		if reduced[i].Size() > n.Relation.Size() {
			t.Errorf("reduction grew relation %s from %d to %d",
				n.Relation.Name(), n.Relation.Size(), reduced[i].Size())
		}
	}
	// The root sees every subtree, so it must be fully reduced.
	if reduced[tree.Root].Size() != 1 {
		t.Errorf("root should reduce to 1 tuple, got %d", reduced[tree.Root].Size())
	}
}
