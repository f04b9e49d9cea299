package engine

import (
	"errors"
	"testing"

	"github.com/wbrown/hyperjoin/relation"
)

func TestGenericJoinChain(t *testing.T) {
	result, err := GenericJoin(chainRelations(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := relation.MustNew("expected", []relation.Attribute{"A", "B", "C", "D"},
		[]relation.Tuple{{int64(1), int64(2), int64(4), int64(6)}})
	if !projected(t, result, expected.Attributes()).Equal(expected) {
		t.Errorf("unexpected result:\n%s", result.Table())
	}
}

func TestGenericJoinTriangle(t *testing.T) {
	// R's (7,8) tuple has no triangle partner and must not survive
	result, err := GenericJoin(triangleRelations(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := relation.MustNew("expected", []relation.Attribute{"A", "B", "C"},
		[]relation.Tuple{{int64(1), int64(2), int64(3)}})
	if !projected(t, result, expected.Attributes()).Equal(expected) {
		t.Errorf("unexpected result:\n%s", result.Table())
	}
}

func TestGenericJoinOrderInvariance(t *testing.T) {
	orders := [][]relation.Attribute{
		{"A", "B", "C", "D"},
		{"D", "C", "B", "A"},
		{"B", "D", "A", "C"},
		{"C", "A", "D", "B"},
	}

	canonical := []relation.Attribute{"A", "B", "C", "D"}
	baseline, err := GenericJoin(chainRelations(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := projected(t, baseline, canonical)

	for _, order := range orders {
		result, err := GenericJoin(chainRelations(), Options{Order: order})
		if err != nil {
			t.Fatalf("order %v failed: %v", order, err)
		}
		if !projected(t, result, canonical).Equal(want) {
			t.Errorf("order %v changed the result:\n%s", order, result.Table())
		}
	}
}

func TestGenericJoinRejectsBadOrders(t *testing.T) {
	cases := []struct {
		name  string
		order []relation.Attribute
	}{
		{"repeated attribute", []relation.Attribute{"A", "A", "B", "C", "D"}},
		{"foreign attribute", []relation.Attribute{"A", "B", "C", "D", "Z"}},
		{"incomplete order", []relation.Attribute{"A", "B"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := GenericJoin(chainRelations(), Options{Order: c.order})
			if !errors.Is(err, relation.ErrMalformedQuery) {
				t.Errorf("expected ErrMalformedQuery, got %v", err)
			}
		})
	}
}

func TestGenericJoinSingleRelation(t *testing.T) {
	r := relation.MustNew("R", []relation.Attribute{"A", "B"},
		[]relation.Tuple{{int64(1), int64(2)}, {int64(3), int64(4)}})
	result, err := GenericJoin([]*relation.Relation{r}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !projected(t, result, r.Attributes()).Equal(
		relation.MustNew("expected", r.Attributes(), r.Tuples())) {
		t.Errorf("single-relation query must return the relation itself:\n%s", result.Table())
	}
}

func TestGenericJoinEmptyRelation(t *testing.T) {
	rels := chainRelations()
	rels[2] = relation.MustNew("T", []relation.Attribute{"C", "D"}, nil)
	result, err := GenericJoin(rels, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsEmpty() {
		t.Errorf("joining through an empty relation must be empty, got %d tuples", result.Size())
	}
}

func TestGenericJoinCyclicQuery(t *testing.T) {
	// Unlike the tree-based engine, extension handles cyclic queries
	if _, err := Yannakakis(triangleRelations(), Options{}); err == nil {
		t.Fatal("triangle should be cyclic")
	}
	result, err := GenericJoin(triangleRelations(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Size() != 1 {
		t.Errorf("expected 1 tuple, got %d", result.Size())
	}
}
