package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

func TestChainShape(t *testing.T) {
	rels := Chain()
	if len(rels) != 3 {
		t.Fatalf("expected 3 relations, got %d", len(rels))
	}
	h, err := hypergraph.New(rels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Acyclic() {
		t.Error("chain dataset should be acyclic")
	}
}

func TestTriangleShape(t *testing.T) {
	h, err := hypergraph.New(Triangle())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Acyclic() {
		t.Error("triangle dataset should be cyclic")
	}
}

func TestTriangleDiamondShape(t *testing.T) {
	rels := TriangleDiamond(1, 10, 5)
	if len(rels) != 7 {
		t.Fatalf("expected 7 relations, got %d", len(rels))
	}
	h, err := hypergraph.New(rels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Acyclic() {
		t.Error("triangle+diamond dataset should be cyclic")
	}
	if h.NumNodes() != 6 {
		t.Errorf("expected 6 attributes, got %d", h.NumNodes())
	}
}

func TestRandomChainDeterminism(t *testing.T) {
	a, err := RandomChain(42, 4, 20, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := RandomChain(42, 4, 20, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("same seed produced different %s", a[i].Name())
		}
	}

	c, err := RandomChain(43, 4, 20, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same := true
	for i := range a {
		if !a[i].Equal(c[i]) {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical data")
	}
}

func TestRandomChainRejectsZeroLength(t *testing.T) {
	if _, err := RandomChain(1, 0, 10, 5); err == nil {
		t.Error("expected an error for a zero-length chain")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	r := relation.MustNew("R", []relation.Attribute{"A", "B", "C"},
		[]relation.Tuple{
			{int64(1), "alpha", 1.5},
			{int64(2), "beta", -0.25},
		})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "A,B,C\n") {
		t.Errorf("missing header row: %q", buf.String())
	}

	got, err := ReadCSV(&buf, "R")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !got.Equal(r) {
		t.Errorf("round trip changed the relation:\n%s", got.Table())
	}
}

func TestCSVFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	r := Chain()[0]
	if err := SaveFile(path, r); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := LoadFile(path, r.Name())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !got.Equal(r) {
		t.Errorf("file round trip changed the relation:\n%s", got.Table())
	}
}

func TestReadCSVMalformedRow(t *testing.T) {
	in := strings.NewReader("A,B\n1,2\n3\n")
	if _, err := ReadCSV(in, "R"); err == nil {
		t.Error("expected an error for a short row")
	}
}
