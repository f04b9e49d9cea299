// Package dataset builds the query workloads used by the command-line
// tool and the cross-engine tests: fixed textbook queries with known
// answers and seeded random instances over the same shapes.
package dataset

import (
	"fmt"
	"math/rand"

	"github.com/wbrown/hyperjoin/relation"
)

// Chain returns the three-relation path query R(A,B), S(B,C), T(C,D)
// with fixed data whose join is exactly {(1,2,4,6)}.
func Chain() []*relation.Relation {
	return []*relation.Relation{
		relation.MustNew("R", []relation.Attribute{"A", "B"},
			[]relation.Tuple{{int64(1), int64(2)}, {int64(1), int64(3)}}),
		relation.MustNew("S", []relation.Attribute{"B", "C"},
			[]relation.Tuple{{int64(2), int64(4)}, {int64(3), int64(5)}}),
		relation.MustNew("T", []relation.Attribute{"C", "D"},
			[]relation.Tuple{{int64(4), int64(6)}}),
	}
}

// Triangle returns the cyclic query R(A,B), S(B,C), T(A,C) with fixed
// data whose join is exactly {(1,2,3)}.
func Triangle() []*relation.Relation {
	return []*relation.Relation{
		relation.MustNew("R", []relation.Attribute{"A", "B"},
			[]relation.Tuple{{int64(1), int64(2)}, {int64(4), int64(5)}}),
		relation.MustNew("S", []relation.Attribute{"B", "C"},
			[]relation.Tuple{{int64(2), int64(3)}, {int64(5), int64(7)}}),
		relation.MustNew("T", []relation.Attribute{"A", "C"},
			[]relation.Tuple{{int64(1), int64(3)}, {int64(8), int64(7)}}),
	}
}

// TriangleDiamond returns the seven-relation cyclic query joining a
// triangle on A1..A3 to a diamond on A3..A6, populated with seeded
// random data.
func TriangleDiamond(seed int64, size, domain int) []*relation.Relation {
	rng := rand.New(rand.NewSource(seed))
	schemas := [][2]relation.Attribute{
		{"A1", "A2"}, {"A2", "A3"}, {"A1", "A3"},
		{"A3", "A4"}, {"A4", "A5"}, {"A5", "A6"}, {"A4", "A6"},
	}
	rels := make([]*relation.Relation, len(schemas))
	for i, schema := range schemas {
		rels[i] = randomBinary(rng, fmt.Sprintf("R%d", i+1), schema[0], schema[1], size, domain)
	}
	return rels
}

// RandomChain returns a path query R1(X1,X2), ..., Rn(Xn,Xn+1) with
// seeded random data. Small domains make join hits likely.
func RandomChain(seed int64, length, size, domain int) ([]*relation.Relation, error) {
	if length < 1 {
		return nil, fmt.Errorf("%w: chain length %d", relation.ErrMalformedQuery, length)
	}
	rng := rand.New(rand.NewSource(seed))
	rels := make([]*relation.Relation, length)
	for i := 0; i < length; i++ {
		rels[i] = randomBinary(rng, fmt.Sprintf("R%d", i+1),
			relation.Attribute(fmt.Sprintf("X%d", i+1)),
			relation.Attribute(fmt.Sprintf("X%d", i+2)),
			size, domain)
	}
	return rels, nil
}

func randomBinary(rng *rand.Rand, name string, a, b relation.Attribute, size, domain int) *relation.Relation {
	if domain < 1 {
		domain = 1
	}
	tuples := make([]relation.Tuple, size)
	for i := range tuples {
		tuples[i] = relation.Tuple{int64(rng.Intn(domain)), int64(rng.Intn(domain))}
	}
	return relation.MustNew(name, []relation.Attribute{a, b}, tuples)
}
