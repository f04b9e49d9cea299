// Package engine evaluates natural-join queries. Three evaluation
// strategies share one input shape, a list of named relations joined
// on every shared attribute:
//
//   - Yannakakis: semi-join reduction over a join tree, then joins.
//     Acyclic queries only; intermediate results never exceed the
//     output size plus the input size.
//   - GenericJoin: worst-case optimal attribute-at-a-time search.
//     Works on any query, cyclic included.
//   - Baselines: left-deep pairwise hash joins and nested-loop joins,
//     kept as correctness oracles and cost yardsticks.
//
// All engines produce the same tuple set on the same query; only the
// intermediate-result behavior differs.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wbrown/hyperjoin/annotations"
	"github.com/wbrown/hyperjoin/relation"
)

// ErrCyclicQuery indicates a query whose hypergraph admits no join
// tree. Yannakakis cannot evaluate it; GenericJoin can.
var ErrCyclicQuery = errors.New("cyclic query")

// Options configures an evaluation.
type Options struct {
	// FullReduction enables the downward semi-join sweep after the
	// upward one, leaving every relation globally consistent before the
	// join phase. The upward sweep alone already guarantees a correct
	// result.
	FullReduction bool

	// Order fixes the GenericJoin attribute order. It must mention every
	// attribute of the query exactly once. Empty means ascending degree
	// order with name tie-breaks.
	Order []relation.Attribute

	// Collector receives evaluation events; nil disables instrumentation.
	Collector *annotations.Collector
}

func resultName(rels []*relation.Relation) string {
	names := make([]string, len(rels))
	for i, r := range rels {
		names[i] = r.Name()
	}
	return "(" + strings.Join(names, "*") + ")"
}

func checkQuery(rels []*relation.Relation) error {
	if len(rels) == 0 {
		return fmt.Errorf("%w: query has no relations", relation.ErrMalformedQuery)
	}
	return nil
}
