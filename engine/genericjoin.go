package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/wbrown/hyperjoin/annotations"
	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

// GenericJoin evaluates any natural-join query, cyclic or not, one
// attribute at a time: at each level the candidate values are the
// intersection of the values each covering relation still allows under
// the bindings made so far, so no partial binding survives that some
// relation rules out. This bounds the work by the worst-case output
// size of the query rather than by intermediate join sizes.
//
// The result schema follows the attribute order used.
func GenericJoin(rels []*relation.Relation, opts Options) (*relation.Relation, error) {
	start := time.Now()
	c := opts.Collector
	if c.Enabled() {
		c.Add(annotations.Event{
			Name: annotations.EngineInvoked,
			Data: map[string]interface{}{"engine": "genericjoin", "relations.count": len(rels)},
		})
	}

	h, err := hypergraph.New(rels)
	if err != nil {
		return nil, err
	}

	order := opts.Order
	if len(order) == 0 {
		order = h.DegreeOrder()
	} else if err := validateOrder(h, order); err != nil {
		return nil, err
	}

	g := &genericJoiner{h: h, order: order, collector: c}
	binding := make(map[relation.Attribute]interface{}, len(order))
	var out []relation.Tuple
	g.extend(0, binding, &out)

	result, err := relation.New(resultName(rels), order, out)
	if err != nil {
		return nil, err
	}

	if c.Enabled() {
		c.AddTiming(annotations.EngineComplete, start, map[string]interface{}{
			"engine": "genericjoin", "result.size": result.Size(),
		})
	}
	return result, nil
}

// validateOrder requires order to be a permutation of the query's
// attributes: extension must bind every attribute, and a repeated or
// foreign attribute signals a caller error rather than a preference.
func validateOrder(h *hypergraph.Hypergraph, order []relation.Attribute) error {
	seen := make(map[relation.Attribute]bool, len(order))
	for _, a := range order {
		if seen[a] {
			return fmt.Errorf("%w: attribute %q repeats in variable order", relation.ErrMalformedQuery, a)
		}
		if h.Degree(a) == 0 {
			return fmt.Errorf("%w: attribute %q is not in the query", relation.ErrMalformedQuery, a)
		}
		seen[a] = true
	}
	if len(seen) != h.NumNodes() {
		return fmt.Errorf("%w: variable order binds %d of %d attributes",
			relation.ErrMalformedQuery, len(seen), h.NumNodes())
	}
	return nil
}

type genericJoiner struct {
	h         *hypergraph.Hypergraph
	order     []relation.Attribute
	collector *annotations.Collector
}

// extend binds order[depth] to each candidate value in turn and
// recurses; a fully-bound prefix becomes an output tuple.
func (g *genericJoiner) extend(depth int, binding map[relation.Attribute]interface{}, out *[]relation.Tuple) {
	if depth == len(g.order) {
		tuple := make(relation.Tuple, len(g.order))
		for i, a := range g.order {
			tuple[i] = binding[a]
		}
		*out = append(*out, tuple)
		return
	}

	attr := g.order[depth]
	start := time.Now()
	candidates := g.candidates(attr, binding)
	if len(candidates) == 0 {
		if g.collector.Enabled() {
			g.collector.AddTiming(annotations.GenericJoinPrune, start, map[string]interface{}{
				"attribute": string(attr),
			})
		}
		return
	}
	if g.collector.Enabled() {
		g.collector.AddTiming(annotations.GenericJoinExtend, start, map[string]interface{}{
			"attribute":        string(attr),
			"candidates.count": len(candidates),
		})
	}

	for _, v := range candidates {
		binding[attr] = v
		g.extend(depth+1, binding, out)
	}
	delete(binding, attr)
}

// candidates intersects, across every relation containing attr, the
// attr values appearing in tuples consistent with the current binding.
// Sorted so evaluation order is deterministic.
func (g *genericJoiner) candidates(attr relation.Attribute, binding map[relation.Attribute]interface{}) []interface{} {
	var values []interface{}
	for pos, e := range g.h.EdgesWith(attr) {
		allowed := g.allowedValues(g.h.Relation(e), attr, binding)
		if pos == 0 {
			values = allowed.seed
		} else {
			kept := values[:0]
			for _, v := range values {
				if allowed.keys.Exists(relation.NewTupleKeyFull(relation.Tuple{v})) {
					kept = append(kept, v)
				}
			}
			values = kept
		}
		if len(values) == 0 {
			return nil
		}
	}

	sort.Slice(values, func(i, j int) bool {
		return relation.CompareValues(values[i], values[j]) < 0
	})
	return values
}

type valueSet struct {
	seed []interface{}
	keys *relation.TupleKeyMap
}

// allowedValues collects the distinct values r permits for attr given
// the bound columns of r's schema.
func (g *genericJoiner) allowedValues(r *relation.Relation, attr relation.Attribute, binding map[relation.Attribute]interface{}) valueSet {
	ai := r.AttributeIndex(attr)

	var boundIdx []int
	var boundVals []interface{}
	for i, a := range r.Attributes() {
		if v, ok := binding[a]; ok {
			boundIdx = append(boundIdx, i)
			boundVals = append(boundVals, v)
		}
	}

	set := valueSet{keys: relation.NewTupleKeyMap()}
	for _, t := range r.Tuples() {
		consistent := true
		for bi, i := range boundIdx {
			if relation.CompareValues(t[i], boundVals[bi]) != 0 {
				consistent = false
				break
			}
		}
		if !consistent {
			continue
		}
		key := relation.NewTupleKeyFull(relation.Tuple{t[ai]})
		if !set.keys.Exists(key) {
			set.keys.Put(key, t[ai])
			set.seed = append(set.seed, t[ai])
		}
	}
	return set
}
