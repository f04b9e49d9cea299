package engine

import (
	"fmt"
	"time"

	"github.com/wbrown/hyperjoin/annotations"
	"github.com/wbrown/hyperjoin/relation"
)

// HashJoinBaseline evaluates the query as a left-deep sequence of
// pairwise hash joins in the given relation order. Correct on any
// query, with no protection against intermediate-result blowup; the
// structure-aware engines are measured against it.
func HashJoinBaseline(rels []*relation.Relation, opts Options) (*relation.Relation, error) {
	return foldPairwise(rels, opts, "hashjoin", annotations.JoinHash, relation.HashJoin)
}

// NestedLoopBaseline evaluates the query as left-deep pairwise
// nested-loop joins. Quadratic per pair; exists as the simplest
// possible correctness oracle.
func NestedLoopBaseline(rels []*relation.Relation, opts Options) (*relation.Relation, error) {
	return foldPairwise(rels, opts, "nestedloop", annotations.JoinNested, nestedLoopJoin)
}

func foldPairwise(rels []*relation.Relation, opts Options, engine, event string,
	join func(left, right *relation.Relation) *relation.Relation) (*relation.Relation, error) {
	if err := checkQuery(rels); err != nil {
		return nil, err
	}

	start := time.Now()
	c := opts.Collector
	if c.Enabled() {
		c.Add(annotations.Event{
			Name: annotations.EngineInvoked,
			Data: map[string]interface{}{"engine": engine, "relations.count": len(rels)},
		})
	}

	result := rels[0]
	for _, r := range rels[1:] {
		joinStart := time.Now()
		left := result
		result = join(result, r)
		if c.Enabled() {
			c.AddTiming(event, joinStart, map[string]interface{}{
				"left.size":   left.Size(),
				"right.size":  r.Size(),
				"result.size": result.Size(),
			})
		}
	}

	if c.Enabled() {
		c.AddTiming(annotations.EngineComplete, start, map[string]interface{}{
			"engine": engine, "result.size": result.Size(),
		})
	}
	return result, nil
}

// nestedLoopJoin computes the natural join of two relations by
// scanning every tuple pair. Same semantics as HashJoin, including the
// cross product on disjoint schemas.
func nestedLoopJoin(left, right *relation.Relation) *relation.Relation {
	common := relation.CommonAttributes(left, right)

	attrs := append([]relation.Attribute{}, left.Attributes()...)
	var rightExtra []int
	for i, a := range right.Attributes() {
		if !left.HasAttribute(a) {
			attrs = append(attrs, a)
			rightExtra = append(rightExtra, i)
		}
	}

	leftIdx := make([]int, len(common))
	rightIdx := make([]int, len(common))
	for i, a := range common {
		leftIdx[i] = left.AttributeIndex(a)
		rightIdx[i] = right.AttributeIndex(a)
	}

	seen := relation.NewTupleKeyMap()
	var tuples []relation.Tuple
	for _, lt := range left.Tuples() {
		for _, rt := range right.Tuples() {
			match := true
			for i := range common {
				if relation.CompareValues(lt[leftIdx[i]], rt[rightIdx[i]]) != 0 {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			combined := make(relation.Tuple, 0, len(attrs))
			combined = append(combined, lt...)
			for _, i := range rightExtra {
				combined = append(combined, rt[i])
			}
			key := relation.NewTupleKeyFull(combined)
			if !seen.Exists(key) {
				seen.Put(key, true)
				tuples = append(tuples, combined)
			}
		}
	}

	return relation.MustNew(fmt.Sprintf("(%s*%s)", left.Name(), right.Name()), attrs, tuples)
}
