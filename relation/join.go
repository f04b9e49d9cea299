package relation

import (
	"fmt"
)

// HashJoin performs the natural join of two relations: an equi-join on
// every shared attribute, or the cross product when the schemas are
// disjoint. The smaller relation is used as the hash-table build side.
func HashJoin(left, right *Relation) *Relation {
	joinAttrs := CommonAttributes(left, right)
	if len(joinAttrs) == 0 {
		return crossProduct(left, right)
	}
	return HashJoinOn(left, right, joinAttrs)
}

// HashJoinOn performs an equi-join on the given attributes. The output
// schema is the left schema followed by the right attributes not in
// the join set.
func HashJoinOn(left, right *Relation, joinAttrs []Attribute) *Relation {
	leftIndices := make([]int, len(joinAttrs))
	rightIndices := make([]int, len(joinAttrs))
	for i, a := range joinAttrs {
		leftIndices[i] = left.AttributeIndex(a)
		rightIndices[i] = right.AttributeIndex(a)
		if leftIndices[i] < 0 || rightIndices[i] < 0 {
			// Join attribute missing from a side: empty result
			return newDerived(joinName(left, right), nil, nil)
		}
	}

	// Output schema: left attributes, then right attributes outside the
	// join set
	outputAttrs := append([]Attribute{}, left.attrs...)
	joinSet := make(map[Attribute]bool, len(joinAttrs))
	for _, a := range joinAttrs {
		joinSet[a] = true
	}
	var rightExtra []int
	for i, a := range right.attrs {
		if !joinSet[a] {
			outputAttrs = append(outputAttrs, a)
			rightExtra = append(rightExtra, i)
		}
	}

	// Choose the smaller relation as build side
	buildRel, probeRel := right, left
	buildIndices, probeIndices := rightIndices, leftIndices
	buildIsLeft := false
	if left.Size() < right.Size() {
		buildRel, probeRel = left, right
		buildIndices, probeIndices = leftIndices, rightIndices
		buildIsLeft = true
	}

	// Build phase
	table := NewTupleKeyMapWithCapacity(buildRel.Size())
	for _, t := range buildRel.tuples {
		key := NewTupleKey(t, buildIndices)
		if existing, ok := table.Get(key); ok {
			table.Put(key, append(existing.([]Tuple), t))
		} else {
			table.Put(key, []Tuple{t})
		}
	}

	// Probe phase
	seen := NewTupleKeyMap()
	var results []Tuple
	for _, probe := range probeRel.tuples {
		key := NewTupleKey(probe, probeIndices)
		matchesVal, ok := table.Get(key)
		if !ok {
			continue
		}
		for _, build := range matchesVal.([]Tuple) {
			var lt, rt Tuple
			if buildIsLeft {
				lt, rt = build, probe
			} else {
				lt, rt = probe, build
			}
			joined := make(Tuple, 0, len(outputAttrs))
			joined = append(joined, lt...)
			for _, idx := range rightExtra {
				joined = append(joined, rt[idx])
			}

			dedupKey := NewTupleKeyFull(joined)
			if !seen.Exists(dedupKey) {
				seen.Put(dedupKey, true)
				results = append(results, joined)
			}
		}
	}

	return newDerived(joinName(left, right), outputAttrs, results)
}

// SemiJoin returns the tuples of left whose projection onto the shared
// attributes appears in right. With disjoint schemas left is returned
// unchanged unless right is empty.
func SemiJoin(left, right *Relation) *Relation {
	joinAttrs := CommonAttributes(left, right)
	if len(joinAttrs) == 0 {
		if right.IsEmpty() {
			return newDerived(left.name, left.attrs, nil)
		}
		return left
	}
	return SemiJoinOn(left, right, joinAttrs)
}

// SemiJoinOn filters left by key membership in right on the given
// attributes.
func SemiJoinOn(left, right *Relation, joinAttrs []Attribute) *Relation {
	leftIndices := make([]int, len(joinAttrs))
	rightIndices := make([]int, len(joinAttrs))
	for i, a := range joinAttrs {
		leftIndices[i] = left.AttributeIndex(a)
		rightIndices[i] = right.AttributeIndex(a)
		if leftIndices[i] < 0 || rightIndices[i] < 0 {
			// Join attribute missing from a side: nothing can match
			return newDerived(left.name, left.attrs, nil)
		}
	}

	rightKeys := NewTupleKeyMapWithCapacity(right.Size())
	for _, t := range right.tuples {
		rightKeys.Put(NewTupleKey(t, rightIndices), true)
	}

	var results []Tuple
	for _, t := range left.tuples {
		if rightKeys.Exists(NewTupleKey(t, leftIndices)) {
			results = append(results, t)
		}
	}

	return newDerived(left.name, left.attrs, results)
}

// crossProduct pairs every tuple of left with every tuple of right.
func crossProduct(left, right *Relation) *Relation {
	outputAttrs := append(append([]Attribute{}, left.attrs...), right.attrs...)
	results := make([]Tuple, 0, left.Size()*right.Size())
	for _, lt := range left.tuples {
		for _, rt := range right.tuples {
			joined := make(Tuple, 0, len(lt)+len(rt))
			joined = append(joined, lt...)
			joined = append(joined, rt...)
			results = append(results, joined)
		}
	}
	return newDerived(joinName(left, right), outputAttrs, results)
}

func joinName(left, right *Relation) string {
	return fmt.Sprintf("(%s*%s)", left.name, right.name)
}
