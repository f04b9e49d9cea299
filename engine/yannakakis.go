package engine

import (
	"fmt"
	"time"

	"github.com/wbrown/hyperjoin/annotations"
	"github.com/wbrown/hyperjoin/hypergraph"
	"github.com/wbrown/hyperjoin/relation"
)

// Yannakakis evaluates an acyclic query in two passes over its join
// tree: an upward semi-join sweep that strips every tuple with no join
// partner below it, then a downward join sweep over the reduced
// relations. After the reduction no join can shrink the result, so
// intermediate sizes stay bounded by input plus output.
//
// Returns ErrCyclicQuery when the query has no join tree.
func Yannakakis(rels []*relation.Relation, opts Options) (*relation.Relation, error) {
	start := time.Now()
	c := opts.Collector
	if c.Enabled() {
		c.Add(annotations.Event{
			Name: annotations.EngineInvoked,
			Data: map[string]interface{}{"engine": "yannakakis", "relations.count": len(rels)},
		})
	}

	h, err := hypergraph.New(rels)
	if err != nil {
		return nil, err
	}

	treeStart := time.Now()
	tree, ok := h.JoinTree()
	if !ok {
		if c.Enabled() {
			c.Add(annotations.Event{
				Name: annotations.ErrorCyclicQuery,
				Data: map[string]interface{}{"relations.count": len(rels)},
			})
		}
		return nil, fmt.Errorf("%w: GYO reduction leaves more than one edge", ErrCyclicQuery)
	}
	if c.Enabled() {
		c.AddTiming(annotations.JoinTreeBuilt, treeStart, map[string]interface{}{
			"relations.count": len(rels),
			"root":            tree.Nodes[tree.Root].Relation.Name(),
		})
	}

	reduced := ReduceJoinTree(tree, opts)

	result := reduced[tree.Root]
	for _, n := range tree.PreOrder()[1:] {
		joinStart := time.Now()
		left := result
		result = relation.HashJoin(result, reduced[n])
		if c.Enabled() {
			c.AddTiming(annotations.YannakakisJoin, joinStart, map[string]interface{}{
				"left.size":   left.Size(),
				"right.size":  reduced[n].Size(),
				"result.size": result.Size(),
			})
		}
	}

	if c.Enabled() {
		c.AddTiming(annotations.EngineComplete, start, map[string]interface{}{
			"engine": "yannakakis", "result.size": result.Size(),
		})
	}
	return result, nil
}

// ReduceJoinTree runs the semi-join passes of the Yannakakis
// algorithm and returns the reduced relations indexed like
// tree.Nodes. The upward pass visits children before parents, so each
// parent is filtered against fully-reduced subtrees. With
// FullReduction a downward pass then filters each child against its
// reduced parent, making every relation consistent with the whole
// query.
func ReduceJoinTree(tree *hypergraph.JoinTree, opts Options) []*relation.Relation {
	c := opts.Collector
	reduced := make([]*relation.Relation, len(tree.Nodes))
	for i, n := range tree.Nodes {
		reduced[i] = n.Relation
	}

	for _, n := range tree.PostOrder() {
		if n == tree.Root {
			continue
		}
		p := tree.Nodes[n].Parent
		reduced[p] = semiJoinStep(c, reduced[p], reduced[n])
	}

	if opts.FullReduction {
		for _, n := range tree.PreOrder() {
			for _, child := range tree.Nodes[n].Children {
				reduced[child] = semiJoinStep(c, reduced[child], reduced[n])
			}
		}
	}

	return reduced
}

func semiJoinStep(c *annotations.Collector, keep, filter *relation.Relation) *relation.Relation {
	start := time.Now()
	before := keep.Size()
	out := relation.SemiJoin(keep, filter)
	if c.Enabled() {
		c.AddTiming(annotations.YannakakisReduce, start, map[string]interface{}{
			"parent":      keep.Name(),
			"child":       filter.Name(),
			"before.size": before,
			"after.size":  out.Size(),
		})
	}
	return out
}
