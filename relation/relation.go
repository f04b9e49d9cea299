// Package relation provides the in-memory data model for natural-join
// evaluation: attributes, tuples, and immutable deduplicated relations,
// together with the join primitives the evaluation engines are built on.
package relation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// ErrMalformedQuery indicates a relation with an empty or inconsistent
// schema, or a tuple that does not conform to its schema.
var ErrMalformedQuery = errors.New("malformed query")

// Attribute is a join variable/column name. Attributes with the same
// name join across relations.
type Attribute string

func (a Attribute) String() string {
	return string(a)
}

// Tuple is a row of values, positionally aligned with a relation's
// schema. Values are comparable scalars (int64, float64, string, bool).
type Tuple []interface{}

// Relation is a named set of tuples over an ordered attribute schema.
//
// Relations are IMMUTABLE and DEDUPLICATED at creation. All operations
// return new Relations; derived relations (projections, semi-join
// reductions, join results) never alias the original's tuple slice
// headers in a way that permits mutation.
type Relation struct {
	name   string
	attrs  []Attribute
	tuples []Tuple
}

// New constructs a relation, validating the schema and every tuple's
// arity, and removing duplicate tuples.
func New(name string, attrs []Attribute, tuples []Tuple) (*Relation, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%w: relation %q has an empty schema", ErrMalformedQuery, name)
	}
	seen := make(map[Attribute]bool, len(attrs))
	for _, a := range attrs {
		if a == "" {
			return nil, fmt.Errorf("%w: relation %q has an unnamed attribute", ErrMalformedQuery, name)
		}
		if seen[a] {
			return nil, fmt.Errorf("%w: relation %q repeats attribute %s", ErrMalformedQuery, name, a)
		}
		seen[a] = true
	}
	for _, t := range tuples {
		if len(t) != len(attrs) {
			return nil, fmt.Errorf("%w: relation %q tuple %v does not match schema %v",
				ErrMalformedQuery, name, t, attrs)
		}
	}

	return &Relation{
		name:   name,
		attrs:  append([]Attribute{}, attrs...),
		tuples: deduplicateTuples(tuples),
	}, nil
}

// MustNew is New but panics on error. Intended for literals in tests
// and dataset builders where the schema is known statically.
func MustNew(name string, attrs []Attribute, tuples []Tuple) *Relation {
	r, err := New(name, attrs, tuples)
	if err != nil {
		panic(err)
	}
	return r
}

// newDerived builds a relation from an operation that already
// guarantees schema validity and tuple uniqueness.
func newDerived(name string, attrs []Attribute, tuples []Tuple) *Relation {
	return &Relation{name: name, attrs: attrs, tuples: tuples}
}

// deduplicateTuples removes duplicate tuples, preserving first-seen order.
func deduplicateTuples(tuples []Tuple) []Tuple {
	if len(tuples) == 0 {
		return nil
	}

	seen := NewTupleKeyMapWithCapacity(len(tuples))
	result := make([]Tuple, 0, len(tuples))
	for _, tuple := range tuples {
		key := NewTupleKeyFull(tuple)
		if !seen.Exists(key) {
			seen.Put(key, true)
			result = append(result, tuple)
		}
	}
	return result
}

// Name returns the relation name.
func (r *Relation) Name() string {
	return r.name
}

// Attributes returns the schema in declaration order.
func (r *Relation) Attributes() []Attribute {
	return r.attrs
}

// Size returns the number of tuples.
func (r *Relation) Size() int {
	return len(r.tuples)
}

// IsEmpty returns true if the relation has no tuples.
func (r *Relation) IsEmpty() bool {
	return len(r.tuples) == 0
}

// Tuples returns the underlying tuple slice. Callers must not mutate it.
func (r *Relation) Tuples() []Tuple {
	return r.tuples
}

// Get returns the i-th tuple, or nil when out of range.
func (r *Relation) Get(i int) Tuple {
	if i < 0 || i >= len(r.tuples) {
		return nil
	}
	return r.tuples[i]
}

// AttributeIndex returns the schema position of an attribute, -1 if absent.
func (r *Relation) AttributeIndex(a Attribute) int {
	for i, attr := range r.attrs {
		if attr == a {
			return i
		}
	}
	return -1
}

// HasAttribute reports whether the schema contains a.
func (r *Relation) HasAttribute(a Attribute) bool {
	return r.AttributeIndex(a) >= 0
}

// Rename returns the same relation under a different name.
func (r *Relation) Rename(name string) *Relation {
	return newDerived(name, r.attrs, r.tuples)
}

// Project returns a new relation with only the requested attributes,
// in the requested order, duplicates eliminated.
func (r *Relation) Project(attrs []Attribute) (*Relation, error) {
	indices := make([]int, len(attrs))
	for i, a := range attrs {
		idx := r.AttributeIndex(a)
		if idx < 0 {
			return nil, fmt.Errorf("%w: relation %q has no attribute %s", ErrMalformedQuery, r.name, a)
		}
		indices[i] = idx
	}

	seen := NewTupleKeyMapWithCapacity(len(r.tuples))
	projected := make([]Tuple, 0, len(r.tuples))
	for _, t := range r.tuples {
		p := make(Tuple, len(indices))
		for i, idx := range indices {
			p[i] = t[idx]
		}
		key := NewTupleKeyFull(p)
		if !seen.Exists(key) {
			seen.Put(key, true)
			projected = append(projected, p)
		}
	}

	return newDerived(r.name, append([]Attribute{}, attrs...), projected), nil
}

// Sorted returns a copy of the tuples sorted lexicographically by the
// schema order. The relation itself is unordered; sorting is for
// deterministic display and comparison only.
func (r *Relation) Sorted() []Tuple {
	sorted := make([]Tuple, len(r.tuples))
	copy(sorted, r.tuples)
	sort.Slice(sorted, func(i, j int) bool {
		return CompareTuples(sorted[i], sorted[j]) < 0
	})
	return sorted
}

// Equal reports set equality: same schema (order-sensitive) and the
// same tuple set regardless of tuple order.
func (r *Relation) Equal(other *Relation) bool {
	if other == nil || len(r.attrs) != len(other.attrs) || len(r.tuples) != len(other.tuples) {
		return false
	}
	for i, a := range r.attrs {
		if other.attrs[i] != a {
			return false
		}
	}

	keys := NewTupleKeyMapWithCapacity(len(r.tuples))
	for _, t := range r.tuples {
		keys.Put(NewTupleKeyFull(t), true)
	}
	for _, t := range other.tuples {
		if !keys.Exists(NewTupleKeyFull(t)) {
			return false
		}
	}
	return true
}

// String returns a compact representation: Relation(name, [attrs], N tuples).
func (r *Relation) String() string {
	var attrs []string
	for _, a := range r.attrs {
		attrs = append(attrs, string(a))
	}

	count := r.Size()
	var countStr string
	switch {
	case count == 0:
		countStr = color.RedString("%d", count)
	case count < 100:
		countStr = color.GreenString("%d", count)
	case count < 10000:
		countStr = color.YellowString("%d", count)
	default:
		countStr = color.RedString("%d", count)
	}

	return fmt.Sprintf("%s%s%s%s%s%s %s%s",
		color.BlueString("Relation("),
		color.CyanString(r.name),
		color.BlueString(", ["),
		color.CyanString(strings.Join(attrs, " ")),
		color.BlueString("]"),
		color.BlueString(","),
		countStr,
		color.BlueString(" tuples)"))
}

// Table returns a formatted markdown table representation.
func (r *Relation) Table() string {
	return NewTableFormatter().FormatRelation(r)
}

// CommonAttributes returns the attributes shared by two relations, in
// the left relation's schema order.
func CommonAttributes(left, right *Relation) []Attribute {
	var common []Attribute
	for _, a := range left.attrs {
		if right.HasAttribute(a) {
			common = append(common, a)
		}
	}
	return common
}
