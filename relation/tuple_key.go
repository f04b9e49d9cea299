package relation

import (
	"fmt"
	"math"

	"github.com/spaolacci/murmur3"
)

// TupleKey is a hashable key for a tuple or a projection of one. It
// avoids string allocations by hashing the underlying values directly.
type TupleKey struct {
	hash   uint64
	values []interface{}
}

// NewTupleKey creates a key from specific tuple positions.
func NewTupleKey(tuple Tuple, indices []int) TupleKey {
	// Single column fast path
	if len(indices) == 1 {
		val := tuple[indices[0]]
		return TupleKey{
			hash:   hashValue(val),
			values: []interface{}{val},
		}
	}

	values := make([]interface{}, len(indices))
	for i, idx := range indices {
		values[i] = tuple[idx]
	}
	return TupleKey{
		hash:   hashValues(values),
		values: values,
	}
}

// NewTupleKeyFull creates a key from an entire tuple. The tuple is
// referenced, not copied; tuples are immutable in this package.
func NewTupleKeyFull(tuple Tuple) TupleKey {
	return TupleKey{
		hash:   hashValues(tuple),
		values: tuple,
	}
}

// hashValues mixes the per-value hashes positionally.
func hashValues(values []interface{}) uint64 {
	const prime = 1099511628211
	hash := uint64(14695981039346656037)
	for _, v := range values {
		hash ^= hashValue(v)
		hash *= prime
	}
	return hash
}

// hashValue hashes a single scalar without string conversion. Numeric
// representations are normalized so that int(3), int64(3), and 3.0 all
// collide, matching CompareValues equality.
func hashValue(v interface{}) uint64 {
	switch val := v.(type) {
	case string:
		return murmur3.Sum64([]byte(val))
	case int:
		return uint64(val)
	case int64:
		return uint64(val)
	case uint64:
		return val
	case float64:
		// An integral float must land in the same bucket as the equal
		// integer, since CompareValues treats int64(2) and 2.0 as equal
		if val == math.Trunc(val) && val >= math.MinInt64 && val < math.MaxInt64 {
			return uint64(int64(val))
		}
		return math.Float64bits(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case nil:
		return 0
	default:
		h := murmur3.New64()
		fmt.Fprintf(h, "%v", val)
		return h.Sum64()
	}
}

// Equal checks if two keys are equal.
func (k TupleKey) Equal(other TupleKey) bool {
	if k.hash != other.hash {
		return false
	}
	return tupleValuesEqual(k.values, other.values)
}

func tupleValuesEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if CompareValues(v, b[i]) != 0 {
			return false
		}
	}
	return true
}

// TupleKeyMap is a hash map keyed by TupleKey. The murmur hash indexes
// a native Go map; collisions are resolved by value comparison.
type TupleKeyMap struct {
	m map[uint64][]mapEntry
}

type mapEntry struct {
	values []interface{} // tuple values for collision checking
	value  interface{}   // the stored value
}

// NewTupleKeyMap creates an empty TupleKeyMap.
func NewTupleKeyMap() *TupleKeyMap {
	return &TupleKeyMap{m: make(map[uint64][]mapEntry)}
}

// NewTupleKeyMapWithCapacity pre-sizes the map for expectedSize entries.
func NewTupleKeyMapWithCapacity(expectedSize int) *TupleKeyMap {
	if expectedSize < 0 {
		expectedSize = 0
	}
	return &TupleKeyMap{m: make(map[uint64][]mapEntry, expectedSize)}
}

// Put adds or updates a key-value pair.
func (m *TupleKeyMap) Put(key TupleKey, value interface{}) {
	entries := m.m[key.hash]
	for i := range entries {
		if tupleValuesEqual(entries[i].values, key.values) {
			entries[i].value = value
			return
		}
	}
	m.m[key.hash] = append(entries, mapEntry{values: key.values, value: value})
}

// Get retrieves a value by key.
func (m *TupleKeyMap) Get(key TupleKey) (interface{}, bool) {
	for _, entry := range m.m[key.hash] {
		if tupleValuesEqual(entry.values, key.values) {
			return entry.value, true
		}
	}
	return nil, false
}

// Exists checks if a key exists.
func (m *TupleKeyMap) Exists(key TupleKey) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of distinct keys.
func (m *TupleKeyMap) Len() int {
	n := 0
	for _, entries := range m.m {
		n += len(entries)
	}
	return n
}
