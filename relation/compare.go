package relation

import (
	"fmt"
	"strings"
)

// CompareValues compares two tuple values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Handles the scalar types relations carry (int, int64, float64,
// string, bool), nil (less than any non-nil value), and numeric
// cross-type comparison between integers and floats.
func CompareValues(left, right interface{}) int {
	if left == nil && right == nil {
		return 0
	}
	if left == nil {
		return -1
	}
	if right == nil {
		return 1
	}

	switch l := left.(type) {
	case int:
		return compareNumeric(int64(l), right)
	case int64:
		return compareNumeric(l, right)
	case float64:
		return compareFloat(l, right)
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r)
		}
		// String vs non-string: type mismatch
		return -1
	case bool:
		if r, ok := right.(bool); ok {
			if !l && r {
				return -1
			} else if l && !r {
				return 1
			}
			return 0
		}
		// Bool vs non-bool: type mismatch
		return -1
	}

	// Fall back to string comparison for unknown types
	return strings.Compare(fmt.Sprintf("%v", left), fmt.Sprintf("%v", right))
}

// compareNumeric compares an int64 with another numeric value
func compareNumeric(left int64, right interface{}) int {
	switch r := right.(type) {
	case int:
		return compareInt64s(left, int64(r))
	case int64:
		return compareInt64s(left, r)
	case float64:
		return compareFloats(float64(left), r)
	}
	// Numeric vs non-numeric: type mismatch
	return 1
}

// compareFloat compares a float64 with another numeric value
func compareFloat(left float64, right interface{}) int {
	switch r := right.(type) {
	case int:
		return compareFloats(left, float64(r))
	case int64:
		return compareFloats(left, float64(r))
	case float64:
		return compareFloats(left, r)
	}
	return 1
}

func compareInt64s(l, r int64) int {
	if l < r {
		return -1
	} else if l > r {
		return 1
	}
	return 0
}

func compareFloats(l, r float64) int {
	if l < r {
		return -1
	} else if l > r {
		return 1
	}
	return 0
}

// CompareTuples orders tuples lexicographically by position.
func CompareTuples(left, right Tuple) int {
	for i := 0; i < len(left) && i < len(right); i++ {
		if cmp := CompareValues(left[i], right[i]); cmp != 0 {
			return cmp
		}
	}
	if len(left) < len(right) {
		return -1
	} else if len(left) > len(right) {
		return 1
	}
	return 0
}
