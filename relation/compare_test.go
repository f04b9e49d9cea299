package relation

import "testing"

func TestCompareValues(t *testing.T) {
	cases := []struct {
		left, right interface{}
		want        int
	}{
		{int64(1), int64(2), -1},
		{int64(2), int64(2), 0},
		{int64(3), int64(2), 1},
		{1, int64(1), 0},
		{int64(1), 1.5, -1},
		{2.5, int64(2), 1},
		{"a", "b", -1},
		{"b", "b", 0},
		{false, true, -1},
		{true, true, 0},
		{nil, int64(0), -1},
		{nil, nil, 0},
		{int64(0), nil, 1},
	}

	for _, c := range cases {
		if got := CompareValues(c.left, c.right); got != c.want {
			t.Errorf("CompareValues(%v, %v) = %d, want %d", c.left, c.right, got, c.want)
		}
	}
}

func TestCompareTuples(t *testing.T) {
	cases := []struct {
		left, right Tuple
		want        int
	}{
		{Tuple{int64(1), int64(2)}, Tuple{int64(1), int64(3)}, -1},
		{Tuple{int64(1), int64(2)}, Tuple{int64(1), int64(2)}, 0},
		{Tuple{int64(2)}, Tuple{int64(1), int64(9)}, 1},
		{Tuple{int64(1)}, Tuple{int64(1), int64(9)}, -1},
	}
	for _, c := range cases {
		if got := CompareTuples(c.left, c.right); got != c.want {
			t.Errorf("CompareTuples(%v, %v) = %d, want %d", c.left, c.right, got, c.want)
		}
	}
}
