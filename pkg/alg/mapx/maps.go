// Package mapx provides generic helpers for the count and sum maps that make
// up aggregate results.
package mapx

import (
	"cmp"
	stdmaps "maps"
	"slices"
)

// Numeric is the constraint for types that support the += operator.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Clone returns a shallow copy of m.
// Returns nil for a nil map.
func Clone[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}

	return stdmaps.Clone(m)
}

// SumValues returns the sum of every value in m. Zero for a nil map.
func SumValues[K comparable, V Numeric](m map[K]V) V {
	var total V

	for _, v := range m {
		total += v
	}

	return total
}

// SortedKeys returns the keys of m in sorted order.
// Returns nil for a nil map.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	if m == nil {
		return nil
	}

	return slices.Sorted(stdmaps.Keys(m))
}
