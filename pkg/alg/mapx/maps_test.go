package mapx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClone(t *testing.T) {
	t.Parallel()

	t.Run("nil_returns_nil", func(t *testing.T) {
		t.Parallel()

		got := Clone[string, int](nil)
		assert.Nil(t, got)
	})

	t.Run("empty_returns_empty", func(t *testing.T) {
		t.Parallel()

		got := Clone(map[string]int{})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("independent_copy", func(t *testing.T) {
		t.Parallel()

		src := map[string]int64{"Brazil": 10, "Kenya": 4}
		got := Clone(src)
		assert.Equal(t, src, got)

		got["Peru"] = 3

		assert.NotContains(t, src, "Peru")
	})
}

func TestSumValues(t *testing.T) {
	t.Parallel()

	t.Run("nil_is_zero", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, SumValues[string, int](nil))
	})

	t.Run("int_counts", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 6, SumValues(map[string]int{"a": 1, "b": 2, "c": 3}))
	})

	t.Run("int64_with_negatives", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, int64(5), SumValues(map[string]int64{"2023": 10, "2024": -5}))
	})
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	t.Run("nil_returns_nil", func(t *testing.T) {
		t.Parallel()

		got := SortedKeys[int, any](nil)
		assert.Nil(t, got)
	})

	t.Run("empty_returns_empty", func(t *testing.T) {
		t.Parallel()

		got := SortedKeys(map[int]string{})
		assert.Empty(t, got)
	})

	t.Run("string_keys_sorted", func(t *testing.T) {
		t.Parallel()

		m := map[string]int{"2024": 2, "2019": 1, "2021": 3}
		got := SortedKeys(m)
		assert.Equal(t, []string{"2019", "2021", "2024"}, got)
	})
}
