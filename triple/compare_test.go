package triple

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	t.Run("NilSortsBeforeEverything", func(t *testing.T) {
		assert.Less(t, CompareValues(nil, "a"), 0)
		assert.Greater(t, CompareValues("a", nil), 0)
		assert.Equal(t, 0, CompareValues(nil, nil))
	})

	t.Run("NumericCrossType", func(t *testing.T) {
		assert.Equal(t, 0, CompareValues(int64(5), float64(5)))
		assert.Less(t, CompareValues(int64(4), float64(5)), 0)
	})

	t.Run("StringOrdering", func(t *testing.T) {
		assert.Less(t, CompareValues("alice", "bob"), 0)
		assert.Greater(t, CompareValues("bob", "alice"), 0)
	})

	t.Run("TimeOrdering", func(t *testing.T) {
		a := time.Unix(100, 0)
		b := time.Unix(200, 0)
		assert.Less(t, CompareValues(a, b), 0)
	})

	t.Run("CrossTypeIsDeterministic", func(t *testing.T) {
		a := CompareValues("x", int64(1))
		b := CompareValues(int64(1), "x")
		assert.Equal(t, -a, b)
	})
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(int64(5), float64(5)))
	assert.True(t, ValuesEqual(nil, nil))
	assert.False(t, ValuesEqual(nil, int64(0)))
	assert.True(t, ValuesEqual("x", "x"))
}
