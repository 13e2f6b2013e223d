package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapTransformsLazily(t *testing.T) {
	it := Map(FromSlice([]int{1, 2, 3}), func(v int) (int, error) { return v * 2, nil })
	out, err := Drain(it)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 4, 6}, out)
}

func TestMapPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	it := Map(FromSlice([]int{1, 2}), func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})
	out, err := Drain(it)
	assert.Equal(t, boom, err)
	assert.Equal(t, []int{1}, out)
}

func TestFilterKeepsMatching(t *testing.T) {
	it := Filter(FromSlice([]int{1, 2, 3, 4}), func(v int) (bool, error) { return v%2 == 0, nil })
	out, err := Drain(it)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 4}, out)
}

func TestTapObservesWithoutFiltering(t *testing.T) {
	var seen []int
	it := Tap(FromSlice([]int{1, 2, 3}), func(v int) { seen = append(seen, v) })
	out, err := Drain(it)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestTakeStopsEarlyWithoutDrainingInner(t *testing.T) {
	pulled := 0
	inner := &FuncIterator[int]{
		NextFn: func() (int, bool, error) {
			pulled++
			return pulled, true, nil
		},
	}
	out, err := Drain(Take(inner, 3))
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
	assert.Equal(t, 3, pulled)
}

func TestSortBuffersAndOrders(t *testing.T) {
	it, err := Sort(FromSlice([]int{3, 1, 2}), func(a, b int) bool { return a < b })
	assert.NoError(t, err)
	out, err := Drain(it)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestFuncIteratorStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	closed := false
	it := &FuncIterator[int]{
		NextFn: func() (int, bool, error) { return 0, false, boom },
		CloseFn: func() error {
			closed = true
			return nil
		},
	}
	out, err := Drain(it)
	assert.Equal(t, boom, err)
	assert.Nil(t, out)
	assert.True(t, closed)
}
