package triple

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestEncodeOrderedMatchesCompareValues(t *testing.T) {
	pairs := [][2]Value{
		{nil, "a"},
		{nil, nil},
		{int64(-5), int64(5)},
		{int64(5), float64(5)},
		{float64(-1.5), float64(1.5)},
		{"alice", "bob"},
		{"bob", "bob"},
		{true, false},
		{time.Unix(100, 0), time.Unix(200, 0)},
		{[]byte("a"), []byte("b")},
	}
	for _, p := range pairs {
		wantSign := sign(CompareValues(p[0], p[1]))
		gotSign := sign(bytes.Compare(EncodeOrdered(p[0]), EncodeOrdered(p[1])))
		assert.Equal(t, wantSign, gotSign, "pair %v vs %v", p[0], p[1])
	}
}

func TestEncodeCursorOrdersByValueThenEntity(t *testing.T) {
	a := EncodeCursor("x", EntityID("posts#1"))
	b := EncodeCursor("x", EntityID("posts#2"))
	assert.True(t, bytes.Compare(a, b) < 0)

	c := EncodeCursor("y", EntityID("posts#0"))
	assert.True(t, bytes.Compare(a, c) < 0)
}
