package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/triple"
)

func TestNewFrameDeclaresUndefinedForAbsentPaths(t *testing.T) {
	id := triple.NewEntityID("users", "1")
	ts := triple.Timestamp{Tick: 1, ClientID: "c1"}
	view := entity.Materialize(id, []triple.Triple{
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alice", Timestamp: ts},
	})
	f := NewFrame(view, []triple.Path{{"name"}, {"city"}})

	v, ok := f.Get(triple.Path{"name"})
	assert.True(t, ok)
	assert.Equal(t, triple.Value("Alice"), v)

	v, ok = f.Get(triple.Path{"city"})
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = f.Get(triple.Path{"undeclared"})
	assert.False(t, ok)
}

func TestStackAncestorNumbering(t *testing.T) {
	s := NewStack()
	s.Push(Frame{EntityID: "outer"})
	s.Push(Frame{EntityID: "inner"})

	a1, err := s.Ancestor(1)
	assert.NoError(t, err)
	assert.Equal(t, triple.EntityID("inner"), a1.EntityID)

	a2, err := s.Ancestor(2)
	assert.NoError(t, err)
	assert.Equal(t, triple.EntityID("outer"), a2.EntityID)

	_, err = s.Ancestor(3)
	assert.Error(t, err)

	s.Pop()
	s.Pop()
	assert.Equal(t, 0, s.Depth())
}

func TestStackPopOnEmptyPanics(t *testing.T) {
	s := NewStack()
	assert.Panics(t, func() { s.Pop() })
}
