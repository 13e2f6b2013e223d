package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/triple"
)

func ts(tick uint64, client string) triple.Timestamp {
	return triple.Timestamp{Tick: tick, ClientID: client}
}

func TestMaterializeLastWriteWins(t *testing.T) {
	id := triple.NewEntityID("users", "1")
	triples := []triple.Triple{
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alice", Timestamp: ts(1, "c1")},
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alicia", Timestamp: ts(2, "c1")},
	}
	view := Materialize(id, triples)

	assert.Equal(t, triple.Value("Alicia"), view.Get(triple.Path{"name"}))
	assert.Equal(t, ts(2, "c1"), view.Timestamp(triple.Path{"name"}))
}

func TestPathsIsSortedForDeterministicIteration(t *testing.T) {
	id := triple.NewEntityID("users", "1")
	triples := []triple.Triple{
		{EntityID: id, Attribute: triple.Path{"zebra"}, Value: "z", Timestamp: ts(1, "c1")},
		{EntityID: id, Attribute: triple.Path{"alpha"}, Value: "a", Timestamp: ts(1, "c1")},
		{EntityID: id, Attribute: triple.Path{"mid"}, Value: "m", Timestamp: ts(1, "c1")},
	}
	view := Materialize(id, triples)

	var got []string
	for _, p := range view.Paths() {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, got)
}

func TestMaterializeIgnoresOtherEntities(t *testing.T) {
	id := triple.NewEntityID("users", "1")
	other := triple.NewEntityID("users", "2")
	triples := []triple.Triple{
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alice", Timestamp: ts(1, "c1")},
		{EntityID: other, Attribute: triple.Path{"name"}, Value: "Bob", Timestamp: ts(1, "c1")},
	}
	view := Materialize(id, triples)
	assert.Equal(t, triple.Value("Alice"), view.Get(triple.Path{"name"}))
}

func TestMaterializeSetMembers(t *testing.T) {
	id := triple.NewEntityID("posts", "1")
	triples := []triple.Triple{
		{EntityID: id, Attribute: triple.Path{"tags", "go"}, Value: true, Timestamp: ts(1, "c1")},
		{EntityID: id, Attribute: triple.Path{"tags", "db"}, Value: true, Timestamp: ts(2, "c1")},
		{EntityID: id, Attribute: triple.Path{"tags", "go"}, Value: false, Timestamp: ts(3, "c1")},
	}
	view := Materialize(id, triples)

	assert.False(t, view.HasMember(triple.Path{"tags"}, "go"))
	assert.True(t, view.HasMember(triple.Path{"tags"}, "db"))

	set, ok := view.Get(triple.Path{"tags"}).(triple.Set)
	assert.True(t, ok)
	assert.False(t, set["go"])
	assert.True(t, set["db"])
}

func TestTombstoneViaNullCollectionLeaf(t *testing.T) {
	id := triple.NewEntityID("posts", "1")
	triples := []triple.Triple{
		triple.CollectionTriple(id, "posts", ts(1, "c1")),
		triple.CollectionTriple(id, "", ts(2, "c1")),
	}
	view := Materialize(id, triples)
	assert.True(t, view.IsTombstoned())
}

func TestMissingPathReturnsNil(t *testing.T) {
	id := triple.NewEntityID("users", "1")
	view := Materialize(id, nil)
	assert.Nil(t, view.Get(triple.Path{"name"}))
}
