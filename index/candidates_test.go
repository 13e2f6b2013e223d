package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/stream"
	"github.com/Adebesin-Cell/triplit/triple"
)

func seedStore(t *testing.T) *storage.MemStore {
	t.Helper()
	s := storage.NewMemStore()
	ts := triple.Timestamp{Tick: 1, ClientID: "c1"}
	u1 := triple.NewEntityID("users", "1")
	u2 := triple.NewEntityID("users", "2")
	err := s.Write([]triple.Triple{
		triple.CollectionTriple(u1, "users", ts),
		{EntityID: u1, Attribute: triple.Path{"city"}, Value: "NYC", Timestamp: ts},
		{EntityID: u1, Attribute: triple.Path{"tags", "vip"}, Value: true, Timestamp: ts},
		{EntityID: u1, Attribute: triple.Path{"tags", "beta"}, Value: true, Timestamp: ts},
		triple.CollectionTriple(u2, "users", ts),
		{EntityID: u2, Attribute: triple.Path{"city"}, Value: "LA", Timestamp: ts},
	})
	assert.NoError(t, err)
	return s
}

func TestCandidatesIDPoint(t *testing.T) {
	s := seedStore(t)
	plan := &Plan{Kind: IDPoint, EntityID: triple.NewEntityID("users", "1")}
	it, err := Candidates(s, plan)
	assert.NoError(t, err)
	out, err := stream.Drain(it)
	assert.NoError(t, err)
	assert.Equal(t, []triple.EntityID{triple.NewEntityID("users", "1")}, out)
}

func TestCandidatesEqualityDeduplicatesSetMembers(t *testing.T) {
	s := seedStore(t)
	plan := &Plan{Kind: Equality, Path: triple.Path{"tags", "vip"}, EqualValue: true}
	it, err := Candidates(s, plan)
	assert.NoError(t, err)
	out, err := stream.Drain(it)
	assert.NoError(t, err)
	assert.Equal(t, []triple.EntityID{triple.NewEntityID("users", "1")}, out)
}

func TestCandidatesFullScan(t *testing.T) {
	s := seedStore(t)
	plan := selectFullScan(&query.Query{Collection: "users"})
	it, err := Candidates(s, plan)
	assert.NoError(t, err)
	out, err := stream.Drain(it)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []triple.EntityID{
		triple.NewEntityID("users", "1"),
		triple.NewEntityID("users", "2"),
	}, out)
}
