package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adebesin-Cell/triplit/triple"
)

func drainIteratorT(t *testing.T, it Iterator) []triple.Triple {
	t.Helper()
	defer it.Close()
	var out []triple.Triple
	for it.Next() {
		tr, err := it.Triple()
		assert.NoError(t, err)
		out = append(out, tr)
	}
	return out
}

func TestMemStoreFindByAVEExactValue(t *testing.T) {
	s := NewMemStore()
	u1 := triple.NewEntityID("users", "1")
	u2 := triple.NewEntityID("users", "2")
	ts := triple.Timestamp{Tick: 1, ClientID: "c1"}
	assert.NoError(t, s.Write([]triple.Triple{
		{EntityID: u1, Attribute: triple.Path{"city"}, Value: "NYC", Timestamp: ts},
		{EntityID: u2, Attribute: triple.Path{"city"}, Value: "LA", Timestamp: ts},
	}))

	it, err := s.FindByAVE(triple.Path{"city"}, "NYC")
	out := drainIteratorT(t, mustIter(t, it, err))
	assert.Len(t, out, 1)
	assert.Equal(t, u1, out[0].EntityID)
}

func TestMemStoreFindByAVENilScansAllValues(t *testing.T) {
	s := NewMemStore()
	u1 := triple.NewEntityID("users", "1")
	u2 := triple.NewEntityID("users", "2")
	ts := triple.Timestamp{Tick: 1, ClientID: "c1"}
	assert.NoError(t, s.Write([]triple.Triple{
		{EntityID: u1, Attribute: triple.Path{"city"}, Value: "NYC", Timestamp: ts},
		{EntityID: u2, Attribute: triple.Path{"city"}, Value: "LA", Timestamp: ts},
	}))
	it, err := s.FindByAVE(triple.Path{"city"}, nil)
	out := drainIteratorT(t, mustIter(t, it, err))
	assert.Len(t, out, 2)
}

func TestMemStoreFindValuesInRangeForwardAndBackward(t *testing.T) {
	s := NewMemStore()
	ts := triple.Timestamp{Tick: 1, ClientID: "c1"}
	for i, name := range []string{"a", "b", "c"} {
		id := triple.NewEntityID("posts", string(rune('1'+i)))
		assert.NoError(t, s.Write([]triple.Triple{
			{EntityID: id, Attribute: triple.Path{"score"}, Value: int64(i), Timestamp: ts},
		}))
		_ = name
	}

	fwdIt, fwdErr := s.FindValuesInRange(triple.Path{"score"}, RangeOptions{Direction: Forward})
	fwd := drainIteratorT(t, mustIter(t, fwdIt, fwdErr))
	assert.Equal(t, []interface{}{int64(0), int64(1), int64(2)}, valuesOf(fwd))

	bwdIt, bwdErr := s.FindValuesInRange(triple.Path{"score"}, RangeOptions{Direction: Backward})
	bwd := drainIteratorT(t, mustIter(t, bwdIt, bwdErr))
	assert.Equal(t, []interface{}{int64(2), int64(1), int64(0)}, valuesOf(bwd))
}

func TestMemStoreFindValuesInRangeBounds(t *testing.T) {
	s := NewMemStore()
	ts := triple.Timestamp{Tick: 1, ClientID: "c1"}
	for i := 0; i < 5; i++ {
		id := triple.NewEntityID("posts", string(rune('1'+i)))
		assert.NoError(t, s.Write([]triple.Triple{
			{EntityID: id, Attribute: triple.Path{"score"}, Value: int64(i), Timestamp: ts},
		}))
	}
	rangeIt, rangeErr := s.FindValuesInRange(triple.Path{"score"}, RangeOptions{
		Direction: Forward,
		Gt:        int64(1),
		Lte:       int64(3),
	})
	out := drainIteratorT(t, mustIter(t, rangeIt, rangeErr))
	assert.Equal(t, []interface{}{int64(2), int64(3)}, valuesOf(out))
}

func TestMemStoreFindByEntityAsOfCapsWrites(t *testing.T) {
	s := NewMemStore()
	id := triple.NewEntityID("posts", "1")
	assert.NoError(t, s.Write([]triple.Triple{
		{EntityID: id, Attribute: triple.Path{"title"}, Value: "v1", Timestamp: triple.Timestamp{Tick: 1, ClientID: "c1"}},
		{EntityID: id, Attribute: triple.Path{"title"}, Value: "v2", Timestamp: triple.Timestamp{Tick: 2, ClientID: "c1"}},
	}))
	asOfIt, asOfErr := s.FindByEntityAsOf(id, triple.StateVector{"c1": 1})
	out := drainIteratorT(t, mustIter(t, asOfIt, asOfErr))
	assert.Len(t, out, 1)
	assert.Equal(t, "v1", out[0].Value)
}

func TestMemStoreOnWriteNotifiesAndUnsubscribes(t *testing.T) {
	s := NewMemStore()
	var got []WriteBatch
	unsub := s.OnWrite(func(b WriteBatch) { got = append(got, b) })

	id := triple.NewEntityID("users", "1")
	assert.NoError(t, s.Write([]triple.Triple{
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alice", Timestamp: triple.Timestamp{Tick: 1, ClientID: "c1"}},
	}))
	assert.Len(t, got, 1)

	unsub()
	assert.NoError(t, s.Write([]triple.Triple{
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Bob", Timestamp: triple.Timestamp{Tick: 2, ClientID: "c1"}},
	}))
	assert.Len(t, got, 1, "callback must not fire after unsubscribe")
}

func TestMemStoreFindAllClientIDs(t *testing.T) {
	s := NewMemStore()
	id := triple.NewEntityID("users", "1")
	assert.NoError(t, s.Write([]triple.Triple{
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alice", Timestamp: triple.Timestamp{Tick: 1, ClientID: "c1"}},
		{EntityID: id, Attribute: triple.Path{"name"}, Value: "Alice2", Timestamp: triple.Timestamp{Tick: 2, ClientID: "c2"}},
	}))
	ids, err := s.FindAllClientIDs()
	assert.NoError(t, err)
	assert.Contains(t, ids, "c1")
	assert.Contains(t, ids, "c2")
}

func mustIter(t *testing.T, it Iterator, err error) Iterator {
	t.Helper()
	assert.NoError(t, err)
	return it
}

func valuesOf(triples []triple.Triple) []interface{} {
	out := make([]interface{}, len(triples))
	for i, tr := range triples {
		out[i] = tr.Value
	}
	return out
}
