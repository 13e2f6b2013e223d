package storage

import (
	"sort"
	"sync"

	"github.com/Adebesin-Cell/triplit/triple"
)

// MemStore is an in-memory, mutex-guarded Store used by the test suite
// and as a lightweight reference implementation of the index API
// (§6.1), grounded on the teacher's in-memory fixture conventions
// (storage/testdata_builder.go) but holding real queryable indexes
// rather than pre-serialized benchmark data.
type MemStore struct {
	mu sync.RWMutex

	// byEntity[id] is append-only: every triple ever written about id,
	// in write order. Folding it (last-write-wins by timestamp) is the
	// Entity Materializer's job (C3), not the store's.
	byEntity map[triple.EntityID][]triple.Triple

	// byAttr[path.String()] is every triple ever written for that
	// attribute path, across all entities, in write order. This backs
	// both FindByAVE and FindValuesInRange.
	byAttr map[string][]triple.Triple

	clients map[string]struct{}

	callbacks []func(WriteBatch)
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		byEntity: make(map[triple.EntityID][]triple.Triple),
		byAttr:   make(map[string][]triple.Triple),
		clients:  make(map[string]struct{}),
	}
}

// Write appends a batch of triples, fans them out to write callbacks
// (§6.1 OnWrite), and updates the secondary indexes.
func (m *MemStore) Write(triples []triple.Triple) error {
	m.mu.Lock()
	for _, t := range triples {
		m.byEntity[t.EntityID] = append(m.byEntity[t.EntityID], t)
		key := t.Attribute.String()
		m.byAttr[key] = append(m.byAttr[key], t)
		m.clients[t.Timestamp.ClientID] = struct{}{}
	}
	cbs := append([]func(WriteBatch){}, m.callbacks...)
	m.mu.Unlock()

	batch := WriteBatch{Inserts: triples}
	for _, cb := range cbs {
		if cb != nil {
			cb(batch)
		}
	}
	return nil
}

func (m *MemStore) FindByAVE(path triple.Path, value interface{}) (Iterator, error) {
	m.mu.RLock()
	all := append([]triple.Triple(nil), m.byAttr[path.String()]...)
	m.mu.RUnlock()

	var filtered []triple.Triple
	for _, t := range all {
		if value == nil || triple.ValuesEqual(t.Value, value) || setHasMember(t, value) {
			filtered = append(filtered, t)
		}
	}
	return newSliceTripleIterator(filtered), nil
}

// setHasMember reports whether t represents a set-member presence
// triple whose member key equals value (§3: "a set member triple uses
// the value in the attribute path with a boolean presence value").
func setHasMember(t triple.Triple, value interface{}) bool {
	if len(t.Attribute) == 0 {
		return false
	}
	last := t.Attribute[len(t.Attribute)-1]
	if s, ok := value.(string); ok {
		return last == s
	}
	return false
}

func (m *MemStore) FindValuesInRange(path triple.Path, opts RangeOptions) (Iterator, error) {
	m.mu.RLock()
	all := append([]triple.Triple(nil), m.byAttr[path.String()]...)
	m.mu.RUnlock()

	var filtered []triple.Triple
	for _, t := range all {
		if inRange(t, opts) {
			filtered = append(filtered, t)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		c := triple.CompareValues(filtered[i].Value, filtered[j].Value)
		if c != 0 {
			if opts.Direction == Backward {
				return c > 0
			}
			return c < 0
		}
		return filtered[i].EntityID < filtered[j].EntityID
	})
	return newSliceTripleIterator(filtered), nil
}

func inRange(t triple.Triple, opts RangeOptions) bool {
	v := t.Value
	if opts.Gt != nil && triple.CompareValues(v, opts.Gt) <= 0 {
		return false
	}
	if opts.Gte != nil && triple.CompareValues(v, opts.Gte) < 0 {
		return false
	}
	if opts.Lt != nil && triple.CompareValues(v, opts.Lt) >= 0 {
		return false
	}
	if opts.Lte != nil && triple.CompareValues(v, opts.Lte) > 0 {
		return false
	}
	if c := opts.GtCursor; c != nil {
		if cmpCursor(v, t.EntityID, c) <= 0 {
			return false
		}
	}
	if c := opts.GteCursor; c != nil {
		if cmpCursor(v, t.EntityID, c) < 0 {
			return false
		}
	}
	if c := opts.LtCursor; c != nil {
		if cmpCursor(v, t.EntityID, c) >= 0 {
			return false
		}
	}
	if c := opts.LteCursor; c != nil {
		if cmpCursor(v, t.EntityID, c) > 0 {
			return false
		}
	}
	return true
}

func cmpCursor(v interface{}, id triple.EntityID, c *Cursor) int {
	if d := triple.CompareValues(v, c.Value); d != 0 {
		return d
	}
	if id < c.EntityID {
		return -1
	}
	if id > c.EntityID {
		return 1
	}
	return 0
}

func (m *MemStore) FindByEntity(id triple.EntityID) (Iterator, error) {
	return m.FindByEntityAsOf(id, nil)
}

func (m *MemStore) FindByEntityAsOf(id triple.EntityID, sv triple.StateVector) (Iterator, error) {
	m.mu.RLock()
	all := append([]triple.Triple(nil), m.byEntity[id]...)
	m.mu.RUnlock()

	if len(sv) == 0 {
		return newSliceTripleIterator(all), nil
	}
	var filtered []triple.Triple
	for _, t := range all {
		if sv.Includes(t.Timestamp) {
			filtered = append(filtered, t)
		}
	}
	return newSliceTripleIterator(filtered), nil
}

func (m *MemStore) FindByClientTimestamp(clientID string, cmp TimestampCompare, ts triple.Timestamp) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []triple.Triple
	for _, triples := range m.byEntity {
		for _, t := range triples {
			if t.Timestamp.ClientID != clientID {
				continue
			}
			if matchesCompare(t.Timestamp, cmp, ts) {
				out = append(out, t)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Less(out[j].Timestamp) })
	return newSliceTripleIterator(out), nil
}

func matchesCompare(ts Timestamp, cmp TimestampCompare, bound Timestamp) bool {
	c := ts.Compare(bound)
	switch cmp {
	case CmpGT:
		return c > 0
	case CmpGTE:
		return c >= 0
	case CmpLT:
		return c < 0
	case CmpLTE:
		return c <= 0
	default:
		return false
	}
}

func (m *MemStore) FindAllClientIDs() (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.clients))
	for c := range m.clients {
		out[c] = struct{}{}
	}
	return out, nil
}

func (m *MemStore) OnWrite(cb func(WriteBatch)) UnsubscribeFunc {
	m.mu.Lock()
	m.callbacks = append(m.callbacks, cb)
	idx := len(m.callbacks) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.callbacks) {
			m.callbacks[idx] = nil
		}
	}
}

func (m *MemStore) Close() error { return nil }

// Timestamp is a local alias avoiding a stutter in matchesCompare's
// signature above.
type Timestamp = triple.Timestamp

type sliceTripleIterator struct {
	items []triple.Triple
	pos   int
}

func newSliceTripleIterator(items []triple.Triple) *sliceTripleIterator {
	return &sliceTripleIterator{items: items, pos: -1}
}

func (s *sliceTripleIterator) Next() bool {
	s.pos++
	return s.pos < len(s.items)
}

func (s *sliceTripleIterator) Triple() (triple.Triple, error) {
	return s.items[s.pos], nil
}

func (s *sliceTripleIterator) Close() error { return nil }
