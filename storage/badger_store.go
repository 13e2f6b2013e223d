package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/Adebesin-Cell/triplit/triple"
)

// key space prefixes, grounded on the teacher's per-index key layout in
// badger_store.go (one logical index per key prefix, fan-out write on
// every Assert).
const (
	prefixEntity byte = 'E' // E|entity_id -> encoded triple (one key per write, sequenced)
	prefixAttr   byte = 'A' // A|path|ordered-value|entity_id -> encoded triple
	prefixClient byte = 'C' // C|client_id|tick(8)|entity_id -> encoded triple
)

// BadgerStore implements Store using BadgerDB, grounded on
// datalog/storage/badger_store.go: writes fan out to every secondary
// index key in one transaction, reads are plain prefix/range scans.
type BadgerStore struct {
	db  *badger.DB
	seq uint64 // monotonically increasing write sequence, to keep E-index keys unique per write

	mu     sync.RWMutex
	cbList []func(WriteBatch)
}

// NewBadgerStore opens (creating if absent) a Badger-backed Store at
// path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

// Write commits a batch of triples to every secondary index and fans
// the batch out to write callbacks after the transaction commits,
// mirroring §6.1's "WriteBatch groups inserts and deletes per source
// transaction" and §5's "concurrent writes do not interleave mid-fetch"
// (Badger's own transaction isolation gives us that for free).
func (s *BadgerStore) Write(triples []triple.Triple) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, t := range triples {
			if err := s.writeTriple(txn, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.RLock()
	cbs := append([]func(WriteBatch){}, s.cbList...)
	s.mu.RUnlock()
	batch := WriteBatch{Inserts: triples}
	for _, cb := range cbs {
		if cb != nil {
			cb(batch)
		}
	}
	return nil
}

func (s *BadgerStore) writeTriple(txn *badger.Txn, t triple.Triple) error {
	s.seq++
	seqBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBuf, s.seq)
	payload := EncodeTriple(t)

	entityKey := append([]byte{prefixEntity}, []byte(t.EntityID)...)
	entityKey = append(entityKey, seqBuf...)
	if err := txn.Set(entityKey, payload); err != nil {
		return fmt.Errorf("write entity index: %w", err)
	}

	attrKey := append([]byte{prefixAttr}, []byte(t.Attribute.String())...)
	attrKey = append(attrKey, 0x00)
	attrKey = append(attrKey, triple.EncodeOrdered(t.Value)...)
	attrKey = append(attrKey, 0x00)
	attrKey = append(attrKey, []byte(t.EntityID)...)
	if err := txn.Set(attrKey, payload); err != nil {
		return fmt.Errorf("write attribute index: %w", err)
	}

	clientKey := append([]byte{prefixClient}, []byte(t.Timestamp.ClientID)...)
	clientKey = append(clientKey, 0x00)
	tickBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(tickBuf, t.Timestamp.Tick)
	clientKey = append(clientKey, tickBuf...)
	clientKey = append(clientKey, []byte(t.EntityID)...)
	if err := txn.Set(clientKey, payload); err != nil {
		return fmt.Errorf("write client index: %w", err)
	}
	return nil
}

func (s *BadgerStore) FindByAVE(path triple.Path, value interface{}) (Iterator, error) {
	prefix := append([]byte{prefixAttr}, []byte(path.String())...)
	prefix = append(prefix, 0x00)
	if value != nil {
		prefix = append(prefix, triple.EncodeOrdered(value)...)
	}
	return s.scanPrefix(prefix, func(t triple.Triple) bool {
		return value == nil || triple.ValuesEqual(t.Value, value) || setHasMember(t, value)
	})
}

func (s *BadgerStore) FindValuesInRange(path triple.Path, opts RangeOptions) (Iterator, error) {
	prefix := append([]byte{prefixAttr}, []byte(path.String())...)
	prefix = append(prefix, 0x00)
	it, err := s.scanPrefix(prefix, func(t triple.Triple) bool { return inRange(t, opts) })
	if err != nil {
		return nil, err
	}
	triples, err := drainIterator(it)
	if err != nil {
		return nil, err
	}
	sortByValueThenEntity(triples, opts.Direction)
	return newSliceTripleIterator(triples), nil
}

func (s *BadgerStore) FindByEntity(id triple.EntityID) (Iterator, error) {
	return s.FindByEntityAsOf(id, nil)
}

func (s *BadgerStore) FindByEntityAsOf(id triple.EntityID, sv triple.StateVector) (Iterator, error) {
	prefix := append([]byte{prefixEntity}, []byte(id)...)
	return s.scanPrefix(prefix, func(t triple.Triple) bool {
		return t.EntityID == id && (len(sv) == 0 || sv.Includes(t.Timestamp))
	})
}

func (s *BadgerStore) FindByClientTimestamp(clientID string, cmp TimestampCompare, ts triple.Timestamp) (Iterator, error) {
	prefix := append([]byte{prefixClient}, []byte(clientID)...)
	prefix = append(prefix, 0x00)
	it, err := s.scanPrefix(prefix, func(t triple.Triple) bool { return matchesCompare(t.Timestamp, cmp, ts) })
	if err != nil {
		return nil, err
	}
	triples, err := drainIterator(it)
	if err != nil {
		return nil, err
	}
	return newSliceTripleIterator(triples), nil
}

func (s *BadgerStore) FindAllClientIDs() (map[string]struct{}, error) {
	out := make(map[string]struct{})
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte{prefixClient}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				t, err := DecodeTriple(val)
				if err != nil {
					return err
				}
				out[t.Timestamp.ClientID] = struct{}{}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) scanPrefix(prefix []byte, keep func(triple.Triple) bool) (Iterator, error) {
	var out []triple.Triple
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				t, err := DecodeTriple(val)
				if err != nil {
					return err
				}
				if keep == nil || keep(t) {
					out = append(out, t)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSliceTripleIterator(out), nil
}

func drainIterator(it Iterator) ([]triple.Triple, error) {
	defer it.Close()
	var out []triple.Triple
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func sortByValueThenEntity(triples []triple.Triple, dir RangeDirection) {
	bubbleSortStable(triples, func(a, b triple.Triple) bool {
		c := triple.CompareValues(a.Value, b.Value)
		if c != 0 {
			if dir == Backward {
				return c > 0
			}
			return c < 0
		}
		return a.EntityID < b.EntityID
	})
}

// bubbleSortStable is a tiny insertion sort; range scans are already
// nearly ordered by Badger's own key order, so this is cheap and keeps
// this file free of a second sort.Interface adapter.
func bubbleSortStable(items []triple.Triple, less func(a, b triple.Triple) bool) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func (s *BadgerStore) OnWrite(cb func(WriteBatch)) UnsubscribeFunc {
	s.mu.Lock()
	s.cbList = append(s.cbList, cb)
	idx := len(s.cbList) - 1
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.cbList) {
			s.cbList[idx] = nil
		}
	}
}
