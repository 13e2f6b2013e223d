// Package storage defines the triple-store index API the engine
// consumes (§6.1) and ships two reference implementations — an
// in-memory store for tests and a Badger-backed store for demonstration
// — since persistence itself is out of scope for the engine (§1).
package storage

import "github.com/Adebesin-Cell/triplit/triple"

// RangeDirection is the scan direction for an ordered range query.
type RangeDirection int

const (
	Forward RangeDirection = iota
	Backward
)

// RangeOptions bounds a FindValuesInRange scan: both value bounds (Gt,
// Gte, Lt, Lte) and cursor bounds (GtCursor, ..., encoding a
// (value, entity_id) pair for seeking past a specific entity) may be
// set, per §6.1.
type RangeOptions struct {
	Direction RangeDirection

	Gt, Gte, Lt, Lte interface{} // value bounds; at most one lower and one upper set

	GtCursor, GteCursor, LtCursor, LteCursor *Cursor // cursor bounds, for order-scan + after translation (§4.1)
}

// Cursor identifies a specific (value, entity) position within an
// ordered index, used to resume a range scan past a previously-seen
// entity.
type Cursor struct {
	Value    interface{}
	EntityID triple.EntityID
}

// TimestampCompare is a comparison operator for FindByClientTimestamp.
type TimestampCompare int

const (
	CmpGT TimestampCompare = iota
	CmpGTE
	CmpLT
	CmpLTE
)

// Iterator is a stream of triples returned by a store read operation.
type Iterator interface {
	Next() bool
	Triple() (triple.Triple, error)
	Close() error
}

// WriteBatch groups the triples written by one source transaction, as
// delivered to OnWrite callbacks (§6.1).
type WriteBatch struct {
	Inserts []triple.Triple
	Deletes []triple.Triple
}

// UnsubscribeFunc detaches a previously registered write callback.
type UnsubscribeFunc func()

// Store is the triple-store index API the engine consumes (§6.1). The
// engine treats persistence, indexing primitives, and transactional
// writes as out of scope (§1); Store is the seam across which it reads.
type Store interface {
	// Write commits a batch of triples and notifies OnWrite subscribers
	// once the batch is durable.
	Write(triples []triple.Triple) error

	// FindByAVE performs an attribute-value-entity exact lookup. value
	// may be nil to scan all values for the attribute path (an "AV"
	// scan), as the delta engine's not-equal root lookup does; the
	// full-collection scan passes the collection name as the value of
	// the _collection path.
	FindByAVE(path triple.Path, value interface{}) (Iterator, error)

	// FindValuesInRange performs an ordered range scan over an
	// attribute path, honoring both value and cursor bounds.
	FindValuesInRange(path triple.Path, opts RangeOptions) (Iterator, error)

	// FindByEntity returns every triple for one entity id.
	FindByEntity(id triple.EntityID) (Iterator, error)

	// FindByEntityAsOf returns every triple for one entity id with
	// timestamp <= the frontier described by sv (a nil/empty sv means
	// "now"), supporting the before/after materialization in §4.8.
	FindByEntityAsOf(id triple.EntityID, sv triple.StateVector) (Iterator, error)

	// FindByClientTimestamp returns triples from one client compared
	// against a given timestamp, ordered by timestamp.
	FindByClientTimestamp(clientID string, cmp TimestampCompare, ts triple.Timestamp) (Iterator, error)

	// FindAllClientIDs returns every client id that has written to the
	// store, used to build a delta's before-state-vector (§4.8 step 2).
	FindAllClientIDs() (map[string]struct{}, error)

	// OnWrite registers a callback invoked once per write batch, in
	// arrival order, never concurrently for a single subscription
	// (§5). The returned func detaches the handler.
	OnWrite(cb func(WriteBatch)) UnsubscribeFunc

	Close() error
}
