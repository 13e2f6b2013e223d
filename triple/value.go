// Package triple defines the core data model of the collection query
// engine: triples, hybrid-logical timestamps, entity ids, and the
// value types a triple may carry.
package triple

import (
	"fmt"
	"strings"
	"time"
)

// Value is any value that can live at the leaf of an attribute path.
//
// Valid value types:
//   - string
//   - int64
//   - float64
//   - bool
//   - time.Time
//   - []byte
//   - nil (explicit deletion of a leaf)
//   - Set (a set-member collection, see Set)
type Value interface{}

// Set represents the members of a set-typed attribute. Membership is
// tracked per-member by separate triples (§3), but once materialized a
// leaf's value is the set of currently-present members.
type Set map[string]bool

// Helper constructors, mirroring the teacher's typed Value helpers.
func String(s string) Value  { return s }
func Int(i int64) Value      { return i }
func Float(f float64) Value  { return f }
func Bool(b bool) Value      { return b }
func Time(t time.Time) Value { return t }
func Bytes(b []byte) Value   { return b }

// EntityID identifies an entity as "<collection>#<external_id>".
type EntityID string

// NewEntityID builds an EntityID from its parts.
func NewEntityID(collection, externalID string) EntityID {
	return EntityID(collection + "#" + externalID)
}

// Collection returns the collection portion of the id.
func (e EntityID) Collection() string {
	if idx := strings.IndexByte(string(e), '#'); idx >= 0 {
		return string(e)[:idx]
	}
	return string(e)
}

// ExternalID returns the id portion after the collection prefix.
func (e EntityID) ExternalID() string {
	if idx := strings.IndexByte(string(e), '#'); idx >= 0 {
		return string(e)[idx+1:]
	}
	return ""
}

func (e EntityID) String() string { return string(e) }

// Path is an ordered sequence of attribute keys, e.g. ["author", "name"].
type Path []string

func (p Path) String() string { return strings.Join(p, ".") }

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p begins with prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// ParsePath splits a "." separated variable path, e.g. "author.name".
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// Timestamp is a hybrid-logical timestamp: a server tick paired with the
// originating client id as a tiebreaker. Compared lexicographically,
// tick first.
type Timestamp struct {
	Tick     uint64
	ClientID string
}

// Compare returns -1, 0, or 1 as t is less than, equal to, or greater
// than other.
func (t Timestamp) Compare(other Timestamp) int {
	if t.Tick < other.Tick {
		return -1
	}
	if t.Tick > other.Tick {
		return 1
	}
	return strings.Compare(t.ClientID, other.ClientID)
}

// Less reports whether t sorts strictly before other.
func (t Timestamp) Less(other Timestamp) bool { return t.Compare(other) < 0 }

// LessEq reports whether t sorts at or before other, i.e. t is within
// other's causal frontier.
func (t Timestamp) LessEq(other Timestamp) bool { return t.Compare(other) <= 0 }

func (t Timestamp) String() string {
	return fmt.Sprintf("%d@%s", t.Tick, t.ClientID)
}

// StateVector maps client id to the highest tick seen from that client:
// "everything <= tick observed from this client". A zero-value
// StateVector represents the unbounded ("now") frontier.
type StateVector map[string]uint64

// Includes reports whether ts falls within the causal frontier described
// by sv. A nil or empty StateVector includes everything (the "now" view).
func (sv StateVector) Includes(ts Timestamp) bool {
	if len(sv) == 0 {
		return true
	}
	bound, ok := sv[ts.ClientID]
	if !ok {
		return false
	}
	return ts.Tick <= bound
}

// Clone returns an independent copy of sv.
func (sv StateVector) Clone() StateVector {
	if sv == nil {
		return nil
	}
	out := make(StateVector, len(sv))
	for k, v := range sv {
		out[k] = v
	}
	return out
}

// Triple is the fundamental unit of data: an immutable fact about one
// entity's attribute, asserted (or retracted) at a given timestamp.
type Triple struct {
	EntityID  EntityID
	Attribute Path
	Value     Value
	Timestamp Timestamp
	Retracted bool
}

func (t Triple) String() string {
	return fmt.Sprintf("(%s %s %v %s)", t.EntityID, t.Attribute, t.Value, t.Timestamp)
}

// IsCollectionLeaf reports whether this triple writes the reserved
// "_collection" leaf, whose null value tombstones an entity (§3).
func (t Triple) IsCollectionLeaf() bool {
	return len(t.Attribute) == 1 && t.Attribute[0] == "_collection"
}

// CollectionTriple builds the reserved "_collection" triple for an
// entity; value nil tombstones the entity.
func CollectionTriple(id EntityID, collection string, ts Timestamp) Triple {
	var v Value
	if collection != "" {
		v = collection
	}
	return Triple{EntityID: id, Attribute: Path{"_collection"}, Value: v, Timestamp: ts}
}
