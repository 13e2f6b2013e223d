// Package entity implements the Entity Materializer (C3): folding a
// stream of triples about one id into a timestamped entity view, with
// last-write-wins per leaf (§3).
package entity

import (
	"sort"

	"github.com/Adebesin-Cell/triplit/triple"
)

// Leaf pairs a materialized value with the timestamp of the triple that
// produced it, so callers (e.g. the delta engine, §4.8) can tell which
// raw triples back a given view.
type Leaf struct {
	Value     triple.Value
	Timestamp triple.Timestamp
}

// View is a nested attribute-path -> Leaf mapping, folded from triples
// about one entity (§3's "Entity view").
type View struct {
	ID         triple.EntityID
	Collection string
	leaves     map[string]Leaf // keyed by Path.String()
	setMembers map[string]map[string]bool
}

// NewView returns an empty view for id.
func NewView(id triple.EntityID) *View {
	return &View{
		ID:         id,
		leaves:     make(map[string]Leaf),
		setMembers: make(map[string]map[string]bool),
	}
}

// Materialize folds triples (assumed to all share EntityID, in any
// order) into a View using last-write-wins by Timestamp (§3 Invariant
// 1). Set-member triples accumulate into a membership map instead of
// overwriting the leaf outright.
func Materialize(id triple.EntityID, triples []triple.Triple) *View {
	v := NewView(id)
	for _, t := range triples {
		v.apply(t)
	}
	return v
}

func (v *View) apply(t triple.Triple) {
	if t.EntityID != v.ID {
		return
	}
	if t.IsCollectionLeaf() {
		v.applyLeaf(t)
		if s, ok := t.Value.(string); ok {
			v.Collection = s
		} else if t.Value == nil {
			v.Collection = ""
		}
		return
	}

	if isSetMemberTriple(t) {
		v.applySetMember(t)
		return
	}

	v.applyLeaf(t)
}

// isSetMemberTriple recognizes the §3 convention that a set-member
// triple carries the member in the attribute path and a boolean
// presence value.
func isSetMemberTriple(t triple.Triple) bool {
	_, ok := t.Value.(bool)
	return ok && len(t.Attribute) >= 2
}

func (v *View) applyLeaf(t triple.Triple) {
	key := t.Attribute.String()
	existing, ok := v.leaves[key]
	if !ok || t.Timestamp.Compare(existing.Timestamp) >= 0 {
		v.leaves[key] = Leaf{Value: t.Value, Timestamp: t.Timestamp}
	}
}

func (v *View) applySetMember(t triple.Triple) {
	setPath := t.Attribute[:len(t.Attribute)-1]
	member := t.Attribute[len(t.Attribute)-1]
	key := setPath.String()

	members, ok := v.setMembers[key]
	if !ok {
		members = make(map[string]bool)
		v.setMembers[key] = members
	}
	present, _ := t.Value.(bool)
	members[member] = present

	// Keep a synthetic leaf timestamp so cross-attribute timestamp
	// comparisons (e.g. "has this entity changed since SV") still see
	// set mutations; the value itself is recomputed from membership.
	existing := v.leaves[key]
	if t.Timestamp.Compare(existing.Timestamp) >= 0 {
		v.leaves[key] = Leaf{Value: v.setValue(key), Timestamp: t.Timestamp}
	}
}

func (v *View) setValue(key string) triple.Set {
	out := make(triple.Set)
	for member, present := range v.setMembers[key] {
		if present {
			out[member] = true
		}
	}
	return out
}

// Get returns the materialized leaf value at path, or nil if absent
// (§4.7: "missing values sort as MIN").
func (v *View) Get(path triple.Path) triple.Value {
	key := path.String()
	if _, ok := v.setMembers[key]; ok {
		return v.setValue(key)
	}
	leaf, ok := v.leaves[key]
	if !ok {
		return nil
	}
	return leaf.Value
}

// HasMember reports whether member is present in the set at path.
func (v *View) HasMember(path triple.Path, member string) bool {
	members, ok := v.setMembers[path.String()]
	if !ok {
		return false
	}
	return members[member]
}

// Timestamp returns the winning timestamp for path, the zero value if
// the path was never written.
func (v *View) Timestamp(path triple.Path) triple.Timestamp {
	return v.leaves[path.String()].Timestamp
}

// IsTombstoned reports whether this entity's "_collection" leaf won
// with a null value (§3, §4.4's "Tombstone rule").
func (v *View) IsTombstoned() bool {
	leaf, ok := v.leaves["_collection"]
	return ok && leaf.Value == nil
}

// Project returns a new View holding only the leaves and set members at
// paths (§3 `select`); id and collection are carried through
// regardless.
func (v *View) Project(paths []triple.Path) *View {
	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p.String()] = true
	}
	return v.filtered(func(key string) bool { return keep[key] })
}

// ProjectExcluding returns a new View holding every leaf and set member
// except those at excluded, the default "all non-relation attributes"
// selection (§3 `select`) once a schema names which paths are
// relations.
func (v *View) ProjectExcluding(excluded []triple.Path) *View {
	skip := make(map[string]bool, len(excluded))
	for _, p := range excluded {
		skip[p.String()] = true
	}
	return v.filtered(func(key string) bool { return !skip[key] })
}

func (v *View) filtered(keep func(key string) bool) *View {
	out := NewView(v.ID)
	out.Collection = v.Collection
	for key, leaf := range v.leaves {
		if key == "_collection" || keep(key) {
			out.leaves[key] = leaf
		}
	}
	for key, members := range v.setMembers {
		if keep(key) {
			out.setMembers[key] = members
		}
	}
	return out
}

// Paths returns every attribute path with a materialized leaf, sorted
// for deterministic iteration (used by §4.6's ancestor-frame
// construction, whose frames hold exactly these paths; a
// schema-declared leaf that was never written is not listed).
func (v *View) Paths() []triple.Path {
	keys := make([]string, 0, len(v.leaves))
	for k := range v.leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]triple.Path, len(keys))
	for i, k := range keys {
		out[i] = triple.ParsePath(k)
	}
	return out
}
