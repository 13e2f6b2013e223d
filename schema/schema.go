// Package schema describes the read-only schema service the engine
// consumes (§6.2). Schema definition, type coercion rules, and
// permissions are out of scope for this module; this package only
// specifies the contract and ships a minimal static implementation so
// the engine can be exercised end to end.
package schema

import (
	"fmt"

	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/triple"
)

// DataType describes the declared type of an attribute in the schema.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
	TypeSet     DataType = "set"
	TypeRecord  DataType = "record"
	TypeQuery   DataType = "query" // a declared relation/sub-query attribute
	TypeUnknown DataType = "unknown"
)

// Cardinality describes how many related entities a relation attribute
// may resolve to.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Attribute describes one schema-declared attribute.
type Attribute struct {
	Path        triple.Path
	Type        DataType
	Cardinality Cardinality   // only meaningful when Type == TypeQuery
	Relation    *RelationSpec // only set when Type == TypeQuery
}

// RelationSpec captures enough of a declared relation to build the
// default sub-query the engine uses for `include` shorthand (§3) and for
// `exists-relation` sugar (§4.4).
type RelationSpec struct {
	TargetCollection string
	// Path on the target collection's entities that must equal the
	// local entity's LocalPath, e.g. a "posts" relation keyed by
	// "author_id" pointing back at "_id".
	TargetPath triple.Path
	LocalPath  triple.Path

	// Op is the comparison the relation's join clause uses:
	// "target.TargetPath Op local.LocalPath". The zero value means
	// query.OpEQ, the ordinary foreign-key case; a non-equality join is
	// rare but the delta engine's root permutation (§4.8) inverts
	// whatever Op is declared via query.Op.Reverse.
	Op query.Op
}

// EffectiveOp returns r.Op, defaulting to query.OpEQ when unset.
func (r *RelationSpec) EffectiveOp() query.Op {
	if r.Op == "" {
		return query.OpEQ
	}
	return r.Op
}

// Rules is an opaque permission/validation descriptor for a collection;
// the engine never interprets rule contents, only passes them through
// via Service.CollectionRules for callers that apply them out of band
// (permissions themselves are out of scope, §1).
type Rules struct {
	Raw interface{}
}

// Role describes a session's role-provided variables (§4.5's "role"
// scope).
type Role struct {
	Name string
	Vars map[string]triple.Value
}

// InvalidSchemaItemError is returned when a schema lookup finds an
// attribute whose declared DataType isn't one this implementation
// knows how to coerce (§7).
type InvalidSchemaItemError struct {
	Collection string
	Path       triple.Path
	Kind       string
}

func (e *InvalidSchemaItemError) Error() string {
	return fmt.Sprintf("invalid schema item on %s.%s: unknown kind %q", e.Collection, e.Path, e.Kind)
}

// Service is the read-only schema contract the engine consumes.
type Service interface {
	// Attribute looks up a declared attribute by collection and path.
	// Returns nil, false when the path is not declared.
	Attribute(collection string, path triple.Path) (*Attribute, bool)

	// Relations returns every relation-typed (TypeQuery) attribute
	// declared on collection, used by the delta engine's root
	// permutation (§4.8) to find every path a write in some other
	// collection might reach a root entity through.
	Relations(collection string) []Attribute

	// CollectionRules returns the opaque rules for a collection, if any.
	CollectionRules(collection string) (*Rules, bool)

	// ConvertToNative coerces a stored value to the type schema declares
	// for path, for presentation to callers (§6.2).
	ConvertToNative(collection string, path triple.Path, v triple.Value) (interface{}, error)

	// CanCacheQuery reports whether a prepared query is eligible for the
	// variable-aware cache (§6.3), per schema-declared cacheability.
	CanCacheQuery(collection string) bool

	// Roles returns the session roles in effect, each carrying its own
	// role-scoped variables (§4.5).
	Roles(sessionID string) []Role
}
