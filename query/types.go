// Package query defines the immutable query value (§3) consumed by the
// engine: filters, ordering, pagination cursor, projection, includes and
// scoped variables.
package query

import (
	"fmt"

	"github.com/Adebesin-Cell/triplit/triple"
)

// Op is a filter statement operator (§3).
type Op string

const (
	OpEQ        Op = "="
	OpNE        Op = "!="
	OpLT        Op = "<"
	OpLTE       Op = "<="
	OpGT        Op = ">"
	OpGTE       Op = ">="
	OpIn        Op = "in"
	OpNotIn     Op = "nin"
	OpHas       Op = "has"
	OpNotHas    Op = "!has"
	OpLike      Op = "like"
	OpNotLike   Op = "nlike"
	OpIsDefined Op = "isDefined"
)

// reverseTable is the inverse-operator map used by root permutation
// (§4.8); the reversal of a comparison is total only over these ten
// operators.
var reverseTable = map[Op]Op{
	OpEQ:     OpEQ,
	OpNE:     OpNE,
	OpLT:     OpGT,
	OpGT:     OpLT,
	OpLTE:    OpGTE,
	OpGTE:    OpLTE,
	OpIn:     OpHas,
	OpHas:    OpIn,
	OpNotIn:  OpNotHas,
	OpNotHas: OpNotIn,
}

// Reverse returns the operator whose meaning flips sides, e.g. `<`
// becomes `>`. ok is false if op has no defined inverse (§4.8,
// ReverseOperatorError).
func (op Op) Reverse() (Op, bool) {
	r, ok := reverseTable[op]
	return r, ok
}

// Node is a filter tree node: statement / and-group / or-group /
// subquery-exists / exists-relation / boolean literal (§3).
type Node interface {
	node()
	String() string
}

// Statement is a single (path, op, value) filter clause.
type Statement struct {
	Path  triple.Path
	Op    Op
	Value interface{} // a literal, or a Var reference resolved by vars.Resolver
}

func (Statement) node() {}
func (s Statement) String() string {
	return fmt.Sprintf("(%s %s %v)", s.Path, s.Op, s.Value)
}

// Var is a textual variable reference, "$<scope>.<path>" (§4.5).
type Var struct {
	Raw string
}

func (v Var) String() string { return v.Raw }

// And is a conjunction of child nodes; short-circuits on first failure.
type And struct{ Children []Node }

func (And) node()          {}
func (a And) String() string { return fmt.Sprintf("and%v", a.Children) }

// Or is a disjunction of child nodes; short-circuits on first success.
type Or struct{ Children []Node }

func (Or) node()            {}
func (o Or) String() string { return fmt.Sprintf("or%v", o.Children) }

// SubqueryExists is true iff the inner query (run with cardinality one)
// yields a result (§4.4).
type SubqueryExists struct {
	Query *Query
}

func (SubqueryExists) node() {}
func (s SubqueryExists) String() string {
	return fmt.Sprintf("exists(%s)", s.Query.Collection)
}

// ExistsRelation is syntactic sugar over SubqueryExists for a
// schema-declared relation attribute (§4.4).
type ExistsRelation struct {
	Relation triple.Path
	Where    []Node // additional filters applied inside the relation's sub-query
}

func (ExistsRelation) node() {}
func (e ExistsRelation) String() string {
	return fmt.Sprintf("exists-relation(%s)", e.Relation)
}

// BoolLiteral is a constant true/false filter node.
type BoolLiteral bool

func (BoolLiteral) node()            {}
func (b BoolLiteral) String() string { return fmt.Sprintf("%v", bool(b)) }

// Direction is an order-by direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// OrderTerm is one (path, direction) entry in a query's order list.
type OrderTerm struct {
	Path      triple.Path
	Direction Direction
}

// Cursor is an `after` pagination cursor: the order-key values and
// entity id of the last-seen entity, plus whether that entity itself is
// included (§3 Invariant 4).
type Cursor struct {
	Values    []interface{} // one value per OrderTerm, in order
	EntityID  triple.EntityID
	Inclusive bool
}

// Cardinality mirrors schema.Cardinality without importing schema, to
// avoid a dependency cycle (schema imports query for RelationSpec.Op,
// so query must stay independent of schema).
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Include describes one related-entity inclusion (§3 `include`).
type Include struct {
	Alias       string
	Query       *Query // nil when Shorthand is true: use schema's default sub-query
	Cardinality Cardinality
	Shorthand   bool // `true` in the wire format: use schema default
}

// Query is the engine's immutable query value (§3). Queries are created
// once by the caller and never mutated in place; rewriting (variable
// substitution, root permutation, preparation) always produces a new
// Query value.
type Query struct {
	Collection string
	Where      []Node
	Order      []OrderTerm
	Limit      *int
	After      *Cursor
	Select     []triple.Path // empty means "all non-relation attributes"
	Include    map[string]Include
	Vars       map[string]triple.Value

	// Prepared is set by engine.PrepareQuery once exists-relation and
	// include expansion have run (§6; C6); no permission rules are
	// injected.
	// Executing an unprepared query fails with QueryNotPreparedError.
	Prepared bool
}

// Clone returns a deep-enough copy of q so that callers may derive new
// queries (variable substitution, permutation) without mutating q,
// honoring §3's "queries are never mutated in place" invariant.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	out := *q
	out.Where = append([]Node(nil), q.Where...)
	out.Order = append([]OrderTerm(nil), q.Order...)
	if q.Limit != nil {
		l := *q.Limit
		out.Limit = &l
	}
	if q.After != nil {
		c := *q.After
		c.Values = append([]interface{}(nil), q.After.Values...)
		out.After = &c
	}
	out.Select = append([]triple.Path(nil), q.Select...)
	if q.Include != nil {
		out.Include = make(map[string]Include, len(q.Include))
		for k, v := range q.Include {
			out.Include[k] = v
		}
	}
	if q.Vars != nil {
		out.Vars = make(map[string]triple.Value, len(q.Vars))
		for k, v := range q.Vars {
			out.Vars[k] = v
		}
	}
	return &out
}

func (q *Query) String() string {
	return fmt.Sprintf("[collection=%s where=%v order=%v limit=%v]", q.Collection, q.Where, q.Order, q.Limit)
}
