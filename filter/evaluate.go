// Package filter implements the Filter Evaluator (C4): deciding
// whether one materialized entity satisfies a query's Where tree, with
// cost-based clause reordering so cheap statements short-circuit
// before expensive sub-queries run, grounded on the teacher's
// executor/filter.go node-walk and query/predicate.go operator table.
package filter

import (
	"fmt"
	"strings"

	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/triple"
	"github.com/Adebesin-Cell/triplit/vars"
)

// SubqueryRunner executes a prepared sub-query with cardinality one and
// reports whether it yielded a result, implemented by the engine
// package (kept as an interface here, mirroring vars.RelationLoader, to
// avoid an import cycle between filter and engine).
type SubqueryRunner interface {
	Exists(q *query.Query) (bool, error)
}

// InvalidFilterError reports a malformed statement or Where-tree node
// (§7): an unexpanded exists-relation, an unrecognized node type, or an
// operator applied to a value of the wrong shape. Defined here rather
// than in engine so the evaluator that actually detects these cases can
// construct one directly; engine.InvalidFilterError aliases this type.
type InvalidFilterError struct {
	Node   query.Node
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter %v: %s", e.Node, e.Reason)
}

// Evaluator holds the per-fetch context a single entity is evaluated
// against: the variable resolver (already pointed at the right
// ancestor stack) and the sub-query runner for exists clauses.
type Evaluator struct {
	Resolver *vars.Resolver
	Runner   SubqueryRunner
}

// Evaluate reports whether view satisfies node (§4.4). and/or nodes
// short-circuit on the first failing/succeeding child respectively,
// after Reorder has sorted children cheapest-first.
func (e *Evaluator) Evaluate(node query.Node, view *entity.View) (bool, error) {
	switch n := node.(type) {
	case query.BoolLiteral:
		return bool(n), nil
	case query.Statement:
		return e.evalStatement(n, view)
	case query.And:
		for _, child := range Reorder(n.Children) {
			ok, err := e.Evaluate(child, view)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case query.Or:
		for _, child := range Reorder(n.Children) {
			ok, err := e.Evaluate(child, view)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.SubqueryExists:
		if e.Runner == nil {
			return false, fmt.Errorf("filter: exists clause with no sub-query runner configured")
		}
		return e.runSubquery(n.Query, view)
	case query.ExistsRelation:
		// ExistsRelation is syntactic sugar expanded into SubqueryExists
		// during query preparation (C6), once schema is available to
		// resolve the relation's target collection; seeing one here means
		// preparation was skipped.
		return false, &InvalidFilterError{Node: n, Reason: "unexpanded exists-relation reached the evaluator"}
	default:
		return false, &InvalidFilterError{Node: node, Reason: fmt.Sprintf("unknown node type %T", node)}
	}
}

// runSubquery pushes view onto the resolver's ancestor stack as frame
// 1 before delegating to Runner, so a relation-derived sub-query's join
// clause ("$ancestor1.<local path>") resolves against the entity
// currently being tested (§4.6), then pops it unconditionally.
func (e *Evaluator) runSubquery(q *query.Query, view *entity.View) (bool, error) {
	if e.Resolver == nil || e.Resolver.Stack == nil {
		return e.Runner.Exists(q)
	}
	e.Resolver.Stack.Push(vars.NewFrame(view, view.Paths()))
	defer e.Resolver.Stack.Pop()
	return e.Runner.Exists(q)
}

func (e *Evaluator) evalStatement(st query.Statement, view *entity.View) (bool, error) {
	left := view.Get(st.Path)
	right, err := e.resolveValue(st.Value)
	if err != nil {
		return false, err
	}
	return applyOp(st, left, right, view)
}

func (e *Evaluator) resolveValue(v interface{}) (triple.Value, error) {
	ref, ok := v.(query.Var)
	if !ok {
		return v, nil
	}
	if e.Resolver == nil {
		return nil, fmt.Errorf("filter: statement references %s but no resolver is configured", ref.Raw)
	}
	return e.Resolver.Resolve(ref.Raw)
}

// applyOp evaluates st's operator against left/right. view is passed
// through only for isDefined/has/!has, which need set-membership or
// presence semantics beyond a plain value comparison.
func applyOp(st query.Statement, left triple.Value, right triple.Value, view *entity.View) (bool, error) {
	op, path := st.Op, st.Path
	switch op {
	case query.OpEQ:
		return triple.ValuesEqual(left, right), nil
	case query.OpNE:
		return !triple.ValuesEqual(left, right), nil
	case query.OpLT:
		return left != nil && triple.CompareValues(left, right) < 0, nil
	case query.OpLTE:
		return left != nil && triple.CompareValues(left, right) <= 0, nil
	case query.OpGT:
		return left != nil && triple.CompareValues(left, right) > 0, nil
	case query.OpGTE:
		return left != nil && triple.CompareValues(left, right) >= 0, nil
	case query.OpIn:
		return valueIn(left, right), nil
	case query.OpNotIn:
		return !valueIn(left, right), nil
	case query.OpHas:
		member, ok := right.(string)
		if !ok {
			return false, &InvalidFilterError{Node: st, Reason: fmt.Sprintf("has requires a string member, got %T", right)}
		}
		return view.HasMember(path, member), nil
	case query.OpNotHas:
		member, ok := right.(string)
		if !ok {
			return false, &InvalidFilterError{Node: st, Reason: fmt.Sprintf("!has requires a string member, got %T", right)}
		}
		return !view.HasMember(path, member), nil
	case query.OpLike:
		return likeMatch(left, right), nil
	case query.OpNotLike:
		return !likeMatch(left, right), nil
	case query.OpIsDefined:
		want, _ := right.(bool)
		return (left != nil) == want, nil
	default:
		return false, &InvalidFilterError{Node: st, Reason: fmt.Sprintf("unknown operator %q", op)}
	}
}

func valueIn(left, set triple.Value) bool {
	items, ok := set.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if triple.ValuesEqual(left, item) {
			return true
		}
	}
	return false
}

// likeMatch implements the minimal SQL-style LIKE semantics the
// teacher's predicate table supports: '%' as a wildcard anchored at
// either end, an exact match otherwise.
func likeMatch(left, pattern triple.Value) bool {
	l, ok := left.(string)
	if !ok {
		return false
	}
	p, ok := pattern.(string)
	if !ok {
		return false
	}
	switch {
	case strings.HasPrefix(p, "%") && strings.HasSuffix(p, "%"):
		return strings.Contains(l, strings.Trim(p, "%"))
	case strings.HasPrefix(p, "%"):
		return strings.HasSuffix(l, strings.TrimPrefix(p, "%"))
	case strings.HasSuffix(p, "%"):
		return strings.HasPrefix(l, strings.TrimSuffix(p, "%"))
	default:
		return l == p
	}
}
