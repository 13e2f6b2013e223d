// Package engine ties together the Index Selector (C1), Candidate
// Stream (C2), Entity Materializer (C3), Filter Evaluator (C4),
// Variable Resolver (C5), Sub-query Loader (C6), Sort & Cursor (C7),
// Delta Engine (C8) and Subscription Coordinator (C9) into the
// collection query engine's public surface: PrepareQuery, Fetch,
// FetchOne, Delta and Subscribe, grounded on the teacher's
// executor/executor.go orchestration of its own pipeline stages.
package engine

import (
	"fmt"

	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/schema"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/storecache"
	"github.com/Adebesin-Cell/triplit/triple"
	"github.com/Adebesin-Cell/triplit/vars"
)

// maxAncestorDepth bounds the sub-query recursion the stack discipline
// allows, guarding against a misconfigured schema declaring a relation
// cycle from recursing forever (§4.6).
const maxAncestorDepth = 32

// Engine is the query engine's entry point, bound to one store and one
// schema service. Callers hold one Engine per store; it carries no
// per-query mutable state itself (that lives on fetchContext, one per
// call).
type Engine struct {
	Store  storage.Store
	Schema schema.Service

	// SessionVars feeds the variable resolver's session scope (§4.5); the
	// role scope comes from Schema.Roles. SessionVars may be nil for
	// engines used only in tests against $query/$global/$ancestor
	// variables.
	SessionVars func(sessionID string) map[string]triple.Value

	// group coalesces concurrent cache-miss builds of the same fetch so
	// a burst of callers hitting an uncached-but-cacheable query at the
	// same moment computes it at most once (§5, §6.3).
	group storecache.Group
}

// fetchContext is the per-call state threaded through a recursive
// Fetch/FetchOne tree: the ancestor stack (§4.6), resolved global vars,
// and the session/role context a sub-query inherits unchanged from its
// parent.
type fetchContext struct {
	engine    *Engine
	stack     *vars.Stack
	sessionID string
	global    map[string]triple.Value
	opts      *Options
}

func (e *Engine) newFetchContext(sessionID string, global map[string]triple.Value, opts *Options) *fetchContext {
	return &fetchContext{engine: e, stack: vars.NewStack(), sessionID: sessionID, global: global, opts: opts.orDefault()}
}

func (c *fetchContext) resolver(q *query.Query) *vars.Resolver {
	var session map[string]triple.Value
	if c.engine.SessionVars != nil {
		session = c.engine.SessionVars(c.sessionID)
	}
	r := &vars.Resolver{
		Global:  c.global,
		Session: session,
		Query:   q.Vars,
		Stack:   c.stack,
		Loader:  relationLoader{c},
	}
	if c.engine.Schema != nil {
		var roleMaps []map[string]triple.Value
		for _, role := range c.engine.Schema.Roles(c.sessionID) {
			roleMaps = append(roleMaps, role.Vars)
		}
		r.MergeRoles(roleMaps)
	}
	return r
}

// relationLoader adapts fetchContext to vars.RelationLoader, so the
// resolver can follow a cardinality-one relation crossing out of an
// ancestor frame without importing the engine package's concrete types
// into vars.
type relationLoader struct{ ctx *fetchContext }

func (l relationLoader) LoadRelationOne(collection string, id triple.EntityID, relation triple.Path, target triple.Path) (triple.Value, error) {
	return l.ctx.engine.loadRelationOne(l.ctx, collection, id, relation, target)
}

func (e *Engine) loadRelationOne(ctx *fetchContext, collection string, id triple.EntityID, relation triple.Path, target triple.Path) (triple.Value, error) {
	if e.Schema == nil {
		return nil, fmt.Errorf("engine: no schema configured, cannot resolve relation %s", relation)
	}
	attr, ok := e.Schema.Attribute(collection, relation)
	if !ok || attr.Relation == nil {
		return nil, &UnknownRelationError{Collection: collection, Path: relation}
	}
	if attr.Cardinality != schema.CardinalityOne {
		return nil, &VariableRelationCardinalityError{Path: relation}
	}

	view, err := e.materializeView(id)
	if err != nil {
		return nil, err
	}
	localValue := view.Get(attr.Relation.LocalPath)

	sub := &query.Query{
		Collection: attr.Relation.TargetCollection,
		Where: []query.Node{
			query.Statement{Path: attr.Relation.TargetPath, Op: query.OpEQ, Value: localValue},
		},
		Prepared: true,
	}
	related, err := ctx.fetchOneView(sub)
	if err != nil || related == nil {
		return nil, err
	}
	return related.Get(target), nil
}

// Exists implements filter.SubqueryRunner for the top-level engine
// entry points; callers that need ancestor-stack continuity (recursive
// sub-query evaluation, C6) go through fetchContext.exists instead.
func (e *Engine) Exists(q *query.Query) (bool, error) {
	ctx := e.newFetchContext("", nil, nil)
	return ctx.exists(q)
}

func (c *fetchContext) exists(q *query.Query) (bool, error) {
	view, err := c.fetchOneView(q)
	if err != nil {
		return false, err
	}
	return view != nil, nil
}

// materializeView returns id's current ("now") view.
func (e *Engine) materializeView(id triple.EntityID) (*entity.View, error) {
	return e.materializeViewAsOf(id, nil)
}

// materializeViewAsOf returns id's view bounded to sv's causal frontier
// (nil/empty sv means "now"), the read path state-vector-bounded fetch
// and the delta engine's before/after materialization share (§4.8
// Invariant 2).
func (e *Engine) materializeViewAsOf(id triple.EntityID, sv triple.StateVector) (*entity.View, error) {
	it, err := e.Store.FindByEntityAsOf(id, sv)
	if err != nil {
		return nil, err
	}
	triples, err := drainTriples(it)
	if err != nil {
		return nil, err
	}
	return entity.Materialize(id, triples), nil
}

// nativeValues coerces every materialized leaf of v through
// Schema.ConvertToNative, keyed by leaf path string (§6.2, §4.9 step
// 5's "JS-converted results"). Returns nil when no schema is
// configured; a leaf that fails coercion is dropped rather than
// aborting the whole conversion, since one malformed attribute
// shouldn't hide every other one from a subscriber.
func (e *Engine) nativeValues(collection string, v *entity.View) map[string]interface{} {
	if e.Schema == nil || v == nil {
		return nil
	}
	out := make(map[string]interface{})
	for _, p := range v.Paths() {
		native, err := e.Schema.ConvertToNative(collection, p, v.Get(p))
		if err != nil {
			continue
		}
		out[p.String()] = native
	}
	return out
}

// emitResult builds the Result a subscription hands to its
// ChangeHandler: q's select projection applied, plus the JS-converted
// Native view (§4.9 step 5).
func (e *Engine) emitResult(q *query.Query, v *entity.View) *Result {
	projected := e.projectView(v, q)
	return &Result{View: projected, Native: e.nativeValues(q.Collection, projected)}
}

func drainTriples(it storage.Iterator) ([]triple.Triple, error) {
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
