package engine

import (
	"sort"

	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/filter"
	"github.com/Adebesin-Cell/triplit/index"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/stream"
	"github.com/Adebesin-Cell/triplit/storecache"
	"github.com/Adebesin-Cell/triplit/triple"
	"github.com/Adebesin-Cell/triplit/vars"
)

// Result is one matched entity plus its resolved includes (§3
// `include`). Includes hold either a single *entity.View (cardinality
// one) or a []*Result (cardinality many). View already reflects q's
// `select` projection; Native is populated only by the subscription
// coordinator's change callbacks (§4.9 step 5), nil for plain
// Fetch/FetchOne results.
type Result struct {
	View     *entity.View
	Includes map[string]interface{}
	Native   map[string]interface{}
}

// Fetch runs q (which must already be prepared via PrepareQuery) and
// returns every matching entity, ordered, cursor-trimmed and
// limit-truncated per §3/§4.7, with includes resolved per §4.6. opts
// may be nil. When opts.Cache is set and the schema marks q's
// collection cacheable (§6.3), results are served from and stored back
// into the cache under a key that captures q's resolved variables; a
// cache miss is built through e.group so concurrent fetches of the
// same key compute it at most once (§5, §6.3).
func (e *Engine) Fetch(sessionID string, q *query.Query, opts *Options) ([]*Result, error) {
	if !q.Prepared {
		return nil, &QueryNotPreparedError{Collection: q.Collection}
	}
	opts = opts.orDefault()
	ctx := e.newFetchContext(sessionID, nil, opts)

	if opts.Cache == nil || e.Schema == nil || !e.Schema.CanCacheQuery(q.Collection) {
		return ctx.fetchAll(q)
	}

	key := storecache.KeyFor(q, ctx.resolver(q).ScopedSnapshot())
	if cached, ok := opts.Cache.Get(key); ok {
		if results, ok := cached.([]*Result); ok {
			return results, nil
		}
	}

	val, _, err := e.group.Do(key, func() (interface{}, error) {
		if cached, ok := opts.Cache.Get(key); ok {
			if results, ok := cached.([]*Result); ok {
				return results, nil
			}
		}
		results, err := ctx.fetchAll(q)
		if err != nil {
			return nil, err
		}
		opts.Cache.Set(key, results, int64(len(results)))
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]*Result), nil
}

// FetchOne is Fetch with an implicit limit of one, used for
// cardinality-one relation loading and exists evaluation (§4.4, §4.5).
func (e *Engine) FetchOne(sessionID string, q *query.Query, opts *Options) (*Result, error) {
	if !q.Prepared {
		return nil, &QueryNotPreparedError{Collection: q.Collection}
	}
	ctx := e.newFetchContext(sessionID, nil, opts)
	return ctx.fetchOne(q)
}

func (c *fetchContext) fetchOneView(q *query.Query) (*entity.View, error) {
	r, err := c.fetchOne(q)
	if err != nil || r == nil {
		return nil, err
	}
	return r.View, nil
}

func (c *fetchContext) fetchOne(q *query.Query) (*Result, error) {
	one := 1
	limited := q.Clone()
	limited.Limit = &one
	results, err := c.fetchAll(limited)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return results[0], nil
}

// fetchAll is the heart of the engine: select an access path (C1), pull
// candidate ids (C2), materialize and filter each one (C3, C4, C5),
// sort and cursor-trim (C7), then resolve includes by recursing through
// the ancestor stack (C6).
func (c *fetchContext) fetchAll(q *query.Query) ([]*Result, error) {
	var plan *index.Plan
	if c.opts.SkipIndex {
		plan = index.FullScanPlan(q)
	} else {
		plan = index.Select(q)
	}
	candidateIDs, err := index.Candidates(c.engine.Store, plan)
	if err != nil {
		return nil, err
	}

	views := stream.Map(candidateIDs, func(id triple.EntityID) (*entity.View, error) {
		return c.engine.materializeViewAsOf(id, c.opts.StateVector)
	})
	views = stream.Filter(views, func(v *entity.View) (bool, error) {
		if v.IsTombstoned() {
			return false, nil
		}
		if q.Collection != "" && v.Collection != q.Collection {
			return false, nil
		}
		return true, nil
	})

	eval := &filter.Evaluator{Resolver: c.resolver(q), Runner: runnerFor(c)}
	matched := stream.Filter(views, func(v *entity.View) (bool, error) {
		if len(q.Where) == 0 {
			return true, nil
		}
		return eval.Evaluate(query.And{Children: q.Where}, v)
	})

	all, err := stream.Drain(matched)
	if err != nil {
		return nil, err
	}

	all = applyOrder(all, q)
	all = applyCursor(all, q)
	all = applyLimit(all, q)

	results := make([]*Result, len(all))
	for i, v := range all {
		r := &Result{View: c.project(v, q)}
		if len(q.Include) > 0 {
			if err := c.resolveIncludes(v, q, r); err != nil {
				return nil, err
			}
		}
		results[i] = r
	}
	return results, nil
}

func (c *fetchContext) project(v *entity.View, q *query.Query) *entity.View {
	return c.engine.projectView(v, q)
}

// projectView applies q's `select` projection to v (§2, §3): an
// explicit Select keeps exactly those leaf paths; an empty one keeps
// every non-relation attribute, determined from the schema when one is
// configured (a schema-less engine has no notion of "relation
// attribute" and so returns v unprojected).
func (e *Engine) projectView(v *entity.View, q *query.Query) *entity.View {
	if len(q.Select) > 0 {
		return v.Project(q.Select)
	}
	if e.Schema == nil {
		return v
	}
	return v.ProjectExcluding(e.relationPaths(q.Collection))
}

func (e *Engine) relationPaths(collection string) []triple.Path {
	if e.Schema == nil {
		return nil
	}
	rels := e.Schema.Relations(collection)
	out := make([]triple.Path, len(rels))
	for i, rel := range rels {
		out[i] = rel.Path
	}
	return out
}

// applyOrder sorts views by the query's order terms, falling back to
// entity id for total determinism (§4.7, §8 Property: sort stability).
func applyOrder(views []*entity.View, q *query.Query) []*entity.View {
	if len(q.Order) == 0 {
		sort.SliceStable(views, func(i, j int) bool { return views[i].ID < views[j].ID })
		return views
	}
	sort.SliceStable(views, func(i, j int) bool { return orderLess(views[i], views[j], q.Order) })
	return views
}

func orderLess(a, b *entity.View, terms []query.OrderTerm) bool {
	for _, t := range terms {
		av, bv := a.Get(t.Path), b.Get(t.Path)
		c := triple.CompareValues(av, bv)
		if c == 0 {
			continue
		}
		if t.Direction == query.Desc {
			return c > 0
		}
		return c < 0
	}
	return a.ID < b.ID
}

// applyCursor trims views up to and including (or past, per
// q.After.Inclusive) the cursor position, re-checked here even when the
// chosen access path already applied a cursor bound, per the decision
// to always re-evaluate rather than trust index-level fulfillment.
func applyCursor(views []*entity.View, q *query.Query) []*entity.View {
	if q.After == nil {
		return views
	}
	out := views[:0:0]
	for _, v := range views {
		cmp := compareToCursor(v, q)
		if cmp < 0 {
			continue
		}
		if cmp == 0 && !q.After.Inclusive {
			continue
		}
		out = append(out, v)
	}
	return out
}

func compareToCursor(v *entity.View, q *query.Query) int {
	for i, t := range q.Order {
		if i >= len(q.After.Values) {
			break
		}
		c := triple.CompareValues(v.Get(t.Path), q.After.Values[i])
		if c != 0 {
			if t.Direction == query.Desc {
				return -c
			}
			return c
		}
	}
	if v.ID < q.After.EntityID {
		return -1
	}
	if v.ID > q.After.EntityID {
		return 1
	}
	return 0
}

func applyLimit(views []*entity.View, q *query.Query) []*entity.View {
	if q.Limit == nil || *q.Limit < 0 || *q.Limit >= len(views) {
		return views
	}
	return views[:*q.Limit]
}

func (c *fetchContext) resolveIncludes(parent *entity.View, parentQuery *query.Query, out *Result) error {
	out.Includes = make(map[string]interface{}, len(parentQuery.Include))
	frame := vars.NewFrame(parent, parent.Paths())
	c.stack.Push(frame)
	defer c.stack.Pop()

	if c.stack.Depth() > maxAncestorDepth {
		return &VariableRelationCardinalityError{Path: triple.Path{parentQuery.Collection}}
	}

	for alias, inc := range parentQuery.Include {
		if inc.Query == nil {
			continue
		}
		if inc.Cardinality == query.CardinalityOne {
			v, err := c.fetchOneView(inc.Query)
			if err != nil {
				return err
			}
			out.Includes[alias] = v
			continue
		}
		results, err := c.fetchAll(inc.Query)
		if err != nil {
			return err
		}
		out.Includes[alias] = results
	}
	return nil
}

// subqueryRunner adapts fetchContext to filter.SubqueryRunner so
// exists/exists-relation clauses recurse through the same ancestor
// stack as includes, rather than starting a fresh one (§4.6).
type subqueryRunner struct{ ctx *fetchContext }

func runnerFor(ctx *fetchContext) subqueryRunner { return subqueryRunner{ctx: ctx} }

func (r subqueryRunner) Exists(q *query.Query) (bool, error) {
	return r.ctx.exists(q)
}
