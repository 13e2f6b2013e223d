// Package index implements the Index Selector (C1): choosing one
// access path for a query's candidate stream out of id point lookup,
// equality scan, range scan, order scan, or full collection scan,
// grounded on the teacher's datalog/planner/planner_patterns.go
// pattern-to-strategy dispatch and datalog/storage/matcher.go's
// index-kind enum.
package index

import (
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/triple"
)

// Kind is the chosen access path.
type Kind int

const (
	// IDPoint looks a single entity up by its id, the cheapest possible
	// access path.
	IDPoint Kind = iota
	// Equality scans the AVE index for one attribute path at one exact
	// value.
	Equality
	// Range scans the AVE index for one attribute path within a bound,
	// driven by a comparison clause.
	Range
	// OrderScan scans the AVE index for the query's leading order-by
	// path across its full domain, in the order's direction. The engine
	// still sorts the matched views afterwards.
	OrderScan
	// FullScan walks every entity in the collection via the
	// "_collection" attribute's AVE index.
	FullScan
)

func (k Kind) String() string {
	switch k {
	case IDPoint:
		return "id-point"
	case Equality:
		return "equality-scan"
	case Range:
		return "range-scan"
	case OrderScan:
		return "order-scan"
	case FullScan:
		return "full-scan"
	default:
		return "unknown"
	}
}

// idPath is the reserved attribute path representing an entity's own
// id, matched the way the teacher's planner special-cases ":db/id".
var idPath = triple.Path{"_id"}

var collectionPath = triple.Path{"_collection"}

// Plan is the chosen access path plus bookkeeping about which Where
// clause indices it was derived from, for the explain/debug surface
// (§4.1). Per the "always re-evaluate fulfilled clauses" decision,
// Fulfilled is advisory only: the filter evaluator (C4) re-checks every
// clause regardless of what the index already constrained, so a
// mistaken Plan can never produce an incorrect result, only a slower
// one.
type Plan struct {
	Kind       Kind
	Path       triple.Path // driving attribute path; nil for IDPoint, "_collection" for FullScan
	EntityID   triple.EntityID
	EqualValue interface{}
	Range      storage.RangeOptions
	Direction  query.Direction
	Fulfilled  map[int]bool // indices into the query's Where slice
}

// Select chooses an access path for q against collection, grounded on
// the teacher's strategy precedence: an id lookup beats any scan, an
// equality clause beats a range, a range on the leading order path
// beats a bare order scan, and a full scan is the fallback (§4.1).
func Select(q *query.Query) *Plan {
	if p := selectIDPoint(q); p != nil {
		return p
	}
	if p := selectEquality(q); p != nil {
		return p
	}
	if p := selectRange(q); p != nil {
		return p
	}
	if p := selectOrderScan(q); p != nil {
		return p
	}
	return selectFullScan(q)
}

func selectIDPoint(q *query.Query) *Plan {
	for i, n := range q.Where {
		st, ok := n.(query.Statement)
		if !ok || st.Op != query.OpEQ || !st.Path.Equal(idPath) {
			continue
		}
		id, ok := st.Value.(triple.EntityID)
		if !ok {
			if s, ok := st.Value.(string); ok {
				id = triple.EntityID(s)
			} else {
				continue
			}
		}
		return &Plan{
			Kind:      IDPoint,
			EntityID:  id,
			Fulfilled: map[int]bool{i: true},
		}
	}
	return nil
}

func selectEquality(q *query.Query) *Plan {
	for i, n := range q.Where {
		st, ok := n.(query.Statement)
		if !ok || st.Op != query.OpEQ || len(st.Path) == 0 || st.Path.Equal(idPath) {
			continue
		}
		if _, isVar := st.Value.(query.Var); isVar {
			continue
		}
		return &Plan{
			Kind:       Equality,
			Path:       st.Path,
			EqualValue: st.Value,
			Fulfilled:  map[int]bool{i: true},
		}
	}
	return nil
}

var rangeOps = map[query.Op]bool{
	query.OpLT: true, query.OpLTE: true, query.OpGT: true, query.OpGTE: true,
}

func selectRange(q *query.Query) *Plan {
	leadingPath := leadingOrderPath(q)
	best := -1
	var bestPath triple.Path
	for i, n := range q.Where {
		st, ok := n.(query.Statement)
		if !ok || !rangeOps[st.Op] || len(st.Path) == 0 {
			continue
		}
		if _, isVar := st.Value.(query.Var); isVar {
			continue
		}
		// Prefer a range clause that lines up with the leading order
		// path, so the scan's natural order also satisfies Order (§4.1,
		// §4.7); otherwise take the first range clause found.
		if leadingPath != nil && st.Path.Equal(leadingPath) {
			best = i
			bestPath = st.Path
			break
		}
		if best == -1 {
			best = i
			bestPath = st.Path
		}
	}
	if best == -1 {
		return nil
	}

	opts := storage.RangeOptions{}
	fulfilled := map[int]bool{}
	for i, n := range q.Where {
		st, ok := n.(query.Statement)
		if !ok || !st.Path.Equal(bestPath) || !rangeOps[st.Op] {
			continue
		}
		if _, isVar := st.Value.(query.Var); isVar {
			continue
		}
		switch st.Op {
		case query.OpLT:
			opts.Lt = st.Value
		case query.OpLTE:
			opts.Lte = st.Value
		case query.OpGT:
			opts.Gt = st.Value
		case query.OpGTE:
			opts.Gte = st.Value
		}
		fulfilled[i] = true
	}
	applyOrderDirection(q, bestPath, &opts)
	applyCursor(q, &opts)

	return &Plan{
		Kind:      Range,
		Path:      bestPath,
		Range:     opts,
		Direction: directionFor(q, bestPath),
		Fulfilled: fulfilled,
	}
}

func selectOrderScan(q *query.Query) *Plan {
	path := leadingOrderPath(q)
	if path == nil {
		return nil
	}
	opts := storage.RangeOptions{}
	applyOrderDirection(q, path, &opts)
	applyCursor(q, &opts)
	return &Plan{
		Kind:      OrderScan,
		Path:      path,
		Range:     opts,
		Direction: directionFor(q, path),
		Fulfilled: map[int]bool{},
	}
}

// FullScanPlan forces the full-collection-scan access path regardless
// of q's filters, used by the engine's skip_index debugging option
// (§6.4) to inspect a query's results independent of whatever access
// path Select would otherwise have chosen.
func FullScanPlan(q *query.Query) *Plan {
	return selectFullScan(q)
}

func selectFullScan(q *query.Query) *Plan {
	return &Plan{
		Kind:       FullScan,
		Path:       collectionPath,
		EqualValue: q.Collection,
		Fulfilled:  map[int]bool{},
	}
}

func leadingOrderPath(q *query.Query) triple.Path {
	if len(q.Order) == 0 {
		return nil
	}
	return q.Order[0].Path
}

func directionFor(q *query.Query, path triple.Path) query.Direction {
	for _, o := range q.Order {
		if o.Path.Equal(path) {
			return o.Direction
		}
	}
	return query.Asc
}

func applyOrderDirection(q *query.Query, path triple.Path, opts *storage.RangeOptions) {
	if directionFor(q, path) == query.Desc {
		opts.Direction = storage.Backward
	} else {
		opts.Direction = storage.Forward
	}
}

// applyCursor translates a query's `after` pagination cursor (§3
// Invariant 4) into the store's cursor bound, honoring its Inclusive
// flag: an inclusive cursor resumes at-or-past the last-seen entity, an
// exclusive one resumes strictly past it.
func applyCursor(q *query.Query, opts *storage.RangeOptions) {
	if q.After == nil || len(q.After.Values) == 0 {
		return
	}
	c := &storage.Cursor{Value: q.After.Values[0], EntityID: q.After.EntityID}
	backward := opts.Direction == storage.Backward
	switch {
	case !backward && q.After.Inclusive:
		opts.GteCursor = c
	case !backward && !q.After.Inclusive:
		opts.GtCursor = c
	case backward && q.After.Inclusive:
		opts.LteCursor = c
	case backward && !q.After.Inclusive:
		opts.LtCursor = c
	}
}
