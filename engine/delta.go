package engine

import (
	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/filter"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/schema"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/triple"
)

// DeltaResult classifies how a write batch changed q's result set,
// without re-running the full query: entities newly matching,
// entities that stopped matching, and entities that matched both
// before and after but whose triples changed (§4.8).
type DeltaResult struct {
	Added   []triple.EntityID
	Removed []triple.EntityID
	Updated []triple.EntityID
}

// Delta computes how batch affects q's result set (§4.8). It finds
// candidate root entities two ways: triples written directly to q's own
// collection, and triples written to a related collection reached by
// root permutation — re-rooting the query's relation edges at the
// written entity and walking them in reverse to find which of q's
// collection's entities could be affected. opts may be nil. Delta
// always derives its own "before" state vector algorithmically;
// opts.SkipIndex is carried into both the before and after sub-query
// fetches, opts.StateVector bounds only the after side's sub-query
// fetches, and opts.Cache is never consulted.
func (e *Engine) Delta(sessionID string, q *query.Query, batch storage.WriteBatch, opts *Options) (*DeltaResult, error) {
	classified, _, err := e.delta(sessionID, q, batch, opts)
	return classified, err
}

// FetchDeltaTriples computes the same root-entity transitions Delta
// does, but returns the minimal triple set a client needs to bring its
// own local store in sync with the change, per §4.8 steps (d)/(e) and
// §6.4's fetch_delta_triples: every entity that transitioned from not
// matching to matching contributes its full triple set (minus
// whatever's already in batch) plus any triples consumed while
// re-evaluating its subquery-exists clauses; every affected entity
// (regardless of direction) always contributes the incoming changed
// triples that are actually about it.
func (e *Engine) FetchDeltaTriples(sessionID string, q *query.Query, batch storage.WriteBatch, opts *Options) ([]triple.Triple, error) {
	_, triples, err := e.delta(sessionID, q, batch, opts)
	return triples, err
}

func (e *Engine) delta(sessionID string, q *query.Query, batch storage.WriteBatch, opts *Options) (*DeltaResult, []triple.Triple, error) {
	if !q.Prepared {
		return nil, nil, &QueryNotPreparedError{Collection: q.Collection}
	}

	changedEntities := make(map[triple.EntityID][]triple.Triple)
	written := append(append([]triple.Triple{}, batch.Inserts...), batch.Deletes...)
	for _, t := range written {
		changedEntities[t.EntityID] = append(changedEntities[t.EntityID], t)
	}

	candidates, err := e.deltaCandidates(q, batch)
	if err != nil {
		return nil, nil, err
	}

	beforeSV, err := e.buildBeforeStateVector(batch)
	if err != nil {
		return nil, nil, err
	}

	classified := &DeltaResult{}
	var deltaTriples []triple.Triple
	seen := make(map[string]bool)
	emit := func(t triple.Triple) {
		k := tripleKey(t)
		if seen[k] {
			return
		}
		seen[k] = true
		deltaTriples = append(deltaTriples, t)
	}

	opts = opts.orDefault()
	beforeCtx := e.newFetchContext(sessionID, nil, &Options{StateVector: beforeSV, SkipRules: opts.SkipRules, SkipIndex: opts.SkipIndex})
	afterCtx := e.newFetchContext(sessionID, nil, opts)

	for id := range candidates {
		triples, err := e.allTriplesFor(id)
		if err != nil {
			return nil, nil, err
		}
		before, err := e.materializeViewAsOf(id, beforeSV)
		if err != nil {
			return nil, nil, err
		}
		after := entity.Materialize(id, triples)

		beforeMatch, _, err := matchesWithTriples(beforeCtx, q, before)
		if err != nil {
			return nil, nil, err
		}
		afterMatch, subqueryTriples, err := matchesWithTriples(afterCtx, q, after)
		if err != nil {
			return nil, nil, err
		}
		if !beforeMatch && !afterMatch {
			continue
		}

		switch {
		case !beforeMatch && afterMatch:
			classified.Added = append(classified.Added, id)
		case beforeMatch && !afterMatch:
			classified.Removed = append(classified.Removed, id)
		default:
			classified.Updated = append(classified.Updated, id)
		}

		if !beforeMatch && afterMatch {
			changed := changedEntities[id]
			for _, t := range triples {
				if !tripleIn(changed, t) {
					emit(t)
				}
			}
			for _, t := range subqueryTriples {
				emit(t)
			}
		}
		for _, t := range changedEntities[id] {
			emit(t)
		}
	}
	return classified, deltaTriples, nil
}

// tripleKey identifies a triple by its write identity (entity,
// attribute, timestamp) rather than Go struct equality, since Path's
// []string representation isn't comparable.
func tripleKey(t triple.Triple) string {
	return string(t.EntityID) + "\x00" + t.Attribute.String() + "\x00" + t.Timestamp.String()
}

func tripleIn(haystack []triple.Triple, t triple.Triple) bool {
	k := tripleKey(t)
	for _, h := range haystack {
		if tripleKey(h) == k {
			return true
		}
	}
	return false
}

// matchesWithTriples reports whether view satisfies q, plus the triples consumed by any
// subquery-exists clause it had to re-evaluate along the way (§4.8 step
// (c): "re-evaluate subquery-exists filters on both sides, collecting
// triples used").
func matchesWithTriples(ctx *fetchContext, q *query.Query, view *entity.View) (bool, []triple.Triple, error) {
	if view.IsTombstoned() || (q.Collection != "" && view.Collection != q.Collection) {
		return false, nil, nil
	}
	if len(q.Where) == 0 {
		return true, nil, nil
	}
	tracker := &subqueryTracker{ctx: ctx}
	eval := &filter.Evaluator{Resolver: ctx.resolver(q), Runner: tracker}
	ok, err := eval.Evaluate(query.And{Children: q.Where}, view)
	return ok, tracker.collected, err
}

// subqueryTracker adapts fetchContext to filter.SubqueryRunner exactly
// like subqueryRunner, but additionally records every triple belonging
// to an entity a subquery-exists clause matched against, so the delta
// engine can emit them alongside a root transition (§4.8 step (c)/(d)).
type subqueryTracker struct {
	ctx       *fetchContext
	collected []triple.Triple
}

func (t *subqueryTracker) Exists(q *query.Query) (bool, error) {
	view, err := t.ctx.fetchOneView(q)
	if err != nil || view == nil {
		return false, err
	}
	triples, err := t.ctx.engine.allTriplesFor(view.ID)
	if err != nil {
		return false, err
	}
	t.collected = append(t.collected, triples...)
	return true, nil
}

// deltaCandidates unions every entity id that could have entered or
// left q's result set because of batch: direct writes to q's own
// collection, plus writes to a related collection reached from q's
// declared relations, permuted in reverse (§4.8 root permutation).
func (e *Engine) deltaCandidates(q *query.Query, batch storage.WriteBatch) (map[triple.EntityID]bool, error) {
	out := make(map[triple.EntityID]bool)
	written := append(append([]triple.Triple{}, batch.Inserts...), batch.Deletes...)

	for _, t := range written {
		if t.EntityID.Collection() == q.Collection {
			out[t.EntityID] = true
		}
	}

	if e.Schema == nil {
		return out, nil
	}
	for _, rel := range e.Schema.Relations(q.Collection) {
		if rel.Relation == nil {
			continue
		}
		for _, t := range written {
			if t.EntityID.Collection() != rel.Relation.TargetCollection {
				continue
			}
			related, err := e.materializeView(t.EntityID)
			if err != nil {
				return nil, err
			}
			targetValue := related.Get(rel.Relation.TargetPath)
			if targetValue == nil {
				continue
			}
			roots, err := e.reversedRootLookup(rel.Relation, targetValue)
			if err != nil {
				return nil, err
			}
			for _, r := range roots {
				out[r.EntityID] = true
			}
		}
	}
	return out, nil
}

// reversedRootLookup finds every triple on q's own collection that a
// write on rel's target side could affect, by re-rooting rel's join
// edge at the written entity and walking it backward: the join clause
// is "target.TargetPath rel.EffectiveOp() root.LocalPath", so permuting
// it means evaluating "root.LocalPath reverse(rel.EffectiveOp())
// targetValue" against root's own AVE index (§4.8 "root permutation").
// Inverting an operator with no defined inverse raises
// ReverseOperatorError.
func (e *Engine) reversedRootLookup(rel *schema.RelationSpec, targetValue interface{}) ([]triple.Triple, error) {
	op := rel.EffectiveOp()
	reversed, ok := op.Reverse()
	if !ok {
		return nil, &ReverseOperatorError{Op: op}
	}

	switch reversed {
	case query.OpEQ, query.OpHas, query.OpIn:
		it, err := e.Store.FindByAVE(rel.LocalPath, targetValue)
		if err != nil {
			return nil, err
		}
		return drainTriples(it)

	case query.OpNE, query.OpNotHas, query.OpNotIn:
		it, err := e.Store.FindByAVE(rel.LocalPath, nil)
		if err != nil {
			return nil, err
		}
		all, err := drainTriples(it)
		if err != nil {
			return nil, err
		}
		out := make([]triple.Triple, 0, len(all))
		for _, t := range all {
			if !triple.ValuesEqual(t.Value, targetValue) {
				out = append(out, t)
			}
		}
		return out, nil

	case query.OpGT, query.OpGTE, query.OpLT, query.OpLTE:
		opts := storage.RangeOptions{}
		switch reversed {
		case query.OpGT:
			opts.Gt = targetValue
		case query.OpGTE:
			opts.Gte = targetValue
		case query.OpLT:
			opts.Lt = targetValue
		case query.OpLTE:
			opts.Lte = targetValue
		}
		it, err := e.Store.FindValuesInRange(rel.LocalPath, opts)
		if err != nil {
			return nil, err
		}
		return drainTriples(it)

	default:
		return nil, &ReverseOperatorError{Op: op}
	}
}

func (e *Engine) allTriplesFor(id triple.EntityID) ([]triple.Triple, error) {
	it, err := e.Store.FindByEntity(id)
	if err != nil {
		return nil, err
	}
	return drainTriples(it)
}

// buildBeforeStateVector derives the §4.8 step 2 "before" frontier: a
// state vector bounding every client that wrote into batch at
// min(tick)-1, with every other client the store has ever seen from
// left unbounded ("now") by capping it at the maximum tick, so
// FindByEntityAsOf includes their entire history while still excluding
// this batch's own writes.
func (e *Engine) buildBeforeStateVector(batch storage.WriteBatch) (triple.StateVector, error) {
	clients, err := e.Store.FindAllClientIDs()
	if err != nil {
		return nil, err
	}
	sv := make(triple.StateVector, len(clients))
	for c := range clients {
		sv[c] = ^uint64(0)
	}

	written := append(append([]triple.Triple{}, batch.Inserts...), batch.Deletes...)
	minTick := make(map[string]uint64)
	for _, t := range written {
		c := t.Timestamp.ClientID
		if cur, ok := minTick[c]; !ok || t.Timestamp.Tick < cur {
			minTick[c] = t.Timestamp.Tick
		}
	}
	for c, tick := range minTick {
		if tick == 0 {
			sv[c] = 0
			continue
		}
		sv[c] = tick - 1
	}
	return sv, nil
}
