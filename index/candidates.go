package index

import (
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/stream"
	"github.com/Adebesin-Cell/triplit/triple"
)

// Candidates opens the Candidate Stream (C2): a lazy, pull-based
// iterator of entity ids produced by running Plan against store,
// deduplicating ids as they're seen since a single entity may own many
// triples on the driving attribute path (set members in particular).
func Candidates(store storage.Store, plan *Plan) (stream.Iterator[triple.EntityID], error) {
	switch plan.Kind {
	case IDPoint:
		return stream.FromSlice([]triple.EntityID{plan.EntityID}), nil
	case Equality:
		it, err := store.FindByAVE(plan.Path, plan.EqualValue)
		if err != nil {
			return nil, err
		}
		return dedupEntityIDs(it), nil
	case Range, OrderScan:
		it, err := store.FindValuesInRange(plan.Path, plan.Range)
		if err != nil {
			return nil, err
		}
		return dedupEntityIDs(it), nil
	case FullScan:
		it, err := store.FindByAVE(plan.Path, plan.EqualValue)
		if err != nil {
			return nil, err
		}
		return dedupEntityIDs(it), nil
	default:
		return stream.FromSlice[triple.EntityID](nil), nil
	}
}

// dedupEntityIDs wraps a raw triple iterator into an entity-id stream,
// skipping ids already emitted so downstream materialization never
// re-fetches the same entity twice (§4.2).
func dedupEntityIDs(it storage.Iterator) stream.Iterator[triple.EntityID] {
	seen := make(map[triple.EntityID]bool)
	return &stream.FuncIterator[triple.EntityID]{
		NextFn: func() (triple.EntityID, bool, error) {
			for it.Next() {
				t, err := it.Triple()
				if err != nil {
					return "", false, err
				}
				if seen[t.EntityID] {
					continue
				}
				seen[t.EntityID] = true
				return t.EntityID, true, nil
			}
			return "", false, nil
		},
		CloseFn: it.Close,
	}
}
