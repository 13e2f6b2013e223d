package engine

import (
	"sync"

	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/query"
	"github.com/Adebesin-Cell/triplit/storage"
	"github.com/Adebesin-Cell/triplit/triple"
)

// ChangeHandler receives a subscription's added/removed/updated result
// sets, one call per write batch that actually changed something
// (§4.8, §5).
type ChangeHandler func(added, removed, updated []*Result)

// Subscription is a live query: it tracks its own result window and
// reacts to every store write batch, reclassifying itself as "simple"
// or "complex" per write to decide whether an incremental delta
// suffices or a full backfill fetch is required (§4.8's "simple vs.
// complex query reclassification").
type Subscription struct {
	engine    *Engine
	sessionID string
	query     *query.Query
	opts      *Options
	onChange  ChangeHandler
	onError   func(error)

	mu     sync.Mutex
	window map[triple.EntityID]*entity.View // current matched set, keyed by id
	unsub  storage.UnsubscribeFunc
}

// Subscribe registers a live query against the store. q must already be
// prepared. onChange fires once per write batch that changed the
// result set; onError fires for any failure encountered while
// recomputing a delta or backfilling, routing it out of the store's
// write-callback path rather than propagating a panic (§7). opts may
// be nil; it is forwarded to every Fetch/Delta call the subscription
// makes internally.
func (e *Engine) Subscribe(sessionID string, q *query.Query, opts *Options, onChange ChangeHandler, onError func(error)) (*Subscription, error) {
	if !q.Prepared {
		return nil, &QueryNotPreparedError{Collection: q.Collection}
	}

	sub := &Subscription{
		engine:    e,
		sessionID: sessionID,
		query:     q,
		opts:      opts.orDefault(),
		onChange:  onChange,
		onError:   onError,
		window:    make(map[triple.EntityID]*entity.View),
	}

	initial, err := e.Fetch(sessionID, q, sub.opts)
	if err != nil {
		return nil, err
	}
	for _, r := range initial {
		sub.window[r.View.ID] = r.View
	}

	sub.unsub = e.Store.OnWrite(sub.handleWrite)
	return sub, nil
}

// Unsubscribe detaches the subscription from the store. Safe to call
// once; calling it again is a no-op since the underlying
// storage.UnsubscribeFunc already tolerates repeat calls.
func (s *Subscription) Unsubscribe() {
	if s.unsub != nil {
		s.unsub()
	}
}

// isComplex reports whether this query needs a full backfill fetch on
// every affecting write rather than a plain incremental delta: any of
// order, limit or include makes the result window's composition
// depend on entities outside the directly changed set (§4.8, §9 "limit
// backfill").
func (s *Subscription) isComplex() bool {
	return s.query.Limit != nil || len(s.query.Order) > 0 || len(s.query.Include) > 0
}

func (s *Subscription) handleWrite(batch storage.WriteBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delta, err := s.engine.Delta(s.sessionID, s.query, batch, s.opts)
	if err != nil {
		s.reportError(err)
		return
	}
	if len(delta.Added) == 0 && len(delta.Removed) == 0 && len(delta.Updated) == 0 {
		return
	}

	if !s.isComplex() {
		s.handleSimpleDelta(delta)
		return
	}
	s.handleComplexDelta()
}

// handleSimpleDelta applies a delta directly: simple queries have no
// order/limit/include, so their window is just "every currently
// matching entity" and the delta's added/removed/updated sets already
// describe the window change precisely.
func (s *Subscription) handleSimpleDelta(delta *DeltaResult) {
	var added, removed, updated []*Result
	for _, id := range delta.Added {
		v, err := s.engine.materializeView(id)
		if err != nil {
			s.reportError(err)
			return
		}
		s.window[id] = v
		added = append(added, s.engine.emitResult(s.query, v))
	}
	for _, id := range delta.Updated {
		v, err := s.engine.materializeView(id)
		if err != nil {
			s.reportError(err)
			return
		}
		s.window[id] = v
		updated = append(updated, s.engine.emitResult(s.query, v))
	}
	for _, id := range delta.Removed {
		v := s.window[id]
		delete(s.window, id)
		removed = append(removed, s.engine.emitResult(s.query, v))
	}
	if s.onChange != nil {
		s.onChange(added, removed, updated)
	}
}

// handleComplexDelta re-runs the full prepared query and diffs the
// result against the retained window. This is the "limit backfill"
// path: if a write removed a window member, re-fetching is the only
// way to learn which not-previously-matching entity should backfill
// its slot, since that entity was never part of the tracked window
// (§4.8, §9).
func (s *Subscription) handleComplexDelta() {
	results, err := s.engine.Fetch(s.sessionID, s.query, s.opts)
	if err != nil {
		s.reportError(err)
		return
	}

	newWindow := make(map[triple.EntityID]*entity.View, len(results))
	var added, updated []*Result
	for _, r := range results {
		newWindow[r.View.ID] = r.View
		r.Native = s.engine.nativeValues(s.query.Collection, r.View)
		if _, existed := s.window[r.View.ID]; existed {
			updated = append(updated, r)
		} else {
			added = append(added, r)
		}
	}

	var removed []*Result
	for id, v := range s.window {
		if _, stillThere := newWindow[id]; !stillThere {
			removed = append(removed, s.engine.emitResult(s.query, v))
		}
	}

	s.window = newWindow
	if len(added)+len(removed)+len(updated) > 0 && s.onChange != nil {
		s.onChange(added, removed, updated)
	}
}

func (s *Subscription) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
