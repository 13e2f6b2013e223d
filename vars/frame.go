// Package vars implements the Variable Resolver (C5): a scoped
// variable stack and "$scope.path" resolution, used by the Filter
// Evaluator (C4) to resolve statement values and by the Sub-query
// Loader (C6) to push/pop ancestor frames.
package vars

import (
	"fmt"

	"github.com/Adebesin-Cell/triplit/entity"
	"github.com/Adebesin-Cell/triplit/triple"
)

// Frame is one entry on the ancestor stack: the parent entity's
// leaves at the paths NewFrame was given (the engine passes the view's
// own materialized leaf paths, not a schema-declared attribute list),
// "present as undefined if absent" per §4.6, plus its collection.
type Frame struct {
	EntityID   triple.EntityID
	Collection string
	Values     map[string]triple.Value // path.String() -> value; absent key means undefined
}

// NewFrame builds a frame from a materialized entity view, populating
// declaredScalarPaths even where the view has no leaf (so the frame
// reports "undefined" rather than "missing", per §4.6).
func NewFrame(view *entity.View, declaredScalarPaths []triple.Path) Frame {
	f := Frame{
		EntityID:   view.ID,
		Collection: view.Collection,
		Values:     make(map[string]triple.Value, len(declaredScalarPaths)),
	}
	for _, p := range declaredScalarPaths {
		f.Values[p.String()] = view.Get(p)
	}
	return f
}

// Get looks up path on the frame; ok is false when the path was never
// declared on this frame (as opposed to declared-but-nil).
func (f Frame) Get(path triple.Path) (triple.Value, bool) {
	v, ok := f.Values[path.String()]
	return v, ok
}

// Stack is the execution context's ancestor-frame stack (§5's
// "queried_data_stack"), owned by one fetch call and shared by
// reference down the recursive call tree. Invariant: stack length on
// exit equals stack length on entry (§3 Invariant 5, §8 Property 6).
type Stack struct {
	frames []Frame
}

// NewStack returns an empty stack.
func NewStack() *Stack { return &Stack{} }

// Push adds a frame for the entity a sub-query is about to descend
// from. Callers MUST pair every Push with a deferred Pop, even on
// failure (§4.6).
func (s *Stack) Push(f Frame) { s.frames = append(s.frames, f) }

// Pop removes the most recently pushed frame. Popping an empty stack is
// a programming error and panics, surfacing stack-discipline bugs
// immediately rather than silently corrupting ancestor numbering.
func (s *Stack) Pop() {
	if len(s.frames) == 0 {
		panic("vars: Pop called on empty stack")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the current stack depth, used to assert the §3
// Invariant 5 / §8 Property 6 discipline in tests.
func (s *Stack) Depth() int { return len(s.frames) }

// Ancestor returns the Nth ancestor frame, where 1 is the immediate
// parent and outermost frames have the largest N (§4.5). Frame 0 is
// unused, per spec.
func (s *Stack) Ancestor(n int) (Frame, error) {
	if n <= 0 || n > len(s.frames) {
		return Frame{}, fmt.Errorf("vars: no ancestor frame %d (stack depth %d)", n, len(s.frames))
	}
	// frames[len-1] is the immediate parent (ancestor 1); frames[0] is
	// the outermost (ancestor len(frames)).
	return s.frames[len(s.frames)-n], nil
}
