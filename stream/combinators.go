package stream

import "sort"

// Map lazily transforms each element of it with fn.
func Map[T, U any](it Iterator[T], fn func(T) (U, error)) Iterator[U] {
	return &mapIterator[T, U]{inner: it, fn: fn}
}

type mapIterator[T, U any] struct {
	inner Iterator[T]
	fn    func(T) (U, error)
	cur   U
	err   error
}

func (m *mapIterator[T, U]) Next() bool {
	if m.err != nil {
		return false
	}
	if !m.inner.Next() {
		return false
	}
	v, err := m.fn(m.inner.Value())
	if err != nil {
		m.err = err
		return false
	}
	m.cur = v
	return true
}

func (m *mapIterator[T, U]) Value() U    { return m.cur }
func (m *mapIterator[T, U]) Close() error { return m.inner.Close() }
func (m *mapIterator[T, U]) Err() error {
	if m.err != nil {
		return m.err
	}
	return m.inner.Err()
}

// Filter lazily keeps only elements for which pred returns true.
func Filter[T any](it Iterator[T], pred func(T) (bool, error)) Iterator[T] {
	return &filterIterator[T]{inner: it, pred: pred}
}

type filterIterator[T any] struct {
	inner Iterator[T]
	pred  func(T) (bool, error)
	cur   T
	err   error
}

func (f *filterIterator[T]) Next() bool {
	for {
		if f.err != nil {
			return false
		}
		if !f.inner.Next() {
			return false
		}
		v := f.inner.Value()
		ok, err := f.pred(v)
		if err != nil {
			f.err = err
			return false
		}
		if ok {
			f.cur = v
			return true
		}
	}
}

func (f *filterIterator[T]) Value() T     { return f.cur }
func (f *filterIterator[T]) Close() error { return f.inner.Close() }
func (f *filterIterator[T]) Err() error {
	if f.err != nil {
		return f.err
	}
	return f.inner.Err()
}

// Tap calls fn with each element as it passes through, without
// otherwise altering the stream. Suited to side effects such as
// collecting the elements that pass through a stage.
func Tap[T any](it Iterator[T], fn func(T)) Iterator[T] {
	return Filter(it, func(v T) (bool, error) {
		fn(v)
		return true, nil
	})
}

// Take lazily stops the stream after n elements, enforcing `limit`
// (§4.7) without buffering beyond n.
func Take[T any](it Iterator[T], n int) Iterator[T] {
	return &takeIterator[T]{inner: it, remaining: n}
}

type takeIterator[T any] struct {
	inner     Iterator[T]
	remaining int
}

func (t *takeIterator[T]) Next() bool {
	if t.remaining <= 0 {
		return false
	}
	if !t.inner.Next() {
		return false
	}
	t.remaining--
	return true
}

func (t *takeIterator[T]) Value() T     { return t.inner.Value() }
func (t *takeIterator[T]) Close() error { return t.inner.Close() }
func (t *takeIterator[T]) Err() error   { return t.inner.Err() }

// Sort buffers the entire stream and returns a new Iterator over the
// sorted result. This is the one combinator that must materialize
// (§4.7): total order requires seeing every element first.
func Sort[T any](it Iterator[T], less func(a, b T) bool) (Iterator[T], error) {
	items, err := Drain(it)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
	return FromSlice(items), nil
}
