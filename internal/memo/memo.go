// Package memo provides a lazily evaluated, explicitly invalidated view
// over a derived value, used for the document's flattened page list.
package memo

// View memoizes the result of a producer function. It starts empty; Access
// runs the producer once and caches the result until Invalidate discards
// it. Not safe for concurrent use; the owning document serializes access.
type View[T any] struct {
	produce   func() (T, error)
	value     T
	populated bool
}

// NewView creates an empty view over produce.
func NewView[T any](produce func() (T, error)) *View[T] {
	return &View[T]{produce: produce}
}

// Access returns the cached value, running the producer first if the view
// is empty. A producer error leaves the view empty.
func (v *View[T]) Access() (T, error) {
	if v.populated {
		return v.value, nil
	}
	value, err := v.produce()
	if err != nil {
		var zero T
		return zero, err
	}
	v.value = value
	v.populated = true
	return value, nil
}

// Invalidate discards any cached value, returning the view to empty.
func (v *View[T]) Invalidate() {
	var zero T
	v.value = zero
	v.populated = false
}
