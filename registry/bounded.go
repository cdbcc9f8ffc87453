package registry

// Bounded wraps a Set and refuses inserts beyond a fixed capacity with
// ErrAllocation. Duplicate inserts still report ErrExists.
type Bounded[T Identifiable] struct {
	Set[T]
	max int
}

// NewBounded limits inner to max entries.
func NewBounded[T Identifiable](inner Set[T], max int) *Bounded[T] {
	return &Bounded[T]{Set: inner, max: max}
}

// BoundedFactory returns a Factory producing BTree sets capped at max entries.
func BoundedFactory[T Identifiable](max int) Factory[T] {
	return func() (Set[T], error) {
		if max < 0 {
			return nil, ErrAllocation
		}
		return NewBounded[T](NewBTree[T](), max), nil
	}
}

// Insert adds v unless the set is full.
func (b *Bounded[T]) Insert(v T) error {
	if b.Set.Contains(v) {
		return ErrExists
	}
	if b.Set.Len() >= b.max {
		return ErrAllocation
	}
	return b.Set.Insert(v)
}

// Cap returns the configured capacity.
func (b *Bounded[T]) Cap() int {
	return b.max
}
