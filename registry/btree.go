package registry

import (
	"github.com/google/btree"
)

// DefaultDegree is the B-tree degree used by NewBTree.
const DefaultDegree = 8

// BTree is a Set backed by an in-memory B-tree ordered by identity.
type BTree[T Identifiable] struct {
	tree *btree.BTreeG[T]
}

// NewBTree creates an empty BTree set with DefaultDegree.
func NewBTree[T Identifiable]() *BTree[T] {
	return NewBTreeDegree[T](DefaultDegree)
}

// NewBTreeDegree creates an empty BTree set with the given degree.
// Degrees below 2 are raised to 2.
func NewBTreeDegree[T Identifiable](degree int) *BTree[T] {
	if degree < 2 {
		degree = 2
	}
	return &BTree[T]{
		tree: btree.NewG[T](degree, func(a, b T) bool {
			return a.Identity() < b.Identity()
		}),
	}
}

// BTreeFactory returns a Factory producing BTree sets.
func BTreeFactory[T Identifiable]() Factory[T] {
	return func() (Set[T], error) {
		return NewBTree[T](), nil
	}
}

// Insert adds v.
func (s *BTree[T]) Insert(v T) error {
	if s.tree.Has(v) {
		return ErrExists
	}
	s.tree.ReplaceOrInsert(v)
	return nil
}

// Remove deletes v.
func (s *BTree[T]) Remove(v T) error {
	if _, ok := s.tree.Delete(v); !ok {
		return ErrNotFound
	}
	return nil
}

// Contains reports whether v is present.
func (s *BTree[T]) Contains(v T) bool {
	return s.tree.Has(v)
}

// Ascend iterates in identity order.
func (s *BTree[T]) Ascend(fn func(T) bool) {
	s.tree.Ascend(btree.ItemIteratorG[T](fn))
}

// Len returns the number of entries.
func (s *BTree[T]) Len() int {
	return s.tree.Len()
}

// Clear removes every entry and releases tree nodes.
func (s *BTree[T]) Clear() {
	s.tree.Clear(false)
}
