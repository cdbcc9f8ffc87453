// Package registry provides ordered identity sets used by strong references
// to track the weak references observing them.
//
// A Set is not safe for concurrent use; callers serialize access with their
// own lock. Traversal order is ascending identity.
package registry

import (
	"github.com/wippyai/triggerfish/errors"
)

var (
	ErrExists     = errors.New(errors.PhaseRegistry, errors.KindAlreadyRegistered).Detail("identity already present").Build()
	ErrNotFound   = errors.New(errors.PhaseRegistry, errors.KindNotFound).Detail("identity not present").Build()
	ErrAllocation = errors.New(errors.PhaseRegistry, errors.KindAllocation).Detail("registry cannot grow").Build()
)

// Identifiable is implemented by values stored in a Set.
// Identity must be stable for the lifetime of the value.
type Identifiable interface {
	Identity() uint64
}

// Set is an ordered collection of unique identities.
type Set[T Identifiable] interface {
	// Insert adds v. Returns ErrExists if v's identity is present and
	// ErrAllocation if the set cannot hold another entry.
	Insert(v T) error

	// Remove deletes v. Returns ErrNotFound if v's identity is absent.
	Remove(v T) error

	// Contains reports whether v's identity is present.
	Contains(v T) bool

	// Ascend calls fn for each entry in identity order until fn returns false.
	Ascend(fn func(T) bool)

	// Len returns the number of entries.
	Len() int

	// Clear removes every entry.
	Clear()
}

// Factory creates an empty Set.
type Factory[T Identifiable] func() (Set[T], error)
