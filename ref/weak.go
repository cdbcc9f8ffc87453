package ref

import (
	"fmt"
	"sync/atomic"
)

var weakSeq atomic.Uint64

// Weak observes a Strong without keeping its payload alive.
//
// A Weak is either bound to a live Strong or unbound. It becomes unbound
// when the Strong is destroyed or when Destroy is called, and never becomes
// bound again.
type Weak[T any] struct {
	target atomic.Pointer[Strong[T]]
	id     uint64
}

func newWeak[T any]() *Weak[T] {
	return &Weak[T]{id: weakSeq.Add(1)}
}

// WeakOf creates a Weak bound to s.
// Returns ErrStrongInvalid if s has been destroyed.
func WeakOf[T any](s *Strong[T]) (*Weak[T], error) {
	if s == nil {
		return nil, ErrWeakNilStrong
	}
	w := newWeak[T]()
	if err := s.register(w); err != nil {
		return nil, weakError(err)
	}
	return w, nil
}

// Identity implements registry.Identifiable.
func (w *Weak[T]) Identity() uint64 {
	return w.id
}

// ID returns the weak reference identity.
func (w *Weak[T]) ID() uint64 {
	if w == nil {
		return 0
	}
	return w.id
}

// Copy creates another Weak observing the same Strong. If the target is
// already gone the copy is unbound; that is not an error.
func (w *Weak[T]) Copy() (*Weak[T], error) {
	if w == nil {
		return nil, ErrNilWeak
	}
	s, err := w.Upgrade()
	if err != nil {
		return newWeak[T](), nil
	}
	defer func() {
		_ = s.Release()
	}()

	out := newWeak[T]()
	if err := s.register(out); err != nil {
		return nil, weakError(err)
	}
	return out, nil
}

// Destroy unregisters w from its target, if any, and leaves w unbound.
// Destroying an unbound Weak is a no-op.
func (w *Weak[T]) Destroy() error {
	if w == nil {
		return ErrNilWeak
	}
	if s := w.target.Load(); s != nil {
		s.unregister(w)
	}
	return nil
}

// Upgrade returns an owning reference to the target. The caller must
// Release it. Returns ErrStrongInvalid if the target is gone, including
// when teardown wins a race with this call.
func (w *Weak[T]) Upgrade() (*Strong[T], error) {
	if w == nil {
		return nil, ErrNilWeak
	}
	s := w.target.Load()
	if s == nil {
		return nil, ErrStrongInvalid
	}
	if err := s.Retain(); err != nil {
		return nil, ErrStrongInvalid
	}
	return s, nil
}

// Alive reports whether w is bound to a Strong with a non-zero count.
// The answer may be stale by the time the caller acts on it; use Upgrade
// to obtain a usable reference.
func (w *Weak[T]) Alive() bool {
	if w == nil {
		return false
	}
	s := w.target.Load()
	return s != nil && s.Count() > 0
}

func (w *Weak[T]) String() string {
	if w == nil {
		return "Weak(nil)"
	}
	if s := w.target.Load(); s != nil {
		return fmt.Sprintf("Weak(%d -> %s)", w.id, s.ID())
	}
	return fmt.Sprintf("Weak(%d, unbound)", w.id)
}
