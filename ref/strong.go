package ref

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/triggerfish/errors"
	"github.com/wippyai/triggerfish/registry"
)

// Strong is an owning, reference-counted cell around a payload.
//
// A Strong starts with a count of 1. Each successful Retain must be matched
// by a Release; the Release that takes the count to zero invalidates every
// registered Weak, then calls the destructor with the payload exactly once.
type Strong[T any] struct {
	payload   atomic.Pointer[T]
	onDestroy func(*T)
	weaks     registry.Set[*Weak[T]]
	counter   atomic.Uint64
	mu        sync.Mutex
	closed    bool
	id        uuid.UUID
}

// Option configures a Strong at creation.
type Option[T any] func(*config[T])

type config[T any] struct {
	newRegistry registry.Factory[*Weak[T]]
}

// WithRegistry replaces the default B-tree registry of weak references.
func WithRegistry[T any](f registry.Factory[*Weak[T]]) Option[T] {
	return func(c *config[T]) {
		if f != nil {
			c.newRegistry = f
		}
	}
}

// Of creates a Strong owning payload. onDestroy is invoked with payload when
// the last reference is released.
func Of[T any](payload *T, onDestroy func(*T), opts ...Option[T]) (*Strong[T], error) {
	if payload == nil {
		return nil, ErrNilPayload
	}
	if onDestroy == nil {
		return nil, ErrNilDestructor
	}

	cfg := config[T]{newRegistry: registry.BTreeFactory[*Weak[T]]()}
	for _, opt := range opts {
		opt(&cfg)
	}

	weaks, err := cfg.newRegistry()
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseStrong, "create weak registry", err)
	}
	if weaks == nil {
		return nil, errors.AllocationFailed(errors.PhaseStrong, "create weak registry", nil)
	}

	s := &Strong[T]{
		onDestroy: onDestroy,
		weaks:     weaks,
		id:        uuid.New(),
	}
	s.payload.Store(payload)
	s.counter.Store(1)
	return s, nil
}

// ID returns the cell identity used in logs and events.
func (s *Strong[T]) ID() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.id
}

// Count returns the current reference count. Zero means destroyed.
// A nil Strong reports zero.
func (s *Strong[T]) Count() uint64 {
	if s == nil {
		return 0
	}
	return s.counter.Load()
}

// Retain increments the reference count.
// Returns ErrInvalid if the count has already reached zero.
// Panics if the count would overflow.
func (s *Strong[T]) Retain() error {
	if s == nil {
		return ErrNilStrong
	}
	for {
		n := s.counter.Load()
		if n == 0 {
			return ErrInvalid
		}
		if n == math.MaxUint64 {
			panic("ref: strong reference count overflow")
		}
		if s.counter.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Clone retains s and returns it, for call sites that hand a new owning
// reference to someone else.
func (s *Strong[T]) Clone() (*Strong[T], error) {
	if err := s.Retain(); err != nil {
		return nil, err
	}
	return s, nil
}

// Release decrements the reference count. The call that observes the
// transition to zero destroys the payload before returning.
// Panics if the count is already zero.
func (s *Strong[T]) Release() error {
	if s == nil {
		return ErrNilStrong
	}
	for {
		n := s.counter.Load()
		if n == 0 {
			panic("ref: release of destroyed strong reference")
		}
		if s.counter.CompareAndSwap(n, n-1) {
			if n == 1 {
				s.teardown()
			}
			return nil
		}
	}
}

// Instance returns the payload.
// Returns ErrInvalid once the reference has been destroyed.
func (s *Strong[T]) Instance() (*T, error) {
	if s == nil {
		return nil, ErrNilStrong
	}
	if s.counter.Load() == 0 {
		return nil, ErrInvalid
	}
	p := s.payload.Load()
	if p == nil {
		return nil, ErrInvalid
	}
	return p, nil
}

// WeakCount returns the number of registered weak references.
func (s *Strong[T]) WeakCount() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.weaks.Len()
}

func (s *Strong[T]) String() string {
	if s == nil {
		return "Strong(nil)"
	}
	return fmt.Sprintf("Strong(%s, count=%d)", s.id, s.counter.Load())
}

// teardown runs exactly once, on the goroutine whose Release took the count
// from one to zero.
func (s *Strong[T]) teardown() {
	s.mu.Lock()
	invalidated := 0
	s.weaks.Ascend(func(w *Weak[T]) bool {
		if !w.target.CompareAndSwap(s, nil) {
			panic(fmt.Sprintf("ref: weak %d registered with %s points elsewhere", w.id, s.id))
		}
		invalidated++
		return true
	})
	weaks := s.weaks
	s.weaks = nil
	s.closed = true
	s.mu.Unlock()

	// Unreachable from other goroutines once closed is published.
	weaks.Clear()

	payload := s.payload.Swap(nil)
	onDestroy := s.onDestroy
	s.onDestroy = nil
	onDestroy(payload)

	Logger().Debug("strong reference destroyed",
		zap.Stringer("cell", s.id),
		zap.Int("invalidated", invalidated))
}

// register adds w to the registry and binds w to s. The bind happens under
// the lock so teardown never sees a registered but unbound weak.
func (s *Strong[T]) register(w *Weak[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.counter.Load() == 0 {
		return ErrInvalid
	}

	if err := s.weaks.Insert(w); err != nil {
		kind, _ := errors.KindOf(err)
		switch kind {
		case errors.KindAlreadyRegistered:
			return ErrAlreadyRegistered
		case errors.KindAllocation:
			Logger().Warn("weak registration failed",
				zap.Stringer("cell", s.id),
				zap.Uint64("weak", w.id),
				zap.Error(err))
			return errors.AllocationFailed(errors.PhaseStrong, "register weak reference", err)
		default:
			panic("ref: registry insert failed: " + err.Error())
		}
	}
	w.target.Store(s)
	return nil
}

// unregister removes w from the registry if present. Missing entries are
// not an error: teardown may have cleared w already.
func (s *Strong[T]) unregister(w *Weak[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.weaks.Remove(w); err != nil {
		return
	}
	w.target.CompareAndSwap(s, nil)
}
