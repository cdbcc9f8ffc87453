package resource

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/triggerfish/errors"
	"github.com/wippyai/triggerfish/ref"
)

// Table maps integer handles to strong and weak references.
//
// Each strong handle owns exactly one reference; Release gives it up and
// frees the handle. Each weak handle owns one Weak; WeakDestroy destroys it.
type Table[T any] struct {
	backend   *LocalBackend[entry[T]]
	observers []Observer
	obsMu     sync.RWMutex
}

type entry[T any] struct {
	strong *ref.Strong[T]
	weak   *ref.Weak[T]
}

func (e entry[T]) kind() Kind {
	if e.strong != nil {
		return KindStrong
	}
	return KindWeak
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		backend: NewLocalBackend[entry[T]](),
	}
}

// StrongOf creates a strong reference to payload and returns its handle.
// If onDestroy is nil and payload implements Dropper, Drop is used instead.
func (t *Table[T]) StrongOf(payload *T, onDestroy func(*T)) (Handle, error) {
	if onDestroy == nil && payload != nil {
		if d, ok := any(payload).(Dropper); ok {
			onDestroy = func(*T) { d.Drop() }
		}
	}

	s, err := ref.Of(payload, onDestroy)
	if err != nil {
		return 0, err
	}

	h, err := t.backend.Create(entry[T]{strong: s})
	if err != nil {
		_ = s.Release()
		return 0, err
	}

	t.notify(Event{Type: EventCreated, Handle: h, Cell: s.ID(), Count: s.Count()})
	return h, nil
}

// Adopt stores an existing strong reference. The table takes over the
// caller's reference; the caller must not Release it afterwards.
func (t *Table[T]) Adopt(s *ref.Strong[T]) (Handle, error) {
	if s == nil {
		return 0, ref.ErrNilStrong
	}
	if s.Count() == 0 {
		return 0, ref.ErrInvalid
	}
	h, err := t.backend.Create(entry[T]{strong: s})
	if err != nil {
		return 0, err
	}
	t.notify(Event{Type: EventCreated, Handle: h, Cell: s.ID(), Count: s.Count()})
	return h, nil
}

// Strong returns the strong reference behind h without retaining it.
// The reference stays owned by the table.
func (t *Table[T]) Strong(h Handle) (*ref.Strong[T], error) {
	e, err := t.lookup(h, KindStrong)
	if err != nil {
		return nil, err
	}
	return e.strong, nil
}

// Count returns the strong count of the cell behind h.
func (t *Table[T]) Count(h Handle) (uint64, error) {
	e, err := t.lookup(h, KindStrong)
	if err != nil {
		return 0, err
	}
	return e.strong.Count(), nil
}

// Instance returns the payload behind a strong handle.
func (t *Table[T]) Instance(h Handle) (*T, error) {
	e, err := t.lookup(h, KindStrong)
	if err != nil {
		return nil, err
	}
	return e.strong.Instance()
}

// Retain takes another reference to the cell behind h and returns a new
// handle owning it.
func (t *Table[T]) Retain(h Handle) (Handle, error) {
	e, err := t.lookup(h, KindStrong)
	if err != nil {
		return 0, err
	}
	if err := e.strong.Retain(); err != nil {
		return 0, err
	}

	nh, err := t.backend.Create(entry[T]{strong: e.strong})
	if err != nil {
		_ = e.strong.Release()
		return 0, err
	}

	t.notify(Event{Type: EventRetained, Handle: nh, Cell: e.strong.ID(), Count: e.strong.Count()})
	return nh, nil
}

// Release gives up the reference owned by h and frees h.
func (t *Table[T]) Release(h Handle) error {
	e, ok := t.backend.DropIf(h, func(e entry[T]) bool { return e.kind() == KindStrong })
	if !ok {
		if _, err := t.lookup(h, KindStrong); err != nil {
			return err
		}
		return ErrInvalidHandle
	}

	id := e.strong.ID()
	if err := e.strong.Release(); err != nil {
		return err
	}

	t.notify(Event{Type: EventReleased, Handle: h, Cell: id, Count: e.strong.Count()})
	return nil
}

// WeakOf creates a weak reference to the cell behind a strong handle.
func (t *Table[T]) WeakOf(h Handle) (Handle, error) {
	e, err := t.lookup(h, KindStrong)
	if err != nil {
		return 0, err
	}

	w, err := ref.WeakOf(e.strong)
	if err != nil {
		return 0, err
	}
	return t.storeWeak(w, e.strong)
}

// WeakCopy creates another weak handle observing the same cell as wh.
// Copying a weak whose cell is gone yields an unbound weak handle.
func (t *Table[T]) WeakCopy(wh Handle) (Handle, error) {
	e, err := t.lookup(wh, KindWeak)
	if err != nil {
		return 0, err
	}

	w, err := e.weak.Copy()
	if err != nil {
		return 0, err
	}
	return t.storeWeak(w, nil)
}

// WeakDestroy destroys the weak reference behind wh and frees wh.
func (t *Table[T]) WeakDestroy(wh Handle) error {
	e, ok := t.backend.DropIf(wh, func(e entry[T]) bool { return e.kind() == KindWeak })
	if !ok {
		if _, err := t.lookup(wh, KindWeak); err != nil {
			return err
		}
		return ErrInvalidHandle
	}

	if err := e.weak.Destroy(); err != nil {
		return err
	}
	t.notify(Event{Type: EventWeakDestroyed, Handle: wh, Weak: e.weak.ID()})
	return nil
}

// WeakUpgrade upgrades the weak reference behind wh and returns a new strong
// handle owning the resulting reference.
func (t *Table[T]) WeakUpgrade(wh Handle) (Handle, error) {
	e, err := t.lookup(wh, KindWeak)
	if err != nil {
		return 0, err
	}

	s, err := e.weak.Upgrade()
	if err != nil {
		return 0, err
	}

	h, err := t.backend.Create(entry[T]{strong: s})
	if err != nil {
		_ = s.Release()
		return 0, err
	}

	t.notify(Event{Type: EventUpgraded, Handle: h, Cell: s.ID(), Count: s.Count(), Weak: e.weak.ID()})
	return h, nil
}

// KindOf reports whether h is a strong or weak handle.
func (t *Table[T]) KindOf(h Handle) (Kind, bool) {
	e, ok := t.backend.Get(h)
	if !ok {
		return 0, false
	}
	return e.kind(), true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live handles of both kinds.
func (t *Table[T]) Len() int {
	return t.backend.Len()
}

// Close destroys every weak handle, then releases every strong handle.
// Operations after Close fail with ErrClosed.
func (t *Table[T]) Close() error {
	live := t.backend.Close()

	weaks, strongs := 0, 0
	for _, e := range live {
		if e.kind() == KindWeak {
			_ = e.weak.Destroy()
			weaks++
		}
	}
	for _, e := range live {
		if e.kind() == KindStrong {
			_ = e.strong.Release()
			strongs++
		}
	}

	if weaks+strongs > 0 {
		ref.Logger().Debug("resource table closed",
			zap.Int("strong", strongs),
			zap.Int("weak", weaks))
	}
	return nil
}

func (t *Table[T]) storeWeak(w *ref.Weak[T], s *ref.Strong[T]) (Handle, error) {
	h, err := t.backend.Create(entry[T]{weak: w})
	if err != nil {
		_ = w.Destroy()
		return 0, err
	}

	ev := Event{Type: EventWeakCreated, Handle: h, Weak: w.ID()}
	if s != nil {
		ev.Cell = s.ID()
		ev.Count = s.Count()
	}
	t.notify(ev)
	return h, nil
}

func (t *Table[T]) lookup(h Handle, want Kind) (entry[T], error) {
	e, ok := t.backend.Get(h)
	if !ok {
		if t.isClosed() {
			return entry[T]{}, ErrClosed
		}
		return entry[T]{}, errors.NotFound(errors.PhaseHandle, "handle", h)
	}
	if e.kind() != want {
		return entry[T]{}, errors.New(errors.PhaseHandle, errors.KindInvalidInput).
			Value(h).
			Detail("handle %d is %s, want %s", h, e.kind(), want).
			Build()
	}
	return e, nil
}

func (t *Table[T]) isClosed() bool {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	return t.backend.closed
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
