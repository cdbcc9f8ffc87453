package resource

import (
	"sync"
)

// LocalBackend is an in-memory slot store with free-list handle reuse.
type LocalBackend[E any] struct {
	entries  []slot[E]
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type slot[E any] struct {
	value E
	valid bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend[E any]() *LocalBackend[E] {
	return &LocalBackend[E]{
		entries:  make([]slot[E], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend[E]) Create(value E) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	s := slot[E]{value: value, valid: true}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = s
		return handle, nil
	}

	b.entries = append(b.entries, s)
	return Handle(len(b.entries)), nil
}

// Get retrieves a value by handle.
func (b *LocalBackend[E]) Get(handle Handle) (E, bool) {
	var zero E
	if handle == 0 {
		return zero, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return zero, false
	}

	s := b.entries[idx]
	if !s.valid {
		return zero, false
	}
	return s.value, true
}

// DropIf removes the value at handle if accept returns true for it.
// Returns (value, true) when the slot was freed.
func (b *LocalBackend[E]) DropIf(handle Handle, accept func(E) bool) (E, bool) {
	var zero E
	if handle == 0 {
		return zero, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return zero, false
	}

	s := &b.entries[idx]
	if !s.valid {
		return zero, false
	}
	if accept != nil && !accept(s.value) {
		return zero, false
	}

	value := s.value
	s.valid = false
	s.value = zero
	b.freeList = append(b.freeList, handle)

	return value, true
}

// Close stops accepting values and returns every live value.
// Closing twice returns nil.
func (b *LocalBackend[E]) Close() []E {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []E
	for i := range b.entries {
		if b.entries[i].valid {
			live = append(live, b.entries[i].value)
		}
	}

	b.entries = nil
	b.freeList = nil
	return live
}

// Len returns the number of live values.
func (b *LocalBackend[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, s := range b.entries {
		if s.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live values.
func (b *LocalBackend[E]) Each(fn func(Handle, E) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, s := range b.entries {
		if s.valid {
			if !fn(Handle(i+1), s.value) {
				break
			}
		}
	}
}
