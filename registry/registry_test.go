package registry

import (
	"errors"
	"testing"
)

type ident uint64

func (i ident) Identity() uint64 { return uint64(i) }

func TestBTree_InsertRemove(t *testing.T) {
	s := NewBTree[ident]()

	if err := s.Insert(5); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Insert(5); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate Insert = %v, want ErrExists", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after duplicate insert", s.Len())
	}
	if !s.Contains(5) {
		t.Fatal("Contains(5) = false")
	}

	if err := s.Remove(5); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove(5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Remove = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}

func TestBTree_AscendOrdered(t *testing.T) {
	s := NewBTreeDegree[ident](2)
	for _, v := range []ident{9, 3, 7, 1, 5, 8, 2} {
		if err := s.Insert(v); err != nil {
			t.Fatalf("Insert(%d): %v", v, err)
		}
	}

	var got []ident
	s.Ascend(func(v ident) bool {
		got = append(got, v)
		return true
	})
	want := []ident{1, 2, 3, 5, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("Ascend visited %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Ascend order = %v, want %v", got, want)
		}
	}

	// traversal is restartable and can stop early
	n := 0
	s.Ascend(func(v ident) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Fatalf("early stop visited %d, want 3", n)
	}
}

func TestBTree_Clear(t *testing.T) {
	s := NewBTree[ident]()
	for i := ident(0); i < 100; i++ {
		_ = s.Insert(i)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("Len after Clear = %d", s.Len())
	}
	if err := s.Insert(1); err != nil {
		t.Fatalf("Insert after Clear: %v", err)
	}
}

func TestBounded(t *testing.T) {
	s := NewBounded[ident](NewBTree[ident](), 2)

	if err := s.Insert(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(2); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(2); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate in full set = %v, want ErrExists", err)
	}
	if err := s.Insert(3); !errors.Is(err, ErrAllocation) {
		t.Fatalf("Insert beyond cap = %v, want ErrAllocation", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	_ = s.Remove(1)
	if err := s.Insert(3); err != nil {
		t.Fatalf("Insert after Remove: %v", err)
	}
	if s.Cap() != 2 {
		t.Fatalf("Cap = %d", s.Cap())
	}
}

func TestFactories(t *testing.T) {
	set, err := BTreeFactory[ident]()()
	if err != nil || set == nil {
		t.Fatalf("BTreeFactory: %v", err)
	}

	set, err = BoundedFactory[ident](0)()
	if err != nil {
		t.Fatalf("BoundedFactory(0): %v", err)
	}
	if err := set.Insert(1); !errors.Is(err, ErrAllocation) {
		t.Fatalf("Insert into zero-cap set = %v, want ErrAllocation", err)
	}

	if _, err := BoundedFactory[ident](-1)(); !errors.Is(err, ErrAllocation) {
		t.Fatalf("BoundedFactory(-1) = %v, want ErrAllocation", err)
	}
}
