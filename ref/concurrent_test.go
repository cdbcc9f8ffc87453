package ref

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

type tracked struct {
	freed atomic.Bool
	value int
}

// TestConcurrent_RetainRelease hammers a single cell from many goroutines and
// checks that exactly one teardown happens.
func TestConcurrent_RetainRelease(t *testing.T) {
	var destroyed atomic.Int32
	s, err := Of(&tracked{value: 1}, func(p *tracked) {
		destroyed.Add(1)
		p.freed.Store(true)
	})
	if err != nil {
		t.Fatal(err)
	}

	const workers = 16
	const iterations = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if err := s.Retain(); err != nil {
					t.Errorf("Retain: %v", err)
					return
				}
				p, err := s.Instance()
				if err != nil || p.freed.Load() {
					t.Errorf("Instance while owned: %v", err)
				}
				_ = s.Release()
			}
		}()
	}
	wg.Wait()

	if s.Count() != 1 {
		t.Fatalf("Count = %d, want 1", s.Count())
	}
	_ = s.Release()
	if destroyed.Load() != 1 {
		t.Fatalf("destroyed %d times", destroyed.Load())
	}
}

// TestConcurrent_UpgradeVsTeardown races weak upgrades against the final
// release. No upgrade may return a cell whose payload was freed.
func TestConcurrent_UpgradeVsTeardown(t *testing.T) {
	for round := 0; round < 50; round++ {
		var destroyed atomic.Int32
		s, err := Of(&tracked{value: round}, func(p *tracked) {
			destroyed.Add(1)
			p.freed.Store(true)
		})
		if err != nil {
			t.Fatal(err)
		}

		const watchers = 8
		weaks := make([]*Weak[tracked], watchers)
		for i := range weaks {
			if weaks[i], err = WeakOf(s); err != nil {
				t.Fatal(err)
			}
		}

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < watchers; i++ {
			wg.Add(1)
			go func(w *Weak[tracked]) {
				defer wg.Done()
				<-start
				for {
					up, err := w.Upgrade()
					if err != nil {
						if !errors.Is(err, ErrStrongInvalid) {
							t.Errorf("Upgrade: %v", err)
						}
						return
					}
					p, err := up.Instance()
					if err != nil || p.freed.Load() {
						t.Errorf("upgraded reference observed freed payload")
					}
					_ = up.Release()
					runtime.Gosched()
				}
			}(weaks[i])
		}

		close(start)
		_ = s.Release()
		wg.Wait()

		if destroyed.Load() != 1 {
			t.Fatalf("round %d: destroyed %d times", round, destroyed.Load())
		}
		for _, w := range weaks {
			if w.Alive() {
				t.Fatalf("round %d: weak still alive after teardown", round)
			}
			_ = w.Destroy()
		}
	}
}

// TestConcurrent_RegisterVsTeardown creates, copies and destroys weaks while
// the owner releases. Every weak that registered successfully must end up
// unbound.
func TestConcurrent_RegisterVsTeardown(t *testing.T) {
	for round := 0; round < 50; round++ {
		s, err := Of(&tracked{}, func(p *tracked) { p.freed.Store(true) })
		if err != nil {
			t.Fatal(err)
		}
		seed, err := WeakOf(s)
		if err != nil {
			t.Fatal(err)
		}

		var mu sync.Mutex
		var created []*Weak[tracked]

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 50; j++ {
					w, err := WeakOf(s)
					if err != nil {
						if !errors.Is(err, ErrStrongInvalid) {
							t.Errorf("WeakOf: %v", err)
						}
						return
					}
					mu.Lock()
					created = append(created, w)
					mu.Unlock()
				}
			}()
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 50; j++ {
					c, err := seed.Copy()
					if err != nil {
						t.Errorf("Copy: %v", err)
						return
					}
					if j%2 == 0 {
						_ = c.Destroy()
						continue
					}
					mu.Lock()
					created = append(created, c)
					mu.Unlock()
				}
			}()
		}

		close(start)
		_ = s.Release()
		wg.Wait()

		for _, w := range created {
			if w.Alive() {
				t.Fatalf("round %d: weak %d alive after teardown", round, w.ID())
			}
			if _, err := w.Upgrade(); !errors.Is(err, ErrStrongInvalid) {
				t.Fatalf("round %d: Upgrade = %v", round, err)
			}
		}
	}
}

func BenchmarkRetainRelease(b *testing.B) {
	s, _ := Of(new(int), func(*int) {})
	defer s.Release()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = s.Retain()
			_ = s.Release()
		}
	})
}

func BenchmarkWeakUpgrade(b *testing.B) {
	s, _ := Of(new(int), func(*int) {})
	defer s.Release()
	w, _ := WeakOf(s)
	defer w.Destroy()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		up, err := w.Upgrade()
		if err != nil {
			b.Fatal(err)
		}
		_ = up.Release()
	}
}

func BenchmarkWeakOfDestroy(b *testing.B) {
	s, _ := Of(new(int), func(*int) {})
	defer s.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w, err := WeakOf(s)
		if err != nil {
			b.Fatal(err)
		}
		_ = w.Destroy()
	}
}
