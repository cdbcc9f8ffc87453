// Package ref provides thread-safe strong and weak references with explicit
// ownership.
//
// A Strong owns a payload and a destructor. Owners call Retain to take an
// additional reference and Release to drop one; the Release that takes the
// count to zero destroys the payload exactly once:
//
//	s, err := ref.Of(conn, func(c *Conn) { c.Close() })
//	if err != nil {
//	    return err
//	}
//	defer s.Release()
//
// A Weak observes a Strong without extending its lifetime. Upgrade returns
// a new owning reference while the target is alive and ErrStrongInvalid
// afterwards:
//
//	w, _ := ref.WeakOf(s)
//	defer w.Destroy()
//
//	if live, err := w.Upgrade(); err == nil {
//	    c, _ := live.Instance()
//	    use(c)
//	    live.Release()
//	}
//
// # Teardown
//
// When the count reaches zero the releasing goroutine locks the cell,
// unbinds every registered Weak, marks the cell closed, then calls the
// destructor. Retain, Instance and weak registration fail from the moment
// the count is zero, so no caller can observe a half-destroyed payload.
//
// Weak registrations are tracked in a registry.Set (a B-tree by default);
// use WithRegistry to substitute another implementation.
//
// # Defects
//
// Counter overflow, Release on a destroyed Strong and a registry entry
// bound to a different cell are programming errors and panic.
package ref
