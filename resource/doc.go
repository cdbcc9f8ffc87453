// Package resource exposes strong and weak references through integer handles.
//
// Handles let code that cannot hold Go pointers (host functions, foreign
// callers, message protocols) own references. Each strong handle owns exactly
// one reference to a ref.Strong; each weak handle owns one ref.Weak.
//
// # Handle Table
//
//	table := resource.NewTable[Conn]()
//
//	// Create a cell and get a strong handle
//	h, err := table.StrongOf(conn, func(c *Conn) { c.Close() })
//
//	// Another owner gets its own handle
//	h2, err := table.Retain(h)
//
//	// Observe without owning
//	wh, err := table.WeakOf(h)
//
//	// Later: try to get an owning handle back
//	uh, err := table.WeakUpgrade(wh)
//	if errors.Is(err, ref.ErrStrongInvalid) {
//	    // the connection is gone
//	}
//
// Release and WeakDestroy give up the reference and free the handle. Handle
// 0 is never valid; freed handles are reused.
//
// # Destructors
//
// StrongOf requires a destructor unless the payload implements Dropper, in
// which case Drop is called when the last reference is released.
//
// # Observers
//
// Subscribe receives lifecycle events synchronously:
//
//	table.Subscribe(myObserver)
//
//	func (o *myObserver) OnResourceEvent(e resource.Event) {
//	    if e.Type == resource.EventReleased && e.Count == 0 {
//	        log.Printf("cell %s destroyed", e.Cell)
//	    }
//	}
//
// # Closing
//
// Close destroys every weak handle, then releases every strong handle, so
// cells that were only reachable through the table are destroyed.
// Operations on a closed table fail with ErrClosed.
package resource
