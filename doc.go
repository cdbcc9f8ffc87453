// Package triggerfish provides reference-counted cells with weak references
// for Go values whose lifetime must end at a known point.
//
// Go's garbage collector frees memory, but it does not close files, sockets
// or WebAssembly instances on time. A Strong owns such a value and runs its
// destructor exactly once, when the last owner releases it. A Weak observes
// the value without keeping it open and can be upgraded to a Strong while
// the value is still alive.
//
// # Architecture Overview
//
//	triggerfish/         Root package with the Counted and Observable interfaces
//	├── ref/             Strong and Weak references
//	├── registry/        Ordered identity sets used to track weak references
//	├── resource/        Integer handle table over strong and weak references
//	├── wasmref/         wazero module instances behind strong references
//	├── errors/          Structured error types
//	├── internal/stress/ Concurrent stress harness
//	└── cmd/refstress/   Stress test CLI
//
// # Quick Start
//
//	conn, _ := net.Dial("tcp", addr)
//	s, err := ref.Of(&conn, func(c *net.Conn) { (*c).Close() })
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, _ := ref.WeakOf(s)
//	defer w.Destroy()
//
//	// Hand a reference to another goroutine
//	s.Retain()
//	go func() {
//	    defer s.Release()
//	    use(s)
//	}()
//
//	s.Release()
//
//	// Later, from anywhere
//	if live, err := w.Upgrade(); err == nil {
//	    defer live.Release()
//	    use(live)
//	}
//
// # Errors
//
// Every error is an *errors.Error carrying a Phase and a Kind. Use errors.Is
// with the sentinels exported by each package:
//
//	if errors.Is(err, ref.ErrStrongInvalid) {
//	    // the value has been destroyed
//	}
//
// Misuse that indicates a bug, such as releasing a destroyed reference or
// overflowing the count, panics instead of returning an error.
//
// # Logging
//
// Packages log through zap and are silent by default. Install a logger with
// ref.SetLogger.
package triggerfish
