// Package errors provides structured error types for the triggerfish module.
//
// Errors are categorized by Phase (which layer reported it) and Kind (error category).
// The taxonomy maps onto the four failure classes of the reference primitives:
//
//	KindNilPointer        invalid argument (nil payload, destructor or handle)
//	KindAllocation        resource exhaustion (registry could not grow)
//	KindInvalidState      target already destroyed
//	KindAlreadyRegistered duplicate weak registration
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseStrong, errors.KindInvalidState).
//		Value(cellID).
//		Detail("retain on destroyed cell").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidState(errors.PhaseWeak, "target destroyed")
//	err := errors.AlreadyRegistered(errors.PhaseStrong, weakID)
//
// All errors implement the standard error interface and support errors.Is/As.
// A target with an empty Phase matches any phase of the same Kind.
package errors
