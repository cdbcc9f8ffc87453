package ref

import (
	"github.com/wippyai/triggerfish/errors"
)

// Sentinel errors. Compare with errors.Is.
var (
	ErrNilPayload        = errors.NilPointer(errors.PhaseStrong, "payload", "")
	ErrNilDestructor     = errors.NilPointer(errors.PhaseStrong, "onDestroy", "")
	ErrNilStrong         = errors.NilPointer(errors.PhaseStrong, "strong", "")
	ErrInvalid           = errors.InvalidState(errors.PhaseStrong, "strong reference has been invalidated")
	ErrAlreadyRegistered = errors.New(errors.PhaseStrong, errors.KindAlreadyRegistered).Detail("weak reference already registered").Build()

	ErrNilWeak        = errors.NilPointer(errors.PhaseWeak, "weak", "")
	ErrWeakNilStrong  = errors.NilPointer(errors.PhaseWeak, "strong", "")
	ErrStrongInvalid  = errors.InvalidState(errors.PhaseWeak, "strong reference has been invalidated")
	ErrWeakAllocation = errors.New(errors.PhaseWeak, errors.KindAllocation).Detail("cannot register weak reference").Build()
)

// weakError translates a registration failure into the weak phase.
func weakError(err error) error {
	kind, _ := errors.KindOf(err)
	switch kind {
	case errors.KindInvalidState:
		return ErrStrongInvalid
	case errors.KindAllocation:
		return errors.New(errors.PhaseWeak, errors.KindAllocation).
			Detail("cannot register weak reference").
			Cause(err).
			Build()
	default:
		// a freshly allocated weak cannot already be registered
		panic("ref: unexpected registration failure: " + err.Error())
	}
}
