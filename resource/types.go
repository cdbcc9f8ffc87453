package resource

import (
	"github.com/google/uuid"

	"github.com/wippyai/triggerfish/errors"
)

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind distinguishes the two entry types a table holds.
type Kind uint8

const (
	KindStrong Kind = iota + 1
	KindWeak
)

func (k Kind) String() string {
	switch k {
	case KindStrong:
		return "strong"
	case KindWeak:
		return "weak"
	default:
		return "unknown"
	}
}

// Event types for reference lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventWeakCreated
	EventWeakDestroyed
	EventUpgraded
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventWeakCreated:
		return "weak_created"
	case EventWeakDestroyed:
		return "weak_destroyed"
	case EventUpgraded:
		return "upgraded"
	default:
		return "unknown"
	}
}

// Event represents a reference lifecycle event.
// Count is the strong count observed right after the operation.
type Event struct {
	Cell   uuid.UUID
	Count  uint64
	Weak   uint64
	Handle Handle
	Type   EventType
}

// Observer receives notifications about reference lifecycle events.
// Observers are called synchronously and must not call back into the table.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by payloads that release their own
// resources. StrongOf uses it when no destructor is given.
type Dropper interface {
	Drop()
}

var (
	ErrClosed        = errors.Closed(errors.PhaseHandle, "resource table")
	ErrInvalidHandle = errors.New(errors.PhaseHandle, errors.KindNotFound).Detail("invalid handle").Build()
	ErrWrongKind     = errors.New(errors.PhaseHandle, errors.KindInvalidInput).Detail("handle refers to a different kind of reference").Build()
)
