package triggerfish

// Counted is the owning side of a reference-counted value.
// *ref.Strong implements it for every payload type.
type Counted interface {
	Count() uint64
	Retain() error
	Release() error
}

// Observable is the observing side of a reference-counted value.
// *ref.Weak implements it for every payload type.
type Observable interface {
	Alive() bool
	Destroy() error
}
