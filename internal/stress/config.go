package stress

import (
	"fmt"
	"time"

	"github.com/wippyai/triggerfish/errors"
)

// Config holds the shape of a stress run.
type Config struct {
	// Cells is the number of reference cells shared by all workers.
	Cells int

	// Owners is the number of goroutines holding strong references.
	// Each owner retains and releases every cell in turn; the last owner
	// to finish triggers teardown.
	Owners int

	// Watchers is the number of goroutines holding one weak reference per
	// cell. Watchers upgrade, copy and destroy weaks while owners run.
	Watchers int

	// Iterations is the number of operations each worker performs.
	Iterations int

	// WeakLimit caps the weak registry of each cell. 0 means unbounded.
	// A bounded registry needs room for one weak and one transient copy
	// per watcher.
	WeakLimit int

	// ReportInterval is how often progress is sent to the observer.
	// 0 disables periodic reports; a final report is always sent.
	ReportInterval time.Duration
}

// Default returns a small configuration suitable for a quick run.
func Default() Config {
	return Config{
		Cells:          8,
		Owners:         4,
		Watchers:       4,
		Iterations:     10000,
		ReportInterval: 50 * time.Millisecond,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Cells <= 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("cells must be positive, got %d", c.Cells))
	case c.Owners <= 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("owners must be positive, got %d", c.Owners))
	case c.Watchers < 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("watchers must not be negative, got %d", c.Watchers))
	case c.Iterations <= 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("iterations must be positive, got %d", c.Iterations))
	case c.WeakLimit < 0:
		return errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("weak limit must not be negative, got %d", c.WeakLimit))
	case c.WeakLimit > 0 && c.WeakLimit < 2*c.Watchers:
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("weak limit %d too small for %d watchers, need %d", c.WeakLimit, c.Watchers, 2*c.Watchers))
	case c.ReportInterval < 0:
		return errors.InvalidInput(errors.PhaseConfig, "report interval must not be negative")
	}
	return nil
}

// Total returns the number of worker operations a run performs.
func (c Config) Total() uint64 {
	return uint64(c.Owners+c.Watchers) * uint64(c.Iterations)
}
