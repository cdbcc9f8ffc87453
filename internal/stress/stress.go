// Package stress drives strong and weak references from many goroutines and
// checks that every cell is destroyed exactly once and never used after.
package stress

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/triggerfish/errors"
	"github.com/wippyai/triggerfish/ref"
	"github.com/wippyai/triggerfish/registry"
)

// copyEvery is how often a watcher copies its weak instead of upgrading.
const copyEvery = 16

// Progress is a snapshot of a running stress test.
type Progress struct {
	Done  uint64
	Total uint64
}

// Fraction returns Done/Total in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// Observer receives progress reports. It is called from a single
// goroutine at a time.
type Observer interface {
	OnProgress(Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

func (f ObserverFunc) OnProgress(p Progress) { f(p) }

// Stats summarizes a finished run.
type Stats struct {
	Cells          int
	Retains        uint64
	Releases       uint64
	Upgrades       uint64
	FailedUpgrades uint64
	Copies         uint64
	DeadCopies     uint64
	Destroyed      uint64
	Violations     uint64
	Duration       time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("cells=%d retains=%d releases=%d upgrades=%d failed_upgrades=%d copies=%d dead_copies=%d destroyed=%d violations=%d in %s",
		s.Cells, s.Retains, s.Releases, s.Upgrades, s.FailedUpgrades, s.Copies, s.DeadCopies, s.Destroyed, s.Violations, s.Duration)
}

// ErrViolation is returned when a run observes use after destruction,
// a double destruction, or a cell that was never destroyed.
var ErrViolation = errors.InvalidState(errors.PhaseStrong, "reference invariant violated")

type payload struct {
	index int
	freed atomic.Bool
}

type counters struct {
	done           atomic.Uint64
	retains        atomic.Uint64
	releases       atomic.Uint64
	upgrades       atomic.Uint64
	failedUpgrades atomic.Uint64
	copies         atomic.Uint64
	deadCopies     atomic.Uint64
	destroyed      atomic.Uint64
	violations     atomic.Uint64
}

// Run executes one stress run. obs may be nil.
func Run(ctx context.Context, cfg Config, obs Observer) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	log := ref.Logger().Named("stress")
	start := time.Now()

	var c counters
	cells, err := newCells(cfg, &c)
	if err != nil {
		return Stats{}, err
	}

	weaks := make([][]*ref.Weak[payload], cfg.Watchers)
	for i := range weaks {
		weaks[i] = make([]*ref.Weak[payload], len(cells))
		for j, s := range cells {
			w, err := ref.WeakOf(s)
			if err != nil {
				destroyAll(weaks)
				releaseAll(cells)
				return Stats{}, err
			}
			weaks[i][j] = w
		}
	}

	// Each owner holds its own reference to every cell; the roots are
	// dropped once the owners are running.
	for range cfg.Owners {
		for _, s := range cells {
			if err := s.Retain(); err != nil {
				panic(err)
			}
		}
	}

	log.Debug("stress run starting",
		zap.Int("cells", cfg.Cells),
		zap.Int("owners", cfg.Owners),
		zap.Int("watchers", cfg.Watchers),
		zap.Int("iterations", cfg.Iterations),
		zap.Int("weak_limit", cfg.WeakLimit))

	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Owners {
		g.Go(func() error {
			return runOwner(gctx, i, cfg, cells, &c)
		})
	}
	for i := range cfg.Watchers {
		g.Go(func() error {
			return runWatcher(gctx, i, cfg, weaks[i], &c)
		})
	}
	releaseAll(cells)

	stop := make(chan struct{})
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		report(cfg, obs, &c, stop)
	}()

	runErr := g.Wait()
	close(stop)
	<-reported

	stats := Stats{
		Cells:          len(cells),
		Retains:        c.retains.Load(),
		Releases:       c.releases.Load(),
		Upgrades:       c.upgrades.Load(),
		FailedUpgrades: c.failedUpgrades.Load(),
		Copies:         c.copies.Load(),
		DeadCopies:     c.deadCopies.Load(),
		Destroyed:      c.destroyed.Load(),
		Duration:       time.Since(start),
	}

	for _, s := range cells {
		if s.Count() != 0 {
			c.violations.Add(1)
			log.Error("cell not destroyed", zap.Stringer("cell", s.ID()), zap.Uint64("count", s.Count()))
		}
	}
	if stats.Destroyed != uint64(len(cells)) {
		c.violations.Add(1)
	}
	stats.Violations = c.violations.Load()

	if runErr != nil {
		return stats, runErr
	}
	if stats.Violations > 0 {
		log.Error("stress run failed", zap.Stringer("stats", stats))
		return stats, errors.New(errors.PhaseStrong, errors.KindInvalidState).
			Value(stats.Violations).
			Detail("%d reference invariant violations", stats.Violations).
			Cause(ErrViolation).
			Build()
	}

	log.Info("stress run finished", zap.Stringer("stats", stats))
	return stats, nil
}

func newCells(cfg Config, c *counters) ([]*ref.Strong[payload], error) {
	var opts []ref.Option[payload]
	if cfg.WeakLimit > 0 {
		opts = append(opts, ref.WithRegistry(registry.BoundedFactory[*ref.Weak[payload]](cfg.WeakLimit)))
	}

	cells := make([]*ref.Strong[payload], cfg.Cells)
	for i := range cells {
		s, err := ref.Of(&payload{index: i}, func(p *payload) {
			if p.freed.Swap(true) {
				c.violations.Add(1)
			}
			c.destroyed.Add(1)
		}, opts...)
		if err != nil {
			releaseAll(cells[:i])
			return nil, err
		}
		cells[i] = s
	}
	return cells, nil
}

func runOwner(ctx context.Context, id int, cfg Config, cells []*ref.Strong[payload], c *counters) error {
	defer releaseAll(cells)

	for it := range cfg.Iterations {
		if it%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s := cells[(id+it)%len(cells)]
		if err := s.Retain(); err != nil {
			// This owner still holds a reference.
			c.violations.Add(1)
			c.done.Add(1)
			continue
		}
		c.retains.Add(1)
		checkLive(s, c)
		if err := s.Release(); err == nil {
			c.releases.Add(1)
		}
		c.done.Add(1)
	}
	return nil
}

func runWatcher(ctx context.Context, id int, cfg Config, weaks []*ref.Weak[payload], c *counters) error {
	defer func() {
		for _, w := range weaks {
			_ = w.Destroy()
		}
	}()

	for it := range cfg.Iterations {
		if it%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		w := weaks[(id+it)%len(weaks)]

		if it%copyEvery == copyEvery-1 {
			cp, err := w.Copy()
			if err != nil {
				return err
			}
			c.copies.Add(1)
			if !cp.Alive() {
				c.deadCopies.Add(1)
			}
			_ = cp.Destroy()
			c.done.Add(1)
			continue
		}

		s, err := w.Upgrade()
		if err != nil {
			c.failedUpgrades.Add(1)
			c.done.Add(1)
			continue
		}
		c.upgrades.Add(1)
		checkLive(s, c)
		_ = s.Release()
		c.done.Add(1)
	}
	return nil
}

// checkLive records a violation if the payload of a held reference has
// already been destroyed.
func checkLive(s *ref.Strong[payload], c *counters) {
	p, err := s.Instance()
	if err != nil || p.freed.Load() {
		c.violations.Add(1)
	}
}

func report(cfg Config, obs Observer, c *counters, stop <-chan struct{}) {
	if obs == nil {
		<-stop
		return
	}
	total := cfg.Total()
	if cfg.ReportInterval > 0 {
		ticker := time.NewTicker(cfg.ReportInterval)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-ticker.C:
				obs.OnProgress(Progress{Done: c.done.Load(), Total: total})
			case <-stop:
				break loop
			}
		}
	} else {
		<-stop
	}
	obs.OnProgress(Progress{Done: c.done.Load(), Total: total})
}

func releaseAll(cells []*ref.Strong[payload]) {
	for _, s := range cells {
		_ = s.Release()
	}
}

func destroyAll(weaks [][]*ref.Weak[payload]) {
	for _, ws := range weaks {
		for _, w := range ws {
			_ = w.Destroy()
		}
	}
}
