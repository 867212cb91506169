// Package watchdog runs the background safety net of a run session. It
// polls from its own goroutine and only reads the two timestamps of Clocks,
// so it still fires when the host's update loop is frozen. Firing
// terminates the process.
package watchdog

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Defaults for Config.
const (
	DefaultInterval        = time.Second
	DefaultTransitionLimit = 30 * time.Second
	DefaultGrace           = 10 * time.Second
)

// Clocks is the only state shared between the update loop and the
// watchdog goroutine. A zero timestamp means the clock is not running.
type Clocks struct {
	transition atomic.Int64
	scenario   atomic.Int64
	timeout    atomic.Int64
}

// BeginTransition starts the mode transition clock.
func (c *Clocks) BeginTransition(now time.Time) { c.transition.Store(now.UnixNano()) }

// EndTransition stops the mode transition clock.
func (c *Clocks) EndTransition() { c.transition.Store(0) }

// BeginScenario starts the scenario clock with the scenario's timeout.
func (c *Clocks) BeginScenario(now time.Time, timeout time.Duration) {
	c.timeout.Store(int64(timeout))
	c.scenario.Store(now.UnixNano())
}

// EndScenario stops the scenario clock.
func (c *Clocks) EndScenario() { c.scenario.Store(0) }

// Reset stops both clocks.
func (c *Clocks) Reset() {
	c.EndTransition()
	c.EndScenario()
}

// Transition returns when the running transition started.
func (c *Clocks) Transition() (time.Time, bool) {
	ns := c.transition.Load()
	if ns == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

// Scenario returns when the running scenario started and its timeout.
func (c *Clocks) Scenario() (time.Time, time.Duration, bool) {
	ns := c.scenario.Load()
	if ns == 0 {
		return time.Time{}, 0, false
	}
	return time.Unix(0, ns), time.Duration(c.timeout.Load()), true
}

// Config configures a Watchdog.
type Config struct {
	Clock           clock.WithTicker
	Interval        time.Duration
	TransitionLimit time.Duration
	Grace           time.Duration // added to the scenario timeout
	Terminate       func(code int)
	Logger          *zap.Logger
}

// Watchdog polls Clocks and terminates the process once a clock has run
// past its outer limit.
type Watchdog struct {
	cfg    Config
	clocks *Clocks
	log    *zap.SugaredLogger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
	fired     atomic.Bool
}

// New creates a watchdog over clocks. Terminate defaults to os.Exit.
func New(clocks *Clocks, cfg Config) *Watchdog {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.TransitionLimit <= 0 {
		cfg.TransitionLimit = DefaultTransitionLimit
	}
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.Terminate == nil {
		cfg.Terminate = os.Exit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Watchdog{
		cfg:    cfg,
		clocks: clocks,
		log:    cfg.Logger.Sugar(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Check returns a core.ErrHostFrozen error when a clock is past its limit
// at now.
func (w *Watchdog) Check(now time.Time) error {
	if start, ok := w.clocks.Transition(); ok {
		if elapsed := now.Sub(start); elapsed > w.cfg.TransitionLimit {
			return core.ErrHostFrozen.WithMessagef("Play mode transition exceeded %.0fs (elapsed %.0fs)",
				w.cfg.TransitionLimit.Seconds(), elapsed.Seconds())
		}
	}
	if start, timeout, ok := w.clocks.Scenario(); ok {
		limit := timeout + w.cfg.Grace
		if elapsed := now.Sub(start); elapsed > limit {
			return core.ErrHostFrozen.WithMessagef("Test exceeded %.0fs timeout + %.0fs grace (elapsed %.0fs)",
				timeout.Seconds(), w.cfg.Grace.Seconds(), elapsed.Seconds())
		}
	}
	return nil
}

// Start launches the polling goroutine. Later calls do nothing.
func (w *Watchdog) Start() {
	w.startOnce.Do(func() {
		go w.loop()
	})
}

func (w *Watchdog) loop() {
	defer close(w.done)
	ticker := w.cfg.Clock.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C():
			err := w.Check(w.cfg.Clock.Now())
			if err == nil {
				continue
			}
			w.fired.Store(true)
			w.log.Errorf("[UITEST] Background watchdog: %v, assuming the host is frozen", err)
			_ = w.log.Sync()
			w.cfg.Terminate(1)
			return
		}
	}
}

// Stop ends the polling goroutine and waits for it. Safe to call more than
// once and before Start.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	// a watchdog that never started has no goroutine to wait for
	w.startOnce.Do(func() { close(w.done) })
	<-w.done
}

// Fired reports whether the watchdog has called Terminate.
func (w *Watchdog) Fired() bool { return w.fired.Load() }
