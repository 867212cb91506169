package input

import (
	"time"

	"github.com/oddgames/ui-automation/pkg/task"
	"k8s.io/utils/clock"
)

// DefaultInterval is the minimum gap between two simulated actions.
const DefaultInterval = 500 * time.Millisecond

// Pacer enforces the minimum gap between simulated actions. The gap runs
// from the completion of one action to the start of the next. A Pacer is
// shared by every scenario runtime of a session and is only touched from
// the update loop.
type Pacer struct {
	clock    clock.PassiveClock
	interval time.Duration
	last     time.Time
	acted    bool
}

// NewPacer creates a pacer reading time from clk.
func NewPacer(clk clock.PassiveClock, interval time.Duration) *Pacer {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Pacer{clock: clk, interval: interval}
}

// Interval returns the configured gap.
func (p *Pacer) Interval() time.Duration { return p.interval }

// SetInterval changes the gap for subsequent waits.
func (p *Pacer) SetInterval(d time.Duration) { p.interval = d }

// Wait suspends until the gap since the last completed action has elapsed.
func (p *Pacer) Wait(co *task.Co) error {
	if !p.acted {
		return co.Err()
	}
	for p.clock.Since(p.last) < p.interval {
		if err := co.Yield(); err != nil {
			return err
		}
	}
	return co.Err()
}

// Done records that an action just completed.
func (p *Pacer) Done() {
	p.last = p.clock.Now()
	p.acted = true
}

// Reset forgets the last action.
func (p *Pacer) Reset() {
	p.acted = false
	p.last = time.Time{}
}
