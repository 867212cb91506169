// Package task runs cooperative bodies on goroutines that hand control back
// and forth with a single pump. Exactly one body runs at a time, and only
// while the pump is inside Tick, so bodies may touch loop-owned state
// without locks.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"k8s.io/utils/clock"
)

// drainLimit bounds how many resumes Close spends on a cancelled task.
const drainLimit = 1000

// PanicError is returned by a task whose body panicked.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Co is the handle a body uses to suspend itself.
type Co struct {
	ctx   context.Context
	clock clock.PassiveClock
	t     *Task
}

// Context returns the task's cancellation scope.
func (c *Co) Context() context.Context { return c.ctx }

// Now returns the scheduler clock's time.
func (c *Co) Now() time.Time { return c.clock.Now() }

// Since returns the time elapsed since t on the scheduler clock.
func (c *Co) Since(t time.Time) time.Duration { return c.clock.Since(t) }

// Err returns ErrCancelled once the scope is done.
func (c *Co) Err() error { return core.Cancelled(c.ctx) }

// Yield suspends the body until the next Tick.
func (c *Co) Yield() error {
	if err := c.Err(); err != nil {
		return err
	}
	c.t.yield <- struct{}{}
	<-c.t.resume
	return c.Err()
}

// Sleep yields until d has elapsed on the scheduler clock.
func (c *Co) Sleep(d time.Duration) error {
	deadline := c.clock.Now().Add(d)
	for c.clock.Now().Before(deadline) {
		if err := c.Yield(); err != nil {
			return err
		}
	}
	return c.Err()
}

// Until yields until pred returns true, evaluating it at most once per poll.
func (c *Co) Until(pred func() bool, poll time.Duration) error {
	var last time.Time
	checked := false
	for {
		if err := c.Err(); err != nil {
			return err
		}
		if now := c.Now(); !checked || now.Sub(last) >= poll {
			checked = true
			last = now
			if pred() {
				return nil
			}
		}
		if err := c.Yield(); err != nil {
			return err
		}
	}
}

// Task is a future for one body.
type Task struct {
	name   string
	fn     func(*Co) error
	co     *Co
	cancel context.CancelFunc

	resume chan struct{}
	yield  chan struct{}
	done   chan struct{}

	started  bool
	finished bool
	err      error
}

// Name returns the name given at Spawn.
func (t *Task) Name() string { return t.name }

// Done is closed when the body has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the body's result. Valid once Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Finished reports whether the body has returned. Call from the pump.
func (t *Task) Finished() bool { return t.finished }

// Cancel cancels the task's scope. The body observes it on its next resume.
func (t *Task) Cancel() { t.cancel() }

func (t *Task) run() {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			t.err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	t.err = t.fn(t.co)
}

// Scheduler pumps tasks from the host update loop.
type Scheduler struct {
	clock clock.PassiveClock
	tasks []*Task
}

// NewScheduler creates a scheduler whose tasks read time from clk.
func NewScheduler(clk clock.PassiveClock) *Scheduler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Scheduler{clock: clk}
}

// Spawn registers fn to start on the next Tick, under a child scope of ctx.
func (s *Scheduler) Spawn(ctx context.Context, name string, fn func(*Co) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		name:   name,
		fn:     fn,
		cancel: cancel,
		resume: make(chan struct{}),
		yield:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	t.co = &Co{ctx: ctx, clock: s.clock, t: t}
	s.tasks = append(s.tasks, t)
	return t
}

// Tick resumes every live task once, in spawn order, and returns after each
// has yielded or finished. It returns the number of tasks still live.
func (s *Scheduler) Tick() int {
	current := s.tasks
	s.tasks = nil
	var live []*Task
	for _, t := range current {
		s.step(t)
		if t.finished {
			t.cancel()
			continue
		}
		live = append(live, t)
	}
	// tasks spawned during this tick start on the next one
	s.tasks = append(live, s.tasks...)
	return len(s.tasks)
}

// Len returns the number of live tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// Close cancels every live task and resumes it until it returns.
func (s *Scheduler) Close() {
	for _, t := range s.tasks {
		t.cancel()
		if !t.started {
			t.started = true
			t.finished = true
			t.err = core.Cancelled(t.co.ctx)
			close(t.done)
			continue
		}
		for i := 0; i < drainLimit && !t.finished; i++ {
			s.step(t)
		}
	}
	s.tasks = nil
}

func (s *Scheduler) step(t *Task) {
	if t.finished {
		return
	}
	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.resume <- struct{}{}
	}
	select {
	case <-t.yield:
	case <-t.done:
		t.finished = true
	}
}
