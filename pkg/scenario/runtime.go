package scenario

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/finder"
	"github.com/oddgames/ui-automation/pkg/host"
	"github.com/oddgames/ui-automation/pkg/input"
	"github.com/oddgames/ui-automation/pkg/task"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// Sink receives the steps, attachments and parameters a scenario reports.
type Sink interface {
	StepStarted(name string, at time.Time)
	StepFinished(name string, d time.Duration, err error)
	Attach(a core.Attachment)
	Parameter(name, value string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) StepStarted(string, time.Time) {}

func (NopSink) StepFinished(string, time.Duration, error) {}

func (NopSink) Attach(core.Attachment) {}

func (NopSink) Parameter(string, string) {}

// Env is what a runtime needs from the session. Host, Scheduler, Finder
// and Input are required.
type Env struct {
	Host        host.Host
	Scheduler   *task.Scheduler
	Clock       clock.PassiveClock
	Finder      *finder.Finder
	Input       *input.Simulator
	Tracker     *SceneTracker // created by Start when nil
	Fixtures    FixtureProvider
	Screenshots core.Screenshotter
	Sink        Sink
	Logger      *zap.Logger
	Rand        *rand.Rand
	Vars        map[string]string
}

// Runtime executes one scenario. It moves from NotStarted to Running in
// Start and to a terminal status when the body returns; it pumps the
// scheduler from the host's update loop while running.
type Runtime struct {
	desc Descriptor
	body Body
	env  Env
	log  *zap.SugaredLogger

	status  core.ScenarioStatus
	managed bool
	task    *task.Task
	cancel  context.CancelFunc
	unbind  func()

	tracker     *SceneTracker
	ownsTracker bool

	err      error
	abort    error
	started  time.Time
	duration time.Duration
	done     chan struct{}
}

// NewRuntime creates a runtime for desc.
func NewRuntime(desc Descriptor, body Body, env Env) *Runtime {
	if env.Clock == nil {
		env.Clock = clock.RealClock{}
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if env.Fixtures == nil {
		env.Fixtures = NopFixtures{}
	}
	if env.Sink == nil {
		env.Sink = NopSink{}
	}
	if env.Rand == nil {
		seed := uint64(env.Clock.Now().UnixNano())
		env.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Runtime{
		desc: desc,
		body: body,
		env:  env,
		log:  env.Logger.Sugar(),
		done: make(chan struct{}),
	}
}

// Descriptor returns the scenario's descriptor.
func (r *Runtime) Descriptor() Descriptor { return r.desc }

// Status returns the current status.
func (r *Runtime) Status() core.ScenarioStatus { return r.status }

// Err returns the body's error once the runtime has finished.
func (r *Runtime) Err() error { return r.err }

// Done is closed when the runtime reaches a terminal status.
func (r *Runtime) Done() <-chan struct{} { return r.done }

// Finished reports whether the runtime reached a terminal status.
func (r *Runtime) Finished() bool { return r.status.IsTerminal() }

// Start runs the body when hs selects this scenario. Any other runtime
// discards itself and Start returns false.
func (r *Runtime) Start(ctx context.Context, hs host.Handshake) bool {
	if r.status != core.StatusNotStarted {
		return false
	}
	if r.desc.ID == 0 || r.desc.ID != hs.ScenarioID {
		r.log.Debugf("[UITEST] %s not selected (handshake scenario %d)", r.desc.Name, hs.ScenarioID)
		return false
	}
	r.managed = hs.Managed

	r.tracker = r.env.Tracker
	if r.tracker == nil {
		r.tracker = NewSceneTracker(r.env.Host.Graph(), r.env.Clock, r.env.Logger)
		r.ownsTracker = true
	}

	if err := r.env.Fixtures.Prepare(r.desc); err != nil {
		r.log.Errorf("[UITEST] Failed to prepare test data: %v", err)
	}

	scope, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.status = core.StatusRunning
	r.started = r.env.Clock.Now()
	r.log.Infof("[UITEST] Test Start: %s", r.desc.Name)

	t := &T{rt: r, log: r.log}
	r.task = r.env.Scheduler.Spawn(scope, r.desc.Name, func(co *task.Co) error {
		t.co = co
		return r.body(t)
	})
	r.unbind = r.env.Host.OnUpdate(r.Tick)
	return true
}

// Tick pumps the scheduler once and finishes the runtime when the body has
// returned. It is registered as a host update listener by Start.
func (r *Runtime) Tick() {
	if r.status != core.StatusRunning {
		return
	}
	r.env.Scheduler.Tick()
	if r.task.Finished() {
		r.finish()
	}
}

// Cancel cancels the scenario scope. The body observes it on its next
// resume and the scenario ends Cancelled.
func (r *Runtime) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Fail cancels the scenario scope and records err as its outcome.
func (r *Runtime) Fail(err error) {
	if r.status != core.StatusRunning {
		return
	}
	if r.abort == nil {
		r.abort = err
	}
	r.Cancel()
}

// Close drains a running body synchronously and finishes the runtime.
func (r *Runtime) Close() {
	if r.status != core.StatusRunning {
		return
	}
	r.Cancel()
	r.env.Scheduler.Close()
	r.finish()
}

func (r *Runtime) finish() {
	r.err = r.task.Err()
	if !r.task.Finished() {
		r.err = core.ErrCancelled
	}
	if r.abort != nil {
		r.err = r.abort
	}
	r.cancel()
	r.duration = r.env.Clock.Since(r.started)
	if r.unbind != nil {
		r.unbind()
		r.unbind = nil
	}
	if r.ownsTracker {
		r.tracker.Close()
	}

	r.status = core.StatusFor(r.err)
	switch r.status {
	case core.StatusPassed:
		r.log.Infof("[UITEST] Test PASSED: %s", r.desc.Name)
	case core.StatusCancelled:
		r.log.Infof("[UITEST] Test CANCELLED: %s", r.desc.Name)
	default:
		var pe *task.PanicError
		if errors.As(r.err, &pe) {
			r.log.Errorf("[UITEST] %v\n%s", pe, pe.Stack)
		} else {
			r.log.Errorf("[UITEST] %v", r.err)
		}
		r.log.Infof("[UITEST] Test FAILED: %s", r.desc.Name)
	}
	r.log.Infof("[UITEST] Test End: %s", r.desc.Name)
	close(r.done)

	h := r.env.Host
	if !r.managed && h.Headless() {
		code := 0
		if !r.status.IsSuccess() {
			code = 1
		}
		h.Quit(code)
		return
	}
	h.ExitInteractive()
}

// Result returns the scenario result. Before the runtime has finished it
// reflects the current status.
func (r *Runtime) Result() core.ScenarioResult {
	res := r.desc.Result()
	res.Status = r.status
	res.StartTime = r.started
	res.Duration = r.duration
	if r.status == core.StatusRunning {
		res.Duration = r.env.Clock.Since(r.started)
	}
	if r.err != nil {
		res.Category = core.CategoryOf(r.err)
		res.Error = r.err.Error()
		var pe *task.PanicError
		if errors.As(r.err, &pe) {
			res.Trace = pe.Stack
		}
	}
	return res
}
