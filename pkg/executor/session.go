package executor

import (
	"context"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/host"
	"github.com/oddgames/ui-automation/pkg/report"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/watchdog"
	"go.uber.org/zap"
)

// Phase is the orchestrator's state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDiscovering
	PhaseAwaitingInteractive
	PhaseExecuting
	PhaseAwaitingAuthoring
)

func (p Phase) String() string {
	switch p {
	case PhaseDiscovering:
		return "discovering"
	case PhaseAwaitingInteractive:
		return "awaiting_interactive"
	case PhaseExecuting:
		return "executing"
	case PhaseAwaitingAuthoring:
		return "awaiting_authoring"
	default:
		return "idle"
	}
}

// current is the in-flight scenario. It lives from dequeue to
// finalization.
type current struct {
	desc    scenario.Descriptor
	index   int
	bundle  *report.Bundle
	logger  *zap.Logger
	runtime *scenario.Runtime
	detach  func()
	video   string

	// result overrides the runtime result when the scenario never ran
	result *core.ScenarioResult
}

// session is the run session state. It is created by Start and torn down
// when the queue empties; only the update loop touches it, except for
// clocks which the background watchdog reads.
type session struct {
	runID string
	start time.Time
	queue []scenario.Descriptor
	total int

	failed  bool
	stopped bool

	clocks   *watchdog.Clocks
	watchdog *watchdog.Watchdog

	// waiting for a host mode transition
	waiting         bool
	transitionStart time.Time
	transitionInto  string

	// handshake to retry while the host refuses the mode change
	launch *host.Handshake

	// running scenario clock
	scenarioStart time.Time
	timeout       time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	cur     *current
	index   *report.IndexWriter
	details map[int]*report.ScenarioDetail
	result  core.SuiteResult

	unsubscribe []func()
}

// dequeue pops the next descriptor.
func (s *session) dequeue() (scenario.Descriptor, int, bool) {
	if len(s.queue) == 0 {
		return scenario.Descriptor{}, 0, false
	}
	d := s.queue[0]
	s.queue = s.queue[1:]
	return d, s.total - len(s.queue) - 1, true
}

// beginTransition starts the transition clock for a change into target.
func (s *session) beginTransition(now time.Time, target string) {
	s.waiting = true
	s.transitionStart = now
	s.transitionInto = target
	s.clocks.BeginTransition(now)
}

// endTransition stops the transition clock and returns how long it ran.
func (s *session) endTransition(now time.Time) time.Duration {
	d := now.Sub(s.transitionStart)
	s.waiting = false
	s.transitionStart = time.Time{}
	s.transitionInto = ""
	s.clocks.EndTransition()
	return d
}

// beginScenario starts the scenario clock.
func (s *session) beginScenario(now time.Time, timeout time.Duration) {
	s.scenarioStart = now
	s.timeout = timeout
	s.clocks.BeginScenario(now, timeout)
}

// endScenario stops the scenario clock.
func (s *session) endScenario() {
	s.scenarioStart = time.Time{}
	s.timeout = 0
	s.clocks.EndScenario()
}

// reset returns every per-scenario field to its neutral value.
func (s *session) reset() {
	s.waiting = false
	s.transitionStart = time.Time{}
	s.transitionInto = ""
	s.launch = nil
	s.endScenario()
	s.clocks.Reset()
	s.cur = nil
}
