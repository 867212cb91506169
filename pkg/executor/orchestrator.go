// Package executor runs a batch of scenarios against a host, one at a time,
// through the host's mode transitions, and turns their outcomes into the
// report and the process exit code.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/finder"
	"github.com/oddgames/ui-automation/pkg/host"
	"github.com/oddgames/ui-automation/pkg/input"
	"github.com/oddgames/ui-automation/pkg/metrics"
	"github.com/oddgames/ui-automation/pkg/report"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/task"
	"github.com/oddgames/ui-automation/pkg/validator"
	"github.com/oddgames/ui-automation/pkg/watchdog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/clock"
)

// Defaults for Config.
const (
	DefaultOutputDir         = "TestResults"
	DefaultTransitionTimeout = 30 * time.Second
	VideoFile                = "video.mp4"
)

// ErrRunning is returned by Start while a run is in progress.
var ErrRunning = errors.New("executor: a run is already in progress")

// Config configures an Orchestrator.
type Config struct {
	OutputDir   string // Report output directory
	Selected    int    // Run only this scenario id; 0 runs all
	IncludeTags []string
	ExcludeTags []string

	// Timing
	TransitionTimeout time.Duration // Foreground limit for a mode change
	Grace             time.Duration // Added to the limits the background watchdog checks

	// BackgroundTransitionLimit is the background watchdog's limit for a
	// mode change. Zero means TransitionTimeout + Grace.
	BackgroundTransitionLimit time.Duration

	WatchdogInterval time.Duration // Background watchdog poll interval
	Pacing           time.Duration // Minimum gap between simulated actions

	CancelPolicy core.CancelPolicy
	Artifacts    core.ArtifactConfig

	// Collaborators
	Clock       clock.WithTicker
	Terminate   func(code int) // Called by the background watchdog; defaults to os.Exit
	Metrics     *metrics.Metrics
	MetricsFile string // Defaults to <OutputDir>/metrics.prom
	Recorder    core.Recorder
	Screenshots core.Screenshotter
	Fixtures    scenario.FixtureProvider
	Vars        map[string]string
	Logger      *zap.Logger

	// Capture attaches a core to the process log for the duration of a
	// scenario. When nil only the orchestrator's and the scenario's own
	// log lines are captured.
	Capture func(zapcore.Core) (detach func())

	// Runner metadata
	RunnerVersion string
	HostName      string

	// Live progress callbacks
	OnScenarioStart func(idx, total int, desc scenario.Descriptor)
	OnScenarioEnd   func(idx, total int, res core.ScenarioResult)
}

// Orchestrator sequences the registered scenarios through the host. Start,
// and every callback it registers, run on the host's update loop.
type Orchestrator struct {
	host     host.Host
	registry *scenario.Registry
	cfg      Config
	base     *zap.Logger
	log      *zap.SugaredLogger

	phase  Phase
	sess   *session
	pacer  *input.Pacer
	finder *finder.Finder
	input  *input.Simulator

	done     chan struct{}
	result   *core.SuiteResult
	exitCode int
}

// New creates an orchestrator for the scenarios in reg.
func New(h host.Host, reg *scenario.Registry, cfg Config) *Orchestrator {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.TransitionTimeout <= 0 {
		cfg.TransitionTimeout = DefaultTransitionTimeout
	}
	if cfg.Grace <= 0 {
		cfg.Grace = watchdog.DefaultGrace
	}
	if cfg.BackgroundTransitionLimit <= 0 {
		cfg.BackgroundTransitionLimit = cfg.TransitionTimeout + cfg.Grace
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = watchdog.DefaultInterval
	}
	if cfg.Pacing <= 0 {
		cfg.Pacing = input.DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Terminate == nil {
		cfg.Terminate = os.Exit
	}
	if cfg.MetricsFile == "" {
		cfg.MetricsFile = filepath.Join(cfg.OutputDir, metrics.DefaultTextfile)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = core.NullArtifactCollector{}
	}
	if cfg.Fixtures == nil {
		cfg.Fixtures = scenario.NopFixtures{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	done := make(chan struct{})
	close(done)
	return &Orchestrator{
		host:     h,
		registry: reg,
		cfg:      cfg,
		base:     cfg.Logger,
		log:      cfg.Logger.Sugar(),
		done:     done,
	}
}

// Phase returns the current state.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Done is closed when the current run has torn down. Before the first
// Start it is already closed.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Result returns the last finished run's result, or nil.
func (o *Orchestrator) Result() *core.SuiteResult { return o.result }

// ExitCode returns the last finished run's exit code.
func (o *Orchestrator) ExitCode() int { return o.exitCode }

// Start validates the registry, writes the report skeleton and launches
// the first scenario. A validation error is fatal: nothing runs and the
// error is returned.
func (o *Orchestrator) Start() error {
	if o.phase != PhaseIdle {
		return ErrRunning
	}
	o.phase = PhaseDiscovering
	o.log.Infof("[UITestRunner] ===== Starting UI Test Runner =====")
	o.log.Infof("[UITestRunner] Host: %s, Headless: %v", o.cfg.HostName, o.host.Headless())
	o.log.Infof("[UITestRunner] Output Directory: %s", o.cfg.OutputDir)

	v := validator.New(o.cfg.Selected, o.cfg.IncludeTags, o.cfg.ExcludeTags)
	res := v.Validate(o.registry.Descriptors())
	if err := res.Err(); err != nil {
		o.phase = PhaseIdle
		o.log.Errorf("[UITestRunner] %v", err)
		return err
	}
	o.log.Infof("[UITestRunner] Found %d UI test(s) to run", len(res.Scenarios))

	now := o.cfg.Clock.Now()
	s := &session{
		runID:   uuid.NewString(),
		start:   now,
		queue:   res.Scenarios,
		total:   len(res.Scenarios),
		clocks:  &watchdog.Clocks{},
		details: make(map[int]*report.ScenarioDetail, len(res.Scenarios)),
	}
	s.result = core.SuiteResult{Name: "uitest", RunID: s.runID, StartTime: now}

	index, details := report.BuildSkeleton(res.Scenarios, report.BuilderConfig{
		OutputDir:     o.cfg.OutputDir,
		RunID:         s.runID,
		RunnerVersion: o.cfg.RunnerVersion,
		HostName:      o.cfg.HostName,
		CancelPolicy:  o.cfg.CancelPolicy.String(),
		StartTime:     now,
	})
	if err := report.WriteSkeleton(o.cfg.OutputDir, index, details); err != nil {
		o.phase = PhaseIdle
		return fmt.Errorf("write report skeleton: %w", err)
	}
	for i := range details {
		s.details[details[i].ID] = &details[i]
	}
	s.index = report.NewIndexWriter(o.cfg.OutputDir, index, o.cfg.Clock, o.base)
	s.index.Start()
	s.ctx, s.cancel = context.WithCancel(context.Background())

	o.pacer = input.NewPacer(o.cfg.Clock, o.cfg.Pacing)
	o.finder = finder.New(o.host.Graph(), o.host.Arbiter(), o.base)
	o.input = input.NewSimulator(o.pacer, o.host.Arbiter(), o.host.Screen(), o.base)

	// by default the outer limits are coarser than the foreground ones, so
	// a live loop gets to fail a scenario gracefully first
	s.watchdog = watchdog.New(s.clocks, watchdog.Config{
		Clock:           o.cfg.Clock,
		Interval:        o.cfg.WatchdogInterval,
		TransitionLimit: o.cfg.BackgroundTransitionLimit,
		Grace:           o.cfg.Grace,
		Terminate:       o.terminate,
		Logger:          o.base,
	})
	s.unsubscribe = append(s.unsubscribe,
		o.host.OnUpdate(o.tick),
		o.host.OnTransition(o.onTransition),
	)

	o.sess = s
	o.done = make(chan struct{})
	if m := o.cfg.Metrics; m != nil {
		m.QueueLength.Set(float64(len(s.queue)))
	}
	s.watchdog.Start()

	o.next()
	return nil
}

// terminate runs on the watchdog goroutine. It must not touch the session.
func (o *Orchestrator) terminate(code int) {
	if m := o.cfg.Metrics; m != nil {
		m.Watchdog(metrics.Background, metrics.ReasonFrozen)
		_ = m.WriteTextfile(o.cfg.MetricsFile)
	}
	o.cfg.Terminate(code)
}

// Stop aborts the run: the running scenario is cancelled and the rest of
// the queue is skipped. Safe to call from any goroutine.
func (o *Orchestrator) Stop() {
	o.host.Post(o.stop)
}

func (o *Orchestrator) stop() {
	s := o.sess
	if s == nil || s.stopped {
		return
	}
	o.log.Warnf("[UITestRunner] Stop requested - cancelling %d pending test(s)", len(s.queue))
	s.stopped = true
	s.queue = nil
	s.cancel()
}

// ============================================================================
// QUEUE
// ============================================================================

func (o *Orchestrator) next() {
	s := o.sess
	if s == nil {
		return
	}
	o.log.Infof("[UITestRunner] RunNextTest called. Pending: %d", len(s.queue))

	desc, idx, ok := s.dequeue()
	if !ok {
		o.teardown()
		return
	}
	if m := o.cfg.Metrics; m != nil {
		m.QueueLength.Set(float64(len(s.queue)))
	}
	o.log.Infof("[UITestRunner] Running next test. Remaining: %d", len(s.queue))
	o.runSingle(desc, idx)
}

func (o *Orchestrator) runSingle(desc scenario.Descriptor, idx int) {
	s := o.sess
	cur := &current{
		desc:   desc,
		index:  idx,
		bundle: report.NewBundle(s.details[desc.ID], o.cfg.OutputDir, s.index, o.cfg.Clock, o.base),
	}
	cur.logger = cur.bundle.Wrap(o.base)
	if o.cfg.Capture != nil {
		cur.detach = o.cfg.Capture(cur.bundle.Core())
		cur.logger = o.base
	}
	s.cur = cur
	if cb := o.cfg.OnScenarioStart; cb != nil {
		cb(idx, s.total, desc)
	}

	log := cur.logger.Sugar()
	log.Infof("[UITestRunner] Starting: %s (Scenario %d)", desc.Name, desc.ID)
	log.Infof("[UITestRunner] Test timeout set to %.0f seconds", desc.EffectiveTimeout().Seconds())

	hs := host.Handshake{
		Managed:      true,
		ScenarioID:   desc.ID,
		ScenarioName: desc.Name,
		RunID:        s.runID,
	}
	log.Infof("[UITestRunner] Handshake set - scenario=%d, name=%s", hs.ScenarioID, hs.ScenarioName)

	o.phase = PhaseAwaitingInteractive
	s.beginTransition(o.cfg.Clock.Now(), host.Interactive.String())
	o.launch(hs)
}

// launch asks the host for interactive mode. A busy host is asked again on
// every update until the transition limit runs out.
func (o *Orchestrator) launch(hs host.Handshake) {
	s := o.sess
	log := s.cur.logger.Sugar()
	err := o.host.EnterInteractive(hs)
	switch {
	case err == nil:
		s.launch = nil
		log.Infof("[UITestRunner] Waiting for interactive mode transition")
	case errors.Is(err, host.ErrBusy):
		if s.launch == nil {
			log.Warnf("[UITestRunner] Host is busy - waiting to enter interactive mode")
		}
		s.launch = &hs
	default:
		log.Errorf("[UITestRunner] Test setup failed: %v", err)
		o.abandon(core.ErrFault.WithMessage("test setup failed").WithCause(err))
	}
}

// abandon fails the current scenario without running it any further,
// finalizes it and moves on through the dequeue path on a later tick.
func (o *Orchestrator) abandon(err error) {
	s := o.sess
	cur := s.cur
	s.failed = true

	if cur.runtime == nil || !cur.runtime.Finished() {
		res := cur.desc.Result()
		res.Status = core.StatusFailed
		res.Category = core.CategoryOf(err)
		res.Error = err.Error()
		res.StartTime = s.transitionStart
		if cur.runtime != nil {
			res.StartTime = cur.runtime.Result().StartTime
		}
		res.Duration = o.cfg.Clock.Since(res.StartTime)
		cur.result = &res
	}
	if cur.video != "" {
		o.cfg.Recorder.CancelRecording()
		cur.video = ""
	}

	o.finalize()
	o.phase = PhaseAwaitingAuthoring
	o.host.Post(o.next)
}

// ============================================================================
// HOST CALLBACKS
// ============================================================================

func (o *Orchestrator) onTransition(tr host.Transition) {
	if o.sess == nil {
		return
	}
	o.logger().Infof("[UITestRunner] ===== Mode transition: %s (phase %s) =====", tr.Kind, o.phase)

	switch tr.Kind {
	case host.ExitingAuthoring:
		o.logger().Infof("[UITestRunner] Exiting authoring mode - transitioning to interactive mode")
	case host.EnteredInteractive:
		o.enteredInteractive(tr.Handshake)
	case host.ExitingInteractive:
		o.leaveExecuting()
	case host.EnteredAuthoring:
		o.enteredAuthoring()
	}
}

func (o *Orchestrator) enteredInteractive(hs *host.Handshake) {
	s := o.sess
	cur := s.cur
	if o.phase != PhaseAwaitingInteractive || cur == nil || hs == nil || hs.ScenarioID != cur.desc.ID {
		o.log.Warnf("[UITestRunner] Ignoring interactive mode nobody is waiting for")
		o.host.ExitInteractive()
		return
	}
	log := cur.logger.Sugar()
	now := o.cfg.Clock.Now()
	if m := o.cfg.Metrics; m != nil {
		m.Transition(host.Interactive.String(), s.endTransition(now))
	} else {
		s.endTransition(now)
	}
	log.Infof("[UITestRunner] *** Entered interactive mode *** - starting scenario %d", hs.ScenarioID)

	desc, body, ok := o.registry.Lookup(hs.ScenarioID)
	if !ok {
		log.Errorf("[UITestRunner] Failed to find scenario %d", hs.ScenarioID)
		o.handBack(core.ErrFault.WithMessagef("scenario %d is not registered", hs.ScenarioID))
		return
	}

	if o.cfg.Artifacts.Video {
		path := filepath.Join(o.cfg.OutputDir, "assets", report.ScenarioID(desc.ID), VideoFile)
		if err := o.cfg.Recorder.StartRecording(path); err != nil {
			log.Warnf("[UITestRunner] Failed to start video recording: %v", err)
		} else {
			cur.video = path
			log.Infof("[UITestRunner] Video recording started: %s", path)
		}
	}

	rt := scenario.NewRuntime(desc, body, scenario.Env{
		Host:        o.host,
		Scheduler:   task.NewScheduler(o.cfg.Clock),
		Clock:       o.cfg.Clock,
		Finder:      o.finder,
		Input:       o.input,
		Fixtures:    o.cfg.Fixtures,
		Screenshots: o.cfg.Screenshots,
		Sink:        cur.bundle,
		Logger:      cur.logger,
		Vars:        o.cfg.Vars,
	})
	cur.runtime = rt
	cur.bundle.Start()
	o.phase = PhaseExecuting
	s.beginScenario(now, desc.EffectiveTimeout())
	if m := o.cfg.Metrics; m != nil {
		m.ScenarioStarted()
	}

	if !rt.Start(s.ctx, *hs) {
		log.Errorf("[UITestRunner] Scenario %d refused the handshake", hs.ScenarioID)
		cur.runtime = nil
		s.endScenario()
		o.handBack(core.ErrFault.WithMessagef("scenario %d did not start", hs.ScenarioID))
	}
}

// handBack fails a scenario that reached interactive mode but never ran,
// and returns the host to authoring mode.
func (o *Orchestrator) handBack(err error) {
	s := o.sess
	cur := s.cur
	res := cur.desc.Result()
	res.Status = core.StatusFailed
	res.Category = core.CategoryOf(err)
	res.Error = err.Error()
	res.StartTime = o.cfg.Clock.Now()
	cur.result = &res

	o.phase = PhaseAwaitingAuthoring
	s.beginTransition(o.cfg.Clock.Now(), host.Authoring.String())
	o.host.ExitInteractive()
}

// leaveExecuting runs once the scenario body has finished, whether the
// host reported it through ExitingInteractive or the update loop noticed
// it first.
func (o *Orchestrator) leaveExecuting() {
	s := o.sess
	cur := s.cur
	if o.phase != PhaseExecuting || cur == nil || cur.runtime == nil {
		return
	}
	rt := cur.runtime
	log := cur.logger.Sugar()
	if !rt.Finished() {
		log.Warnf("[UITestRunner] Host left interactive mode while the test was running")
		rt.Close()
		if o.phase != PhaseExecuting {
			// Close re-entered through the runtime's own exit request
			return
		}
	}

	s.endScenario()
	o.phase = PhaseAwaitingAuthoring

	if o.cfg.Screenshots != nil && o.cfg.Artifacts.ShouldScreenshot(rt.Status()) {
		if data, err := o.cfg.Screenshots.CaptureScreenshot(); err != nil {
			log.Warnf("[UITestRunner] Final screenshot failed: %v", err)
		} else if len(data) > 0 {
			cur.bundle.Attach(core.NewScreenshotAttachment("final", data))
		}
	}
	o.stopRecording(cur, rt.Status())

	log.Infof("[UITestRunner] Exiting interactive mode - waiting for authoring mode")
	s.beginTransition(o.cfg.Clock.Now(), host.Authoring.String())
	o.host.ExitInteractive()
}

func (o *Orchestrator) stopRecording(cur *current, status core.ScenarioStatus) {
	if cur.video == "" {
		return
	}
	log := cur.logger.Sugar()
	path, err := o.cfg.Recorder.StopRecording()
	if err != nil {
		log.Warnf("[UITestRunner] Failed to stop video recording: %v", err)
		cur.video = ""
		return
	}
	if path != "" {
		cur.video = path
	}
	if _, err := os.Stat(cur.video); err != nil {
		// recorders that capture nothing leave no file behind
		cur.video = ""
		return
	}
	log.Infof("[UITestRunner] Video recording stopped")

	if status.IsSuccess() && !o.cfg.Artifacts.KeepVideoOnSuccess {
		if err := os.Remove(cur.video); err != nil && !os.IsNotExist(err) {
			log.Warnf("[UITestRunner] Failed to remove video %s: %v", cur.video, err)
		}
		cur.video = ""
	}
}

func (o *Orchestrator) enteredAuthoring() {
	s := o.sess
	if s.cur == nil || o.phase != PhaseAwaitingAuthoring {
		o.log.Infof("[UITestRunner] No active test")
		return
	}
	now := o.cfg.Clock.Now()
	if m := o.cfg.Metrics; m != nil {
		m.Transition(host.Authoring.String(), s.endTransition(now))
	} else {
		s.endTransition(now)
	}
	s.cur.logger.Sugar().Infof("[UITestRunner] Entered authoring mode - finalizing test")

	o.finalize()
	o.next()
}

// tick is the foreground watchdog. It runs once per host update and
// cannot fire while the loop is stalled.
func (o *Orchestrator) tick() {
	s := o.sess
	if s == nil || s.cur == nil {
		return
	}
	now := o.cfg.Clock.Now()

	if s.waiting {
		if elapsed := now.Sub(s.transitionStart); elapsed > o.cfg.TransitionTimeout {
			o.transitionTimedOut(elapsed)
			return
		}
	}

	if s.launch != nil && o.phase == PhaseAwaitingInteractive {
		o.launch(*s.launch)
		return
	}
	if o.phase != PhaseExecuting {
		return
	}
	rt := s.cur.runtime
	if rt.Finished() {
		o.leaveExecuting()
		return
	}
	if elapsed := now.Sub(s.scenarioStart); elapsed > s.timeout {
		o.scenarioTimedOut(elapsed)
	}
}

func (o *Orchestrator) transitionTimedOut(elapsed time.Duration) {
	s := o.sess
	log := s.cur.logger.Sugar()
	into := s.transitionInto
	log.Errorf("[UITestRunner] ===== MODE TRANSITION TIMEOUT =====")
	log.Errorf("[UITestRunner] Failed to enter %s mode after %.1f seconds", into, elapsed.Seconds())
	log.Infof("[UITestRunner] mode: %s, transitioning: %v", o.host.Mode(), s.waiting)
	if m := o.cfg.Metrics; m != nil {
		m.Watchdog(metrics.Foreground, metrics.ReasonTransition)
	}
	o.abandon(core.ErrTransitionTimeout.WithMessagef("host did not enter %s mode within %.0fs", into, o.cfg.TransitionTimeout.Seconds()))
}

func (o *Orchestrator) scenarioTimedOut(elapsed time.Duration) {
	s := o.sess
	log := s.cur.logger.Sugar()
	log.Errorf("[UITestRunner] ===== TEST TIMEOUT =====")
	log.Errorf("[UITestRunner] Test timeout after %.1f seconds (limit: %.0f)", elapsed.Seconds(), s.timeout.Seconds())
	log.Infof("[UITestRunner] mode: %s, pendingTests: %d", o.host.Mode(), len(s.queue))
	if m := o.cfg.Metrics; m != nil {
		m.Watchdog(metrics.Foreground, metrics.ReasonScenario)
	}
	s.failed = true

	rt := s.cur.runtime
	rt.Fail(core.ErrScenarioTimeout.WithMessagef("Test timeout after %.1f seconds (limit: %.0f)", elapsed.Seconds(), s.timeout.Seconds()))
	rt.Close()
	// a host that does not report ExitingInteractive leaves us executing
	o.leaveExecuting()
}

// ============================================================================
// FINALIZE & TEARDOWN
// ============================================================================

func (o *Orchestrator) finalize() {
	s := o.sess
	cur := s.cur
	log := cur.logger.Sugar()

	var res core.ScenarioResult
	switch {
	case cur.result != nil:
		res = *cur.result
	case cur.runtime != nil:
		res = cur.runtime.Result()
	default:
		res = cur.desc.Result()
	}
	res.Video = cur.video
	log.Infof("[UITestRunner] Attaching test artifacts. Video: %q", res.Video)

	if cur.detach != nil {
		cur.detach()
	}
	if err := cur.bundle.Finalize(res); err != nil {
		s.failed = true
		o.log.Errorf("[UITestRunner] Test finalization failed: %v", err)
	}
	res.Attachments = cur.bundle.Detail().Attachments

	s.result.Scenarios = append(s.result.Scenarios, res)
	if o.cfg.CancelPolicy.Fails(res.Status) {
		s.failed = true
	}
	if m := o.cfg.Metrics; m != nil {
		m.ScenarioFinished(res)
	}
	o.log.Infof("[UITestRunner] %s finished: %s (%.1fs)", cur.desc.Name, res.Status, res.Duration.Seconds())
	if cb := o.cfg.OnScenarioEnd; cb != nil {
		cb(cur.index, s.total, res)
	}

	o.log.Infof("[UITestRunner] Cleaning up and moving to next test")
	s.reset()
}

func (o *Orchestrator) teardown() {
	s := o.sess
	o.log.Infof("[UITestRunner] No more tests to run - cleaning up")

	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil
	s.watchdog.Stop()
	s.cancel()
	s.reset()

	if s.stopped {
		s.index.Skip()
	}
	s.result.Duration = o.cfg.Clock.Since(s.start)
	s.result.ComputeSummary()
	if s.failed && !s.result.HasFailure(o.cfg.CancelPolicy) {
		s.result.Aborted = true
	}
	code := s.result.ExitCode(o.cfg.CancelPolicy)

	s.index.End(code != 0)
	s.index.Close()
	if m := o.cfg.Metrics; m != nil {
		m.RunFinished(code)
		if err := m.WriteTextfile(o.cfg.MetricsFile); err != nil {
			o.log.Warnf("[UITestRunner] %v", err)
		}
	}

	o.result = &s.result
	o.exitCode = code
	o.sess = nil
	o.phase = PhaseIdle

	headless := o.host.Headless()
	o.log.Infof("[UITestRunner] All tests completed. Failures: %v, Headless: %v", code != 0, headless)
	close(o.done)

	if headless {
		o.log.Infof("[UITestRunner] Exiting host with code: %d", code)
		o.host.Quit(code)
		return
	}
	o.log.Infof("[UITestRunner] Not headless - staying in authoring mode")
}

// logger returns the current scenario's logger, or the base one between
// scenarios.
func (o *Orchestrator) logger() *zap.SugaredLogger {
	if s := o.sess; s != nil && s.cur != nil {
		return s.cur.logger.Sugar()
	}
	return o.log
}
