package executor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/finder"
	"github.com/oddgames/ui-automation/pkg/host/sim"
	"github.com/oddgames/ui-automation/pkg/metrics"
	"github.com/oddgames/ui-automation/pkg/report"
	"github.com/oddgames/ui-automation/pkg/scenario"
	"github.com/oddgames/ui-automation/pkg/scene"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	testingclock "k8s.io/utils/clock/testing"
)

const frame = 16 * time.Millisecond

const testScenes = `
screen: {width: 320, height: 240}
start: Menu
scenes:
  Menu:
    - name: Canvas
      bounds: {x: 0, y: 0, width: 320, height: 240}
      children:
        - name: Play
          text: Play
          bounds: {x: 110, y: 100, width: 100, height: 40}
          component: button
`

type shots struct{}

func (shots) CaptureScreenshot() ([]byte, error) { return []byte("png"), nil }

type fixture struct {
	t          *testing.T
	clock      *testingclock.FakeClock
	host       *sim.Host
	registry   *scenario.Registry
	cfg        Config
	terminated chan int
	events     []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib, err := scene.Parse([]byte(testScenes))
	require.NoError(t, err)
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	f := &fixture{
		t:          t,
		clock:      clk,
		host:       sim.New(sim.Config{Library: lib, Clock: clk, Headless: true}),
		registry:   scenario.NewRegistry(),
		terminated: make(chan int, 1),
	}
	f.cfg = Config{
		OutputDir:   t.TempDir(),
		Clock:       clk,
		Logger:      zap.NewNop(),
		Screenshots: shots{},
		Artifacts:   core.ArtifactConfig{ScreenshotOnFail: true},
		Terminate:   func(code int) { f.terminated <- code },
		OnScenarioStart: func(idx, total int, desc scenario.Descriptor) {
			f.events = append(f.events, "start "+desc.Name)
		},
		OnScenarioEnd: func(idx, total int, res core.ScenarioResult) {
			f.events = append(f.events, "end "+res.Name)
		},
	}
	return f
}

func (f *fixture) register(id int, name string, timeout time.Duration, body scenario.Body) {
	f.registry.MustRegister(scenario.Descriptor{ID: id, Name: name, Timeout: timeout}, body)
}

func (f *fixture) step() {
	f.host.Step()
	f.clock.Step(frame)
}

// run starts an orchestrator and pumps the host until the run tears down.
func (f *fixture) run() *Orchestrator {
	f.t.Helper()
	o := New(f.host, f.registry, f.cfg)
	require.NoError(f.t, o.Start())
	f.pump(o)
	return o
}

func (f *fixture) pump(o *Orchestrator) {
	f.t.Helper()
	for i := 0; i < 20000; i++ {
		select {
		case <-o.Done():
			return
		default:
		}
		f.step()
	}
	f.t.Fatalf("run did not finish, phase %s", o.Phase())
}

func (f *fixture) stepUntil(o *Orchestrator, phase Phase) {
	f.t.Helper()
	for i := 0; i < 1000; i++ {
		if o.Phase() == phase {
			return
		}
		f.step()
	}
	f.t.Fatalf("never reached phase %s, at %s", phase, o.Phase())
}

func wait(d time.Duration) scenario.Body {
	return func(t *scenario.T) error { return t.Wait(d) }
}

func statuses(res *core.SuiteResult) []core.ScenarioStatus {
	out := make([]core.ScenarioStatus, len(res.Scenarios))
	for i, s := range res.Scenarios {
		out[i] = s.Status
	}
	return out
}

func TestRunsScenariosInIDOrder(t *testing.T) {
	f := newFixture(t)
	var order []int
	for _, id := range []int{3, 1, 2} {
		id := id
		f.register(id, "S"+string(rune('0'+id)), 0, func(t *scenario.T) error {
			order = append(order, id)
			return t.Wait(100 * time.Millisecond)
		})
	}

	o := f.run()

	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, []string{"start S1", "end S1", "start S2", "end S2", "start S3", "end S3"}, f.events)
	res := o.Result()
	require.NotNil(t, res)
	assert.Equal(t, []core.ScenarioStatus{core.StatusPassed, core.StatusPassed, core.StatusPassed}, statuses(res))
	assert.Equal(t, 3, res.Passed)
	assert.False(t, res.Aborted)
	assert.Equal(t, 0, o.ExitCode())
	assert.Equal(t, PhaseIdle, o.Phase())

	select {
	case <-f.host.Quitted():
	default:
		t.Fatal("headless host was not quit")
	}
	assert.Equal(t, 0, f.host.ExitCode())

	index, details, err := report.ReadReport(f.cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, index.Scenarios, 3)
	for _, s := range index.Scenarios {
		assert.Equal(t, report.StatusPassed, s.Status)
	}
	require.Len(t, details, 3)
	for _, d := range details {
		assert.NotEmpty(t, d.Artifacts.Log)
	}
}

func TestElementNotFoundFailsScenarioAndContinues(t *testing.T) {
	f := newFixture(t)
	f.register(1, "Missing", 0, func(t *scenario.T) error {
		return t.Click("Nothing", scenario.SearchTime(2*time.Second))
	})
	f.register(2, "Play", 0, func(t *scenario.T) error {
		return t.Click("Play")
	})

	o := f.run()

	res := o.Result()
	require.Len(t, res.Scenarios, 2)
	missing := res.Scenarios[0]
	assert.Equal(t, core.StatusFailed, missing.Status)
	assert.Equal(t, core.ErrCategoryNotFound, missing.Category)
	assert.GreaterOrEqual(t, missing.Duration, 2*time.Second)
	assert.Less(t, missing.Duration, 2*time.Second+finder.DefaultPollInterval)
	assert.Equal(t, core.StatusPassed, res.Scenarios[1].Status)
	assert.Equal(t, 1, o.ExitCode())
	assert.Equal(t, 1, f.host.ExitCode())

	_, details, err := report.ReadReport(f.cfg.OutputDir)
	require.NoError(t, err)
	var failed *report.ScenarioDetail
	for i := range details {
		if details[i].ID == 1 {
			failed = &details[i]
		}
	}
	require.NotNil(t, failed)
	assert.NotEmpty(t, failed.Artifacts.Screenshots, "a failed scenario keeps a final screenshot")
}

func TestValidationErrorRunsNothing(t *testing.T) {
	tests := []struct {
		name string
		ids  []int
		want []string
	}{
		{"duplicate", []int{1, 2, 2}, []string{"2", "B", "C"}},
		{"non-positive", []int{1, 0}, []string{"0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ran := false
			for i, id := range tt.ids {
				f.register(id, string(rune('A'+i)), 0, func(*scenario.T) error {
					ran = true
					return nil
				})
			}

			o := New(f.host, f.registry, f.cfg)
			err := o.Start()
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrValidation)
			for _, s := range tt.want {
				assert.Contains(t, err.Error(), s)
			}
			assert.Equal(t, PhaseIdle, o.Phase())

			for i := 0; i < 10; i++ {
				f.step()
			}
			assert.False(t, ran)
			assert.Nil(t, o.Result())
			assert.False(t, f.host.Transitioning())
		})
	}
}

func TestScenarioTimeoutMovesOn(t *testing.T) {
	f := newFixture(t)
	f.register(1, "Slow", time.Second, wait(time.Minute))
	f.register(2, "Fast", 0, wait(50*time.Millisecond))

	o := f.run()

	res := o.Result()
	require.Len(t, res.Scenarios, 2)
	slow := res.Scenarios[0]
	assert.Equal(t, core.StatusFailed, slow.Status)
	assert.Equal(t, core.ErrCategoryTimeout, slow.Category)
	assert.Contains(t, slow.Error, "Test timeout")
	assert.Less(t, slow.Duration, 2*time.Second)
	assert.Equal(t, core.StatusPassed, res.Scenarios[1].Status)
	assert.Equal(t, 1, o.ExitCode())

	select {
	case code := <-f.terminated:
		t.Fatalf("background watchdog fired with %d", code)
	default:
	}
}

func TestTransitionTimeoutMovesOn(t *testing.T) {
	f := newFixture(t)
	f.cfg.TransitionTimeout = time.Second
	f.register(1, "Stuck", 0, wait(0))
	f.register(2, "After", 0, wait(0))
	f.cfg.OnScenarioEnd = func(idx, total int, res core.ScenarioResult) {
		f.host.StickTransitions(false)
	}
	f.host.StickTransitions(true)

	o := f.run()

	res := o.Result()
	require.Len(t, res.Scenarios, 2)
	stuck := res.Scenarios[0]
	assert.Equal(t, core.StatusFailed, stuck.Status)
	assert.Equal(t, core.ErrCategoryTimeout, stuck.Category)
	assert.Contains(t, stuck.Error, "interactive")
	assert.Equal(t, core.StatusPassed, res.Scenarios[1].Status)
	assert.Equal(t, 1, o.ExitCode())

	select {
	case code := <-f.terminated:
		t.Fatalf("background watchdog fired with %d", code)
	default:
	}
}

func TestBackgroundWatchdogTerminatesFrozenHost(t *testing.T) {
	f := newFixture(t)
	f.cfg.Grace = 2 * time.Second
	f.cfg.WatchdogInterval = 100 * time.Millisecond
	f.cfg.Metrics = metrics.New(prometheus.NewRegistry())
	f.register(1, "Hang", time.Second, wait(time.Minute))

	o := New(f.host, f.registry, f.cfg)
	require.NoError(t, o.Start())
	f.stepUntil(o, PhaseExecuting)
	f.host.Freeze()

	var code int
	fired := false
	for i := 0; i < 200 && !fired; i++ {
		f.clock.Step(100 * time.Millisecond)
		select {
		case code = <-f.terminated:
			fired = true
		case <-time.After(5 * time.Millisecond):
		}
	}
	require.True(t, fired, "background watchdog never fired")
	assert.Equal(t, 1, code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.cfg.Metrics.WatchdogFired.WithLabelValues(metrics.Background, metrics.ReasonFrozen)))

	// a host that survives termination still finishes the run
	f.host.Thaw()
	f.pump(o)
	assert.Equal(t, core.StatusFailed, o.Result().Scenarios[0].Status)
}

func TestBackgroundTransitionLimit(t *testing.T) {
	f := newFixture(t)
	f.cfg.TransitionTimeout = 3 * time.Second
	f.cfg.BackgroundTransitionLimit = 3 * time.Second
	f.cfg.Grace = 10 * time.Second
	f.cfg.WatchdogInterval = 100 * time.Millisecond
	f.register(1, "Never Entered", 0, wait(0))
	f.host.StickTransitions(true)

	o := New(f.host, f.registry, f.cfg)
	require.NoError(t, o.Start())
	require.Equal(t, PhaseAwaitingInteractive, o.Phase())
	f.host.Freeze()

	start := f.clock.Now()
	fired := false
	for i := 0; i < 100 && !fired; i++ {
		f.clock.Step(100 * time.Millisecond)
		select {
		case <-f.terminated:
			fired = true
		case <-time.After(5 * time.Millisecond):
		}
	}
	require.True(t, fired, "background watchdog never fired")
	elapsed := f.clock.Since(start)
	assert.Greater(t, elapsed, 3*time.Second)
	assert.Less(t, elapsed, 3*time.Second+f.cfg.Grace, "fired before transition + grace")

	f.host.StickTransitions(false)
	f.host.Thaw()
	f.pump(o)
	assert.Contains(t, o.Result().Scenarios[0].Error, "interactive")
}

func TestStopCancelsAndSkips(t *testing.T) {
	tests := []struct {
		name   string
		policy core.CancelPolicy
		code   int
	}{
		{"cancel fails", core.CancelCountsAsFailure, 1},
		{"cancel ignored", core.CancelIgnored, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.cfg.CancelPolicy = tt.policy
			f.register(1, "Long", 0, wait(time.Minute))
			f.register(2, "Never", 0, wait(0))
			f.register(3, "NeverEither", 0, wait(0))

			o := New(f.host, f.registry, f.cfg)
			require.NoError(t, o.Start())
			f.stepUntil(o, PhaseExecuting)
			o.Stop()
			f.pump(o)

			res := o.Result()
			require.Len(t, res.Scenarios, 1)
			assert.Equal(t, core.StatusCancelled, res.Scenarios[0].Status)
			assert.Equal(t, 1, res.Cancelled)
			assert.Equal(t, tt.code, o.ExitCode())
			assert.Equal(t, tt.code, f.host.ExitCode())

			index, _, err := report.ReadReport(f.cfg.OutputDir)
			require.NoError(t, err)
			require.Len(t, index.Scenarios, 3)
			assert.Equal(t, report.StatusCancelled, index.Scenarios[0].Status)
			assert.Equal(t, report.StatusSkipped, index.Scenarios[1].Status)
			assert.Equal(t, report.StatusSkipped, index.Scenarios[2].Status)
		})
	}
}

func TestMetricsAndCapturedLog(t *testing.T) {
	f := newFixture(t)
	f.cfg.Metrics = metrics.New(prometheus.NewRegistry())
	f.register(1, "Pass", 0, func(t *scenario.T) error {
		t.Log("hello from the scenario")
		return nil
	})
	f.register(2, "Fail", 0, func(t *scenario.T) error {
		return core.ErrFault.WithMessage("boom")
	})

	o := f.run()
	assert.Equal(t, 1, o.ExitCode())

	m := f.cfg.Metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExitCode))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueLength))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ScenarioRunning))

	prom, err := os.ReadFile(filepath.Join(f.cfg.OutputDir, metrics.DefaultTextfile))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "scenarios_total")

	_, details, err := report.ReadReport(f.cfg.OutputDir)
	require.NoError(t, err)
	for _, d := range details {
		if d.ID != 1 {
			continue
		}
		log, err := os.ReadFile(filepath.Join(f.cfg.OutputDir, d.Artifacts.Log))
		require.NoError(t, err)
		assert.Contains(t, string(log), "hello from the scenario")
		assert.Contains(t, string(log), "Test PASSED")
	}
}

func TestStartWhileRunning(t *testing.T) {
	f := newFixture(t)
	f.register(1, "One", 0, wait(time.Second))

	o := New(f.host, f.registry, f.cfg)
	require.NoError(t, o.Start())
	assert.ErrorIs(t, o.Start(), ErrRunning)
	f.pump(o)
	assert.Equal(t, 0, o.ExitCode())
}
