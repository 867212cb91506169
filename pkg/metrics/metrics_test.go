package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestScenarioFinished(t *testing.T) {
	m := New(nil)

	m.ScenarioStarted()
	if got := testutil.ToFloat64(m.ScenarioRunning); got != 1 {
		t.Errorf("ScenarioRunning = %v, want 1", got)
	}

	m.ScenarioFinished(core.ScenarioResult{Status: core.StatusPassed, Duration: 2 * time.Second})
	m.ScenarioFinished(core.ScenarioResult{Status: core.StatusFailed, Category: core.ErrCategoryNotFound, Duration: time.Second})
	m.ScenarioFinished(core.ScenarioResult{Status: core.StatusCancelled, Category: core.ErrCategoryCancelled})

	tests := []struct {
		status string
		want   float64
	}{
		{"passed", 1},
		{"failed", 1},
		{"cancelled", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.ScenariosTotal.WithLabelValues(tt.status)); got != tt.want {
			t.Errorf("ScenariosTotal{%s} = %v, want %v", tt.status, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.ScenarioErrors.WithLabelValues("not_found")); got != 1 {
		t.Errorf("ScenarioErrors{not_found} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.ScenarioErrors); got != 1 {
		t.Errorf("ScenarioErrors series = %d, want 1 (cancellations are not errors)", got)
	}
	if got := testutil.ToFloat64(m.ScenarioRunning); got != 0 {
		t.Errorf("ScenarioRunning = %v, want 0", got)
	}
}

func TestWatchdogAndRun(t *testing.T) {
	m := New(nil)

	m.Watchdog(Foreground, ReasonTransition)
	m.Watchdog(Foreground, ReasonTransition)
	m.Watchdog(Background, ReasonScenario)
	m.Transition("interactive", 50*time.Millisecond)
	m.QueueLength.Set(3)
	m.RunFinished(1)

	if got := testutil.ToFloat64(m.WatchdogFired.WithLabelValues(Foreground, ReasonTransition)); got != 2 {
		t.Errorf("WatchdogFired{foreground,transition} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ExitCode); got != 1 {
		t.Errorf("ExitCode = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.QueueLength); got != 0 {
		t.Errorf("QueueLength = %v, want 0", got)
	}
	if got := testutil.CollectAndCount(m.TransitionDuration); got != 1 {
		t.Errorf("TransitionDuration series = %d, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New(nil)
	m.ScenarioFinished(core.ScenarioResult{Status: core.StatusPassed})
	m.RunFinished(0)

	path := filepath.Join(t.TempDir(), "out", DefaultTextfile)
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`uitest_scenarios_total{status="passed"} 1`,
		"uitest_run_exit_code 0",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	a, b := New(nil), New(nil)
	if a.Registry() == b.Registry() {
		t.Error("New(nil) shares a registry")
	}
	a.RunFinished(1)
	if got := testutil.ToFloat64(b.ExitCode); got != 0 {
		t.Errorf("other registry ExitCode = %v, want 0", got)
	}
}
