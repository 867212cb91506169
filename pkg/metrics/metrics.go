// Package metrics provides Prometheus metrics for a run. A batch run has no
// scrape endpoint, so the registry is exported to a node-exporter textfile
// when the session ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Watchdog labels.
const (
	Foreground = "foreground"
	Background = "background"

	ReasonTransition = "transition"
	ReasonScenario   = "scenario"
	ReasonFrozen     = "host_frozen"
)

// DefaultTextfile is the export file name inside the output directory.
const DefaultTextfile = "metrics.prom"

// Metrics holds run metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Scenario metrics
	ScenariosTotal   *prometheus.CounterVec
	ScenarioDuration *prometheus.HistogramVec
	ScenarioErrors   *prometheus.CounterVec
	ScenarioRunning  prometheus.Gauge

	// Host metrics
	TransitionDuration *prometheus.HistogramVec
	WatchdogFired      *prometheus.CounterVec

	// Run status
	QueueLength prometheus.Gauge
	ExitCode    prometheus.Gauge
}

// New registers run metrics on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ScenariosTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uitest_scenarios_total",
				Help: "Scenarios finished, by status",
			},
			[]string{"status"},
		),
		ScenarioDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uitest_scenario_duration_seconds",
				Help:    "Scenario run time in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180, 300},
			},
			[]string{"status"},
		),
		ScenarioErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uitest_scenario_errors_total",
				Help: "Scenario failures, by error category",
			},
			[]string{"category"},
		),
		ScenarioRunning: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "uitest_scenario_running",
				Help: "Whether a scenario is executing (1) or not (0)",
			},
		),
		TransitionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uitest_mode_transition_duration_seconds",
				Help:    "Host mode transition time in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"target"},
		),
		WatchdogFired: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uitest_watchdog_fired_total",
				Help: "Watchdog expiries, by watchdog and reason",
			},
			[]string{"watchdog", "reason"},
		),
		QueueLength: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "uitest_queue_length",
				Help: "Scenarios waiting to run",
			},
		),
		ExitCode: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "uitest_run_exit_code",
				Help: "Exit code of the last finished run",
			},
		),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ScenarioStarted marks a scenario as executing.
func (m *Metrics) ScenarioStarted() {
	m.ScenarioRunning.Set(1)
}

// ScenarioFinished records a scenario result.
func (m *Metrics) ScenarioFinished(res core.ScenarioResult) {
	status := res.Status.String()
	m.ScenarioRunning.Set(0)
	m.ScenariosTotal.WithLabelValues(status).Inc()
	m.ScenarioDuration.WithLabelValues(status).Observe(res.Duration.Seconds())
	if res.Status == core.StatusFailed {
		m.ScenarioErrors.WithLabelValues(res.Category.String()).Inc()
	}
}

// Transition records a completed mode change into target.
func (m *Metrics) Transition(target string, d time.Duration) {
	m.TransitionDuration.WithLabelValues(target).Observe(d.Seconds())
}

// Watchdog records a watchdog expiry.
func (m *Metrics) Watchdog(watchdog, reason string) {
	m.WatchdogFired.WithLabelValues(watchdog, reason).Inc()
}

// RunFinished records the run's exit code.
func (m *Metrics) RunFinished(code int) {
	m.ScenarioRunning.Set(0)
	m.QueueLength.Set(0)
	m.ExitCode.Set(float64(code))
}

// WriteTextfile exports the registry in text format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
