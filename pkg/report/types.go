// Package report provides JSON-based run reporting with live updates.
//
// Layout:
//   - report.json: run index (small, frequently updated, mutex-protected)
//   - scenarios/scenario-<id>.json: per-scenario detail
//   - assets/scenario-<id>/: per-scenario artifacts (log.txt, screenshots, attachments)
//
// The index is the single source of truth for status and change tracking.
// Consumers poll report.json and fetch scenario details when their
// updateSeq changes.
package report

import (
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusSkipped   Status = "skipped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusCancelled, StatusSkipped:
		return true
	default:
		return false
	}
}

// StatusOf maps a scenario status to its report status.
func StatusOf(s core.ScenarioStatus) Status {
	switch s {
	case core.StatusRunning:
		return StatusRunning
	case core.StatusPassed:
		return StatusPassed
	case core.StatusFailed:
		return StatusFailed
	case core.StatusCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// ============================================================================
// INDEX (report.json)
// ============================================================================

// Index is the main report file that binds everything together.
type Index struct {
	Version     string          `json:"version"`
	RunID       string          `json:"runId"`
	UpdateSeq   uint64          `json:"updateSeq"`
	Status      Status          `json:"status"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Runner      RunnerInfo      `json:"runner"`
	Summary     Summary         `json:"summary"`
	Scenarios   []ScenarioEntry `json:"scenarios"`
}

// RunnerInfo describes the runner and the host it drove.
type RunnerInfo struct {
	Version string `json:"version"`
	Host    string `json:"host"`
	Policy  string `json:"cancelPolicy"`
}

// Summary contains aggregated counts.
type Summary struct {
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
}

// ScenarioEntry is the index entry for a scenario.
type ScenarioEntry struct {
	Index       int         `json:"index"`    // Queue position
	ID          int         `json:"id"`       // Scenario identifier
	Name        string      `json:"name"`     // Display name
	DataFile    string      `json:"dataFile"` // Path to scenario detail JSON
	AssetsDir   string      `json:"assetsDir"`
	Severity    string      `json:"severity"`
	Tags        []string    `json:"tags,omitempty"`
	Status      Status      `json:"status"`
	UpdateSeq   uint64      `json:"updateSeq"`
	StartTime   *time.Time  `json:"startTime,omitempty"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	Duration    *int64      `json:"duration,omitempty"` // milliseconds
	LastUpdated *time.Time  `json:"lastUpdated,omitempty"`
	Steps       StepSummary `json:"steps"`
	Category    string      `json:"category,omitempty"`
	Error       *string     `json:"error,omitempty"`
}

// StepSummary contains step counts for a scenario.
type StepSummary struct {
	Total   int     `json:"total"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Running int     `json:"running"`
	Current *string `json:"current,omitempty"` // Name of the running step
}

// ============================================================================
// SCENARIO DETAIL (scenarios/scenario-<id>.json)
// ============================================================================

// ScenarioDetail contains full scenario execution details.
type ScenarioDetail struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Severity    string            `json:"severity"`
	Owner       string            `json:"owner,omitempty"`
	Feature     string            `json:"feature,omitempty"`
	Story       string            `json:"story,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	DataMode    string            `json:"dataMode"`
	Timeout     int64             `json:"timeout"` // milliseconds
	Status      Status            `json:"status"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     *time.Time        `json:"endTime,omitempty"`
	Duration    *int64            `json:"duration,omitempty"` // milliseconds
	Steps       []Step            `json:"steps"`
	Parameters  []Parameter       `json:"parameters,omitempty"`
	Attachments []core.Attachment `json:"attachments,omitempty"`
	Artifacts   Artifacts         `json:"artifacts"`
	Error       *Error            `json:"error,omitempty"`
}

// Step is one named section of a scenario body.
type Step struct {
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // milliseconds
	Error     *Error     `json:"error,omitempty"`
}

// Parameter is a name/value pair recorded by the scenario.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Error contains error details.
type Error struct {
	Type    string `json:"type"` // not_found, timeout, cancelled, host_frozen, fault
	Message string `json:"message"`
	Details string `json:"details,omitempty"` // stack trace for faults
}

// ============================================================================
// ARTIFACTS (paths only, never inline data)
// ============================================================================

// Artifacts contains scenario-level artifact paths, relative to the
// output directory.
type Artifacts struct {
	Log         string   `json:"log,omitempty"`
	Video       string   `json:"video,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
}

// ============================================================================
// UPDATE TYPES
// ============================================================================

// ScenarioUpdate contains the fields to update in the index for a scenario.
type ScenarioUpdate struct {
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *int64
	Steps     StepSummary
	Category  string
	Error     *string
}
