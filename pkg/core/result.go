package core

import (
	"fmt"
	"strings"
	"time"
)

// CancelPolicy decides whether a cancelled scenario fails the run
type CancelPolicy int

const (
	// CancelCountsAsFailure makes a cancelled scenario fail the run (default)
	CancelCountsAsFailure CancelPolicy = iota
	// CancelIgnored logs cancelled scenarios without failing the run
	CancelIgnored
)

// String returns the config spelling of the policy
func (p CancelPolicy) String() string {
	if p == CancelIgnored {
		return "ignore"
	}
	return "fail"
}

// ParseCancelPolicy parses "fail" or "ignore"
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail", "failure":
		return CancelCountsAsFailure, nil
	case "ignore", "ignored", "pass":
		return CancelIgnored, nil
	default:
		return CancelCountsAsFailure, fmt.Errorf("unknown cancel policy %q (want fail or ignore)", s)
	}
}

// Fails reports whether status counts against the aggregate exit status
func (p CancelPolicy) Fails(status ScenarioStatus) bool {
	switch status {
	case StatusFailed:
		return true
	case StatusCancelled:
		return p == CancelCountsAsFailure
	default:
		return false
	}
}

// ScenarioResult captures the outcome of one scenario
type ScenarioResult struct {
	// Identity
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Status
	Status   ScenarioStatus `json:"status"`
	Category ErrorCategory  `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Error info (if the scenario did not pass)
	Error string `json:"error,omitempty"`
	Trace string `json:"trace,omitempty"`

	// Artifacts
	Video       string       `json:"video,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SuiteResult captures the outcome of a batch run
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results, in execution order
	Scenarios []ScenarioResult `json:"scenarios"`

	// Summary
	Total     int `json:"total"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`

	// Aborted marks orchestrator-level failures with no scenario attached
	Aborted bool `json:"aborted,omitempty"`
}

// ComputeSummary calculates scenario counts from the Scenarios slice
func (s *SuiteResult) ComputeSummary() {
	s.Total = len(s.Scenarios)
	s.Passed = 0
	s.Failed = 0
	s.Cancelled = 0

	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
}

// HasFailure reports whether any scenario failed under the policy
func (s *SuiteResult) HasFailure(policy CancelPolicy) bool {
	if s.Aborted {
		return true
	}
	for _, sc := range s.Scenarios {
		if policy.Fails(sc.Status) {
			return true
		}
	}
	return false
}

// ExitCode returns 0 if nothing failed under the policy, 1 otherwise
func (s *SuiteResult) ExitCode(policy CancelPolicy) int {
	if s.HasFailure(policy) {
		return 1
	}
	return 0
}
