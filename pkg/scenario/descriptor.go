// Package scenario holds scenario descriptors, the explicit scenario
// registry and the runtime that executes one scenario body on the host's
// update loop.
package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/oddgames/ui-automation/pkg/core"
)

// DefaultTimeout is the scenario timeout when a descriptor sets none.
const DefaultTimeout = 180 * time.Second

// Severity ranks how much a failing scenario matters.
type Severity int

const (
	SeverityNormal Severity = iota
	SeverityBlocker
	SeverityCritical
	SeverityMinor
	SeverityTrivial
)

func (s Severity) String() string {
	switch s {
	case SeverityBlocker:
		return "blocker"
	case SeverityCritical:
		return "critical"
	case SeverityMinor:
		return "minor"
	case SeverityTrivial:
		return "trivial"
	default:
		return "normal"
	}
}

// ParseSeverity parses a severity name. Empty means normal.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return SeverityNormal, nil
	case "blocker":
		return SeverityBlocker, nil
	case "critical":
		return SeverityCritical, nil
	case "minor":
		return SeverityMinor, nil
	case "trivial":
		return SeverityTrivial, nil
	default:
		return SeverityNormal, fmt.Errorf("unknown severity %q", s)
	}
}

// DataMode decides what happens to fixture data when a scenario starts.
type DataMode int

const (
	// DataAsk leaves the decision to the operator; batch runs treat it
	// like DataUseDefined.
	DataAsk DataMode = iota
	// DataUseDefined replaces the data directory with the scenario fixture.
	DataUseDefined
	// DataUseCurrent keeps whatever data is already present.
	DataUseCurrent
)

func (m DataMode) String() string {
	switch m {
	case DataUseDefined:
		return "use_defined"
	case DataUseCurrent:
		return "use_current"
	default:
		return "ask"
	}
}

// Descriptor is the metadata of one scenario.
type Descriptor struct {
	ID          int
	Name        string
	Timeout     time.Duration
	Severity    Severity
	Owner       string
	Feature     string
	Story       string
	Tags        []string
	Description string
	DataMode    DataMode
	Fixture     string // fixture name; defaults to Name
}

// EffectiveTimeout returns Timeout, or DefaultTimeout when unset.
func (d Descriptor) EffectiveTimeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}

// FixtureName returns the fixture to prepare for the scenario.
func (d Descriptor) FixtureName() string {
	if d.Fixture != "" {
		return d.Fixture
	}
	return d.Name
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%d %s", d.ID, d.Name)
}

// Body is user-authored scenario code. Returning an error fails the
// scenario; returning a cancellation error cancels it.
type Body func(t *T) error

// Result converts the descriptor into a fresh, not-started result.
func (d Descriptor) Result() core.ScenarioResult {
	return core.ScenarioResult{ID: d.ID, Name: d.Name, Status: core.StatusNotStarted}
}
