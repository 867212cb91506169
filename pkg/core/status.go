package core

// ScenarioStatus represents the execution status of a scenario
type ScenarioStatus int

const (
	StatusNotStarted ScenarioStatus = iota // Created, not selected or not yet running
	StatusRunning                          // Body is executing
	StatusPassed                           // Body returned normally
	StatusFailed                           // Body faulted, timed out or was aborted by a watchdog
	StatusCancelled                        // Scope was cancelled while the body was suspended
)

// String returns the string representation of ScenarioStatus
func (s ScenarioStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s ScenarioStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s ScenarioStatus) IsSuccess() bool {
	return s == StatusPassed
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryNotFound                        // Element search exhausted its timeout
	ErrCategoryTimeout                         // Condition, framerate, scene change or mode transition never satisfied
	ErrCategoryCancelled                       // Scenario scope cancelled
	ErrCategoryValidation                      // Duplicate or invalid scenario identifier
	ErrCategoryHostFrozen                      // Host update loop stopped ticking
	ErrCategoryFault                           // Unclassified fault raised by scenario code
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryNotFound:
		return "not_found"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryCancelled:
		return "cancelled"
	case ErrCategoryValidation:
		return "validation"
	case ErrCategoryHostFrozen:
		return "host_frozen"
	case ErrCategoryFault:
		return "fault"
	default:
		return "unknown"
	}
}

// StatusFor maps a body's returned error to its terminal status.
func StatusFor(err error) ScenarioStatus {
	switch CategoryOf(err) {
	case ErrCategoryNone:
		return StatusPassed
	case ErrCategoryCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}
