package core

import (
	"context"
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: not_found, timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
// Copies made with WithCause/WithMessage/WithDetails match their origin.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithMessagef is WithMessage with formatting
func (e *ExecutionError) WithMessagef(format string, args ...interface{}) *ExecutionError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Search errors
	ErrNotFound = &ExecutionError{
		Category: ErrCategoryNotFound,
		Code:     "not_found",
		Message:  "element not found",
	}

	// Timeout errors
	ErrTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "timeout",
		Message:  "condition was not met in time",
	}
	ErrTransitionTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "transition_timeout",
		Message:  "host did not enter interactive mode in time",
	}
	ErrScenarioTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "scenario_timeout",
		Message:  "scenario exceeded its timeout",
	}

	// Cancellation
	ErrCancelled = &ExecutionError{
		Category: ErrCategoryCancelled,
		Code:     "cancelled",
		Message:  "scenario cancelled",
	}

	// Validation errors
	ErrValidation = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "validation",
		Message:  "scenario validation failed",
	}
	ErrDuplicateScenario = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "duplicate_scenario",
		Message:  "duplicate scenario identifier",
	}
	ErrInvalidScenarioID = &ExecutionError{
		Category: ErrCategoryValidation,
		Code:     "invalid_scenario_id",
		Message:  "scenario identifier must be greater than 0",
	}

	// Host errors
	ErrHostFrozen = &ExecutionError{
		Category: ErrCategoryHostFrozen,
		Code:     "host_frozen",
		Message:  "host update loop stopped responding",
	}

	// Faults
	ErrFault = &ExecutionError{
		Category: ErrCategoryFault,
		Code:     "fault",
		Message:  "scenario fault",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf classifies any error returned from scenario code.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	if errors.Is(err, context.Canceled) {
		return ErrCategoryCancelled
	}
	return ErrCategoryFault
}

// Cancelled returns ErrCancelled caused by ctx's error, or nil if ctx is live.
func Cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled.WithCause(err)
	}
	return nil
}
