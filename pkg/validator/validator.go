// Package validator checks scenario descriptors before a run starts.
// It reports every invalid or duplicate identifier at once and builds the
// execution queue.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oddgames/ui-automation/pkg/core"
	"github.com/oddgames/ui-automation/pkg/scenario"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Scenario string
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Result contains the validation result.
type Result struct {
	// Scenarios is the execution queue, ordered by id.
	Scenarios []scenario.Descriptor
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Err aggregates the errors into a core.ErrValidation, or returns nil.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return core.ErrValidation.
		WithMessage(strings.Join(msgs, "; ")).
		WithDetails(map[string]interface{}{"errors": msgs})
}

// Validator validates descriptors and selects the scenarios to run.
type Validator struct {
	selected    int
	includeTags []string
	excludeTags []string
}

// New creates a Validator. A selected id of 0 keeps every scenario.
func New(selected int, includeTags, excludeTags []string) *Validator {
	return &Validator{
		selected:    selected,
		includeTags: includeTags,
		excludeTags: excludeTags,
	}
}

// Validate checks every descriptor, then filters and orders the valid set.
// Filtering never hides a validation error.
func (v *Validator) Validate(descs []scenario.Descriptor) *Result {
	result := &Result{}

	byID := make(map[int][]string)
	var ids []int
	for _, d := range descs {
		if d.ID <= 0 {
			result.Errors = append(result.Errors, &ValidationError{
				Scenario: d.Name,
				Message:  fmt.Sprintf("Scenario %q has invalid ID %d: must be greater than 0", d.Name, d.ID),
			})
			continue
		}
		if _, seen := byID[d.ID]; !seen {
			ids = append(ids, d.ID)
		}
		byID[d.ID] = append(byID[d.ID], d.Name)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if names := byID[id]; len(names) > 1 {
			result.Errors = append(result.Errors, &ValidationError{
				Scenario: names[0],
				Message:  fmt.Sprintf("Duplicate Scenario %d: %s", id, strings.Join(names, ", ")),
			})
		}
	}
	if !result.IsValid() {
		return result
	}

	for _, d := range descs {
		if v.selected != 0 && d.ID != v.selected {
			continue
		}
		if !v.matchesTags(d.Tags) {
			continue
		}
		result.Scenarios = append(result.Scenarios, d)
	}
	sort.SliceStable(result.Scenarios, func(i, j int) bool {
		return result.Scenarios[i].ID < result.Scenarios[j].ID
	})
	return result
}

// matchesTags checks if the scenario's tags match the filter criteria.
func (v *Validator) matchesTags(tags []string) bool {
	tagSet := make(map[string]bool)
	for _, t := range tags {
		tagSet[t] = true
	}

	// Check exclude tags first
	for _, t := range v.excludeTags {
		if tagSet[t] {
			return false
		}
	}

	// If include tags specified, must have at least one
	if len(v.includeTags) > 0 {
		for _, t := range v.includeTags {
			if tagSet[t] {
				return true
			}
		}
		return false
	}

	return true
}
