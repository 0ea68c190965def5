/*
errors.go - Centralized error types for the evaluation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Core packages (period, evaluation, cohort, compensation) return these;
  the engine and API layers wrap them with additional context.

ERROR CATEGORIES:
  1. Calendar errors - InvalidPeriod (malformed week/month/half input)
  2. Configuration errors - ConfigParse (malformed effective month)
  3. Lookup errors - person/run not found, evaluation not yet completed

NO DATA IS NOT AN ERROR:
  The aggregator reports "no contributing records" with a boolean
  sentinel. ErrNoData exists only so the service layer can hand that
  outcome to callers that speak errors (HTTP, CLI), which must render it
  as "evaluation not yet completed" rather than a zero score.

USAGE:
    if errors.Is(err, generic.ErrInvalidPeriod) {
        // 400 Bad Request
    }

SEE ALSO:
  - period/: Returns InvalidPeriodError
  - compensation/: Returns ConfigParseError
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned when calendar input is out of range
	// (year, month, ISO week, half) or a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrConfigParse is returned when a configuration row carries a
	// malformed effective month.
	ErrConfigParse = errors.New("config parse error")

	// ErrNoData marks a person/period without any contributing evaluation.
	ErrNoData = errors.New("evaluation not yet completed")

	// ErrPersonNotFound is returned when a referenced person doesn't exist.
	ErrPersonNotFound = errors.New("person not found")

	// ErrEvaluationNotFound is returned when a referenced evaluation doesn't exist.
	ErrEvaluationNotFound = errors.New("evaluation not found")

	// ErrRunNotFound is returned when a referenced payroll run doesn't exist.
	ErrRunNotFound = errors.New("payroll run not found")

	// ErrInvalidEvaluation is returned when an evaluation record fails
	// entry-boundary validation.
	ErrInvalidEvaluation = errors.New("invalid evaluation")

	// ErrInvalidPerson is returned when person attributes are malformed.
	ErrInvalidPerson = errors.New("invalid person")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidPeriodError names the calendar field that was out of range.
type InvalidPeriodError struct {
	Field string // "year", "month", "week", "half", "kind", "period"
	Value string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period: %s %q out of range", e.Field, e.Value)
}

func (e *InvalidPeriodError) Unwrap() error {
	return ErrInvalidPeriod
}

// ConfigParseError reports a configuration row whose effective month
// cannot be parsed as YYYY-MM.
type ConfigParseError struct {
	Table string // "base_salary", "incentive", "allowance"
	RowID string
	Value string
}

func (e *ConfigParseError) Error() string {
	if e.RowID != "" {
		return fmt.Sprintf("config parse error: %s row %s: effective month %q is not YYYY-MM", e.Table, e.RowID, e.Value)
	}
	return fmt.Sprintf("config parse error: %s: effective month %q is not YYYY-MM", e.Table, e.Value)
}

func (e *ConfigParseError) Unwrap() error {
	return ErrConfigParse
}

// ValidationError describes a single rejected field of an input record.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidEvaluation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrConfigParse) ||
		errors.Is(err, ErrInvalidEvaluation) ||
		errors.Is(err, ErrInvalidPerson)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPersonNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrEvaluationNotFound) ||
		errors.Is(err, ErrNoData)
}
