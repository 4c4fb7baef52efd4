/*
errors.go - Centralized error types for the worklog engine

PURPOSE:
  One place for the error taxonomy every layer maps from:
  validation, authentication, authorization, not-found, conflict, internal.

ERROR CATEGORIES:
  1. Sentinel errors  - classify with errors.Is()
  2. Structured errors - carry diagnostics (conflict reports, paid ids)

EXISTENCE LEAKS:
  Entities outside an actor's scope surface as ErrNotFound, never as
  ErrForbidden, so callers cannot probe for ids they may not see.

USAGE:
  if errors.Is(err, core.ErrConflict) { ... }
  var report *core.ConflictReport
  if errors.As(err, &report) { render(report.Conflicts) }

SEE ALSO:
  - conflict.go: produces ConflictReport
  - reconcile.go: produces AllocationConflict
*/
package core

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all malformed-input failures; they are
	// rejected before any domain logic runs.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when an identity is present but the role or
	// company scope does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when an id does not resolve, or resolves to
	// an entity outside the actor's scope.
	ErrNotFound = errors.New("not found")

	// ErrConflict is the root of both overlap conflicts and
	// already-allocated conflicts.
	ErrConflict = errors.New("conflict")

	// ErrNoEligibleIntervals is returned when none of the candidate
	// intervals is approved.
	ErrNoEligibleIntervals = errors.New("no eligible intervals")

	// ErrIntervalAllocated is returned when deleting or re-timing an
	// interval that is already linked to a payment.
	ErrIntervalAllocated = errors.New("interval is allocated to a payment")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// FieldError reports a single invalid input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// ConflictReport is the canonical result of a refused interval create or
// edit: every overlapping interval, annotated with which overlap cases
// fired and the overlapping sub-range.
type ConflictReport struct {
	Date      Day
	Candidate struct {
		Start MinuteOfDay
		End   MinuteOfDay
	}
	Conflicts []Conflict
}

func (e *ConflictReport) Error() string {
	ranges := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		ranges[i] = c.OverlapRange()
	}
	return fmt.Sprintf("interval %s–%s on %s overlaps %d existing interval(s): %s",
		e.Candidate.Start, e.Candidate.End, e.Date, len(e.Conflicts), strings.Join(ranges, ", "))
}

func (e *ConflictReport) Unwrap() error { return ErrConflict }

// AllocationConflict reports candidate intervals that already belong to a
// payment. Creation is all-or-nothing, so one paid id fails the batch.
type AllocationConflict struct {
	IntervalIDs []string
}

func (e *AllocationConflict) Error() string {
	return fmt.Sprintf("intervals already allocated to a payment: %s",
		strings.Join(e.IntervalIDs, ", "))
}

func (e *AllocationConflict) Unwrap() error { return ErrConflict }

// MissingIntervalsError reports candidate ids that did not resolve.
type MissingIntervalsError struct {
	IntervalIDs []string
}

func (e *MissingIntervalsError) Error() string {
	return fmt.Sprintf("intervals not found: %s", strings.Join(e.IntervalIDs, ", "))
}

func (e *MissingIntervalsError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsForbidden(err error) bool  { return errors.Is(err, ErrForbidden) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }

// IsClientError reports whether the failure is the caller's to fix.
func IsClientError(err error) bool {
	return IsValidation(err) || IsForbidden(err) || IsNotFound(err) ||
		IsConflict(err) || errors.Is(err, ErrNoEligibleIntervals) ||
		errors.Is(err, ErrIntervalAllocated) || errors.Is(err, ErrUnauthenticated)
}
