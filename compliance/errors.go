/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine's propagation policy is isolation: a defect evaluating one
  (member, requirement) pair degrades that cell to a best-effort value and
  never aborts evaluation for other members or other requirements.

ERROR CATEGORIES:
  1. Configuration defects - malformed requirements (degrade, don't fail)
  2. Not-found errors - missing snapshot entities (store/API layer)
  3. Alert-state errors - persistence failures writing tier timestamps

NOT ERRORS:
  - required == 0           -> auto-satisfied (100%)
  - total_months == 0       -> no adjustment
  - active_months below 1   -> clamped to 1
  - waiver beyond window    -> silently clipped
  - lost alert-tier CAS     -> another worker advanced the tier (desired)
*/
package compliance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrRequirementNotFound is returned when a referenced requirement doesn't exist.
	ErrRequirementNotFound = errors.New("requirement not found")

	// ErrRecordNotFound is returned when a referenced training record doesn't exist.
	ErrRecordNotFound = errors.New("training record not found")

	// ErrInvalidWindow is returned when a window is malformed (end before start).
	ErrInvalidWindow = errors.New("invalid window: end before start")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ConfigDefectError describes a malformed requirement field. The engine
// degrades to a safe default when it sees one; this type exists so callers
// that validate configuration up front (the factory) can report precisely.
type ConfigDefectError struct {
	RequirementID RequirementID
	Field         string
	Value         string
}

func (e *ConfigDefectError) Error() string {
	return fmt.Sprintf("requirement %s: invalid %s %q", e.RequirementID, e.Field, e.Value)
}

// IsNotFound returns true if the error indicates a missing snapshot entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrRequirementNotFound) ||
		errors.Is(err, ErrRecordNotFound)
}
