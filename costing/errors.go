/*
errors.go - Error types for the costing engine

PURPOSE:
  All calculation error types in one place. Callers decide user-facing
  behavior; the engine never swallows a failure or coerces it to zero.

ERROR CATEGORIES:
  1. Validation errors - input shape prevents any computation
  2. Data-unavailable errors - no price history for a material

NOT ERRORS:
  A routing resource with no configured rate is a warning, not a failure:
  the roll-up substitutes the configured cost-per-hour and reports the
  affected operations in RollupResult.RateFallbacks.

SEE ALSO:
  - rollup.go, estimator.go: Raise these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package costing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all input validation failures.
	ErrValidation = errors.New("invalid costing input")

	// ErrNoPriceData is returned when a material has no price records.
	// Distinct from a zero-cost estimate: zero is indistinguishable from a
	// legitimately free material and would corrupt downstream totals.
	ErrNoPriceData = errors.New("no price records available")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports an input that prevents computation.
type ValidationError struct {
	Field  string // e.g. "tier.quantity", "material.default_yield"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// DataUnavailableError reports that an estimate cannot be produced because
// the material has no usable price history.
type DataUnavailableError struct {
	MaterialID string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("material %s: no price records, estimate unavailable", e.MaterialID)
}

func (e *DataUnavailableError) Unwrap() error {
	return ErrNoPriceData
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDataUnavailable returns true if the error means "no estimate", as
// opposed to a computation failure.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrNoPriceData)
}
