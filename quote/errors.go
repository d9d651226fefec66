package quote

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrQuotationFinalized is returned when editing a finalized quotation.
	// Finalized quotations are immutable snapshots; edits require a new
	// quotation version.
	ErrQuotationFinalized = errors.New("quotation is finalized")

	// ErrNotPriced is returned when finalizing a quotation that has no
	// computed volume pricing yet.
	ErrNotPriced = errors.New("quotation has no volume pricing")
)

// NotFoundError reports which record was missing.
type NotFoundError struct {
	Kind string // "quotation", "material", "resource"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error is a lifecycle conflict rather than
// bad input: editing a finalized quotation or finalizing an unpriced one.
func IsConflict(err error) bool {
	return errors.Is(err, ErrQuotationFinalized) || errors.Is(err, ErrNotPriced)
}
