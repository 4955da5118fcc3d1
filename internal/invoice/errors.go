package invoice

import (
	"errors"
	"fmt"
)

// Record validation errors
var (
	// ErrStructuralInput matches every *StructuralInputError via errors.Is.
	// Callers use it to tell bad input data apart from rendering or I/O failures.
	ErrStructuralInput = errors.New("structural input error")

	// ErrNilRecord is returned when no record was supplied at all.
	ErrNilRecord = errors.New("record is nil")

	// ErrInvalidJSON is returned when the payload is not a JSON object.
	ErrInvalidJSON = errors.New("payload is not a JSON object")

	// ErrMissingLineItems is returned when the record has no line-items list.
	ErrMissingLineItems = errors.New("missing line items list")

	// ErrInvalidLineItems is returned when the line items are not a list of objects.
	ErrInvalidLineItems = errors.New("line items must be a list of objects")

	// ErrMissingItemName is returned when a line item has no name.
	ErrMissingItemName = errors.New("missing required item name")

	// ErrAmountOutOfRange is returned by ParseAmount for amounts too large or
	// too precise to be a price.
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// StructuralInputError reports a record that cannot produce a meaningful invoice.
type StructuralInputError struct {
	// Field is the JSON path of the offending field (e.g., "line_items[2].name").
	Field string

	// Err is the underlying sentinel error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *StructuralInputError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: invalid record field '%s': %v: %s", e.Field, e.Err, e.Details)
	}
	return fmt.Sprintf("invoice: invalid record field '%s': %v", e.Field, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StructuralInputError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStructuralInput or matches the wrapped error.
func (e *StructuralInputError) Is(target error) bool {
	return target == ErrStructuralInput || errors.Is(e.Err, target)
}

// NewStructuralInputError creates a new StructuralInputError for the given field.
func NewStructuralInputError(field string, err error, details string) *StructuralInputError {
	return &StructuralInputError{
		Field:   field,
		Err:     err,
		Details: details,
	}
}

// IsStructural reports whether err is (or wraps) a StructuralInputError.
func IsStructural(err error) bool {
	var structErr *StructuralInputError
	return errors.As(err, &structErr)
}
