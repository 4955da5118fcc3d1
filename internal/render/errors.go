package render

import (
	"errors"
	"fmt"
)

// Rendering errors
var (
	// ErrRender matches every *RenderError via errors.Is.
	ErrRender = errors.New("PDF rendering failed")

	// ErrFontUnavailable is recorded when the Unicode font files cannot be used.
	// It never reaches callers of Render: the engine falls back to a core font.
	ErrFontUnavailable = errors.New("unicode font unavailable")
)

// RenderError wraps a failure of the PDF surface, as opposed to bad input data.
type RenderError struct {
	// Op is the operation that failed (e.g., "Render", "registerFonts").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("render: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("render: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRender or matches the wrapped error.
func (e *RenderError) Is(target error) bool {
	return target == ErrRender || errors.Is(e.Err, target)
}

// NewRenderError creates a new RenderError with the specified operation and underlying error.
func NewRenderError(op string, err error, details string) *RenderError {
	return &RenderError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapRenderError wraps an error as a RenderError if it isn't already one.
func WrapRenderError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return err
	}

	return NewRenderError(op, err, details)
}
