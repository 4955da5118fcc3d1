package extract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrMissingAPIKey is returned when OPENAI_API_KEY is not configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")

	// ErrInvalidConfiguration is returned when the extractor configuration is incomplete.
	ErrInvalidConfiguration = errors.New("invalid extractor configuration")

	// ErrUnknownExtractor is returned for an unsupported extractor kind.
	ErrUnknownExtractor = errors.New("unknown extractor kind")

	// ErrUnsupportedImage is returned when the upload is not a decodable image.
	ErrUnsupportedImage = errors.New("unsupported or corrupted image")

	// ErrEmptyResponse is returned when the model sends no usable content.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrInvalidCredentials is returned when the API rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid API credentials")

	// ErrQuotaExceeded is returned when the API quota or rate limit is exhausted.
	ErrQuotaExceeded = errors.New("API quota exceeded")

	// ErrProcessorNotFound is returned when the Document AI processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrExtractionFailed is returned when every attempt failed.
	ErrExtractionFailed = errors.New("receipt extraction failed")

	// ErrContextCanceled is returned when the context is canceled during extraction.
	ErrContextCanceled = errors.New("extraction was canceled")
)

// ExtractionError wraps errors with the operation that failed.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "OpenAIExtractor.Extract").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return err
	}

	return NewExtractionError(op, err, details)
}
