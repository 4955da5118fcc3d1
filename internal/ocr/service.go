// Package ocr reads the text printed on receipt photos using the Google Cloud
// Vision API.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Cloud Vision API Limitations:
//   - Maximum image size: 20MB for inline content
//   - Supported formats: JPEG, PNG, GIF, WEBP, BMP
//
// Implementation Details:
//   - Uses DOCUMENT_TEXT_DETECTION, which keeps the line structure of dense text
//   - Sends images inline (no GCS upload required)
//   - Hints French as the expected language
//   - Averages block confidence scores over the whole image
package ocr

import (
	"context"
	"time"
)

// OCRService defines the interface for OCR text extraction services.
type OCRService interface {
	// ProcessImage extracts the text of a receipt image.
	ProcessImage(ctx context.Context, image []byte) (string, error)

	// ProcessImageWithMetadata extracts the text of a receipt image with
	// confidence and language information.
	ProcessImageWithMetadata(ctx context.Context, image []byte) (*OCRResult, error)
}

// OCRResult contains the results of OCR processing with metadata.
type OCRResult struct {
	// Text is the extracted text in reading order.
	Text string `json:"text"`

	// BlockCount is the number of text blocks detected.
	BlockCount int `json:"block_count"`

	// Confidence is the average block confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// LanguageCodes contains the detected languages, sorted.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
