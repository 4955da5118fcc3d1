package extract

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"invoicer/internal/logger"
	"invoicer/internal/ocr"
	"invoicer/pkg/models"
)

// OCRExtractor reads the receipt text with an OCR service, then asks a text
// model to structure it.
type OCRExtractor struct {
	ocr   ocr.OCRService
	model *OpenAIExtractor
	log   zerolog.Logger
}

// NewOCRExtractor combines an OCR service with a model extractor.
func NewOCRExtractor(service ocr.OCRService, model *OpenAIExtractor) *OCRExtractor {
	return &OCRExtractor{
		ocr:   service,
		model: model,
		log:   logger.WithComponent("extract-ocr"),
	}
}

// Extract reads an invoice record from the receipt image.
func (e *OCRExtractor) Extract(ctx context.Context, img Image) (*models.InvoiceRecord, error) {
	const op = "OCRExtractor.Extract"

	result, err := e.ocr.ProcessImageWithMetadata(ctx, img.Data)
	if err != nil {
		return nil, WrapExtractionError(op, err, img.Name)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, NewExtractionError(op, ErrEmptyResponse, "no text found on the receipt")
	}

	e.log.Info().
		Str("file", img.Name).
		Int("characters", len(result.Text)).
		Int("blocks", result.BlockCount).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("Receipt text recognized")

	return e.model.ExtractText(ctx, result.Text)
}

// Close closes the OCR service when it holds a client connection.
func (e *OCRExtractor) Close() error {
	if closer, ok := e.ocr.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
