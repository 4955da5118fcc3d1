package extract

import (
	"context"
	"fmt"

	"invoicer/internal/ocr"
)

// Settings selects and configures an extractor.
type Settings struct {
	Kind         string
	OpenAIAPIKey string
	Model        Config
	DocumentAI   DocumentAIConfig
}

// New builds the extractor named by s.Kind.
func New(ctx context.Context, s Settings) (Extractor, error) {
	const op = "New"

	switch s.Kind {
	case KindOpenAI, "":
		return NewOpenAIExtractor(s.OpenAIAPIKey, s.Model)
	case KindOCR:
		model, err := NewOpenAIExtractor(s.OpenAIAPIKey, s.Model)
		if err != nil {
			return nil, err
		}
		service, err := ocr.NewGoogleVisionOCRService(ctx)
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create OCR service")
		}
		return NewOCRExtractor(service, model), nil
	case KindDocumentAI:
		return NewDocumentAIExtractor(ctx, s.DocumentAI)
	default:
		return nil, NewExtractionError(op, ErrUnknownExtractor, fmt.Sprintf("%q (expected %s, %s or %s)", s.Kind, KindOpenAI, KindOCR, KindDocumentAI))
	}
}
