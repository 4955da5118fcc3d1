package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoicer/internal/logger"
)

// MaxFileSizeBytes is the maximum image size for inline requests (20MB)
const MaxFileSizeBytes = 20 * 1024 * 1024

// GoogleVisionOCRService implements OCRService using Google Cloud Vision API.
type GoogleVisionOCRService struct {
	client        *vision.ImageAnnotatorClient
	languageHints []string
	log           zerolog.Logger
}

// NewGoogleVisionOCRService creates a new OCR service with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionOCRService(ctx context.Context) (OCRService, error) {
	const op = "NewGoogleVisionOCRService"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewGoogleVisionOCRServiceWithClient(client), nil
}

// NewGoogleVisionOCRServiceWithClient creates a new OCR service with an explicit client (for testing).
func NewGoogleVisionOCRServiceWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionOCRService {
	return &GoogleVisionOCRService{
		client:        client,
		languageHints: []string{"fr"},
		log:           logger.WithComponent("ocr"),
	}
}

// ProcessImage extracts the text of a receipt image.
func (g *GoogleVisionOCRService) ProcessImage(ctx context.Context, image []byte) (string, error) {
	result, err := g.ProcessImageWithMetadata(ctx, image)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ProcessImageWithMetadata extracts the text of a receipt image with additional metadata.
func (g *GoogleVisionOCRService) ProcessImageWithMetadata(ctx context.Context, image []byte) (*OCRResult, error) {
	const op = "ProcessImageWithMetadata"
	startTime := time.Now()

	if err := validateImage(image); err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("file size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: g.languageHints},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, WrapOCRError(op, ErrContextCanceled, err.Error())
		}
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	imageResp := resp.Responses[0]
	if imageResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imageResp.Error.Message))
	}

	result, err := resultFromAnnotation(imageResp.FullTextAnnotation)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	g.log.Debug().
		Int("text_length", len(result.Text)).
		Int("blocks", result.BlockCount).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("Receipt OCR completed")

	return result, nil
}

// validateImage checks the size and the format of the image before any API call.
func validateImage(image []byte) error {
	if len(image) > MaxFileSizeBytes {
		return ErrImageTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(image), "image/") {
		return ErrUnsupportedImage
	}
	return nil
}

// resultFromAnnotation collects text, block confidence and languages.
func resultFromAnnotation(annotation *visionpb.TextAnnotation) (*OCRResult, error) {
	if annotation == nil || strings.TrimSpace(annotation.Text) == "" {
		return nil, ErrEmptyDocument
	}

	var confidenceSum float32
	var blockCount int
	languageSet := make(map[string]bool)

	for _, page := range annotation.Pages {
		if page.Property != nil {
			for _, lang := range page.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languageSet[lang.LanguageCode] = true
				}
			}
		}
		for _, block := range page.Blocks {
			blockCount++
			confidenceSum += block.Confidence
		}
	}

	var avgConfidence float32
	if blockCount > 0 {
		avgConfidence = confidenceSum / float32(blockCount)
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return &OCRResult{
		Text:          annotation.Text,
		BlockCount:    blockCount,
		Confidence:    avgConfidence,
		LanguageCodes: languages,
	}, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
