// Package extract turns receipt photos into invoice records.
//
// Three extractors are available:
//   - OpenAIExtractor sends the image to a multimodal chat model and asks for JSON
//   - OCRExtractor reads the text with Google Cloud Vision, then asks a text model
//   - DocumentAIExtractor uses the Google Document AI expense parser
//
// Every extractor returns a record decoded by invoice.ParseRecord, so a
// response without a line-items list is reported as a structural error.
//
// Required Environment Variables:
//   - OPENAI_API_KEY: for the openai and ocr extractors
//   - GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: for ocr and documentai
//   - GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID: for documentai
package extract

import (
	"context"
	"time"

	"invoicer/pkg/models"
)

// Extractor kinds accepted by New and the EXTRACTOR setting.
const (
	KindOpenAI     = "openai"
	KindOCR        = "ocr"
	KindDocumentAI = "documentai"
)

// Extractor reads an invoice record from a receipt image.
type Extractor interface {
	Extract(ctx context.Context, img Image) (*models.InvoiceRecord, error)
}

// Image is an uploaded receipt photo.
type Image struct {
	Data     []byte
	MimeType string // detected from Data when empty
	Name     string // original file name, for logs
}

// Config configures the language-model extractors.
type Config struct {
	Model             string
	Temperature       float32
	MaxRetries        int
	MaxTokens         int
	MaxImageDimension int
	Timeout           time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:             "gpt-4o-mini",
		Temperature:       0.1,
		MaxRetries:        3,
		MaxTokens:         2000,
		MaxImageDimension: 1600,
		Timeout:           90 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.MaxImageDimension <= 0 {
		c.MaxImageDimension = d.MaxImageDimension
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
