package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// ChatCompleter is the part of the OpenAI client used by the extractors.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIExtractor sends the receipt image to a multimodal chat model.
type OpenAIExtractor struct {
	client ChatCompleter
	config Config
	log    zerolog.Logger
}

// NewOpenAIExtractor creates an extractor using the given API key.
func NewOpenAIExtractor(apiKey string, config Config) (*OpenAIExtractor, error) {
	const op = "NewOpenAIExtractor"

	if apiKey == "" {
		return nil, WrapExtractionError(op, ErrMissingAPIKey, "")
	}
	return NewOpenAIExtractorWithClient(openai.NewClient(apiKey), config), nil
}

// NewOpenAIExtractorWithClient creates an extractor with an explicit client (for testing).
func NewOpenAIExtractorWithClient(client ChatCompleter, config Config) *OpenAIExtractor {
	return &OpenAIExtractor{
		client: client,
		config: config.withDefaults(),
		log:    logger.WithComponent("extract-openai"),
	}
}

// Extract reads an invoice record from the receipt image.
func (e *OpenAIExtractor) Extract(ctx context.Context, img Image) (*models.InvoiceRecord, error) {
	const op = "OpenAIExtractor.Extract"

	prepared, err := PrepareImage(img, e.config.MaxImageDimension)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("file", img.Name).
		Str("mime_type", prepared.MimeType).
		Int("original_bytes", len(img.Data)).
		Int("sent_bytes", len(prepared.Data)).
		Msg("Extracting receipt with vision model")

	user := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: imagePrompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    prepared.DataURL(),
					Detail: openai.ImageURLDetailHigh,
				},
			},
		},
	}

	rec, err := e.complete(ctx, user)
	if err != nil {
		return nil, WrapExtractionError(op, err, img.Name)
	}
	return rec, nil
}

// ExtractText reads an invoice record from OCR text.
func (e *OpenAIExtractor) ExtractText(ctx context.Context, text string) (*models.InvoiceRecord, error) {
	const op = "OpenAIExtractor.ExtractText"

	rec, err := e.complete(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: ocrPrompt(text),
	})
	if err != nil {
		return nil, WrapExtractionError(op, err, "")
	}
	return rec, nil
}

// complete runs the chat request with retries until the answer decodes into a
// record. Malformed JSON and structural errors are retried like API errors.
func (e *OpenAIExtractor) complete(ctx context.Context, user openai.ChatCompletionMessage) (*models.InvoiceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       e.config.Model,
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			user,
		},
	}

	e.log.Debug().
		Str("model", e.config.Model).
		Float32("temperature", e.config.Temperature).
		Int("max_retries", e.config.MaxRetries).
		Msg("Sending extraction request")

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		}

		start := time.Now()
		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = classifyAPIError(err)
			if errors.Is(lastErr, ErrInvalidCredentials) {
				return nil, lastErr
			}
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("Model request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			lastErr = ErrEmptyResponse
			continue
		}

		content := resp.Choices[0].Message.Content
		e.log.Debug().
			Str("response", content).
			Dur("duration", time.Since(start)).
			Int("total_tokens", resp.Usage.TotalTokens).
			Msg("Received model response")

		rec, err := invoice.ParseRecord([]byte(invoice.CleanJSON(content)))
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Model response is not a usable record, retrying")
			continue
		}

		e.log.Info().
			Str("store", rec.StoreName).
			Int("line_items", len(rec.LineItems)).
			Int("attempt", attempt).
			Msg("Receipt extracted")

		return rec, nil
	}

	return nil, fmt.Errorf("%w: all %d attempts failed, last error: %w", ErrExtractionFailed, e.config.MaxRetries, lastErr)
}

// classifyAPIError maps OpenAI HTTP failures onto the package sentinels.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrContextCanceled, err)
	}
	return err
}
