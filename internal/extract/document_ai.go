package extract

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// MaxDocumentSizeBytes is the maximum inline document size (20MB).
const MaxDocumentSizeBytes = 20 * 1024 * 1024

// DocumentAIConfig holds the Document AI processor settings.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string // "us" or "eu"
	ProcessorID      string // an EXPENSE_PROCESSOR
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIExtractor extracts receipts with the Document AI expense parser.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates an extractor with credentials from the environment.
func NewDocumentAIExtractor(ctx context.Context, config DocumentAIConfig) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if config.ProjectID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if config.Location == "" {
		config.Location = "eu"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocumentAIExtractor{
		client: client,
		config: config,
		log:    logger.WithComponent("extract-documentai"),
	}, nil
}

// Extract reads an invoice record from the receipt image.
func (e *DocumentAIExtractor) Extract(ctx context.Context, img Image) (*models.InvoiceRecord, error) {
	const op = "DocumentAIExtractor.Extract"

	if len(img.Data) > MaxDocumentSizeBytes {
		return nil, NewExtractionError(op, ErrUnsupportedImage, fmt.Sprintf("file size: %d bytes", len(img.Data)))
	}
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(img.Data)
	}

	processCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	resp, err := e.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: e.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  img.Data,
				MimeType: mimeType,
			},
		},
	})
	if err != nil {
		return nil, e.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, NewExtractionError(op, ErrEmptyResponse, "no document in response")
	}

	rec, err := recordFromDocument(resp.Document)
	if err != nil {
		return nil, WrapExtractionError(op, err, img.Name)
	}

	e.log.Info().
		Str("file", img.Name).
		Str("store", rec.StoreName).
		Int("line_items", len(rec.LineItems)).
		Int("entities", len(resp.Document.Entities)).
		Msg("Document AI extraction completed")

	return rec, nil
}

func (e *DocumentAIExtractor) processorName() string {
	if e.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			e.config.ProjectID, e.config.Location, e.config.ProcessorID, e.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		e.config.ProjectID, e.config.Location, e.config.ProcessorID)
}

// handleProcessingError converts Document AI errors to extraction errors.
func (e *DocumentAIExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PermissionDenied") || strings.Contains(errStr, "PERMISSION_DENIED"):
		return NewExtractionError(op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "ResourceExhausted") || strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return NewExtractionError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "NOT_FOUND"):
		return NewExtractionError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", e.config.ProcessorID))
	case strings.Contains(errStr, "InvalidArgument") || strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewExtractionError(op, ErrUnsupportedImage, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"),
		strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return NewExtractionError(op, ErrContextCanceled, errStr)
	default:
		return NewExtractionError(op, ErrExtractionFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (e *DocumentAIExtractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// recordFromDocument maps expense parser entities onto an invoice record.
// Receipt prices are taken as VAT-inclusive.
func recordFromDocument(doc *documentaipb.Document) (*models.InvoiceRecord, error) {
	rec := &models.InvoiceRecord{LineItems: []models.LineItem{}}

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)

		switch entity.Type {
		case "supplier_name":
			rec.StoreName = value
			rec.Seller.Name = value
		case "supplier_address":
			rec.Seller.Address = value
		case "supplier_city":
			rec.Seller.City = value
		case "supplier_phone":
			rec.Seller.Phone = value
		case "supplier_email":
			rec.Seller.Email = value
		case "supplier_tax_id", "supplier_registration":
			rec.Seller.TaxID = value
		case "receipt_date", "invoice_date":
			rec.Date = entityDate(entity)
		case "net_amount":
			rec.TotalExclVAT = entityMoney(entity)
		case "total_tax_amount":
			rec.TotalVAT = entityMoney(entity)
		case "total_amount":
			rec.TotalInclVAT = entityMoney(entity)
		case "line_item":
			if item, ok := lineItemFromEntity(entity); ok {
				rec.LineItems = append(rec.LineItems, item)
			}
		}
	}

	rec.VATRate = impliedVATRate(rec.TotalExclVAT, rec.TotalVAT)
	return rec, nil
}

func lineItemFromEntity(entity *documentaipb.Document_Entity) (models.LineItem, bool) {
	var item models.LineItem
	var amount *decimal.Decimal

	for _, prop := range entity.Properties {
		value := strings.TrimSpace(prop.MentionText)
		switch prop.Type {
		case "line_item/description":
			if value != "" {
				item.Name = &value
			}
		case "line_item/quantity":
			if q, err := invoice.ParseAmount(value); err == nil {
				item.Quantity = &q
			}
		case "line_item/unit_price":
			item.UnitPriceInclVAT = entityMoney(prop)
		case "line_item/amount":
			amount = entityMoney(prop)
		}
	}

	if item.Name == nil {
		// The parser sometimes leaves the description only in the mention text
		text := strings.TrimSpace(entity.MentionText)
		if text == "" {
			return models.LineItem{}, false
		}
		item.Name = &text
	}

	if item.UnitPriceInclVAT == nil && amount != nil {
		unit := *amount
		if item.Quantity != nil && item.Quantity.IsPositive() {
			unit = amount.Div(*item.Quantity).Round(2)
		}
		item.UnitPriceInclVAT = &unit
	}
	return item, true
}

// entityMoney prefers the normalized money value and falls back to the mention text.
func entityMoney(entity *documentaipb.Document_Entity) *decimal.Decimal {
	if entity.NormalizedValue != nil {
		if money := entity.NormalizedValue.GetMoneyValue(); money != nil {
			amount := decimal.New(money.Units, 0).Add(decimal.New(int64(money.Nanos), -9))
			return &amount
		}
	}

	amount, err := invoice.ParseAmount(entity.MentionText)
	if err != nil {
		return nil
	}
	return &amount
}

// entityDate returns the date as DD/MM/YYYY when normalized, else the raw text.
func entityDate(entity *documentaipb.Document_Entity) string {
	if entity.NormalizedValue != nil {
		if d := entity.NormalizedValue.GetDateValue(); d != nil && d.Year > 0 {
			return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
		}
	}
	return strings.TrimSpace(entity.MentionText)
}

// impliedVATRate derives the rate from net and tax totals, to one decimal.
func impliedVATRate(net, tax *decimal.Decimal) *decimal.Decimal {
	if net == nil || tax == nil || !net.IsPositive() || tax.IsNegative() {
		return nil
	}
	rate := tax.Div(*net).Mul(decimal.NewFromInt(100)).Round(1)
	return &rate
}
