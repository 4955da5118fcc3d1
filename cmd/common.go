package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicer/internal/config"
	"invoicer/internal/extract"
	"invoicer/internal/invoice"
	"invoicer/internal/render"
)

// imageExtensions are the receipt formats picked up by scan and batch.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

// addRenderFlags registers the layout flags shared by render, scan and batch.
func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().String("font-dir", "", "Directory holding DejaVuSans.ttf and DejaVuSans-Bold.ttf (default: FONT_DIR)")
	cmd.Flags().Int("min-rows", -1, "Pad the item table to at least this many rows (default: TABLE_MIN_ROWS)")
	cmd.Flags().Bool("no-unicode", false, "Use the built-in Helvetica font and the EUR label")
}

// newEngine builds the layout engine from the configuration and the flags.
func newEngine(cmd *cobra.Command, cfg *config.Config) *render.Engine {
	opts := render.DefaultOptions()
	opts.FontDir = cfg.FontDir
	opts.MinRows = cfg.TableMinRows

	if dir, _ := cmd.Flags().GetString("font-dir"); dir != "" {
		opts.FontDir = dir
	}
	if rows, _ := cmd.Flags().GetInt("min-rows"); rows >= 0 {
		opts.MinRows = rows
	}
	opts.DisableUnicode, _ = cmd.Flags().GetBool("no-unicode")

	return render.NewEngine(opts)
}

// closeClient releases the API clients held by c, if it holds any.
func closeClient(c any, log zerolog.Logger) {
	closer, ok := c.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close API client")
	}
}

// newExtractor builds the configured extractor.
func newExtractor(ctx context.Context, cfg *config.Config) (extract.Extractor, error) {
	if err := cfg.RequireExtraction(); err != nil {
		return nil, err
	}

	return extract.New(ctx, extract.Settings{
		Kind:         cfg.Extractor,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		Model: extract.Config{
			Model:             cfg.OpenAIModel,
			Temperature:       cfg.OpenAITemperature,
			MaxRetries:        cfg.ExtractionMaxRetries,
			MaxImageDimension: cfg.MaxImageDimension,
		},
		DocumentAI: extract.DocumentAIConfig{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
		},
	})
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// outputPath resolves where a PDF goes: a file path, a directory, or the
// working directory when empty.
func outputPath(target, number string) (string, error) {
	name := render.FileName(number)
	if target == "" {
		return name, nil
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, name), nil
	}
	if strings.HasSuffix(target, string(os.PathSeparator)) {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		return filepath.Join(target, name), nil
	}
	return target, nil
}

// writePDF writes the document and returns the path used.
func writePDF(doc *render.Document, target string) (string, error) {
	path, err := outputPath(target, doc.InvoiceNumber)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, doc.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("failed to write PDF: %w", err)
	}
	return path, nil
}

// handleRecordError provides user-friendly messages for rejected records.
func handleRecordError(err error) error {
	var structErr *invoice.StructuralInputError
	if errors.As(err, &structErr) {
		switch {
		case errors.Is(err, invoice.ErrInvalidJSON):
			return fmt.Errorf("the record is not a JSON object: %w", err)
		case errors.Is(err, invoice.ErrMissingLineItems):
			return fmt.Errorf("the record has no line items list; an invoice needs at least an empty \"line_items\": []")
		case errors.Is(err, invoice.ErrMissingItemName):
			return fmt.Errorf("%s is missing: every line item needs a name", structErr.Field)
		default:
			return fmt.Errorf("invalid record field %s: %w", structErr.Field, err)
		}
	}
	return err
}

// handleExtractionError provides user-friendly messages for extraction failures.
func handleExtractionError(err error) error {
	switch {
	case invoice.IsStructural(err):
		return fmt.Errorf("the receipt could not be read as an invoice (%w). Try a sharper photo", err)
	case errors.Is(err, extract.ErrMissingAPIKey):
		return fmt.Errorf("OPENAI_API_KEY is not set. Add it to your environment or .env file")
	case errors.Is(err, extract.ErrInvalidCredentials):
		return fmt.Errorf("the API rejected the credentials. Check OPENAI_API_KEY or the Google service account: %w", err)
	case errors.Is(err, extract.ErrQuotaExceeded):
		return fmt.Errorf("API quota exceeded. Wait a moment or check your billing: %w", err)
	case errors.Is(err, extract.ErrUnsupportedImage):
		return fmt.Errorf("unsupported or corrupted image. Use a JPEG, PNG, GIF, WebP or BMP photo: %w", err)
	case errors.Is(err, extract.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Check DOCUMENT_AI_PROCESSOR_ID and GOOGLE_CLOUD_LOCATION")
	case errors.Is(err, extract.ErrContextCanceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out or was canceled. Try increasing --timeout")
	default:
		return fmt.Errorf("receipt extraction failed: %w", err)
	}
}

func isImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
