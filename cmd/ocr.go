package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicer/internal/logger"
	"invoicer/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [receipt-image]",
	Short: "Extract the text of a receipt photo using Google Cloud Vision OCR",
	Long: `Read the text printed on a receipt photo with Google Cloud Vision document
text detection. This is the first step of the "ocr" extractor and is useful to
check what the model will see.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Print the text of a receipt
  invoicer ocr ticket.jpg

  # Include metadata and output as JSON
  invoicer ocr ticket.jpg --metadata --json -o ticket.ocr.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	BlockCount         int       `json:"block_count,omitempty"`
	Confidence         float32   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Duration("timeout", 2*time.Minute, "Processing timeout")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	imagePath := args[0]

	fileInfo, err := validateImageFile(imagePath, log)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return err
	}
	defer closeClient(ocrService, log)

	result, err := ocrService.ProcessImageWithMetadata(ctx, data)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("blocks", result.BlockCount).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("OCR processing completed successfully")

	return outputResults(result, fileInfo, outputPath, jsonOutput, includeMetadata, log)
}

// validateImageFile checks that the file exists, is a regular file and fits the API limit
func validateImageFile(imagePath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", imagePath)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing image file: %s", imagePath)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", imagePath)
	}
	if !isImageFile(imagePath) {
		log.Warn().
			Str("file", imagePath).
			Msg("File does not have an image extension")
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("image file is empty: %s", imagePath)
	}
	if fileInfo.Size() > ocr.MaxFileSizeBytes {
		return nil, fmt.Errorf("image file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxFileSizeBytes)
	}

	return fileInfo, nil
}

// createOCRService creates and configures the OCR service
func createOCRService(ctx context.Context, log zerolog.Logger) (ocr.OCRService, error) {
	ocrService, err := ocr.NewGoogleVisionOCRService(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().Err(err).Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n" +
				"2. GOOGLE_CREDENTIALS with the inline JSON credentials\n" +
				"3. Application Default Credentials: gcloud auth application-default login")
		}
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}

	log.Debug().Msg("OCR service created successfully")
	return ocrService, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled), errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB). Try a smaller photo")
	case errors.Is(err, ocr.ErrUnsupportedImage):
		return fmt.Errorf("unsupported or corrupted image. Use a JPEG, PNG, GIF, WebP or BMP photo")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found on the receipt. Try a sharper, better lit photo")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") || strings.Contains(errStr, "PermissionDenied"):
		return fmt.Errorf("permission denied. Please ensure your service account has the 'Cloud Vision API User' role")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") || strings.Contains(errStr, "ResourceExhausted"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}

// outputResults formats and outputs the OCR results
func outputResults(result *ocr.OCRResult, fileInfo os.FileInfo, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		var err error
		outputData, err = json.MarshalIndent(OCROutput{
			Text:               result.Text,
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
			BlockCount:         result.BlockCount,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		var output strings.Builder
		if includeMetadata {
			fmt.Fprintf(&output, "=== OCR Results for %s ===\n", filepath.Base(fileInfo.Name()))
			fmt.Fprintf(&output, "File size: %d bytes\n", fileInfo.Size())
			fmt.Fprintf(&output, "Text blocks: %d\n", result.BlockCount)
			if result.Confidence > 0 {
				fmt.Fprintf(&output, "Confidence: %.1f%%\n", result.Confidence*100)
			}
			if len(result.LanguageCodes) > 0 {
				fmt.Fprintf(&output, "Languages: %s\n", strings.Join(result.LanguageCodes, ", "))
			}
			fmt.Fprintf(&output, "Processing time: %v\n", result.ProcessingDuration)
			output.WriteString("\n=== Extracted Text ===\n\n")
		}
		output.WriteString(result.Text)
		outputData = []byte(output.String())
	}

	if outputPath == "" {
		if _, err := os.Stdout.Write(outputData); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Println()
		return nil
	}

	if err := os.WriteFile(outputPath, outputData, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(outputData)).
		Msg("OCR results written to file")
	return nil
}
