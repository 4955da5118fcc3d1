package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"invoicer/internal/extract"
	"invoicer/internal/logger"
	"invoicer/internal/sheets"
)

var scanCmd = &cobra.Command{
	Use:   "scan [receipt-image]",
	Short: "Extract a receipt photo and render its invoice",
	Long: `Read a receipt photo with the configured extractor and render the invoice PDF.

Extractors (EXTRACTOR):
  openai     - the photo is sent to a vision model (OPENAI_API_KEY)
  ocr        - Google Cloud Vision OCR, then a text model (OPENAI_API_KEY + Google credentials)
  documentai - Google Document AI expense parser (GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID)`,
	Example: `  # Extract and render
  invoicer scan ticket.jpg

  # Keep the extracted record next to the PDF
  invoicer scan ticket.jpg --save-json

  # Also log the invoice in the Google Sheet ledger
  invoicer scan ticket.jpg --sheet`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("output", "o", "", "Output file or directory (default: facture-<number>.pdf)")
	scanCmd.Flags().Bool("save-json", false, "Write the extracted record as JSON next to the PDF")
	scanCmd.Flags().Bool("sheet", false, "Append the invoice to GOOGLE_SHEET_URL")
	scanCmd.Flags().Duration("timeout", 3*time.Minute, "Extraction timeout")
	addRenderFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("scan")

	imagePath := args[0]
	output, _ := cmd.Flags().GetString("output")
	saveJSON, _ := cmd.Flags().GetBool("save-json")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if toSheet && cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required with --sheet")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read receipt: %w", err)
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		return handleExtractionError(err)
	}
	defer closeClient(extractor, log)

	log.Info().
		Str("file", imagePath).
		Str("extractor", cfg.Extractor).
		Int("size", len(data)).
		Msg("Extracting receipt")

	rec, err := extractor.Extract(ctx, extract.Image{Data: data, Name: filepath.Base(imagePath)})
	if err != nil {
		return handleExtractionError(err)
	}

	doc, err := newEngine(cmd, cfg).Render(rec, "")
	if err != nil {
		return handleRecordError(err)
	}

	path, err := writePDF(doc, output)
	if err != nil {
		return err
	}

	if saveJSON {
		jsonPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		recJSON, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if err := os.WriteFile(jsonPath, recJSON, 0o644); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
		fmt.Printf("Enregistrement : %s\n", jsonPath)
	}

	if toSheet {
		service, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		entry := sheets.Entry{
			File:   filepath.Base(imagePath),
			Number: doc.InvoiceNumber,
			Date:   rec.Date,
			Store:  rec.StoreName,
			Totals: doc.Totals,
		}
		if err := service.AppendEntries(ctx, cfg.GoogleSheetWorksheet, []sheets.Entry{entry}); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
	}

	log.Info().
		Str("file", path).
		Str("invoice_number", doc.InvoiceNumber).
		Int("line_items", len(rec.LineItems)).
		Str("totals_source", doc.Totals.Source).
		Msg("Receipt converted to invoice")

	fmt.Printf("Facture %s : %s (total TTC %s €)\n", doc.InvoiceNumber, path, doc.Totals.Grand.StringFixed(2))
	return nil
}
