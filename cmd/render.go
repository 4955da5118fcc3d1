package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
)

var renderCmd = &cobra.Command{
	Use:   "render [record.json]",
	Short: "Render an invoice PDF from a JSON record",
	Long: `Render an A4 invoice from an extracted JSON record.

The record needs a "line_items" list; every other field is optional and gets a
default (quantity 1, unit "pce.", VAT 20%, buyer "Client"). French keys from
older extractions (nom_magasin, articles, prix_unitaire_ttc...) are accepted.
Use "-" to read the record from stdin.`,
	Example: `  # Render to facture-<number>.pdf in the current directory
  invoicer render ticket.json

  # Fix the invoice number and write into a folder
  invoicer render ticket.json --number 202503-0042 -o factures/

  # Without the DejaVu fonts (Helvetica and "EUR")
  invoicer render ticket.json --no-unicode`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "", "Output file or directory (default: facture-<number>.pdf)")
	renderCmd.Flags().String("number", "", "Invoice number YYYYMM-NNNN (default: generated)")
	addRenderFlags(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("render-cmd")

	output, _ := cmd.Flags().GetString("output")
	number, _ := cmd.Flags().GetString("number")
	if number != "" && !invoice.ValidNumber(number) {
		return fmt.Errorf("invalid invoice number %q (expected YYYYMM-NNNN)", number)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := readRecordFile(args[0])
	if err != nil {
		return err
	}

	rec, err := invoice.ParseRecord(data)
	if err != nil {
		return handleRecordError(err)
	}

	doc, err := newEngine(cmd, cfg).Render(rec, number)
	if err != nil {
		return handleRecordError(err)
	}

	path, err := writePDF(doc, output)
	if err != nil {
		return err
	}

	log.Info().
		Str("file", path).
		Str("invoice_number", doc.InvoiceNumber).
		Int("pages", doc.Layout.Pages).
		Bool("fallback_font", doc.Fallback).
		Msg("Invoice rendered")

	fmt.Printf("Facture %s : %s (total TTC %s €)\n", doc.InvoiceNumber, path, doc.Totals.Grand.StringFixed(2))
	return nil
}

func readRecordFile(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return data, nil
}
