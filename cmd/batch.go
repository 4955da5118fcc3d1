package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicer/internal/extract"
	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/internal/render"
	"invoicer/internal/sheets"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Convert every receipt photo in a folder into invoice PDFs",
	Long: `Extract every receipt image (JPEG, PNG, GIF, WebP, BMP) in a folder and
render one invoice PDF per receipt into the output directory.

Receipts are processed by a pool of BATCH_WORKERS workers. A receipt that
cannot be read is reported and skipped; the others still produce invoices.
With --sheet, one ledger row per receipt is appended to GOOGLE_SHEET_URL.`,
	Example: `  # Convert a folder of photos
  invoicer batch ./tickets -o ./factures

  # With 8 workers and the Google Sheet ledger
  invoicer batch ./tickets -o ./factures --workers 8 --sheet`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// BatchResult represents the result of processing a single receipt
type BatchResult struct {
	Filename string
	PDFPath  string
	Document *render.Document
	Date     string
	Store    string
	Error    error
	Status   string // "success", "warning", "error"
	Index    int    // Original order index
}

// WorkerJob represents a receipt processing job
type WorkerJob struct {
	FilePath string
	Index    int
}

// batchProcessor converts one receipt; the extractor and the engine are shared
// by every worker.
type batchProcessor struct {
	extractor extract.Extractor
	engine    *render.Engine
	outputDir string
	log       zerolog.Logger
	verbose   bool

	mu   sync.Mutex
	used map[string]bool // invoice numbers handed out in this batch
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output", "o", "factures", "Output directory for the PDFs")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().Bool("sheet", false, "Append one row per receipt to GOOGLE_SHEET_URL")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
	batchCmd.Flags().Duration("timeout", 30*time.Minute, "Timeout for the whole batch")
	addRenderFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	outputDir, _ := cmd.Flags().GetString("output")
	numWorkers, _ := cmd.Flags().GetInt("workers")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if numWorkers <= 0 {
		if err := cfg.RequireBatch(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		numWorkers = cfg.BatchWorkers
	}
	if toSheet && cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required with --sheet")
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	images, err := findImageFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find receipt images: %w", err)
	}
	if len(images) == 0 {
		fmt.Println("Aucun ticket (image) trouvé dans le dossier.")
		return nil
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	extractor, err := newExtractor(ctx, cfg)
	if err != nil {
		return handleExtractionError(err)
	}
	defer closeClient(extractor, log)

	log.Info().
		Str("folder", folderPath).
		Str("output", outputDir).
		Str("extractor", cfg.Extractor).
		Int("files", len(images)).
		Int("workers", numWorkers).
		Msg("Starting batch processing")

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                         TICKETS → FACTURES")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Dossier : %s\n", folderPath)
	fmt.Printf("Sortie : %s\n", outputDir)
	fmt.Printf("Traitement de %d tickets avec %d workers...\n\n", len(images), numWorkers)

	p := &batchProcessor{
		extractor: extractor,
		engine:    newEngine(cmd, cfg),
		outputDir: outputDir,
		log:       log,
		verbose:   verbose,
	}
	results := p.processInParallel(ctx, images, numWorkers)

	successCount, warningCount, errorCount := countResults(results)

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RÉSULTAT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Factures générées : %d\n", successCount+warningCount)
	if warningCount > 0 {
		fmt.Printf("Sans prix (à vérifier) : %d\n", warningCount)
	}
	if errorCount > 0 {
		fmt.Printf("Erreurs : %d\n", errorCount)
	}

	if toSheet {
		fmt.Println("Écriture dans Google Sheet...")
		service, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		if err := service.AppendEntries(ctx, cfg.GoogleSheetWorksheet, ledgerEntries(results)); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}
		fmt.Printf("Feuille : %s (%d lignes)\n", cfg.GoogleSheetWorksheet, len(results))
	}

	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", len(images)).
		Int("success", successCount).
		Int("warnings", warningCount).
		Int("errors", errorCount).
		Msg("Batch processing completed")

	return nil
}

// findImageFiles finds all receipt images in the specified folder, sorted by path
func findImageFiles(folderPath string) ([]string, error) {
	var images []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isImageFile(info.Name()) {
			images = append(images, path)
		}
		return nil
	})

	return images, err
}

// processOne extracts and renders a single receipt
func (p *batchProcessor) processOne(ctx context.Context, imagePath string) BatchResult {
	result := BatchResult{
		Filename: filepath.Base(imagePath),
		Status:   "error",
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		result.Error = fmt.Errorf("failed to read receipt: %w", err)
		return result
	}

	rec, err := p.extractor.Extract(ctx, extract.Image{Data: data, Name: result.Filename})
	if err != nil {
		result.Error = handleExtractionError(err)
		return result
	}
	result.Date = rec.Date
	result.Store = rec.StoreName

	doc, err := p.engine.Render(rec, p.nextNumber())
	if err != nil {
		result.Error = handleRecordError(err)
		return result
	}

	path, err := writePDF(doc, p.outputDir)
	if err != nil {
		result.Error = err
		return result
	}

	result.Document = doc
	result.PDFPath = path
	result.Status = "success"

	// An invoice without any priced item needs a human look
	if doc.Totals.Grand.IsZero() {
		result.Status = "warning"
	}

	if p.verbose {
		p.log.Info().
			Str("file", result.Filename).
			Str("invoice_number", doc.InvoiceNumber).
			Str("store", rec.StoreName).
			Str("total_ttc", doc.Totals.Grand.StringFixed(2)).
			Msg("Receipt processed successfully")
	}

	return result
}

// nextNumber returns an invoice number not yet used in this batch, so that
// no PDF overwrites another.
func (p *batchProcessor) nextNumber() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.used == nil {
		p.used = make(map[string]bool)
	}
	for {
		number := invoice.GenerateNumber(time.Now())
		// 9000 sequence numbers per month
		if !p.used[number] || len(p.used) >= 9000 {
			p.used[number] = true
			return number
		}
	}
}

// processInParallel processes receipts using a worker pool pattern
func (p *batchProcessor) processInParallel(ctx context.Context, images []string, numWorkers int) []BatchResult {
	jobs := make(chan WorkerJob, len(images))
	results := make([]BatchResult, len(images))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				p.log.Debug().
					Int("worker", workerID).
					Str("file", job.FilePath).
					Int("index", job.Index+1).
					Msg("Worker processing receipt")

				result := p.processOne(ctx, job.FilePath)
				result.Index = job.Index
				results[job.Index] = result

				mu.Lock()
				processedCount++
				fmt.Printf("[%d/%d] %s - %s", processedCount, len(images), result.Filename, getStatusEmoji(result.Status))
				if result.Error != nil {
					fmt.Printf(" (%s)", result.Error.Error())
				} else {
					fmt.Printf(" (%s, %s €)", result.Document.InvoiceNumber, result.Document.Totals.Grand.StringFixed(2))
				}
				fmt.Println()
				mu.Unlock()
			}
		}(w)
	}

	for i, image := range images {
		jobs <- WorkerJob{FilePath: image, Index: i}
	}
	close(jobs)

	wg.Wait()

	return results
}

func countResults(results []BatchResult) (success, warning, failed int) {
	for _, result := range results {
		switch result.Status {
		case "success":
			success++
		case "warning":
			warning++
		default:
			failed++
		}
	}
	return success, warning, failed
}

// ledgerEntries converts batch results to Google Sheet rows
func ledgerEntries(results []BatchResult) []sheets.Entry {
	entries := make([]sheets.Entry, 0, len(results))
	for _, result := range results {
		entry := sheets.Entry{
			File:  result.Filename,
			Date:  result.Date,
			Store: result.Store,
			Err:   result.Error,
		}
		if result.Document != nil {
			entry.Number = result.Document.InvoiceNumber
			entry.Totals = result.Document.Totals
		}
		entries = append(entries, entry)
	}
	return entries
}

// getStatusEmoji returns an emoji for the processing status
func getStatusEmoji(status string) string {
	switch status {
	case "success":
		return "✅"
	case "warning":
		return "⚠️"
	case "error":
		return "❌"
	default:
		return "❓"
	}
}
