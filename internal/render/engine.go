package render

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/rs/zerolog"

	"invoicer/internal/invoice"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
)

// Options configures the layout engine.
type Options struct {
	// FontDir holds DejaVuSans.ttf and DejaVuSans-Bold.ttf.
	FontDir string

	// DisableUnicode forces the core-font fallback.
	DisableUnicode bool

	// MinRows pads the item table with empty rows up to this count.
	MinRows int

	// Compress enables stream compression in the PDF output.
	Compress bool

	// CreationDate is written to the document metadata. Zero means now.
	CreationDate time.Time
}

// DefaultOptions returns the options used by the CLI and the server.
func DefaultOptions() Options {
	return Options{
		FontDir:  "fonts",
		Compress: true,
	}
}

// Engine renders invoice records into PDF documents. It is safe for
// concurrent use; each call builds its own document.
type Engine struct {
	opts  Options
	fonts *FontCache
	log   zerolog.Logger
}

// NewEngine creates an engine sharing the process-wide font cache.
func NewEngine(opts Options) *Engine {
	return NewEngineWithFontCache(opts, sharedFonts)
}

// NewEngineWithFontCache creates an engine with an explicit font cache (for testing).
func NewEngineWithFontCache(opts Options, fonts *FontCache) *Engine {
	return &Engine{
		opts:  opts,
		fonts: fonts,
		log:   logger.WithComponent("render"),
	}
}

// Render lays out rec as an invoice numbered number. Records that cannot make
// a meaningful invoice yield an *invoice.StructuralInputError and no document.
func (e *Engine) Render(rec *models.InvoiceRecord, number string) (*Document, error) {
	const op = "Render"

	inv, err := invoice.Normalize(rec)
	if err != nil {
		return nil, err
	}
	if number == "" {
		number = invoice.GenerateNumber(e.creationDate())
	}

	pdf, rc := e.newDocument()
	e.setMetadata(pdf, rc, inv, number)
	pdf.SetFooterFunc(footerFunc(pdf, rc))

	doc := &Document{
		InvoiceNumber: number,
		Totals:        inv.Totals,
		Fallback:      !rc.Unicode,
	}
	vatRate := formatDecimal(inv.VATRate)

	pdf.AddPage()
	drawHeader(pdf, rc, inv, number)

	doc.Layout.SellerHeight = drawPartyBlock(pdf, rc, sellerX, blocksTop, "ÉMETTEUR", sellerEntries(inv.Seller))
	doc.Layout.BuyerHeight = drawPartyBlock(pdf, rc, buyerX, blocksTop, "CLIENT", buyerEntries(inv.Buyer))
	doc.Layout.TableTop = blocksTop + max(doc.Layout.SellerHeight, doc.Layout.BuyerHeight) + tableGap

	table := newTableWriter(pdf, rc, doc.Layout.TableTop)
	table.drawHeader()
	for _, line := range inv.Lines {
		table.writeLine(line, vatRate)
	}
	table.pad(e.opts.MinRows)
	doc.Layout.Rows = table.rows

	doc.Layout.TotalsTop = drawTotals(pdf, rc, table.y+totalsGap, totalsLines(rc, inv.Totals, vatRate))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, WrapRenderError(op, err, "failed to write PDF")
	}
	doc.Bytes = buf.Bytes()
	doc.Layout.Pages = pdf.PageNo()

	e.log.Debug().
		Str("invoice_number", number).
		Int("rows", len(inv.Lines)).
		Int("pages", doc.Layout.Pages).
		Bool("fallback_font", doc.Fallback).
		Str("totals_source", inv.Totals.Source).
		Int("bytes", len(doc.Bytes)).
		Msg("Invoice rendered")

	return doc, nil
}

func (e *Engine) creationDate() time.Time {
	if e.opts.CreationDate.IsZero() {
		return time.Now()
	}
	return e.opts.CreationDate
}

func (e *Engine) newPDF() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(cellPadding)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(e.opts.Compress)
	pdf.SetCreationDate(e.creationDate())
	pdf.AliasNbPages("")
	return pdf
}

// newDocument resolves the font once for this render. Any failure to use the
// Unicode font is absorbed here and yields the fallback context.
func (e *Engine) newDocument() (*gofpdf.Fpdf, RenderContext) {
	if !e.opts.DisableUnicode {
		pdf, err := e.unicodeDocument()
		if err == nil {
			return pdf, unicodeContext()
		}
		e.log.Debug().Err(err).Msg("Using fallback font")
	}

	pdf := e.newPDF()
	return pdf, fallbackContext(pdf)
}

func (e *Engine) unicodeDocument() (*gofpdf.Fpdf, error) {
	regular, bold, err := e.fonts.Load(e.opts.FontDir)
	if err != nil {
		return nil, err
	}

	pdf := e.newPDF()
	if err := registerFonts(pdf, regular, bold); err != nil {
		e.fonts.MarkUnavailable(e.opts.FontDir, err)
		return nil, err
	}
	return pdf, nil
}

// registerFonts adds the Unicode families. The TrueType parser may panic on
// corrupt files, which is reported as an error.
func registerFonts(pdf *gofpdf.Fpdf, regular, bold []byte) (err error) {
	const op = "registerFonts"

	defer func() {
		if r := recover(); r != nil {
			err = NewRenderError(op, ErrFontUnavailable, fmt.Sprint(r))
		}
	}()

	pdf.AddUTF8FontFromBytes(unicodeFamily, "", regular)
	pdf.AddUTF8FontFromBytes(unicodeFamily, "B", bold)
	pdf.SetFont(unicodeFamily, "", 10)
	if pdf.Err() {
		return NewRenderError(op, errors.Join(ErrFontUnavailable, pdf.Error()), "font rejected")
	}
	return nil
}

func (e *Engine) setMetadata(pdf *gofpdf.Fpdf, rc RenderContext, inv *invoice.Invoice, number string) {
	pdf.SetTitle(rc.Text("Facture "+number), rc.Unicode)
	pdf.SetSubject(rc.Text("Facture "+inv.StoreName), rc.Unicode)
	pdf.SetAuthor(rc.Text(inv.Seller.Name), rc.Unicode)
	pdf.SetCreator("invoicer", false)
}
