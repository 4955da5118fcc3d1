package render

import "invoicer/internal/invoice"

// Page geometry, in millimetres (A4 portrait).
const (
	pageWidth      = 210.0
	pageHeight     = 297.0
	margin         = 15.0
	printableWidth = pageWidth - 2*margin

	bandHeight = 28.0

	blocksTop          = 38.0
	blockWidth         = 85.0
	sellerX            = margin
	buyerX             = pageWidth - margin - blockWidth
	blockHeadingHeight = 7.0
	blockLineHeight    = 5.0

	tableGap          = 8.0
	headerLineHeight  = 5.0
	tableHeaderHeight = 2 * headerLineHeight
	rowLineHeight     = 5.0
	cellPadding       = 1.5

	totalsGap        = 6.0
	totalsLabelWidth = 45.0
	totalsValueWidth = 35.0
	totalsRowHeight  = 7.0

	footerLineHeight = 3.5
	footerTop        = pageHeight - 25.0
	contentBottom    = footerTop - 4.0

	// pageCapacity is the room for rows below a repeated table header.
	pageCapacity = contentBottom - margin - tableHeaderHeight
)

type rgb struct{ r, g, b int }

var (
	bandColor   = rgb{30, 60, 110}
	headerColor = rgb{220, 228, 240}
	zebraColor  = rgb{242, 245, 250}
	borderColor = rgb{170, 170, 170}
	textColor   = rgb{20, 20, 20}
	white       = rgb{255, 255, 255}
)

// Document is a rendered invoice.
type Document struct {
	Bytes         []byte
	InvoiceNumber string
	Totals        invoice.Totals
	Layout        Layout

	// Fallback is true when the core font and the EUR label were used.
	Fallback bool
}

// FileName is the download name of an invoice PDF.
func FileName(number string) string {
	return "facture-" + number + ".pdf"
}

// Layout records the geometry the engine drew, for callers and tests.
type Layout struct {
	SellerHeight float64
	BuyerHeight  float64
	TableTop     float64
	Rows         []Row
	TotalsTop    float64
	Pages        int
}

// Row is one drawn table row.
type Row struct {
	Page   int
	Y      float64
	Height float64
	Lines  []string // wrapped description, empty for padding rows

	// CellHeights holds the height each column was drawn with, left to right.
	CellHeights []float64

	Shaded  bool
	Padding bool

	// Continued marks the later parts of an item split across pages.
	Continued bool
}
