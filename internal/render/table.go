package render

import (
	"math"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"invoicer/internal/invoice"
)

type column struct {
	caption string // lines separated by "\n"
	width   float64
	align   string
}

const descriptionWidth = 78.0

// columns returns the item table columns. Widths add up to printableWidth.
func columns(currency string) []column {
	return []column{
		{caption: "Désignation", width: descriptionWidth, align: "L"},
		{caption: "Qté", width: 14, align: "C"},
		{caption: "Unité", width: 16, align: "C"},
		{caption: "P.U. HT\n(" + currency + ")", width: 26, align: "R"},
		{caption: "TVA\n(%)", width: 14, align: "C"},
		{caption: "Total HT\n(" + currency + ")", width: 32, align: "R"},
	}
}

// tableWriter draws the item table, starting new pages as needed.
type tableWriter struct {
	pdf    *gofpdf.Fpdf
	rc     RenderContext
	cols   []column
	y      float64
	rows   []Row
	shaded bool

	pageRows int // rows drawn on the current page
}

func newTableWriter(pdf *gofpdf.Fpdf, rc RenderContext, top float64) *tableWriter {
	return &tableWriter{
		pdf:  pdf,
		rc:   rc,
		cols: columns(rc.Currency),
		y:    top,
	}
}

func (t *tableWriter) drawHeader() {
	pdf, rc := t.pdf, t.rc

	setFill(pdf, headerColor)
	setDraw(pdf, borderColor)
	setText(pdf, bandColor)
	rc.Font(pdf, "B", 8)

	x := margin
	for _, col := range t.cols {
		pdf.Rect(x, t.y, col.width, tableHeaderHeight, "FD")
		lines := strings.Split(col.caption, "\n")
		offset := (tableHeaderHeight - float64(len(lines))*headerLineHeight) / 2
		for i, line := range lines {
			pdf.SetXY(x, t.y+offset+float64(i)*headerLineHeight)
			pdf.CellFormat(col.width, headerLineHeight, rc.Text(line), "", 0, "C", false, 0, "")
		}
		x += col.width
	}

	t.y += tableHeaderHeight
	setText(pdf, textColor)
}

// ensureSpace moves to a new page, repeating the header, when h does not fit.
func (t *tableWriter) ensureSpace(h float64) {
	if t.y+h <= contentBottom {
		return
	}
	t.newPage()
}

func (t *tableWriter) newPage() {
	t.pdf.AddPage()
	t.y = margin
	t.pageRows = 0
	t.drawHeader()
}

// linesLeft is the number of description lines that still fit on the page.
func (t *tableWriter) linesLeft() int {
	return int(math.Floor((contentBottom - t.y + 1e-9) / rowLineHeight))
}

// writeLine draws one item row. The description is wrapped first; its line
// count fixes the row height and every cell is drawn with that height.
// A row that cannot fit on a fresh page is split across pages; the parts
// share the row's shading and only the first carries the amounts.
func (t *tableWriter) writeLine(line invoice.Line, vatRate string) {
	pdf, rc := t.pdf, t.rc
	rc.Font(pdf, "", 9)

	lines := WrapText(line.Name, descriptionWidth-2*cellPadding, rc.Measure(pdf))
	values := []string{
		"",
		formatDecimal(line.Quantity),
		line.Unit,
		formatAmount(line.UnitPriceExclVAT),
		vatRate,
		formatAmount(line.TotalExclVAT),
	}

	h := rowHeight(len(lines))
	if t.y+h <= contentBottom || (h <= pageCapacity && t.pageRows > 0) {
		t.ensureSpace(h)
		rc.Font(pdf, "", 9)
		t.writeRow(h, lines, values, false)
		return
	}

	continued := false
	for len(lines) > 0 {
		n := t.linesLeft()
		if n < 1 {
			t.newPage()
			continue
		}
		n = min(n, len(lines))
		rc.Font(pdf, "", 9)
		t.drawRow(rowHeight(n), lines[:n], values, false, continued)
		lines = lines[n:]
		if len(lines) > 0 {
			t.newPage()
		}
		values = make([]string, len(t.cols))
		continued = true
	}
	t.shaded = !t.shaded
}

// pad draws empty rows until the table has at least n rows.
func (t *tableWriter) pad(n int) {
	for len(t.rows) < n {
		h := rowHeight(1)
		t.ensureSpace(h)
		t.writeRow(h, nil, make([]string, len(t.cols)), true)
	}
}

func (t *tableWriter) writeRow(h float64, lines, values []string, padding bool) {
	t.drawRow(h, lines, values, padding, false)
	t.shaded = !t.shaded
}

// drawRow draws one row at the current position without toggling the shading.
func (t *tableWriter) drawRow(h float64, lines, values []string, padding, continued bool) {
	pdf, rc := t.pdf, t.rc

	setFill(pdf, zebraColor)
	setDraw(pdf, borderColor)
	setText(pdf, textColor)

	row := Row{
		Page:        pdf.PageNo(),
		Y:           t.y,
		Height:      h,
		Lines:       lines,
		CellHeights: make([]float64, 0, len(t.cols)),
		Shaded:      t.shaded,
		Padding:     padding,
		Continued:   continued,
	}

	x := margin
	desc := t.cols[0]
	style := "D"
	if t.shaded {
		style = "FD"
	}
	pdf.Rect(x, t.y, desc.width, h, style)
	for i, text := range lines {
		pdf.SetXY(x, t.y+float64(i)*rowLineHeight)
		pdf.CellFormat(desc.width, rowLineHeight, rc.Text(text), "", 0, desc.align, false, 0, "")
	}
	row.CellHeights = append(row.CellHeights, h)
	x += desc.width

	for i, col := range t.cols[1:] {
		pdf.SetXY(x, t.y)
		pdf.CellFormat(col.width, h, rc.Text(values[i+1]), "1", 0, col.align, t.shaded, 0, "")
		row.CellHeights = append(row.CellHeights, h)
		x += col.width
	}

	t.rows = append(t.rows, row)
	t.y += h
	t.pageRows++
}
