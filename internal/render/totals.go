package render

import (
	"github.com/jung-kurt/gofpdf/v2"

	"invoicer/internal/invoice"
)

type totalsLine struct {
	label    string
	value    string
	emphasis bool
}

func totalsLines(rc RenderContext, t invoice.Totals, vatRate string) []totalsLine {
	lines := []totalsLine{
		{label: "Total HT", value: rc.Money(t.ExclVAT)},
		{label: "TVA (" + vatRate + " %)", value: rc.Money(t.VAT)},
	}
	if t.Shipping.IsPositive() {
		lines = append(lines, totalsLine{label: "Frais de port", value: rc.Money(t.Shipping)})
	}
	return append(lines, totalsLine{label: "Total TTC", value: rc.Money(t.Grand), emphasis: true})
}

// drawTotals draws the totals block right-aligned at y, on a new page if it
// does not fit, and returns the y it was drawn at.
func drawTotals(pdf *gofpdf.Fpdf, rc RenderContext, y float64, lines []totalsLine) float64 {
	if y+float64(len(lines))*totalsRowHeight > contentBottom {
		pdf.AddPage()
		y = margin
	}
	top := y

	x := margin + printableWidth - totalsLabelWidth - totalsValueWidth
	setDraw(pdf, borderColor)
	for _, line := range lines {
		pdf.SetXY(x, y)
		if line.emphasis {
			setFill(pdf, bandColor)
			setText(pdf, white)
			rc.Font(pdf, "B", 11)
		} else {
			setText(pdf, textColor)
			rc.Font(pdf, "", 10)
		}
		pdf.CellFormat(totalsLabelWidth, totalsRowHeight, rc.Text(line.label), "1", 0, "L", line.emphasis, 0, "")
		pdf.CellFormat(totalsValueWidth, totalsRowHeight, rc.Text(line.value), "1", 0, "R", line.emphasis, 0, "")
		y += totalsRowHeight
	}
	setText(pdf, textColor)

	return top
}
