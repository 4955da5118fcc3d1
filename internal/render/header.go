package render

import (
	"github.com/jung-kurt/gofpdf/v2"

	"invoicer/internal/invoice"
)

func setFill(pdf *gofpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }
func setText(pdf *gofpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setDraw(pdf *gofpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }

// drawHeader paints the coloured band at the top of the first page.
func drawHeader(pdf *gofpdf.Fpdf, rc RenderContext, inv *invoice.Invoice, number string) {
	setFill(pdf, bandColor)
	pdf.Rect(0, 0, pageWidth, bandHeight, "F")

	setText(pdf, white)
	rc.Font(pdf, "B", 20)
	pdf.SetXY(margin, 7)
	pdf.CellFormat(90, 10, rc.Text("FACTURE"), "", 0, "L", false, 0, "")

	rc.Font(pdf, "", 10)
	pdf.SetXY(margin, 17)
	store := inv.StoreName
	if store == "" {
		store = inv.Seller.Name
	}
	pdf.CellFormat(90, 6, rc.Text(fitText(store, 90, rc.Measure(pdf))), "", 0, "L", false, 0, "")

	rc.Font(pdf, "B", 11)
	pdf.SetXY(buyerX, 7)
	pdf.CellFormat(blockWidth, 7, rc.Text("N° "+number), "", 0, "R", false, 0, "")

	rc.Font(pdf, "", 10)
	pdf.SetXY(buyerX, 15)
	pdf.CellFormat(blockWidth, 6, rc.Text(fitText("Date : "+inv.Date, blockWidth, rc.Measure(pdf))), "", 0, "R", false, 0, "")

	setText(pdf, textColor)
}
