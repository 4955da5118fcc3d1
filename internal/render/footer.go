package render

import (
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"
)

// LegalNotice is printed at the bottom of every page.
const LegalNotice = "En cas de retard de paiement, une pénalité égale à trois fois le taux d'intérêt légal sera exigible " +
	"(article L441-10 du Code de commerce), ainsi qu'une indemnité forfaitaire pour frais de recouvrement " +
	"de 40 euros (article D441-5 du Code de commerce)."

func footerFunc(pdf *gofpdf.Fpdf, rc RenderContext) func() {
	return func() {
		setText(pdf, rgb{110, 110, 110})
		rc.Font(pdf, "", 7)

		y := footerTop
		for _, line := range WrapText(LegalNotice, printableWidth, rc.Measure(pdf)) {
			pdf.SetXY(margin, y)
			pdf.CellFormat(printableWidth, footerLineHeight, rc.Text(line), "", 0, "C", false, 0, "")
			y += footerLineHeight
		}

		pdf.SetXY(margin, y+1)
		pdf.CellFormat(printableWidth, footerLineHeight, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
		setText(pdf, textColor)
	}
}
