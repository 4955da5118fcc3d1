package render

import (
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"invoicer/pkg/models"
)

// entry is one optional line of a seller or buyer block.
type entry struct {
	Label string
	Value string
}

func (e entry) text() string {
	if e.Label == "" {
		return e.Value
	}
	return e.Label + " : " + e.Value
}

// present drops the entries whose value is blank.
func present(entries ...entry) []entry {
	kept := make([]entry, 0, len(entries))
	for _, e := range entries {
		if v := strings.TrimSpace(e.Value); v != "" {
			kept = append(kept, entry{Label: e.Label, Value: v})
		}
	}
	return kept
}

func sellerEntries(s models.Seller) []entry {
	return present(
		entry{Value: s.Name},
		entry{Value: s.Address},
		entry{Value: s.City},
		entry{Value: s.Country},
		entry{Label: "Email", Value: s.Email},
		entry{Label: "Tél.", Value: s.Phone},
		entry{Label: "SIRET", Value: s.TaxID},
		entry{Label: "N° TVA", Value: s.VATID},
	)
}

func buyerEntries(b models.Buyer) []entry {
	return present(
		entry{Value: b.Company},
		entry{Value: b.Name},
		entry{Value: b.Address},
		entry{Value: b.City},
		entry{Value: b.Country},
	)
}

// blockHeight is the height of a block with n present entries.
func blockHeight(n int) float64 {
	return blockHeadingHeight + float64(n)*blockLineHeight
}

// drawPartyBlock draws a titled block at (x, y) and returns its height.
func drawPartyBlock(pdf *gofpdf.Fpdf, rc RenderContext, x, y float64, title string, entries []entry) float64 {
	setText(pdf, bandColor)
	setDraw(pdf, bandColor)
	rc.Font(pdf, "B", 10)
	pdf.SetXY(x, y)
	pdf.CellFormat(blockWidth, blockHeadingHeight, rc.Text(title), "B", 0, "L", false, 0, "")

	setText(pdf, textColor)
	rc.Font(pdf, "", 9)
	measure := rc.Measure(pdf)

	cursor := y + blockHeadingHeight
	for i, e := range entries {
		if i == 0 {
			rc.Font(pdf, "B", 9)
		}
		pdf.SetXY(x, cursor)
		pdf.CellFormat(blockWidth, blockLineHeight, rc.Text(fitText(e.text(), blockWidth-2*cellPadding, measure)), "", 0, "L", false, 0, "")
		if i == 0 {
			rc.Font(pdf, "", 9)
		}
		cursor += blockLineHeight
	}

	return cursor - y
}
