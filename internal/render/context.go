package render

import (
	"strings"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

const (
	unicodeFamily   = "DejaVu"
	fallbackFamily  = "Helvetica"
	unicodeCurrency = "€"
	fallbackLabel   = "EUR"
)

// MeasureFunc returns the width of s in the current font, in page units.
type MeasureFunc func(s string) float64

// RenderContext carries the font and currency choices made once per render.
// Every draw function receives it and never looks at which font was picked.
type RenderContext struct {
	Family   string
	Currency string
	Unicode  bool

	translate func(string) string
}

func unicodeContext() RenderContext {
	return RenderContext{
		Family:   unicodeFamily,
		Currency: unicodeCurrency,
		Unicode:  true,
	}
}

// fallbackContext uses a core font. Text is converted to cp1252 so that every
// character is written as a single byte.
func fallbackContext(pdf *gofpdf.Fpdf) RenderContext {
	rc := RenderContext{
		Family:   fallbackFamily,
		Currency: fallbackLabel,
	}
	if tr := pdf.UnicodeTranslatorFromDescriptor(""); tr != nil && pdf.Ok() {
		rc.translate = tr
	}
	return rc
}

// Text converts s into the encoding expected by the selected font.
func (rc RenderContext) Text(s string) string {
	if rc.translate == nil {
		return s
	}
	return rc.translate(s)
}

// Font selects the context's family in the given style and size.
func (rc RenderContext) Font(pdf *gofpdf.Fpdf, style string, size float64) {
	pdf.SetFont(rc.Family, style, size)
}

// Measure returns a MeasureFunc bound to the current font of pdf.
func (rc RenderContext) Measure(pdf *gofpdf.Fpdf) MeasureFunc {
	return func(s string) float64 {
		return pdf.GetStringWidth(rc.Text(s))
	}
}

// Money formats an amount followed by the currency label, e.g. "1 234,50 €".
func (rc RenderContext) Money(d decimal.Decimal) string {
	return formatAmount(d) + " " + rc.Currency
}

// formatAmount renders d with two decimals, a decimal comma and spaces
// between thousands.
func formatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + "," + frac
}

// formatDecimal renders a quantity or rate without trailing zeros, e.g. "5,5".
func formatDecimal(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1)
}
