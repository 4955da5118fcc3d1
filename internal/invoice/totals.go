package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoicer/pkg/models"
)

// Defaults applied to missing optional fields.
const (
	DefaultVATRate    = 20
	DefaultUnit       = "pce."
	DefaultSellerName = "COMMERCE"
	DefaultBuyerName  = "Client"
	DefaultDate       = "N/A"
)

// Totals sources
const (
	TotalsFromLineItems = "line_items"
	TotalsFromRecord    = "record"
)

// Line is a line item with every price resolved and rounded.
type Line struct {
	Name             string
	Quantity         decimal.Decimal
	Unit             string
	UnitPriceExclVAT decimal.Decimal
	TotalExclVAT     decimal.Decimal // round2(Quantity × UnitPriceExclVAT)
	TotalInclVAT     decimal.Decimal
	Priced           bool // false when neither unit price was given
}

// Totals holds the invoice amounts, all rounded to the cent.
type Totals struct {
	ExclVAT  decimal.Decimal
	VAT      decimal.Decimal
	InclVAT  decimal.Decimal
	Shipping decimal.Decimal
	Grand    decimal.Decimal // InclVAT + Shipping

	// Source is TotalsFromLineItems, or TotalsFromRecord when the line items
	// carried no price and the record's own totals were used instead.
	Source string
}

// Invoice is a normalized InvoiceRecord: defaults applied, prices derived,
// totals recomputed.
type Invoice struct {
	StoreName string
	Date      string
	VATRate   decimal.Decimal
	Seller    models.Seller
	Buyer     models.Buyer
	Lines     []Line
	Totals    Totals
}

// Normalize validates the structure of rec, applies defaults to every missing
// optional field and recomputes the totals. It never modifies rec.
func Normalize(rec *models.InvoiceRecord) (*Invoice, error) {
	if rec == nil {
		return nil, NewStructuralInputError("$", ErrNilRecord, "")
	}
	if rec.LineItems == nil {
		return nil, NewStructuralInputError("line_items", ErrMissingLineItems, "")
	}

	inv := &Invoice{
		StoreName: strings.TrimSpace(rec.StoreName),
		Date:      strings.TrimSpace(rec.Date),
		VATRate:   decimal.NewFromInt(DefaultVATRate),
		Seller:    rec.Seller,
		Buyer:     rec.Buyer,
	}
	if rec.VATRate != nil && !rec.VATRate.IsNegative() {
		inv.VATRate = *rec.VATRate
	}
	if inv.Date == "" {
		inv.Date = DefaultDate
	}
	if strings.TrimSpace(inv.Seller.Name) == "" {
		inv.Seller.Name = inv.StoreName
	}
	if strings.TrimSpace(inv.Seller.Name) == "" {
		inv.Seller.Name = DefaultSellerName
	}
	if strings.TrimSpace(inv.Buyer.Name) == "" {
		inv.Buyer.Name = DefaultBuyerName
	}

	inv.Lines = make([]Line, 0, len(rec.LineItems))
	for i, item := range rec.LineItems {
		line, err := resolveLine(i, item, inv.VATRate)
		if err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, line)
	}

	inv.Totals = ComputeTotals(inv.Lines, inv.VATRate, rec)
	return inv, nil
}

func resolveLine(index int, item models.LineItem, vatRate decimal.Decimal) (Line, error) {
	if item.Name == nil || strings.TrimSpace(*item.Name) == "" {
		return Line{}, NewStructuralInputError(lineField(index, "name"), ErrMissingItemName, "")
	}

	factor := vatFactor(vatRate)
	line := Line{
		Name:     strings.TrimSpace(*item.Name),
		Quantity: decimal.NewFromInt(1),
		Unit:     strings.TrimSpace(item.Unit),
	}
	if item.Quantity != nil && item.Quantity.IsPositive() {
		line.Quantity = *item.Quantity
	}
	if line.Unit == "" {
		line.Unit = DefaultUnit
	}

	excl, hasExcl := nonZero(item.UnitPriceExclVAT)
	incl, hasIncl := nonZero(item.UnitPriceInclVAT)

	switch {
	case hasExcl:
		line.UnitPriceExclVAT = round2(excl)
	case hasIncl:
		line.UnitPriceExclVAT = round2(incl.Div(factor))
	}
	line.Priced = hasExcl || hasIncl
	line.TotalExclVAT = round2(line.Quantity.Mul(line.UnitPriceExclVAT))

	if hasIncl {
		line.TotalInclVAT = round2(line.Quantity.Mul(incl))
	} else {
		line.TotalInclVAT = round2(line.TotalExclVAT.Mul(factor))
	}

	return line, nil
}

// ComputeTotals sums the rounded line totals. The record's own totals are only
// consulted when no line carries a price.
func ComputeTotals(lines []Line, vatRate decimal.Decimal, rec *models.InvoiceRecord) Totals {
	totals := Totals{Source: TotalsFromLineItems}

	priced := false
	for _, line := range lines {
		totals.ExclVAT = totals.ExclVAT.Add(line.TotalExclVAT)
		totals.InclVAT = totals.InclVAT.Add(line.TotalInclVAT)
		priced = priced || line.Priced
	}

	if !priced && rec != nil {
		if fallback, ok := totalsFromRecord(rec, vatRate); ok {
			totals = fallback
		}
	}
	totals.VAT = totals.InclVAT.Sub(totals.ExclVAT)

	if rec != nil {
		if shipping, ok := nonZero(rec.ShippingFee); ok && shipping.IsPositive() {
			totals.Shipping = round2(shipping)
		}
	}
	totals.Grand = totals.InclVAT.Add(totals.Shipping)

	return totals
}

// totalsFromRecord derives a consistent HT/TVA/TTC triple from whatever
// totals the record carries.
func totalsFromRecord(rec *models.InvoiceRecord, vatRate decimal.Decimal) (Totals, bool) {
	excl, hasExcl := nonZero(rec.TotalExclVAT)
	vat, hasVAT := nonZero(rec.TotalVAT)
	incl, hasIncl := nonZero(rec.TotalInclVAT)
	if !hasExcl && !hasVAT && !hasIncl {
		return Totals{}, false
	}

	excl, vat, incl = round2(excl), round2(vat), round2(incl)
	if !hasExcl && hasIncl {
		if hasVAT {
			excl = incl.Sub(vat)
		} else {
			excl = round2(incl.Div(vatFactor(vatRate)))
		}
	}
	if !hasIncl {
		if !hasVAT {
			vat = round2(excl.Mul(vatRate).Div(hundred))
		}
		incl = excl.Add(vat)
	}

	return Totals{
		ExclVAT: excl,
		InclVAT: incl,
		Source:  TotalsFromRecord,
	}, true
}

func vatFactor(vatRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(vatRate.Div(hundred))
}

func nonZero(d *decimal.Decimal) (decimal.Decimal, bool) {
	if d == nil || d.IsZero() {
		return decimal.Zero, false
	}
	return *d, true
}

func lineField(index int, name string) string {
	return fmt.Sprintf("line_items[%d].%s", index, name)
}
