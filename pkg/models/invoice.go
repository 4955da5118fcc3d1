package models

import "github.com/shopspring/decimal"

// InvoiceRecord is the structured data extracted from a receipt. It is
// untrusted: every field except LineItems may be missing.
type InvoiceRecord struct {
	// Header
	StoreName string `json:"store_name,omitempty"` // Shop name as printed on the receipt
	Date      string `json:"date,omitempty"`       // Free-form purchase date, never parsed

	// VAT rate in percent (20 for 20%). Nil means "not on the receipt".
	VATRate *decimal.Decimal `json:"vat_rate,omitempty"`

	// Parties
	Seller Seller `json:"seller"`
	Buyer  Buyer  `json:"buyer"`

	// Items. A nil slice means the list is absent; an empty slice is a present, empty list.
	LineItems []LineItem `json:"line_items"`

	// Totals as read from the receipt. Only used when the items carry no price.
	TotalExclVAT *decimal.Decimal `json:"total_excl_vat,omitempty"`
	TotalVAT     *decimal.Decimal `json:"total_vat,omitempty"`
	TotalInclVAT *decimal.Decimal `json:"total_incl_vat,omitempty"`
	ShippingFee  *decimal.Decimal `json:"shipping_fee,omitempty"`
}

// Seller identifies the issuer of the invoice.
type Seller struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"` // SIRET or equivalent registration number
	VATID   string `json:"vat_id,omitempty"` // Intra-community VAT number
}

// Buyer identifies the customer.
type Buyer struct {
	Company string `json:"company,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// LineItem is one purchased product or service.
type LineItem struct {
	Name             *string          `json:"name"`
	Quantity         *decimal.Decimal `json:"quantity,omitempty"`
	Unit             string           `json:"unit,omitempty"`
	UnitPriceExclVAT *decimal.Decimal `json:"unit_price_excl_vat,omitempty"`
	UnitPriceInclVAT *decimal.Decimal `json:"unit_price_incl_vat,omitempty"`
}
