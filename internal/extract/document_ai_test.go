package extract

import (
	"errors"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/shopspring/decimal"
)

func entity(kind, text string, props ...*documentaipb.Document_Entity) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{Type: kind, MentionText: text, Properties: props}
}

func TestRecordFromDocument(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			entity("supplier_name", " Café Nord "),
			entity("supplier_address", "3 rue du Port"),
			entity("supplier_phone", "01 23 45 67 89"),
			entity("receipt_date", "12/03/2025"),
			entity("line_item", "ESPRESSO 2 x 2,10",
				entity("line_item/description", "Espresso"),
				entity("line_item/quantity", "2"),
				entity("line_item/unit_price", "2,10"),
			),
			entity("line_item", "CROISSANT 2,60",
				entity("line_item/description", "Croissant"),
				entity("line_item/quantity", "2"),
				entity("line_item/amount", "2,60"),
			),
			entity("line_item", "PAIN",
				entity("line_item/amount", "1,10"),
			),
			entity("line_item", ""),
			entity("net_amount", "5,00"),
			entity("total_tax_amount", "1,00"),
			entity("total_amount", "6,00 €"),
		},
	}

	rec, err := recordFromDocument(doc)
	if err != nil {
		t.Fatalf("recordFromDocument() error = %v", err)
	}

	if rec.StoreName != "Café Nord" || rec.Seller.Name != "Café Nord" {
		t.Errorf("store = %q, seller = %q, want Café Nord", rec.StoreName, rec.Seller.Name)
	}
	if rec.Seller.Address != "3 rue du Port" || rec.Seller.Phone != "01 23 45 67 89" {
		t.Errorf("seller = %+v", rec.Seller)
	}
	if rec.Date != "12/03/2025" {
		t.Errorf("Date = %q, want 12/03/2025", rec.Date)
	}
	if rec.VATRate == nil || !rec.VATRate.Equal(decimal.NewFromInt(20)) {
		t.Errorf("VATRate = %v, want 20", rec.VATRate)
	}
	if rec.TotalInclVAT == nil || rec.TotalInclVAT.StringFixed(2) != "6.00" {
		t.Errorf("TotalInclVAT = %v, want 6.00", rec.TotalInclVAT)
	}

	if len(rec.LineItems) != 3 {
		t.Fatalf("line items = %d, want 3", len(rec.LineItems))
	}
	wantItems := []struct {
		name  string
		price string
	}{
		{"Espresso", "2.10"},
		{"Croissant", "1.30"},
		{"PAIN", "1.10"},
	}
	for i, want := range wantItems {
		item := rec.LineItems[i]
		if item.Name == nil || *item.Name != want.name {
			t.Errorf("item %d name = %v, want %q", i, item.Name, want.name)
		}
		if item.UnitPriceInclVAT == nil || item.UnitPriceInclVAT.StringFixed(2) != want.price {
			t.Errorf("item %d unit price = %v, want %s", i, item.UnitPriceInclVAT, want.price)
		}
	}
}

func TestRecordFromDocumentEmpty(t *testing.T) {
	rec, err := recordFromDocument(&documentaipb.Document{})
	if err != nil {
		t.Fatalf("recordFromDocument() error = %v", err)
	}
	if rec.LineItems == nil {
		t.Error("LineItems is nil, want an empty list")
	}
	if rec.VATRate != nil {
		t.Errorf("VATRate = %v, want nil", rec.VATRate)
	}
}

func TestImpliedVATRate(t *testing.T) {
	d := func(s string) *decimal.Decimal {
		v := decimal.RequireFromString(s)
		return &v
	}

	tests := []struct {
		name     string
		net, tax *decimal.Decimal
		want     string
	}{
		{"standard", d("10.00"), d("2.00"), "20"},
		{"reduced", d("10.00"), d("0.55"), "5.5"},
		{"rounded", d("5.67"), d("1.13"), "19.9"},
		{"zero tax", d("10.00"), d("0"), "0"},
		{"missing net", nil, d("1.00"), ""},
		{"zero net", d("0"), d("1.00"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := impliedVATRate(tt.net, tt.tax)
			if tt.want == "" {
				if got != nil {
					t.Errorf("impliedVATRate() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("impliedVATRate() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestHandleProcessingError(t *testing.T) {
	e := &DocumentAIExtractor{config: DocumentAIConfig{ProcessorID: "abc"}}

	tests := []struct {
		msg  string
		want error
	}{
		{"rpc error: code = PermissionDenied desc = denied", ErrInvalidCredentials},
		{"rpc error: code = ResourceExhausted desc = quota", ErrQuotaExceeded},
		{"rpc error: code = NotFound desc = processor", ErrProcessorNotFound},
		{"rpc error: code = InvalidArgument desc = bad image", ErrUnsupportedImage},
		{"context deadline exceeded", ErrContextCanceled},
		{"something else", ErrExtractionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := e.handleProcessingError("test", errors.New(tt.msg))
			if !errors.Is(err, tt.want) {
				t.Errorf("handleProcessingError(%q) = %v, want %v", tt.msg, err, tt.want)
			}
		})
	}
}
