package sheets

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/invoice"
)

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0", "1AbC-dEf_123", false},
		{"https://docs.google.com/spreadsheets/d/xyz", "xyz", false},
		{"https://example.com/sheet", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := extractSpreadsheetID(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractSpreadsheetID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("extractSpreadsheetID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRowsFromEntries(t *testing.T) {
	at := time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC)
	entries := []Entry{
		{
			File:   "ticket.jpg",
			Number: "202503-0042",
			Date:   "12/03/2025",
			Store:  "Café Nord",
			Totals: invoice.Totals{
				ExclVAT: decimal.RequireFromString("5.66"),
				VAT:     decimal.RequireFromString("1.14"),
				InclVAT: decimal.RequireFromString("6.80"),
				Grand:   decimal.RequireFromString("6.80"),
			},
		},
		{File: "flou.jpg", Err: errors.New("unsupported or corrupted image")},
	}

	rows := rowsFromEntries(entries, at)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(headers) {
			t.Errorf("row %d has %d columns, want %d", i, len(row), len(headers))
		}
	}

	ok := rows[0]
	if ok[1] != "202503-0042" || ok[3] != "Café Nord" || ok[7] != StatusOK {
		t.Errorf("row = %v", ok)
	}
	if ok[4] != 5.66 || ok[5] != 1.14 || ok[6] != 6.80 {
		t.Errorf("amounts = %v %v %v, want 5.66 1.14 6.8", ok[4], ok[5], ok[6])
	}
	if ok[9] != "12/03/2025 09:30:00" {
		t.Errorf("processed at = %v", ok[9])
	}

	failed := rows[1]
	if failed[0] != "flou.jpg" || failed[7] != StatusFailed || failed[8] != "unsupported or corrupted image" {
		t.Errorf("failed row = %v", failed)
	}
}

func TestLastColumn(t *testing.T) {
	if got := lastColumn(); got != "J" {
		t.Errorf("lastColumn() = %q, want J", got)
	}
	if got := len(headerFormatRequests(7)); got != 3 {
		t.Errorf("headerFormatRequests() = %d requests, want 3", got)
	}
}
