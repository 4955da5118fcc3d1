package render

import (
	"testing"

	"invoicer/pkg/models"
)

func TestSellerEntriesOmitBlankFields(t *testing.T) {
	only := sellerEntries(models.Seller{Name: "Café Nord", Email: "  "})
	if len(only) != 1 {
		t.Fatalf("len(entries) = %d, want 1: %+v", len(only), only)
	}
	if got, want := blockHeight(len(only)), blockHeadingHeight+blockLineHeight; got != want {
		t.Errorf("blockHeight = %v, want %v", got, want)
	}

	withAddress := sellerEntries(models.Seller{Name: "Café Nord", Address: "3 rue de la Gare"})
	if diff := blockHeight(len(withAddress)) - blockHeight(len(only)); diff != blockLineHeight {
		t.Errorf("adding an address grew the block by %v, want %v", diff, blockLineHeight)
	}
}

func TestSellerEntriesLabels(t *testing.T) {
	entries := sellerEntries(models.Seller{
		Name:  "Café Nord",
		Phone: "03 20 00 00 00",
		TaxID: "123 456 789 00012",
		VATID: "FR12123456789",
	})

	want := []string{
		"Café Nord",
		"Tél. : 03 20 00 00 00",
		"SIRET : 123 456 789 00012",
		"N° TVA : FR12123456789",
	}
	if len(entries) != len(want) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.text() != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, e.text(), want[i])
		}
	}
}

func TestBuyerEntriesOrder(t *testing.T) {
	entries := buyerEntries(models.Buyer{Company: "ACME", Name: "Jeanne Martin", City: "Lille"})
	var got []string
	for _, e := range entries {
		got = append(got, e.text())
	}
	want := []string{"ACME", "Jeanne Martin", "Lille"}
	if len(got) != len(want) {
		t.Fatalf("entries = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
