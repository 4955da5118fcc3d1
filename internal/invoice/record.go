package invoice

import (
	"encoding/json"
	"fmt"
	"strings"

	"invoicer/pkg/models"
)

// Field aliases: the English keys first, then the French keys produced by
// older extraction prompts.
var (
	storeNameKeys = []string{"store_name", "nom_magasin", "magasin"}
	dateKeys      = []string{"date", "date_achat"}
	vatRateKeys   = []string{"vat_rate", "taux_tva"}
	sellerKeys    = []string{"seller", "vendeur", "emetteur", "fournisseur"}
	buyerKeys     = []string{"buyer", "client", "acheteur"}
	lineItemsKeys = []string{"line_items", "articles", "items"}

	totalExclKeys = []string{"total_excl_vat", "total_ht"}
	totalVATKeys  = []string{"total_vat", "total_tva", "montant_tva"}
	totalInclKeys = []string{"total_incl_vat", "total_ttc"}
	shippingKeys  = []string{"shipping_fee", "frais_de_port", "frais_livraison"}

	itemNameKeys      = []string{"name", "nom", "designation", "description"}
	itemQuantityKeys  = []string{"quantity", "quantite", "qte"}
	itemUnitKeys      = []string{"unit", "unite"}
	itemPriceExclKeys = []string{"unit_price_excl_vat", "prix_unitaire_ht"}
	itemPriceInclKeys = []string{"unit_price_incl_vat", "prix_unitaire_ttc", "prix_unitaire", "prix"}
)

type object map[string]json.RawMessage

// lookup returns the first present, non-null value among keys.
func (o object) lookup(keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := o[key]; ok && strings.TrimSpace(string(raw)) != "null" {
			return raw, true
		}
	}
	return nil, false
}

func (o object) str(keys ...string) string {
	raw, _ := o.lookup(keys...)
	return parseString(raw)
}

// nested decodes an optional sub-object. Anything that is not an object is
// treated as absent.
func (o object) nested(keys ...string) object {
	raw, ok := o.lookup(keys...)
	if !ok {
		return object{}
	}
	var sub object
	if err := json.Unmarshal(raw, &sub); err != nil || sub == nil {
		return object{}
	}
	return sub
}

// ParseRecord decodes an untrusted JSON payload into an InvoiceRecord.
// Missing optional keys are left empty; a payload without a line-items list,
// with malformed items, or with an unnamed item yields a *StructuralInputError.
func ParseRecord(data []byte) (*models.InvoiceRecord, error) {
	var top object
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, NewStructuralInputError("$", ErrInvalidJSON, err.Error())
	}
	if top == nil {
		return nil, NewStructuralInputError("$", ErrInvalidJSON, "payload is null")
	}

	rec := &models.InvoiceRecord{
		StoreName: top.str(storeNameKeys...),
		Date:      top.str(dateKeys...),
	}
	if raw, ok := top.lookup(vatRateKeys...); ok {
		rec.VATRate = parseNumber(raw)
	}

	seller := top.nested(sellerKeys...)
	rec.Seller = models.Seller{
		Name:    seller.str("name", "nom", "raison_sociale"),
		Address: seller.str("address", "adresse"),
		City:    seller.str("city", "ville"),
		Country: seller.str("country", "pays"),
		Email:   seller.str("email", "courriel"),
		Phone:   seller.str("phone", "telephone", "tel"),
		TaxID:   seller.str("tax_id", "siret", "siren"),
		VATID:   seller.str("vat_id", "tva_intra", "numero_tva"),
	}

	buyer := top.nested(buyerKeys...)
	rec.Buyer = models.Buyer{
		Company: buyer.str("company", "societe", "entreprise"),
		Name:    buyer.str("name", "nom"),
		Address: buyer.str("address", "adresse"),
		City:    buyer.str("city", "ville"),
		Country: buyer.str("country", "pays"),
	}

	if raw, ok := top.lookup(totalExclKeys...); ok {
		rec.TotalExclVAT = parseNumber(raw)
	}
	if raw, ok := top.lookup(totalVATKeys...); ok {
		rec.TotalVAT = parseNumber(raw)
	}
	if raw, ok := top.lookup(totalInclKeys...); ok {
		rec.TotalInclVAT = parseNumber(raw)
	}
	if raw, ok := top.lookup(shippingKeys...); ok {
		rec.ShippingFee = parseNumber(raw)
	}

	items, err := parseLineItems(top)
	if err != nil {
		return nil, err
	}
	rec.LineItems = items

	return rec, nil
}

func parseLineItems(top object) ([]models.LineItem, error) {
	raw, ok := top.lookup(lineItemsKeys...)
	if !ok {
		return nil, NewStructuralInputError("line_items", ErrMissingLineItems, "")
	}

	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, NewStructuralInputError("line_items", ErrInvalidLineItems, err.Error())
	}

	items := make([]models.LineItem, 0, len(rawItems))
	for i, rawItem := range rawItems {
		field := fmt.Sprintf("line_items[%d]", i)

		var obj object
		if err := json.Unmarshal(rawItem, &obj); err != nil || obj == nil {
			return nil, NewStructuralInputError(field, ErrInvalidLineItems, "item is not an object")
		}

		name := obj.str(itemNameKeys...)
		if name == "" {
			return nil, NewStructuralInputError(field+".name", ErrMissingItemName, "")
		}

		item := models.LineItem{
			Name: &name,
			Unit: obj.str(itemUnitKeys...),
		}
		if v, ok := obj.lookup(itemQuantityKeys...); ok {
			item.Quantity = parseNumber(v)
		}
		if v, ok := obj.lookup(itemPriceExclKeys...); ok {
			item.UnitPriceExclVAT = parseNumber(v)
		}
		if v, ok := obj.lookup(itemPriceInclKeys...); ok {
			item.UnitPriceInclVAT = parseNumber(v)
		}
		items = append(items, item)
	}

	return items, nil
}

// CleanJSON strips Markdown code fences and any prose around the outermost
// JSON object of a model response.
func CleanJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		return cleaned[start : end+1]
	}
	return cleaned
}
