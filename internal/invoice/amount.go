package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Amounts outside these bounds are rejected. Rounding a decimal with a huge
// exponent would expand it digit by digit.
const maxAmountExponent = 20

var maxAmount = decimal.New(1, 12)

func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxAmountExponent || exp > maxAmountExponent {
		return false
	}
	return d.Abs().LessThanOrEqual(maxAmount)
}

// round2 is the single rounding rule for every derived amount: two decimals,
// half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses an amount as found on receipts or in model output,
// handling both French/German ("1.234,50 €") and English ("1,234.50") formats.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(amountStr)
	for _, token := range []string{" ", "\u00a0", "\u202f", "€", "$", "£", "%", "EUR", "USD", "GBP", "eur"} {
		cleaned = strings.ReplaceAll(cleaned, token, "")
	}
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %q is empty", amountStr)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// The right-most separator is the decimal one
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// Decimal comma (e.g., "1234,50")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		// Thousands dots (e.g., "1.234.567")
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", amountStr, cleaned)
	}
	if !inRange(amount) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAmountOutOfRange, amountStr)
	}
	return amount, nil
}

// parseNumber decodes a JSON number or numeric string. It returns nil when the
// value is absent, null, out of range or not understandable as a number.
func parseNumber(raw json.RawMessage) *decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		amount, err := ParseAmount(s)
		if err != nil {
			return nil
		}
		return &amount
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		amount, err := decimal.NewFromString(string(raw))
		if err != nil || !inRange(amount) {
			return nil
		}
		return &amount
	default:
		return nil
	}
}

// parseString decodes a JSON string, or the textual form of a number.
func parseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if n := parseNumber(raw); n != nil {
		return n.String()
	}
	return ""
}
