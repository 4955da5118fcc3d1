package invoice

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

var numberPattern = regexp.MustCompile(`^\d{6}-\d{4}$`)

// GenerateNumber returns a fresh invoice number of the form YYYYMM-NNNN for
// the month of t. NNNN is random; numbers are not unique across calls.
func GenerateNumber(t time.Time) string {
	return FormatNumber(t, 1000+rand.IntN(9000))
}

// FormatNumber formats an invoice number from a date and a sequence part.
func FormatNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s-%04d", t.Format("200601"), seq)
}

// ValidNumber reports whether s looks like an invoice number.
func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}
