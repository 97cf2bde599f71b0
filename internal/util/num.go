package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var reNumeric = regexp.MustCompile(`-?\d[\d\s.,]*`)

// CleanDecimal parses a human-entered numeric cell: thousands separators are
// stripped, decimal commas accepted, anything non-numeric coerces to zero.
func CleanDecimal(input string) decimal.Decimal {
	token := reNumeric.FindString(strings.ReplaceAll(input, "\u00A0", " "))
	if token == "" {
		return decimal.Zero
	}
	norm := normalizeNumericToken(strings.TrimSpace(token))
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	neg := strings.HasPrefix(compact, "-")
	if neg {
		compact = compact[1:]
	}
	switch {
	case regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`).MatchString(compact):
		compact = strings.ReplaceAll(compact, ".", "")
	case regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`).MatchString(compact):
		compact = strings.ReplaceAll(compact, ",", "")
	case strings.Contains(compact, ",") && !strings.Contains(compact, "."):
		compact = strings.ReplaceAll(compact, ",", ".")
	default:
		compact = strings.ReplaceAll(compact, ",", "")
	}
	if neg {
		compact = "-" + compact
	}
	return compact
}
