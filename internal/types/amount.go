package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the only currency a batch may carry.
const Currency = "EUR"

// ParseAmount parses a raw Betrag value into cents precision.
//
// ACCEPTED FORMATS:
//   - "100.5", "100,50"         : dot or comma decimal separator
//   - "1.234,56"                : German thousands separator
//   - "1e2"                     : raw spreadsheet numbers
//
// Values are rounded half away from zero to two fraction digits. Empty or
// non-numeric input is an error; the sign is not checked here.
func ParseAmount(raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	value = strings.ReplaceAll(value, " ", "")
	if value == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}

	if strings.Contains(value, ",") {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.Replace(value, ",", ".", 1)
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number: %w", raw, err)
	}

	return amount.Round(2), nil
}

// FormatAmount renders an amount with exactly two fraction digits and a dot
// separator, as required inside the XML message.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// FormatEuro renders an amount in German notation, e.g. "1.234,50".
// The digits come from the exact decimal value.
func FormatEuro(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
