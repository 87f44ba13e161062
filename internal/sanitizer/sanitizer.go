// =============================================================================
// pain.001 Converter - Row Sanitizer
// =============================================================================
//
// This module normalizes payment rows before validation. It is the only code
// that mutates a PaymentRow.
//
// TRANSFORMATIONS:
//   - Umlaut transliteration on the creditor name and the remittance text
//     (the ZKA character set has no umlauts)
//   - IBAN whitespace removal, committed for German IBANs only
//
// Every transformation reports whether it changed the value so the pipeline
// can keep its counters.
//
// =============================================================================

package sanitizer

import (
	"strings"
	"unicode"

	"github.com/ginjaninja78/pain001-converter/internal/types"
)

// umlautReplacer maps each umlaut to its two-letter ZKA spelling.
var umlautReplacer = strings.NewReplacer(
	"Ä", "AE",
	"Ö", "OE",
	"Ü", "UE",
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// Changes records which fields SanitizeRow modified.
type Changes struct {
	Recipient   bool
	Remittance  bool
	IBANCleaned bool

	// CleanedIBAN is the whitespace-free IBAN, whether or not it was
	// committed back to the row.
	CleanedIBAN string
}

// ReplaceUmlauts transliterates German umlauts and ß.
//
// RETURNS:
//   - The transliterated text.
//   - true if the text changed.
//
// EXAMPLE:
//
//	Input:  "Müller Straße"
//	Output: "Mueller Strasse", true
func ReplaceUmlauts(text string) (string, bool) {
	replaced := umlautReplacer.Replace(text)
	return replaced, replaced != text
}

// StripWhitespace removes every whitespace rune from s.
func StripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// CleanIBAN strips internal, leading and trailing whitespace from the row's
// IBAN. The cleaned value is written back only when it starts with "DE";
// foreign IBANs keep their original formatting.
//
// RETURNS:
//   - The cleaned IBAN (always, for validation).
//   - true if the row was modified.
func CleanIBAN(row *types.PaymentRow) (string, bool) {
	cleaned := StripWhitespace(row.IBAN)
	if cleaned != row.IBAN && strings.HasPrefix(cleaned, "DE") {
		row.IBAN = cleaned
		return cleaned, true
	}
	return cleaned, false
}

// SanitizeRow applies all transformations to the row in place.
func SanitizeRow(row *types.PaymentRow) Changes {
	var changes Changes

	if row.Empfaenger != "" {
		row.Empfaenger, changes.Recipient = ReplaceUmlauts(row.Empfaenger)
	}
	if row.Verwendungszweck != "" {
		row.Verwendungszweck, changes.Remittance = ReplaceUmlauts(row.Verwendungszweck)
	}

	changes.CleanedIBAN, changes.IBANCleaned = CleanIBAN(row)

	return changes
}
