// Package iban validates German IBAN check digits and extracts the BLZ.
//
// Only DE IBANs are checked. Check-digit rules for other countries are not
// implemented; callers must not consult Validate for foreign accounts.
package iban

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	// CountryDE is the country prefix of German IBANs.
	CountryDE = "DE"

	// LengthDE is the fixed length of a German IBAN.
	LengthDE = 22

	// chunkDigits bounds each mod-97 step so it fits an int64.
	chunkDigits = 9
)

var germanIBAN = regexp.MustCompile(`^DE\d{20}$`)

// Clean removes all whitespace from an IBAN.
func Clean(iban string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, iban)
}

// Country returns the two-letter country prefix, or "" when too short.
func Country(iban string) string {
	iban = Clean(iban)
	if len(iban) < 2 {
		return ""
	}
	return iban[:2]
}

// IsGerman reports whether the cleaned IBAN starts with "DE".
func IsGerman(iban string) bool {
	return Country(iban) == CountryDE
}

// Validate checks the ISO 7064 mod-97 check digits of a German IBAN.
// Whitespace anywhere in the input is ignored. Anything that is not "DE"
// followed by 20 digits is invalid.
func Validate(iban string) bool {
	iban = Clean(iban)
	if len(iban) != LengthDE || !germanIBAN.MatchString(iban) {
		return false
	}
	return Mod97(iban) == 1
}

// Mod97 computes the IBAN remainder: the first four characters move to the
// end, letters become 10..35 and the resulting digit string is reduced in
// chunks of at most nine digits.
func Mod97(iban string) int {
	rearranged := iban[4:] + iban[:4]

	var numeric strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= 'A' && r <= 'Z':
			numeric.WriteString(strconv.Itoa(int(r-'A') + 10))
		case r >= 'a' && r <= 'z':
			numeric.WriteString(strconv.Itoa(int(r-'a') + 10))
		default:
			numeric.WriteRune(r)
		}
	}

	remainder := numeric.String()
	for len(remainder) > 2 {
		n := chunkDigits
		if len(remainder) < n {
			n = len(remainder)
		}
		block, err := strconv.ParseInt(remainder[:n], 10, 64)
		if err != nil {
			return -1
		}
		remainder = strconv.FormatInt(block%97, 10) + remainder[n:]
	}

	// Two digits may still be >= 97 when a short remainder meets a short tail.
	final, err := strconv.Atoi(remainder)
	if err != nil {
		return -1
	}
	return final % 97
}

// ExtractBLZ returns the German bank sort code: characters 4..12 of the
// cleaned IBAN. Returns "" when the IBAN is too short.
func ExtractBLZ(iban string) string {
	iban = Clean(iban)
	if len(iban) < 12 {
		return ""
	}
	return iban[4:12]
}
