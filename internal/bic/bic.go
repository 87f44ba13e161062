// Package bic validates Business Identifier Codes and cross-checks them
// against the creditor IBAN.
package bic

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/pain001-converter/internal/iban"
)

// structure is bank code, country, location and an optional branch.
var structure = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

// Registry is the BLZ lookup used for German cross-checks.
type Registry interface {
	Loaded() bool
	Allows(blz, bic string) bool
}

// Verdict is the outcome of CrossCheck.
type Verdict int

const (
	// Valid means the BIC may be used for the IBAN.
	Valid Verdict = iota

	// Mismatch means the BIC is malformed or its country differs from
	// the IBAN country.
	Mismatch

	// Unregistered means a German BIC is not listed for the IBAN's BLZ.
	Unregistered
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Mismatch:
		return "mismatch"
	case Unregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}

// ValidateStructure reports whether the trimmed BIC has 8 or 11 characters
// in the bank/country/location[/branch] layout. Lowercase is rejected.
func ValidateStructure(bic string) bool {
	return structure.MatchString(strings.TrimSpace(bic))
}

// CountryOf returns characters 4..6 of the trimmed BIC, or "" when too short.
func CountryOf(bic string) string {
	bic = strings.TrimSpace(bic)
	if len(bic) < 6 {
		return ""
	}
	return bic[4:6]
}

// HasMismatch reports whether the BIC is malformed or belongs to a
// different country than the IBAN.
func HasMismatch(ibanValue, bic string) bool {
	if !ValidateStructure(bic) {
		return true
	}
	return CountryOf(bic) != iban.Country(ibanValue)
}

// CrossCheck decides whether bic may accompany ibanValue.
//
// For a German IBAN the BIC must be well formed and German; when the
// registry is loaded it must also be listed for the IBAN's BLZ. For a
// foreign IBAN only structure and country are checked.
func CrossCheck(ibanValue, bic string, registry Registry) Verdict {
	if HasMismatch(ibanValue, bic) {
		return Mismatch
	}

	if iban.IsGerman(ibanValue) && CountryOf(bic) == iban.CountryDE &&
		registry != nil && registry.Loaded() &&
		!registry.Allows(iban.ExtractBLZ(ibanValue), strings.TrimSpace(bic)) {
		return Unregistered
	}

	return Valid
}
