// =============================================================================
// pain.001 Converter - Shared Types
// =============================================================================
//
// This package contains the payment types shared by the input parsers, the
// validation pipeline and the XML builder. Keeping them here avoids import
// cycles between:
//   - csvparser / xlsxparser
//   - validation
//   - xmlwriter
//
// =============================================================================

package types

import "strings"

// =============================================================================
// COLUMN NAMES
// =============================================================================
// These are the column headers of the payments sheet and of the CSV export.
// The configuration sheet uses the Config* names.

const (
	ColEmpfaenger       = "Empfaenger"
	ColIBAN             = "IBAN"
	ColBIC              = "BIC"
	ColVerwendungszweck = "Verwendungszweck"
	ColEndToEndID       = "EndToEndId"
	ColBetrag           = "Betrag"
	ColValuta           = "Valuta"

	ConfigMsgID      = "MSGID"
	ConfigDebtorName = "AuftraggeberName"
	ConfigDebtorIBAN = "AuftraggeberIBAN"
	ConfigDebtorBIC  = "AuftraggeberBIC"
)

// =============================================================================
// PAYMENT ROW
// =============================================================================

// PaymentRow is a single credit transfer instruction as read from the input.
// Every field may be empty; the XML builder substitutes placeholders for
// missing values. Only sanitization mutates a row.
type PaymentRow struct {
	// Empfaenger is the creditor name.
	Empfaenger string

	// IBAN is the creditor account. May contain whitespace until cleaned.
	IBAN string

	// BIC is the creditor agent. Cleared by validation when a domestic
	// BIC does not match the IBAN.
	BIC string

	// Verwendungszweck is the unstructured remittance text.
	Verwendungszweck string

	// EndToEndId is the end-to-end reference. Defaults to ID<n>.
	EndToEndId string

	// Betrag is the raw amount, e.g. "100,50" or "100.5".
	Betrag string

	// Valuta is the requested execution date in YYYY-MM-DD.
	Valuta string
}

// PaymentRowFromRecord builds a PaymentRow from a header -> value record.
// Header lookup is case-insensitive and accepts "Empfänger" for Empfaenger.
func PaymentRowFromRecord(record map[string]string) PaymentRow {
	lookup := make(map[string]string, len(record))
	for k, v := range record {
		lookup[normalizeHeader(k)] = v
	}
	get := func(name string) string {
		return lookup[normalizeHeader(name)]
	}

	return PaymentRow{
		Empfaenger:       get(ColEmpfaenger),
		IBAN:             get(ColIBAN),
		BIC:              get(ColBIC),
		Verwendungszweck: get(ColVerwendungszweck),
		EndToEndId:       get(ColEndToEndID),
		Betrag:           get(ColBetrag),
		Valuta:           get(ColValuta),
	}
}

// IsEmpty reports whether every field of the row is blank.
func (r PaymentRow) IsEmpty() bool {
	for _, v := range []string{r.Empfaenger, r.IBAN, r.BIC, r.Verwendungszweck, r.EndToEndId, r.Betrag, r.Valuta} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// BATCH CONFIGURATION
// =============================================================================

// BatchConfig holds the debtor side of a batch. There is exactly one per
// generated message.
type BatchConfig struct {
	MsgID      string `yaml:"msg_id" validate:"omitempty,max=35"`
	DebtorName string `yaml:"debtor_name" validate:"omitempty,max=70"`
	DebtorIBAN string `yaml:"debtor_iban" validate:"omitempty,alphanum,min=15,max=34"`
	DebtorBIC  string `yaml:"debtor_bic" validate:"omitempty,bic"`
}

// BatchConfigFromRecord builds a BatchConfig from the first row of the
// configuration sheet.
func BatchConfigFromRecord(record map[string]string) BatchConfig {
	lookup := make(map[string]string, len(record))
	for k, v := range record {
		lookup[normalizeHeader(k)] = strings.TrimSpace(v)
	}
	return BatchConfig{
		MsgID:      lookup[normalizeHeader(ConfigMsgID)],
		DebtorName: lookup[normalizeHeader(ConfigDebtorName)],
		DebtorIBAN: lookup[normalizeHeader(ConfigDebtorIBAN)],
		DebtorBIC:  lookup[normalizeHeader(ConfigDebtorBIC)],
	}
}

// Merge returns c with every empty field taken from fallback.
func (c BatchConfig) Merge(fallback BatchConfig) BatchConfig {
	if c.MsgID == "" {
		c.MsgID = fallback.MsgID
	}
	if c.DebtorName == "" {
		c.DebtorName = fallback.DebtorName
	}
	if c.DebtorIBAN == "" {
		c.DebtorIBAN = fallback.DebtorIBAN
	}
	if c.DebtorBIC == "" {
		c.DebtorBIC = fallback.DebtorBIC
	}
	return c
}

// normalizeHeader lowercases a header and folds the German umlaut spelling
// so that "Empfänger" and "Empfaenger" match.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, "ä", "ae")
}
