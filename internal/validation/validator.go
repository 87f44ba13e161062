// =============================================================================
// pain.001 Converter - Validation Pipeline
// =============================================================================
//
// This module validates a complete batch of payment rows in one pass and
// decides whether the batch may be turned into a pain.001 message.
//
// PER ROW, IN ORDER:
//   1. Transliterate umlauts in Empfaenger and Verwendungszweck
//   2. Strip whitespace from German IBANs
//   3. German IBAN with bad check digits: record an error, skip the row
//   4. German IBAN with good check digits: count it
//   5. BIC present:
//      - German IBAN: a malformed, foreign or unregistered BIC is cleared
//        and the row is recorded as corrected (IBAN-only is legal in DE)
//      - Foreign IBAN: a malformed or mismatching BIC aborts the whole
//        batch immediately
//
// AFTER THE LOOP:
//   - Any non-numeric or non-positive amount adds one batch-level error
//   - Any error rejects the batch; no rows are returned
//   - Corrections on an accepted batch are reported as a notice
//
// ERROR HANDLING:
//   - Pre-checks (registry, empty input) fail before any row is touched
//   - Row errors are collected, not returned immediately
//   - A rejection carries the full diagnostics in a *RejectionError
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/pain001-converter/internal/bic"
	"github.com/ginjaninja78/pain001-converter/internal/iban"
	"github.com/ginjaninja78/pain001-converter/internal/sanitizer"
	"github.com/ginjaninja78/pain001-converter/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ErrorKind classifies a validation error.
type ErrorKind string

const (
	// KindChecksum is a German IBAN failing mod-97. Batch-fatal.
	KindChecksum ErrorKind = "checksum"

	// KindAmount is a non-numeric or non-positive amount. Batch-fatal.
	KindAmount ErrorKind = "amount"

	// KindBicMismatch is a foreign IBAN with a bad BIC. Aborts the batch.
	KindBicMismatch ErrorKind = "bic_mismatch"

	// KindMissingRegistry means no BLZ registry was loaded.
	KindMissingRegistry ErrorKind = "missing_registry"

	// KindStructuralInput means the input itself is unusable.
	KindStructuralInput ErrorKind = "structural_input"
)

// DefaultHeaderOffset turns a 0-based row index into the spreadsheet row
// number: one for 1-based counting, one for the header row.
const DefaultHeaderOffset = 2

// ValidationError represents a single validation error.
type ValidationError struct {
	// Kind classifies the error.
	Kind ErrorKind

	// RowNumber is the spreadsheet row. Zero for batch-level errors.
	RowNumber int

	// Field is the column that failed, if any.
	Field string

	// Value is the offending value, if any.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.RowNumber > 0 {
		return fmt.Sprintf("row %d: %s", e.RowNumber, e.Message)
	}
	return e.Message
}

// NewStructuralError reports input that cannot be processed at all, such
// as a workbook without the expected sheets.
func NewStructuralError(format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:    KindStructuralInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsKind reports whether err is, or wraps, a ValidationError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Counters are the per-batch statistics shown to the user.
type Counters struct {
	IBANValid                int
	IBANInvalid              int
	SpaceCleaned             int
	UmlautReplacedRecipient  int
	UmlautReplacedRemittance int
}

// Result contains the results of validation.
type Result struct {
	// Accepted is true if the batch may be emitted.
	Accepted bool

	// Rows holds the sanitized, accepted rows. Nil on rejection.
	Rows []types.PaymentRow

	// Errors lists all errors in the order they were found.
	Errors []*ValidationError

	// Counters holds the batch statistics.
	Counters Counters

	// CorrectedRows lists rows whose BIC was cleared.
	CorrectedRows []int

	// Total is the sum of accepted amounts.
	Total decimal.Decimal
}

// Notice returns the informational message for BIC corrections, or "".
func (r *Result) Notice() string {
	if len(r.CorrectedRows) == 0 {
		return ""
	}
	rows := make([]string, len(r.CorrectedRows))
	for i, n := range r.CorrectedRows {
		rows[i] = fmt.Sprint(n)
	}
	return "Notice: the BIC was removed and the transfer is sent IBAN-only (DE only) in rows: " +
		strings.Join(rows, ", ")
}

// Summary describes an accepted batch together with its counters.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "File loaded: %d transfers (IBAN/BIC checked, all amounts > 0,00)\n", len(r.Rows))
	fmt.Fprintf(&b, "Total: %s %s\n", types.FormatEuro(r.Total), types.Currency)
	b.WriteString(r.Counters.String())
	return b.String()
}

// String renders the counters one per line.
func (c Counters) String() string {
	return fmt.Sprintf("Valid IBAN check digits: %d\n"+
		"Invalid IBAN check digits: %d\n"+
		"IBANs with removed spaces (DE only): %d\n"+
		"Empfaenger fields with umlaut replacement: %d\n"+
		"Verwendungszweck fields with umlaut replacement: %d",
		c.IBANValid,
		c.IBANInvalid,
		c.SpaceCleaned,
		c.UmlautReplacedRecipient,
		c.UmlautReplacedRemittance,
	)
}

// RejectionError is returned when a batch must not be emitted.
type RejectionError struct {
	// Result holds the diagnostics. Rows is always nil.
	Result *Result

	// Aborted is true when a foreign BIC stopped processing mid-batch.
	Aborted bool
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	var b strings.Builder
	if e.Aborted {
		b.WriteString("import aborted: ")
		b.WriteString(e.Result.Errors[0].Error())
		return b.String()
	}

	b.WriteString("batch rejected:")
	for _, ve := range e.Result.Errors {
		b.WriteString("\n")
		b.WriteString(ve.Error())
	}
	b.WriteString("\n")
	b.WriteString(e.Result.Counters.String())
	return b.String()
}

// Unwrap exposes the individual validation errors to errors.As.
func (e *RejectionError) Unwrap() []error {
	errs := make([]error, len(e.Result.Errors))
	for i, ve := range e.Result.Errors {
		errs[i] = ve
	}
	return errs
}

// =============================================================================
// PIPELINE
// =============================================================================

// Options contains options for validation.
type Options struct {
	// HeaderOffset is added to the 0-based row index in diagnostics.
	// Values below 1 fall back to the default.
	// Default: 2
	HeaderOffset int

	// RequireRegistry rejects a run without a loaded BLZ registry.
	// Default: true
	RequireRegistry bool
}

// DefaultOptions returns the default validation options.
func DefaultOptions() Options {
	return Options{
		HeaderOffset:    DefaultHeaderOffset,
		RequireRegistry: true,
	}
}

// Pipeline validates batches against a BLZ registry.
type Pipeline struct {
	registry bic.Registry
	options  Options
	log      logrus.FieldLogger
}

// NewPipeline creates a Pipeline with the default options.
func NewPipeline(registry bic.Registry) *Pipeline {
	return NewPipelineWithOptions(registry, DefaultOptions())
}

// NewPipelineWithOptions creates a Pipeline with custom options.
func NewPipelineWithOptions(registry bic.Registry, options Options) *Pipeline {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	if options.HeaderOffset < 1 {
		options.HeaderOffset = DefaultHeaderOffset
	}

	return &Pipeline{
		registry: registry,
		options:  options,
		log:      discard,
	}
}

// SetLogger replaces the pipeline logger.
func (p *Pipeline) SetLogger(logger logrus.FieldLogger) {
	p.log = logger
}

// Run validates the batch. The input slice is not modified; sanitized rows
// are returned in the result.
//
// RETURNS:
//   - (*Result, nil) for an accepted batch.
//   - (*Result, *RejectionError) for a rejected batch. The result carries
//     the diagnostics and no rows.
//   - (nil, *ValidationError) when a pre-check fails.
func (p *Pipeline) Run(input []types.PaymentRow) (*Result, error) {
	if p.options.RequireRegistry && (p.registry == nil || !p.registry.Loaded()) {
		return nil, &ValidationError{
			Kind:    KindMissingRegistry,
			Message: "the BLZ registry (blzToBics.json) must be loaded first",
		}
	}
	if len(input) == 0 {
		return nil, NewStructuralError("no payment rows found")
	}

	rows := make([]types.PaymentRow, len(input))
	copy(rows, input)

	result := &Result{}
	skipped := make([]bool, len(rows))

	for i := range rows {
		row := &rows[i]
		rowNum := i + p.options.HeaderOffset

		// =====================================================================
		// SANITIZE
		// =====================================================================
		changes := sanitizer.SanitizeRow(row)
		if changes.Recipient {
			result.Counters.UmlautReplacedRecipient++
		}
		if changes.Remittance {
			result.Counters.UmlautReplacedRemittance++
		}
		if changes.IBANCleaned {
			result.Counters.SpaceCleaned++
		}

		// =====================================================================
		// IBAN CHECK DIGITS (DE ONLY)
		// =====================================================================
		cleaned := changes.CleanedIBAN
		german := iban.IsGerman(cleaned)

		if german && !iban.Validate(cleaned) {
			result.Errors = append(result.Errors, &ValidationError{
				Kind:      KindChecksum,
				RowNumber: rowNum,
				Field:     types.ColIBAN,
				Value:     row.IBAN,
				Message:   fmt.Sprintf("invalid German IBAN check digits (%s)", row.IBAN),
			})
			result.Counters.IBANInvalid++
			skipped[i] = true
			continue
		}
		if german {
			result.Counters.IBANValid++
		}

		// =====================================================================
		// BIC
		// =====================================================================
		bicValue := strings.TrimSpace(row.BIC)
		if bicValue == "" {
			continue
		}

		verdict := bic.CrossCheck(cleaned, bicValue, p.registry)

		if german {
			if verdict != bic.Valid {
				p.log.WithFields(logrus.Fields{
					"row":     rowNum,
					"bic":     bicValue,
					"verdict": verdict.String(),
				}).Debug("cleared domestic BIC")
				row.BIC = ""
				result.CorrectedRows = append(result.CorrectedRows, rowNum)
			}
			continue
		}

		if verdict == bic.Mismatch {
			// No registry fallback exists abroad: drop everything.
			aborted := &Result{
				Errors: []*ValidationError{{
					Kind:      KindBicMismatch,
					RowNumber: rowNum,
					Field:     types.ColBIC,
					Value:     bicValue,
					Message: fmt.Sprintf("BIC (%s) does not match the IBAN country (%s) or is invalid; correct the file and load it again",
						bicValue, iban.Country(cleaned)),
				}},
				Total: decimal.Zero,
			}
			p.log.WithField("row", rowNum).Warn("foreign BIC mismatch, batch aborted")
			return aborted, &RejectionError{Result: aborted, Aborted: true}
		}
	}

	// =========================================================================
	// AMOUNTS
	// =========================================================================
	total := decimal.Zero
	var badAmountRows []string

	for i, row := range rows {
		if skipped[i] {
			continue
		}
		amount, err := types.ParseAmount(row.Betrag)
		if err != nil || !amount.IsPositive() {
			badAmountRows = append(badAmountRows, fmt.Sprint(i+p.options.HeaderOffset))
			continue
		}
		total = total.Add(amount)
	}

	if len(badAmountRows) > 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Kind:    KindAmount,
			Field:   types.ColBetrag,
			Message: "at least one transfer has an amount of 0,00, N/A or empty (rows " + strings.Join(badAmountRows, ", ") + ")",
		})
	}

	// =========================================================================
	// BATCH DECISION
	// =========================================================================
	if len(result.Errors) > 0 {
		result.Total = decimal.Zero
		p.log.WithField("errors", len(result.Errors)).Warn("batch rejected")
		return result, &RejectionError{Result: result}
	}

	result.Accepted = true
	result.Rows = rows
	result.Total = total

	p.log.WithFields(logrus.Fields{
		"rows":      len(rows),
		"corrected": len(result.CorrectedRows),
		"total":     types.FormatAmount(total),
	}).Info("batch accepted")

	return result, nil
}
