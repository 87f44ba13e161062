// =============================================================================
// pain.001 Converter - Message Builder
// =============================================================================
//
// This module builds the CustomerCreditTransferInitiation element tree from
// validated payment rows and the batch configuration.
//
// XML STRUCTURE:
//
//   <Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.001.001.09" ...>
//     <CstmrCdtTrfInitn>
//       <GrpHdr>                        <!-- MsgId, CreDtTm, NbOfTxs, CtrlSum -->
//       <PmtInf>                        <!-- exactly one, single debtor -->
//         <PmtInfId>                    <!-- same value as MsgId -->
//         ...
//         <CdtTrfTxInf>                 <!-- one per accepted row -->
//           <PmtId><EndToEndId/></PmtId>
//           <Amt><InstdAmt Ccy="EUR"/></Amt>
//           <CdtrAgt/>                  <!-- only when the row has a BIC -->
//           <Cdtr/><CdtrAcct/><RmtInf/>
//         </CdtTrfTxInf>
//       </PmtInf>
//     </CstmrCdtTrfInitn>
//   </Document>
//
// The builder never rejects data. Validation happened upstream; missing
// values are replaced by fixed placeholder literals.
//
// =============================================================================

package xmlwriter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Berlin must resolve on hosts without zoneinfo.

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/pain001-converter/internal/types"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Namespace is the pain.001.001.09 target namespace.
	Namespace = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.09"

	// SchemaLocation points at the ZKA 3.8 schema variant.
	SchemaLocation = Namespace + " pain.001.001.09.zka38.xsd"

	// XSINamespace is the XML Schema instance namespace.
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	// TimeZone is used for CreDtTm regardless of the host time zone.
	TimeZone = "Europe/Berlin"

	// CreationTimeLayout is ISO 8601 local time with milliseconds.
	CreationTimeLayout = "2006-01-02T15:04:05.000"

	// DateLayout is the execution date format.
	DateLayout = "2006-01-02"
)

// Placeholders for missing values.
const (
	MsgIDMissing     = "MSGID_MISSING"
	DebtorMissing    = "AUFTRAGGEBER_FEHLT"
	IBANMissing      = "IBAN_FEHLT"
	BICNotProvided   = "NOTPROVIDED"
	CreditorMissing  = "EMPFAENGER_FEHLT"
	EndToEndIDPrefix = "ID"
)

var (
	berlin      = mustLoadLocation(TimeZone)
	isoDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("xmlwriter: cannot load time zone %s: %v", name, err))
	}
	return loc
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a built pain.001 document plus the values placed in its
// headers.
type Message struct {
	Document      Element
	MsgID         string
	CreationTime  string
	NumberOfTxs   int
	ControlSum    decimal.Decimal
	ExecutionDate string
	DebtorName    string
	DebtorIBAN    string
	DebtorBIC     string
}

// BuildMessage creates the message for the given rows.
//
// PARAMETERS:
//   - rows: The accepted, sanitized rows in output order.
//   - batch: The batch configuration (MsgId and debtor).
//   - now: The generation time.
//
// RETURNS:
//   - The message. A fresh tree is built on every call.
func BuildMessage(rows []types.PaymentRow, batch types.BatchConfig, now time.Time) *Message {
	msg := &Message{
		MsgID:         orDefault(batch.MsgID, MsgIDMissing),
		CreationTime:  now.In(berlin).Format(CreationTimeLayout),
		NumberOfTxs:   len(rows),
		ExecutionDate: executionDate(rows, now),
		DebtorName:    orDefault(batch.DebtorName, DebtorMissing),
		DebtorIBAN:    orDefault(batch.DebtorIBAN, IBANMissing),
		DebtorBIC:     orDefault(batch.DebtorBIC, BICNotProvided),
	}

	amounts := make([]decimal.Decimal, len(rows))
	total := decimal.Zero
	for i, row := range rows {
		amounts[i] = rowAmount(row)
		total = total.Add(amounts[i])
	}
	msg.ControlSum = total

	nbOfTxs := strconv.Itoa(msg.NumberOfTxs)
	ctrlSum := types.FormatAmount(total)

	// =========================================================================
	// GROUP HEADER
	// =========================================================================
	grpHdr := NewElement("GrpHdr",
		TextElement("MsgId", msg.MsgID),
		TextElement("CreDtTm", msg.CreationTime),
		TextElement("NbOfTxs", nbOfTxs),
		TextElement("CtrlSum", ctrlSum),
		NewElement("InitgPty", TextElement("Nm", msg.DebtorName)),
	)

	// =========================================================================
	// PAYMENT INFORMATION
	// =========================================================================
	pmtInf := NewElement("PmtInf",
		TextElement("PmtInfId", msg.MsgID),
		TextElement("PmtMtd", "TRF"),
		TextElement("BtchBookg", "true"),
		TextElement("NbOfTxs", nbOfTxs),
		TextElement("CtrlSum", ctrlSum),
		NewElement("PmtTpInf", NewElement("SvcLvl", TextElement("Cd", "SEPA"))),
		NewElement("ReqdExctnDt", TextElement("Dt", msg.ExecutionDate)),
		NewElement("Dbtr", TextElement("Nm", msg.DebtorName)),
		NewElement("DbtrAcct", NewElement("Id", TextElement("IBAN", msg.DebtorIBAN))),
		NewElement("DbtrAgt", NewElement("FinInstnId", TextElement("BICFI", msg.DebtorBIC))),
		TextElement("ChrgBr", "SLEV"),
	)

	for i, row := range rows {
		pmtInf.Children = append(pmtInf.Children, buildTransaction(row, i+1, amounts[i]))
	}

	root := NewElement("Document", NewElement("CstmrCdtTrfInitn", grpHdr, pmtInf)).
		WithAttr("xmlns", Namespace).
		WithAttr("xmlns:xsi", XSINamespace).
		WithAttr("xsi:schemaLocation", SchemaLocation)

	msg.Document = root
	return msg
}

// buildTransaction constructs one CdtTrfTxInf element.
//
// PARAMETERS:
//   - row: The payment row.
//   - seq: The 1-based position, used for the default EndToEndId.
//   - amount: The row amount, already rounded to cents.
func buildTransaction(row types.PaymentRow, seq int, amount decimal.Decimal) Element {
	endToEnd := strings.TrimSpace(row.EndToEndId)
	if endToEnd == "" {
		endToEnd = EndToEndIDPrefix + strconv.Itoa(seq)
	}

	tx := NewElement("CdtTrfTxInf",
		NewElement("PmtId", TextElement("EndToEndId", endToEnd)),
		NewElement("Amt", TextElement("InstdAmt", types.FormatAmount(amount)).WithAttr("Ccy", types.Currency)),
	)

	if bic := strings.TrimSpace(row.BIC); bic != "" {
		tx.Children = append(tx.Children,
			NewElement("CdtrAgt", NewElement("FinInstnId", TextElement("BICFI", bic))))
	}

	tx.Children = append(tx.Children,
		NewElement("Cdtr", TextElement("Nm", orDefault(row.Empfaenger, CreditorMissing))),
		NewElement("CdtrAcct", NewElement("Id", TextElement("IBAN", orDefault(row.IBAN, IBANMissing)))),
		NewElement("RmtInf", TextElement("Ustrd", row.Verwendungszweck)),
	)

	return tx
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// executionDate returns the first row's Valuta when it is YYYY-MM-DD,
// otherwise the UTC date of now.
func executionDate(rows []types.PaymentRow, now time.Time) string {
	if len(rows) > 0 {
		valuta := strings.TrimSpace(rows[0].Valuta)
		if isoDateOnly.MatchString(valuta) {
			return valuta
		}
	}
	return now.UTC().Format(DateLayout)
}

// rowAmount parses the row amount. Unparseable values count as zero; the
// pipeline rejects them before a message is ever built.
func rowAmount(row types.PaymentRow) decimal.Decimal {
	amount, err := types.ParseAmount(row.Betrag)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
