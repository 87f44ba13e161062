// =============================================================================
// pain.001 Converter - Payment Protocol Report
// =============================================================================
//
// This module re-reads a pain.001 message (generated by this tool or loaded
// from elsewhere) and renders a printable payment protocol:
//
//   - Header: MsgId, creation time, execution date, debtor, total, count
//   - One line per transaction: creditor, IBAN/BIC, remittance, EndToEndId,
//     amount
//   - A total line
//
// The total is recomputed from the transactions; the CtrlSum from the
// header is reported alongside so a mismatch is visible.
//
// =============================================================================

package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/pain001-converter/internal/types"
)

const (
	// RemittanceMaxLength is the printed remittance length.
	RemittanceMaxLength = 140

	// RemittanceLineLength is the preferred remittance line width.
	RemittanceLineLength = 70
)

// =============================================================================
// XML STRUCTURE
// =============================================================================
// Tags carry no namespace so any pain.001 version decodes.

type document struct {
	Initiation struct {
		GroupHeader struct {
			MsgID        string `xml:"MsgId"`
			CreationTime string `xml:"CreDtTm"`
			NbOfTxs      string `xml:"NbOfTxs"`
			CtrlSum      string `xml:"CtrlSum"`
		} `xml:"GrpHdr"`
		PaymentInfo []paymentInfo `xml:"PmtInf"`
	} `xml:"CstmrCdtTrfInitn"`
}

type paymentInfo struct {
	NbOfTxs       string `xml:"NbOfTxs"`
	CtrlSum       string `xml:"CtrlSum"`
	ExecutionDate string `xml:"ReqdExctnDt>Dt"`
	DebtorName    string `xml:"Dbtr>Nm"`
	DebtorIBAN    string `xml:"DbtrAcct>Id>IBAN"`
	DebtorBIC     string `xml:"DbtrAgt>FinInstnId>BICFI"`
	Transactions  []struct {
		EndToEndID string `xml:"PmtId>EndToEndId"`
		Amount     struct {
			Value    string `xml:",chardata"`
			Currency string `xml:"Ccy,attr"`
		} `xml:"Amt>InstdAmt"`
		BIC        string `xml:"CdtrAgt>FinInstnId>BICFI"`
		Creditor   string `xml:"Cdtr>Nm"`
		IBAN       string `xml:"CdtrAcct>Id>IBAN"`
		Remittance string `xml:"RmtInf>Ustrd"`
	} `xml:"CdtTrfTxInf"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// Transaction is one printed transfer.
type Transaction struct {
	EndToEndID string
	Creditor   string
	IBAN       string
	BIC        string
	Remittance string
	Amount     decimal.Decimal
	Currency   string
}

// Summary is the decoded content of a pain.001 message.
type Summary struct {
	MsgID         string
	CreationTime  string
	ExecutionDate string
	DebtorName    string
	DebtorIBAN    string
	DebtorBIC     string

	// DeclaredCount and DeclaredSum are the header values as written.
	DeclaredCount string
	DeclaredSum   string

	Transactions []Transaction

	// Total is recomputed from the transactions.
	Total decimal.Decimal
}

// Parse decodes a pain.001 message.
//
// RETURNS:
//   - The summary of the first payment information block.
//   - An error if the XML is malformed or holds no payment information.
func Parse(reader io.Reader) (*Summary, error) {
	var doc document
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse pain.001 XML: %w", err)
	}

	if len(doc.Initiation.PaymentInfo) == 0 {
		return nil, fmt.Errorf("failed to parse pain.001 XML: no PmtInf element found")
	}

	hdr := doc.Initiation.GroupHeader
	pmt := doc.Initiation.PaymentInfo[0]

	summary := &Summary{
		MsgID:         hdr.MsgID,
		CreationTime:  hdr.CreationTime,
		ExecutionDate: pmt.ExecutionDate,
		DebtorName:    pmt.DebtorName,
		DebtorIBAN:    pmt.DebtorIBAN,
		DebtorBIC:     pmt.DebtorBIC,
		DeclaredCount: firstNonEmpty(pmt.NbOfTxs, hdr.NbOfTxs),
		DeclaredSum:   firstNonEmpty(pmt.CtrlSum, hdr.CtrlSum),
		Total:         decimal.Zero,
	}

	for _, tx := range pmt.Transactions {
		amount, err := decimal.NewFromString(strings.TrimSpace(tx.Amount.Value))
		if err != nil {
			amount = decimal.Zero
		}

		summary.Transactions = append(summary.Transactions, Transaction{
			EndToEndID: tx.EndToEndID,
			Creditor:   tx.Creditor,
			IBAN:       tx.IBAN,
			BIC:        strings.TrimSpace(tx.BIC),
			Remittance: tx.Remittance,
			Amount:     amount,
			Currency:   tx.Amount.Currency,
		})
		summary.Total = summary.Total.Add(amount)
	}

	return summary, nil
}

// ControlSumMatches reports whether the declared CtrlSum equals the
// recomputed total.
func (s *Summary) ControlSumMatches() bool {
	declared, err := decimal.NewFromString(strings.TrimSpace(s.DeclaredSum))
	if err != nil {
		return false
	}
	return declared.Equal(s.Total)
}

// =============================================================================
// RENDERING
// =============================================================================

// Render writes the payment protocol as plain text.
func (s *Summary) Render(w io.Writer) error {
	var b strings.Builder

	b.WriteString("Payment protocol: credit transfer\n")
	fmt.Fprintf(&b, "Batch:          %s\n", s.MsgID)
	fmt.Fprintf(&b, "Created:        %s\n", FormatGermanDateTime(s.CreationTime))
	fmt.Fprintf(&b, "Execution date: %s\n", FormatGermanDate(s.ExecutionDate))
	fmt.Fprintf(&b, "Debtor:         %s\n", s.DebtorName)
	fmt.Fprintf(&b, "IBAN:           %s\n", s.DebtorIBAN)
	fmt.Fprintf(&b, "BIC:            %s\n", s.DebtorBIC)
	fmt.Fprintf(&b, "Total:          %s %s   Transfers: %d\n", types.FormatEuro(s.Total), types.Currency, len(s.Transactions))
	if !s.ControlSumMatches() {
		fmt.Fprintf(&b, "WARNING: declared CtrlSum %q differs from the transaction total\n", s.DeclaredSum)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "No.\tCreditor\tIBAN / BIC\tRemittance\tEndToEndId\tAmount\t")
	for i, tx := range s.Transactions {
		account := []string{tx.IBAN}
		if tx.BIC != "" {
			account = append(account, tx.BIC)
		}
		remittance := SplitRemittance(tx.Remittance)

		lines := max(len(account), len(remittance), 1)
		for l := 0; l < lines; l++ {
			if l == 0 {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
					i+1, tx.Creditor, at(account, l), at(remittance, l), tx.EndToEndID, types.FormatEuro(tx.Amount))
				continue
			}
			fmt.Fprintf(tw, "\t\t%s\t%s\t\t\t\n", at(account, l), at(remittance, l))
		}
	}
	fmt.Fprintf(tw, "\t\t\t\tTotal:\t%s\t\n", types.FormatEuro(s.Total))

	return tw.Flush()
}

// SplitRemittance cuts the text to 140 characters and splits it into at
// most two lines, breaking at the last space within the first 70.
func SplitRemittance(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) > RemittanceMaxLength {
		runes = runes[:RemittanceMaxLength]
	}
	if len(runes) <= RemittanceLineLength {
		return []string{string(runes)}
	}

	cut := -1
	for i := RemittanceLineLength; i >= 0; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	if cut == -1 {
		cut = RemittanceLineLength
	}

	return []string{string(runes[:cut]), strings.TrimSpace(string(runes[cut:]))}
}

// FormatGermanDateTime renders a CreDtTm value as dd.mm.yyyy hh:mm:ss.
// Unparseable values are returned unchanged.
func FormatGermanDateTime(value string) string {
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("02.01.2006 15:04:05")
		}
	}
	return value
}

// FormatGermanDate renders a YYYY-MM-DD value as dd.mm.yyyy.
// Unparseable values are returned unchanged.
func FormatGermanDate(value string) string {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.Format("02.01.2006")
	}
	return value
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
