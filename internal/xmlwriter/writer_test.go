package xmlwriter

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pain001-converter/internal/types"
	"github.com/ginjaninja78/pain001-converter/internal/xmlformat"
)

// 2025-01-15 10:20:30.123 UTC is 11:20:30.123 in Berlin (CET).
var fixedNow = time.Date(2025, 1, 15, 10, 20, 30, 123_000_000, time.UTC)

func testBatch() types.BatchConfig {
	return types.BatchConfig{
		MsgID:      "MSG-2025-01",
		DebtorName: "Firma GmbH",
		DebtorIBAN: "DE02120300000000202051",
		DebtorBIC:  "BYLADEM1001",
	}
}

func text(t *testing.T, e Element, path ...string) string {
	t.Helper()
	found, ok := e.Find(path...)
	require.True(t, ok, "missing %v", path)
	return found.Text
}

func TestBuildMessage_Headers(t *testing.T) {
	rows := []types.PaymentRow{
		{Empfaenger: "A", IBAN: "DE89370400440532013000", Betrag: "100,50", Valuta: "2025-02-01"},
		{Empfaenger: "B", IBAN: "DE89370400440532013000", Betrag: "0.1", Valuta: "2025-03-01"},
		{Empfaenger: "C", IBAN: "DE89370400440532013000", Betrag: "0,2"},
	}

	msg := BuildMessage(rows, testBatch(), fixedNow)
	doc := msg.Document

	assert.Equal(t, "Document", doc.Name)
	ns, _ := doc.Attr("xmlns")
	assert.Equal(t, Namespace, ns)
	loc, _ := doc.Attr("xsi:schemaLocation")
	assert.Equal(t, "urn:iso:std:iso:20022:tech:xsd:pain.001.001.09 pain.001.001.09.zka38.xsd", loc)

	assert.Equal(t, "MSG-2025-01", text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "MsgId"))
	assert.Equal(t, "MSG-2025-01", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "PmtInfId"))
	assert.Equal(t, "2025-01-15T11:20:30.123", text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "CreDtTm"))
	assert.Equal(t, "3", text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "NbOfTxs"))
	assert.Equal(t, "3", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "NbOfTxs"))
	assert.Equal(t, "100.80", text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "CtrlSum"))
	assert.Equal(t, "100.80", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "CtrlSum"))
	assert.Equal(t, "2025-02-01", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "ReqdExctnDt", "Dt"))
	assert.Equal(t, "Firma GmbH", text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "InitgPty", "Nm"))
	assert.Equal(t, "DE02120300000000202051", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "DbtrAcct", "Id", "IBAN"))
	assert.Equal(t, "BYLADEM1001", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "DbtrAgt", "FinInstnId", "BICFI"))
	assert.Equal(t, "TRF", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "PmtMtd"))
	assert.Equal(t, "true", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "BtchBookg"))
	assert.Equal(t, "SEPA", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "PmtTpInf", "SvcLvl", "Cd"))
	assert.Equal(t, "SLEV", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "ChrgBr"))

	assert.Equal(t, 3, msg.NumberOfTxs)
	assert.True(t, decimal.RequireFromString("100.80").Equal(msg.ControlSum))
}

func TestBuildMessage_ControlSumMatchesTransactions(t *testing.T) {
	amounts := []string{"0,10", "0,20", "19,99", "1.000,01", "0.7"}
	rows := make([]types.PaymentRow, len(amounts))
	for i, a := range amounts {
		rows[i] = types.PaymentRow{Betrag: a}
	}

	msg := BuildMessage(rows, testBatch(), fixedNow)
	pmtInf, ok := msg.Document.Find("CstmrCdtTrfInitn", "PmtInf")
	require.True(t, ok)

	txs := pmtInf.FindAll("CdtTrfTxInf")
	require.Len(t, txs, len(rows))

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(decimal.RequireFromString(text(t, tx, "Amt", "InstdAmt")))
	}
	assert.Equal(t, "1021.00", sum.StringFixed(2))
	assert.Equal(t, sum.StringFixed(2), text(t, pmtInf, "CtrlSum"))
}

func TestBuildMessage_Transactions(t *testing.T) {
	rows := []types.PaymentRow{
		{
			Empfaenger:       "Max Mustermann",
			IBAN:             "DE89370400440532013000",
			BIC:              " COBADEFFXXX ",
			Verwendungszweck: "Rechnung <42> & Co",
			EndToEndId:       "E2E-1",
			Betrag:           "12,5",
		},
		{Betrag: "1"},
	}

	msg := BuildMessage(rows, testBatch(), fixedNow)
	pmtInf, _ := msg.Document.Find("CstmrCdtTrfInitn", "PmtInf")
	txs := pmtInf.FindAll("CdtTrfTxInf")
	require.Len(t, txs, 2)

	first := txs[0]
	assert.Equal(t, "E2E-1", text(t, first, "PmtId", "EndToEndId"))
	assert.Equal(t, "12.50", text(t, first, "Amt", "InstdAmt"))
	amt, _ := first.Find("Amt", "InstdAmt")
	ccy, _ := amt.Attr("Ccy")
	assert.Equal(t, "EUR", ccy)
	assert.Equal(t, "COBADEFFXXX", text(t, first, "CdtrAgt", "FinInstnId", "BICFI"))
	assert.Equal(t, "Max Mustermann", text(t, first, "Cdtr", "Nm"))
	assert.Equal(t, "Rechnung <42> & Co", text(t, first, "RmtInf", "Ustrd"))

	second := txs[1]
	assert.Equal(t, "ID2", text(t, second, "PmtId", "EndToEndId"))
	_, hasAgent := second.Find("CdtrAgt")
	assert.False(t, hasAgent)
	assert.Equal(t, CreditorMissing, text(t, second, "Cdtr", "Nm"))
	assert.Equal(t, IBANMissing, text(t, second, "CdtrAcct", "Id", "IBAN"))

	names := make([]string, len(first.Children))
	for i, c := range first.Children {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"PmtId", "Amt", "CdtrAgt", "Cdtr", "CdtrAcct", "RmtInf"}, names)
}

func TestBuildMessage_Placeholders(t *testing.T) {
	msg := BuildMessage([]types.PaymentRow{{Betrag: "1", Valuta: "15.01.2025"}}, types.BatchConfig{}, fixedNow)
	doc := msg.Document

	assert.Equal(t, MsgIDMissing, text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "MsgId"))
	assert.Equal(t, MsgIDMissing, text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "PmtInfId"))
	assert.Equal(t, DebtorMissing, text(t, doc, "CstmrCdtTrfInitn", "GrpHdr", "InitgPty", "Nm"))
	assert.Equal(t, DebtorMissing, text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "Dbtr", "Nm"))
	assert.Equal(t, IBANMissing, text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "DbtrAcct", "Id", "IBAN"))
	assert.Equal(t, BICNotProvided, text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "DbtrAgt", "FinInstnId", "BICFI"))

	// Valuta not in YYYY-MM-DD falls back to the UTC date.
	assert.Equal(t, "2025-01-15", text(t, doc, "CstmrCdtTrfInitn", "PmtInf", "ReqdExctnDt", "Dt"))
}

func TestBuildMessage_ExecutionDateUsesUTC(t *testing.T) {
	// 23:30 UTC is already the next day in Berlin.
	late := time.Date(2025, 6, 30, 23, 30, 0, 0, time.UTC)
	msg := BuildMessage([]types.PaymentRow{{Betrag: "1"}}, testBatch(), late)

	assert.Equal(t, "2025-06-30", msg.ExecutionDate)
	assert.Equal(t, "2025-07-01T01:30:00.000", msg.CreationTime)
}

func TestBuildMessage_FreshTree(t *testing.T) {
	rows := []types.PaymentRow{{Betrag: "1"}}
	first := BuildMessage(rows, testBatch(), fixedNow)
	first.Document.Children = nil

	second := BuildMessage(rows, testBatch(), fixedNow)
	assert.NotEmpty(t, second.Document.Children)
}

func TestMarshal(t *testing.T) {
	doc := NewElement("a",
		TextElement("b", `x & <y> "z" 'w'`),
		TextElement("c", ""),
		NewElement("d", TextElement("e", "1")),
	).WithAttr("k", `v"1`)

	compact, err := Marshal(doc, "")
	require.NoError(t, err)
	assert.Equal(t,
		Declaration+`<a k="v&quot;1"><b>x &amp; &lt;y&gt; &quot;z&quot; &apos;w&apos;</b><c/><d><e>1</e></d></a>`,
		string(compact))

	indentedOut, err := Marshal(doc, "  ")
	require.NoError(t, err)
	assert.Equal(t, Declaration+"\n"+
		"<a k=\"v&quot;1\">\n"+
		"  <b>x &amp; &lt;y&gt; &quot;z&quot; &apos;w&apos;</b>\n"+
		"  <c/>\n"+
		"  <d>\n"+
		"    <e>1</e>\n"+
		"  </d>\n"+
		"</a>\n",
		string(indentedOut))

	assert.Equal(t, string(compact), xmlformat.Canonicalize(string(indentedOut)))
}

func TestMarshal_UnnamedElement(t *testing.T) {
	_, err := Marshal(NewElement("a", Element{Text: "x"}), "")
	assert.Error(t, err)
}

func TestMarshal_Message(t *testing.T) {
	rows := []types.PaymentRow{{
		Empfaenger:       "Max",
		IBAN:             "DE89370400440532013000",
		Verwendungszweck: "A & B",
		Betrag:           "10",
	}}

	out, err := Marshal(BuildMessage(rows, testBatch(), fixedNow).Document, "")
	require.NoError(t, err)

	xml := string(out)
	assert.True(t, strings.HasPrefix(xml, Declaration+`<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.001.001.09"`))
	assert.Contains(t, xml, `xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	assert.Contains(t, xml, `<InstdAmt Ccy="EUR">10.00</InstdAmt>`)
	assert.Contains(t, xml, `<Ustrd>A &amp; B</Ustrd>`)
	assert.NotContains(t, xml, "CdtrAgt")
}
