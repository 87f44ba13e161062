package converter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/registry"
	"github.com/ginjaninja78/pain001-converter/internal/types"
	"github.com/ginjaninja78/pain001-converter/internal/validation"
	"github.com/ginjaninja78/pain001-converter/internal/xmlformat"
)

const registryJSON = `{
  "37040044": { "bics": ["COBADEFFXXX"] },
  "12030000": { "bics": ["BYLADEM1001"] }
}`

var fixedNow = time.Date(2025, 1, 15, 10, 20, 30, 0, time.UTC)

func testRows() []types.PaymentRow {
	return []types.PaymentRow{
		{Empfaenger: "Max Müller", IBAN: "DE89 3704 0044 0532 0130 00", BIC: "COBADEFFXXX", Verwendungszweck: "Miete Januar", Betrag: "100,50"},
		{Empfaenger: "Firma GmbH", IBAN: "DE02120300000000202051", BIC: "COBADEFFXXX", Verwendungszweck: "Rechnung 7", Betrag: "0.30"},
	}
}

func testBatch() types.BatchConfig {
	return types.BatchConfig{
		MsgID:      "MSG-2025-01",
		DebtorName: "Auftraggeber AG",
		DebtorIBAN: "DE02120300000000202051",
		DebtorBIC:  "BYLADEM1001",
	}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(strings.NewReader(registryJSON))
	require.NoError(t, err)
	return reg
}

// testConfig returns a configuration writing below a temp dir.
func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	dir := t.TempDir()

	registryPath := filepath.Join(dir, "blzToBics.json")
	require.NoError(t, os.WriteFile(registryPath, []byte(registryJSON), 0644))

	cfg := config.Default()
	cfg.RegistryFile = registryPath
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.OutputArchiveDir = filepath.Join(dir, "archive")
	cfg.Batch = testBatch()
	return cfg
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payments.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

const csvHeader = "Empfänger;IBAN;BIC;Verwendungszweck;EndToEndId;Betrag;Valuta"

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_Accepted(t *testing.T) {
	rows := testRows()

	out, err := Generate(rows, testBatch(), testRegistry(t), GenerateOptions{
		Validation: validation.DefaultOptions(),
		Format:     xmlformat.Canonical,
		Now:        fixedNow,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.XML, "<?xml"))
	assert.NotContains(t, out.XML, ">\n<")
	assert.Contains(t, out.XML, "<MsgId>MSG-2025-01</MsgId><CreDtTm>2025-01-15T11:20:30.000</CreDtTm><NbOfTxs>2</NbOfTxs><CtrlSum>100.80</CtrlSum>")
	assert.Contains(t, out.XML, "<Nm>Max Mueller</Nm>")
	assert.Contains(t, out.XML, "<IBAN>DE89370400440532013000</IBAN>")
	assert.Equal(t, 1, strings.Count(out.XML, "<CdtrAgt>"), "unregistered domestic BIC is dropped")

	assert.Equal(t, 2, out.Message.NumberOfTxs)
	assert.Equal(t, "100.8", out.Message.ControlSum.String())
	assert.Equal(t, []int{3}, out.Validation.CorrectedRows)
	assert.Equal(t, 2, out.Validation.Counters.IBANValid)

	// The caller's rows are untouched.
	assert.Equal(t, "Max Müller", rows[0].Empfaenger)
	assert.Equal(t, "COBADEFFXXX", rows[1].BIC)
}

func TestGenerate_Pretty(t *testing.T) {
	out, err := Generate(testRows(), testBatch(), testRegistry(t), GenerateOptions{
		Validation: validation.DefaultOptions(),
		Format:     xmlformat.Pretty,
		Now:        fixedNow,
	})
	require.NoError(t, err)

	assert.Contains(t, out.XML, "<GrpHdr>\n<MsgId>MSG-2025-01</MsgId>\n")
	assert.Equal(t, out.XML, xmlformat.PrettyPrint(out.XML))
}

func TestGenerate_Rejected(t *testing.T) {
	rows := testRows()
	rows[1].IBAN = "DE02120300000000202052"

	out, err := Generate(rows, testBatch(), testRegistry(t), GenerateOptions{Validation: validation.DefaultOptions()})
	require.Error(t, err)

	var rejection *validation.RejectionError
	require.True(t, errors.As(err, &rejection))
	assert.False(t, rejection.Aborted)
	assert.True(t, validation.IsKind(err, validation.KindChecksum))

	require.NotNil(t, out)
	assert.Empty(t, out.XML)
	assert.Nil(t, out.Message)
	assert.Nil(t, out.Validation.Rows)
}

func TestGenerate_MissingRegistry(t *testing.T) {
	out, err := Generate(testRows(), testBatch(), nil, GenerateOptions{Validation: validation.DefaultOptions()})
	assert.Nil(t, out)
	assert.True(t, validation.IsKind(err, validation.KindMissingRegistry))

	opts := validation.DefaultOptions()
	opts.RequireRegistry = false
	out, err = Generate(testRows(), testBatch(), nil, GenerateOptions{Validation: opts, Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.XML, "<CdtrAgt>"))
}

func TestGenerate_ZeroOptions(t *testing.T) {
	out, err := Generate(testRows(), testBatch(), nil, GenerateOptions{})
	assert.Nil(t, out)
	assert.True(t, validation.IsKind(err, validation.KindMissingRegistry))

	rows := testRows()
	rows[1].IBAN = "DE02120300000000202052"

	_, err = Generate(rows, testBatch(), testRegistry(t), GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3: invalid German IBAN check digits")
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_CSV(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveOutput = true
	cfg.WriteSummaryLog = true

	input := writeCSV(t,
		csvHeader,
		"Max Müller;DE89 3704 0044 0532 0130 00;COBADEFFXXX;Miete;E2E-1;100,50;2025-02-01",
		"Firma GmbH;DE02120300000000202051;;Rechnung;;0,30;",
	)

	conv := New(input, cfg)
	conv.SetClock(func() time.Time { return fixedNow })
	result := conv.Run()

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Stats.RowsProcessed)
	assert.Equal(t, 2, result.Stats.TransactionsCreated)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "pain.001.001.09.xml"), result.OutputFile)

	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	xml := string(data)
	assert.Contains(t, xml, "<MsgId>MSG-2025-01</MsgId>")
	assert.Contains(t, xml, "<ReqdExctnDt><Dt>2025-02-01</Dt></ReqdExctnDt>")
	assert.Contains(t, xml, "<EndToEndId>E2E-1</EndToEndId>")
	assert.Contains(t, xml, "<EndToEndId>ID2</EndToEndId>")

	require.NotEmpty(t, result.ArchivePath)
	archived, err := os.ReadFile(result.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, data, archived)

	require.NotEmpty(t, result.SummaryLog)
	summary, err := os.ReadFile(result.SummaryLog)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Control Sum:    100.80")
}

func TestRun_Workbook(t *testing.T) {
	cfg := testConfig(t)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Überweisungen"))
	_, err := f.NewSheet("Konfiguration")
	require.NoError(t, err)

	require.NoError(t, f.SetSheetRow("Überweisungen", "A1", &[]any{"Empfänger", "IBAN", "BIC", "Verwendungszweck", "EndToEndId", "Betrag", "Valuta"}))
	require.NoError(t, f.SetSheetRow("Überweisungen", "A2", &[]any{"Max Müller", "DE89370400440532013000", "COBADEFFXXX", "Miete", "", 12.5, "03.02.2025"}))
	require.NoError(t, f.SetSheetRow("Konfiguration", "A1", &[]any{"MSGID", "AuftraggeberName", "AuftraggeberIBAN", "AuftraggeberBIC"}))
	require.NoError(t, f.SetSheetRow("Konfiguration", "A2", &[]any{"WB-1", "Workbook AG", "", ""}))

	input := filepath.Join(t.TempDir(), "payments.xlsx")
	require.NoError(t, f.SaveAs(input))

	conv := New(input, cfg)
	conv.SetClock(func() time.Time { return fixedNow })
	result := conv.Run()
	require.NoError(t, result.Error)

	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	xml := string(data)

	// Workbook values win, config.yaml fills the gaps.
	assert.Contains(t, xml, "<MsgId>WB-1</MsgId>")
	assert.Contains(t, xml, "<InitgPty><Nm>Workbook AG</Nm></InitgPty>")
	assert.Contains(t, xml, "<DbtrAcct><Id><IBAN>DE02120300000000202051</IBAN></Id></DbtrAcct>")
	assert.Contains(t, xml, "<Dt>2025-02-03</Dt>")
	assert.Contains(t, xml, "<InstdAmt Ccy=\"EUR\">12.50</InstdAmt>")
	assert.Contains(t, xml, "<BICFI>COBADEFFXXX</BICFI>")
}

func TestRun_RejectedWritesErrorLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.WriteErrorLog = true

	input := writeCSV(t,
		csvHeader,
		"Max Müller;DE89370400440532013001;;Miete;;100,50;",
		"Firma GmbH;DE02120300000000202051;;Rechnung;;0;",
	)

	result := New(input, cfg).Run()

	assert.False(t, result.Success)
	assert.True(t, validation.IsKind(result.Error, validation.KindChecksum))
	assert.True(t, validation.IsKind(result.Error, validation.KindAmount))
	assert.Equal(t, 2, result.Stats.ValidationErrors)
	assert.Empty(t, result.OutputFile)
	assert.False(t, fileExistsIn(t, cfg.OutputDir, "pain.001.001.09.xml"))

	require.NotEmpty(t, result.ErrorLog)
	log, err := os.ReadFile(result.ErrorLog)
	require.NoError(t, err)
	assert.Contains(t, string(log), "Row Number:     2")
	assert.Contains(t, string(log), "Invalid IBAN check digits: 1")
}

func TestRun_DryRun(t *testing.T) {
	cfg := testConfig(t)
	input := writeCSV(t, csvHeader, "Max Müller;DE89370400440532013000;;Miete;;1;")

	conv := New(input, cfg)
	conv.SetDryRun(true)
	result := conv.Run()

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Empty(t, result.OutputFile)
	assert.NotEmpty(t, result.Output.XML)

	_, err := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_MissingRegistry(t *testing.T) {
	cfg := testConfig(t)
	cfg.RegistryFile = filepath.Join(t.TempDir(), "missing.json")
	input := writeCSV(t, csvHeader, "Max Müller;DE89370400440532013000;COBADEFFXXX;Miete;;1;")

	result := New(input, cfg).Run()
	assert.True(t, validation.IsKind(result.Error, validation.KindMissingRegistry))

	optional := false
	cfg.RequireRegistry = &optional
	result = New(input, cfg).Run()
	require.NoError(t, result.Error)
	assert.Equal(t, 0, result.Stats.CorrectedRows)
}

func TestLoadInput_Unsupported(t *testing.T) {
	_, err := LoadInput("payments.pdf", config.Default())
	assert.True(t, validation.IsKind(err, validation.KindStructuralInput))
}

func fileExistsIn(t *testing.T, dir, name string) bool {
	t.Helper()
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func TestValidate(t *testing.T) {
	cfg := testConfig(t)

	input := writeCSV(t, csvHeader,
		"Max Müller;DE89370400440532013000;COBADEFFXXX;Miete;;1;",
		"Firma GmbH;DE02120300000000202051;COBADEFFXXX;Rechnung;;2,50;",
	)
	result, err := New(input, cfg).Validate()
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, []int{3}, result.CorrectedRows)
	assert.Equal(t, "3.5", result.Total.String())

	_, err = os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(err))

	bad := writeCSV(t, csvHeader, "Max Müller;DE89370400440532013000;;Miete;;;")
	result, err = New(bad, cfg).Validate()
	assert.True(t, validation.IsKind(err, validation.KindAmount))
	assert.False(t, result.Accepted)
}
