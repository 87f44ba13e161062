package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/types"
)

func defaultSettings() config.CSVSettings {
	return config.Default().CSVSettings
}

func TestParseReader(t *testing.T) {
	input := "Empfänger;IBAN;BIC;Verwendungszweck;EndToEndId;Betrag;Valuta\n" +
		"Max Müller;DE89 3704 0044 0532 0130 00;COBADEFFXXX;Miete;E2E-1;100,50;2025-01-15\n" +
		";;;;;;\n" +
		"\"Firma; GmbH\";DE02120300000000202051;;\"Rechnung \"\"42\"\"\";;1.234,56\n"

	data, err := ParseReader(strings.NewReader(input), defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{"Empfänger", "IBAN", "BIC", "Verwendungszweck", "EndToEndId", "Betrag", "Valuta"}, data.Headers)
	require.Len(t, data.Rows, 2)

	assert.Equal(t, types.PaymentRow{
		Empfaenger:       "Max Müller",
		IBAN:             "DE89 3704 0044 0532 0130 00",
		BIC:              "COBADEFFXXX",
		Verwendungszweck: "Miete",
		EndToEndId:       "E2E-1",
		Betrag:           "100,50",
		Valuta:           "2025-01-15",
	}, data.Rows[0])

	assert.Equal(t, "Firma; GmbH", data.Rows[1].Empfaenger)
	assert.Equal(t, `Rechnung "42"`, data.Rows[1].Verwendungszweck)
	assert.Equal(t, "1.234,56", data.Rows[1].Betrag)
	assert.Equal(t, "", data.Rows[1].Valuta)
}

func TestParseReader_UTF8BOM(t *testing.T) {
	input := "\xef\xbb\xbfIBAN;Betrag\nDE89370400440532013000;1\n"

	data, err := ParseReader(strings.NewReader(input), defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, "IBAN", data.Headers[0])
	assert.Equal(t, "DE89370400440532013000", data.Rows[0].IBAN)
}

func TestParseReader_Windows1252(t *testing.T) {
	settings := defaultSettings()
	settings.Encoding = "WINDOWS-1252"
	settings.Delimiter = ","

	// "Müller" and "Straße" in Windows-1252.
	input := "Empfaenger,Verwendungszweck,Betrag\nM\xfcller,Stra\xdfe,5\n"

	data, err := ParseReader(strings.NewReader(input), settings)
	require.NoError(t, err)
	assert.Equal(t, "Müller", data.Rows[0].Empfaenger)
	assert.Equal(t, "Straße", data.Rows[0].Verwendungszweck)
}

func TestParseReader_Errors(t *testing.T) {
	_, err := ParseReader(strings.NewReader(""), defaultSettings())
	assert.ErrorContains(t, err, "CSV file is empty")

	settings := defaultSettings()
	settings.Encoding = "EBCDIC"
	_, err = ParseReader(strings.NewReader("a;b\n"), settings)
	assert.ErrorContains(t, err, "unsupported CSV encoding")

	settings = defaultSettings()
	settings.Delimiter = ";;"
	_, err = ParseReader(strings.NewReader("a;b\n"), settings)
	assert.ErrorContains(t, err, "single character")
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payments.csv")
	require.NoError(t, os.WriteFile(path, []byte("IBAN;Betrag\nDE89370400440532013000;1\n"), 0o644))

	data, err := Parse(path, defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, path, data.SourceFile)
	assert.Len(t, data.Rows, 1)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.csv"), defaultSettings())
	assert.ErrorContains(t, err, "failed to open file")
}
