// =============================================================================
// pain.001 Converter - CSV Parser Module
// =============================================================================
//
// This module parses a CSV export of the payments sheet. The first row holds
// the column headers (Empfaenger, IBAN, BIC, Verwendungszweck, EndToEndId,
// Betrag, Valuta); every following non-empty row is one transfer.
//
// FEATURES:
//   - Configurable delimiter (default ";", as written by German Excel)
//   - UTF-8 (with or without BOM), ISO-8859-1 and Windows-1252 input
//   - Values are passed through untrimmed; whitespace handling belongs to
//     the sanitizer so its counters stay correct
//
// A CSV carries no configuration sheet. The batch configuration comes from
// config.yaml instead.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/types"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed CSV file.
type CSVData struct {
	// Headers contains the column headers from the CSV file.
	Headers []string

	// Rows contains the payment rows in file order.
	Rows []types.PaymentRow

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}

	data.SourceFile = filePath
	return data, nil
}

// ParseReader parses CSV content from a reader.
//
// PARSING PROCESS:
//   1. Decode the configured encoding to UTF-8
//   2. Read all records with the configured delimiter
//   3. Use the first record as headers
//   4. Map every non-empty record to a PaymentRow
func ParseReader(reader io.Reader, settings config.CSVSettings) (*CSVData, error) {
	decoder, err := getDecoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(reader), decoder))
	if err := configureReader(csvReader, settings); err != nil {
		return nil, err
	}

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers := cleanHeaders(allRows[0])

	data := &CSVData{Headers: headers}
	for _, record := range allRows[1:] {
		if isRowEmpty(record) {
			continue
		}

		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if col < len(record) {
				fields[header] = record[col]
			}
		}
		data.Rows = append(data.Rows, types.PaymentRowFromRecord(fields))
	}

	return data, nil
}

// getDecoder returns the transformer for the configured encoding.
func getDecoder(encoding string) (transform.Transformer, error) {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case "", "UTF-8", "UTF8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "ISO-8859-1", "LATIN1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported CSV encoding %q", encoding)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	reader.Comma = ';'
	if settings.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(settings.Delimiter)
		if size != len(settings.Delimiter) {
			return fmt.Errorf("CSV delimiter must be a single character, got %q", settings.Delimiter)
		}
		reader.Comma = r
	}

	// Trailing empty columns are often dropped by spreadsheet exports.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return nil
}

// cleanHeaders trims headers and names empty ones by column index.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
