// =============================================================================
// pain.001 Converter - XLSX Workbook Parser
// =============================================================================
//
// This module reads the payment workbook. The workbook has two sheets:
//
//   Überweisungen (payments, one transfer per row):
//   | Empfaenger | IBAN | BIC | Verwendungszweck | EndToEndId | Betrag | Valuta |
//
//   Konfiguration (first data row only):
//   | MSGID | AuftraggeberName | AuftraggeberIBAN | AuftraggeberBIC |
//
// Sheet names are configurable. A missing sheet is a structural input error;
// the run stops before any row is validated.
//
// CELL VALUES:
//   Cells are read raw (unformatted) so amounts keep their full precision.
//   Valuta cells holding an Excel date serial or a German date (dd.mm.yyyy)
//   are normalized to YYYY-MM-DD; anything else is passed through.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/types"
	"github.com/ginjaninja78/pain001-converter/internal/validation"
)

// =============================================================================
// WORKBOOK STRUCTURE
// =============================================================================

// Workbook is the decoded content of a payment workbook.
type Workbook struct {
	// SourceFile is the path to the workbook, if read from disk.
	SourceFile string

	// Rows contains the non-empty payment rows in sheet order.
	Rows []types.PaymentRow

	// Batch is read from the first data row of the config sheet.
	Batch types.BatchConfig

	// Headers are the payments sheet column headers.
	Headers []string
}

// germanDateLayouts are accepted Valuta formats besides YYYY-MM-DD.
var germanDateLayouts = []string{"02.01.2006", "2.1.2006", "02.01.06"}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a payment workbook from disk.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - sheets: The sheet names to read.
//
// RETURNS:
//   - The decoded workbook.
//   - A *validation.ValidationError of kind KindStructuralInput when a sheet
//     is missing, or a wrapped error if the file cannot be read.
func Parse(path string, sheets config.SheetSettings) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	wb, err := parseFile(f, sheets)
	if err != nil {
		return nil, err
	}

	wb.SourceFile = path
	return wb, nil
}

// ParseReader reads a payment workbook from a reader.
func ParseReader(reader io.Reader, sheets config.SheetSettings) (*Workbook, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return parseFile(f, sheets)
}

// parseFile reads both sheets from an open workbook.
func parseFile(f *excelize.File, sheets config.SheetSettings) (*Workbook, error) {
	for _, name := range []string{sheets.Payments, sheets.Config} {
		if index, err := f.GetSheetIndex(name); err != nil || index < 0 {
			return nil, validation.NewStructuralError(
				"workbook has no sheet %q (found: %s)", name, strings.Join(f.GetSheetList(), ", "))
		}
	}

	headers, records, err := readRecords(f, sheets.Payments)
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, validation.NewStructuralError("sheet %q has no header row", sheets.Payments)
	}

	wb := &Workbook{Headers: headers}
	for _, record := range records {
		row := types.PaymentRowFromRecord(record)
		if row.IsEmpty() {
			continue
		}
		row.Valuta = normalizeDate(f, row.Valuta)
		wb.Rows = append(wb.Rows, row)
	}

	_, configRecords, err := readRecords(f, sheets.Config)
	if err != nil {
		return nil, err
	}
	if len(configRecords) > 0 {
		wb.Batch = types.BatchConfigFromRecord(configRecords[0])
	}

	return wb, nil
}

// readRecords returns the header row and every following row as a
// header -> value record. Fully empty rows are dropped.
func readRecords(f *excelize.File, sheet string) ([]string, []map[string]string, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var records []map[string]string
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}

		record := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" || col >= len(row) {
				continue
			}
			record[header] = row[col]
		}
		records = append(records, record)
	}

	return headers, records, nil
}

// normalizeDate converts Excel serials and German dates to YYYY-MM-DD.
func normalizeDate(f *excelize.File, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, uses1904(f)); err == nil {
			return t.Format("2006-01-02")
		}
	}

	for _, layout := range germanDateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}

	return value
}

// uses1904 reports whether the workbook uses the 1904 date system.
func uses1904(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
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
