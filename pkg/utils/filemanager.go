// =============================================================================
// pain.001 Converter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the converter:
//   - Directory management
//   - Writing the generated message
//   - Output archival (uuid-named copies)
//   - Error log and run summary generation
//
// ARCHIVAL STRATEGY:
//   - The generated file stays in the output directory under its fixed name
//     (pain.001.001.09.xml) and is overwritten by the next run
//   - A uniquely named copy is kept in the archive directory
//   - Rejected batches produce no output, only an error log
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// unsafeNameChars are replaced when a value is used inside a file name.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the converter.
type FileManager struct {
	// OutputDir is the directory where output files are placed.
	OutputDir string

	// OutputArchiveDir is the directory for archived output files.
	OutputArchiveDir string

	// ArchiveNameFormat is the name format for archived copies.
	// See GenerateOutputFileName for placeholders.
	ArchiveNameFormat string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(outputDir, outputArchiveDir, archiveNameFormat string) *FileManager {
	return &FileManager{
		OutputDir:         outputDir,
		OutputArchiveDir:  outputArchiveDir,
		ArchiveNameFormat: archiveNameFormat,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output directory and, when archiving is
// enabled, the archive directory.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories(archive bool) error {
	dirs := []string{fm.OutputDir}
	if archive {
		dirs = append(dirs, fm.OutputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteOutput writes data to fileName inside the output directory.
//
// The file is written to a temporary name first and renamed, so a reader
// never sees a half-written message.
func (fm *FileManager) WriteOutput(fileName string, data []byte) (string, error) {
	outputPath := filepath.Join(fm.OutputDir, fileName)

	tmp, err := os.CreateTemp(fm.OutputDir, ".pain001-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write output file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveOutputFile copies an output file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//   - params: Extra placeholder values for the archive name (e.g. "msgid").
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
//
// NOTE: Output files are copied, not moved, so they remain in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string, params map[string]string) (string, error) {
	if err := os.MkdirAll(fm.OutputArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(fm.OutputArchiveDir, GenerateOutputFileName(fm.ArchiveNameFormat, params))

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//   - params: Additional placeholder values, e.g. {"msgid": "MSG-1"}.
//             Values are reduced to file-name-safe characters.
//
// RETURNS:
//   - The generated file name, always ending in .xml.
//
// EXAMPLE:
//   format: "{msgid}_{timestamp}_{uuid}.xml"
//   params: {"msgid": "MSG 2025/01"}
//   output: "MSG_2025_01_20250115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xml"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = SafeFileNamePart(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".xml") {
		result += ".xml"
	}

	return result
}

// SafeFileNamePart replaces runs of characters that are unsafe in file
// names with a single underscore.
func SafeFileNamePart(value string) string {
	return strings.Trim(unsafeNameChars.ReplaceAllString(value, "_"), "_")
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a log file.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - counters: Pre-rendered counter lines appended after the entries.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file ("" when there are no entries).
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, counters string, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "pain.001 Converter - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:          %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	if counters != "" {
		writer.WriteString("Counters:\n")
		for _, line := range strings.Split(counters, "\n") {
			fmt.Fprintf(writer, "  %s\n", line)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about one generation run.
type ProcessingSummary struct {
	StartTime     time.Time
	EndTime       time.Time
	InputFile     string
	OutputFile    string
	ArchivePath   string
	MsgID         string
	Transactions  int
	ControlSum    string
	Counters      string
	CorrectedRows []int
}

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The processing summary.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "pain.001 Converter - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Files:\n"+
		"  Input:          %s\n"+
		"  Output:         %s\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.InputFile,
		summary.OutputFile)
	if summary.ArchivePath != "" {
		fmt.Fprintf(writer, "  Archive:        %s\n", summary.ArchivePath)
	}

	fmt.Fprintf(writer, "\nMessage:\n"+
		"  MsgId:          %s\n"+
		"  Transactions:   %d\n"+
		"  Control Sum:    %s\n\n",
		summary.MsgID,
		summary.Transactions,
		summary.ControlSum)

	if summary.Counters != "" {
		writer.WriteString("Counters:\n")
		for _, line := range strings.Split(summary.Counters, "\n") {
			fmt.Fprintf(writer, "  %s\n", line)
		}
		writer.WriteString("\n")
	}

	if len(summary.CorrectedRows) > 0 {
		rows := make([]string, len(summary.CorrectedRows))
		for i, n := range summary.CorrectedRows {
			rows[i] = fmt.Sprint(n)
		}
		fmt.Fprintf(writer, "BIC removed (IBAN-only) in rows: %s\n\n", strings.Join(rows, ", "))
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
