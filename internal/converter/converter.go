// =============================================================================
// pain.001 Converter - Converter Module
// =============================================================================
//
// This module contains the core conversion logic. It orchestrates the entire
// pipeline for a single input file, from parsing to the written XML message.
//
// CONVERSION PIPELINE:
//   1. Parse the input (.xlsx workbook or .csv file)
//   2. Merge the batch configuration with the config.yaml overrides
//   3. Load the BLZ registry
//   4. Validate and sanitize the batch (all-or-nothing)
//   5. Build and serialize the pain.001.001.09 message
//   6. Format it (canonical or pretty)
//   7. Write the output file, archive a copy, write the logs
//
// Steps 4 to 6 are also available as the pure Generate call, which touches
// no files.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/pain001-converter/internal/bic"
	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/csvparser"
	"github.com/ginjaninja78/pain001-converter/internal/registry"
	"github.com/ginjaninja78/pain001-converter/internal/types"
	"github.com/ginjaninja78/pain001-converter/internal/validation"
	"github.com/ginjaninja78/pain001-converter/internal/xlsxparser"
	"github.com/ginjaninja78/pain001-converter/internal/xmlformat"
	"github.com/ginjaninja78/pain001-converter/internal/xmlwriter"
	"github.com/ginjaninja78/pain001-converter/pkg/utils"
)

// =============================================================================
// GENERATION (PURE)
// =============================================================================

// GenerateOptions controls a Generate call.
type GenerateOptions struct {
	// Validation holds the header offset and the registry requirement.
	// The zero value means validation.DefaultOptions().
	Validation validation.Options

	// Format selects canonical or pretty output.
	Format xmlformat.Mode

	// Now is the generation time. Zero means time.Now().
	Now time.Time

	// Logger receives per-stage progress. Nil discards it.
	Logger logrus.FieldLogger
}

// Output is the result of a successful or rejected Generate call.
type Output struct {
	// XML is the formatted message. Empty on rejection.
	XML string

	// Message holds the header values of the built message. Nil on rejection.
	Message *xmlwriter.Message

	// Validation holds counters, corrected rows and errors.
	Validation *validation.Result
}

// Generate validates the rows and, if the batch is accepted, returns the
// pain.001 message. The input rows are not modified.
//
// RETURNS:
//   - (*Output, nil) for an accepted batch.
//   - (*Output, *validation.RejectionError) for a rejected batch. Only
//     Output.Validation is set.
//   - (nil, *validation.ValidationError) when a pre-check fails.
func Generate(rows []types.PaymentRow, batch types.BatchConfig, reg bic.Registry, opts GenerateOptions) (*Output, error) {
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	validationOptions := opts.Validation
	if validationOptions == (validation.Options{}) {
		validationOptions = validation.DefaultOptions()
	}

	pipeline := validation.NewPipelineWithOptions(reg, validationOptions)
	pipeline.SetLogger(log)

	result, err := pipeline.Run(rows)
	if err != nil {
		if result == nil {
			return nil, err
		}
		return &Output{Validation: result}, err
	}

	log.WithFields(logrus.Fields{
		"rows":      len(result.Rows),
		"corrected": len(result.CorrectedRows),
	}).Debug("batch accepted")

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	msg := xmlwriter.BuildMessage(result.Rows, batch, now)
	raw, err := xmlwriter.Marshal(msg.Document, "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize XML: %w", err)
	}

	return &Output{
		XML:        xmlformat.Apply(string(raw), opts.Format),
		Message:    msg,
		Validation: result,
	}, nil
}

// =============================================================================
// INPUT LOADING
// =============================================================================

// Input is a parsed payment file.
type Input struct {
	// Rows are the payment rows in file order.
	Rows []types.PaymentRow

	// Batch comes from the workbook's config sheet. CSV input has none.
	Batch types.BatchConfig
}

// LoadInput parses a workbook or CSV file, chosen by extension.
//
// PARAMETERS:
//   - path: The .xlsx or .csv file.
//   - cfg: Supplies the sheet names and CSV settings.
//
// RETURNS:
//   - The parsed input.
//   - A *validation.ValidationError of kind KindStructuralInput for missing
//     sheets or an unknown extension; other errors for I/O failures.
func LoadInput(path string, cfg *config.MainConfig) (*Input, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		wb, err := xlsxparser.Parse(path, cfg.Sheets)
		if err != nil {
			return nil, err
		}
		return &Input{Rows: wb.Rows, Batch: wb.Batch}, nil

	case ".csv", ".txt":
		data, err := csvparser.Parse(path, cfg.CSVSettings)
		if err != nil {
			return nil, err
		}
		return &Input{Rows: data.Rows}, nil

	default:
		return nil, validation.NewStructuralError("unsupported input file %s: expected .xlsx or .csv", filepath.Base(path))
	}
}

// LoadRegistry reads the BLZ registry named in the configuration.
//
// A missing or unreadable registry is an error only when the configuration
// requires one; otherwise a nil registry is returned and domestic BICs are
// checked for structure and country alone.
func LoadRegistry(cfg *config.MainConfig) (*registry.Registry, error) {
	reg, err := registry.LoadFile(cfg.RegistryFile)
	if err != nil {
		if cfg.RegistryRequired() {
			return nil, &validation.ValidationError{
				Kind:    validation.KindMissingRegistry,
				Value:   cfg.RegistryFile,
				Message: fmt.Sprintf("the BLZ registry could not be loaded: %v", err),
			}
		}
		return nil, nil
	}
	return reg, nil
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated XML file.
	// This is empty if processing failed or for a dry run.
	OutputFile string

	// ArchivePath is the archived copy, if one was made.
	ArchivePath string

	// ErrorLog is the diagnostics file written on rejection, if any.
	ErrorLog string

	// SummaryLog is the run summary written on success, if any.
	SummaryLog string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	// This is nil if processing was successful.
	Error error

	// Output holds the generated message and the validation result.
	Output *Output

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of payment rows read.
	RowsProcessed int

	// TransactionsCreated is the number of CdtTrfTxInf elements written.
	TransactionsCreated int

	// CorrectedRows is the number of rows whose BIC was cleared.
	CorrectedRows int

	// ValidationErrors is the number of validation errors encountered.
	ValidationErrors int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single payment file.
type Converter struct {
	inputPath  string
	mainConfig *config.MainConfig
	logger     logrus.FieldLogger
	now        func() time.Time
	dryRun     bool
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The path to the input workbook or CSV file.
//   - mainConfig: The main application configuration.
func New(inputPath string, mainConfig *config.MainConfig) *Converter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	return &Converter{
		inputPath:  inputPath,
		mainConfig: mainConfig,
		logger:     discard,
		now:        time.Now,
	}
}

// SetLogger replaces the converter logger.
func (c *Converter) SetLogger(logger logrus.FieldLogger) {
	c.logger = logger
}

// SetClock replaces the time source used for CreDtTm and file names.
func (c *Converter) SetClock(now func() time.Time) {
	c.now = now
}

// SetDryRun disables every file write.
func (c *Converter) SetDryRun(dryRun bool) {
	c.dryRun = dryRun
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing. Result.Error
//     is a *validation.RejectionError when the batch was rejected.
func (c *Converter) Run() Result {
	startTime := c.now()
	result := Result{FilePath: c.inputPath}
	cfg := c.mainConfig

	log := c.logger.WithFields(logrus.Fields{
		"run":  uuid.NewString(),
		"file": filepath.Base(c.inputPath),
	})

	// =========================================================================
	// STEP 1: PARSE INPUT
	// =========================================================================
	log.Info("processing file")

	input, err := LoadInput(c.inputPath, cfg)
	if err != nil {
		result.Error = fmt.Errorf("failed to load input: %w", err)
		return result
	}
	result.Stats.RowsProcessed = len(input.Rows)
	log.WithField("rows", len(input.Rows)).Debug("parsed input")

	// =========================================================================
	// STEP 2: BATCH CONFIGURATION
	// =========================================================================
	// The workbook's config sheet wins; config.yaml fills the gaps.
	batch := input.Batch.Merge(cfg.Batch)

	// =========================================================================
	// STEP 3: REGISTRY
	// =========================================================================
	reg, err := LoadRegistry(cfg)
	if err != nil {
		result.Error = err
		return result
	}
	var checker bic.Registry
	if reg != nil {
		checker = reg
		log.WithField("blz", reg.Len()).Debug("loaded BLZ registry")
	}

	// =========================================================================
	// STEP 4-6: VALIDATE, BUILD, FORMAT
	// =========================================================================
	output, err := Generate(input.Rows, batch, checker, GenerateOptions{
		Validation: validation.Options{
			HeaderOffset:    cfg.HeaderOffset,
			RequireRegistry: cfg.RegistryRequired(),
		},
		Format: xmlformat.Mode(cfg.OutputFormat),
		Now:    startTime,
		Logger: log,
	})
	result.Output = output

	if err != nil {
		result.Error = err
		c.handleRejection(&result, log)
		return result
	}

	vr := output.Validation
	result.Stats.TransactionsCreated = output.Message.NumberOfTxs
	result.Stats.CorrectedRows = len(vr.CorrectedRows)
	if notice := vr.Notice(); notice != "" {
		log.Info(notice)
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUT
	// =========================================================================
	if c.dryRun {
		log.Info("dry run, no files written")
		result.Success = true
		result.Stats.ProcessingTime = c.now().Sub(startTime)
		return result
	}

	fm := utils.NewFileManager(cfg.OutputDir, cfg.OutputArchiveDir, cfg.ArchiveNameFormat)
	if err := fm.EnsureDirectories(cfg.ArchiveOutput); err != nil {
		result.Error = err
		return result
	}

	outputPath, err := fm.WriteOutput(cfg.OutputFileName, []byte(output.XML))
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	log.WithField("output", outputPath).Info("wrote pain.001 message")

	if cfg.ArchiveOutput {
		archived, err := fm.ArchiveOutputFile(outputPath, map[string]string{"msgid": output.Message.MsgID})
		if err != nil {
			// The output itself is complete.
			log.WithError(err).Warn("failed to archive output")
		} else {
			result.ArchivePath = archived
		}
	}

	result.Success = true
	result.Stats.ProcessingTime = c.now().Sub(startTime)

	if cfg.WriteSummaryLog {
		path, err := utils.WriteSummaryLog(utils.ProcessingSummary{
			StartTime:     startTime,
			EndTime:       startTime.Add(result.Stats.ProcessingTime),
			InputFile:     c.inputPath,
			OutputFile:    outputPath,
			ArchivePath:   result.ArchivePath,
			MsgID:         output.Message.MsgID,
			Transactions:  output.Message.NumberOfTxs,
			ControlSum:    types.FormatAmount(output.Message.ControlSum),
			Counters:      vr.Counters.String(),
			CorrectedRows: vr.CorrectedRows,
		}, cfg.OutputDir)
		if err != nil {
			log.WithError(err).Warn("failed to write summary log")
		} else {
			result.SummaryLog = path
		}
	}

	return result
}

// handleRejection records the statistics of a rejected batch and writes the
// error log when enabled.
func (c *Converter) handleRejection(result *Result, log logrus.FieldLogger) {
	var rejection *validation.RejectionError
	if !errors.As(result.Error, &rejection) {
		log.WithError(result.Error).Error("processing failed")
		return
	}

	vr := rejection.Result
	result.Stats.ValidationErrors = len(vr.Errors)
	for _, ve := range vr.Errors {
		log.WithFields(logrus.Fields{
			"kind": string(ve.Kind),
			"row":  ve.RowNumber,
		}).Warn(ve.Message)
	}

	if !c.mainConfig.WriteErrorLog || c.dryRun {
		return
	}

	entries := make([]utils.ErrorLogEntry, 0, len(vr.Errors))
	timestamp := c.now()
	for _, ve := range vr.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    timestamp,
			FileName:     filepath.Base(c.inputPath),
			ErrorType:    string(ve.Kind),
			ErrorMessage: ve.Message,
			RowNumber:    ve.RowNumber,
			FieldName:    ve.Field,
			FieldValue:   ve.Value,
		})
	}

	fm := utils.NewFileManager(c.mainConfig.OutputDir, c.mainConfig.OutputArchiveDir, c.mainConfig.ArchiveNameFormat)
	if err := fm.EnsureDirectories(false); err != nil {
		log.WithError(err).Warn("failed to write error log")
		return
	}

	path, err := utils.WriteErrorLog(entries, vr.Counters.String(), c.mainConfig.OutputDir)
	if err != nil {
		log.WithError(err).Warn("failed to write error log")
		return
	}
	result.ErrorLog = path
}

// =============================================================================
// VALIDATION ONLY
// =============================================================================

// Validate parses the input and runs the validation pipeline without
// building a message.
//
// RETURNS:
//   - The validation result and error exactly as validation.Pipeline.Run
//     returns them, or an input/registry loading error.
func (c *Converter) Validate() (*validation.Result, error) {
	cfg := c.mainConfig
	log := c.logger.WithField("file", filepath.Base(c.inputPath))

	input, err := LoadInput(c.inputPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}

	reg, err := LoadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	var checker bic.Registry
	if reg != nil {
		checker = reg
	}

	pipeline := validation.NewPipelineWithOptions(checker, validation.Options{
		HeaderOffset:    cfg.HeaderOffset,
		RequireRegistry: cfg.RegistryRequired(),
	})
	pipeline.SetLogger(log)

	return pipeline.Run(input.Rows)
}
