// =============================================================================
// pain.001 Converter - Configuration Module
// =============================================================================
//
// This module loads the main application configuration (config.yaml).
//
// LOADING ORDER:
//   1. Read and parse the YAML file (a missing file yields an empty config)
//   2. Apply defaults for every unset option
//   3. Validate with struct tags
//
// Command-line flags are applied on top of the loaded configuration by the
// cmd package.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/pain001-converter/internal/types"
)

// validate is the package-level validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// InputFile is the payment workbook (.xlsx) or CSV file.
	// Usually given with --input instead.
	InputFile string `yaml:"input_file"`

	// RegistryFile is the BLZ registry JSON (blzToBics.json).
	// Default: "./blzToBics.json"
	RegistryFile string `yaml:"registry_file" validate:"required"`

	// RequireRegistry rejects a run when the registry is missing or empty.
	// Default: true
	RequireRegistry *bool `yaml:"require_registry"`

	// HeaderOffset is added to the 0-based row index in diagnostics.
	// Must be at least 1 so reported rows are 1-based; unset means 2.
	// Default: 2 (1-based rows plus one header row)
	HeaderOffset int `yaml:"header_offset" validate:"gte=1"`

	// Sheets names the workbook sheets.
	Sheets SheetSettings `yaml:"sheets"`

	// CSVSettings contains settings for CSV input.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is the directory where the generated XML is written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// OutputArchiveDir receives a uuid-named copy of every generated file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// OutputFileName is the name of the generated file.
	// Default: "pain.001.001.09.xml"
	OutputFileName string `yaml:"output_file_name" validate:"required,endswith=.xml"`

	// OutputFormat is "canonical" (transmission form) or "pretty".
	// Default: "canonical"
	OutputFormat string `yaml:"output_format" validate:"oneof=canonical pretty"`

	// ArchiveOutput copies each generated file to OutputArchiveDir.
	// Default: false
	ArchiveOutput bool `yaml:"archive_output"`

	// ArchiveNameFormat is the archived file name.
	// Placeholders: {uuid}, {timestamp}, {msgid}
	// Default: "{timestamp}_{uuid}.xml"
	ArchiveNameFormat string `yaml:"archive_name_format" validate:"required"`

	// WriteErrorLog writes a diagnostics file next to the output on rejection.
	// Default: false
	WriteErrorLog bool `yaml:"write_error_log"`

	// WriteSummaryLog writes a run summary next to the output on success.
	// Default: false
	WriteSummaryLog bool `yaml:"write_summary_log"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=trace debug info warn warning error"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`

	// =========================================================================
	// BATCH OVERRIDES
	// =========================================================================

	// Batch values replace empty fields of the workbook's config sheet.
	Batch types.BatchConfig `yaml:"batch"`
}

// SheetSettings names the two workbook sheets.
type SheetSettings struct {
	// Payments holds one transfer per row.
	// Default: "Überweisungen"
	Payments string `yaml:"payments" validate:"required"`

	// Config holds the MSGID and debtor columns in its first data row.
	// Default: "Konfiguration"
	Config string `yaml:"config" validate:"required"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the field separator.
	// Default: ";"
	Delimiter string `yaml:"delimiter" validate:"len=1"`

	// Encoding is the character encoding of the CSV file.
	// Valid values: "UTF-8", "ISO-8859-1", "WINDOWS-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding" validate:"oneof=UTF-8 ISO-8859-1 WINDOWS-1252"`
}

// RegistryRequired reports the effective RequireRegistry value.
func (c *MainConfig) RegistryRequired() bool {
	return c.RequireRegistry == nil || *c.RequireRegistry
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct. A missing file yields defaults.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyMainConfigDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.RegistryFile == "" {
		config.RegistryFile = "./blzToBics.json"
	}
	if config.HeaderOffset == 0 {
		config.HeaderOffset = 2
	}
	if config.Sheets.Payments == "" {
		config.Sheets.Payments = "Überweisungen"
	}
	if config.Sheets.Config == "" {
		config.Sheets.Config = "Konfiguration"
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ";"
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	config.CSVSettings.Encoding = strings.ToUpper(config.CSVSettings.Encoding)

	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.OutputFileName == "" {
		config.OutputFileName = "pain.001.001.09.xml"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "canonical"
	}
	if config.ArchiveNameFormat == "" {
		config.ArchiveNameFormat = "{timestamp}_{uuid}.xml"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
}

// Validate checks the configuration against its struct tags.
func Validate(config *MainConfig) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		messages = append(messages, fmt.Sprintf("%s: value %q violates %s", fe.Namespace(), fmt.Sprint(fe.Value()), rule))
	}
	return errors.New(strings.Join(messages, "; "))
}
