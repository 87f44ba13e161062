// =============================================================================
// pain.001 Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (converter)
//   ├── generateCmd (converter generate)
//   ├── validateCmd (converter validate)
//   ├── formatCmd   (converter format)
//   ├── summaryCmd  (converter summary)
//   └── versionCmd  (converter version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading config.yaml before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pain001-converter/internal/config"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig is loaded in PersistentPreRunE.
var mainConfig *config.MainConfig

// logger is shared by all commands.
var logger = logrus.New()

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "converter",
	Short: "pain.001 Converter - Build SEPA credit transfer batches (ZKA 3.8)",
	Long: `pain.001 Converter turns a payment workbook or CSV export into a
pain.001.001.09 credit transfer message for German online banking.

Key Features:
  - German IBAN check digit validation and BIC/BLZ cross-checks
  - Umlaut transliteration for the ZKA character set
  - All-or-nothing batches with per-row diagnostics
  - Canonical or pretty XML output

Example Usage:
  converter generate --input payments.xlsx --registry blzToBics.json
  converter validate --input payments.csv
  converter summary output/pain.001.001.09.xml`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		mainConfig = cfg

		return setupLogger(logger, cfg, verbose, os.Stderr)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// setupLogger applies the configured level and format.
func setupLogger(log *logrus.Logger, cfg *config.MainConfig, verbose bool, out io.Writer) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}

	log.SetOutput(out)
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}
