// =============================================================================
// pain.001 Converter - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which is the main command for
// converting a payment file into a pain.001.001.09 message.
//
// COMMAND USAGE:
//   converter generate --input payments.xlsx [flags]
//
// FLAGS:
//   --input     : Payment workbook (.xlsx) or CSV file
//   --registry  : BLZ registry JSON (overrides registry_file)
//   --output    : Output directory (overrides output_dir)
//   --pretty    : Write the pretty form instead of the canonical form
//   --dry-run   : Validate and build without writing any file
//
// On success the message is written to output_dir/output_file_name. On
// rejection nothing is written except the optional error log.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/converter"
	"github.com/ginjaninja78/pain001-converter/internal/types"
	"github.com/ginjaninja78/pain001-converter/internal/xmlformat"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// inputFlags are shared by generate and validate.
type inputFlags struct {
	input    string
	registry string
}

var generateFlags struct {
	inputFlags
	output string
	pretty bool
	dryRun bool
}

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Validate a payment file and write the pain.001 message",
	Long: `The generate command reads a payment workbook or CSV file, validates and
sanitizes every row, and writes one pain.001.001.09 message (ZKA 3.8).

A batch is all-or-nothing: any checksum or amount error rejects the whole
file, and a foreign BIC that does not match its IBAN aborts the import.
Domestic BICs that do not match the BLZ registry are removed and the
transfer is sent IBAN-only.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := generateFlags.apply(mainConfig)
		if err != nil {
			return err
		}
		if generateFlags.output != "" {
			cfg.OutputDir = generateFlags.output
		}
		if generateFlags.pretty {
			cfg.OutputFormat = string(xmlformat.Pretty)
		}

		return runGenerate(cmd.OutOrStdout(), cfg, generateFlags.dryRun)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateFlags.register(generateCmd)

	generateCmd.Flags().StringVar(
		&generateFlags.output,
		"output",
		"",
		"Output directory (overrides output_dir)",
	)

	generateCmd.Flags().BoolVar(
		&generateFlags.pretty,
		"pretty",
		false,
		"Write the pretty form instead of the canonical form",
	)

	generateCmd.Flags().BoolVar(
		&generateFlags.dryRun,
		"dry-run",
		false,
		"Validate and build the message without writing output files",
	)
}

// register adds --input and --registry to a command.
func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Payment workbook (.xlsx) or CSV file (overrides input_file)")
	cmd.Flags().StringVar(&f.registry, "registry", "", "BLZ registry JSON (overrides registry_file)")
}

// apply returns a copy of cfg with the flag values applied.
func (f *inputFlags) apply(cfg *config.MainConfig) (*config.MainConfig, error) {
	out := *cfg
	if f.input != "" {
		out.InputFile = f.input
	}
	if f.registry != "" {
		out.RegistryFile = f.registry
	}
	if out.InputFile == "" {
		return nil, fmt.Errorf("no input file: use --input or set input_file")
	}
	return &out, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runGenerate(out io.Writer, cfg *config.MainConfig, dryRun bool) error {
	conv := converter.New(cfg.InputFile, cfg)
	conv.SetLogger(logger)
	conv.SetDryRun(dryRun)

	result := conv.Run()

	if result.ErrorLog != "" {
		fmt.Fprintf(out, "Error log: %s\n", result.ErrorLog)
	}
	if result.Error != nil {
		return result.Error
	}

	vr := result.Output.Validation
	msg := result.Output.Message

	fmt.Fprintln(out, vr.Summary())
	if notice := vr.Notice(); notice != "" {
		fmt.Fprintln(out, notice)
	}

	fmt.Fprintf(out, "MsgId:        %s\n", msg.MsgID)
	fmt.Fprintf(out, "Transactions: %d\n", msg.NumberOfTxs)
	fmt.Fprintf(out, "Control sum:  %s %s\n", types.FormatEuro(msg.ControlSum), types.Currency)

	if dryRun {
		fmt.Fprintln(out, "Dry run: no files written.")
		return nil
	}

	fmt.Fprintf(out, "Output:       %s\n", result.OutputFile)
	if result.ArchivePath != "" {
		fmt.Fprintf(out, "Archive:      %s\n", result.ArchivePath)
	}
	if result.SummaryLog != "" {
		fmt.Fprintf(out, "Summary log:  %s\n", result.SummaryLog)
	}
	return nil
}
