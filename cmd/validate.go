// =============================================================================
// pain.001 Converter - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   converter validate --input payments.xlsx [--registry blzToBics.json]
//
// Runs the validation pipeline only and prints the diagnostics. Nothing is
// written. The exit code is non-zero when the batch would be rejected.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pain001-converter/internal/config"
	"github.com/ginjaninja78/pain001-converter/internal/converter"
)

var validateFlags inputFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a payment file without writing a message",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := validateFlags.apply(mainConfig)
		if err != nil {
			return err
		}
		return runValidate(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateFlags.register(validateCmd)
}

func runValidate(out io.Writer, cfg *config.MainConfig) error {
	conv := converter.New(cfg.InputFile, cfg)
	conv.SetLogger(logger)

	result, err := conv.Validate()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.Summary())
	if notice := result.Notice(); notice != "" {
		fmt.Fprintln(out, notice)
	}
	return nil
}
