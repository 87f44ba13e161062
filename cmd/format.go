// =============================================================================
// pain.001 Converter - Format Command
// =============================================================================
//
// COMMAND USAGE:
//   converter format [--pretty] [--output out.xml] file.xml
//
// Rewrites an existing XML file in canonical (default) or pretty form. The
// result goes to stdout unless --output is given.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pain001-converter/internal/xmlformat"
)

var formatFlags struct {
	pretty bool
	output string
}

var formatCmd = &cobra.Command{
	Use:   "format [flags] file.xml",
	Short: "Rewrite an XML file in canonical or pretty form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := xmlformat.Canonical
		if formatFlags.pretty {
			mode = xmlformat.Pretty
		}
		return runFormat(cmd.OutOrStdout(), args[0], formatFlags.output, mode)
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)

	formatCmd.Flags().BoolVar(&formatFlags.pretty, "pretty", false, "Put every tag on its own line")
	formatCmd.Flags().StringVarP(&formatFlags.output, "output", "o", "", "Write to this file instead of stdout")
}

func runFormat(out io.Writer, path, output string, mode xmlformat.Mode) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read XML file: %w", err)
	}

	formatted := xmlformat.Apply(string(data), mode)

	if output == "" {
		_, err := fmt.Fprintln(out, formatted)
		return err
	}

	if err := os.WriteFile(output, []byte(formatted), 0644); err != nil {
		return fmt.Errorf("failed to write XML file: %w", err)
	}
	logger.WithField("output", output).Info("formatted XML written")
	return nil
}
