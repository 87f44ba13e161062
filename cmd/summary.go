// =============================================================================
// pain.001 Converter - Summary Command
// =============================================================================
//
// COMMAND USAGE:
//   converter summary file.xml
//
// Prints the payment protocol of a pain.001 message: header, one line per
// transfer and the recomputed total.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/pain001-converter/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary file.xml",
	Short: "Print the payment protocol of a pain.001 message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSummary(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(out io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open XML file: %w", err)
	}
	defer file.Close()

	summary, err := report.Parse(file)
	if err != nil {
		return err
	}
	if !summary.ControlSumMatches() {
		logger.WithField("declared", summary.DeclaredSum).Warn("control sum differs from the transaction total")
	}

	return summary.Render(out)
}
