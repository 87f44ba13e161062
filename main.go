// =============================================================================
// pain.001 Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the pain.001 Converter CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   converter generate      - Validate a payment file and write the message
//   converter validate      - Check a payment file without writing anything
//   converter format        - Rewrite an XML file canonical or pretty
//   converter summary       - Print the payment protocol of a message
//   converter version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : Cobra command definitions
//   - internal/      : Parsing, validation and message building
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/pain001-converter/cmd"
)

func main() {
	cmd.Execute()
}
