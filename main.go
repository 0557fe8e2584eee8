// =============================================================================
// Z Report Exporter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the zreport CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   zreport export [files]   - Export Z reports to the JSON log and PDF archive
//   zreport validate [files] - Check Z reports without writing anything
//   zreport list             - Show the records in the JSON log
//   zreport version          - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Export pipeline and its building blocks
//   - pkg/       : Shared file utilities
//   - templates/ : The LaTeX report template
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/zreport/cmd"
)

func main() {
	cmd.Execute()
}
