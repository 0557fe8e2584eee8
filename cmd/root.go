// =============================================================================
// Z Report Exporter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI.
//
// COBRA CLI STRUCTURE:
//   rootCmd (zreport)
//   ├── exportCmd   (zreport export)
//   ├── validateCmd (zreport validate)
//   ├── listCmd     (zreport list)
//   └── versionCmd  (zreport version)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/zreport/internal/config"
	"github.com/ginjaninja78/zreport/internal/converter"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "zreport",
	Short: "Z report exporter - log cash register closing reports and render them to PDF",
	Long: `zreport exports Z reports (cash register closing records) from JSON or
XLSX input. Every exported record is appended to a JSON log and rendered to a
LaTeX document that is compiled to PDF in the archive directory.

Example Usage:
  zreport export                      # Export every file in the input directory
  zreport export report.json          # Export one file
  zreport export --dry-run report.xlsx
  zreport validate report.json        # Check a report without writing anything
  zreport list                        # Show the JSON log`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
// An interrupt cancels the running export, including a running engine.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the configuration file; a missing file means defaults",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig loads the configuration named by --config.
func loadConfig() (*config.MainConfig, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger creates the logger for the configured level and --verbose.
func newLogger(cfg *config.MainConfig) *log.Logger {
	return converter.NewLogger(cfg.LogLevel, verbose)
}
