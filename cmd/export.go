// =============================================================================
// Z Report Exporter - Export Command
// =============================================================================
//
// COMMAND USAGE:
//   zreport export [files...] [flags]
//
// FLAGS:
//   --dry-run     : Print the document name and text, write nothing
//   --skip-log    : Do not append to the JSON log
//   --skip-render : Do not write or render the document
//
// PROCESSING:
//   Inputs are processed one after the other, records in file order. A failed
//   record does not stop the batch unless stop_on_error is set. Failures are
//   written to an error log in the archive directory.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/converter"
	"github.com/ginjaninja78/zreport/internal/naming"
	"github.com/ginjaninja78/zreport/internal/producer"
	"github.com/ginjaninja78/zreport/internal/store"
	"github.com/ginjaninja78/zreport/internal/texwriter"
	"github.com/ginjaninja78/zreport/internal/transaction"
	"github.com/ginjaninja78/zreport/pkg/utils"
)

var exportOpts converter.RunOptions

var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Export Z reports to the JSON log and the PDF archive",
	Long: `The export command reads Z reports from JSON or XLSX files. Each record is
appended to the JSON log and rendered to <archive>/<name>.tex, which the
rendering engine compiles to PDF.

Without arguments every *.json and *.xlsx file in the input directory is
exported.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&exportOpts.DryRun, "dry-run", false, "Print the document name and text without writing anything")
	exportCmd.Flags().BoolVar(&exportOpts.SkipLog, "skip-log", false, "Do not append to the JSON log")
	exportCmd.Flags().BoolVar(&exportOpts.SkipRender, "skip-render", false, "Do not write or render the document")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	files, err := inputFiles(cfg, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No input files found.")
		return nil
	}

	exporter, err := converter.New(cfg, logger)
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.InputArchiveDir)
	summary := utils.ProcessingSummary{StartTime: time.Now(), TotalFiles: len(files)}
	var failures []utils.ErrorLogEntry

	fail := func(file string, record int, runID string, err error) {
		summary.FailedRecords++
		failures = append(failures, utils.ErrorLogEntry{
			Timestamp:    time.Now(),
			FileName:     file,
			Record:       record,
			RunID:        runID,
			ErrorType:    errorType(err),
			ErrorMessage: err.Error(),
		})
		fmt.Fprintf(cmd.ErrOrStderr(), "  ✗ %s #%d: %v\n", filepath.Base(file), record, err)
	}

batch:
	for _, file := range files {
		records, err := readRecords(cfg, file)
		if err != nil {
			fail(file, 0, "", err)
			if cfg.StopOnError {
				break
			}
			continue
		}

		fileOK := true
		for i, record := range records {
			summary.TotalRecords++

			result := exporter.RunWithOptions(cmd.Context(), record, exportOpts)
			if result.Error != nil {
				fileOK = false
				fail(file, i+1, result.RunID, result.Error)
				if cfg.StopOnError {
					break batch
				}
				continue
			}

			summary.ExportedRecords++
			if exportOpts.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%% %s (%s)\n%s\n", result.Filename, naming.Identity(record.Z.String()), result.Document)
				continue
			}
			if result.PDF != "" {
				summary.Documents = append(summary.Documents, result.PDF)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  ✓ %s #%d -> %s\n", filepath.Base(file), i+1, result.Filename)
		}

		if fileOK && cfg.ArchiveInputs && !exportOpts.DryRun {
			archived, err := fm.ArchiveInputFile(file)
			if err != nil {
				logger.Warn("failed to archive input", "file", file, "err", err)
			} else {
				logger.Debug("archived input", "file", file, "to", archived)
			}
		}
	}

	summary.EndTime = time.Now()
	if !exportOpts.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "\n=== Export Complete ===\n%s", summary)
	}

	if len(failures) == 0 {
		return nil
	}

	if !exportOpts.DryRun {
		if path, err := utils.WriteErrorLog(failures, cfg.ArchiveDir); err != nil {
			logger.Error("failed to write error log", "err", err)
		} else {
			logger.Info("errors logged", "file", path)
		}
	}
	return fmt.Errorf("%d record(s) failed", len(failures))
}

// errorType classifies an export error for the error log.
func errorType(err error) string {
	var engineErr *producer.RenderEngineError
	var timeoutErr *producer.TimeoutError
	var corrupt *store.CorruptLogError

	switch {
	case errors.Is(err, transaction.ErrParse):
		return "transaction code"
	case errors.Is(err, texwriter.ErrMissingField):
		return "missing field"
	case errors.Is(err, aggregate.ErrCashLayout):
		return "cash layout"
	case errors.As(err, &corrupt), errors.Is(err, store.ErrLogMissing), errors.Is(err, store.ErrLockTimeout):
		return "record log"
	case errors.As(err, &engineErr), errors.As(err, &timeoutErr):
		return "render engine"
	case errors.Is(err, producer.ErrDocumentExists):
		return "document exists"
	default:
		return "other"
	}
}
