// =============================================================================
// Z Report Exporter - Export Pipeline
// =============================================================================
//
// This module orchestrates the export of a single Z report record, from the
// record to the JSON log entry and the rendered document.
//
// EXPORT PIPELINE:
//   1. Validate the record (optional, on by default)
//   2. Derive the document filename and apply the collision policy
//   3. Append the record to the JSON log
//   4. Fill the LaTeX template
//   5. Write the .tex file and run the rendering engine
//
// With export_order "render_first", steps 4-5 run before step 3.
//
// FAILURES:
//   Nothing is retried or rolled back. A failure after the log append leaves
//   the log entry in place; a failing engine leaves the .tex file in place.
//   Result records which steps completed.
//
// CONCURRENCY:
//   An Exporter is used from one goroutine. Concurrent processes are
//   serialized on the JSON log by the store's lock file.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/config"
	"github.com/ginjaninja78/zreport/internal/naming"
	"github.com/ginjaninja78/zreport/internal/producer"
	"github.com/ginjaninja78/zreport/internal/store"
	"github.com/ginjaninja78/zreport/internal/texwriter"
	"github.com/ginjaninja78/zreport/internal/types"
	"github.com/ginjaninja78/zreport/internal/validation"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of exporting a single record.
type Result struct {
	// RunID identifies this export in the logs.
	RunID string

	// Filename is the document name without extension.
	Filename string

	// Source is the path of the written .tex file, empty if not written.
	Source string

	// PDF is the path of the rendered document, empty if not rendered.
	PDF string

	// Document is the generated document text.
	Document string

	// Logged is true once the record was appended to the JSON log.
	Logged bool

	// LogCount is the number of records in the log after the append.
	LogCount int

	// Rendered is true once the engine finished successfully.
	Rendered bool

	// Success indicates whether every requested step completed.
	Success bool

	// Error contains the error if the export failed.
	Error error

	// Warnings holds the non-fatal validation findings.
	Warnings []*validation.ValidationError

	// Stats contains export statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about one export.
type ProcessingStats struct {
	// SalesRows and DebetRows are the number of transaction rows.
	SalesRows int
	DebetRows int

	// SalesSum is the sum of the sales amounts.
	SalesSum int

	// CashDifference is the counted cash difference between end and start.
	CashDifference int

	// EngineTime is the time spent in the rendering engine.
	EngineTime time.Duration

	// ProcessingTime is the time taken by the whole export.
	ProcessingTime time.Duration
}

// RunOptions selects the steps of an export.
type RunOptions struct {
	// DryRun derives the filename and the document without writing anything.
	DryRun bool

	// SkipLog leaves the JSON log untouched.
	SkipLog bool

	// SkipRender skips the document and the engine.
	SkipRender bool
}

// =============================================================================
// EXPORTER STRUCTURE
// =============================================================================

// Exporter exports Z report records.
type Exporter struct {
	config    *config.MainConfig
	template  string
	store     *store.Store
	producer  *producer.Producer
	validator *validation.Validator
	logger    Logger
}

// New creates an Exporter from the configuration.
//
// PARAMETERS:
//   - cfg: The application configuration.
//   - logger: The logger; nil uses NewLogger with the configured level.
//
// RETURNS:
//   - A new Exporter.
//   - An error if the template cannot be read.
func New(cfg *config.MainConfig, logger Logger) (*Exporter, error) {
	if logger == nil {
		logger = NewLogger(cfg.LogLevel, false)
	}

	template, err := texwriter.LoadTemplate(cfg.TemplateFile)
	if err != nil {
		return nil, err
	}

	p := producer.New(cfg.ArchiveDir)
	p.Command = cfg.Render.Command
	p.Args = cfg.Render.Args
	p.Timeout = cfg.Render.Timeout
	p.Collision = cfg.Render.Collision

	return &Exporter{
		config:    cfg,
		template:  template,
		store:     store.New(cfg.LogFile, store.WithCreate(cfg.CreateLogIfMissing), store.WithLockTimeout(cfg.LockTimeout)),
		producer:  p,
		validator: validation.NewValidator(),
		logger:    logger,
	}, nil
}

// Store returns the JSON log used by the exporter.
func (e *Exporter) Store() *store.Store {
	return e.store
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run exports a record with every step enabled.
func (e *Exporter) Run(ctx context.Context, record types.ReportRecord) Result {
	return e.RunWithOptions(ctx, record, RunOptions{})
}

// RunWithOptions exports a record.
//
// RETURNS:
//   - A Result describing which steps completed. Result.Error is set on
//     failure; steps that already ran are not undone.
func (e *Exporter) RunWithOptions(ctx context.Context, record types.ReportRecord, opts RunOptions) (result Result) {
	startTime := time.Now()
	result.RunID = uuid.NewString()
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	// =========================================================================
	// STEP 1: VALIDATE
	// =========================================================================

	if e.config.ShouldValidate() {
		check := e.validator.Validate(record)
		for _, ve := range check.Errors {
			if ve.Severity == validation.SeverityWarning {
				result.Warnings = append(result.Warnings, ve)
				e.logger.Warn("validation warning", "run", result.RunID, "field", ve.Field, "problem", ve.Message)
			}
		}
		if !check.IsValid {
			result.Error = fmt.Errorf("validation failed: %w", check.Err())
			e.logger.Error("record rejected", "run", result.RunID, "errors", check.ErrorCount)
			return result
		}
	}

	// =========================================================================
	// STEP 2: FILENAME
	// =========================================================================

	filename := naming.Filename(record)
	if !opts.DryRun && !opts.SkipRender {
		resolved, err := e.producer.Resolve(filename)
		if err != nil {
			result.Error = err
			e.logger.Error("filename rejected", "run", result.RunID, "file", filename, "err", err)
			return result
		}
		filename = resolved
	}
	result.Filename = filename
	e.logger.Debug("exporting record", "run", result.RunID, "file", filename, "z", record.Z.String())

	if opts.DryRun {
		text, err := e.RenderDocument(record)
		if err != nil {
			result.Error = err
			return result
		}
		result.Document = text
		e.fillStats(record, &result.Stats)
		result.Success = true
		return result
	}

	// =========================================================================
	// STEPS 3-5: LOG AND RENDER
	// =========================================================================

	steps := []func() error{
		func() error { return e.logStep(ctx, record, opts, &result) },
		func() error { return e.renderStep(ctx, record, opts, &result) },
	}
	if e.config.ExportOrder == config.OrderRenderFirst {
		steps[0], steps[1] = steps[1], steps[0]
	}

	for _, step := range steps {
		if err := step(); err != nil {
			result.Error = err
			return result
		}
	}

	e.fillStats(record, &result.Stats)
	result.Success = true
	e.logger.Info("exported", "run", result.RunID, "file", filename, "logged", result.Logged, "rendered", result.Rendered)

	return result
}

func (e *Exporter) logStep(ctx context.Context, record types.ReportRecord, opts RunOptions, result *Result) error {
	if opts.SkipLog {
		return nil
	}

	count, err := e.AppendLog(ctx, record)
	if err != nil {
		e.logger.Error("log append failed", "run", result.RunID, "log", e.store.Path(), "err", err)
		return err
	}
	result.Logged = true
	result.LogCount = count
	e.logger.Debug("appended to log", "run", result.RunID, "log", e.store.Path(), "records", count)
	return nil
}

func (e *Exporter) renderStep(ctx context.Context, record types.ReportRecord, opts RunOptions, result *Result) error {
	if opts.SkipRender {
		return nil
	}

	text, err := e.RenderDocument(record)
	if err != nil {
		e.logger.Error("template failed", "run", result.RunID, "err", err)
		return err
	}
	result.Document = text

	out, err := e.producer.Produce(ctx, result.Filename, text)
	if err != nil {
		var engineErr *producer.RenderEngineError
		var timeoutErr *producer.TimeoutError
		switch {
		case errors.As(err, &engineErr):
			result.Source = engineErr.Source
			e.logger.Error("render engine failed", "run", result.RunID, "exit", engineErr.ExitCode, "stderr", engineErr.Stderr)
		case errors.As(err, &timeoutErr):
			result.Source = timeoutErr.Source
			e.logger.Error("render engine timed out", "run", result.RunID, "timeout", timeoutErr.Timeout)
		default:
			e.logger.Error("document write failed", "run", result.RunID, "err", err)
		}
		return err
	}

	result.Source = out.Source
	result.PDF = out.PDF
	result.Rendered = true
	result.Stats.EngineTime = out.Duration
	e.logger.Debug("rendered document", "run", result.RunID, "pdf", out.PDF, "took", out.Duration)
	return nil
}

// =============================================================================
// SEPARABLE STEPS
// =============================================================================

// AppendLog appends the record to the JSON log and returns the new count.
func (e *Exporter) AppendLog(ctx context.Context, record types.ReportRecord) (int, error) {
	return e.store.Append(ctx, record)
}

// RenderDocument fills the template with the record.
func (e *Exporter) RenderDocument(record types.ReportRecord) (string, error) {
	return texwriter.GenerateWithOptions(record, e.template, texwriter.GenerateOptions{VATCodes: e.config.VATCodes})
}

// Preview returns the filename and document the record would export to,
// without writing anything.
func (e *Exporter) Preview(record types.ReportRecord) (string, string, error) {
	text, err := e.RenderDocument(record)
	if err != nil {
		return "", "", err
	}
	return naming.Filename(record), text, nil
}

// fillStats fills the record statistics. The record has already rendered or
// validated, so aggregation errors are ignored.
func (e *Exporter) fillStats(record types.ReportRecord, stats *ProcessingStats) {
	stats.SalesRows = len(record.Sales)
	stats.DebetRows = len(record.Debet)
	if sales, err := aggregate.TransactionLines(record.Sales, e.config.VATCodes, true); err == nil {
		stats.SalesSum = sales.Sum
	}
	if record.Cash != nil {
		if cash, err := aggregate.Reconcile(*record.Cash); err == nil {
			stats.CashDifference = cash.SumAmount
		}
	}
}
