// =============================================================================
// Z Report Exporter - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a YAML file.
//
// LOAD ORDER:
//   1. Built-in defaults
//   2. The YAML file (config.yaml unless --config says otherwise)
//   3. ZREPORT_* variables from a .env file next to the configuration file
//   4. ZREPORT_* environment variables
//
// All settings are static for the lifetime of a run. The VAT table and the
// spreadsheet layout live here; the denomination table is fixed in the
// aggregate package.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Export orders.
const (
	// OrderLogFirst appends to the JSON log before rendering the document.
	OrderLogFirst = "log_first"

	// OrderRenderFirst renders the document and appends to the log afterwards.
	OrderRenderFirst = "render_first"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the application configuration.
type MainConfig struct {
	// =========================================================================
	// FILE LOCATIONS
	// =========================================================================

	// ArchiveDir receives the rendered .tex and .pdf documents.
	// Default: "./archive"
	ArchiveDir string `yaml:"archive_dir"`

	// TemplateFile is the LaTeX report template with VAR-* placeholders.
	// Default: "./templates/zreport.tex"
	TemplateFile string `yaml:"template_file"`

	// LogFile is the JSON log every exported record is appended to.
	// Default: "./reports.json"
	LogFile string `yaml:"log_file"`

	// CreateLogIfMissing lets the first export create the JSON log.
	// When false a missing log file is an error.
	// Default: false
	CreateLogIfMissing bool `yaml:"create_log_if_missing"`

	// LockTimeout bounds the wait for the JSON log lock.
	// Default: 10s
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// InputDir is scanned for *.json and *.xlsx inputs when the export
	// command is given no files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// InputArchiveDir receives inputs after a successful export when
	// ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveInputs moves each input file to InputArchiveDir once all of its
	// records were exported.
	// Default: false
	ArchiveInputs bool `yaml:"archive_inputs"`

	// =========================================================================
	// EXPORT SETTINGS
	// =========================================================================

	// VATCodes maps VAT codes to their percentage.
	// Default: {25: 25, 15: 15}
	VATCodes map[int]int `yaml:"vat_codes"`

	// ValidateBeforeExport checks the whole record before the log is touched,
	// so an invalid transaction code never leaves a log entry behind.
	// Default: true
	ValidateBeforeExport *bool `yaml:"validate_before_export"`

	// ExportOrder is "log_first" or "render_first".
	// Default: "log_first"
	ExportOrder string `yaml:"export_order"`

	// StopOnError stops a batch at the first failed record.
	// Default: false
	StopOnError bool `yaml:"stop_on_error"`

	// Render configures the document producer.
	Render RenderConfig `yaml:"render"`

	// XLSX describes where the importer finds each value in a workbook.
	XLSX XLSXSettings `yaml:"xlsx"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// RenderConfig configures the external rendering engine.
type RenderConfig struct {
	// Command is the engine executable.
	// Default: "pdflatex"
	Command string `yaml:"command"`

	// Args are passed before the document filename.
	// Default: ["-interaction=nonstopmode"]
	Args []string `yaml:"args"`

	// Timeout bounds one engine run.
	// Default: 2m
	Timeout time.Duration `yaml:"timeout"`

	// Collision is the policy for an existing document with the same name:
	// "overwrite", "error" or "version".
	// Default: "overwrite"
	Collision string `yaml:"collision"`
}

// XLSXSettings is the cell layout of a Z report workbook.
// Cells use A1 notation; columns are letters.
type XLSXSettings struct {
	// Sheet is the sheet holding the report. Empty means the first sheet.
	Sheet string `yaml:"sheet"`

	ZCell           string `yaml:"z_cell"`
	DateCell        string `yaml:"date_cell"`
	BuildDateCell   string `yaml:"builddate_cell"`
	ResponsibleCell string `yaml:"responsible_cell"`
	TypeCell        string `yaml:"type_cell"`
	CommentCell     string `yaml:"comment_cell"`

	// CashFirstRow is the row of denomination 1; the nine denominations
	// follow on consecutive rows.
	CashFirstRow    int    `yaml:"cash_first_row"`
	CashStartColumn string `yaml:"cash_start_column"`
	CashEndColumn   string `yaml:"cash_end_column"`

	// SalesFirstRow and DebetFirstRow are the first rows of the two tables.
	// A table ends at the first row with an empty code or after MaxRows rows.
	SalesFirstRow     int    `yaml:"sales_first_row"`
	DebetFirstRow     int    `yaml:"debet_first_row"`
	MaxRows           int    `yaml:"max_rows"`
	CodeColumn        string `yaml:"code_column"`
	DescriptionColumn string `yaml:"description_column"`
	AmountColumn      string `yaml:"amount_column"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// NewDefaultConfig returns a configuration with every default applied.
func NewDefaultConfig() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the configuration from a YAML file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return finish(&config, filepath.Dir(configPath))
}

// LoadOrDefault loads the configuration file if it exists and falls back to
// the defaults otherwise.
func LoadOrDefault(configPath string) (*MainConfig, error) {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return finish(&MainConfig{}, filepath.Dir(configPath))
	}
	return LoadMainConfig(configPath)
}

func finish(config *MainConfig, dir string) (*MainConfig, error) {
	env, err := readEnv(dir)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config, env)
	applyMainConfigDefaults(config)

	if err := validateMainConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// ShouldValidate reports whether records are validated before export.
func (c *MainConfig) ShouldValidate() bool {
	return c.ValidateBeforeExport == nil || *c.ValidateBeforeExport
}

// readEnv reads the optional .env file in dir and lays the process
// environment over it.
func readEnv(dir string) (map[string]string, error) {
	env := map[string]string{}

	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err == nil {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		env = values
	}

	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "ZREPORT_") {
			env[name] = value
		}
	}
	return env, nil
}

// applyEnvOverrides applies ZREPORT_* overrides.
func applyEnvOverrides(config *MainConfig, env map[string]string) {
	overrides := map[string]*string{
		"ZREPORT_ARCHIVE_DIR":    &config.ArchiveDir,
		"ZREPORT_TEMPLATE_FILE":  &config.TemplateFile,
		"ZREPORT_LOG_FILE":       &config.LogFile,
		"ZREPORT_INPUT_DIR":      &config.InputDir,
		"ZREPORT_LOG_LEVEL":      &config.LogLevel,
		"ZREPORT_RENDER_COMMAND": &config.Render.Command,
	}
	for name, target := range overrides {
		if value := env[name]; value != "" {
			*target = value
		}
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.ArchiveDir == "" {
		config.ArchiveDir = "./archive"
	}
	if config.TemplateFile == "" {
		config.TemplateFile = "./templates/zreport.tex"
	}
	if config.LogFile == "" {
		config.LogFile = "./reports.json"
	}
	if config.LockTimeout == 0 {
		config.LockTimeout = 10 * time.Second
	}
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.VATCodes == nil {
		config.VATCodes = map[int]int{25: 25, 15: 15}
	}
	if config.ExportOrder == "" {
		config.ExportOrder = OrderLogFirst
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	// Render defaults.
	if config.Render.Command == "" {
		config.Render.Command = "pdflatex"
	}
	if config.Render.Args == nil {
		config.Render.Args = []string{"-interaction=nonstopmode"}
	}
	if config.Render.Timeout == 0 {
		config.Render.Timeout = 2 * time.Minute
	}
	if config.Render.Collision == "" {
		config.Render.Collision = "overwrite"
	}

	applyXLSXDefaults(&config.XLSX)
}

// applyXLSXDefaults sets the default workbook layout:
//
//	B1..B6   z, date, builddate, responsible, type, comment
//	rows 9-17  cash counts, start in B, end in C
//	rows 21+   sales table, rows 41+ debet table (code A, text B, amount C)
func applyXLSXDefaults(x *XLSXSettings) {
	defaults := []struct {
		target *string
		value  string
	}{
		{&x.ZCell, "B1"},
		{&x.DateCell, "B2"},
		{&x.BuildDateCell, "B3"},
		{&x.ResponsibleCell, "B4"},
		{&x.TypeCell, "B5"},
		{&x.CommentCell, "B6"},
		{&x.CashStartColumn, "B"},
		{&x.CashEndColumn, "C"},
		{&x.CodeColumn, "A"},
		{&x.DescriptionColumn, "B"},
		{&x.AmountColumn, "C"},
	}
	for _, d := range defaults {
		if *d.target == "" {
			*d.target = d.value
		}
	}

	if x.CashFirstRow == 0 {
		x.CashFirstRow = 9
	}
	if x.SalesFirstRow == 0 {
		x.SalesFirstRow = 21
	}
	if x.DebetFirstRow == 0 {
		x.DebetFirstRow = 41
	}
	if x.MaxRows == 0 {
		x.MaxRows = 18
	}
}

// validateMainConfig validates the configuration and creates the archive
// directories.
func validateMainConfig(config *MainConfig) error {
	switch config.ExportOrder {
	case OrderLogFirst, OrderRenderFirst:
	default:
		return fmt.Errorf("export_order must be %q or %q, got %q", OrderLogFirst, OrderRenderFirst, config.ExportOrder)
	}

	switch config.Render.Collision {
	case "overwrite", "error", "version":
	default:
		return fmt.Errorf("render.collision must be overwrite, error or version, got %q", config.Render.Collision)
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", config.LogLevel)
	}

	if config.Render.Timeout < 0 {
		return fmt.Errorf("render.timeout must not be negative")
	}

	for code, pct := range config.VATCodes {
		if code <= 0 || pct < 0 {
			return fmt.Errorf("vat_codes entry %d: %d is out of range", code, pct)
		}
	}

	dirs := []string{config.ArchiveDir}
	if config.ArchiveInputs {
		dirs = append(dirs, config.InputArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
