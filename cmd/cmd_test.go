package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/zreport/internal/aggregate"
	"github.com/ginjaninja78/zreport/internal/producer"
	"github.com/ginjaninja78/zreport/internal/store"
	"github.com/ginjaninja78/zreport/internal/texwriter"
	"github.com/ginjaninja78/zreport/internal/transaction"
)

const sampleReport = `{"z":"42","date":"2024.05.17","builddate":"2024.05.18 09:15","responsible":"Kari","type":"Kafé","comment":"","cash":{"start":[10,0,0,0,0,0,0,0,0],"end":[15,0,0,0,0,0,0,0,0]},"sales":[["K-3014-25","Salg",106]],"debet":[]}`

// workspace writes a config, a template, an empty log and one input file.
func workspace(t *testing.T) (configPath, inputPath, logPath string) {
	t.Helper()
	dir := t.TempDir()

	template := filepath.Join(dir, "zreport.tex")
	require.NoError(t, os.WriteFile(template, []byte("VAR-ZNR\nVAR-SALES-AND-DEBET\nVAR-CASH\n"), 0644))

	logPath = filepath.Join(dir, "reports.json")
	require.NoError(t, os.WriteFile(logPath, []byte(`{"list":[]}`), 0644))

	inputPath = filepath.Join(dir, "input", "report.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(inputPath), 0755))
	require.NoError(t, os.WriteFile(inputPath, []byte(sampleReport), 0644))

	configPath = filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`archive_dir: %s
template_file: %s
log_file: %s
input_dir: %s
log_level: error
render:
  command: sh
  args: ["-c", 'touch "${0%%.tex}.pdf"']
  timeout: 5s
`, filepath.Join(dir, "archive"), template, logPath, filepath.Dir(inputPath))
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0644))

	return configPath, inputPath, logPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = "config.yaml"
		verbose = false
		exportOpts.DryRun, exportOpts.SkipLog, exportOpts.SkipRender = false, false, false
		strictValidation = false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExportCommand(t *testing.T) {
	configPath, _, logPath := workspace(t)

	out, err := execute(t, "--config", configPath, "export")
	require.NoError(t, err)
	assert.Contains(t, out, "report.json #1 -> 17052024-Z_42-18052024_0915")
	assert.Contains(t, out, "(1 exported, 0 failed)")

	records, err := store.New(logPath).Load()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExportCommand_DryRun(t *testing.T) {
	configPath, inputPath, logPath := workspace(t)

	out, err := execute(t, "--config", configPath, "export", "--dry-run", inputPath)
	require.NoError(t, err)
	assert.Contains(t, out, "% 17052024-Z_42-18052024_0915 (Z 42)")
	assert.Contains(t, out, `\textbf{Sum salg}`)

	records, err := store.New(logPath).Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestValidateCommand(t *testing.T) {
	configPath, inputPath, _ := workspace(t)

	out, err := execute(t, "--config", configPath, "validate", inputPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[ok] Z 42 -> 17052024-Z_42-18052024_0915")

	bad := filepath.Join(filepath.Dir(inputPath), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"z":"1","sales":[["X-1","feil",1]]}`), 0644))

	out, err = execute(t, "--config", configPath, "validate", bad)
	assert.Error(t, err)
	assert.Contains(t, out, "[INVALID]")
	assert.Contains(t, out, "sales[0].code")
}

func TestListCommand(t *testing.T) {
	configPath, _, _ := workspace(t)

	_, err := execute(t, "--config", configPath, "export")
	require.NoError(t, err)

	out, err := execute(t, "--config", configPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Z 42")
	assert.Contains(t, out, "1 record(s) in")
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&transaction.ParseError{Code: "X"}, "transaction code"},
		{fmt.Errorf("sales: %w", &transaction.ParseError{Code: "X"}), "transaction code"},
		{&texwriter.MissingFieldError{Field: "z"}, "missing field"},
		{fmt.Errorf("cash: %w", aggregate.ErrCashLayout), "cash layout"},
		{store.ErrLogMissing, "record log"},
		{&store.CorruptLogError{Path: "x", Err: errors.New("bad")}, "record log"},
		{&producer.RenderEngineError{ExitCode: 1}, "render engine"},
		{producer.ErrDocumentExists, "document exists"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorType(tt.err), tt.err.Error())
	}
}
