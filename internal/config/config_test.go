package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "./archive", cfg.ArchiveDir)
	assert.Equal(t, "./reports.json", cfg.LogFile)
	assert.False(t, cfg.CreateLogIfMissing)
	assert.Equal(t, map[int]int{25: 25, 15: 15}, cfg.VATCodes)
	assert.True(t, cfg.ShouldValidate())
	assert.Equal(t, OrderLogFirst, cfg.ExportOrder)
	assert.Equal(t, "pdflatex", cfg.Render.Command)
	assert.Equal(t, []string{"-interaction=nonstopmode"}, cfg.Render.Args)
	assert.Equal(t, 2*time.Minute, cfg.Render.Timeout)
	assert.Equal(t, "overwrite", cfg.Render.Collision)
	assert.Equal(t, "B1", cfg.XLSX.ZCell)
	assert.Equal(t, 9, cfg.XLSX.CashFirstRow)
	assert.Equal(t, 18, cfg.XLSX.MaxRows)
}

func TestLoadMainConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
archive_dir: `+filepath.Join(dir, "arkiv")+`
log_file: `+filepath.Join(dir, "z.json")+`
create_log_if_missing: true
validate_before_export: false
export_order: render_first
vat_codes:
  25: 25
  15: 15
  12: 12
render:
  command: lualatex
  args: []
  timeout: 45s
  collision: version
xlsx:
  sheet: Z-rapport
  sales_first_row: 30
log_level: debug
`)

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "arkiv"), cfg.ArchiveDir)
	assert.DirExists(t, cfg.ArchiveDir, "archive directory is created on load")
	assert.True(t, cfg.CreateLogIfMissing)
	assert.False(t, cfg.ShouldValidate())
	assert.Equal(t, OrderRenderFirst, cfg.ExportOrder)
	assert.Equal(t, 12, cfg.VATCodes[12])
	assert.Equal(t, "lualatex", cfg.Render.Command)
	assert.Empty(t, cfg.Render.Args, "explicit empty args are kept")
	assert.Equal(t, 45*time.Second, cfg.Render.Timeout)
	assert.Equal(t, "version", cfg.Render.Collision)
	assert.Equal(t, "Z-rapport", cfg.XLSX.Sheet)
	assert.Equal(t, 30, cfg.XLSX.SalesFirstRow)
	assert.Equal(t, 41, cfg.XLSX.DebetFirstRow)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMainConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	archive := "archive_dir: " + filepath.Join(dir, "archive") + "\n"

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "archive_dir: [unclosed"},
		{"bad order", archive + "export_order: sideways"},
		{"bad collision", archive + "render:\n  collision: rename"},
		{"bad level", archive + "log_level: loud"},
		{"bad vat", archive + "vat_codes:\n  0: 25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMainConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZREPORT_ARCHIVE_DIR", filepath.Join(dir, "env-archive"))
	t.Setenv("ZREPORT_RENDER_COMMAND", "xelatex")

	cfg, err := LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "env-archive"), cfg.ArchiveDir)
	assert.Equal(t, "xelatex", cfg.Render.Command)
	assert.Equal(t, "./reports.json", cfg.LogFile)
}

func TestLoadOrDefault_DotEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := "ZREPORT_LOG_FILE=" + filepath.Join(dir, "from-dotenv.json") + "\n" +
		"ZREPORT_ARCHIVE_DIR=" + filepath.Join(dir, "dotenv-archive") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0644))
	t.Setenv("ZREPORT_ARCHIVE_DIR", filepath.Join(dir, "env-archive"))

	cfg, err := LoadOrDefault(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from-dotenv.json"), cfg.LogFile)
	assert.Equal(t, filepath.Join(dir, "env-archive"), cfg.ArchiveDir, "the process environment wins")
}
