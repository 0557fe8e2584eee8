package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(dir, filepath.Join(dir, "archive"))

	touch(t, filepath.Join(dir, "b.json"), "{}")
	touch(t, filepath.Join(dir, "a.XLSX"), "")
	touch(t, filepath.Join(dir, "~$a.xlsx"), "")
	touch(t, filepath.Join(dir, "notes.txt"), "")
	touch(t, filepath.Join(dir, "sub", "c.json"), "{}")

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.XLSX"), filepath.Join(dir, "b.json")}, files)

	jsonOnly, err := fm.DiscoverInputFiles(".json")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.json")}, jsonOnly)

	missing := NewFileManager(filepath.Join(dir, "nope"), "")
	files, err = missing.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestArchiveInputFile(t *testing.T) {
	dir := t.TempDir()
	fm := NewFileManager(filepath.Join(dir, "input"), filepath.Join(dir, "archive"))
	require.NoError(t, fm.EnsureDirectories())

	src := filepath.Join(fm.InputDir, "report.json")
	touch(t, src, "first")

	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "report.json"), archived)
	assert.NoFileExists(t, src)

	touch(t, src, "second")
	again, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.NotEqual(t, archived, again, "an archived input is never overwritten")
	assert.True(t, strings.HasSuffix(again, ".json"))

	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	fm.ArchiveOnSuccess = false
	touch(t, src, "third")
	kept, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, src, kept)
	assert.FileExists(t, src)
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Date(2024, 5, 18, 9, 15, 0, 0, time.UTC),
		FileName:     "input/report.json",
		Record:       2,
		RunID:        "run-1",
		ErrorType:    "parse",
		ErrorMessage: errors.New(`invalid transaction code "X-1"`).Error(),
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Errors: 1")
	assert.Contains(t, string(data), "  File:           input/report.json")
	assert.Contains(t, string(data), "  Record:         2")
	assert.Contains(t, string(data), `invalid transaction code "X-1"`)
}

func TestProcessingSummary_String(t *testing.T) {
	start := time.Now()
	s := ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(1500 * time.Millisecond),
		TotalFiles:      2,
		TotalRecords:    3,
		ExportedRecords: 2,
		FailedRecords:   1,
		Documents:       []string{"archive/a.pdf"},
	}

	out := s.String()
	assert.Contains(t, out, "Records:  3 (2 exported, 1 failed)")
	assert.Contains(t, out, "Duration: 1.5s")
	assert.Contains(t, out, "  archive/a.pdf")
}
