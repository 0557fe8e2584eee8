// =============================================================================
// Z Report Exporter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the CLI, including:
//   - Input discovery (*.json and *.xlsx in the input directory)
//   - Input archival (moving exported files away)
//   - Error and summary logs for a batch run
//
// ARCHIVAL STRATEGY:
//   - An input file is moved to input_archive once all of its records were
//     exported
//   - Failed inputs remain in their original location
//   - Error logs are written next to the document archive
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInputExtensions are the input formats the exporter understands.
var DefaultInputExtensions = []string{".json", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles the input files of a batch run.
type FileManager struct {
	// InputDir is the directory where input files are placed.
	InputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/05/17/report.json
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether exported inputs are moved.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		InputArchiveDir:  inputArchiveDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the input and archive directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.InputArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the files in the input directory whose extension
// is one of extensions (case-insensitive), sorted by name. With no extensions,
// DefaultInputExtensions is used. Lock files and office temp files ("~$...")
// are skipped.
//
// RETURNS:
//   - A slice of file paths; empty when the directory does not exist.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultInputExtensions
	}

	entries, err := os.ReadDir(fm.InputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				result = append(result, filepath.Join(fm.InputDir, name))
				break
			}
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
// An existing archive file of the same name is never overwritten; the new
// file gets a short unique suffix instead.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if FileExists(archivePath) {
		ext := filepath.Ext(archivePath)
		archivePath = strings.TrimSuffix(archivePath, ext) + "_" + uuid.NewString()[:8] + ext
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents one failed record of a batch run.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	Record       int
	RunID        string
	ErrorType    string
	ErrorMessage string
}

// WriteErrorLog writes error entries to a new log file in outputDir.
//
// RETURNS:
//   - The path to the error log file, empty when there is nothing to write.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logFileName := fmt.Sprintf("error_log_%s_%s.txt", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	logPath := filepath.Join(outputDir, logFileName)

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Z Report Exporter - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Record:         %d\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.Record)
		if entry.RunID != "" {
			fmt.Fprintf(writer, "  Run:            %s\n", entry.RunID)
		}
		if entry.ErrorType != "" {
			fmt.Fprintf(writer, "  Error Type:     %s\n", entry.ErrorType)
		}
		fmt.Fprintf(writer, "  Message:        %s\n\n", entry.ErrorMessage)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	TotalRecords    int
	ExportedRecords int
	FailedRecords   int
	Documents       []string
}

// String renders the summary for the terminal.
func (s ProcessingSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Files:    %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "Records:  %d (%d exported, %d failed)\n", s.TotalRecords, s.ExportedRecords, s.FailedRecords)
	fmt.Fprintf(&b, "Duration: %s\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
	for _, doc := range s.Documents {
		fmt.Fprintf(&b, "  %s\n", doc)
	}
	return b.String()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
