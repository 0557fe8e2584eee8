// =============================================================================
// Z Report Exporter - Document Producer
// =============================================================================
//
// This module writes a rendered report to the archive and runs the external
// rendering engine on it.
//
// PRODUCTION STEPS:
//   1. Write <archive>/<filename>.tex
//   2. Run "<command> <args...> <filename>.tex" with the archive as working
//      directory; the engine leaves <filename>.pdf next to the source
//   3. Report a non-zero exit as RenderEngineError and an overrun of the
//      configured timeout as TimeoutError
//
// The .tex file stays on disk whatever the engine does, so a failed render
// can be inspected and rerun by hand.
//
// =============================================================================

package producer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// SourceExt and PDFExt are the extensions of the produced artifacts.
const (
	SourceExt = ".tex"
	PDFExt    = ".pdf"
)

// Collision policies for a filename that already exists in the archive.
const (
	// CollisionOverwrite replaces the previous document (last writer wins).
	CollisionOverwrite = "overwrite"

	// CollisionError refuses to produce the document.
	CollisionError = "error"

	// CollisionVersion appends "-2", "-3", ... to the filename.
	CollisionVersion = "version"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrDocumentExists is returned by Resolve under the "error" collision policy.
var ErrDocumentExists = errors.New("document already exists")

// RenderEngineError reports an engine run that exited with a non-zero status.
type RenderEngineError struct {
	// Source is the path of the written document, still on disk.
	Source   string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *RenderEngineError) Error() string {
	return fmt.Sprintf("render engine failed on %s (exit status %d)", e.Source, e.ExitCode)
}

func (e *RenderEngineError) Unwrap() error { return e.Err }

// TimeoutError reports an engine run that did not finish in time.
type TimeoutError struct {
	Source  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("render engine did not finish %s within %s", e.Source, e.Timeout)
}

// =============================================================================
// PRODUCER
// =============================================================================

// Producer writes documents to an archive directory and renders them.
type Producer struct {
	// ArchiveDir receives the .tex and .pdf files.
	ArchiveDir string

	// Command is the rendering engine executable.
	// Default: "pdflatex"
	Command string

	// Args are passed before the document filename.
	Args []string

	// Timeout bounds the engine run. Zero means no bound.
	Timeout time.Duration

	// Collision is the policy used by Resolve.
	// Default: CollisionOverwrite
	Collision string
}

// Output is the outcome of a successful production.
type Output struct {
	Filename string
	Source   string
	PDF      string
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// New creates a producer with the default engine settings.
func New(archiveDir string) *Producer {
	return &Producer{
		ArchiveDir: archiveDir,
		Command:    "pdflatex",
		Args:       []string{"-interaction=nonstopmode"},
		Timeout:    2 * time.Minute,
		Collision:  CollisionOverwrite,
	}
}

// SourcePath returns the archive path of the document source for filename.
func (p *Producer) SourcePath(filename string) string {
	return filepath.Join(p.ArchiveDir, filename+SourceExt)
}

// Resolve applies the collision policy to a derived filename.
//
// RETURNS:
//   - The filename to use (unchanged unless the policy is "version").
//   - ErrDocumentExists (wrapped) under the "error" policy.
func (p *Producer) Resolve(filename string) (string, error) {
	switch p.Collision {
	case "", CollisionOverwrite:
		return filename, nil

	case CollisionError:
		exists, err := p.exists(filename)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("%w: %s", ErrDocumentExists, p.SourcePath(filename))
		}
		return filename, nil

	case CollisionVersion:
		candidate := filename
		for n := 2; ; n++ {
			exists, err := p.exists(candidate)
			if err != nil {
				return "", err
			}
			if !exists {
				return candidate, nil
			}
			candidate = filename + "-" + strconv.Itoa(n)
		}

	default:
		return "", fmt.Errorf("unknown collision policy %q", p.Collision)
	}
}

func (p *Producer) exists(filename string) (bool, error) {
	_, err := os.Stat(p.SourcePath(filename))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check archive: %w", err)
	}
}

// Write stores the document source in the archive.
func (p *Producer) Write(filename, text string) (string, error) {
	if err := os.MkdirAll(p.ArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := p.SourcePath(filename)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return path, nil
}

// Produce writes the document and runs the rendering engine on it.
//
// RETURNS:
//   - The produced artifacts.
//   - A *RenderEngineError or *TimeoutError when the engine fails; the
//     document source has been written in both cases.
func (p *Producer) Produce(ctx context.Context, filename, text string) (*Output, error) {
	source, err := p.Write(filename, text)
	if err != nil {
		return nil, err
	}

	archive, err := filepath.Abs(p.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive directory: %w", err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, p.Args...), filename+SourceExt)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	cmd.Dir = archive
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Source: source, Timeout: p.Timeout}
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &RenderEngineError{
			Source:   source,
			ExitCode: exitCode,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Err:      runErr,
		}
	}

	return &Output{
		Filename: filename,
		Source:   source,
		PDF:      filepath.Join(p.ArchiveDir, filename+PDFExt),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}
