// =============================================================================
// Z Report Exporter - Record Store
// =============================================================================
//
// This module keeps the JSON log of every exported Z report. The log is a
// single file holding one object:
//
//   {"list": [<record>, <record>, ...]}
//
// APPEND ALGORITHM (read-merge-write):
//   1. Take the advisory lock file "<log>.lock"
//   2. Open the log for read+write and read it completely
//   3. Empty file -> {"list": []}; invalid JSON -> CorruptLogError, file untouched
//   4. Append the record to "list"
//   5. Rewrite the file from offset 0 and truncate leftover bytes
//
// Entries already in the log are carried over byte for byte, as are any other
// top-level keys. The lock only guards against other processes using this
// store; writers that ignore the lock file can still lose updates.
//
// =============================================================================

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ginjaninja78/zreport/internal/types"
	"github.com/gofrs/flock"
)

// listKey is the top-level key holding the records.
const listKey = "list"

// lockRetryDelay is how often a busy lock is retried.
const lockRetryDelay = 50 * time.Millisecond

// =============================================================================
// ERRORS
// =============================================================================

// ErrLogMissing is returned when the log file does not exist and the store
// is not allowed to create it.
var ErrLogMissing = errors.New("record log does not exist")

// ErrCorruptLog is matched by every CorruptLogError.
var ErrCorruptLog = errors.New("record log is corrupt")

// ErrLockTimeout is returned when the log lock could not be taken in time.
var ErrLockTimeout = errors.New("timed out waiting for record log lock")

// CorruptLogError reports a log file that is not a valid {"list": [...]} document.
type CorruptLogError struct {
	Path string
	Err  error
}

func (e *CorruptLogError) Error() string {
	return fmt.Sprintf("record log %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptLogError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCorruptLog) work for CorruptLogError values.
func (e *CorruptLogError) Is(target error) bool {
	return target == ErrCorruptLog
}

// =============================================================================
// STORE
// =============================================================================

// Store appends records to a JSON log file.
type Store struct {
	path        string
	create      bool
	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithCreate allows Append to create a missing log file.
func WithCreate(create bool) Option {
	return func(s *Store) { s.create = create }
}

// WithLockTimeout bounds the wait for the advisory lock. Zero waits until the
// context is done.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// New creates a store for the log file at path.
// By default the log file must already exist.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		lockTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the log file path.
func (s *Store) Path() string {
	return s.path
}

// Append adds one record to the end of the log.
//
// RETURNS:
//   - The number of records in the log after the append.
//   - ErrLogMissing, a *CorruptLogError, ErrLockTimeout or an I/O error.
func (s *Store) Append(ctx context.Context, record types.ReportRecord) (count int, err error) {
	entry, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	if !s.create {
		if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrLogMissing, s.path)
		}
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	flags := os.O_RDWR
	if s.create {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(s.path, flags, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrLogMissing, s.path)
		}
		return 0, fmt.Errorf("failed to open record log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close record log: %w", cerr)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return 0, fmt.Errorf("failed to read record log: %w", err)
	}

	doc, list, err := s.decode(data)
	if err != nil {
		return 0, err
	}

	list = append(list, entry)
	encodedList, err := json.Marshal(list)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record list: %w", err)
	}
	doc[listKey] = encodedList

	out, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record log: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind record log: %w", err)
	}
	if _, err := f.Write(out); err != nil {
		return 0, fmt.Errorf("failed to write record log: %w", err)
	}
	if err := f.Truncate(int64(len(out))); err != nil {
		return 0, fmt.Errorf("failed to truncate record log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync record log: %w", err)
	}

	return len(list), nil
}

// Load returns every record in the log, oldest first.
// An empty log file yields no records.
func (s *Store) Load() ([]types.ReportRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLogMissing, s.path)
		}
		return nil, fmt.Errorf("failed to read record log: %w", err)
	}

	_, list, err := s.decode(data)
	if err != nil {
		return nil, err
	}

	records := make([]types.ReportRecord, 0, len(list))
	for i, entry := range list {
		var record types.ReportRecord
		if err := json.Unmarshal(entry, &record); err != nil {
			return nil, &CorruptLogError{Path: s.path, Err: fmt.Errorf("entry %d: %w", i+1, err)}
		}
		records = append(records, record)
	}

	return records, nil
}

// decode splits a log document into its top-level keys and its record list.
func (s *Store) decode(data []byte) (map[string]json.RawMessage, []json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, []json.RawMessage{}, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, &CorruptLogError{Path: s.path, Err: err}
	}

	raw, ok := doc[listKey]
	if !ok {
		return nil, nil, &CorruptLogError{Path: s.path, Err: fmt.Errorf("missing %q key", listKey)}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, nil, &CorruptLogError{Path: s.path, Err: fmt.Errorf("%q is not a list: %w", listKey, err)}
	}
	if list == nil {
		list = []json.RawMessage{}
	}

	return doc, list, nil
}

// lock takes the advisory lock next to the log file.
func (s *Store) lock(ctx context.Context) (func(), error) {
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	fileLock := flock.New(s.path + ".lock")
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, s.path)
		}
		return nil, fmt.Errorf("failed to lock record log: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, s.path)
	}

	return func() { _ = fileLock.Unlock() }, nil
}
