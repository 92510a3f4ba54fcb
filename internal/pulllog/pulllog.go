// Package pulllog records one line per source pull in an append-only JSON Lines file.
package pulllog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chaintracker/chain-tracker/internal/constants"
	"github.com/chaintracker/chain-tracker/internal/puller"
	"github.com/ubuntu/decorate"
)

// maxLineSize bounds the size of a single log line.
const maxLineSize = 1 << 20

// Entry is a compact record of a pull.
type Entry struct {
	// RunID groups the entries written by one run.
	RunID      string        `json:"run_id,omitempty"`
	SourceID   string        `json:"source_id"`
	PulledAt   string        `json:"pulled_at_utc"`
	Status     puller.Status `json:"status"`
	ErrorCount int           `json:"error_count"`
	Errors     []string      `json:"errors"`
}

// NewEntry summarizes a pull result.
func NewEntry(runID string, r puller.Result) Entry {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	status := r.Status
	if status == "" {
		status = puller.StatusError
	}
	return Entry{
		RunID:      runID,
		SourceID:   r.SourceID,
		PulledAt:   r.PulledAt,
		Status:     status,
		ErrorCount: len(errs),
		Errors:     errs,
	}
}

// Log is the pull log file.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns the pull log stored in dir.
func New(dir string) *Log {
	return &Log{path: filepath.Join(dir, constants.PullLogFileName)}
}

// Path returns the path of the log file.
func (l *Log) Path() string {
	return l.path
}

// Exists reports whether the log file has been created.
func (l *Log) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Append adds an entry at the end of the log, creating the file and its directory if needed.
func (l *Log) Append(e Entry) (err error) {
	defer decorate.OnError(&err, "could not append to pull log")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("could not encode entry: %v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0750); err != nil {
		return fmt.Errorf("could not create log directory: %v", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadAll returns the entries of the log, oldest first. A missing log has no entries.
// Blank lines are skipped and reading stops at the first corrupt line.
func (l *Log) ReadAll() (entries []Entry, err error) {
	defer decorate.OnError(&err, "could not read pull log")

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			break
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return entries, err
	}
	return entries, nil
}

// Last returns the newest entry of the log. ok is false when the log is empty.
func (l *Log) Last() (e Entry, ok bool, err error) {
	entries, err := l.ReadAll()
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[len(entries)-1], true, nil
}
