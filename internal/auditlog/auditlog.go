// Package auditlog appends structured events to the per-project install log.
//
// Each append is a single O_APPEND write of one newline-delimited JSON record,
// so sequential invocations interleave cleanly and never read-modify-write the
// file. Entries are never mutated; the only destructive operation is size-based
// rotation, which renames the whole file.
package auditlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Level classifies a log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// RotateAfterBytes is the size threshold past which the log is rotated.
const RotateAfterBytes int64 = 10 * 1024 * 1024

// rotatedSuffix names the single retained rotation target.
const rotatedSuffix = ".1"

// Entry is one persisted log record.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Level     Level          `json:"level"`
	Operation string         `json:"operation"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger appends entries to a single log file.
type Logger struct {
	path string

	// fallback receives rotation-failure notices; rotation problems are never
	// fatal to the operation being logged.
	fallback io.Writer
	now      func() time.Time
}

// New returns a Logger writing to path. Rotation failures are reported to
// fallback (os.Stderr when nil).
func New(path string, fallback io.Writer) *Logger {
	if fallback == nil {
		fallback = os.Stderr
	}
	return &Logger{path: path, fallback: fallback, now: time.Now}
}

// Info appends an info-level entry.
func (l *Logger) Info(operation string, message string, details map[string]any) error {
	return l.append(LevelInfo, operation, message, details)
}

// Warn appends a warn-level entry.
func (l *Logger) Warn(operation string, message string, details map[string]any) error {
	return l.append(LevelWarn, operation, message, details)
}

// Error appends an error-level entry.
func (l *Logger) Error(operation string, message string, details map[string]any) error {
	return l.append(LevelError, operation, message, details)
}

func (l *Logger) append(level Level, operation string, message string, details map[string]any) error {
	l.rotateIfNeeded()

	entry := Entry{
		Timestamp: l.now().UTC(),
		Level:     level,
		Operation: operation,
		Message:   message,
		Details:   details,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	line = append(line, '\n')

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", l.path, err)
	}
	if _, err := file.Write(line); err != nil {
		_ = file.Close()
		return fmt.Errorf("append log entry to %s: %w", l.path, err)
	}
	return file.Close()
}

// rotateIfNeeded renames the log once it passes the size threshold. Failures
// are reported to the fallback writer and otherwise swallowed: losing a
// rotation must never fail the install it belongs to.
func (l *Logger) rotateIfNeeded() {
	info, err := os.Stat(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(l.fallback, "variant-layer: stat log %s for rotation: %v\n", l.path, err)
		}
		return
	}
	if info.Size() < RotateAfterBytes {
		return
	}
	if err := os.Rename(l.path, l.path+rotatedSuffix); err != nil {
		_, _ = fmt.Fprintf(l.fallback, "variant-layer: rotate log %s: %v\n", l.path, err)
	}
}

// Read returns every entry currently in the log, oldest first. It exists for
// diagnostics and tests; the installer itself only appends.
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	decoder := json.NewDecoder(bytes.NewReader(data))
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode log entry in %s: %w", path, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
