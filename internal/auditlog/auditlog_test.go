package auditlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAppendWritesOneLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "install.log")
	logger := New(path, nil)

	if err := logger.Info("install", "started", map[string]any{"variant": "modern-async"}); err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if err := logger.Error("install", "failed", nil); err != nil {
		t.Fatalf("Error error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), string(data))
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if entries[0].Level != LevelInfo || entries[0].Operation != "install" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Details["variant"] != "modern-async" {
		t.Fatalf("expected details to round-trip, got %+v", entries[0].Details)
	}
	if entries[1].Level != LevelError {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
	if entries[0].Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestAppendsPreserveExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "install.log")
	logger := New(path, nil)

	for i := 0; i < 5; i++ {
		if err := logger.Info("upgrade", "step", nil); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Fatalf("entries out of order at %d", i)
		}
	}
}

func TestRotationRenamesOversizedLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "install.log")
	logger := New(path, nil)
	logger.now = func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) }

	// Seed an oversized log directly instead of appending 10MB of JSON.
	big := bytes.Repeat([]byte("y"), int(RotateAfterBytes)+1)
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("seed oversized log: %v", err)
	}

	if err := logger.Info("install", "after rotation", nil); err != nil {
		t.Fatalf("Info error: %v", err)
	}

	rotated := path + ".1"
	info, err := os.Stat(rotated)
	if err != nil {
		t.Fatalf("expected rotated file %s: %v", rotated, err)
	}
	if info.Size() <= RotateAfterBytes {
		t.Fatalf("rotated file should hold the oversized content")
	}
	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "after rotation" {
		t.Fatalf("expected fresh log with one entry, got %+v", entries)
	}
}

func TestRotationFailureIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "install.log")
	var fallback bytes.Buffer
	logger := New(path, &fallback)

	if err := os.WriteFile(path, bytes.Repeat([]byte("z"), int(RotateAfterBytes)+1), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	// Occupy the rotation target with a non-empty directory so the rename fails.
	if err := os.MkdirAll(filepath.Join(path+".1", "blocker"), 0o755); err != nil {
		t.Fatalf("seed rotation target: %v", err)
	}

	if err := logger.Info("install", "entry", nil); err != nil {
		t.Fatalf("append must survive a failed rotation: %v", err)
	}
	if !strings.Contains(fallback.String(), "rotate log") {
		t.Fatalf("expected rotation failure notice on fallback writer, got %q", fallback.String())
	}
	// The entry still lands in the unrotated log.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"message":"entry"`) {
		t.Fatalf("expected appended entry despite failed rotation")
	}
}
