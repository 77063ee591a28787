// Package rollback tracks the filesystem mutations of one install or upgrade
// so a mid-operation failure can be reversed.
//
// A transaction lives for exactly one orchestrator call. Backups are held as
// temporary copies on disk, deleted on Commit and consumed by Rollback.
// Rollback is best-effort throughout: it collects per-path failures instead of
// aborting on the first one, so the caller can report exactly what needs
// manual cleanup.
package rollback

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conn-castle/variant-layer/internal/fsutil"
)

type backupKind int

const (
	backupFile backupKind = iota
	backupTree
)

type backupEntry struct {
	original string
	backup   string
	kind     backupKind
}

// Tx records paths created and files overwritten during one operation.
type Tx struct {
	backupDir string
	created   []string
	backups   []backupEntry
	counter   int
}

// PathFailure names one path rollback could not handle and why.
type PathFailure struct {
	Path string
	Err  error
}

// Result enumerates what Rollback removed, restored, and failed to handle.
type Result struct {
	Removed  []string
	Restored []string
	Failed   []PathFailure
}

// Clean reports whether rollback completed without per-path failures.
func (r Result) Clean() bool {
	return len(r.Failed) == 0
}

// Summary renders the result for inclusion in user-facing error text.
func (r Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "removed %d path(s), restored %d path(s)", len(r.Removed), len(r.Restored))
	if len(r.Failed) > 0 {
		b.WriteString("; failed:")
		for _, failure := range r.Failed {
			fmt.Fprintf(&b, "\n  %s: %v", failure.Path, failure.Err)
		}
	}
	return b.String()
}

// Begin opens a transaction whose backups live under backupDir.
func Begin(backupDir string) (*Tx, error) {
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory %s: %w", backupDir, err)
	}
	return &Tx{backupDir: backupDir}, nil
}

// TrackWrite records that path is about to be written. If a regular file
// already exists there it is copied to a uniquely named backup first; the path
// is recorded in the created list either way so Rollback removes it.
func (tx *Tx) TrackWrite(path string) error {
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		backup := tx.nextBackupPath(path)
		if err := fsutil.CopyFile(path, backup); err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
		tx.backups = append(tx.backups, backupEntry{original: path, backup: backup, kind: backupFile})
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("inspect %s before write: %w", path, err)
	}
	tx.created = append(tx.created, filepath.Clean(path))
	return nil
}

// TrackRemoveTree records that the directory tree at path is about to be
// deleted and recreated. The existing tree, if any, is copied into the backup
// area so Rollback can restore it byte for byte.
func (tx *Tx) TrackRemoveTree(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			tx.created = append(tx.created, filepath.Clean(path))
			return nil
		}
		return fmt.Errorf("inspect %s before removal: %w", path, err)
	}
	if !info.IsDir() {
		return tx.TrackWrite(path)
	}
	backup := tx.nextBackupPath(path)
	if err := fsutil.CopyDir(path, backup); err != nil {
		return fmt.Errorf("back up tree %s: %w", path, err)
	}
	tx.backups = append(tx.backups, backupEntry{original: path, backup: backup, kind: backupTree})
	tx.created = append(tx.created, filepath.Clean(path))
	return nil
}

// Commit discards all backups; the operation succeeded and the originals are
// no longer needed.
func (tx *Tx) Commit() error {
	if err := os.RemoveAll(tx.backupDir); err != nil {
		return fmt.Errorf("discard backups under %s: %w", tx.backupDir, err)
	}
	return nil
}

// Rollback deletes every created path, then restores every backup. Both
// phases are best-effort; individual failures are collected in the Result.
// The backup area itself is removed only when everything restored cleanly.
func (tx *Tx) Rollback() Result {
	var result Result

	// Deepest paths first so nested files go before their directories.
	created := make([]string, len(tx.created))
	copy(created, tx.created)
	sort.Slice(created, func(i, j int) bool {
		di := strings.Count(created[i], string(os.PathSeparator))
		dj := strings.Count(created[j], string(os.PathSeparator))
		if di == dj {
			return created[i] > created[j]
		}
		return di > dj
	})
	for _, path := range created {
		if err := os.RemoveAll(path); err != nil {
			result.Failed = append(result.Failed, PathFailure{Path: path, Err: err})
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	for _, entry := range tx.backups {
		var err error
		switch entry.kind {
		case backupFile:
			err = fsutil.CopyFile(entry.backup, entry.original)
		case backupTree:
			err = fsutil.CopyDir(entry.backup, entry.original)
		}
		if err != nil {
			result.Failed = append(result.Failed, PathFailure{Path: entry.original, Err: err})
			continue
		}
		result.Restored = append(result.Restored, entry.original)
	}

	if result.Clean() {
		if err := os.RemoveAll(tx.backupDir); err != nil {
			result.Failed = append(result.Failed, PathFailure{Path: tx.backupDir, Err: err})
		}
	}
	return result
}

// nextBackupPath yields a unique name under the backup directory. The original
// base name is kept as a suffix to ease manual recovery if rollback itself
// fails.
func (tx *Tx) nextBackupPath(original string) string {
	tx.counter++
	return filepath.Join(tx.backupDir, fmt.Sprintf("%04d-%s", tx.counter, filepath.Base(original)))
}
