// Package manifest reads the target project's package manifest to extract its
// module-convention declaration.
//
// The manifest is the only dynamically shaped input the installer consumes, so
// parsing collapses immediately into a three-valued Declaration rather than
// leaking raw JSON maps into callers.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FileName is the manifest file read from the target project.
const FileName = "package.json"

// Declaration is the module-convention signal extracted from a manifest.
type Declaration int

const (
	// AbsentOrUnparseable covers a missing manifest, malformed JSON, and a
	// manifest with no usable "type" field. All three resolve to the sync default.
	AbsentOrUnparseable Declaration = iota
	// DeclaredSync means the manifest explicitly declares "type": "commonjs".
	DeclaredSync
	// DeclaredAsync means the manifest explicitly declares "type": "module".
	DeclaredAsync
)

// System abstracts the filesystem operations the manifest reader needs.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

type manifestType struct {
	Type string `json:"type"`
}

// ReadDeclaration finds the nearest manifest at or above dir and returns its
// module-convention declaration. Nested and workspace layouts are supported by
// walking parent directories until a manifest or the filesystem root is
// reached. It never returns an error: malformed content and missing files are
// both AbsentOrUnparseable.
func ReadDeclaration(dir string, sys System) Declaration {
	current := filepath.Clean(dir)
	for {
		path := filepath.Join(current, FileName)
		if info, err := sys.Stat(path); err == nil && info.Mode().IsRegular() {
			return parseDeclaration(path, sys)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return AbsentOrUnparseable
		}
		current = parent
	}
}

func parseDeclaration(path string, sys System) Declaration {
	data, err := sys.ReadFile(path)
	if err != nil {
		return AbsentOrUnparseable
	}
	var m manifestType
	if err := json.Unmarshal(data, &m); err != nil {
		return AbsentOrUnparseable
	}
	switch m.Type {
	case "module":
		return DeclaredAsync
	case "commonjs":
		return DeclaredSync
	default:
		return AbsentOrUnparseable
	}
}
