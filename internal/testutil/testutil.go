// Package testutil holds small fixture helpers shared across test packages.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteNodeStub writes an executable `node` stub that reports version when
// invoked with --version. t is the active test; dir is the output directory.
func WriteNodeStub(t *testing.T, dir string, version string) {
	t.Helper()
	path := filepath.Join(dir, "node")
	content := []byte(fmt.Sprintf("#!/bin/sh\necho %s\n", version))
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("write node stub: %v", err)
	}
}

// WriteManifest writes a package.json declaring the given module type into
// dir. An empty moduleType omits the "type" field.
func WriteManifest(t *testing.T, dir string, moduleType string) {
	t.Helper()
	content := `{"name": "fixture"}` + "\n"
	if moduleType != "" {
		content = fmt.Sprintf(`{"name": "fixture", "type": %q}`+"\n", moduleType)
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

// WriteDistribution lays out a minimal but valid distribution directory for
// one variant under artifactsRoot. entryName is index.mjs or index.js; extra
// maps additional relative paths to contents.
func WriteDistribution(t *testing.T, artifactsRoot string, distDirName string, entryName string, extra map[string]string) {
	t.Helper()
	dir := filepath.Join(artifactsRoot, distDirName)
	files := map[string]string{
		entryName:      "export default {};\n",
		"package.json": fmt.Sprintf(`{"name": %q, "version": "0.0.0-test"}`+"\n", distDirName),
	}
	for rel, content := range extra {
		files[rel] = content
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}
