package installer

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/conn-castle/variant-layer/internal/fault"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

// artifactManifestName is the manifest every distribution directory must carry.
const artifactManifestName = "package.json"

// EntryFileName returns the entry point a variant's distribution must provide.
func EntryFileName(def registry.Definition) string {
	if def.ModuleConvention == registry.Async {
		return "index.mjs"
	}
	return "index.js"
}

// artifactDir returns the distribution directory for def under artifactsRoot.
func artifactDir(artifactsRoot string, def registry.Definition) string {
	return filepath.Join(artifactsRoot, def.DistDirName)
}

// verifyArtifacts checks that def's distribution directory exists and carries
// at least the entry point and manifest. The installer only ever reads from
// this directory; producing it is the build pipeline's job, which the
// remediation message names.
func verifyArtifacts(artifactsRoot string, def registry.Definition) error {
	dir := artifactDir(artifactsRoot, def)
	missing := func() error {
		return fault.New(fault.MissingArtifacts, messages.InstallMissingArtifactsFmt,
			dir, def.ID, def.DistDirName)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return missing()
		}
		return fault.Wrap(fault.MissingArtifacts, err, messages.InstallMissingArtifactsFmt, dir, def.ID, def.DistDirName)
	}
	if !info.IsDir() {
		return missing()
	}
	for _, name := range []string{EntryFileName(def), artifactManifestName} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.Mode().IsRegular() {
			return missing()
		}
	}
	return nil
}
