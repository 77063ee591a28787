package config

import "path/filepath"

// DirName is the hidden directory variant-layer owns inside a target project.
const DirName = ".variant-layer"

// Environment variables honored by the CLI.
const (
	// ArtifactsDirEnvVar overrides the distribution directory when the
	// --artifacts flag and artifacts.dir setting are absent.
	ArtifactsDirEnvVar = "VL_ARTIFACTS_DIR"
	// RuntimeVersionEnvVar bypasses the `node --version` probe. CI environments
	// without node on PATH set it to the version they build for.
	RuntimeVersionEnvVar = "VL_RUNTIME_VERSION"
)

// Paths collects every file location under a target project's hidden
// directory. All state is keyed by target root so multiple projects can be
// driven from one process (and one test binary).
type Paths struct {
	Root        string
	Dir         string
	ContextPath string
	LockPath    string
	LogPath     string
	ConfigPath  string
	RuntimeDir  string
	BackupDir   string
}

// DefaultPaths returns the standard layout for a target root.
func DefaultPaths(root string) Paths {
	dir := filepath.Join(root, DirName)
	return Paths{
		Root:        root,
		Dir:         dir,
		ContextPath: filepath.Join(dir, "context.json"),
		LockPath:    filepath.Join(dir, "install.lock"),
		LogPath:     filepath.Join(dir, "install.log"),
		ConfigPath:  filepath.Join(dir, "config.toml"),
		RuntimeDir:  filepath.Join(dir, "runtime"),
		BackupDir:   filepath.Join(dir, "tmp", "rollback"),
	}
}
