package detect

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Runtime reports the host runtime's version identifier.
//
// Tests substitute a stub; production code uses NodeRuntime, which shells out
// to the node binary on PATH.
type Runtime interface {
	Version(ctx context.Context) (string, error)
}

// nodeVersionTimeout bounds the version probe so detection can never hang an
// invocation. `node --version` prints immediately; this is a safety net for
// broken shims.
const nodeVersionTimeout = 5 * time.Second

// NodeRuntime reads the version from the node executable on PATH.
type NodeRuntime struct {
	// Binary overrides the executable name. Empty means "node".
	Binary string
}

// Version runs `node --version` and returns the trimmed output (e.g. "v20.11.1").
func (r NodeRuntime) Version(ctx context.Context) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "node"
	}
	ctx, cancel := context.WithTimeout(ctx, nodeVersionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// StaticRuntime returns a fixed version string. It backs tests and the
// VL_RUNTIME_VERSION escape hatch for CI environments without node on PATH.
type StaticRuntime struct {
	Full string
}

// Version returns the configured version string.
func (r StaticRuntime) Version(context.Context) (string, error) {
	return r.Full, nil
}
