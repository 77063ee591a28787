// Package detect inspects the target project and host runtime and selects a
// compatible distribution variant.
//
// Detection is synchronous, touches only the local filesystem and the node
// binary, and completes well under a second. Failures are reported through
// Result.OK rather than panics so the orchestrator can translate them.
package detect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/conn-castle/variant-layer/internal/fault"
	"github.com/conn-castle/variant-layer/internal/manifest"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

// Result is the outcome of one detection pass. It is ephemeral: the
// orchestrator consumes it immediately and persists only the install context
// derived from it.
type Result struct {
	RuntimeMajor int
	RuntimeFull  string
	Convention   registry.Convention
	Variant      registry.ID
	OK           bool
	Err          error
	// Warnings carries non-fatal detection notes (e.g. a sync override in an
	// async project).
	Warnings []string
}

func failed(err error) Result {
	return Result{OK: false, Err: err}
}

// ModuleConvention returns the target project's module convention. An explicit
// async declaration wins; everything else (explicit sync, no declaration,
// missing or malformed manifest) is the sync default.
func ModuleConvention(targetPath string, sys manifest.System) registry.Convention {
	if manifest.ReadDeclaration(targetPath, sys) == manifest.DeclaredAsync {
		return registry.Async
	}
	return registry.Sync
}

// Environment detects the runtime version and module convention for targetPath
// and recommends a variant. The minimum-version gate fails fast before any
// filesystem mutation.
func Environment(ctx context.Context, targetPath string, runtime Runtime, sys manifest.System) Result {
	full, major, err := runtimeVersion(ctx, runtime)
	if err != nil {
		return failed(err)
	}
	if major < registry.MinimumRuntimeMajor {
		return failed(fault.New(fault.UnsupportedRuntime, messages.RegistryUnsupportedRuntimeFmt,
			major, registry.MinimumRuntimeMajor, registry.MinimumRuntimeMajor))
	}
	convention := ModuleConvention(targetPath, sys)
	id, err := registry.Recommend(major, convention)
	if err != nil {
		return failed(err)
	}
	return Result{
		RuntimeMajor: major,
		RuntimeFull:  full,
		Convention:   convention,
		Variant:      id,
		OK:           true,
	}
}

// SelectVariant runs Environment and applies an optional explicit override.
// A valid override always wins over auto-detection; an override incompatible
// with the detected runtime fails naming the variant's supported versions.
func SelectVariant(ctx context.Context, targetPath string, overrideID registry.ID, runtime Runtime, sys manifest.System) Result {
	result := Environment(ctx, targetPath, runtime, sys)
	if !result.OK || overrideID == "" {
		return result
	}

	def, err := registry.Get(overrideID)
	if err != nil {
		return failed(err)
	}
	ok, err := registry.IsCompatible(overrideID, result.RuntimeMajor)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return failed(fault.New(fault.IncompatibleOverride, messages.RegistryIncompatibleOverrideFmt,
			overrideID, result.RuntimeMajor, registry.SupportedVersionsString(def)))
	}
	if result.Convention == registry.Async && def.ModuleConvention == registry.Sync {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf(messages.DetectAsyncOverrideSyncWarnFmt, overrideID))
	}
	result.Variant = overrideID
	return result
}

// runtimeVersion reads and parses the runtime's version identifier into its
// full string and major component.
func runtimeVersion(ctx context.Context, runtime Runtime) (string, int, error) {
	full, err := runtime.Version(ctx)
	if err != nil {
		return "", 0, fault.New(fault.UnsupportedRuntime, messages.DetectRuntimeVersionFailedFmt, err)
	}
	full = strings.TrimSpace(full)
	if full == "" {
		return "", 0, fault.New(fault.UnsupportedRuntime, messages.DetectRuntimeVersionEmptyFmt, full)
	}
	major, err := parseMajor(full)
	if err != nil {
		return "", 0, fault.New(fault.UnsupportedRuntime, messages.DetectRuntimeVersionParseFmt, full, err)
	}
	return full, major, nil
}

// parseMajor extracts the major version from identifiers like "v20.11.1".
func parseMajor(full string) (int, error) {
	trimmed := strings.TrimPrefix(full, "v")
	head, _, _ := strings.Cut(trimmed, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, err
	}
	if major <= 0 {
		return 0, fmt.Errorf("major version %d out of range", major)
	}
	return major, nil
}
