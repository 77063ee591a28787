// Package installer orchestrates the locked, transactional install and
// upgrade of a distribution variant into a target project.
//
// One invocation is single-threaded and synchronous; the only concurrency the
// orchestrator arbitrates is other OS processes targeting the same directory,
// which the lock manager excludes. While the lock is held every filesystem
// mutation happens in a fixed order, tracked by a rollback transaction that is
// committed on success and consumed on failure.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/conn-castle/variant-layer/internal/auditlog"
	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/detect"
	"github.com/conn-castle/variant-layer/internal/fault"
	"github.com/conn-castle/variant-layer/internal/fsutil"
	"github.com/conn-castle/variant-layer/internal/lockfile"
	"github.com/conn-castle/variant-layer/internal/manifest"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
	"github.com/conn-castle/variant-layer/internal/rollback"
	"github.com/conn-castle/variant-layer/internal/version"
)

// copyFileFunc is swappable so tests can inject a mid-copy failure.
var copyFileFunc = fsutil.CopyFile

// Options controls one install or upgrade invocation.
type Options struct {
	// Variant forces a specific variant instead of auto-detection.
	Variant registry.ID
	// Force bypasses the already-installed check (install) and the no-change
	// short-circuit (upgrade).
	Force bool
	// ArtifactsDir is the directory holding the pre-built variant
	// distributions. Required.
	ArtifactsDir string
	// InstallMethod is stamped into the context. When empty, a fresh install
	// records direct and an upgrade keeps the previous context's method.
	InstallMethod Method
	// PackageVersion is the installer's own version, stamped into the context.
	PackageVersion string
	// Runtime probes the host runtime version. Nil means the node binary on PATH.
	Runtime detect.Runtime
	// WarnWriter receives non-fatal notices. Nil means os.Stderr.
	WarnWriter io.Writer
	// Now is swappable for tests.
	Now func() time.Time
}

// Result is the structured outcome handed back to the invoking CLI.
type Result struct {
	Variant  registry.ID
	Previous registry.ID
	NoChange bool
	Warnings []string
}

// Install installs the selected variant into root. It fails if a variant is
// already installed and Force is not set.
func Install(ctx context.Context, root string, opts Options) (Result, error) {
	return run(ctx, root, opts, lockfile.OpInstall)
}

// Upgrade replaces an existing install with the variant matching the current
// environment. Upgrading to the variant already installed, without Force, is a
// no-op reported through Result.NoChange.
func Upgrade(ctx context.Context, root string, opts Options) (Result, error) {
	return run(ctx, root, opts, lockfile.OpUpgrade)
}

func run(ctx context.Context, root string, opts Options, op lockfile.Operation) (Result, error) {
	if root == "" {
		return Result{}, errors.New(messages.InstallRootRequired)
	}
	if opts.ArtifactsDir == "" {
		return Result{}, errors.New(messages.InstallArtifactsDirRequired)
	}
	if opts.Runtime == nil {
		opts.Runtime = detect.NodeRuntime{}
	}
	if opts.WarnWriter == nil {
		opts.WarnWriter = os.Stderr
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, fmt.Errorf(messages.TargetPathMissingFmt, root)
		}
		return Result{}, fmt.Errorf(messages.InstallFailedStatFmt, root, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf(messages.TargetPathNotDirFmt, root)
	}

	// The minimum-version gate runs before any filesystem mutation, so an
	// unsupported runtime never creates .variant-layer or a lock file.
	env := detect.Environment(ctx, root, opts.Runtime, manifest.RealSystem{})
	if !env.OK {
		return Result{}, env.Err
	}

	paths := config.DefaultPaths(root)
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf(messages.InstallCreateDirFailedFmt, paths.Dir, err)
	}
	logger := auditlog.New(paths.LogPath, opts.WarnWriter)

	lock := lockfile.NewManager(paths.LockPath)
	if err := lock.Acquire(op); err != nil {
		_ = logger.Warn(string(op), "lock acquisition failed", map[string]any{"error": err.Error()})
		return Result{}, err
	}
	defer func() {
		// Release must run on every exit path, including panics.
		_ = lock.Release()
	}()
	_ = logger.Info(string(op), "operation started", map[string]any{
		"pid":             os.Getpid(),
		"package_version": opts.PackageVersion,
	})

	return locked(ctx, paths, opts, op, logger)
}

// locked is the body of run that executes under the lock.
func locked(ctx context.Context, paths config.Paths, opts Options, op lockfile.Operation, logger *auditlog.Logger) (Result, error) {
	var previous *Context
	if op == lockfile.OpUpgrade {
		loaded, err := LoadContext(paths.ContextPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf(messages.InstallNotInstalledFmt, paths.Root)
			}
			_ = logger.Error(string(op), "install context unusable", map[string]any{"error": err.Error()})
			return Result{}, err
		}
		previous = loaded
	}

	sel := detect.SelectVariant(ctx, paths.Root, opts.Variant, opts.Runtime, manifest.RealSystem{})
	if !sel.OK {
		_ = logger.Error(string(op), "variant selection failed", map[string]any{"error": sel.Err.Error()})
		return Result{}, sel.Err
	}
	_ = logger.Info(string(op), "environment detected", map[string]any{
		"runtime_major":     sel.RuntimeMajor,
		"runtime_full":      sel.RuntimeFull,
		"module_convention": string(sel.Convention),
		"variant":           string(sel.Variant),
		"override_used":     opts.Variant != "",
	})

	if op == lockfile.OpInstall && !opts.Force {
		if existing, err := LoadContext(paths.ContextPath); err == nil {
			installedErr := fmt.Errorf(messages.InstallAlreadyInstalledFmt, existing.Variant, paths.Root)
			_ = logger.Warn(string(op), "already installed", map[string]any{"variant": string(existing.Variant)})
			return Result{}, installedErr
		} else if !errors.Is(err, os.ErrNotExist) {
			_ = logger.Error(string(op), "install context unusable", map[string]any{"error": err.Error()})
			return Result{}, err
		}
	}

	if op == lockfile.OpUpgrade && previous.Variant == sel.Variant && !opts.Force {
		_ = logger.Info(string(op), "no change", map[string]any{"variant": string(sel.Variant)})
		return Result{Variant: sel.Variant, Previous: previous.Variant, NoChange: true, Warnings: sel.Warnings}, nil
	}

	def, err := registry.Get(sel.Variant)
	if err != nil {
		return Result{}, err
	}
	if err := verifyArtifacts(opts.ArtifactsDir, def); err != nil {
		_ = logger.Error(string(op), "artifacts missing", map[string]any{
			"variant":   string(def.ID),
			"artifacts": opts.ArtifactsDir,
		})
		return Result{}, err
	}

	tx, err := rollback.Begin(paths.BackupDir)
	if err != nil {
		return Result{}, err
	}

	result := Result{Variant: sel.Variant, Warnings: sel.Warnings}
	if previous != nil {
		result.Previous = previous.Variant
	}

	fail := func(step string, cause error) (Result, error) {
		rb := tx.Rollback()
		_ = logger.Error(string(op), "operation failed, rollback executed", map[string]any{
			"step":     step,
			"error":    cause.Error(),
			"rollback": rb.Summary(),
		})
		if rb.Clean() {
			return Result{}, fault.Wrap(fault.PartialWriteFailure, cause,
				messages.InstallRollbackSucceededFmt, step)
		}
		return Result{}, fault.Wrap(fault.PartialWriteFailure, cause,
			messages.InstallRollbackPartialFmt, step, rb.Summary())
	}

	// Read the user-owned config into memory before the runtime area is
	// deleted; it is written back verbatim afterwards.
	preserved, err := readUserConfig(paths.RuntimeDir)
	if err != nil {
		return Result{}, err
	}

	if err := replaceRuntimeArea(tx, opts.ArtifactsDir, def, paths.RuntimeDir); err != nil {
		return fail("copy runtime files", err)
	}

	if preserved != nil {
		target := userConfigPath(paths.RuntimeDir)
		if err := tx.TrackWrite(target); err != nil {
			return fail("preserve user config", err)
		}
		if err := fsutil.WriteFileAtomic(target, preserved, 0o644); err != nil {
			return fail("preserve user config", err)
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf(messages.UserConfigPreservedFmt, target))
	}

	newCtx := buildContext(sel, def, previous, opts)
	if err := tx.TrackWrite(paths.ContextPath); err != nil {
		return fail("write install context", err)
	}
	if err := writeContext(paths.ContextPath, newCtx); err != nil {
		return fail("write install context", err)
	}

	if err := writeMarkers(tx, paths, def); err != nil {
		return fail("write protection markers", err)
	}

	if err := tx.Commit(); err != nil {
		// The install itself succeeded; leftover backups under tmp/ are
		// an annoyance, not a failure.
		_ = logger.Warn(string(op), "failed to discard rollback backups", map[string]any{"error": err.Error()})
	}
	_ = logger.Info(string(op), "operation completed", map[string]any{
		"variant":   string(sel.Variant),
		"toolchain": def.ToolchainVersion,
	})
	return result, nil
}

// replaceRuntimeArea deletes and recreates the runtime directory from the
// variant's distribution, tracking every write in the transaction.
func replaceRuntimeArea(tx *rollback.Tx, artifactsRoot string, def registry.Definition, runtimeDir string) error {
	if err := tx.TrackRemoveTree(runtimeDir); err != nil {
		return err
	}
	if err := os.RemoveAll(runtimeDir); err != nil {
		return fmt.Errorf(messages.InstallFailedRemoveFmt, runtimeDir, err)
	}
	if err := os.MkdirAll(runtimeDir, 0o755); err != nil {
		return fmt.Errorf(messages.InstallCreateDirFailedFmt, runtimeDir, err)
	}

	src := artifactDir(artifactsRoot, def)
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(runtimeDir, rel)
		if entry.IsDir() {
			if rel == "." {
				return nil
			}
			return os.MkdirAll(dst, 0o755)
		}
		if !entry.Type().IsRegular() {
			return fmt.Errorf("unsupported file type in distribution: %s", path)
		}
		if err := tx.TrackWrite(dst); err != nil {
			return err
		}
		if err := copyFileFunc(path, dst); err != nil {
			return fmt.Errorf(messages.InstallFailedCopyFmt, path, dst, err)
		}
		return nil
	})
}

// writeMarkers regenerates the protection markers and derived guidance for the
// installed variant.
func writeMarkers(tx *rollback.Tx, paths config.Paths, def registry.Definition) error {
	gitignorePath := filepath.Join(paths.Dir, gitignoreName)
	if err := tx.TrackWrite(gitignorePath); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(gitignorePath, []byte(gitignoreContent), 0o644); err != nil {
		return fmt.Errorf(messages.InstallFailedWriteFmt, gitignorePath, err)
	}

	guidance := guidancePath(paths.RuntimeDir)
	if err := tx.TrackWrite(guidance); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(guidance, []byte(guidanceContent(def)), 0o644); err != nil {
		return fmt.Errorf(messages.InstallFailedWriteFmt, guidance, err)
	}
	return nil
}

// readUserConfig returns the user config content, or nil when absent.
func readUserConfig(runtimeDir string) ([]byte, error) {
	data, err := os.ReadFile(userConfigPath(runtimeDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(messages.InstallFailedReadFmt, userConfigPath(runtimeDir), err)
	}
	return data, nil
}

// buildContext assembles the context to persist for this operation.
func buildContext(sel detect.Result, def registry.Definition, previous *Context, opts Options) *Context {
	now := opts.Now().UTC()
	pkgVersion := opts.PackageVersion
	if !version.IsDev(pkgVersion) {
		if normalized, err := version.Normalize(pkgVersion); err == nil {
			pkgVersion = normalized
		}
	}
	ctx := &Context{
		SchemaVersion:      contextSchemaVersion,
		Variant:            sel.Variant,
		InstalledAt:        now,
		RuntimeVersion:     sel.RuntimeMajor,
		RuntimeVersionFull: sel.RuntimeFull,
		ModuleConvention:   sel.Convention,
		ToolchainVersion:   def.ToolchainVersion,
		PackageVersion:     pkgVersion,
		InstallMethod:      opts.InstallMethod,
		OverrideUsed:       opts.Variant != "",
	}
	if ctx.InstallMethod == "" {
		ctx.InstallMethod = MethodDirect
	}
	if previous != nil {
		if opts.InstallMethod == "" {
			ctx.InstallMethod = previous.InstallMethod
		}
		ctx.PreviousVariant = previous.Variant
		ctx.UpgradeHistory = append([]HistoryEntry{}, previous.UpgradeHistory...)
		// A forced reinstall of the same variant is not a variant change;
		// history records transitions only.
		if previous.Variant != sel.Variant {
			ctx.UpgradeHistory = append(ctx.UpgradeHistory, HistoryEntry{
				From: previous.Variant,
				To:   sel.Variant,
				At:   now,
			})
		}
	}
	return ctx
}
