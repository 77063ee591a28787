package installer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/variant-layer/internal/auditlog"
	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/detect"
	"github.com/conn-castle/variant-layer/internal/fault"
	"github.com/conn-castle/variant-layer/internal/registry"
	"github.com/conn-castle/variant-layer/internal/testutil"
)

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func setupArtifacts(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, def := range registry.All() {
		extra := map[string]string{"lib/core.js": "module.exports = {};\n"}
		testutil.WriteDistribution(t, root, def.DistDirName, EntryFileName(def), extra)
	}
	return root
}

func testOptions(version string, artifacts string) Options {
	return Options{
		ArtifactsDir:   artifacts,
		PackageVersion: "1.2.3",
		Runtime:        detect.StaticRuntime{Full: version},
		WarnWriter:     io.Discard,
		Now:            func() time.Time { return testNow },
	}
}

func TestInstallFreshModernAsync(t *testing.T) {
	root := t.TempDir()
	testutil.WriteManifest(t, root, "module")
	artifacts := setupArtifacts(t)

	result, err := Install(context.Background(), root, testOptions("v20.11.1", artifacts))
	require.NoError(t, err)
	assert.Equal(t, registry.ModernAsync, result.Variant)
	assert.False(t, result.NoChange)

	paths := config.DefaultPaths(root)
	ctx, err := LoadContext(paths.ContextPath)
	require.NoError(t, err)
	assert.Equal(t, registry.ModernAsync, ctx.Variant)
	assert.Equal(t, 20, ctx.RuntimeVersion)
	assert.Equal(t, "v20.11.1", ctx.RuntimeVersionFull)
	assert.Equal(t, registry.Async, ctx.ModuleConvention)
	assert.Equal(t, "3.4.1", ctx.ToolchainVersion)
	assert.Equal(t, "1.2.3", ctx.PackageVersion)
	assert.Equal(t, MethodDirect, ctx.InstallMethod)
	assert.False(t, ctx.OverrideUsed)
	assert.Empty(t, ctx.UpgradeHistory)

	for _, rel := range []string{"index.mjs", "package.json", "lib/core.js", "README.md"} {
		_, err := os.Stat(filepath.Join(paths.RuntimeDir, rel))
		assert.NoError(t, err, rel)
	}
	ignore, err := os.ReadFile(filepath.Join(paths.Dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(ignore), "install.lock")
	assert.NotContains(t, string(ignore), "context.json")

	_, err = os.Stat(paths.LockPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "lock must be released")

	entries, err := auditlog.Read(paths.LogPath)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "operation started", entries[0].Message)
	assert.Equal(t, "operation completed", entries[len(entries)-1].Message)
}

func TestInstallUnsupportedRuntimeTouchesNothing(t *testing.T) {
	root := t.TempDir()
	artifacts := setupArtifacts(t)

	_, err := Install(context.Background(), root, testOptions("v12.22.12", artifacts))
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.UnsupportedRuntime))
	assert.Contains(t, err.Error(), "minimum supported major version 14")

	_, statErr := os.Stat(config.DefaultPaths(root).Dir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no state directory may be created")
}

func TestInstallAlreadyInstalledWithoutForce(t *testing.T) {
	root := t.TempDir()
	artifacts := setupArtifacts(t)
	opts := testOptions("v20.11.1", artifacts)

	_, err := Install(context.Background(), root, opts)
	require.NoError(t, err)

	_, err = Install(context.Background(), root, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	opts.Force = true
	_, err = Install(context.Background(), root, opts)
	assert.NoError(t, err)
}

func TestInstallMissingArtifactsReleasesLock(t *testing.T) {
	root := t.TempDir()
	opts := testOptions("v20.11.1", t.TempDir())

	_, err := Install(context.Background(), root, opts)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.MissingArtifacts))
	assert.Contains(t, err.Error(), "npm run build:variants -- modern-cjs")

	paths := config.DefaultPaths(root)
	_, lockErr := os.Stat(paths.LockPath)
	assert.True(t, errors.Is(lockErr, os.ErrNotExist), "lock must be released")
	_, runtimeErr := os.Stat(paths.RuntimeDir)
	assert.True(t, errors.Is(runtimeErr, os.ErrNotExist), "runtime area must not be created")
}

func TestInstallIncompatibleOverride(t *testing.T) {
	root := t.TempDir()
	opts := testOptions("v20.11.1", setupArtifacts(t))
	opts.Variant = registry.Legacy14

	_, err := Install(context.Background(), root, opts)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.IncompatibleOverride))
	assert.Contains(t, err.Error(), "14, 15")
}

func TestInstallSyncOverrideOnAsyncProjectWarns(t *testing.T) {
	root := t.TempDir()
	testutil.WriteManifest(t, root, "module")
	opts := testOptions("v20.11.1", setupArtifacts(t))
	opts.Variant = registry.ModernSync

	result, err := Install(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, registry.ModernSync, result.Variant)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "sync-only")

	ctx, err := LoadContext(config.DefaultPaths(root).ContextPath)
	require.NoError(t, err)
	assert.True(t, ctx.OverrideUsed)
}

func TestUpgradePreservesUserConfigAndAppendsHistory(t *testing.T) {
	root := t.TempDir()
	artifacts := setupArtifacts(t)

	_, err := Install(context.Background(), root, testOptions("v16.20.2", artifacts))
	require.NoError(t, err)

	paths := config.DefaultPaths(root)
	userConfig := []byte("{\n  \"retries\": 7,\n  \"endpoint\": \"https://example.test\"\n}\n")
	require.NoError(t, os.WriteFile(filepath.Join(paths.RuntimeDir, UserConfigName), userConfig, 0o644))

	testutil.WriteManifest(t, root, "module")
	result, err := Upgrade(context.Background(), root, testOptions("v20.11.1", artifacts))
	require.NoError(t, err)
	assert.Equal(t, registry.ModernAsync, result.Variant)
	assert.Equal(t, registry.Legacy16, result.Previous)

	preserved, err := os.ReadFile(filepath.Join(paths.RuntimeDir, UserConfigName))
	require.NoError(t, err)
	assert.Equal(t, userConfig, preserved)

	ctx, err := LoadContext(paths.ContextPath)
	require.NoError(t, err)
	assert.Equal(t, registry.ModernAsync, ctx.Variant)
	assert.Equal(t, registry.Legacy16, ctx.PreviousVariant)
	require.Len(t, ctx.UpgradeHistory, 1)
	assert.Equal(t, registry.Legacy16, ctx.UpgradeHistory[0].From)
	assert.Equal(t, registry.ModernAsync, ctx.UpgradeHistory[0].To)

	_, err = os.Stat(filepath.Join(paths.RuntimeDir, "index.mjs"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(paths.RuntimeDir, "index.js"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "old entry point must be gone")
}

func TestUpgradeNoChangeLeavesContextUntouched(t *testing.T) {
	root := t.TempDir()
	testutil.WriteManifest(t, root, "module")
	artifacts := setupArtifacts(t)

	_, err := Install(context.Background(), root, testOptions("v20.11.1", artifacts))
	require.NoError(t, err)

	paths := config.DefaultPaths(root)
	before, err := os.ReadFile(paths.ContextPath)
	require.NoError(t, err)

	result, err := Upgrade(context.Background(), root, testOptions("v20.11.1", artifacts))
	require.NoError(t, err)
	assert.True(t, result.NoChange)
	assert.Equal(t, registry.ModernAsync, result.Variant)

	after, err := os.ReadFile(paths.ContextPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "no-change upgrade must not rewrite the context")
}

func TestForcedUpgradeSameVariantAppendsNoHistory(t *testing.T) {
	root := t.TempDir()
	testutil.WriteManifest(t, root, "module")
	artifacts := setupArtifacts(t)

	_, err := Install(context.Background(), root, testOptions("v20.11.1", artifacts))
	require.NoError(t, err)

	opts := testOptions("v20.11.1", artifacts)
	opts.Force = true
	result, err := Upgrade(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, registry.ModernAsync, result.Variant)
	assert.False(t, result.NoChange)

	ctx, err := LoadContext(config.DefaultPaths(root).ContextPath)
	require.NoError(t, err)
	assert.Equal(t, registry.ModernAsync, ctx.Variant)
	assert.Equal(t, registry.ModernAsync, ctx.PreviousVariant)
	assert.Empty(t, ctx.UpgradeHistory, "reinstalling the same variant is not a transition")
}

func TestUpgradeWithoutInstallFails(t *testing.T) {
	root := t.TempDir()
	_, err := Upgrade(context.Background(), root, testOptions("v20.11.1", setupArtifacts(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no install context")
}

func TestUpgradeRollsBackOnCopyFailure(t *testing.T) {
	root := t.TempDir()
	artifacts := setupArtifacts(t)

	_, err := Install(context.Background(), root, testOptions("v16.20.2", artifacts))
	require.NoError(t, err)

	paths := config.DefaultPaths(root)
	userConfig := []byte("{\"keep\": true}\n")
	require.NoError(t, os.WriteFile(filepath.Join(paths.RuntimeDir, UserConfigName), userConfig, 0o644))
	entryBefore, err := os.ReadFile(filepath.Join(paths.RuntimeDir, "index.js"))
	require.NoError(t, err)
	ctxBefore, err := LoadContext(paths.ContextPath)
	require.NoError(t, err)

	orig := copyFileFunc
	calls := 0
	copyFileFunc = func(src string, dst string) error {
		calls++
		if calls >= 2 {
			return errors.New("no space left on device")
		}
		return orig(src, dst)
	}
	t.Cleanup(func() { copyFileFunc = orig })

	testutil.WriteManifest(t, root, "module")
	_, err = Upgrade(context.Background(), root, testOptions("v20.11.1", artifacts))
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.PartialWriteFailure))
	assert.Contains(t, err.Error(), "rolled back")
	assert.Contains(t, err.Error(), "no space left on device", "the cause must reach the user")

	entryAfter, err := os.ReadFile(filepath.Join(paths.RuntimeDir, "index.js"))
	require.NoError(t, err)
	assert.Equal(t, entryBefore, entryAfter, "previous runtime files must be restored")
	preserved, err := os.ReadFile(filepath.Join(paths.RuntimeDir, UserConfigName))
	require.NoError(t, err)
	assert.Equal(t, userConfig, preserved)
	_, err = os.Stat(filepath.Join(paths.RuntimeDir, "index.mjs"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "half-copied files must be removed")

	ctxAfter, err := LoadContext(paths.ContextPath)
	require.NoError(t, err)
	assert.Equal(t, ctxBefore.Variant, ctxAfter.Variant)

	_, lockErr := os.Stat(paths.LockPath)
	assert.True(t, errors.Is(lockErr, os.ErrNotExist), "lock must be released")

	entries, readErr := auditlog.Read(paths.LogPath)
	require.NoError(t, readErr)
	var sawFailure bool
	for _, entry := range entries {
		if entry.Level == auditlog.LevelError {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "failure must be logged")
}
