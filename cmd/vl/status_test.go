package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/installer"
	"github.com/conn-castle/variant-layer/internal/messages"
)

func writeStatusFixture(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, config.DirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `{
  "schema_version": 1,
  "variant": "modern-async",
  "installed_at": "2026-08-25T12:00:00Z",
  "runtime_version": 20,
  "runtime_version_full": "v20.11.1",
  "module_convention": "async",
  "toolchain_version": "3.4.1",
  "package_version": "1.2.3",
  "install_method": "direct",
  "override_used": false,
  "upgrade_history": [
    {"from": "legacy-16", "to": "modern-async", "at": "2026-08-25T12:00:00Z"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "context.json"), []byte(content), 0o644))
}

func TestStatusCmdNotInstalled(t *testing.T) {
	_, _, err := runCLI("status", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, messages.StatusNotInstalled, err.Error())
}

func TestStatusCmdText(t *testing.T) {
	root := t.TempDir()
	writeStatusFixture(t, root)

	stdout, _, err := runCLI("status", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "variant:            modern-async")
	assert.Contains(t, stdout, "Node 20")
	assert.Contains(t, stdout, "legacy-16 -> modern-async")
}

func TestStatusCmdJSON(t *testing.T) {
	root := t.TempDir()
	writeStatusFixture(t, root)

	stdout, _, err := runCLI("status", root, "--json")
	require.NoError(t, err)

	var ctx installer.Context
	require.NoError(t, json.Unmarshal([]byte(stdout), &ctx))
	assert.Equal(t, "modern-async", string(ctx.Variant))
	require.Len(t, ctx.UpgradeHistory, 1)
}

func TestDetectCmdWithRuntimeOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv(config.RuntimeVersionEnvVar, "v20.11.1")

	stdout, _, err := runCLI("detect", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Node 20")
	assert.Contains(t, stdout, "modern-sync")
}

func TestDetectCmdJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"type": "module"}`), 0o644))
	t.Setenv(config.RuntimeVersionEnvVar, "v18.19.0")

	stdout, _, err := runCLI("detect", root, "--json")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "modern-async", payload["variant"])
	assert.Equal(t, float64(18), payload["runtime_major"])
	assert.Equal(t, "async", payload["module_convention"])
}

func TestDetectCmdUnsupportedRuntime(t *testing.T) {
	t.Setenv(config.RuntimeVersionEnvVar, "v12.22.12")

	_, _, err := runCLI("detect", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum supported major version 14")
}
