package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/detect"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/terminal"
)

var getwd = os.Getwd
var isTerminal = terminal.IsInteractive

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           messages.RootUse,
		Short:         messages.RootShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUpgradeCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDetectCmd())
	return cmd
}

// resolveTarget turns an optional positional path argument into an absolute
// target root, defaulting to the current directory.
func resolveTarget(args []string) (string, error) {
	raw := "."
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		raw = args[0]
	}
	expanded, err := homedir.Expand(raw)
	if err != nil {
		return "", fmt.Errorf(messages.ResolveTargetPathFmt, raw, err)
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	cwd, err := getwd()
	if err != nil {
		return "", fmt.Errorf(messages.ResolveTargetPathFmt, raw, err)
	}
	return filepath.Join(cwd, expanded), nil
}

// settingsFor loads the per-project settings leniently; a broken config.toml
// never blocks an operation.
func settingsFor(root string) *config.Settings {
	return config.LoadLenient(config.DefaultPaths(root).ConfigPath)
}

// resolveArtifactsDir picks the distribution directory from the flag, the
// environment, or the project settings, in that order.
func resolveArtifactsDir(flagValue string, settings *config.Settings) (string, error) {
	for _, candidate := range []string{flagValue, os.Getenv(config.ArtifactsDirEnvVar), settings.Artifacts.Dir} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		expanded, err := homedir.Expand(candidate)
		if err != nil {
			return "", fmt.Errorf(messages.ResolveTargetPathFmt, candidate, err)
		}
		return expanded, nil
	}
	return "", nil
}

// resolveRuntime honors the version override env var so CI can run without a
// node binary on PATH.
func resolveRuntime() detect.Runtime {
	if v := strings.TrimSpace(os.Getenv(config.RuntimeVersionEnvVar)); v != "" {
		return detect.StaticRuntime{Full: v}
	}
	return detect.NodeRuntime{}
}

// warnWriter returns where non-fatal notices go for this project. Quiet mode
// swallows them.
func warnWriter(settings *config.Settings, stderr io.Writer) io.Writer {
	if settings.Quiet() {
		return io.Discard
	}
	return stderr
}

// emitWarnings prints collected warnings in yellow, one per line.
func emitWarnings(out io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	warnColor := color.New(color.FgYellow)
	for _, warning := range warnings {
		_, _ = warnColor.Fprintf(out, "warning: %s\n", warning)
	}
}
