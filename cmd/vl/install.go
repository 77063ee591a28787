package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/installer"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

var installRun = installer.Install
var loadContext = installer.LoadContext

var confirmReinstall = func(title string) (bool, error) {
	confirmed := false
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(title).Value(&confirmed)))
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

func newInstallCmd() *cobra.Command {
	var variantFlag string
	var force bool
	var yes bool
	var artifactsFlag string
	var methodFlag string

	cmd := &cobra.Command{
		Use:   messages.InstallUse,
		Short: messages.InstallShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveTarget(args)
			if err != nil {
				return err
			}
			settings := settingsFor(root)
			artifacts, err := resolveArtifactsDir(artifactsFlag, settings)
			if err != nil {
				return err
			}
			method, err := parseInstallMethod(methodFlag)
			if err != nil {
				return err
			}

			opts := installer.Options{
				Variant:        registry.ID(variantFlag),
				Force:          force,
				ArtifactsDir:   artifacts,
				InstallMethod:  method,
				PackageVersion: Version,
				Runtime:        resolveRuntime(),
				WarnWriter:     warnWriter(settings, cmd.ErrOrStderr()),
			}

			if !opts.Force {
				if existing, loadErr := loadContext(config.DefaultPaths(root).ContextPath); loadErr == nil {
					switch {
					case yes:
						opts.Force = true
					case isTerminal():
						ok, promptErr := confirmReinstall(fmt.Sprintf(messages.InstallConfirmReinstallFmt, existing.Variant))
						if promptErr != nil {
							return promptErr
						}
						if !ok {
							return errors.New(messages.InstallAbortedByUser)
						}
						opts.Force = true
					default:
						return errors.New(messages.InstallRequiresTerminalOrFlags)
					}
				}
			}

			result, err := installRun(cmd.Context(), root, opts)
			if err != nil {
				return err
			}
			emitWarnings(warnWriter(settings, cmd.ErrOrStderr()), result.Warnings)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.InstallSuccessFmt, result.Variant, root)
			return nil
		},
	}

	cmd.Flags().StringVar(&variantFlag, "variant", "", messages.FlagVariant)
	cmd.Flags().BoolVar(&force, "force", false, messages.FlagForce)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, messages.FlagYes)
	cmd.Flags().StringVar(&artifactsFlag, "artifacts", "", messages.FlagArtifacts)
	cmd.Flags().StringVar(&methodFlag, "install-method", "", messages.FlagInstallMethod)
	return cmd
}

// parseInstallMethod validates the --install-method flag. Empty defers to the
// orchestrator's default.
func parseInstallMethod(raw string) (installer.Method, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case string(installer.MethodDirect):
		return installer.MethodDirect, nil
	case string(installer.MethodWrapped):
		return installer.MethodWrapped, nil
	case string(installer.MethodManual):
		return installer.MethodManual, nil
	default:
		return "", fmt.Errorf("invalid --install-method %q (direct, wrapped, or manual)", raw)
	}
}
