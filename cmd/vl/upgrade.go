package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conn-castle/variant-layer/internal/installer"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

var upgradeRun = installer.Upgrade

func newUpgradeCmd() *cobra.Command {
	var variantFlag string
	var force bool
	var artifactsFlag string

	cmd := &cobra.Command{
		Use:   messages.UpgradeUse,
		Short: messages.UpgradeShort,
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

			result, err := upgradeRun(cmd.Context(), root, installer.Options{
				Variant:        registry.ID(variantFlag),
				Force:          force,
				ArtifactsDir:   artifacts,
				PackageVersion: Version,
				Runtime:        resolveRuntime(),
				WarnWriter:     warnWriter(settings, cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}
			emitWarnings(warnWriter(settings, cmd.ErrOrStderr()), result.Warnings)
			if result.NoChange {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.UpgradeNoChangeFmt, result.Variant)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.UpgradeSuccessFmt, result.Previous, result.Variant, root)
			return nil
		},
	}

	cmd.Flags().StringVar(&variantFlag, "variant", "", messages.FlagVariant)
	cmd.Flags().BoolVar(&force, "force", false, messages.FlagForce)
	cmd.Flags().StringVar(&artifactsFlag, "artifacts", "", messages.FlagArtifacts)
	return cmd
}
