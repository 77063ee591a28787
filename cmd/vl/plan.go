package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conn-castle/variant-layer/internal/installer"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

var buildPlan = installer.BuildPlan

func newPlanCmd() *cobra.Command {
	var variantFlag string
	var artifactsFlag string
	var outputJSON bool
	var diffLines int

	cmd := &cobra.Command{
		Use:   messages.PlanUse,
		Short: messages.PlanShort,
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
			maxLines := diffLines
			if maxLines <= 0 {
				maxLines = settings.Diff.MaxLines
			}

			plan, err := buildPlan(cmd.Context(), root, installer.PlanOptions{
				Variant:      registry.ID(variantFlag),
				ArtifactsDir: artifacts,
				DiffMaxLines: maxLines,
				Runtime:      resolveRuntime(),
			})
			if err != nil {
				return err
			}

			if outputJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(plan)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, messages.PlanHeaderFmt, root)
			emitWarnings(warnWriter(settings, cmd.ErrOrStderr()), plan.Warnings)
			if plan.NoChange {
				_, _ = fmt.Fprintf(out, messages.PlanNoChangeFmt, plan.Current)
				return nil
			}
			_, _ = fmt.Fprintf(out, messages.PlanChangeFmt, plan.Current, plan.Target)
			for _, diff := range plan.Diffs {
				_, _ = fmt.Fprintf(out, messages.PlanDiffFileFmt, diff.Path)
				_, _ = fmt.Fprint(out, diff.UnifiedDiff)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&variantFlag, "variant", "", messages.FlagVariant)
	cmd.Flags().StringVar(&artifactsFlag, "artifacts", "", messages.FlagArtifacts)
	cmd.Flags().BoolVar(&outputJSON, "json", false, messages.FlagJSON)
	cmd.Flags().IntVar(&diffLines, "diff-lines", 0, messages.FlagDiffLines)
	return cmd
}
