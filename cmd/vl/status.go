package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/conn-castle/variant-layer/internal/config"
	"github.com/conn-castle/variant-layer/internal/messages"
)

func newStatusCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   messages.StatusUse,
		Short: messages.StatusShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveTarget(args)
			if err != nil {
				return err
			}
			ctx, err := loadContext(config.DefaultPaths(root).ContextPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return errors.New(messages.StatusNotInstalled)
				}
				return err
			}

			if outputJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(ctx)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, messages.StatusVariantFmt, ctx.Variant)
			_, _ = fmt.Fprintf(out, messages.StatusInstalledAtFmt, ctx.InstalledAt.Format(time.RFC3339))
			_, _ = fmt.Fprintf(out, messages.StatusRuntimeFmt, ctx.RuntimeVersion, ctx.RuntimeVersionFull)
			_, _ = fmt.Fprintf(out, messages.StatusConventionFmt, ctx.ModuleConvention)
			_, _ = fmt.Fprintf(out, messages.StatusToolchainFmt, ctx.ToolchainVersion)
			_, _ = fmt.Fprintf(out, messages.StatusMethodFmt, ctx.InstallMethod)
			_, _ = fmt.Fprintf(out, messages.StatusOverrideFmt, ctx.OverrideUsed)
			if len(ctx.UpgradeHistory) > 0 {
				_, _ = fmt.Fprintln(out, messages.StatusHistoryHeader)
				for _, entry := range ctx.UpgradeHistory {
					_, _ = fmt.Fprintf(out, messages.StatusHistoryLineFmt, entry.From, entry.To, entry.At.Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, messages.FlagJSON)
	return cmd
}
