package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conn-castle/variant-layer/internal/detect"
	"github.com/conn-castle/variant-layer/internal/manifest"
	"github.com/conn-castle/variant-layer/internal/messages"
	"github.com/conn-castle/variant-layer/internal/registry"
)

var detectEnvironment = detect.Environment

func newDetectCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   messages.DetectUse,
		Short: messages.DetectShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveTarget(args)
			if err != nil {
				return err
			}
			result := detectEnvironment(cmd.Context(), root, resolveRuntime(), manifest.RealSystem{})
			if !result.OK {
				return result.Err
			}

			if outputJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(struct {
					RuntimeMajor     int                 `json:"runtime_major"`
					RuntimeFull      string              `json:"runtime_version_full"`
					ModuleConvention registry.Convention `json:"module_convention"`
					Variant          registry.ID         `json:"variant"`
				}{result.RuntimeMajor, result.RuntimeFull, result.Convention, result.Variant})
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, messages.DetectRuntimeFmt, result.RuntimeMajor, result.RuntimeFull)
			_, _ = fmt.Fprintf(out, messages.DetectConventionFmt, result.Convention)
			_, _ = fmt.Fprintf(out, messages.DetectVariantFmt, result.Variant)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, messages.FlagJSON)
	return cmd
}
