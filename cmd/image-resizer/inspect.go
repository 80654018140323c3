package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skt329/Image-Resizer/internal/utils"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

type inspectResult struct {
	Info     types.ImageInfo    `json:"info"`
	Defaults types.Requirements `json:"defaults"`
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect [flags] <file|url>",
		Short: "Show dimensions, size and density of an image and the suggested requirements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkSource(args[0]); err != nil {
				return err
			}
			info, err := a.resizer().InspectFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := inspectResult{Info: info, Defaults: types.DefaultRequirements(info)}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintln(out, renderPairs("Image", infoRows(info)))
			fmt.Fprintln(out, renderPairs("Suggested requirements", requirementRows(res.Defaults)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	return cmd
}

func infoRows(info types.ImageInfo) [][2]string {
	density := "none"
	if info.Density > 0 {
		density = fmt.Sprintf("%g dpi", info.Density)
	}
	return [][2]string{
		{"Format", info.Format.String()},
		{"Dimensions", fmt.Sprintf("%d x %d", info.Width, info.Height)},
		{"Aspect ratio", fmt.Sprintf("%.3f", info.AspectRatio)},
		{"File size", fmt.Sprintf("%s (%s)", utils.FormatKB(info.ByteSize), utils.FormatFileSize(int64(info.ByteSize)))},
		{"Density", density},
	}
}

func requirementRows(req types.Requirements) [][2]string {
	lock := "unlocked"
	if req.AspectRatioLocked {
		lock = "locked on " + string(req.EffectiveAnchor())
	}
	return [][2]string{
		{"Size window", fmt.Sprintf("%g - %g KB", req.MinSizeKB, req.MaxSizeKB)},
		{"Dimensions", fmt.Sprintf("%d x %d", req.Width, req.Height)},
		{"Aspect ratio", lock},
		{"Density", fmt.Sprintf("%g dpi", req.Density)},
		{"Format", req.Format.String()},
	}
}
