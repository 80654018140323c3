package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Skt329/Image-Resizer/internal/source"
	"github.com/Skt329/Image-Resizer/internal/utils"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

type processOptions struct {
	minKB     float64
	maxKB     float64
	width     int
	height    int
	dpi       float64
	format    string
	lock      bool
	anchor    string
	outputDir string
	report    string
}

func newProcessCmd(a *app) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process [flags] <file|url>",
		Short: "Resize, tag and re-encode an image into a file size window",
		Long: "process starts from the suggested requirements of the input (80%-120% of its size, " +
			"original dimensions and density, locked aspect ratio, JPEG) and overrides them with the flags given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.process(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.minKB, "min", 0, "minimum output size in KB")
	flags.Float64Var(&opts.maxKB, "max", 0, "maximum output size in KB")
	flags.IntVar(&opts.width, "width", 0, "target width in pixels")
	flags.IntVar(&opts.height, "height", 0, "target height in pixels")
	flags.Float64Var(&opts.dpi, "dpi", 0, "density tag in dots per inch (72-600)")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: jpg, png or webp")
	flags.BoolVar(&opts.lock, "lock", true, "keep the source aspect ratio")
	flags.StringVar(&opts.anchor, "anchor", "", "dimension to keep when locked: width or height (default: the one given)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides the config file)")
	flags.StringVar(&opts.report, "report", "", "write a JSON report to this path, - for stdout")

	return cmd
}

func (a *app) process(cmd *cobra.Command, src string, opts processOptions) error {
	ctx := cmd.Context()
	resizer := a.resizer()

	if err := a.checkSource(src); err != nil {
		return err
	}
	outputDir := a.cfg.Output.Dir
	if opts.outputDir != "" {
		outputDir = opts.outputDir
	}
	if utils.FileExists(outputDir) {
		return fmt.Errorf("output path %s is a file, not a directory", outputDir)
	}

	data, err := source.New(a.cfg.Limits.MaxInputBytes).Load(ctx, src)
	if err != nil {
		return err
	}
	info, err := resizer.Inspect(data)
	if err != nil {
		return a.finish(cmd, opts, nil, "", err)
	}

	req, err := buildRequirements(cmd, info, opts)
	if err != nil {
		return err
	}

	a.log.Debug().
		Str("source", src).
		Float64("min-kb", req.MinSizeKB).
		Float64("max-kb", req.MaxSizeKB).
		Int("width", req.Width).
		Int("height", req.Height).
		Float64("density", req.Density).
		Str("format", req.Format.String()).
		Bool("locked", req.AspectRatioLocked).
		Msg("requirements")

	out, err := resizer.Process(ctx, data, req)
	if err != nil {
		return a.finish(cmd, opts, nil, "", err)
	}

	path := utils.GenerateOutputFilename(src, outputDir, a.cfg.Output.Prefix, a.cfg.Output.Suffix, out.Format.Extension())
	if err := utils.WriteFile(path, out.Bytes); err != nil {
		return err
	}

	return a.finish(cmd, opts, out, path, nil)
}

// buildRequirements overrides the suggested requirements with the flags the
// user actually set
func buildRequirements(cmd *cobra.Command, info types.ImageInfo, opts processOptions) (types.Requirements, error) {
	req := types.DefaultRequirements(info)
	flags := cmd.Flags()

	if flags.Changed("min") {
		req.MinSizeKB = opts.minKB
	}
	if flags.Changed("max") {
		req.MaxSizeKB = opts.maxKB
	}
	if flags.Changed("dpi") {
		req.Density = opts.dpi
	}
	if flags.Changed("format") {
		format, err := types.ParseFormat(opts.format)
		if err != nil {
			return req, err
		}
		req.Format = format
	}
	if flags.Changed("lock") {
		req.AspectRatioLocked = opts.lock
	}

	widthSet, heightSet := flags.Changed("width"), flags.Changed("height")
	if widthSet {
		req.Width = opts.width
	}
	if heightSet {
		req.Height = opts.height
	}

	switch {
	case flags.Changed("anchor"):
		req.Anchor = types.Anchor(opts.anchor)
	case heightSet && !widthSet:
		req.Anchor = types.AnchorHeight
	default:
		req.Anchor = types.AnchorWidth
	}

	return req, nil
}

// finish prints the outcome and writes the report. The pipeline error, if
// any, is returned so the command exits non-zero.
func (a *app) finish(cmd *cobra.Command, opts processOptions, out *types.Output, path string, procErr error) error {
	report := types.NewReport(out, procErr)

	if opts.report != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		if opts.report == "-" {
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
		} else if err := os.WriteFile(opts.report, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	if procErr != nil {
		if report.BestBytes > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Closest size reached: %s\n", utils.FormatKB(report.BestBytes))
		}
		return procErr
	}

	if opts.report != "-" {
		fmt.Fprintln(cmd.OutOrStdout(), renderPairs("Output", [][2]string{
			{"File", path},
			{"Format", out.Format.String()},
			{"Dimensions", fmt.Sprintf("%d x %d", out.Width, out.Height)},
			{"Density", fmt.Sprintf("%g dpi", out.Density)},
			{"Size", utils.FormatKB(out.ByteSize)},
			{"Quality setting", fmt.Sprint(out.Quality)},
			{"Encode attempts", fmt.Sprint(out.Attempts)},
		}))
	}
	return nil
}
