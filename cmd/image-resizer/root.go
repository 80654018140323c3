package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	imageresizer "github.com/Skt329/Image-Resizer"
	"github.com/Skt329/Image-Resizer/internal/config"
	"github.com/Skt329/Image-Resizer/internal/logging"
	"github.com/Skt329/Image-Resizer/internal/source"
	"github.com/Skt329/Image-Resizer/internal/utils"
)

// app carries state shared by the sub-commands of one invocation
type app struct {
	configPath string
	debug      bool
	logFormat  string

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:          "image-resizer",
		Short:        "Resize images to exact dimensions, DPI and file size windows",
		Long:         "image-resizer converts an image into a variant with the requested pixel dimensions, DPI tag, format and a file size between --min and --max KB (1 KB = 1024 bytes).",
		Version:      imageresizer.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.GetConfigPath()+")")
	flags.BoolVarP(&a.debug, "debug", "d", false, "enable debug logging")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: auto, console or json (overrides the config file)")

	root.AddCommand(newProcessCmd(a), newInspectCmd(a), newConfigCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, _, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if a.debug {
		level = "debug"
	}
	format := cfg.Log.Format
	if a.logFormat != "" {
		format = a.logFormat
	}

	log, err := logging.New(os.Stderr, level, format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) resizer() *imageresizer.ImageResizer {
	r := imageresizer.NewWithConfig(a.cfg.PipelineConfig())
	r.SetLogger(a.log)
	r.SetMaxInputBytes(a.cfg.Limits.MaxInputBytes)
	return r
}

// checkSource rejects directories and warns about local files whose extension
// is not a known image type. The decoder sniffs content either way.
func (a *app) checkSource(src string) error {
	if source.IsURL(src) {
		return nil
	}
	if utils.DirExists(src) {
		return fmt.Errorf("%s is a directory, not an image", src)
	}
	if !utils.IsImageFile(src) {
		a.log.Warn().Str("source", src).Msg("extension is not a known image type, relying on content sniffing")
	}
	return nil
}
