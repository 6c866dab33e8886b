package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/config"
	"github.com/ankit-chaubey/media-gps-surgery/core/geocode"
	"github.com/ankit-chaubey/media-gps-surgery/core/image"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
	"github.com/ankit-chaubey/media-gps-surgery/core/media"
	"github.com/ankit-chaubey/media-gps-surgery/core/scan"
	"github.com/ankit-chaubey/media-gps-surgery/core/video"
)

// Version is the tool version.
const Version = "0.2.0"

var (
	configPath string
	jsonOutput bool
	verbose    bool
	v          = config.New()
)

// app is everything a command needs, built once the flags are parsed.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	printer *core.Printer
	reader  *media.Reader
	writer  *media.Writer
	scanner *scan.Scanner
}

var env *app

// Root is the top-level command.
var Root = &cobra.Command{
	Use:           "surgery",
	Short:         "Find, infer and fix GPS metadata in photos and videos",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(v, configPath)
		if err != nil {
			return err
		}
		env = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if env != nil {
			_ = env.log.Sync()
		}
	},
}

func init() {
	flags := Root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.media-gps-surgery/config.yaml)")
	flags.BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show capture time and provenance in listings")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this file")
	flags.String("media-root", ".", "Directory manifest paths are relative to")
	flags.Float64("window", 1, "Proxy time window in hours")
	flags.Duration("tool-timeout", video.DefaultTimeout, "Timeout for ffprobe/ffmpeg/exiftool runs")

	for key, name := range map[string]string{
		"log.level":    "log-level",
		"log.file":     "log-file",
		"media_root":   "media-root",
		"window_hours": "window",
		"tool_timeout": "tool-timeout",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// setup loads configuration and wires the components.
func setup(v *viper.Viper, path string) (*app, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}
	return newApp(cfg, log), nil
}

func newApp(cfg *config.Config, log *zap.Logger) *app {
	reg := &media.Registry{
		Image: image.Options{Exiftool: cfg.Exiftool, Timeout: cfg.ToolTimeout, Logger: log},
		Video: video.Options{FFprobe: cfg.FFprobe, FFmpeg: cfg.FFmpeg, Timeout: cfg.ToolTimeout, Logger: log},
	}
	reader := media.NewReader(reg, log)
	return &app{
		cfg:     cfg,
		log:     log,
		printer: core.NewPrinter(jsonOutput, verbose),
		reader:  reader,
		writer:  media.NewWriter(reg, log),
		scanner: scan.New(reader, log),
	}
}

func (a *app) geocoder() *geocode.Client {
	g := a.cfg.Geocoder
	return geocode.New(geocode.Options{
		URL:       g.URL,
		UserAgent: g.UserAgent,
		Rate:      g.Rate,
		Timeout:   g.Timeout,
		Logger:    a.log,
	})
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s %s", cmd.CommandPath(), usage)
		}
		return nil
	}
}
