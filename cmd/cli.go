// SPDX-License-Identifier: MIT
// Package cmd is the command line front end.
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"equalizer/internal/config"
	applog "equalizer/internal/log"
	"equalizer/pkg/build"

	"github.com/spf13/cobra"
)

// options holds flag values that do not live in config.Config.
type options struct {
	configPath string
	logLevel   string
	verbose    bool

	noTUI      bool
	recordFile string

	blockSize int
	presetSet []string
}

// Execute runs the CLI with args.
func Execute(args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

// NewRootCommand builds the command tree. Running the root command is the
// same as "run".
func NewRootCommand() *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &options{}
	cfg := config.Default()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			*cfg = *loaded
			if err := applyFlags(cmd, cfg, opts); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			setLogLevel(cfg)
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "C", "",
		"Path to config.yaml (default: ./config.yaml when present)")
	pf.StringVar(&opts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")
	pf.String("preset", config.DefaultPresetPath,
		"Preset file holding the parameter values")

	runCmd := newRunCommand(cfg, opts)
	rootCmd.Flags().AddFlagSet(runCmd.Flags())
	rootCmd.RunE = runCmd.RunE

	rootCmd.AddCommand(
		runCmd,
		newListCommand(),
		newDevicesCommand(),
		newRenderCommand(cfg, opts),
		newPresetCommand(cfg, opts),
	)
	return rootCmd
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && flags.Lookup(name) != nil && flags.Changed(name) {
			err = apply()
		}
	}

	set("preset", func() (e error) { cfg.Preset.Path, e = flags.GetString("preset"); return })
	set("watch", func() (e error) { cfg.Preset.Watch, e = flags.GetBool("watch"); return })
	set("device", func() (e error) { cfg.Audio.InputDevice, e = flags.GetInt("device"); return })
	set("output-device", func() (e error) { cfg.Audio.OutputDevice, e = flags.GetInt("output-device"); return })
	set("channels", func() (e error) { cfg.Audio.Channels, e = flags.GetInt("channels"); return })
	set("sample-rate", func() (e error) { cfg.Audio.SampleRate, e = flags.GetFloat64("sample-rate"); return })
	set("frames-per-buffer", func() (e error) { cfg.Audio.FramesPerBuffer, e = flags.GetInt("frames-per-buffer"); return })
	set("low-latency", func() (e error) { cfg.Audio.LowLatency, e = flags.GetBool("low-latency"); return })
	set("fft-size", func() (e error) { cfg.Analyzer.FFTSize, e = flags.GetInt("fft-size"); return })
	set("ws", func() (e error) {
		cfg.Transport.WebSocketAddress, e = flags.GetString("ws")
		cfg.Transport.WebSocketEnabled = cfg.Transport.WebSocketAddress != ""
		return
	})
	set("udp", func() (e error) {
		cfg.Transport.UDPTargetAddress, e = flags.GetString("udp")
		cfg.Transport.UDPEnabled = cfg.Transport.UDPTargetAddress != ""
		return
	})
	set("record", func() (e error) { cfg.Recording.Enabled, e = flags.GetBool("record"); return })
	if err != nil {
		return err
	}

	if opts.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return nil
}

func setLogLevel(cfg *config.Config) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		level = applog.LevelInfo
	}
	if cfg.Debug && level > applog.LevelDebug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}

// parseAssignment splits "Peak Gain=6" into its id and value.
func parseAssignment(s string) (string, float64, error) {
	id, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("expected ID=VALUE, got %q", s)
	}
	id = strings.TrimSpace(id)
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "on", "true":
		return id, 1, nil
	case "off", "false":
		return id, 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("value of %q: %w", id, err)
	}
	return id, v, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
