// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"equalizer/internal/analysis"
	"equalizer/internal/analyzer"
	"equalizer/internal/audio"
	"equalizer/internal/config"
	applog "equalizer/internal/log"
	"equalizer/internal/params"
	"equalizer/internal/plugin"
	"equalizer/internal/preset"
	"equalizer/internal/transport"
	"equalizer/internal/transport/udp"
	"equalizer/internal/tui"

	"github.com/spf13/cobra"
)

func newRunCommand(cfg *config.Config, opts *options) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the equalizer on a live duplex stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, opts)
		},
	}

	f := runCmd.Flags()
	f.IntP("device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	f.Int("output-device", config.DefaultDeviceID, "Output device ID")
	f.IntP("channels", "c", config.DefaultChannels, "Number of channels (1=mono, 2=stereo)")
	f.Float64P("sample-rate", "s", config.DefaultSampleRate, "Sample rate, measured in Hertz (Hz)")
	f.IntP("frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	f.BoolP("low-latency", "l", false, "Use low latency mode for real-time processing")
	f.Int("fft-size", config.DefaultFFTSize, "Analyzer FFT size: 2048, 4096 or 8192")
	f.BoolP("watch", "w", false, "Reload the preset when the file changes")
	f.String("ws", "", "Serve analyzer frames over WebSocket on this address, e.g. :8080")
	f.String("udp", "", "Send spectrum packets to this UDP address, e.g. 127.0.0.1:9090")
	f.BoolP("record", "r", false, "Record the filtered output")
	f.StringVarP(&opts.recordFile, "output", "o", "",
		"Recording file name (default: timestamped file in recording.output_dir)")
	f.BoolVar(&opts.noTUI, "no-tui", false, "Run headless until interrupted")
	return runCmd
}

// analyzerOptions converts the analyzer section of cfg.
func analyzerOptions(cfg *config.Config) (analyzer.Options, error) {
	order, err := analysis.OrderForSize(cfg.Analyzer.FFTSize)
	if err != nil {
		return analyzer.Options{}, err
	}
	opts := analyzer.DefaultOptions()
	opts.Order = order
	opts.RefreshRate = cfg.Analyzer.RefreshRate
	opts.NegativeInfinityDb = cfg.Analyzer.NegativeInfinityDb
	opts.Bounds = analysis.Rect{Width: cfg.Analyzer.Width, Height: cfg.Analyzer.Height}
	return opts, nil
}

// loadPreset fills store from path when the file exists.
func loadPreset(path string, store *params.Store) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		applog.Infof("Preset: %s not found, using defaults", path)
		return nil
	}
	return preset.Load(path, store)
}

// run wires the live session together and blocks until the monitor quits
// or a termination signal arrives.
func run(ctx context.Context, cfg *config.Config, opts *options) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := params.NewStore()
	if err := loadPreset(cfg.Preset.Path, store); err != nil {
		return err
	}

	aopts, err := analyzerOptions(cfg)
	if err != nil {
		return err
	}

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	proc := plugin.New(store)
	engine, err := audio.NewEngine(cfg, proc)
	if err != nil {
		return err
	}

	an, err := newAnalyzer(proc, cfg, aopts)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, an.Close()) }()

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, an, 0)
		if err != nil {
			sender.Close()
			return err
		}
		publisher.Start()
		defer publisher.Close()
	}

	if cfg.Preset.Watch && cfg.Preset.Path != "" {
		watcher := preset.NewWatcher(cfg.Preset.Path, store)
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if err := engine.Start(); err != nil {
		return err
	}
	defer func() { err = errors.Join(err, engine.Close()) }()
	an.Start()

	if cfg.Recording.Enabled {
		if err := startRecording(engine, cfg, opts); err != nil {
			return err
		}
	}

	if opts.noTUI {
		applog.Infof("Running headless, press Ctrl+C to stop")
		<-ctx.Done()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- tui.RunMonitor(an, store, aopts.NegativeInfinityDb) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

// newAnalyzer starts the configured transports and the analyzer feeding
// them. The transports are closed again if the analyzer cannot be built.
func newAnalyzer(proc *plugin.Processor, cfg *config.Config, aopts analyzer.Options) (*analyzer.Analyzer, error) {
	var transports []transport.Transport
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err := ws.Start(); err != nil {
			ws.Close()
			return nil, err
		}
		transports = append(transports, ws)
	}

	an, err := analyzer.New(proc, aopts, transports...)
	if err != nil {
		for _, t := range transports {
			if cerr := t.Close(); cerr != nil {
				applog.Warnf("Transport: Close failed: %v", cerr)
			}
		}
		return nil, err
	}
	return an, nil
}

func startRecording(engine *audio.Engine, cfg *config.Config, opts *options) error {
	path := opts.recordFile
	if path == "" {
		if err := os.MkdirAll(cfg.Recording.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create recording directory: %w", err)
		}
		path = audio.RecordingPath(cfg.Recording.OutputDir, timeNow())
	}
	return engine.StartRecording(path)
}
