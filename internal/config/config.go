// SPDX-License-Identifier: MIT
// Package config loads the YAML configuration of the equalizer host.
package config

import "time"

// Defaults and limits of the configuration.
const (
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Balanced latency/performance
	DefaultChannels        = 2           // Stereo
	DefaultFFTSize         = 2048
	DefaultRefreshRate     = 30.0 // Hz
	DefaultNegInfinityDb   = -48.0
	DefaultAnalyzerWidth   = 600
	DefaultAnalyzerHeight  = 300
	DefaultBitDepth        = 16
	DefaultWebSocketAddr   = ":8080"
	DefaultUDPTarget       = "127.0.0.1:9090"
	DefaultUDPInterval     = 33 * time.Millisecond // ~30Hz
	DefaultPresetPath      = "preset.yaml"

	MinDeviceID     = -1     // -1 represents the system default device
	MinSampleRate   = 8000   // Hz
	MaxSampleRate   = 192000 // Hz
	MinBufferFrames = 16
	MaxBufferFrames = 8192
)

// Config is the root of config.yaml.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Transport TransportConfig `yaml:"transport"`
	Recording RecordingConfig `yaml:"recording"`
	Preset    PresetConfig    `yaml:"preset"`
}

// AudioConfig selects devices and the stream format.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`  // -1 for the default device
	OutputDevice    int     `yaml:"output_device"` // -1 for the default device
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	Channels        int     `yaml:"channels"` // 1 or 2, input and output alike
	LowLatency      bool    `yaml:"low_latency"`
}

// AnalyzerConfig sizes the spectrum analyzer.
type AnalyzerConfig struct {
	FFTSize            int     `yaml:"fft_size"` // 2048, 4096 or 8192
	RefreshRate        float64 `yaml:"refresh_rate_hz"`
	NegativeInfinityDb float64 `yaml:"negative_infinity_db"`
	Width              float64 `yaml:"width"`
	Height             float64 `yaml:"height"`
}

// TransportConfig enables the network outputs of the analyzer.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// RecordingConfig controls recording of the filtered output.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
	BitDepth  int    `yaml:"bit_depth"` // 16, 24 or 32
}

// PresetConfig points at the parameter preset file.
type PresetConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"` // Reload the preset when the file changes
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			Channels:        DefaultChannels,
		},
		Analyzer: AnalyzerConfig{
			FFTSize:            DefaultFFTSize,
			RefreshRate:        DefaultRefreshRate,
			NegativeInfinityDb: DefaultNegInfinityDb,
			Width:              DefaultAnalyzerWidth,
			Height:             DefaultAnalyzerHeight,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddr,
			UDPTargetAddress: DefaultUDPTarget,
			UDPSendInterval:  DefaultUDPInterval,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  DefaultBitDepth,
		},
		Preset: PresetConfig{
			Path: DefaultPresetPath,
		},
	}
}
