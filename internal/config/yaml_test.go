// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg.Audio.SampleRate != DefaultSampleRate || cfg.Audio.FramesPerBuffer != DefaultFramesPerBuffer {
		t.Errorf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Analyzer.FFTSize != DefaultFFTSize || cfg.Analyzer.RefreshRate != DefaultRefreshRate {
		t.Errorf("analyzer defaults = %+v", cfg.Analyzer)
	}
}

func TestLoadConfig_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("audio:\n  sample_rate: 48000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample_rate = %v, want 48000", cfg.Audio.SampleRate)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected unmarshal error, got %v", err)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
audio:
  frames_per_buffer: 256
analyzer:
  fft_size: 4096
transport:
  udp_enabled: true
  udp_send_interval: 20ms
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.FramesPerBuffer != 256 || cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Analyzer.FFTSize != 4096 {
		t.Errorf("fft_size = %d", cfg.Analyzer.FFTSize)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPSendInterval != 20*time.Millisecond {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.Transport.UDPTargetAddress != DefaultUDPTarget {
		t.Errorf("udp_target_address = %q", cfg.Transport.UDPTargetAddress)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"sample rate", func(c *Config) { c.Audio.SampleRate = 1000 }, "audio.sample_rate"},
		{"block size", func(c *Config) { c.Audio.FramesPerBuffer = 10000 }, "audio.frames_per_buffer"},
		{"channels", func(c *Config) { c.Audio.Channels = 6 }, "audio.channels"},
		{"device", func(c *Config) { c.Audio.InputDevice = -5 }, "audio.input_device"},
		{"fft size", func(c *Config) { c.Analyzer.FFTSize = 1024 }, "analyzer.fft_size"},
		{"refresh", func(c *Config) { c.Analyzer.RefreshRate = 0 }, "analyzer.refresh_rate_hz"},
		{"floor", func(c *Config) { c.Analyzer.NegativeInfinityDb = 3 }, "analyzer.negative_infinity_db"},
		{"udp address", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "transport.udp_target_address"},
		{"bit depth", func(c *Config) { c.Recording.BitDepth = 12 }, "recording.bit_depth"},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %s", err, tt.field)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_SAMPLE_RATE", "96000")
	t.Setenv("ENV_FRAMES_PER_BUFFER", "1024")
	t.Setenv("ENV_UDP_ENABLED", "1")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.2:7000")
	t.Setenv("ENV_UDP_SEND_INTERVAL", "not-a-duration")
	t.Setenv("ENV_WEBSOCKET_ADDRESS", ":9999")

	path := writeTempConfig(t, "audio:\n  sample_rate: 48000\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || cfg.Audio.SampleRate != 96000 || cfg.Audio.FramesPerBuffer != 1024 {
		t.Errorf("overrides not applied: debug=%v audio=%+v", cfg.Debug, cfg.Audio)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.2:7000" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.Transport.UDPSendInterval != DefaultUDPInterval {
		t.Errorf("invalid duration override applied: %v", cfg.Transport.UDPSendInterval)
	}
	if !cfg.Transport.WebSocketEnabled || cfg.Transport.WebSocketAddress != ":9999" {
		t.Errorf("websocket = %v %q", cfg.Transport.WebSocketEnabled, cfg.Transport.WebSocketAddress)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Audio.Channels = 1
	cfg.Preset.Watch = true
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Audio.Channels != 1 || !loaded.Preset.Watch {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}
