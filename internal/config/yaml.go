// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"equalizer/internal/analysis"
	applog "equalizer/internal/log"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// searchPaths are tried in order when LoadConfig gets an empty path.
var searchPaths = []string{
	"config.yaml",
	"config.yml",
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty it searches searchPaths and falls back to the built-in defaults.
// Environment overrides are applied after the file, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range searchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		applog.Debugf("Config: Loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every range the engine depends on.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	a := c.Audio
	check(a.InputDevice >= MinDeviceID, "audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	check(a.OutputDevice >= MinDeviceID, "audio.output_device must be >= %d, got %d", MinDeviceID, a.OutputDevice)
	check(a.SampleRate >= MinSampleRate && a.SampleRate <= MaxSampleRate,
		"audio.sample_rate must be in [%d, %d], got %v", MinSampleRate, MaxSampleRate, a.SampleRate)
	check(a.FramesPerBuffer >= MinBufferFrames && a.FramesPerBuffer <= MaxBufferFrames,
		"audio.frames_per_buffer must be in [%d, %d], got %d", MinBufferFrames, MaxBufferFrames, a.FramesPerBuffer)
	check(a.Channels == 1 || a.Channels == 2, "audio.channels must be 1 or 2, got %d", a.Channels)

	an := c.Analyzer
	_, orderErr := analysis.OrderForSize(an.FFTSize)
	check(orderErr == nil, "analyzer.fft_size must be 2048, 4096 or 8192, got %d", an.FFTSize)
	check(an.RefreshRate > 0, "analyzer.refresh_rate_hz must be positive, got %v", an.RefreshRate)
	check(an.NegativeInfinityDb < 0, "analyzer.negative_infinity_db must be negative, got %v", an.NegativeInfinityDb)
	check(an.Width > 0 && an.Height > 0, "analyzer width and height must be positive, got %vx%v", an.Width, an.Height)

	t := c.Transport
	if t.WebSocketEnabled {
		check(t.WebSocketAddress != "", "transport.websocket_address must be set when the websocket is enabled")
	}
	if t.UDPEnabled {
		check(strings.Contains(t.UDPTargetAddress, ":"),
			"transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		check(t.UDPSendInterval > 0, "transport.udp_send_interval must be positive when UDP is enabled")
	}

	r := c.Recording
	check(r.BitDepth == 16 || r.BitDepth == 24 || r.BitDepth == 32,
		"recording.bit_depth must be 16, 24 or 32, got %d", r.BitDepth)
	if r.Enabled {
		check(r.OutputDir != "", "recording.output_dir must be set when recording is enabled")
	}

	if c.LogLevel != "" {
		_, ok := applog.ParseLevel(c.LogLevel)
		check(ok, "log_level %q is not a known level", c.LogLevel)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// applyEnvOverrides reads ENV_* variables. Values that fail to parse are
// ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			applog.Debugf("Config: Overriding debug from env: %v", b)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		applog.Debugf("Config: Overriding log_level from env: %s", val)
	}

	// ENV_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = f
			applog.Debugf("Config: Overriding audio.sample_rate from env: %v", f)
		}
	}
	// ENV_FRAMES_PER_BUFFER
	if val, ok := os.LookupEnv("ENV_FRAMES_PER_BUFFER"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Audio.FramesPerBuffer = n
			applog.Debugf("Config: Overriding audio.frames_per_buffer from env: %d", n)
		}
	}

	// ENV_WEBSOCKET_ADDRESS
	if val, ok := os.LookupEnv("ENV_WEBSOCKET_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		c.Transport.WebSocketEnabled = val != ""
		applog.Debugf("Config: Overriding transport.websocket_address from env: %s", val)
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
			applog.Debugf("Config: Overriding transport.udp_enabled from env: %v", b)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		applog.Debugf("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
			applog.Debugf("Config: Overriding transport.udp_send_interval from env: %s", d)
		}
	}
}
