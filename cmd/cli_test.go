// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"errors"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"equalizer/internal/analyzer"
	"equalizer/internal/config"
	"equalizer/internal/params"
	"equalizer/internal/plugin"
	"equalizer/internal/preset"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		in      string
		id      string
		value   float64
		wantErr bool
	}{
		{"Peak Gain=6", "Peak Gain", 6, false},
		{" LowCut Freq = 80 ", "LowCut Freq", 80, false},
		{"Peak Bypassed=on", "Peak Bypassed", 1, false},
		{"Analyzer Enabled=false", "Analyzer Enabled", 0, false},
		{"Peak Gain", "", 0, true},
		{"Peak Gain=loud", "", 0, true},
	}
	for _, tt := range tests {
		id, v, err := parseAssignment(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAssignment(%q) error = %v", tt.in, err)
			continue
		}
		if id != tt.id || v != tt.value {
			t.Errorf("parseAssignment(%q) = %q, %v", tt.in, id, v)
		}
	}
}

func TestPresetSaveAndShow(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "preset", "save", "eq.yaml", "--set", "Peak Gain=-4.5", "--set", "HighCut Slope=2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Saved eq.yaml") {
		t.Errorf("output = %q", out)
	}

	store := params.NewStore()
	if err := preset.Load("eq.yaml", store); err != nil {
		t.Fatal(err)
	}
	if s := store.Snapshot(); s.PeakGainDb != -4.5 || s.HighCutSlope != params.Slope36 {
		t.Errorf("saved settings = %+v", s)
	}

	out, err = execute(t, "preset", "show", "eq.yaml")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Peak Gain", "-4.5 dB", "36dB/Oct"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestPresetSaveRejectsBadValue(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "preset", "save", "eq.yaml", "--set", "Peak Gain=40")
	if !errors.Is(err, params.ErrOutOfRange) {
		t.Errorf("error = %v, want ErrOutOfRange", err)
	}
	if _, statErr := os.Stat("eq.yaml"); statErr == nil {
		t.Error("preset written despite invalid value")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	const sampleRate = 44100
	in := filepath.Join(dir, "in.wav")
	f, err := os.Create(in)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]int, sampleRate/4)
	for i := range data {
		data[i] = int(3000 * math.Sin(2*math.Pi*1000*float64(i)/sampleRate))
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, err := execute(t, "render", in, "out.wav", "--block-size", "128", "--set", "Peak Freq=1000", "--set", "Peak Gain=6")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "11025 frames, 1 ch, 44100 Hz") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.wav")); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	if _, err := execute(t, "render", in); err == nil {
		t.Error("render with one argument accepted")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("config.yaml", []byte("audio:\n  sample_rate: 48000\n  frames_per_buffer: 256\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := NewRootCommand()
	runCmd, _, err := root.Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if err := runCmd.ParseFlags([]string{"-b", "1024", "--udp", "10.0.0.9:7000", "-v"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	opts := &options{verbose: true}
	if err := applyFlags(runCmd, cfg, opts); err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.FramesPerBuffer != 1024 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if !cfg.Transport.UDPEnabled || cfg.Transport.UDPTargetAddress != "10.0.0.9:7000" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if !cfg.Debug || cfg.LogLevel != "debug" {
		t.Errorf("debug = %v, level = %q", cfg.Debug, cfg.LogLevel)
	}
}

func TestAnalyzerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Analyzer.FFTSize = 8192
	cfg.Analyzer.Width = 1000
	opts, err := analyzerOptions(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Order.Size() != 8192 || opts.Bounds.Width != 1000 || opts.NegativeInfinityDb != config.DefaultNegInfinityDb {
		t.Errorf("options = %+v", opts)
	}
	cfg.Analyzer.FFTSize = 1000
	if _, err := analyzerOptions(cfg); err == nil {
		t.Error("invalid FFT size accepted")
	}
}

func TestNewAnalyzerClosesTransportsOnError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.Default()
	cfg.Debug = true
	cfg.Transport.WebSocketEnabled = true
	cfg.Transport.WebSocketAddress = addr

	aopts := analyzer.DefaultOptions()
	aopts.Bounds.Width = 0
	if _, err := newAnalyzer(plugin.New(params.NewStore()), cfg, aopts); err == nil {
		t.Fatal("empty analyzer bounds accepted")
	}

	// The listener is released once the websocket transport has closed.
	deadline := time.Now().Add(2 * time.Second)
	for {
		ln, err = net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("websocket listener still holds %s: %v", addr, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewAnalyzer(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.WebSocketEnabled = false
	aopts, err := analyzerOptions(cfg)
	if err != nil {
		t.Fatal(err)
	}
	an, err := newAnalyzer(plugin.New(params.NewStore()), cfg, aopts)
	if err != nil {
		t.Fatal(err)
	}
	if err := an.Close(); err != nil {
		t.Error(err)
	}
}
