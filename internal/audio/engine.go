// SPDX-License-Identifier: MIT
/*
Package audio hosts the equalizer on real and offline audio:
  - Engine opens a PortAudio duplex stream and calls the processor's
    ProcessBlock from the stream callback,
  - recording writes the filtered output to WAV without blocking the
    callback,
  - Render runs a WAV file through the processor offline.

Thread Safety:
  - The callback locks its OS thread and never allocates
  - Recording state is an atomic pointer; samples reach the encoder
    through a lock-free fifo drained by a writer goroutine
*/
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"equalizer/internal/config"
	applog "equalizer/internal/log"
	"equalizer/internal/plugin"

	"github.com/gordonklaus/portaudio"
)

// ErrStreamRunning is returned by Start when the stream is already open.
var ErrStreamRunning = errors.New("stream already running")

type Engine struct {
	cfg  config.AudioConfig
	rec  config.RecordingConfig
	proc *plugin.Processor

	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration

	mu     sync.Mutex
	stream *portaudio.Stream

	// Recording of the filtered output.
	recMu    sync.Mutex
	recorder atomic.Pointer[recorder]
}

// NewEngine resolves the configured devices and sets the processor's bus
// layout from the channel count. PortAudio must be initialized.
func NewEngine(cfg *config.Config, proc *plugin.Processor) (*Engine, error) {
	if proc == nil {
		return nil, errors.New("audio: processor cannot be nil")
	}
	e, err := newEngine(cfg, proc)
	if err != nil {
		return nil, err
	}

	if e.inputDevice, err = InputDevice(cfg.Audio.InputDevice); err != nil {
		return nil, fmt.Errorf("input device: %w", err)
	}
	if e.outputDevice, err = OutputDevice(cfg.Audio.OutputDevice); err != nil {
		return nil, fmt.Errorf("output device: %w", err)
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = e.inputDevice.DefaultLowInputLatency
		e.outputLatency = e.outputDevice.DefaultLowOutputLatency
	} else {
		e.inputLatency = e.inputDevice.DefaultHighInputLatency
		e.outputLatency = e.outputDevice.DefaultHighOutputLatency
	}
	return e, nil
}

// newEngine builds an engine without touching PortAudio.
func newEngine(cfg *config.Config, proc *plugin.Processor) (*Engine, error) {
	layout := plugin.Stereo
	if cfg.Audio.Channels == 1 {
		layout = plugin.Mono
	}
	if err := proc.SetBusesLayout(layout); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:  cfg.Audio,
		rec:  cfg.Recording,
		proc: proc,
	}, nil
}

// Start prepares the processor and starts the duplex stream.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		return ErrStreamRunning
	}

	if err := e.proc.PrepareToPlay(e.cfg.SampleRate, e.cfg.FramesPerBuffer); err != nil {
		return fmt.Errorf("prepare processor: %w", err)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   e.inputDevice,
			Channels: e.cfg.Channels,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   e.outputDevice,
			Channels: e.cfg.Channels,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		SampleRate:      e.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	e.stream = stream

	applog.Infof("Engine: Stream started (In: %s, Out: %s, %.0f Hz, %d frames, %d ch)",
		e.inputDevice.Name, e.outputDevice.Name, e.cfg.SampleRate, e.cfg.FramesPerBuffer, e.cfg.Channels)
	return nil
}

// Stop stops and closes the stream, then releases the processor.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return nil
	}

	if err := e.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop stream: %w", err)
	}
	if err := e.stream.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	e.stream = nil
	e.proc.ReleaseResources()
	applog.Infof("Engine: Stream stopped")
	return nil
}

// IsRunning reports whether the stream is open.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream != nil
}

// Processor returns the processor the engine drives.
func (e *Engine) Processor() *plugin.Processor { return e.proc }

// processStream is the PortAudio callback. Buffers are non-interleaved.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in, out [][]float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.processBlock(in, out)
}

func (e *Engine) processBlock(in, out [][]float32) {
	for ch := range out {
		if ch < len(in) {
			copy(out[ch], in[ch])
		} else {
			clear(out[ch])
		}
	}

	if err := e.proc.ProcessBlock(out); err != nil {
		for ch := range out {
			clear(out[ch])
		}
		return
	}

	if r := e.recorder.Load(); r != nil {
		r.push(out)
	}
}

// Close stops recording and the stream.
func (e *Engine) Close() error {
	recErr := e.StopRecording()
	streamErr := e.Stop()
	return errors.Join(recErr, streamErr)
}
