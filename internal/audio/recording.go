// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"equalizer/internal/fifo"
	applog "equalizer/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by StartRecording while a recording runs.
var ErrAlreadyRecording = errors.New("already recording")

const (
	wavFormatPCM   = 1
	drainInterval  = 10 * time.Millisecond
	recordingStamp = "20060102-150405"
)

// RecordingPath returns a timestamped file name inside dir.
func RecordingPath(dir string, t time.Time) string {
	return filepath.Join(dir, "equalizer-"+t.Format(recordingStamp)+".wav")
}

// recorder moves interleaved output blocks from the audio goroutine to a
// writer goroutine that owns the encoder.
type recorder struct {
	path     string
	channels int

	file    *os.File
	encoder *wav.Encoder
	blocks  *fifo.Fifo[[]float32]

	interleaved []float32 // audio goroutine
	pending     []float32 // writer goroutine
	sampleBuf   *audio.IntBuffer
	scale       float64

	dropped atomic.Uint64
	done    chan struct{}
	wg      sync.WaitGroup
}

// StartRecording creates filename and starts writing the filtered output to
// it as PCM WAV at the configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.recorder.Load() != nil {
		return ErrAlreadyRecording
	}

	bitDepth := e.rec.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	channels := e.proc.BusesLayout().Outputs
	blockSamples := e.cfg.FramesPerBuffer * channels

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}

	r := &recorder{
		path:        filename,
		channels:    channels,
		file:        file,
		encoder:     wav.NewEncoder(file, int(e.cfg.SampleRate), bitDepth, channels, wavFormatPCM),
		blocks:      fifo.NewSlices[float32](fifo.Capacity),
		interleaved: make([]float32, blockSamples),
		pending:     make([]float32, blockSamples),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(e.cfg.SampleRate),
			},
			Data:           make([]int, blockSamples),
			SourceBitDepth: bitDepth,
		},
		scale: float64(int64(1)<<(bitDepth-1) - 1),
		done:  make(chan struct{}),
	}
	r.blocks.Prepare(fifo.Zeroed[float32](blockSamples))

	r.wg.Add(1)
	go r.run()

	e.recorder.Store(r)
	applog.Infof("Recording: Started %s (%d-bit, %d ch)", filename, bitDepth, channels)
	return nil
}

// StopRecording flushes pending blocks and closes the file. It is a no-op
// when nothing is recording.
func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	r := e.recorder.Swap(nil)
	if r == nil {
		return nil
	}
	err := r.stop()
	if n := r.dropped.Load(); n > 0 {
		applog.Warnf("Recording: %d blocks dropped", n)
	}
	if err != nil {
		return err
	}
	applog.Infof("Recording: Saved to %s", r.path)
	return nil
}

// IsRecording reports whether a recording is in progress.
func (e *Engine) IsRecording() bool {
	return e.recorder.Load() != nil
}

// push interleaves out and queues it. Called on the audio goroutine.
func (r *recorder) push(out [][]float32) {
	if len(out) < r.channels {
		return
	}
	frames := len(out[0])
	n := frames * r.channels
	if n > cap(r.interleaved) {
		r.dropped.Add(1)
		return
	}
	r.interleaved = r.interleaved[:n]
	for i := range frames {
		for ch := range r.channels {
			r.interleaved[i*r.channels+ch] = out[ch][i]
		}
	}
	if !r.blocks.Push(&r.interleaved) {
		r.dropped.Add(1)
	}
}

func (r *recorder) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.drain()
		case <-r.done:
			r.drain()
			return
		}
	}
}

func (r *recorder) drain() {
	for r.blocks.Pull(&r.pending) {
		if err := r.write(r.pending); err != nil {
			applog.Errorf("Recording: Error writing to WAV file: %v", err)
		}
	}
}

func (r *recorder) write(samples []float32) error {
	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		r.sampleBuf.Data[i] = int(clampUnit(s) * r.scale)
	}
	return r.encoder.Write(r.sampleBuf)
}

func (r *recorder) stop() error {
	close(r.done)
	r.wg.Wait()

	encErr := r.encoder.Close()
	fileErr := r.file.Close()
	if err := errors.Join(encErr, fileErr); err != nil {
		return fmt.Errorf("failed to finalize recording: %w", err)
	}
	return nil
}

func clampUnit(s float32) float64 {
	v := float64(s)
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	case math.IsNaN(v):
		return 0
	}
	return v
}
