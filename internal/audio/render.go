// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	applog "equalizer/internal/log"
	"equalizer/internal/plugin"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when the input is not a readable PCM WAV file.
var ErrInvalidWAV = errors.New("invalid WAV file")

// RenderStats summarises an offline render.
type RenderStats struct {
	Frames     int
	Channels   int
	SampleRate int
	BitDepth   int
	Blocks     int
}

// RenderFile runs the WAV file at inPath through proc and writes the result
// to outPath with the same format.
func RenderFile(proc *plugin.Processor, inPath, outPath string, blockSize int) (RenderStats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return RenderStats{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return RenderStats{}, fmt.Errorf("failed to create output: %w", err)
	}
	stats, err := Render(proc, in, out, blockSize)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close output: %w", cerr)
	}
	return stats, err
}

// Render decodes a PCM WAV stream, prepares proc for its sample rate and
// channel count, processes it in blocks of blockSize frames and encodes the
// result to w. Mono and stereo files are supported.
func Render(proc *plugin.Processor, r io.ReadSeeker, w io.WriteSeeker, blockSize int) (RenderStats, error) {
	if blockSize <= 0 {
		return RenderStats{}, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return RenderStats{}, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return RenderStats{}, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}

	stats := RenderStats{
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}
	if stats.Channels == 0 || stats.BitDepth == 0 {
		return stats, ErrInvalidWAV
	}
	stats.Frames = len(buf.Data) / stats.Channels

	layout := plugin.BusesLayout{Inputs: stats.Channels, Outputs: stats.Channels}
	if err := proc.SetBusesLayout(layout); err != nil {
		return stats, err
	}
	if err := proc.PrepareToPlay(float64(stats.SampleRate), blockSize); err != nil {
		return stats, err
	}
	defer proc.ReleaseResources()

	// 8-bit PCM is unsigned around 128; wider depths are signed.
	scale := float64(int64(1) << (stats.BitDepth - 1))
	offset := 0
	if stats.BitDepth == 8 {
		offset = 128
	}
	block := make([][]float32, stats.Channels)
	for ch := range block {
		block[ch] = make([]float32, blockSize)
	}

	for start := 0; start < stats.Frames; start += blockSize {
		n := min(blockSize, stats.Frames-start)
		for ch := range block {
			block[ch] = block[ch][:n]
			for i := range n {
				block[ch][i] = float32(float64(buf.Data[(start+i)*stats.Channels+ch]-offset) / scale)
			}
		}
		if err := proc.ProcessBlock(block); err != nil {
			return stats, err
		}
		for ch := range block {
			for i, s := range block[ch] {
				buf.Data[(start+i)*stats.Channels+ch] = int(clampUnit(s)*(scale-1)) + offset
			}
		}
		stats.Blocks++
	}

	enc := wav.NewEncoder(w, stats.SampleRate, stats.BitDepth, stats.Channels, wavFormatPCM)
	out := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: stats.Channels,
			SampleRate:  stats.SampleRate,
		},
		Data:           buf.Data,
		SourceBitDepth: stats.BitDepth,
	}
	if err := enc.Write(out); err != nil {
		return stats, fmt.Errorf("failed to encode output: %w", err)
	}
	if err := enc.Close(); err != nil {
		return stats, fmt.Errorf("failed to finalize output: %w", err)
	}

	applog.Infof("Render: %d frames, %d ch, %d Hz, %d-bit in %d blocks",
		stats.Frames, stats.Channels, stats.SampleRate, stats.BitDepth, stats.Blocks)
	return stats, nil
}
