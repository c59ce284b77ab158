// SPDX-License-Identifier: MIT
// Package batcher turns the running per-block audio stream of one channel
// into fixed-size blocks queued on a fifo for the analyzer.
package batcher

import (
	"sync/atomic"

	"equalizer/internal/fifo"
)

// Channel selects which channel of a multi-channel block a batcher reads.
type Channel int

const (
	Left Channel = iota
	Right
)

// String returns "left" or "right".
func (c Channel) String() string {
	if c == Right {
		return "right"
	}
	return "left"
}

// SampleBatcher accumulates samples of one channel and pushes a copy of the
// accumulation buffer into its fifo every time it fills up. Update runs on
// the audio goroutine; Pull and the query methods run on the analyzer side.
type SampleBatcher struct {
	channel Channel

	fillIndex  int
	bufferFill []float32
	blocks     *fifo.Fifo[[]float32]

	prepared atomic.Bool
	size     atomic.Int32
}

// New returns an unprepared batcher for the given channel.
func New(ch Channel) *SampleBatcher {
	return &SampleBatcher{
		channel: ch,
		blocks:  fifo.NewSlices[float32](fifo.Capacity),
	}
}

// Prepare sizes the accumulation buffer and every fifo slot to blockSize
// and discards anything in flight. Call only while Update is not running.
func (b *SampleBatcher) Prepare(blockSize int) {
	b.prepared.Store(false)
	b.size.Store(int32(blockSize))

	if cap(b.bufferFill) < blockSize {
		b.bufferFill = make([]float32, blockSize)
	}
	b.bufferFill = b.bufferFill[:blockSize]
	clear(b.bufferFill)
	b.blocks.Prepare(fifo.Zeroed[float32](blockSize))
	b.fillIndex = 0

	b.prepared.Store(true)
}

// Update ingests one host block laid out as [channel][frame]. Blocks that do
// not carry the batcher's channel, or arrive before Prepare, are ignored.
// A full fifo silently drops the completed block.
func (b *SampleBatcher) Update(buffer [][]float32) {
	if !b.prepared.Load() || int(b.channel) >= len(buffer) {
		return
	}
	for _, sample := range buffer[b.channel] {
		b.bufferFill[b.fillIndex] = sample
		b.fillIndex++
		if b.fillIndex == len(b.bufferFill) {
			b.blocks.Push(&b.bufferFill)
			b.fillIndex = 0
		}
	}
}

// NumCompleteBuffersAvailable returns how many full blocks are ready.
func (b *SampleBatcher) NumCompleteBuffersAvailable() int {
	return b.blocks.AvailableForReading()
}

// IsPrepared reports whether Prepare has completed.
func (b *SampleBatcher) IsPrepared() bool { return b.prepared.Load() }

// Size returns the configured block size.
func (b *SampleBatcher) Size() int { return int(b.size.Load()) }

// Channel returns the channel this batcher draws from.
func (b *SampleBatcher) Channel() Channel { return b.channel }

// Pull copies the oldest complete block into dst.
func (b *SampleBatcher) Pull(dst *[]float32) bool {
	return b.blocks.Pull(dst)
}
