// SPDX-License-Identifier: MIT
/*
Package analysis implements the analyzer side of the equalizer: FFT spectrum
frames, screen-space paths and per-band levels.

Everything here runs on the analyzer goroutine. The only structures shared
with the audio goroutine are the batcher fifos read through BlockSource.
Steady-state processing (ProduceSpectrum, GeneratePath, PathProducer.Process
after the first call) does not allocate.
*/
package analysis

// BlockSource is the consumer side of a sample batcher: complete mono blocks
// queued by the audio goroutine.
type BlockSource interface {
	// NumCompleteBuffersAvailable returns the number of blocks ready to Pull.
	NumCompleteBuffersAvailable() int
	// Pull copies the oldest block into dst, reusing its backing array.
	Pull(dst *[]float32) bool
}
