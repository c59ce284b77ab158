// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport records everything sent to it instead of transmitting.
type MockTransport struct {
	mu     sync.Mutex
	Frames []any
	Closed bool
}

// Send stores data for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Len returns the number of frames received so far.
func (m *MockTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

// Last returns the most recent frame, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Frames) == 0 {
		return nil
	}
	return m.Frames[len(m.Frames)-1]
}

// SineFloat32 returns n samples of a unit-amplitude sine.
func SineFloat32(frequency, sampleRate float64, n int) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2 * math.Pi * frequency * t))
	}
	return buffer
}

// ComplexWaveFloat32 returns a 440 Hz tone with two harmonics, peaking
// below full scale.
func ComplexWaveFloat32(sampleRate float64, n int) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2)
	}
	return buffer
}

// Blocks splits signal into consecutive blocks of blockSize, dropping any
// trailing partial block.
func Blocks(signal []float32, blockSize int) [][]float32 {
	out := make([][]float32, 0, len(signal)/blockSize)
	for i := 0; i+blockSize <= len(signal); i += blockSize {
		out = append(out, signal[i:i+blockSize])
	}
	return out
}

// FindPeakBin returns the index of the largest value in values[startBin:endBin+1].
func FindPeakBin[F ~float32 | ~float64](values []F, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(values)-1)

	peakBin := startBin
	peakValue := values[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}
	return peakBin
}
