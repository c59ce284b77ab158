// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	if mt.Last() != nil {
		t.Fatal("Last() on empty transport should be nil")
	}
	for i := range 3 {
		if err := mt.Send(i); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if mt.Len() != 3 || mt.Last() != 2 {
		t.Errorf("Len() = %d, Last() = %v", mt.Len(), mt.Last())
	}
	_ = mt.Close()
	if !mt.Closed {
		t.Error("Close() did not mark the transport closed")
	}
}

func TestSineFloat32ZeroCrossings(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
	}{
		{"A4 Note", 4096, 44100, 440.0},
		{"Middle C", 4096, 44100, 261.63},
		{"High Sample Rate", 4096, 192000, 440.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SineFloat32(tt.frequency, tt.sampleRate, tt.size)
			if len(result) != tt.size {
				t.Fatalf("len = %d, want %d", len(result), tt.size)
			}

			crossings := 0
			for i := 1; i < len(result); i++ {
				if (result[i-1] < 0) != (result[i] < 0) {
					crossings++
				}
			}
			expected := float64(tt.size) * 2 * tt.frequency / tt.sampleRate
			if math.Abs(float64(crossings)-expected) > 0.2*expected {
				t.Errorf("zero crossings = %d, expected about %.1f", crossings, expected)
			}
		})
	}
}

func TestComplexWaveFloat32Bounded(t *testing.T) {
	for _, v := range ComplexWaveFloat32(48000, 2048) {
		if v > 1 || v < -1 {
			t.Fatalf("sample %v exceeds full scale", v)
		}
	}
}

func TestBlocks(t *testing.T) {
	blocks := Blocks(make([]float32, 1000), 256)
	if len(blocks) != 3 {
		t.Fatalf("len(Blocks) = %d, want 3", len(blocks))
	}
	for _, b := range blocks {
		if len(b) != 256 {
			t.Errorf("block len = %d, want 256", len(b))
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, 1024)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-256), 2))
	}

	tests := []struct {
		name     string
		start    int
		end      int
		expected int
	}{
		{"Full Range", 0, len(mags) - 1, 256},
		{"Clamped Range", -5, 5000, 256},
		{"Right Of Peak", 300, 400, 300},
		{"Left Of Peak", 100, 200, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	if got := FindPeakBin([]float32{}, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(empty) = %d, want 0", got)
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(mags, 0, len(mags)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkFindPeakBin(b *testing.B) {
	mags := make([]float32, 4096)
	for i := range mags {
		mags[i] = float32(math.Exp(-0.01 * math.Pow(float64(i-2048), 2)))
	}
	b.ReportAllocs()
	for b.Loop() {
		FindPeakBin(mags, 0, len(mags)-1)
	}
}
