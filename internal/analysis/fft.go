// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"equalizer/internal/fifo"
	"equalizer/pkg/bitint"
	"equalizer/pkg/decibels"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Order is the base-2 logarithm of the FFT size.
type Order int

// Supported FFT sizes.
const (
	Order2048 Order = 11
	Order4096 Order = 12
	Order8192 Order = 13

	DefaultOrder = Order2048
)

// ErrInvalidOrder is returned for an FFT size other than 2048, 4096 or 8192.
var ErrInvalidOrder = errors.New("invalid fft order")

// Size returns 1 << o.
func (o Order) Size() int { return 1 << o }

// Valid reports whether o is one of the supported orders.
func (o Order) Valid() bool { return o >= Order2048 && o <= Order8192 }

// OrderForSize converts an FFT size to an Order.
func OrderForSize(size int) (Order, error) {
	o := Order(bitint.Log2(size))
	if !o.Valid() {
		return 0, fmt.Errorf("%w: size %d", ErrInvalidOrder, size)
	}
	return o, nil
}

// Pre-allocated buffers for one transform.
type fftWorkspace struct {
	input  []float64    // Windowed copy of the block.
	coeffs []complex128 // N/2+1 forward transform outputs.
	window []float64    // Blackman-Harris table, length N.
	frame  []float32    // dB spectrum, length N/2.
}

// SpectrumGenerator turns mono sample blocks into decibel spectra and queues
// them on a fifo. It belongs to the analyzer goroutine; only the fifo is
// safe to share with a single other reader.
type SpectrumGenerator struct {
	order     Order
	fft       *fourier.FFT
	workspace fftWorkspace
	frames    *fifo.Fifo[[]float32]
}

// NewSpectrumGenerator returns a generator for the given order.
func NewSpectrumGenerator(order Order) (*SpectrumGenerator, error) {
	g := &SpectrumGenerator{frames: fifo.NewSlices[float32](fifo.Capacity)}
	if err := g.ChangeOrder(order); err != nil {
		return nil, err
	}
	return g, nil
}

// ChangeOrder rebuilds the transform, window table and fifo for a new size.
// Frames already queued are discarded.
func (g *SpectrumGenerator) ChangeOrder(order Order) error {
	if !order.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOrder, order)
	}
	n := order.Size()

	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	window.BlackmanHarris(win)

	g.order = order
	g.fft = fourier.NewFFT(n)
	g.workspace = fftWorkspace{
		input:  make([]float64, n),
		coeffs: make([]complex128, n/2+1),
		window: win,
		frame:  make([]float32, n/2),
	}
	g.frames.Prepare(fifo.Zeroed[float32](n / 2))
	return nil
}

// ProduceSpectrum transforms the first FFTSize samples of block and pushes
// the resulting frame. Shorter blocks are zero padded. Every bin of the
// frame is finite and no lower than negativeInfinityDb. A full fifo drops
// the frame.
func (g *SpectrumGenerator) ProduceSpectrum(block []float32, negativeInfinityDb float64) {
	ws := &g.workspace
	n := len(ws.input)

	m := min(len(block), n)
	for i := range m {
		ws.input[i] = float64(block[i]) * ws.window[i]
	}
	clear(ws.input[m:])

	g.fft.Coefficients(ws.coeffs, ws.input)

	numBins := float64(len(ws.frame))
	for i := range ws.frame {
		mag := cmplx.Abs(ws.coeffs[i]) / numBins
		if math.IsNaN(mag) || math.IsInf(mag, 0) {
			mag = 0
		}
		ws.frame[i] = float32(decibels.FromGain(mag, negativeInfinityDb))
	}

	g.frames.Push(&ws.frame)
}

// FFTSize returns the transform length.
func (g *SpectrumGenerator) FFTSize() int { return g.order.Size() }

// Order returns the current order.
func (g *SpectrumGenerator) Order() Order { return g.order }

// NumBins returns the number of bins in a frame, FFTSize/2.
func (g *SpectrumGenerator) NumBins() int { return len(g.workspace.frame) }

// NumAvailable returns the number of frames ready to Pull.
func (g *SpectrumGenerator) NumAvailable() int { return g.frames.AvailableForReading() }

// Pull copies the oldest frame into dst.
func (g *SpectrumGenerator) Pull(dst *[]float32) bool { return g.frames.Pull(dst) }
