// SPDX-License-Identifier: MIT
package analysis

// DefaultNegativeInfinityDb is the analyzer's silence floor.
const DefaultNegativeInfinityDb = -48.0

// PathProducer drives one channel of the analyzer: it drains the channel's
// block source into a sliding mono buffer of FFTSize samples, produces a
// spectrum per block and keeps the newest path. Call Process from a single
// goroutine.
type PathProducer struct {
	source    BlockSource
	generator *SpectrumGenerator
	paths     *PathGenerator

	negativeInfinityDb float64

	incoming []float32
	mono     []float32
	frame    []float32
	path     Path
	latest   []float32
	hasFrame bool
}

// NewPathProducer returns a producer reading from source.
func NewPathProducer(source BlockSource, order Order, negativeInfinityDb float64) (*PathProducer, error) {
	gen, err := NewSpectrumGenerator(order)
	if err != nil {
		return nil, err
	}
	p := &PathProducer{
		source:             source,
		generator:          gen,
		paths:              NewPathGenerator(gen.NumBins()),
		negativeInfinityDb: negativeInfinityDb,
	}
	p.resize()
	return p, nil
}

func (p *PathProducer) resize() {
	n := p.generator.FFTSize()
	p.mono = make([]float32, n)
	p.frame = make([]float32, n/2)
	p.latest = make([]float32, n/2)
	p.path = Path{Points: make([]Point, 0, n/2/pathResolution+2)}
	p.hasFrame = false
}

// ChangeOrder switches the FFT size. Buffered audio and frames are dropped.
func (p *PathProducer) ChangeOrder(order Order) error {
	if err := p.generator.ChangeOrder(order); err != nil {
		return err
	}
	p.paths.Prepare(p.generator.NumBins())
	p.resize()
	return nil
}

// Process consumes every complete block, generates paths into bounds and
// returns true when a new path is available through Path.
func (p *PathProducer) Process(bounds Rect, sampleRate float64) bool {
	for p.source.NumCompleteBuffersAvailable() > 0 {
		if !p.source.Pull(&p.incoming) {
			break
		}
		p.slide(p.incoming)
		p.generator.ProduceSpectrum(p.mono, p.negativeInfinityDb)
	}

	fftSize := p.generator.FFTSize()
	binWidth := sampleRate / float64(fftSize)
	for p.generator.NumAvailable() > 0 {
		if p.generator.Pull(&p.frame) {
			p.paths.GeneratePath(p.frame, bounds, fftSize, binWidth, p.negativeInfinityDb)
			copy(p.latest, p.frame)
			p.hasFrame = true
		}
	}

	updated := false
	for p.paths.NumAvailable() > 0 {
		if p.paths.Pull(&p.path) {
			updated = true
		}
	}
	return updated
}

// slide shifts the mono buffer left by len(block) and appends block.
func (p *PathProducer) slide(block []float32) {
	n := len(p.mono)
	size := len(block)
	if size >= n {
		copy(p.mono, block[size-n:])
		return
	}
	copy(p.mono, p.mono[size:])
	copy(p.mono[n-size:], block)
}

// Path returns the newest path. The slice is reused by the next Process.
func (p *PathProducer) Path() Path { return p.path }

// Spectrum returns the newest frame and whether one has been produced yet.
// The slice is reused by the next Process.
func (p *PathProducer) Spectrum() ([]float32, bool) { return p.latest, p.hasFrame }

// FFTSize returns the current transform length.
func (p *PathProducer) FFTSize() int { return p.generator.FFTSize() }

// NegativeInfinityDb returns the silence floor used for spectra and paths.
func (p *PathProducer) NegativeInfinityDb() float64 { return p.negativeInfinityDb }
