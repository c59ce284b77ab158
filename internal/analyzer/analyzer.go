// SPDX-License-Identifier: MIT
/*
Package analyzer runs the UI side of the equalizer on its own goroutine.

On every tick it:
  - rebuilds the response curve when a parameter changed since the last
    tick (observed through a store subscription and an atomic flag),
  - drains both channel batchers into spectrum paths when the analyzer is
    enabled,
  - publishes a Frame to every configured transport.

The audio goroutine never reads anything owned by the analyzer.
*/
package analyzer

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"equalizer/internal/analysis"
	"equalizer/internal/filter"
	applog "equalizer/internal/log"
	"equalizer/internal/params"
	"equalizer/internal/plugin"
	"equalizer/internal/transport"
	"equalizer/pkg/decibels"
)

// Response curve range in dB, top to bottom of the display.
const (
	ResponseMaxDb = 24.0
	ResponseMinDb = -24.0
)

// DefaultRefreshRate is the tick rate in Hz.
const DefaultRefreshRate = 30

// Options configures an Analyzer.
type Options struct {
	Order              analysis.Order
	RefreshRate        float64 // Hz
	NegativeInfinityDb float64
	Bounds             analysis.Rect
	Bands              []analysis.FrequencyBand
}

// DefaultOptions returns 2048-point FFTs at 30 Hz over a 600x300 area.
func DefaultOptions() Options {
	return Options{
		Order:              analysis.DefaultOrder,
		RefreshRate:        DefaultRefreshRate,
		NegativeInfinityDb: analysis.DefaultNegativeInfinityDb,
		Bounds:             analysis.Rect{Width: 600, Height: 300},
		Bands:              analysis.DefaultBands,
	}
}

// Frame is what the analyzer publishes on every tick. Slices are owned by
// the frame.
type Frame struct {
	Sequence      uint64               `json:"seq"`
	Timestamp     int64                `json:"timestamp"`
	SampleRate    float64              `json:"sampleRate"`
	Bounds        analysis.Rect        `json:"bounds"`
	ResponseCurve []analysis.Point     `json:"responseCurve"`
	Left          []analysis.Point     `json:"left,omitempty"`
	Right         []analysis.Point     `json:"right,omitempty"`
	Bands         []analysis.BandLevel `json:"bands,omitempty"`
}

// String summarises the frame for logs.
func (f Frame) String() string {
	return fmt.Sprintf("frame %d: %d-point curve, %d/%d path points, %d bands",
		f.Sequence, len(f.ResponseCurve), len(f.Left), len(f.Right), len(f.Bands))
}

// Status is a point-in-time summary for the terminal monitor.
type Status struct {
	Settings        params.ChainSettings
	Bands           []analysis.BandLevel
	Ticks           uint64
	AnalyzerEnabled bool
	Prepared        bool
}

// Analyzer owns the response-curve chain, one PathProducer per channel and
// the tick loop.
type Analyzer struct {
	proc       *plugin.Processor
	store      *params.Store
	opts       Options
	transports []transport.Transport

	parametersChanged atomic.Bool
	unsubscribe       func()

	// Touched only by the tick goroutine (or by Tick in tests).
	monoChain     *filter.Chain
	left, right   *analysis.PathProducer
	responseCurve analysis.Path
	bands         []analysis.BandLevel
	sequence      uint64
	curveRate     float64

	statusMu sync.RWMutex
	status   Status
	spectrum [2][]float32
	hasFrame [2]bool
	curve    []analysis.Point

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// New returns an analyzer reading from proc. Frames go to every transport.
func New(proc *plugin.Processor, opts Options, transports ...transport.Transport) (*Analyzer, error) {
	if proc == nil {
		return nil, errors.New("analyzer: processor cannot be nil")
	}
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = DefaultRefreshRate
	}
	if opts.Bounds.Width <= 0 || opts.Bounds.Height <= 0 {
		return nil, fmt.Errorf("analyzer: bounds must have a positive size, got %vx%v", opts.Bounds.Width, opts.Bounds.Height)
	}
	if opts.Bands == nil {
		opts.Bands = analysis.DefaultBands
	}

	left, err := analysis.NewPathProducer(proc.LeftBatcher(), opts.Order, opts.NegativeInfinityDb)
	if err != nil {
		return nil, fmt.Errorf("analyzer: left channel: %w", err)
	}
	right, err := analysis.NewPathProducer(proc.RightBatcher(), opts.Order, opts.NegativeInfinityDb)
	if err != nil {
		return nil, fmt.Errorf("analyzer: right channel: %w", err)
	}

	a := &Analyzer{
		proc:       proc,
		store:      proc.Params(),
		opts:       opts,
		transports: transports,
		monoChain:  filter.NewChain(),
		left:       left,
		right:      right,
		responseCurve: analysis.Path{
			Points: make([]analysis.Point, 0, int(opts.Bounds.Width)+1),
		},
	}
	a.unsubscribe = a.store.Subscribe(func(string, float64) {
		a.parametersChanged.Store(true)
	})
	a.parametersChanged.Store(true)

	applog.Infof("Analyzer: Initialized (FFT: %d, Refresh: %.0f Hz, Area: %.0fx%.0f)",
		opts.Order.Size(), opts.RefreshRate, opts.Bounds.Width, opts.Bounds.Height)
	return a, nil
}

// Start launches the tick goroutine. Calling Start while running is a
// no-op.
func (a *Analyzer) Start() {
	a.mu.Lock()
	if a.ticker != nil {
		a.mu.Unlock()
		applog.Warnf("Analyzer: Start called but already running.")
		return
	}
	interval := time.Duration(float64(time.Second) / a.opts.RefreshRate)
	a.ticker = time.NewTicker(interval)
	a.doneChan = make(chan struct{})
	a.stopOnce = sync.Once{}
	ticker, done := a.ticker, a.doneChan
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		applog.Debugf("Analyzer: Tick goroutine started (Interval: %s)", interval)
		for {
			select {
			case <-ticker.C:
				a.Tick()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the tick goroutine and waits for it. Safe to call repeatedly.
func (a *Analyzer) Stop() {
	a.mu.Lock()
	if a.ticker == nil {
		a.mu.Unlock()
		return
	}
	a.stopOnce.Do(func() {
		close(a.doneChan)
		a.ticker.Stop()
		a.ticker = nil
	})
	a.mu.Unlock()
	a.wg.Wait()
	applog.Debugf("Analyzer: Tick goroutine stopped")
}

// Close stops the analyzer, drops the store subscription and closes every
// transport.
func (a *Analyzer) Close() error {
	a.Stop()
	a.unsubscribe()
	var errs []error
	for _, t := range a.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tick runs one analyzer cycle. Start calls it on the tick goroutine; tests
// call it directly. It must not run concurrently with itself.
func (a *Analyzer) Tick() {
	if !a.proc.IsPrepared() {
		return
	}
	sampleRate := a.proc.SampleRate()
	settings := a.store.Snapshot()

	if a.parametersChanged.CompareAndSwap(true, false) || sampleRate != a.curveRate {
		a.curveRate = sampleRate
		a.monoChain.UpdateFilters(settings, sampleRate)
		a.updateResponseCurve(sampleRate)
	}

	var leftUpdated, rightUpdated bool
	if settings.AnalyzerEnabled {
		leftUpdated = a.left.Process(a.opts.Bounds, sampleRate)
		rightUpdated = a.right.Process(a.opts.Bounds, sampleRate)
		if frame, ok := a.left.Spectrum(); ok {
			binWidth := sampleRate / float64(a.left.FFTSize())
			a.bands = analysis.BandLevels(a.bands, a.opts.Bands, frame, binWidth, a.opts.NegativeInfinityDb)
		}
	}

	a.sequence++
	a.updateStatus(settings, leftUpdated, rightUpdated)
	a.publish(settings, sampleRate)
}

// updateResponseCurve samples the mono chain at every pixel column.
func (a *Analyzer) updateResponseCurve(sampleRate float64) {
	b := a.opts.Bounds
	width := int(b.Width)
	pts := a.responseCurve.Points[:0]
	for x := range width {
		freq := analysis.MapToLog10(float64(x)/b.Width, analysis.MinFrequency, analysis.MaxFrequency)
		mag := a.monoChain.MagnitudeForFrequency(freq, sampleRate)
		db := decibels.FromGain(mag, decibels.DefaultMinusInfinity)
		y := analysis.MapLinear(db, ResponseMinDb, ResponseMaxDb, b.Bottom(), b.Y)
		pts = append(pts, analysis.Point{X: b.X + float64(x), Y: y})
	}
	a.responseCurve.Points = pts

	a.statusMu.Lock()
	a.curve = append(a.curve[:0], pts...)
	a.statusMu.Unlock()
	applog.Debugf("Analyzer: Response curve rebuilt (%d points)", len(pts))
}

func (a *Analyzer) updateStatus(settings params.ChainSettings, leftUpdated, rightUpdated bool) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()

	a.status.Settings = settings
	a.status.AnalyzerEnabled = settings.AnalyzerEnabled
	a.status.Prepared = true
	a.status.Ticks = a.sequence
	a.status.Bands = append(a.status.Bands[:0], a.bands...)

	for ch, p := range [2]*analysis.PathProducer{a.left, a.right} {
		updated := leftUpdated
		if ch == 1 {
			updated = rightUpdated
		}
		if !updated {
			continue
		}
		if frame, ok := p.Spectrum(); ok {
			a.spectrum[ch] = append(a.spectrum[ch][:0], frame...)
			a.hasFrame[ch] = true
		}
	}
}

func (a *Analyzer) publish(settings params.ChainSettings, sampleRate float64) {
	if len(a.transports) == 0 {
		return
	}
	frame := Frame{
		Sequence:      a.sequence,
		Timestamp:     time.Now().UnixNano(),
		SampleRate:    sampleRate,
		Bounds:        a.opts.Bounds,
		ResponseCurve: clonePoints(a.responseCurve.Points),
	}
	if settings.AnalyzerEnabled {
		frame.Left = clonePoints(a.left.Path().Points)
		frame.Right = clonePoints(a.right.Path().Points)
		frame.Bands = append([]analysis.BandLevel(nil), a.bands...)
	}
	for _, t := range a.transports {
		if err := t.Send(frame); err != nil {
			applog.Errorf("Analyzer: Error sending frame %d: %v", frame.Sequence, err)
		}
	}
}

func clonePoints(pts []analysis.Point) []analysis.Point {
	if len(pts) == 0 {
		return nil
	}
	return append([]analysis.Point(nil), pts...)
}

// Status returns a copy of the latest status.
func (a *Analyzer) Status() Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	s := a.status
	s.Bands = append([]analysis.BandLevel(nil), a.status.Bands...)
	return s
}

// LatestSpectrum copies the newest decibel frame of channel ch (0 left,
// 1 right) into dst and returns it. ok is false until a frame exists.
func (a *Analyzer) LatestSpectrum(ch int, dst []float32) (frame []float32, ok bool) {
	if ch < 0 || ch > 1 {
		return dst[:0], false
	}
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	if !a.hasFrame[ch] {
		return dst[:0], false
	}
	return append(dst[:0], a.spectrum[ch]...), true
}

// ResponseCurve returns a copy of the current response curve.
func (a *Analyzer) ResponseCurve() []analysis.Point {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return clonePoints(a.curve)
}

// Options returns the configuration the analyzer runs with.
func (a *Analyzer) Options() Options { return a.opts }
