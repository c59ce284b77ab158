// SPDX-License-Identifier: MIT
/*
Package plugin is the boundary between a host and the equalizer core.

A host (the PortAudio engine, the offline renderer or a test) calls
PrepareToPlay before the first block and whenever the sample rate or block
size changes, then ProcessBlock once per block from its audio goroutine.
ProcessBlock reads one parameter snapshot, redesigns both channel chains,
filters the block in place and mirrors it into the per-channel batchers. It
never allocates, locks or logs.
*/
package plugin

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"equalizer/internal/batcher"
	"equalizer/internal/filter"
	applog "equalizer/internal/log"
	"equalizer/internal/params"
)

// Name is reported to hosts.
const Name = "Equalizer"

var (
	// ErrNotPrepared is returned by ProcessBlock before PrepareToPlay.
	ErrNotPrepared = errors.New("processor not prepared")
	// ErrUnsupportedLayout is returned for anything but mono or stereo with
	// matching input and output counts.
	ErrUnsupportedLayout = errors.New("unsupported bus layout")
)

// BusesLayout is the channel count of the main input and output buses.
type BusesLayout struct {
	Inputs  int
	Outputs int
}

// Mono and Stereo are the supported layouts.
var (
	Mono   = BusesLayout{Inputs: 1, Outputs: 1}
	Stereo = BusesLayout{Inputs: 2, Outputs: 2}
)

// Processor owns one filter chain per channel and the two sample batchers
// feeding the analyzer.
type Processor struct {
	store *params.Store

	layout BusesLayout
	chains [2]*filter.Chain

	left  *batcher.SampleBatcher
	right *batcher.SampleBatcher

	// Float64 bits; read by the analyzer goroutine.
	sampleRate atomic.Uint64
	blockSize  atomic.Int64
	prepared   atomic.Bool
}

// New returns a stereo processor reading parameters from store.
func New(store *params.Store) *Processor {
	return &Processor{
		store:  store,
		layout: Stereo,
		chains: [2]*filter.Chain{filter.NewChain(), filter.NewChain()},
		left:   batcher.New(batcher.Left),
		right:  batcher.New(batcher.Right),
	}
}

// IsBusesLayoutSupported reports whether l can be processed.
func (p *Processor) IsBusesLayoutSupported(l BusesLayout) bool {
	return l == Mono || l == Stereo
}

// SetBusesLayout switches the bus layout. Call before PrepareToPlay.
func (p *Processor) SetBusesLayout(l BusesLayout) error {
	if !p.IsBusesLayoutSupported(l) {
		return fmt.Errorf("%w: %d in, %d out", ErrUnsupportedLayout, l.Inputs, l.Outputs)
	}
	p.layout = l
	return nil
}

// BusesLayout returns the active layout.
func (p *Processor) BusesLayout() BusesLayout { return p.layout }

// PrepareToPlay sizes the batchers, resets both chains and designs their
// coefficients. It must not run concurrently with ProcessBlock.
func (p *Processor) PrepareToPlay(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	}
	if maxBlockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", maxBlockSize)
	}
	p.prepared.Store(false)

	p.sampleRate.Store(math.Float64bits(sampleRate))
	p.blockSize.Store(int64(maxBlockSize))

	s := p.store.Snapshot()
	for _, c := range p.chains {
		c.Reset()
		c.UpdateFilters(s, sampleRate)
	}
	p.left.Prepare(maxBlockSize)
	p.right.Prepare(maxBlockSize)

	p.prepared.Store(true)
	applog.Infof("Plugin: Prepared (SampleRate: %.0f Hz, Block: %d, Layout: %d in/%d out)",
		sampleRate, maxBlockSize, p.layout.Inputs, p.layout.Outputs)
	return nil
}

// ProcessBlock filters buffer in place. buffer is laid out [channel][frame];
// channels beyond the input count are cleared.
func (p *Processor) ProcessBlock(buffer [][]float32) error {
	if !p.prepared.Load() {
		return ErrNotPrepared
	}

	for ch := p.layout.Inputs; ch < len(buffer); ch++ {
		clear(buffer[ch])
	}

	s := p.store.Snapshot()
	sampleRate := p.SampleRate()
	n := min(len(buffer), p.layout.Inputs, len(p.chains))
	for ch := range n {
		p.chains[ch].UpdateFilters(s, sampleRate)
		p.chains[ch].Process(buffer[ch])
	}

	p.left.Update(buffer)
	p.right.Update(buffer)
	return nil
}

// ReleaseResources resets the filters and marks the processor unprepared.
// It must not run concurrently with ProcessBlock.
func (p *Processor) ReleaseResources() {
	p.prepared.Store(false)
	for _, c := range p.chains {
		c.Reset()
	}
	applog.Debugf("Plugin: Resources released")
}

// IsPrepared reports whether ProcessBlock may be called.
func (p *Processor) IsPrepared() bool { return p.prepared.Load() }

// SampleRate returns the rate passed to the last PrepareToPlay.
func (p *Processor) SampleRate() float64 {
	return math.Float64frombits(p.sampleRate.Load())
}

// BlockSize returns the block size passed to the last PrepareToPlay.
func (p *Processor) BlockSize() int { return int(p.blockSize.Load()) }

// Params returns the parameter store.
func (p *Processor) Params() *params.Store { return p.store }

// LeftBatcher returns the batcher fed from channel 0.
func (p *Processor) LeftBatcher() *batcher.SampleBatcher { return p.left }

// RightBatcher returns the batcher fed from channel 1.
func (p *Processor) RightBatcher() *batcher.SampleBatcher { return p.right }

// Chain returns the filter chain of channel ch (0 or 1). It belongs to the
// audio goroutine.
func (p *Processor) Chain(ch int) *filter.Chain { return p.chains[ch] }

// AcceptsMIDI is always false.
func (p *Processor) AcceptsMIDI() bool { return false }

// TailLengthSeconds is always zero.
func (p *Processor) TailLengthSeconds() float64 { return 0 }

// State serialises the parameter set.
func (p *Processor) State() ([]byte, error) {
	return p.store.MarshalState()
}

// SetState restores a blob produced by State. On error the parameters are
// left untouched.
func (p *Processor) SetState(data []byte) error {
	if err := p.store.UnmarshalState(data); err != nil {
		applog.Warnf("Plugin: Rejected state: %v", err)
		return err
	}
	return nil
}
