// SPDX-License-Identifier: MIT
package filter

import "equalizer/internal/params"

// Position indexes the three groups of a Chain.
type Position int

const (
	LowCut Position = iota
	PeakBand
	HighCut
	numPositions
)

// String returns the group name.
func (p Position) String() string {
	switch p {
	case LowCut:
		return "LowCut"
	case PeakBand:
		return "Peak"
	case HighCut:
		return "HighCut"
	default:
		return "Unknown"
	}
}

// CutFilter is a fixed cascade of MaxCutSections biquads. Exactly Active()
// sections run; the others are bypassed.
type CutFilter struct {
	stages [MaxCutSections]Stage
	active int
}

func newCutFilter() CutFilter {
	var c CutFilter
	for i := range c.stages {
		c.stages[i] = NewStage()
		c.stages[i].SetBypassed(true)
	}
	return c
}

// Update swaps in a cascade: the first cc.Count sections are enabled with
// their new coefficients, every other section is bypassed.
func (c *CutFilter) Update(cc CutCoefficients) {
	for i := range c.stages {
		c.stages[i].SetBypassed(true)
	}
	n := min(max(cc.Count, 0), MaxCutSections)
	for i := range n {
		c.stages[i].SetCoefficients(cc.Sections[i])
		c.stages[i].SetBypassed(false)
	}
	c.active = n
}

// Active returns the number of un-bypassed sections.
func (c *CutFilter) Active() int { return c.active }

// Stage returns section i.
func (c *CutFilter) Stage(i int) *Stage { return &c.stages[i] }

// Process runs every un-bypassed section in order.
func (c *CutFilter) Process(block []float32) {
	for i := range c.stages {
		c.stages[i].Process(block)
	}
}

// Reset clears every section's state.
func (c *CutFilter) Reset() {
	for i := range c.stages {
		c.stages[i].Reset()
	}
}

func (c *CutFilter) magnitude(frequency, sampleRate float64) float64 {
	mag := 1.0
	for i := range c.stages {
		if !c.stages[i].Bypassed() {
			mag *= c.stages[i].coeffs.MagnitudeForFrequency(frequency, sampleRate)
		}
	}
	return mag
}

// Chain is the mono processing chain: low cut, peak, high cut. One Chain is
// owned by each channel and touched only by the goroutine that processes it.
type Chain struct {
	lowCut  CutFilter
	peak    Stage
	highCut CutFilter

	bypassed [numPositions]bool
}

// NewChain returns a chain whose sections are all identity.
func NewChain() *Chain {
	return &Chain{
		lowCut:  newCutFilter(),
		peak:    NewStage(),
		highCut: newCutFilter(),
	}
}

// SetBypassed bypasses a whole group.
func (c *Chain) SetBypassed(p Position, bypassed bool) {
	if p >= 0 && p < numPositions {
		c.bypassed[p] = bypassed
	}
}

// IsBypassed reports whether a whole group is bypassed.
func (c *Chain) IsBypassed(p Position) bool {
	if p < 0 || p >= numPositions {
		return false
	}
	return c.bypassed[p]
}

// LowCutFilter exposes the low-cut group.
func (c *Chain) LowCutFilter() *CutFilter { return &c.lowCut }

// HighCutFilter exposes the high-cut group.
func (c *Chain) HighCutFilter() *CutFilter { return &c.highCut }

// PeakStage exposes the peak section.
func (c *Chain) PeakStage() *Stage { return &c.peak }

// Apply swaps in a designed coefficient set and the group bypass flags.
func (c *Chain) Apply(d Design, s params.ChainSettings) {
	c.SetBypassed(LowCut, s.LowCutBypassed)
	c.lowCut.Update(d.LowCut)

	c.SetBypassed(PeakBand, s.PeakBypassed)
	c.peak.SetCoefficients(d.Peak)

	c.SetBypassed(HighCut, s.HighCutBypassed)
	c.highCut.Update(d.HighCut)
}

// UpdateFilters designs coefficients for s and applies them.
func (c *Chain) UpdateFilters(s params.ChainSettings, sampleRate float64) {
	c.Apply(DesignCoefficients(s, sampleRate), s)
}

// Process filters one mono block in place.
func (c *Chain) Process(block []float32) {
	if !c.bypassed[LowCut] {
		c.lowCut.Process(block)
	}
	if !c.bypassed[PeakBand] {
		c.peak.Process(block)
	}
	if !c.bypassed[HighCut] {
		c.highCut.Process(block)
	}
}

// Reset clears all delay lines.
func (c *Chain) Reset() {
	c.lowCut.Reset()
	c.peak.Reset()
	c.highCut.Reset()
}

// MagnitudeForFrequency returns the linear magnitude response of every
// active section at frequency.
func (c *Chain) MagnitudeForFrequency(frequency, sampleRate float64) float64 {
	mag := 1.0
	if !c.bypassed[LowCut] {
		mag *= c.lowCut.magnitude(frequency, sampleRate)
	}
	if !c.bypassed[PeakBand] && !c.peak.Bypassed() {
		mag *= c.peak.coeffs.MagnitudeForFrequency(frequency, sampleRate)
	}
	if !c.bypassed[HighCut] {
		mag *= c.highCut.magnitude(frequency, sampleRate)
	}
	return mag
}
