// SPDX-License-Identifier: MIT
package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Parameter identifiers as seen by hosts and preset files.
const (
	IDLowCutFreq      = "LowCut Freq"
	IDHighCutFreq     = "HighCut Freq"
	IDPeakFreq        = "Peak Freq"
	IDPeakGain        = "Peak Gain"
	IDPeakQuality     = "Peak Quality"
	IDLowCutSlope     = "LowCut Slope"
	IDHighCutSlope    = "HighCut Slope"
	IDLowCutBypassed  = "LowCut Bypassed"
	IDPeakBypassed    = "Peak Bypassed"
	IDHighCutBypassed = "HighCut Bypassed"
	IDAnalyzerEnabled = "Analyzer Enabled"
)

// Fixed slots; Snapshot indexes by these to stay allocation-free.
const (
	idxLowCutFreq = iota
	idxHighCutFreq
	idxPeakFreq
	idxPeakGain
	idxPeakQuality
	idxLowCutSlope
	idxHighCutSlope
	idxLowCutBypassed
	idxPeakBypassed
	idxHighCutBypassed
	idxAnalyzerEnabled
	numParameters
)

var (
	// ErrUnknownParameter is returned for an identifier not in the layout.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrOutOfRange is returned for a plain value outside a parameter's range.
	ErrOutOfRange = errors.New("parameter value out of range")
)

// Kind tells hosts how to present a parameter.
type Kind int

const (
	KindFloat Kind = iota
	KindChoice
	KindBool
)

// Parameter is one automatable value. The plain value is stored as float64
// bits in an atomic so any goroutine may read it without locking.
type Parameter struct {
	ID      string
	Kind    Kind
	Min     float64
	Max     float64
	Step    float64 // 0 means continuous
	Skew    float64 // 1 is linear; <1 expands the low end
	Default float64
	Choices []string

	value atomic.Uint64
}

// Value returns the current plain value.
func (p *Parameter) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

func (p *Parameter) store(v float64) {
	p.value.Store(math.Float64bits(v))
}

// Validate checks a plain value against the range and returns it snapped to
// the step grid.
func (p *Parameter) Validate(v float64) (float64, error) {
	if math.IsNaN(v) || v < p.Min || v > p.Max {
		return 0, fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrOutOfRange, p.ID, v, p.Min, p.Max)
	}
	return p.snap(v), nil
}

func (p *Parameter) snap(v float64) float64 {
	if p.Step > 0 {
		v = p.Min + p.Step*math.Round((v-p.Min)/p.Step)
	}
	return min(max(v, p.Min), p.Max)
}

// Normalize maps a plain value to 0..1 honouring the skew.
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	proportion := (min(max(plain, p.Min), p.Max) - p.Min) / (p.Max - p.Min)
	if p.Skew > 0 && p.Skew != 1 {
		proportion = math.Pow(proportion, p.Skew)
	}
	return proportion
}

// Denormalize maps 0..1 back to a snapped plain value.
func (p *Parameter) Denormalize(normalized float64) float64 {
	normalized = min(max(normalized, 0), 1)
	if p.Skew > 0 && p.Skew != 1 && normalized > 0 {
		normalized = math.Exp(math.Log(normalized) / p.Skew)
	}
	return p.snap(p.Min + (p.Max-p.Min)*normalized)
}

// Format renders a plain value the way a host would display it.
func (p *Parameter) Format(plain float64) string {
	switch p.Kind {
	case KindBool:
		if plain > 0.5 {
			return "On"
		}
		return "Off"
	case KindChoice:
		i := int(math.Round(plain))
		if i >= 0 && i < len(p.Choices) {
			return p.Choices[i]
		}
	}
	switch p.ID {
	case IDLowCutFreq, IDHighCutFreq, IDPeakFreq:
		if plain >= 1000 {
			return strconv.FormatFloat(plain/1000, 'f', 2, 64) + " kHz"
		}
		return strconv.FormatFloat(plain, 'f', 0, 64) + " Hz"
	case IDPeakGain:
		return strconv.FormatFloat(plain, 'f', 1, 64) + " dB"
	}
	return strconv.FormatFloat(plain, 'f', 2, 64)
}

func frequency(id string, def float64) *Parameter {
	return &Parameter{ID: id, Kind: KindFloat, Min: 20, Max: 20000, Step: 1, Skew: 0.25, Default: def}
}

func slope(id string) *Parameter {
	choices := make([]string, 0, 4)
	for s := Slope12; s <= Slope48; s++ {
		choices = append(choices, s.String())
	}
	return &Parameter{ID: id, Kind: KindChoice, Min: 0, Max: 3, Step: 1, Skew: 1, Choices: choices}
}

func toggle(id string, def bool) *Parameter {
	d := 0.0
	if def {
		d = 1
	}
	return &Parameter{ID: id, Kind: KindBool, Min: 0, Max: 1, Step: 1, Skew: 1, Default: d}
}

// Layout returns a fresh parameter set in slot order, with every value at
// its default.
func Layout() []*Parameter {
	ps := []*Parameter{
		idxLowCutFreq:      frequency(IDLowCutFreq, 20),
		idxHighCutFreq:     frequency(IDHighCutFreq, 20000),
		idxPeakFreq:        frequency(IDPeakFreq, 750),
		idxPeakGain:        {ID: IDPeakGain, Kind: KindFloat, Min: -24, Max: 24, Step: 0.5, Skew: 1, Default: 0},
		idxPeakQuality:     {ID: IDPeakQuality, Kind: KindFloat, Min: 0.1, Max: 10, Step: 0.05, Skew: 1, Default: 1},
		idxLowCutSlope:     slope(IDLowCutSlope),
		idxHighCutSlope:    slope(IDHighCutSlope),
		idxLowCutBypassed:  toggle(IDLowCutBypassed, false),
		idxPeakBypassed:    toggle(IDPeakBypassed, false),
		idxHighCutBypassed: toggle(IDHighCutBypassed, false),
		idxAnalyzerEnabled: toggle(IDAnalyzerEnabled, true),
	}
	for _, p := range ps {
		p.store(p.Default)
	}
	return ps
}
