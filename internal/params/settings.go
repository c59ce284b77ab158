// SPDX-License-Identifier: MIT
/*
Package params owns the user-facing parameter set of the equalizer.

The host layer writes parameters through Store (any goroutine). The audio
goroutine reads a ChainSettings snapshot once per block with Snapshot, which
only performs atomic loads and never allocates. UI code observes changes
through Subscribe or the store generation counter.
*/
package params

import "fmt"

// Slope is the steepness of a cut filter, stored as a choice index.
type Slope int

const (
	Slope12 Slope = iota
	Slope24
	Slope36
	Slope48
)

// Order returns the Butterworth order of the slope: 2, 4, 6 or 8.
func (s Slope) Order() int {
	return 2 * (int(s.clamp()) + 1)
}

// String returns the host-facing label, e.g. "24dB/Oct".
func (s Slope) String() string {
	return fmt.Sprintf("%ddB/Oct", 12+12*int(s.clamp()))
}

func (s Slope) clamp() Slope {
	return min(max(s, Slope12), Slope48)
}

// ChainSettings is the immutable per-block view of every parameter.
type ChainSettings struct {
	PeakFreq    float64 // Hz
	PeakGainDb  float64
	PeakQuality float64

	LowCutFreq  float64 // Hz
	HighCutFreq float64 // Hz

	LowCutSlope  Slope
	HighCutSlope Slope

	LowCutBypassed  bool
	PeakBypassed    bool
	HighCutBypassed bool
	AnalyzerEnabled bool
}

// DefaultChainSettings returns the settings of a freshly created store.
func DefaultChainSettings() ChainSettings {
	return NewStore().Snapshot()
}
