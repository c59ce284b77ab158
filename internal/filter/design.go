// SPDX-License-Identifier: MIT
/*
Package filter holds the per-channel IIR filter chain of the equalizer and
the functions that design its coefficients.

Every design function is pure: identical inputs produce bit-identical
coefficients, which the tests rely on. All designs return value types so
that recomputing coefficients on the audio goroutine never allocates.
*/
package filter

import (
	"math"

	"equalizer/internal/params"
	"equalizer/pkg/decibels"
)

// MaxCutSections is the number of biquads in a cut filter. Four sections
// cover the steepest slope (48 dB/oct, order 8).
const MaxCutSections = 4

// Coefficients is one normalised second-order section (a0 == 1).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// Identity passes samples through unchanged.
var Identity = Coefficients{B0: 1}

// normalise divides every tap by a0.
func normalise(b0, b1, b2, a0, a1, a2 float64) Coefficients {
	inv := 1.0 / a0
	return Coefficients{
		B0: b0 * inv,
		B1: b1 * inv,
		B2: b2 * inv,
		A1: a1 * inv,
		A2: a2 * inv,
	}
}

// Peak designs a peaking-EQ biquad around frequency with the given quality
// and linear gain factor.
func Peak(sampleRate, frequency, quality, gainFactor float64) Coefficients {
	a := math.Sqrt(math.Max(gainFactor, 0))
	omega := 2 * math.Pi * math.Max(frequency, 2) / sampleRate
	alpha := math.Sin(omega) / (quality * 2)
	c2 := -2 * math.Cos(omega)
	alphaTimesA := alpha * a
	alphaOverA := alpha / a

	return normalise(1+alphaTimesA, c2, 1-alphaTimesA, 1+alphaOverA, c2, 1-alphaOverA)
}

// HighPass designs a second-order high-pass section via the bilinear
// transform.
func HighPass(sampleRate, frequency, quality float64) Coefficients {
	n := math.Tan(math.Pi * frequency / sampleRate)
	nSquared := n * n
	invQ := 1 / quality
	c1 := 1 / (1 + invQ*n + nSquared)

	return Coefficients{
		B0: c1,
		B1: c1 * -2,
		B2: c1,
		A1: c1 * 2 * (nSquared - 1),
		A2: c1 * (1 - invQ*n + nSquared),
	}
}

// LowPass designs a second-order low-pass section via the bilinear
// transform.
func LowPass(sampleRate, frequency, quality float64) Coefficients {
	n := 1 / math.Tan(math.Pi*frequency/sampleRate)
	nSquared := n * n
	invQ := 1 / quality
	c1 := 1 / (1 + invQ*n + nSquared)

	return Coefficients{
		B0: c1,
		B1: c1 * 2,
		B2: c1,
		A1: c1 * 2 * (1 - nSquared),
		A2: c1 * (1 - invQ*n + nSquared),
	}
}

// CutCoefficients is a Butterworth cascade. Only the first Count sections
// are meaningful; the rest are Identity.
type CutCoefficients struct {
	Sections [MaxCutSections]Coefficients
	Count    int
}

// butterworthQ returns the quality of section i in an even-order
// Butterworth cascade.
func butterworthQ(i, order int) float64 {
	return 1.0 / (2.0 * math.Cos((2.0*float64(i)+1.0)*math.Pi/(float64(order)*2.0)))
}

func butterworth(order int, section func(q float64) Coefficients) CutCoefficients {
	if order < 2 {
		order = 2
	}
	if order > 2*MaxCutSections {
		order = 2 * MaxCutSections
	}
	order &^= 1

	var cc CutCoefficients
	for i := range cc.Sections {
		cc.Sections[i] = Identity
	}
	cc.Count = order / 2
	for i := range cc.Count {
		cc.Sections[i] = section(butterworthQ(i, order))
	}
	return cc
}

// ButterworthHighPass designs an even-order Butterworth high-pass cascade.
// Orders outside 2..8 are clamped, odd orders rounded down.
func ButterworthHighPass(frequency, sampleRate float64, order int) CutCoefficients {
	return butterworth(order, func(q float64) Coefficients {
		return HighPass(sampleRate, frequency, q)
	})
}

// ButterworthLowPass designs an even-order Butterworth low-pass cascade.
func ButterworthLowPass(frequency, sampleRate float64, order int) CutCoefficients {
	return butterworth(order, func(q float64) Coefficients {
		return LowPass(sampleRate, frequency, q)
	})
}

// Design is the full coefficient set for one chain.
type Design struct {
	LowCut  CutCoefficients
	Peak    Coefficients
	HighCut CutCoefficients
}

// MakePeakFilter designs the peak section from a snapshot.
func MakePeakFilter(s params.ChainSettings, sampleRate float64) Coefficients {
	return Peak(sampleRate, s.PeakFreq, s.PeakQuality, decibels.ToGain(s.PeakGainDb))
}

// MakeLowCutFilter designs the low-cut cascade from a snapshot.
func MakeLowCutFilter(s params.ChainSettings, sampleRate float64) CutCoefficients {
	return ButterworthHighPass(s.LowCutFreq, sampleRate, s.LowCutSlope.Order())
}

// MakeHighCutFilter designs the high-cut cascade from a snapshot.
func MakeHighCutFilter(s params.ChainSettings, sampleRate float64) CutCoefficients {
	return ButterworthLowPass(s.HighCutFreq, sampleRate, s.HighCutSlope.Order())
}

// DesignCoefficients designs every section of a chain from a snapshot.
func DesignCoefficients(s params.ChainSettings, sampleRate float64) Design {
	return Design{
		LowCut:  MakeLowCutFilter(s, sampleRate),
		Peak:    MakePeakFilter(s, sampleRate),
		HighCut: MakeHighCutFilter(s, sampleRate),
	}
}
