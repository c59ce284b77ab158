// SPDX-License-Identifier: MIT
package filter

import (
	"math"
	"math/cmplx"
)

// denormalFloor is the magnitude below which delay state snaps to zero.
const denormalFloor = 1e-15

// Stage is one biquad section with its own delay line. A bypassed stage is
// an exact identity and leaves its state untouched.
type Stage struct {
	coeffs   Coefficients
	bypassed bool

	// Direct Form I delay line.
	x1, x2 float64
	y1, y2 float64
}

// NewStage returns an identity stage.
func NewStage() Stage {
	return Stage{coeffs: Identity}
}

// SetCoefficients swaps in a new coefficient set. The delay line is kept so
// that parameter changes do not reset the filter.
func (s *Stage) SetCoefficients(c Coefficients) { s.coeffs = c }

// Coefficients returns the active coefficient set.
func (s *Stage) Coefficients() Coefficients { return s.coeffs }

// SetBypassed toggles the stage.
func (s *Stage) SetBypassed(b bool) { s.bypassed = b }

// Bypassed reports whether the stage is skipped.
func (s *Stage) Bypassed() bool { return s.bypassed }

// Reset clears the delay line.
func (s *Stage) Reset() {
	s.x1, s.x2, s.y1, s.y2 = 0, 0, 0, 0
}

// Process filters block in place. No allocations.
func (s *Stage) Process(block []float32) {
	if s.bypassed {
		return
	}

	c := s.coeffs
	x1, x2, y1, y2 := s.x1, s.x2, s.y1, s.y2
	for i, v := range block {
		x0 := float64(v)
		y0 := c.B0*x0 + c.B1*x1 + c.B2*x2 - c.A1*y1 - c.A2*y2

		x2 = x1
		x1 = x0
		y2 = y1
		y1 = y0

		block[i] = float32(y0)
	}

	s.x1, s.x2 = x1, x2
	s.y1, s.y2 = snap(y1), snap(y2)
}

// MagnitudeForFrequency returns |H(e^jw)| of the section at frequency.
func (c Coefficients) MagnitudeForFrequency(frequency, sampleRate float64) float64 {
	w := 2 * math.Pi * frequency / sampleRate
	z1 := cmplx.Exp(complex(0, -w))
	z2 := z1 * z1

	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return cmplx.Abs(num) / cmplx.Abs(den)
}

func snap(v float64) float64 {
	if math.Abs(v) < denormalFloor {
		return 0
	}
	return v
}
