// SPDX-License-Identifier: MIT
// Package decibels converts between linear gain and decibels with an
// explicit silence floor, so that zero gain maps to a finite value.
package decibels

import "math"

// DefaultMinusInfinity is the floor used when callers do not pick one.
const DefaultMinusInfinity = -100.0

// ToGain converts decibels to a linear gain. Values at or below
// DefaultMinusInfinity map to 0.
func ToGain(db float64) float64 {
	if db <= DefaultMinusInfinity {
		return 0
	}
	return math.Pow(10, db*0.05)
}

// FromGain converts a linear gain to decibels, never returning less than
// minusInfinity. Non-positive and NaN gains return minusInfinity.
func FromGain(gain, minusInfinity float64) float64 {
	if !(gain > 0) {
		return minusInfinity
	}
	db := 20 * math.Log10(gain)
	if db < minusInfinity || math.IsNaN(db) {
		return minusInfinity
	}
	return db
}
