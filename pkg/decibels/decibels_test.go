// SPDX-License-Identifier: MIT
package decibels

import (
	"math"
	"testing"
)

func TestToGain(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{0, 1},
		{20, 10},
		{-20, 0.1},
		{-100, 0},
		{-140, 0},
	}
	for _, tt := range tests {
		if got := ToGain(tt.db); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ToGain(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestFromGainFloor(t *testing.T) {
	tests := []struct {
		name string
		gain float64
		want float64
	}{
		{"unity", 1, 0},
		{"zero", 0, -100},
		{"negative", -1, -100},
		{"nan", math.NaN(), -100},
		{"below floor", 1e-9, -100},
		{"tenth", 0.1, -20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromGain(tt.gain, -100)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("FromGain(%v) = %v, want %v", tt.gain, got, tt.want)
			}
		})
	}
}
