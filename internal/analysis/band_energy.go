// SPDX-License-Identifier: MIT
package analysis

import "math"

// FrequencyBand names a frequency range of the level meter.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands covers the audible range in six bands.
var DefaultBands = []FrequencyBand{
	{Name: "sub", LowHz: 20, HighHz: 60},
	{Name: "bass", LowHz: 60, HighHz: 250},
	{Name: "lowMid", LowHz: 250, HighHz: 500},
	{Name: "mid", LowHz: 500, HighHz: 2000},
	{Name: "highMid", LowHz: 2000, HighHz: 4000},
	{Name: "treble", LowHz: 4000, HighHz: 20000},
}

// BandLevel is the average level of one band in dB.
type BandLevel struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

// BandLevels averages a decibel frame per band. Bins are averaged in the
// power domain and converted back to dB. Bands with no bins (e.g. above
// Nyquist) report negativeInfinityDb. dst is reused when large enough.
func BandLevels(dst []BandLevel, bands []FrequencyBand, frame []float32, binWidth, negativeInfinityDb float64) []BandLevel {
	if cap(dst) < len(bands) {
		dst = make([]BandLevel, len(bands))
	}
	dst = dst[:len(bands)]

	for i, band := range bands {
		var energy float64
		var numBins int
		first := max(int(math.Ceil(band.LowHz/binWidth)), 0)
		for bin := first; bin < len(frame); bin++ {
			if float64(bin)*binWidth >= band.HighHz {
				break
			}
			energy += math.Pow(10, float64(frame[bin])/10)
			numBins++
		}

		level := negativeInfinityDb
		if numBins > 0 && energy > 0 {
			level = max(10*math.Log10(energy/float64(numBins)), negativeInfinityDb)
		}
		dst[i] = BandLevel{Name: band.Name, Level: level}
	}
	return dst
}
