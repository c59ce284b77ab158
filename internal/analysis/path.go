// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"equalizer/internal/fifo"
)

// Frequency axis of every analyzer display.
const (
	MinFrequency = 20.0
	MaxFrequency = 20000.0
)

// pathResolution is the bin stride between path points.
const pathResolution = 2

// Point is a screen-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the area a path is drawn into. Y grows downwards.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Path is a polyline; the first point starts the path.
type Path struct {
	Points []Point `json:"points"`
}

// Len returns the number of points.
func (p Path) Len() int { return len(p.Points) }

func copyPath(dst *Path, src *Path) {
	fifo.CopySlice(&dst.Points, &src.Points)
}

// MapToLog10 maps a 0..1 proportion onto a logarithmic range.
func MapToLog10(proportion, low, high float64) float64 {
	return math.Exp(math.Log(low) + proportion*(math.Log(high)-math.Log(low)))
}

// MapFromLog10 maps a value in a logarithmic range to 0..1.
func MapFromLog10(value, low, high float64) float64 {
	return math.Log(value/low) / math.Log(high/low)
}

// MapLinear maps v from [srcLow, srcHigh] to [dstLow, dstHigh] without
// clamping.
func MapLinear(v, srcLow, srcHigh, dstLow, dstHigh float64) float64 {
	return dstLow + (v-srcLow)/(srcHigh-srcLow)*(dstHigh-dstLow)
}

// PathGenerator converts spectrum frames to polylines and queues them.
type PathGenerator struct {
	scratch Path
	paths   *fifo.Fifo[Path]
}

// NewPathGenerator returns a generator with pre-sized slots for frames of
// up to maxBins bins.
func NewPathGenerator(maxBins int) *PathGenerator {
	g := &PathGenerator{paths: fifo.New(fifo.Capacity, copyPath)}
	g.Prepare(maxBins)
	return g
}

// Prepare resizes the slots for frames of up to maxBins bins and discards
// queued paths.
func (g *PathGenerator) Prepare(maxBins int) {
	points := maxBins/pathResolution + 2
	g.scratch.Points = make([]Point, 0, points)
	g.paths.Prepare(func(slot *Path) {
		slot.Points = make([]Point, 0, points)
	})
}

// GeneratePath maps frame into bounds and pushes the result. The frame
// holds fftSize/2 decibel bins, binWidth is the Hz spacing between bins.
// Levels map linearly from [negativeInfinityDb, 0] to [bottom, top];
// frequencies map logarithmically from [20 Hz, 20 kHz] to [left, right].
func (g *PathGenerator) GeneratePath(frame []float32, bounds Rect, fftSize int, binWidth, negativeInfinityDb float64) {
	top := bounds.Y
	bottom := bounds.Bottom()
	width := bounds.Width
	numBins := min(fftSize/2, len(frame))

	mapY := func(db float32) float64 {
		y := MapLinear(float64(db), negativeInfinityDb, 0, bottom, top)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return bottom
		}
		return y
	}

	pts := g.scratch.Points[:0]
	if numBins > 0 {
		pts = append(pts, Point{X: bounds.X, Y: mapY(frame[0])})
	}
	for bin := 1; bin < numBins; bin += pathResolution {
		freq := float64(bin) * binWidth
		x := bounds.X + math.Floor(MapFromLog10(freq, MinFrequency, MaxFrequency)*width)
		pts = append(pts, Point{X: x, Y: mapY(frame[bin])})
	}
	g.scratch.Points = pts

	g.paths.Push(&g.scratch)
}

// NumAvailable returns the number of paths ready to Pull.
func (g *PathGenerator) NumAvailable() int { return g.paths.AvailableForReading() }

// Pull copies the oldest path into dst.
func (g *PathGenerator) Pull(dst *Path) bool { return g.paths.Pull(dst) }
