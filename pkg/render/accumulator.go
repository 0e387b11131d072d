package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/taigrr/lumen/pkg/math3d"
)

// Accumulator keeps the running per-pixel sum of linear RGB samples across
// passes. Rows are independent, so disjoint row ranges may be written
// concurrently.
type Accumulator struct {
	Width, Height int
	sum           []math3d.Vec3
	passes        int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator(width, height int) *Accumulator {
	a := &Accumulator{}
	a.Resize(width, height)
	return a
}

// Resize reallocates the buffer and drops all samples.
func (a *Accumulator) Resize(width, height int) {
	a.Width, a.Height = max(width, 0), max(height, 0)
	a.sum = make([]math3d.Vec3, a.Width*a.Height)
	a.passes = 0
}

// Reset drops all samples.
func (a *Accumulator) Reset() {
	clear(a.sum)
	a.passes = 0
}

// Passes returns the number of committed passes.
func (a *Accumulator) Passes() int { return a.passes }

// Add adds a sample to pixel i of the pass in progress.
func (a *Accumulator) Add(i int, c math3d.Vec3) {
	a.sum[i] = a.sum[i].Add(c)
}

// Commit closes the pass in progress.
func (a *Accumulator) Commit() { a.passes++ }

// Mean returns the average of committed samples at pixel i. pending counts
// a pass that has been added but not committed yet.
func (a *Accumulator) Mean(i int, pending bool) math3d.Vec3 {
	n := a.passes
	if pending {
		n++
	}
	if n == 0 {
		return math3d.Vec3{}
	}
	return a.sum[i].Scale(1 / float64(n))
}

// linearToRGBA encodes a linear RGB color as opaque sRGB.
func linearToRGBA(c math3d.Vec3) color.RGBA {
	r, g, b := colorful.LinearRgb(c.X, c.Y, c.Z).Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}

// rgbaToLinear decodes an sRGB color to linear RGB.
func rgbaToLinear(c color.RGBA) math3d.Vec3 {
	r, g, b := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}.LinearRgb()
	return math3d.V3(r, g, b)
}

// baseColorLinear converts a material base color, given in sRGB 0-1
// components, to linear RGB.
func baseColorLinear(c [4]float64) math3d.Vec3 {
	r, g, b := colorful.Color{R: c[0], G: c[1], B: c[2]}.LinearRgb()
	return math3d.V3(r, g, b)
}
