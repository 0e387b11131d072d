package render

import (
	"cmp"
	"math"
	"slices"

	"github.com/taigrr/lumen/pkg/camera"
	"github.com/taigrr/lumen/pkg/math3d"
)

type axis struct {
	dir   math3d.Vec3
	color Color
}

// DrawAxes draws the world X, Y and Z axes as seen by cam in the bottom-left
// corner of fb. size is the axis length in pixels.
func DrawAxes(fb *Framebuffer, cam camera.Camera, size int) error {
	basis, err := cam.Frame().Basis()
	if err != nil {
		return err
	}
	if size <= 0 || fb.Width <= 2*size || fb.Height <= 2*size {
		return nil
	}

	ox, oy := size+1, fb.Height-size-2
	axes := []axis{
		{math3d.V3(1, 0, 0), ColorRed},
		{math3d.V3(0, 1, 0), ColorGreen},
		{math3d.V3(0, 0, 1), ColorBlue},
	}
	// Axes pointing away from the viewer go first so nearer ones overdraw them.
	slices.SortStableFunc(axes, func(a, b axis) int {
		return cmp.Compare(basis.Direction.Dot(b.dir), basis.Direction.Dot(a.dir))
	})

	for _, a := range axes {
		x := a.dir.Dot(basis.Right) * float64(size)
		y := -a.dir.Dot(basis.Up) * float64(size)
		fb.DrawLine(ox, oy, ox+int(math.Round(x)), oy+int(math.Round(y)), a.color)
	}
	return nil
}
