package camera

import (
	"fmt"
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// View selects the direction Fit looks from.
type View int

const (
	// ViewAuto picks front for flat content and isometric otherwise.
	ViewAuto View = iota
	ViewFront
	ViewIsometric
)

func (v View) String() string {
	switch v {
	case ViewAuto:
		return "auto"
	case ViewFront:
		return "front"
	case ViewIsometric:
		return "isometric"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// ParseView converts a view name to a View.
func ParseView(s string) (View, error) {
	switch s {
	case "auto", "":
		return ViewAuto, nil
	case "front":
		return ViewFront, nil
	case "isometric", "iso":
		return ViewIsometric, nil
	default:
		return 0, fmt.Errorf("unknown view %q", s)
	}
}

// DefaultFOV is the field of view given to fitted perspective cameras.
const DefaultFOV = math.Pi / 4

// FitOptions controls how Fit frames a bounding box.
type FitOptions struct {
	Kind   Kind
	View   View
	Aspect float64 // width / height of the output; <= 0 means 1
	Margin float64 // fraction of the extent added around the content
}

// Fit returns a new camera that frames the axis-aligned box [min, max].
// Every call allocates a fresh camera.
func Fit(min, max math3d.Vec3, opts FitOptions) Camera {
	aspect := opts.Aspect
	if aspect <= 0 {
		aspect = 1
	}

	center := min.Add(max).Scale(0.5)
	size := max.Sub(min)
	radius := size.Len() / 2
	if radius == 0 {
		radius = 1
	}

	view := opts.View
	if view == ViewAuto {
		view = ViewIsometric
		if size.Z <= 1e-6*math.Max(size.X, size.Y) {
			view = ViewFront
		}
	}

	var dir, up math3d.Vec3
	var height float64
	switch view {
	case ViewFront:
		dir = math3d.V3(0, 0, 1)
		up = math3d.Up()
		height = math.Max(size.Y, size.X/aspect)
	default:
		dir = math3d.V3(1, 1, 1).Normalize()
		up = math3d.Up()
		height = 2 * radius / math.Min(aspect, 1)
	}
	if height <= 0 {
		height = 2 * radius
	}
	height *= 1 + opts.Margin

	switch opts.Kind {
	case KindPerspective:
		dist := height / (2 * math.Tan(DefaultFOV/2))
		dist = math.Max(dist, radius*1.5)
		position := center.Add(dir.Scale(dist))
		c := NewPerspective(position, center, up, DefaultFOV)
		c.SetHeight(height)
		return c
	default:
		position := center.Add(dir.Scale(radius * 2))
		return NewOrthographic(position, center, up, height)
	}
}
