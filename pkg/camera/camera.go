// Package camera holds the viewer's camera model: an eye frame (position,
// look-at point, up vector) plus a projection variant that owns the view
// extent.
package camera

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// MinHeight is the smallest view extent a camera will accept. Zooming never
// drives the height to zero or below.
const MinHeight = 1e-6

// ErrDegenerateBasis is returned when the camera frame cannot produce an
// orthonormal basis: the eye sits on the look-at point, or up is parallel to
// the view direction.
var ErrDegenerateBasis = errors.New("degenerate camera basis")

// parallelTolerance is the sine of the smallest angle accepted between up
// and the view direction.
const parallelTolerance = 1e-9

// Kind identifies the projection variant of a camera.
type Kind int

const (
	KindOrthographic Kind = iota
	KindPerspective
)

func (k Kind) String() string {
	switch k {
	case KindOrthographic:
		return "orthographic"
	case KindPerspective:
		return "perspective"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a projection name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "orthographic", "ortho":
		return KindOrthographic, nil
	case "perspective", "persp":
		return KindPerspective, nil
	default:
		return 0, fmt.Errorf("unknown projection %q", s)
	}
}

// Camera is implemented by every projection variant.
type Camera interface {
	// Frame returns the mutable eye frame. Controllers edit it in place.
	Frame() *Frame
	// Height returns the visible extent at the look-at point.
	Height() float64
	// SetHeight changes the visible extent, clamped to MinHeight.
	SetHeight(h float64)
	// Projection returns the projection matrix for the given aspect and
	// clip distances measured from the eye.
	Projection(aspect, near, far float64) math3d.Mat4
	// Kind reports the projection variant.
	Kind() Kind
}

// Frame is the position and orientation shared by all camera variants.
type Frame struct {
	Position math3d.Vec3
	LookAt   math3d.Vec3
	Up       math3d.Vec3
}

// Basis is the orthonormal frame derived from a camera.
type Basis struct {
	Right     math3d.Vec3
	Direction math3d.Vec3 // unit vector from the eye towards the look-at point
	Up        math3d.Vec3
}

// Basis derives (right, direction, up) from the frame.
func (f *Frame) Basis() (Basis, error) {
	d := f.LookAt.Sub(f.Position)
	dl := d.Len()
	ul := f.Up.Len()
	if dl == 0 || ul == 0 || !d.IsFinite() || !f.Up.IsFinite() {
		return Basis{}, ErrDegenerateBasis
	}

	r := d.Cross(f.Up)
	if r.Len() <= parallelTolerance*dl*ul {
		return Basis{}, ErrDegenerateBasis
	}

	dir := d.Scale(1 / dl)
	right := r.Normalize()
	return Basis{
		Right:     right,
		Direction: dir,
		Up:        right.Cross(dir),
	}, nil
}

// Distance returns the distance from the eye to the look-at point.
func (f *Frame) Distance() float64 {
	return f.Position.Distance(f.LookAt)
}

// ViewMatrix returns the world-to-eye transform.
func (f *Frame) ViewMatrix() (math3d.Mat4, error) {
	if _, err := f.Basis(); err != nil {
		return math3d.Identity(), err
	}
	return math3d.LookAt(f.Position, f.LookAt, f.Up), nil
}

// Orthographic is a parallel projection whose view extent is ViewHeight.
type Orthographic struct {
	Eye        Frame
	ViewHeight float64
}

// NewOrthographic creates an orthographic camera.
func NewOrthographic(position, lookAt, up math3d.Vec3, height float64) *Orthographic {
	c := &Orthographic{Eye: Frame{Position: position, LookAt: lookAt, Up: up}}
	c.SetHeight(height)
	return c
}

func (c *Orthographic) Frame() *Frame   { return &c.Eye }
func (c *Orthographic) Height() float64 { return c.ViewHeight }
func (c *Orthographic) Kind() Kind      { return KindOrthographic }

// SetHeight sets the orthographic view height.
func (c *Orthographic) SetHeight(h float64) {
	c.ViewHeight = clampHeight(h)
}

// Projection returns an orthographic projection sized to the view height.
func (c *Orthographic) Projection(aspect, near, far float64) math3d.Mat4 {
	halfH := c.ViewHeight / 2
	halfW := halfH * aspect
	return math3d.Orthographic(-halfW, halfW, -halfH, halfH, near, far)
}

// Perspective is a pinhole projection with vertical field of view FOV.
type Perspective struct {
	Eye Frame
	FOV float64 // radians
}

const (
	minFOV = 1e-4
	maxFOV = math.Pi - 1e-4
)

// NewPerspective creates a perspective camera.
func NewPerspective(position, lookAt, up math3d.Vec3, fov float64) *Perspective {
	return &Perspective{
		Eye: Frame{Position: position, LookAt: lookAt, Up: up},
		FOV: clampFOV(fov),
	}
}

func (c *Perspective) Frame() *Frame { return &c.Eye }
func (c *Perspective) Kind() Kind    { return KindPerspective }

// Height returns the visible extent at the focal plane through the look-at
// point.
func (c *Perspective) Height() float64 {
	return 2 * c.Eye.Distance() * math.Tan(c.FOV/2)
}

// SetHeight narrows or widens the field of view so that the focal plane shows
// h units. The eye does not move.
func (c *Perspective) SetHeight(h float64) {
	d := c.Eye.Distance()
	if d == 0 {
		return
	}
	c.FOV = clampFOV(2 * math.Atan(clampHeight(h)/(2*d)))
}

// Projection returns a perspective projection for the current field of view.
func (c *Perspective) Projection(aspect, near, far float64) math3d.Mat4 {
	return math3d.Perspective(c.FOV, aspect, near, far)
}

func clampHeight(h float64) float64 {
	if math.IsNaN(h) || h < MinHeight {
		return MinHeight
	}
	return h
}

func clampFOV(fov float64) float64 {
	if math.IsNaN(fov) {
		return minFOV
	}
	return math.Min(math.Max(fov, minFOV), maxFOV)
}
