// Package control turns screen-space gestures into camera motion: orbiting
// around the look-at point, panning the eye and target together, and zooming
// the view extent.
package control

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/taigrr/lumen/pkg/camera"
	"github.com/taigrr/lumen/pkg/math3d"
)

// Default gesture sensitivities.
const (
	DefaultOrbitSensitivity = -0.0025 // radians per pixel
	DefaultPanSensitivity   = 1.0     // view heights per screen height
	DefaultZoomSensitivity  = 0.0015  // fractional height change per wheel unit
	FineScale               = 0.1     // multiplier applied in fine mode
)

// ErrNilCamera is returned when a controller is bound to no camera.
var ErrNilCamera = errors.New("controller requires a camera")

// Controller mutates one camera in place. It does not own the camera.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	cam      camera.Camera
	orbit    float64
	pan      float64
	zoom     float64
	onChange func()
	logger   *log.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithOrbitSensitivity sets the radians-per-pixel factor used by Orbit.
func WithOrbitSensitivity(s float64) Option {
	return func(c *Controller) { c.orbit = s }
}

// WithPanSensitivity sets the factor applied to pan deltas.
func WithPanSensitivity(s float64) Option {
	return func(c *Controller) { c.pan = s }
}

// WithZoomSensitivity sets the per-unit height change used by Zoom.
func WithZoomSensitivity(s float64) Option {
	return func(c *Controller) { c.zoom = s }
}

// WithOnChange registers a hook that runs after every gesture that moved the
// camera. The render loop uses it to invalidate accumulated samples.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the logger used for gesture diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New binds a controller to cam.
func New(cam camera.Camera, opts ...Option) (*Controller, error) {
	c := &Controller{
		orbit:  DefaultOrbitSensitivity,
		pan:    DefaultPanSensitivity,
		zoom:   DefaultZoomSensitivity,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Bind(cam); err != nil {
		return nil, err
	}
	return c, nil
}

// Bind replaces the controlled camera.
func (c *Controller) Bind(cam camera.Camera) error {
	if cam == nil {
		return ErrNilCamera
	}
	c.cam = cam
	return nil
}

// Camera returns the bound camera.
func (c *Controller) Camera() camera.Camera {
	return c.cam
}

func scaled(s float64, fine bool) float64 {
	if fine {
		return s * FineScale
	}
	return s
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Orbit rotates the eye around the look-at point. yaw turns about the camera
// up axis, pitch about the right axis and roll about the view direction, all
// in screen pixels. The look-at point does not move and the eye keeps its
// distance.
func (c *Controller) Orbit(yaw, pitch, roll float64, fine bool) error {
	if yaw == 0 && pitch == 0 && roll == 0 {
		return nil
	}

	f := c.cam.Frame()
	b, err := f.Basis()
	if err != nil {
		c.logger.Warn("orbit skipped", "err", err, "position", f.Position, "look_at", f.LookAt)
		return fmt.Errorf("orbit: %w", err)
	}

	s := scaled(c.orbit, fine)
	q := math3d.AxisAngle(b.Up, s*yaw).
		Mul(math3d.AxisAngle(b.Right, s*pitch)).
		Mul(math3d.AxisAngle(b.Direction, s*roll))

	f.Position = f.LookAt.Add(q.Rotate(f.Position.Sub(f.LookAt)))
	f.Up = q.Rotate(b.Up)

	c.changed()
	return nil
}

// Pan slides the eye and look-at point together across the view plane.
// x and y are fractions of the screen height; the world distance scales with
// the camera's current view height so panning feels the same at any zoom.
func (c *Controller) Pan(x, y float64, fine bool) error {
	if x == 0 && y == 0 {
		return nil
	}

	f := c.cam.Frame()
	b, err := f.Basis()
	if err != nil {
		c.logger.Warn("pan skipped", "err", err, "position", f.Position, "look_at", f.LookAt)
		return fmt.Errorf("pan: %w", err)
	}

	s := c.cam.Height() * scaled(c.pan, fine)
	delta := b.Right.Scale(x * s).Add(b.Up.Scale(y * s))

	f.Position = f.Position.Add(delta)
	f.LookAt = f.LookAt.Add(delta)

	c.changed()
	return nil
}

// Zoom scales the view height by (1 - amount*sensitivity). Positive amounts
// zoom in. The height never drops below camera.MinHeight.
func (c *Controller) Zoom(amount float64, fine bool) {
	if amount == 0 {
		return
	}

	h := c.cam.Height() * (1 - amount*scaled(c.zoom, fine))
	if h < camera.MinHeight {
		c.logger.Debug("zoom clamped", "requested", h, "min", camera.MinHeight)
	}
	c.cam.SetHeight(h)

	c.changed()
}
