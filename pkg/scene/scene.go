// Package scene holds what the renderer draws: a mesh, the camera looking at
// it, and the lighting and style settings. Every change to the drawn content
// bumps a revision counter so accumulated samples can be discarded.
package scene

import (
	"image/color"

	"github.com/taigrr/lumen/pkg/camera"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
)

// DefaultBackground is the clear color of a new scene.
var DefaultBackground = color.RGBA{R: 20, G: 20, B: 30, A: 255}

// DefaultLightDir points from the surface toward the light.
var DefaultLightDir = math3d.V3(0.5, 1, 0.8).Normalize()

// DefaultMargin is the framing margin used when fitting the camera.
const DefaultMargin = 0.1

// Scene is not safe for concurrent use.
type Scene struct {
	mesh       *models.Mesh
	cam        camera.Camera
	background color.RGBA
	lightDir   math3d.Vec3
	wireframe  bool
	fit        camera.FitOptions
	revision   uint64
}

// Option configures a Scene.
type Option func(*Scene)

// WithCamera uses cam instead of fitting one to the mesh.
func WithCamera(cam camera.Camera) Option {
	return func(s *Scene) { s.cam = cam }
}

// WithProjection selects the projection of fitted cameras.
func WithProjection(k camera.Kind) Option {
	return func(s *Scene) { s.fit.Kind = k }
}

// WithView selects the direction fitted cameras look from.
func WithView(v camera.View) Option {
	return func(s *Scene) { s.fit.View = v }
}

// WithAspect sets the output aspect ratio used when fitting.
func WithAspect(aspect float64) Option {
	return func(s *Scene) { s.fit.Aspect = aspect }
}

// WithMargin sets the fraction of the extent left around fitted content.
func WithMargin(m float64) Option {
	return func(s *Scene) { s.fit.Margin = m }
}

// WithBackground sets the clear color.
func WithBackground(c color.RGBA) Option {
	return func(s *Scene) { s.background = c }
}

// WithLightDir sets the direction toward the light.
func WithLightDir(d math3d.Vec3) Option {
	return func(s *Scene) { s.lightDir = d.Normalize() }
}

// New creates a scene for mesh. A nil mesh is an empty scene. Unless
// WithCamera is given, a fresh camera is fitted to the mesh bounds.
func New(mesh *models.Mesh, opts ...Option) *Scene {
	s := &Scene{
		mesh:       mesh,
		background: DefaultBackground,
		lightDir:   DefaultLightDir,
		fit: camera.FitOptions{
			Kind:   camera.KindOrthographic,
			View:   camera.ViewAuto,
			Margin: DefaultMargin,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mesh == nil {
		s.mesh = models.NewMesh("empty")
	}
	if s.cam == nil {
		s.cam = s.fitCamera()
	}
	return s
}

func (s *Scene) fitCamera() camera.Camera {
	lo, hi := s.mesh.Bounds()
	return camera.Fit(lo, hi, s.fit)
}

// Revision increases on every content change.
func (s *Scene) Revision() uint64 { return s.revision }

func (s *Scene) touch() { s.revision++ }

// Mesh returns the drawn mesh.
func (s *Scene) Mesh() *models.Mesh { return s.mesh }

// SetMesh replaces the mesh. The camera is kept; call ResetCamera to
// reframe.
func (s *Scene) SetMesh(m *models.Mesh) {
	if m == nil {
		m = models.NewMesh("empty")
	}
	s.mesh = m
	s.touch()
}

// Camera returns the scene camera. Mutating it does not bump the revision;
// the caller invalidates the render loop instead.
func (s *Scene) Camera() camera.Camera { return s.cam }

// SetCamera replaces the camera.
func (s *Scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	s.cam = cam
	s.touch()
}

// ResetCamera replaces the camera with a fresh one fitted to the mesh and
// returns it.
func (s *Scene) ResetCamera() camera.Camera {
	s.cam = s.fitCamera()
	s.touch()
	return s.cam
}

// FitOptions returns the options ResetCamera fits with.
func (s *Scene) FitOptions() camera.FitOptions { return s.fit }

// SetAspect changes the aspect ratio later fits use. The current camera is
// unchanged.
func (s *Scene) SetAspect(aspect float64) { s.fit.Aspect = aspect }

// Background returns the clear color.
func (s *Scene) Background() color.RGBA { return s.background }

// SetBackground sets the clear color.
func (s *Scene) SetBackground(c color.RGBA) {
	if c == s.background {
		return
	}
	s.background = c
	s.touch()
}

// LightDir returns the unit direction toward the light.
func (s *Scene) LightDir() math3d.Vec3 { return s.lightDir }

// SetLightDir sets the direction toward the light. Zero vectors are ignored.
func (s *Scene) SetLightDir(d math3d.Vec3) {
	if d.LenSq() == 0 || !d.IsFinite() {
		return
	}
	s.lightDir = d.Normalize()
	s.touch()
}

// Wireframe reports whether edges are drawn instead of shaded faces.
func (s *Scene) Wireframe() bool { return s.wireframe }

// SetWireframe switches between shaded and wireframe drawing.
func (s *Scene) SetWireframe(on bool) {
	if on == s.wireframe {
		return
	}
	s.wireframe = on
	s.touch()
}

// ToggleWireframe flips the drawing mode and returns the new state.
func (s *Scene) ToggleWireframe() bool {
	s.SetWireframe(!s.wireframe)
	return s.wireframe
}
