package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/lumen/pkg/camera"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/models"
	"github.com/taigrr/lumen/pkg/scene"
)

// DefaultMaxPasses is the number of jittered passes after which the image is
// considered converged.
const DefaultMaxPasses = 64

// DefaultAmbient is the light every surface receives regardless of normal.
const DefaultAmbient = 0.25

// ErrNilScene is returned by Render without a scene.
var ErrNilScene = errors.New("render: nil scene")

// Rasterizer is a progressive renderer. Each Render draws the scene once
// with a sub-pixel jitter, adds it to the accumulated samples and resolves
// their average, so edges smooth out while the camera rests.
type Rasterizer struct {
	maxPasses int
	workers   int
	ambient   float64
	logger    *log.Logger

	acc   *Accumulator
	fb    *Framebuffer
	color []math3d.Vec3 // samples of the pass in progress
	depth []float64
	verts []screenVertex
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithMaxPasses caps the number of accumulated passes. 0 means unlimited.
func WithMaxPasses(n int) Option {
	return func(r *Rasterizer) { r.maxPasses = max(n, 0) }
}

// WithWorkers sets how many row bands are drawn at once. 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Rasterizer) { r.workers = max(n, 0) }
}

// WithAmbient sets the ambient light level in [0, 1].
func WithAmbient(a float64) Option {
	return func(r *Rasterizer) { r.ambient = math.Max(0, math.Min(1, a)) }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(r *Rasterizer) { r.logger = l }
}

// NewRasterizer creates a rasterizer with a width x height pixel output.
func NewRasterizer(width, height int, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		maxPasses: DefaultMaxPasses,
		ambient:   DefaultAmbient,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	r.Resize(width, height)
	return r
}

// Resize reallocates every buffer for the new output size and drops the
// accumulated samples.
func (r *Rasterizer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	r.fb = NewFramebuffer(width, height)
	r.acc = NewAccumulator(width, height)
	r.color = make([]math3d.Vec3, width*height)
	r.depth = make([]float64, width*height)
	r.logger.Debug("rasterizer resized", "width", width, "height", height)
}

// Reset drops the accumulated samples. The last resolved frame stays in the
// framebuffer until the next Render.
func (r *Rasterizer) Reset() {
	r.acc.Reset()
}

// Size returns the output size in pixels.
func (r *Rasterizer) Size() (width, height int) {
	return r.fb.Width, r.fb.Height
}

// Passes returns the number of passes accumulated since the last reset.
func (r *Rasterizer) Passes() int {
	return r.acc.Passes()
}

// MaxPasses returns the pass cap, 0 if unlimited.
func (r *Rasterizer) MaxPasses() int {
	return r.maxPasses
}

// Converged reports whether the pass cap has been reached.
func (r *Rasterizer) Converged() bool {
	return r.maxPasses > 0 && r.acc.Passes() >= r.maxPasses
}

// Render adds one pass and returns the resolved average. Once converged it
// returns the current frame without drawing.
func (r *Rasterizer) Render(s *scene.Scene) (*Framebuffer, error) {
	if s == nil {
		return nil, ErrNilScene
	}
	w, h := r.fb.Width, r.fb.Height
	if w == 0 || h == 0 || r.Converged() {
		return r.fb, nil
	}

	mesh := s.Mesh()
	cam := s.Camera()
	view, err := cam.Frame().ViewMatrix()
	if err != nil {
		return nil, fmt.Errorf("view: %w", err)
	}
	near, far := clipRange(cam.Frame(), mesh)
	viewProj := cam.Projection(float64(w)/float64(h), near, far).Mul(view)

	pass := r.acc.Passes()
	jx, jy := halton(pass+1, 2)-0.5, halton(pass+1, 3)-0.5

	visible := mesh.TriangleCount() > 0 && ExtractFrustum(viewProj).IntersectsAABB(mesh.Bounds())
	if visible {
		r.project(mesh, viewProj, jx, jy, s.LightDir())
	}

	bg := rgbaToLinear(s.Background())
	wire := s.Wireframe()
	bandRows := max(1, (h+r.bandCount()-1)/r.bandCount())

	var g errgroup.Group
	g.SetLimit(r.workerCount())
	for y0 := 0; y0 < h; y0 += bandRows {
		y1 := min(y0+bandRows, h)
		g.Go(func() error {
			r.renderBand(mesh, visible, wire, bg, y0, y1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.acc.Commit()
	if r.Converged() {
		r.logger.Debug("converged", "passes", r.acc.Passes())
	}
	return r.fb, nil
}

func (r *Rasterizer) workerCount() int {
	if r.workers > 0 {
		return r.workers
	}
	return runtime.GOMAXPROCS(0)
}

// bandCount splits the rows into a few bands per worker so uneven bands
// balance out.
func (r *Rasterizer) bandCount() int {
	return r.workerCount() * 2
}

// screenVertex is a mesh vertex after projection and lighting.
type screenVertex struct {
	X, Y  float64 // pixel coordinates
	Z     float64 // NDC depth
	Light float64 // diffuse + ambient intensity
	OK    bool    // in front of the eye
}

// project transforms every mesh vertex to jittered screen space and lights it.
func (r *Rasterizer) project(mesh *models.Mesh, viewProj math3d.Mat4, jx, jy float64, lightDir math3d.Vec3) {
	w, h := float64(r.fb.Width), float64(r.fb.Height)
	if cap(r.verts) < len(mesh.Vertices) {
		r.verts = make([]screenVertex, len(mesh.Vertices))
	}
	r.verts = r.verts[:len(mesh.Vertices)]

	for i, v := range mesh.Vertices {
		clip := viewProj.MulVec4(math3d.V4FromV3(v.Position, 1))
		sv := &r.verts[i]
		if clip.W <= 0 {
			*sv = screenVertex{}
			continue
		}
		ndc := clip.PerspectiveDivide()
		sv.X = (ndc.X+1)*0.5*w + jx
		sv.Y = (1-ndc.Y)*0.5*h + jy // Y flipped
		sv.Z = ndc.Z
		sv.Light = r.ambient + (1-r.ambient)*math.Max(0, v.Normal.Dot(lightDir))
		sv.OK = true
	}
}

// renderBand draws rows [y0, y1) of one pass and folds them into the
// accumulator and framebuffer.
func (r *Rasterizer) renderBand(mesh *models.Mesh, visible, wire bool, bg math3d.Vec3, y0, y1 int) {
	w := r.fb.Width
	lo, hi := y0*w, y1*w
	for i := lo; i < hi; i++ {
		r.color[i] = bg
		r.depth[i] = math.Inf(1)
	}

	if visible {
		for fi, f := range mesh.Faces {
			a, b, c := &r.verts[f.V[0]], &r.verts[f.V[1]], &r.verts[f.V[2]]
			if !a.OK || !b.OK || !c.OK {
				continue
			}
			base := baseColorLinear(mesh.FaceMaterial(fi).BaseColor)
			if wire {
				r.drawEdge(a, b, base, y0, y1)
				r.drawEdge(b, c, base, y0, y1)
				r.drawEdge(c, a, base, y0, y1)
				continue
			}
			r.fillTriangle(a, b, c, base, y0, y1)
		}
	}

	for i := lo; i < hi; i++ {
		r.acc.Add(i, r.color[i])
		r.fb.Pixels[i] = linearToRGBA(r.acc.Mean(i, true))
	}
}

// fillTriangle draws a depth-tested Gouraud-lit triangle clipped to rows
// [y0, y1).
func (r *Rasterizer) fillTriangle(a, b, c *screenVertex, base math3d.Vec3, y0, y1 int) {
	area := edge(a.X, a.Y, b.X, b.Y, c.X, c.Y)
	if math.Abs(area) < 1e-12 {
		return
	}

	w := r.fb.Width
	minX := max(0, int(math.Floor(min(a.X, b.X, c.X))))
	maxX := min(w-1, int(math.Ceil(max(a.X, b.X, c.X))))
	minY := max(y0, int(math.Floor(min(a.Y, b.Y, c.Y))))
	maxY := min(y1-1, int(math.Ceil(max(a.Y, b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			bc := barycentric(a, b, c, area, px, py)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}

			z := bc.X*a.Z + bc.Y*b.Z + bc.Z*c.Z
			i := y*w + x
			if z < -1 || z > 1 || z >= r.depth[i] {
				continue
			}
			r.depth[i] = z
			light := bc.X*a.Light + bc.Y*b.Light + bc.Z*c.Light
			r.color[i] = base.Scale(light)
		}
	}
}

// drawEdge plots the part of a projected edge that falls in rows [y0, y1).
func (r *Rasterizer) drawEdge(a, b *screenVertex, col math3d.Vec3, y0, y1 int) {
	w := r.fb.Width
	if max(a.Y, b.Y) < float64(y0) || min(a.Y, b.Y) >= float64(y1) ||
		max(a.X, b.X) < 0 || min(a.X, b.X) >= float64(w) {
		return
	}
	// Edges running far off screen would cost a long walk for nothing.
	limit := 8 * float64(w+r.fb.Height)
	if math.Abs(a.X-b.X)+math.Abs(a.Y-b.Y) > limit {
		return
	}

	bresenham(int(math.Floor(a.X)), int(math.Floor(a.Y)), int(math.Floor(b.X)), int(math.Floor(b.Y)), func(x, y int) {
		if x < 0 || x >= w || y < y0 || y >= y1 {
			return
		}
		r.color[y*w+x] = col
	})
}

// edge is twice the signed area of triangle (a, b, p).
func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// barycentric returns the weights of a, b and c at (px, py). area is
// edge(a, b, c) and must be non-zero. Either winding works.
func barycentric(a, b, c *screenVertex, area, px, py float64) math3d.Vec3 {
	wa := edge(b.X, b.Y, c.X, c.Y, px, py) / area
	wb := edge(c.X, c.Y, a.X, a.Y, px, py) / area
	return math3d.V3(wa, wb, 1-wa-wb)
}

// clipRange picks near and far planes that enclose the mesh as seen from f.
func clipRange(f *camera.Frame, mesh *models.Mesh) (near, far float64) {
	lo, hi := mesh.Bounds()
	center := lo.Add(hi).Scale(0.5)
	radius := math.Max(hi.Sub(lo).Len()/2, 1e-3) * 1.05

	dir := f.LookAt.Sub(f.Position).Normalize()
	d := center.Sub(f.Position).Dot(dir)
	far = math.Max(d+radius, 1e-2)
	near = d - radius
	// Perspective needs a positive near plane; a tiny fraction of far keeps
	// depth precision usable.
	near = math.Max(near, far*1e-3)
	return near, far
}

// halton returns element i of the van der Corput sequence in base b.
func halton(i, b int) float64 {
	f, v := 1.0, 0.0
	for i > 0 {
		f /= float64(b)
		v += f * float64(i%b)
		i /= b
	}
	return v
}
