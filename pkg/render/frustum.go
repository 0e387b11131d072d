package render

import (
	"github.com/taigrr/lumen/pkg/math3d"
)

// Plane is n.p + D = 0 with n pointing into the kept half space.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

func (p *Plane) normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// Distance returns the signed distance from point to the plane.
func (p Plane) Distance(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum is the six clip planes of a view-projection matrix.
type Frustum struct {
	Planes [6]Plane
}

// ExtractFrustum returns the planes of the clip volume of m, which is a
// column-major view-projection matrix (Gribb/Hartmann).
func ExtractFrustum(m math3d.Mat4) Frustum {
	row := func(i int) (math3d.Vec3, float64) {
		return math3d.V3(m[i], m[i+4], m[i+8]), m[i+12]
	}
	n3, d3 := row(3)

	var f Frustum
	for axis := range 3 {
		n, d := row(axis)
		f.Planes[axis*2] = Plane{Normal: n3.Add(n), D: d3 + d}
		f.Planes[axis*2+1] = Plane{Normal: n3.Sub(n), D: d3 - d}
	}
	for i := range f.Planes {
		f.Planes[i].normalize()
	}
	return f
}

// IntersectsAABB reports whether the box is at least partly inside. Boxes
// near a corner may pass without intersecting.
func (f Frustum) IntersectsAABB(min, max math3d.Vec3) bool {
	for _, p := range f.Planes {
		// corner furthest along the plane normal
		v := math3d.V3(
			pick(p.Normal.X >= 0, max.X, min.X),
			pick(p.Normal.Y >= 0, max.Y, min.Y),
			pick(p.Normal.Z >= 0, max.Z, min.Z),
		)
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether the sphere is at least partly inside.
func (f Frustum) IntersectsSphere(center math3d.Vec3, radius float64) bool {
	for _, p := range f.Planes {
		if p.Distance(center) < -radius {
			return false
		}
	}
	return true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
