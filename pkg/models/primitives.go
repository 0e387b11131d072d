package models

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/taigrr/lumen/pkg/math3d"
)

// NewCube creates an axis-aligned cube centered on the origin with flat
// per-face normals.
func NewCube(size float64) *Mesh {
	m := NewMesh("cube")
	h := size / 2

	// normal, u, v with u x v = normal
	sides := [6][3]math3d.Vec3{
		{math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, 1)},
		{math3d.V3(-1, 0, 0), math3d.V3(0, 0, 1), math3d.V3(0, 1, 0)},
		{math3d.V3(0, 1, 0), math3d.V3(0, 0, 1), math3d.V3(1, 0, 0)},
		{math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0, 0, 1)},
		{math3d.V3(0, 0, 1), math3d.V3(1, 0, 0), math3d.V3(0, 1, 0)},
		{math3d.V3(0, 0, -1), math3d.V3(0, 1, 0), math3d.V3(1, 0, 0)},
	}
	for _, s := range sides {
		n, u, v := s[0], s[1].Scale(h), s[2].Scale(h)
		c := n.Scale(h)
		base := m.AddVertex(c.Sub(u).Sub(v), n)
		m.AddVertex(c.Add(u).Sub(v), n)
		m.AddVertex(c.Add(u).Add(v), n)
		m.AddVertex(c.Sub(u).Add(v), n)
		m.AddFace(base, base+1, base+2, -1)
		m.AddFace(base, base+2, base+3, -1)
	}

	m.CalculateBounds()
	return m
}

// NewUVSphere creates a sphere of the given radius centered on the origin.
// segments is the number of longitude slices and rings the number of
// latitude bands.
func NewUVSphere(radius float64, segments, rings int) *Mesh {
	m := NewMesh("sphere")
	appendSphere(m, math3d.Zero3(), radius, segments, rings, -1)
	m.CalculateBounds()
	return m
}

func appendSphere(m *Mesh, center math3d.Vec3, radius float64, segments, rings, material int) {
	segments = max(segments, 3)
	rings = max(rings, 2)

	base := len(m.Vertices)
	for i := 0; i <= rings; i++ {
		sinT, cosT := math.Sincos(math.Pi * float64(i) / float64(rings))
		for j := 0; j <= segments; j++ {
			sinP, cosP := math.Sincos(2 * math.Pi * float64(j) / float64(segments))
			n := math3d.V3(sinT*cosP, cosT, sinT*sinP)
			m.AddVertex(center.Add(n.Scale(radius)), n)
		}
	}

	row := segments + 1
	for i := range rings {
		for j := range segments {
			a := base + i*row + j
			b := a + row
			c := b + 1
			d := a + 1
			if i != rings-1 {
				m.AddFace(a, c, b, material)
			}
			if i != 0 {
				m.AddFace(a, d, c, material)
			}
		}
	}
}

// NewSphereGrid creates an n by n gallery of spheres in the XY plane, each
// with its own hue.
func NewSphereGrid(n int, radius float64) *Mesh {
	n = max(n, 1)
	m := NewMesh(fmt.Sprintf("spheres-%dx%d", n, n))
	spacing := radius * 2.5
	offset := spacing * float64(n-1) / 2

	for row := range n {
		for col := range n {
			idx := row*n + col
			hue := 360 * float64(idx) / float64(n*n)
			c := colorful.Hsv(hue, 0.65, 0.9)
			mat := m.AddMaterial(Material{
				Name:      fmt.Sprintf("sphere-%d", idx),
				BaseColor: [4]float64{c.R, c.G, c.B, 1},
				Roughness: float64(col) / float64(max(n-1, 1)),
				Metallic:  float64(row) / float64(max(n-1, 1)),
			})
			center := math3d.V3(float64(col)*spacing-offset, offset-float64(row)*spacing, 0)
			appendSphere(m, center, radius, 24, 12, mat)
		}
	}

	m.CalculateBounds()
	return m
}
