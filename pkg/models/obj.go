package models

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/taigrr/lumen/pkg/math3d"
)

// ErrMalformedOBJ is wrapped by every OBJ parse error.
var ErrMalformedOBJ = errors.New("malformed obj")

// LoadOBJ loads a Wavefront OBJ file. Materials named by usemtl take their
// diffuse color from the mtllib files next to the model when present.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj: %w", err)
	}
	defer f.Close()

	p := newOBJParser(filepath.Base(path))
	if err := p.parse(f); err != nil {
		return nil, err
	}

	colors := make(map[string][4]float64)
	for _, lib := range p.mtllibs {
		if err := readMTL(filepath.Join(filepath.Dir(path), lib), colors); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return p.finish(colors), nil
}

// ReadOBJ parses OBJ data from r. Material libraries are not resolved.
func ReadOBJ(name string, r io.Reader) (*Mesh, error) {
	p := newOBJParser(name)
	if err := p.parse(r); err != nil {
		return nil, err
	}
	return p.finish(nil), nil
}

type objKey struct{ v, n int }

type objParser struct {
	mesh      *Mesh
	positions []math3d.Vec3
	normals   []math3d.Vec3
	verts     map[objKey]int
	materials map[string]int
	material  int
	mtllibs   []string
}

func newOBJParser(name string) *objParser {
	return &objParser{
		mesh:      NewMesh(name),
		verts:     make(map[objKey]int),
		materials: make(map[string]int),
		material:  -1,
	}
}

func (p *objParser) parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := p.directive(fields); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrMalformedOBJ, line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read obj: %w", err)
	}
	return nil
}

func (p *objParser) directive(fields []string) error {
	switch fields[0] {
	case "v":
		v, err := parseVec3(fields[1:])
		if err != nil {
			return err
		}
		p.positions = append(p.positions, v)
	case "vn":
		v, err := parseVec3(fields[1:])
		if err != nil {
			return err
		}
		p.normals = append(p.normals, v.Normalize())
	case "f":
		return p.face(fields[1:])
	case "usemtl":
		if len(fields) < 2 {
			return errors.New("usemtl without a name")
		}
		p.useMaterial(fields[1])
	case "mtllib":
		p.mtllibs = append(p.mtllibs, fields[1:]...)
	}
	// vt, o, g, s and unknown statements carry nothing we draw.
	return nil
}

func (p *objParser) useMaterial(name string) {
	idx, ok := p.materials[name]
	if !ok {
		mat := DefaultMaterial
		mat.Name = name
		idx = p.mesh.AddMaterial(mat)
		p.materials[name] = idx
	}
	p.material = idx
}

// face triangulates a polygon as a fan around its first corner.
func (p *objParser) face(corners []string) error {
	if len(corners) < 3 {
		return fmt.Errorf("face with %d vertices", len(corners))
	}
	idx := make([]int, len(corners))
	for i, c := range corners {
		vi, err := p.corner(c)
		if err != nil {
			return err
		}
		idx[i] = vi
	}
	for i := 1; i+1 < len(idx); i++ {
		p.mesh.AddFace(idx[0], idx[i], idx[i+1], p.material)
	}
	return nil
}

// corner resolves a v, v/vt, v//vn or v/vt/vn reference to a mesh vertex.
func (p *objParser) corner(ref string) (int, error) {
	parts := strings.Split(ref, "/")
	v, err := resolveIndex(parts[0], len(p.positions))
	if err != nil {
		return 0, fmt.Errorf("vertex %q: %w", ref, err)
	}
	n := -1
	if len(parts) == 3 && parts[2] != "" {
		n, err = resolveIndex(parts[2], len(p.normals))
		if err != nil {
			return 0, fmt.Errorf("normal %q: %w", ref, err)
		}
	}

	key := objKey{v, n}
	if vi, ok := p.verts[key]; ok {
		return vi, nil
	}
	var normal math3d.Vec3
	if n >= 0 {
		normal = p.normals[n]
	}
	vi := p.mesh.AddVertex(p.positions[v], normal)
	p.verts[key] = vi
	return vi, nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index.
func resolveIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, fmt.Errorf("index %d out of range (%d defined)", i, count)
	}
}

func (p *objParser) finish(colors map[string][4]float64) *Mesh {
	for name, idx := range p.materials {
		if c, ok := colors[name]; ok {
			p.mesh.Materials[idx].BaseColor = c
		}
	}
	if !p.mesh.HasNormals() {
		p.mesh.CalculateSmoothNormals()
	}
	p.mesh.CalculateBounds()
	return p.mesh
}

// readMTL collects the Kd and d values of each newmtl block into colors.
func readMTL(path string, colors map[string][4]float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mtl: %w", err)
	}
	defer f.Close()

	var current string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			current = fields[1]
			colors[current] = DefaultMaterial.BaseColor
		case "Kd":
			if current == "" {
				continue
			}
			v, err := parseVec3(fields[1:])
			if err != nil {
				return fmt.Errorf("mtl %s: %w", current, err)
			}
			c := colors[current]
			c[0], c[1], c[2] = v.X, v.Y, v.Z
			colors[current] = c
		case "d":
			if current == "" {
				continue
			}
			a, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return fmt.Errorf("mtl %s: %w", current, err)
			}
			c := colors[current]
			c[3] = a
			colors[current] = c
		}
	}
	return sc.Err()
}

func parseVec3(fields []string) (math3d.Vec3, error) {
	if len(fields) < 3 {
		return math3d.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	var c [3]float64
	for i := range c {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return math3d.Vec3{}, err
		}
		c[i] = f
	}
	return math3d.V3(c[0], c[1], c[2]), nil
}
