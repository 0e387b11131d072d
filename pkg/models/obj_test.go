package models

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const quadOBJ = `# unit quad
mtllib quad.mtl
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 2
usemtl blue
f 1//1 2//1 3//1 4//1
`

func TestReadOBJQuad(t *testing.T) {
	mesh, err := ReadOBJ("quad", strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.TriangleCount() != 2 {
		t.Fatalf("TriangleCount() = %d, want 2 (fan)", mesh.TriangleCount())
	}
	if mesh.VertexCount() != 4 {
		t.Errorf("VertexCount() = %d, want 4 shared vertices", mesh.VertexCount())
	}
	if mesh.Faces[0].V != [3]int{0, 1, 2} || mesh.Faces[1].V != [3]int{0, 2, 3} {
		t.Errorf("faces = %v", mesh.Faces)
	}
	if n := mesh.Vertices[0].Normal; math.Abs(n.Len()-1) > 1e-12 || n.Z <= 0 {
		t.Errorf("normal = %v, want normalized +Z", n)
	}
	if mat := mesh.FaceMaterial(0); mat.Name != "blue" || mat.BaseColor != DefaultMaterial.BaseColor {
		t.Errorf("material = %+v, want unresolved blue", mat)
	}
}

func TestReadOBJNegativeIndices(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
v 0 0 1
f 1/5/1 2 -1
`
	_, err := ReadOBJ("neg", strings.NewReader(src))
	if err == nil {
		t.Fatal("expected out-of-range normal error")
	}

	src = `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
v 0 0 1
f 1/7 2/8 -1
`
	mesh, err := ReadOBJ("neg", strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.TriangleCount() != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", mesh.TriangleCount())
	}
	last := mesh.Vertices[mesh.Faces[1].V[2]].Position
	if last.Z != 1 {
		t.Errorf("-1 resolved to %v, want the most recent vertex", last)
	}
	if !mesh.HasNormals() {
		t.Error("missing normals should be generated")
	}
}

func TestReadOBJErrors(t *testing.T) {
	tests := map[string]string{
		"short vertex":    "v 1 2\n",
		"bad number":      "v 1 x 3\n",
		"two corners":     "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"index too large": "v 0 0 0\nf 1 2 3\n",
		"zero index":      "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"usemtl no name":  "usemtl\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadOBJ(name, strings.NewReader(src))
			if !errors.Is(err, ErrMalformedOBJ) {
				t.Errorf("error = %v, want ErrMalformedOBJ", err)
			}
		})
	}
}

func TestLoadOBJWithMaterialLibrary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quad.obj"), []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	mtl := "newmtl blue\nKd 0.1 0.2 0.9\nd 0.5\n"
	if err := os.WriteFile(filepath.Join(dir, "quad.mtl"), []byte(mtl), 0o644); err != nil {
		t.Fatal(err)
	}

	mesh, err := LoadOBJ(filepath.Join(dir, "quad.obj"))
	if err != nil {
		t.Fatal(err)
	}
	want := [4]float64{0.1, 0.2, 0.9, 0.5}
	if got := mesh.FaceMaterial(0).BaseColor; got != want {
		t.Errorf("base color = %v, want %v", got, want)
	}
	if mesh.Name != "quad.obj" {
		t.Errorf("Name = %q", mesh.Name)
	}
}

func TestLoadOBJMissingMaterialLibrary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.obj")
	if err := os.WriteFile(path, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadOBJ(path); err != nil {
		t.Errorf("missing mtllib should be ignored, got %v", err)
	}
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "Quad.OBJ")
	if err := os.WriteFile(objPath, []byte(quadOBJ), 0o644); err != nil {
		t.Fatal(err)
	}

	if mesh, err := Load(objPath); err != nil || mesh.TriangleCount() != 2 {
		t.Errorf("Load(obj) = %v, %v", mesh, err)
	}
	if _, err := Load(filepath.Join(dir, "model.stl")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Load(stl) error = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.glb")); err == nil {
		t.Error("Load of a missing glb should fail")
	}
}
