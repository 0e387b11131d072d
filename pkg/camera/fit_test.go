package camera

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
)

func TestFitFront(t *testing.T) {
	c := Fit(math3d.V3(-1, -2, 0), math3d.V3(1, 2, 0), FitOptions{View: ViewFront, Aspect: 1})

	f := c.Frame()
	if !f.LookAt.ApproxEqual(math3d.Zero3(), 1e-12) {
		t.Errorf("look-at = %v, want bounds center", f.LookAt)
	}
	b, err := f.Basis()
	if err != nil {
		t.Fatal(err)
	}
	if !b.Direction.ApproxEqual(math3d.V3(0, 0, -1), 1e-12) {
		t.Errorf("front view should look down -Z, got %v", b.Direction)
	}
	if math.Abs(c.Height()-4) > 1e-9 {
		t.Errorf("Height() = %v, want 4 (Y extent)", c.Height())
	}
}

func TestFitAutoPicksView(t *testing.T) {
	flat := Fit(math3d.V3(-1, -1, 0), math3d.V3(1, 1, 0), FitOptions{})
	b, _ := flat.Frame().Basis()
	if !b.Direction.ApproxEqual(math3d.V3(0, 0, -1), 1e-12) {
		t.Errorf("flat content should use the front view, direction %v", b.Direction)
	}

	solid := Fit(math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1), FitOptions{})
	b, _ = solid.Frame().Basis()
	want := math3d.V3(-1, -1, -1).Normalize()
	if !b.Direction.ApproxEqual(want, 1e-9) {
		t.Errorf("3D content should use the isometric view, direction %v", b.Direction)
	}
}

func TestFitMarginAndKind(t *testing.T) {
	lo, hi := math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1)
	tight := Fit(lo, hi, FitOptions{Kind: KindPerspective, View: ViewIsometric})
	loose := Fit(lo, hi, FitOptions{Kind: KindPerspective, View: ViewIsometric, Margin: 0.5})

	if tight.Kind() != KindPerspective {
		t.Fatalf("Kind() = %v, want perspective", tight.Kind())
	}
	if math.Abs(loose.Height()/tight.Height()-1.5) > 1e-9 {
		t.Errorf("margin 0.5 should widen height by 1.5x, got %v / %v", loose.Height(), tight.Height())
	}
	if d := tight.Frame().Distance(); d <= math.Sqrt(3) {
		t.Errorf("perspective eye should sit outside the bounding sphere, distance %v", d)
	}
}

func TestFitReturnsFreshCamera(t *testing.T) {
	lo, hi := math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1)
	a := Fit(lo, hi, FitOptions{})
	b := Fit(lo, hi, FitOptions{})
	a.SetHeight(100)
	a.Frame().Position = math3d.V3(9, 9, 9)
	if b.Height() == 100 || b.Frame().Position == a.Frame().Position {
		t.Error("Fit must not share camera state between calls")
	}
}

func TestFitEmptyBounds(t *testing.T) {
	c := Fit(math3d.V3(2, 2, 2), math3d.V3(2, 2, 2), FitOptions{View: ViewIsometric})
	if _, err := c.Frame().Basis(); err != nil {
		t.Errorf("point bounds should still produce a valid basis: %v", err)
	}
	if c.Height() <= 0 {
		t.Errorf("Height() = %v, want positive", c.Height())
	}
}
