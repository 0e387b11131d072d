package viewer

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/jonboulle/clockwork"

	"github.com/taigrr/lumen/pkg/control"
	"github.com/taigrr/lumen/pkg/loop"
	"github.com/taigrr/lumen/pkg/models"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
)

const eps = 1e-9

func newTestViewer(t *testing.T, opts ...Option) (*Viewer, *render.Rasterizer, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s := scene.New(models.NewCube(2))
	r := render.NewRasterizer(8, 8, render.WithMaxPasses(2), render.WithWorkers(1))
	v, err := New(s, r, append([]Option{WithClock(clock), WithSeed(1)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v, r, clock
}

func key(text string) uv.KeyPressEvent {
	r := []rune(text)
	return uv.KeyPressEvent{Code: r[0], Text: text}
}

func mustFrame(t *testing.T, v *Viewer, scr uv.Screen) bool {
	t.Helper()
	dirty, err := v.Frame(scr)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	return dirty
}

func rowText(scr uv.Screen, y int) string {
	var b strings.Builder
	bounds := scr.Bounds()
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		if c := scr.CellAt(x, y); c != nil {
			b.WriteString(c.Content)
		}
	}
	return b.String()
}

func TestNewErrors(t *testing.T) {
	r := render.NewRasterizer(4, 4)
	if _, err := New(nil, r); !errors.Is(err, ErrNilScene) {
		t.Errorf("New(nil scene) error = %v, want ErrNilScene", err)
	}
	if _, err := New(scene.New(nil), nil); !errors.Is(err, loop.ErrNilRenderer) {
		t.Errorf("New(nil renderer) error = %v, want loop.ErrNilRenderer", err)
	}
}

func TestQuitKeys(t *testing.T) {
	tests := []struct {
		name string
		ev   uv.Event
		keep bool
	}{
		{"escape", uv.KeyPressEvent{Code: uv.KeyEscape}, false},
		{"ctrl+c", uv.KeyPressEvent{Code: 'c', Mod: uv.ModCtrl}, false},
		{"q rolls", key("q"), true},
		{"x", key("x"), true},
		{"resize", uv.WindowSizeEvent{Width: 10, Height: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, _ := newTestViewer(t)
			if got := v.HandleEvent(tt.ev); got != tt.keep {
				t.Errorf("HandleEvent = %v, want %v", got, tt.keep)
			}
		})
	}
}

func TestResizeIsDebounced(t *testing.T) {
	v, r, clock := newTestViewer(t)
	scr := uv.NewScreenBuffer(30, 12)

	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})
	clock.Advance(10 * time.Millisecond)
	v.HandleEvent(uv.WindowSizeEvent{Width: 30, Height: 12})

	mustFrame(t, v, scr)
	if w, h := r.Size(); w != 8 || h != 8 {
		t.Fatalf("renderer resized early to %dx%d", w, h)
	}

	clock.Advance(loop.DefaultQuiescence)
	mustFrame(t, v, scr)
	if w, h := r.Size(); w != 30 || h != 24 {
		t.Errorf("renderer size = %dx%d, want 30x24", w, h)
	}
	if cols, rows := v.Size(); cols != 30 || rows != 12 {
		t.Errorf("Size() = %dx%d, want 30x12", cols, rows)
	}
	if got := v.Scene().FitOptions().Aspect; math.Abs(got-30.0/24.0) > eps {
		t.Errorf("scene aspect = %v, want %v", got, 30.0/24.0)
	}

	// Zero sizes are ignored.
	v.HandleEvent(uv.WindowSizeEvent{})
	if cols, rows := v.Size(); cols != 30 || rows != 12 {
		t.Errorf("Size() after empty resize = %dx%d", cols, rows)
	}
}

func TestOrbitDragAndFling(t *testing.T) {
	v, _, _ := newTestViewer(t)
	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})

	f := v.Scene().Camera().Frame()
	lookAt, dist, pos := f.LookAt, f.Distance(), f.Position
	epoch := v.Coordinator().Epoch()

	v.HandleEvent(uv.MouseClickEvent{X: 10, Y: 5, Button: uv.MouseLeft})
	if got := v.Gestures().Mode(); got != control.DragOrbitYawPitch {
		t.Fatalf("mode = %v, want orbit", got)
	}
	v.HandleEvent(uv.MouseMotionEvent{X: 14, Y: 5, Button: uv.MouseLeft})

	if f.Position.ApproxEqual(pos, eps) {
		t.Fatal("drag did not move the camera")
	}
	if !f.LookAt.ApproxEqual(lookAt, eps) {
		t.Errorf("look-at moved to %v", f.LookAt)
	}
	if math.Abs(f.Distance()-dist) > 1e-9 {
		t.Errorf("distance = %v, want %v", f.Distance(), dist)
	}
	if v.Coordinator().Epoch() <= epoch {
		t.Error("drag did not invalidate accumulation")
	}

	v.HandleEvent(uv.MouseReleaseEvent{X: 14, Y: 5, Button: uv.MouseLeft})
	if v.Gestures().Mode() != control.DragNone {
		t.Fatal("release did not end the drag")
	}
	if !v.Inertia().Active() {
		t.Fatal("release right after a drag should keep spinning")
	}

	moved := f.Position
	mustFrame(t, v, uv.NewScreenBuffer(20, 10))
	if f.Position.ApproxEqual(moved, eps) {
		t.Error("inertia did not move the camera on the next frame")
	}
}

func TestStaleReleaseDoesNotFling(t *testing.T) {
	v, _, clock := newTestViewer(t)
	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})

	v.HandleEvent(uv.MouseClickEvent{X: 10, Y: 5, Button: uv.MouseRight})
	v.HandleEvent(uv.MouseMotionEvent{X: 12, Y: 5, Button: uv.MouseRight})
	clock.Advance(200 * time.Millisecond)
	v.HandleEvent(uv.MouseReleaseEvent{X: 12, Y: 5, Button: uv.MouseRight})

	if v.Inertia().Active() {
		t.Error("release long after the last motion should not fling")
	}
}

func TestRollFling(t *testing.T) {
	v, _, _ := newTestViewer(t)
	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})

	v.HandleEvent(uv.MouseClickEvent{X: 10, Y: 5, Button: uv.MouseRight})
	v.HandleEvent(uv.MouseMotionEvent{X: 13, Y: 5, Button: uv.MouseRight})
	v.HandleEvent(uv.MouseReleaseEvent{X: 13, Y: 5, Button: uv.MouseRight})

	in := v.Inertia()
	if in.Roll.Velocity != 3 || in.Yaw.Velocity != 0 || in.Pitch.Velocity != 0 {
		t.Errorf("velocities = (%v, %v, %v), want roll only", in.Yaw.Velocity, in.Pitch.Velocity, in.Roll.Velocity)
	}
}

func TestPanDrag(t *testing.T) {
	v, _, _ := newTestViewer(t)
	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})

	cam := v.Scene().Camera()
	f := cam.Frame()
	before, err := f.Basis()
	if err != nil {
		t.Fatal(err)
	}
	lookAt := f.LookAt

	v.HandleEvent(uv.MouseClickEvent{X: 10, Y: 5, Button: uv.MouseMiddle})
	v.HandleEvent(uv.MouseMotionEvent{X: 10, Y: 6, Button: uv.MouseMiddle})

	// One cell down is two pixels of a twenty pixel viewport.
	want := lookAt.Add(before.Up.Scale(cam.Height() * 0.1))
	if !f.LookAt.ApproxEqual(want, 1e-9) {
		t.Errorf("look-at = %v, want %v", f.LookAt, want)
	}
	after, err := f.Basis()
	if err != nil {
		t.Fatal(err)
	}
	if !after.Direction.ApproxEqual(before.Direction, 1e-9) {
		t.Errorf("pan changed the view direction to %v", after.Direction)
	}
}

func TestWheelZoom(t *testing.T) {
	tests := []struct {
		name   string
		ev     uv.MouseWheelEvent
		factor float64
	}{
		{"up zooms in", uv.MouseWheelEvent{Button: uv.MouseWheelUp}, 1 - WheelStep*control.DefaultZoomSensitivity},
		{"down zooms out", uv.MouseWheelEvent{Button: uv.MouseWheelDown}, 1 + WheelStep*control.DefaultZoomSensitivity},
		{"ctrl is fine", uv.MouseWheelEvent{Button: uv.MouseWheelUp, Mod: uv.ModCtrl}, 1 - WheelStep*control.DefaultZoomSensitivity*control.FineScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, _ := newTestViewer(t)
			cam := v.Scene().Camera()
			h := cam.Height()
			v.HandleEvent(tt.ev)
			if got, want := cam.Height(), h*tt.factor; math.Abs(got-want) > 1e-12 {
				t.Errorf("height = %v, want %v", got, want)
			}
		})
	}
}

func TestKeyBindings(t *testing.T) {
	v, _, _ := newTestViewer(t)
	s := v.Scene()

	v.HandleEvent(key("x"))
	if !s.Wireframe() {
		t.Error("x did not enable wireframe")
	}

	v.HandleEvent(key("?"))
	if !v.HUDVisible() {
		t.Error("? did not show the HUD")
	}
	if !v.Coordinator().RepaintRequested() {
		t.Error("toggling the HUD should request a repaint")
	}

	h := s.Camera().Height()
	v.HandleEvent(key("+"))
	if s.Camera().Height() >= h {
		t.Error("+ did not zoom in")
	}
	v.HandleEvent(key("-"))
	if math.Abs(s.Camera().Height()-h) > 0.05*h {
		t.Errorf("+ then - height = %v, want about %v", s.Camera().Height(), h)
	}

	v.HandleEvent(key("d"))
	if !v.Inertia().Active() || v.Inertia().Yaw.Velocity <= 0 {
		t.Error("d did not add yaw velocity")
	}
}

func TestResetCamera(t *testing.T) {
	v, _, _ := newTestViewer(t)
	s := v.Scene()
	start := s.Camera().Frame().Position

	v.HandleEvent(uv.MouseClickEvent{X: 1, Y: 1, Button: uv.MouseLeft})
	v.HandleEvent(uv.MouseMotionEvent{X: 30, Y: 9, Button: uv.MouseLeft})
	v.HandleEvent(key("w"))
	if s.Camera().Frame().Position.ApproxEqual(start, eps) {
		t.Fatal("setup drag did not move the camera")
	}

	v.HandleEvent(key("r"))
	if !s.Camera().Frame().Position.ApproxEqual(start, 1e-9) {
		t.Errorf("position after reset = %v, want %v", s.Camera().Frame().Position, start)
	}
	if v.Controller().Camera() != s.Camera() {
		t.Error("controller still drives the old camera")
	}
	if v.Inertia().Active() || v.Gestures().Mode() != control.DragNone {
		t.Error("reset should stop inertia and end the drag")
	}
}

func TestSpaceSpins(t *testing.T) {
	v, _, _ := newTestViewer(t)
	v.HandleEvent(uv.KeyPressEvent{Code: uv.KeySpace, Text: " "})
	if !v.Inertia().Active() {
		t.Error("space did not start a spin")
	}
}

func TestLightMode(t *testing.T) {
	v, _, _ := newTestViewer(t)
	s := v.Scene()
	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})
	orig := s.LightDir()

	v.HandleEvent(key("l"))
	if !v.LightMode() {
		t.Fatal("l did not enter light mode")
	}

	// The screen center aims the light back at the camera.
	v.HandleEvent(uv.MouseMotionEvent{X: 10, Y: 5})
	b, err := s.Camera().Frame().Basis()
	if err != nil {
		t.Fatal(err)
	}
	if got := s.LightDir(); !got.ApproxEqual(b.Direction.Scale(-1), 1e-9) {
		t.Errorf("light = %v, want %v", got, b.Direction.Scale(-1))
	}

	// Escape restores the previous light and does not quit.
	if !v.HandleEvent(uv.KeyPressEvent{Code: uv.KeyEscape}) {
		t.Fatal("escape in light mode quit the viewer")
	}
	if v.LightMode() || !s.LightDir().ApproxEqual(orig, eps) {
		t.Errorf("after cancel light = %v, mode = %v", s.LightDir(), v.LightMode())
	}

	// A click commits the aimed light.
	v.HandleEvent(key("l"))
	v.HandleEvent(uv.MouseMotionEvent{X: 19, Y: 5})
	aimed := s.LightDir()
	v.HandleEvent(uv.MouseClickEvent{X: 19, Y: 5, Button: uv.MouseLeft})
	if v.LightMode() {
		t.Error("click did not leave light mode")
	}
	if !s.LightDir().ApproxEqual(aimed, eps) || aimed.ApproxEqual(orig, 1e-3) {
		t.Errorf("committed light = %v, aimed %v", s.LightDir(), aimed)
	}
	if v.Gestures().Mode() != control.DragNone {
		t.Error("placing the light started a drag")
	}
	if math.Abs(aimed.Len()-1) > 1e-9 {
		t.Errorf("light is not unit length: %v", aimed.Len())
	}
}

func TestFrameDrawsHUD(t *testing.T) {
	v, _, _ := newTestViewer(t, WithHUD(true), WithTitle("cube.obj"))
	scr := uv.NewScreenBuffer(60, 10)
	v.HandleEvent(uv.WindowSizeEvent{Width: 60, Height: 10})

	if !mustFrame(t, v, scr) {
		t.Fatal("first frame should be dirty")
	}
	top := rowText(scr, 0)
	for _, want := range []string{"FPS", "pass 1/2", "cube.obj", "12 polys"} {
		if !strings.Contains(top, want) {
			t.Errorf("top row %q missing %q", top, want)
		}
	}
	if bottom := rowText(scr, 9); !strings.Contains(bottom, "X-Ray") {
		t.Errorf("bottom row %q missing the wireframe toggle", bottom)
	}

	v.HandleEvent(key("l"))
	mustFrame(t, v, scr)
	if bottom := rowText(scr, 9); !strings.Contains(bottom, "LIGHT MODE") {
		t.Errorf("bottom row %q missing the light mode indicator", bottom)
	}
}

func TestFrameSkipsConvergedFrames(t *testing.T) {
	v, r, _ := newTestViewer(t)
	scr := uv.NewScreenBuffer(8, 4)

	for i := range r.MaxPasses() {
		if !mustFrame(t, v, scr) {
			t.Fatalf("frame %d should be dirty", i)
		}
	}
	if mustFrame(t, v, scr) {
		t.Error("converged frame reported dirty")
	}

	v.HandleEvent(key("x"))
	if !mustFrame(t, v, scr) {
		t.Error("frame after a scene change should be dirty")
	}
	if r.Passes() != 1 {
		t.Errorf("passes after a scene change = %d, want 1", r.Passes())
	}
}

func TestFPSReport(t *testing.T) {
	var buf bytes.Buffer
	v, _, clock := newTestViewer(t, WithLogger(log.New(&buf)))
	scr := uv.NewScreenBuffer(8, 4)

	for range 5 {
		mustFrame(t, v, scr)
		clock.Advance(300 * time.Millisecond)
	}
	if !strings.Contains(buf.String(), "fps=") {
		t.Errorf("log %q has no fps report", buf.String())
	}
}

func TestClose(t *testing.T) {
	v, _, _ := newTestViewer(t)
	v.Close()
	if _, err := v.Frame(uv.NewScreenBuffer(4, 4)); !errors.Is(err, loop.ErrClosed) {
		t.Errorf("Frame after Close error = %v, want loop.ErrClosed", err)
	}
}

func TestLightDirAtEdges(t *testing.T) {
	v, _, _ := newTestViewer(t)
	if got := v.lightDirAt(3, 3); !got.ApproxEqual(v.Scene().LightDir(), eps) {
		t.Errorf("without a size the light should not move, got %v", got)
	}

	v.HandleEvent(uv.WindowSizeEvent{Width: 20, Height: 10})
	corner := v.lightDirAt(0, 0)
	if math.Abs(corner.Len()-1) > 1e-9 {
		t.Errorf("corner light length = %v", corner.Len())
	}
	b, _ := v.Scene().Camera().Frame().Basis()
	// Past the unit circle the light lies in the view plane.
	if d := corner.Dot(b.Direction); math.Abs(d) > 1e-9 {
		t.Errorf("corner light has depth %v, want 0", d)
	}
	if corner.Dot(b.Up) <= 0 || corner.Dot(b.Right) >= 0 {
		t.Errorf("top-left corner light = %v, want up and left", corner)
	}
}
