// Package viewer is the terminal host for lumen. It turns ultraviolet input
// events into camera gestures and paints progressive frames with a HUD on top.
package viewer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/log"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/lumen/pkg/control"
	"github.com/taigrr/lumen/pkg/loop"
	"github.com/taigrr/lumen/pkg/math3d"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
)

const (
	// WheelStep is the zoom amount of one wheel notch or +/- key press.
	WheelStep = 120

	// DefaultFPS is the rate inertia is integrated at.
	DefaultFPS = 60

	keyImpulse   = 12.0 // pixels per frame
	spinImpulse  = 40.0
	axisSize     = 4
	flingWindow  = 100 * time.Millisecond
	reportPeriod = time.Second
)

// ErrNilScene is returned by New when no scene is supplied.
var ErrNilScene = errors.New("viewer: nil scene")

// passCounter is implemented by renderers that report progressive passes.
type passCounter interface {
	Passes() int
	MaxPasses() int
}

// Viewer owns the interaction state of one scene. All methods must be called
// from the goroutine that drains the terminal events.
type Viewer struct {
	scene    *scene.Scene
	renderer loop.Renderer
	coord    *loop.Coordinator
	ctrl     *control.Controller
	gest     *control.Gestures
	inertia  *control.Inertia

	clock  loop.Clock
	logger *log.Logger
	rng    *rand.Rand
	styles hudStyles
	title  string

	cols, rows int
	showHUD    bool
	lightMode  bool
	savedLight math3d.Vec3

	lastMotion time.Time
	lastReport time.Time
	lastPasses int
}

// Option configures a Viewer.
type Option func(*options)

type options struct {
	clock      loop.Clock
	logger     *log.Logger
	title      string
	fps        int
	quiescence time.Duration
	seed       uint64
	hud        bool
	ctrl       []control.Option
}

// WithClock sets the time source shared with the coordinator.
func WithClock(c loop.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTitle sets the name shown in the HUD.
func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

// WithFPS sets the frame rate inertia is integrated at.
func WithFPS(fps int) Option {
	return func(o *options) { o.fps = fps }
}

// WithResizeQuiescence sets how long terminal resizes must settle before the
// renderer is resized.
func WithResizeQuiescence(d time.Duration) Option {
	return func(o *options) { o.quiescence = d }
}

// WithSeed seeds the random spin impulse.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithHUD shows the HUD from the first frame.
func WithHUD(on bool) Option {
	return func(o *options) { o.hud = on }
}

// WithControllerOptions passes options through to the camera controller.
func WithControllerOptions(opts ...control.Option) Option {
	return func(o *options) { o.ctrl = append(o.ctrl, opts...) }
}

// New creates a viewer drawing s with r.
func New(s *scene.Scene, r loop.Renderer, opts ...Option) (*Viewer, error) {
	if s == nil {
		return nil, ErrNilScene
	}
	o := options{
		fps:        DefaultFPS,
		quiescence: loop.DefaultQuiescence,
		seed:       uint64(time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = loop.RealClock()
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}

	coord, err := loop.New(r,
		loop.WithClock(o.clock),
		loop.WithLogger(o.logger.WithPrefix("loop")),
		loop.WithResizeQuiescence(o.quiescence),
	)
	if err != nil {
		return nil, err
	}

	ctrlOpts := append(o.ctrl,
		control.WithLogger(o.logger.WithPrefix("control")),
		control.WithOnChange(coord.Invalidate),
	)
	ctrl, err := control.New(s.Camera(), ctrlOpts...)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	return &Viewer{
		scene:    s,
		renderer: r,
		coord:    coord,
		ctrl:     ctrl,
		gest:     control.NewGestures(ctrl),
		inertia:  control.NewInertia(ctrl, o.fps),
		clock:    o.clock,
		logger:   o.logger,
		rng:      rand.New(rand.NewPCG(o.seed, o.seed>>1|1)),
		styles:   newHUDStyles(),
		title:    o.title,
		showHUD:  o.hud,
	}, nil
}

func (v *Viewer) Scene() *scene.Scene             { return v.scene }
func (v *Viewer) Coordinator() *loop.Coordinator  { return v.coord }
func (v *Viewer) Controller() *control.Controller { return v.ctrl }
func (v *Viewer) Gestures() *control.Gestures     { return v.gest }
func (v *Viewer) Inertia() *control.Inertia       { return v.inertia }
func (v *Viewer) HUDVisible() bool                { return v.showHUD }
func (v *Viewer) LightMode() bool                 { return v.lightMode }

// Size returns the terminal size in cells last reported by a resize event.
func (v *Viewer) Size() (cols, rows int) {
	return v.cols, v.rows
}

// HandleEvent applies one input event. It returns false when the user asked
// to quit.
func (v *Viewer) HandleEvent(ev uv.Event) bool {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		v.resize(ev.Width, ev.Height)
	case uv.KeyPressEvent:
		return v.handleKey(ev)
	case uv.MouseClickEvent:
		v.press(uv.Mouse(ev))
	case uv.MouseReleaseEvent:
		v.release()
	case uv.MouseMotionEvent:
		v.motion(uv.Mouse(ev))
	case uv.MouseWheelEvent:
		v.wheel(uv.Mouse(ev))
	}
	return true
}

// resize records the new cell size. The framebuffer has two pixel rows per
// cell, so the renderer is asked for cols x rows*2.
func (v *Viewer) resize(cols, rows int) {
	if cols <= 0 || rows <= 0 {
		return
	}
	v.cols, v.rows = cols, rows
	v.coord.OnResize(cols, rows*2)
	v.scene.SetAspect(float64(cols) / float64(rows*2))
}

func (v *Viewer) handleKey(ev uv.KeyPressEvent) bool {
	switch {
	case ev.MatchString("ctrl+c"):
		return false
	case ev.MatchString("escape"):
		if !v.lightMode {
			return false
		}
		v.lightMode = false
		v.scene.SetLightDir(v.savedLight)
	case ev.MatchString("r"):
		v.resetCamera()
	case ev.MatchString("x"):
		on := v.scene.ToggleWireframe()
		v.logger.Debug("wireframe", "on", on)
	case ev.MatchString("l"):
		v.lightMode = true
		v.savedLight = v.scene.LightDir()
		v.coord.RequestRepaint()
	case ev.MatchString("?", "shift+/"):
		v.showHUD = !v.showHUD
		v.coord.RequestRepaint()
	case ev.MatchString("w", "up"):
		v.inertia.Impulse(0, -keyImpulse, 0)
	case ev.MatchString("s", "down"):
		v.inertia.Impulse(0, keyImpulse, 0)
	case ev.MatchString("a", "left"):
		v.inertia.Impulse(-keyImpulse, 0, 0)
	case ev.MatchString("d", "right"):
		v.inertia.Impulse(keyImpulse, 0, 0)
	case ev.MatchString("q"):
		v.inertia.Impulse(0, 0, -keyImpulse)
	case ev.MatchString("e"):
		v.inertia.Impulse(0, 0, keyImpulse)
	case ev.MatchString("space"):
		v.inertia.Impulse(
			(v.rng.Float64()-0.5)*spinImpulse,
			(v.rng.Float64()-0.5)*spinImpulse,
			(v.rng.Float64()-0.5)*spinImpulse,
		)
	case ev.Text == "+" || ev.MatchString("="):
		v.ctrl.Zoom(WheelStep, false)
	case ev.MatchString("-", "_"):
		v.ctrl.Zoom(-WheelStep, false)
	}
	return true
}

// resetCamera refits the camera and rebinds the controller to it.
func (v *Viewer) resetCamera() {
	v.inertia.Stop()
	v.gest.Release()
	cam := v.scene.ResetCamera()
	if err := v.ctrl.Bind(cam); err != nil {
		v.logger.Error("rebind camera", "err", err)
	}
}

func buttonFor(b uv.MouseButton) control.Button {
	switch b {
	case uv.MouseLeft:
		return control.ButtonPrimary
	case uv.MouseRight:
		return control.ButtonSecondary
	case uv.MouseMiddle:
		return control.ButtonMiddle
	default:
		return control.ButtonOther
	}
}

// pointer converts a cell position to framebuffer pixels.
func pointer(m uv.Mouse) (x, y float64) {
	return float64(m.X), float64(m.Y * 2)
}

func (v *Viewer) press(m uv.Mouse) {
	if v.lightMode {
		v.lightMode = false
		v.coord.RequestRepaint()
		v.logger.Debug("light placed", "dir", v.scene.LightDir())
		return
	}
	v.inertia.Stop()
	x, y := pointer(m)
	mode := v.gest.Press(buttonFor(m.Button), x, y)
	v.logger.Debug("drag start", "mode", mode, "x", x, "y", y)
}

// release ends the drag. A yaw/pitch or roll drag that was still moving keeps
// spinning under inertia.
func (v *Viewer) release() {
	mode := v.gest.Release()
	if v.clock.Now().Sub(v.lastMotion) > flingWindow {
		return
	}
	dx, dy := v.gest.LastDelta()
	switch mode {
	case control.DragOrbitYawPitch:
		v.inertia.Impulse(dx, dy, 0)
	case control.DragOrbitRoll:
		v.inertia.Impulse(0, 0, dx)
	}
}

func (v *Viewer) motion(m uv.Mouse) {
	if v.lightMode {
		v.scene.SetLightDir(v.lightDirAt(m.X, m.Y))
		return
	}
	x, y := pointer(m)
	moved, err := v.gest.Move(x, y, m.Mod.Contains(uv.ModCtrl), float64(v.rows*2))
	if err != nil {
		v.logger.Warn("drag", "mode", v.gest.Mode(), "err", err)
		return
	}
	if moved {
		v.lastMotion = v.clock.Now()
	}
}

func (v *Viewer) wheel(m uv.Mouse) {
	fine := m.Mod.Contains(uv.ModCtrl)
	switch m.Button {
	case uv.MouseWheelUp:
		v.ctrl.Zoom(WheelStep, fine)
	case uv.MouseWheelDown:
		v.ctrl.Zoom(-WheelStep, fine)
	}
}

// lightDirAt maps a cell onto a hemisphere facing the viewer and returns the
// matching world-space light direction. The screen center points the light
// straight back at the camera.
func (v *Viewer) lightDirAt(col, row int) math3d.Vec3 {
	if v.cols <= 0 || v.rows <= 0 {
		return v.scene.LightDir()
	}
	nx := (float64(col)/float64(v.cols))*2 - 1
	ny := (float64(row)/float64(v.rows))*2 - 1

	lenSq := nx*nx + ny*ny
	if lenSq > 1 {
		l := math.Sqrt(lenSq)
		nx /= l
		ny /= l
		lenSq = 1
	}
	nz := math.Sqrt(1 - lenSq)

	b, err := v.scene.Camera().Frame().Basis()
	if err != nil {
		return math3d.V3(nx, -ny, nz).Normalize()
	}
	return b.Right.Scale(nx).
		Add(b.Up.Scale(-ny)).
		Add(b.Direction.Scale(-nz)).
		Normalize()
}

// Frame advances one frame: inertia, pending resizes, then one render pass.
// It draws into scr and reports whether the screen content changed.
func (v *Viewer) Frame(scr uv.Screen) (bool, error) {
	if _, err := v.inertia.Step(); err != nil {
		v.logger.Warn("inertia stopped", "err", err)
	}
	v.coord.Tick()

	fb, err := v.coord.ObtainFrame(v.scene)
	if err != nil {
		return false, fmt.Errorf("frame: %w", err)
	}
	v.report()

	dirty := v.coord.RepaintRequested() || v.showHUD || v.lightMode
	if pc, ok := v.renderer.(passCounter); ok {
		if p := pc.Passes(); p != v.lastPasses {
			v.lastPasses = p
			dirty = true
		}
	} else {
		dirty = true
	}
	if !dirty {
		return false, nil
	}

	if v.showHUD {
		fb = fb.Clone()
		if err := render.DrawAxes(fb, v.scene.Camera(), axisSize); err != nil {
			v.logger.Debug("axes skipped", "err", err)
		}
	}
	area := scr.Bounds()
	fb.Draw(scr, area)
	v.drawHUD(scr, area)
	return true, nil
}

// report logs the frame rate once per reportPeriod.
func (v *Viewer) report() {
	now := v.clock.Now()
	if v.lastReport.IsZero() {
		v.lastReport = now
		return
	}
	if now.Sub(v.lastReport) < reportPeriod {
		return
	}
	v.lastReport = now
	fps, ok := v.coord.CurrentFPS()
	if !ok {
		return
	}
	v.logger.Info("fps", "fps", math.Round(fps*10)/10, "epoch", v.coord.Epoch())
}

// Close stops the coordinator. Further frames fail with loop.ErrClosed.
func (v *Viewer) Close() {
	v.inertia.Stop()
	v.coord.Close()
}

type hudStyles struct {
	fps, title, polys, mode, hint, light lipgloss.Style
}

func newHUDStyles() hudStyles {
	base := lipgloss.NewStyle().Background(lipgloss.Color("0")).Padding(0, 1)
	return hudStyles{
		fps:   base.Foreground(lipgloss.Color("10")),
		title: base.Foreground(lipgloss.Color("15")).Bold(true),
		polys: base.Foreground(lipgloss.Color("14")).Bold(true),
		mode:  base.Foreground(lipgloss.Color("15")),
		hint:  base.Foreground(lipgloss.Color("11")).Faint(true),
		light: base.Foreground(lipgloss.Color("11")).Bold(true),
	}
}

func drawText(scr uv.Screen, area uv.Rectangle, x, y int, s string) {
	w := lipgloss.Width(s)
	x = max(area.Min.X, min(x, area.Max.X-w))
	r := uv.Rect(x, y, w, 1).Intersect(area)
	if r.Empty() {
		return
	}
	uv.NewStyledString(s).Draw(scr, r)
}

func checkbox(on bool) string {
	if on {
		return "[✓]"
	}
	return "[ ]"
}

func (v *Viewer) fpsText() string {
	s := "-- FPS"
	if fps, ok := v.coord.CurrentFPS(); ok {
		s = fmt.Sprintf("%.0f FPS", fps)
	}
	if pc, ok := v.renderer.(passCounter); ok {
		if m := pc.MaxPasses(); m > 0 {
			s += fmt.Sprintf("  pass %d/%d", pc.Passes(), m)
		} else {
			s += fmt.Sprintf("  pass %d", pc.Passes())
		}
	}
	return s
}

func (v *Viewer) drawHUD(scr uv.Screen, area uv.Rectangle) {
	top, bottom := area.Min.Y, area.Max.Y-1
	width := area.Dx()

	// Light mode shows its indicator even with the HUD hidden.
	if v.lightMode {
		msg := v.styles.light.Render("◉ LIGHT MODE  aim with the mouse, click to set, esc to cancel")
		drawText(scr, area, area.Min.X+(width-lipgloss.Width(msg))/2, bottom, msg)
		return
	}
	if !v.showHUD {
		return
	}

	drawText(scr, area, area.Min.X, top, v.styles.fps.Render(v.fpsText()))
	if v.title != "" {
		title := v.styles.title.Render(v.title)
		drawText(scr, area, area.Min.X+(width-lipgloss.Width(title))/2, top, title)
	}
	polys := v.styles.polys.Render(fmt.Sprintf("%d polys", v.scene.Mesh().TriangleCount()))
	drawText(scr, area, area.Max.X, top, polys)

	mode := v.styles.mode.Render(checkbox(v.scene.Wireframe()) + " X-Ray (wireframe)")
	drawText(scr, area, area.Min.X, bottom, mode)
	drawText(scr, area, area.Max.X, bottom, v.styles.hint.Render("L: position light"))
}
