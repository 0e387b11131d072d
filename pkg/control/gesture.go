package control

import "fmt"

// DragMode is the gesture a held pointer button drives.
type DragMode int

const (
	DragNone DragMode = iota
	DragOrbitYawPitch
	DragOrbitRoll
	DragPan
)

func (m DragMode) String() string {
	switch m {
	case DragNone:
		return "none"
	case DragOrbitYawPitch:
		return "orbit"
	case DragOrbitRoll:
		return "roll"
	case DragPan:
		return "pan"
	default:
		return fmt.Sprintf("DragMode(%d)", int(m))
	}
}

// Button identifies a pointer button independent of the host toolkit.
type Button int

const (
	ButtonOther Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

// modeFor maps a pressed button to the drag it starts.
func modeFor(b Button) DragMode {
	switch b {
	case ButtonPrimary:
		return DragOrbitYawPitch
	case ButtonSecondary:
		return DragOrbitRoll
	case ButtonMiddle:
		return DragPan
	default:
		return DragNone
	}
}

// Gestures is the pointer drag state machine. The mode changes only on
// Press and Release; Move applies the active mode to the controller.
type Gestures struct {
	ctrl         *Controller
	mode         DragMode
	lastX, lastY float64
	dx, dy       float64
}

// NewGestures creates a gesture tracker driving ctrl.
func NewGestures(ctrl *Controller) *Gestures {
	return &Gestures{ctrl: ctrl}
}

// Mode returns the active drag mode.
func (g *Gestures) Mode() DragMode {
	return g.mode
}

// Press starts the drag bound to button at pointer position (x, y).
func (g *Gestures) Press(b Button, x, y float64) DragMode {
	g.mode = modeFor(b)
	g.lastX, g.lastY = x, y
	g.dx, g.dy = 0, 0
	return g.mode
}

// Release ends the active drag and returns the mode that ended.
func (g *Gestures) Release() DragMode {
	ended := g.mode
	g.mode = DragNone
	return ended
}

// LastDelta returns the pointer delta of the most recent Move.
func (g *Gestures) LastDelta() (dx, dy float64) {
	return g.dx, g.dy
}

// Move feeds a pointer position. viewportHeight is the height of the view in
// the same units as x and y; pan deltas are normalized by it. It reports
// whether the camera moved.
func (g *Gestures) Move(x, y float64, fine bool, viewportHeight float64) (bool, error) {
	g.dx, g.dy = x-g.lastX, y-g.lastY
	g.lastX, g.lastY = x, y

	if g.dx == 0 && g.dy == 0 {
		return false, nil
	}

	var err error
	switch g.mode {
	case DragOrbitYawPitch:
		err = g.ctrl.Orbit(g.dx, g.dy, 0, fine)
	case DragOrbitRoll:
		err = g.ctrl.Orbit(0, 0, g.dx, fine)
	case DragPan:
		if viewportHeight <= 0 {
			return false, nil
		}
		err = g.ctrl.Pan(-g.dx/viewportHeight, g.dy/viewportHeight, fine)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
