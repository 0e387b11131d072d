package control

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

// restThreshold is the velocity (pixels per frame) below which an axis stops.
const restThreshold = 0.01

// spinAxis is one orbit axis with a velocity that a spring pulls back to 0.
type spinAxis struct {
	Velocity float64
	accel    float64 // spring velocity of Velocity itself
	spring   harmonica.Spring
}

func newSpinAxis(fps int) spinAxis {
	return spinAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

func (a *spinAxis) decay() {
	a.Velocity, a.accel = a.spring.Update(a.Velocity, a.accel, 0)
	if math.Abs(a.Velocity) < restThreshold && math.Abs(a.accel) < restThreshold {
		a.Velocity, a.accel = 0, 0
	}
}

// Inertia keeps a released orbit drag spinning and eases it to a stop.
// Velocities are in the same pixel units as Controller.Orbit.
type Inertia struct {
	ctrl             *Controller
	Yaw, Pitch, Roll spinAxis
	fps              int
}

// NewInertia creates an inertia integrator stepped fps times per second.
func NewInertia(ctrl *Controller, fps int) *Inertia {
	if fps <= 0 {
		fps = 60
	}
	in := &Inertia{ctrl: ctrl, fps: fps}
	in.Stop()
	return in
}

// Impulse adds velocity to each axis.
func (in *Inertia) Impulse(yaw, pitch, roll float64) {
	in.Yaw.Velocity += yaw
	in.Pitch.Velocity += pitch
	in.Roll.Velocity += roll
}

// Active reports whether any axis is still moving.
func (in *Inertia) Active() bool {
	return in.Yaw.Velocity != 0 || in.Pitch.Velocity != 0 || in.Roll.Velocity != 0
}

// Stop halts all motion.
func (in *Inertia) Stop() {
	in.Yaw = newSpinAxis(in.fps)
	in.Pitch = newSpinAxis(in.fps)
	in.Roll = newSpinAxis(in.fps)
}

// Step orbits by the current velocities and then decays them. It reports
// whether the camera moved.
func (in *Inertia) Step() (bool, error) {
	if !in.Active() {
		return false, nil
	}

	yaw, pitch, roll := in.Yaw.Velocity, in.Pitch.Velocity, in.Roll.Velocity
	in.Yaw.decay()
	in.Pitch.decay()
	in.Roll.decay()

	if err := in.ctrl.Orbit(yaw, pitch, roll, false); err != nil {
		in.Stop()
		return false, err
	}
	return true, nil
}
