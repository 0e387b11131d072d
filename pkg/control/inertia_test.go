package control

import (
	"math"
	"testing"

	"github.com/taigrr/lumen/pkg/math3d"
)

func TestInertiaIdle(t *testing.T) {
	cam := newTestCamera()
	in := NewInertia(mustController(t, cam), 60)

	if in.Active() {
		t.Error("new inertia should be at rest")
	}
	moved, err := in.Step()
	if moved || err != nil {
		t.Errorf("Step at rest = (%v, %v), want (false, nil)", moved, err)
	}
}

func TestInertiaDecaysToRest(t *testing.T) {
	cam := newTestCamera()
	calls := 0
	in := NewInertia(mustController(t, cam, WithOnChange(func() { calls++ })), 60)

	in.Impulse(10, -5, 0)
	steps := 0
	for in.Active() && steps < 1000 {
		moved, err := in.Step()
		if err != nil {
			t.Fatal(err)
		}
		if !moved {
			t.Fatal("active inertia step should move the camera")
		}
		steps++
	}

	if in.Active() {
		t.Fatal("inertia did not come to rest within 1000 steps")
	}
	if calls != steps {
		t.Errorf("change hook ran %d times over %d steps", calls, steps)
	}
	if !cam.Eye.LookAt.ApproxEqual(math3d.Zero3(), 0) {
		t.Errorf("inertia orbit moved the look-at point to %v", cam.Eye.LookAt)
	}
	if math.Abs(cam.Eye.Distance()-10) > 1e-6 {
		t.Errorf("inertia orbit changed the distance to %v", cam.Eye.Distance())
	}
}

func TestInertiaVelocityDecreases(t *testing.T) {
	in := NewInertia(mustController(t, newTestCamera()), 60)
	in.Impulse(8, 0, 0)

	prev := in.Yaw.Velocity
	for range 30 {
		if _, err := in.Step(); err != nil {
			t.Fatal(err)
		}
		if in.Yaw.Velocity > prev {
			t.Fatalf("velocity grew from %v to %v", prev, in.Yaw.Velocity)
		}
		prev = in.Yaw.Velocity
	}
	if prev >= 8 {
		t.Error("velocity should have decayed")
	}
}

func TestInertiaStop(t *testing.T) {
	in := NewInertia(mustController(t, newTestCamera()), 60)
	in.Impulse(1, 1, 1)
	in.Stop()
	if in.Active() {
		t.Error("Stop should halt all axes")
	}
}
