package loop

import "time"

// DefaultQuiescence is how long resize requests must stop before one commits.
const DefaultQuiescence = 50 * time.Millisecond

// Size is a viewport size in pixels.
type Size struct {
	Width, Height int
}

// Debouncer collapses a burst of size requests into one. Each Request re-arms
// the deadline to now+quiescence and replaces the pending size; Due fires once
// the deadline has passed. It is polled from the paint loop, so there is no
// timer goroutine to outlive Stop.
type Debouncer struct {
	clock      Clock
	quiescence time.Duration

	pending  Size
	deadline time.Time
	armed    bool
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiescence window.
func NewDebouncer(clock Clock, quiescence time.Duration) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	if quiescence < 0 {
		quiescence = 0
	}
	return &Debouncer{clock: clock, quiescence: quiescence}
}

// Request schedules size, replacing any pending request and restarting the
// window.
func (d *Debouncer) Request(width, height int) {
	if d.stopped {
		return
	}
	d.pending = Size{Width: width, Height: height}
	d.deadline = d.clock.Now().Add(d.quiescence)
	d.armed = true
}

// Pending returns the scheduled size and whether one is scheduled.
func (d *Debouncer) Pending() (Size, bool) {
	return d.pending, d.armed
}

// Cancel drops the pending request.
func (d *Debouncer) Cancel() {
	d.armed = false
}

// Due returns the pending size once its window has elapsed and disarms.
func (d *Debouncer) Due() (Size, bool) {
	if !d.armed || d.stopped {
		return Size{}, false
	}
	if d.clock.Now().Before(d.deadline) {
		return Size{}, false
	}
	d.armed = false
	return d.pending, true
}

// Stop tears the debouncer down. A stopped debouncer never fires again.
func (d *Debouncer) Stop() {
	d.armed = false
	d.stopped = true
}
