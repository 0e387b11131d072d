package loop

import "time"

// DefaultFrameTimes is the number of frame timestamps kept for the FPS estimate.
const DefaultFrameTimes = 100

// FrameTimes is a fixed-capacity ring of frame completion times. Pushing into
// a full ring overwrites the oldest entry.
type FrameTimes struct {
	buf   []time.Time
	start int
	n     int
}

// NewFrameTimes creates a ring holding up to capacity timestamps.
func NewFrameTimes(capacity int) *FrameTimes {
	if capacity < 2 {
		capacity = 2
	}
	return &FrameTimes{buf: make([]time.Time, capacity)}
}

// Push records a frame completion time.
func (f *FrameTimes) Push(t time.Time) {
	if f.n < len(f.buf) {
		f.buf[(f.start+f.n)%len(f.buf)] = t
		f.n++
		return
	}
	f.buf[f.start] = t
	f.start = (f.start + 1) % len(f.buf)
}

// Len returns the number of stored timestamps.
func (f *FrameTimes) Len() int { return f.n }

// Cap returns the ring capacity.
func (f *FrameTimes) Cap() int { return len(f.buf) }

// Times returns the stored timestamps, oldest first.
func (f *FrameTimes) Times() []time.Time {
	out := make([]time.Time, f.n)
	for i := range f.n {
		out[i] = f.buf[(f.start+i)%len(f.buf)]
	}
	return out
}

// Reset drops all timestamps.
func (f *FrameTimes) Reset() {
	f.start, f.n = 0, 0
}

// FPS returns the average frame rate over the stored window. It reports false
// with fewer than two samples or when the window spans no time.
func (f *FrameTimes) FPS() (float64, bool) {
	if f.n < 2 {
		return 0, false
	}
	oldest := f.buf[f.start]
	newest := f.buf[(f.start+f.n-1)%len(f.buf)]
	span := newest.Sub(oldest).Seconds()
	if span <= 0 {
		return 0, false
	}
	return float64(f.n-1) / span, true
}
