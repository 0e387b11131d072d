// Package loop coordinates a progressive renderer with an interactive camera:
// when accumulation is reset, when the output is resized, and how fast frames
// are produced.
package loop

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
)

var (
	// ErrClosed is returned by ObtainFrame after Close.
	ErrClosed = errors.New("loop: coordinator closed")
	// ErrNilRenderer is returned by New when no renderer is supplied.
	ErrNilRenderer = errors.New("loop: nil renderer")
	// ErrNilScene is returned by ObtainFrame when called without a scene.
	ErrNilScene = errors.New("loop: nil scene")
)

// Renderer is a progressive renderer. Each Render call refines the image it
// has accumulated since the last Reset and blocks until the frame is ready.
type Renderer interface {
	Render(s *scene.Scene) (*render.Framebuffer, error)
	Reset()
	Resize(width, height int)
}

// Coordinator sequences renderer work. A camera mutation must be followed by
// Invalidate; the next ObtainFrame then resets before it renders. It is not
// safe for concurrent use.
type Coordinator struct {
	renderer Renderer
	clock    Clock
	logger   *log.Logger

	frames  *FrameTimes
	resize  *Debouncer
	size    Size
	hasSize bool

	epoch        uint64
	renderedAt   uint64 // epoch of the last reset
	lastScene    *scene.Scene
	lastRevision uint64

	repaint bool
	closed  bool
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	clock      Clock
	logger     *log.Logger
	quiescence time.Duration
	capacity   int
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithResizeQuiescence sets how long resize requests must settle before the
// renderer is resized.
func WithResizeQuiescence(d time.Duration) Option {
	return func(o *options) { o.quiescence = d }
}

// WithFrameWindow sets how many frame times feed the FPS estimate.
func WithFrameWindow(n int) Option {
	return func(o *options) { o.capacity = n }
}

// New creates a coordinator driving r.
func New(r Renderer, opts ...Option) (*Coordinator, error) {
	if r == nil {
		return nil, ErrNilRenderer
	}
	o := options{
		quiescence: DefaultQuiescence,
		capacity:   DefaultFrameTimes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = RealClock()
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}

	return &Coordinator{
		renderer: r,
		clock:    o.clock,
		logger:   o.logger,
		frames:   NewFrameTimes(o.capacity),
		resize:   NewDebouncer(o.clock, o.quiescence),
		// Force a reset before the first frame.
		epoch: 1,
	}, nil
}

// Invalidate discards accumulated samples. The reset itself happens at the
// start of the next ObtainFrame.
func (c *Coordinator) Invalidate() {
	if c.closed {
		return
	}
	c.epoch++
	c.repaint = true
}

// Epoch returns the number of invalidations so far.
func (c *Coordinator) Epoch() uint64 {
	return c.epoch
}

// ObtainFrame resets the renderer if the camera or scene changed since the
// previous frame, renders one frame and records its completion time.
func (c *Coordinator) ObtainFrame(s *scene.Scene) (*render.Framebuffer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if s == nil {
		return nil, ErrNilScene
	}

	if s != c.lastScene || s.Revision() != c.lastRevision {
		c.epoch++
		c.lastScene = s
		c.lastRevision = s.Revision()
	}
	if c.epoch != c.renderedAt {
		c.renderer.Reset()
		c.renderedAt = c.epoch
		c.logger.Debug("accumulation reset", "epoch", c.epoch)
	}

	fb, err := c.renderer.Render(s)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	c.frames.Push(c.clock.Now())
	return fb, nil
}

// OnResize schedules a renderer resize. Bursts of calls collapse into one
// resize with the last size once the quiescence window passes.
func (c *Coordinator) OnResize(width, height int) {
	if c.closed {
		return
	}
	c.resize.Request(width, height)
}

// Size returns the last committed renderer size.
func (c *Coordinator) Size() (Size, bool) {
	return c.size, c.hasSize
}

// Tick commits a due resize: the renderer is resized, accumulation is
// invalidated and a repaint is requested. It reports whether a resize was
// committed.
func (c *Coordinator) Tick() bool {
	if c.closed {
		return false
	}
	sz, ok := c.resize.Due()
	if !ok {
		return false
	}
	c.renderer.Resize(sz.Width, sz.Height)
	c.size, c.hasSize = sz, true
	c.Invalidate()
	c.logger.Debug("resize committed", "width", sz.Width, "height", sz.Height)
	return true
}

// RequestRepaint marks the view as needing another frame.
func (c *Coordinator) RequestRepaint() {
	c.repaint = true
}

// RepaintRequested reports and clears the pending repaint flag.
func (c *Coordinator) RepaintRequested() bool {
	r := c.repaint
	c.repaint = false
	return r
}

// CurrentFPS returns the frame rate over the recent frame window.
func (c *Coordinator) CurrentFPS() (float64, bool) {
	return c.frames.FPS()
}

// Frames returns the frame time window.
func (c *Coordinator) Frames() *FrameTimes {
	return c.frames
}

// Close stops pending resizes. After Close, Tick and OnResize do nothing and
// ObtainFrame returns ErrClosed. Close is idempotent.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.resize.Stop()
	c.repaint = false
}
