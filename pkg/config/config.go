// Package config holds the lumen command line settings.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/pflag"

	"github.com/taigrr/lumen/pkg/camera"
	"github.com/taigrr/lumen/pkg/control"
	"github.com/taigrr/lumen/pkg/loop"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
)

// Validation errors.
var (
	ErrFPS         = errors.New("fps must be between 1 and 240")
	ErrBackground  = errors.New("background must be R,G,B or #rrggbb")
	ErrPasses      = errors.New("max passes must not be negative")
	ErrWorkers     = errors.New("workers must not be negative")
	ErrMargin      = errors.New("margin must be in [0, 1)")
	ErrResizeDelay = errors.New("resize delay must not be negative")
	ErrProjection  = errors.New("invalid projection")
	ErrView        = errors.New("invalid view")
	ErrLogLevel    = errors.New("invalid log level")
	ErrSnapshot    = errors.New("snapshot passes must be positive")
)

// Config is the full set of viewer settings.
type Config struct {
	FPS        int
	Background string
	MaxPasses  int
	Workers    int
	Projection string
	View       string
	Margin     float64
	HUD        bool

	ResizeDelay      time.Duration
	OrbitSensitivity float64
	PanSensitivity   float64
	ZoomSensitivity  float64

	LogFile  string
	LogLevel string

	Snapshot       string
	SnapshotWidth  int
	SnapshotHeight int
	SnapshotPasses int
}

// Default returns the settings used when no flags are given.
func Default() Config {
	bg := scene.DefaultBackground
	return Config{
		FPS:              60,
		Background:       fmt.Sprintf("%d,%d,%d", bg.R, bg.G, bg.B),
		MaxPasses:        render.DefaultMaxPasses,
		Projection:       camera.KindOrthographic.String(),
		View:             camera.ViewAuto.String(),
		Margin:           scene.DefaultMargin,
		ResizeDelay:      loop.DefaultQuiescence,
		OrbitSensitivity: control.DefaultOrbitSensitivity,
		PanSensitivity:   control.DefaultPanSensitivity,
		ZoomSensitivity:  control.DefaultZoomSensitivity,
		LogLevel:         log.InfoLevel.String(),
		SnapshotWidth:    160,
		SnapshotHeight:   90,
		SnapshotPasses:   render.DefaultMaxPasses,
	}
}

// BindFlags registers every setting on fs.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.FPS, "fps", c.FPS, "Target FPS")
	fs.StringVar(&c.Background, "bg", c.Background, "Background color (R,G,B or #rrggbb)")
	fs.IntVar(&c.MaxPasses, "max-passes", c.MaxPasses, "Passes accumulated before the image is final (0 = unlimited)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Render workers (0 = one per CPU)")
	fs.StringVarP(&c.Projection, "projection", "p", c.Projection, "Camera projection: orthographic or perspective")
	fs.StringVar(&c.View, "view", c.View, "Initial view: auto, front or isometric")
	fs.Float64Var(&c.Margin, "margin", c.Margin, "Framing margin around the model")
	fs.BoolVar(&c.HUD, "hud", c.HUD, "Show the HUD on start")
	fs.DurationVar(&c.ResizeDelay, "resize-delay", c.ResizeDelay, "Quiet period before a terminal resize is applied")
	fs.Float64Var(&c.OrbitSensitivity, "orbit-sensitivity", c.OrbitSensitivity, "Radians per pixel of orbit drag")
	fs.Float64Var(&c.PanSensitivity, "pan-sensitivity", c.PanSensitivity, "View heights per screen height of pan drag")
	fs.Float64Var(&c.ZoomSensitivity, "zoom-sensitivity", c.ZoomSensitivity, "Height change per wheel unit")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Write logs to this file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn or error")
	fs.StringVarP(&c.Snapshot, "snapshot", "o", c.Snapshot, "Render to this PNG file instead of opening the viewer")
	fs.IntVar(&c.SnapshotWidth, "width", c.SnapshotWidth, "Snapshot width in pixels")
	fs.IntVar(&c.SnapshotHeight, "height", c.SnapshotHeight, "Snapshot height in pixels")
	fs.IntVar(&c.SnapshotPasses, "passes", c.SnapshotPasses, "Passes accumulated into a snapshot")
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if c.FPS < 1 || c.FPS > 240 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrFPS, c.FPS))
	}
	if _, err := c.BackgroundColor(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxPasses < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrPasses, c.MaxPasses))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrWorkers, c.Workers))
	}
	if _, err := c.Kind(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ViewMode(); err != nil {
		errs = append(errs, err)
	}
	if c.Margin < 0 || c.Margin >= 1 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrMargin, c.Margin))
	}
	if c.ResizeDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: %v", ErrResizeDelay, c.ResizeDelay))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Snapshot != "" && (c.SnapshotPasses < 1 || c.SnapshotWidth < 1 || c.SnapshotHeight < 1) {
		errs = append(errs, fmt.Errorf("%w: %dx%d, %d passes", ErrSnapshot, c.SnapshotWidth, c.SnapshotHeight, c.SnapshotPasses))
	}
	return errors.Join(errs...)
}

// BackgroundColor parses Background.
func (c Config) BackgroundColor() (color.RGBA, error) {
	s := strings.TrimSpace(c.Background)
	if strings.HasPrefix(s, "#") {
		col, err := colorful.Hex(s)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w: %w", ErrBackground, err)
		}
		r, g, b := col.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	}

	var r, g, b uint8
	if n, err := fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil || n != 3 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBackground, c.Background)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Kind parses Projection.
func (c Config) Kind() (camera.Kind, error) {
	k, err := camera.ParseKind(strings.ToLower(c.Projection))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProjection, err)
	}
	return k, nil
}

// ViewMode parses View.
func (c Config) ViewMode() (camera.View, error) {
	v, err := camera.ParseView(strings.ToLower(c.View))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrView, err)
	}
	return v, nil
}

// Level parses LogLevel.
func (c Config) Level() (log.Level, error) {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrLogLevel, err)
	}
	return l, nil
}

// ControllerOptions returns the controller sensitivities.
func (c Config) ControllerOptions() []control.Option {
	return []control.Option{
		control.WithOrbitSensitivity(c.OrbitSensitivity),
		control.WithPanSensitivity(c.PanSensitivity),
		control.WithZoomSensitivity(c.ZoomSensitivity),
	}
}

// SceneOptions returns the scene settings. Validate must have passed.
func (c Config) SceneOptions() []scene.Option {
	bg, _ := c.BackgroundColor()
	kind, _ := c.Kind()
	view, _ := c.ViewMode()
	return []scene.Option{
		scene.WithBackground(bg),
		scene.WithProjection(kind),
		scene.WithView(view),
		scene.WithMargin(c.Margin),
	}
}

// RenderOptions returns the rasterizer settings.
func (c Config) RenderOptions() []render.Option {
	return []render.Option{
		render.WithMaxPasses(c.MaxPasses),
		render.WithWorkers(c.Workers),
	}
}
