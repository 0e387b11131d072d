package config

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/taigrr/lumen/pkg/camera"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	bg, err := c.BackgroundColor()
	if err != nil {
		t.Fatal(err)
	}
	if bg != (color.RGBA{R: 20, G: 20, B: 30, A: 255}) {
		t.Errorf("default background = %v", bg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"fps zero", func(c *Config) { c.FPS = 0 }, ErrFPS},
		{"fps huge", func(c *Config) { c.FPS = 1000 }, ErrFPS},
		{"bad background", func(c *Config) { c.Background = "red" }, ErrBackground},
		{"short background", func(c *Config) { c.Background = "1,2" }, ErrBackground},
		{"bad hex", func(c *Config) { c.Background = "#12345" }, ErrBackground},
		{"negative passes", func(c *Config) { c.MaxPasses = -1 }, ErrPasses},
		{"negative workers", func(c *Config) { c.Workers = -2 }, ErrWorkers},
		{"projection", func(c *Config) { c.Projection = "fisheye" }, ErrProjection},
		{"view", func(c *Config) { c.View = "top" }, ErrView},
		{"margin", func(c *Config) { c.Margin = 1 }, ErrMargin},
		{"resize delay", func(c *Config) { c.ResizeDelay = -time.Millisecond }, ErrResizeDelay},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, ErrLogLevel},
		{"snapshot passes", func(c *Config) { c.Snapshot = "out.png"; c.SnapshotPasses = 0 }, ErrSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Default()
	c.FPS = 0
	c.View = "top"
	err := c.Validate()
	if !errors.Is(err, ErrFPS) || !errors.Is(err, ErrView) {
		t.Errorf("Validate() = %v, want both fps and view errors", err)
	}
}

func TestBackgroundColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"30,30,40", color.RGBA{R: 30, G: 30, B: 40, A: 255}},
		{" 0,128,255 ", color.RGBA{R: 0, G: 128, B: 255, A: 255}},
		{"#ff8000", color.RGBA{R: 255, G: 128, B: 0, A: 255}},
		{"#fff", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	for _, tt := range tests {
		c := Config{Background: tt.in}
		got, err := c.BackgroundColor()
		if err != nil {
			t.Errorf("BackgroundColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("BackgroundColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBindFlags(t *testing.T) {
	c := Default()
	fs := pflag.NewFlagSet("lumen", pflag.ContinueOnError)
	c.BindFlags(fs)

	err := fs.Parse([]string{
		"--fps", "30",
		"--bg", "#000000",
		"-p", "perspective",
		"--view", "front",
		"--resize-delay", "100ms",
		"--log-level", "debug",
		"--hud",
		"-o", "shot.png",
		"--passes", "8",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if c.FPS != 30 || !c.HUD || c.Snapshot != "shot.png" || c.SnapshotPasses != 8 {
		t.Errorf("parsed config = %+v", c)
	}
	if c.ResizeDelay != 100*time.Millisecond {
		t.Errorf("resize delay = %v", c.ResizeDelay)
	}
	if k, _ := c.Kind(); k != camera.KindPerspective {
		t.Errorf("kind = %v, want perspective", k)
	}
	if v, _ := c.ViewMode(); v != camera.ViewFront {
		t.Errorf("view = %v, want front", v)
	}
	if l, _ := c.Level(); l != log.DebugLevel {
		t.Errorf("level = %v, want debug", l)
	}
}

func TestOptionBuilders(t *testing.T) {
	c := Default()
	if n := len(c.ControllerOptions()); n != 3 {
		t.Errorf("ControllerOptions() has %d options, want 3", n)
	}
	if n := len(c.SceneOptions()); n != 4 {
		t.Errorf("SceneOptions() has %d options, want 4", n)
	}
	if n := len(c.RenderOptions()); n != 2 {
		t.Errorf("RenderOptions() has %d options, want 2", n)
	}
}
