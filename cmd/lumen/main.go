// lumen - progressive 3D model viewer for the terminal.
// Renders OBJ, GLB and GLTF files with a software rasterizer that keeps
// refining the image while the camera is still.
//
// Controls:
//
//	Left drag    - Orbit (yaw/pitch)
//	Right drag   - Roll
//	Middle drag  - Pan
//	Ctrl + drag  - Fine adjustment
//	Scroll, +/-  - Zoom in/out
//	W/S, A/D     - Pitch and yaw
//	Q/E          - Roll left/right
//	Space        - Apply random spin
//	R            - Reset camera
//	X            - Toggle wireframe mode (x-ray)
//	L            - Light positioning mode (move mouse, click to set, Esc to cancel)
//	?            - Toggle HUD overlay (FPS, passes, filename, poly count)
//	Esc, Ctrl+C  - Quit (Esc cancels light mode first)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/lumen/pkg/config"
	"github.com/taigrr/lumen/pkg/loop"
	"github.com/taigrr/lumen/pkg/models"
	"github.com/taigrr/lumen/pkg/render"
	"github.com/taigrr/lumen/pkg/scene"
	"github.com/taigrr/lumen/pkg/viewer"
)

var version = "dev"

const controls = `Controls:
  Left drag    - Orbit
  Right drag   - Roll
  Middle drag  - Pan (hold Ctrl for fine control)
  Scroll, +/-  - Zoom in/out
  W/S/A/D      - Pitch and yaw
  Q/E          - Roll left/right
  Space        - Random spin
  R            - Reset camera
  X            - Toggle wireframe
  L            - Position light (mouse to aim, click to set)
  ?            - Toggle HUD overlay
  Esc          - Quit`

// demoSpheres is the side of the sphere grid shown when no model is given.
const demoSpheres = 5

func main() {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "lumen [model.obj|model.glb|model.gltf]",
		Short: "Progressive 3D model viewer for the terminal",
		Long: "lumen renders a 3D model in the terminal and keeps refining the image while the camera rests.\n" +
			"Without a model it shows a grid of spheres.\n\n" + controls,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			var path string
			if len(args) > 0 {
				path = args[0]
			}
			return run(cmd.Context(), cfg, path)
		},
	}
	cfg.BindFlags(cmd.Flags())

	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, path string) error {
	// The viewer owns the terminal, so only snapshots log to stderr by default.
	var fallback io.Writer = io.Discard
	if cfg.Snapshot != "" {
		fallback = os.Stderr
	}
	logger, closeLog, err := newLogger(cfg, fallback)
	if err != nil {
		return err
	}
	defer closeLog()

	mesh, title, err := loadMesh(path)
	if err != nil {
		return err
	}
	logger.Info("loaded", "model", title, "vertices", mesh.VertexCount(), "triangles", mesh.TriangleCount(), "materials", mesh.MaterialCount())

	s := scene.New(mesh, cfg.SceneOptions()...)
	if cfg.Snapshot != "" {
		return snapshot(ctx, cfg, s, logger)
	}
	return interactive(ctx, cfg, s, title, logger)
}

func newLogger(cfg config.Config, fallback io.Writer) (*log.Logger, func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}
	w, closeFn := fallback, func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, func() { _ = f.Close() }
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "lumen",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	return logger, closeFn, nil
}

func loadMesh(path string) (*models.Mesh, string, error) {
	if path == "" {
		return models.NewSphereGrid(demoSpheres, 1), "sphere grid", nil
	}
	mesh, err := models.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load model: %w", err)
	}
	// Center and scale so sensitivities feel the same for every model.
	mesh.NormalizeToSize(2)
	return mesh, filepath.Base(path), nil
}

// snapshot renders cfg.SnapshotPasses passes off screen and writes a PNG.
func snapshot(ctx context.Context, cfg config.Config, s *scene.Scene, logger *log.Logger) error {
	w, h := cfg.SnapshotWidth, cfg.SnapshotHeight
	s.SetAspect(float64(w) / float64(h))
	s.ResetCamera()

	opts := append(cfg.RenderOptions(),
		render.WithMaxPasses(cfg.SnapshotPasses),
		render.WithLogger(logger.WithPrefix("render")),
	)
	r := render.NewRasterizer(w, h, opts...)
	coord, err := loop.New(r, loop.WithLogger(logger.WithPrefix("loop")))
	if err != nil {
		return err
	}
	defer coord.Close()

	start := time.Now()
	var fb *render.Framebuffer
	for range cfg.SnapshotPasses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fb, err = coord.ObtainFrame(s); err != nil {
			return err
		}
	}
	if err := fb.SavePNG(cfg.Snapshot); err != nil {
		return err
	}

	fps, _ := coord.CurrentFPS()
	logger.Info("snapshot written",
		"path", cfg.Snapshot,
		"size", fmt.Sprintf("%dx%d", w, h),
		"passes", r.Passes(),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"passes_per_sec", fps,
	)
	return nil
}

func interactive(ctx context.Context, cfg config.Config, s *scene.Scene, title string, logger *log.Logger) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	if err := term.Resize(width, height); err != nil {
		logger.Warn("resize terminal", "err", err)
	}

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		_ = term.Shutdown(context.Background())
	}()

	// Each cell holds two vertically stacked pixels.
	s.SetAspect(float64(width) / float64(height*2))
	s.ResetCamera()

	opts := append(cfg.RenderOptions(), render.WithLogger(logger.WithPrefix("render")))
	r := render.NewRasterizer(width, height*2, opts...)

	v, err := viewer.New(s, r,
		viewer.WithLogger(logger),
		viewer.WithTitle(title),
		viewer.WithFPS(cfg.FPS),
		viewer.WithResizeQuiescence(cfg.ResizeDelay),
		viewer.WithHUD(cfg.HUD),
		viewer.WithControllerOptions(cfg.ControllerOptions()...),
	)
	if err != nil {
		return err
	}
	defer v.Close()
	v.HandleEvent(uv.WindowSizeEvent{Width: width, Height: height})

	targetDuration := time.Second / time.Duration(cfg.FPS)
	events := term.Events()

	for {
		start := time.Now()

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		quit, err := drain(events, term, v)
		if err != nil {
			logger.Warn("resize terminal", "err", err)
		}
		if quit {
			return nil
		}

		dirty, err := v.Frame(term)
		if err != nil {
			if errors.Is(err, loop.ErrClosed) {
				return nil
			}
			return err
		}
		if dirty {
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}

		if elapsed := time.Since(start); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

// drain hands every queued event to the viewer without blocking. It reports
// whether the user asked to quit.
func drain(events <-chan uv.Event, term *uv.Terminal, v *viewer.Viewer) (bool, error) {
	var resizeErr error
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return true, resizeErr
			}
			if size, ok := ev.(uv.WindowSizeEvent); ok {
				term.Erase()
				resizeErr = term.Resize(size.Width, size.Height)
			}
			if !v.HandleEvent(ev) {
				return true, resizeErr
			}
		default:
			return false, resizeErr
		}
	}
}
