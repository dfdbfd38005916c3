// Package app implements the player's main loop and wires the session
// controller to the desktop window.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/config"
	"github.com/Faultbox/midgard-vr/internal/desktop"
	"github.com/Faultbox/midgard-vr/internal/engine/input"
	"github.com/Faultbox/midgard-vr/internal/engine/loop"
	"github.com/Faultbox/midgard-vr/internal/engine/window"
	"github.com/Faultbox/midgard-vr/internal/logger"
	"github.com/Faultbox/midgard-vr/internal/media"
	"github.com/Faultbox/midgard-vr/internal/session"
	"github.com/Faultbox/midgard-vr/internal/xr"
)

// Title is the window title.
const Title = "Midgard VR"

// App is the player instance.
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	running bool

	window     *window.Window
	input      *input.Input
	loop       *loop.Loop
	host       *desktop.Host
	pads       *desktop.Gamepads
	router     *desktop.Router
	player     *media.Player
	tracker    *xr.OrientationTracker
	controller *session.Controller
}

// New creates the window and wires the player. The clip starts loading on
// Run.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg: cfg,
		log: logger.Named("app"),
	}
	a.log.Info("initializing player",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("projection", cfg.VR.Projection),
		zap.String("clip", cfg.Media.Clip),
	)

	// Create window (this also creates OpenGL context)
	var err error
	a.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	}, logger.Named("window"))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	a.loop = loop.New()
	a.input = input.New(a.window.GetSize)
	a.host = desktop.NewHost(a.window, Title, logger.Named("host"))
	a.pads = desktop.NewGamepads(desktop.OpenSDLController, logger.Named("gamepad"))
	a.player = media.NewPlayer(mediaConfig(cfg), a.loop.Post, logger.Named("media"))
	a.tracker = xr.NewOrientationTracker()

	var shim func() (xr.System, error)
	if cfg.VR.Cardboard {
		shim = func() (xr.System, error) {
			return xr.NewCardboard(a.loop, a.tracker, a.aspect, xr.DefaultCardboardConfig(), logger.Named("cardboard")), nil
		}
	}

	deps := session.Deps{
		Playback:    a.player,
		Host:        a.host,
		Platform:    xr.NewRuntime(nil, nil, shim),
		Gamepads:    a.pads,
		Display:     a.loop,
		Timers:      a.loop,
		Dispatcher:  a.loop,
		NewRenderer: newRenderer,
		Hooks: session.Hooks{
			OnTogglePlayback: func() { a.log.Debug("playback toggled", zap.Bool("paused", a.player.Paused())) },
			OnExitSession:    func() { a.log.Info("session exit requested") },
			OnOpenSettings:   a.showSettings,
		},
		Logger: logger.Named("session"),
	}
	if cfg.VR.SpatialAudio.Enabled {
		deps.NewSpatialAudio = spatialAudio(cfg.VR.SpatialAudio)
	}
	a.controller = session.New(Options(cfg), deps)

	a.router = desktop.NewRouter(a.host, a.window, a.player, a.controller, a.pads, a.tracker, logger.Named("input"))

	a.log.Info("player initialized successfully")
	return a, nil
}

// aspect returns the drawable width/height ratio.
func (a *App) aspect() float32 {
	w, h := a.window.DrawableSize()
	if w <= 0 || h <= 0 {
		return 1
	}
	return float32(w) / float32(h)
}

// Run opens the clip, initializes the session controller and runs the main
// loop until the window closes.
func (a *App) Run() error {
	a.running = true
	a.player.Open()

	if err := a.controller.Init(); err != nil {
		return fmt.Errorf("init player: %w", err)
	}

	// Timing
	frameCount := 0
	fpsTimer := time.Now()

	a.log.Info("starting main loop")

	for a.running {
		// 1. Process input
		if a.input.Update() {
			// Quit event received
			a.running = false
			break
		}
		a.router.Handle(a.input.Events())

		// 2. Posted work and timers, then display-sync callbacks
		a.loop.RunPending()
		a.loop.RunFrame()

		// 3. Present (swap buffers)
		a.window.SwapBuffers()
		if !a.cfg.Graphics.VSync {
			time.Sleep(time.Millisecond)
		}

		// FPS counter
		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			frames, timers := a.loop.Pending()
			a.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("pending_frames", frames),
				zap.Int("pending_timers", timers))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close cleans up player resources.
func (a *App) Close() {
	a.log.Info("closing player")

	if a.controller != nil {
		a.controller.Dispose()
	}
	if a.pads != nil {
		a.pads.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}
