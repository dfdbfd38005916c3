package app

import (
	"fmt"
	"strings"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/config"
	"github.com/Faultbox/midgard-vr/internal/engine/audio"
	"github.com/Faultbox/midgard-vr/internal/engine/renderer"
	"github.com/Faultbox/midgard-vr/internal/logger"
	"github.com/Faultbox/midgard-vr/internal/media"
	"github.com/Faultbox/midgard-vr/internal/session"
)

// Options maps the vr config section to controller options.
func Options(cfg *config.Config) session.Options {
	return session.Options{
		Projection:               cfg.VR.Projection,
		SphereDetail:             cfg.VR.SphereDetail,
		ForceSessionButton:       cfg.VR.ForceSessionButton,
		EnableOrientationControl: cfg.VR.EnableOrientationControl,
		Debug:                    cfg.VR.Debug,
		FisheyeFactor:            cfg.VR.FisheyeFactor,
	}
}

func mediaConfig(cfg *config.Config) media.Config {
	return media.Config{
		Path:           cfg.Media.Clip,
		FPS:            cfg.Media.FPS,
		Loop:           cfg.Media.Loop,
		MaxTextureSize: cfg.Media.MaxTextureSize,
	}
}

// newRenderer must run with the window's GL context current.
func newRenderer(width, height int) (session.Renderer, error) {
	r, err := renderer.New(renderer.Config{Width: width, Height: height}, logger.Named("renderer"))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func spatialAudio(cfg config.SpatialAudioConfig) func() (session.SpatialAudio, error) {
	return func() (session.SpatialAudio, error) {
		s, err := audio.New(audio.Config{Track: cfg.Track, Volume: cfg.Volume}, logger.Named("audio"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// settingsText describes the current settings and the keyboard controls.
func settingsText(cfg *config.Config, format string, active bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Clip: %s\n", cfg.Media.Clip)
	fmt.Fprintf(&b, "Projection: %s\n", format)
	fmt.Fprintf(&b, "Immersive session: %t\n", active)
	fmt.Fprintf(&b, "Spatial audio: %t\n\n", cfg.VR.SpatialAudio.Enabled)
	b.WriteString("F: fullscreen   Space: play/pause   V: enter/exit VR\n")
	b.WriteString("P: next projection   Arrows: look around   R: recenter")
	return b.String()
}

func (a *App) showSettings() {
	text := settingsText(a.cfg, a.controller.Projection().String(), a.controller.SessionState().Active)
	a.log.Debug("showing settings")
	dialog.Message("%s", text).Title("Player settings").Info()
}

// PickClip asks for a clip file. It returns "" when the dialog is
// cancelled.
func PickClip(log *zap.Logger) string {
	path, err := dialog.File().
		Filter("Images", "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp", "tga").
		Filter("All Files", "*").
		Title("Open 360 clip").
		Load()
	if err != nil {
		if err != dialog.ErrCancelled {
			log.Warn("file dialog failed", zap.Error(err))
		}
		return ""
	}
	return path
}
