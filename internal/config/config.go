// Package config handles player configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// Config holds all player settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	VR       VRConfig       `yaml:"vr"`
	Media    MediaConfig    `yaml:"media"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// VRConfig holds immersive player settings.
type VRConfig struct {
	Projection               string             `yaml:"projection"`
	SphereDetail             int                `yaml:"sphere_detail"`
	ForceSessionButton       bool               `yaml:"force_session_button"`
	EnableOrientationControl bool               `yaml:"enable_orientation_control"`
	Debug                    bool               `yaml:"debug"`
	FisheyeFactor            float64            `yaml:"fisheye_factor"`
	Cardboard                bool               `yaml:"cardboard"`
	SpatialAudio             SpatialAudioConfig `yaml:"spatial_audio"`
}

// SpatialAudioConfig holds the positional soundtrack settings.
type SpatialAudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Track   string  `yaml:"track"` // WAV file
	Volume  float64 `yaml:"volume"`
}

// MediaConfig holds clip settings.
type MediaConfig struct {
	Clip           string  `yaml:"clip"` // image file or frame directory
	FPS            float64 `yaml:"fps"`
	Loop           bool    `yaml:"loop"`
	MaxTextureSize int     `yaml:"max_texture_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		VR: VRConfig{
			Projection:               "360",
			SphereDetail:             128,
			EnableOrientationControl: true,
			Cardboard:                true,
			SpatialAudio: SpatialAudioConfig{
				Volume: 0.8,
			},
		},
		Media: MediaConfig{
			FPS:            30,
			Loop:           true,
			MaxTextureSize: 4096,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		errs = append(errs, fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height))
	}
	if _, ok := projection.ParseFormat(c.VR.Projection); !ok {
		errs = append(errs, fmt.Errorf("vr: unknown projection %q", c.VR.Projection))
	}
	if c.VR.SphereDetail < 3 {
		errs = append(errs, fmt.Errorf("vr: sphere_detail %d is below 3", c.VR.SphereDetail))
	}
	if c.VR.FisheyeFactor < -1 || c.VR.FisheyeFactor > 1 {
		errs = append(errs, fmt.Errorf("vr: fisheye_factor %g is outside [-1, 1]", c.VR.FisheyeFactor))
	}
	if a := c.VR.SpatialAudio; a.Enabled && a.Track == "" {
		errs = append(errs, errors.New("vr: spatial_audio enabled without a track"))
	}
	if v := c.VR.SpatialAudio.Volume; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("vr: spatial_audio volume %g is outside [0, 1]", v))
	}
	if c.Media.FPS <= 0 {
		errs = append(errs, fmt.Errorf("media: fps %g must be positive", c.Media.FPS))
	}
	if c.Media.MaxTextureSize < 0 {
		errs = append(errs, fmt.Errorf("media: max_texture_size %d is negative", c.Media.MaxTextureSize))
	}
	return errors.Join(errs...)
}
