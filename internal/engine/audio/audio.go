// Package audio provides the spatial soundtrack: a looped stereo track
// panned and attenuated against the camera heading.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// rearGain is the linear gain of a source directly behind the listener.
const rearGain = 0.35

// ErrDisposed is returned by Resume after Dispose.
var ErrDisposed = errors.New("audio: disposed")

// Config configures the spatial track.
type Config struct {
	// Track is the path of a WAV file.
	Track string
	// Volume is the base volume (0.0 to 1.0).
	Volume float64
}

// output is the sink the track is mixed into.
type output interface {
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(DefaultSampleRate, DefaultSampleRate.N(time.Second/30))
	})
	return speakerErr
}

// Spatial implements session.SpatialAudio. Like a browser audio context it
// starts suspended and only produces sound after Resume.
type Spatial struct {
	log *zap.Logger
	out output

	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	pan      *effects.Pan
	volume   *effects.Volume
	level    float64

	suspended   bool
	notified    bool
	onSuspended func()
	disposed    bool
}

// New opens the speaker and loads the track.
func New(cfg Config, log *zap.Logger) (*Spatial, error) {
	data, err := os.ReadFile(cfg.Track)
	if err != nil {
		return nil, fmt.Errorf("read track: %w", err)
	}
	if err := initSpeaker(); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return newSpatial(data, cfg.Volume, speakerOutput{}, log)
}

func newSpatial(data []byte, volume float64, out output, log *zap.Logger) (*Spatial, error) {
	if log == nil {
		log = zap.NewNop()
	}

	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	var resampled beep.Streamer = streamer
	if format.SampleRate != DefaultSampleRate {
		resampled = beep.Resample(4, format.SampleRate, DefaultSampleRate, streamer)
	}

	s := &Spatial{
		log:       log,
		out:       out,
		streamer:  streamer,
		level:     clamp(volume, 0, 1),
		suspended: true,
	}
	s.ctrl = &beep.Ctrl{
		Streamer: &loopStreamer{streamer: streamer, resampled: resampled},
		Paused:   true,
	}
	s.pan = &effects.Pan{Streamer: s.ctrl}
	s.volume = &effects.Volume{Streamer: s.pan, Base: 2}
	s.applyGain(1)

	out.Play(s.volume)
	log.Info("spatial audio ready",
		zap.Int("sample_rate", int(format.SampleRate)),
		zap.Float64("volume", s.level))
	return s, nil
}

// Update pans the track against the camera heading. The first update while
// suspended fires the suspended callback once.
func (s *Spatial) Update(cam *camera.Camera) {
	if s.disposed {
		return
	}
	pan, gain := spatialize(float64(cam.Yaw()))

	s.out.Lock()
	s.pan.Pan = pan
	s.applyGain(gain)
	s.out.Unlock()

	if s.suspended && !s.notified && s.onSuspended != nil {
		s.notified = true
		s.onSuspended()
	}
}

func (s *Spatial) applyGain(gain float64) {
	vol := s.level * gain
	s.volume.Silent = vol <= 0
	s.volume.Volume = volumeToDb(vol)
}

// OnSuspended registers the callback fired when output is suspended.
func (s *Spatial) OnSuspended(fn func()) {
	s.onSuspended = fn
}

// Suspended reports whether output is suspended.
func (s *Spatial) Suspended() bool {
	return s.suspended
}

// Resume starts output.
func (s *Spatial) Resume() error {
	if s.disposed {
		return ErrDisposed
	}
	s.out.Lock()
	s.ctrl.Paused = false
	s.out.Unlock()
	s.suspended = false
	s.log.Debug("spatial audio resumed")
	return nil
}

// Dispose stops the track and releases the decoder.
func (s *Spatial) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	s.out.Lock()
	s.ctrl.Paused = true
	// A nil streamer drains the Ctrl, so the speaker drops it.
	s.ctrl.Streamer = nil
	s.out.Unlock()

	if err := s.streamer.Close(); err != nil {
		s.log.Warn("close track", zap.Error(err))
	}
}

// spatialize returns the stereo pan and linear gain of a source straight
// ahead of the scene origin, heard by a listener turned yaw radians left.
func spatialize(yaw float64) (pan, gain float64) {
	pan = math.Sin(yaw)
	gain = rearGain + (1-rearGain)*(1+math.Cos(yaw))/2
	return pan, gain
}

// volumeToDb converts a 0-1 volume to the base-2 decibel-like scale of
// effects.Volume.
func volumeToDb(vol float64) float64 {
	if vol <= 0 {
		return -100 // Effectively silent
	}
	return math.Log2(vol)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// loopStreamer wraps a streamer to make it loop.
type loopStreamer struct {
	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
}

func (l *loopStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		n, ok := l.resampled.Stream(samples[filled:])
		filled += n
		if !ok {
			if err := l.streamer.Seek(0); err != nil {
				return filled, filled > 0
			}
			if n == 0 && l.streamer.Len() == 0 {
				return filled, filled > 0
			}
		}
	}
	return filled, true
}

func (l *loopStreamer) Err() error {
	return l.streamer.Err()
}
