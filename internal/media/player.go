package media

import (
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/session"
)

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 30

// Config configures the player.
type Config struct {
	// Path is an image file or a directory of frames. Empty means no
	// playback element.
	Path           string
	FPS            float64
	Loop           bool
	MaxTextureSize int
}

// Player implements session.Playback and session.Video. All methods except
// the loader run on the UI sequence; load results arrive through post.
type Player struct {
	cfg   Config
	log   *zap.Logger
	post  func(func())
	spawn func(func())
	now   func() time.Time

	clip    *Clip
	loadErr error
	loading bool

	paused bool
	// offset is the playback position when playback last paused; since is
	// when it last resumed.
	offset time.Duration
	since  time.Time

	fullscreen bool
	listeners  map[session.PlaybackEvent][]*func()
}

// Option configures a Player.
type Option func(*Player)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// WithSpawn replaces the goroutine used to decode the clip.
func WithSpawn(spawn func(func())) Option {
	return func(p *Player) { p.spawn = spawn }
}

// NewPlayer creates a paused player. post must run fn on the UI sequence.
func NewPlayer(cfg Config, post func(func()), log *zap.Logger, opts ...Option) *Player {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Player{
		cfg:       cfg,
		log:       log,
		post:      post,
		spawn:     func(fn func()) { go fn() },
		now:       time.Now,
		paused:    true,
		listeners: make(map[session.PlaybackEvent][]*func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open starts decoding the clip in the background. load and ready fire once
// it is decoded.
func (p *Player) Open() {
	if p.cfg.Path == "" || p.loading || p.clip != nil {
		return
	}
	p.loading = true
	path, maxSize := p.cfg.Path, p.cfg.MaxTextureSize
	p.log.Info("loading clip", zap.String("path", path))

	p.spawn(func() {
		clip, err := LoadClip(path, maxSize)
		p.post(func() { p.loaded(clip, err) })
	})
}

func (p *Player) loaded(clip *Clip, err error) {
	p.loading = false
	if err != nil {
		p.loadErr = err
		p.log.Error("failed to load clip", zap.String("path", p.cfg.Path), zap.Error(err))
		return
	}
	p.clip = clip
	p.log.Info("clip loaded",
		zap.Int("frames", len(clip.Frames)),
		zap.Int("width", clip.Width),
		zap.Int("height", clip.Height),
		zap.Float64("fps", p.cfg.FPS))

	p.emit(session.EventLoad)
	p.emit(session.EventReady)
	if !p.paused {
		p.since = p.now()
		p.emit(session.EventPlaying)
	}
}

// Err returns the load error, if any.
func (p *Player) Err() error {
	return p.loadErr
}

// Play starts or resumes playback.
func (p *Player) Play() {
	if !p.paused {
		return
	}
	p.paused = false
	p.since = p.now()
	if p.Ready() {
		p.emit(session.EventPlaying)
	}
}

// Pause freezes playback on the current frame.
func (p *Player) Pause() {
	if p.paused {
		return
	}
	p.offset = p.position()
	p.paused = true
}

func (p *Player) Paused() bool { return p.paused }

// Ready reports whether frames are available.
func (p *Player) Ready() bool { return p.clip != nil }

// Fullscreen reports the last fullscreen state set.
func (p *Player) Fullscreen() bool { return p.fullscreen }

// SetFullscreen records a fullscreen change and notifies listeners.
func (p *Player) SetFullscreen(on bool) {
	if on == p.fullscreen {
		return
	}
	p.fullscreen = on
	if on {
		p.emit(session.EventFullscreen)
	} else {
		p.emit(session.EventFullscreenExit)
	}
}

// On registers fn for ev and returns its remover.
func (p *Player) On(ev session.PlaybackEvent, fn func()) func() {
	ptr := &fn
	p.listeners[ev] = append(p.listeners[ev], ptr)
	return func() {
		fns := p.listeners[ev]
		for i, q := range fns {
			if q == ptr {
				p.listeners[ev] = append(fns[:i:i], fns[i+1:]...)
				return
			}
		}
	}
}

func (p *Player) emit(ev session.PlaybackEvent) {
	fns := append([]*func(){}, p.listeners[ev]...)
	for _, fn := range fns {
		(*fn)()
	}
}

// Video returns the player as the frame source, or nil without a clip path.
func (p *Player) Video() session.Video {
	if p.cfg.Path == "" {
		return nil
	}
	return p
}

// HasEnoughData reports whether a frame can be shown.
func (p *Player) HasEnoughData() bool {
	return p.clip != nil && len(p.clip.Frames) > 0
}

// Size returns the frame size, or zeros before load.
func (p *Player) Size() (int, int) {
	if p.clip == nil {
		return 0, 0
	}
	return p.clip.Width, p.clip.Height
}

// Frame returns the frame for the current playback position.
func (p *Player) Frame() *image.RGBA {
	if !p.HasEnoughData() {
		return nil
	}
	return p.clip.Frames[p.FrameIndex()]
}

// FrameIndex returns the index of the current frame. Without looping the
// last frame holds once the clip ends.
func (p *Player) FrameIndex() int {
	if p.clip == nil || len(p.clip.Frames) == 0 {
		return 0
	}
	n := len(p.clip.Frames)
	i := int(p.position().Seconds() * p.cfg.FPS)
	if p.cfg.Loop {
		return i % n
	}
	return min(i, n-1)
}

func (p *Player) position() time.Duration {
	if p.paused {
		return p.offset
	}
	return p.offset + p.now().Sub(p.since)
}
