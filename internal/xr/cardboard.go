package xr

import (
	"context"
	gomath "math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/engine/loop"
	"github.com/Faultbox/midgard-vr/pkg/math"
)

// Scheduler is a display-sync frame source.
type Scheduler interface {
	RequestAnimationFrame(fn func(time.Time)) loop.FrameID
	CancelAnimationFrame(id loop.FrameID)
}

// HeadTracker reports the viewer's head orientation.
type HeadTracker interface {
	Orientation() math.Quat
}

// CardboardConfig holds the split-screen viewer's optics.
type CardboardConfig struct {
	FOV  float32 // vertical, radians
	IPD  float32 // eye separation, scene units
	Near float32
	Far  float32
}

// DefaultCardboardConfig returns optics for a typical phone viewer.
func DefaultCardboardConfig() CardboardConfig {
	return CardboardConfig{
		FOV:  float32(80 * gomath.Pi / 180),
		IPD:  0.064,
		Near: 0.1,
		Far:  1000,
	}
}

// Cardboard is the compatibility System used when the device has no native
// immersive API: the screen is split into a left and a right eye, and head
// pose comes from a HeadTracker.
type Cardboard struct {
	sched  Scheduler
	head   HeadTracker
	aspect func() float32
	cfg    CardboardConfig
	log    *zap.Logger

	mu     sync.Mutex
	active *cardboardSession
}

// NewCardboard creates the compatibility system. aspect returns the output
// surface's width/height ratio.
func NewCardboard(sched Scheduler, head HeadTracker, aspect func() float32, cfg CardboardConfig, log *zap.Logger) *Cardboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cardboard{
		sched:  sched,
		head:   head,
		aspect: aspect,
		cfg:    cfg,
		log:    log,
	}
}

// IsSessionSupported reports true for immersive VR.
func (c *Cardboard) IsSessionSupported(_ context.Context, mode Mode) (bool, error) {
	return mode == ModeImmersiveVR, nil
}

// RequestSession starts a split-screen session. Only one runs at a time.
func (c *Cardboard) RequestSession(_ context.Context, mode Mode, init SessionInit) (Session, error) {
	if mode != ModeImmersiveVR {
		return nil, ErrUnsupportedMode
	}
	for _, f := range init.RequiredFeatures {
		if f != SpaceViewer && f != SpaceLocal {
			return nil, ErrUnsupportedMode
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil, ErrSessionActive
	}

	s := &cardboardSession{system: c, frames: make(map[FrameHandle]loop.FrameID)}
	c.active = s
	c.log.Info("split-screen session started",
		zap.Float32("fov", c.cfg.FOV),
		zap.Float32("ipd", c.cfg.IPD))
	return s, nil
}

// Active reports whether a session is running.
func (c *Cardboard) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

type cardboardSession struct {
	system *Cardboard

	mu     sync.Mutex
	ended  bool
	next   FrameHandle
	frames map[FrameHandle]loop.FrameID
	onEnd  []*func()
}

func (s *cardboardSession) RequestAnimationFrame(fn FrameCallback) FrameHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return 0
	}

	s.next++
	h := s.next
	s.frames[h] = s.system.sched.RequestAnimationFrame(func(t time.Time) {
		s.mu.Lock()
		_, pending := s.frames[h]
		delete(s.frames, h)
		ended := s.ended
		s.mu.Unlock()
		if !pending || ended {
			return
		}
		fn(t, cardboardFrame{
			orientation: s.system.head.Orientation(),
			cfg:         s.system.cfg,
			aspect:      s.system.aspect(),
		})
	})
	return h
}

func (s *cardboardSession) CancelAnimationFrame(h FrameHandle) {
	s.mu.Lock()
	id, ok := s.frames[h]
	delete(s.frames, h)
	s.mu.Unlock()
	if ok {
		s.system.sched.CancelAnimationFrame(id)
	}
}

func (s *cardboardSession) RequestReferenceSpace(_ context.Context, t ReferenceSpaceType) (ReferenceSpace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrSessionEnded
	}
	if t == SpaceLocalFloor {
		return nil, ErrUnsupportedMode
	}
	return referenceSpace(t), nil
}

func (s *cardboardSession) OnEnd(fn func()) (off func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &fn
	s.onEnd = append(s.onEnd, p)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, q := range s.onEnd {
			if q == p {
				s.onEnd = append(s.onEnd[:i], s.onEnd[i+1:]...)
				return
			}
		}
	}
}

func (s *cardboardSession) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	pending := s.frames
	s.frames = nil
	handlers := s.onEnd
	s.onEnd = nil
	s.mu.Unlock()

	for _, id := range pending {
		s.system.sched.CancelAnimationFrame(id)
	}

	s.system.mu.Lock()
	if s.system.active == s {
		s.system.active = nil
	}
	s.system.mu.Unlock()
	s.system.log.Info("split-screen session ended")

	for _, fn := range handlers {
		(*fn)()
	}
	return nil
}

type cardboardFrame struct {
	orientation math.Quat
	cfg         CardboardConfig
	aspect      float32
}

func (f cardboardFrame) ViewerPose(_ ReferenceSpace) (Pose, bool) {
	// Each eye gets half of the surface width.
	eyeAspect := f.aspect / 2
	if eyeAspect <= 0 {
		eyeAspect = 1
	}
	return Pose{
		Orientation: f.orientation,
		Views:       eyeViews(f.orientation, math.Vec3{}, f.cfg.IPD, f.cfg.FOV, eyeAspect, f.cfg.Near, f.cfg.Far),
	}, true
}
