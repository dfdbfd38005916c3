package xr

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// LegacyAPI is the previous, display-centric generation of the immersive
// API.
type LegacyAPI interface {
	// OutOfDate reports an implementation too old to drive a session.
	OutOfDate() bool
	Displays(ctx context.Context) ([]LegacyDisplay, error)
}

// LegacyDisplay is a head-mounted display of the legacy API.
type LegacyDisplay interface {
	Name() string
	CanPresent() bool
	IsPresenting() bool
	RequestPresent(ctx context.Context) error
	ExitPresent() error
	// FrameData returns the latest pose, or false before tracking starts.
	FrameData() (LegacyFrameData, bool)
	RequestAnimationFrame(fn func(time.Time)) FrameHandle
	CancelAnimationFrame(h FrameHandle)
	OnPresentChange(fn func()) (off func())
}

// LegacyFrameData is the per-frame tracking record of a legacy display.
type LegacyFrameData struct {
	Orientation     math.Quat
	Position        math.Vec3
	LeftProjection  math.Mat4
	LeftView        math.Mat4
	RightProjection math.Mat4
	RightView       math.Mat4
}

// NewLegacySystem adapts a legacy API to System so the rest of the player
// handles both generations the same way.
func NewLegacySystem(api LegacyAPI) System {
	return &legacySystem{api: api}
}

type legacySystem struct {
	api LegacyAPI
}

func (s *legacySystem) display(ctx context.Context) (LegacyDisplay, error) {
	displays, err := s.api.Displays(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range displays {
		if d.CanPresent() {
			return d, nil
		}
	}
	return nil, ErrNoDisplay
}

func (s *legacySystem) IsSessionSupported(ctx context.Context, mode Mode) (bool, error) {
	if mode != ModeImmersiveVR {
		return false, nil
	}
	_, err := s.display(ctx)
	if errors.Is(err, ErrNoDisplay) {
		return false, nil
	}
	return err == nil, err
}

func (s *legacySystem) RequestSession(ctx context.Context, mode Mode, _ SessionInit) (Session, error) {
	if mode != ModeImmersiveVR {
		return nil, ErrUnsupportedMode
	}
	d, err := s.display(ctx)
	if err != nil {
		return nil, err
	}
	if d.IsPresenting() {
		return nil, ErrSessionActive
	}
	if err := d.RequestPresent(ctx); err != nil {
		return nil, err
	}

	ls := &legacySession{display: d}
	ls.offPresent = d.OnPresentChange(func() {
		if !d.IsPresenting() {
			ls.finish()
		}
	})
	return ls, nil
}

type legacySession struct {
	display    LegacyDisplay
	offPresent func()

	mu     sync.Mutex
	ended  bool
	nextID int
	onEnd  map[int]func()
}

func (s *legacySession) RequestAnimationFrame(fn FrameCallback) FrameHandle {
	return s.display.RequestAnimationFrame(func(t time.Time) {
		data, ok := s.display.FrameData()
		fn(t, legacyFrame{data: data, ok: ok})
	})
}

func (s *legacySession) CancelAnimationFrame(h FrameHandle) {
	s.display.CancelAnimationFrame(h)
}

func (s *legacySession) RequestReferenceSpace(_ context.Context, t ReferenceSpaceType) (ReferenceSpace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrSessionEnded
	}
	// Legacy displays only report sitting-space poses; every type resolves to
	// the same origin.
	return referenceSpace(t), nil
}

func (s *legacySession) OnEnd(fn func()) (off func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onEnd == nil {
		s.onEnd = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.onEnd[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.onEnd, id)
		s.mu.Unlock()
	}
}

func (s *legacySession) End() error {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return nil
	}
	err := s.display.ExitPresent()
	s.finish()
	return err
}

func (s *legacySession) finish() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	handlers := make([]func(), 0, len(s.onEnd))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.onEnd[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	s.onEnd = nil
	s.mu.Unlock()

	if s.offPresent != nil {
		s.offPresent()
	}
	for _, fn := range handlers {
		fn()
	}
}

type legacyFrame struct {
	data LegacyFrameData
	ok   bool
}

func (f legacyFrame) ViewerPose(_ ReferenceSpace) (Pose, bool) {
	if !f.ok {
		return Pose{}, false
	}
	return Pose{
		Orientation: f.data.Orientation,
		Position:    f.data.Position,
		Views: []View{
			{
				Eye:        projection.EyeLeft,
				Projection: f.data.LeftProjection,
				Transform:  f.data.LeftView,
				Viewport:   Viewport{X: 0, Y: 0, W: 0.5, H: 1},
			},
			{
				Eye:        projection.EyeRight,
				Projection: f.data.RightProjection,
				Transform:  f.data.RightView,
				Viewport:   Viewport{X: 0.5, Y: 0, W: 0.5, H: 1},
			},
		},
	}, true
}
