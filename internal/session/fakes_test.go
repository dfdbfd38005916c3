package session

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/engine/loop"
	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// listeners is a tiny event registry shared by the fakes.
type listeners[K comparable] struct {
	m map[K][]*func()
}

func (l *listeners[K]) on(k K, fn func()) func() {
	if l.m == nil {
		l.m = make(map[K][]*func())
	}
	p := &fn
	l.m[k] = append(l.m[k], p)
	return func() {
		fns := l.m[k]
		for i, q := range fns {
			if q == p {
				l.m[k] = append(fns[:i:i], fns[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners[K]) emit(k K) {
	fns := append([]*func(){}, l.m[k]...)
	for _, fn := range fns {
		(*fn)()
	}
}

func (l *listeners[K]) count() int {
	n := 0
	for _, fns := range l.m {
		n += len(fns)
	}
	return n
}

type fakeVideo struct {
	enough bool
	w, h   int
}

func (v *fakeVideo) HasEnoughData() bool { return v.enough }
func (v *fakeVideo) Size() (int, int) { return v.w, v.h }
func (v *fakeVideo) Frame() *image.RGBA  { return image.NewRGBA(image.Rect(0, 0, v.w, v.h)) }

type fakePlayback struct {
	paused bool
	ready  bool
	video  *fakeVideo
	plays  int
	pauses int
	events listeners[PlaybackEvent]
}

func (p *fakePlayback) Play() { p.plays++; p.paused = false }
func (p *fakePlayback) Pause() { p.pauses++; p.paused = true }
func (p *fakePlayback) Paused() bool { return p.paused }
func (p *fakePlayback) Ready() bool  { return p.ready }

func (p *fakePlayback) On(ev PlaybackEvent, fn func()) func() { return p.events.on(ev, fn) }

func (p *fakePlayback) Video() Video {
	if p.video == nil {
		return nil
	}
	return p.video
}

type fakeRenderer struct {
	meshes   map[MeshID]projection.Mesh
	next     MeshID
	video    Video
	bg       color.RGBA
	sizes    [][2]int
	dirty    int
	renders  int
	poses    []*xr.Pose
	err      error
	disposed bool
	calls    *[]string
}

func (r *fakeRenderer) BindVideo(v Video) { r.video = v }

func (r *fakeRenderer) Add(m projection.Mesh) MeshID {
	if r.meshes == nil {
		r.meshes = make(map[MeshID]projection.Mesh)
	}
	r.next++
	r.meshes[r.next] = m
	return r.next
}

func (r *fakeRenderer) Remove(id MeshID) { delete(r.meshes, id) }
func (r *fakeRenderer) SetBackground(c color.RGBA) { r.bg = c }
func (r *fakeRenderer) SetSize(w, h int) { r.sizes = append(r.sizes, [2]int{w, h}) }

func (r *fakeRenderer) MarkTextureDirty() {
	r.dirty++
	*r.calls = append(*r.calls, "dirty")
}

func (r *fakeRenderer) Render(_ *camera.Camera, pose *xr.Pose) error {
	r.renders++
	r.poses = append(r.poses, pose)
	*r.calls = append(*r.calls, "render")
	return r.err
}

func (r *fakeRenderer) Dispose() { r.disposed = true }

type fakeControls struct {
	enabled  bool
	updates  int
	halfView bool
	disposed bool
	pointers []gesture.Event
	calls    *[]string
}

func (o *fakeControls) Update() {
	o.updates++
	*o.calls = append(*o.calls, "controls")
}
func (o *fakeControls) Enable() { o.enabled = true }
func (o *fakeControls) Disable() { o.enabled = false }
func (o *fakeControls) Dispose() { o.disposed = true }
func (o *fakeControls) SetHalfView(h bool) { o.halfView = h }
func (o *fakeControls) HandlePointer(ev gesture.Event) { o.pointers = append(o.pointers, ev) }

type fakeAudio struct {
	updates   int
	disposed  bool
	suspended func()
	resumes   int
	calls     *[]string
}

func (a *fakeAudio) Update(*camera.Camera) {
	a.updates++
	*a.calls = append(*a.calls, "audio")
}
func (a *fakeAudio) OnSuspended(fn func()) { a.suspended = fn }
func (a *fakeAudio) Resume() error         { a.resumes++; return nil }
func (a *fakeAudio) Dispose() { a.disposed = true }

type fakeButton struct {
	active  bool
	removed bool
	onClick func()
}

func (b *fakeButton) Active() bool      { return b.active }
func (b *fakeButton) SetActive(a bool) { b.active = a }
func (b *fakeButton) Remove() { b.removed = true }

type fakeHost struct {
	w, h     int
	reports  []*Error
	attached int
	restored int
	buttons  []*fakeButton
	events   listeners[HostEvent]
}

func (h *fakeHost) ContainerSize() (int, int) { return h.w, h.h }

func (h *fakeHost) SurfaceBounds() gesture.Rect {
	return gesture.Rect{W: float32(h.w), H: float32(h.h)}
}

func (h *fakeHost) AttachSurface() func() {
	h.attached++
	return func() { h.restored++ }
}

func (h *fakeHost) AddSessionButton(onClick func()) SessionButton {
	b := &fakeButton{onClick: onClick}
	h.buttons = append(h.buttons, b)
	return b
}

func (h *fakeHost) Subscribe(ev HostEvent, fn func()) func() { return h.events.on(ev, fn) }

func (h *fakeHost) ReportError(err *Error) { h.reports = append(h.reports, err) }

func (h *fakeHost) button() *fakeButton {
	if len(h.buttons) == 0 {
		return nil
	}
	return h.buttons[len(h.buttons)-1]
}

type fakeGamepads struct {
	pads []Gamepad
}

func (g *fakeGamepads) Gamepads() []Gamepad { return g.pads }

type fakeSystem struct {
	supported  bool
	requestErr error
	requests   int
	sessions   []*fakeSession
}

func (s *fakeSystem) IsSessionSupported(context.Context, xr.Mode) (bool, error) {
	return s.supported, nil
}

func (s *fakeSystem) RequestSession(context.Context, xr.Mode, xr.SessionInit) (xr.Session, error) {
	s.requests++
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	sess := &fakeSession{frames: make(map[xr.FrameHandle]xr.FrameCallback)}
	s.sessions = append(s.sessions, sess)
	return sess, nil
}

type fakeSession struct {
	frames    map[xr.FrameHandle]xr.FrameCallback
	next      xr.FrameHandle
	ended     int
	onEnd     listeners[int]
	cancelled int
}

func (s *fakeSession) RequestAnimationFrame(fn xr.FrameCallback) xr.FrameHandle {
	s.next++
	s.frames[s.next] = fn
	return s.next
}

func (s *fakeSession) CancelAnimationFrame(h xr.FrameHandle) {
	if _, ok := s.frames[h]; ok {
		s.cancelled++
	}
	delete(s.frames, h)
}

func (s *fakeSession) RequestReferenceSpace(_ context.Context, t xr.ReferenceSpaceType) (xr.ReferenceSpace, error) {
	return fakeSpace(t), nil
}

func (s *fakeSession) OnEnd(fn func()) func() { return s.onEnd.on(0, fn) }

func (s *fakeSession) End() error {
	s.ended++
	s.onEnd.emit(0)
	return nil
}

// runFrames runs every pending session frame callback once.
func (s *fakeSession) runFrames() {
	pending := s.frames
	s.frames = make(map[xr.FrameHandle]xr.FrameCallback)
	for _, fn := range pending {
		fn(time.Now(), fakeFrame{})
	}
}

type fakeSpace xr.ReferenceSpaceType

func (s fakeSpace) Type() xr.ReferenceSpaceType { return xr.ReferenceSpaceType(s) }

type fakeFrame struct{}

func (fakeFrame) ViewerPose(xr.ReferenceSpace) (xr.Pose, bool) {
	return xr.Pose{Views: make([]xr.View, 2)}, true
}

type fakeLegacy struct {
	outOfDate bool
}

func (l *fakeLegacy) OutOfDate() bool { return l.outOfDate }

func (l *fakeLegacy) Displays(context.Context) ([]xr.LegacyDisplay, error) { return nil, nil }

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

// fixture wires a Controller to fakes. Spawned platform calls run inline so
// their results land on the loop deterministically.
type fixture struct {
	t        *testing.T
	loop     *loop.Loop
	clock    *clock
	host     *fakeHost
	playback *fakePlayback
	system   *fakeSystem
	platform *xr.Runtime
	renderer *fakeRenderer
	controls *fakeControls
	audio    *fakeAudio
	pads     *fakeGamepads
	calls    []string
	spawned  []func()
	inline   bool
	ctrl     *Controller
	opts     Options
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		clock:    &clock{t: time.Unix(0, 0)},
		host:     &fakeHost{w: 1280, h: 720},
		playback: &fakePlayback{paused: true, ready: true, video: &fakeVideo{enough: true, w: 3840, h: 1920}},
		system:   &fakeSystem{supported: true},
		pads:     &fakeGamepads{},
		inline:   true,
	}
	f.loop = loop.New(loop.WithClock(f.clock.now))
	f.platform = xr.NewRuntime(f.system, nil, nil)
	f.opts = DefaultOptions()
	f.deps = Deps{
		Playback:   f.playback,
		Host:       f.host,
		Platform:   f.platform,
		Gamepads:   f.pads,
		Display:    f.loop,
		Timers:     f.loop,
		Dispatcher: f.loop,
		NewRenderer: func(w, h int) (Renderer, error) {
			f.renderer = &fakeRenderer{calls: &f.calls}
			return f.renderer, nil
		},
		NewOrientationController: func(_ *camera.Camera, halfView, _ bool) OrientationController {
			f.controls = &fakeControls{enabled: true, halfView: halfView, calls: &f.calls}
			return f.controls
		},
		NewSpatialAudio: func() (SpatialAudio, error) {
			f.audio = &fakeAudio{calls: &f.calls}
			return f.audio, nil
		},
		Spawn: func(fn func()) {
			if f.inline {
				fn()
				return
			}
			f.spawned = append(f.spawned, fn)
		},
	}
	return f
}

func (f *fixture) build() *Controller {
	f.ctrl = New(f.opts, f.deps)
	return f.ctrl
}

func (f *fixture) init() *Controller {
	f.t.Helper()
	c := f.build()
	if err := c.Init(); err != nil {
		f.t.Fatalf("Init: %v", err)
	}
	f.loop.RunPending()
	return c
}

// frame runs one display-sync frame.
func (f *fixture) frame() {
	f.calls = f.calls[:0]
	f.loop.RunFrame()
}

func (f *fixture) advance(d time.Duration) {
	f.clock.t = f.clock.t.Add(d)
	f.loop.RunPending()
}

func (f *fixture) activate() *fakeSession {
	f.t.Helper()
	f.ctrl.Activate()
	f.loop.RunPending()
	if len(f.system.sessions) == 0 {
		f.t.Fatal("no session requested")
	}
	return f.system.sessions[len(f.system.sessions)-1]
}
