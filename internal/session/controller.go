package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// ErrDisposed is returned by Init after Dispose.
var ErrDisposed = errors.New("session: controller disposed")

// Controller owns the immersive scene and session lifecycle. All methods
// must be called from the UI sequence.
type Controller struct {
	opts Options
	deps Deps
	log  *zap.Logger

	defaultFormat projection.Format
	format        projection.Format

	state       State
	initialized bool
	// gen invalidates async results that arrive after a reset.
	gen uint64

	camera     *camera.Camera
	renderer   Renderer
	controls   OrientationController
	recognizer *gesture.Recognizer
	audio      SpatialAudio
	button     SessionButton
	meshes     []MeshID

	restoreSurface func()
	disposers      []func()

	// Platform
	capability Capability
	system     xr.System
	supported  bool

	// Session
	session          xr.Session
	space            xr.ReferenceSpace
	offSessionEnd    func()
	activating       bool
	abortActivation  bool
	cancelActivation context.CancelFunc
	deferred         *projection.Format
	pose             *xr.Pose

	// Frame pump
	cancelFrame  func()
	resizeTimers map[int]func()
	nextResize   int

	prevTimestamps map[int]uint64
}

// New creates a controller. Unknown projection ids fall back to NONE.
func New(opts Options, deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.NewOrientationController == nil {
		deps.NewOrientationController = defaultOrientationController
	}
	if deps.Spawn == nil {
		deps.Spawn = func(fn func()) { go fn() }
	}
	if opts.SphereDetail <= 0 {
		opts.SphereDetail = DefaultOptions().SphereDetail
	}

	c := &Controller{
		opts: opts,
		deps: deps,
		log:  deps.Logger,
	}

	f, ok := projection.ParseFormat(opts.Projection)
	if !ok {
		c.log.Error("invalid projection, expected one of the known formats",
			zap.String("projection", opts.Projection),
			zap.Stringers("formats", projection.Formats))
		f = projection.FormatNone
	}
	c.defaultFormat = f
	c.format = f
	return c
}

// trace logs lifecycle details when debugging is on.
func (c *Controller) trace(msg string, fields ...zap.Field) {
	if c.opts.Debug {
		c.log.Info(msg, fields...)
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// SessionState returns the immersive session state.
func (c *Controller) SessionState() SessionState {
	return SessionState{
		Capability: c.capability,
		Supported:  c.supported,
		Active:     c.session != nil,
		Session:    c.session,
		Space:      c.space,
	}
}

// Projection returns the current format.
func (c *Controller) Projection() projection.Format {
	return c.format
}

// Camera returns the viewer camera, or nil before Init.
func (c *Controller) Camera() *camera.Camera {
	return c.camera
}

// Init builds the scene and starts the render loop. It always resets
// first. A missing video element is reported to the host and returned.
func (c *Controller) Init() error {
	if c.state == StateDisposed {
		return ErrDisposed
	}
	c.Reset()

	width, height := c.deps.Host.ContainerSize()
	c.camera = camera.New(aspect(width, height))
	c.prevTimestamps = make(map[int]uint64)

	if c.format == projection.FormatNone {
		c.trace("projection is NONE, not initializing")
		c.Reset()
		return nil
	}

	video := c.deps.Playback.Video()
	if video == nil {
		err := ErrVideoNotFound
		c.deps.Host.ReportError(err)
		return err
	}

	r, err := c.deps.NewRenderer(width, height)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	r.BindVideo(video)
	r.SetSize(width, height)
	c.renderer = r

	c.restoreSurface = c.deps.Host.AttachSurface()
	c.initialized = true
	c.state = StateDetecting

	if c.opts.ForceSessionButton {
		c.addSessionButton()
	}

	c.trace("no head-mounted display driving the camera, using orbit and orientation controls")
	c.controls = c.deps.NewOrientationController(c.camera, c.format.HalfView(), c.opts.EnableOrientationControl)
	c.recognizer = gesture.New(c.deps.Host.SurfaceBounds, c.sessionActive, c.onAction)

	c.applyProjection(c.format)
	c.detect()
	c.scheduleFrame()

	if c.deps.NewSpatialAudio != nil {
		a, err := c.deps.NewSpatialAudio()
		if err != nil {
			c.log.Warn("spatial audio unavailable", zap.Error(err))
		} else {
			c.audio = a
			a.OnSuspended(c.onAudioSuspended)
		}
	}

	c.listen()
	c.log.Info("immersive player initialized",
		zap.Stringer("projection", c.format),
		zap.Int("width", width),
		zap.Int("height", height))
	return nil
}

func (c *Controller) listen() {
	host := c.deps.Host
	for _, ev := range []HostEvent{HostResize, HostFullscreenChange, HostOrientationChange, HostPresentChange} {
		c.disposers = append(c.disposers, host.Subscribe(ev, c.handleResize))
	}
	c.disposers = append(c.disposers,
		host.Subscribe(HostDisplayActivate, c.Activate),
		host.Subscribe(HostDisplayDeactivate, c.Deactivate),
	)

	p := c.deps.Playback
	c.disposers = append(c.disposers,
		p.On(EventFullscreen, c.handleResize),
		p.On(EventFullscreenExit, c.handleResize),
		p.On(EventFullscreenExit, func() {
			c.Deactivate()
			if c.button != nil {
				c.button.SetActive(false)
			}
		}),
		p.On(EventLoad, c.handleLoad),
	)
}

// handleLoad rebuilds formats whose geometry depends on the frame size.
func (c *Controller) handleLoad() {
	if c.format == projection.FormatCubeEACMono || c.format == projection.FormatCubeEACStereo {
		c.ChangeProjection(c.format.String())
	}
}

// Reset tears everything down. It is a no-op when not initialized.
func (c *Controller) Reset() {
	if !c.initialized {
		return
	}
	c.gen++

	c.stopFrame()
	for id, cancel := range c.resizeTimers {
		cancel()
		delete(c.resizeTimers, id)
	}
	if c.cancelActivation != nil {
		c.cancelActivation()
		c.cancelActivation = nil
	}
	c.activating = false
	c.abortActivation = false
	c.deferred = nil

	if c.session != nil {
		if c.offSessionEnd != nil {
			c.offSessionEnd()
			c.offSessionEnd = nil
		}
		if err := c.session.End(); err != nil {
			c.log.Warn("end session", zap.Error(err))
		}
		c.session = nil
		c.space = nil
		c.pose = nil
	}

	if c.audio != nil {
		c.audio.Dispose()
		c.audio = nil
	}
	if c.controls != nil {
		c.controls.Dispose()
		c.controls = nil
	}
	if c.recognizer != nil {
		c.recognizer.Dispose()
		c.recognizer = nil
	}

	for i := len(c.disposers) - 1; i >= 0; i-- {
		c.disposers[i]()
	}
	c.disposers = nil

	if c.restoreSurface != nil {
		c.restoreSurface()
		c.restoreSurface = nil
	}
	if c.button != nil {
		c.button.Remove()
		c.button = nil
	}

	if c.renderer != nil {
		c.renderer.Dispose()
		c.renderer = nil
	}
	c.meshes = nil

	c.capability = CapabilityNone
	c.system = nil
	c.supported = false
	c.format = c.defaultFormat
	c.initialized = false
	c.state = StateUninitialized
	c.trace("immersive player reset")
}

// Dispose resets the controller for good.
func (c *Controller) Dispose() {
	c.Reset()
	c.state = StateDisposed
}

// ChangeProjection switches to the format named by id. Unknown ids switch to
// NONE. Changes requested while a session is being entered are applied once
// activation settles.
func (c *Controller) ChangeProjection(id string) {
	f, ok := projection.ParseFormat(id)
	if !ok {
		c.log.Warn("unknown projection, showing nothing", zap.String("projection", id))
		f = projection.FormatNone
	}
	if c.activating {
		c.deferred = &f
		c.trace("projection change deferred until activation settles", zap.Stringer("projection", f))
		return
	}
	c.applyProjection(f)
}

func (c *Controller) applyProjection(f projection.Format) {
	c.format = f
	if !c.initialized {
		return
	}

	for _, id := range c.meshes {
		c.renderer.Remove(id)
	}
	c.meshes = c.meshes[:0]

	var frameW, frameH int
	if v := c.deps.Playback.Video(); v != nil {
		frameW, frameH = v.Size()
	}
	meshes := projection.Project(f, frameW, frameH, c.opts.SphereDetail,
		projection.WithFisheyeFactor(c.opts.FisheyeFactor))
	for _, m := range meshes {
		c.meshes = append(c.meshes, c.renderer.Add(m))
	}
	c.renderer.SetBackground(projection.Background(f))

	// Outside a session stereo footage shows the left eye.
	if f.Stereo() {
		c.camera.EnableLayer(projection.EyeLeft)
	} else {
		c.camera.DisableLayer(projection.EyeLeft)
	}
	if hv, ok := c.controls.(HalfViewer); ok {
		hv.SetHalfView(f.HalfView())
	}

	c.trace("projection applied", zap.Stringer("projection", f), zap.Int("meshes", len(meshes)))
}

// HandlePointer forwards a surface event to the orientation controls and the
// gesture recognizer.
func (c *Controller) HandlePointer(ev gesture.Event) {
	if !c.initialized {
		return
	}
	if ph, ok := c.controls.(PointerHandler); ok {
		ph.HandlePointer(ev)
	}
	c.recognizer.Handle(ev)
}

// HandleDeviceOrientation forwards a motion sensor reading to the
// orientation controls.
func (c *Controller) HandleDeviceOrientation(o math.DeviceOrientation) {
	if !c.initialized {
		return
	}
	if dh, ok := c.controls.(DeviceOrientationHandler); ok {
		dh.HandleDeviceOrientation(o)
	}
}

func (c *Controller) sessionActive() bool {
	return c.session != nil
}

func (c *Controller) onAction(a gesture.Action) {
	c.trace("gesture", zap.Stringer("action", a))
	switch a {
	case gesture.ActionExitSession:
		c.Deactivate()
		call(c.deps.Hooks.OnExitSession)
	case gesture.ActionOpenSettings:
		call(c.deps.Hooks.OnOpenSettings)
	default:
		c.togglePlayback()
		call(c.deps.Hooks.OnTogglePlayback)
	}
}

func (c *Controller) togglePlayback() {
	if c.deps.Playback.Paused() {
		c.deps.Playback.Play()
	} else {
		c.deps.Playback.Pause()
	}
}

func (c *Controller) onAudioSuspended() {
	c.log.Info("audio output suspended, pausing until playback resumes")
	c.deps.Playback.Pause()

	var off func()
	fired := false
	off = c.deps.Playback.On(EventPlaying, func() {
		if fired {
			return
		}
		fired = true
		off()
		if c.audio == nil {
			return
		}
		if err := c.audio.Resume(); err != nil {
			c.log.Warn("resume audio", zap.Error(err))
		}
	})
	c.disposers = append(c.disposers, off)
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}
