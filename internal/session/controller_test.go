package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

func TestInitWithSupportedPlatform(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	assert.Equal(t, StateReady, c.State())
	st := c.SessionState()
	assert.Equal(t, CapabilityCurrent, st.Capability)
	assert.True(t, st.Supported)
	assert.False(t, st.Active)

	assert.Equal(t, 1, f.host.attached)
	require.NotNil(t, f.host.button())
	assert.False(t, f.host.button().active)

	assert.Len(t, f.renderer.meshes, 1)
	assert.Equal(t, f.playback.video, f.renderer.video)
	assert.Equal(t, projection.Background(projection.FormatSphere360), f.renderer.bg)
	assert.InDelta(t, 1280.0/720.0, c.Camera().Aspect, 1e-6)

	frames, _ := f.loop.Pending()
	assert.Equal(t, 1, frames)
}

func TestRenderLoopOrder(t *testing.T) {
	f := newFixture(t)
	f.init()

	f.frame()
	assert.Equal(t, []string{"dirty", "controls", "audio", "render"}, f.calls)

	frames, _ := f.loop.Pending()
	assert.Equal(t, 1, frames, "frame must re-arm itself")

	f.playback.video.enough = false
	f.frame()
	assert.Equal(t, []string{"controls", "audio", "render"}, f.calls)
	assert.Nil(t, f.renderer.poses[len(f.renderer.poses)-1])
}

func TestTimerFallbackWithoutDisplaySync(t *testing.T) {
	f := newFixture(t)
	f.deps.Display = nil
	f.init()

	frames, timers := f.loop.Pending()
	assert.Zero(t, frames)
	assert.Equal(t, 1, timers)

	f.advance(17 * time.Millisecond)
	assert.Equal(t, 1, f.renderer.renders)

	_, timers = f.loop.Pending()
	assert.Equal(t, 1, timers)
}

func TestResetIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.build()
	c.Reset()
	assert.Equal(t, StateUninitialized, c.State())

	require.NoError(t, c.Init())
	f.loop.RunPending()
	button := f.host.button()

	c.Reset()
	assert.Equal(t, StateUninitialized, c.State())
	assert.True(t, f.renderer.disposed)
	assert.True(t, f.controls.disposed)
	assert.True(t, f.audio.disposed)
	assert.True(t, button.removed)
	assert.Equal(t, 1, f.host.restored)
	assert.Zero(t, f.host.events.count())
	assert.Zero(t, f.playback.events.count())
	frames, timers := f.loop.Pending()
	assert.Zero(t, frames)
	assert.Zero(t, timers)

	c.Reset()
	assert.Equal(t, StateUninitialized, c.State())
	assert.Equal(t, 1, f.host.restored)
	assert.Empty(t, f.host.reports)
	frames, timers = f.loop.Pending()
	assert.Zero(t, frames)
	assert.Zero(t, timers)
}

func TestInitResetsFirst(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	first := f.renderer

	require.NoError(t, c.Init())
	assert.True(t, first.disposed)
	assert.NotSame(t, first, f.renderer)
	assert.Equal(t, 1, f.host.restored)
	assert.Equal(t, 2, f.host.attached)

	frames, _ := f.loop.Pending()
	assert.Equal(t, 1, frames)
}

func TestDisposeIsTerminal(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	c.Dispose()
	assert.Equal(t, StateDisposed, c.State())
	assert.ErrorIs(t, c.Init(), ErrDisposed)
}

func TestGamepadToggleIsEdgeTriggered(t *testing.T) {
	f := newFixture(t)
	f.init()

	f.pads.pads = []Gamepad{{Index: 0, Connected: true, Timestamp: 10, Buttons: []bool{false, true}}}
	f.frame()
	assert.Equal(t, 1, f.playback.plays)

	// Held with an unchanged timestamp.
	f.frame()
	f.frame()
	assert.Equal(t, 1, f.playback.plays)
	assert.Zero(t, f.playback.pauses)

	// New report, still held.
	f.pads.pads[0].Timestamp = 11
	f.frame()
	assert.Equal(t, 1, f.playback.pauses)

	// New report, nothing held.
	f.pads.pads[0].Timestamp = 12
	f.pads.pads[0].Buttons = []bool{false, false}
	f.frame()
	assert.Equal(t, 1, f.playback.plays)
	assert.Equal(t, 1, f.playback.pauses)
}

func TestGamepadIgnoresIdlePads(t *testing.T) {
	f := newFixture(t)
	f.init()

	f.pads.pads = []Gamepad{
		{Index: 0, Connected: true, Timestamp: 0, Buttons: []bool{true}},
		{Index: 1, Connected: false, Timestamp: 5, Buttons: []bool{true}},
	}
	f.frame()
	assert.Zero(t, f.playback.plays)
	assert.Zero(t, f.playback.pauses)
}

func TestGamepadsTrackedPerIndex(t *testing.T) {
	f := newFixture(t)
	f.init()

	f.pads.pads = []Gamepad{
		{Index: 0, Connected: true, Timestamp: 7, Buttons: []bool{true}},
		{Index: 1, Connected: true, Timestamp: 7, Buttons: []bool{true}},
	}
	f.frame()
	assert.Equal(t, 1, f.playback.plays)
	assert.Equal(t, 1, f.playback.pauses)

	f.frame()
	assert.Equal(t, 1, f.playback.plays)
	assert.Equal(t, 1, f.playback.pauses)
}

func TestResizeAppliesTwice(t *testing.T) {
	for _, ev := range []HostEvent{HostResize, HostFullscreenChange, HostOrientationChange, HostPresentChange} {
		f := newFixture(t)
		c := f.init()
		before := len(f.renderer.sizes)

		f.host.w, f.host.h = 800, 600
		f.host.events.emit(ev)
		require.Len(t, f.renderer.sizes, before+1)
		assert.Equal(t, [2]int{800, 600}, f.renderer.sizes[before])
		assert.InDelta(t, 800.0/600.0, c.Camera().Aspect, 1e-6)

		f.host.w, f.host.h = 1024, 640
		f.advance(199 * time.Millisecond)
		assert.Len(t, f.renderer.sizes, before+1)

		f.advance(time.Millisecond)
		require.Len(t, f.renderer.sizes, before+2)
		assert.Equal(t, [2]int{1024, 640}, f.renderer.sizes[before+1])
		assert.InDelta(t, 1.6, c.Camera().Aspect, 1e-6)
	}
}

func TestDelayedResizeClearsIdleButton(t *testing.T) {
	f := newFixture(t)
	f.init()
	f.host.button().active = true

	f.playback.events.emit(EventFullscreen)
	assert.True(t, f.host.button().active)

	f.advance(resizeSettleDelay)
	assert.False(t, f.host.button().active)
}

func TestResetCancelsDelayedResize(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	f.host.events.emit(HostResize)
	c.Reset()

	_, timers := f.loop.Pending()
	assert.Zero(t, timers)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	s := f.activate()
	f.loop.RunPending()

	assert.Equal(t, StateSessionActive, c.State())
	st := c.SessionState()
	assert.True(t, st.Active)
	assert.Same(t, s, st.Session)
	require.NotNil(t, st.Space)
	assert.Equal(t, xr.SpaceLocal, st.Space.Type())
	assert.False(t, f.controls.enabled)
	assert.True(t, f.host.button().active)

	frames, _ := f.loop.Pending()
	assert.Zero(t, frames, "generic frame pump must stop")
	assert.Len(t, s.frames, 1)

	updates := f.controls.updates
	s.runFrames()
	assert.Equal(t, updates, f.controls.updates, "controls must not drive the camera in a session")
	require.NotNil(t, f.renderer.poses[len(f.renderer.poses)-1])
	assert.Len(t, s.frames, 1)

	require.NoError(t, s.End())
	f.loop.RunPending()

	assert.Equal(t, StateReady, c.State())
	assert.False(t, c.SessionState().Active)
	assert.Nil(t, c.SessionState().Space)
	assert.True(t, f.controls.enabled)
	assert.False(t, f.host.button().active)
	assert.Empty(t, s.frames)
	assert.Equal(t, 1, s.cancelled)

	frames, _ = f.loop.Pending()
	assert.Equal(t, 1, frames)
}

func TestActivationIsGuarded(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	f.inline = false

	c.Activate()
	c.Activate()
	require.Len(t, f.spawned, 1)

	c.ChangeProjection("360_LR")
	assert.Equal(t, projection.FormatSphere360, c.Projection())
	assert.Len(t, f.renderer.meshes, 1)

	f.spawned[0]()
	f.loop.RunPending()

	assert.Equal(t, 1, f.system.requests)
	assert.True(t, c.SessionState().Active)
	assert.Equal(t, projection.FormatSphere360LR, c.Projection())
	assert.Len(t, f.renderer.meshes, 2)

	c.Activate()
	assert.Len(t, f.spawned, 2, "only the reference space request")
}

func TestDeactivateDuringActivation(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	f.inline = false

	c.Activate()
	c.Deactivate()
	f.spawned[0]()
	f.loop.RunPending()

	require.Len(t, f.system.sessions, 1)
	assert.Equal(t, 1, f.system.sessions[0].ended)
	assert.False(t, c.SessionState().Active)
	assert.Equal(t, StateReady, c.State())
}

func TestResetDuringActivationEndsLateSession(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	f.inline = false

	c.Activate()
	c.Reset()
	f.spawned[0]()
	f.loop.RunPending()

	require.Len(t, f.system.sessions, 1)
	assert.Equal(t, 1, f.system.sessions[0].ended)
	assert.Equal(t, StateUninitialized, c.State())
}

func TestSessionRequestFailure(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	f.system.requestErr = errors.New("denied")
	f.host.button().active = true

	c.Activate()
	f.loop.RunPending()

	assert.False(t, c.SessionState().Active)
	assert.False(t, f.host.button().active)
	assert.True(t, f.controls.enabled)

	// The guard is released.
	f.system.requestErr = nil
	f.activate()
	assert.True(t, c.SessionState().Active)
}

func TestResetEndsActiveSession(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	s := f.activate()

	c.Reset()
	assert.Equal(t, 1, s.ended)
	assert.Zero(t, s.onEnd.count(), "end listener must be removed before ending")
	assert.Empty(t, s.frames)

	f.loop.RunPending()
	assert.Equal(t, StateUninitialized, c.State())
}

func TestSessionButton(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	b := f.host.button()

	b.onClick()
	f.loop.RunPending()
	assert.True(t, c.SessionState().Active)
	assert.True(t, b.active)
	assert.Equal(t, 1, f.playback.plays, "entering a session starts playback")

	b.onClick()
	f.loop.RunPending()
	assert.False(t, c.SessionState().Active)
	assert.False(t, b.active)
}

func TestForceSessionButton(t *testing.T) {
	f := newFixture(t)
	f.system.supported = false
	f.opts.ForceSessionButton = true
	c := f.init()

	assert.Len(t, f.host.buttons, 1)
	assert.Equal(t, StateNoCapability, c.State())

	f.host.button().onClick()
	require.Len(t, f.host.reports, 1)
	assert.ErrorIs(t, f.host.reports[0], ErrNotSupported)
	assert.False(t, f.host.button().active)
}

func TestFullscreenExitLeavesSession(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	s := f.activate()

	f.playback.events.emit(EventFullscreenExit)
	f.loop.RunPending()

	assert.Equal(t, 1, s.ended)
	assert.False(t, c.SessionState().Active)
	assert.False(t, f.host.button().active)
}

func TestDisplayEvents(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	f.host.events.emit(HostDisplayActivate)
	f.loop.RunPending()
	assert.True(t, c.SessionState().Active)

	f.host.events.emit(HostDisplayDeactivate)
	f.loop.RunPending()
	assert.False(t, c.SessionState().Active)
}

func TestExitGestureInSession(t *testing.T) {
	f := newFixture(t)
	exits := 0
	f.deps.Hooks.OnExitSession = func() { exits++ }
	c := f.init()
	s := f.activate()

	c.HandlePointer(gesture.Event{Kind: gesture.KindPressStart, Pointer: gesture.PointerMouse, Button: gesture.ButtonPrimary, X: 10, Y: 10})
	c.HandlePointer(gesture.Event{Kind: gesture.KindRelease, Pointer: gesture.PointerMouse, Button: gesture.ButtonPrimary, X: 10, Y: 10})
	f.loop.RunPending()

	assert.Equal(t, 1, exits)
	assert.Equal(t, 1, s.ended)
	assert.False(t, c.SessionState().Active)
	assert.Zero(t, f.playback.plays)
}

func TestTapTogglesPlayback(t *testing.T) {
	f := newFixture(t)
	toggles, settings := 0, 0
	f.deps.Hooks.OnTogglePlayback = func() { toggles++ }
	f.deps.Hooks.OnOpenSettings = func() { settings++ }
	c := f.init()

	tap := func(x, y float32) {
		c.HandlePointer(gesture.Event{Kind: gesture.KindPressStart, Pointer: gesture.PointerTouch, X: x, Y: y})
		c.HandlePointer(gesture.Event{Kind: gesture.KindRelease, Pointer: gesture.PointerTouch, X: x, Y: y})
	}

	tap(640, 360)
	assert.Equal(t, 1, f.playback.plays)
	assert.Equal(t, 1, toggles)
	assert.Len(t, f.controls.pointers, 2)

	// Settings hotspot outside a session toggles too.
	tap(640, 700)
	assert.Equal(t, 1, f.playback.pauses)
	assert.Zero(t, settings)

	f.activate()
	tap(640, 700)
	assert.Equal(t, 1, settings)
}

func TestDragDoesNotToggle(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	c.HandlePointer(gesture.Event{Kind: gesture.KindPressStart, Pointer: gesture.PointerMouse, Button: gesture.ButtonPrimary, X: 640, Y: 360})
	c.HandlePointer(gesture.Event{Kind: gesture.KindMove, Pointer: gesture.PointerMouse, X: 700, Y: 360})
	c.HandlePointer(gesture.Event{Kind: gesture.KindRelease, Pointer: gesture.PointerMouse, Button: gesture.ButtonPrimary, X: 700, Y: 360})

	assert.Zero(t, f.playback.plays)
	assert.Len(t, f.controls.pointers, 3)
}

func TestVideoNotFound(t *testing.T) {
	f := newFixture(t)
	f.playback.video = nil
	c := f.build()

	err := c.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVideoNotFound)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Fatal())
	assert.Equal(t, KindResource, perr.Kind)

	require.Len(t, f.host.reports, 1)
	assert.Equal(t, CodeVideoNotFound, f.host.reports[0].Code)
	assert.Nil(t, f.renderer)
	assert.Equal(t, StateUninitialized, c.State())
}

func TestTextureUploadFailureRecovers(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	f.playback.paused = false
	r := f.renderer
	r.err = fmt.Errorf("upload frame: %w", ErrTextureUpload)

	f.frame()

	assert.True(t, r.disposed)
	assert.Equal(t, StateUninitialized, c.State())
	assert.Equal(t, 1, f.playback.pauses)
	require.Len(t, f.host.reports, 1)
	rep := f.host.reports[0]
	assert.Equal(t, CodeHLSCORSNotSupported, rep.Code)
	assert.Equal(t, KindCompatibility, rep.Kind)
	assert.ErrorIs(t, rep, ErrTextureUpload)
	assert.False(t, rep.Fatal())

	frames, _ := f.loop.Pending()
	assert.Zero(t, frames)
}

func TestOtherRenderErrorsKeepLooping(t *testing.T) {
	f := newFixture(t)
	c := f.init()
	f.renderer.err = errors.New("transient")

	f.frame()
	assert.Equal(t, StateReady, c.State())
	frames, _ := f.loop.Pending()
	assert.Equal(t, 1, frames)
}

func TestLegacyOutOfDate(t *testing.T) {
	f := newFixture(t)
	f.deps.Platform = xr.NewRuntime(nil, &fakeLegacy{outOfDate: true}, nil)
	c := f.init()

	assert.Equal(t, StateNoCapability, c.State())
	require.Len(t, f.host.reports, 1)
	assert.ErrorIs(t, f.host.reports[0], ErrOutOfDate)
	assert.Empty(t, f.host.buttons)

	c.Activate()
	require.Len(t, f.host.reports, 2)
	assert.ErrorIs(t, f.host.reports[1], ErrNotSupported)
}

func TestLegacyWithoutDisplay(t *testing.T) {
	f := newFixture(t)
	f.deps.Platform = xr.NewRuntime(nil, &fakeLegacy{}, nil)
	c := f.init()

	assert.Equal(t, CapabilityLegacy, c.SessionState().Capability)
	assert.False(t, c.SessionState().Supported)
	assert.Equal(t, StateNoCapability, c.State())
	assert.Empty(t, f.host.reports)
}

func TestShimInstalledWhenNothingElse(t *testing.T) {
	f := newFixture(t)
	f.deps.Platform = xr.NewRuntime(nil, nil, func() (xr.System, error) { return f.system, nil })
	c := f.init()

	assert.Equal(t, CapabilityCurrent, c.SessionState().Capability)
	assert.Equal(t, StateReady, c.State())
}

func TestNoCapabilityKeepsPlaying(t *testing.T) {
	f := newFixture(t)
	f.deps.Platform = xr.NewRuntime(nil, nil, nil)
	c := f.init()

	assert.Equal(t, StateNoCapability, c.State())
	assert.Empty(t, f.host.reports)

	f.frame()
	assert.Equal(t, 1, f.renderer.renders)
}

func TestProjectionNoneSkipsInit(t *testing.T) {
	for _, id := range []string{"NONE", "dome"} {
		f := newFixture(t)
		f.opts.Projection = id
		c := f.build()

		require.NoError(t, c.Init())
		assert.Equal(t, StateUninitialized, c.State())
		assert.Equal(t, projection.FormatNone, c.Projection())
		assert.Nil(t, f.renderer)
		assert.Zero(t, f.host.attached)
	}
}

func TestChangeProjection(t *testing.T) {
	f := newFixture(t)
	c := f.init()

	c.ChangeProjection("180")
	assert.Equal(t, projection.FormatSphere180Stereo, c.Projection())
	assert.Len(t, f.renderer.meshes, 2)
	assert.True(t, f.controls.halfView)
	assert.True(t, c.Camera().Sees(projection.EyeLeft))
	assert.False(t, c.Camera().Sees(projection.EyeRight))

	c.ChangeProjection("fisheye")
	assert.Len(t, f.renderer.meshes, 1)
	assert.False(t, f.controls.halfView)
	assert.False(t, c.Camera().Sees(projection.EyeLeft))
	assert.Equal(t, projection.Background(projection.FormatFisheye), f.renderer.bg)

	c.ChangeProjection("bogus")
	assert.Equal(t, projection.FormatNone, c.Projection())
	assert.Empty(t, f.renderer.meshes)

	// Reset restores the configured default.
	c.Reset()
	assert.Equal(t, projection.FormatSphere360, c.Projection())
}

func TestEACRebuiltOnLoad(t *testing.T) {
	f := newFixture(t)
	f.opts.Projection = "EAC"
	f.playback.video.w, f.playback.video.h = 0, 0
	f.init()
	assert.Empty(t, f.renderer.meshes)

	f.playback.video.w, f.playback.video.h = 3840, 2560
	f.playback.events.emit(EventLoad)
	require.Len(t, f.renderer.meshes, 1)
	for _, m := range f.renderer.meshes {
		assert.NotNil(t, m.Warp)
	}
}

func TestAudioSuspendedPausesUntilPlaying(t *testing.T) {
	f := newFixture(t)
	f.init()
	f.playback.paused = false

	f.audio.suspended()
	assert.Equal(t, 1, f.playback.pauses)
	assert.Zero(t, f.audio.resumes)

	f.playback.events.emit(EventPlaying)
	f.playback.events.emit(EventPlaying)
	assert.Equal(t, 1, f.audio.resumes)
}

func TestSpatialAudioUnavailable(t *testing.T) {
	f := newFixture(t)
	f.deps.NewSpatialAudio = func() (SpatialAudio, error) { return nil, errors.New("no device") }
	c := f.init()

	assert.Equal(t, StateReady, c.State())
	f.frame()
	assert.Equal(t, []string{"dirty", "controls", "render"}, f.calls)
}

func TestDebugTracing(t *testing.T) {
	for _, debug := range []bool{true, false} {
		core, logs := observer.New(zapcore.DebugLevel)
		f := newFixture(t)
		f.opts.Debug = debug
		f.deps.Logger = zap.New(core)
		f.init()

		traced := logs.FilterMessage("projection applied").Len()
		if debug {
			assert.Equal(t, 1, traced)
		} else {
			assert.Zero(t, traced)
		}
		assert.Equal(t, 1, logs.FilterMessage("immersive player initialized").Len())
	}
}

func TestErrorMatching(t *testing.T) {
	wrapped := wrap(ErrHLSCORSNotSupported, errors.New("cause"))
	assert.ErrorIs(t, wrapped, ErrHLSCORSNotSupported)
	assert.NotErrorIs(t, wrapped, ErrNotSupported)
	assert.Contains(t, wrapped.Error(), string(CodeHLSCORSNotSupported))
	assert.Equal(t, "compatibility", KindCompatibility.String())
}
