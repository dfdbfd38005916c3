// Package session drives immersive playback: it detects the presentation
// platform, builds the projected scene, runs the render loop, and enters and
// leaves immersive sessions.
package session

import (
	"errors"
	"image"
	"image/color"
	"time"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/engine/loop"
	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// PlaybackEvent is a player lifecycle notification.
type PlaybackEvent string

const (
	EventReady          PlaybackEvent = "ready"
	EventLoad           PlaybackEvent = "load"
	EventPlaying        PlaybackEvent = "playing"
	EventFullscreen     PlaybackEvent = "fullscreen"
	EventFullscreenExit PlaybackEvent = "fullscreen-exit"
)

// Playback is the media player the scene shows.
type Playback interface {
	Play()
	Pause()
	Paused() bool
	Ready() bool
	On(ev PlaybackEvent, fn func()) (off func())
	// Video returns the video element, or nil when the player has none.
	Video() Video
}

// Video is the element whose frames are projected.
type Video interface {
	// HasEnoughData reports whether the current frame can be uploaded.
	HasEnoughData() bool
	Size() (width, height int)
	Frame() *image.RGBA
}

// ErrTextureUpload is wrapped by Renderer.Render when the GPU rejects the
// video frame.
var ErrTextureUpload = errors.New("video texture upload rejected")

// MeshID identifies a mesh added to the renderer's scene.
type MeshID int

// Renderer owns the GPU scene.
type Renderer interface {
	BindVideo(v Video)
	Add(m projection.Mesh) MeshID
	Remove(id MeshID)
	SetBackground(c color.RGBA)
	SetSize(width, height int)
	MarkTextureDirty()
	// Render draws the scene. pose is nil outside a session.
	Render(cam *camera.Camera, pose *xr.Pose) error
	Dispose()
}

// OrientationController drives the camera outside a session.
type OrientationController interface {
	Update()
	Enable()
	Disable()
	Dispose()
}

// PointerHandler is implemented by orientation controllers that follow
// pointer drags.
type PointerHandler interface {
	HandlePointer(ev gesture.Event)
}

// DeviceOrientationHandler is implemented by orientation controllers that
// follow motion sensors.
type DeviceOrientationHandler interface {
	HandleDeviceOrientation(o math.DeviceOrientation)
}

// HalfViewer is implemented by orientation controllers that can restrict
// the view to the front hemisphere.
type HalfViewer interface {
	SetHalfView(half bool)
}

// SpatialAudio positions the soundtrack around the listener.
type SpatialAudio interface {
	Update(cam *camera.Camera)
	// OnSuspended registers fn to run once when the audio output stops and
	// needs Resume.
	OnSuspended(fn func())
	Resume() error
	Dispose()
}

// HostEvent is a window or display notification.
type HostEvent uint8

const (
	HostResize HostEvent = iota
	HostFullscreenChange
	HostOrientationChange
	HostPresentChange
	HostDisplayActivate
	HostDisplayDeactivate
)

// Host is the page or window embedding the player.
type Host interface {
	ContainerSize() (width, height int)
	SurfaceBounds() gesture.Rect
	// AttachSurface shows the render surface over the player and returns a
	// function restoring the previous presentation.
	AttachSurface() (restore func())
	AddSessionButton(onClick func()) SessionButton
	Subscribe(ev HostEvent, fn func()) (off func())
	ReportError(err *Error)
}

// SessionButton is the host control that enters and leaves sessions.
type SessionButton interface {
	Active() bool
	SetActive(active bool)
	Remove()
}

// Gamepad is a snapshot of one connected gamepad.
type Gamepad struct {
	Index     int
	Connected bool
	// Timestamp changes whenever the pad reports new input. Zero means no
	// input was ever reported.
	Timestamp uint64
	Buttons   []bool
}

// GamepadSource returns connected gamepads without blocking.
type GamepadSource interface {
	Gamepads() []Gamepad
}

// Scheduler is the display-sync frame source.
type Scheduler interface {
	RequestAnimationFrame(fn func(time.Time)) loop.FrameID
	CancelAnimationFrame(id loop.FrameID)
}

// Timers schedules delayed work on the UI sequence.
type Timers interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Dispatcher brings work from other goroutines onto the UI sequence.
type Dispatcher interface {
	Post(fn func())
}
