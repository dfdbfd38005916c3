package session

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/xr"
)

// Options are the player's immersive settings.
type Options struct {
	// Projection is the format id, e.g. "360" or "EAC_LR".
	Projection string
	// SphereDetail is the sphere tessellation level.
	SphereDetail int
	// ForceSessionButton shows the session button even before the platform
	// reports support.
	ForceSessionButton bool
	// EnableOrientationControl lets device orientation steer the camera.
	EnableOrientationControl bool
	// Debug logs lifecycle details.
	Debug bool
	// FisheyeFactor selects the fisheye lens model.
	FisheyeFactor float64
}

// DefaultOptions returns the player defaults.
func DefaultOptions() Options {
	return Options{
		Projection:               "360",
		SphereDetail:             128,
		EnableOrientationControl: true,
	}
}

// Hooks let the host observe gesture actions.
type Hooks struct {
	OnTogglePlayback func()
	OnExitSession    func()
	OnOpenSettings   func()
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Playback Playback
	Host     Host
	Platform xr.Platform
	// Gamepads may be nil.
	Gamepads GamepadSource
	// Display may be nil; frames then fall back to a 60 Hz timer.
	Display    Scheduler
	Timers     Timers
	Dispatcher Dispatcher

	NewRenderer func(width, height int) (Renderer, error)
	// NewOrientationController defaults to camera orbit controls.
	NewOrientationController func(cam *camera.Camera, halfView, deviceOrientation bool) OrientationController
	// NewSpatialAudio may be nil when spatial audio is off.
	NewSpatialAudio func() (SpatialAudio, error)

	// Spawn runs blocking platform calls off the UI sequence. Defaults to a
	// new goroutine.
	Spawn func(fn func())

	Hooks  Hooks
	Logger *zap.Logger
}

func defaultOrientationController(cam *camera.Camera, halfView, deviceOrientation bool) OrientationController {
	o := camera.NewOrbitControls(cam, deviceOrientation)
	o.SetHalfView(halfView)
	return o
}

// State is the controller lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	StateDetecting
	StateNoCapability
	StateReady
	StateSessionActive
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateDetecting:
		return "detecting"
	case StateNoCapability:
		return "no-capability"
	case StateReady:
		return "ready"
	case StateSessionActive:
		return "session-active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Capability is the platform generation found by detection.
type Capability uint8

const (
	CapabilityNone Capability = iota
	CapabilityLegacy
	CapabilityCurrent
)

func (c Capability) String() string {
	switch c {
	case CapabilityLegacy:
		return "legacy"
	case CapabilityCurrent:
		return "current"
	default:
		return "none"
	}
}

// SessionState describes the immersive session side of the controller.
type SessionState struct {
	Capability Capability
	// Supported is set once the platform confirms immersive presentation.
	Supported bool
	Active    bool
	Session   xr.Session
	Space     xr.ReferenceSpace
}
