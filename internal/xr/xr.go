// Package xr models the immersive presentation platform: a current-generation
// session API, an adapter for the previous display-centric generation, and a
// split-screen compatibility session for plain screens.
package xr

import (
	"context"
	"errors"
	"time"

	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// Mode is a session mode.
type Mode string

// ModeImmersiveVR presents exclusively on a head-mounted display.
const ModeImmersiveVR Mode = "immersive-vr"

// ReferenceSpaceType names a tracking origin.
type ReferenceSpaceType string

const (
	SpaceViewer     ReferenceSpaceType = "viewer"
	SpaceLocal      ReferenceSpaceType = "local"
	SpaceLocalFloor ReferenceSpaceType = "local-floor"
)

// SessionInit carries session request options.
type SessionInit struct {
	RequiredFeatures []ReferenceSpaceType
	OptionalFeatures []ReferenceSpaceType
}

var (
	// ErrUnsupportedMode is returned for modes the system cannot present.
	ErrUnsupportedMode = errors.New("xr: session mode not supported")
	// ErrSessionActive is returned when a second session is requested while
	// one is running.
	ErrSessionActive = errors.New("xr: a session is already active")
	// ErrSessionEnded is returned by operations on an ended session.
	ErrSessionEnded = errors.New("xr: session has ended")
	// ErrNoDisplay is returned when no presentable display is connected.
	ErrNoDisplay = errors.New("xr: no presentable display")
)

// System is the entry point of a current-generation immersive API.
type System interface {
	IsSessionSupported(ctx context.Context, mode Mode) (bool, error)
	RequestSession(ctx context.Context, mode Mode, init SessionInit) (Session, error)
}

// FrameHandle identifies a pending session frame callback.
type FrameHandle uint64

// FrameCallback receives the frame time and the frame's tracking state.
type FrameCallback func(t time.Time, frame Frame)

// Session is a running immersive session.
type Session interface {
	RequestAnimationFrame(fn FrameCallback) FrameHandle
	CancelAnimationFrame(h FrameHandle)
	RequestReferenceSpace(ctx context.Context, t ReferenceSpaceType) (ReferenceSpace, error)
	// OnEnd registers fn to run once when the session ends for any reason.
	OnEnd(fn func()) (off func())
	End() error
}

// ReferenceSpace is a tracking origin poses are expressed in.
type ReferenceSpace interface {
	Type() ReferenceSpaceType
}

// Frame is the tracking state of one session frame.
type Frame interface {
	ViewerPose(space ReferenceSpace) (Pose, bool)
}

// Pose is the viewer's head pose and the views to render for it.
type Pose struct {
	Orientation math.Quat
	Position    math.Vec3
	Views       []View
}

// View is one eye's camera for a frame.
type View struct {
	Eye        projection.Eye
	Projection math.Mat4
	// Transform is the view matrix (world to eye).
	Transform math.Mat4
	Viewport  Viewport
}

// Viewport is a rectangle of the output surface in normalized units.
type Viewport struct {
	X, Y, W, H float32
}

type referenceSpace ReferenceSpaceType

func (s referenceSpace) Type() ReferenceSpaceType { return ReferenceSpaceType(s) }

// eyeViews builds a left/right split-screen view pair around a head pose.
func eyeViews(orientation math.Quat, position math.Vec3, ipd, fovY, aspect, near, far float32) []View {
	proj := math.Perspective(fovY, aspect, near, far)
	head := orientation.Conjugate().ToMat4().Mul(math.Translate(-position.X, -position.Y, -position.Z))

	view := func(eye projection.Eye, offset float32, vp Viewport) View {
		return View{
			Eye:        eye,
			Projection: proj,
			Transform:  math.Translate(-offset, 0, 0).Mul(head),
			Viewport:   vp,
		}
	}
	return []View{
		view(projection.EyeLeft, -ipd/2, Viewport{X: 0, Y: 0, W: 0.5, H: 1}),
		view(projection.EyeRight, ipd/2, Viewport{X: 0.5, Y: 0, W: 0.5, H: 1}),
	}
}
