package camera

import (
	gomath "math"

	"github.com/Faultbox/midgard-vr/internal/gesture"
	"github.com/Faultbox/midgard-vr/pkg/math"
)

// OrbitControls turns the camera with pointer drags and, when enabled, with
// device orientation readings.
type OrbitControls struct {
	camera *Camera

	// Spherical view angles
	Yaw   float32 // radians, positive turns left
	Pitch float32 // radians, positive looks up

	// Constraints
	MinPitch float32
	MaxPitch float32
	// MaxYaw limits yaw to ±MaxYaw when non-zero (half-sphere footage).
	MaxYaw float32

	// Sensitivity
	DragSensitivity float32

	enabled     bool
	orientation bool
	device      *math.Quat

	dragging     bool
	lastX, lastY float32
}

// NewOrbitControls creates controls for cam. orientation enables device
// orientation input.
func NewOrbitControls(cam *Camera, orientation bool) *OrbitControls {
	return &OrbitControls{
		camera:          cam,
		MinPitch:        -gomath.Pi/2 + 0.01,
		MaxPitch:        gomath.Pi/2 - 0.01,
		DragSensitivity: 0.005,
		enabled:         true,
		orientation:     orientation,
	}
}

// SetHalfView restricts yaw to the front hemisphere.
func (o *OrbitControls) SetHalfView(half bool) {
	if half {
		o.MaxYaw = gomath.Pi / 2
	} else {
		o.MaxYaw = 0
	}
	o.clamp()
}

// Enabled reports whether the controls drive the camera.
func (o *OrbitControls) Enabled() bool {
	return o.enabled
}

// Enable resumes driving the camera.
func (o *OrbitControls) Enable() {
	o.enabled = true
}

// Disable stops driving the camera and drops any drag in progress.
func (o *OrbitControls) Disable() {
	o.enabled = false
	o.dragging = false
}

// Dispose disables the controls for good.
func (o *OrbitControls) Dispose() {
	o.Disable()
	o.device = nil
	o.camera = nil
}

// HandleDrag updates the view angles from a pointer delta in pixels.
func (o *OrbitControls) HandleDrag(deltaX, deltaY float32) {
	o.Yaw += deltaX * o.DragSensitivity
	o.Pitch += deltaY * o.DragSensitivity
	o.clamp()
}

func (o *OrbitControls) clamp() {
	o.Pitch = max(o.MinPitch, min(o.MaxPitch, o.Pitch))
	if o.MaxYaw > 0 {
		o.Yaw = max(-o.MaxYaw, min(o.MaxYaw, o.Yaw))
	}
}

// HandlePointer drags the view with the primary mouse button or a touch.
func (o *OrbitControls) HandlePointer(ev gesture.Event) {
	if !o.enabled {
		return
	}
	switch ev.Kind {
	case gesture.KindPressStart:
		if ev.Pointer == gesture.PointerMouse && ev.Button != gesture.ButtonPrimary {
			return
		}
		o.dragging = true
		o.lastX, o.lastY = ev.X, ev.Y
	case gesture.KindMove:
		if !o.dragging {
			return
		}
		o.HandleDrag(ev.X-o.lastX, ev.Y-o.lastY)
		o.lastX, o.lastY = ev.X, ev.Y
	case gesture.KindRelease, gesture.KindCancel:
		o.dragging = false
	}
}

// HandleDeviceOrientation records a sensor reading. Ignored unless device
// orientation was enabled.
func (o *OrbitControls) HandleDeviceOrientation(d math.DeviceOrientation) {
	if !o.enabled || !o.orientation {
		return
	}
	q := d.Quat()
	o.device = &q
}

// Update writes the current view angles into the camera.
func (o *OrbitControls) Update() {
	if !o.enabled || o.camera == nil {
		return
	}
	if o.device != nil {
		// Dragging still turns the view around the vertical axis.
		yaw := math.QuatFromAxisAngle(math.Vec3{Y: 1}, o.Yaw)
		o.camera.Orientation = yaw.Mul(*o.device).Normalize()
		return
	}
	o.camera.Orientation = math.QuatFromEulerYXZ(o.Pitch, o.Yaw, 0)
}
