package xr

import (
	gomath "math"
	"sync"

	"github.com/Faultbox/midgard-vr/pkg/math"
)

// OrientationTracker is a HeadTracker fed by device orientation readings.
// Without a motion sensor it can be steered with yaw/pitch nudges instead.
type OrientationTracker struct {
	mu     sync.Mutex
	sensor *math.Quat
	yaw    float32
	pitch  float32
}

// NewOrientationTracker creates a tracker looking straight ahead.
func NewOrientationTracker() *OrientationTracker {
	return &OrientationTracker{}
}

// SetDeviceOrientation records a sensor reading. Once a sensor reports,
// nudges are ignored.
func (t *OrientationTracker) SetDeviceOrientation(o math.DeviceOrientation) {
	q := o.Quat()
	t.mu.Lock()
	t.sensor = &q
	t.mu.Unlock()
}

// Nudge turns the head by the given angles in radians. Pitch is clamped to
// straight up and straight down.
func (t *OrientationTracker) Nudge(dYaw, dPitch float32) {
	const limit = gomath.Pi / 2
	t.mu.Lock()
	defer t.mu.Unlock()
	t.yaw += dYaw
	t.pitch = max(-limit, min(limit, t.pitch+dPitch))
}

// Reset forgets sensor readings and nudges.
func (t *OrientationTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sensor = nil
	t.yaw = 0
	t.pitch = 0
}

// Orientation implements HeadTracker.
func (t *OrientationTracker) Orientation() math.Quat {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sensor != nil {
		return *t.sensor
	}
	return math.QuatFromEulerYXZ(t.pitch, t.yaw, 0)
}
