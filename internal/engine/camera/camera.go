// Package camera provides the viewer camera and the controls that drive it
// outside an immersive session.
package camera

import (
	gomath "math"

	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// Camera is a perspective camera at the center of the scene. It only
// rotates; the projected geometry surrounds it.
type Camera struct {
	FOV    float32 // vertical, degrees
	Near   float32
	Far    float32
	Aspect float32

	Orientation math.Quat

	layers uint8
}

// New creates a camera with the player's defaults: 60° FOV, near 1, far 1000.
func New(aspect float32) *Camera {
	c := &Camera{
		FOV:         60,
		Near:        1,
		Far:         1000,
		Aspect:      1,
		Orientation: math.QuatIdentity(),
	}
	c.SetAspect(aspect)
	return c
}

// SetAspect updates the aspect ratio. Non-positive or NaN values are ignored.
func (c *Camera) SetAspect(aspect float32) {
	if aspect > 0 && !gomath.IsInf(float64(aspect), 0) {
		c.Aspect = aspect
	}
}

// ProjectionMatrix returns the perspective projection.
func (c *Camera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FOV*gomath.Pi/180, c.Aspect, c.Near, c.Far)
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math.Mat4 {
	return c.Orientation.Conjugate().ToMat4()
}

// Forward returns the direction the camera looks in.
func (c *Camera) Forward() math.Vec3 {
	return c.Orientation.Rotate(math.Vec3{Z: -1})
}

// Yaw returns the heading of Forward around the vertical axis, in radians.
// Zero looks down -Z; positive angles turn left.
func (c *Camera) Yaw() float32 {
	f := c.Forward()
	return float32(gomath.Atan2(float64(-f.X), float64(-f.Z)))
}

func layerBit(eye projection.Eye) uint8 {
	return 1 << uint8(eye)
}

// EnableLayer makes meshes tagged for eye visible to this camera.
func (c *Camera) EnableLayer(eye projection.Eye) {
	c.layers |= layerBit(eye)
}

// DisableLayer hides meshes tagged for eye.
func (c *Camera) DisableLayer(eye projection.Eye) {
	c.layers &^= layerBit(eye)
}

// Sees reports whether meshes tagged for eye are visible. Untagged meshes
// are always visible.
func (c *Camera) Sees(eye projection.Eye) bool {
	return eye == projection.EyeNone || c.layers&layerBit(eye) != 0
}
