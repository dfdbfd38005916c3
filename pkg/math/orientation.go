package math

import "math"

// DeviceOrientation is a handheld device's attitude as reported by its
// motion sensors: Alpha around Z, Beta around X, Gamma around Y, all in
// degrees. Screen is the display rotation in degrees (0, 90, -90, 180).
type DeviceOrientation struct {
	Alpha, Beta, Gamma float64
	Screen             float64
}

// toCamera turns the device frame (screen facing up) into a camera frame
// looking out of the back of the device.
var toCamera = Quat{X: -float32(math.Sqrt(0.5)), W: float32(math.Sqrt(0.5))}

// Quat converts the orientation to a camera rotation.
func (o DeviceOrientation) Quat() Quat {
	const deg = math.Pi / 180
	q := QuatFromEulerYXZ(
		float32(o.Beta*deg),
		float32(o.Alpha*deg),
		float32(-o.Gamma*deg),
	)
	q = q.Mul(toCamera)
	screen := QuatFromAxisAngle(Vec3{Z: 1}, float32(-o.Screen*deg))
	return q.Mul(screen).Normalize()
}
