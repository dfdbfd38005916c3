package projection

import (
	gomath "math"

	"github.com/Faultbox/midgard-vr/pkg/math"
)

// Eye marks which virtual camera may see a mesh.
type Eye uint8

const (
	EyeNone Eye = iota
	EyeLeft
	EyeRight
)

func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	default:
		return "none"
	}
}

// Side selects which triangle faces are visible.
type Side uint8

const (
	// SideBack shows faces from inside closed geometry (sphere, cube).
	SideBack Side = iota
	// SideFront is used when the geometry was mirrored in place.
	SideFront
)

// Mesh is a self-contained mesh descriptor ready for upload.
type Mesh struct {
	Name      string
	Positions []math.Vec3
	UVs       []math.Vec2 // one per position
	Indices   []uint32    // triangle list
	Transform math.Mat4   // model matrix
	Eye       Eye
	Side      Side

	// Warp is set for equi-angular cubemaps; the renderer must apply the
	// per-fragment inverse warp with these parameters.
	Warp *EACWarp
}

// EACWarp holds the parameters of the per-fragment EAC inverse warp.
type EACWarp struct {
	// MapMatrix maps vertex UVs into the sampled frame; it selects the eye
	// half for stereo footage and is the identity for mono.
	MapMatrix math.Mat3
	// FaceSize is the size of one packed face cell in sampled UV space.
	FaceSize math.Vec2
	// FrameSize is the frame size in pixels, in the same orientation as
	// FaceSize.
	FrameSize math.Vec2
	// ContinuityCorrection is the border, in pixels, trimmed from
	// discontinuous cell edges.
	ContinuityCorrection float32
}

// Unwarp maps a vertex UV to the texel the fragment shader samples. It
// mirrors the GLSL in the renderer and exists so the warp can be checked
// without a GPU.
func (w EACWarp) Unwarp(uv math.Vec2) math.Vec2 {
	v := w.MapMatrix.Apply(uv)

	border := w.ContinuityCorrection / w.FrameSize.Y
	corner := math.Vec2{
		X: v.X - glslMod(v.X, w.FaceSize.X),
		Y: v.Y - glslMod(v.Y, w.FaceSize.Y) + border,
	}
	cell := math.Vec2{X: w.FaceSize.X, Y: w.FaceSize.Y - 2*border}

	p := v.Sub(corner).Div(cell).Sub(math.Vec2{X: 0.5, Y: 0.5})
	q := math.Vec2{X: equiAngular(p.X), Y: equiAngular(p.Y)}

	return corner.Add(q.Mul(cell))
}

// equiAngular undoes the EAC pre-warp on one axis: q = 2/π·atan(2p) + 0.5.
func equiAngular(p float32) float32 {
	return float32(2/gomath.Pi*gomath.Atan(2*float64(p)) + 0.5)
}

func glslMod(x, y float32) float32 {
	return x - y*float32(gomath.Floor(float64(x/y)))
}
