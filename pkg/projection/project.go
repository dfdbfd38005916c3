package projection

import (
	gomath "math"

	"github.com/Faultbox/midgard-vr/pkg/math"
)

const (
	// FisheyeSegments is the fixed tessellation of fisheye spheres.
	FisheyeSegments = 48
	// ContinuityCorrection is the EAC border trimmed from discontinuous
	// cell edges, in pixels.
	ContinuityCorrection = 2
)

type options struct {
	fisheyeFactor float64
}

// Option tunes Project.
type Option func(*options)

// WithFisheyeFactor selects the fisheye lens model: 0 equidistant,
// 0.5 stereographic, -0.5 equisolid, -1 orthographic, 1 rectilinear.
// Values outside [-1, 1] fall back to equidistant.
func WithFisheyeFactor(k float64) Option {
	return func(o *options) {
		o.fisheyeFactor = k
	}
}

// EACInset returns the UV inset applied to EAC cells for a frame of the
// given pixel height.
func EACInset(frameHeight int) float32 {
	return ContinuityCorrection / float32(frameHeight)
}

// Project builds the meshes for a format. Mono formats return one untagged
// mesh; stereo formats return a left and a right mesh. NONE, unknown
// formats and EAC without a known frame height return nil, meaning there
// is nothing to display.
func Project(format Format, frameWidth, frameHeight, detail int, opts ...Option) []Mesh {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	switch format {
	case FormatSphere360:
		return []Mesh{sphere360(detail, EyeNone, identityUV)}
	case FormatSphere360LR:
		return []Mesh{
			sphere360(detail, EyeLeft, halfU(0)),
			sphere360(detail, EyeRight, halfU(0.5)),
		}
	case FormatSphere360TB:
		return []Mesh{
			sphere360(detail, EyeLeft, halfV(0.5)),
			sphere360(detail, EyeRight, halfV(0)),
		}
	case FormatCube360:
		return []Mesh{cube360()}
	case FormatSphere180Mono:
		return []Mesh{hemisphere(detail, EyeNone, identityUV)}
	case FormatSphere180Stereo:
		return []Mesh{
			hemisphere(detail, EyeLeft, halfU(0)),
			hemisphere(detail, EyeRight, halfU(0.5)),
		}
	case FormatCubeEACMono:
		if frameWidth <= 0 || frameHeight <= 0 {
			return nil
		}
		return []Mesh{eacCube(frameWidth, frameHeight, EyeNone)}
	case FormatCubeEACStereo:
		if frameWidth <= 0 || frameHeight <= 0 {
			return nil
		}
		return []Mesh{
			eacCube(frameWidth, frameHeight, EyeLeft),
			eacCube(frameWidth, frameHeight, EyeRight),
		}
	case FormatFisheye:
		return []Mesh{fisheye(o.fisheyeFactor)}
	}
	return nil
}

type uvMap func(math.Vec2) math.Vec2

func identityUV(uv math.Vec2) math.Vec2 { return uv }

func halfU(offset float32) uvMap {
	return func(uv math.Vec2) math.Vec2 {
		return math.Vec2{X: uv.X*0.5 + offset, Y: uv.Y}
	}
}

func halfV(offset float32) uvMap {
	return func(uv math.Vec2) math.Vec2 {
		return math.Vec2{X: uv.X, Y: uv.Y*0.5 + offset}
	}
}

func sphere360(detail int, eye Eye, remap uvMap) Mesh {
	g := buildSphere(fullSphere(detail))
	// Mirror so the image reads correctly from inside, then turn the frame's
	// center toward -Z.
	transform := math.RotateY(-gomath.Pi / 2).Mul(math.Scale(-1, 1, 1))
	m := g.mesh("sphere-360-"+eye.String(), eye, SideBack, transform)
	for i := range m.UVs {
		m.UVs[i] = remap(m.UVs[i])
	}
	return m
}

func hemisphere(detail int, eye Eye, remap uvMap) Mesh {
	s := fullSphere(detail)
	s.phiStart = gomath.Pi
	s.phiLength = gomath.Pi
	g := buildSphere(s)
	// Mirroring in place flips the winding, so the inside becomes the front.
	g.bake(math.Scale(-1, 1, 1))

	m := g.mesh("sphere-180-"+eye.String(), eye, SideFront, math.Identity())
	for i := range m.UVs {
		m.UVs[i] = remap(m.UVs[i])
	}
	return m
}

// cubeCells is the 3x2 packing: top row left/right/top, bottom row
// bottom/front/back.
func cubeCells() [faceCount]quad {
	const third, twoThirds = float32(1) / 3, float32(2) / 3
	return [faceCount]quad{
		facePX: cell(third, 0.5, twoThirds, 1),
		faceNX: cell(0, 0.5, third, 1),
		facePY: cell(twoThirds, 0.5, 1, 1),
		faceNY: cell(0, 0, third, 0.5),
		facePZ: cell(third, 0, twoThirds, 0.5),
		faceNZ: cell(twoThirds, 0, 1, 0.5),
	}
}

func cube360() Mesh {
	g := buildCube(cubeCells())
	return g.mesh("cube-360", EyeNone, SideBack, math.RotateY(-gomath.Pi))
}

// eacCells is the equi-angular packing on the same 3x2 grid: the top row
// holds right/front/left upright, the bottom row bottom/back/top turned a
// quarter.
func eacCells() [faceCount]quad {
	const third, twoThirds = float32(1) / 3, float32(2) / 3
	v := func(x, y float32) math.Vec2 { return math.Vec2{X: x, Y: y} }
	return [faceCount]quad{
		facePX: {v(0, 0.5), v(third, 0.5), v(third, 1), v(0, 1)},
		facePZ: {v(third, 0.5), v(twoThirds, 0.5), v(twoThirds, 1), v(third, 1)},
		faceNX: {v(twoThirds, 0.5), v(1, 0.5), v(1, 1), v(twoThirds, 1)},
		faceNY: {v(third, 0), v(third, 0.5), v(0, 0.5), v(0, 0)},
		faceNZ: {v(third, 0.5), v(third, 0), v(twoThirds, 0), v(twoThirds, 0.5)},
		facePY: {v(1, 0), v(1, 0.5), v(twoThirds, 0.5), v(twoThirds, 0)},
	}
}

// insetCells trims every cell's top and bottom edge by inset and compresses
// the horizontal axis by the same border on each side.
func insetCells(cells [faceCount]quad, inset float32) [faceCount]quad {
	const epsilon = 1e-6
	for f := range cells {
		lowY, highY := float32(1), float32(0)
		for _, c := range cells[f] {
			lowY = min(lowY, c.Y)
			highY = max(highY, c.Y)
		}
		for i := range cells[f] {
			c := &cells[f][i]
			if abs32(c.Y-lowY) < epsilon {
				c.Y += inset
			}
			if abs32(c.Y-highY) < epsilon {
				c.Y -= inset
			}
			c.X = c.X*(1-2*inset) + inset
		}
	}
	return cells
}

func eacCube(frameWidth, frameHeight int, eye Eye) Mesh {
	inset := EACInset(frameHeight)
	g := buildCube(insetCells(eacCells(), inset))
	m := g.mesh("cube-eac-"+eye.String(), eye, SideBack, math.RotateY(-gomath.Pi))

	warp := &EACWarp{
		MapMatrix:            math.Mat3Identity(),
		FaceSize:             math.Vec2{X: 1.0 / 3, Y: 0.5},
		FrameSize:            math.Vec2{X: float32(frameWidth), Y: float32(frameHeight)},
		ContinuityCorrection: ContinuityCorrection,
	}
	if eye != EyeNone {
		// Top/bottom stereo: the left eye samples the upper half.
		offset := float32(0)
		if eye == EyeLeft {
			offset = 0.5
		}
		warp.MapMatrix = math.Mat3FromRows(
			1, 0, 0,
			0, 0.5, offset,
			0, 0, 1,
		)
		scale := math.Mat3FromRows(
			1, 0, 0,
			0, 0.5, 0,
			0, 0, 1,
		)
		warp.FaceSize = scale.ApplyLinear(warp.FaceSize)
		warp.FrameSize = scale.ApplyLinear(warp.FrameSize)
	}
	m.Warp = warp
	return m
}

// fisheyeRadius maps the angle from the optical axis to a normalized image
// radius for lens factor k.
func fisheyeRadius(theta, k float64) float64 {
	var rho float64
	switch {
	case k >= -1 && k < 0:
		rho = gomath.Sin(k*theta) / k
	case k > 0 && k <= 1:
		rho = gomath.Tan(k*theta) / k
	default:
		rho = theta
	}
	return rho / gomath.Pi
}

func fisheye(k float64) Mesh {
	g := buildSphere(fullSphere(FisheyeSegments))

	for i, n := range g.normals {
		theta := gomath.Acos(clamp64(float64(n.Z), -1, 1))
		phi := gomath.Atan2(float64(n.Y), float64(n.X))
		rho := fisheyeRadius(theta, k)

		g.uvs[i] = math.Vec2{
			X: float32(clamp64(rho*gomath.Cos(phi)+0.5, 0, 1)),
			Y: float32(clamp64(rho*gomath.Sin(phi)+0.5, 0, 1)),
		}
	}

	// Wall mount: the lens looks toward -Z.
	g.bake(math.RotateY(gomath.Pi))
	return g.mesh("fisheye", EyeNone, SideBack, math.Identity())
}

func clamp64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
