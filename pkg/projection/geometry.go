package projection

import (
	gomath "math"

	"github.com/Faultbox/midgard-vr/pkg/math"
)

const (
	// Radius of every sphere and hemisphere.
	Radius = 256
	// CubeSize is the edge length of cube geometry.
	CubeSize = 256
)

// geometry is an indexed triangle mesh under construction.
type geometry struct {
	positions []math.Vec3
	normals   []math.Vec3
	uvs       []math.Vec2
	indices   []uint32
}

// sphereSpec follows the usual phi/theta sweep parameters: phi runs around
// the vertical axis, theta from the north pole down.
type sphereSpec struct {
	widthSegments  int
	heightSegments int
	phiStart       float64
	phiLength      float64
	thetaStart     float64
	thetaLength    float64
}

func fullSphere(detail int) sphereSpec {
	return sphereSpec{
		widthSegments:  detail,
		heightSegments: detail,
		phiStart:       0,
		phiLength:      2 * gomath.Pi,
		thetaStart:     0,
		thetaLength:    gomath.Pi,
	}
}

// buildSphere tessellates a (partial) sphere. UVs are equirectangular: U
// follows phi, V runs from 1 at the top to 0 at the bottom.
func buildSphere(s sphereSpec) *geometry {
	if s.widthSegments < 3 {
		s.widthSegments = 3
	}
	if s.heightSegments < 2 {
		s.heightSegments = 2
	}
	thetaEnd := gomath.Min(s.thetaStart+s.thetaLength, gomath.Pi)

	g := &geometry{}
	grid := make([][]uint32, s.heightSegments+1)

	for iy := 0; iy <= s.heightSegments; iy++ {
		v := float64(iy) / float64(s.heightSegments)
		theta := s.thetaStart + v*s.thetaLength
		row := make([]uint32, s.widthSegments+1)

		for ix := 0; ix <= s.widthSegments; ix++ {
			u := float64(ix) / float64(s.widthSegments)
			phi := s.phiStart + u*s.phiLength

			p := math.Vec3{
				X: float32(-Radius * gomath.Cos(phi) * gomath.Sin(theta)),
				Y: float32(Radius * gomath.Cos(theta)),
				Z: float32(Radius * gomath.Sin(phi) * gomath.Sin(theta)),
			}
			row[ix] = uint32(len(g.positions))
			g.positions = append(g.positions, p)
			g.normals = append(g.normals, p.Normalize())
			g.uvs = append(g.uvs, math.Vec2{X: float32(u), Y: float32(1 - v)})
		}
		grid[iy] = row
	}

	for iy := 0; iy < s.heightSegments; iy++ {
		for ix := 0; ix < s.widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]

			// Skip the degenerate triangles at closed poles.
			if iy != 0 || s.thetaStart > 0 {
				g.indices = append(g.indices, a, b, d)
			}
			if iy != s.heightSegments-1 || thetaEnd < gomath.Pi {
				g.indices = append(g.indices, b, c, d)
			}
		}
	}
	return g
}

// Cube faces in build order.
const (
	facePX = iota // right
	faceNX        // left
	facePY        // top
	faceNY        // bottom
	facePZ        // front
	faceNZ        // back
	faceCount
)

// quad lists a face's UV cell as bottom-left, bottom-right, top-right,
// top-left (for an unrotated cell).
type quad [4]math.Vec2

func cell(x0, y0, x1, y1 float32) quad {
	return quad{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

// buildCube creates a single-segment cube, four vertices per face, and maps
// each face onto its packed cell. Faces are meant to be seen from inside, so
// every cell is mirrored horizontally.
func buildCube(cells [faceCount]quad) *geometry {
	type plane struct {
		u, v, w    int
		udir, vdir float32
		depth      float32
	}
	const half = CubeSize / 2
	planes := [faceCount]plane{
		facePX: {u: 2, v: 1, w: 0, udir: -1, vdir: -1, depth: half},
		faceNX: {u: 2, v: 1, w: 0, udir: 1, vdir: -1, depth: -half},
		facePY: {u: 0, v: 2, w: 1, udir: 1, vdir: 1, depth: half},
		faceNY: {u: 0, v: 2, w: 1, udir: 1, vdir: -1, depth: -half},
		facePZ: {u: 0, v: 1, w: 2, udir: 1, vdir: -1, depth: half},
		faceNZ: {u: 0, v: 1, w: 2, udir: -1, vdir: -1, depth: -half},
	}

	g := &geometry{}
	for f, pl := range planes {
		base := uint32(len(g.positions))
		c := cells[f]
		// Grid order is (0,0), (1,0), (0,1), (1,1) in plane space.
		faceUVs := [4]math.Vec2{c[2], c[3], c[1], c[0]}

		i := 0
		for iy := 0; iy <= 1; iy++ {
			y := float32(iy)*CubeSize - half
			for ix := 0; ix <= 1; ix++ {
				x := float32(ix)*CubeSize - half
				var p [3]float32
				p[pl.u] = x * pl.udir
				p[pl.v] = y * pl.vdir
				p[pl.w] = pl.depth
				pos := math.Vec3{X: p[0], Y: p[1], Z: p[2]}

				g.positions = append(g.positions, pos)
				g.normals = append(g.normals, pos.Normalize())
				g.uvs = append(g.uvs, faceUVs[i])
				i++
			}
		}
		g.indices = append(g.indices,
			base+0, base+2, base+1,
			base+2, base+3, base+1,
		)
	}
	return g
}

// mesh wraps the geometry into a descriptor. UVs are copied so sibling
// meshes built from the same geometry stay independent.
func (g *geometry) mesh(name string, eye Eye, side Side, transform math.Mat4) Mesh {
	uvs := make([]math.Vec2, len(g.uvs))
	copy(uvs, g.uvs)
	return Mesh{
		Name:      name,
		Positions: g.positions,
		UVs:       uvs,
		Indices:   g.indices,
		Transform: transform,
		Eye:       eye,
		Side:      side,
	}
}

// bake applies m to every position and normal in place.
func (g *geometry) bake(m math.Mat4) {
	for i := range g.positions {
		g.positions[i] = m.TransformVec3(g.positions[i])
		g.normals[i] = m.TransformDirection(g.normals[i]).Normalize()
	}
}
