package renderer

import (
	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

// pass is one draw of the scene into a viewport.
type pass struct {
	projection math.Mat4
	view       math.Mat4
	x, y, w, h int32
	visible    func(projection.Eye) bool
}

// planPasses returns one pass for the mono camera, or one per eye when an
// immersive pose is available.
func planPasses(cam *camera.Camera, pose *xr.Pose, width, height int) []pass {
	if pose == nil || len(pose.Views) == 0 {
		return []pass{{
			projection: cam.ProjectionMatrix(),
			view:       cam.ViewMatrix(),
			w:          int32(width),
			h:          int32(height),
			visible:    cam.Sees,
		}}
	}

	passes := make([]pass, 0, len(pose.Views))
	for _, v := range pose.Views {
		eye := v.Eye
		vp := v.Viewport
		passes = append(passes, pass{
			projection: v.Projection,
			view:       v.Transform,
			x:          int32(vp.X * float32(width)),
			y:          int32(vp.Y * float32(height)),
			w:          int32(vp.W * float32(width)),
			h:          int32(vp.H * float32(height)),
			visible: func(e projection.Eye) bool {
				return e == projection.EyeNone || e == eye
			},
		})
	}
	return passes
}

// interleave packs positions and UVs as x, y, z, u, v per vertex.
func interleave(m projection.Mesh) []float32 {
	out := make([]float32, 0, len(m.Positions)*vertexFloats)
	for i, p := range m.Positions {
		var uv math.Vec2
		if i < len(m.UVs) {
			uv = m.UVs[i]
		}
		out = append(out, p.X, p.Y, p.Z, uv.X, uv.Y)
	}
	return out
}

// cullFace returns the face to discard for a visible side.
func cullFace(side projection.Side) uint32 {
	if side == projection.SideFront {
		return glBack
	}
	return glFront
}
