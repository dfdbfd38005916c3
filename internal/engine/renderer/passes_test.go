package renderer

import (
	"testing"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

func TestPlanPassesMono(t *testing.T) {
	cam := camera.New(16.0 / 9.0)
	passes := planPasses(cam, nil, 1280, 720)
	if len(passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(passes))
	}
	p := passes[0]
	if p.x != 0 || p.y != 0 || p.w != 1280 || p.h != 720 {
		t.Errorf("viewport = %d,%d %dx%d", p.x, p.y, p.w, p.h)
	}
	if p.projection != cam.ProjectionMatrix() {
		t.Error("mono pass must use the camera projection")
	}

	if !p.visible(projection.EyeNone) {
		t.Error("untagged meshes must be visible")
	}
	if p.visible(projection.EyeLeft) {
		t.Error("left layer visible before it was enabled")
	}
	cam.EnableLayer(projection.EyeLeft)
	if !p.visible(projection.EyeLeft) {
		t.Error("left layer hidden after it was enabled")
	}
	if p.visible(projection.EyeRight) {
		t.Error("right layer must stay hidden")
	}
}

func TestPlanPassesStereo(t *testing.T) {
	cam := camera.New(1)
	left := math.Translate(1, 0, 0)
	right := math.Translate(-1, 0, 0)
	pose := &xr.Pose{Views: []xr.View{
		{Eye: projection.EyeLeft, Transform: left, Viewport: xr.Viewport{W: 0.5, H: 1}},
		{Eye: projection.EyeRight, Transform: right, Viewport: xr.Viewport{X: 0.5, W: 0.5, H: 1}},
	}}

	passes := planPasses(cam, pose, 2000, 1000)
	if len(passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(passes))
	}

	l, r := passes[0], passes[1]
	if l.x != 0 || l.w != 1000 || l.h != 1000 {
		t.Errorf("left viewport = %d,%d %dx%d", l.x, l.y, l.w, l.h)
	}
	if r.x != 1000 || r.w != 1000 {
		t.Errorf("right viewport = %d,%d %dx%d", r.x, r.y, r.w, r.h)
	}
	if l.view != left || r.view != right {
		t.Error("eye view matrices not carried over")
	}

	cases := []struct {
		p    pass
		eye  projection.Eye
		want bool
	}{
		{l, projection.EyeNone, true},
		{l, projection.EyeLeft, true},
		{l, projection.EyeRight, false},
		{r, projection.EyeNone, true},
		{r, projection.EyeLeft, false},
		{r, projection.EyeRight, true},
	}
	for i, c := range cases {
		if got := c.p.visible(c.eye); got != c.want {
			t.Errorf("case %d: visible(%s) = %v, want %v", i, c.eye, got, c.want)
		}
	}
}

func TestPlanPassesEmptyPoseFallsBack(t *testing.T) {
	passes := planPasses(camera.New(1), &xr.Pose{}, 100, 100)
	if len(passes) != 1 {
		t.Fatalf("passes = %d, want 1", len(passes))
	}
}

func TestInterleave(t *testing.T) {
	m := projection.Mesh{
		Positions: []math.Vec3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
		UVs:       []math.Vec2{{X: 0.25, Y: 0.75}, {X: 1, Y: 0}},
	}
	got := interleave(m)
	want := []float32{1, 2, 3, 0.25, 0.75, 4, 5, 6, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCullFace(t *testing.T) {
	if cullFace(projection.SideBack) != glFront {
		t.Error("inside-out geometry must cull front faces")
	}
	if cullFace(projection.SideFront) != glBack {
		t.Error("mirrored geometry must cull back faces")
	}
}
