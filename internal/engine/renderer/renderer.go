// Package renderer draws projection meshes textured with the current video
// frame using OpenGL.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-vr/internal/engine/camera"
	"github.com/Faultbox/midgard-vr/internal/engine/shader"
	"github.com/Faultbox/midgard-vr/internal/session"
	"github.com/Faultbox/midgard-vr/internal/xr"
	"github.com/Faultbox/midgard-vr/pkg/math"
	"github.com/Faultbox/midgard-vr/pkg/projection"
)

const (
	glFront = gl.FRONT
	glBack  = gl.BACK

	// vertexFloats is the interleaved vertex stride: position + uv.
	vertexFloats = 5
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

type gpuMesh struct {
	vao, vbo, ebo uint32
	count         int32
	transform     math.Mat4
	eye           projection.Eye
	side          projection.Side
	warp          *projection.EACWarp
}

// Renderer implements session.Renderer.
type Renderer struct {
	config Config
	log    *zap.Logger

	program *shader.Program
	texture uint32
	texW    int
	texH    int
	// uploaded is the frame currently in the texture.
	uploaded *image.RGBA

	video session.Video
	dirty bool

	meshes map[session.MeshID]*gpuMesh
	order  []session.MeshID
	nextID session.MeshID

	background color.RGBA
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{
		config:     cfg,
		log:        log,
		meshes:     make(map[session.MeshID]*gpuMesh),
		background: color.RGBA{A: 0xff},
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.CULL_FACE)

	var err error
	r.program, err = shader.Compile(shader.VideoVertexShader, shader.VideoFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	gl.GenTextures(1, &r.texture)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	r.SetSize(cfg.Width, cfg.Height)
	return r, nil
}

// BindVideo sets the video whose frames texture every mesh.
func (r *Renderer) BindVideo(v session.Video) {
	r.video = v
	r.uploaded = nil
	r.dirty = true
}

// Add uploads a mesh and inserts it into the scene.
func (r *Renderer) Add(m projection.Mesh) session.MeshID {
	g := &gpuMesh{
		count:     int32(len(m.Indices)),
		transform: m.Transform,
		eye:       m.Eye,
		side:      m.Side,
		warp:      m.Warp,
	}

	vertices := interleave(m)
	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)
	}

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	if len(m.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, unsafe.Pointer(&m.Indices[0]), gl.STATIC_DRAW)
	}

	stride := int32(vertexFloats * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)

	r.nextID++
	id := r.nextID
	r.meshes[id] = g
	r.order = append(r.order, id)

	r.log.Debug("mesh added",
		zap.String("name", m.Name),
		zap.Int("vertices", len(m.Positions)),
		zap.Int("indices", len(m.Indices)),
		zap.Stringer("eye", m.Eye),
	)
	return id
}

// Remove deletes a mesh from the scene and frees its buffers.
func (r *Renderer) Remove(id session.MeshID) {
	g, ok := r.meshes[id]
	if !ok {
		return
	}
	g.release()
	delete(r.meshes, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (g *gpuMesh) release() {
	gl.DeleteVertexArrays(1, &g.vao)
	gl.DeleteBuffers(1, &g.vbo)
	gl.DeleteBuffers(1, &g.ebo)
}

// SetBackground sets the clear color.
func (r *Renderer) SetBackground(c color.RGBA) {
	r.background = c
}

// SetSize handles window resize.
func (r *Renderer) SetSize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// MarkTextureDirty schedules a frame upload before the next draw.
func (r *Renderer) MarkTextureDirty() {
	r.dirty = true
}

// Render draws the scene from cam, or from each eye of pose when non-nil.
func (r *Renderer) Render(cam *camera.Camera, pose *xr.Pose) error {
	if r.dirty {
		if err := r.upload(); err != nil {
			return err
		}
	}

	bg := r.background
	gl.Viewport(0, 0, int32(r.config.Width), int32(r.config.Height))
	gl.ClearColor(float32(bg.R)/255, float32(bg.G)/255, float32(bg.B)/255, float32(bg.A)/255)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.program.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	r.program.SetInt("uFrame", 0)

	for _, p := range planPasses(cam, pose, r.config.Width, r.config.Height) {
		gl.Viewport(p.x, p.y, p.w, p.h)
		viewProj := p.projection.Mul(p.view)
		for _, id := range r.order {
			g := r.meshes[id]
			if !p.visible(g.eye) {
				continue
			}
			r.draw(g, viewProj)
		}
	}

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (r *Renderer) draw(g *gpuMesh, viewProj math.Mat4) {
	r.program.SetMat4("uMVP", viewProj.Mul(g.transform))
	r.program.SetBool("uWarp", g.warp != nil)
	if w := g.warp; w != nil {
		r.program.SetMat3("uMapMatrix", w.MapMatrix)
		r.program.SetVec2("uFaceSize", w.FaceSize)
		r.program.SetVec2("uFrameSize", w.FrameSize)
		r.program.SetFloat("uContinuityCorrection", w.ContinuityCorrection)
	}
	gl.CullFace(cullFace(g.side))
	gl.BindVertexArray(g.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, g.count, gl.UNSIGNED_INT, 0)
}

// upload copies the current video frame into the texture. Any GL error
// raised by the upload is returned wrapping session.ErrTextureUpload.
func (r *Renderer) upload() error {
	r.dirty = false
	if r.video == nil {
		return nil
	}
	frame := r.video.Frame()
	if frame == nil || frame == r.uploaded {
		return nil
	}
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Drain stale errors so only the upload's own are reported.
	for gl.GetError() != gl.NO_ERROR {
	}

	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(frame.Stride/4))
	if w != r.texW || h != r.texH {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(frame.Pix))
		r.texW, r.texH = w, h
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(frame.Pix))
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		r.texW, r.texH = 0, 0
		r.uploaded = nil
		return fmt.Errorf("upload %dx%d frame (gl error 0x%x): %w", w, h, code, session.ErrTextureUpload)
	}
	r.uploaded = frame
	return nil
}

// Dispose releases every GPU resource.
func (r *Renderer) Dispose() {
	r.log.Info("closing renderer")
	for _, id := range r.order {
		r.meshes[id].release()
	}
	r.meshes = make(map[session.MeshID]*gpuMesh)
	r.order = nil
	if r.texture != 0 {
		gl.DeleteTextures(1, &r.texture)
		r.texture = 0
	}
	if r.program != nil {
		r.program.Delete()
	}
	r.video = nil
	r.uploaded = nil
}
