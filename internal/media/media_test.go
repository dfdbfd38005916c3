package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/midgard-vr/internal/session"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

// writeClip writes n solid frames whose red channel encodes their index.
func writeClip(t *testing.T, n, w, h int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, "frame_"+string(rune('a'+i))+".png")
		writePNG(t, name, solid(w, h, color.RGBA{R: uint8(i), A: 0xff}))
	}
	// Ignored entries.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	return dir
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type harness struct {
	p      *Player
	clock  *clock
	events []session.PlaybackEvent
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{clock: &clock{t: time.Unix(100, 0)}}
	inline := func(fn func()) { fn() }
	h.p = NewPlayer(cfg, inline, nil, WithClock(h.clock.now), WithSpawn(inline))
	for _, ev := range []session.PlaybackEvent{
		session.EventLoad, session.EventReady, session.EventPlaying,
		session.EventFullscreen, session.EventFullscreenExit,
	} {
		ev := ev
		h.p.On(ev, func() { h.events = append(h.events, ev) })
	}
	return h
}

func TestLoadClipDirectory(t *testing.T) {
	clip, err := LoadClip(writeClip(t, 3, 8, 4), 0)
	require.NoError(t, err)
	require.Len(t, clip.Frames, 3)
	assert.Equal(t, 8, clip.Width)
	assert.Equal(t, 4, clip.Height)
	for i, f := range clip.Frames {
		assert.Equal(t, uint8(i), f.Pix[0], "frames must load in name order")
	}
}

func TestLoadClipEmptyDirectory(t *testing.T) {
	_, err := LoadClip(t.TempDir(), 0)
	assert.ErrorIs(t, err, ErrEmptyClip)
}

func TestLoadClipMissing(t *testing.T) {
	_, err := LoadClip(filepath.Join(t.TempDir(), "missing.png"), 0)
	assert.Error(t, err)
}

func TestLoadClipScalesDown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wide.png")
	writePNG(t, path, solid(400, 200, color.RGBA{G: 0xff, A: 0xff}))

	clip, err := LoadClip(path, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, clip.Width)
	assert.Equal(t, 50, clip.Height)
	assert.Equal(t, uint8(0xff), clip.Frames[0].RGBAAt(50, 25).G)
}

func TestLoadClipBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, solid(6, 3, color.RGBA{B: 0x80, A: 0xff})))
	require.NoError(t, f.Close())

	clip, err := LoadClip(path, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, clip.Width)
	assert.Equal(t, uint8(0x80), clip.Frames[0].Pix[2])
}

func tgaHeaderBytes(imageType byte, w, h int, bpp byte, descriptor byte) []byte {
	return []byte{
		0, 0, imageType,
		0, 0, 0, 0, 0,
		0, 0, 0, 0,
		byte(w), byte(w >> 8), byte(h), byte(h >> 8),
		bpp, descriptor,
	}
}

func TestDecodeTGAUncompressed(t *testing.T) {
	// 2x2, bottom-up, BGR.
	data := tgaHeaderBytes(tgaUncompressed, 2, 2, 24, 0)
	data = append(data,
		1, 2, 3, 4, 5, 6, // bottom row
		7, 8, 9, 10, 11, 12, // top row
	)
	img, err := decodeTGA(data)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 9, G: 8, B: 7, A: 0xff}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 3, G: 2, B: 1, A: 0xff}, img.RGBAAt(0, 1))
	assert.Equal(t, color.RGBA{R: 6, G: 5, B: 4, A: 0xff}, img.RGBAAt(1, 1))
}

func TestDecodeTGARLE(t *testing.T) {
	// 3x1, top-down, BGRA: a run of two then one raw pixel.
	data := tgaHeaderBytes(tgaRLE, 3, 1, 32, 0x20)
	data = append(data,
		0x81, 10, 20, 30, 40,
		0x00, 1, 2, 3, 4,
	)
	img, err := decodeTGA(data)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 40}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 40}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{R: 3, G: 2, B: 1, A: 4}, img.RGBAAt(2, 0))
}

func TestDecodeTGARejects(t *testing.T) {
	_, err := decodeTGA([]byte{1, 2, 3})
	assert.ErrorIs(t, err, errTGATruncated)

	_, err = decodeTGA(tgaHeaderBytes(1, 2, 2, 24, 0))
	assert.Error(t, err)

	_, err = decodeTGA(tgaHeaderBytes(tgaUncompressed, 2, 2, 16, 0))
	assert.Error(t, err)

	_, err = decodeTGA(append(tgaHeaderBytes(tgaUncompressed, 2, 2, 24, 0), 1, 2, 3))
	assert.ErrorIs(t, err, errTGATruncated)

	_, err = decodeTGA(append(tgaHeaderBytes(tgaRLE, 2, 2, 24, 0), 0x83))
	assert.ErrorIs(t, err, errTGATruncated)
}

func TestPlayerWithoutPath(t *testing.T) {
	h := newHarness(t, Config{})
	assert.Nil(t, h.p.Video())
	h.p.Open()
	assert.False(t, h.p.Ready())
	assert.Empty(t, h.events)
}

func TestPlayerLoadEvents(t *testing.T) {
	h := newHarness(t, Config{Path: writeClip(t, 2, 4, 2)})
	v := h.p.Video()
	require.NotNil(t, v)
	assert.False(t, v.HasEnoughData())
	assert.Nil(t, v.Frame())
	w, hh := v.Size()
	assert.Zero(t, w+hh)

	h.p.Open()
	assert.Equal(t, []session.PlaybackEvent{session.EventLoad, session.EventReady}, h.events)
	assert.True(t, h.p.Ready())
	assert.True(t, v.HasEnoughData())
	w, hh = v.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, hh)
	assert.NoError(t, h.p.Err())
}

func TestPlayerLoadFailure(t *testing.T) {
	h := newHarness(t, Config{Path: t.TempDir()})
	h.p.Open()
	assert.ErrorIs(t, h.p.Err(), ErrEmptyClip)
	assert.False(t, h.p.Ready())
	assert.Empty(t, h.events)
}

func TestPlayerPlaybackAdvances(t *testing.T) {
	h := newHarness(t, Config{Path: writeClip(t, 3, 2, 2), FPS: 10})
	h.p.Open()
	h.events = nil

	assert.True(t, h.p.Paused())
	h.clock.t = h.clock.t.Add(time.Second)
	assert.Zero(t, h.p.FrameIndex(), "paused playback must not advance")

	h.p.Play()
	assert.Equal(t, []session.PlaybackEvent{session.EventPlaying}, h.events)
	h.clock.t = h.clock.t.Add(150 * time.Millisecond)
	assert.Equal(t, 1, h.p.FrameIndex())
	assert.Equal(t, uint8(1), h.p.Frame().Pix[0])

	h.p.Pause()
	h.clock.t = h.clock.t.Add(time.Second)
	assert.Equal(t, 1, h.p.FrameIndex())

	h.p.Play()
	h.clock.t = h.clock.t.Add(time.Second)
	assert.Equal(t, 2, h.p.FrameIndex(), "without looping the last frame holds")
}

func TestPlayerLoops(t *testing.T) {
	h := newHarness(t, Config{Path: writeClip(t, 3, 2, 2), FPS: 10, Loop: true})
	h.p.Open()
	h.p.Play()
	h.clock.t = h.clock.t.Add(350 * time.Millisecond)
	assert.Equal(t, 0, h.p.FrameIndex())
}

func TestPlayBeforeLoad(t *testing.T) {
	h := newHarness(t, Config{Path: writeClip(t, 1, 2, 2)})
	h.p.Play()
	assert.Empty(t, h.events, "playing waits for frames")

	h.p.Open()
	assert.Equal(t, []session.PlaybackEvent{session.EventLoad, session.EventReady, session.EventPlaying}, h.events)
}

func TestPlayerFullscreenEvents(t *testing.T) {
	h := newHarness(t, Config{})
	h.p.SetFullscreen(true)
	h.p.SetFullscreen(true)
	h.p.SetFullscreen(false)
	assert.Equal(t, []session.PlaybackEvent{session.EventFullscreen, session.EventFullscreenExit}, h.events)
	assert.False(t, h.p.Fullscreen())
}

func TestPlayerListenerRemoval(t *testing.T) {
	h := newHarness(t, Config{})
	calls := 0
	off := h.p.On(session.EventFullscreen, func() { calls++ })
	h.p.SetFullscreen(true)
	off()
	h.p.SetFullscreen(false)
	h.p.SetFullscreen(true)
	assert.Equal(t, 1, calls)
}
