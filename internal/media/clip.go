// Package media provides the playback element: a clip of still frames
// decoded up front and stepped at a fixed rate.
package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ErrEmptyClip is returned when a clip directory holds no frames.
var ErrEmptyClip = errors.New("media: clip has no frames")

var frameExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".tga":  true,
}

// Clip is a decoded frame sequence. Every frame has the clip's size.
type Clip struct {
	Frames []*image.RGBA
	Width  int
	Height int
}

// LoadClip decodes a single image, or every supported image in a directory
// in name order. Frames larger than maxSize on either side are scaled down;
// maxSize <= 0 keeps them as they are.
func LoadClip(path string, maxSize int) (*Clip, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat clip: %w", err)
	}

	paths := []string{path}
	if info.IsDir() {
		paths, err = framePaths(path)
		if err != nil {
			return nil, err
		}
	}

	clip := &Clip{}
	for _, p := range paths {
		frame, err := decodeFrame(p)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(p), err)
		}
		frame = fit(frame, maxSize)
		if len(clip.Frames) == 0 {
			b := frame.Bounds()
			clip.Width, clip.Height = b.Dx(), b.Dy()
		} else if b := frame.Bounds(); b.Dx() != clip.Width || b.Dy() != clip.Height {
			frame = resize(frame, clip.Width, clip.Height)
		}
		clip.Frames = append(clip.Frames, frame)
	}
	return clip, nil
}

func framePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read clip dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !frameExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, ErrEmptyClip
	}
	sort.Strings(paths)
	return paths, nil
}

func decodeFrame(path string) (*image.RGBA, error) {
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return decodeTGA(data)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

// toRGBA converts img to an RGBA image anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return rgba
}

// fit scales img down so neither side exceeds maxSize, keeping its aspect.
func fit(img *image.RGBA, maxSize int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return img
	}
	if w >= h {
		h = max(1, h*maxSize/w)
		w = maxSize
	} else {
		w = max(1, w*maxSize/h)
		h = maxSize
	}
	return resize(img, w, h)
}

func resize(img *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
