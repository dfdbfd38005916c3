package media

import (
	"errors"
	"fmt"
	"image"
)

// TGA image types.
const (
	tgaUncompressed = 2  // Uncompressed true-color
	tgaRLE          = 10 // RLE compressed true-color
)

var errTGATruncated = errors.New("tga: data truncated")

type tgaHeader struct {
	idLength     int
	colorMapType byte
	imageType    byte
	width        int
	height       int
	bpp          int
	topToBottom  bool
}

func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < 18 {
		return tgaHeader{}, errTGATruncated
	}
	h := tgaHeader{
		idLength:     int(data[0]),
		colorMapType: data[1],
		imageType:    data[2],
		width:        int(data[12]) | int(data[13])<<8,
		height:       int(data[14]) | int(data[15])<<8,
		bpp:          int(data[16]),
		// Bit 5 of the descriptor marks top-to-bottom row order.
		topToBottom: data[17]&0x20 != 0,
	}
	if h.colorMapType != 0 {
		return h, errors.New("tga: color-mapped images not supported")
	}
	if h.imageType != tgaUncompressed && h.imageType != tgaRLE {
		return h, fmt.Errorf("tga: unsupported image type %d", h.imageType)
	}
	if h.bpp != 24 && h.bpp != 32 {
		return h, fmt.Errorf("tga: unsupported bit depth %d", h.bpp)
	}
	return h, nil
}

// decodeTGA decodes uncompressed and RLE true-color TGA frames, the formats
// frame-sequence exporters write.
func decodeTGA(data []byte) (*image.RGBA, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}
	offset := 18 + h.idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}

	w := tgaWriter{
		img:         image.NewRGBA(image.Rect(0, 0, h.width, h.height)),
		width:       h.width,
		height:      h.height,
		bytesPP:     h.bpp / 8,
		topToBottom: h.topToBottom,
	}
	src := data[offset:]

	if h.imageType == tgaUncompressed {
		if len(src) < h.width*h.height*w.bytesPP {
			return nil, errTGATruncated
		}
		for i := 0; i < h.width*h.height; i++ {
			w.put(src[i*w.bytesPP:])
		}
		return w.img, nil
	}

	for w.n < h.width*h.height {
		if len(src) == 0 {
			return nil, errTGATruncated
		}
		packet := src[0]
		src = src[1:]
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			// Run: one pixel repeated.
			if len(src) < w.bytesPP {
				return nil, errTGATruncated
			}
			for i := 0; i < count; i++ {
				w.put(src)
			}
			src = src[w.bytesPP:]
			continue
		}

		// Raw: count literal pixels.
		if len(src) < count*w.bytesPP {
			return nil, errTGATruncated
		}
		for i := 0; i < count; i++ {
			w.put(src[i*w.bytesPP:])
		}
		src = src[count*w.bytesPP:]
	}
	return w.img, nil
}

// tgaWriter stores BGR(A) pixels in scan order.
type tgaWriter struct {
	img         *image.RGBA
	width       int
	height      int
	bytesPP     int
	topToBottom bool
	n           int
}

func (w *tgaWriter) put(px []byte) {
	if w.n >= w.width*w.height {
		return
	}
	x, y := w.n%w.width, w.n/w.width
	if !w.topToBottom {
		y = w.height - 1 - y
	}
	a := byte(0xff)
	if w.bytesPP == 4 {
		a = px[3]
	}
	i := w.img.PixOffset(x, y)
	w.img.Pix[i+0] = px[2]
	w.img.Pix[i+1] = px[1]
	w.img.Pix[i+2] = px[0]
	w.img.Pix[i+3] = a
	w.n++
}
