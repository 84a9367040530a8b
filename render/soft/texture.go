// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"image"
	"image/color"

	"github.com/gogpu/compositor/buffer"
)

// texture is an image owned by a Context. Uploaded textures hold an
// *image.RGBA; external ones view the plane memory.
type texture struct {
	ctx       *Context
	width     int
	height    int
	format    buffer.Format
	external  bool
	destroyed bool
	img       image.Image
}

func (t *texture) Width() int            { return t.width }
func (t *texture) Height() int           { return t.height }
func (t *texture) Format() buffer.Format { return t.format }

func (t *texture) Destroy() {
	t.destroyed = true
	t.img = nil
}

// upload converts packed little-endian fourcc pixels into dst.
// Formats without alpha are stored opaque.
func upload(dst *image.RGBA, src []byte, stride int, f buffer.Format) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	for y := range h {
		in := src[y*stride : y*stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		switch f {
		case buffer.ABGR8888:
			copy(out, in)
		case buffer.XBGR8888:
			copy(out, in)
			for x := 3; x < len(out); x += 4 {
				out[x] = 0xff
			}
		default:
			opaque := f == buffer.XRGB8888
			for x := 0; x < len(in); x += 4 {
				out[x+0] = in[x+2]
				out[x+1] = in[x+1]
				out[x+2] = in[x+0]
				if opaque {
					out[x+3] = 0xff
				} else {
					out[x+3] = in[x+3]
				}
			}
		}
	}
}

// wrapPlane returns an image reading pixels from plane memory.
func wrapPlane(pix []byte, stride, w, h int, f buffer.Format) image.Image {
	r := image.Rect(0, 0, w, h)
	if f == buffer.ABGR8888 {
		return &image.RGBA{Pix: pix, Stride: stride, Rect: r}
	}
	return &planeImage{pix: pix, stride: stride, rect: r, format: f}
}

// planeImage views packed fourcc memory whose byte order differs from
// image.RGBA.
type planeImage struct {
	pix    []byte
	stride int
	rect   image.Rectangle
	format buffer.Format
}

func (p *planeImage) ColorModel() color.Model { return color.RGBAModel }
func (p *planeImage) Bounds() image.Rectangle { return p.rect }

func (p *planeImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.rect) {
		return color.RGBA{}
	}
	b := p.pix[y*p.stride+x*4 : y*p.stride+x*4+4]
	switch p.format {
	case buffer.XBGR8888:
		return color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	case buffer.XRGB8888:
		return color.RGBA{R: b[2], G: b[1], B: b[0], A: 0xff}
	default:
		return color.RGBA{R: b[2], G: b[1], B: b[0], A: b[3]}
	}
}

// opaqueImage samples an image with its alpha channel ignored.
type opaqueImage struct {
	image.Image
}

func (o opaqueImage) ColorModel() color.Model { return color.RGBA64Model }

func (o opaqueImage) At(x, y int) color.Color {
	r, g, b, _ := o.Image.At(x, y).RGBA()
	return color.RGBA64{R: uint16(r), G: uint16(g), B: uint16(b), A: 0xffff}
}
