// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/compositor/render"
)

// program is one compiled pipeline variant.
type program struct {
	caps render.Caps
}

func (c *Context) compile(caps render.Caps) (*program, error) {
	if caps&render.CapFill != 0 && caps != render.CapFill {
		return nil, fmt.Errorf("soft: no program for %v", caps)
	}
	c.log.Debug("soft: program compiled", "caps", caps)
	return &program{caps: caps}, nil
}

func uniformVec4(b []byte, off int) [4]float64 {
	var v [4]float64
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[off+i*4:])))
	}
	return v
}

func uniformFloat(b []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
}

// run executes the program over dst, a clip rectangle of a back image
// of the given size, with the parameters currently uploaded.
func (p *program) run(c *Context, dst *image.RGBA, size image.Point, tex *texture) {
	u := c.uniforms[:]
	if p.caps == render.CapFill {
		col := uniformVec4(u, render.Aux0Offset)
		draw.Draw(dst, dst.Rect, image.NewUniform(toRGBA64(col)), image.Point{}, draw.Src)
		return
	}

	var src image.Image = tex.img
	if p.caps&render.CapAlpha == 0 && tex.format.HasAlpha() {
		src = opaqueImage{src}
	}
	var opts *draw.Options
	if p.caps&render.CapAlphaMultiplier != 0 {
		a := math.Min(math.Max(uniformFloat(u, render.AlphaOffset), 0), 1)
		opts = &draw.Options{
			SrcMask: image.NewUniform(color.Alpha16{A: uint16(a*0xffff + 0.5)}),
		}
	}
	s2d, ok := sourceToDest(u, size, tex)
	if !ok {
		return
	}
	c.opts.interp.Transform(dst, s2d, src, src.Bounds(), draw.Over, opts)
}

// sourceToDest derives the texel-to-pixel mapping from the destination
// rectangle and the corner texture coordinates in the parameter block.
func sourceToDest(u []byte, size image.Point, tex *texture) (f64.Aff3, bool) {
	w, h := float64(size.X), float64(size.Y)
	ndc := uniformVec4(u, render.DstOffset)
	x1 := math.Round((ndc[0] + 1) / 2 * w)
	y1 := math.Round((1 - ndc[1]) / 2 * h)
	x2 := math.Round((ndc[2] + 1) / 2 * w)
	y2 := math.Round((1 - ndc[3]) / 2 * h)
	dw, dh := x2-x1, y2-y1
	if dw <= 0 || dh <= 0 {
		return f64.Aff3{}, false
	}

	tw, th := float64(tex.width), float64(tex.height)
	uv01 := uniformVec4(u, render.Aux0Offset)
	uv23 := uniformVec4(u, render.Aux1Offset)
	tlx, tly := uv01[0]*tw, uv01[1]*th
	trx, try := uv01[2]*tw, uv01[3]*th
	blx, bly := uv23[0]*tw, uv23[1]*th

	// Destination to source.
	a := (trx - tlx) / dw
	b := (blx - tlx) / dh
	cc := tlx - a*x1 - b*y1
	d := (try - tly) / dw
	e := (bly - tly) / dh
	f := tly - d*x1 - e*y1

	det := a*e - b*d
	if det == 0 {
		return f64.Aff3{}, false
	}
	return f64.Aff3{
		e / det, -b / det, (b*f - e*cc) / det,
		-d / det, a / det, (d*cc - a*f) / det,
	}, true
}

func toRGBA64(c [4]float64) color.RGBA64 {
	q := func(v float64) uint16 {
		return uint16(math.Min(math.Max(v, 0), 1)*0xffff + 0.5)
	}
	return color.RGBA64{R: q(c[0]), G: q(c[1]), B: q(c[2]), A: q(c[3])}
}
