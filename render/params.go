// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"encoding/binary"
	"math"
)

// Parameter block layout shared by every pipeline variant. The block is
// bound as a uniform buffer (or push constants) and must keep the same
// offsets across variants, since the multiplier variant and the base
// variant can be bound against the same block.
const (
	ParamBlockSize = 64

	// DstOffset holds the destination rect in clip space: x1, y1, x2, y2.
	DstOffset = 0
	// Aux0Offset holds texture coordinates of the top-left and top-right
	// corners, or the fill colour for fill ops.
	Aux0Offset = 16
	// Aux1Offset holds texture coordinates of the bottom-left and
	// bottom-right corners.
	Aux1Offset = 32
	// AlphaOffset holds the f32 opacity multiplier.
	AlphaOffset = 48
)

// Params is the decoded form of the parameter block.
type Params struct {
	Dst   [4]float32
	Aux0  [4]float32
	Aux1  [4]float32
	Alpha float32
}

// Encode writes the block in little-endian order. b must hold at least
// ParamBlockSize bytes; padding bytes are zeroed.
func (p *Params) Encode(b []byte) {
	_ = b[ParamBlockSize-1]
	putVec4(b[DstOffset:], p.Dst)
	putVec4(b[Aux0Offset:], p.Aux0)
	putVec4(b[Aux1Offset:], p.Aux1)
	binary.LittleEndian.PutUint32(b[AlphaOffset:], math.Float32bits(p.Alpha))
	clear(b[AlphaOffset+4 : ParamBlockSize])
}

// Bytes returns the encoded block.
func (p *Params) Bytes() []byte {
	b := make([]byte, ParamBlockSize)
	p.Encode(b)
	return b
}

func putVec4(b []byte, v [4]float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
}

// NewParams computes the parameter block for op drawn onto a target of
// the given size. Texture coordinates follow the op's transform: the
// corners of Dst are mapped to the buffer corners they display.
func NewParams(op *DrawOp, targetWidth, targetHeight int) Params {
	w, h := float32(targetWidth), float32(targetHeight)
	p := Params{
		Dst: [4]float32{
			2*float32(op.Dst.X1)/w - 1,
			1 - 2*float32(op.Dst.Y1)/h,
			2*float32(op.Dst.X2)/w - 1,
			1 - 2*float32(op.Dst.Y2)/h,
		},
		Alpha: op.Alpha,
	}
	if op.Caps&CapFill != 0 {
		p.Aux0 = [4]float32{op.Color.R, op.Color.G, op.Color.B, op.Color.A}
		p.Alpha = 1
		return p
	}
	c := TexCoords(op)
	p.Aux0 = [4]float32{c[0][0], c[0][1], c[1][0], c[1][1]}
	p.Aux1 = [4]float32{c[2][0], c[2][1], c[3][0], c[3][1]}
	return p
}

// TexCoords returns normalized texture coordinates for the top-left,
// top-right, bottom-left and bottom-right corners of op.Dst.
func TexCoords(op *DrawOp) [4][2]float32 {
	img := op.Source.Image()
	tw, th := float64(img.Width()), float64(img.Height())
	src := op.Src
	if src.Width <= 0 || src.Height <= 0 {
		src = SampleRect{Width: tw, Height: th}
	}
	corners := [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	var out [4][2]float32
	for i, c := range corners {
		s, t := op.Transform.MapUV(c[0], c[1])
		out[i] = [2]float32{
			float32((src.X + s*src.Width) / tw),
			float32((src.Y + t*src.Height) / th),
		}
	}
	return out
}
