// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package region

// Transform is a buffer transform: one of four rotations, optionally
// preceded by a horizontal flip. The numeric values match the
// wl_output.transform enumeration.
//
// A transform describes how the client already transformed its buffer
// contents; the compositor applies the inverse when sampling.
type Transform uint8

const (
	Normal Transform = iota
	Rotate90
	Rotate180
	Rotate270
	Flipped
	Flipped90
	Flipped180
	Flipped270
)

var transformNames = [...]string{
	"normal", "90", "180", "270",
	"flipped", "flipped-90", "flipped-180", "flipped-270",
}

func (t Transform) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return transformNames[t]
}

// Valid reports whether t is one of the eight defined transforms.
func (t Transform) Valid() bool {
	return t <= Flipped270
}

// SwapsAxes reports whether the transform exchanges width and height.
func (t Transform) SwapsAxes() bool {
	return t&1 == 1
}

// Size returns the surface size produced by a buffer of the given size.
func (t Transform) Size(width, height int32) (int32, int32) {
	if t.SwapsAxes() {
		return height, width
	}
	return width, height
}

// Invert returns the transform that undoes t.
func (t Transform) Invert() Transform {
	switch t {
	case Rotate90:
		return Rotate270
	case Rotate270:
		return Rotate90
	}
	return t
}

// affine returns the coefficients of MapUV:
// s = a*u + b*v + c, t = d*u + e*v + f.
func (t Transform) affine() (a, b, c, d, e, f float64) {
	switch t {
	case Rotate90:
		return 0, 1, 0, -1, 0, 1
	case Rotate180:
		return -1, 0, 1, 0, -1, 1
	case Rotate270:
		return 0, -1, 1, 1, 0, 0
	case Flipped:
		return -1, 0, 1, 0, 1, 0
	case Flipped90:
		return 0, 1, 0, 1, 0, 0
	case Flipped180:
		return 1, 0, 0, 0, -1, 1
	case Flipped270:
		return 0, -1, 1, -1, 0, 1
	}
	return 1, 0, 0, 0, 1, 0
}

// MapUV maps a normalized surface coordinate (u, v) in [0,1]^2 to the
// normalized buffer coordinate sampled for it.
func (t Transform) MapUV(u, v float64) (float64, float64) {
	a, b, c, d, e, f := t.affine()
	return a*u + b*v + c, d*u + e*v + f
}

// Affine returns the coefficients (a, b, c, d, e, f) of the mapping
// performed by MapUV.
func (t Transform) Affine() [6]float64 {
	a, b, c, d, e, f := t.affine()
	return [6]float64{a, b, c, d, e, f}
}
