// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package region

import "fmt"

// Rect is a half-open integer rectangle [X1, X2) x [Y1, Y2).
// A rectangle with X1 >= X2 or Y1 >= Y2 is empty.
type Rect struct {
	X1, Y1, X2, Y2 int32
}

// NewRect creates a rectangle from an origin and a size.
func NewRect(x, y, width, height int32) Rect {
	return Rect{X1: x, Y1: y, X2: x + width, Y2: y + height}
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

// Width returns the horizontal extent, or 0 for empty rectangles.
func (r Rect) Width() int32 {
	if r.X2 <= r.X1 {
		return 0
	}
	return r.X2 - r.X1
}

// Height returns the vertical extent, or 0 for empty rectangles.
func (r Rect) Height() int32 {
	if r.Y2 <= r.Y1 {
		return 0
	}
	return r.Y2 - r.Y1
}

// Area returns the number of pixels covered.
func (r Rect) Area() int64 {
	return int64(r.Width()) * int64(r.Height())
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
		X2: min(r.X2, o.X2),
		Y2: min(r.Y2, o.Y2),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Union returns the smallest rectangle containing both r and o.
// Empty operands are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
		X2: max(r.X2, o.X2),
		Y2: max(r.Y2, o.Y2),
	}
}

// Overlaps reports whether r and o share at least one pixel.
func (r Rect) Overlaps(o Rect) bool {
	return r.X1 < o.X2 && o.X1 < r.X2 && r.Y1 < o.Y2 && o.Y1 < r.Y2
}

// Contains reports whether the pixel at (x, y) lies inside r.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.X1 && x < r.X2 && y >= r.Y1 && y < r.Y2
}

// ContainsRect reports whether o lies entirely inside r.
// An empty o is contained in every rectangle.
func (r Rect) ContainsRect(o Rect) bool {
	if o.Empty() {
		return true
	}
	return o.X1 >= r.X1 && o.X2 <= r.X2 && o.Y1 >= r.Y1 && o.Y2 <= r.Y2
}

// Move returns r translated by (dx, dy).
func (r Rect) Move(dx, dy int32) Rect {
	return Rect{X1: r.X1 + dx, Y1: r.Y1 + dy, X2: r.X2 + dx, Y2: r.Y2 + dy}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

// subtract appends the parts of r not covered by o to out.
// The pieces are disjoint: full-width bands above and below o,
// then the left and right remainders of the middle band.
func subtract(out []Rect, r, o Rect) []Rect {
	if !r.Overlaps(o) {
		return append(out, r)
	}
	if r.Y1 < o.Y1 {
		out = append(out, Rect{X1: r.X1, Y1: r.Y1, X2: r.X2, Y2: o.Y1})
	}
	if o.Y2 < r.Y2 {
		out = append(out, Rect{X1: r.X1, Y1: o.Y2, X2: r.X2, Y2: r.Y2})
	}
	y1, y2 := max(r.Y1, o.Y1), min(r.Y2, o.Y2)
	if r.X1 < o.X1 {
		out = append(out, Rect{X1: r.X1, Y1: y1, X2: o.X1, Y2: y2})
	}
	if o.X2 < r.X2 {
		out = append(out, Rect{X1: o.X2, Y1: y1, X2: r.X2, Y2: y2})
	}
	return out
}
