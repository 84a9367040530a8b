// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package region

import (
	"strings"
)

// MaxRects is the rectangle count above which damage regions are
// collapsed to their bounding rectangle by [Region.Simplify].
const MaxRects = 32

// Region is a set of pixels stored as disjoint rectangles.
// The zero value is an empty region ready to use.
type Region struct {
	rects []Rect
}

// New returns the union of the given rectangles.
func New(rects ...Rect) Region {
	var g Region
	for _, r := range rects {
		g.Add(r)
	}
	return g
}

// IsEmpty reports whether the region covers no pixels.
func (g Region) IsEmpty() bool {
	return len(g.rects) == 0
}

// Len returns the number of rectangles in the set.
func (g Region) Len() int {
	return len(g.rects)
}

// Rects returns a copy of the disjoint rectangles making up the region.
func (g Region) Rects() []Rect {
	if len(g.rects) == 0 {
		return nil
	}
	out := make([]Rect, len(g.rects))
	copy(out, g.rects)
	return out
}

// Clone returns an independent copy of the region.
func (g Region) Clone() Region {
	return Region{rects: g.Rects()}
}

// Bounds returns the bounding rectangle of the region.
func (g Region) Bounds() Rect {
	var b Rect
	for _, r := range g.rects {
		b = b.Union(r)
	}
	return b
}

// Area returns the number of pixels covered.
func (g Region) Area() int64 {
	var a int64
	for _, r := range g.rects {
		a += r.Area()
	}
	return a
}

// Add extends the region by r.
func (g *Region) Add(r Rect) {
	if r.Empty() {
		return
	}
	pieces := []Rect{r}
	for _, e := range g.rects {
		var next []Rect
		for _, p := range pieces {
			next = subtract(next, p, e)
		}
		pieces = next
		if len(pieces) == 0 {
			return
		}
	}
	g.rects = append(g.rects, pieces...)
}

// Union extends the region by every rectangle of o.
func (g *Region) Union(o Region) {
	for _, r := range o.rects {
		g.Add(r)
	}
}

// Subtract removes r from the region.
func (g *Region) Subtract(r Rect) {
	if r.Empty() || len(g.rects) == 0 {
		return
	}
	var out []Rect
	for _, e := range g.rects {
		out = subtract(out, e, r)
	}
	g.rects = out
}

// SubtractRegion removes every rectangle of o from the region.
func (g *Region) SubtractRegion(o Region) {
	for _, r := range o.rects {
		g.Subtract(r)
	}
}

// IntersectRect returns the part of the region inside r.
func (g Region) IntersectRect(r Rect) Region {
	var out Region
	for _, e := range g.rects {
		if i := e.Intersect(r); !i.Empty() {
			out.rects = append(out.rects, i)
		}
	}
	return out
}

// Intersect returns the pixels covered by both g and o.
func (g Region) Intersect(o Region) Region {
	var out Region
	for _, a := range g.rects {
		for _, b := range o.rects {
			if i := a.Intersect(b); !i.Empty() {
				// Both inputs are disjoint sets, so the pairwise
				// intersections are disjoint as well.
				out.rects = append(out.rects, i)
			}
		}
	}
	return out
}

// Translate returns the region moved by (dx, dy).
func (g Region) Translate(dx, dy int32) Region {
	out := Region{rects: make([]Rect, len(g.rects))}
	for i, r := range g.rects {
		out.rects[i] = r.Move(dx, dy)
	}
	return out
}

// Contains reports whether the pixel at (x, y) is in the region.
func (g Region) Contains(x, y int32) bool {
	for _, r := range g.rects {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// ContainsRect reports whether every pixel of r is in the region.
func (g Region) ContainsRect(r Rect) bool {
	if r.Empty() {
		return true
	}
	rest := []Rect{r}
	for _, e := range g.rects {
		var next []Rect
		for _, p := range rest {
			next = subtract(next, p, e)
		}
		rest = next
		if len(rest) == 0 {
			return true
		}
	}
	return false
}

// Equal reports whether g and o cover the same pixels.
func (g Region) Equal(o Region) bool {
	if g.Area() != o.Area() {
		return false
	}
	for _, r := range o.rects {
		if !g.ContainsRect(r) {
			return false
		}
	}
	return true
}

// Clear empties the region, keeping its storage.
func (g *Region) Clear() {
	g.rects = g.rects[:0]
}

// Simplify collapses the region to its bounding rectangle when it holds
// more than limit rectangles. It reports whether a collapse happened.
func (g *Region) Simplify(limit int) bool {
	if limit <= 0 || len(g.rects) <= limit {
		return false
	}
	b := g.Bounds()
	g.rects = append(g.rects[:0], b)
	return true
}

func (g Region) String() string {
	if len(g.rects) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, r := range g.rects {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
