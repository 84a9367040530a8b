// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"math"

	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// ID identifies a surface. The zero ID is never a surface.
type ID uint32

// Surface is one node of the surface tree.
type Surface struct {
	id      ID
	pending pending
	current State
	// cache holds committed state of a synchronized subsurface that waits
	// for the parent's commit.
	cache *pending

	parent ID
	isSub  bool
	sync   bool
	// pos is the subsurface position relative to the parent.
	pos [2]int32
	// below and above list child subsurfaces stacked under and over this
	// surface, bottom to top.
	below, above []ID

	// mapped roots are placed in the global layout at rootPos.
	mapped  bool
	rootPos [2]int32

	// off accumulates attach offsets.
	off [2]int32
	// abs is the global position of the surface origin.
	abs [2]int32

	frameDue bool
}

// ID returns the surface identity.
func (s *Surface) ID() ID { return s.id }

// Current returns the current state. The returned value must not be
// modified.
func (s *Surface) Current() *State { return &s.current }

// Parent returns the parent of a subsurface, or 0.
func (s *Surface) Parent() ID { return s.parent }

// IsSubsurface reports whether the surface has the subsurface role.
func (s *Surface) IsSubsurface() bool { return s.isSub }

// Sync reports the subsurface's own synchronization flag.
func (s *Surface) Sync() bool { return s.sync }

// HasCache reports whether committed state waits for the parent.
func (s *Surface) HasCache() bool { return s.cache != nil }

// Position returns the global position of the surface origin.
func (s *Surface) Position() (x, y int32) { return s.abs[0], s.abs[1] }

// Alpha returns the current opacity multiplier.
func (s *Surface) Alpha() float32 { return s.current.Alpha }

// FrameDue reports whether the client is owed a frame event.
func (s *Surface) FrameDue() bool { return s.frameDue }

// ClearFrameDue records that the frame event was sent.
func (s *Surface) ClearFrameDue() { s.frameDue = false }

// Size returns the surface size in surface coordinates. Surfaces without
// a buffer have no size.
func (s *Surface) Size() (width, height int32) {
	b := s.current.Buffer
	if b == nil {
		return 0, 0
	}
	vp := s.current.Viewport
	if vp.Width > 0 && vp.Height > 0 {
		return vp.Width, vp.Height
	}
	if vp.Source != nil {
		return int32(math.Ceil(vp.Source.Width)), int32(math.Ceil(vp.Source.Height))
	}
	w, h := s.current.Transform.Size(b.Width(), b.Height())
	sc := max(s.current.Scale, 1)
	return w / sc, h / sc
}

// Extents returns the global rectangle covered by the surface.
func (s *Surface) Extents() region.Rect {
	w, h := s.Size()
	return region.NewRect(s.abs[0], s.abs[1], w, h)
}

// OpaqueRegion returns the global region the surface covers with fully
// opaque pixels, not accounting for its alpha multiplier. A buffer
// format without alpha is opaque everywhere.
func (s *Surface) OpaqueRegion() region.Region {
	ext := s.Extents()
	if ext.Empty() {
		return region.Region{}
	}
	if !s.current.Buffer.Format().HasAlpha() {
		return region.New(ext)
	}
	return s.current.Opaque.Translate(s.abs[0], s.abs[1]).IntersectRect(ext)
}

// AcceptsInput reports whether the global point (x, y) is inside the
// surface's input region.
func (s *Surface) AcceptsInput(x, y int32) bool {
	if !s.Extents().Contains(x, y) {
		return false
	}
	if s.current.Input == nil {
		return true
	}
	return s.current.Input.Contains(x-s.abs[0], y-s.abs[1])
}

// SampleRect returns the part of the buffer, in buffer pixels, that is
// shown on the surface.
func (s *Surface) SampleRect() render.SampleRect {
	b := s.current.Buffer
	if b == nil {
		return render.SampleRect{}
	}
	bw, bh := float64(b.Width()), float64(b.Height())
	src := s.current.Viewport.Source
	if src == nil {
		return render.SampleRect{Width: bw, Height: bh}
	}
	tr := s.current.Transform
	tw32, th32 := tr.Size(b.Width(), b.Height())
	sc := float64(max(s.current.Scale, 1))
	tw, th := float64(tw32)/sc, float64(th32)/sc

	s0, t0 := tr.MapUV(src.X/tw, src.Y/th)
	s1, t1 := tr.MapUV((src.X+src.Width)/tw, (src.Y+src.Height)/th)
	x0, x1 := s0*bw, s1*bw
	y0, y1 := t0*bh, t1*bh
	return render.SampleRect{
		X:      math.Min(x0, x1),
		Y:      math.Min(y0, y1),
		Width:  math.Abs(x1 - x0),
		Height: math.Abs(y1 - y0),
	}
}

// validateViewport checks a viewport against the buffer it will apply to.
func validateViewport(st *State) error {
	vp := st.Viewport
	b := st.Buffer
	if b == nil || vp.Source == nil {
		return nil
	}
	tw, th := st.Transform.Size(b.Width(), b.Height())
	sc := float64(max(st.Scale, 1))
	src := vp.Source
	if src.X < 0 || src.Y < 0 ||
		src.X+src.Width > float64(tw)/sc || src.Y+src.Height > float64(th)/sc {
		return ErrViewportOutsideBuffer
	}
	return nil
}
