// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package scene builds per-output draw lists from the surface tree.
//
// The composer walks the visible surfaces in paint order, drops surfaces
// fully hidden behind opaque surfaces stacked above them, clips each
// remaining surface to the output's damage and selects a pipeline
// variant per entry. It reads current surface state only.
package scene

import (
	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/importer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/surface"
)

// Textures resolves the imported texture of a buffer.
type Textures interface {
	Lookup(id buffer.ID) (*importer.Texture, bool)
}

// Entry is one draw of a surface.
type Entry struct {
	Surface surface.ID
	Buffer  *buffer.Buffer
	Texture *importer.Texture
	Op      render.DrawOp
}

// Frame is the draw list of one output for one scheduler cycle.
type Frame struct {
	// Output is the output rectangle in global coordinates.
	Output region.Rect
	// Damage is the region redrawn, in output coordinates.
	Damage region.Region
	// Background fills damaged pixels before entries are drawn.
	Background render.Color
	// Entries are ordered bottom to top.
	Entries []Entry
	// Visible lists every mapped surface on the output, including culled
	// and undamaged ones, top to bottom.
	Visible []surface.ID
	// Culled lists surfaces dropped by occlusion culling.
	Culled []surface.ID
}

// Empty reports whether the frame needs no rendering at all.
func (f *Frame) Empty() bool {
	return len(f.Entries) == 0 && f.Damage.IsEmpty()
}

// Option configures a Composer.
type Option func(*Composer)

// WithBackground sets the colour drawn where no surface covers the output.
func WithBackground(c render.Color) Option {
	return func(cm *Composer) { cm.background = c }
}

// WithoutCulling disables occlusion culling.
func WithoutCulling() Option {
	return func(cm *Composer) { cm.noCull = true }
}

// Composer builds draw lists.
type Composer struct {
	textures   Textures
	background render.Color
	noCull     bool
}

// New creates a composer resolving textures through textures.
func New(textures Textures, opts ...Option) *Composer {
	c := &Composer{
		textures:   textures,
		background: render.Color{A: 1},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidate struct {
	s   *surface.Surface
	tex *importer.Texture
}

// Compose builds the draw list of the output covering the global
// rectangle output, for the output-local damage region.
func (c *Composer) Compose(tree *surface.Tree, output region.Rect, damage region.Region) *Frame {
	f := &Frame{
		Output:     output,
		Damage:     damage.Clone(),
		Background: c.background,
	}

	vis := tree.Visible()
	kept := make([]candidate, 0, len(vis))
	var opaqueAbove region.Region
	for i := len(vis) - 1; i >= 0; i-- {
		s := vis[i]
		onOutput := s.Extents().Intersect(output)
		if onOutput.Empty() {
			continue
		}
		f.Visible = append(f.Visible, s.ID())

		b := s.Current().Buffer
		tex, ok := c.textures.Lookup(b.ID())
		if !ok || tex.Generation() != b.Generation() {
			// Not imported for the current contents: treated as unmapped.
			continue
		}
		if !c.noCull && opaqueAbove.ContainsRect(onOutput) {
			f.Culled = append(f.Culled, s.ID())
			continue
		}
		kept = append(kept, candidate{s: s, tex: tex})
		if s.Alpha() == 1 {
			opaqueAbove.Union(s.OpaqueRegion())
		}
	}
	if f.Damage.IsEmpty() {
		return f
	}

	for i := len(kept) - 1; i >= 0; i-- {
		if e, ok := c.entry(kept[i], output, f.Damage); ok {
			f.Entries = append(f.Entries, e)
		}
	}
	return f
}

func (c *Composer) entry(cd candidate, output region.Rect, damage region.Region) (Entry, bool) {
	s := cd.s
	alpha := s.Alpha()
	if alpha <= 0 {
		return Entry{}, false
	}
	dst := s.Extents().Move(-output.X1, -output.Y1)
	clip := damage.IntersectRect(dst).Rects()
	if len(clip) == 0 {
		return Entry{}, false
	}
	b := s.Current().Buffer
	return Entry{
		Surface: s.ID(),
		Buffer:  b,
		Texture: cd.tex,
		Op: render.DrawOp{
			Source:     cd.tex,
			Generation: cd.tex.Generation(),
			Dst:        dst,
			Clip:       clip,
			Src:        s.SampleRect(),
			Transform:  s.Current().Transform,
			Alpha:      alpha,
			Caps:       render.SelectCaps(b.Format(), alpha),
		},
	}, true
}
