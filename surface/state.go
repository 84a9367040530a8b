// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Viewport crops and scales a surface's buffer.
type Viewport struct {
	// Source is the sampled part of the buffer in surface coordinates,
	// after transform and scale. Nil samples the whole buffer.
	Source *render.SampleRect
	// Width and Height give the surface size. Zero keeps the size
	// derived from Source or the buffer.
	Width, Height int32
}

// State is the current state of a surface, as seen by rendering.
type State struct {
	Buffer *buffer.Buffer
	Opaque region.Region
	// Input is the input region in surface coordinates. Nil is infinite.
	Input     *region.Region
	Transform region.Transform
	Scale     int32
	Viewport  Viewport
	// Alpha is the opacity multiplier.
	Alpha float32
}

type placement struct {
	child, sibling ID
	above          bool
}

// pending accumulates requests until commit. Fields with a set flag (or
// a nil pointer meaning unset) keep the current value when not set.
type pending struct {
	hasBuffer bool
	buffer    *buffer.Buffer
	dx, dy    int32
	damage    region.Region

	opaque    *region.Region
	inputSet  bool
	input     *region.Region
	transform *region.Transform
	scale     int32
	viewport  *Viewport
	alpha     *float32
	frame     bool

	// Requests on child subsurfaces, applied with this surface's state.
	positions  map[ID][2]int32
	placements []placement
}

// frameDue reports whether applying p owes the client a frame event.
func (p *pending) frameDue() bool {
	return p.frame || p.hasBuffer || !p.damage.IsEmpty()
}

// merge folds the newer state n into p and returns the buffer that n
// displaced, if any. Re-attaching the same buffer also displaces it, so
// the caller drops the extra attach reference.
func (p *pending) merge(n *pending) *buffer.Buffer {
	var displaced *buffer.Buffer
	if n.hasBuffer {
		if p.hasBuffer && p.buffer != nil {
			displaced = p.buffer
		}
		p.hasBuffer = true
		p.buffer = n.buffer
	}
	p.dx += n.dx
	p.dy += n.dy
	p.damage.Union(n.damage)
	if n.opaque != nil {
		p.opaque = n.opaque
	}
	if n.inputSet {
		p.inputSet = true
		p.input = n.input
	}
	if n.transform != nil {
		p.transform = n.transform
	}
	if n.scale != 0 {
		p.scale = n.scale
	}
	if n.viewport != nil {
		p.viewport = n.viewport
	}
	if n.alpha != nil {
		p.alpha = n.alpha
	}
	p.frame = p.frame || n.frame
	for id, pos := range n.positions {
		if p.positions == nil {
			p.positions = make(map[ID][2]int32)
		}
		p.positions[id] = pos
	}
	p.placements = append(p.placements, n.placements...)
	return displaced
}
