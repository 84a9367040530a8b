// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"slices"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
)

// CommitResult reports the effects of a commit.
type CommitResult struct {
	// Damage is the global region that must be redrawn.
	Damage region.Region
	// Applied lists surfaces whose state became current, in order.
	Applied []ID
	// Attached lists buffers that became current.
	Attached []*buffer.Buffer
	// Superseded lists buffers no longer held by a surface state. They
	// may be released once no frame samples them.
	Superseded []*buffer.Buffer
	// Cached is set when the commit was stored for a synchronized
	// subsurface instead of being applied.
	Cached bool
}

func (r *CommitResult) merge(o CommitResult) {
	r.Damage.Union(o.Damage)
	r.Applied = append(r.Applied, o.Applied...)
	r.Attached = append(r.Attached, o.Attached...)
	r.Superseded = append(r.Superseded, o.Superseded...)
	r.Cached = r.Cached || o.Cached
}

// Commit promotes the pending state of a surface. Unset pending fields
// keep their current value, attach offsets accumulate and pending damage
// is consumed. A synchronized subsurface stores the state until its
// parent's state is applied.
//
// If the resulting viewport does not fit the buffer, the pending state is
// discarded and ErrViewportOutsideBuffer is returned.
func (t *Tree) Commit(id ID) (CommitResult, error) {
	var res CommitResult
	s, err := t.lookup(id)
	if err != nil {
		return res, err
	}
	p := s.pending
	s.pending = pending{}

	if err := validateViewport(prospective(s, &p)); err != nil {
		return res, err
	}
	if p.hasBuffer && p.buffer != nil {
		p.buffer.Submit()
		p.buffer.Attach()
	}

	if s.isSub && t.effectiveSync(s) {
		res.Cached = true
		if s.cache == nil {
			s.cache = &p
			return res, nil
		}
		if d := s.cache.merge(&p); d != nil {
			d.Detach()
			res.Superseded = append(res.Superseded, d)
		}
		return res, nil
	}
	t.applyTree(s, &p, &res)
	return res, nil
}

// prospective returns the state s would have after applying p, for
// validation. Only fields that take part in validation are filled in.
func prospective(s *Surface, p *pending) *State {
	st := s.current
	if c := s.cache; c != nil {
		mergeInto(&st, c)
	}
	mergeInto(&st, p)
	return &st
}

func mergeInto(st *State, p *pending) {
	if p.hasBuffer {
		st.Buffer = p.buffer
	}
	if p.transform != nil {
		st.Transform = *p.transform
	}
	if p.scale != 0 {
		st.Scale = p.scale
	}
	if p.viewport != nil {
		st.Viewport = *p.viewport
	}
}

// changes collects per-surface damage while a commit is applied.
type changes struct {
	local map[ID]region.Region
	full  map[ID]bool
}

// applyTree applies p to s, together with any cached state of its
// subsurfaces, and adds the resulting damage to res.
func (t *Tree) applyTree(s *Surface, p *pending, res *CommitResult) {
	before := t.snapshot(s)
	ch := changes{local: make(map[ID]region.Region), full: make(map[ID]bool)}
	t.apply(s, p, res, &ch)
	t.layout(s)
	after := t.snapshot(s)
	res.Damage.Union(ch.damage(before, after))
}

func (t *Tree) apply(s *Surface, p *pending, res *CommitResult, ch *changes) {
	cur := &s.current
	if p.hasBuffer {
		old := cur.Buffer
		if old != nil {
			old.Detach()
			res.Superseded = append(res.Superseded, old)
		}
		if (old == nil) != (p.buffer == nil) {
			ch.full[s.id] = true
		}
		cur.Buffer = p.buffer
		if p.buffer != nil {
			p.buffer.Commit()
			res.Attached = append(res.Attached, p.buffer)
		}
	}
	s.off[0] += p.dx
	s.off[1] += p.dy
	if p.opaque != nil {
		cur.Opaque = p.opaque.Clone()
	}
	if p.inputSet {
		cur.Input = p.input
	}
	if p.transform != nil && *p.transform != cur.Transform {
		cur.Transform = *p.transform
		ch.full[s.id] = true
	}
	if p.scale != 0 && p.scale != cur.Scale {
		cur.Scale = p.scale
		ch.full[s.id] = true
	}
	if p.viewport != nil {
		cur.Viewport = *p.viewport
		ch.full[s.id] = true
	}
	if p.alpha != nil && *p.alpha != cur.Alpha {
		cur.Alpha = *p.alpha
		ch.full[s.id] = true
	}
	if p.frameDue() {
		s.frameDue = true
	}
	if !p.damage.IsEmpty() {
		l := ch.local[s.id]
		l.Union(p.damage)
		ch.local[s.id] = l
	}
	res.Applied = append(res.Applied, s.id)

	for id, pos := range p.positions {
		if c, ok := t.surfaces[id]; ok && c.parent == s.id {
			c.pos = pos
		}
	}
	if len(p.placements) > 0 {
		for _, pl := range p.placements {
			t.restack(s, pl)
		}
		for _, id := range slices.Concat(s.below, s.above) {
			t.markFull(t.surfaces[id], ch)
		}
	}

	for _, id := range slices.Concat(s.below, s.above) {
		c := t.surfaces[id]
		if c.cache == nil {
			continue
		}
		cp := c.cache
		c.cache = nil
		t.apply(c, cp, res, ch)
	}
}

func (t *Tree) markFull(s *Surface, ch *changes) {
	ch.full[s.id] = true
	for _, id := range slices.Concat(s.below, s.above) {
		t.markFull(t.surfaces[id], ch)
	}
}

// damage converts the recorded changes into global damage. Surfaces
// whose geometry, visibility or appearance changed are damaged over their
// old and new extents; others contribute their committed damage.
func (ch *changes) damage(before, after map[ID]snap) region.Region {
	var d region.Region
	for id, a := range after {
		b, existed := before[id]
		if ch.full[id] || !existed || a.rect != b.rect || a.visible != b.visible {
			if existed && b.visible {
				d.Add(b.rect)
			}
			if a.visible {
				d.Add(a.rect)
			}
			continue
		}
		if !a.visible {
			continue
		}
		if l, ok := ch.local[id]; ok {
			d.Union(l.Translate(a.rect.X1, a.rect.Y1).IntersectRect(a.rect))
		}
	}
	for id, b := range before {
		if _, ok := after[id]; !ok && b.visible {
			d.Add(b.rect)
		}
	}
	return d
}
