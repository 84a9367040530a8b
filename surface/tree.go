// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"slices"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
)

// Tree is the arena of all surfaces of a compositor instance.
// It is owned by the event loop and is not safe for concurrent use.
type Tree struct {
	surfaces map[ID]*Surface
	// roots lists mapped top-level surfaces, bottom to top.
	roots []ID
}

// NewTree creates an empty surface tree.
func NewTree() *Tree {
	return &Tree{surfaces: make(map[ID]*Surface)}
}

// Create adds a surface with default state: scale 1, opaque alpha,
// infinite input region and no buffer.
func (t *Tree) Create(id ID) (*Surface, error) {
	if id == 0 {
		return nil, ErrUnknownSurface
	}
	if _, ok := t.surfaces[id]; ok {
		return nil, ErrSurfaceExists
	}
	s := &Surface{
		id:      id,
		current: State{Scale: 1, Alpha: 1},
	}
	t.surfaces[id] = s
	return s, nil
}

// Get returns the surface with the given ID.
func (t *Tree) Get(id ID) (*Surface, bool) {
	s, ok := t.surfaces[id]
	return s, ok
}

// Len returns the number of surfaces.
func (t *Tree) Len() int { return len(t.surfaces) }

// Roots returns the mapped top-level surfaces, bottom to top.
func (t *Tree) Roots() []ID { return slices.Clone(t.roots) }

// Children returns the subsurfaces stacked below and above a surface,
// each bottom to top.
func (t *Tree) Children(id ID) (below, above []ID) {
	s, ok := t.surfaces[id]
	if !ok {
		return nil, nil
	}
	return slices.Clone(s.below), slices.Clone(s.above)
}

func (t *Tree) lookup(id ID) (*Surface, error) {
	s, ok := t.surfaces[id]
	if !ok {
		return nil, ErrUnknownSurface
	}
	return s, nil
}

func (t *Tree) mutatePending(id ID, fn func(p *pending) error) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	return fn(&s.pending)
}

// Attach sets the pending buffer. A nil buffer unmaps the surface on
// commit.
func (t *Tree) Attach(id ID, b *buffer.Buffer) error {
	return t.mutatePending(id, func(p *pending) error {
		p.hasBuffer = true
		p.buffer = b
		return nil
	})
}

// Offset moves the surface origin by (dx, dy) on commit.
func (t *Tree) Offset(id ID, dx, dy int32) error {
	return t.mutatePending(id, func(p *pending) error {
		p.dx += dx
		p.dy += dy
		return nil
	})
}

// Damage adds surface-local damage to the pending state.
func (t *Tree) Damage(id ID, r region.Region) error {
	return t.mutatePending(id, func(p *pending) error {
		p.damage.Union(r)
		return nil
	})
}

// SetOpaque sets the pending opaque region in surface coordinates.
func (t *Tree) SetOpaque(id ID, r region.Region) error {
	return t.mutatePending(id, func(p *pending) error {
		c := r.Clone()
		p.opaque = &c
		return nil
	})
}

// SetInput sets the pending input region. Nil means infinite.
func (t *Tree) SetInput(id ID, r *region.Region) error {
	return t.mutatePending(id, func(p *pending) error {
		p.inputSet = true
		if r == nil {
			p.input = nil
			return nil
		}
		c := r.Clone()
		p.input = &c
		return nil
	})
}

// SetTransform sets the pending buffer transform.
func (t *Tree) SetTransform(id ID, tr region.Transform) error {
	if !tr.Valid() {
		return ErrBadTransform
	}
	return t.mutatePending(id, func(p *pending) error {
		p.transform = &tr
		return nil
	})
}

// SetScale sets the pending buffer scale.
func (t *Tree) SetScale(id ID, scale int32) error {
	if scale < 1 {
		return ErrBadScale
	}
	return t.mutatePending(id, func(p *pending) error {
		p.scale = scale
		return nil
	})
}

// SetViewport sets the pending crop and scale.
func (t *Tree) SetViewport(id ID, vp Viewport) error {
	if vp.Width < 0 || vp.Height < 0 || (vp.Width == 0) != (vp.Height == 0) {
		return ErrBadViewport
	}
	if src := vp.Source; src != nil && (src.Width <= 0 || src.Height <= 0) {
		return ErrBadViewport
	}
	return t.mutatePending(id, func(p *pending) error {
		p.viewport = &vp
		return nil
	})
}

// SetAlpha sets the pending opacity multiplier.
func (t *Tree) SetAlpha(id ID, alpha float32) error {
	if alpha < 0 || alpha > 1 {
		return ErrBadAlpha
	}
	return t.mutatePending(id, func(p *pending) error {
		p.alpha = &alpha
		return nil
	})
}

// RequestFrame asks for a frame event after the next commit is shown.
func (t *Tree) RequestFrame(id ID) error {
	return t.mutatePending(id, func(p *pending) error {
		p.frame = true
		return nil
	})
}

// Map places a top-level surface at (x, y) in the global layout and
// raises it to the top.
func (t *Tree) Map(id ID, x, y int32) (region.Region, error) {
	s, err := t.lookup(id)
	if err != nil {
		return region.Region{}, err
	}
	if s.isSub {
		return region.Region{}, ErrHasRole
	}
	return t.track(s, func() {
		s.mapped = true
		s.rootPos = [2]int32{x, y}
		t.roots = append(slices.DeleteFunc(t.roots, isID(id)), id)
	}), nil
}

// Unmap removes a top-level surface from the layout.
func (t *Tree) Unmap(id ID) (region.Region, error) {
	s, err := t.lookup(id)
	if err != nil {
		return region.Region{}, err
	}
	return t.track(s, func() {
		s.mapped = false
		t.roots = slices.DeleteFunc(t.roots, isID(id))
	}), nil
}

// Raise moves a mapped top-level surface to the top.
func (t *Tree) Raise(id ID) (region.Region, error) {
	s, err := t.lookup(id)
	if err != nil {
		return region.Region{}, err
	}
	if !s.mapped {
		return region.Region{}, nil
	}
	if n := len(t.roots); n > 0 && t.roots[n-1] == id {
		return region.Region{}, nil
	}
	return t.track(s, func() {
		t.roots = append(slices.DeleteFunc(t.roots, isID(id)), id)
	}), nil
}

// Destroy removes a surface. Its subsurfaces stay alive but are
// unmapped until destroyed themselves. The result holds the damage left
// behind and the buffers the surface no longer holds.
func (t *Tree) Destroy(id ID) (CommitResult, error) {
	var res CommitResult
	s, err := t.lookup(id)
	if err != nil {
		return res, err
	}
	for _, sn := range t.snapshot(s) {
		if sn.visible {
			res.Damage.Add(sn.rect)
		}
	}
	if b := s.current.Buffer; b != nil {
		b.Detach()
		res.Superseded = append(res.Superseded, b)
	}
	if c := s.cache; c != nil && c.hasBuffer && c.buffer != nil {
		c.buffer.Detach()
		res.Superseded = append(res.Superseded, c.buffer)
	}
	for _, cid := range slices.Concat(s.below, s.above) {
		if c, ok := t.surfaces[cid]; ok {
			c.parent = 0
			t.layout(c)
		}
	}
	if s.parent != 0 {
		if p, ok := t.surfaces[s.parent]; ok {
			p.below = slices.DeleteFunc(p.below, isID(id))
			p.above = slices.DeleteFunc(p.above, isID(id))
			delete(p.pending.positions, id)
		}
	}
	t.roots = slices.DeleteFunc(t.roots, isID(id))
	delete(t.surfaces, id)
	return res, nil
}

// Visible returns the surfaces that are composited, in paint order from
// bottom to top: for each root, its below subsurfaces, the root, then
// its above subsurfaces, recursively.
func (t *Tree) Visible() []*Surface {
	var out []*Surface
	for _, id := range t.roots {
		out = t.collect(t.surfaces[id], out)
	}
	return out
}

func (t *Tree) collect(s *Surface, out []*Surface) []*Surface {
	if s.current.Buffer == nil {
		return out
	}
	for _, id := range s.below {
		out = t.collect(t.surfaces[id], out)
	}
	out = append(out, s)
	for _, id := range s.above {
		out = t.collect(t.surfaces[id], out)
	}
	return out
}

// SurfaceAt returns the topmost visible surface whose input region
// contains the global point (x, y), with the point in surface
// coordinates.
func (t *Tree) SurfaceAt(x, y int32) (s *Surface, sx, sy int32, ok bool) {
	vis := t.Visible()
	for i := len(vis) - 1; i >= 0; i-- {
		if vis[i].AcceptsInput(x, y) {
			return vis[i], x - vis[i].abs[0], y - vis[i].abs[1], true
		}
	}
	return nil, 0, 0, false
}

func isID(id ID) func(ID) bool {
	return func(o ID) bool { return o == id }
}

// visible reports whether s is composited.
func (t *Tree) visible(s *Surface) bool {
	for {
		if s.current.Buffer == nil {
			return false
		}
		if !s.isSub {
			return s.mapped
		}
		p, ok := t.surfaces[s.parent]
		if s.parent == 0 || !ok {
			return false
		}
		s = p
	}
}

// layout recomputes global positions of s and its subtree.
func (t *Tree) layout(s *Surface) {
	switch {
	case s.isSub && s.parent != 0:
		p := t.surfaces[s.parent]
		s.abs = [2]int32{p.abs[0] + s.pos[0] + s.off[0], p.abs[1] + s.pos[1] + s.off[1]}
	case s.isSub:
		s.abs = [2]int32{s.pos[0] + s.off[0], s.pos[1] + s.off[1]}
	default:
		s.abs = [2]int32{s.rootPos[0] + s.off[0], s.rootPos[1] + s.off[1]}
	}
	for _, id := range s.below {
		t.layout(t.surfaces[id])
	}
	for _, id := range s.above {
		t.layout(t.surfaces[id])
	}
}

type snap struct {
	rect    region.Rect
	visible bool
}

// snapshot records the extents and visibility of s and its subtree.
func (t *Tree) snapshot(s *Surface) map[ID]snap {
	m := make(map[ID]snap)
	t.snapshotInto(m, s, t.visible(s))
	return m
}

func (t *Tree) snapshotInto(m map[ID]snap, s *Surface, vis bool) {
	m[s.id] = snap{rect: s.Extents(), visible: vis}
	for _, id := range slices.Concat(s.below, s.above) {
		c := t.surfaces[id]
		t.snapshotInto(m, c, vis && c.current.Buffer != nil)
	}
}

// track runs mutate and returns the damage of every surface in the
// subtree of s that was visible before or after.
func (t *Tree) track(s *Surface, mutate func()) region.Region {
	before := t.snapshot(s)
	mutate()
	t.layout(s)
	after := t.snapshot(s)

	var d region.Region
	for _, m := range []map[ID]snap{before, after} {
		for _, sn := range m {
			if sn.visible {
				d.Add(sn.rect)
			}
		}
	}
	return d
}
