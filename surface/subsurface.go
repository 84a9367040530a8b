// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"slices"

	"github.com/gogpu/compositor/region"
)

// AddSubsurface gives child the subsurface role with parent as its
// parent. The child starts synchronized, at position (0, 0), on top of
// its parent's stack.
func (t *Tree) AddSubsurface(child, parent ID) (region.Region, error) {
	c, err := t.lookup(child)
	if err != nil {
		return region.Region{}, err
	}
	p, err := t.lookup(parent)
	if err != nil {
		return region.Region{}, err
	}
	if c.isSub || c.mapped {
		return region.Region{}, ErrHasRole
	}
	if child == parent || t.isAncestor(c, p) {
		return region.Region{}, ErrCycle
	}
	return t.track(p, func() {
		c.isSub = true
		c.sync = true
		c.parent = parent
		p.above = append(p.above, child)
	}), nil
}

// isAncestor reports whether a is s or one of its ancestors.
func (t *Tree) isAncestor(a, s *Surface) bool {
	for cur := s; cur != nil; {
		if cur == a {
			return true
		}
		if cur.parent == 0 {
			return false
		}
		cur = t.surfaces[cur.parent]
	}
	return false
}

func (t *Tree) subsurface(id ID) (*Surface, *Surface, error) {
	c, err := t.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	if !c.isSub {
		return nil, nil, ErrNotSubsurface
	}
	p, ok := t.surfaces[c.parent]
	if c.parent == 0 || !ok {
		return c, nil, nil
	}
	return c, p, nil
}

// SetPosition sets the subsurface position relative to its parent. It
// takes effect when the parent's state is applied.
func (t *Tree) SetPosition(child ID, x, y int32) error {
	c, p, err := t.subsurface(child)
	if err != nil {
		return err
	}
	if p == nil {
		c.pos = [2]int32{x, y}
		return nil
	}
	if p.pending.positions == nil {
		p.pending.positions = make(map[ID][2]int32)
	}
	p.pending.positions[child] = [2]int32{x, y}
	return nil
}

// PlaceAbove restacks child directly above sibling, which is either a
// subsurface of the same parent or the parent itself. It takes effect
// when the parent's state is applied.
func (t *Tree) PlaceAbove(child, sibling ID) error {
	return t.place(child, sibling, true)
}

// PlaceBelow restacks child directly below sibling.
func (t *Tree) PlaceBelow(child, sibling ID) error {
	return t.place(child, sibling, false)
}

func (t *Tree) place(child, sibling ID, above bool) error {
	_, p, err := t.subsurface(child)
	if err != nil {
		return err
	}
	if p == nil || child == sibling {
		return ErrNotSibling
	}
	if sibling != p.id {
		sib, ok := t.surfaces[sibling]
		if !ok || !sib.isSub || sib.parent != p.id {
			return ErrNotSibling
		}
	}
	p.pending.placements = append(p.pending.placements, placement{child: child, sibling: sibling, above: above})
	return nil
}

// restack applies one placement to the stacking lists of parent.
func (t *Tree) restack(parent *Surface, pl placement) {
	c, ok := t.surfaces[pl.child]
	if !ok || c.parent != parent.id {
		return
	}
	parent.below = slices.DeleteFunc(parent.below, isID(pl.child))
	parent.above = slices.DeleteFunc(parent.above, isID(pl.child))

	if pl.sibling == parent.id {
		if pl.above {
			parent.above = slices.Insert(parent.above, 0, pl.child)
		} else {
			parent.below = append(parent.below, pl.child)
		}
		return
	}
	for _, list := range []*[]ID{&parent.below, &parent.above} {
		if i := slices.Index(*list, pl.sibling); i >= 0 {
			if pl.above {
				i++
			}
			*list = slices.Insert(*list, i, pl.child)
			return
		}
	}
	parent.above = append(parent.above, pl.child)
}

// SetSync changes the synchronization mode of a subsurface. Switching to
// desynchronized mode applies any cached state unless an ancestor is
// still synchronized.
func (t *Tree) SetSync(child ID, sync bool) (CommitResult, error) {
	var res CommitResult
	c, _, err := t.subsurface(child)
	if err != nil {
		return res, err
	}
	c.sync = sync
	if sync || c.cache == nil || t.effectiveSync(c) {
		return res, nil
	}
	cp := c.cache
	c.cache = nil
	t.applyTree(c, cp, &res)
	return res, nil
}

// effectiveSync reports whether s or any ancestor subsurface is
// synchronized. Orphaned subsurfaces have nothing to wait for.
func (t *Tree) effectiveSync(s *Surface) bool {
	for s != nil && s.isSub && s.parent != 0 {
		if s.sync {
			return true
		}
		s = t.surfaces[s.parent]
	}
	return false
}
