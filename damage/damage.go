// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package damage tracks the region of an output that needs redrawing.
//
// Damage is kept as a set of disjoint rectangles clipped to the output
// and collapsed to its bounding rectangle once it exceeds
// [region.MaxRects] rectangles. Either way it is a superset of the pixels
// that changed. Damage is only subtracted after the frame that redrew it
// has completed on the GPU.
package damage

import "github.com/gogpu/compositor/region"

// Tracker accumulates damage for one output. The zero value tracks
// nothing until Reset gives it bounds.
type Tracker struct {
	bounds region.Rect
	damage region.Region
	limit  int

	// since collects damage accumulated while a frame is in flight.
	inFlight bool
	since    region.Region
}

// New creates a tracker for an output covering bounds, in output
// coordinates.
func New(bounds region.Rect) *Tracker {
	return &Tracker{bounds: bounds, limit: region.MaxRects}
}

// Bounds returns the output rectangle.
func (t *Tracker) Bounds() region.Rect { return t.bounds }

// Accumulate adds r, clipped to the output. It reports whether the
// tracker went from empty to non-empty.
func (t *Tracker) Accumulate(r region.Region) bool {
	wasEmpty := t.damage.IsEmpty()
	for _, rect := range r.IntersectRect(t.bounds).Rects() {
		t.damage.Add(rect)
		if t.inFlight {
			t.since.Add(rect)
		}
	}
	t.damage.Simplify(t.limit)
	t.since.Simplify(t.limit)
	return wasEmpty && !t.damage.IsEmpty()
}

// AccumulateRect adds a single rectangle.
func (t *Tracker) AccumulateRect(r region.Rect) bool {
	return t.Accumulate(region.New(r))
}

// Full damages the whole output.
func (t *Tracker) Full() bool {
	return t.AccumulateRect(t.bounds)
}

// IsEmpty reports whether no damage is outstanding.
func (t *Tracker) IsEmpty() bool { return t.damage.IsEmpty() }

// Snapshot returns a copy of the outstanding damage without clearing it.
// The scheduler takes one when a frame is scheduled.
func (t *Tracker) Snapshot() region.Region {
	return t.damage.Clone()
}

// Begin returns the damage a new frame redraws and starts recording the
// damage that arrives while the frame is in flight.
func (t *Tracker) Begin() region.Region {
	t.inFlight = true
	t.since = region.Region{}
	return t.damage.Clone()
}

// Complete removes covered, the damage a completed frame redrew. Damage
// accumulated after the frame's snapshot stays outstanding, even where it
// overlaps covered.
func (t *Tracker) Complete(covered region.Region) {
	t.damage.SubtractRegion(covered)
	if t.inFlight {
		t.damage.Union(t.since)
	}
	t.damage.Simplify(t.limit)
	t.inFlight = false
	t.since = region.Region{}
}

// Abort ends a frame that failed. All damage stays outstanding.
func (t *Tracker) Abort() {
	t.inFlight = false
	t.since = region.Region{}
}

// TakeAndClear returns the outstanding damage and resets it.
func (t *Tracker) TakeAndClear() region.Region {
	d := t.damage
	t.damage = region.Region{}
	return d
}

// Reset discards all damage and sets new bounds, as on a mode change.
func (t *Tracker) Reset(bounds region.Rect) {
	t.bounds = bounds
	t.damage = region.Region{}
	t.inFlight = false
	t.since = region.Region{}
	if t.limit == 0 {
		t.limit = region.MaxRects
	}
}
