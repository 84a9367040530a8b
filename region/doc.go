// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package region provides the integer geometry used throughout the
// compositor: half-open rectangles, regions stored as sets of disjoint
// rectangles, and the eight buffer transforms.
//
// Regions are precise. A region never merges rectangles behind the
// caller's back; callers that want a bounded representation (damage
// tracking) call [Region.Simplify], which collapses the set to its
// bounding rectangle. Collapsing only ever grows the covered area, so a
// simplified damage region is still a superset of the true damage.
// Opaque regions must not be simplified.
package region
