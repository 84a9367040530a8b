// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
)

// family builds a mapped 100x100 root 1 with a 10x10 subsurface 2.
func family(t *testing.T) (*Tree, *buffer.Buffer) {
	t.Helper()
	tr := NewTree()
	mappedRoot(t, tr, 1, 100, 100)
	mustCreate(t, tr, 2)
	if _, err := tr.AddSubsurface(2, 1); err != nil {
		t.Fatalf("AddSubsurface: %v", err)
	}
	return tr, newBuffer(t, 20, 10, 10, buffer.ARGB8888)
}

func TestSyncSubsurfaceWaitsForParent(t *testing.T) {
	tr, b := family(t)
	tr.SetPosition(2, 30, 40)
	tr.Attach(2, b)

	res := mustCommit(t, tr, 2)
	if !res.Cached || len(res.Applied) != 0 {
		t.Fatalf("sync commit applied immediately: %+v", res)
	}
	child, _ := tr.Get(2)
	if child.Current().Buffer != nil || !child.HasCache() {
		t.Fatal("cached state leaked into current")
	}

	res = mustCommit(t, tr, 1)
	if !slices.Equal(res.Applied, []ID{1, 2}) {
		t.Errorf("Applied = %v, want [1 2]", res.Applied)
	}
	if child.Current().Buffer != b || child.HasCache() {
		t.Error("parent commit did not apply the cache")
	}
	if x, y := child.Position(); x != 30 || y != 40 {
		t.Errorf("Position() = (%d,%d), want (30,40)", x, y)
	}
	if !res.Damage.ContainsRect(region.NewRect(30, 40, 10, 10)) {
		t.Errorf("Damage = %v, missing child extents", res.Damage)
	}
}

func TestSyncCacheMergeSupersedesOlderBuffer(t *testing.T) {
	tr, a := family(t)
	b := newBuffer(t, 21, 10, 10, buffer.ARGB8888)

	tr.Attach(2, a)
	mustCommit(t, tr, 2)
	tr.Attach(2, b)
	res := mustCommit(t, tr, 2)

	if len(res.Superseded) != 1 || res.Superseded[0] != a {
		t.Fatalf("Superseded = %v, want [a]", res.Superseded)
	}
	if !a.ReleaseDue() {
		t.Error("overwritten cached buffer has no release due")
	}

	mustCommit(t, tr, 1)
	child, _ := tr.Get(2)
	if child.Current().Buffer != b {
		t.Error("newest cached buffer not applied")
	}
}

func TestSyncCacheKeepsCurrentGeneration(t *testing.T) {
	tr, b := family(t)
	tr.Attach(2, b)
	mustCommit(t, tr, 2)
	mustCommit(t, tr, 1)
	if b.Generation() != 1 {
		t.Fatalf("Generation() = %d after apply, want 1", b.Generation())
	}

	tr.Attach(2, b)
	if res := mustCommit(t, tr, 2); !res.Cached {
		t.Fatal("sync re-commit was not cached")
	}
	if b.Generation() != 1 {
		t.Errorf("cached commit bumped generation to %d", b.Generation())
	}

	res := mustCommit(t, tr, 1)
	if b.Generation() != 2 {
		t.Errorf("Generation() = %d after parent commit, want 2", b.Generation())
	}
	if !slices.Contains(res.Attached, b) || !b.Attached() || b.ReleaseDue() {
		t.Errorf("re-applied buffer: attached=%v releaseDue=%v", b.Attached(), b.ReleaseDue())
	}
}

func TestDesyncSubsurfaceAppliesImmediately(t *testing.T) {
	tr, b := family(t)
	if _, err := tr.SetSync(2, false); err != nil {
		t.Fatal(err)
	}
	tr.Attach(2, b)
	res := mustCommit(t, tr, 2)
	if res.Cached || !slices.Equal(res.Applied, []ID{2}) {
		t.Errorf("desync commit = %+v", res)
	}
	if !res.Damage.Equal(region.New(region.NewRect(0, 0, 10, 10))) {
		t.Errorf("Damage = %v", res.Damage)
	}
}

func TestEffectiveSyncFromAncestor(t *testing.T) {
	tr, b := family(t)
	mustCreate(t, tr, 3)
	tr.AddSubsurface(3, 2)
	tr.SetSync(3, false)

	tr.Attach(3, b)
	if res := mustCommit(t, tr, 3); !res.Cached {
		t.Error("desync child of a sync subsurface was not cached")
	}
}

func TestSetDesyncFlushesCache(t *testing.T) {
	tr, b := family(t)
	tr.Attach(2, b)
	mustCommit(t, tr, 2)

	res, err := tr.SetSync(2, false)
	if err != nil {
		t.Fatal(err)
	}
	child, _ := tr.Get(2)
	if child.Current().Buffer != b || !slices.Equal(res.Applied, []ID{2}) {
		t.Errorf("SetSync(false) did not apply cache: %+v", res)
	}
}

func TestPlacement(t *testing.T) {
	tr, _ := family(t)
	mustCreate(t, tr, 3)
	tr.AddSubsurface(3, 1)
	for _, id := range []ID{2, 3} {
		tr.SetSync(id, false)
		tr.Attach(id, newBuffer(t, buffer.ID(id*10), 5, 5, buffer.ARGB8888))
		mustCommit(t, tr, id)
	}
	if got := ids(tr.Visible()); !slices.Equal(got, []ID{1, 2, 3}) {
		t.Fatalf("Visible() = %v, want [1 2 3]", got)
	}

	if err := tr.PlaceBelow(3, 1); err != nil {
		t.Fatal(err)
	}
	if got := ids(tr.Visible()); !slices.Equal(got, []ID{1, 2, 3}) {
		t.Error("placement applied before parent commit")
	}
	res := mustCommit(t, tr, 1)
	if got := ids(tr.Visible()); !slices.Equal(got, []ID{3, 1, 2}) {
		t.Errorf("Visible() = %v, want [3 1 2]", got)
	}
	if !res.Damage.ContainsRect(region.NewRect(0, 0, 5, 5)) {
		t.Errorf("restack damage = %v", res.Damage)
	}

	tr.PlaceAbove(3, 2)
	mustCommit(t, tr, 1)
	if got := ids(tr.Visible()); !slices.Equal(got, []ID{1, 2, 3}) {
		t.Errorf("Visible() = %v, want [1 2 3]", got)
	}

	mustCreate(t, tr, 9)
	if err := tr.PlaceAbove(3, 9); !errors.Is(err, ErrNotSibling) {
		t.Errorf("PlaceAbove(non-sibling) = %v, want ErrNotSibling", err)
	}
}

func TestSubsurfaceRoleErrors(t *testing.T) {
	tr, _ := family(t)
	if _, err := tr.AddSubsurface(1, 2); !errors.Is(err, ErrHasRole) && !errors.Is(err, ErrCycle) {
		t.Errorf("AddSubsurface(root under child) = %v", err)
	}
	mustCreate(t, tr, 3)
	tr.AddSubsurface(3, 2)
	mustCreate(t, tr, 4)
	if _, err := tr.AddSubsurface(4, 4); !errors.Is(err, ErrCycle) {
		t.Errorf("AddSubsurface(self) = %v, want ErrCycle", err)
	}
	if _, err := tr.AddSubsurface(2, 3); !errors.Is(err, ErrHasRole) {
		t.Errorf("AddSubsurface(existing child) = %v, want ErrHasRole", err)
	}
	if _, err := tr.Map(2, 0, 0); !errors.Is(err, ErrHasRole) {
		t.Errorf("Map(subsurface) = %v, want ErrHasRole", err)
	}
	if _, err := tr.SetSync(1, true); !errors.Is(err, ErrNotSubsurface) {
		t.Errorf("SetSync(root) = %v, want ErrNotSubsurface", err)
	}
}

func TestCycleDetection(t *testing.T) {
	tr := NewTree()
	mustCreate(t, tr, 1, 2, 3)
	tr.AddSubsurface(2, 1)
	tr.AddSubsurface(3, 2)
	// 1 is not a subsurface yet, but 3 descends from it.
	if _, err := tr.AddSubsurface(1, 3); !errors.Is(err, ErrCycle) {
		t.Errorf("AddSubsurface(ancestor under descendant) = %v, want ErrCycle", err)
	}
}

func TestDestroyParentOrphansChildren(t *testing.T) {
	tr, b := family(t)
	tr.SetSync(2, false)
	tr.Attach(2, b)
	mustCommit(t, tr, 2)

	res, err := tr.Destroy(1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Damage.ContainsRect(region.NewRect(0, 0, 100, 100)) {
		t.Errorf("Damage = %v", res.Damage)
	}
	if len(res.Superseded) != 1 {
		t.Errorf("Superseded = %v", res.Superseded)
	}
	if len(tr.Visible()) != 0 {
		t.Error("orphaned subsurface still visible")
	}

	child, _ := tr.Get(2)
	if child.Parent() != 0 {
		t.Errorf("Parent() = %d, want 0", child.Parent())
	}
	// Orphans have no parent to wait for.
	tr.SetSync(2, true)
	tr.Attach(2, newBuffer(t, 30, 10, 10, buffer.ARGB8888))
	if res := mustCommit(t, tr, 2); res.Cached {
		t.Error("orphan commit was cached")
	}

	if _, err := tr.Destroy(1); !errors.Is(err, ErrUnknownSurface) {
		t.Errorf("second Destroy = %v, want ErrUnknownSurface", err)
	}
}

func TestDestroyChildDropsItFromStack(t *testing.T) {
	tr, b := family(t)
	tr.SetSync(2, false)
	tr.Attach(2, b)
	mustCommit(t, tr, 2)
	tr.PlaceBelow(2, 1)

	res, _ := tr.Destroy(2)
	if !b.ReleaseDue() || len(res.Superseded) != 1 {
		t.Error("destroyed child's buffer not released")
	}
	// The pending placement refers to a dead surface and is ignored.
	mustCommit(t, tr, 1)
	if below, above := tr.Children(1); len(below)+len(above) != 0 {
		t.Errorf("Children() = %v %v", below, above)
	}
}
