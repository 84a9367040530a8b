// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

func newBuffer(t *testing.T, id buffer.ID, w, h int32, f buffer.Format) *buffer.Buffer {
	t.Helper()
	b, err := buffer.NewShm(id, buffer.Shm{Data: make([]byte, w*h*4), Width: w, Height: h, Stride: w * 4, Format: f})
	if err != nil {
		t.Fatalf("NewShm: %v", err)
	}
	return b
}

func mustCreate(t *testing.T, tr *Tree, ids ...ID) {
	t.Helper()
	for _, id := range ids {
		if _, err := tr.Create(id); err != nil {
			t.Fatalf("Create(%d): %v", id, err)
		}
	}
}

func mustCommit(t *testing.T, tr *Tree, id ID) CommitResult {
	t.Helper()
	res, err := tr.Commit(id)
	if err != nil {
		t.Fatalf("Commit(%d): %v", id, err)
	}
	return res
}

// mappedRoot creates a mapped top-level surface showing a w x h buffer.
func mappedRoot(t *testing.T, tr *Tree, id ID, w, h int32) *buffer.Buffer {
	t.Helper()
	mustCreate(t, tr, id)
	b := newBuffer(t, buffer.ID(id), w, h, buffer.XRGB8888)
	tr.Attach(id, b)
	mustCommit(t, tr, id)
	if _, err := tr.Map(id, 0, 0); err != nil {
		t.Fatalf("Map: %v", err)
	}
	return b
}

func sampleNear(a, b render.SampleRect) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps &&
		math.Abs(a.Width-b.Width) < eps && math.Abs(a.Height-b.Height) < eps
}

func ids(ss []*Surface) []ID {
	out := make([]ID, len(ss))
	for i, s := range ss {
		out[i] = s.ID()
	}
	return out
}

func TestPendingIsInvisibleUntilCommit(t *testing.T) {
	tr := NewTree()
	mustCreate(t, tr, 1)
	b := newBuffer(t, 1, 10, 10, buffer.XRGB8888)

	tr.Attach(1, b)
	tr.Damage(1, region.New(region.NewRect(0, 0, 10, 10)))
	s, _ := tr.Get(1)
	if s.Current().Buffer != nil {
		t.Fatal("pending buffer visible before commit")
	}

	res := mustCommit(t, tr, 1)
	if s.Current().Buffer != b || !b.Attached() || b.Generation() != 1 {
		t.Errorf("after commit: buffer=%v attached=%v gen=%d", s.Current().Buffer == b, b.Attached(), b.Generation())
	}
	if !res.Damage.IsEmpty() {
		t.Errorf("unmapped surface produced damage %v", res.Damage)
	}
	if !slices.Equal(res.Applied, []ID{1}) || len(res.Attached) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestMapDamagesExtents(t *testing.T) {
	tr := NewTree()
	mustCreate(t, tr, 1)
	tr.Attach(1, newBuffer(t, 1, 800, 600, buffer.XRGB8888))
	mustCommit(t, tr, 1)

	d, err := tr.Map(1, 0, 0)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if !d.Equal(region.New(region.NewRect(0, 0, 800, 600))) {
		t.Errorf("Map damage = %v", d)
	}
	if got := ids(tr.Visible()); !slices.Equal(got, []ID{1}) {
		t.Errorf("Visible() = %v", got)
	}
}

func TestCommitDamageAndSupersede(t *testing.T) {
	tr := NewTree()
	old := mappedRoot(t, tr, 1, 100, 100)
	if _, err := tr.Map(1, 50, 50); err != nil {
		t.Fatal(err)
	}

	b2 := newBuffer(t, 2, 100, 100, buffer.XRGB8888)
	tr.Attach(1, b2)
	tr.Damage(1, region.New(region.NewRect(10, 10, 5, 5), region.NewRect(90, 90, 50, 50)))
	res := mustCommit(t, tr, 1)

	want := region.New(region.NewRect(60, 60, 5, 5), region.NewRect(140, 140, 10, 10))
	if !res.Damage.Equal(want) {
		t.Errorf("Damage = %v, want %v", res.Damage, want)
	}
	if len(res.Superseded) != 1 || res.Superseded[0] != old {
		t.Fatalf("Superseded = %v", res.Superseded)
	}
	if !old.ReleaseDue() {
		t.Error("superseded idle buffer has no release due")
	}
}

func TestCommitNilBufferUnmaps(t *testing.T) {
	tr := NewTree()
	old := mappedRoot(t, tr, 1, 20, 20)

	tr.Attach(1, nil)
	res := mustCommit(t, tr, 1)

	if len(tr.Visible()) != 0 {
		t.Error("surface still visible after null attach")
	}
	if !res.Damage.Equal(region.New(region.NewRect(0, 0, 20, 20))) {
		t.Errorf("Damage = %v", res.Damage)
	}
	if len(res.Superseded) != 1 || !old.ReleaseDue() {
		t.Errorf("previous buffer not released: %v", res.Superseded)
	}
}

func TestRecommitSameBufferKeepsItAttached(t *testing.T) {
	tr := NewTree()
	b := mappedRoot(t, tr, 1, 10, 10)

	tr.Attach(1, b)
	mustCommit(t, tr, 1)
	if !b.Attached() || b.ReleaseDue() {
		t.Error("re-committed buffer released while current")
	}
	if b.Generation() != 2 {
		t.Errorf("Generation() = %d, want 2", b.Generation())
	}

	tr.Attach(1, nil)
	mustCommit(t, tr, 1)
	if b.Attached() {
		t.Error("buffer still attached after unmap")
	}
}

func TestUnsetFieldsKeepCurrentValue(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 40, 20)
	tr.SetAlpha(1, 0.5)
	tr.SetTransform(1, region.Rotate90)
	mustCommit(t, tr, 1)

	tr.Damage(1, region.New(region.NewRect(0, 0, 1, 1)))
	mustCommit(t, tr, 1)

	s, _ := tr.Get(1)
	if s.Alpha() != 0.5 || s.Current().Transform != region.Rotate90 {
		t.Errorf("alpha=%v transform=%v", s.Alpha(), s.Current().Transform)
	}
	if w, h := s.Size(); w != 20 || h != 40 {
		t.Errorf("Size() = %dx%d, want 20x40", w, h)
	}
}

func TestOffsetsAccumulate(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 10, 10)

	tr.Offset(1, 5, -3)
	mustCommit(t, tr, 1)
	tr.Offset(1, 5, -3)
	res := mustCommit(t, tr, 1)

	s, _ := tr.Get(1)
	if x, y := s.Position(); x != 10 || y != -6 {
		t.Errorf("Position() = (%d,%d), want (10,-6)", x, y)
	}
	want := region.New(region.NewRect(5, -3, 10, 10), region.NewRect(10, -6, 10, 10))
	if !res.Damage.Equal(want) {
		t.Errorf("move damage = %v, want %v", res.Damage, want)
	}
}

func TestScaleAndValidation(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 100, 60)

	if err := tr.SetScale(1, 0); !errors.Is(err, ErrBadScale) {
		t.Errorf("SetScale(0) = %v, want ErrBadScale", err)
	}
	if err := tr.SetTransform(1, 8); !errors.Is(err, ErrBadTransform) {
		t.Errorf("SetTransform(8) = %v, want ErrBadTransform", err)
	}
	if err := tr.SetAlpha(1, 1.5); !errors.Is(err, ErrBadAlpha) {
		t.Errorf("SetAlpha(1.5) = %v, want ErrBadAlpha", err)
	}

	tr.SetScale(1, 2)
	mustCommit(t, tr, 1)
	s, _ := tr.Get(1)
	if w, h := s.Size(); w != 50 || h != 30 {
		t.Errorf("Size() = %dx%d, want 50x30", w, h)
	}
}

func TestViewport(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 100, 50)

	tr.SetViewport(1, Viewport{Source: &render.SampleRect{X: 90, Y: 0, Width: 20, Height: 10}})
	if _, err := tr.Commit(1); !errors.Is(err, ErrViewportOutsideBuffer) {
		t.Fatalf("Commit() = %v, want ErrViewportOutsideBuffer", err)
	}

	tr.SetViewport(1, Viewport{Source: &render.SampleRect{X: 10, Y: 5, Width: 20, Height: 10}, Width: 200, Height: 100})
	mustCommit(t, tr, 1)
	s, _ := tr.Get(1)
	if w, h := s.Size(); w != 200 || h != 100 {
		t.Errorf("Size() = %dx%d, want 200x100", w, h)
	}
	if got, want := s.SampleRect(), (render.SampleRect{X: 10, Y: 5, Width: 20, Height: 10}); !sampleNear(got, want) {
		t.Errorf("SampleRect() = %+v, want %+v", got, want)
	}

	if err := tr.SetViewport(1, Viewport{Width: 10}); !errors.Is(err, ErrBadViewport) {
		t.Errorf("SetViewport(width only) = %v, want ErrBadViewport", err)
	}
}

func TestSampleRectFollowsTransform(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 100, 50)
	// Rotated 90 degrees the surface is 50x100; crop its top half.
	tr.SetTransform(1, region.Rotate90)
	tr.SetViewport(1, Viewport{Source: &render.SampleRect{X: 0, Y: 0, Width: 50, Height: 50}})
	mustCommit(t, tr, 1)

	s, _ := tr.Get(1)
	// Content was rotated counter-clockwise, so the top half of the
	// surface is the left half of the buffer.
	if got, want := s.SampleRect(), (render.SampleRect{X: 0, Y: 0, Width: 50, Height: 50}); !sampleNear(got, want) {
		t.Errorf("SampleRect() = %+v, want %+v", got, want)
	}
}

func TestOpaqueRegion(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 10, 10)
	s1, _ := tr.Get(1)
	if !s1.OpaqueRegion().Equal(region.New(region.NewRect(0, 0, 10, 10))) {
		t.Errorf("format without alpha: OpaqueRegion() = %v", s1.OpaqueRegion())
	}

	mustCreate(t, tr, 2)
	tr.Attach(2, newBuffer(t, 2, 10, 10, buffer.ARGB8888))
	tr.SetOpaque(2, region.New(region.NewRect(-5, 0, 10, 20)))
	mustCommit(t, tr, 2)
	tr.Map(2, 100, 100)
	s2, _ := tr.Get(2)
	if want := region.New(region.NewRect(100, 100, 5, 10)); !s2.OpaqueRegion().Equal(want) {
		t.Errorf("OpaqueRegion() = %v, want %v", s2.OpaqueRegion(), want)
	}
}

func TestSurfaceAtHonoursInputRegion(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 100, 100)
	mappedRoot(t, tr, 2, 50, 50)
	input := region.New(region.NewRect(0, 0, 10, 10))
	tr.SetInput(2, &input)
	mustCommit(t, tr, 2)

	if s, sx, sy, ok := tr.SurfaceAt(5, 6); !ok || s.ID() != 2 || sx != 5 || sy != 6 {
		t.Errorf("SurfaceAt(5,6) = %v (%d,%d) %v", s, sx, sy, ok)
	}
	if s, _, _, ok := tr.SurfaceAt(20, 20); !ok || s.ID() != 1 {
		t.Errorf("SurfaceAt(20,20) should fall through to surface 1, got %v", s)
	}
	if _, _, _, ok := tr.SurfaceAt(200, 200); ok {
		t.Error("SurfaceAt outside every surface succeeded")
	}
}

func TestRaiseReordersRoots(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 10, 10)
	mappedRoot(t, tr, 2, 10, 10)

	d, err := tr.Raise(1)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(tr.Visible()); !slices.Equal(got, []ID{2, 1}) {
		t.Errorf("Visible() = %v, want [2 1]", got)
	}
	if d.IsEmpty() {
		t.Error("Raise produced no damage")
	}
	if d, _ := tr.Raise(1); !d.IsEmpty() {
		t.Error("raising the top surface produced damage")
	}
}

func TestFrameDue(t *testing.T) {
	tr := NewTree()
	mappedRoot(t, tr, 1, 10, 10)
	s, _ := tr.Get(1)
	if !s.FrameDue() {
		t.Fatal("commit with a buffer owes no frame")
	}
	s.ClearFrameDue()

	tr.SetOpaque(1, region.Region{})
	mustCommit(t, tr, 1)
	if s.FrameDue() {
		t.Error("state-only commit owes a frame")
	}

	tr.RequestFrame(1)
	mustCommit(t, tr, 1)
	if !s.FrameDue() {
		t.Error("frame request not recorded")
	}
}
