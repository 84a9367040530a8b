// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

import (
	"errors"
	"testing"
)

func newTestShm(t *testing.T, w, h int32, f Format) *Buffer {
	t.Helper()
	b, err := NewShm(1, Shm{
		Data:   make([]byte, w*h*4),
		Width:  w,
		Height: h,
		Stride: w * 4,
		Format: f,
	})
	if err != nil {
		t.Fatalf("NewShm: %v", err)
	}
	return b
}

func TestShmValidate(t *testing.T) {
	tests := []struct {
		name string
		desc Shm
		ok   bool
	}{
		{"fits", Shm{Data: make([]byte, 64), Width: 4, Height: 4, Stride: 16, Format: ARGB8888}, true},
		{"offset overflows", Shm{Data: make([]byte, 64), Offset: 4, Width: 4, Height: 4, Stride: 16, Format: ARGB8888}, false},
		{"short stride", Shm{Data: make([]byte, 64), Width: 4, Height: 4, Stride: 8, Format: ARGB8888}, false},
		{"unknown format", Shm{Data: make([]byte, 64), Width: 4, Height: 4, Stride: 16, Format: 42}, false},
		{"two-plane format", Shm{Data: make([]byte, 64), Width: 4, Height: 4, Stride: 16, Format: NV12}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadDescriptor) {
				t.Errorf("Validate() = %v, want ErrBadDescriptor", err)
			}
		})
	}
}

func TestDmabufValidateSubsampledPlane(t *testing.T) {
	d := Dmabuf{
		Width: 4, Height: 4, Format: NV12, Modifier: ModifierLinear,
		Planes: []Plane{
			{Data: make([]byte, 16), Stride: 4},
			{Data: make([]byte, 8), Stride: 4},
		},
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestReleaseOncePerCycle(t *testing.T) {
	b := newTestShm(t, 2, 2, XRGB8888)
	if b.ReleaseDue() {
		t.Fatal("uncommitted buffer has a release due")
	}

	b.Commit()
	b.Attach()
	b.Acquire()
	if b.ReleaseDue() {
		t.Error("attached buffer has a release due")
	}

	b.Detach()
	if b.ReleaseDue() {
		t.Error("busy buffer has a release due")
	}

	b.Unacquire()
	if !b.ReleaseDue() {
		t.Fatal("idle superseded buffer has no release due")
	}
	b.MarkReleased()
	if b.ReleaseDue() {
		t.Error("release due twice in one cycle")
	}

	b.Commit()
	if got := b.Generation(); got != 2 {
		t.Errorf("Generation() = %d, want 2", got)
	}
	if !b.ReleaseDue() {
		t.Error("new cycle has no release due")
	}
}

func TestDestroyedBufferNeverReleases(t *testing.T) {
	b := newTestShm(t, 1, 1, ARGB8888)
	b.Commit()
	b.Destroy()
	if b.ReleaseDue() {
		t.Error("destroyed buffer has a release due")
	}
}

func TestSubmitKeepsGeneration(t *testing.T) {
	b := newTestShm(t, 1, 1, ARGB8888)
	b.Commit()
	b.MarkReleased()

	b.Submit()
	if got := b.Generation(); got != 1 {
		t.Errorf("Generation() = %d, want 1", got)
	}
	if !b.ReleaseDue() {
		t.Error("submitted buffer has no release due")
	}
}

func TestFormatShmCodes(t *testing.T) {
	if f, ok := FormatFromShm(0); !ok || f != ARGB8888 {
		t.Errorf("FormatFromShm(0) = %v, %v", f, ok)
	}
	if f, ok := FormatFromShm(uint32(XBGR8888)); !ok || f != XBGR8888 {
		t.Errorf("FormatFromShm(xbgr) = %v, %v", f, ok)
	}
	if XRGB8888.ShmCode() != 1 {
		t.Errorf("XRGB8888.ShmCode() = %d, want 1", XRGB8888.ShmCode())
	}
	if XRGB8888.HasAlpha() || !ABGR8888.HasAlpha() {
		t.Error("HasAlpha mismatch")
	}
}
