// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
)

var (
	// ErrRendererInitFailed wraps the reason a backend could not start.
	ErrRendererInitFailed = errors.New("render: renderer init failed")

	// ErrNoBackend is returned by Open when no backend could be started.
	ErrNoBackend = errors.New("render: no backend available")

	// ErrStaleTexture is returned by Draw for a texture whose generation no
	// longer matches the one the draw list was built against.
	ErrStaleTexture = errors.New("render: stale texture")

	// ErrForeignObject is returned when a texture, target or frame created
	// by one context is passed to another.
	ErrForeignObject = errors.New("render: object belongs to another context")

	// ErrClosed is returned by calls on a closed context.
	ErrClosed = errors.New("render: context closed")

	// ErrBadDrawOp is returned for draw operations that violate the
	// pipeline contract.
	ErrBadDrawOp = errors.New("render: bad draw op")
)

// Color is a premultiplied RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Texture is a GPU-sampleable image owned by one Context.
type Texture interface {
	Width() int
	Height() int
	Format() buffer.Format
	Destroy()
}

// Target is the swapchain of one output.
type Target interface {
	Width() int
	Height() int
	Destroy()
}

// FrameTarget is the image of a Target being rendered for one frame.
type FrameTarget interface {
	Target() Target
}

// Fence reports completion of submitted GPU work. Poll never blocks.
// A fence that completed with an error reports done together with the
// error; the frame it guards must be treated as failed.
type Fence interface {
	Poll() (done bool, err error)
}

// FormatInfo describes how a context can import one pixel format.
type FormatInfo struct {
	Format buffer.Format
	// Shm reports whether shared-memory buffers can be uploaded.
	Shm bool
	// Modifiers lists the layouts accepted for external buffers.
	// An empty list means external buffers of this format are rejected.
	Modifiers []buffer.Modifier
}

// SupportsModifier reports whether external buffers with modifier m can
// be imported.
func (fi FormatInfo) SupportsModifier(m buffer.Modifier) bool {
	return slices.Contains(fi.Modifiers, m)
}

// FindFormat returns the entry for f in a format table.
func FindFormat(table []FormatInfo, f buffer.Format) (FormatInfo, bool) {
	for _, fi := range table {
		if fi.Format == f {
			return fi, true
		}
	}
	return FormatInfo{}, false
}

// Source is what a draw op samples: an imported texture tagged with the
// generation of the buffer contents it holds.
type Source interface {
	Image() Texture
	Generation() uint64
	Stale() bool
}

// SampleRect is the part of a buffer, in buffer pixels, mapped onto the
// destination rectangle.
type SampleRect struct {
	X, Y, Width, Height float64
}

// DrawOp is one entry of a draw list.
type DrawOp struct {
	// Source is nil for fill ops.
	Source Source
	// Generation is the source generation the op was composed against.
	Generation uint64
	// Dst is the destination rectangle in output pixels.
	Dst region.Rect
	// Clip lists the parts of Dst to touch. Each rect lies inside Dst.
	Clip []region.Rect
	// Src is the sampled part of the buffer.
	Src       SampleRect
	Transform region.Transform
	// Alpha is the opacity multiplier in [0, 1].
	Alpha float32
	Caps  Caps
	// Color is used by fill ops.
	Color Color
}

// Context is one instance of a GPU backend. Every resource it creates is
// bound to it; contexts share nothing, so several can coexist.
//
// A Context is driven from a single goroutine.
type Context interface {
	// Name returns the backend name the context was opened with.
	Name() string

	// Formats returns the import format table.
	Formats() []FormatInfo

	// ImportShm uploads a shared-memory buffer. If old is non-nil and
	// matches the buffer geometry its storage may be reused; otherwise the
	// caller keeps ownership of old.
	ImportShm(desc *buffer.Shm, old Texture) (Texture, error)

	// ImportDmabuf binds an external buffer without copying.
	ImportDmabuf(desc *buffer.Dmabuf) (Texture, error)

	// NewTarget creates the swapchain for an output.
	NewTarget(width, height int) (Target, error)

	// BeginFrame starts a frame on target. Pixels inside damage are
	// cleared to clear; pixels outside keep the previous frame.
	BeginFrame(target Target, damage region.Region, clear Color) (FrameTarget, error)

	// Draw records one draw op into the frame.
	Draw(frame FrameTarget, op *DrawOp) error

	// EndFrame submits the frame and returns its completion fence.
	// It does not wait for the GPU.
	EndFrame(frame FrameTarget) (Fence, error)

	// Discard abandons a frame started by BeginFrame.
	Discard(frame FrameTarget)

	// ReadPixels copies rect of the last presented image of target into
	// dst, converting to dst's format. It blocks until the copy is done.
	ReadPixels(target Target, rect region.Rect, dst *buffer.Shm) error

	// Close releases every resource of the context.
	Close() error
}

// Validate checks a draw op against the pipeline contract. Backends call
// it at the start of Draw.
func Validate(op *DrawOp) error {
	if op.Caps&CapFill != 0 {
		if op.Caps != CapFill {
			return fmt.Errorf("%w: fill combined with %v", ErrBadDrawOp, op.Caps&^CapFill)
		}
		return nil
	}
	if op.Source == nil {
		return fmt.Errorf("%w: no source", ErrBadDrawOp)
	}
	if op.Alpha < 0 || op.Alpha > 1 {
		return fmt.Errorf("%w: alpha %v", ErrBadDrawOp, op.Alpha)
	}
	if op.Alpha < 1 && op.Caps&CapAlphaMultiplier == 0 {
		return fmt.Errorf("%w: alpha %v without multiplier pipeline", ErrBadDrawOp, op.Alpha)
	}
	if op.Source.Stale() || op.Source.Generation() != op.Generation {
		return fmt.Errorf("%w: have generation %d, composed against %d",
			ErrStaleTexture, op.Source.Generation(), op.Generation)
	}
	return nil
}

// SelectCaps returns the pipeline variant for a source of the given
// format drawn with opacity alpha.
func SelectCaps(format buffer.Format, alpha float32) Caps {
	var c Caps
	if format.HasAlpha() {
		c |= CapAlpha
	}
	if alpha < 1 {
		c |= CapAlphaMultiplier
	}
	return c
}
