// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"fmt"
	"image"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Target is a swapchain of two images. Frames render into the back
// image, which keeps its contents between frames; presenting copies the
// damaged pixels to the front image.
type Target struct {
	ctx       *Context
	back      *image.RGBA
	front     *image.RGBA
	presented int
	destroyed bool
}

// Width returns the target width.
func (t *Target) Width() int { return t.back.Rect.Dx() }

// Height returns the target height.
func (t *Target) Height() int { return t.back.Rect.Dy() }

// Front returns the last presented image. The image is updated in place
// by later presents.
func (t *Target) Front() *image.RGBA { return t.front }

// Presented returns the number of frames presented on the target.
func (t *Target) Presented() int { return t.presented }

// Destroy releases the target.
func (t *Target) Destroy() { t.destroyed = true }

type frame struct {
	target *Target
	damage region.Region
	ended  bool
}

func (f *frame) Target() render.Target { return f.target }

func (f *frame) present() {
	t := f.target
	if t.destroyed {
		return
	}
	for _, r := range f.damage.Rects() {
		rect := image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Intersect(t.back.Rect)
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			i := t.back.PixOffset(rect.Min.X, y)
			copy(t.front.Pix[i:i+rect.Dx()*4], t.back.Pix[i:i+rect.Dx()*4])
		}
	}
	t.presented++
}

// Fence completes when SignalFences is called on its context.
type Fence struct {
	frame *frame
	done  bool
	err   error
}

// Poll reports whether the fence was signalled.
func (f *Fence) Poll() (bool, error) { return f.done, f.err }

func (f *Fence) signal(err error) {
	if f.done {
		return
	}
	f.done, f.err = true, err
	if err == nil {
		f.frame.present()
	}
}

// ReadPixels copies rect of the front image into dst.
func (c *Context) ReadPixels(target render.Target, rect region.Rect, dst *buffer.Shm) error {
	if c.closed {
		return render.ErrClosed
	}
	t, ok := target.(*Target)
	if !ok || t.ctx != c {
		return render.ErrForeignObject
	}
	if t.destroyed {
		return fmt.Errorf("soft: target destroyed")
	}
	if err := render.CheckReadback(t, rect, dst); err != nil {
		return err
	}
	for y := range int(rect.Height()) {
		for x := range int(rect.Width()) {
			i := t.front.PixOffset(int(rect.X1)+x, int(rect.Y1)+y)
			p := t.front.Pix[i : i+4 : i+4]
			render.PackPixel(dst, x, y, p[0], p[1], p[2], p[3])
		}
	}
	return nil
}
