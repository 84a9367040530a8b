// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// copyRowAlign is the row pitch alignment of texture-to-buffer copies.
const copyRowAlign = 256

// ReadPixels copies rect of the target into a mappable staging buffer,
// waits for the device to go idle and converts the rows into dst.
func (c *Context) ReadPixels(target render.Target, rect region.Rect, dst *buffer.Shm) error {
	if c.closed {
		return render.ErrClosed
	}
	t, ok := target.(*Target)
	if !ok || t.ctx != c {
		return render.ErrForeignObject
	}
	if t.destroyed {
		return fmt.Errorf("wgpu: target destroyed")
	}
	if err := render.CheckReadback(t, rect, dst); err != nil {
		return err
	}
	var bgra bool
	switch c.format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		bgra = true
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	default:
		return fmt.Errorf("%w: target format %v", render.ErrReadback, c.format)
	}

	w, h := uint32(rect.Width()), uint32(rect.Height()) //nolint:gosec // checked non-empty
	pitch := (w*4 + copyRowAlign - 1) / copyRowAlign * copyRowAlign
	size := uint64(pitch) * uint64(h)
	staging, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(staging)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "readback_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: pitch, RowsPerImage: h},
		TextureBase: hal.ImageCopyTexture{
			Texture: t.tex,
			Origin:  hal.Origin3D{X: uint32(rect.X1), Y: uint32(rect.Y1)}, //nolint:gosec // inside target
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmd)
	if _, err := c.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait idle: %w", err)
	}

	mapping, err := c.device.MapBuffer(staging, 0, size)
	if err != nil {
		return fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)
	for y := range int(h) {
		row := src[y*int(pitch):]
		for x := range int(w) {
			p := row[x*4 : x*4+4 : x*4+4]
			if bgra {
				render.PackPixel(dst, x, y, p[2], p[1], p[0], p[3])
			} else {
				render.PackPixel(dst, x, y, p[0], p[1], p[2], p[3])
			}
		}
	}
	if err := c.device.UnmapBuffer(staging); err != nil {
		return fmt.Errorf("wgpu: unmap staging buffer: %w", err)
	}
	return nil
}
