// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/render"
)

// ErrExternalMemory is returned by ImportDmabuf.
var ErrExternalMemory = errors.New("wgpu: external memory import not supported")

// gpuFormat maps a packed fourcc format to the texture format with the
// same byte order.
func gpuFormat(f buffer.Format) gputypes.TextureFormat {
	switch f {
	case buffer.ARGB8888, buffer.XRGB8888:
		return gputypes.TextureFormatBGRA8Unorm
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

type texture struct {
	ctx       *Context
	width     int
	height    int
	format    buffer.Format
	tex       hal.Texture
	view      hal.TextureView
	destroyed bool
}

func (t *texture) Width() int            { return t.width }
func (t *texture) Height() int           { return t.height }
func (t *texture) Format() buffer.Format { return t.format }

func (t *texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	if d := t.ctx.device; d != nil {
		d.DestroyTextureView(t.view)
		d.DestroyTexture(t.tex)
	}
}

func (c *Context) createTexture(label string, w, h int, format gputypes.TextureFormat, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // validated positive
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		c.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

// ImportShm uploads the buffer with a queue write, reusing old when it
// has the same geometry and format.
func (c *Context) ImportShm(desc *buffer.Shm, old render.Texture) (render.Texture, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	w, h := int(desc.Width), int(desc.Height)
	t, ok := old.(*texture)
	if !ok || t.ctx != c || t.destroyed || t.width != w || t.height != h || t.format != desc.Format {
		tex, view, err := c.createTexture("surface_texture", w, h, gpuFormat(desc.Format),
			gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
		if err != nil {
			return nil, fmt.Errorf("wgpu: %w", err)
		}
		t = &texture{ctx: c, width: w, height: h, format: desc.Format, tex: tex, view: view}
	}
	err := c.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		desc.Pixels(),
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(desc.Stride), //nolint:gosec // validated positive
			RowsPerImage: uint32(desc.Height), //nolint:gosec // validated positive
		},
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // validated positive
	)
	if err != nil {
		if t != old {
			t.Destroy()
		}
		return nil, fmt.Errorf("wgpu: upload: %w", err)
	}
	c.stats.Uploads++
	return t, nil
}

// ImportDmabuf always fails.
func (c *Context) ImportDmabuf(desc *buffer.Dmabuf) (render.Texture, error) {
	return nil, fmt.Errorf("%w: %v %v", ErrExternalMemory, desc.Format, desc.Modifier)
}
