// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/render"
)

// Target is the color image an output is rendered into. Its contents
// persist between frames.
type Target struct {
	ctx       *Context
	width     int
	height    int
	tex       hal.Texture
	view      hal.TextureView
	destroyed bool
}

// Width returns the target width.
func (t *Target) Width() int { return t.width }

// Height returns the target height.
func (t *Target) Height() int { return t.height }

// Texture returns the HAL texture, for hosts that present or copy it.
func (t *Target) Texture() hal.Texture { return t.tex }

// Destroy releases the target.
func (t *Target) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	if d := t.ctx.device; d != nil {
		d.DestroyTextureView(t.view)
		d.DestroyTexture(t.tex)
	}
}

// NewTarget creates the render target of an output.
func (c *Context) NewTarget(width, height int) (render.Target, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("wgpu: bad target size %dx%d", width, height)
	}
	tex, view, err := c.createTexture("output_target", width, height, c.format,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc|gputypes.TextureUsageTextureBinding)
	if err != nil {
		return nil, fmt.Errorf("wgpu: %w", err)
	}
	return &Target{ctx: c, width: width, height: height, tex: tex, view: view}, nil
}
