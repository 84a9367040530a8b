// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/shader"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// frameResources are the per-frame GPU objects released when the
// frame's submission completes.
type frameResources struct {
	buffers []hal.Buffer
	groups  []hal.BindGroup
	cmd     hal.CommandBuffer
}

func (r *frameResources) destroy(device hal.Device) {
	for _, g := range r.groups {
		device.DestroyBindGroup(g)
	}
	for _, b := range r.buffers {
		device.DestroyBuffer(b)
	}
	if r.cmd != nil {
		device.FreeCommandBuffer(r.cmd)
	}
	*r = frameResources{}
}

type frame struct {
	target  *Target
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	bound   *pipeline
	res     frameResources
	ended   bool
}

func (f *frame) Target() render.Target { return f.target }

// BeginFrame opens the frame's render pass, keeping the previous
// contents, and clears the damaged pixels.
func (c *Context) BeginFrame(target render.Target, damage region.Region, clear render.Color) (render.FrameTarget, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	t, ok := target.(*Target)
	if !ok || t.ctx != c {
		return nil, render.ErrForeignObject
	}
	if t.destroyed {
		return nil, fmt.Errorf("wgpu: target destroyed")
	}
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "output_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("output_frame"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "output_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    t.view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	f := &frame{target: t, encoder: encoder, pass: pass}
	if damage.IsEmpty() {
		return f, nil
	}
	op := render.DrawOp{
		Dst:   region.NewRect(0, 0, int32(t.width), int32(t.height)), //nolint:gosec // target sizes fit int32
		Clip:  damage.Rects(),
		Caps:  render.CapFill,
		Color: clear,
	}
	if err := c.draw(f, &op); err != nil {
		c.Discard(f)
		return nil, err
	}
	return f, nil
}

// Draw records op: one bind group with a fresh parameter block, then one
// scissored quad per clip rectangle.
func (c *Context) Draw(frameTarget render.FrameTarget, op *render.DrawOp) error {
	if c.closed {
		return render.ErrClosed
	}
	f, ok := frameTarget.(*frame)
	if !ok || f.target.ctx != c {
		return render.ErrForeignObject
	}
	if f.ended {
		return fmt.Errorf("%w: frame already ended", render.ErrBadDrawOp)
	}
	if err := render.Validate(op); err != nil {
		return err
	}
	return c.draw(f, op)
}

func (c *Context) draw(f *frame, op *render.DrawOp) error {
	var tex *texture
	if shader.UsesTexture(op.Caps) {
		t, ok := op.Source.Image().(*texture)
		if !ok || t.ctx != c {
			return render.ErrForeignObject
		}
		if t.destroyed {
			return fmt.Errorf("%w: texture destroyed", render.ErrStaleTexture)
		}
		tex = t
	}
	p, err := c.pipelines.Get(op.Caps)
	if err != nil {
		return err
	}

	params := render.NewParams(op, f.target.width, f.target.height)
	params.Encode(c.uniforms[:])
	buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "surface_params",
		Size:  render.ParamBlockSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create params buffer: %w", err)
	}
	f.res.buffers = append(f.res.buffers, buf)
	if err := c.queue.WriteBuffer(buf, 0, slices.Clone(c.uniforms[:])); err != nil {
		return fmt.Errorf("wgpu: write params: %w", err)
	}

	entries := []gputypes.BindGroupEntry{
		{Binding: shader.ParamsBinding, Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(), Offset: 0, Size: render.ParamBlockSize,
		}},
	}
	layout := c.layouts.fill
	if tex != nil {
		layout = c.layouts.textured
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: shader.TextureBinding, Resource: gputypes.TextureViewBinding{
				TextureView: tex.view.NativeHandle(),
			}},
			gputypes.BindGroupEntry{Binding: shader.SamplerBinding, Resource: gputypes.SamplerBinding{
				Sampler: c.sampler.NativeHandle(),
			}},
		)
	}
	group, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "surface_bind",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	f.res.groups = append(f.res.groups, group)

	if f.bound != p {
		f.pass.SetPipeline(p.pipeline)
		f.bound = p
	}
	f.pass.SetBindGroup(0, group, nil)
	bounds := region.NewRect(0, 0, int32(f.target.width), int32(f.target.height)) //nolint:gosec // target sizes fit int32
	for _, r := range op.Clip {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		f.pass.SetScissorRect(uint32(r.X1), uint32(r.Y1), uint32(r.Width()), uint32(r.Height())) //nolint:gosec // clipped to target
		f.pass.Draw(4, 1, 0, 0)
	}
	c.stats.Draws++
	return nil
}

// EndFrame submits the frame. The returned fence compares the
// submission index with the queue's completed index.
func (c *Context) EndFrame(frameTarget render.FrameTarget) (render.Fence, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	f, ok := frameTarget.(*frame)
	if !ok || f.target.ctx != c {
		return nil, render.ErrForeignObject
	}
	if f.ended {
		return nil, fmt.Errorf("wgpu: frame already ended")
	}
	f.ended = true
	f.pass.End()
	cmd, err := f.encoder.EndEncoding()
	if err != nil {
		f.res.destroy(c.device)
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	f.res.cmd = cmd
	index, err := c.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		f.res.destroy(c.device)
		return nil, fmt.Errorf("wgpu: submit: %w", err)
	}
	c.stats.Frames++
	fc := &Fence{ctx: c, res: f.res, index: index}
	f.res = frameResources{}
	c.inflight = append(c.inflight, fc)
	return fc, nil
}

// Discard abandons a frame without submitting it.
func (c *Context) Discard(frameTarget render.FrameTarget) {
	f, ok := frameTarget.(*frame)
	if !ok || f.ended {
		return
	}
	f.ended = true
	f.pass.End()
	f.encoder.DiscardEncoding()
	if c.device != nil {
		f.res.destroy(c.device)
	}
}

// Fence tracks a submitted frame.
type Fence struct {
	ctx   *Context
	res   frameResources
	index uint64
	done  bool
	err   error
}

// Poll checks the submission without blocking. Once done, the frame's
// resources are released.
func (f *Fence) Poll() (bool, error) {
	if f.done {
		return true, f.err
	}
	if f.ctx.queue.PollCompleted() >= f.index {
		f.release(nil)
	}
	return f.done, f.err
}

func (f *Fence) release(err error) {
	f.done, f.err = true, err
	if f.ctx.device != nil {
		f.res.destroy(f.ctx.device)
	}
	f.ctx.inflight = slices.DeleteFunc(f.ctx.inflight, func(o *Fence) bool { return o == f })
}
