// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/shader"
	"github.com/gogpu/compositor/render"
)

// layouts are shared by all variants: textured variants bind the
// parameter block, the texture and a sampler; the fill variant binds the
// parameter block only.
type layouts struct {
	textured     hal.BindGroupLayout
	fill         hal.BindGroupLayout
	texturedPipe hal.PipelineLayout
	fillPipe     hal.PipelineLayout
}

func paramsLayoutEntry() gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    shader.ParamsBinding,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

func (c *Context) createLayouts() error {
	var err error
	c.layouts.textured, err = c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "surface_textured_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			paramsLayoutEntry(),
			{
				Binding:    shader.TextureBinding,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    shader.SamplerBinding,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create textured layout: %w", err)
	}
	c.layouts.fill, err = c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "surface_fill_layout",
		Entries: []gputypes.BindGroupLayoutEntry{paramsLayoutEntry()},
	})
	if err != nil {
		return fmt.Errorf("create fill layout: %w", err)
	}
	c.layouts.texturedPipe, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "surface_textured_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.layouts.textured},
	})
	if err != nil {
		return fmt.Errorf("create textured pipeline layout: %w", err)
	}
	c.layouts.fillPipe, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "surface_fill_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.layouts.fill},
	})
	if err != nil {
		return fmt.Errorf("create fill pipeline layout: %w", err)
	}
	c.sampler, err = c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "surface_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	return nil
}

func (c *Context) destroyLayouts() {
	if c.device == nil {
		return
	}
	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
	}
	for _, pl := range []hal.PipelineLayout{c.layouts.texturedPipe, c.layouts.fillPipe} {
		if pl != nil {
			c.device.DestroyPipelineLayout(pl)
		}
	}
	for _, l := range []hal.BindGroupLayout{c.layouts.textured, c.layouts.fill} {
		if l != nil {
			c.device.DestroyBindGroupLayout(l)
		}
	}
	c.layouts = layouts{}
	c.sampler = nil
}

// pipeline is one compiled variant.
type pipeline struct {
	caps     render.Caps
	module   hal.ShaderModule
	pipeline hal.RenderPipeline
}

func (p *pipeline) destroy(device hal.Device) {
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
	}
}

// compile builds the render pipeline of one variant. Fill replaces the
// destination; every other variant blends premultiplied over it.
func (c *Context) compile(caps render.Caps) (*pipeline, error) {
	code, err := shader.Compile(caps)
	if err != nil {
		return nil, err
	}
	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "surface_shader_" + caps.String(),
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %v: %w", caps, err)
	}

	layout := c.layouts.texturedPipe
	var blend *gputypes.BlendState
	if shader.UsesTexture(caps) {
		premul := gputypes.BlendStatePremultiplied()
		blend = &premul
	} else {
		layout = c.layouts.fillPipe
	}
	rp, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "surface_pipeline_" + caps.String(),
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    c.format,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		c.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("wgpu: create pipeline %v: %w", caps, err)
	}
	c.log.Debug("wgpu: pipeline compiled", "caps", caps, "spirv_words", len(code))
	return &pipeline{caps: caps, module: module, pipeline: rp}, nil
}
