// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/render"
)

// Name is the registry name of the backend.
const Name = "wgpu"

// Priority is the registry priority of the backend.
const Priority = 100

func init() {
	render.Register(Name, Priority, func() (render.Context, error) {
		return New()
	})
}

// Backend creates HAL instances. Both the registered HAL backends and
// the noop API satisfy it.
type Backend interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Option configures a Context.
type Option func(*options)

type options struct {
	backend  Backend
	provider gpucontext.DeviceProvider
	format   gputypes.TextureFormat
	logger   *slog.Logger
}

func defaultOptions() options {
	return options{format: gputypes.TextureFormatBGRA8Unorm}
}

// WithBackend opens the device on b instead of the Vulkan backend.
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithDeviceProvider renders on a device shared with the host. The
// provider must expose its HAL device and queue through HalDevice() and
// HalQueue(). Targets use the provider's surface format.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger sets the logger. By default the render package logger is
// used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Context is a HAL rendering context.
type Context struct {
	opts     options
	log      *slog.Logger
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	format   gputypes.TextureFormat
	closed   bool

	layouts   layouts
	sampler   hal.Sampler
	pipelines *render.PipelineCache[*pipeline]
	inflight  []*Fence

	// uniforms holds the parameter block of the last draw.
	uniforms [render.ParamBlockSize]byte
	stats    Stats
}

// Stats counts the work a context performed.
type Stats struct {
	Frames    int
	Draws     int
	Uploads   int
	Pipelines int
}

var _ render.Context = (*Context)(nil)

// New opens a GPU device and creates a context on it.
func New(opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{opts: o, log: o.logger, format: o.format}
	if c.log == nil {
		c.log = render.Logger()
	}

	var err error
	if o.provider != nil {
		err = c.useProvider(o.provider)
	} else {
		err = c.openDevice(o.backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", render.ErrRendererInitFailed, err)
	}

	if err := c.createLayouts(); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", render.ErrRendererInitFailed, err)
	}
	c.pipelines = render.NewPipelineCache(c.compile)
	return c, nil
}

func (c *Context) useProvider(p gpucontext.DeviceProvider) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return errors.New("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("wgpu: provider HalQueue is not hal.Queue")
	}
	c.device, c.queue, c.external = device, queue, true
	c.format = p.SurfaceFormat()
	c.log.Info("wgpu: using shared device", "format", c.format)
	return nil
}

func (c *Context) openDevice(b Backend) error {
	if b == nil {
		vk, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return errors.New("wgpu: vulkan backend not available")
		}
		b = vk
	}
	instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return errors.New("wgpu: no GPU adapters found")
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device: %w", err)
	}
	c.instance = instance
	c.device = openDev.Device
	c.queue = openDev.Queue
	c.log.Info("wgpu: device opened", "adapter", selected.Info.Name)
	return nil
}

// Name returns "wgpu".
func (c *Context) Name() string { return Name }

var formats = []render.FormatInfo{
	{Format: buffer.ARGB8888, Shm: true},
	{Format: buffer.XRGB8888, Shm: true},
	{Format: buffer.ABGR8888, Shm: true},
	{Format: buffer.XBGR8888, Shm: true},
}

// Formats returns the packed RGB formats. None accepts external buffers.
func (c *Context) Formats() []render.FormatInfo { return formats }

// SetLogger replaces the context logger.
func (c *Context) SetLogger(l *slog.Logger) { c.log = l }

// Stats returns the work counters.
func (c *Context) Stats() Stats {
	s := c.stats
	s.Pipelines = c.pipelines.Len()
	return s
}

// Close waits for nothing: in-flight frames are abandoned and every
// resource of the context is destroyed. A shared device is left alive.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, f := range slices.Clone(c.inflight) {
		f.release(render.ErrClosed)
	}
	c.inflight = nil
	if c.pipelines != nil {
		c.pipelines.Each(func(_ render.Caps, p *pipeline) { p.destroy(c.device) })
		c.pipelines.Reset()
	}
	c.destroyLayouts()
	if !c.external {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.device, c.queue, c.instance = nil, nil, nil
	return nil
}
