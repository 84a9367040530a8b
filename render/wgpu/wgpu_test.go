// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/render/soft"
)

func newNoopContext(t *testing.T) *Context {
	t.Helper()
	c, err := New(WithBackend(&noop.API{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

type source struct {
	img render.Texture
	gen uint64
}

func (s *source) Image() render.Texture { return s.img }
func (s *source) Generation() uint64    { return s.gen }
func (s *source) Stale() bool           { return false }

func shm(w, h int32, f buffer.Format) *buffer.Shm {
	return &buffer.Shm{Data: make([]byte, w*h*4), Width: w, Height: h, Stride: w * 4, Format: f}
}

func TestFormatsRejectExternalBuffers(t *testing.T) {
	c := newNoopContext(t)
	for _, fi := range c.Formats() {
		if !fi.Shm || len(fi.Modifiers) != 0 {
			t.Errorf("%v: shm=%v modifiers=%v", fi.Format, fi.Shm, fi.Modifiers)
		}
	}
	_, err := c.ImportDmabuf(&buffer.Dmabuf{Width: 1, Height: 1, Format: buffer.ARGB8888})
	if !errors.Is(err, ErrExternalMemory) {
		t.Errorf("ImportDmabuf err = %v", err)
	}
}

func TestFrame(t *testing.T) {
	c := newNoopContext(t)
	target, err := c.NewTarget(64, 32)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	defer target.Destroy()
	tex, err := c.ImportShm(shm(16, 16, buffer.ARGB8888), nil)
	if err != nil {
		t.Fatalf("ImportShm: %v", err)
	}
	defer tex.Destroy()

	f, err := c.BeginFrame(target, region.New(region.NewRect(0, 0, 64, 32)), render.Color{A: 1})
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	op := &render.DrawOp{
		Source: &source{img: tex},
		Dst:    region.NewRect(8, 8, 16, 16),
		Clip:   []region.Rect{region.NewRect(8, 8, 4, 4), region.NewRect(20, 20, 4, 4)},
		Alpha:  0.5,
		Caps:   render.SelectCaps(buffer.ARGB8888, 0.5),
	}
	if err := c.Draw(f, op); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	alpha := math.Float32frombits(binary.LittleEndian.Uint32(c.uniforms[render.AlphaOffset:]))
	if alpha != 0.5 {
		t.Errorf("alpha at offset %d = %v, want 0.5", render.AlphaOffset, alpha)
	}

	fence, err := c.EndFrame(f)
	if err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	for range 100 {
		done, err := fence.Poll()
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if done {
			break
		}
	}
	st := c.Stats()
	if st.Frames != 1 || st.Draws != 2 {
		t.Errorf("stats = %+v, want 1 frame and 2 draws", st)
	}
	// fill and alpha|alpha-multiplier
	if st.Pipelines != 2 {
		t.Errorf("pipelines = %d, want 2", st.Pipelines)
	}
}

func TestPipelinesCompiledOnce(t *testing.T) {
	c := newNoopContext(t)
	target, err := c.NewTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		f, err := c.BeginFrame(target, region.New(region.NewRect(0, 0, 8, 8)), render.Color{})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.EndFrame(f); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.Stats().Pipelines; got != 1 {
		t.Errorf("pipelines = %d, want 1", got)
	}
}

func TestReuploadReusesTexture(t *testing.T) {
	c := newNoopContext(t)
	a, err := c.ImportShm(shm(4, 4, buffer.XRGB8888), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.ImportShm(shm(4, 4, buffer.XRGB8888), a)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same geometry upload created a new texture")
	}
	if got := gpuFormat(buffer.XRGB8888); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("XRGB8888 maps to %v", got)
	}
	if got := gpuFormat(buffer.ABGR8888); got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("ABGR8888 maps to %v", got)
	}
}

func TestForeignObjects(t *testing.T) {
	c, other := newNoopContext(t), newNoopContext(t)
	target, err := other.NewTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.BeginFrame(target, region.Region{}, render.Color{}); !errors.Is(err, render.ErrForeignObject) {
		t.Errorf("foreign target: err = %v", err)
	}

	own, err := c.NewTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	tex, err := other.ImportShm(shm(4, 4, buffer.ARGB8888), nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := c.BeginFrame(own, region.Region{}, render.Color{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Discard(f)
	op := &render.DrawOp{
		Source: &source{img: tex},
		Dst:    region.NewRect(0, 0, 4, 4),
		Clip:   []region.Rect{region.NewRect(0, 0, 4, 4)},
		Alpha:  1,
		Caps:   render.CapAlpha,
	}
	if err := c.Draw(f, op); !errors.Is(err, render.ErrForeignObject) {
		t.Errorf("foreign texture: err = %v", err)
	}
}

func TestClosedContext(t *testing.T) {
	c := newNoopContext(t)
	target, err := c.NewTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	f, err := c.BeginFrame(target, region.New(region.NewRect(0, 0, 8, 8)), render.Color{})
	if err != nil {
		t.Fatal(err)
	}
	fence, err := c.EndFrame(f)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if done, _ := fence.Poll(); !done {
		t.Error("fence still pending after Close")
	}
	if _, err := c.NewTarget(8, 8); !errors.Is(err, render.ErrClosed) {
		t.Errorf("NewTarget after Close: %v", err)
	}
}

func TestReadPixels(t *testing.T) {
	c := newNoopContext(t)
	target, err := c.NewTarget(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	dst := shm(4, 3, buffer.XRGB8888)
	for i := range dst.Data {
		dst.Data[i] = 0x55
	}
	if err := c.ReadPixels(target, region.NewRect(2, 2, 4, 3), dst); err != nil {
		t.Fatalf("ReadPixels: %v", err)
	}
	// The noop device never writes the staging buffer.
	for i := 0; i < len(dst.Data); i += 4 {
		if got := dst.Data[i : i+4]; !slices.Equal(got, []byte{0, 0, 0, 0xff}) {
			t.Fatalf("pixel %d = %v", i/4, got)
		}
	}

	if err := c.ReadPixels(target, region.NewRect(6, 6, 4, 3), dst); !errors.Is(err, render.ErrReadback) {
		t.Errorf("rect outside target: err = %v", err)
	}
	if err := c.ReadPixels(target, region.NewRect(0, 0, 2, 2), dst); !errors.Is(err, render.ErrReadback) {
		t.Errorf("size mismatch: err = %v", err)
	}
	other := newNoopContext(t)
	if err := other.ReadPixels(target, region.NewRect(2, 2, 4, 3), dst); !errors.Is(err, render.ErrForeignObject) {
		t.Errorf("foreign target: err = %v", err)
	}
}

// mockDevice implements gpucontext.Device for testing.
type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

// mockQueue implements gpucontext.Queue for testing.
type mockQueue struct{}

// mockAdapter implements gpucontext.Adapter for testing.
type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct {
	format gputypes.TextureFormat
}

func (m *mockProvider) Device() gpucontext.Device             { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return m.format }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

// halMockProvider also exposes HAL objects.
type halMockProvider struct {
	mockProvider
	device hal.Device
	queue  hal.Queue
}

func (m *halMockProvider) HalDevice() any { return m.device }
func (m *halMockProvider) HalQueue() any  { return m.queue }

func TestDeviceProvider(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	p := &halMockProvider{
		mockProvider: mockProvider{format: gputypes.TextureFormatRGBA8Unorm},
		device:       device,
		queue:        queue,
	}
	c, err := New(WithDeviceProvider(p))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("target format = %v, want provider surface format", c.format)
	}
	if !c.external {
		t.Error("shared device not marked external")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDeviceProviderWithoutHAL(t *testing.T) {
	_, err := New(WithDeviceProvider(&mockProvider{format: gputypes.TextureFormatBGRA8Unorm}))
	if !errors.Is(err, render.ErrRendererInitFailed) {
		t.Errorf("err = %v, want ErrRendererInitFailed", err)
	}
}

func TestRegistered(t *testing.T) {
	if !render.IsRegistered(Name) {
		t.Error("wgpu backend not registered")
	}
}

func TestPreferredOverSoft(t *testing.T) {
	if Priority != 100 || soft.Priority != 10 {
		t.Errorf("priorities = %d, %d, want 100, 10", Priority, soft.Priority)
	}
	names := render.Available()
	gi, si := slices.Index(names, Name), slices.Index(names, soft.Name)
	if gi < 0 || si < 0 || gi > si {
		t.Errorf("Available() = %v, want %s before %s", names, Name, soft.Name)
	}
}
