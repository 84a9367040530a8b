// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
)

// Name is the registry name of the backend.
const Name = "soft"

// Priority is the registry priority of the backend. It is lower than any
// GPU backend so it is only chosen as a fallback.
const Priority = 10

func init() {
	render.Register(Name, Priority, func() (render.Context, error) {
		return New(), nil
	})
}

// Option configures a Context.
type Option func(*options)

type options struct {
	manualFences bool
	interp       draw.Interpolator
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		interp: draw.BiLinear,
	}
}

// WithManualFences makes EndFrame return fences that stay pending until
// SignalFences is called. The presented image is updated on signal.
func WithManualFences() Option {
	return func(o *options) { o.manualFences = true }
}

// WithInterpolator sets the sampler used for transformed draws.
func WithInterpolator(i draw.Interpolator) Option {
	return func(o *options) { o.interp = i }
}

// WithLogger sets the logger. By default the render package logger is
// used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Stats counts the work a context performed.
type Stats struct {
	Frames       int
	Draws        int
	ProgramBinds int
	Uploads      int
	Programs     int
}

// Context is a software rendering context.
type Context struct {
	opts     options
	log      *slog.Logger
	closed   bool
	programs *render.PipelineCache[*program]
	bound    *program
	uniforms [render.ParamBlockSize]byte
	pending  []*Fence
	stats    Stats
}

var _ render.Context = (*Context)(nil)

// New creates a software context.
func New(opts ...Option) *Context {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Context{opts: o, log: o.logger}
	if c.log == nil {
		c.log = render.Logger()
	}
	c.programs = render.NewPipelineCache(c.compile)
	return c
}

// Name returns "soft".
func (c *Context) Name() string { return Name }

var formats = []render.FormatInfo{
	{Format: buffer.ARGB8888, Shm: true, Modifiers: []buffer.Modifier{buffer.ModifierLinear}},
	{Format: buffer.XRGB8888, Shm: true, Modifiers: []buffer.Modifier{buffer.ModifierLinear}},
	{Format: buffer.ABGR8888, Shm: true, Modifiers: []buffer.Modifier{buffer.ModifierLinear}},
	{Format: buffer.XBGR8888, Shm: true, Modifiers: []buffer.Modifier{buffer.ModifierLinear}},
}

// Formats returns the packed RGB formats, uploadable and importable with
// the linear modifier.
func (c *Context) Formats() []render.FormatInfo { return formats }

// SetLogger replaces the context logger.
func (c *Context) SetLogger(l *slog.Logger) { c.log = l }

// Stats returns the work counters.
func (c *Context) Stats() Stats {
	s := c.stats
	s.Programs = c.programs.Len()
	return s
}

// ImportShm converts the buffer into a premultiplied RGBA image, reusing
// old when it has the same geometry.
func (c *Context) ImportShm(desc *buffer.Shm, old render.Texture) (render.Texture, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	w, h := int(desc.Width), int(desc.Height)
	t, ok := old.(*texture)
	if !ok || t.ctx != c || t.destroyed || t.external || t.width != w || t.height != h || t.format != desc.Format {
		t = &texture{
			ctx:    c,
			width:  w,
			height: h,
			format: desc.Format,
			img:    image.NewRGBA(image.Rect(0, 0, w, h)),
		}
	}
	upload(t.img.(*image.RGBA), desc.Pixels(), int(desc.Stride), desc.Format)
	c.stats.Uploads++
	return t, nil
}

// ImportDmabuf wraps the first plane of a linear buffer. Pixels are read
// from the plane memory at draw time.
func (c *Context) ImportDmabuf(desc *buffer.Dmabuf) (render.Texture, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	fi, ok := render.FindFormat(formats, desc.Format)
	if !ok || !fi.SupportsModifier(desc.Modifier) {
		return nil, fmt.Errorf("soft: cannot import %v with modifier %v", desc.Format, desc.Modifier)
	}
	if len(desc.Planes) != 1 {
		return nil, fmt.Errorf("soft: %v needs 1 plane, got %d", desc.Format, len(desc.Planes))
	}
	p := desc.Planes[0]
	return &texture{
		ctx:      c,
		width:    int(desc.Width),
		height:   int(desc.Height),
		format:   desc.Format,
		external: true,
		img:      wrapPlane(p.Data[p.Offset:], int(p.Stride), int(desc.Width), int(desc.Height), desc.Format),
	}, nil
}

// NewTarget creates a double-buffered target.
func (c *Context) NewTarget(width, height int) (render.Target, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("soft: bad target size %dx%d", width, height)
	}
	r := image.Rect(0, 0, width, height)
	return &Target{ctx: c, back: image.NewRGBA(r), front: image.NewRGBA(r)}, nil
}

// BeginFrame starts a frame and clears the damaged pixels with the fill
// program.
func (c *Context) BeginFrame(target render.Target, damage region.Region, clear render.Color) (render.FrameTarget, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	t, ok := target.(*Target)
	if !ok || t.ctx != c {
		return nil, render.ErrForeignObject
	}
	if t.destroyed {
		return nil, fmt.Errorf("soft: target destroyed")
	}
	f := &frame{target: t, damage: damage.Clone()}
	if damage.IsEmpty() {
		return f, nil
	}
	op := render.DrawOp{
		Dst:   region.NewRect(0, 0, int32(t.Width()), int32(t.Height())),
		Clip:  damage.Rects(),
		Caps:  render.CapFill,
		Color: clear,
	}
	if err := c.draw(f, &op); err != nil {
		return nil, err
	}
	return f, nil
}

// Draw runs op's program once per clip rectangle.
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
	if op.Caps&render.CapFill == 0 {
		t, ok := op.Source.Image().(*texture)
		if !ok || t.ctx != c {
			return render.ErrForeignObject
		}
		if t.destroyed {
			return fmt.Errorf("%w: texture destroyed", render.ErrStaleTexture)
		}
		tex = t
	}
	prog, err := c.programs.Get(op.Caps)
	if err != nil {
		return err
	}
	c.use(prog)

	back := f.target.back
	p := render.NewParams(op, back.Rect.Dx(), back.Rect.Dy())
	p.Encode(c.uniforms[:])

	for _, r := range op.Clip {
		clip := image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Intersect(back.Rect)
		if clip.Empty() {
			continue
		}
		prog.run(c, back.SubImage(clip).(*image.RGBA), back.Rect.Size(), tex)
	}
	c.stats.Draws++
	return nil
}

func (c *Context) use(p *program) {
	if c.bound == p {
		return
	}
	c.bound = p
	c.stats.ProgramBinds++
}

// EndFrame finishes the frame. With manual fences the frame is presented
// when its fence is signalled.
func (c *Context) EndFrame(frameTarget render.FrameTarget) (render.Fence, error) {
	if c.closed {
		return nil, render.ErrClosed
	}
	f, ok := frameTarget.(*frame)
	if !ok || f.target.ctx != c {
		return nil, render.ErrForeignObject
	}
	if f.ended {
		return nil, fmt.Errorf("soft: frame already ended")
	}
	f.ended = true
	c.stats.Frames++
	if !c.opts.manualFences {
		f.present()
		return render.SignaledFence{}, nil
	}
	fence := &Fence{frame: f}
	c.pending = append(c.pending, fence)
	return fence, nil
}

// Discard abandons a frame. Its pixels stay in the back image but are
// never presented.
func (c *Context) Discard(frameTarget render.FrameTarget) {
	if f, ok := frameTarget.(*frame); ok {
		f.ended = true
	}
}

// PendingFences returns the number of fences waiting for SignalFences.
func (c *Context) PendingFences() int { return len(c.pending) }

// SignalFences completes every pending fence in submission order with
// err. Frames whose fence completes without error are presented.
func (c *Context) SignalFences(err error) int {
	n := len(c.pending)
	for _, f := range c.pending {
		f.signal(err)
	}
	c.pending = c.pending[:0]
	return n
}

// Close releases the programs. Pending fences complete with ErrClosed.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.SignalFences(render.ErrClosed)
	c.closed = true
	c.bound = nil
	c.programs.Reset()
	c.log.Debug("soft: context closed", "frames", c.stats.Frames, "draws", c.stats.Draws)
	return nil
}
