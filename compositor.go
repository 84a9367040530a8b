// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/importer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
	"github.com/gogpu/compositor/surface"
)

var (
	// ErrUnknownOutput is returned for events naming an output that is not
	// attached.
	ErrUnknownOutput = errors.New("compositor: unknown output")

	// ErrBadMode is returned by OutputAttach with an empty mode.
	ErrBadMode = errors.New("compositor: bad output mode")

	// ErrUnknownEvent is returned by Handle for event types it does not
	// know.
	ErrUnknownEvent = errors.New("compositor: unknown event")

	// ErrClosed is returned by Handle after Close.
	ErrClosed = errors.New("compositor: closed")
)

// Compositor is one compositor instance: a surface tree, the outputs it
// is shown on, and the render context drawing them.
//
// All state is owned by the event loop. Handle, DispatchPending, Run and
// the accessors must be called from one goroutine at a time; Post is safe
// from any goroutine.
type Compositor struct {
	opts options
	log  *slog.Logger

	ctx      render.Context
	owned    bool
	importer *importer.Importer
	composer *scene.Composer
	tree     *surface.Tree
	buffers  map[buffer.ID]*buffer.Buffer
	outputs  map[OutputID]*output
	// draining holds frames of detached outputs still executing on the GPU.
	draining []*flight
	// held lists buffers sampled by frames of detached outputs. They are
	// released by the next commit or completed frame.
	held []*buffer.Buffer

	events chan Event
	local  []Event
	quit   chan struct{}
	closed bool
}

// New creates a compositor.
func New(opts ...Option) (*Compositor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Compositor{
		opts:    o,
		log:     Logger(),
		ctx:     o.renderer,
		tree:    surface.NewTree(),
		buffers: make(map[buffer.ID]*buffer.Buffer),
		outputs: make(map[OutputID]*output),
		events:  make(chan Event, max(o.queueSize, 1)),
		quit:    make(chan struct{}),
	}
	if c.ctx == nil {
		ctx, err := render.Open(o.backends...)
		if err != nil {
			return nil, fmt.Errorf("compositor: %w", err)
		}
		c.ctx = ctx
		c.owned = true
	}
	propagateLogger(c.ctx, c.log)

	imOpts := []importer.Option{importer.WithLogger(c.log)}
	if o.poolSize > 0 {
		imOpts = append(imOpts, importer.WithPoolSize(o.poolSize))
	}
	c.importer = importer.New(c.ctx, imOpts...)

	scOpts := []scene.Option{scene.WithBackground(o.background)}
	if !o.culling {
		scOpts = append(scOpts, scene.WithoutCulling())
	}
	c.composer = scene.New(c.importer, scOpts...)
	c.log.Info("compositor: started", "backend", c.ctx.Name())
	return c, nil
}

// Renderer returns the render context.
func (c *Compositor) Renderer() render.Context { return c.ctx }

// Tree returns the surface tree. It must only be read between events.
func (c *Compositor) Tree() *surface.Tree { return c.tree }

// Importer returns the texture importer.
func (c *Compositor) Importer() *importer.Importer { return c.importer }

// Draining returns the number of frames of detached outputs that are
// still executing.
func (c *Compositor) Draining() int { return len(c.draining) }

// Post queues an event for the loop. It is safe for concurrent use and
// blocks while the queue is full. After Close it drops the event.
func (c *Compositor) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

// enqueue queues an event from the loop itself.
func (c *Compositor) enqueue(ev Event) {
	c.local = append(c.local, ev)
}

// Run processes events until ctx is cancelled. Errors of individual
// events are logged; they never stop the loop.
func (c *Compositor) Run(ctx context.Context) error {
	for {
		c.dispatchLocal()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.dispatch(ev)
		}
	}
}

// DispatchPending processes queued events without blocking and returns
// how many it handled.
func (c *Compositor) DispatchPending() int {
	n := 0
	for {
		n += c.dispatchLocal()
		select {
		case ev := <-c.events:
			c.dispatch(ev)
			n++
		default:
			if len(c.local) == 0 {
				return n
			}
		}
	}
}

func (c *Compositor) dispatchLocal() int {
	n := 0
	for len(c.local) > 0 {
		ev := c.local[0]
		c.local = c.local[1:]
		c.dispatch(ev)
		n++
	}
	return n
}

func (c *Compositor) dispatch(ev Event) {
	if err := c.Handle(ev); err != nil {
		c.log.Warn("compositor: event failed", "event", fmt.Sprintf("%T", ev), "err", err)
	}
}

// Handle processes one event.
func (c *Compositor) Handle(ev Event) error {
	if c.closed {
		return ErrClosed
	}
	switch ev := ev.(type) {
	case SurfaceCreate:
		_, err := c.tree.Create(ev.Surface)
		return wrapSurface(ev.Surface, err)
	case SurfaceCommit:
		return c.commit(ev)
	case SurfaceDestroy:
		res, err := c.tree.Destroy(ev.Surface)
		if err != nil {
			return wrapSurface(ev.Surface, err)
		}
		c.applied(res)
		return nil
	case SurfaceMap:
		var (
			d   region.Region
			err error
		)
		if ev.Unmap {
			d, err = c.tree.Unmap(ev.Surface)
		} else {
			d, err = c.tree.Map(ev.Surface, ev.X, ev.Y)
		}
		if err != nil {
			return wrapSurface(ev.Surface, err)
		}
		c.damage(d)
		c.requestFrames([]surface.ID{ev.Surface})
		return nil
	case SurfaceRaise:
		d, err := c.tree.Raise(ev.Surface)
		if err != nil {
			return wrapSurface(ev.Surface, err)
		}
		c.damage(d)
		return nil
	case SubsurfaceAttach:
		d, err := c.tree.AddSubsurface(ev.Surface, ev.Parent)
		if err != nil {
			return wrapSurface(ev.Surface, err)
		}
		c.damage(d)
		return nil
	case SubsurfaceSetSync:
		res, err := c.tree.SetSync(ev.Surface, ev.Sync)
		if err != nil {
			return wrapSurface(ev.Surface, err)
		}
		c.applied(res)
		return nil
	case SubsurfacePlace:
		var err error
		if ev.Above {
			err = c.tree.PlaceAbove(ev.Surface, ev.Sibling)
		} else {
			err = c.tree.PlaceBelow(ev.Surface, ev.Sibling)
		}
		return wrapSurface(ev.Surface, err)
	case SubsurfacePosition:
		return wrapSurface(ev.Surface, c.tree.SetPosition(ev.Surface, ev.X, ev.Y))
	case BufferDestroy:
		c.destroyBuffer(ev.Buffer)
		return nil
	case OutputAttach:
		return c.attachOutput(ev)
	case OutputDetach:
		return c.detachOutput(ev.Output)
	case OutputVSync:
		o, ok := c.outputs[ev.Output]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownOutput, ev.Output)
		}
		if o.sched.VSync(ev.Timestamp) {
			c.repaint(o, ev.Timestamp)
		}
		return nil
	case fenceCheck:
		c.checkFence(ev.flight)
		return nil
	case watchdogFired:
		if c.outputs[ev.output.id] == ev.output && ev.output.sched.WatchdogExpired(ev.gen) {
			c.repaint(ev.output, c.opts.clock.Now())
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

func wrapSurface(id surface.ID, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("compositor: surface %d: %w", id, err)
}

// commit applies the requests of a SurfaceCommit to the pending state and
// commits it.
func (c *Compositor) commit(ev SurfaceCommit) error {
	id, t := ev.Surface, c.tree
	steps := []func() error{
		func() error {
			if !ev.Attach {
				return nil
			}
			if b := ev.Buffer; b != nil {
				c.buffers[b.ID()] = b
			}
			return t.Attach(id, ev.Buffer)
		},
		func() error {
			if ev.DX == 0 && ev.DY == 0 {
				return nil
			}
			return t.Offset(id, ev.DX, ev.DY)
		},
		func() error {
			if len(ev.Damage) == 0 {
				return nil
			}
			return t.Damage(id, region.New(ev.Damage...))
		},
		func() error {
			if ev.Opaque == nil {
				return nil
			}
			return t.SetOpaque(id, *ev.Opaque)
		},
		func() error {
			if ev.Input == nil {
				return nil
			}
			return t.SetInput(id, ev.Input)
		},
		func() error {
			if ev.Transform == nil {
				return nil
			}
			return t.SetTransform(id, *ev.Transform)
		},
		func() error {
			if ev.Scale == 0 {
				return nil
			}
			return t.SetScale(id, ev.Scale)
		},
		func() error {
			if ev.Viewport == nil {
				return nil
			}
			return t.SetViewport(id, *ev.Viewport)
		},
		func() error {
			if ev.Alpha == nil {
				return nil
			}
			return t.SetAlpha(id, *ev.Alpha)
		},
		func() error {
			if !ev.Frame {
				return nil
			}
			return t.RequestFrame(id)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return wrapSurface(id, err)
		}
	}
	res, err := t.Commit(id)
	if err != nil {
		return wrapSurface(id, err)
	}
	c.applied(res)
	return nil
}

// applied imports newly current buffers, spreads damage to the outputs
// and releases buffers no state holds anymore.
func (c *Compositor) applied(res surface.CommitResult) {
	for _, b := range res.Attached {
		if b.Destroyed() {
			continue
		}
		if _, err := c.importer.Import(b); err != nil {
			c.opts.sink.Notify(ImportFailed{Buffer: b.ID(), Reason: reason(err), Err: err})
			// The client gets the buffer back right away; the surface stays
			// out of composition until a buffer imports.
			if !b.Released() {
				b.MarkReleased()
				c.opts.sink.Notify(BufferReleased{Buffer: b.ID()})
			}
		}
	}
	c.damage(res.Damage)
	c.requestFrames(res.Applied)
	c.release(res.Superseded)
	c.releaseHeld()
}

func reason(err error) string {
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return err.Error()
}

// release sends BufferReleased for every buffer whose release is due.
func (c *Compositor) release(bufs []*buffer.Buffer) {
	for _, b := range bufs {
		if b.ReleaseDue() {
			b.MarkReleased()
			c.opts.sink.Notify(BufferReleased{Buffer: b.ID()})
		}
	}
}

// releaseHeld hands buffers of drained frames back to the release path.
func (c *Compositor) releaseHeld() {
	if len(c.held) == 0 {
		return
	}
	held := c.held
	c.held = nil
	c.release(held)
}

func (c *Compositor) destroyBuffer(id buffer.ID) {
	if b, ok := c.buffers[id]; ok {
		b.Destroy()
		delete(c.buffers, id)
	}
	c.importer.Forget(id)
}

// damage adds global damage to every output it touches.
func (c *Compositor) damage(d region.Region) {
	if d.IsEmpty() {
		return
	}
	for _, o := range c.outputs {
		local := d.IntersectRect(o.rect).Translate(-o.rect.X1, -o.rect.Y1)
		if local.IsEmpty() {
			continue
		}
		o.damage.Accumulate(local)
		o.sched.Damage()
	}
}

// requestFrames schedules a cycle on every output showing one of the
// surfaces that is owed a frame event, damaged or not.
func (c *Compositor) requestFrames(ids []surface.ID) {
	for _, id := range ids {
		s, ok := c.tree.Get(id)
		if !ok || !s.FrameDue() {
			continue
		}
		ext := s.Extents()
		for _, o := range c.outputs {
			if ext.Overlaps(o.rect) {
				o.wantFrame = true
				o.sched.Damage()
			}
		}
	}
}

// Close releases every output and texture. A render context opened by New
// is closed too.
func (c *Compositor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.quit)
	for id, o := range c.outputs {
		o.stopTimers()
		o.sched.Terminate()
		o.target.Destroy()
		delete(c.outputs, id)
	}
	for _, f := range c.draining {
		f.stopPoll()
		f.target.Destroy()
	}
	c.draining = nil
	c.held = nil
	c.importer.Close()
	if c.owned {
		return c.ctx.Close()
	}
	return nil
}
