// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/importer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
	"github.com/gogpu/compositor/sched"
	"github.com/gogpu/compositor/surface"
)

// output is an attached output with its swapchain, damage and repaint
// scheduler.
type output struct {
	id     OutputID
	mode   Mode
	rect   region.Rect
	target render.Target
	damage *damage.Tracker
	sched  *sched.Scheduler
	// wantFrame is set when a shown surface asked for a frame event since
	// the last cycle started.
	wantFrame bool
	flight    *flight
	last      *scene.Frame
	watchdog  Timer
}

// flight is a submitted frame whose fence has not completed.
type flight struct {
	output   *output
	target   render.Target
	seq      uint64
	fence    render.Fence
	covered  region.Region
	due      []surface.ID
	ts       time.Time
	textures []*importer.Texture
	buffers  []*buffer.Buffer
	poll     Timer
	// detached frames belong to an output that is gone. They only release
	// resources when they complete.
	detached bool
}

func (c *Compositor) attachOutput(ev OutputAttach) error {
	if ev.Mode.Width <= 0 || ev.Mode.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadMode, ev.Mode.Width, ev.Mode.Height)
	}
	if _, ok := c.outputs[ev.Output]; ok {
		if err := c.detachOutput(ev.Output); err != nil {
			return err
		}
	}
	target, err := c.ctx.NewTarget(int(ev.Mode.Width), int(ev.Mode.Height))
	if err != nil {
		return fmt.Errorf("compositor: output %d: %w", ev.Output, err)
	}
	o := &output{
		id:     ev.Output,
		mode:   ev.Mode,
		rect:   region.NewRect(ev.X, ev.Y, ev.Mode.Width, ev.Mode.Height),
		target: target,
		damage: damage.New(region.NewRect(0, 0, ev.Mode.Width, ev.Mode.Height)),
	}
	o.sched = sched.New(sched.RefreshPeriod(ev.Mode.Refresh),
		sched.WithLogger(c.log.With("output", ev.Output)),
		sched.WithWatchdog(func(gen uint64, d time.Duration) {
			if o.watchdog != nil {
				o.watchdog.Stop()
			}
			o.watchdog = c.opts.clock.AfterFunc(d, func() {
				c.Post(watchdogFired{output: o, gen: gen})
			})
		}),
	)
	c.outputs[ev.Output] = o
	c.log.Info("compositor: output attached", "output", ev.Output,
		"mode", fmt.Sprintf("%dx%d@%d", ev.Mode.Width, ev.Mode.Height, ev.Mode.Refresh),
		"x", ev.X, "y", ev.Y)

	o.damage.Full()
	o.sched.Damage()
	return nil
}

// stopTimers cancels the watchdog and fence poll of o.
func (o *output) stopTimers() {
	if o.watchdog != nil {
		o.watchdog.Stop()
		o.watchdog = nil
	}
	if o.flight != nil {
		o.flight.stopPoll()
	}
}

func (f *flight) stopPoll() {
	if f.poll != nil {
		f.poll.Stop()
		f.poll = nil
	}
}

// detachOutput cancels the output's scheduler and drops its damage. A
// frame still executing is kept until its fence completes, and nothing is
// reported for it. Buffers it sampled are released by a later commit or
// completed frame.
func (c *Compositor) detachOutput(id OutputID) error {
	o, ok := c.outputs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOutput, id)
	}
	if o.watchdog != nil {
		o.watchdog.Stop()
		o.watchdog = nil
	}
	o.sched.Terminate()
	o.damage.Reset(region.Rect{})
	o.last = nil
	if f := o.flight; f != nil {
		f.detached = true
		o.flight = nil
		c.draining = append(c.draining, f)
	} else {
		o.target.Destroy()
	}
	delete(c.outputs, id)
	c.log.Info("compositor: output detached", "output", id, "draining", len(c.draining))
	return nil
}

// repaint runs one scheduled cycle of o.
func (c *Compositor) repaint(o *output, ts time.Time) {
	covered := o.damage.Begin()
	fr := c.composer.Compose(c.tree, o.rect, covered)
	o.last = fr
	o.wantFrame = false

	due := c.frameDue(fr.Visible)
	if fr.Empty() {
		// Only frame events are owed.
		o.damage.Abort()
		o.sched.Skip(false)
		c.frameDone(o, due, ts)
		c.log.Debug("compositor: cycle skipped", "output", o.id, "frames", len(due))
		return
	}

	fence, err := c.draw(o, fr)
	if err != nil {
		o.damage.Abort()
		o.sched.Failed(0)
		c.log.Warn("compositor: frame failed", "output", o.id, "err", err)
		return
	}
	f := &flight{
		output:  o,
		target:  o.target,
		seq:     o.sched.Submitted(),
		fence:   fence,
		covered: covered,
		due:     due,
		ts:      ts,
	}
	for _, e := range fr.Entries {
		c.importer.Ref(e.Texture)
		e.Buffer.Acquire()
		f.textures = append(f.textures, e.Texture)
		f.buffers = append(f.buffers, e.Buffer)
	}
	o.flight = f
	c.enqueue(fenceCheck{flight: f})
}

// draw records and submits the draw list of a frame.
func (c *Compositor) draw(o *output, fr *scene.Frame) (render.Fence, error) {
	ft, err := c.ctx.BeginFrame(o.target, fr.Damage, fr.Background)
	if err != nil {
		return nil, err
	}
	for i := range fr.Entries {
		e := &fr.Entries[i]
		if err := c.ctx.Draw(ft, &e.Op); err != nil {
			c.ctx.Discard(ft)
			return nil, fmt.Errorf("surface %d: %w", e.Surface, err)
		}
	}
	return c.ctx.EndFrame(ft)
}

// frameDue returns the surfaces in ids that are owed a frame event.
func (c *Compositor) frameDue(ids []surface.ID) []surface.ID {
	var due []surface.ID
	for _, id := range ids {
		if s, ok := c.tree.Get(id); ok && s.FrameDue() {
			due = append(due, id)
		}
	}
	return due
}

// frameDone sends FrameDone to the surfaces of due still waiting for one.
func (c *Compositor) frameDone(o *output, due []surface.ID, ts time.Time) {
	for _, id := range due {
		s, ok := c.tree.Get(id)
		if !ok || !s.FrameDue() {
			continue
		}
		s.ClearFrameDue()
		c.opts.sink.Notify(FrameDone{Surface: id, Output: o.id, Timestamp: ts})
	}
}

// checkFence polls the fence of f and completes the frame once it
// signals.
func (c *Compositor) checkFence(f *flight) {
	done, err := f.fence.Poll()
	if !done {
		f.poll = c.opts.clock.AfterFunc(c.opts.pollInterval, func() {
			c.Post(fenceCheck{flight: f})
		})
		return
	}
	f.poll = nil
	for _, t := range f.textures {
		c.importer.Unref(t)
	}
	for _, b := range f.buffers {
		b.Unacquire()
	}

	if f.detached {
		c.draining = slices.DeleteFunc(c.draining, func(d *flight) bool { return d == f })
		f.target.Destroy()
		c.held = append(c.held, f.buffers...)
		return
	}

	o := f.output
	o.flight = nil
	if err != nil {
		// Damage stays, so the next refresh redraws the same region.
		o.damage.Abort()
		o.sched.Failed(f.seq)
		c.log.Warn("compositor: frame failed", "output", o.id, "err", err)
		c.release(f.buffers)
		return
	}
	o.damage.Complete(f.covered)
	c.frameDone(o, f.due, f.ts)
	c.release(f.buffers)
	c.releaseHeld()
	o.sched.Signaled(f.seq, o.wantFrame || !o.damage.IsEmpty())
}

// OutputState returns the scheduler state of an output.
func (c *Compositor) OutputState(id OutputID) (sched.State, bool) {
	o, ok := c.outputs[id]
	if !ok {
		return sched.Terminated, false
	}
	return o.sched.State(), true
}

// OutputStats returns the scheduler counters of an output.
func (c *Compositor) OutputStats(id OutputID) (sched.Stats, bool) {
	o, ok := c.outputs[id]
	if !ok {
		return sched.Stats{}, false
	}
	return o.sched.Stats(), true
}

// OutputDamage returns the outstanding damage of an output in output
// coordinates.
func (c *Compositor) OutputDamage(id OutputID) (region.Region, bool) {
	o, ok := c.outputs[id]
	if !ok {
		return region.Region{}, false
	}
	return o.damage.Snapshot(), true
}

// OutputTarget returns the swapchain of an output.
func (c *Compositor) OutputTarget(id OutputID) (render.Target, bool) {
	o, ok := c.outputs[id]
	if !ok {
		return nil, false
	}
	return o.target, true
}

// LastFrame returns the draw list of the most recent cycle of an output.
func (c *Compositor) LastFrame(id OutputID) (*scene.Frame, bool) {
	o, ok := c.outputs[id]
	if !ok || o.last == nil {
		return nil, false
	}
	return o.last, true
}

// Capture copies rect of the output's last presented image into dst.
// rect is in output-local pixels. It blocks until the copy is done.
func (c *Compositor) Capture(id OutputID, rect region.Rect, dst *buffer.Shm) error {
	if c.closed {
		return ErrClosed
	}
	o, ok := c.outputs[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOutput, id)
	}
	if err := c.ctx.ReadPixels(o.target, rect, dst); err != nil {
		return fmt.Errorf("compositor: capture output %d: %w", id, err)
	}
	return nil
}
