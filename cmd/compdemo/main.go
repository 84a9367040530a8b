// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command compdemo composites a few synthetic client surfaces on a
// headless output with the software backend and saves the result.
package main

import (
	"flag"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/render/soft"
	"github.com/gogpu/compositor/surface"
)

func main() {
	var (
		width   = flag.Int("width", 800, "output width")
		height  = flag.Int("height", 600, "output height")
		output  = flag.String("output", "compdemo.png", "output file")
		frames  = flag.Int("frames", 30, "number of refresh cycles")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx := soft.New()
	defer ctx.Close()

	var released, done int
	sink := compositor.SinkFunc(func(n compositor.Notification) {
		switch n.(type) {
		case compositor.BufferReleased:
			released++
		case compositor.FrameDone:
			done++
		case compositor.ImportFailed:
			log.Printf("import failed: %v", n)
		}
	})
	c, err := compositor.New(compositor.WithRenderer(ctx), compositor.WithSink(sink))
	if err != nil {
		log.Fatalf("Failed to start compositor: %v", err)
	}
	defer c.Close()

	w, h := int32(*width), int32(*height)
	d := &demo{c: c}
	d.handle(compositor.OutputAttach{Output: 1, Mode: compositor.Mode{Width: w, Height: h, Refresh: 60000}})

	// Desktop background, a translucent window and a rotated subsurface.
	d.surface(1, gradient(d.nextID(), w, h), 0, 0, nil)
	alpha := float32(0.75)
	d.surface(2, checker(d.nextID(), w/2, h/2, 16), w/8, h/8, func(ev *compositor.SurfaceCommit) {
		ev.Alpha = &alpha
	})
	d.handle(compositor.SurfaceCreate{Surface: 3})
	d.handle(compositor.SubsurfaceAttach{Surface: 3, Parent: 2})
	d.handle(compositor.SubsurfacePosition{Surface: 3, X: w / 4, Y: h / 4})
	rot := region.Rotate90
	d.commit(3, gradient(d.nextID(), h/4, w/4), func(ev *compositor.SurfaceCommit) {
		ev.Transform = &rot
	})
	d.commit(2, nil, nil)

	ts := time.Now()
	for i := range *frames {
		// The window slides to the right, one pixel per refresh.
		if i > 0 {
			d.handle(compositor.SurfaceCommit{Surface: 2, DX: 1, Frame: true})
		}
		ts = ts.Add(time.Second / 60)
		d.handle(compositor.OutputVSync{Output: 1, Timestamp: ts})
		c.DispatchPending()
	}

	target, _ := c.OutputTarget(1)
	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, target.(*soft.Target).Front()); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	st := ctx.Stats()
	log.Printf("Saved %s (%dx%d): %d frames, %d draws, %d frame events, %d releases",
		*output, w, h, st.Frames, st.Draws, done, released)
}

type demo struct {
	c   *compositor.Compositor
	ids buffer.ID
}

func (d *demo) nextID() buffer.ID {
	d.ids++
	return d.ids
}

func (d *demo) handle(ev compositor.Event) {
	if err := d.c.Handle(ev); err != nil {
		log.Fatalf("%T: %v", ev, err)
	}
}

func (d *demo) commit(id surface.ID, b *buffer.Buffer, edit func(*compositor.SurfaceCommit)) {
	ev := compositor.SurfaceCommit{Surface: id, Frame: true}
	if b != nil {
		ev.Attach = true
		ev.Buffer = b
		ev.Damage = []region.Rect{region.NewRect(0, 0, b.Width(), b.Height())}
	}
	if edit != nil {
		edit(&ev)
	}
	d.handle(ev)
}

func (d *demo) surface(id surface.ID, b *buffer.Buffer, x, y int32, edit func(*compositor.SurfaceCommit)) {
	d.handle(compositor.SurfaceCreate{Surface: id})
	d.commit(id, b, edit)
	d.handle(compositor.SurfaceMap{Surface: id, X: x, Y: y})
}

// gradient returns an opaque XRGB8888 buffer shading from blue to teal.
func gradient(id buffer.ID, w, h int32) *buffer.Buffer {
	data := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			i := (y*w + x) * 4
			data[i+0] = byte(160 + 95*y/h)
			data[i+1] = byte(40 + 160*x/w)
			data[i+2] = 30
			data[i+3] = 0xff
		}
	}
	return mustShm(id, buffer.Shm{Data: data, Width: w, Height: h, Stride: w * 4, Format: buffer.XRGB8888})
}

// checker returns a premultiplied ARGB8888 buffer with transparent holes.
func checker(id buffer.ID, w, h, cell int32) *buffer.Buffer {
	data := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			i := (y*w + x) * 4
			if (x/cell+y/cell)%2 == 0 {
				copy(data[i:], []byte{0x20, 0x90, 0xf0, 0xff})
			}
		}
	}
	return mustShm(id, buffer.Shm{Data: data, Width: w, Height: h, Stride: w * 4, Format: buffer.ARGB8888})
}

func mustShm(id buffer.ID, desc buffer.Shm) *buffer.Buffer {
	b, err := buffer.NewShm(id, desc)
	if err != nil {
		log.Fatalf("buffer %d: %v", id, err)
	}
	return b
}
