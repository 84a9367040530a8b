// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"time"

	"github.com/gogpu/compositor/render"
)

// Default option values.
const (
	DefaultPollInterval = time.Millisecond
	DefaultQueueSize    = 256
)

// Option configures a Compositor during creation.
//
// Example:
//
//	// Software rendering, notifications delivered to a channel.
//	c, err := compositor.New(
//	    compositor.WithRenderer(soft.New()),
//	    compositor.WithSink(compositor.ChanSink(ch)),
//	)
type Option func(*options)

type options struct {
	renderer     render.Context
	backends     []string
	clock        Clock
	sink         Sink
	background   render.Color
	culling      bool
	pollInterval time.Duration
	queueSize    int
	poolSize     int
}

// defaultOptions returns the default compositor options.
func defaultOptions() options {
	return options{
		clock:        systemClock{},
		sink:         discardSink{},
		background:   render.Color{A: 1},
		culling:      true,
		pollInterval: DefaultPollInterval,
		queueSize:    DefaultQueueSize,
	}
}

// WithRenderer sets the render context. The caller keeps ownership: Close
// does not close it. Without this option New opens a backend from the
// render registry.
func WithRenderer(ctx render.Context) Option {
	return func(o *options) {
		o.renderer = ctx
	}
}

// WithBackends names the backends New tries first when it opens one from
// the registry.
//
// Example:
//
//	import _ "github.com/gogpu/compositor/render/soft"
//
//	c, err := compositor.New(compositor.WithBackends("wgpu", "soft"))
func WithBackends(names ...string) Option {
	return func(o *options) {
		o.backends = names
	}
}

// WithClock replaces the system clock, typically with a manual clock in
// tests.
func WithClock(clk Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithSink sets where notifications are delivered. By default they are
// dropped.
func WithSink(s Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithBackground sets the colour of output areas no surface covers.
func WithBackground(c render.Color) Option {
	return func(o *options) {
		o.background = c
	}
}

// WithoutCulling disables occlusion culling.
func WithoutCulling() Option {
	return func(o *options) {
		o.culling = false
	}
}

// WithPollInterval sets how often pending fences are polled.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithQueueSize sets the capacity of the event queue behind Post.
func WithQueueSize(n int) Option {
	return func(o *options) {
		o.queueSize = n
	}
}

// WithPoolSize sets how many idle uploaded images are kept for reuse.
func WithPoolSize(n int) Option {
	return func(o *options) {
		o.poolSize = n
	}
}
