// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compositor is the composition and rendering core of a Wayland
// display server.
//
// # Overview
//
// The protocol layer turns client requests into typed events (surface
// commits, buffer destruction, output hotplug and refresh signals) and
// hands them to a [Compositor]. The compositor keeps the double-buffered
// state of every surface, tracks damage per output, builds a draw list per
// output with occlusion culling, renders it with a pluggable GPU backend
// and paces repaints with one scheduler per output. It answers with
// [BufferReleased], [FrameDone] and [ImportFailed] notifications.
//
// # Event loop
//
// All state belongs to a single loop. [Compositor.Run] consumes events
// posted with [Compositor.Post] from any goroutine; tests and embedders
// that own their loop call [Compositor.Handle] and
// [Compositor.DispatchPending] instead. Nothing on the loop blocks: GPU
// fences are polled through timers of the configured [Clock], and each
// poll is an event of its own.
//
// # Backends
//
// Backends register with the render package. Importing one enables it:
//
//	import (
//	    _ "github.com/gogpu/compositor/render/soft" // CPU, always available
//	    _ "github.com/gogpu/compositor/render/wgpu" // Vulkan through gogpu/wgpu
//	)
//
//	c, err := compositor.New(compositor.WithBackends("wgpu", "soft"))
//
// A backend that fails to initialize is skipped and the next one tried.
//
// # Packages
//
//   - region: rectangles, regions and buffer transforms
//   - buffer: client buffers and their release cycle
//   - importer: buffer to texture import with a recycle pool
//   - surface: the surface tree with subsurfaces
//   - damage: per-output damage tracking
//   - scene: draw list construction and occlusion culling
//   - render, render/soft, render/wgpu: the backend interface and backends
//   - sched: the per-output frame scheduler
package compositor
