// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render defines the backend interface the compositor draws
// through.
//
// A [Context] is one backend instance with its own device. It imports
// client buffers as textures, owns the swapchain of each output, and
// executes draw lists between BeginFrame and EndFrame. EndFrame returns a
// [Fence] that is polled, never waited on.
//
// # Pipeline variants
//
// Every draw selects a pipeline by its [Caps]: whether the source has an
// alpha channel, whether an opacity multiplier applies, or whether the op
// is a solid fill. All variants read the same 64-byte parameter block
// ([Params]); the opacity multiplier is always at [AlphaOffset], so
// variants can be bound over one another without rewriting it.
//
// # Backends
//
// Backends register a [Factory] under a name and priority:
//
//	render.Register("soft", 10, func() (render.Context, error) { ... })
//
// [Open] starts the preferred backends first, then the rest by priority,
// skipping any whose initialization fails.
package render
